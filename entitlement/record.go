package entitlement

import "time"

// =============================================================================
// RECORD - One row per (account, sub-account, license, grant detail)
// =============================================================================

// Record is the flat, uniform row produced by Normalize. Grant-level quantity
// and status are renamed AssignedQuantity/AssignedStatus so they do not clash
// with the detail-level Quantity/Status.
type Record struct {
	AccountName          string `json:"accountName"`
	AccountDomain        string `json:"accountDomain"`
	AccountStatus        string `json:"accountStatus"`
	AccountType          string `json:"accountType"`
	Role                 string `json:"role"`
	VirtualAccount       string `json:"virtualAccount"`
	VirtualAccountStatus string `json:"virtualAccount_status"`
	StatusMessage        string `json:"statusMessage"`

	License          string `json:"license"`
	AssignedQuantity int    `json:"assignedLicenses_quantity"`
	InUse            int    `json:"inUse"`
	Available        int    `json:"available"`
	AhaApps          bool   `json:"ahaApps"`
	BillingType      string `json:"billingType"`
	PendingQuantity  int    `json:"pendingQuantity"`
	Reserved         int    `json:"reserved"`
	IsPortable       bool   `json:"isPortable"`
	AssignedStatus   string `json:"assignedLicenses_status"`

	LicenseType    string     `json:"licenseType"`
	Quantity       int        `json:"quantity"`
	StartDate      *time.Time `json:"startDate"`
	EndDate        *time.Time `json:"endDate"`
	SubscriptionID *string    `json:"subscriptionId"`
	Status         string     `json:"status"`
}

// Columns is the column order of the flat-record accessor, as used by exports.
var Columns = []string{
	"accountName", "accountDomain", "accountStatus", "accountType",
	"role", "virtualAccount", "virtualAccount_status", "statusMessage",
	"license", "assignedLicenses_quantity", "inUse", "available", "ahaApps",
	"billingType", "pendingQuantity", "reserved", "isPortable", "assignedLicenses_status",
	"licenseType", "quantity", "startDate", "endDate", "subscriptionId", "status",
}
