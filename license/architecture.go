package license

// =============================================================================
// ARCHITECTURE TABLE - License name -> architecture category
// =============================================================================
// The technology-mix view classifies every license by architecture. The table
// is an explicit dependency of the Engine (WithArchitectures) so tests can
// hand in a literal map. Loaders for files live in package architecture and a
// persistent table lives in store/sqlite; both produce a MapTable.
// =============================================================================

// Uncategorized is the category of licenses missing from the table.
const Uncategorized = "Uncategorized"

// ArchitectureTable resolves a license name to its architecture category.
// Lookups are by exact license name and must be safe for concurrent reads.
type ArchitectureTable interface {
	Architecture(license string) (string, bool)
}

// MapTable is an in-memory ArchitectureTable.
type MapTable map[string]string

// Architecture implements ArchitectureTable.
func (t MapTable) Architecture(license string) (string, bool) {
	category, ok := t[license]
	return category, ok
}
