package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/warp/license-engine/architecture"
	"github.com/warp/license-engine/entitlement"
	"github.com/warp/license-engine/export"
	"github.com/warp/license-engine/license"
)

// ============================================================================
// LICENSEREPORT CLI - One license view from an entitlement document file
// ============================================================================

var views = []string{"accounts", "records", "expired", "expiring", "shortage", "usage", "technology"}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("licensereport", flag.ContinueOnError)
	fs.SetOutput(stderr)

	// ── Flags ─────────────────────────────────────────────────────────────
	filePath := fs.String("file", "", "Path to the entitlement document JSON (required)")
	view := fs.String("view", "accounts", "View: "+strings.Join(views, ", "))
	days := fs.Int("days", 30, "Window in days for the expiring view")
	top := fs.Int("top", 0, "Cap the view to the top N rows (0: full view)")
	va := fs.String("va", "", "Comma separated virtual accounts for the expired view")
	archPath := fs.String("architectures", "", "Architecture table (.json, .yaml) for the technology view")
	format := fs.String("format", "json", "Output format: json, pretty, csv (records only)")
	outFile := fs.String("out", "", "Write output to file instead of stdout")
	nowFlag := fs.String("now", "", "Evaluate dates as of this RFC3339 time instead of the current time")
	verbose := fs.Bool("v", false, "Debug logging")

	fs.Usage = func() {
		fmt.Fprintf(stderr, `licensereport - license views from an entitlement document

Usage:
  licensereport -file entitlements.json -view expiring -days 60 -format pretty
  licensereport -file entitlements.json -view records -format csv -out licenses.csv
  licensereport -file entitlements.json -view technology -architectures technology.json

Flags:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return 2
	}

	log := logrus.New()
	log.SetOutput(stderr)
	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	if *filePath == "" {
		fmt.Fprintln(stderr, "Error: -file is required")
		fs.Usage()
		return 2
	}
	if *format == "csv" && *view != "records" {
		fmt.Fprintln(stderr, "Error: -format csv is only available for -view records")
		return 2
	}

	now := time.Now
	if *nowFlag != "" {
		t, err := time.Parse(time.RFC3339, *nowFlag)
		if err != nil {
			fmt.Fprintf(stderr, "Error: invalid -now: %v\n", err)
			return 2
		}
		now = func() time.Time { return t }
	}

	// ── Read data ─────────────────────────────────────────────────────────
	data, err := os.ReadFile(*filePath)
	if err != nil {
		log.WithError(err).Error("failed to read document")
		return 1
	}
	doc, err := entitlement.ParseDocument(data)
	if err != nil {
		log.WithError(err).Error("failed to parse document")
		return 1
	}

	opts := []license.Option{license.WithLogger(log), license.WithClock(now)}
	if *archPath != "" {
		table, err := architecture.LoadFile(*archPath)
		if err != nil {
			log.WithError(err).Error("failed to load architectures")
			return 1
		}
		opts = append(opts, license.WithArchitectures(table))
	}

	engine, err := license.FromDocument(doc, opts...)
	if err != nil {
		log.WithError(err).Error("failed to normalize document")
		return 1
	}

	result, err := compute(engine, *view, *days, *top, splitList(*va))
	if err != nil {
		log.WithError(err).Error("failed to compute view")
		return 1
	}

	// ── Output ────────────────────────────────────────────────────────────
	w := stdout
	if *outFile != "" {
		f, err := os.Create(*outFile)
		if err != nil {
			log.WithError(err).Error("failed to create output file")
			return 1
		}
		defer f.Close()
		w = f
	}

	if err := write(w, *format, engine, result); err != nil {
		log.WithError(err).Error("failed to write output")
		return 1
	}
	return 0
}

// compute returns the requested view. top <= 0 means the full view.
func compute(e *license.Engine, view string, days, top int, va []string) (any, error) {
	switch view {
	case "accounts":
		return e.AccountSubAccounts(), nil
	case "records":
		return e.Records(), nil
	case "expired":
		if top > 0 {
			return e.TopExpiredLicenses(top, va...), nil
		}
		return e.ExpiredLicenses(va...), nil
	case "expiring":
		if top > 0 {
			return e.TopFutureExpiring(days, top), nil
		}
		return e.FutureExpiring(days), nil
	case "shortage":
		if top > 0 {
			return e.TopLicenseShortage(top), nil
		}
		return e.LicenseShortage(), nil
	case "usage":
		if top > 0 {
			return e.TopLicenseUsage(top)
		}
		return e.LicenseUsage()
	case "technology":
		if top > 0 {
			return e.TopLicenseTechnologyMix(), nil
		}
		return e.LicenseTechnologyMix(), nil
	}
	return nil, fmt.Errorf("unknown view %q (want one of %s)", view, strings.Join(views, ", "))
}

func write(w io.Writer, format string, e *license.Engine, result any) error {
	switch format {
	case "json":
		return json.NewEncoder(w).Encode(result)
	case "pretty":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	case "csv":
		return export.WriteRecords(w, e.Records())
	}
	return fmt.Errorf("unknown format %q", format)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
