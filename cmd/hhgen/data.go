package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/dukerupert/hhsynth/internal/distribution"
	"github.com/dukerupert/hhsynth/internal/generator"
)

func formatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	default:
		return "json"
	}
}

func runImportCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("import", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var region, period, format string
	cmd.StringVar(&region, "region", "", "Override the snapshot's region")
	cmd.StringVar(&period, "period", "", "Override the snapshot's period")
	cmd.StringVar(&format, "format", "", "json or yaml (default from file extension)")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if cmd.NArg() != 1 {
		fmt.Fprintln(stderr, "Usage: hhgen import [-region R] [-period P] [-format json|yaml] FILE")
		return 2
	}
	path := cmd.Arg(0)
	if format == "" {
		format = formatFromPath(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	snap, err := distribution.ParseSnapshot(data, format)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if region != "" {
		snap.Region = strings.ToUpper(region)
	}
	if period != "" {
		snap.Period = period
	}

	ctx := context.Background()
	b, _, logger, ok := openBackend(ctx, stderr)
	if !ok {
		return 1
	}
	defer b.Close()

	if b.Distributions == nil {
		fmt.Fprintln(stderr, "Error: import requires the sqlite provider")
		return 1
	}
	n, err := b.Distributions.ImportSnapshot(ctx, snap)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if err := b.Invalidate(ctx, snap.Region, snap.Period); err != nil {
		logger.Warn("cache invalidation failed", "error", err)
	}

	fmt.Fprintf(stdout, "Imported %d tables (%d rows) for %s/%s\n", len(snap.Tables), n, snap.Region, snap.Period)
	return 0
}

func runExportCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("export", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var region, period, format string
	cmd.StringVar(&region, "region", "", "Region code (REQUIRED)")
	cmd.StringVar(&period, "period", "", "Data period (REQUIRED)")
	cmd.StringVar(&format, "format", "json", "json or yaml")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if region == "" || period == "" {
		fmt.Fprintln(stderr, "Error: -region and -period are required")
		return 2
	}

	ctx := context.Background()
	b, _, _, ok := openBackend(ctx, stderr)
	if !ok {
		return 1
	}
	defer b.Close()

	region = strings.ToUpper(region)
	set, err := b.Provider.Load(ctx, region, period)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if len(set) == 0 {
		fmt.Fprintf(stderr, "Error: no distributions for %s/%s\n", region, period)
		return 1
	}
	snap := distribution.SnapshotOf(region, period, set)

	switch strings.ToLower(format) {
	case "yaml", "yml":
		enc := yaml.NewEncoder(stdout)
		enc.SetIndent(2)
		err = enc.Encode(snap)
		if err == nil {
			err = enc.Close()
		}
	case "json":
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		err = enc.Encode(snap)
	default:
		fmt.Fprintf(stderr, "Error: unsupported format %q\n", format)
		return 2
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: write snapshot: %v\n", err)
		return 1
	}
	return 0
}

func runRegionsCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("regions", flag.ContinueOnError)
	cmd.SetOutput(stderr)
	if err := cmd.Parse(args); err != nil {
		return 2
	}

	ctx := context.Background()
	b, _, _, ok := openBackend(ctx, stderr)
	if !ok {
		return 1
	}
	defer b.Close()

	if b.Catalog == nil {
		fmt.Fprintln(stderr, "Error: provider cannot list regions")
		return 1
	}
	regions, err := b.Catalog.ListRegions(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if len(regions) == 0 {
		fmt.Fprintln(stdout, "No regions loaded.")
		return 0
	}
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "REGION\tPERIOD")
	for _, rp := range regions {
		fmt.Fprintf(tw, "%s\t%s\n", rp.Region, rp.Period)
	}
	tw.Flush()
	return 0
}

func runPatternsCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("patterns", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var region, period string
	cmd.StringVar(&region, "region", "", "Region code (default from config)")
	cmd.StringVar(&period, "period", "", "Data period (default from config)")
	if err := cmd.Parse(args); err != nil {
		return 2
	}

	ctx := context.Background()
	b, cfg, _, ok := openBackend(ctx, stderr)
	if !ok {
		return 1
	}
	defer b.Close()

	if region == "" {
		region = cfg.DefaultRegion
	}
	if period == "" {
		period = cfg.DefaultPeriod
	}
	region = strings.ToUpper(region)

	set, err := b.Provider.Load(ctx, region, period)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	patterns, err := generator.SummarizePatterns(set)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %s/%s: %v\n", region, period, err)
		return 1
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PATTERN\tWEIGHT\tPERCENT\tCOMPLEXITY")
	for _, p := range patterns {
		fmt.Fprintf(tw, "%s\t%.0f\t%.1f%%\t%s\n", p.Pattern, p.Weight, p.Percentage, p.Complexity)
	}
	tw.Flush()
	return 0
}
