package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dukerupert/hhsynth/internal/archive"
	"github.com/dukerupert/hhsynth/internal/config"
	"github.com/dukerupert/hhsynth/internal/distribution"
	"github.com/dukerupert/hhsynth/internal/logging"
)

type snapshotArchive interface {
	Push(ctx context.Context, snap *distribution.Snapshot, passphrase string) (string, int64, error)
	Pull(ctx context.Context, region, period, passphrase string) (*distribution.Snapshot, error)
	List(ctx context.Context) ([]archive.Entry, error)
	Delete(ctx context.Context, region, period string) error
}

// openArchive is a variable so tests can substitute an in-memory archive.
var openArchive = func(cfg config.Config, logger *slog.Logger) (snapshotArchive, error) {
	a, err := archive.New(archive.Config{
		Endpoint:  cfg.ArchiveEndpoint,
		Bucket:    cfg.ArchiveBucket,
		Region:    cfg.ArchiveRegion,
		AccessKey: cfg.ArchiveAccessKey,
		SecretKey: cfg.ArchiveSecretKey,
		Prefix:    cfg.ArchivePrefix,
	}, logger)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func runArchiveCmd(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printArchiveUsage(stderr)
		return 2
	}
	switch args[0] {
	case "push":
		return runArchivePush(args[1:], stdout, stderr)
	case "pull":
		return runArchivePull(args[1:], stdout, stderr)
	case "list":
		return runArchiveList(args[1:], stdout, stderr)
	case "delete":
		return runArchiveDelete(args[1:], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "Unknown archive command: %s\n", args[0])
		printArchiveUsage(stderr)
		return 2
	}
}

func printArchiveUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: hhgen archive <push|pull|list|delete> [flags]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  push    -region R -period P   Encrypt and upload local distributions")
	fmt.Fprintln(w, "  pull    -region R -period P   Download, decrypt and import a snapshot")
	fmt.Fprintln(w, "  list                          List archived snapshots")
	fmt.Fprintln(w, "  delete  -region R -period P   Remove an archived snapshot")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Storage is configured with HHSYNTH_ARCHIVE_* variables.")
}

func regionPeriodFlags(name string, args []string, stderr io.Writer) (region, period string, code int) {
	cmd := flag.NewFlagSet("archive "+name, flag.ContinueOnError)
	cmd.SetOutput(stderr)
	cmd.StringVar(&region, "region", "", "Region code (REQUIRED)")
	cmd.StringVar(&period, "period", "", "Data period (REQUIRED)")
	if err := cmd.Parse(args); err != nil {
		return "", "", 2
	}
	if region == "" || period == "" {
		fmt.Fprintln(stderr, "Error: -region and -period are required")
		return "", "", 2
	}
	return strings.ToUpper(region), period, 0
}

// archiveFor opens the archive described by cfg, reporting failures on stderr.
func archiveFor(cfg config.Config, logger *slog.Logger, stderr io.Writer) (snapshotArchive, bool) {
	a, err := openArchive(cfg, logger)
	if errors.Is(err, archive.ErrNotConfigured) {
		fmt.Fprintln(stderr, "Error: archive not configured (set HHSYNTH_ARCHIVE_BUCKET, HHSYNTH_ARCHIVE_ACCESS_KEY and HHSYNTH_ARCHIVE_SECRET_KEY)")
		return nil, false
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return nil, false
	}
	return a, true
}

func requirePassphrase(cfg config.Config, stderr io.Writer) bool {
	if cfg.ArchivePassphrase == "" {
		fmt.Fprintln(stderr, "Error: HHSYNTH_ARCHIVE_PASSPHRASE is required")
		return false
	}
	return true
}

func runArchivePush(args []string, stdout, stderr io.Writer) int {
	region, period, code := regionPeriodFlags("push", args, stderr)
	if code != 0 {
		return code
	}

	ctx := context.Background()
	b, cfg, logger, ok := openBackend(ctx, stderr)
	if !ok {
		return 1
	}
	defer b.Close()
	if !requirePassphrase(cfg, stderr) {
		return 1
	}
	a, ok := archiveFor(cfg, logger, stderr)
	if !ok {
		return 1
	}

	set, err := b.Provider.Load(ctx, region, period)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if len(set) == 0 {
		fmt.Fprintf(stderr, "Error: no distributions for %s/%s\n", region, period)
		return 1
	}
	key, size, err := a.Push(ctx, distribution.SnapshotOf(region, period, set), cfg.ArchivePassphrase)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "Archived %s/%s to %s (%d bytes)\n", region, period, key, size)
	return 0
}

func runArchivePull(args []string, stdout, stderr io.Writer) int {
	region, period, code := regionPeriodFlags("pull", args, stderr)
	if code != 0 {
		return code
	}

	ctx := context.Background()
	b, cfg, logger, ok := openBackend(ctx, stderr)
	if !ok {
		return 1
	}
	defer b.Close()
	if b.Distributions == nil {
		fmt.Fprintln(stderr, "Error: pull requires the sqlite provider")
		return 1
	}
	if !requirePassphrase(cfg, stderr) {
		return 1
	}
	a, ok := archiveFor(cfg, logger, stderr)
	if !ok {
		return 1
	}

	snap, err := a.Pull(ctx, region, period, cfg.ArchivePassphrase)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
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
	fmt.Fprintf(stdout, "Pulled %d tables (%d rows) for %s/%s\n", len(snap.Tables), n, snap.Region, snap.Period)
	return 0
}

// archiveOnly loads configuration and opens the archive without touching the database.
func archiveOnly(stderr io.Writer) (snapshotArchive, bool) {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(stderr, "Error: config: %v\n", err)
		return nil, false
	}
	return archiveFor(cfg, logging.New(stderr, cfg.LogLevel, cfg.LogFormat), stderr)
}

func runArchiveList(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("archive list", flag.ContinueOnError)
	cmd.SetOutput(stderr)
	if err := cmd.Parse(args); err != nil {
		return 2
	}
	a, ok := archiveOnly(stderr)
	if !ok {
		return 1
	}

	entries, err := a.List(context.Background())
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if len(entries) == 0 {
		fmt.Fprintln(stdout, "No archived snapshots.")
		return 0
	}
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "REGION\tPERIOD\tSIZE\tMODIFIED")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", e.Region, e.Period, e.Size, e.Modified.UTC().Format(time.RFC3339))
	}
	tw.Flush()
	return 0
}

func runArchiveDelete(args []string, stdout, stderr io.Writer) int {
	region, period, code := regionPeriodFlags("delete", args, stderr)
	if code != 0 {
		return code
	}
	a, ok := archiveOnly(stderr)
	if !ok {
		return 1
	}
	if err := a.Delete(context.Background(), region, period); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "Deleted archive %s/%s\n", region, period)
	return 0
}
