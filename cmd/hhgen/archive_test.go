package main

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/dukerupert/hhsynth/internal/archive"
	"github.com/dukerupert/hhsynth/internal/config"
	"github.com/dukerupert/hhsynth/internal/distribution"
)

// memoryArchive keeps snapshots in a map keyed by region/period.
type memoryArchive struct {
	snaps map[string]*distribution.Snapshot
}

func (m *memoryArchive) Push(_ context.Context, snap *distribution.Snapshot, _ string) (string, int64, error) {
	key := snap.Region + "/" + snap.Period
	m.snaps[key] = snap
	return key, int64(len(snap.Tables)), nil
}

func (m *memoryArchive) Pull(_ context.Context, region, period, _ string) (*distribution.Snapshot, error) {
	snap, ok := m.snaps[region+"/"+period]
	if !ok {
		return nil, fmt.Errorf("download %s/%s: not found", region, period)
	}
	return snap, nil
}

func (m *memoryArchive) List(context.Context) ([]archive.Entry, error) {
	var out []archive.Entry
	for _, s := range m.snaps {
		out = append(out, archive.Entry{Region: s.Region, Period: s.Period, Size: 1, Modified: time.Unix(0, 0)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Region+out[i].Period < out[j].Region+out[j].Period })
	return out, nil
}

func (m *memoryArchive) Delete(_ context.Context, region, period string) error {
	delete(m.snaps, region+"/"+period)
	return nil
}

func useMemoryArchive(t *testing.T) *memoryArchive {
	t.Helper()
	mem := &memoryArchive{snaps: make(map[string]*distribution.Snapshot)}
	prev := openArchive
	openArchive = func(config.Config, *slog.Logger) (snapshotArchive, error) { return mem, nil }
	t.Cleanup(func() { openArchive = prev })
	return mem
}

func withPassphrase(t *testing.T, passphrase string) {
	t.Helper()
	base := loadConfig
	loadConfig = func() (config.Config, error) {
		cfg, err := base()
		cfg.ArchivePassphrase = passphrase
		return cfg, err
	}
	t.Cleanup(func() { loadConfig = base })
}

func TestArchivePushPull(t *testing.T) {
	mem := useMemoryArchive(t)
	dir := useScratchConfig(t)
	withPassphrase(t, "s3cret")

	if code, _, errOut := run("import", writeFile(t, dir, "hi.json", snapshotJSON)); code != 0 {
		t.Fatalf("import: %s", errOut)
	}
	code, out, errOut := run("archive", "push", "-region", "hi", "-period", "2023")
	if code != 0 {
		t.Fatalf("push: code = %d stderr = %s", code, errOut)
	}
	if !strings.Contains(out, "Archived HI/2023") {
		t.Errorf("push output = %q", out)
	}
	if _, ok := mem.snaps["HI/2023"]; !ok {
		t.Fatal("snapshot not pushed")
	}

	code, out, _ = run("archive", "list")
	if code != 0 || !strings.Contains(out, "HI") || !strings.Contains(out, "2023") {
		t.Errorf("list: code = %d out = %q", code, out)
	}

	// A fresh database picks the snapshot up from the archive.
	useScratchConfig(t)
	withPassphrase(t, "s3cret")
	code, out, errOut = run("archive", "pull", "-region", "HI", "-period", "2023")
	if code != 0 {
		t.Fatalf("pull: code = %d stderr = %s", code, errOut)
	}
	if !strings.Contains(out, "Pulled 2 tables") {
		t.Errorf("pull output = %q", out)
	}
	if code, out, _ := run("regions"); code != 0 || !strings.Contains(out, "HI") {
		t.Errorf("regions after pull = %q", out)
	}

	if code, _, _ := run("archive", "delete", "-region", "HI", "-period", "2023"); code != 0 {
		t.Errorf("delete: code = %d", code)
	}
	if code, out, _ := run("archive", "list"); code != 0 || !strings.Contains(out, "No archived snapshots") {
		t.Errorf("list after delete = %q", out)
	}
}

func TestArchiveErrors(t *testing.T) {
	useScratchConfig(t)

	if code, _, _ := run("archive"); code != 2 {
		t.Errorf("no subcommand: code = %d, want 2", code)
	}
	if code, _, _ := run("archive", "sync"); code != 2 {
		t.Errorf("unknown subcommand: code = %d, want 2", code)
	}
	if code, _, _ := run("archive", "push"); code != 2 {
		t.Errorf("missing flags: code = %d, want 2", code)
	}
	if code, _, errOut := run("archive", "list"); code != 1 || !strings.Contains(errOut, "not configured") {
		t.Errorf("unconfigured: code = %d err = %q", code, errOut)
	}
	if code, _, errOut := run("archive", "push", "-region", "HI", "-period", "2023"); code != 1 || !strings.Contains(errOut, "PASSPHRASE") {
		t.Errorf("no passphrase: code = %d err = %q", code, errOut)
	}

	useMemoryArchive(t)
	withPassphrase(t, "p")
	if code, _, errOut := run("archive", "push", "-region", "ZZ", "-period", "1999"); code != 1 || !strings.Contains(errOut, "no distributions") {
		t.Errorf("empty push: code = %d err = %q", code, errOut)
	}
	if code, _, _ := run("archive", "pull", "-region", "ZZ", "-period", "1999"); code != 1 {
		t.Errorf("missing pull: code = %d, want 1", code)
	}
}
