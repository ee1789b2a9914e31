package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/dukerupert/hhsynth/internal/backend"
	"github.com/dukerupert/hhsynth/internal/config"
	"github.com/dukerupert/hhsynth/internal/logging"
)

func main() {
	os.Exit(Run(os.Args, os.Stdout, os.Stderr))
}

// loadConfig is a variable so tests can point the CLI at a scratch database.
var loadConfig = config.Load

// Run is the entrypoint for testing. Exit codes: 0 ok, 1 failure, 2 usage.
func Run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		printUsage(stderr)
		return 2
	}

	switch args[1] {
	case "generate", "gen":
		return runGenerateCmd(args[2:], stdout, stderr)
	case "import":
		return runImportCmd(args[2:], stdout, stderr)
	case "export":
		return runExportCmd(args[2:], stdout, stderr)
	case "regions":
		return runRegionsCmd(args[2:], stdout, stderr)
	case "patterns":
		return runPatternsCmd(args[2:], stdout, stderr)
	case "apikey":
		return runAPIKeyCmd(args[2:], stdout, stderr)
	case "archive":
		return runArchiveCmd(args[2:], stdout, stderr)
	case "help", "--help", "-h":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", args[1])
		printUsage(stderr)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: hhgen <command> [flags]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  generate   Generate synthetic households as JSON")
	fmt.Fprintln(w, "  import     Load a distribution snapshot (JSON or YAML) into the local database")
	fmt.Fprintln(w, "  export     Write the distributions for a region and period as a snapshot")
	fmt.Fprintln(w, "  regions    List available region/period pairs")
	fmt.Fprintln(w, "  patterns   Show household pattern weights for a region and period")
	fmt.Fprintln(w, "  apikey     Manage API keys (create, list, revoke)")
	fmt.Fprintln(w, "  archive    Push, pull, list or delete encrypted snapshots in object storage")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Configuration is read from HHSYNTH_* environment variables and HHSYNTH_CONFIG.")
}

// openBackend loads configuration and opens storage with logs on stderr.
func openBackend(ctx context.Context, stderr io.Writer) (*backend.Backend, config.Config, *slog.Logger, bool) {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(stderr, "Error: config: %v\n", err)
		return nil, cfg, nil, false
	}
	logger := logging.New(stderr, cfg.LogLevel, cfg.LogFormat)
	b, err := backend.Open(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return nil, cfg, nil, false
	}
	return b, cfg, logger, true
}
