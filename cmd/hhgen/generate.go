package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/dukerupert/hhsynth/internal/generator"
)

type generateOutput struct {
	Success bool `json:"success"`
	Count   int  `json:"count"`
	*generator.Batch
}

func runGenerateCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("generate", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		region, period      string
		pattern, complexity string
		count               int
		seed                int64
		compact             bool
	)
	cmd.StringVar(&region, "region", "", "Region code (default from config)")
	cmd.StringVar(&period, "period", "", "Data period (default from config)")
	cmd.IntVar(&count, "count", 1, "Number of households")
	cmd.Int64Var(&seed, "seed", 0, "Base seed; household i uses seed+i")
	cmd.StringVar(&pattern, "pattern", "", "Force a household pattern")
	cmd.StringVar(&complexity, "complexity", "", "Restrict to simple, medium or complex patterns")
	cmd.BoolVar(&compact, "compact", false, "Print JSON on one line")

	if err := cmd.Parse(args); err != nil {
		return 2
	}

	ctx := context.Background()
	b, cfg, logger, ok := openBackend(ctx, stderr)
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
	req := generator.Request{
		Region:     region,
		Period:     period,
		Complexity: complexity,
		Pattern:    pattern,
		Count:      count,
	}
	cmd.Visit(func(f *flag.Flag) {
		if f.Name == "seed" {
			req.Seed = &seed
		}
	})

	pipeline := generator.New(b.Provider, logger,
		generator.WithMaxBatch(cfg.MaxBatch),
		generator.WithWorkers(cfg.Workers),
	)
	batch, err := pipeline.GenerateBatch(ctx, req)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		if errors.Is(err, generator.ErrInvalidRequest) {
			return 2
		}
		return 1
	}

	enc := json.NewEncoder(stdout)
	if !compact {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(generateOutput{Success: true, Count: len(batch.Households), Batch: batch}); err != nil {
		fmt.Fprintf(stderr, "Error: write output: %v\n", err)
		return 1
	}
	return 0
}
