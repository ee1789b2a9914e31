package generator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/dukerupert/hhsynth/internal/distribution"
	"github.com/dukerupert/hhsynth/internal/model"
	"github.com/dukerupert/hhsynth/internal/sampling"
)

const instrumentationName = "github.com/dukerupert/hhsynth/internal/generator"

const (
	DefaultMaxBatch = 100
	DefaultWorkers  = 4
)

// Request describes what to generate. Seed is optional; without it a base
// seed is taken from the clock and reported in the Batch.
type Request struct {
	Region     string `json:"region"`
	Period     string `json:"period"`
	Complexity string `json:"complexity,omitempty"`
	Pattern    string `json:"pattern,omitempty"`
	Seed       *int64 `json:"seed,omitempty"`
	Count      int    `json:"count"`
}

// Batch is the result of GenerateBatch. Household i was generated from Seed+i.
type Batch struct {
	Region     string             `json:"region"`
	Period     string             `json:"period"`
	Seed       int64              `json:"seed"`
	Households []*model.Household `json:"households"`
}

// Pipeline runs the five stages in order for each household.
type Pipeline struct {
	provider  distribution.Provider
	structure *StructureSelector
	adults    *AdultGenerator
	children  *ChildGenerator
	income    *IncomeGenerator
	expenses  *ExpenseGenerator
	logger    *slog.Logger
	tracer    trace.Tracer
	generated metric.Int64Counter
	maxBatch  int
	workers   int
	now       func() time.Time
}

type Option func(*Pipeline)

func WithMaxBatch(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.maxBatch = n
		}
	}
}

func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.workers = n
		}
	}
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(p *Pipeline) { p.tracer = tp.Tracer(instrumentationName) }
}

func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(p *Pipeline) { p.generated = householdCounter(mp.Meter(instrumentationName), p.logger) }
}

func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// New builds a pipeline reading distributions from provider. Tracing and
// metrics default to the global OpenTelemetry providers.
func New(provider distribution.Provider, logger *slog.Logger, opts ...Option) *Pipeline {
	logger = logger.With("component", "generator")
	p := &Pipeline{
		provider:  provider,
		structure: NewStructureSelector(logger),
		adults:    NewAdultGenerator(logger),
		children:  NewChildGenerator(logger),
		income:    NewIncomeGenerator(logger),
		expenses:  NewExpenseGenerator(logger),
		logger:    logger,
		tracer:    otel.Tracer(instrumentationName),
		maxBatch:  DefaultMaxBatch,
		workers:   DefaultWorkers,
		now:       time.Now,
	}
	p.generated = householdCounter(otel.Meter(instrumentationName), logger)
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func householdCounter(m metric.Meter, logger *slog.Logger) metric.Int64Counter {
	c, err := m.Int64Counter("hhsynth.households.generated",
		metric.WithDescription("Households produced by the pipeline"),
		metric.WithUnit("{household}"))
	if err != nil {
		logger.Error("create household counter", "error", err)
		return noop.Int64Counter{}
	}
	return c
}

// validated is a Request after name resolution.
type validated struct {
	opts StructureOptions
	seed int64
}

func (p *Pipeline) validate(req Request) (validated, error) {
	v := validated{opts: StructureOptions{
		Region: strings.ToUpper(strings.TrimSpace(req.Region)),
		Period: strings.TrimSpace(req.Period),
	}}
	if v.opts.Region == "" || v.opts.Period == "" {
		return v, fmt.Errorf("%w: region and period are required", ErrInvalidRequest)
	}
	if req.Complexity != "" {
		c, ok := model.ParseComplexity(req.Complexity)
		if !ok {
			return v, fmt.Errorf("%w: unknown complexity %q", ErrInvalidRequest, req.Complexity)
		}
		v.opts.Complexity = c
	}
	if req.Pattern != "" {
		pat, ok := model.ParsePattern(req.Pattern)
		if !ok {
			return v, fmt.Errorf("%w: unknown pattern %q", ErrInvalidRequest, req.Pattern)
		}
		v.opts.Pattern = pat
	}
	if req.Seed != nil {
		v.seed = *req.Seed
	} else {
		v.seed = p.now().UnixNano()
	}
	return v, nil
}

// Generate produces a single household.
func (p *Pipeline) Generate(ctx context.Context, req Request) (*model.Household, error) {
	req.Count = 1
	batch, err := p.GenerateBatch(ctx, req)
	if err != nil {
		return nil, err
	}
	return batch.Households[0], nil
}

// GenerateBatch produces req.Count households. Each household owns a Source
// seeded with seed+i, so work is spread across workers and the result is
// identical to generating them one by one.
func (p *Pipeline) GenerateBatch(ctx context.Context, req Request) (*Batch, error) {
	if req.Count < 1 || req.Count > p.maxBatch {
		return nil, fmt.Errorf("%w: count must be between 1 and %d", ErrInvalidRequest, p.maxBatch)
	}
	v, err := p.validate(req)
	if err != nil {
		return nil, err
	}

	ctx, span := p.tracer.Start(ctx, "generator.batch", trace.WithAttributes(
		attribute.String("region", v.opts.Region),
		attribute.String("period", v.opts.Period),
		attribute.Int("count", req.Count),
		attribute.Int64("seed", v.seed),
	))
	defer span.End()

	dists, err := p.provider.Load(ctx, v.opts.Region, v.opts.Period)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load distributions")
		return nil, fmt.Errorf("load distributions %s/%s: %w", v.opts.Region, v.opts.Period, err)
	}

	households := make([]*model.Household, req.Count)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i := range households {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			hh, err := p.household(gctx, sampling.NewSource(v.seed+int64(i)), dists, v.opts)
			if err != nil {
				return err
			}
			households[i] = hh
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generate")
		return nil, err
	}

	p.logger.Info("batch generated",
		"region", v.opts.Region, "period", v.opts.Period, "count", req.Count, "seed", v.seed)
	return &Batch{Region: v.opts.Region, Period: v.opts.Period, Seed: v.seed, Households: households}, nil
}

// GenerateWith runs the stages for one household against already loaded
// distributions.
func (p *Pipeline) GenerateWith(ctx context.Context, src *sampling.Source, dists distribution.Set, opts StructureOptions) (*model.Household, error) {
	return p.household(ctx, src, dists, opts)
}

func (p *Pipeline) household(ctx context.Context, src *sampling.Source, dists distribution.Set, opts StructureOptions) (*model.Household, error) {
	ctx, span := p.tracer.Start(ctx, "generator.household")
	defer span.End()

	_, stage := p.tracer.Start(ctx, "generator.structure")
	hh, err := p.structure.Select(src, dists, opts)
	stage.End()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "structure")
		return nil, err
	}
	span.SetAttributes(attribute.String("pattern", string(hh.Pattern)))

	_, stage = p.tracer.Start(ctx, "generator.adults")
	res := p.adults.Generate(src, dists, hh)
	hh.Members = append(hh.Members, res.Adults...)
	hh.SubPattern = res.SubPattern
	stage.End()

	_, stage = p.tracer.Start(ctx, "generator.children")
	hh.Members = append(hh.Members, p.children.Generate(src, dists, hh, res.SubPattern)...)
	stage.End()

	_, stage = p.tracer.Start(ctx, "generator.income")
	p.income.Assign(src, dists, hh)
	stage.End()

	_, stage = p.tracer.Start(ctx, "generator.expenses")
	p.expenses.Assign(src, dists, hh)
	stage.End()

	p.generated.Add(ctx, 1, metric.WithAttributes(attribute.String("pattern", string(hh.Pattern))))
	return hh, nil
}
