package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/lib/pq"

	"github.com/dukerupert/hhsynth/internal/distribution"
)

// derivedTables join census and wage data and carry both periods in their name.
var derivedTables = map[string]bool{
	distribution.EducationOccupation:       true,
	distribution.AgeIncomeAdjustments:      true,
	distribution.SelfEmploymentProbability: true,
}

var patternsTableName = regexp.MustCompile(`(?i)^household_patterns_([a-z]+)_([0-9]+)$`)

// PostgresProvider reads the distribution tables written by the extraction
// jobs, one physical table per region and period: {table}_{REGION}_{PERIOD}.
type PostgresProvider struct {
	db        *sql.DB
	logger    *slog.Logger
	wagesYear string
}

type PostgresOption func(*PostgresProvider)

// WithWagesPeriod loads wage tables from a different period than the census
// tables, as the extraction jobs allow.
func WithWagesPeriod(period string) PostgresOption {
	return func(p *PostgresProvider) { p.wagesYear = period }
}

func NewPostgresProvider(db *sql.DB, logger *slog.Logger, opts ...PostgresOption) *PostgresProvider {
	p := &PostgresProvider{db: db, logger: logger.With("component", "postgres_provider")}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// physicalName returns the table holding name for region and period.
func (p *PostgresProvider) physicalName(name, region, period string) string {
	wages := period
	if p.wagesYear != "" {
		wages = p.wagesYear
	}
	switch {
	case derivedTables[name]:
		return fmt.Sprintf("%s_%s_pums_%s_bls_%s", name, region, period, wages)
	case name == distribution.OccupationWages:
		return fmt.Sprintf("%s_%s_%s", name, region, wages)
	default:
		return fmt.Sprintf("%s_%s_%s", name, region, period)
	}
}

func (p *PostgresProvider) tableNames(ctx context.Context, like string) ([]string, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT table_name FROM information_schema.tables WHERE table_schema = current_schema() AND table_name ILIKE $1`,
		like,
	)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Load implements distribution.Provider. Tables that do not exist are left
// out of the Set.
func (p *PostgresProvider) Load(ctx context.Context, region, period string) (distribution.Set, error) {
	region = strings.ToUpper(region)
	existing, err := p.tableNames(ctx, "%\\_"+region+"\\_%")
	if err != nil {
		return nil, err
	}
	present := make(map[string]string, len(existing))
	for _, name := range existing {
		present[strings.ToLower(name)] = name
	}

	set := make(distribution.Set)
	for _, name := range distribution.TableNames() {
		physical, ok := present[strings.ToLower(p.physicalName(name, region, period))]
		if !ok {
			p.logger.Debug("distribution table absent", "table", name, "region", region, "period", period)
			continue
		}
		rows, err := p.readTable(ctx, physical)
		if err != nil {
			return nil, err
		}
		set[name] = distribution.NewTable(name, "", rows)
	}
	return set, nil
}

func (p *PostgresProvider) readTable(ctx context.Context, physical string) ([]distribution.Row, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT * FROM `+pq.QuoteIdentifier(physical))
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", physical, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns of %s: %w", physical, err)
	}
	for i, c := range cols {
		cols[i] = strings.ToLower(c)
	}

	var out []distribution.Row
	values := make([]sql.NullString, len(cols))
	dest := make([]any, len(cols))
	for i := range values {
		dest[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", physical, err)
		}
		row := make(distribution.Row, len(cols))
		for i, c := range cols {
			if values[i].Valid {
				row[c] = values[i].String
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", physical, err)
	}
	return out, nil
}

// ListRegions implements distribution.Catalog by parsing the names of the
// household_patterns tables.
func (p *PostgresProvider) ListRegions(ctx context.Context) ([]distribution.RegionPeriod, error) {
	names, err := p.tableNames(ctx, "household\\_patterns\\_%")
	if err != nil {
		return nil, err
	}

	seen := make(map[distribution.RegionPeriod]bool)
	var out []distribution.RegionPeriod
	for _, name := range names {
		m := patternsTableName.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		rp := distribution.RegionPeriod{Region: strings.ToUpper(m[1]), Period: m[2]}
		if !seen[rp] {
			seen[rp] = true
			out = append(out, rp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Region != out[j].Region {
			return out[i].Region < out[j].Region
		}
		return out[i].Period < out[j].Period
	})
	return out, nil
}
