package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dukerupert/hhsynth/internal/distribution"
)

// DistributionStore is the SQLite-backed distribution provider. Each
// region/period holds one row set per table; rows are stored as JSON objects.
type DistributionStore struct {
	db *sql.DB
}

func NewDistributionStore(db *sql.DB) *DistributionStore {
	return &DistributionStore{db: db}
}

// ImportSnapshot replaces every table of the snapshot's region and period in
// a single transaction. It returns the number of rows written.
func (s *DistributionStore) ImportSnapshot(ctx context.Context, snap *distribution.Snapshot) (int, error) {
	region := strings.ToUpper(snap.Region)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM distribution_tables WHERE region = ? AND period = ?`, region, snap.Period,
	); err != nil {
		return 0, fmt.Errorf("clear distributions: %w", err)
	}

	var written int
	for _, name := range snap.Names() {
		t := snap.Tables[name]
		result, err := tx.ExecContext(ctx,
			`INSERT INTO distribution_tables (region, period, name, weight_field) VALUES (?, ?, ?, ?)`,
			region, snap.Period, name, t.WeightField,
		)
		if err != nil {
			return 0, fmt.Errorf("insert table %s: %w", name, err)
		}
		tableID, err := result.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("last insert id: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `INSERT INTO distribution_rows (table_id, ordinal, fields) VALUES (?, ?, ?)`)
		if err != nil {
			return 0, fmt.Errorf("prepare rows: %w", err)
		}
		for i, row := range t.Rows {
			fields, err := json.Marshal(row)
			if err != nil {
				stmt.Close()
				return 0, fmt.Errorf("encode %s row %d: %w", name, i, err)
			}
			if _, err := stmt.ExecContext(ctx, tableID, i, string(fields)); err != nil {
				stmt.Close()
				return 0, fmt.Errorf("insert %s row %d: %w", name, i, err)
			}
			written++
		}
		stmt.Close()
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit import: %w", err)
	}
	return written, nil
}

// Load implements distribution.Provider. A region/period with no imported
// tables yields an empty Set.
func (s *DistributionStore) Load(ctx context.Context, region, period string) (distribution.Set, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT t.name, t.weight_field, r.fields
		FROM distribution_tables t
		JOIN distribution_rows r ON r.table_id = t.id
		WHERE t.region = ? AND t.period = ?
		ORDER BY t.name, r.ordinal`,
		strings.ToUpper(region), period,
	)
	if err != nil {
		return nil, fmt.Errorf("query distributions: %w", err)
	}
	defer rows.Close()

	type pending struct {
		weightField string
		rows        []distribution.Row
	}
	tables := make(map[string]*pending)
	for rows.Next() {
		var name, weightField, fields string
		if err := rows.Scan(&name, &weightField, &fields); err != nil {
			return nil, fmt.Errorf("scan distribution row: %w", err)
		}
		var row distribution.Row
		if err := json.Unmarshal([]byte(fields), &row); err != nil {
			return nil, fmt.Errorf("decode %s row: %w", name, err)
		}
		p, ok := tables[name]
		if !ok {
			p = &pending{weightField: weightField}
			tables[name] = p
		}
		p.rows = append(p.rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate distributions: %w", err)
	}

	set := make(distribution.Set, len(tables))
	for name, p := range tables {
		set[name] = distribution.NewTable(name, p.weightField, p.rows)
	}
	return set, nil
}

// ListRegions implements distribution.Catalog.
func (s *DistributionStore) ListRegions(ctx context.Context) ([]distribution.RegionPeriod, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT region, period FROM distribution_tables ORDER BY region, period`,
	)
	if err != nil {
		return nil, fmt.Errorf("query regions: %w", err)
	}
	defer rows.Close()

	var out []distribution.RegionPeriod
	for rows.Next() {
		var rp distribution.RegionPeriod
		if err := rows.Scan(&rp.Region, &rp.Period); err != nil {
			return nil, fmt.Errorf("scan region: %w", err)
		}
		out = append(out, rp)
	}
	return out, rows.Err()
}

// Delete removes a region/period and reports whether anything was removed.
func (s *DistributionStore) Delete(ctx context.Context, region, period string) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM distribution_tables WHERE region = ? AND period = ?`, strings.ToUpper(region), period,
	)
	if err != nil {
		return false, fmt.Errorf("delete distributions: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}
