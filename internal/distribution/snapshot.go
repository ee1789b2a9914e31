package distribution

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed snapshot.schema.json
var snapshotSchema string

const snapshotSchemaURL = "https://hhsynth.local/schemas/snapshot.schema.json"

var compiledSnapshotSchema *jsonschema.Schema

func init() {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(snapshotSchemaURL, strings.NewReader(snapshotSchema)); err != nil {
		panic(fmt.Sprintf("load snapshot schema: %v", err))
	}
	compiledSnapshotSchema = c.MustCompile(snapshotSchemaURL)
}

// Snapshot is the portable form of a Set: the import file format and the
// cache encoding.
type Snapshot struct {
	Region string                   `json:"region" yaml:"region"`
	Period string                   `json:"period" yaml:"period"`
	Tables map[string]SnapshotTable `json:"tables" yaml:"tables"`
}

// SnapshotTable is one table inside a Snapshot.
type SnapshotTable struct {
	WeightField string `json:"weight_field,omitempty" yaml:"weight_field,omitempty"`
	Rows        []Row  `json:"rows" yaml:"rows"`
}

// UnmarshalJSON accepts numbers and booleans as field values.
func (r *Row) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	row := make(Row, len(raw))
	for k, v := range raw {
		row[k] = scalarString(v)
	}
	*r = row
	return nil
}

func scalarString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}

// ParseSnapshot decodes and validates a snapshot file. format is "json" or "yaml".
func ParseSnapshot(data []byte, format string) (*Snapshot, error) {
	switch strings.ToLower(format) {
	case "yaml", "yml":
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse yaml snapshot: %w", err)
		}
		converted, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("convert yaml snapshot: %w", err)
		}
		data = converted
	case "json", "":
	default:
		return nil, fmt.Errorf("unsupported snapshot format %q", format)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}
	if err := compiledSnapshotSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("validate snapshot: %w", err)
	}

	// period may be written as a bare year
	if m, ok := doc.(map[string]any); ok {
		if n, ok := m["period"].(json.Number); ok {
			m["period"] = n.String()
		}
	}
	normalized, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("normalize snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(normalized, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	snap.Region = strings.ToUpper(strings.TrimSpace(snap.Region))
	return &snap, nil
}

// Set converts the snapshot into loaded tables.
func (s *Snapshot) Set() Set {
	set := make(Set, len(s.Tables))
	for name, t := range s.Tables {
		set[name] = NewTable(name, t.WeightField, t.Rows)
	}
	return set
}

// SnapshotOf captures a Set so it can be stored or cached.
func SnapshotOf(region, period string, set Set) *Snapshot {
	snap := &Snapshot{Region: region, Period: period, Tables: make(map[string]SnapshotTable, len(set))}
	for name, t := range set {
		if t == nil {
			continue
		}
		snap.Tables[name] = SnapshotTable{WeightField: t.WeightField(), Rows: Rows(t)}
	}
	return snap
}

// Names returns the table names of a snapshot in sorted order.
func (s *Snapshot) Names() []string {
	names := make([]string, 0, len(s.Tables))
	for name := range s.Tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
