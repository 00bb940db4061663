package store

import (
	"encoding/json"
	"fmt"
	"sort"
)

type ColumnType string

const (
	TypeAny    ColumnType = "Any"
	TypeString ColumnType = "String"
	TypeJSON   ColumnType = "Json"
)

func parseColumnType(s string) (ColumnType, error) {
	switch t := ColumnType(s); t {
	case TypeAny, TypeString, TypeJSON:
		return t, nil
	default:
		return "", fmt.Errorf("unknown column type %q", s)
	}
}

type Column struct {
	Name string     `json:"name"`
	Type ColumnType `json:"type"`
}

// Schema describes a relation: the key columns identify a row, the value columns carry data.
type Schema struct {
	Name   string   `json:"name"`
	Keys   []Column `json:"keys"`
	Values []Column `json:"values"`
}

func (s Schema) column(name string) (Column, bool) {
	for _, c := range s.Keys {
		if c.Name == name {
			return c, true
		}
	}
	for _, c := range s.Values {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// encodeKey returns the storage key of a row.
func (s Schema) encodeKey(row map[string]any) (string, error) {
	key := make([]any, len(s.Keys))
	for i, c := range s.Keys {
		key[i] = row[c.Name]
	}
	b, err := json.Marshal(key)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

type relation struct {
	schema Schema
	rows   map[string]map[string]any
}

func newRelation(schema Schema) *relation {
	return &relation{schema: schema, rows: make(map[string]map[string]any)}
}

// snapshot returns the rows ordered by key. Row maps are never mutated in place, so sharing them is safe.
func (r *relation) snapshot() []any {
	keys := make([]string, 0, len(r.rows))
	for k := range r.rows {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rows := make([]any, len(keys))
	for i, k := range keys {
		rows[i] = r.rows[k]
	}
	return rows
}

// change is a validated mutation of one relation, applied atomically after persistence.
type change struct {
	relation string
	puts     map[string]map[string]any
	removes  []string
}

// bind maps an emitted row onto the listed columns and checks it against the schema.
func (r *relation) bind(columns []Column, values []any, requireValues bool) (map[string]any, error) {
	if len(values) != len(columns) {
		return nil, fmt.Errorf("relation %q: row has %d values, expected %d", r.schema.Name, len(values), len(columns))
	}

	row := make(map[string]any, len(columns))
	for i, c := range columns {
		col, ok := r.schema.column(c.Name)
		if !ok {
			return nil, fmt.Errorf("relation %q has no column %q", r.schema.Name, c.Name)
		}
		if col.Type == TypeString {
			if _, ok := values[i].(string); !ok {
				return nil, fmt.Errorf("relation %q: column %q expects String, got %T", r.schema.Name, c.Name, values[i])
			}
		}
		row[c.Name] = values[i]
	}
	for _, k := range r.schema.Keys {
		if _, ok := row[k.Name]; !ok {
			return nil, fmt.Errorf("relation %q: key column %q not bound", r.schema.Name, k.Name)
		}
	}
	if requireValues {
		for _, v := range r.schema.Values {
			if _, ok := row[v.Name]; !ok {
				row[v.Name] = nil
			}
		}
	}
	return row, nil
}
