package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/itchyny/gojq"
)

// Mutability tells the store whether a script may change state.
type Mutability int

const (
	Mutable Mutability = iota
	Immutable
)

func (m Mutability) String() string {
	if m == Immutable {
		return "immutable"
	}
	return "mutable"
}

const (
	EngineMem  = "mem"
	EngineBolt = "bolt"
)

// Row is one result row.
type Row = []any

// Params are bound to the program as jq variables, "data" becomes $data.
type Params map[string]any

var (
	ErrImmutable      = errors.New("script would modify the store in immutable mode")
	ErrRelationExists = errors.New("relation already exists")
	ErrNoRelation     = errors.New("relation not found")
)

var okResult = []Row{{"OK"}}

// persister mirrors committed changes to durable storage.
type persister interface {
	load() ([]*relation, error)
	createRelation(schema Schema) error
	apply(schema Schema, c change) error
	Close() error
}

// DB is safe for concurrent use. Write scripts are serialized, queries run against a snapshot.
type DB struct {
	mu        sync.RWMutex
	relations map[string]*relation
	persister persister
}

// Open creates a store with the given engine. path is only used by the bolt engine.
func Open(engine, path string) (*DB, error) {
	db := &DB{relations: make(map[string]*relation)}
	switch engine {
	case EngineMem, "":
		return db, nil
	case EngineBolt:
		p, err := openBolt(path)
		if err != nil {
			return nil, err
		}
		relations, err := p.load()
		if err != nil {
			return nil, errors.Join(err, p.Close())
		}
		for _, r := range relations {
			db.relations[r.schema.Name] = r
		}
		db.persister = p
		return db, nil
	default:
		return nil, fmt.Errorf("unknown storage engine %q", engine)
	}
}

func (db *DB) Close() error {
	if db.persister == nil {
		return nil
	}
	return db.persister.Close()
}

// Relations returns the schemas of all defined relations.
func (db *DB) Relations() []Schema {
	db.mu.RLock()
	defer db.mu.RUnlock()

	schemas := make([]Schema, 0, len(db.relations))
	for _, r := range db.relations {
		schemas = append(schemas, r.schema)
	}
	return schemas
}

// RunScript executes a script. Queries return the rows the program emits, writes return [["OK"]].
func (db *DB) RunScript(ctx context.Context, text string, params Params, mode Mutability) ([]Row, error) {
	s, err := parseScript(text)
	if err != nil {
		return nil, err
	}
	if s.directive != nil && mode == Immutable {
		return nil, ErrImmutable
	}

	if s.directive != nil && s.directive.op == opCreate {
		if err := db.create(s.directive); err != nil {
			return nil, err
		}
		return okResult, nil
	}

	code, values, err := compile(s.program, params)
	if err != nil {
		return nil, err
	}

	if s.directive == nil {
		db.mu.RLock()
		input := db.input()
		db.mu.RUnlock()
		return run(ctx, code, input, values)
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	rows, err := run(ctx, code, db.input(), values)
	if err != nil {
		return nil, err
	}
	if err := db.write(s.directive, rows); err != nil {
		return nil, err
	}
	return okResult, nil
}

func (db *DB) create(d *directive) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if strings.HasPrefix(d.relation, "_") {
		return fmt.Errorf("invalid relation name %q", d.relation)
	}
	if _, ok := db.relations[d.relation]; ok {
		return fmt.Errorf("%w: %s", ErrRelationExists, d.relation)
	}
	schema := Schema{Name: d.relation, Keys: d.keys, Values: d.values}
	if db.persister != nil {
		if err := db.persister.createRelation(schema); err != nil {
			return err
		}
	}
	db.relations[d.relation] = newRelation(schema)
	return nil
}

// write validates every row before touching state so a script is applied entirely or not at all.
func (db *DB) write(d *directive, rows []Row) error {
	rel, ok := db.relations[d.relation]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoRelation, d.relation)
	}

	c := change{relation: d.relation, puts: make(map[string]map[string]any)}
	for _, values := range rows {
		row, err := rel.bind(d.columns(), values, d.op == opPut)
		if err != nil {
			return err
		}
		normalized, err := normalize(row)
		if err != nil {
			return err
		}
		row = normalized.(map[string]any)
		key, err := rel.schema.encodeKey(row)
		if err != nil {
			return err
		}
		if d.op == opPut {
			c.puts[key] = row
		} else {
			c.removes = append(c.removes, key)
		}
	}

	if db.persister != nil {
		if err := db.persister.apply(rel.schema, c); err != nil {
			return err
		}
	}
	for k, row := range c.puts {
		rel.rows[k] = row
	}
	for _, k := range c.removes {
		delete(rel.rows, k)
	}
	return nil
}

// input is the program input: every relation as an array of row objects.
func (db *DB) input() map[string]any {
	input := make(map[string]any, len(db.relations))
	for name, r := range db.relations {
		input[name] = r.snapshot()
	}
	return input
}

func compile(program string, params Params) (*gojq.Code, []any, error) {
	query, err := gojq.Parse(program)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse program: %w", err)
	}

	names := make([]string, 0, len(params))
	values := make([]any, 0, len(params))
	for name, value := range params {
		v, err := normalize(value)
		if err != nil {
			return nil, nil, fmt.Errorf("parameter %q: %w", name, err)
		}
		names = append(names, "$"+name)
		values = append(values, v)
	}

	code, err := gojq.Compile(query, gojq.WithVariables(names))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to compile program: %w", err)
	}
	return code, values, nil
}

func run(ctx context.Context, code *gojq.Code, input map[string]any, values []any) ([]Row, error) {
	iter := code.RunWithContext(ctx, input, values...)
	rows := make([]Row, 0)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, ok := v.(error); ok {
			return nil, err
		}
		row, ok := v.([]any)
		if !ok {
			return nil, fmt.Errorf("program emitted %s, expected an array row", typeName(v))
		}
		rows = append(rows, row)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}

// normalize converts a value into the JSON shapes the jq engine understands.
func normalize(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "a string"
	case bool:
		return "a boolean"
	case map[string]any:
		return "an object"
	default:
		return "a number"
	}
}
