// Package query runs caller supplied scripts against the store and decodes the rows.
package query

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/openmcp-project/graph-explorer-db/internal/store"
	"github.com/openmcp-project/graph-explorer-db/pkg/resource"
)

const (
	EntityResources = "resources"
	EntityEdges     = "edges"
)

type Store interface {
	RunScript(ctx context.Context, script string, params store.Params, mode store.Mutability) ([]store.Row, error)
}

type Gateway interface {
	Resources(ctx context.Context, script string) ([]resource.Resource, error)
	Edges(ctx context.Context, script string) ([]resource.Edge, error)
}

// ExecutionError wraps a failure reported by the store.
type ExecutionError struct {
	Err error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("query error: %v", e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// DecodeError reports a result row that does not have the requested shape.
type DecodeError struct {
	Row int
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode result row %d: %v", e.Row, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

var _ Gateway = &StoreGateway{}

// StoreGateway runs every script in immutable mode.
type StoreGateway struct {
	db Store
}

func NewGateway(db Store) *StoreGateway {
	return &StoreGateway{db: db}
}

func (g *StoreGateway) Resources(ctx context.Context, script string) ([]resource.Resource, error) {
	return runQuery(ctx, g.db, EntityResources, script, resource.FromRow)
}

func (g *StoreGateway) Edges(ctx context.Context, script string) ([]resource.Edge, error) {
	return runQuery(ctx, g.db, EntityEdges, script, resource.EdgeFromRow)
}

// runQuery logs a milestone before and after execution: long scripts must be
// distinguishable from a hung process.
func runQuery[T any](ctx context.Context, db Store, entity, script string, decode func([]any) (T, error)) ([]T, error) {
	slog.Debug("query string", "entity", entity, "query", script)
	slog.Info("running query", "entity", entity)
	rows, err := db.RunScript(ctx, script, nil, store.Immutable)
	slog.Info("finished query", "entity", entity, "rows", len(rows))
	if err != nil {
		return nil, &ExecutionError{Err: err}
	}

	result := make([]T, 0, len(rows))
	for i, row := range rows {
		v, err := decode(row)
		if err != nil {
			return nil, &DecodeError{Row: i, Err: err}
		}
		result = append(result, v)
	}
	return result, nil
}
