// Package loader copies the objects of a cluster into the store.
package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/openmcp-project/graph-explorer-db/internal/metrics"
	"github.com/openmcp-project/graph-explorer-db/internal/store"
	"github.com/openmcp-project/graph-explorer-db/pkg/k8s"
	"github.com/openmcp-project/graph-explorer-db/pkg/resource"
)

var (
	ErrConnection = errors.New("cluster connection failed")
	ErrDiscovery  = errors.New("api discovery failed")
	ErrList       = errors.New("listing resources failed")
	ErrStore      = errors.New("store rejected script")
)

const (
	schemaScript = `:create resource {api: String, kind: String, namespace: String, name: String => obj: Json}`

	putResourcesScript = `$data[]
:put resource {api, kind, namespace, name, obj}`
)

type Store interface {
	RunScript(ctx context.Context, script string, params store.Params, mode store.Mutability) ([]store.Row, error)
}

// InitSchema creates the resource relation. Failures are logged and otherwise ignored,
// an existing relation from a previous run is the common case.
func InitSchema(ctx context.Context, db Store) {
	result, err := db.RunScript(ctx, schemaScript, nil, store.Mutable)
	if err != nil {
		slog.Warn("failed to create schema", "err", err)
		return
	}
	slog.Debug("created schema", "result", result)
}

// Summary describes a completed sync pass.
type Summary struct {
	Kinds   int `json:"kinds"`
	Skipped int `json:"skipped"`
	Objects int `json:"objects"`
}

type Option func(*Loader)

// WithWorkers sets how many kinds are listed and written concurrently.
func WithWorkers(n int) Option {
	return func(l *Loader) {
		if n > 0 {
			l.workers = n
		}
	}
}

// WithDiscoveryCache reuses discovery results for ttl across sync passes.
func WithDiscoveryCache(ttl time.Duration) Option {
	return func(l *Loader) {
		l.discoveryTTL = ttl
	}
}

type Loader struct {
	kube         k8s.Kube
	db           Store
	workers      int
	discoveryTTL time.Duration
}

func New(kube k8s.Kube, db Store, opts ...Option) *Loader {
	l := &Loader{kube: kube, db: db, workers: 1}
	for _, opt := range opts {
		opt(l)
	}
	if l.discoveryTTL > 0 {
		l.kube = k8s.NewCachingKube(l.kube, l.discoveryTTL, l.discoveryTTL)
	}
	return l
}

// Connect builds a Loader for the cluster reachable with the ambient credentials.
func Connect(db Store, opts ...Option) (*Loader, error) {
	kube, err := k8s.NewDefaultKube()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnection, err)
	}
	return New(kube, db, opts...), nil
}

// Sync lists every listable kind and upserts its objects. Objects that disappeared from the
// cluster are not removed. The first failing kind fails the whole pass.
func (l *Loader) Sync(ctx context.Context) (summary Summary, err error) {
	defer func(begin time.Time) {
		metrics.SyncDuration.With(
			metrics.LabelSuccess, fmt.Sprint(err == nil),
		).Observe(time.Since(begin).Seconds())
	}(time.Now())

	resources, err := l.kube.Discover()
	if err != nil {
		return Summary{}, fmt.Errorf("%w: %w", ErrDiscovery, err)
	}

	var objects atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.workers)
	for _, r := range resources {
		if !r.Supports(k8s.VerbList) {
			slog.Debug("skipping resource without list support", "api", r.API(), "kind", r.Kind)
			summary.Skipped++
			continue
		}
		summary.Kinds++
		g.Go(func() error {
			n, err := l.syncResource(gctx, r)
			objects.Add(int64(n))
			return err
		})
	}
	err = g.Wait()
	summary.Objects = int(objects.Load())
	if err != nil {
		return summary, err
	}

	slog.Info("synced cluster", "kinds", summary.Kinds, "skipped", summary.Skipped, "objects", summary.Objects)
	return summary, nil
}

func (l *Loader) syncResource(ctx context.Context, r k8s.APIResource) (int, error) {
	slog.Debug("discovered", "api", r.API(), "kind", r.Kind)

	items, err := l.kube.List(ctx, r)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrList, r, err)
	}
	if len(items) == 0 {
		return 0, nil
	}

	rows := make([]any, len(items))
	for i := range items {
		rows[i] = resource.FromUnstructured(r.API(), r.Kind, &items[i]).FullRow()
	}

	result, err := l.db.RunScript(ctx, putResourcesScript, store.Params{"data": rows}, store.Mutable)
	if err != nil {
		return 0, fmt.Errorf("%w: writing %s: %w", ErrStore, r, err)
	}
	slog.Debug("stored resources", "api", r.API(), "kind", r.Kind, "count", len(rows), "result", result)

	metrics.SyncObjects.With(metrics.LabelAPI, r.API(), metrics.LabelKind, r.Kind).Add(float64(len(rows)))
	return len(rows), nil
}
