package query

import (
	"context"
	"fmt"
	"time"

	"github.com/openmcp-project/graph-explorer-db/internal/metrics"
	"github.com/openmcp-project/graph-explorer-db/pkg/resource"
)

type instrumentedGateway struct {
	Gateway
}

// Instrumented records the duration of every query. Invalidate is passed through when supported.
func Instrumented(g Gateway) Gateway {
	return &instrumentedGateway{Gateway: g}
}

func (i *instrumentedGateway) Resources(ctx context.Context, script string) (res []resource.Resource, err error) {
	defer func(begin time.Time) {
		metrics.QueryDuration.With(
			metrics.LabelEntity, EntityResources,
			metrics.LabelSuccess, fmt.Sprint(err == nil),
		).Observe(time.Since(begin).Seconds())
	}(time.Now())
	return i.Gateway.Resources(ctx, script)
}

func (i *instrumentedGateway) Edges(ctx context.Context, script string) (res []resource.Edge, err error) {
	defer func(begin time.Time) {
		metrics.QueryDuration.With(
			metrics.LabelEntity, EntityEdges,
			metrics.LabelSuccess, fmt.Sprint(err == nil),
		).Observe(time.Since(begin).Seconds())
	}(time.Now())
	return i.Gateway.Edges(ctx, script)
}

func (i *instrumentedGateway) Invalidate() {
	if inv, ok := i.Gateway.(Invalidator); ok {
		inv.Invalidate()
	}
}
