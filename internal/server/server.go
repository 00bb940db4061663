package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/openmcp-project/graph-explorer-db/internal/query"
)

func NewMiddleware(gateway query.Gateway, syncer Syncer) *http.ServeMux {
	shared := &shared{
		gateway: gateway,
		syncer:  syncer,
	}

	mux := http.NewServeMux()

	mux.HandleFunc("/v1/query/resources", defaultHandler(shared, resourceQueryHandler))
	mux.HandleFunc("/v1/query/edges", defaultHandler(shared, edgeQueryHandler))
	mux.HandleFunc("/v1/sync", defaultHandler(shared, syncHandler))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/{$}", defaultHandler(shared, rootHandler))

	return mux
}
