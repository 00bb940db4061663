package server

import (
	"log/slog"
	"net/http"

	"github.com/openmcp-project/graph-explorer-db/internal/query"
)

// syncHandler runs one more sync pass. Cached query results are dropped afterwards, also when
// the pass failed, since kinds written before the failure stay in the store.
func syncHandler(s *shared, req *http.Request, res *response) (*response, *HttpError) {
	if req.Method != http.MethodPost {
		return nil, NewMethodNotAllowedError(req.Method)
	}

	if inv, ok := s.gateway.(query.Invalidator); ok {
		defer func() {
			inv.Invalidate()
			slog.Debug("invalidated cached query results")
		}()
	}

	summary, err := s.syncer.Sync(req.Context())
	if err != nil {
		return nil, NewInternalServerError(err)
	}

	res.AddHeader("Cache-Control", "no-store")
	if err := res.setJSON(summary); err != nil {
		return nil, NewInternalServerError(err)
	}
	return res, nil
}
