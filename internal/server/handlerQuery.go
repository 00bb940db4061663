package server

import (
	"net/http"

	"github.com/openmcp-project/graph-explorer-db/pkg/resource"
)

type queryRequest struct {
	QueryString string `json:"query_string"`
}

type resourceResponse struct {
	Resources []resource.Resource `json:"resources"`
}

type edgeResponse struct {
	Edges []resource.Edge `json:"edges"`
}

func resourceQueryHandler(s *shared, req *http.Request, res *response) (*response, *HttpError) {
	if req.Method != http.MethodPost {
		return nil, NewMethodNotAllowedError(req.Method)
	}
	q, err := readQueryRequest(req)
	if err != nil {
		return nil, NewInternalServerError(err)
	}

	resources, err := s.gateway.Resources(req.Context(), q.QueryString)
	if err != nil {
		return nil, NewInternalServerError(err)
	}
	if err := res.setJSON(resourceResponse{Resources: resources}); err != nil {
		return nil, NewInternalServerError(err)
	}
	return res, nil
}

func edgeQueryHandler(s *shared, req *http.Request, res *response) (*response, *HttpError) {
	if req.Method != http.MethodPost {
		return nil, NewMethodNotAllowedError(req.Method)
	}
	q, err := readQueryRequest(req)
	if err != nil {
		return nil, NewInternalServerError(err)
	}

	edges, err := s.gateway.Edges(req.Context(), q.QueryString)
	if err != nil {
		return nil, NewInternalServerError(err)
	}
	if err := res.setJSON(edgeResponse{Edges: edges}); err != nil {
		return nil, NewInternalServerError(err)
	}
	return res, nil
}
