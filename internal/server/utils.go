package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// maxRequestBody caps the size of a query request.
const maxRequestBody = 4 << 20

func readQueryRequest(req *http.Request) (queryRequest, error) {
	var q queryRequest
	body, err := io.ReadAll(io.LimitReader(req.Body, maxRequestBody+1))
	if err != nil {
		return q, fmt.Errorf("failed to read request body: %w", err)
	}
	if len(body) > maxRequestBody {
		return q, fmt.Errorf("request body exceeds %d bytes", maxRequestBody)
	}
	if err := json.Unmarshal(body, &q); err != nil {
		return q, fmt.Errorf("invalid request body: %w", err)
	}
	if q.QueryString == "" {
		return q, fmt.Errorf("query_string is required")
	}
	return q, nil
}

func (r *response) setJSON(v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	r.body = body
	r.contentType = "application/json"
	return nil
}
