package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/openmcp-project/graph-explorer-db/internal/loader"
	"github.com/openmcp-project/graph-explorer-db/internal/query"
	"github.com/openmcp-project/graph-explorer-db/internal/store"
	"github.com/openmcp-project/graph-explorer-db/pkg/resource"
)

type fakeGateway struct {
	lastScript  string
	err         error
	invalidated int
}

func (f *fakeGateway) Resources(_ context.Context, script string) ([]resource.Resource, error) {
	f.lastScript = script
	if f.err != nil {
		return nil, f.err
	}
	return []resource.Resource{
		resource.New("v1", "Pod", "default", "a", nil),
		resource.New("v1", "Node", "", "n", nil),
	}, nil
}

func (f *fakeGateway) Edges(_ context.Context, script string) ([]resource.Edge, error) {
	f.lastScript = script
	if f.err != nil {
		return nil, f.err
	}
	return []resource.Edge{{
		From:  resource.New("apps/v1", "ReplicaSet", "default", "rs", nil),
		To:    resource.New("v1", "Pod", "default", "a", nil),
		Label: "owns",
	}}, nil
}

func (f *fakeGateway) Invalidate() {
	f.invalidated++
}

type fakeSyncer struct {
	err error
}

func (f fakeSyncer) Sync(context.Context) (loader.Summary, error) {
	return loader.Summary{Kinds: 2, Skipped: 1, Objects: 5}, f.err
}

func post(t *testing.T, srv *httptest.Server, path, body string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Post(srv.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(b)
}

func TestResourceQuery(t *testing.T) {
	gateway := &fakeGateway{}
	srv := httptest.NewServer(NewMiddleware(gateway, fakeSyncer{}))
	defer srv.Close()

	resp, body := post(t, srv, "/v1/query/resources", `{"query_string": "q1"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "q1", gateway.lastScript)
	assert.JSONEq(t, `{"resources": [
		{"api": "v1", "kind": "Pod", "namespace": "default", "name": "a"},
		{"api": "v1", "kind": "Node", "namespace": null, "name": "n"}
	]}`, body)
}

func TestEdgeQuery(t *testing.T) {
	srv := httptest.NewServer(NewMiddleware(&fakeGateway{}, fakeSyncer{}))
	defer srv.Close()

	resp, body := post(t, srv, "/v1/query/edges", `{"query_string": "q"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"edges": [{
		"from": {"api": "apps/v1", "kind": "ReplicaSet", "namespace": "default", "name": "rs"},
		"to": {"api": "v1", "kind": "Pod", "namespace": "default", "name": "a"},
		"label": "owns"
	}]}`, body)
}

func TestQueryFailure(t *testing.T) {
	srv := httptest.NewServer(NewMiddleware(&fakeGateway{err: errors.New("query error: boom")}, fakeSyncer{}))
	defer srv.Close()

	for _, path := range []string{"/v1/query/resources", "/v1/query/edges"} {
		resp, body := post(t, srv, path, `{"query_string": "q"}`)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

		var status metav1.Status
		require.NoError(t, json.Unmarshal([]byte(body), &status))
		assert.Equal(t, metav1.StatusFailure, status.Status)
		assert.Equal(t, "something went wrong: query error: boom", status.Message)
	}

	resp, _ := post(t, srv, "/v1/query/resources", `not json`)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestMethods(t *testing.T) {
	srv := httptest.NewServer(NewMiddleware(&fakeGateway{}, fakeSyncer{}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/query/resources")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/v1/query/edges", nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Methods"))
}

func TestRootAndMetrics(t *testing.T) {
	srv := httptest.NewServer(NewMiddleware(&fakeGateway{}, fakeSyncer{}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, banner, string(body))

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/unknown")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSync(t *testing.T) {
	gateway := &fakeGateway{}
	srv := httptest.NewServer(NewMiddleware(gateway, fakeSyncer{}))
	defer srv.Close()

	resp, body := post(t, srv, "/v1/sync", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"kinds": 2, "skipped": 1, "objects": 5}`, body)
	assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
	assert.Equal(t, 1, gateway.invalidated)

	failing := httptest.NewServer(NewMiddleware(gateway, fakeSyncer{err: loader.ErrList}))
	defer failing.Close()
	resp, _ = post(t, failing, "/v1/sync", "")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, 2, gateway.invalidated)
}

// partialSyncer writes one more pod and then fails, like a pass aborted after earlier kinds were stored.
type partialSyncer struct {
	db *store.DB
}

func (p partialSyncer) Sync(ctx context.Context) (loader.Summary, error) {
	row := resource.New("v1", "Pod", "default", "b", nil).FullRow()
	_, err := p.db.RunScript(ctx, "$data[]\n:put resource {api, kind, namespace, name, obj}",
		store.Params{"data": []any{row}}, store.Mutable)
	if err != nil {
		return loader.Summary{}, err
	}
	return loader.Summary{Kinds: 2, Objects: 1}, fmt.Errorf("%w: namespaces: forbidden", loader.ErrList)
}

func TestFailedSyncDropsCachedResults(t *testing.T) {
	ctx := context.Background()
	db, err := store.Open(store.EngineMem, "")
	require.NoError(t, err)
	defer db.Close()
	loader.InitSchema(ctx, db)
	_, err = db.RunScript(ctx, "$data[]\n:put resource {api, kind, namespace, name, obj}",
		store.Params{"data": []any{resource.New("v1", "Pod", "default", "a", nil).FullRow()}}, store.Mutable)
	require.NoError(t, err)

	gateway := query.NewCachingGateway(query.NewGateway(db), time.Minute, time.Minute)
	srv := httptest.NewServer(NewMiddleware(gateway, partialSyncer{db: db}))
	defer srv.Close()

	countPods := func() int {
		t.Helper()
		resp, body := post(t, srv, "/v1/query/resources", `{"query_string": ".resource[] | [.api, .kind, .namespace, .name]"}`)
		require.Equal(t, http.StatusOK, resp.StatusCode, body)
		var pods resourceResponse
		require.NoError(t, json.Unmarshal([]byte(body), &pods))
		return len(pods.Resources)
	}

	assert.Equal(t, 1, countPods())

	resp, _ := post(t, srv, "/v1/sync", "")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	assert.Equal(t, 2, countPods())
}
