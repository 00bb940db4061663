package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"

	"github.com/openmcp-project/graph-explorer-db/internal/loader"
	"github.com/openmcp-project/graph-explorer-db/internal/query"
)

type Syncer interface {
	Sync(ctx context.Context) (loader.Summary, error)
}

type shared struct {
	gateway query.Gateway
	syncer  Syncer
}

type handler func(shared *shared, req *http.Request, res *response) (*response, *HttpError)

type response struct {
	body        []byte
	contentType string
	headers     map[string]string
}

func (r *response) AddHeader(key, value string) {
	if r.headers == nil {
		r.headers = make(map[string]string)
	}
	r.headers[key] = value
}

func defaultHandler(shared *shared, handlerFunc handler) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, req *http.Request) {
		if req.Method == http.MethodOptions {
			handleOptions(w)
			return
		}

		res := &response{}
		res, err := handlerFunc(shared, req, res)
		w.Header().Set("Access-Control-Allow-Origin", "*")

		if err != nil {
			slog.Error("request processing failed", "path", req.URL.Path, "status", err.StatusCode(), "err", err)

			status := err.ToAPIStatus()
			var encoder = unstructured.NewJSONFallbackEncoder(unstructured.UnstructuredJSONScheme)
			output, errEnc := runtime.Encode(encoder, status)
			if errEnc != nil {
				output = []byte(fmt.Sprintf("%s: %s", status.Reason, status.Message))
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(err.StatusCode())
			if _, errWrite := w.Write(output); errWrite != nil {
				utilruntime.HandleError(fmt.Errorf("unable to write an error response: %v", errWrite))
			}
			return
		}

		if res.contentType != "" {
			w.Header().Set("Content-Type", res.contentType)
		}
		for k, v := range res.headers {
			w.Header().Set(k, v)
		}
		if _, errWrite := w.Write(res.body); errWrite != nil {
			slog.Error("can't write response", "err", errWrite)
			utilruntime.HandleError(fmt.Errorf("was unable to write a response: %v", errWrite))
		}
	}
}

func handleOptions(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "*")
	w.Header().Set("Access-Control-Allow-Headers", "*")
	w.WriteHeader(http.StatusOK)
}
