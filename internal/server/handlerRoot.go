package server

import "net/http"

const banner = "?[] <- [['ヾ(≧▽≦*)o']]\n" +
	"# POST a jq program to /v1/query/resources, for example\n" +
	"# {\"query_string\": \".resource[] | [.api, .kind, .namespace, .name]\"}\n"

func rootHandler(_ *shared, req *http.Request, res *response) (*response, *HttpError) {
	if req.Method != http.MethodGet {
		return nil, NewMethodNotAllowedError(req.Method)
	}
	res.body = []byte(banner)
	res.contentType = "text/plain; charset=utf-8"
	return res, nil
}
