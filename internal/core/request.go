package core

import (
	"net/http"
	"net/url"
	"strings"
)

// RequestContext is what the page lifecycle sees of an incoming request.
// It is only ever handed to the server preparation phase.
type RequestContext struct {
	Query    url.Values
	Pathname string
	Request  *http.Request
}

func NewRequestContext(req *http.Request) *RequestContext {
	if req == nil {
		return &RequestContext{Query: url.Values{}, Pathname: "/"}
	}
	return &RequestContext{
		Query:    req.URL.Query(),
		Pathname: NormalizePath(req.URL.Path),
		Request:  req,
	}
}

// URLProps is the "url" prop handed to pages so server renders see the
// path and query parameters.
func (rc *RequestContext) URLProps() map[string]any {
	if rc == nil {
		return map[string]any{"query": map[string][]string{}, "pathname": "/"}
	}
	query := map[string][]string{}
	for k, v := range rc.Query {
		query[k] = v
	}
	return map[string]any{
		"query":    query,
		"pathname": rc.Pathname,
	}
}

// Origin returns scheme://host of the request, or "" without a request.
func (rc *RequestContext) Origin() string {
	if rc == nil || rc.Request == nil {
		return ""
	}
	scheme := "http"
	if rc.Request.TLS != nil {
		scheme = "https"
	}
	if proto := rc.Request.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + rc.Request.Host
}

// NormalizePath gives paths a leading slash and drops a trailing one.
func NormalizePath(path string) string {
	if path == "" || path[0] != '/' {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	return path
}
