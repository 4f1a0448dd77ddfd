package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/3-lines-studio/bifrost-graphql/internal/graphql")

// Error is one entry of a GraphQL response "errors" array.
type Error struct {
	Message string `json:"message"`
	Path    []any  `json:"path,omitempty"`
}

// Errors is returned when the endpoint answered with GraphQL errors.
type Errors []Error

func (e Errors) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Message
	}
	return "graphql: " + strings.Join(msgs, "; ")
}

// FetchError is a transport level failure talking to the endpoint.
type FetchError struct {
	URI        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URI, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URI, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

type request struct {
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables,omitempty"`
	OperationName string         `json:"operationName,omitempty"`
}

type response struct {
	Data   map[string]any `json:"data"`
	Errors Errors         `json:"errors"`
}

// NetworkInterface posts operations to a single endpoint.
type NetworkInterface struct {
	uri         string
	credentials Credentials
	origin      string
	header      http.Header
	client      *http.Client
}

func NewNetworkInterface(uri string, credentials Credentials, origin string, header http.Header, client *http.Client) *NetworkInterface {
	if client == nil {
		client = http.DefaultClient
	}
	return &NetworkInterface{
		uri:         uri,
		credentials: credentials,
		origin:      origin,
		header:      header.Clone(),
		client:      client,
	}
}

func (n *NetworkInterface) URI() string {
	return n.uri
}

func (n *NetworkInterface) Fetch(ctx context.Context, op *Operation, vars map[string]any) (map[string]any, error) {
	ctx, span := tracer.Start(ctx, "graphql.fetch", trace.WithAttributes(
		attribute.String("graphql.operation.name", op.Name),
		attribute.String("graphql.operation.type", string(op.Kind)),
	))
	defer span.End()

	data, err := n.fetch(ctx, op, vars)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return data, err
}

func (n *NetworkInterface) fetch(ctx context.Context, op *Operation, vars map[string]any) (map[string]any, error) {
	body, err := json.Marshal(request{
		Query:         op.Source,
		Variables:     vars,
		OperationName: op.Name,
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.uri, bytes.NewReader(body))
	if err != nil {
		return nil, &FetchError{URI: n.uri, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	n.applyHeaders(req)

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, &FetchError{URI: n.uri, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &FetchError{
			URI:        n.uri,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%s", strings.TrimSpace(string(snippet))),
		}
	}

	var result response
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &FetchError{URI: n.uri, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}

	if len(result.Errors) > 0 {
		return result.Data, result.Errors
	}
	return result.Data, nil
}

func (n *NetworkInterface) applyHeaders(req *http.Request) {
	sendCredentials := n.sendsCredentials(req.URL)
	for k, values := range n.header {
		if isCredentialHeader(k) && !sendCredentials {
			continue
		}
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}
}

func (n *NetworkInterface) sendsCredentials(target *url.URL) bool {
	switch n.credentials {
	case CredentialsInclude:
		return true
	case CredentialsOmit:
		return false
	}
	if n.origin == "" {
		return false
	}
	origin, err := url.Parse(n.origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(origin.Scheme, target.Scheme) && strings.EqualFold(origin.Host, target.Host)
}

func isCredentialHeader(name string) bool {
	switch http.CanonicalHeaderKey(name) {
	case "Cookie", "Authorization":
		return true
	}
	return false
}
