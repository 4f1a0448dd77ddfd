package graphql

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/3-lines-studio/bifrost-graphql/internal/core"
)

// Credentials mirrors the fetch credentials modes. It controls whether
// Cookie and Authorization headers reach the endpoint.
type Credentials string

const (
	CredentialsSameOrigin Credentials = "same-origin"
	CredentialsInclude    Credentials = "include"
	CredentialsOmit       Credentials = "omit"
)

var ErrMissingURI = errors.New("no endpoint uri")

// IDFunc extracts the cache identity of a response object. An empty string
// means the object has no identity and is stored under a generated id.
type IDFunc func(obj map[string]any) string

func DefaultIDFromObject(obj map[string]any) string {
	switch id := obj["id"].(type) {
	case string:
		return id
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case int:
		return strconv.Itoa(id)
	case int64:
		return strconv.FormatInt(id, 10)
	}
	return ""
}

type Settings struct {
	// Name keys the browser-side registry ahead of the endpoint.
	Name        string
	URI         string
	Credentials Credentials
	// Origin is the page origin used by CredentialsSameOrigin.
	Origin string
	Header http.Header
	// ConnectToDevTools turns on per-operation debug logging.
	ConnectToDevTools bool
	IDFromObject      IDFunc
	HTTPClient        *http.Client
	InitialState      *core.InitialState
	// SSRMode clients never fetch from a render outside a prefetch pass.
	SSRMode bool
}

// EndpointSettings is the default record synthesized for a bare endpoint.
func EndpointSettings(uri string) Settings {
	return Settings{
		URI:               uri,
		Credentials:       CredentialsSameOrigin,
		ConnectToDevTools: false,
		IDFromObject:      DefaultIDFromObject,
	}
}

func (s Settings) Validate() error {
	if s.URI == "" {
		return ErrMissingURI
	}
	u, err := url.Parse(s.URI)
	if err != nil {
		return fmt.Errorf("endpoint %q: %w", s.URI, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("endpoint %q: unsupported scheme %q", s.URI, u.Scheme)
	}
	switch s.Credentials {
	case "", CredentialsSameOrigin, CredentialsInclude, CredentialsOmit:
	default:
		return fmt.Errorf("unknown credentials policy %q", s.Credentials)
	}
	return nil
}

func (s Settings) withDefaults() Settings {
	if s.Credentials == "" {
		s.Credentials = CredentialsSameOrigin
	}
	if s.IDFromObject == nil {
		s.IDFromObject = DefaultIDFromObject
	}
	if s.HTTPClient == nil {
		s.HTTPClient = http.DefaultClient
	}
	return s
}
