package transport

import (
	"context"
	"encoding/json"
	"net/url"
)

// Request describes one call against the passport service. Path is relative
// to the transport's base URL.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Form   url.Values
}

// Transport sends a request and returns the JSON body. Retries, timeouts and
// TLS are the implementation's business.
type Transport interface {
	Do(ctx context.Context, req Request) (json.RawMessage, error)
}

// Func adapts a function to Transport.
type Func func(ctx context.Context, req Request) (json.RawMessage, error)

func (f Func) Do(ctx context.Context, req Request) (json.RawMessage, error) {
	return f(ctx, req)
}
