package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:91.0) Gecko/20100101 Firefox/91.0"

	maxBodySize = 1 << 20
)

type HTTPConfig struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	Logger    *zerolog.Logger

	// RoundTripper defaults to http.DefaultTransport.
	RoundTripper http.RoundTripper
}

type HTTPTransport struct {
	baseURL *url.URL
	client  *http.Client
	logger  *zerolog.Logger
}

func NewHTTPTransport(cfg HTTPConfig) (*HTTPTransport, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", cfg.BaseURL)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	rt := cfg.RoundTripper
	if rt == nil {
		rt = http.DefaultTransport
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	logger := cfg.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &HTTPTransport{
		baseURL: base,
		client: &http.Client{
			Transport: &userAgentTransport{Transport: rt, UserAgent: ua},
			Timeout:   cfg.Timeout,
			Jar:       jar,
		},
		logger: logger,
	}, nil
}

func (t *HTTPTransport) Do(ctx context.Context, req Request) (json.RawMessage, error) {
	target := t.baseURL.JoinPath(req.Path)
	if len(req.Query) > 0 {
		target.RawQuery = req.Query.Encode()
	}

	var body io.Reader
	if req.Form != nil {
		body = strings.NewReader(req.Form.Encode())
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if req.Form != nil {
		httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	t.logger.Debug().
		Str("method", method).
		Str("path", req.Path).
		Int("status", resp.StatusCode).
		Msg("passport response")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("response is not valid json")
	}
	return json.RawMessage(data), nil
}

// Cookies returns the cookies the passport service set for its base URL.
func (t *HTTPTransport) Cookies() []*http.Cookie {
	return t.client.Jar.Cookies(t.baseURL)
}

type userAgentTransport struct {
	Transport http.RoundTripper
	UserAgent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.UserAgent)
	return t.Transport.RoundTrip(req)
}
