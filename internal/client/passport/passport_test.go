package passport_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shanmiteko/bili-login/internal/client/domain"
	"github.com/shanmiteko/bili-login/internal/client/passport"
	"github.com/shanmiteko/bili-login/internal/client/transport"
)

func staticTransport(t *testing.T, body string, check func(transport.Request)) transport.Func {
	t.Helper()
	return func(ctx context.Context, req transport.Request) (json.RawMessage, error) {
		if check != nil {
			check(req)
		}
		return json.RawMessage(body), nil
	}
}

func TestChallengeFetch(t *testing.T) {
	body := `{"code":0,"data":{"geetest":{"gt":"g1","challenge":"c1"},"token":"t1","type":"geetest"}}`
	c := &passport.ChallengeClient{
		Transport: staticTransport(t, body, func(req transport.Request) {
			assert.Equal(t, http.MethodGet, req.Method)
			assert.Equal(t, passport.PathCaptcha, req.Path)
			assert.Equal(t, "main_web", req.Query.Get("source"))
			assert.Nil(t, req.Form)
		}),
	}

	params, err := c.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.ChallengeParameters{GT: "g1", Challenge: "c1", Token: "t1"}, params)
}

func TestChallengeFetchMissingKeys(t *testing.T) {
	for _, tt := range []struct {
		body string
		path string
	}{
		{body: `{}`, path: "data"},
		{body: `{"data":{"token":"t1"}}`, path: "data.geetest"},
		{body: `{"data":{"geetest":{"challenge":"c1"},"token":"t1"}}`, path: "data.geetest.gt"},
		{body: `{"data":{"geetest":{"gt":"g1"},"token":"t1"}}`, path: "data.geetest.challenge"},
		{body: `{"data":{"geetest":{"gt":"g1","challenge":"c1"}}}`, path: "data.token"},
		{body: `{"data":{"geetest":{"gt":"g1","challenge":"c1"},"token":null}}`, path: "data.token"},
		{body: `{"data":{"geetest":{"gt":7,"challenge":"c1"},"token":"t1"}}`, path: "data.geetest.gt"},
		{body: `{"data":{"geetest":{"challenge":7},"token":"t1"}}`, path: "data.geetest.gt"},
		{body: `{"data":{"geetest":{"gt":"g1"},"token":7}}`, path: "data.geetest.challenge"},
		{body: `{"data":{"geetest":{"challenge":"c1","gt":"g1"},"token":7}}`, path: "data.token"},
		{body: `{"data":{"geetest":5,"token":"t1"}}`, path: "data.geetest"},
		{body: `{"data":"x"}`, path: "data"},
		{body: `[]`, path: "data"},
		{body: `"data"`, path: "data"},
		{body: `null`, path: "data"},
	} {
		t.Run(tt.path, func(t *testing.T) {
			c := &passport.ChallengeClient{Transport: staticTransport(t, tt.body, nil)}
			_, err := c.Fetch(context.Background())

			var malformed *domain.MalformedResponseError
			require.True(t, errors.As(err, &malformed), "got %v", err)
			assert.Equal(t, tt.path, malformed.Path)
		})
	}
}

func TestChallengeFetchTransportError(t *testing.T) {
	cause := errors.New("connection refused")
	c := &passport.ChallengeClient{
		Transport: transport.Func(func(ctx context.Context, req transport.Request) (json.RawMessage, error) {
			return nil, cause
		}),
	}
	_, err := c.Fetch(context.Background())

	var transportErr *domain.TransportError
	require.True(t, errors.As(err, &transportErr))
	assert.ErrorIs(t, err, cause)
}

func TestKeyFetch(t *testing.T) {
	c := &passport.KeyClient{
		Transport: staticTransport(t, `{"code":0,"data":{"hash":"h1","key":"pem"}}`, func(req transport.Request) {
			assert.Equal(t, http.MethodGet, req.Method)
			assert.Equal(t, passport.PathKey, req.Path)
			assert.Empty(t, req.Query)
		}),
	}

	km, err := c.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.KeyMaterial{Salt: "h1", PublicKeyPEM: "pem"}, km)
}

func TestKeyFetchMissingKeys(t *testing.T) {
	for _, tt := range []struct {
		body string
		path string
	}{
		{body: `{"code":0}`, path: "data"},
		{body: `{"data":{"key":"pem"}}`, path: "data.hash"},
		{body: `{"data":{"hash":"h1"}}`, path: "data.key"},
		{body: `{"data":{"key":7,"hash":1}}`, path: "data.hash"},
		{body: `[1,2]`, path: "data"},
	} {
		t.Run(tt.path, func(t *testing.T) {
			c := &passport.KeyClient{Transport: staticTransport(t, tt.body, nil)}
			_, err := c.Fetch(context.Background())

			var malformed *domain.MalformedResponseError
			require.True(t, errors.As(err, &malformed), "got %v", err)
			assert.Equal(t, tt.path, malformed.Path)
		})
	}
}

func TestParseLoginResponse(t *testing.T) {
	res, err := passport.ParseLoginResponse(json.RawMessage(`{"code":0,"data":{"url":"https://x"}}`))
	require.NoError(t, err)
	assert.Equal(t, domain.Success("https://x"), res)
	assert.True(t, res.OK())

	res, err = passport.ParseLoginResponse(json.RawMessage(`{"code":-1,"message":"密码错误"}`))
	require.NoError(t, err)
	assert.Equal(t, domain.Rejected("密码错误"), res)
	assert.False(t, res.OK())
}

func TestParseLoginResponseMalformed(t *testing.T) {
	for _, tt := range []struct {
		body string
		path string
	}{
		{body: `{"message":"ok"}`, path: "code"},
		{body: `{"code":0}`, path: "data"},
		{body: `{"code":0,"data":{}}`, path: "data.url"},
		{body: `{"code":-105}`, path: "message"},
		{body: `{"code":"0"}`, path: "code"},
		{body: `{"code":0.5}`, path: "code"},
		{body: `{"code":-1,"message":7}`, path: "message"},
		{body: `{"code":0,"message":7,"data":{"url":1}}`, path: "data.url"},
		{body: `[]`, path: "code"},
	} {
		t.Run(tt.path, func(t *testing.T) {
			_, err := passport.ParseLoginResponse(json.RawMessage(tt.body))

			var malformed *domain.MalformedResponseError
			require.True(t, errors.As(err, &malformed), "got %v", err)
			assert.Equal(t, tt.path, malformed.Path)
		})
	}
}
