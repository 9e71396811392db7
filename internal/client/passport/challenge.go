package passport

import (
	"context"
	"net/http"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/shanmiteko/bili-login/internal/client/domain"
	"github.com/shanmiteko/bili-login/internal/client/transport"
)

type ChallengeClient struct {
	Transport transport.Transport
	Logger    *zerolog.Logger
}

func (c *ChallengeClient) Fetch(ctx context.Context) (domain.ChallengeParameters, error) {
	params := domain.ChallengeParameters{}
	raw, err := c.Transport.Do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   PathCaptcha,
		Query:  url.Values{"source": {CaptchaSource}},
	})
	if err != nil {
		return params, &domain.TransportError{Op: "challenge fetch", Err: err}
	}

	root, err := parse("challenge fetch", raw)
	if err != nil {
		return params, err
	}
	data, err := root.object("data")
	if err != nil {
		return params, err
	}
	geetest, err := data.object("geetest")
	if err != nil {
		return params, err
	}
	if params.GT, err = geetest.str("gt"); err != nil {
		return domain.ChallengeParameters{}, err
	}
	if params.Challenge, err = geetest.str("challenge"); err != nil {
		return domain.ChallengeParameters{}, err
	}
	if params.Token, err = data.str("token"); err != nil {
		return domain.ChallengeParameters{}, err
	}

	if c.Logger != nil {
		c.Logger.Debug().
			Str("gt", params.GT).
			Str("challenge", params.Challenge).
			Msg("fetched challenge")
	}
	return params, nil
}
