package passport

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/shanmiteko/bili-login/internal/client/domain"
	"github.com/shanmiteko/bili-login/internal/client/transport"
)

// KeyClient fetches the RSA public key and salt for one login attempt.
// Results are never cached.
type KeyClient struct {
	Transport transport.Transport
	Logger    *zerolog.Logger
}

func (c *KeyClient) Fetch(ctx context.Context) (domain.KeyMaterial, error) {
	km := domain.KeyMaterial{}
	raw, err := c.Transport.Do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   PathKey,
	})
	if err != nil {
		return km, &domain.TransportError{Op: "key exchange", Err: err}
	}

	root, err := parse("key exchange", raw)
	if err != nil {
		return km, err
	}
	data, err := root.object("data")
	if err != nil {
		return km, err
	}
	salt, err := data.str("hash")
	if err != nil {
		return km, err
	}
	key, err := data.str("key")
	if err != nil {
		return km, err
	}

	if c.Logger != nil {
		c.Logger.Debug().Msg("fetched key material")
	}
	return domain.KeyMaterial{Salt: salt, PublicKeyPEM: key}, nil
}
