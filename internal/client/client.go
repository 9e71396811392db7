package client

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/shanmiteko/bili-login/internal/client/crypto"
	"github.com/shanmiteko/bili-login/internal/client/domain"
	"github.com/shanmiteko/bili-login/internal/client/passport"
	"github.com/shanmiteko/bili-login/internal/client/session"
	"github.com/shanmiteko/bili-login/internal/client/transport"
)

type Options struct {
	Transport transport.Transport
	Keep      bool
	Attempts  domain.AttemptRepository
	Logger    *zerolog.Logger

	// Rand feeds the PKCS#1 padding, crypto/rand when nil.
	Rand io.Reader
}

// Client owns the current login session and the challenge epoch it was
// built from. The pair is only ever replaced together.
type Client struct {
	challenges *passport.ChallengeClient
	keys       *passport.KeyClient
	transport  transport.Transport
	keep       bool
	attempts   domain.AttemptRepository
	logger     *zerolog.Logger
	rand       io.Reader

	mu      sync.Mutex
	epoch   domain.Epoch
	session *session.Session
}

// New builds a client and fetches the first challenge. A failed bootstrap is
// returned to the caller, who decides whether to retry.
func New(ctx context.Context, opts Options) (*Client, error) {
	c := newClient(opts)
	if err := c.Reset(ctx); err != nil {
		return nil, fmt.Errorf("failed to bootstrap login flow: %w", err)
	}
	return c, nil
}

func newClient(opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	rnd := opts.Rand
	if rnd == nil {
		rnd = rand.Reader
	}
	return &Client{
		challenges: &passport.ChallengeClient{Transport: opts.Transport, Logger: logger},
		keys:       &passport.KeyClient{Transport: opts.Transport, Logger: logger},
		transport:  opts.Transport,
		keep:       opts.Keep,
		attempts:   opts.Attempts,
		logger:     logger,
		rand:       rnd,
	}
}

// Reset fetches a new challenge and swaps in a fresh session bound to it.
func (c *Client) Reset(ctx context.Context) error {
	params, err := c.challenges.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch challenge: %w", err)
	}

	epoch := domain.NewEpoch(params)
	sess := session.New(session.Options{
		Transport: c.transport,
		Keep:      c.keep,
		Logger:    c.logger,
	})
	if err := sess.SetChallengeEpoch(params.Token, params.Challenge); err != nil {
		return err
	}

	c.mu.Lock()
	previous := c.epoch.ID
	c.epoch = epoch
	c.session = sess
	c.mu.Unlock()

	c.logger.Info().
		Str("epoch", epoch.ID.String()).
		Str("previous", previous.String()).
		Msg("challenge epoch replaced")
	return nil
}

// BeginLogin encrypts salt+password with fresh key material and stores the
// credentials on the current session. The write is refused with
// ErrStaleEpoch if a Reset replaced the session while the key was being
// fetched.
func (c *Client) BeginLogin(ctx context.Context, username, password string) (domain.ChallengeParameters, error) {
	if username == "" || password == "" {
		return domain.ChallengeParameters{}, domain.ErrEmptyCredentials
	}

	epoch, sess, err := c.current()
	if err != nil {
		return domain.ChallengeParameters{}, err
	}
	if sess.State() == session.StateSubmitted {
		return domain.ChallengeParameters{}, domain.ErrSessionSubmitted
	}

	km, err := c.keys.Fetch(ctx)
	if err != nil {
		return domain.ChallengeParameters{}, fmt.Errorf("failed to fetch key material: %w", err)
	}
	cipher, err := crypto.EncryptPasswordWithRand(c.rand, km.PublicKeyPEM, km.Salt+password)
	if err != nil {
		return domain.ChallengeParameters{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch.ID != epoch.ID {
		c.logger.Warn().
			Str("epoch", epoch.ID.String()).
			Str("current", c.epoch.ID.String()).
			Msg("discarding credentials for replaced epoch")
		return domain.ChallengeParameters{}, domain.ErrStaleEpoch
	}
	if err := c.session.SetCredentials(username, cipher); err != nil {
		return domain.ChallengeParameters{}, err
	}

	c.logger.Info().
		Str("epoch", epoch.ID.String()).
		Str("username", username).
		Msg("credentials stored")
	return epoch.Params, nil
}

// CompleteLogin stores the verification proof and submits the session. The
// session is marked submitted under the lock, so a concurrent Reset either
// replaces it before this call sees it or after its form is committed. Only
// the POST runs unlocked.
func (c *Client) CompleteLogin(ctx context.Context, validate, seccode string) (domain.LoginResult, error) {
	c.mu.Lock()
	if c.session == nil {
		c.mu.Unlock()
		return domain.LoginResult{}, domain.ErrNotInitialized
	}
	epoch, sess := c.epoch, c.session
	if err := sess.SetVerificationProof(validate, seccode); err != nil {
		c.mu.Unlock()
		return domain.LoginResult{}, err
	}
	form, err := sess.Prepare()
	c.mu.Unlock()
	if err != nil {
		return domain.LoginResult{}, fmt.Errorf("failed to submit login: %w", err)
	}

	res, err := sess.Send(ctx, form)
	c.record(ctx, epoch, form.Get("username"), res, err)
	if err != nil {
		return domain.LoginResult{}, fmt.Errorf("failed to submit login: %w", err)
	}
	return res, nil
}

// Epoch reports the current challenge epoch.
func (c *Client) Epoch() (domain.Epoch, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch, c.session != nil
}

func (c *Client) State() session.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return session.StateFresh
	}
	return c.session.State()
}

func (c *Client) current() (domain.Epoch, *session.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return domain.Epoch{}, nil, domain.ErrNotInitialized
	}
	return c.epoch, c.session, nil
}

func (c *Client) record(ctx context.Context, epoch domain.Epoch, username string, res domain.LoginResult, err error) {
	if c.attempts == nil {
		return
	}
	a := domain.LoginAttempt{
		ID:        uuid.New(),
		EpochID:   epoch.ID,
		Username:  username,
		CreatedAt: time.Now(),
	}
	var (
		transportErr *domain.TransportError
		malformedErr *domain.MalformedResponseError
	)
	switch {
	case err == nil:
		a.Outcome = res.Outcome.String()
		a.Message = res.Message
	case errors.As(err, &transportErr), errors.As(err, &malformedErr):
		a.Outcome = "error"
		a.Message = err.Error()
	default:
		return
	}

	if err := c.attempts.Record(ctx, a); err != nil {
		c.logger.Warn().
			Err(err).
			Msg("failed to record login attempt")
	}
}
