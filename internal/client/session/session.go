package session

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/shanmiteko/bili-login/internal/client/domain"
	"github.com/shanmiteko/bili-login/internal/client/passport"
	"github.com/shanmiteko/bili-login/internal/client/transport"
)

type State int

const (
	StateFresh State = iota
	StateCredentialsSet
	StateVerificationSet
	StateSubmitted
)

func (s State) String() string {
	switch s {
	case StateFresh:
		return "fresh"
	case StateCredentialsSet:
		return "credentials-set"
	case StateVerificationSet:
		return "verification-set"
	case StateSubmitted:
		return "submitted"
	default:
		return "unknown"
	}
}

var requestValidator = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return fld.Tag.Get("form")
	})
	return v
}

type Options struct {
	Transport transport.Transport
	Keep      bool
	Logger    *zerolog.Logger
}

// Session holds the fields of one login attempt. Setters fail once the
// session has been submitted.
type Session struct {
	mu        sync.Mutex
	transport transport.Transport
	logger    *zerolog.Logger

	req       domain.LoginRequest
	epochSet  bool
	submitted bool
	result    *domain.LoginResult
}

func New(opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Session{
		transport: opts.Transport,
		logger:    logger,
		req:       domain.LoginRequest{Keep: opts.Keep},
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state()
}

func (s *Session) state() State {
	creds := s.req.Username != "" && s.req.EncryptedPassword != ""
	proof := s.req.Validate != "" && s.req.Seccode != ""
	switch {
	case s.submitted:
		return StateSubmitted
	case creds && proof:
		return StateVerificationSet
	case creds:
		return StateCredentialsSet
	default:
		return StateFresh
	}
}

func (s *Session) SetUsername(username string) error {
	return s.update(func(r *domain.LoginRequest) {
		r.Username = username
	})
}

func (s *Session) SetEncryptedPassword(cipher string) error {
	return s.update(func(r *domain.LoginRequest) {
		r.EncryptedPassword = cipher
	})
}

// SetCredentials applies username and ciphertext in one step.
func (s *Session) SetCredentials(username, cipher string) error {
	return s.update(func(r *domain.LoginRequest) {
		r.Username = username
		r.EncryptedPassword = cipher
	})
}

func (s *Session) SetVerificationProof(validate, seccode string) error {
	return s.update(func(r *domain.LoginRequest) {
		r.Validate = validate
		r.Seccode = seccode
	})
}

// SetChallengeEpoch binds the session to one challenge fetch. A session
// belongs to exactly one epoch.
func (s *Session) SetChallengeEpoch(token, challenge string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitted {
		return domain.ErrSessionSubmitted
	}
	if s.epochSet {
		return domain.ErrEpochAlreadySet
	}
	s.req.Token = token
	s.req.Challenge = challenge
	s.epochSet = true
	return nil
}

func (s *Session) update(fn func(r *domain.LoginRequest)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitted {
		return domain.ErrSessionSubmitted
	}
	fn(&s.req)
	return nil
}

// Snapshot returns a copy of the request as it would be submitted.
func (s *Session) Snapshot() domain.LoginRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.req
}

func (s *Session) Result() (domain.LoginResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return domain.LoginResult{}, false
	}
	return *s.result, true
}

// Submit posts the login form. Incomplete sessions are refused before any
// network call. A session can be submitted once, whatever the outcome.
func (s *Session) Submit(ctx context.Context) (domain.LoginResult, error) {
	form, err := s.Prepare()
	if err != nil {
		return domain.LoginResult{}, err
	}
	return s.Send(ctx, form)
}

// Send posts a form returned by Prepare and stores the result.
func (s *Session) Send(ctx context.Context, form url.Values) (domain.LoginResult, error) {
	raw, err := s.transport.Do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   passport.PathLogin,
		Form:   form,
	})
	if err != nil {
		return domain.LoginResult{}, &domain.TransportError{Op: "login", Err: err}
	}

	res, err := passport.ParseLoginResponse(raw)
	if err != nil {
		return domain.LoginResult{}, err
	}

	s.mu.Lock()
	s.result = &res
	s.mu.Unlock()

	s.logger.Info().
		Str("username", form.Get("username")).
		Stringer("outcome", res.Outcome).
		Msg("login submitted")

	return res, nil
}

// Prepare checks the session is complete and marks it submitted, returning
// the form to post. It makes no network call.
func (s *Session) Prepare() (url.Values, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitted {
		return nil, domain.ErrSessionSubmitted
	}
	if err := requestValidator.Struct(s.req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return nil, &domain.IncompleteSessionError{Field: verrs[0].Field()}
		}
		return nil, err
	}
	s.submitted = true

	return url.Values{
		"username":  {s.req.Username},
		"password":  {s.req.EncryptedPassword},
		"keep":      {strconv.FormatBool(s.req.Keep)},
		"token":     {s.req.Token},
		"challenge": {s.req.Challenge},
		"validate":  {s.req.Validate},
		"seccode":   {s.req.Seccode},
	}, nil
}
