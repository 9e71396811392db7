// Package fakepassport serves the three passport login endpoints against a
// fixed set of accounts, for local development and end-to-end tests.
package fakepassport

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	shared "github.com/shanmiteko/bili-login/internal/shared/domain"
)

const (
	CodeRequestError    = -400
	CodeCaptchaError    = -105
	CodeBadCredentials  = -629
	CodeSubmitTimeout   = -662
	DefaultChallengeTTL = 2 * time.Minute
	DefaultRedirectURL  = "https://www.bilibili.com"

	saltLen = 16
)

// RejectError is a refusal the passport reports inside a normal reply.
type RejectError struct {
	Code    int
	Message string
}

func (e *RejectError) Error() string {
	return fmt.Sprintf("rejected with code %d: %s", e.Code, e.Message)
}

var (
	errBadRequest  = &RejectError{Code: CodeRequestError, Message: "请求错误"}
	errCaptcha     = &RejectError{Code: CodeCaptchaError, Message: "验证码错误"}
	errCredentials = &RejectError{Code: CodeBadCredentials, Message: "账号或者密码错误"}
	errTimeout     = &RejectError{Code: CodeSubmitTimeout, Message: "提交超时,请重新提交"}
)

type Account struct {
	Username string
	Password string
}

// LoginForm carries the submitted form fields.
type LoginForm struct {
	Username  string
	Password  string
	Keep      bool
	Token     string
	Challenge string
	Validate  string
	Seccode   string
}

type Config struct {
	Key          *rsa.PrivateKey
	Accounts     []Account
	Challenges   *BunChallengeRepository
	ChallengeTTL time.Duration
	RedirectURL  string
	Logger       *zerolog.Logger
	Rand         io.Reader
}

type Service struct {
	key          *rsa.PrivateKey
	keyPEM       string
	accounts     map[string]string
	challenges   *BunChallengeRepository
	challengeTTL time.Duration
	redirectURL  string
	logger       *zerolog.Logger
	rand         io.Reader

	mu    sync.Mutex
	salts map[string]time.Time
}

func NewService(cfg Config) (*Service, error) {
	if cfg.Key == nil {
		return nil, fmt.Errorf("missing private key")
	}
	if cfg.Challenges == nil {
		return nil, fmt.Errorf("missing challenge repository")
	}
	keyPEM, err := PublicKeyPEM(cfg.Key)
	if err != nil {
		return nil, err
	}
	s := &Service{
		key:          cfg.Key,
		keyPEM:       keyPEM,
		accounts:     make(map[string]string, len(cfg.Accounts)),
		challenges:   cfg.Challenges,
		challengeTTL: cfg.ChallengeTTL,
		redirectURL:  cfg.RedirectURL,
		logger:       cfg.Logger,
		rand:         cfg.Rand,
		salts:        make(map[string]time.Time),
	}
	for _, a := range cfg.Accounts {
		s.accounts[a.Username] = a.Password
	}
	if s.challengeTTL == 0 {
		s.challengeTTL = DefaultChallengeTTL
	}
	if s.redirectURL == "" {
		s.redirectURL = DefaultRedirectURL
	}
	if s.logger == nil {
		nop := zerolog.Nop()
		s.logger = &nop
	}
	if s.rand == nil {
		s.rand = rand.Reader
	}
	return s, nil
}

func (s *Service) IssueChallenge(ctx context.Context) (IssuedChallenge, error) {
	chal := IssuedChallenge{}
	gt, err := s.randomHex(16)
	if err != nil {
		return chal, err
	}
	challenge, err := s.randomHex(16)
	if err != nil {
		return chal, err
	}
	chal = IssuedChallenge{
		Token:     strings.ReplaceAll(uuid.NewString(), "-", ""),
		GT:        gt,
		Challenge: challenge,
		CreatedAt: time.Now(),
	}
	if err := s.challenges.Save(ctx, chal); err != nil {
		return chal, err
	}
	s.logger.Debug().
		Str("token", chal.Token).
		Msg("issued challenge")
	return chal, nil
}

// IssueKey returns a fresh salt and the public key. A salt is valid for one
// login within the challenge lifetime.
func (s *Service) IssueKey() (salt, keyPEM string, err error) {
	salt, err = s.randomHex(saltLen / 2)
	if err != nil {
		return "", "", err
	}
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	for k, at := range s.salts {
		if now.Sub(at) > s.challengeTTL {
			delete(s.salts, k)
		}
	}
	s.salts[salt] = now
	return salt, s.keyPEM, nil
}

// Login checks a submitted form and returns the redirect URL on success.
// Refusals are *RejectError.
func (s *Service) Login(ctx context.Context, form LoginForm) (string, error) {
	if form.Username == "" || form.Password == "" || form.Token == "" || form.Challenge == "" {
		return "", errBadRequest
	}

	chal, err := s.challenges.Consume(ctx, form.Token)
	if errors.Is(err, shared.ErrNotExist) {
		return "", errCaptcha
	} else if err != nil {
		return "", err
	}
	if time.Since(chal.CreatedAt) > s.challengeTTL {
		return "", errCaptcha
	}
	if chal.Challenge != form.Challenge || form.Validate == "" || form.Seccode == "" {
		return "", errCaptcha
	}

	plain, err := s.decrypt(form.Password)
	if err != nil {
		return "", errCredentials
	}
	if len(plain) < saltLen || !s.consumeSalt(plain[:saltLen]) {
		return "", errTimeout
	}

	want, ok := s.accounts[form.Username]
	if !ok || subtle.ConstantTimeCompare([]byte(want), []byte(plain[saltLen:])) == 0 {
		return "", errCredentials
	}

	s.logger.Info().
		Str("username", form.Username).
		Bool("keep", form.Keep).
		Msg("accepted login")

	q := url.Values{}
	q.Set("DedeUserID", form.Username)
	q.Set("gourl", s.redirectURL)
	return s.redirectURL + "/crossDomain?" + q.Encode(), nil
}

func (s *Service) decrypt(encoded string) (string, error) {
	ct, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("failed to decode password: %w", err)
	}
	pt, err := rsa.DecryptPKCS1v15(nil, s.key, ct)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt password: %w", err)
	}
	return string(pt), nil
}

func (s *Service) consumeSalt(salt string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	at, ok := s.salts[salt]
	if !ok {
		return false
	}
	delete(s.salts, salt)
	return time.Since(at) <= s.challengeTTL
}

func (s *Service) randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(s.rand, b); err != nil {
		return "", fmt.Errorf("failed to generate random value: %w", err)
	}
	return hex.EncodeToString(b), nil
}
