package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shanmiteko/bili-login/internal/client/domain"
)

const (
	DefaultAttemptLimit = 20
	MaxAttemptLimit     = 200
)

// LoginFlow is the part of *client.Client the local surface drives.
type LoginFlow interface {
	Reset(ctx context.Context) error
	BeginLogin(ctx context.Context, username, password string) (domain.ChallengeParameters, error)
	CompleteLogin(ctx context.Context, validate, seccode string) (domain.LoginResult, error)
	Epoch() (domain.Epoch, bool)
}

type FlowService struct {
	Flow    LoginFlow
	Journal domain.AttemptRepository
}

func (s *FlowService) StartLogin(ctx context.Context, username, password string) (domain.ChallengeParameters, error) {
	return s.Flow.BeginLogin(ctx, username, password)
}

func (s *FlowService) SubmitVerification(ctx context.Context, validate, seccode string) (domain.LoginResult, error) {
	if validate == "" || seccode == "" {
		return domain.LoginResult{}, ErrEmptyProof
	}
	return s.Flow.CompleteLogin(ctx, validate, seccode)
}

// ResetFlow starts a new epoch and returns its challenge.
func (s *FlowService) ResetFlow(ctx context.Context) (domain.ChallengeParameters, error) {
	if err := s.Flow.Reset(ctx); err != nil {
		return domain.ChallengeParameters{}, err
	}
	epoch, ok := s.Flow.Epoch()
	if !ok {
		return domain.ChallengeParameters{}, domain.ErrNotInitialized
	}
	return epoch.Params, nil
}

func (s *FlowService) Attempts(ctx context.Context, limit int) ([]domain.LoginAttempt, error) {
	if limit < 0 {
		return nil, fmt.Errorf("%w: negative limit %d", ErrInvalidArgument, limit)
	}
	if limit == 0 {
		limit = DefaultAttemptLimit
	}
	limit = min(limit, MaxAttemptLimit)
	if s.Journal == nil {
		return []domain.LoginAttempt{}, nil
	}
	return s.Journal.List(ctx, limit)
}

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrEmptyProof      = fmt.Errorf("%w: validate and seccode must not be empty", ErrInvalidArgument)
)

type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindInvalidArgument
	KindUnavailable
	KindMalformed
	KindPrecondition
)

// Classify sorts a flow error into the handful of kinds the handlers map
// onto their status codes.
func Classify(err error) ErrorKind {
	var (
		transportErr  *domain.TransportError
		malformedErr  *domain.MalformedResponseError
		cryptoErr     *domain.CryptoError
		incompleteErr *domain.IncompleteSessionError
	)
	switch {
	case errors.Is(err, domain.ErrEmptyCredentials), errors.Is(err, ErrInvalidArgument):
		return KindInvalidArgument
	case errors.As(err, &transportErr):
		return KindUnavailable
	case errors.As(err, &malformedErr):
		return KindMalformed
	case errors.As(err, &cryptoErr),
		errors.As(err, &incompleteErr),
		errors.Is(err, domain.ErrStaleEpoch),
		errors.Is(err, domain.ErrSessionSubmitted),
		errors.Is(err, domain.ErrEpochAlreadySet),
		errors.Is(err, domain.ErrNotInitialized):
		return KindPrecondition
	default:
		return KindInternal
	}
}
