package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotInitialized   = errors.New("login flow not initialized")
	ErrStaleEpoch       = errors.New("challenge epoch changed, reset and start again")
	ErrEpochAlreadySet  = errors.New("challenge epoch already set for this session")
	ErrSessionSubmitted = errors.New("session already submitted, reset to start a new attempt")
	ErrEmptyCredentials = errors.New("username and password are required")
)

// TransportError reports a failed remote call. It is never retried here.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failure during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// MalformedResponseError names the first missing key on the expected path.
type MalformedResponseError struct {
	Path string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed response: missing %q", e.Path)
}

// CryptoError is fatal for the current epoch; the key material must not be
// reused.
type CryptoError struct {
	Err error
}

func (e *CryptoError) Error() string {
	return fmt.Sprintf("credential encryption failed: %v", e.Err)
}

func (e *CryptoError) Unwrap() error {
	return e.Err
}

type IncompleteSessionError struct {
	Field string
}

func (e *IncompleteSessionError) Error() string {
	return fmt.Sprintf("session incomplete: %s not set", e.Field)
}
