package domain

import (
	"fmt"
)

// LoginRequest mirrors the login form. EncryptedPassword only ever holds
// ciphertext.
type LoginRequest struct {
	Username          string `form:"username" validate:"required"`
	EncryptedPassword string `form:"password" validate:"required"`
	Keep              bool   `form:"keep"`
	Token             string `form:"token" validate:"required"`
	Challenge         string `form:"challenge" validate:"required"`
	Validate          string `form:"validate" validate:"required"`
	Seccode           string `form:"seccode" validate:"required"`
}

// String never prints the ciphertext or the verification proof.
func (r LoginRequest) String() string {
	return fmt.Sprintf(
		"LoginRequest{Username:%q Keep:%t Token:%q Challenge:%q PasswordSet:%t ProofSet:%t}",
		r.Username, r.Keep, r.Token, r.Challenge,
		r.EncryptedPassword != "", r.Validate != "" && r.Seccode != "",
	)
}

type Outcome int

const (
	OutcomeSuccess Outcome = iota + 1
	OutcomeRejected
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// LoginResult is either a success carrying the redirect target or a
// rejection carrying the server message.
type LoginResult struct {
	Outcome     Outcome
	RedirectURL string
	Message     string
}

func Success(url string) LoginResult {
	return LoginResult{Outcome: OutcomeSuccess, RedirectURL: url}
}

func Rejected(message string) LoginResult {
	return LoginResult{Outcome: OutcomeRejected, Message: message}
}

func (r LoginResult) OK() bool {
	return r.Outcome == OutcomeSuccess
}
