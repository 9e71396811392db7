package domain

import (
	"time"

	"github.com/google/uuid"
)

// ChallengeParameters identify one human-verification instance.
type ChallengeParameters struct {
	GT        string
	Challenge string
	Token     string
}

// KeyMaterial is the per-attempt RSA public key and password salt.
type KeyMaterial struct {
	Salt         string
	PublicKeyPEM string
}

// Epoch pairs one challenge fetch with an identifier that is unique even
// when the server hands out identical strings twice.
type Epoch struct {
	ID        uuid.UUID
	Params    ChallengeParameters
	FetchedAt time.Time
}

func NewEpoch(params ChallengeParameters) Epoch {
	return Epoch{
		ID:        uuid.New(),
		Params:    params,
		FetchedAt: time.Now(),
	}
}
