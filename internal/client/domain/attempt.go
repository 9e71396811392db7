package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type LoginAttempt struct {
	ID        uuid.UUID
	EpochID   uuid.UUID
	Username  string
	Outcome   string
	Message   string
	CreatedAt time.Time
}

type AttemptRepository interface {
	Record(ctx context.Context, a LoginAttempt) error
	List(ctx context.Context, limit int) ([]LoginAttempt, error)
}
