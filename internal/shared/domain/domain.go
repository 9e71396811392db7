package domain

import (
	"context"
	"errors"
)

var ErrNotExist = errors.New("does not exist")

// TransactionRunner runs fn atomically. Repositories pick the transaction
// up from the context they receive.
type TransactionRunner interface {
	Exec(ctx context.Context, fn func(ctx context.Context) error) error
}
