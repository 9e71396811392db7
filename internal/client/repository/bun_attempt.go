package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	"github.com/uptrace/bun"

	client "github.com/shanmiteko/bili-login/internal/client/domain"
	shared "github.com/shanmiteko/bili-login/internal/shared/domain"
	"github.com/shanmiteko/bili-login/internal/shared/infra"
)

// BunAttemptRepository keeps the most recent login attempts. Credentials
// are never part of a record.
type BunAttemptRepository struct {
	db         *bun.DB
	txRunner   shared.TransactionRunner
	maxEntries int
}

func NewBunAttemptRepository(ctx context.Context, db *bun.DB, maxEntries int) (*BunAttemptRepository, error) {
	r := &BunAttemptRepository{
		db:         db,
		txRunner:   infra.NewBunTransactionRunner(db),
		maxEntries: maxEntries,
	}
	tx := infra.ExtractTx(ctx, r.db)
	_, err := tx.NewCreateTable().
		Model((*loginAttempt)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return r, fmt.Errorf("failed to create repository: %w", err)
	}
	return r, nil
}

// Record inserts the attempt and trims the journal to maxEntries in the
// same transaction.
func (r *BunAttemptRepository) Record(ctx context.Context, a client.LoginAttempt) error {
	return r.txRunner.Exec(ctx, func(ctx context.Context) error {
		tx := infra.ExtractTx(ctx, r.db)
		rec := new(loginAttempt)
		copier.Copy(rec, &a)
		_, err := tx.NewInsert().
			Model(rec).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to save attempt: %w", err)
		}

		if r.maxEntries <= 0 {
			return nil
		}
		keep := tx.NewSelect().
			Model((*loginAttempt)(nil)).
			Column("id").
			Order("created_at DESC").
			Limit(r.maxEntries)
		_, err = tx.NewDelete().
			Model((*loginAttempt)(nil)).
			Where("id NOT IN (?)", keep).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to trim attempts: %w", err)
		}
		return nil
	})
}

// List returns up to limit attempts, newest first.
func (r *BunAttemptRepository) List(ctx context.Context, limit int) ([]client.LoginAttempt, error) {
	tx := infra.ExtractTx(ctx, r.db)
	var recs []loginAttempt
	query := tx.NewSelect().
		Model(&recs).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}

	attempts := make([]client.LoginAttempt, 0, len(recs))
	for _, rec := range recs {
		a := client.LoginAttempt{}
		copier.Copy(&a, &rec)
		attempts = append(attempts, a)
	}
	return attempts, nil
}

type loginAttempt struct {
	bun.BaseModel `bun:"table:login_attempts"`

	ID        uuid.UUID `bun:",pk"`
	EpochID   uuid.UUID `bun:",notnull"`
	Username  string
	Outcome   string `bun:",notnull"`
	Message   string
	CreatedAt time.Time `bun:",notnull"`
}
