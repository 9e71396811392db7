package fakepassport

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jinzhu/copier"
	"github.com/uptrace/bun"

	shared "github.com/shanmiteko/bili-login/internal/shared/domain"
	"github.com/shanmiteko/bili-login/internal/shared/infra"
)

// IssuedChallenge is one challenge handed out by the captcha endpoint.
type IssuedChallenge struct {
	Token     string
	GT        string
	Challenge string
	CreatedAt time.Time
}

type BunChallengeRepository struct {
	db       *bun.DB
	txRunner shared.TransactionRunner
}

func NewBunChallengeRepository(ctx context.Context, db *bun.DB) (*BunChallengeRepository, error) {
	r := &BunChallengeRepository{
		db:       db,
		txRunner: infra.NewBunTransactionRunner(db),
	}
	tx := infra.ExtractTx(ctx, r.db)
	_, err := tx.NewCreateTable().
		Model((*issuedChallenge)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return r, fmt.Errorf("failed to create repository: %w", err)
	}
	return r, nil
}

func (r *BunChallengeRepository) Save(ctx context.Context, chal IssuedChallenge) error {
	tx := infra.ExtractTx(ctx, r.db)
	c := new(issuedChallenge)
	copier.Copy(c, &chal)
	_, err := tx.NewInsert().
		Model(c).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to save challenge: %w", err)
	}
	return nil
}

// Consume returns the challenge issued under token and deletes it, so a
// token can be used for one login only.
func (r *BunChallengeRepository) Consume(ctx context.Context, token string) (IssuedChallenge, error) {
	chal := IssuedChallenge{}
	err := r.txRunner.Exec(ctx, func(ctx context.Context) error {
		tx := infra.ExtractTx(ctx, r.db)
		c := new(issuedChallenge)
		err := tx.NewSelect().
			Model(c).
			Where("token = ?", token).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				err = shared.ErrNotExist
			}
			return fmt.Errorf("failed to get challenge: %w", err)
		}
		_, err = tx.NewDelete().
			Model(c).
			WherePK().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to delete challenge: %w", err)
		}
		copier.Copy(&chal, c)
		return nil
	})
	return chal, err
}

type issuedChallenge struct {
	bun.BaseModel `bun:"table:issued_challenges"`

	Token     string `bun:",pk"`
	GT        string `bun:",notnull"`
	Challenge string `bun:",notnull"`
	CreatedAt time.Time
}
