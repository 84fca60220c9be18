package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/campuskit/attendance-engine/internal/models"
)

// CardBindingRepository persists the card-to-person mapping read on every scan.
type CardBindingRepository struct {
	db *sqlx.DB
}

// NewCardBindingRepository constructs the repository.
func NewCardBindingRepository(db *sqlx.DB) *CardBindingRepository {
	return &CardBindingRepository{db: db}
}

// Resolve returns the binding for a card, or nil when the card is unknown.
func (r *CardBindingRepository) Resolve(ctx context.Context, cardID string) (*models.CardBinding, error) {
	const query = `SELECT card_id, person_id, org_id, created_at FROM card_bindings WHERE card_id = $1`
	var binding models.CardBinding
	if err := r.db.GetContext(ctx, &binding, query, cardID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("resolve card binding: %w", err)
	}
	return &binding, nil
}

// Exists reports whether the card is already bound to any person.
func (r *CardBindingRepository) Exists(ctx context.Context, cardID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM card_bindings WHERE card_id = $1)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, cardID); err != nil {
		return false, fmt.Errorf("check card binding: %w", err)
	}
	return exists, nil
}

// Bind creates the binding. The card_id primary key rejects duplicates so a
// pairing that raced another registration fails rather than rebinding.
func (r *CardBindingRepository) Bind(ctx context.Context, binding *models.CardBinding) error {
	binding.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO card_bindings (card_id, person_id, org_id, created_at) VALUES ($1, $2, $3, $4)`
	if _, err := r.db.ExecContext(ctx, query, binding.CardID, binding.PersonID, binding.OrgID, binding.CreatedAt); err != nil {
		return fmt.Errorf("bind card: %w", err)
	}
	return nil
}
