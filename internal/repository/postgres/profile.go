package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/recipeforge/admission/internal/model"
)

var ErrProfileNotFound = errors.New("profile not found")

// ProfileRepository reads and debits the quota ledger row owned by the
// external identity provider.
type ProfileRepository struct {
	db *sql.DB
}

func NewProfileRepository(db *sql.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

func (r *ProfileRepository) Get(ctx context.Context, userID uuid.UUID) (*model.Profile, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT user_id, is_premium, free_generations_remaining
		FROM profiles
		WHERE user_id = $1
	`, userID)

	var p model.Profile
	if err := row.Scan(&p.UserID, &p.IsPremium, &p.FreeGenerationsRemaining); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return &p, nil
}

// DecrementFreeGenerations atomically decrements the free-generation
// counter, never going below zero, returning the row's new value.
func (r *ProfileRepository) DecrementFreeGenerations(ctx context.Context, userID uuid.UUID) (int, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE profiles
		SET free_generations_remaining = GREATEST(free_generations_remaining - 1, 0)
		WHERE user_id = $1
		RETURNING free_generations_remaining
	`, userID)

	var remaining int
	if err := row.Scan(&remaining); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrProfileNotFound
		}
		return 0, err
	}
	return remaining, nil
}

// SetPremium updates the premium flag, used by the billing status sync.
func (r *ProfileRepository) SetPremium(ctx context.Context, userID uuid.UUID, isPremium bool) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE profiles SET is_premium = $2 WHERE user_id = $1
	`, userID, isPremium)
	return err
}

// ListAll returns every profile row's user id, for the periodic billing
// status sync to walk.
func (r *ProfileRepository) ListAll(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT user_id FROM profiles`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
