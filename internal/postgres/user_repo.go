package postgres

import (
	"context"

	"github.com/cwrk-planet/presence-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepository — read-only доступ к public.users (таблицей владеет auth-service).
// Отсюда берётся только engagement_score для обогащения presence-событий.
type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) EngagementScore(ctx context.Context, userID string) (float64, error) {
	var score float64
	err := r.db.QueryRow(ctx, `SELECT engagement_score FROM public.users WHERE id=$1`, userID).Scan(&score)
	if err != nil {
		if err == pgx.ErrNoRows {
			return 0, domain.ErrUserNotFound
		}
		return 0, err
	}
	return score, nil
}
