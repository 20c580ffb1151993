package postgres

import (
	"context"

	"github.com/cwrk-planet/presence-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PresenceRepository — текущий снапшот presence, одна строка на пользователя.
type PresenceRepository struct {
	db *pgxpool.Pool
}

func NewPresenceRepository(db *pgxpool.Pool) *PresenceRepository {
	return &PresenceRepository{db: db}
}

func (r *PresenceRepository) Get(ctx context.Context, userID string) (*domain.PresenceState, error) {
	var st domain.PresenceState
	query := `SELECT user_id, status, device_type, last_seen FROM presence WHERE user_id=$1`
	err := r.db.QueryRow(ctx, query, userID).
		Scan(&st.UserID, &st.Status, &st.DeviceType, &st.LastSeen)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrPresenceNotFound
		}
		return nil, err
	}
	return &st, nil
}

func (r *PresenceRepository) Upsert(ctx context.Context, st *domain.PresenceState) error {
	query := `
		INSERT INTO presence (user_id, status, device_type, last_seen)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE
		SET status=EXCLUDED.status,
		    device_type=EXCLUDED.device_type,
		    last_seen=EXCLUDED.last_seen`
	_, err := r.db.Exec(ctx, query, st.UserID, st.Status, st.DeviceType, st.LastSeen)
	return err
}
