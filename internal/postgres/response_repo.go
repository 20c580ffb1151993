package postgres

import (
	"context"

	"github.com/cwrk-planet/presence-service/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ResponseRepository — датасет "сообщение → ответ" для предсказаний.
type ResponseRepository struct {
	db *pgxpool.Pool
}

func NewResponseRepository(db *pgxpool.Pool) *ResponseRepository {
	return &ResponseRepository{db: db}
}

func (r *ResponseRepository) Save(ctx context.Context, ev *domain.ResponseEvent) error {
	query := `
		INSERT INTO response_history (user_id, message_id, received_at, responded_at, presence_status, response_seconds)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	return r.db.QueryRow(ctx, query,
		ev.UserID, ev.MessageID, ev.ReceivedAt, ev.RespondedAt, ev.PresenceStatus, ev.ResponseSeconds,
	).Scan(&ev.ID)
}

func (r *ResponseRepository) ListByUser(ctx context.Context, userID string) ([]domain.ResponseEvent, error) {
	query := `
		SELECT id, user_id, message_id, received_at, responded_at, presence_status, response_seconds
		FROM response_history
		WHERE user_id=$1
		ORDER BY received_at ASC`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.ResponseEvent
	for rows.Next() {
		var ev domain.ResponseEvent
		if err := rows.Scan(&ev.ID, &ev.UserID, &ev.MessageID, &ev.ReceivedAt, &ev.RespondedAt, &ev.PresenceStatus, &ev.ResponseSeconds); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
