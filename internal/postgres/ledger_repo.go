package postgres

import (
	"context"

	"github.com/cwrk-planet/presence-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LedgerRepository — append-only журнал переходов presence.
type LedgerRepository struct {
	db *pgxpool.Pool
}

func NewLedgerRepository(db *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{db: db}
}

func (r *LedgerRepository) Append(ctx context.Context, rec *domain.PresenceRecord) error {
	query := `
		INSERT INTO presence_records (user_id, status, device_type, changed_at, dwell_seconds)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	return r.db.QueryRow(ctx, query,
		rec.UserID, rec.Status, rec.DeviceType, rec.ChangedAt, rec.DwellSeconds,
	).Scan(&rec.ID)
}

// Latest возвращает (nil, nil), если записей для пользователя ещё нет.
func (r *LedgerRepository) Latest(ctx context.Context, userID string) (*domain.PresenceRecord, error) {
	query := `
		SELECT id, user_id, status, device_type, changed_at, dwell_seconds
		FROM presence_records
		WHERE user_id=$1
		ORDER BY changed_at DESC, id DESC
		LIMIT 1`
	return r.one(ctx, query, userID)
}

// LatestByStatus — последний переход пользователя в заданный статус.
func (r *LedgerRepository) LatestByStatus(ctx context.Context, userID string, status domain.Status) (*domain.PresenceRecord, error) {
	query := `
		SELECT id, user_id, status, device_type, changed_at, dwell_seconds
		FROM presence_records
		WHERE user_id=$1 AND status=$2
		ORDER BY changed_at DESC, id DESC
		LIMIT 1`
	return r.one(ctx, query, userID, status)
}

func (r *LedgerRepository) one(ctx context.Context, query string, args ...any) (*domain.PresenceRecord, error) {
	var rec domain.PresenceRecord
	err := r.db.QueryRow(ctx, query, args...).
		Scan(&rec.ID, &rec.UserID, &rec.Status, &rec.DeviceType, &rec.ChangedAt, &rec.DwellSeconds)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

func (r *LedgerRepository) ListByUser(ctx context.Context, userID string, limit int, cursorStr string) ([]domain.PresenceRecord, string, error) {
	cur, err := DecodeCursor(cursorStr)
	if err != nil {
		return nil, "", err
	}

	query := `
		SELECT id, user_id, status, device_type, changed_at, dwell_seconds
		FROM presence_records
		WHERE user_id=$1
		  AND ($2::timestamptz IS NULL OR changed_at < $2
		       OR (changed_at = $2 AND id < $3))
		ORDER BY changed_at DESC, id DESC
		LIMIT $4`

	var changedAt any
	var id any
	if cur != nil {
		changedAt = cur.ChangedAt
		id = cur.ID
	}

	rows, err := r.db.Query(ctx, query, userID, changedAt, id, limit)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()

	var recs []domain.PresenceRecord
	for rows.Next() {
		var rec domain.PresenceRecord
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Status, &rec.DeviceType, &rec.ChangedAt, &rec.DwellSeconds); err != nil {
			return nil, "", err
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}

	var nextCursor string
	if len(recs) == limit {
		last := recs[len(recs)-1]
		cur := Cursor{ChangedAt: last.ChangedAt, ID: last.ID}
		nextCursor, _ = EncodeCursor(cur)
	}

	return recs, nextCursor, nil
}
