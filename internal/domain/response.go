package domain

import "time"

// ResponseEvent — историческая пара «сообщение → ответ», внешний датасет
// для предсказания времени ответа.
type ResponseEvent struct {
	ID              int64     `db:"id"`
	UserID          string    `db:"user_id"`
	MessageID       string    `db:"message_id"`
	ReceivedAt      time.Time `db:"received_at"`
	RespondedAt     time.Time `db:"responded_at"`
	PresenceStatus  Status    `db:"presence_status"`
	ResponseSeconds int64     `db:"response_seconds"`
}
