package domain

import "time"

type Status string

const (
	StatusOnline  Status = "online"
	StatusAway    Status = "away"
	StatusBusy    Status = "busy"
	StatusOffline Status = "offline"
)

func (s Status) Valid() bool {
	switch s {
	case StatusOnline, StatusAway, StatusBusy, StatusOffline:
		return true
	}
	return false
}

// DefaultDeviceType подставляется, когда клиент не передал device_type.
const DefaultDeviceType = "unknown"

// PresenceState — текущий снапшот, одна строка на пользователя.
// Всегда совпадает с последней записью в presence_records.
type PresenceState struct {
	UserID     string    `db:"user_id" json:"user_id"`
	Status     Status    `db:"status" json:"status"`
	DeviceType string    `db:"device_type" json:"device_type"`
	LastSeen   time.Time `db:"last_seen" json:"last_seen"`
}

// PresenceRecord — неизменяемая запись журнала переходов.
// DwellSeconds — сколько пользователь провёл в предыдущем статусе.
type PresenceRecord struct {
	ID           int64     `db:"id"`
	UserID       string    `db:"user_id"`
	Status       Status    `db:"status"`
	DeviceType   string    `db:"device_type"`
	ChangedAt    time.Time `db:"changed_at"`
	DwellSeconds int64     `db:"dwell_seconds"`
}
