package ws

import "time"

// Типы событий presence-канала
const (
	TypePresenceUpdate = "presence_update" // снапшот при подключении и каждый переход статуса
)

type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type PresencePayload struct {
	UserID     string    `json:"user_id"`
	Status     string    `json:"status"`
	DeviceType string    `json:"device_type"`
	LastSeen   time.Time `json:"last_seen"`

	PredictedResponseTime *int64   `json:"predicted_response_time,omitempty"`
	EngagementScore       *float64 `json:"engagement_score,omitempty"`
}

// PresenceUpdateRequest — клиентская заявка на смену статуса в том же канале.
type PresenceUpdateRequest struct {
	Status     string `json:"status"`
	DeviceType string `json:"device_type"`
}
