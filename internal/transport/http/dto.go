package http

import "time"

type ErrorResponse struct {
	Error string `json:"error"`
}

type PresenceItem struct {
	UserID     string    `json:"user_id"`
	Status     string    `json:"status"`
	DeviceType string    `json:"device_type"`
	LastSeen   time.Time `json:"last_seen"`
}

type UpdatePresenceRequest struct {
	Status     string `json:"status"`
	DeviceType string `json:"device_type"`
}

type PresenceRecordItem struct {
	ID           int64     `json:"id"`
	Status       string    `json:"status"`
	DeviceType   string    `json:"device_type"`
	ChangedAt    time.Time `json:"changed_at"`
	DwellSeconds int64     `json:"dwell_seconds"`
}

type PresenceHistoryResponse struct {
	Items      []PresenceRecordItem `json:"items"`
	NextCursor string               `json:"next_cursor,omitempty"`
}

type PredictionResponse struct {
	PredictedResponseTime        int64  `json:"predicted_response_time"`
	PredictedResponseTimeDisplay string `json:"predicted_response_time_display"`
}

type RecordResponseRequest struct {
	MessageID      string    `json:"message_id"`
	ReceivedAt     time.Time `json:"received_at"`
	RespondedAt    time.Time `json:"responded_at"`
	PresenceStatus string    `json:"presence_status"`
}

type ResponseEventItem struct {
	ID              int64     `json:"id"`
	UserID          string    `json:"user_id"`
	MessageID       string    `json:"message_id"`
	ReceivedAt      time.Time `json:"received_at"`
	RespondedAt     time.Time `json:"responded_at"`
	PresenceStatus  string    `json:"presence_status"`
	ResponseSeconds int64     `json:"response_seconds"`
}
