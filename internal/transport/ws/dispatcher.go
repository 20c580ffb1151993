package ws

import (
	"context"
	"log/slog"
	"time"

	"github.com/cwrk-planet/presence-service/internal/domain"
)

type Predictor interface {
	Predict(ctx context.Context, userID string) (int64, error)
}

type EngagementSource interface {
	EngagementScore(ctx context.Context, userID string) (float64, error)
}

// Dispatcher собирает presence_update событие и раздаёт его подписчикам.
// Обогащение (прогноз, engagement) — best-effort: при ошибке поле опускается.
type Dispatcher struct {
	hub        *Hub
	predictor  Predictor        // nil — без прогноза
	engagement EngagementSource // nil — без engagement_score

	enrichTimeout time.Duration
}

func NewDispatcher(hub *Hub, predictor Predictor, engagement EngagementSource) *Dispatcher {
	return &Dispatcher{
		hub:           hub,
		predictor:     predictor,
		engagement:    engagement,
		enrichTimeout: 2 * time.Second,
	}
}

// Publish рассылает новое состояние всем подписчикам канала пользователя.
// Коммит в хранилище уже сделан вызывающим; здесь только доставка.
func (d *Dispatcher) Publish(ctx context.Context, st *domain.PresenceState) {
	d.hub.Broadcast(st.UserID, d.Event(ctx, st))
}

// Event строит обогащённое событие для state и для начального снапшота.
func (d *Dispatcher) Event(ctx context.Context, st *domain.PresenceState) Message {
	payload := PresencePayload{
		UserID:     st.UserID,
		Status:     string(st.Status),
		DeviceType: st.DeviceType,
		LastSeen:   st.LastSeen,
	}

	ctx, cancel := context.WithTimeout(ctx, d.enrichTimeout)
	defer cancel()

	if d.predictor != nil {
		if sec, err := d.predictor.Predict(ctx, st.UserID); err == nil {
			payload.PredictedResponseTime = &sec
		} else {
			slog.Debug("presence event prediction skipped", "user", st.UserID, "err", err)
		}
	}
	if d.engagement != nil {
		if score, err := d.engagement.EngagementScore(ctx, st.UserID); err == nil {
			payload.EngagementScore = &score
		} else {
			slog.Debug("presence event engagement skipped", "user", st.UserID, "err", err)
		}
	}

	return Message{Type: TypePresenceUpdate, Payload: payload}
}
