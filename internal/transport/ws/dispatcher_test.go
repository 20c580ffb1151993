package ws

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cwrk-planet/presence-service/internal/domain"
)

type stubPredictor struct {
	seconds int64
	err     error
}

func (p stubPredictor) Predict(ctx context.Context, userID string) (int64, error) {
	return p.seconds, p.err
}

type stubEngagement struct {
	score float64
	err   error
}

func (e stubEngagement) EngagementScore(ctx context.Context, userID string) (float64, error) {
	return e.score, e.err
}

func testState() *domain.PresenceState {
	return &domain.PresenceState{
		UserID:     "u1",
		Status:     domain.StatusOnline,
		DeviceType: "web",
		LastSeen:   time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestDispatcher_EventEnriched(t *testing.T) {
	d := NewDispatcher(NewHub(), stubPredictor{seconds: 120}, stubEngagement{score: 0.75})

	msg := d.Event(context.Background(), testState())
	if msg.Type != TypePresenceUpdate {
		t.Fatalf("type = %q", msg.Type)
	}
	payload, ok := msg.Payload.(PresencePayload)
	if !ok {
		t.Fatalf("payload type %T", msg.Payload)
	}
	if payload.Status != "online" || payload.DeviceType != "web" {
		t.Fatalf("payload = %+v", payload)
	}
	if payload.PredictedResponseTime == nil || *payload.PredictedResponseTime != 120 {
		t.Fatalf("predicted = %v, want 120", payload.PredictedResponseTime)
	}
	if payload.EngagementScore == nil || *payload.EngagementScore != 0.75 {
		t.Fatalf("engagement = %v, want 0.75", payload.EngagementScore)
	}
}

func TestDispatcher_EnrichmentErrorsOmitFields(t *testing.T) {
	d := NewDispatcher(NewHub(),
		stubPredictor{err: errors.New("down")},
		stubEngagement{err: errors.New("down")})

	msg := d.Event(context.Background(), testState())
	payload := msg.Payload.(PresencePayload)
	if payload.PredictedResponseTime != nil {
		t.Fatalf("predicted must be omitted on error")
	}
	if payload.EngagementScore != nil {
		t.Fatalf("engagement must be omitted on error")
	}
	// базовые поля остаются
	if payload.UserID != "u1" || payload.Status != "online" {
		t.Fatalf("payload = %+v", payload)
	}
}

func TestDispatcher_NilEnrichers(t *testing.T) {
	d := NewDispatcher(NewHub(), nil, nil)

	msg := d.Event(context.Background(), testState())
	payload := msg.Payload.(PresencePayload)
	if payload.PredictedResponseTime != nil || payload.EngagementScore != nil {
		t.Fatalf("enrichment fields must be nil: %+v", payload)
	}
}

func TestDispatcher_PublishDelivers(t *testing.T) {
	hub := NewHub()
	c := &fakeConn{userID: "u1"}
	hub.Add(c)

	d := NewDispatcher(hub, nil, nil)
	d.Publish(context.Background(), testState())

	if c.count() != 1 {
		t.Fatalf("conn got %d messages, want 1", c.count())
	}
}
