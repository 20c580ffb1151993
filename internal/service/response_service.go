package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cwrk-planet/presence-service/internal/domain"
)

// ResponseService — приём событий response-history от внешнего коллаборатора.
type ResponseService struct {
	responses ResponseRepo
}

func NewResponseService(responses ResponseRepo) *ResponseService {
	return &ResponseService{responses: responses}
}

func (s *ResponseService) Record(ctx context.Context, userID, messageID string, receivedAt, respondedAt time.Time, status domain.Status) (*domain.ResponseEvent, error) {
	messageID = strings.TrimSpace(messageID)
	if messageID == "" {
		return nil, domain.ErrEmptyMessageID
	}
	if !status.Valid() {
		return nil, domain.ErrInvalidStatus
	}
	if respondedAt.Before(receivedAt) {
		return nil, domain.ErrInvalidResponseWindow
	}

	ev := &domain.ResponseEvent{
		UserID:          userID,
		MessageID:       messageID,
		ReceivedAt:      receivedAt,
		RespondedAt:     respondedAt,
		PresenceStatus:  status,
		ResponseSeconds: int64(respondedAt.Sub(receivedAt) / time.Second),
	}
	if err := s.responses.Save(ctx, ev); err != nil {
		return nil, fmt.Errorf("responses.Save: %w", err)
	}
	return ev, nil
}
