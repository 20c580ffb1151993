package service

import (
	"context"
	"fmt"
	"time"

	"github.com/cwrk-planet/presence-service/internal/domain"
)

type ResponseRepo interface {
	Save(ctx context.Context, ev *domain.ResponseEvent) error
	ListByUser(ctx context.Context, userID string) ([]domain.ResponseEvent, error)
}

type PredictionService struct {
	store     PresenceRepo
	ledger    LedgerRepo
	responses ResponseRepo

	defaultSeconds  int64
	statusSampleMin int
	idleAfter       time.Duration
	idleFactor      float64

	now func() time.Time
}

func NewPredictionService(store PresenceRepo, ledger LedgerRepo, responses ResponseRepo) *PredictionService {
	return &PredictionService{
		store:           store,
		ledger:          ledger,
		responses:       responses,
		defaultSeconds:  600,
		statusSampleMin: 5,
		idleAfter:       time.Hour,
		idleFactor:      1.2,
		now:             time.Now,
	}
}

func (s *PredictionService) SetDefaults(defaultSeconds int64, statusSampleMin int, idleAfter time.Duration, idleFactor float64) {
	if defaultSeconds > 0 {
		s.defaultSeconds = defaultSeconds
	}
	if statusSampleMin > 0 {
		s.statusSampleMin = statusSampleMin
	}
	if idleAfter > 0 {
		s.idleAfter = idleAfter
	}
	if idleFactor > 0 {
		s.idleFactor = idleFactor
	}
}

// Predict оценивает время ответа в секундах по истории response_history.
// Без истории — дефолт. При >= statusSampleMin событий в текущем статусе —
// среднее по ним, иначе среднее по всем. Если пользователь висит в текущем
// статусе дольше idleAfter, оценка умножается на idleFactor.
func (s *PredictionService) Predict(ctx context.Context, userID string) (int64, error) {
	st, err := s.store.Get(ctx, userID)
	if err != nil {
		return 0, err
	}

	events, err := s.responses.ListByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("responses.ListByUser: %w", err)
	}
	if len(events) == 0 {
		return s.defaultSeconds, nil
	}

	var matching []domain.ResponseEvent
	for _, ev := range events {
		if ev.PresenceStatus == st.Status {
			matching = append(matching, ev)
		}
	}

	var predicted float64
	if len(matching) >= s.statusSampleMin {
		predicted = meanResponseSeconds(matching)
	} else {
		predicted = meanResponseSeconds(events)
	}

	if s.sessionDuration(ctx, userID, st.Status) > s.idleAfter {
		predicted *= s.idleFactor
	}

	return int64(predicted), nil
}

// sessionDuration — сколько пользователь держит текущий статус.
func (s *PredictionService) sessionDuration(ctx context.Context, userID string, status domain.Status) time.Duration {
	rec, err := s.ledger.LatestByStatus(ctx, userID, status)
	if err != nil || rec == nil {
		return 0
	}
	return s.now().Sub(rec.ChangedAt)
}

func meanResponseSeconds(events []domain.ResponseEvent) float64 {
	var sum int64
	for _, ev := range events {
		sum += ev.ResponseSeconds
	}
	return float64(sum) / float64(len(events))
}

// HumanizeSeconds — человекочитаемое представление оценки.
func HumanizeSeconds(seconds int64) string {
	switch {
	case seconds < 60:
		return fmt.Sprintf("%d seconds", seconds)
	case seconds < 3600:
		minutes := seconds / 60
		return fmt.Sprintf("%d %s", minutes, plural("minute", minutes))
	default:
		hours := seconds / 3600
		return fmt.Sprintf("%d %s", hours, plural("hour", hours))
	}
}

func plural(unit string, n int64) string {
	if n == 1 {
		return unit
	}
	return unit + "s"
}
