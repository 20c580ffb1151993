package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cwrk-planet/presence-service/internal/domain"
)

type LedgerRepo interface {
	Append(ctx context.Context, rec *domain.PresenceRecord) error
	// Latest возвращает (nil, nil), если записей ещё нет.
	Latest(ctx context.Context, userID string) (*domain.PresenceRecord, error)
	LatestByStatus(ctx context.Context, userID string, status domain.Status) (*domain.PresenceRecord, error)
	ListByUser(ctx context.Context, userID string, limit int, cursor string) ([]domain.PresenceRecord, string, error)
}

type PresenceRepo interface {
	Get(ctx context.Context, userID string) (*domain.PresenceState, error)
	Upsert(ctx context.Context, st *domain.PresenceState) error
}

// SnapshotCache — опциональный кэш снапшотов. Промах — (nil, nil).
type SnapshotCache interface {
	Get(ctx context.Context, userID string) (*domain.PresenceState, error)
	Set(ctx context.Context, st *domain.PresenceState) error
}

type PresenceService struct {
	ledger LedgerRepo
	store  PresenceRepo
	cache  SnapshotCache // nil — кэш выключен

	// сериализация записи по одному пользователю; между пользователями — параллельно
	mu    sync.Mutex
	users map[string]*sync.Mutex
}

func NewPresenceService(ledger LedgerRepo, store PresenceRepo, cache SnapshotCache) *PresenceService {
	return &PresenceService{
		ledger: ledger,
		store:  store,
		cache:  cache,
		users:  make(map[string]*sync.Mutex),
	}
}

func (s *PresenceService) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.users[userID]
	if !ok {
		l = &sync.Mutex{}
		s.users[userID] = l
	}
	return l
}

// SetStatus добавляет запись в журнал и перезаписывает снапшот.
// Запись в журнал добавляется всегда, даже если статус не изменился;
// второй результат сообщает, изменился ли статус (только тогда нужен broadcast).
// Порядок фиксированный: сначала журнал, потом снапшот — упавший Append
// оставляет снапшот нетронутым.
func (s *PresenceService) SetStatus(ctx context.Context, userID string, status domain.Status, deviceType string, ts time.Time) (*domain.PresenceState, bool, error) {
	if !status.Valid() {
		return nil, false, domain.ErrInvalidStatus
	}
	if deviceType == "" {
		deviceType = domain.DefaultDeviceType
	}
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	l := s.userLock(userID)
	l.Lock()
	defer l.Unlock()

	prev, err := s.ledger.Latest(ctx, userID)
	if err != nil {
		return nil, false, fmt.Errorf("ledger.Latest: %w", err)
	}

	var dwell int64
	if prev != nil {
		// запоздавшая запись сломала бы инвариант dwell-времени
		if ts.Before(prev.ChangedAt) {
			return nil, false, domain.ErrStaleTimestamp
		}
		dwell = int64(ts.Sub(prev.ChangedAt) / time.Second)
	}

	rec := &domain.PresenceRecord{
		UserID:       userID,
		Status:       status,
		DeviceType:   deviceType,
		ChangedAt:    ts,
		DwellSeconds: dwell,
	}
	if err := s.ledger.Append(ctx, rec); err != nil {
		return nil, false, fmt.Errorf("ledger.Append: %w", err)
	}

	st := &domain.PresenceState{
		UserID:     userID,
		Status:     status,
		DeviceType: deviceType,
		LastSeen:   ts,
	}
	if err := s.store.Upsert(ctx, st); err != nil {
		return nil, false, fmt.Errorf("store.Upsert: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, st); err != nil {
			slog.Warn("presence cache set failed", "user", userID, "err", err)
		}
	}

	changed := prev == nil || prev.Status != status
	return st, changed, nil
}

func (s *PresenceService) GetLatest(ctx context.Context, userID string) (*domain.PresenceState, error) {
	if s.cache != nil {
		st, err := s.cache.Get(ctx, userID)
		if err != nil {
			slog.Warn("presence cache get failed", "user", userID, "err", err)
		} else if st != nil {
			return st, nil
		}
	}

	st, err := s.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, st); err != nil {
			slog.Warn("presence cache set failed", "user", userID, "err", err)
		}
	}
	return st, nil
}

// History возвращает страницу журнала переходов, новые записи первыми.
func (s *PresenceService) History(ctx context.Context, userID string, limit int, cursor string) ([]domain.PresenceRecord, string, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return s.ledger.ListByUser(ctx, userID, limit, cursor)
}
