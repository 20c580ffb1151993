package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cwrk-planet/presence-service/internal/domain"
)

// --- in-memory fakes ---

type memLedger struct {
	mu         sync.Mutex
	recs       map[string][]domain.PresenceRecord
	nextID     int64
	failAppend bool
}

func newMemLedger() *memLedger {
	return &memLedger{recs: make(map[string][]domain.PresenceRecord)}
}

func (m *memLedger) Append(ctx context.Context, rec *domain.PresenceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAppend {
		return errors.New("append failed")
	}
	m.nextID++
	rec.ID = m.nextID
	m.recs[rec.UserID] = append(m.recs[rec.UserID], *rec)
	return nil
}

func (m *memLedger) Latest(ctx context.Context, userID string) (*domain.PresenceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	recs := m.recs[userID]
	if len(recs) == 0 {
		return nil, nil
	}
	rec := recs[len(recs)-1]
	return &rec, nil
}

func (m *memLedger) LatestByStatus(ctx context.Context, userID string, status domain.Status) (*domain.PresenceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	recs := m.recs[userID]
	for i := len(recs) - 1; i >= 0; i-- {
		if recs[i].Status == status {
			rec := recs[i]
			return &rec, nil
		}
	}
	return nil, nil
}

func (m *memLedger) ListByUser(ctx context.Context, userID string, limit int, cursor string) ([]domain.PresenceRecord, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	recs := m.recs[userID]
	out := make([]domain.PresenceRecord, 0, len(recs))
	for i := len(recs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, recs[i])
	}
	return out, "", nil
}

type memStore struct {
	mu sync.Mutex
	m  map[string]domain.PresenceState
}

func newMemStore() *memStore {
	return &memStore{m: make(map[string]domain.PresenceState)}
}

func (m *memStore) Get(ctx context.Context, userID string) (*domain.PresenceState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.m[userID]
	if !ok {
		return nil, domain.ErrPresenceNotFound
	}
	return &st, nil
}

func (m *memStore) Upsert(ctx context.Context, st *domain.PresenceState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.m[st.UserID] = *st
	return nil
}

type memResponses struct {
	mu     sync.Mutex
	m      map[string][]domain.ResponseEvent
	nextID int64
}

func newMemResponses() *memResponses {
	return &memResponses{m: make(map[string][]domain.ResponseEvent)}
}

func (m *memResponses) Save(ctx context.Context, ev *domain.ResponseEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	ev.ID = m.nextID
	m.m[ev.UserID] = append(m.m[ev.UserID], *ev)
	return nil
}

func (m *memResponses) ListByUser(ctx context.Context, userID string) ([]domain.ResponseEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.ResponseEvent(nil), m.m[userID]...), nil
}

// --- tests ---

const testUser = "11111111-1111-1111-1111-111111111111"

func TestSetStatus_FirstRecordDwellZero(t *testing.T) {
	ledger := newMemLedger()
	svc := NewPresenceService(ledger, newMemStore(), nil)

	ts := time.Now().UTC()
	_, changed, err := svc.SetStatus(context.Background(), testUser, domain.StatusOnline, "web", ts)
	if err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if !changed {
		t.Fatalf("first SetStatus must report a change")
	}

	rec, _ := ledger.Latest(context.Background(), testUser)
	if rec == nil {
		t.Fatalf("expected a ledger record")
	}
	if rec.DwellSeconds != 0 {
		t.Fatalf("first record dwell = %d, want 0", rec.DwellSeconds)
	}
}

func TestSetStatus_DwellSumEqualsSpan(t *testing.T) {
	ledger := newMemLedger()
	svc := NewPresenceService(ledger, newMemStore(), nil)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	steps := []struct {
		status domain.Status
		at     time.Time
	}{
		{domain.StatusOnline, base},
		{domain.StatusAway, base.Add(90 * time.Second)},
		{domain.StatusBusy, base.Add(150 * time.Second)},
		{domain.StatusOffline, base.Add(600 * time.Second)},
	}
	for _, s := range steps {
		if _, _, err := svc.SetStatus(context.Background(), testUser, s.status, "web", s.at); err != nil {
			t.Fatalf("SetStatus(%s): %v", s.status, err)
		}
	}

	recs := ledger.recs[testUser]
	if len(recs) != len(steps) {
		t.Fatalf("got %d records, want %d", len(recs), len(steps))
	}
	var sum int64
	for _, rec := range recs {
		sum += rec.DwellSeconds
	}
	span := int64(recs[len(recs)-1].ChangedAt.Sub(recs[0].ChangedAt) / time.Second)
	if sum != span {
		t.Fatalf("dwell sum = %d, span = %d", sum, span)
	}
}

func TestSetStatus_StaleTimestampRejected(t *testing.T) {
	ledger := newMemLedger()
	store := newMemStore()
	svc := NewPresenceService(ledger, store, nil)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	if _, _, err := svc.SetStatus(context.Background(), testUser, domain.StatusOnline, "web", base); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	_, _, err := svc.SetStatus(context.Background(), testUser, domain.StatusAway, "web", base.Add(-time.Minute))
	if !errors.Is(err, domain.ErrStaleTimestamp) {
		t.Fatalf("err = %v, want ErrStaleTimestamp", err)
	}
	// запоздавшая запись не должна трогать ни журнал, ни снапшот
	if len(ledger.recs[testUser]) != 1 {
		t.Fatalf("ledger grew on rejected write")
	}
	st, _ := store.Get(context.Background(), testUser)
	if st.Status != domain.StatusOnline {
		t.Fatalf("snapshot changed on rejected write: %s", st.Status)
	}
}

func TestSetStatus_InvalidStatus(t *testing.T) {
	svc := NewPresenceService(newMemLedger(), newMemStore(), nil)
	_, _, err := svc.SetStatus(context.Background(), testUser, "sleeping", "web", time.Now())
	if !errors.Is(err, domain.ErrInvalidStatus) {
		t.Fatalf("err = %v, want ErrInvalidStatus", err)
	}
}

func TestSetStatus_RepeatedStatusAppendsButNotChanged(t *testing.T) {
	ledger := newMemLedger()
	svc := NewPresenceService(ledger, newMemStore(), nil)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	if _, changed, err := svc.SetStatus(context.Background(), testUser, domain.StatusOnline, "web", base); err != nil || !changed {
		t.Fatalf("first SetStatus: changed=%v err=%v", changed, err)
	}
	st, changed, err := svc.SetStatus(context.Background(), testUser, domain.StatusOnline, "web", base.Add(time.Minute))
	if err != nil {
		t.Fatalf("second SetStatus: %v", err)
	}
	if changed {
		t.Fatalf("repeated status must not report a change")
	}
	// политика: запись в журнал добавляется всегда, last_seen обновляется
	if len(ledger.recs[testUser]) != 2 {
		t.Fatalf("got %d records, want 2", len(ledger.recs[testUser]))
	}
	if !st.LastSeen.Equal(base.Add(time.Minute)) {
		t.Fatalf("last_seen not updated: %v", st.LastSeen)
	}
}

func TestSetStatus_AppendFailureLeavesSnapshot(t *testing.T) {
	ledger := newMemLedger()
	store := newMemStore()
	svc := NewPresenceService(ledger, store, nil)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	if _, _, err := svc.SetStatus(context.Background(), testUser, domain.StatusOnline, "web", base); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	ledger.failAppend = true
	if _, _, err := svc.SetStatus(context.Background(), testUser, domain.StatusAway, "web", base.Add(time.Minute)); err == nil {
		t.Fatalf("expected error when ledger append fails")
	}

	st, _ := store.Get(context.Background(), testUser)
	if st.Status != domain.StatusOnline {
		t.Fatalf("snapshot mutated after failed append: %s", st.Status)
	}
}

func TestSetStatus_DefaultDeviceType(t *testing.T) {
	store := newMemStore()
	svc := NewPresenceService(newMemLedger(), store, nil)

	st, _, err := svc.SetStatus(context.Background(), testUser, domain.StatusOnline, "", time.Now())
	if err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if st.DeviceType != domain.DefaultDeviceType {
		t.Fatalf("device_type = %q, want %q", st.DeviceType, domain.DefaultDeviceType)
	}
}

func TestGetLatest_ReadAfterWrite(t *testing.T) {
	svc := NewPresenceService(newMemLedger(), newMemStore(), nil)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i, status := range []domain.Status{domain.StatusOnline, domain.StatusBusy, domain.StatusAway} {
		ts := base.Add(time.Duration(i) * time.Minute)
		if _, _, err := svc.SetStatus(context.Background(), testUser, status, "mobile", ts); err != nil {
			t.Fatalf("SetStatus: %v", err)
		}
		st, err := svc.GetLatest(context.Background(), testUser)
		if err != nil {
			t.Fatalf("GetLatest: %v", err)
		}
		if st.Status != status || !st.LastSeen.Equal(ts) {
			t.Fatalf("GetLatest = {%s %v}, want {%s %v}", st.Status, st.LastSeen, status, ts)
		}
	}
}

func TestGetLatest_NotFound(t *testing.T) {
	svc := NewPresenceService(newMemLedger(), newMemStore(), nil)
	_, err := svc.GetLatest(context.Background(), testUser)
	if !errors.Is(err, domain.ErrPresenceNotFound) {
		t.Fatalf("err = %v, want ErrPresenceNotFound", err)
	}
}

// write-through кэш: после SetStatus чтение идёт из кэша
type memCache struct {
	mu   sync.Mutex
	m    map[string]domain.PresenceState
	hits int
}

func (c *memCache) Get(ctx context.Context, userID string) (*domain.PresenceState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.m[userID]
	if !ok {
		return nil, nil
	}
	c.hits++
	return &st, nil
}

func (c *memCache) Set(ctx context.Context, st *domain.PresenceState) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[st.UserID] = *st
	return nil
}

func TestGetLatest_CacheWriteThrough(t *testing.T) {
	cache := &memCache{m: make(map[string]domain.PresenceState)}
	svc := NewPresenceService(newMemLedger(), newMemStore(), cache)

	if _, _, err := svc.SetStatus(context.Background(), testUser, domain.StatusBusy, "web", time.Now()); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	st, err := svc.GetLatest(context.Background(), testUser)
	if err != nil {
		t.Fatalf("GetLatest: %v", err)
	}
	if st.Status != domain.StatusBusy {
		t.Fatalf("status = %s, want busy", st.Status)
	}
	if cache.hits != 1 {
		t.Fatalf("cache hits = %d, want 1", cache.hits)
	}
}
