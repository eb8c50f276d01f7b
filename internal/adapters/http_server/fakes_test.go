package httpserver_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	httpserver "room_booking/internal/adapters/http_server"
	"room_booking/internal/app"
	"room_booking/internal/calendar"
	"room_booking/internal/domain"
)

// memStore is an in-memory domain.Store.
type memStore struct {
	mu        sync.Mutex
	rooms     []domain.Room
	bookings  []domain.Booking
	blackouts []domain.Blackout
	settings  map[string]string
}

func (m *memStore) ListRooms(ctx context.Context) ([]domain.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]domain.Room(nil), m.rooms...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Block != out[j].Block {
			return out[i].Block < out[j].Block
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (m *memStore) GetRoom(ctx context.Context, id string) (domain.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rooms {
		if r.ID == id {
			r.Ranges = append([]calendar.Range{}, r.Ranges...)
			return r, nil
		}
	}
	return domain.Room{}, domain.ErrNotFound
}

func (m *memStore) CountRooms(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rooms), nil
}

func (m *memStore) InsertRooms(ctx context.Context, rooms []domain.Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rooms = append(m.rooms, rooms...)
	return nil
}

func (m *memStore) UpdateRoomRanges(ctx context.Context, id string, ranges []calendar.Range) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rooms {
		if m.rooms[i].ID == id {
			m.rooms[i].Ranges = ranges
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *memStore) ListBookings(ctx context.Context, since calendar.Day) ([]domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Booking
	for _, b := range m.bookings {
		if calendar.GreaterOrEqual(b.To, since) {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return calendar.Less(out[i].From, out[j].From) })
	return out, nil
}

func (m *memStore) InsertBooking(ctx context.Context, b domain.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bookings = append(m.bookings, b)
	return nil
}

func (m *memStore) DeleteBooking(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, b := range m.bookings {
		if b.ID == id {
			m.bookings = append(m.bookings[:i], m.bookings[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *memStore) ListBlackouts(ctx context.Context) ([]domain.Blackout, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Blackout(nil), m.blackouts...), nil
}

func (m *memStore) UpsertBlackout(ctx context.Context, b domain.Blackout) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.blackouts {
		if m.blackouts[i].Block == b.Block {
			m.blackouts[i] = b
			return nil
		}
	}
	m.blackouts = append(m.blackouts, b)
	return nil
}

func (m *memStore) GetSetting(ctx context.Context, key string) (domain.Setting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.settings[key]
	if !ok {
		return domain.Setting{}, domain.ErrNotFound
	}
	return domain.Setting{Key: key, Value: v}, nil
}

func (m *memStore) PutSetting(ctx context.Context, s domain.Setting) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.settings == nil {
		m.settings = map[string]string{}
	}
	m.settings[s.Key] = s.Value
	return nil
}

func rng(from, to string) calendar.Range {
	return calendar.Range{From: calendar.MustParseDay(from), To: calendar.MustParseDay(to)}
}

// newTestServer wires the full handler stack over memStore with rooms A-01,
// A-02 (allowed all of January 2024) and B-01 (no ranges). Admin PIN is 1234.
func newTestServer(t *testing.T) (*httptest.Server, *memStore) {
	t.Helper()
	jan := rng("2024-01-01", "2024-01-31")
	st := &memStore{rooms: []domain.Room{
		{ID: "a1", Block: "A", Name: "01", Ranges: []calendar.Range{jan}},
		{ID: "a2", Block: "A", Name: "02", Ranges: []calendar.Range{jan}},
		{ID: "b1", Block: "B", Name: "01", Ranges: []calendar.Range{}},
	}}
	now := calendar.MustParseDay("2024-01-01").Time().Add(9 * time.Hour)
	cat := app.NewCatalog(st, nil, time.Minute).WithClock(func() time.Time { return now })
	ctx := context.Background()
	if err := cat.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	q := app.NewQueryService(cat)
	adm := app.NewAdminService(st, cat, nil, app.NewSeeder(st, 2), "test-secret", time.Hour)
	if _, err := adm.EnsureAdminPIN(ctx, "1234"); err != nil {
		t.Fatalf("ensure pin: %v", err)
	}

	srv := httpserver.New()
	srv.MountHandlers(&httpserver.Handlers{Q: q, B: app.NewBookingService(st, cat, nil)})
	srv.MountAdmin(&httpserver.AdminHandlers{A: adm, Q: q, SeedBlocks: []string{"Z"}, SeedPerBlock: 2})

	ts := httptest.NewServer(srv.Mux())
	t.Cleanup(ts.Close)
	return ts, st
}

func doReq(t *testing.T, method, url, body string, hdr map[string]string) *http.Response {
	t.Helper()
	var rd *strings.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, nil)
	if rd != nil {
		req, err = http.NewRequest(method, url, rd)
	}
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if rd != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}
