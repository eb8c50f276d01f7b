package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"room_booking/internal/app"
	"room_booking/internal/calendar"
	"room_booking/internal/domain"
)

// ---- fakes ----

type fakeStore struct {
	mu        sync.Mutex
	rooms     []domain.Room
	bookings  []domain.Booking
	blackouts []domain.Blackout
	settings  map[string]string

	listRoomsCalls int
	failInsert     error
}

func (f *fakeStore) ListRooms(ctx context.Context) ([]domain.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listRoomsCalls++
	out := append([]domain.Room(nil), f.rooms...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Block != out[j].Block {
			return out[i].Block < out[j].Block
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (f *fakeStore) GetRoom(ctx context.Context, id string) (domain.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rooms {
		if r.ID == id {
			return r, nil
		}
	}
	return domain.Room{}, domain.ErrNotFound
}

func (f *fakeStore) CountRooms(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rooms), nil
}

func (f *fakeStore) InsertRooms(ctx context.Context, rooms []domain.Room) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rooms = append(f.rooms, rooms...)
	return nil
}

func (f *fakeStore) UpdateRoomRanges(ctx context.Context, id string, ranges []calendar.Range) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.rooms {
		if f.rooms[i].ID == id {
			f.rooms[i].Ranges = ranges
			return nil
		}
	}
	return domain.ErrNotFound
}

func (f *fakeStore) ListBookings(ctx context.Context, since calendar.Day) ([]domain.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Booking
	for _, b := range f.bookings {
		if calendar.GreaterOrEqual(b.To, since) {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return calendar.Less(out[i].From, out[j].From) })
	return out, nil
}

func (f *fakeStore) InsertBooking(ctx context.Context, b domain.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failInsert != nil {
		return f.failInsert
	}
	f.bookings = append(f.bookings, b)
	return nil
}

func (f *fakeStore) DeleteBooking(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, b := range f.bookings {
		if b.ID == id {
			f.bookings = append(f.bookings[:i], f.bookings[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (f *fakeStore) ListBlackouts(ctx context.Context) ([]domain.Blackout, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Blackout(nil), f.blackouts...), nil
}

func (f *fakeStore) UpsertBlackout(ctx context.Context, b domain.Blackout) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.blackouts {
		if f.blackouts[i].Block == b.Block {
			f.blackouts[i] = b
			return nil
		}
	}
	f.blackouts = append(f.blackouts, b)
	return nil
}

func (f *fakeStore) GetSetting(ctx context.Context, key string) (domain.Setting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.settings[key]
	if !ok {
		return domain.Setting{}, domain.ErrNotFound
	}
	return domain.Setting{Key: key, Value: v}, nil
}

func (f *fakeStore) PutSetting(ctx context.Context, s domain.Setting) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.settings == nil {
		f.settings = map[string]string{}
	}
	f.settings[s.Key] = s.Value
	return nil
}

// fakeCache round-trips through JSON like the redis adapter does.
type fakeCache struct {
	mu    sync.Mutex
	store map[string][]byte
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.store[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		c.store = map[string][]byte{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.store[key] = b
	return nil
}

func (c *fakeCache) Del(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, key)
	return nil
}

type fakePub struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (p *fakePub) Publish(ctx context.Context, collection string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, collection)
	return p.err
}

func (p *fakePub) last() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.sent) == 0 {
		return ""
	}
	return p.sent[len(p.sent)-1]
}

// ---- helpers ----

var errBoom = errors.New("boom")

func day(s string) calendar.Day { return calendar.MustParseDay(s) }

func rng(from, to string) calendar.Range { return calendar.Range{From: day(from), To: day(to)} }

func fixedClock(s string) func() time.Time {
	t := day(s).Time().Add(9 * time.Hour)
	return func() time.Time { return t }
}

// newFixture builds a store with rooms A-01, A-02 (allowed all of January 2024)
// and B-01 (no ranges), a refreshed catalog and a fake cache/publisher.
func newFixture() (*fakeStore, *fakeCache, *fakePub, *app.Catalog) {
	jan := rng("2024-01-01", "2024-01-31")
	st := &fakeStore{
		rooms: []domain.Room{
			{ID: "b1", Block: "B", Name: "01", Ranges: []calendar.Range{}},
			{ID: "a2", Block: "A", Name: "02", Ranges: []calendar.Range{jan}},
			{ID: "a1", Block: "A", Name: "01", Ranges: []calendar.Range{jan}},
		},
	}
	cache := &fakeCache{}
	pub := &fakePub{}
	cat := app.NewCatalog(st, cache, 10*time.Minute).WithClock(fixedClock("2024-01-01"))
	if err := cat.Refresh(context.Background()); err != nil {
		panic(err)
	}
	return st, cache, pub, cat
}
