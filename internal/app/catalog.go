package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"room_booking/internal/adapters/observability"
	"room_booking/internal/calendar"
	"room_booking/internal/domain"
)

const (
	roomsCacheKey     = "rooms:all"
	blackoutsCacheKey = "blackouts:all"
)

// Snapshot is a read-only view of the catalog at one point in time.
type Snapshot struct {
	Rooms     []domain.Room
	Bookings  []domain.Booking
	Blackouts []domain.Blackout
}

// Catalog owns the in-memory copies of rooms, bookings and blackouts.
// Copies are replaced wholesale on refresh, never patched.
type Catalog struct {
	store    domain.Store
	cache    domain.Cache
	cacheTTL time.Duration
	now      func() time.Time

	mu        sync.RWMutex
	rooms     []domain.Room
	bookings  []domain.Booking
	blackouts []domain.Blackout
}

func NewCatalog(store domain.Store, cache domain.Cache, ttl time.Duration) *Catalog {
	return &Catalog{store: store, cache: cache, cacheTTL: ttl, now: time.Now}
}

// WithClock overrides the clock used to pick "today" for bookings.
func (c *Catalog) WithClock(now func() time.Time) *Catalog {
	c.now = now
	return c
}

// Today is the local calendar day, not the UTC day the browser client used.
func (c *Catalog) Today() calendar.Day { return calendar.Today(c.now()) }

// Snapshot copies the current slices. Elements are shared; callers must not mutate them.
func (c *Catalog) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Snapshot{
		Rooms:     append([]domain.Room(nil), c.rooms...),
		Bookings:  append([]domain.Booking(nil), c.bookings...),
		Blackouts: append([]domain.Blackout(nil), c.blackouts...),
	}
}

// Refresh refetches all three collections concurrently.
func (c *Catalog) Refresh(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.RefreshRooms(gctx) })
	g.Go(func() error { return c.RefreshBookings(gctx) })
	g.Go(func() error { return c.RefreshBlackouts(gctx) })
	return g.Wait()
}

// RefreshCollection refetches one collection by its change-feed name.
func (c *Catalog) RefreshCollection(ctx context.Context, collection string) error {
	switch collection {
	case domain.CollectionRooms:
		return c.RefreshRooms(ctx)
	case domain.CollectionBookings:
		return c.RefreshBookings(ctx)
	case domain.CollectionBlackouts:
		return c.RefreshBlackouts(ctx)
	default:
		return fmt.Errorf("unknown collection %q", collection)
	}
}

func (c *Catalog) RefreshRooms(ctx context.Context) (err error) {
	defer func() { observability.ObserveRefresh(domain.CollectionRooms, err) }()

	var rooms []domain.Room
	if c.fromCache(ctx, roomsCacheKey, &rooms) {
		c.setRooms(rooms)
		return nil
	}
	rooms, err = c.store.ListRooms(ctx)
	if err != nil {
		return fmt.Errorf("fetch rooms: %w", err)
	}
	if c.cache != nil {
		if cerr := c.cache.Set(ctx, roomsCacheKey, rooms, int(c.cacheTTL.Seconds())); cerr != nil {
			log.Warn().Err(cerr).Msg("cache rooms failed")
		}
	}
	c.setRooms(rooms)
	return nil
}

// RefreshBookings always reads the store; bookings are never served from cache.
func (c *Catalog) RefreshBookings(ctx context.Context) (err error) {
	defer func() { observability.ObserveRefresh(domain.CollectionBookings, err) }()

	bookings, err := c.store.ListBookings(ctx, c.Today())
	if err != nil {
		return fmt.Errorf("fetch bookings: %w", err)
	}
	c.mu.Lock()
	c.bookings = bookings
	c.mu.Unlock()
	return nil
}

func (c *Catalog) RefreshBlackouts(ctx context.Context) (err error) {
	defer func() { observability.ObserveRefresh(domain.CollectionBlackouts, err) }()

	var bl []domain.Blackout
	if c.fromCache(ctx, blackoutsCacheKey, &bl) {
		c.setBlackouts(bl)
		return nil
	}
	bl, err = c.store.ListBlackouts(ctx)
	if err != nil {
		return fmt.Errorf("fetch blackouts: %w", err)
	}
	if c.cache != nil {
		if cerr := c.cache.Set(ctx, blackoutsCacheKey, bl, int(c.cacheTTL.Seconds())); cerr != nil {
			log.Warn().Err(cerr).Msg("cache blackouts failed")
		}
	}
	c.setBlackouts(bl)
	return nil
}

// fromCache reports a usable hit. An unreadable entry is dropped and counts as a miss.
func (c *Catalog) fromCache(ctx context.Context, key string, dst any) bool {
	if c.cache == nil {
		return false
	}
	ok, err := c.cache.Get(ctx, key, dst)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cache read failed, using store")
		if derr := c.cache.Del(ctx, key); derr != nil {
			log.Warn().Err(derr).Str("key", key).Msg("drop bad cache entry failed")
		}
		return false
	}
	return ok
}

// InvalidateRooms drops the cached room list so the next refresh hits the store.
func (c *Catalog) InvalidateRooms(ctx context.Context) {
	if c.cache != nil {
		_ = c.cache.Del(ctx, roomsCacheKey)
	}
}

func (c *Catalog) InvalidateBlackouts(ctx context.Context) {
	if c.cache != nil {
		_ = c.cache.Del(ctx, blackoutsCacheKey)
	}
}

func (c *Catalog) setRooms(rooms []domain.Room) {
	for i := range rooms {
		if rooms[i].Ranges == nil {
			rooms[i].Ranges = []calendar.Range{}
		}
	}
	c.mu.Lock()
	c.rooms = rooms
	c.mu.Unlock()
}

func (c *Catalog) setBlackouts(bl []domain.Blackout) {
	for i := range bl {
		if bl[i].Ranges == nil {
			bl[i].Ranges = []calendar.Range{}
		}
	}
	c.mu.Lock()
	c.blackouts = bl
	c.mu.Unlock()
}
