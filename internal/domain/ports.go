package domain

import (
	"context"

	"room_booking/internal/calendar"
)

type RoomRepository interface {
	// ListRooms returns every room ordered by block, then name.
	ListRooms(ctx context.Context) ([]Room, error)
	GetRoom(ctx context.Context, id string) (Room, error)
	CountRooms(ctx context.Context) (int, error)
	InsertRooms(ctx context.Context, rooms []Room) error
	UpdateRoomRanges(ctx context.Context, id string, ranges []calendar.Range) error
}

type BookingRepository interface {
	// ListBookings returns bookings with to >= since, ordered by from.
	ListBookings(ctx context.Context, since calendar.Day) ([]Booking, error)
	InsertBooking(ctx context.Context, b Booking) error
	DeleteBooking(ctx context.Context, id string) error
}

type BlackoutRepository interface {
	ListBlackouts(ctx context.Context) ([]Blackout, error)
	UpsertBlackout(ctx context.Context, b Blackout) error
}

type SettingsRepository interface {
	GetSetting(ctx context.Context, key string) (Setting, error)
	PutSetting(ctx context.Context, s Setting) error
}

// Store is the remote datastore: rooms, bookings, blackouts and settings.
type Store interface {
	RoomRepository
	BookingRepository
	BlackoutRepository
	SettingsRepository
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// Collection names carried on the change feed.
const (
	CollectionRooms     = "rooms"
	CollectionBookings  = "bookings"
	CollectionBlackouts = "blackouts"
)

type ChangePublisher interface {
	Publish(ctx context.Context, collection string) error
}
