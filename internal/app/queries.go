package app

import (
	"fmt"

	"room_booking/internal/adapters/observability"
	"room_booking/internal/availability"
	"room_booking/internal/calendar"
	"room_booking/internal/domain"
)

type QueryService struct {
	cat *Catalog
}

func NewQueryService(cat *Catalog) *QueryService {
	return &QueryService{cat: cat}
}

func (s *QueryService) Blocks() []string {
	return domain.Blocks(s.cat.Snapshot().Rooms)
}

// Rooms lists rooms in catalog order (block, name); block "" means all.
func (s *QueryService) Rooms(block string) []domain.Room {
	out := make([]domain.Room, 0)
	for _, r := range s.cat.Snapshot().Rooms {
		if block == "" || r.Block == block {
			out = append(out, r)
		}
	}
	return out
}

func (s *QueryService) Room(id string) (domain.Room, error) {
	return findRoom(s.cat.Snapshot().Rooms, id)
}

// Bookings lists upcoming bookings (to >= today) ordered by start.
func (s *QueryService) Bookings() []domain.Booking {
	out := s.cat.Snapshot().Bookings
	if out == nil {
		return []domain.Booking{}
	}
	return out
}

func (s *QueryService) Blackouts() []domain.Blackout {
	out := s.cat.Snapshot().Blackouts
	if out == nil {
		return []domain.Blackout{}
	}
	return out
}

// CheckRoom evaluates one room for [from, to).
func (s *QueryService) CheckRoom(roomID, from, to string) (bool, error) {
	rng, err := parseCandidate(from, to)
	if err != nil {
		return false, err
	}
	snap := s.cat.Snapshot()
	room, err := findRoom(snap.Rooms, roomID)
	if err != nil {
		return false, err
	}
	ok := availability.IsAvailable(room, rng.From, rng.To,
		availability.BlackoutRangesFor(room.Block, snap.Blackouts), snap.Bookings)
	observability.ObserveAvailability("room", ok)
	return ok, nil
}

// FindAvailable lists bookable rooms for [from, to), optionally within one block.
func (s *QueryService) FindAvailable(from, to, block string) ([]domain.Room, error) {
	rng, err := parseCandidate(from, to)
	if err != nil {
		return nil, err
	}
	snap := s.cat.Snapshot()
	out := availability.FindAvailableRooms(rng.From, rng.To, block, snap.Rooms, snap.Blackouts, snap.Bookings)
	observability.ObserveAvailability("search", len(out) > 0)
	return out, nil
}

func parseCandidate(from, to string) (calendar.Range, error) {
	rng, err := calendar.ParseRange(from, to)
	if err != nil {
		return calendar.Range{}, fmt.Errorf("%w: %v", domain.ErrInvalidRange, err)
	}
	return rng, nil
}

func findRoom(rooms []domain.Room, id string) (domain.Room, error) {
	for _, r := range rooms {
		if r.ID == id {
			return r, nil
		}
	}
	return domain.Room{}, fmt.Errorf("room %s: %w", id, domain.ErrNotFound)
}
