// Package availability decides whether rooms can be booked for a candidate
// interval. Every function is pure and works on caller-held snapshots.
package availability

import (
	"room_booking/internal/calendar"
	"room_booking/internal/domain"
)

// BlackoutRangesFor returns the blackout ranges of block; none when the block has no record.
func BlackoutRangesFor(block string, blackouts []domain.Blackout) []calendar.Range {
	for _, b := range blackouts {
		if b.Block == block {
			return b.Ranges
		}
	}
	return nil
}

// IsAvailable reports whether room can be booked for [from, to).
// The caller must have checked from < to.
func IsAvailable(room domain.Room, from, to calendar.Day, blackoutRanges []calendar.Range, bookings []domain.Booking) bool {
	return !blackedOut(from, to, blackoutRanges) &&
		withinAllowedRange(room, from, to) &&
		!hasBookingConflict(room, from, to, bookings)
}

// FindAvailableRooms keeps the rooms (of block, or of any block when block is
// empty) that are available, preserving input order.
func FindAvailableRooms(from, to calendar.Day, block string, rooms []domain.Room, blackouts []domain.Blackout, bookings []domain.Booking) []domain.Room {
	out := make([]domain.Room, 0)
	for _, r := range rooms {
		if block != "" && r.Block != block {
			continue
		}
		if IsAvailable(r, from, to, BlackoutRangesFor(r.Block, blackouts), bookings) {
			out = append(out, r)
		}
	}
	return out
}

func blackedOut(from, to calendar.Day, ranges []calendar.Range) bool {
	for _, bk := range ranges {
		if Overlaps(from, to, bk.From, bk.To) {
			return true
		}
	}
	return false
}

func withinAllowedRange(room domain.Room, from, to calendar.Day) bool {
	for _, rg := range room.Ranges {
		if Contains(rg.From, rg.To, from, to) {
			return true
		}
	}
	return false
}

func hasBookingConflict(room domain.Room, from, to calendar.Day, bookings []domain.Booking) bool {
	for _, b := range bookings {
		if b.RoomID == room.ID && Overlaps(from, to, b.From, b.To) {
			return true
		}
	}
	return false
}
