package domain

import (
	"sort"

	"room_booking/internal/calendar"
)

type Room struct {
	ID     string           `json:"id"`
	Block  string           `json:"block"`
	Name   string           `json:"name"` // unique within block
	Ranges []calendar.Range `json:"ranges"`
}

// Label is the human form used in listings, e.g. "A-07".
func (r Room) Label() string { return r.Block + "-" + r.Name }

type Blackout struct {
	Block  string           `json:"block"`
	Ranges []calendar.Range `json:"ranges"`
}

type Booking struct {
	ID         string       `json:"id"`
	RoomID     string       `json:"room_id"`
	Block      string       `json:"block"`
	RoomName   string       `json:"room_name"` // denormalized from Room.Name
	From       calendar.Day `json:"from"`
	To         calendar.Day `json:"to"`
	GuestName  string       `json:"guest_name"`
	GuestPhone string       `json:"guest_phone"`
}

func (b Booking) Range() calendar.Range { return calendar.Range{From: b.From, To: b.To} }

const SettingAdminPIN = "admin_pin"

type Setting struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Blocks returns the sorted distinct block labels of rooms.
func Blocks(rooms []Room) []string {
	seen := make(map[string]struct{}, 8)
	out := make([]string, 0, 8)
	for _, r := range rooms {
		if _, ok := seen[r.Block]; ok {
			continue
		}
		seen[r.Block] = struct{}{}
		out = append(out, r.Block)
	}
	sort.Strings(out)
	return out
}
