package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"room_booking/internal/adapters/observability"
	"room_booking/internal/availability"
	"room_booking/internal/domain"
)

type BookRequest struct {
	RoomID     string `json:"room_id"`
	From       string `json:"from"`
	To         string `json:"to"`
	GuestName  string `json:"guest_name"`
	GuestPhone string `json:"guest_phone"`
}

type BookingService struct {
	repo  domain.BookingRepository
	cat   *Catalog
	pub   domain.ChangePublisher
	newID func() string
}

func NewBookingService(r domain.BookingRepository, cat *Catalog, pub domain.ChangePublisher) *BookingService {
	return &BookingService{
		repo:  r,
		cat:   cat,
		pub:   pub,
		newID: func() string { return "bk_" + uuid.NewString() },
	}
}

// Book re-reads bookings, re-checks availability, then inserts. There is no
// check-and-insert transaction: two callers can still race.
func (s *BookingService) Book(ctx context.Context, req BookRequest) (domain.Booking, error) {
	req.RoomID = strings.TrimSpace(req.RoomID)
	req.GuestName = strings.TrimSpace(req.GuestName)
	req.GuestPhone = strings.TrimSpace(req.GuestPhone)
	if req.RoomID == "" || req.From == "" || req.To == "" || req.GuestName == "" || req.GuestPhone == "" {
		return domain.Booking{}, fmt.Errorf("%w: room_id, from, to, guest_name and guest_phone are required", domain.ErrValidation)
	}
	rng, err := parseCandidate(req.From, req.To)
	if err != nil {
		return domain.Booking{}, err
	}

	if err := s.cat.RefreshBookings(ctx); err != nil {
		return domain.Booking{}, err
	}
	snap := s.cat.Snapshot()
	room, err := findRoom(snap.Rooms, req.RoomID)
	if err != nil {
		return domain.Booking{}, err
	}
	if !availability.IsAvailable(room, rng.From, rng.To,
		availability.BlackoutRangesFor(room.Block, snap.Blackouts), snap.Bookings) {
		observability.ObserveBooking("rejected")
		return domain.Booking{}, fmt.Errorf("%s %s: %w", room.Label(), rng, domain.ErrUnavailable)
	}

	b := domain.Booking{
		ID:         s.newID(),
		RoomID:     room.ID,
		Block:      room.Block,
		RoomName:   room.Name,
		From:       rng.From,
		To:         rng.To,
		GuestName:  req.GuestName,
		GuestPhone: req.GuestPhone,
	}
	if err := s.repo.InsertBooking(ctx, b); err != nil {
		return domain.Booking{}, fmt.Errorf("insert booking: %w", err)
	}
	observability.ObserveBooking("created")
	log.Info().Str("booking", b.ID).Str("room", room.Label()).Str("range", rng.String()).Msg("booked")

	s.afterWrite(ctx)
	return b, nil
}

func (s *BookingService) Cancel(ctx context.Context, id string) error {
	if err := s.repo.DeleteBooking(ctx, id); err != nil {
		return fmt.Errorf("cancel booking %s: %w", id, err)
	}
	observability.ObserveBooking("cancelled")
	log.Info().Str("booking", id).Msg("cancelled")

	s.afterWrite(ctx)
	return nil
}

// afterWrite refreshes the local copy and notifies other instances.
// Failures are logged, not returned.
func (s *BookingService) afterWrite(ctx context.Context) {
	if err := s.cat.RefreshBookings(ctx); err != nil {
		log.Warn().Err(err).Msg("refresh bookings after write failed")
	}
	if s.pub != nil {
		if err := s.pub.Publish(ctx, domain.CollectionBookings); err != nil {
			log.Warn().Err(err).Msg("publish bookings change failed")
		}
	}
}
