package app

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"room_booking/internal/availability"
	"room_booking/internal/calendar"
	"room_booking/internal/domain"
)

const adminSubject = "admin"

type AdminService struct {
	store  domain.Store
	cat    *Catalog
	pub    domain.ChangePublisher
	seeder *Seeder
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewAdminService signs admin tokens with secret; an empty secret gets a
// random one, valid for this process only.
func NewAdminService(store domain.Store, cat *Catalog, pub domain.ChangePublisher, seeder *Seeder, secret string, ttl time.Duration) *AdminService {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			panic("read random secret: " + err.Error())
		}
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &AdminService{store: store, cat: cat, pub: pub, seeder: seeder, secret: key, ttl: ttl, now: time.Now}
}

// ---- PIN & tokens ----

// EnsureAdminPIN stores the hashed default PIN when none exists.
func (s *AdminService) EnsureAdminPIN(ctx context.Context, defaultPIN string) (bool, error) {
	_, err := s.store.GetSetting(ctx, domain.SettingAdminPIN)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return false, fmt.Errorf("read admin pin: %w", err)
	}
	if err := s.SetPIN(ctx, defaultPIN); err != nil {
		return false, err
	}
	log.Warn().Msg("admin pin initialised to the configured default; change it")
	return true, nil
}

func (s *AdminService) SetPIN(ctx context.Context, pin string) error {
	pin = strings.TrimSpace(pin)
	if len(pin) < 4 {
		return fmt.Errorf("%w: pin must be at least 4 characters", domain.ErrValidation)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash pin: %w", err)
	}
	if err := s.store.PutSetting(ctx, domain.Setting{Key: domain.SettingAdminPIN, Value: string(hash)}); err != nil {
		return fmt.Errorf("store admin pin: %w", err)
	}
	return nil
}

// Login checks pin and returns a signed admin token. A stored plaintext PIN
// is accepted once and replaced by its hash.
func (s *AdminService) Login(ctx context.Context, pin string) (string, time.Time, error) {
	pin = strings.TrimSpace(pin)
	st, err := s.store.GetSetting(ctx, domain.SettingAdminPIN)
	if errors.Is(err, domain.ErrNotFound) {
		return "", time.Time{}, fmt.Errorf("admin pin not set: %w", domain.ErrUnauthorized)
	}
	if err != nil {
		return "", time.Time{}, fmt.Errorf("read admin pin: %w", err)
	}

	if isBcrypt(st.Value) {
		if bcrypt.CompareHashAndPassword([]byte(st.Value), []byte(pin)) != nil {
			return "", time.Time{}, fmt.Errorf("invalid pin: %w", domain.ErrUnauthorized)
		}
	} else {
		if subtle.ConstantTimeCompare([]byte(st.Value), []byte(pin)) != 1 {
			return "", time.Time{}, fmt.Errorf("invalid pin: %w", domain.ErrUnauthorized)
		}
		if err := s.SetPIN(ctx, pin); err != nil {
			log.Warn().Err(err).Msg("upgrade plaintext pin failed")
		} else {
			log.Info().Msg("plaintext admin pin upgraded to bcrypt")
		}
	}

	now := s.now()
	exp := now.Add(s.ttl)
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   adminSubject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	signed, err := tok.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

func (s *AdminService) VerifyToken(raw string) error {
	_, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{},
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithSubject(adminSubject),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	return nil
}

func isBcrypt(v string) bool {
	return strings.HasPrefix(v, "$2a$") || strings.HasPrefix(v, "$2b$") || strings.HasPrefix(v, "$2y$")
}

// ---- room ranges ----

func (s *AdminService) AddRange(ctx context.Context, roomID string, r calendar.Range) (domain.Room, error) {
	if !r.Valid() {
		return domain.Room{}, fmt.Errorf("%w: from must be before to", domain.ErrInvalidRange)
	}
	return s.updateRanges(ctx, roomID, func(cur []calendar.Range) ([]calendar.Range, error) {
		return availability.AddRange(cur, r), nil
	})
}

// ReplaceRanges stores ranges (sorted) as the room's full list.
func (s *AdminService) ReplaceRanges(ctx context.Context, roomID string, ranges []calendar.Range) (domain.Room, error) {
	for i, r := range ranges {
		if !r.Valid() {
			return domain.Room{}, fmt.Errorf("%w: range %d (%s)", domain.ErrInvalidRange, i, r)
		}
	}
	return s.updateRanges(ctx, roomID, func([]calendar.Range) ([]calendar.Range, error) {
		out := append([]calendar.Range{}, ranges...)
		availability.SortRanges(out)
		return out, nil
	})
}

func (s *AdminService) DeleteRange(ctx context.Context, roomID string, index int) (domain.Room, error) {
	return s.updateRanges(ctx, roomID, func(cur []calendar.Range) ([]calendar.Range, error) {
		return availability.DeleteRange(cur, index)
	})
}

func (s *AdminService) MergeRanges(ctx context.Context, roomID string) (domain.Room, error) {
	return s.updateRanges(ctx, roomID, func(cur []calendar.Range) ([]calendar.Range, error) {
		return availability.MergeRanges(cur), nil
	})
}

func (s *AdminService) updateRanges(ctx context.Context, roomID string, fn func([]calendar.Range) ([]calendar.Range, error)) (domain.Room, error) {
	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return domain.Room{}, fmt.Errorf("room %s: %w", roomID, err)
	}
	next, err := fn(room.Ranges)
	if err != nil {
		return domain.Room{}, err
	}
	if err := s.store.UpdateRoomRanges(ctx, room.ID, next); err != nil {
		return domain.Room{}, fmt.Errorf("save ranges: %w", err)
	}
	room.Ranges = next
	log.Info().Str("room", room.Label()).Int("ranges", len(next)).Msg("ranges saved")

	s.roomsChanged(ctx)
	return room, nil
}

// ---- blackouts ----

// SetBlackout replaces the blackout ranges of block.
func (s *AdminService) SetBlackout(ctx context.Context, block string, ranges []calendar.Range) (domain.Blackout, error) {
	block = strings.TrimSpace(block)
	if block == "" {
		return domain.Blackout{}, fmt.Errorf("%w: block is required", domain.ErrValidation)
	}
	for i, r := range ranges {
		if !r.Valid() {
			return domain.Blackout{}, fmt.Errorf("%w: range %d (%s)", domain.ErrInvalidRange, i, r)
		}
	}
	b := domain.Blackout{Block: block, Ranges: append([]calendar.Range{}, ranges...)}
	availability.SortRanges(b.Ranges)
	if err := s.store.UpsertBlackout(ctx, b); err != nil {
		return domain.Blackout{}, fmt.Errorf("save blackout: %w", err)
	}
	log.Info().Str("block", block).Int("ranges", len(b.Ranges)).Msg("blackout saved")

	s.cat.InvalidateBlackouts(ctx)
	if err := s.cat.RefreshBlackouts(ctx); err != nil {
		log.Warn().Err(err).Msg("refresh blackouts after write failed")
	}
	s.publish(ctx, domain.CollectionBlackouts)
	return b, nil
}

// ---- seeding ----

func (s *AdminService) Seed(ctx context.Context, blocks []string, perBlock int) (int, error) {
	n, err := s.seeder.SeedRoomsIfEmpty(ctx, blocks, perBlock)
	if n > 0 {
		s.roomsChanged(ctx)
	}
	return n, err
}

func (s *AdminService) roomsChanged(ctx context.Context) {
	s.cat.InvalidateRooms(ctx)
	if err := s.cat.RefreshRooms(ctx); err != nil {
		log.Warn().Err(err).Msg("refresh rooms after write failed")
	}
	s.publish(ctx, domain.CollectionRooms)
}

func (s *AdminService) publish(ctx context.Context, collection string) {
	if s.pub == nil {
		return
	}
	if err := s.pub.Publish(ctx, collection); err != nil {
		log.Warn().Err(err).Str("collection", collection).Msg("publish change failed")
	}
}
