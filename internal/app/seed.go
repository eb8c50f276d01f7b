package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"room_booking/internal/calendar"
	"room_booking/internal/domain"
)

type Seeder struct {
	repo    domain.RoomRepository
	workers int
	newID   func() string
}

func NewSeeder(r domain.RoomRepository, workers int) *Seeder {
	if workers <= 0 {
		workers = 1
	}
	return &Seeder{repo: r, workers: workers, newID: uuid.NewString}
}

// SeedRoomsIfEmpty creates perBlock rooms named "01".."NN" in each block,
// with no allowed ranges. It does nothing when any room exists.
func (s *Seeder) SeedRoomsIfEmpty(ctx context.Context, blocks []string, perBlock int) (int, error) {
	if perBlock <= 0 {
		return 0, fmt.Errorf("%w: rooms per block must be positive", domain.ErrValidation)
	}
	if len(blocks) == 0 {
		return 0, fmt.Errorf("%w: at least one block is required", domain.ErrValidation)
	}
	n, err := s.repo.CountRooms(ctx)
	if err != nil {
		return 0, fmt.Errorf("count rooms: %w", err)
	}
	if n > 0 {
		log.Info().Int("rooms", n).Msg("seed skipped, rooms exist")
		return 0, nil
	}

	sem := semaphore.NewWeighted(int64(s.workers))
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
		done int
	)
	for _, b := range blocks {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
			break
		}
		rooms := s.blockRooms(b, perBlock)

		wg.Add(1)
		go func(block string, rooms []domain.Room) {
			defer wg.Done()
			defer sem.Release(1)

			err := s.repo.InsertRooms(ctx, rooms)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Warn().Str("block", block).Err(err).Msg("seed block failed")
				errs = append(errs, fmt.Errorf("seed block %s: %w", block, err))
				return
			}
			done += len(rooms)
			log.Info().Str("block", block).Int("rooms", len(rooms)).Msg("seed block ok")
		}(b, rooms)
	}
	wg.Wait()
	return done, errors.Join(errs...)
}

func (s *Seeder) blockRooms(block string, perBlock int) []domain.Room {
	out := make([]domain.Room, 0, perBlock)
	for i := 1; i <= perBlock; i++ {
		out = append(out, domain.Room{
			ID:     s.newID(),
			Block:  block,
			Name:   fmt.Sprintf("%02d", i),
			Ranges: []calendar.Range{},
		})
	}
	return out
}
