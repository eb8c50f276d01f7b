package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	server "room_booking/internal/adapters/http_server"
	"room_booking/internal/adapters/observability"
	redisad "room_booking/internal/adapters/redis"
	"room_booking/internal/app"
	"room_booking/internal/domain"
	"room_booking/internal/shared"
	"room_booking/internal/storage"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	reg := observability.InitRegistry()
	metrics := observability.MetricsHandler(reg)
	observability.Serve(cfg.MetricsAddr, metrics)

	// datastore
	be, err := storage.Open(ctx, cfg, cfg.MigrateOnStart)
	if err != nil {
		log.Fatal().Err(err).Str("store", cfg.Store).Msg("open datastore failed")
	}
	defer be.Close()

	// redis: cache + change feed; the API still serves without it
	var (
		cache  domain.Cache
		pub    domain.ChangePublisher
		events *redisad.Events
	)
	if cfg.RedisAddr != "" {
		rc := redisad.NewClient(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		defer rc.Close()
		pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := rc.Ping(pctx).Err()
		cancel()
		if err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unavailable; cache and change feed disabled")
		} else {
			cache = redisad.New(rc, "rooms:")
			events = redisad.NewEvents(rc, cfg.EventsChannel)
			pub = events
		}
	}

	// services
	cat := app.NewCatalog(be.Store, cache, cfg.CacheTTL)
	seeder := app.NewSeeder(be.Store, cfg.SeedWorkers)
	adm := app.NewAdminService(be.Store, cat, pub, seeder, cfg.JWTSecret, cfg.JWTTTL)
	q := app.NewQueryService(cat)
	bk := app.NewBookingService(be.Store, cat, pub)

	if _, err := adm.EnsureAdminPIN(ctx, cfg.AdminDefaultPIN); err != nil {
		log.Fatal().Err(err).Msg("ensure admin pin failed")
	}
	if n, err := seeder.SeedRoomsIfEmpty(ctx, cfg.SeedBlocks, cfg.SeedRoomsPerBlock); err != nil {
		log.Error().Err(err).Int("inserted", n).Msg("seed failed")
	} else if n > 0 {
		cat.InvalidateRooms(ctx)
	}
	if err := cat.Refresh(ctx); err != nil {
		log.Fatal().Err(err).Msg("initial catalog load failed")
	}
	snap := cat.Snapshot()
	log.Info().
		Int("rooms", len(snap.Rooms)).
		Int("bookings", len(snap.Bookings)).
		Int("blackouts", len(snap.Blackouts)).
		Msg("catalog loaded")

	if events != nil {
		go func() {
			err := events.Subscribe(ctx, nil, func(ctx context.Context, collection string) {
				if err := cat.RefreshCollection(ctx, collection); err != nil {
					log.Warn().Err(err).Str("collection", collection).Msg("refresh from change feed failed")
				}
			})
			if err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("change feed stopped")
			}
		}()
	}

	// http
	srv := server.New()
	srv.Mount("/metrics", metrics)
	srv.MountHandlers(&server.Handlers{Q: q, B: bk})
	srv.MountAdmin(&server.AdminHandlers{A: adm, Q: q, SeedBlocks: cfg.SeedBlocks, SeedPerBlock: cfg.SeedRoomsPerBlock})

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Mux(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(sctx); err != nil {
			log.Error().Err(err).Msg("http shutdown failed")
		}
	}()

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("http server failed")
	}
	log.Info().Msg("API stopped")
}
