package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	redisad "room_booking/internal/adapters/redis"
	"room_booking/internal/app"
	"room_booking/internal/domain"
	"room_booking/internal/shared"
	"room_booking/internal/storage"
)

func newRootCmd(cfg shared.Config) *cobra.Command {
	root := &cobra.Command{
		Use:          "roomctl",
		Short:        "Maintenance and queries for the room booking datastore",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&cfg.Store, "store", cfg.Store, "datastore backend (mysql|supabase)")

	root.AddCommand(
		migrateCmd(&cfg),
		seedCmd(&cfg),
		setPINCmd(&cfg),
		availableCmd(&cfg),
	)
	return root
}

func migrateCmd(cfg *shared.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations (mysql store)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cfg.Store != shared.StoreMySQL {
				return fmt.Errorf("migrate: store %q has no managed schema", cfg.Store)
			}
			be, err := storage.Open(cmd.Context(), *cfg, true)
			if err != nil {
				return err
			}
			defer be.Close()
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

func seedCmd(cfg *shared.Config) *cobra.Command {
	var (
		blocks   string
		perBlock int
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the default rooms when none exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			be, err := storage.Open(ctx, *cfg, cfg.MigrateOnStart)
			if err != nil {
				return err
			}
			defer be.Close()

			n, err := app.NewSeeder(be.Store, cfg.SeedWorkers).SeedRoomsIfEmpty(ctx, splitBlocks(blocks), perBlock)
			if err != nil {
				return err
			}
			if n > 0 {
				notifyRoomsChanged(ctx, *cfg, be.Store)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "inserted %d rooms\n", n)
			return nil
		},
	}
	cmd.Flags().StringVar(&blocks, "blocks", strings.Join(cfg.SeedBlocks, ","), "comma separated block labels")
	cmd.Flags().IntVar(&perBlock, "rooms", cfg.SeedRoomsPerBlock, "rooms per block")
	return cmd
}

func setPINCmd(cfg *shared.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "set-pin <pin>",
		Short: "Replace the admin PIN",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			be, err := storage.Open(ctx, *cfg, cfg.MigrateOnStart)
			if err != nil {
				return err
			}
			defer be.Close()

			cat := app.NewCatalog(be.Store, nil, cfg.CacheTTL)
			adm := app.NewAdminService(be.Store, cat, nil, nil, cfg.JWTSecret, cfg.JWTTTL)
			if err := adm.SetPIN(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "admin pin updated")
			return nil
		},
	}
}

func availableCmd(cfg *shared.Config) *cobra.Command {
	var (
		from, to, block string
		asJSON          bool
	)
	cmd := &cobra.Command{
		Use:   "available",
		Short: "List rooms bookable for [from, to)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			be, err := storage.Open(ctx, *cfg, false)
			if err != nil {
				return err
			}
			defer be.Close()

			// always read the store directly; a stale cache would mislead
			cat := app.NewCatalog(be.Store, nil, cfg.CacheTTL)
			if err := cat.Refresh(ctx); err != nil {
				return err
			}
			rooms, err := app.NewQueryService(cat).FindAvailable(from, to, block)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rooms)
			}
			return printRooms(cmd.OutOrStdout(), rooms)
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first night, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "checkout day, YYYY-MM-DD")
	cmd.Flags().StringVar(&block, "block", "", "restrict to one block")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func printRooms(w io.Writer, rooms []domain.Room) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ROOM\tID\tRANGES")
	for _, r := range rooms {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", r.Label(), r.ID, len(r.Ranges))
	}
	fmt.Fprintf(tw, "\n%d available\n", len(rooms))
	return tw.Flush()
}

// notifyRoomsChanged drops the cached room list and tells running API
// instances to refetch it. Redis being down is not an error here.
func notifyRoomsChanged(ctx context.Context, cfg shared.Config, store domain.Store) {
	if cfg.RedisAddr == "" {
		return
	}
	rc := redisad.NewClient(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer rc.Close()

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Msg("redis unavailable; running APIs refresh on their own")
		return
	}
	app.NewCatalog(store, redisad.New(rc, "rooms:"), cfg.CacheTTL).InvalidateRooms(ctx)
	if err := redisad.NewEvents(rc, cfg.EventsChannel).Publish(ctx, domain.CollectionRooms); err != nil {
		log.Warn().Err(err).Msg("publish rooms change failed")
	}
}

func splitBlocks(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
