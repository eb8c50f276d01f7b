//go:build integration || !unit

package mysql_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	_ "github.com/go-sql-driver/mysql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"

	"room_booking/internal/calendar"
	"room_booking/internal/domain"
	mysqlrepo "room_booking/internal/storage/mysql"
)

func rng(from, to string) calendar.Range {
	return calendar.Range{From: calendar.MustParseDay(from), To: calendar.MustParseDay(to)}
}

// startMySQL runs an isolated MySQL and applies the embedded migrations.
func startMySQL(t *testing.T) *sql.DB {
	t.Helper()
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Fatalf("dockertest: %v", err)
	}
	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env: []string{
			"MYSQL_ROOT_PASSWORD=root",
			"MYSQL_DATABASE=rooms",
		},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	dsn := fmt.Sprintf("root:root@tcp(127.0.0.1:%s)/rooms?parseTime=true&charset=utf8mb4,utf8&loc=UTC",
		resource.GetPort("3306/tcp"))

	var db *sql.DB
	if err := pool.Retry(func() error {
		var e error
		db, e = sql.Open("mysql", dsn)
		if e != nil {
			return e
		}
		return db.Ping()
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := mysqlrepo.Migrate(context.Background(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestRepo_MySQL_RoomsBookingsBlackoutsSettings(t *testing.T) {
	db := startMySQL(t)
	repo := mysqlrepo.New(db)
	ctx := context.Background()

	// rooms
	if n, err := repo.CountRooms(ctx); err != nil || n != 0 {
		t.Fatalf("CountRooms on empty: %d %v", n, err)
	}
	rooms := []domain.Room{
		{ID: "r-b01", Block: "B", Name: "01"},
		{ID: "r-a02", Block: "A", Name: "02", Ranges: []calendar.Range{rng("2024-01-01", "2024-01-31")}},
		{ID: "r-a01", Block: "A", Name: "01"},
	}
	if err := repo.InsertRooms(ctx, rooms); err != nil {
		t.Fatalf("InsertRooms: %v", err)
	}
	got, err := repo.ListRooms(ctx)
	if err != nil {
		t.Fatalf("ListRooms: %v", err)
	}
	if len(got) != 3 || got[0].ID != "r-a01" || got[1].ID != "r-a02" || got[2].ID != "r-b01" {
		t.Fatalf("unexpected order: %+v", got)
	}
	if got[0].Ranges == nil || len(got[0].Ranges) != 0 {
		t.Fatalf("expected empty non-nil ranges, got %#v", got[0].Ranges)
	}
	if len(got[1].Ranges) != 1 || got[1].Ranges[0].String() != "2024-01-01→2024-01-31" {
		t.Fatalf("ranges round-trip: %+v", got[1].Ranges)
	}

	next := []calendar.Range{rng("2024-02-01", "2024-02-10"), rng("2024-03-01", "2024-03-05")}
	if err := repo.UpdateRoomRanges(ctx, "r-a01", next); err != nil {
		t.Fatalf("UpdateRoomRanges: %v", err)
	}
	rm, err := repo.GetRoom(ctx, "r-a01")
	if err != nil || len(rm.Ranges) != 2 || rm.Ranges[1].From.String() != "2024-03-01" {
		t.Fatalf("GetRoom after update: %+v %v", rm, err)
	}
	if _, err := repo.GetRoom(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	// bookings
	past := domain.Booking{ID: "bk_1", RoomID: "r-a02", Block: "A", RoomName: "02",
		From: calendar.MustParseDay("2023-12-01"), To: calendar.MustParseDay("2023-12-03"), GuestName: "Ana", GuestPhone: "1"}
	later := domain.Booking{ID: "bk_2", RoomID: "r-a02", Block: "A", RoomName: "02",
		From: calendar.MustParseDay("2024-01-20"), To: calendar.MustParseDay("2024-01-22"), GuestName: "Bob", GuestPhone: "2"}
	sooner := domain.Booking{ID: "bk_3", RoomID: "r-a02", Block: "A", RoomName: "02",
		From: calendar.MustParseDay("2024-01-05"), To: calendar.MustParseDay("2024-01-07"), GuestName: "Cy", GuestPhone: "3"}
	for _, b := range []domain.Booking{past, later, sooner} {
		if err := repo.InsertBooking(ctx, b); err != nil {
			t.Fatalf("InsertBooking %s: %v", b.ID, err)
		}
	}
	bs, err := repo.ListBookings(ctx, calendar.MustParseDay("2024-01-01"))
	if err != nil {
		t.Fatalf("ListBookings: %v", err)
	}
	if len(bs) != 2 || bs[0].ID != "bk_3" || bs[1].ID != "bk_2" {
		t.Fatalf("expected current bookings ordered by from, got %+v", bs)
	}
	if bs[0].From.String() != "2024-01-05" || bs[0].To.String() != "2024-01-07" || bs[0].GuestName != "Cy" {
		t.Fatalf("booking round-trip: %+v", bs[0])
	}
	if err := repo.DeleteBooking(ctx, "bk_3"); err != nil {
		t.Fatalf("DeleteBooking: %v", err)
	}
	if err := repo.DeleteBooking(ctx, "bk_3"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}

	// blackouts
	if err := repo.UpsertBlackout(ctx, domain.Blackout{Block: "A", Ranges: []calendar.Range{rng("2024-01-10", "2024-01-12")}}); err != nil {
		t.Fatalf("UpsertBlackout: %v", err)
	}
	if err := repo.UpsertBlackout(ctx, domain.Blackout{Block: "A", Ranges: []calendar.Range{rng("2024-05-01", "2024-05-02")}}); err != nil {
		t.Fatalf("UpsertBlackout replace: %v", err)
	}
	bl, err := repo.ListBlackouts(ctx)
	if err != nil || len(bl) != 1 || bl[0].Ranges[0].From.String() != "2024-05-01" {
		t.Fatalf("ListBlackouts: %+v %v", bl, err)
	}

	// settings
	if _, err := repo.GetSetting(ctx, domain.SettingAdminPIN); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unset pin, got %v", err)
	}
	for _, v := range []string{"first", "second"} {
		if err := repo.PutSetting(ctx, domain.Setting{Key: domain.SettingAdminPIN, Value: v}); err != nil {
			t.Fatalf("PutSetting: %v", err)
		}
	}
	st, err := repo.GetSetting(ctx, domain.SettingAdminPIN)
	if err != nil || st.Value != "second" {
		t.Fatalf("GetSetting: %+v %v", st, err)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	db := startMySQL(t)
	if err := mysqlrepo.Migrate(context.Background(), db); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}
