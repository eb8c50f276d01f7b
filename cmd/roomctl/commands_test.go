package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"room_booking/internal/calendar"
	"room_booking/internal/domain"
	"room_booking/internal/shared"
)

// fakeSupabase serves fixed rooms, bookings and blackouts over PostgREST paths.
func fakeSupabase(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/rest/v1/rooms":
			_, _ = io.WriteString(w, `[
				{"id":"a1","block":"A","name":"01","ranges":[{"from":"2030-01-01","to":"2030-01-31"}]},
				{"id":"a2","block":"A","name":"02","ranges":[{"from":"2030-01-01","to":"2030-01-31"}]},
				{"id":"b1","block":"B","name":"01","ranges":[{"from":"2030-01-01","to":"2030-01-31"}]}]`)
		case "/rest/v1/bookings":
			_, _ = io.WriteString(w, `[{"id":"bk_1","room_id":"a2","block":"A","room_name":"02",
				"from":"2030-01-04","to":"2030-01-06","guest_name":"Ana","guest_phone":"1"}]`)
		case "/rest/v1/blackouts":
			_, _ = io.WriteString(w, `[{"block":"B","ranges":[{"from":"2030-01-02","to":"2030-01-03"}]}]`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(ts.Close)
	return ts
}

func run(t *testing.T, cfg shared.Config, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(cfg)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func testConfig(url string) shared.Config {
	return shared.Config{Store: shared.StoreSupabase, SupabaseURL: url, SupabaseKey: "k", SupabaseRPS: 100}
}

func TestAvailable_JSON(t *testing.T) {
	ts := fakeSupabase(t)
	out, err := run(t, testConfig(ts.URL), "available", "--from", "2030-01-02", "--to", "2030-01-05", "--json")
	if err != nil {
		t.Fatalf("err: %v\n%s", err, out)
	}
	var rooms []domain.Room
	if err := json.Unmarshal([]byte(out), &rooms); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	// a2 is booked, b1 is blacked out
	if len(rooms) != 1 || rooms[0].ID != "a1" {
		t.Fatalf("unexpected rooms: %+v", rooms)
	}
}

func TestAvailable_TableWithBlock(t *testing.T) {
	ts := fakeSupabase(t)
	out, err := run(t, testConfig(ts.URL), "available", "--from", "2030-01-10", "--to", "2030-01-12", "--block", "B")
	if err != nil {
		t.Fatalf("err: %v\n%s", err, out)
	}
	if !strings.Contains(out, "B-01") || strings.Contains(out, "A-01") || !strings.Contains(out, "1 available") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestAvailable_RejectsBadRange(t *testing.T) {
	ts := fakeSupabase(t)
	if _, err := run(t, testConfig(ts.URL), "available", "--from", "2030-01-05", "--to", "2030-01-05"); err == nil {
		t.Fatalf("expected error for empty range")
	}
	if _, err := run(t, testConfig(ts.URL), "available", "--from", "2030-01-05"); err == nil {
		t.Fatalf("expected error for missing --to")
	}
}

func TestMigrate_RefusesRemoteStore(t *testing.T) {
	if _, err := run(t, testConfig("http://unused.test"), "migrate"); err == nil {
		t.Fatalf("expected error for supabase store")
	}
}

func TestSetPIN_RequiresArg(t *testing.T) {
	if _, err := run(t, testConfig("http://unused.test"), "set-pin"); err == nil {
		t.Fatalf("expected arg error")
	}
}

func TestPrintRooms(t *testing.T) {
	var buf bytes.Buffer
	rooms := []domain.Room{{ID: "x", Block: "C", Name: "07", Ranges: []calendar.Range{}}}
	if err := printRooms(&buf, rooms); err != nil {
		t.Fatalf("err: %v", err)
	}
	if !strings.Contains(buf.String(), "C-07") {
		t.Fatalf("unexpected output: %s", buf.String())
	}
}

func TestSplitBlocks(t *testing.T) {
	got := splitBlocks(" A, ,B,")
	if len(got) != 2 || got[0] != "A" || got[1] != "B" {
		t.Fatalf("got %v", got)
	}
}
