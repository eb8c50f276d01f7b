// Package supabase implements domain.Store over the Supabase REST (PostgREST) API.
package supabase

import (
	"bytes"
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"room_booking/internal/adapters/observability"
	"room_booking/internal/calendar"
	"room_booking/internal/domain"
)

const maxAttempts = 4

var (
	ErrUnauthorized = errors.New("supabase: unauthorized")
	ErrConflict     = errors.New("supabase: conflict")
)

type Client struct {
	base string // https://<project>.supabase.co/rest/v1
	hc   *http.Client
	key  string
	rl   *rate.Limiter
}

// New returns a client for the project at projectURL using the anon key.
func New(projectURL, key string, rps int) (*Client, error) {
	if projectURL == "" {
		return nil, fmt.Errorf("supabase URL is required")
	}
	if key == "" {
		return nil, fmt.Errorf("supabase key is required")
	}
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		base: strings.TrimRight(projectURL, "/") + "/rest/v1",
		hc:   &http.Client{Timeout: 20 * time.Second},
		key:  key,
		rl:   rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

// ---- rooms ----

func (c *Client) ListRooms(ctx context.Context) ([]domain.Room, error) {
	var out []domain.Room
	_, err := c.do(ctx, request{
		method: http.MethodGet,
		table:  "rooms",
		query:  url.Values{"select": {"*"}, "order": {"block.asc,name.asc"}},
	}, &out)
	if err != nil {
		return nil, err
	}
	return normaliseRooms(out), nil
}

func (c *Client) GetRoom(ctx context.Context, id string) (domain.Room, error) {
	var out []domain.Room
	_, err := c.do(ctx, request{
		method: http.MethodGet,
		table:  "rooms",
		query:  url.Values{"select": {"*"}, "id": {"eq." + id}},
	}, &out)
	if err != nil {
		return domain.Room{}, err
	}
	if len(out) == 0 {
		return domain.Room{}, domain.ErrNotFound
	}
	return normaliseRooms(out)[0], nil
}

func (c *Client) CountRooms(ctx context.Context) (int, error) {
	var out []struct{}
	h, err := c.do(ctx, request{
		method: http.MethodGet,
		table:  "rooms",
		query:  url.Values{"select": {"id"}, "limit": {"1"}},
		prefer: "count=exact",
	}, &out)
	if err != nil {
		return 0, err
	}
	return parseCount(h.Get("Content-Range"))
}

func (c *Client) InsertRooms(ctx context.Context, rooms []domain.Room) error {
	if len(rooms) == 0 {
		return nil
	}
	_, err := c.do(ctx, request{
		method: http.MethodPost,
		table:  "rooms",
		body:   normaliseRooms(rooms),
		prefer: "return=minimal",
	}, nil)
	return err
}

func (c *Client) UpdateRoomRanges(ctx context.Context, id string, ranges []calendar.Range) error {
	if ranges == nil {
		ranges = []calendar.Range{}
	}
	_, err := c.do(ctx, request{
		method: http.MethodPatch,
		table:  "rooms",
		query:  url.Values{"id": {"eq." + id}},
		body:   map[string]any{"ranges": ranges},
		prefer: "return=minimal",
	}, nil)
	return err
}

// ---- bookings ----

func (c *Client) ListBookings(ctx context.Context, since calendar.Day) ([]domain.Booking, error) {
	out := []domain.Booking{}
	_, err := c.do(ctx, request{
		method: http.MethodGet,
		table:  "bookings",
		query: url.Values{
			"select": {"*"},
			"to":     {"gte." + since.String()},
			"order":  {"from.asc"},
		},
	}, &out)
	return out, err
}

func (c *Client) InsertBooking(ctx context.Context, b domain.Booking) error {
	_, err := c.do(ctx, request{
		method: http.MethodPost,
		table:  "bookings",
		body:   b,
		prefer: "return=minimal",
	}, nil)
	return err
}

func (c *Client) DeleteBooking(ctx context.Context, id string) error {
	var gone []struct {
		ID string `json:"id"`
	}
	_, err := c.do(ctx, request{
		method: http.MethodDelete,
		table:  "bookings",
		query:  url.Values{"id": {"eq." + id}, "select": {"id"}},
		prefer: "return=representation",
	}, &gone)
	if err != nil {
		return err
	}
	if len(gone) == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ---- blackouts ----

func (c *Client) ListBlackouts(ctx context.Context) ([]domain.Blackout, error) {
	out := []domain.Blackout{}
	_, err := c.do(ctx, request{
		method: http.MethodGet,
		table:  "blackouts",
		query:  url.Values{"select": {"*"}, "order": {"block.asc"}},
	}, &out)
	if err != nil {
		return nil, err
	}
	for i := range out {
		if out[i].Ranges == nil {
			out[i].Ranges = []calendar.Range{}
		}
	}
	return out, nil
}

func (c *Client) UpsertBlackout(ctx context.Context, b domain.Blackout) error {
	if b.Ranges == nil {
		b.Ranges = []calendar.Range{}
	}
	_, err := c.do(ctx, request{
		method: http.MethodPost,
		table:  "blackouts",
		query:  url.Values{"on_conflict": {"block"}},
		body:   b,
		prefer: "resolution=merge-duplicates,return=minimal",
	}, nil)
	return err
}

// ---- settings ----

func (c *Client) GetSetting(ctx context.Context, key string) (domain.Setting, error) {
	var out []domain.Setting
	_, err := c.do(ctx, request{
		method: http.MethodGet,
		table:  "settings",
		query:  url.Values{"select": {"*"}, "key": {"eq." + key}},
	}, &out)
	if err != nil {
		return domain.Setting{}, err
	}
	if len(out) == 0 {
		return domain.Setting{}, domain.ErrNotFound
	}
	return out[0], nil
}

func (c *Client) PutSetting(ctx context.Context, s domain.Setting) error {
	_, err := c.do(ctx, request{
		method: http.MethodPost,
		table:  "settings",
		query:  url.Values{"on_conflict": {"key"}},
		body:   s,
		prefer: "resolution=merge-duplicates,return=minimal",
	}, nil)
	return err
}

// ---- internals ----

type request struct {
	method string
	table  string
	query  url.Values
	body   any
	prefer string
}

// do sends r with per-attempt client-side rate limiting and retries, decoding a JSON
// response into out when out is non-nil. 429 and 502-504 are retried for
// every method, 500 only when the method is not POST. Retry-After wins over
// backoff.
func (c *Client) do(ctx context.Context, r request, out any) (http.Header, error) {
	u := c.base + "/" + r.table
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}
	var payload []byte
	if r.body != nil {
		b, err := json.Marshal(r.body)
		if err != nil {
			return nil, fmt.Errorf("encode %s body: %w", r.table, err)
		}
		payload = b
	}

	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		// every attempt, retries included, draws from the limiter
		if err := c.rl.Wait(ctx); err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, r.method, u, bodyReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("apikey", c.key)
		req.Header.Set("Authorization", "Bearer "+c.key)
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "room-booking/1.0")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if r.prefer != "" {
			req.Header.Set("Prefer", r.prefer)
		}

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			observability.ObserveExternal("supabase", r.table, 0, time.Since(start))
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			if i < maxAttempts-1 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, lastErr
		}
		observability.ObserveExternal("supabase", r.table, resp.StatusCode, time.Since(start))

		switch code := resp.StatusCode; {
		case code == http.StatusNoContent:
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return resp.Header, nil

		case code >= 200 && code < 300:
			defer resp.Body.Close()
			if out == nil {
				io.Copy(io.Discard, resp.Body)
				return resp.Header, nil
			}
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("decode %s: %w", r.table, err)
			}
			return resp.Header, nil

		case code == http.StatusNotFound:
			resp.Body.Close()
			return nil, domain.ErrNotFound

		case code == http.StatusUnauthorized, code == http.StatusForbidden:
			resp.Body.Close()
			return nil, ErrUnauthorized

		case code == http.StatusConflict:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return nil, fmt.Errorf("%w: %s", ErrConflict, strings.TrimSpace(string(b)))

		case retryable(r.method, code):
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = fmt.Errorf("supabase %s %s: status %d", r.method, r.table, code)
			if i < maxAttempts-1 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, lastErr

		default:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return nil, fmt.Errorf("supabase %s %s: status %d: %s", r.method, r.table, code, strings.TrimSpace(string(b)))
		}
	}
	return nil, lastErr
}

func retryable(method string, code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	case http.StatusInternalServerError:
		// an insert may have landed before the 500
		return method != http.MethodPost
	}
	return false
}

func bodyReader(b []byte) io.Reader {
	if b == nil {
		return nil
	}
	return bytes.NewReader(b)
}

func normaliseRooms(rs []domain.Room) []domain.Room {
	for i := range rs {
		if rs[i].Ranges == nil {
			rs[i].Ranges = []calendar.Range{}
		}
	}
	return rs
}

// parseCount reads the total from a Content-Range header such as "0-0/150" or "*/0".
func parseCount(h string) (int, error) {
	i := strings.LastIndexByte(h, '/')
	if i < 0 {
		return 0, fmt.Errorf("content-range %q has no total", h)
	}
	n, err := strconv.Atoi(h[i+1:])
	if err != nil {
		return 0, fmt.Errorf("content-range %q: %w", h, err)
	}
	return n, nil
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After as seconds or an HTTP date; 0 when absent.
func retryAfter(resp *http.Response) time.Duration {
	h := strings.TrimSpace(resp.Header.Get("Retry-After"))
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(h); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff doubles from 200ms per attempt with up to 50% jitter.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	return base + time.Duration(float64(b[0])/255.0*0.5*float64(base))
}
