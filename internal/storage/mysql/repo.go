package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"room_booking/internal/calendar"
	"room_booking/internal/domain"
)

func rangesJSON(rs []calendar.Range) (string, error) {
	if rs == nil {
		rs = []calendar.Range{}
	}
	b, err := json.Marshal(rs)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func parseRanges(b []byte) ([]calendar.Range, error) {
	out := []calendar.Range{}
	if len(b) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode ranges: %w", err)
	}
	if out == nil {
		out = []calendar.Range{}
	}
	return out, nil
}

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

// ---- rooms ----

func (r *Repo) ListRooms(ctx context.Context) ([]domain.Room, error) {
	rows, err := r.db.QueryContext(ctx, listRoomsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Room{}
	for rows.Next() {
		rm, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rm)
	}
	return out, rows.Err()
}

func (r *Repo) GetRoom(ctx context.Context, id string) (domain.Room, error) {
	rm, err := scanRoom(r.db.QueryRowContext(ctx, getRoomSQL, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Room{}, domain.ErrNotFound
	}
	return rm, err
}

type scanner interface{ Scan(dest ...any) error }

func scanRoom(s scanner) (domain.Room, error) {
	var (
		rm  domain.Room
		raw []byte
	)
	if err := s.Scan(&rm.ID, &rm.Block, &rm.Name, &raw); err != nil {
		return domain.Room{}, err
	}
	rs, err := parseRanges(raw)
	if err != nil {
		return domain.Room{}, fmt.Errorf("room %s: %w", rm.ID, err)
	}
	rm.Ranges = rs
	return rm, nil
}

func (r *Repo) CountRooms(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, countRoomsSQL).Scan(&n)
	return n, err
}

func (r *Repo) InsertRooms(ctx context.Context, rooms []domain.Room) error {
	if len(rooms) == 0 {
		return nil
	}
	values := make([]string, 0, len(rooms))
	args := make([]any, 0, len(rooms)*4)
	for _, rm := range rooms {
		rs, err := rangesJSON(rm.Ranges)
		if err != nil {
			return err
		}
		values = append(values, "(?,?,?,?)")
		args = append(args, rm.ID, rm.Block, rm.Name, rs)
	}
	_, err := r.db.ExecContext(ctx, insertRoomsPrefix+strings.Join(values, ","), args...)
	return err
}

func (r *Repo) UpdateRoomRanges(ctx context.Context, id string, ranges []calendar.Range) error {
	rs, err := rangesJSON(ranges)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, updateRoomRangesSQL, rs, id)
	return err
}

// ---- bookings ----

func (r *Repo) ListBookings(ctx context.Context, since calendar.Day) ([]domain.Booking, error) {
	rows, err := r.db.QueryContext(ctx, listBookingsSQL, since.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Booking{}
	for rows.Next() {
		var (
			b        domain.Booking
			from, to string
		)
		if err := rows.Scan(&b.ID, &b.RoomID, &b.Block, &b.RoomName, &from, &to, &b.GuestName, &b.GuestPhone); err != nil {
			return nil, err
		}
		if b.From, err = calendar.ParseDay(from); err != nil {
			return nil, fmt.Errorf("booking %s: %w", b.ID, err)
		}
		if b.To, err = calendar.ParseDay(to); err != nil {
			return nil, fmt.Errorf("booking %s: %w", b.ID, err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *Repo) InsertBooking(ctx context.Context, b domain.Booking) error {
	_, err := r.db.ExecContext(ctx, insertBookingSQL,
		b.ID,
		b.RoomID,
		b.Block,
		b.RoomName,
		b.From.String(),
		b.To.String(),
		b.GuestName,
		b.GuestPhone,
	)
	return err
}

func (r *Repo) DeleteBooking(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, deleteBookingSQL, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ---- blackouts ----

func (r *Repo) ListBlackouts(ctx context.Context) ([]domain.Blackout, error) {
	rows, err := r.db.QueryContext(ctx, listBlackoutsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Blackout{}
	for rows.Next() {
		var (
			b   domain.Blackout
			raw []byte
		)
		if err := rows.Scan(&b.Block, &raw); err != nil {
			return nil, err
		}
		if b.Ranges, err = parseRanges(raw); err != nil {
			return nil, fmt.Errorf("blackout %s: %w", b.Block, err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *Repo) UpsertBlackout(ctx context.Context, b domain.Blackout) error {
	rs, err := rangesJSON(b.Ranges)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, upsertBlackoutSQL, b.Block, rs)
	return err
}

// ---- settings ----

func (r *Repo) GetSetting(ctx context.Context, key string) (domain.Setting, error) {
	var s domain.Setting
	err := r.db.QueryRowContext(ctx, getSettingSQL, key).Scan(&s.Key, &s.Value)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Setting{}, domain.ErrNotFound
	}
	return s, err
}

func (r *Repo) PutSetting(ctx context.Context, s domain.Setting) error {
	_, err := r.db.ExecContext(ctx, putSettingSQL, s.Key, s.Value)
	return err
}
