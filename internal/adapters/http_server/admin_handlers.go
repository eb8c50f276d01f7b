package httpserver

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"room_booking/internal/app"
	"room_booking/internal/calendar"
	"room_booking/internal/domain"
)

type AdminHandlers struct {
	A *app.AdminService
	Q *app.QueryService

	SeedBlocks   []string
	SeedPerBlock int
}

type loginReq struct {
	PIN string `json:"pin"`
}

type loginResp struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type seedResp struct {
	Inserted int `json:"inserted"`
}

func (s *Server) MountAdmin(a *AdminHandlers) {
	s.mux.With(RateLimit(time.Second, 5)).Post("/v1/admin/login", a.login)

	s.mux.Group(func(r chi.Router) {
		r.Use(RequireAdmin(a.A.VerifyToken))

		r.Post("/v1/admin/rooms/{id}/ranges", a.addRange)
		r.Put("/v1/admin/rooms/{id}/ranges", a.replaceRanges)
		r.Delete("/v1/admin/rooms/{id}/ranges/{index}", a.deleteRange)
		r.Post("/v1/admin/rooms/{id}/ranges/merge", a.mergeRanges)

		r.Get("/v1/admin/blackouts", a.listBlackouts)
		r.Put("/v1/admin/blackouts/{block}", a.setBlackout)

		r.Post("/v1/admin/seed", a.seed)
		r.Put("/v1/admin/pin", a.setPIN)
	})
}

func (a *AdminHandlers) login(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	tok, exp, err := a.A.Login(r.Context(), req.PIN)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResp{Token: tok, ExpiresAt: exp.UTC()})
}

// ---- room ranges ----

func (a *AdminHandlers) addRange(w http.ResponseWriter, r *http.Request) {
	var rng calendar.Range
	if err := decodeJSON(w, r, &rng); err != nil {
		writeError(w, err)
		return
	}
	room, err := a.A.AddRange(r.Context(), chi.URLParam(r, "id"), rng)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

func (a *AdminHandlers) replaceRanges(w http.ResponseWriter, r *http.Request) {
	var ranges []calendar.Range
	if err := decodeJSON(w, r, &ranges); err != nil {
		writeError(w, err)
		return
	}
	room, err := a.A.ReplaceRanges(r.Context(), chi.URLParam(r, "id"), ranges)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

func (a *AdminHandlers) deleteRange(w http.ResponseWriter, r *http.Request) {
	idx, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, fmt.Errorf("%w: index must be an integer", domain.ErrValidation))
		return
	}
	room, err := a.A.DeleteRange(r.Context(), chi.URLParam(r, "id"), idx)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

func (a *AdminHandlers) mergeRanges(w http.ResponseWriter, r *http.Request) {
	room, err := a.A.MergeRanges(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

// ---- blackouts ----

func (a *AdminHandlers) listBlackouts(w http.ResponseWriter, r *http.Request) {
	writeCached(w, r, a.Q.Blackouts())
}

func (a *AdminHandlers) setBlackout(w http.ResponseWriter, r *http.Request) {
	var ranges []calendar.Range
	if err := decodeJSON(w, r, &ranges); err != nil {
		writeError(w, err)
		return
	}
	b, err := a.A.SetBlackout(r.Context(), chi.URLParam(r, "block"), ranges)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// ---- maintenance ----

func (a *AdminHandlers) seed(w http.ResponseWriter, r *http.Request) {
	n, err := a.A.Seed(r.Context(), a.SeedBlocks, a.SeedPerBlock)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, seedResp{Inserted: n})
}

func (a *AdminHandlers) setPIN(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := a.A.SetPIN(r.Context(), req.PIN); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
