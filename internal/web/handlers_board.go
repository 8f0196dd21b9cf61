package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/JonMunkholm/dispatch/internal/core"
	"github.com/go-chi/chi/v5"
)

const maxJSONBody = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errInvalidBody, err)
	}
	return nil
}

func (s *Server) handleListDrivers(w http.ResponseWriter, r *http.Request) {
	drivers, err := s.service.ListDrivers(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, drivers)
}

func (s *Server) handleCreateDriver(w http.ResponseWriter, r *http.Request) {
	var in core.DriverInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.respondError(w, r, err)
		return
	}

	d, err := s.service.CreateDriver(r.Context(), in)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (s *Server) handleUpdateDriver(w http.ResponseWriter, r *http.Request) {
	var in core.DriverInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.respondError(w, r, err)
		return
	}

	d, err := s.service.UpdateDriver(r.Context(), chi.URLParam(r, "driverID"), in)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleDeleteDriver(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteDriver(r.Context(), chi.URLParam(r, "driverID")); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleListStops returns the board for ?date=YYYY-MM-DD, today by default.
func (s *Server) handleListStops(w http.ResponseWriter, r *http.Request) {
	stops, err := s.service.ListStops(r.Context(), r.URL.Query().Get("date"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stops)
}

type assignRequest struct {
	DriverID string `json:"driverId"`
	Slot     string `json:"slot"`
}

func (s *Server) handleAssignStop(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	stop, err := s.service.AssignStop(r.Context(), chi.URLParam(r, "stopID"), req.DriverID, req.Slot)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stop)
}

func (s *Server) handleDeleteStop(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteStop(r.Context(), chi.URLParam(r, "stopID")); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleHealth reports whether the database answers within two seconds.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.service.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
