package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/meltforce/fittrack/internal/models"
	"github.com/meltforce/fittrack/internal/storage"
)

func (s *Server) handleListWorkouts(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())

	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	if (from == "") != (to == "") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "from and to must be given together"})
		return
	}
	if from != "" {
		for _, d := range []string{from, to} {
			if _, err := time.Parse(models.DateLayout, d); err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("dates must be YYYY-MM-DD: %q", d)})
				return
			}
		}
	}

	workouts, err := s.store.ListWorkouts(r.Context(), userID, from, to)
	if err != nil {
		s.log.Error("list workouts", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	if workouts == nil {
		workouts = []models.Workout{}
	}
	writeJSON(w, http.StatusOK, workouts)
}

func (s *Server) handleGetWorkout(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid workout ID"})
		return
	}

	workout, err := s.store.GetWorkout(r.Context(), id, userID)
	if errors.Is(err, storage.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "workout not found"})
		return
	}
	if err != nil {
		s.log.Error("get workout", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, workout)
}

func (s *Server) handleCreateWorkout(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())

	var req models.CreateWorkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	workout, err := s.store.CreateWorkout(r.Context(), userID, req)
	if errors.Is(err, storage.ErrInvalidReference) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err != nil {
		s.log.Error("create workout", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusCreated, workout)
}

func (s *Server) handleUpdateWorkout(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid workout ID"})
		return
	}

	var req models.UpdateWorkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	workout, err := s.store.UpdateWorkout(r.Context(), id, userID, req)
	if errors.Is(err, storage.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "workout not found"})
		return
	}
	if err != nil {
		s.log.Error("update workout", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, workout)
}

func (s *Server) handleDeleteWorkout(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid workout ID"})
		return
	}

	err = s.store.DeleteWorkout(r.Context(), id, userID)
	if errors.Is(err, storage.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "workout not found"})
		return
	}
	if err != nil {
		s.log.Error("delete workout", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSyncWorkouts accepts a batch of client-authored workouts and
// persists what it can. One item's failure is logged and skipped, never
// aborting its siblings; the response reports only the success count.
func (s *Server) handleSyncWorkouts(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())

	var req models.SyncWorkoutsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	synced := 0
	for i, item := range req.Workouts {
		if err := item.Validate(); err != nil {
			s.log.Warn("sync item rejected", "index", i, "error", err)
			continue
		}
		if _, err := s.store.CreateWorkout(r.Context(), userID, item); err != nil {
			s.log.Warn("sync item failed", "index", i, "error", err)
			continue
		}
		synced++
	}

	writeJSON(w, http.StatusOK, models.SyncWorkoutsResponse{Synced: synced})
}
