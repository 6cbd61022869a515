package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lazypower/cadence/internal/store"
)

type habitResponse struct {
	ID                  string `json:"id"`
	Name                string `json:"name"`
	Kind                string `json:"kind"`
	TargetCount         int    `json:"target_count,omitempty"`
	Archived            bool   `json:"archived"`
	AccumulatedMomentum int    `json:"accumulated_momentum"`
	CurrentMomentum     int    `json:"current_momentum"`
}

func (s *Server) habitResponse(h *store.Habit) (habitResponse, error) {
	current, err := s.svc.CurrentMomentum(h)
	if err != nil {
		return habitResponse{}, err
	}
	return habitResponse{
		ID:                  h.ID,
		Name:                h.Name,
		Kind:                h.Kind,
		TargetCount:         h.TargetCount,
		Archived:            h.Archived(),
		AccumulatedMomentum: h.AccumulatedMomentum,
		CurrentMomentum:     current,
	}, nil
}

func (s *Server) handleCreateHabit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		Kind        string `json:"kind"`
		TargetCount int    `json:"target_count"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid json")
		return
	}

	habit, err := s.svc.CreateHabit(userID(r), req.Name, req.Kind, req.TargetCount)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	resp, err := s.habitResponse(habit)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListHabits(w http.ResponseWriter, r *http.Request) {
	habits, err := s.svc.ListHabits(userID(r))
	if err != nil {
		s.serviceError(w, err)
		return
	}

	out := make([]habitResponse, 0, len(habits))
	for i := range habits {
		resp, err := s.habitResponse(&habits[i])
		if err != nil {
			s.serviceError(w, err)
			return
		}
		out = append(out, resp)
	}
	writeJSON(w, http.StatusOK, map[string]any{"habits": out})
}

func (s *Server) handleGetHabit(w http.ResponseWriter, r *http.Request) {
	habit, err := s.svc.GetHabit(userID(r), chi.URLParam(r, "habitID"))
	if err != nil {
		s.serviceError(w, err)
		return
	}
	resp, err := s.habitResponse(habit)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleArchiveHabit(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.ArchiveHabit(userID(r), chi.URLParam(r, "habitID")); err != nil {
		s.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "archived"})
}
