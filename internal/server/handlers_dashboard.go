package server

import (
	"net/http"
	"strconv"
)

const (
	defaultHistoryDays = 30
	maxHistoryDays     = 365
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)

	total, err := s.svc.TotalMomentum(uid)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	habits, err := s.svc.ListHabits(uid)
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

	writeJSON(w, http.StatusOK, map[string]any{
		"total_momentum": total,
		"habits":         out,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	days := defaultHistoryDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxHistoryDays {
			jsonError(w, http.StatusBadRequest, "days must be between 1 and 365")
			return
		}
		days = n
	}

	series, err := s.svc.History(userID(r), days)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"days":   days,
		"series": series,
	})
}
