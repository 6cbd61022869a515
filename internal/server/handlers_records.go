package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lazypower/cadence/internal/store"
)

type recordResponse struct {
	Date      string `json:"date"`
	Completed int    `json:"completed"`
	Momentum  int    `json:"momentum"`
}

func toRecordResponse(r *store.Record) recordResponse {
	return recordResponse{Date: r.Date, Completed: r.Completed, Momentum: r.Momentum}
}

func (s *Server) handleUpsertRecord(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Date      string `json:"date"`
		Completed *int   `json:"completed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid json")
		return
	}

	// Omitting completed means "log one completion".
	completed := 1
	if req.Completed != nil {
		completed = *req.Completed
	}

	rec, err := s.svc.RecordCompletion(userID(r), chi.URLParam(r, "habitID"), req.Date, completed)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRecordResponse(rec))
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	if from == "" || to == "" {
		jsonError(w, http.StatusBadRequest, "from and to query parameters required")
		return
	}

	recs, err := s.svc.RecordsInRange(userID(r), chi.URLParam(r, "habitID"), from, to)
	if err != nil {
		s.serviceError(w, err)
		return
	}

	out := make([]recordResponse, 0, len(recs))
	for i := range recs {
		out = append(out, toRecordResponse(&recs[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": out})
}
