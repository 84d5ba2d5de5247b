package monitor

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/me/nanokern/pkg/model"
)

func (m *Monitor) handleListRuns(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	if m.store == nil {
		respondError(w, reqID, http.StatusNotFound, &model.APIError{
			Code: "store_disabled", Message: "trace store is not configured",
		})
		return
	}
	limit := queryInt(r, "limit", 50)
	runs, err := m.store.ListRuns(r.Context(), limit)
	if err != nil {
		m.logger.Error("list runs", "error", err)
		respondError(w, reqID, http.StatusInternalServerError, &model.APIError{
			Code: "store_error", Message: err.Error(),
		})
		return
	}
	respondOK(w, reqID, runs)
}

func (m *Monitor) handleGetRun(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	if m.store == nil {
		respondError(w, reqID, http.StatusNotFound, &model.APIError{
			Code: "store_disabled", Message: "trace store is not configured",
		})
		return
	}
	id := chi.URLParam(r, "id")
	run, err := m.store.GetRun(r.Context(), id)
	if err != nil {
		m.logger.Error("get run", "id", id, "error", err)
		respondError(w, reqID, http.StatusInternalServerError, &model.APIError{
			Code: "store_error", Message: err.Error(),
		})
		return
	}
	if run == nil {
		respondError(w, reqID, http.StatusNotFound, &model.APIError{
			Code: "not_found", Message: "run " + id + " not found",
		})
		return
	}
	respondOK(w, reqID, run)
}

func (m *Monitor) handleListEvents(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	if m.store == nil {
		respondError(w, reqID, http.StatusNotFound, &model.APIError{
			Code: "store_disabled", Message: "trace store is not configured",
		})
		return
	}
	id := chi.URLParam(r, "id")
	limit := queryInt(r, "limit", 1000)
	events, err := m.store.ListEvents(r.Context(), id, limit)
	if err != nil {
		m.logger.Error("list events", "id", id, "error", err)
		respondError(w, reqID, http.StatusInternalServerError, &model.APIError{
			Code: "store_error", Message: err.Error(),
		})
		return
	}
	respondOK(w, reqID, events)
}

// queryInt parses an integer query parameter, falling back to def.
func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return def
	}
	return n
}
