package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/promptvault/promptvault/internal/models"
	"github.com/promptvault/promptvault/internal/store"
)

type ExecutionHandler struct {
	backend store.Backend
}

func NewExecutionHandler(backend store.Backend) *ExecutionHandler {
	return &ExecutionHandler{backend: backend}
}

func (h *ExecutionHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.ExecutionFilter{
		Capability: q.Get("capability"),
		Provider:   q.Get("provider"),
		Model:      q.Get("model"),
	}
	if v := q.Get("prompt_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid prompt_id"})
			return
		}
		filter.PromptID = &id
	}
	if v := q.Get("success"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid success"})
			return
		}
		filter.Success = &b
	}
	var parseErr error
	filter.Since, parseErr = timeParam(q.Get("since"))
	if parseErr != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid since"})
		return
	}
	filter.Until, parseErr = timeParam(q.Get("until"))
	if parseErr != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid until"})
		return
	}
	page := pageFromQuery(r)

	var execs []*models.Execution
	var total int64
	err := h.backend.UnitOfWork(r.Context(), func(uow store.UnitOfWork) error {
		var err error
		execs, total, err = uow.Executions().List(r.Context(), filter, page)
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"executions": execs,
		"count":      len(execs),
		"total":      total,
	})
}

func (h *ExecutionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid execution ID"})
		return
	}

	var exec *models.Execution
	err = h.backend.UnitOfWork(r.Context(), func(uow store.UnitOfWork) error {
		var err error
		exec, err = uow.Executions().Get(r.Context(), id)
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, exec)
}

func (h *ExecutionHandler) Usage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, err := timeParam(q.Get("start"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid start"})
		return
	}
	end, err := timeParam(q.Get("end"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid end"})
		return
	}

	var stats *models.UsageStats
	err = h.backend.UnitOfWork(r.Context(), func(uow store.UnitOfWork) error {
		var err error
		stats, err = uow.Executions().UsageStats(r.Context(), start, end)
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

func timeParam(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
