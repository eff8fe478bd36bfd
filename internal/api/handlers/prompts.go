package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/promptvault/promptvault/internal/models"
	"github.com/promptvault/promptvault/internal/store"
)

type PromptHandler struct {
	backend store.Backend
}

func NewPromptHandler(backend store.Backend) *PromptHandler {
	return &PromptHandler{backend: backend}
}

func (h *PromptHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreatePrompt
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	var created *models.Prompt
	err := h.backend.UnitOfWork(r.Context(), func(uow store.UnitOfWork) error {
		var err error
		created, err = uow.Prompts().Create(r.Context(), req)
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (h *PromptHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.PromptFilter{
		Category: models.Category(q.Get("category")),
		Tag:      q.Get("tag"),
	}
	if v := q.Get("is_system"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid is_system"})
			return
		}
		filter.IsSystem = &b
	}
	if v := q.Get("include_deleted"); v != "" {
		filter.IncludeDeleted, _ = strconv.ParseBool(v)
	}
	page := pageFromQuery(r)

	var prompts []*models.Prompt
	var total int64
	err := h.backend.UnitOfWork(r.Context(), func(uow store.UnitOfWork) error {
		var err error
		prompts, total, err = uow.Prompts().List(r.Context(), filter, page)
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"prompts": prompts,
		"count":   len(prompts),
		"total":   total,
	})
}

func (h *PromptHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid prompt ID"})
		return
	}

	var p *models.Prompt
	err = h.backend.UnitOfWork(r.Context(), func(uow store.UnitOfWork) error {
		var err error
		p, err = uow.Prompts().Get(r.Context(), id)
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, p)
}

func (h *PromptHandler) GetBySlug(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	var p *models.Prompt
	err := h.backend.UnitOfWork(r.Context(), func(uow store.UnitOfWork) error {
		var err error
		p, err = uow.Prompts().GetBySlug(r.Context(), slug)
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, p)
}

func (h *PromptHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid prompt ID"})
		return
	}

	var req models.UpdatePrompt
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	var updated *models.Prompt
	err = h.backend.UnitOfWork(r.Context(), func(uow store.UnitOfWork) error {
		var err error
		updated, err = uow.Prompts().Update(r.Context(), id, req)
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

func (h *PromptHandler) ListVersions(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid prompt ID"})
		return
	}

	var versions []*models.PromptVersion
	err = h.backend.UnitOfWork(r.Context(), func(uow store.UnitOfWork) error {
		var err error
		versions, err = uow.Prompts().ListVersions(r.Context(), id)
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"versions": versions, "count": len(versions)})
}

func (h *PromptHandler) GetVersion(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid prompt ID"})
		return
	}
	version, err := strconv.Atoi(chi.URLParam(r, "version"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid version"})
		return
	}

	var v *models.PromptVersion
	err = h.backend.UnitOfWork(r.Context(), func(uow store.UnitOfWork) error {
		var err error
		v, err = uow.Prompts().GetVersion(r.Context(), id, version)
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, v)
}

func (h *PromptHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid prompt ID"})
		return
	}

	err = h.backend.UnitOfWork(r.Context(), func(uow store.UnitOfWork) error {
		return uow.Prompts().Delete(r.Context(), id)
	})
	if err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func pageFromQuery(r *http.Request) store.Page {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	return store.Page{Limit: limit, Offset: offset}
}
