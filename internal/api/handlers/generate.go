package handlers

import (
	"encoding/json"
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/promptvault/promptvault/internal/llm"
)

type GenerateHandler struct {
	gateway *llm.Gateway
}

func NewGenerateHandler(gw *llm.Gateway) *GenerateHandler {
	return &GenerateHandler{gateway: gw}
}

func (h *GenerateHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req llm.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	req.RequestID = chimiddleware.GetReqID(r.Context())

	resp, err := h.gateway.Generate(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *GenerateHandler) Providers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"providers": h.gateway.Providers()})
}
