package localidade

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	httpmiddleware "github.com/agendacidade/api/internal/http/middleware"
)

// Handler orquestra rotas de localidades de origem e bairros.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterPublicRoutes registra rotas de consulta acessíveis ao cidadão.
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/localidades-origem", h.handleListLocalidades)
	r.Get("/localidades-origem/{id}/bairros", h.handleListBairros)
}

// RegisterAdminRoutes registra o CRUD restrito ao backoffice.
func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Post("/localidades-origem", h.handleCreateLocalidade)
	r.Delete("/localidades-origem/{id}", h.handleDeleteLocalidade)
	r.Post("/bairros", h.handleCreateBairro)
	r.Delete("/bairros/{id}", h.handleDeleteBairro)
}

func (h *Handler) handleListLocalidades(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenant := httpmiddleware.GetPrefeitura(ctx)

	localidades, err := h.service.ListLocalidades(ctx, tenant.ID)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"localidades": localidades})
}

func (h *Handler) handleListBairros(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenant := httpmiddleware.GetPrefeitura(ctx)

	localidadeID, ok := parseUUID(w, r)
	if !ok {
		return
	}

	bairros, err := h.service.ListBairros(ctx, tenant.ID, localidadeID)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"bairros": bairros})
}

func (h *Handler) handleCreateLocalidade(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenant := httpmiddleware.GetPrefeitura(ctx)

	var input LocalidadeInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "payload inválido", nil)
		return
	}

	localidade, err := h.service.CreateLocalidade(ctx, tenant.ID, input)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"localidade": localidade})
}

func (h *Handler) handleDeleteLocalidade(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenant := httpmiddleware.GetPrefeitura(ctx)

	id, ok := parseUUID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteLocalidade(ctx, tenant.ID, id); err != nil {
		handleDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleCreateBairro(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenant := httpmiddleware.GetPrefeitura(ctx)

	var input BairroInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "payload inválido", nil)
		return
	}

	bairro, err := h.service.CreateBairro(ctx, tenant.ID, input)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"bairro": bairro})
}

func (h *Handler) handleDeleteBairro(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenant := httpmiddleware.GetPrefeitura(ctx)

	id, ok := parseUUID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteBairro(ctx, tenant.ID, id); err != nil {
		handleDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func parseUUID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "identificador inválido", nil)
		return uuid.Nil, false
	}
	return id, true
}

func handleDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "registro não encontrado", nil)
	case errors.Is(err, ErrValidation), errors.Is(err, ErrLocalidadeDivergente):
		writeError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
	case errors.Is(err, ErrEmUso):
		writeError(w, http.StatusConflict, "CONFLICT", err.Error(), nil)
	default:
		log.Error().Err(err).Msg("localidade handler error")
		writeError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
	}
}

type successEnvelope struct {
	Data  any `json:"data"`
	Error any `json:"error"`
}

type errorEnvelope struct {
	Data  any            `json:"data"`
	Error *errorResponse `json:"error"`
}

type errorResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(successEnvelope{Data: payload, Error: nil})
}

func writeError(w http.ResponseWriter, status int, code, message string, details interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorEnvelope{Data: nil, Error: &errorResponse{Code: code, Message: message, Details: details}})
}
