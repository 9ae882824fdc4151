package bloqueio

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	httpmiddleware "github.com/agendacidade/api/internal/http/middleware"
	"github.com/agendacidade/api/internal/util"
)

// Handler orquestra rotas de bloqueio de datas e CPFs.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterPublicRoutes expõe a consulta de datas bloqueadas ao cidadão.
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/datas-bloqueadas", h.handleListDatasBloqueadas)
}

// RegisterAdminRoutes registra o CRUD restrito ao backoffice.
func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Post("/datas-bloqueadas", h.handleCreateDataBloqueada)
	r.Delete("/datas-bloqueadas/{id}", h.handleDeleteDataBloqueada)
	r.Get("/cpf-bloqueios", h.handleListCPFBloqueios)
	r.Post("/cpf-bloqueios", h.handleCreateCPFBloqueio)
	r.Delete("/cpf-bloqueios/{id}", h.handleDeleteCPFBloqueio)
	r.Get("/cpf-cancelamentos", h.handleListCPFCancelamentos)
}

func (h *Handler) handleListDatasBloqueadas(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenant := httpmiddleware.GetPrefeitura(ctx)

	// a consulta pública devolve apenas datas de hoje em diante
	apenasFuturas := !strings.EqualFold(r.URL.Query().Get("todas"), "true")

	datas, err := h.service.ListDatasBloqueadas(ctx, tenant.ID, apenasFuturas)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"datas_bloqueadas": datas})
}

func (h *Handler) handleCreateDataBloqueada(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenant := httpmiddleware.GetPrefeitura(ctx)

	var input DataBloqueadaInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "payload inválido", nil)
		return
	}

	data, err := h.service.CreateDataBloqueada(ctx, tenant.ID, input, httpmiddleware.GetSubject(ctx))
	if err != nil {
		handleDomainError(w, err)
		return
	}

	log.Info().Str("prefeitura", tenant.Slug).Str("data", input.Data).
		Str("tipo", data.TipoBloqueio).Msg("data_bloqueada_criada")
	writeJSON(w, http.StatusCreated, map[string]any{"data_bloqueada": data})
}

func (h *Handler) handleDeleteDataBloqueada(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenant := httpmiddleware.GetPrefeitura(ctx)

	id, ok := parseUUID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteDataBloqueada(ctx, tenant.ID, id); err != nil {
		handleDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListCPFBloqueios(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenant := httpmiddleware.GetPrefeitura(ctx)

	bloqueios, err := h.service.ListCPFBloqueios(ctx, tenant.ID)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"cpf_bloqueios": bloqueios})
}

func (h *Handler) handleCreateCPFBloqueio(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenant := httpmiddleware.GetPrefeitura(ctx)

	var input CPFBloqueioInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "payload inválido", nil)
		return
	}

	bloqueio, err := h.service.CreateCPFBloqueio(ctx, tenant.ID, input, httpmiddleware.GetSubject(ctx))
	if err != nil {
		handleDomainError(w, err)
		return
	}

	log.Info().Str("prefeitura", tenant.Slug).Msg("cpf_bloqueio_criado")
	writeJSON(w, http.StatusCreated, map[string]any{"cpf_bloqueio": bloqueio})
}

func (h *Handler) handleDeleteCPFBloqueio(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenant := httpmiddleware.GetPrefeitura(ctx)

	id, ok := parseUUID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteCPFBloqueio(ctx, tenant.ID, id); err != nil {
		handleDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListCPFCancelamentos(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenant := httpmiddleware.GetPrefeitura(ctx)

	cancelamentos, err := h.service.ListCPFCancelamentos(ctx, tenant.ID, r.URL.Query().Get("cpf"))
	if err != nil {
		handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"cpf_cancelamentos": cancelamentos})
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
		writeError(w, http.StatusNotFound, "NOT_FOUND", "bloqueio não encontrado", nil)
	case errors.Is(err, ErrValidation), errors.Is(err, util.ErrCPFInvalido):
		writeError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
	case errors.Is(err, ErrDataJaBloqueada):
		writeError(w, http.StatusConflict, "CONFLICT", err.Error(), nil)
	default:
		log.Error().Err(err).Msg("bloqueio handler error")
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
