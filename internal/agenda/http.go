package agenda

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	httpmiddleware "github.com/agendacidade/api/internal/http/middleware"
	"github.com/agendacidade/api/internal/util"
)

// Handler orquestra rotas do módulo de agendamento.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterPublicRoutes registra rotas acessíveis ao cidadão.
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/locais-atendimento", h.handleListLocais)
	r.Get("/locais-atendimento/{id}/horarios", h.handleDisponibilidade)
	r.Get("/agendamentos", h.handleListAgendamentos)
	r.Get("/agendamentos/{id}", h.handleGetAgendamento)
	r.Post("/agendamentos", h.handleAgendar)
	r.Post("/agendamentos/{id}/solicitar-cancelamento", h.handleSolicitarCancelamento)
}

// RegisterAdminRoutes registra rotas restritas ao backoffice.
func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Delete("/agendamentos/{id}", h.handleDeleteAgendamento)
	r.Put("/agendamentos/{id}/status", h.handleAtualizarStatus)
	r.Post("/locais-atendimento", h.handleCreateLocal)
	r.Put("/locais-atendimento/{id}", h.handleUpdateLocal)
	r.Delete("/locais-atendimento/{id}", h.handleDeleteLocal)
}

func (h *Handler) handleListLocais(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenant := httpmiddleware.GetPrefeitura(ctx)

	locais, err := h.service.ListLocais(ctx, tenant.ID)
	if err != nil {
		writeInternalError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"locais": locais})
}

func (h *Handler) handleDisponibilidade(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenant := httpmiddleware.GetPrefeitura(ctx)

	localID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "local inválido", nil)
		return
	}

	data, err := time.Parse("2006-01-02", r.URL.Query().Get("data"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "data inválida", nil)
		return
	}

	horarios, err := h.service.Disponibilidade(ctx, tenant.ID, localID, data)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"horarios": horarios})
}

func (h *Handler) handleListAgendamentos(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenant := httpmiddleware.GetPrefeitura(ctx)

	filter := Filter{
		CPF:    strings.TrimSpace(r.URL.Query().Get("cpf")),
		Status: strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("status"))),
	}
	if dataStr := r.URL.Query().Get("data"); dataStr != "" {
		data, err := time.Parse("2006-01-02", dataStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "VALIDATION", "data inválida", nil)
			return
		}
		filter.Data = &data
	}

	agendamentos, err := h.service.List(ctx, tenant.ID, filter)
	if err != nil {
		writeInternalError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"agendamentos": agendamentos})
}

func (h *Handler) handleGetAgendamento(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenant := httpmiddleware.GetPrefeitura(ctx)

	id, ok := parseID(w, r)
	if !ok {
		return
	}

	agendamento, err := h.service.Get(ctx, tenant.ID, id)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"agendamento": agendamento})
}

func (h *Handler) handleAgendar(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	tenant := httpmiddleware.GetPrefeitura(ctx)

	var payload struct {
		CidadaoNome     string     `json:"cidadao_nome"`
		CidadaoCPF      string     `json:"cidadao_cpf"`
		CidadaoTelefone *string    `json:"cidadao_telefone"`
		LocalID         uuid.UUID  `json:"local_id"`
		LocalidadeID    *uuid.UUID `json:"localidade_id"`
		BairroID        *uuid.UUID `json:"bairro_id"`
		Data            string     `json:"data_agendamento"`
		Hora            string     `json:"hora_agendamento"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "payload inválido", nil)
		return
	}

	if payload.LocalID == uuid.Nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "local obrigatório", nil)
		return
	}
	data, err := time.Parse("2006-01-02", payload.Data)
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "data inválida", nil)
		return
	}

	agendamento, err := h.service.Agendar(ctx, CreateInput{
		PrefeituraID:    tenant.ID,
		LocalID:         payload.LocalID,
		CidadaoNome:     payload.CidadaoNome,
		CidadaoCPF:      payload.CidadaoCPF,
		CidadaoTelefone: payload.CidadaoTelefone,
		LocalidadeID:    payload.LocalidadeID,
		BairroID:        payload.BairroID,
		Data:            data,
		Hora:            payload.Hora,
	})
	if err != nil {
		handleDomainError(w, err)
		return
	}

	log.Info().Str("prefeitura", tenant.Slug).Str("protocolo", agendamento.Protocolo).
		Dur("duration", time.Since(start)).Msg("agendamento_criado")
	writeJSON(w, http.StatusCreated, map[string]any{"agendamento": agendamento})
}

func (h *Handler) handleSolicitarCancelamento(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenant := httpmiddleware.GetPrefeitura(ctx)

	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var payload struct {
		CPF    string  `json:"cpf"`
		Motivo *string `json:"motivo"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "payload inválido", nil)
		return
	}

	agendamento, err := h.service.SolicitarCancelamento(ctx, tenant.ID, id, payload.CPF, payload.Motivo)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	log.Info().Str("prefeitura", tenant.Slug).Str("protocolo", agendamento.Protocolo).Msg("cancelamento_solicitado")
	writeJSON(w, http.StatusOK, map[string]any{"agendamento": agendamento})
}

func (h *Handler) handleDeleteAgendamento(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenant := httpmiddleware.GetPrefeitura(ctx)

	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(ctx, tenant.ID, id); err != nil {
		handleDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleAtualizarStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenant := httpmiddleware.GetPrefeitura(ctx)

	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var payload struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Status == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION", "status obrigatório", nil)
		return
	}

	agendamento, err := h.service.AtualizarStatus(ctx, tenant.ID, id, payload.Status)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"agendamento": agendamento})
}

func (h *Handler) handleCreateLocal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenant := httpmiddleware.GetPrefeitura(ctx)

	var input LocalInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "payload inválido", nil)
		return
	}

	local, err := h.service.CreateLocal(ctx, tenant.ID, input)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"local": local})
}

func (h *Handler) handleUpdateLocal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenant := httpmiddleware.GetPrefeitura(ctx)

	localID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "local inválido", nil)
		return
	}

	var input LocalInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "payload inválido", nil)
		return
	}

	local, err := h.service.UpdateLocal(ctx, tenant.ID, localID, input)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"local": local})
}

func (h *Handler) handleDeleteLocal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenant := httpmiddleware.GetPrefeitura(ctx)

	localID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "local inválido", nil)
		return
	}

	if err := h.service.DeleteLocal(ctx, tenant.ID, localID); err != nil {
		handleDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "VALIDATION", "agendamento inválido", nil)
		return 0, false
	}
	return id, true
}

func handleDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "registro não encontrado", nil)
	case errors.Is(err, ErrValidation), errors.Is(err, util.ErrCPFInvalido),
		errors.Is(err, ErrHoraForaDaGrade), errors.Is(err, ErrDataPassada):
		writeError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
	case errors.Is(err, ErrCPFBloqueado), errors.Is(err, ErrCPFDivergente):
		writeError(w, http.StatusForbidden, "FORBIDDEN", err.Error(), nil)
	case errors.Is(err, ErrDataBloqueada), errors.Is(err, ErrSemVagas),
		errors.Is(err, ErrAgendamentoDuplicado), errors.Is(err, ErrStatusInvalido),
		errors.Is(err, ErrLocalInativo):
		writeError(w, http.StatusConflict, "CONFLICT", err.Error(), nil)
	default:
		writeInternalError(w, err)
	}
}

func writeInternalError(w http.ResponseWriter, err error) {
	log.Error().Err(err).Msg("agenda handler error")
	writeError(w, http.StatusInternalServerError, "INTERNAL", "erro interno", nil)
}

// Helpers de resposta JSON compatíveis com o resto do projeto.
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
