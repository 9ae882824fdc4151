package agenda

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	httpmiddleware "github.com/agendacidade/api/internal/http/middleware"
	"github.com/agendacidade/api/internal/prefeitura"
)

func TestAgendaHandlers(t *testing.T) {
	tenant := &prefeitura.Prefeitura{ID: uuid.New(), Nome: "Zabelê", Slug: "zabele", Ativo: true}
	local := localTeste()
	amanha := time.Now().UTC().AddDate(0, 0, 1).Format("2006-01-02")

	repo := &stubRepo{
		local: local,
		agendamento: Agendamento{
			ID: 12, Protocolo: "AGD-12", CidadaoNome: "Maria da Silva",
			CidadaoCPF: cpfValido, LocalID: local.ID, Status: StatusAgendado,
			Data: time.Now().UTC().AddDate(0, 0, 1), Hora: "08:30",
		},
	}
	handler := NewHandler(NewService(repo, nil))

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		admin  bool
		status int
	}{
		{"locais", http.MethodGet, "/locais-atendimento", nil, false, http.StatusOK},
		{"horarios", http.MethodGet, "/locais-atendimento/" + local.ID.String() + "/horarios?data=" + amanha, nil, false, http.StatusOK},
		{"horarios-data-invalida", http.MethodGet, "/locais-atendimento/" + local.ID.String() + "/horarios?data=ontem", nil, false, http.StatusBadRequest},
		{"listar", http.MethodGet, "/agendamentos?cpf=" + cpfValido, nil, false, http.StatusOK},
		{"buscar", http.MethodGet, "/agendamentos/12", nil, false, http.StatusOK},
		{"buscar-id-invalido", http.MethodGet, "/agendamentos/abc", nil, false, http.StatusBadRequest},
		{"agendar", http.MethodPost, "/agendamentos", map[string]any{
			"cidadao_nome": "Maria da Silva", "cidadao_cpf": cpfValido,
			"local_id": local.ID, "data_agendamento": amanha, "hora_agendamento": "08:30",
		}, false, http.StatusCreated},
		{"agendar-sem-local", http.MethodPost, "/agendamentos", map[string]any{
			"cidadao_nome": "Maria", "cidadao_cpf": cpfValido,
			"data_agendamento": amanha, "hora_agendamento": "08:30",
		}, false, http.StatusBadRequest},
		{"solicitar-cancelamento", http.MethodPost, "/agendamentos/12/solicitar-cancelamento", map[string]any{"cpf": cpfValido}, false, http.StatusOK},
		{"status", http.MethodPut, "/agendamentos/12/status", map[string]any{"status": "CONCLUIDO"}, true, http.StatusOK},
		{"status-vazio", http.MethodPut, "/agendamentos/12/status", map[string]any{}, true, http.StatusBadRequest},
		{"excluir", http.MethodDelete, "/agendamentos/12", nil, true, http.StatusNoContent},
		{"criar-local", http.MethodPost, "/locais-atendimento", LocalInput{
			Nome: "Anexo", HoraAbertura: "08:00", HoraFechamento: "12:00", IntervaloMinutos: 20, VagasPorHorario: 1,
		}, true, http.StatusCreated},
		{"criar-local-invalido", http.MethodPost, "/locais-atendimento", LocalInput{Nome: ""}, true, http.StatusBadRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, requestBody(tc.body))
			req = withTenant(req, tenant)
			rec := httptest.NewRecorder()

			r := chi.NewRouter()
			if tc.admin {
				handler.RegisterAdminRoutes(r)
			} else {
				handler.RegisterPublicRoutes(r)
			}
			r.ServeHTTP(rec, req)

			if rec.Code != tc.status {
				t.Fatalf("expected %d got %d: %s", tc.status, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestAgendaHandlerConflitos(t *testing.T) {
	tenant := &prefeitura.Prefeitura{ID: uuid.New(), Slug: "zabele", Ativo: true}
	local := localTeste()
	amanha := time.Now().UTC().AddDate(0, 0, 1).Format("2006-01-02")

	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"sem vagas", ErrSemVagas, http.StatusConflict, "CONFLICT"},
		{"data bloqueada", ErrDataBloqueada, http.StatusConflict, "CONFLICT"},
		{"duplicado", ErrAgendamentoDuplicado, http.StatusConflict, "CONFLICT"},
		{"cpf bloqueado", ErrCPFBloqueado, http.StatusForbidden, "FORBIDDEN"},
		{"fora da grade", ErrHoraForaDaGrade, http.StatusBadRequest, "VALIDATION"},
		{"inexistente", errNotFound, http.StatusNotFound, "NOT_FOUND"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := &stubRepo{local: local, createErr: tc.err}
			handler := NewHandler(NewService(repo, nil))

			payload := map[string]any{
				"cidadao_nome": "Maria da Silva", "cidadao_cpf": cpfValido,
				"local_id": local.ID, "data_agendamento": amanha, "hora_agendamento": "08:30",
			}
			req := httptest.NewRequest(http.MethodPost, "/agendamentos", requestBody(payload))
			req = withTenant(req, tenant)
			rec := httptest.NewRecorder()

			r := chi.NewRouter()
			handler.RegisterPublicRoutes(r)
			r.ServeHTTP(rec, req)

			if rec.Code != tc.status {
				t.Fatalf("expected %d got %d: %s", tc.status, rec.Code, rec.Body.String())
			}
			var envelope struct {
				Error struct {
					Code string `json:"code"`
				} `json:"error"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
				t.Fatalf("resposta não é JSON: %v", err)
			}
			if envelope.Error.Code != tc.code {
				t.Fatalf("expected code %s got %s", tc.code, envelope.Error.Code)
			}
		})
	}
}

func requestBody(body any) *bytes.Buffer {
	if body == nil {
		return bytes.NewBuffer(nil)
	}
	b, _ := json.Marshal(body)
	return bytes.NewBuffer(b)
}

func withTenant(req *http.Request, tenant *prefeitura.Prefeitura) *http.Request {
	ctx := context.WithValue(req.Context(), httpmiddleware.ContextKeyPrefeitura, tenant)
	return req.WithContext(ctx)
}
