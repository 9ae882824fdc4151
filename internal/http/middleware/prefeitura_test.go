package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/agendacidade/api/internal/prefeitura"
)

type stubTenantStore struct {
	bySlug map[string]prefeitura.Prefeitura
}

func (s *stubTenantStore) GetBySlug(ctx context.Context, slug string) (*prefeitura.Prefeitura, error) {
	if p, ok := s.bySlug[slug]; ok {
		return &p, nil
	}
	return nil, prefeitura.ErrNotFound
}

func (s *stubTenantStore) GetByID(ctx context.Context, id uuid.UUID) (*prefeitura.Prefeitura, error) {
	return nil, prefeitura.ErrNotFound
}

func (s *stubTenantStore) List(ctx context.Context) ([]prefeitura.Prefeitura, error) {
	return nil, nil
}

func (s *stubTenantStore) Create(ctx context.Context, input prefeitura.CreateInput) (*prefeitura.Prefeitura, error) {
	return nil, nil
}

func (s *stubTenantStore) SetAtivo(ctx context.Context, id uuid.UUID, ativo bool) error {
	return nil
}

func (s *stubTenantStore) UpdateSettings(ctx context.Context, id uuid.UUID, settings map[string]any) error {
	return nil
}

func (s *stubTenantStore) UpdateLogoURL(ctx context.Context, id uuid.UUID, logoURL string) error {
	return nil
}

func TestPrefeituraMiddleware(t *testing.T) {
	store := &stubTenantStore{bySlug: map[string]prefeitura.Prefeitura{
		"zabele":   {ID: uuid.New(), Nome: "Zabelê", Slug: "zabele", Ativo: true},
		"iraucuba": {ID: uuid.New(), Nome: "Irauçuba", Slug: "iraucuba", Ativo: false},
	}}
	svc := prefeitura.NewService(store)

	var resolved *prefeitura.Prefeitura
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resolved = GetPrefeitura(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := Prefeitura(svc)(next)

	tests := []struct {
		name   string
		slug   string
		status int
	}{
		{"ativa", "zabele", http.StatusOK},
		{"inativa responde 403", "iraucuba", http.StatusForbidden},
		{"desconhecida responde 404", "nao-existe", http.StatusNotFound},
		{"header ausente", "", http.StatusBadRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resolved = nil
			req := httptest.NewRequest(http.MethodGet, "/api/agendamentos", nil)
			if tc.slug != "" {
				req.Header.Set(HeaderPrefeituraSlug, tc.slug)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tc.status {
				t.Fatalf("esperava %d, veio %d", tc.status, rec.Code)
			}
			if tc.status == http.StatusOK && resolved == nil {
				t.Fatal("prefeitura não injetada no contexto")
			}
			if tc.status != http.StatusOK && resolved != nil {
				t.Fatal("handler não deveria ter sido chamado")
			}
		})
	}
}
