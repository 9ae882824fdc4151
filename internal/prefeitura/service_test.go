package prefeitura

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

type stubStore struct {
	prefeituras map[string]Prefeitura
	getCalls    int
}

func (s *stubStore) GetBySlug(ctx context.Context, slug string) (*Prefeitura, error) {
	s.getCalls++
	if p, ok := s.prefeituras[slug]; ok {
		copia := p
		return &copia, nil
	}
	return nil, ErrNotFound
}

func (s *stubStore) GetByID(ctx context.Context, id uuid.UUID) (*Prefeitura, error) {
	for _, p := range s.prefeituras {
		if p.ID == id {
			copia := p
			return &copia, nil
		}
	}
	return nil, ErrNotFound
}

func (s *stubStore) List(ctx context.Context) ([]Prefeitura, error) {
	var out []Prefeitura
	for _, p := range s.prefeituras {
		out = append(out, p)
	}
	return out, nil
}

func (s *stubStore) Create(ctx context.Context, input CreateInput) (*Prefeitura, error) {
	if _, ok := s.prefeituras[input.Slug]; ok {
		return nil, ErrSlugEmUso
	}
	p := Prefeitura{ID: uuid.New(), Nome: input.Nome, Slug: input.Slug, Ativo: true, Settings: input.Settings}
	s.prefeituras[input.Slug] = p
	return &p, nil
}

func (s *stubStore) SetAtivo(ctx context.Context, id uuid.UUID, ativo bool) error {
	for slug, p := range s.prefeituras {
		if p.ID == id {
			p.Ativo = ativo
			s.prefeituras[slug] = p
			return nil
		}
	}
	return ErrNotFound
}

func (s *stubStore) UpdateSettings(ctx context.Context, id uuid.UUID, settings map[string]any) error {
	return nil
}

func (s *stubStore) UpdateLogoURL(ctx context.Context, id uuid.UUID, logoURL string) error {
	return nil
}

func TestResolveNormalizaEUsaCache(t *testing.T) {
	store := &stubStore{prefeituras: map[string]Prefeitura{
		"iraucuba": {ID: uuid.New(), Nome: "Irauçuba", Slug: "iraucuba", Ativo: true},
	}}
	svc := NewService(store)

	p, err := svc.Resolve(context.Background(), "  IRAUCUBA ")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if p.Slug != "iraucuba" {
		t.Fatalf("slug inesperado: %s", p.Slug)
	}

	if _, err := svc.Resolve(context.Background(), "iraucuba"); err != nil {
		t.Fatalf("resolve cacheado: %v", err)
	}
	if store.getCalls != 1 {
		t.Fatalf("esperava 1 consulta ao repositório, houve %d", store.getCalls)
	}
}

func TestResolvePrefeituraInativa(t *testing.T) {
	store := &stubStore{prefeituras: map[string]Prefeitura{
		"iraucuba": {ID: uuid.New(), Nome: "Irauçuba", Slug: "iraucuba", Ativo: false},
	}}
	svc := NewService(store)

	if _, err := svc.Resolve(context.Background(), "iraucuba"); !errors.Is(err, ErrInativa) {
		t.Fatalf("esperava ErrInativa, veio %v", err)
	}
}

func TestResolveSlugDesconhecido(t *testing.T) {
	svc := NewService(&stubStore{prefeituras: map[string]Prefeitura{}})

	if _, err := svc.Resolve(context.Background(), "nao-existe"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("esperava ErrNotFound, veio %v", err)
	}
	if _, err := svc.Resolve(context.Background(), "   "); !errors.Is(err, ErrNotFound) {
		t.Fatalf("slug vazio deveria ser ErrNotFound, veio %v", err)
	}
}

func TestSetAtivoInvalidaCache(t *testing.T) {
	id := uuid.New()
	store := &stubStore{prefeituras: map[string]Prefeitura{
		"zabele": {ID: id, Nome: "Zabelê", Slug: "zabele", Ativo: true},
	}}
	svc := NewService(store)

	if _, err := svc.Resolve(context.Background(), "zabele"); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	if err := svc.SetAtivo(context.Background(), id, false); err != nil {
		t.Fatalf("desativar: %v", err)
	}

	if _, err := svc.Resolve(context.Background(), "zabele"); !errors.Is(err, ErrInativa) {
		t.Fatalf("esperava ErrInativa após desativação, veio %v", err)
	}
}

func TestCreateAplicaDefaults(t *testing.T) {
	store := &stubStore{prefeituras: map[string]Prefeitura{}}
	svc := NewService(store)

	p, err := svc.Create(context.Background(), CreateInput{Nome: "Zabelê", Slug: " Zabele "})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.Slug != "zabele" {
		t.Fatalf("slug não normalizado: %s", p.Slug)
	}
	if _, ok := p.Settings["corPrimaria"]; !ok {
		t.Fatal("settings padrão ausentes")
	}

	if _, err := svc.Create(context.Background(), CreateInput{Nome: "Outra", Slug: "zabele"}); !errors.Is(err, ErrSlugEmUso) {
		t.Fatalf("esperava ErrSlugEmUso, veio %v", err)
	}
}
