package localidade

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

type stubStore struct {
	localidades  []LocalidadeOrigem
	bairros      []Bairro
	getErr       error
	lastLocInput LocalidadeInput
	lastBairro   BairroInput
}

func (s *stubStore) ListLocalidades(ctx context.Context, prefeituraID uuid.UUID) ([]LocalidadeOrigem, error) {
	return s.localidades, nil
}
func (s *stubStore) GetLocalidade(ctx context.Context, prefeituraID, id uuid.UUID) (LocalidadeOrigem, error) {
	if s.getErr != nil {
		return LocalidadeOrigem{}, s.getErr
	}
	return LocalidadeOrigem{ID: id, Nome: "Sede", Tipo: "SEDE", PrefeituraID: prefeituraID}, nil
}
func (s *stubStore) CreateLocalidade(ctx context.Context, prefeituraID uuid.UUID, input LocalidadeInput) (LocalidadeOrigem, error) {
	s.lastLocInput = input
	return LocalidadeOrigem{ID: uuid.New(), Nome: input.Nome, Tipo: input.Tipo, PrefeituraID: prefeituraID}, nil
}
func (s *stubStore) DeleteLocalidade(ctx context.Context, prefeituraID, id uuid.UUID) error {
	return nil
}
func (s *stubStore) ListBairros(ctx context.Context, prefeituraID, localidadeID uuid.UUID) ([]Bairro, error) {
	return s.bairros, nil
}
func (s *stubStore) CreateBairro(ctx context.Context, prefeituraID uuid.UUID, input BairroInput) (Bairro, error) {
	s.lastBairro = input
	return Bairro{ID: uuid.New(), Nome: input.Nome, LocalidadeID: input.LocalidadeID, PrefeituraID: prefeituraID}, nil
}
func (s *stubStore) DeleteBairro(ctx context.Context, prefeituraID, id uuid.UUID) error {
	return nil
}

func TestCreateLocalidade(t *testing.T) {
	prefID := uuid.New()

	t.Run("normaliza nome e tipo", func(t *testing.T) {
		repo := &stubStore{}
		svc := NewService(repo)

		l, err := svc.CreateLocalidade(context.Background(), prefID, LocalidadeInput{Nome: "  Sítio Alto ", Tipo: "povoado"})
		if err != nil {
			t.Fatalf("erro inesperado: %v", err)
		}
		if l.Nome != "Sítio Alto" || l.Tipo != "POVOADO" {
			t.Fatalf("normalização inesperada: %+v", l)
		}
	})

	t.Run("nome vazio", func(t *testing.T) {
		svc := NewService(&stubStore{})
		if _, err := svc.CreateLocalidade(context.Background(), prefID, LocalidadeInput{Nome: " ", Tipo: "SEDE"}); !errors.Is(err, ErrValidation) {
			t.Fatalf("esperado ErrValidation, veio %v", err)
		}
	})

	t.Run("tipo desconhecido", func(t *testing.T) {
		svc := NewService(&stubStore{})
		if _, err := svc.CreateLocalidade(context.Background(), prefID, LocalidadeInput{Nome: "Centro", Tipo: "CAPITAL"}); !errors.Is(err, ErrValidation) {
			t.Fatalf("esperado ErrValidation, veio %v", err)
		}
	})
}

func TestListBairros(t *testing.T) {
	prefID := uuid.New()

	t.Run("localidade existente", func(t *testing.T) {
		repo := &stubStore{bairros: []Bairro{{ID: uuid.New(), Nome: "Centro"}}}
		svc := NewService(repo)

		bairros, err := svc.ListBairros(context.Background(), prefID, uuid.New())
		if err != nil {
			t.Fatalf("erro inesperado: %v", err)
		}
		if len(bairros) != 1 {
			t.Fatalf("esperado 1 bairro, veio %d", len(bairros))
		}
	})

	t.Run("localidade de outro tenant", func(t *testing.T) {
		repo := &stubStore{getErr: ErrNotFound}
		svc := NewService(repo)

		if _, err := svc.ListBairros(context.Background(), prefID, uuid.New()); !errors.Is(err, ErrNotFound) {
			t.Fatalf("esperado ErrNotFound, veio %v", err)
		}
	})
}

func TestCreateBairro(t *testing.T) {
	prefID := uuid.New()

	t.Run("valida campos obrigatórios", func(t *testing.T) {
		svc := NewService(&stubStore{})
		if _, err := svc.CreateBairro(context.Background(), prefID, BairroInput{Nome: "", LocalidadeID: uuid.New()}); !errors.Is(err, ErrValidation) {
			t.Fatalf("esperado ErrValidation para nome vazio, veio %v", err)
		}
		if _, err := svc.CreateBairro(context.Background(), prefID, BairroInput{Nome: "Centro"}); !errors.Is(err, ErrValidation) {
			t.Fatalf("esperado ErrValidation para localidade nula, veio %v", err)
		}
	})

	t.Run("sucesso", func(t *testing.T) {
		repo := &stubStore{}
		svc := NewService(repo)
		locID := uuid.New()

		b, err := svc.CreateBairro(context.Background(), prefID, BairroInput{Nome: " Centro ", LocalidadeID: locID})
		if err != nil {
			t.Fatalf("erro inesperado: %v", err)
		}
		if b.Nome != "Centro" || b.LocalidadeID != locID {
			t.Fatalf("bairro inesperado: %+v", b)
		}
	})
}
