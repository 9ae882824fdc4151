package localidade

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Store define o acesso a dados exigido pelo serviço de localidades.
type Store interface {
	ListLocalidades(ctx context.Context, prefeituraID uuid.UUID) ([]LocalidadeOrigem, error)
	GetLocalidade(ctx context.Context, prefeituraID, id uuid.UUID) (LocalidadeOrigem, error)
	CreateLocalidade(ctx context.Context, prefeituraID uuid.UUID, input LocalidadeInput) (LocalidadeOrigem, error)
	DeleteLocalidade(ctx context.Context, prefeituraID, id uuid.UUID) error
	ListBairros(ctx context.Context, prefeituraID, localidadeID uuid.UUID) ([]Bairro, error)
	CreateBairro(ctx context.Context, prefeituraID uuid.UUID, input BairroInput) (Bairro, error)
	DeleteBairro(ctx context.Context, prefeituraID, id uuid.UUID) error
}

// tipos reconhecidos de localidade de origem
var tiposValidos = map[string]struct{}{
	"SEDE":       {},
	"DISTRITO":   {},
	"POVOADO":    {},
	"ZONA_RURAL": {},
}

// Service contém as regras de localidades de origem e bairros.
type Service struct {
	repo Store
}

func NewService(repo Store) *Service {
	return &Service{repo: repo}
}

func (s *Service) ListLocalidades(ctx context.Context, prefeituraID uuid.UUID) ([]LocalidadeOrigem, error) {
	return s.repo.ListLocalidades(ctx, prefeituraID)
}

func (s *Service) CreateLocalidade(ctx context.Context, prefeituraID uuid.UUID, input LocalidadeInput) (LocalidadeOrigem, error) {
	input.Nome = strings.TrimSpace(input.Nome)
	input.Tipo = strings.ToUpper(strings.TrimSpace(input.Tipo))
	if input.Nome == "" {
		return LocalidadeOrigem{}, fmt.Errorf("%w: nome obrigatório", ErrValidation)
	}
	if _, ok := tiposValidos[input.Tipo]; !ok {
		return LocalidadeOrigem{}, fmt.Errorf("%w: tipo desconhecido", ErrValidation)
	}
	return s.repo.CreateLocalidade(ctx, prefeituraID, input)
}

func (s *Service) DeleteLocalidade(ctx context.Context, prefeituraID, id uuid.UUID) error {
	return s.repo.DeleteLocalidade(ctx, prefeituraID, id)
}

// ListBairros exige que a localidade exista no tenant antes de listar.
func (s *Service) ListBairros(ctx context.Context, prefeituraID, localidadeID uuid.UUID) ([]Bairro, error) {
	if _, err := s.repo.GetLocalidade(ctx, prefeituraID, localidadeID); err != nil {
		return nil, err
	}
	return s.repo.ListBairros(ctx, prefeituraID, localidadeID)
}

func (s *Service) CreateBairro(ctx context.Context, prefeituraID uuid.UUID, input BairroInput) (Bairro, error) {
	input.Nome = strings.TrimSpace(input.Nome)
	if input.Nome == "" {
		return Bairro{}, fmt.Errorf("%w: nome obrigatório", ErrValidation)
	}
	if input.LocalidadeID == uuid.Nil {
		return Bairro{}, fmt.Errorf("%w: localidade obrigatória", ErrValidation)
	}
	return s.repo.CreateBairro(ctx, prefeituraID, input)
}

func (s *Service) DeleteBairro(ctx context.Context, prefeituraID, id uuid.UUID) error {
	return s.repo.DeleteBairro(ctx, prefeituraID, id)
}
