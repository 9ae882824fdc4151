package bloqueio

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/agendacidade/api/internal/util"
)

// Store define o acesso a dados exigido pelo serviço de bloqueios.
type Store interface {
	ListDatasBloqueadas(ctx context.Context, prefeituraID uuid.UUID, apenasFuturas bool) ([]DataBloqueada, error)
	CreateDataBloqueada(ctx context.Context, prefeituraID uuid.UUID, data time.Time, motivo, tipo string, horarios []string, criadoPor string) (DataBloqueada, error)
	DeleteDataBloqueada(ctx context.Context, prefeituraID, id uuid.UUID) error
	ListCPFBloqueios(ctx context.Context, prefeituraID uuid.UUID) ([]CPFBloqueio, error)
	CreateCPFBloqueio(ctx context.Context, prefeituraID uuid.UUID, cpf, motivo string, expiraEm *time.Time, criadoPor string) (CPFBloqueio, error)
	DeleteCPFBloqueio(ctx context.Context, prefeituraID, id uuid.UUID) error
	ListCPFCancelamentos(ctx context.Context, prefeituraID uuid.UUID, cpf string) ([]CPFCancelamento, error)
}

// Service contém as regras de bloqueio de datas e CPFs.
type Service struct {
	repo Store
}

func NewService(repo Store) *Service {
	return &Service{repo: repo}
}

func (s *Service) ListDatasBloqueadas(ctx context.Context, prefeituraID uuid.UUID, apenasFuturas bool) ([]DataBloqueada, error) {
	return s.repo.ListDatasBloqueadas(ctx, prefeituraID, apenasFuturas)
}

// CreateDataBloqueada valida o invariante do tipo: DIA_INTEIRO nunca
// carrega horários e PARCIAL exige ao menos um horário válido.
func (s *Service) CreateDataBloqueada(ctx context.Context, prefeituraID uuid.UUID, input DataBloqueadaInput, criadoPor string) (DataBloqueada, error) {
	data, err := time.Parse("2006-01-02", input.Data)
	if err != nil {
		return DataBloqueada{}, fmt.Errorf("%w: data inválida", ErrValidation)
	}

	motivo := strings.TrimSpace(input.Motivo)
	if motivo == "" {
		return DataBloqueada{}, fmt.Errorf("%w: motivo obrigatório", ErrValidation)
	}

	tipo := strings.ToUpper(strings.TrimSpace(input.TipoBloqueio))
	var horarios []string
	switch tipo {
	case TipoDiaInteiro:
		if len(input.HorariosBloqueados) > 0 {
			return DataBloqueada{}, fmt.Errorf("%w: bloqueio de dia inteiro não aceita horários", ErrValidation)
		}
	case TipoParcial:
		if len(input.HorariosBloqueados) == 0 {
			return DataBloqueada{}, fmt.Errorf("%w: bloqueio parcial exige ao menos um horário", ErrValidation)
		}
		horarios, err = normalizeHorarios(input.HorariosBloqueados)
		if err != nil {
			return DataBloqueada{}, err
		}
	default:
		return DataBloqueada{}, fmt.Errorf("%w: tipo de bloqueio desconhecido", ErrValidation)
	}

	return s.repo.CreateDataBloqueada(ctx, prefeituraID, data, motivo, tipo, horarios, criadoPor)
}

func (s *Service) DeleteDataBloqueada(ctx context.Context, prefeituraID, id uuid.UUID) error {
	return s.repo.DeleteDataBloqueada(ctx, prefeituraID, id)
}

func (s *Service) ListCPFBloqueios(ctx context.Context, prefeituraID uuid.UUID) ([]CPFBloqueio, error) {
	return s.repo.ListCPFBloqueios(ctx, prefeituraID)
}

func (s *Service) CreateCPFBloqueio(ctx context.Context, prefeituraID uuid.UUID, input CPFBloqueioInput, criadoPor string) (CPFBloqueio, error) {
	if err := util.ValidateCPF(input.CPF); err != nil {
		return CPFBloqueio{}, err
	}
	motivo := strings.TrimSpace(input.Motivo)
	if motivo == "" {
		return CPFBloqueio{}, fmt.Errorf("%w: motivo obrigatório", ErrValidation)
	}
	if input.ExpiraEm != nil && input.ExpiraEm.Before(time.Now()) {
		return CPFBloqueio{}, fmt.Errorf("%w: expiração no passado", ErrValidation)
	}
	return s.repo.CreateCPFBloqueio(ctx, prefeituraID, util.NormalizeCPF(input.CPF), motivo, input.ExpiraEm, criadoPor)
}

func (s *Service) DeleteCPFBloqueio(ctx context.Context, prefeituraID, id uuid.UUID) error {
	return s.repo.DeleteCPFBloqueio(ctx, prefeituraID, id)
}

func (s *Service) ListCPFCancelamentos(ctx context.Context, prefeituraID uuid.UUID, cpf string) ([]CPFCancelamento, error) {
	if cpf != "" {
		cpf = util.NormalizeCPF(cpf)
	}
	return s.repo.ListCPFCancelamentos(ctx, prefeituraID, cpf)
}

// normalizeHorarios valida o formato HH:MM e remove duplicados, em ordem.
func normalizeHorarios(horarios []string) ([]string, error) {
	seen := make(map[string]struct{}, len(horarios))
	out := make([]string, 0, len(horarios))
	for _, h := range horarios {
		h = strings.TrimSpace(h)
		parsed, err := time.Parse("15:04", h)
		if err != nil {
			return nil, fmt.Errorf("%w: horário %q fora do formato HH:MM", ErrValidation, h)
		}
		canonical := parsed.Format("15:04")
		if _, ok := seen[canonical]; ok {
			continue
		}
		seen[canonical] = struct{}{}
		out = append(out, canonical)
	}
	sort.Strings(out)
	return out, nil
}
