package agenda

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/agendacidade/api/internal/util"
)

// Store define o acesso a dados exigido pelo serviço de agendamento.
type Store interface {
	ListLocais(ctx context.Context, prefeituraID uuid.UUID) ([]LocalAtendimento, error)
	GetLocal(ctx context.Context, prefeituraID, localID uuid.UUID) (LocalAtendimento, error)
	CreateLocal(ctx context.Context, prefeituraID uuid.UUID, input LocalInput) (LocalAtendimento, error)
	UpdateLocal(ctx context.Context, prefeituraID, localID uuid.UUID, input LocalInput) (LocalAtendimento, error)
	DeleteLocal(ctx context.Context, prefeituraID, localID uuid.UUID) error
	CreateAgendamento(ctx context.Context, input CreateInput) (Agendamento, error)
	ListAgendamentos(ctx context.Context, prefeituraID uuid.UUID, filter Filter) ([]Agendamento, error)
	GetAgendamento(ctx context.Context, prefeituraID uuid.UUID, id int64) (Agendamento, error)
	DeleteAgendamento(ctx context.Context, prefeituraID uuid.UUID, id int64) error
	SolicitarCancelamento(ctx context.Context, prefeituraID uuid.UUID, id int64, cpf string, motivo *string) (Agendamento, error)
	UpdateStatus(ctx context.Context, prefeituraID uuid.UUID, id int64, status string) (Agendamento, error)
	OcupacaoPorHorario(ctx context.Context, prefeituraID, localID uuid.UUID, data time.Time) (map[string]int, error)
	BloqueiosDaData(ctx context.Context, prefeituraID uuid.UUID, data time.Time) (bool, []string, error)
}

// Service contém as regras do módulo de agendamento.
type Service struct {
	repo  Store
	cache *redis.Client
}

func NewService(repo Store, cache *redis.Client) *Service {
	return &Service{repo: repo, cache: cache}
}

const disponibilidadeTTL = 60 * time.Second

func disponibilidadeKey(prefeituraID, localID uuid.UUID, data time.Time) string {
	return fmt.Sprintf("agd:vagas:%s:%s:%s", prefeituraID, localID, data.Format("2006-01-02"))
}

func (s *Service) ListLocais(ctx context.Context, prefeituraID uuid.UUID) ([]LocalAtendimento, error) {
	return s.repo.ListLocais(ctx, prefeituraID)
}

func (s *Service) CreateLocal(ctx context.Context, prefeituraID uuid.UUID, input LocalInput) (LocalAtendimento, error) {
	if err := validateLocalInput(input); err != nil {
		return LocalAtendimento{}, err
	}
	return s.repo.CreateLocal(ctx, prefeituraID, input)
}

func (s *Service) UpdateLocal(ctx context.Context, prefeituraID, localID uuid.UUID, input LocalInput) (LocalAtendimento, error) {
	if err := validateLocalInput(input); err != nil {
		return LocalAtendimento{}, err
	}
	return s.repo.UpdateLocal(ctx, prefeituraID, localID, input)
}

func (s *Service) DeleteLocal(ctx context.Context, prefeituraID, localID uuid.UUID) error {
	return s.repo.DeleteLocal(ctx, prefeituraID, localID)
}

// Disponibilidade devolve a grade do local com vagas remanescentes na data.
// Horários bloqueados ou lotados não aparecem. O resultado fica 60s no Redis.
func (s *Service) Disponibilidade(ctx context.Context, prefeituraID, localID uuid.UUID, data time.Time) ([]HorarioDisponivel, error) {
	key := disponibilidadeKey(prefeituraID, localID, data)
	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, key).Bytes(); err == nil {
			var horarios []HorarioDisponivel
			if json.Unmarshal(raw, &horarios) == nil {
				return horarios, nil
			}
		}
	}

	local, err := s.repo.GetLocal(ctx, prefeituraID, localID)
	if err != nil {
		return nil, err
	}
	if !local.Ativo {
		return nil, ErrLocalInativo
	}

	diaInteiro, horasBloqueadas, err := s.repo.BloqueiosDaData(ctx, prefeituraID, data)
	if err != nil {
		return nil, err
	}
	if diaInteiro {
		return []HorarioDisponivel{}, nil
	}

	ocupacao, err := s.repo.OcupacaoPorHorario(ctx, prefeituraID, localID, data)
	if err != nil {
		return nil, err
	}

	bloqueadas := make(map[string]struct{}, len(horasBloqueadas))
	for _, h := range horasBloqueadas {
		bloqueadas[h] = struct{}{}
	}

	horarios := []HorarioDisponivel{}
	for _, hora := range local.Grade() {
		if _, ok := bloqueadas[hora]; ok {
			continue
		}
		vagas := local.VagasPorHorario - ocupacao[hora]
		if vagas <= 0 {
			continue
		}
		horarios = append(horarios, HorarioDisponivel{Hora: hora, Vagas: vagas})
	}

	if s.cache != nil {
		if payload, err := json.Marshal(horarios); err == nil {
			_ = s.cache.Set(ctx, key, payload, disponibilidadeTTL).Err()
		}
	}

	return horarios, nil
}

// Agendar valida os dados do cidadão e delega a reserva transacional.
func (s *Service) Agendar(ctx context.Context, input CreateInput) (Agendamento, error) {
	input.CidadaoNome = strings.TrimSpace(input.CidadaoNome)
	if input.CidadaoNome == "" {
		return Agendamento{}, fmt.Errorf("%w: nome do cidadão obrigatório", ErrValidation)
	}
	if err := util.ValidateCPF(input.CidadaoCPF); err != nil {
		return Agendamento{}, err
	}
	input.CidadaoCPF = util.NormalizeCPF(input.CidadaoCPF)

	if _, err := time.Parse("15:04", input.Hora); err != nil {
		return Agendamento{}, ErrHoraForaDaGrade
	}

	hoje := truncateDate(time.Now())
	input.Data = truncateDate(input.Data)
	if input.Data.Before(hoje) {
		return Agendamento{}, ErrDataPassada
	}

	created, err := s.repo.CreateAgendamento(ctx, input)
	if err != nil {
		return Agendamento{}, err
	}

	s.invalidateDisponibilidade(ctx, input.PrefeituraID, input.LocalID, input.Data)
	return created, nil
}

func (s *Service) List(ctx context.Context, prefeituraID uuid.UUID, filter Filter) ([]Agendamento, error) {
	if filter.CPF != "" {
		filter.CPF = util.NormalizeCPF(filter.CPF)
	}
	return s.repo.ListAgendamentos(ctx, prefeituraID, filter)
}

func (s *Service) Get(ctx context.Context, prefeituraID uuid.UUID, id int64) (Agendamento, error) {
	return s.repo.GetAgendamento(ctx, prefeituraID, id)
}

func (s *Service) Delete(ctx context.Context, prefeituraID uuid.UUID, id int64) error {
	a, err := s.repo.GetAgendamento(ctx, prefeituraID, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteAgendamento(ctx, prefeituraID, id); err != nil {
		return err
	}
	s.invalidateDisponibilidade(ctx, prefeituraID, a.LocalID, a.Data)
	return nil
}

// SolicitarCancelamento registra o pedido do cidadão. O CPF informado
// precisa coincidir com o titular do agendamento.
func (s *Service) SolicitarCancelamento(ctx context.Context, prefeituraID uuid.UUID, id int64, cpf string, motivo *string) (Agendamento, error) {
	if err := util.ValidateCPF(cpf); err != nil {
		return Agendamento{}, err
	}
	return s.repo.SolicitarCancelamento(ctx, prefeituraID, id, util.NormalizeCPF(cpf), motivo)
}

// transições permitidas por status atual
var statusTransitions = map[string][]string{
	StatusAgendado:               {StatusCancelado, StatusConcluido, StatusFaltou},
	StatusCancelamentoSolicitado: {StatusCancelado, StatusAgendado},
}

// AtualizarStatus aplica transição administrativa de status.
func (s *Service) AtualizarStatus(ctx context.Context, prefeituraID uuid.UUID, id int64, novoStatus string) (Agendamento, error) {
	novoStatus = strings.ToUpper(strings.TrimSpace(novoStatus))

	atual, err := s.repo.GetAgendamento(ctx, prefeituraID, id)
	if err != nil {
		return Agendamento{}, err
	}

	permitidos := statusTransitions[atual.Status]
	allowed := false
	for _, st := range permitidos {
		if st == novoStatus {
			allowed = true
			break
		}
	}
	if !allowed {
		return Agendamento{}, ErrStatusInvalido
	}

	updated, err := s.repo.UpdateStatus(ctx, prefeituraID, id, novoStatus)
	if err != nil {
		return Agendamento{}, err
	}

	if novoStatus == StatusCancelado {
		s.invalidateDisponibilidade(ctx, prefeituraID, updated.LocalID, updated.Data)
	}
	return updated, nil
}

func (s *Service) invalidateDisponibilidade(ctx context.Context, prefeituraID, localID uuid.UUID, data time.Time) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Del(ctx, disponibilidadeKey(prefeituraID, localID, data)).Err()
}

func validateLocalInput(input LocalInput) error {
	if strings.TrimSpace(input.Nome) == "" {
		return fmt.Errorf("%w: nome do local obrigatório", ErrValidation)
	}
	abertura, err := time.Parse("15:04", input.HoraAbertura)
	if err != nil {
		return fmt.Errorf("%w: hora de abertura inválida", ErrValidation)
	}
	fechamento, err := time.Parse("15:04", input.HoraFechamento)
	if err != nil {
		return fmt.Errorf("%w: hora de fechamento inválida", ErrValidation)
	}
	if !abertura.Before(fechamento) {
		return fmt.Errorf("%w: abertura deve anteceder o fechamento", ErrValidation)
	}
	if input.IntervaloMinutos <= 0 {
		return fmt.Errorf("%w: intervalo deve ser positivo", ErrValidation)
	}
	if input.VagasPorHorario <= 0 {
		return fmt.Errorf("%w: vagas por horário deve ser positivo", ErrValidation)
	}
	return nil
}

func truncateDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
