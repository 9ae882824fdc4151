package agenda

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	errNotFound = errors.New("not found")

	// ErrValidation embrulha falhas de validação de entrada.
	ErrValidation = errors.New("dados inválidos")

	// ErrLocalInativo indica local de atendimento desativado.
	ErrLocalInativo = errors.New("local de atendimento inativo")
	// ErrHoraForaDaGrade indica horário fora da grade do local.
	ErrHoraForaDaGrade = errors.New("horário fora da grade do local")
	// ErrDataPassada indica tentativa de agendar em data anterior a hoje.
	ErrDataPassada = errors.New("data de agendamento no passado")
	// ErrDataBloqueada indica data (ou horário) bloqueada pela prefeitura.
	ErrDataBloqueada = errors.New("data bloqueada para agendamentos")
	// ErrCPFBloqueado indica cidadão impedido de agendar.
	ErrCPFBloqueado = errors.New("cpf bloqueado para agendamentos")
	// ErrSemVagas indica horário com capacidade esgotada.
	ErrSemVagas = errors.New("não há vagas para o horário")
	// ErrAgendamentoDuplicado indica cidadão com agendamento ativo na mesma data.
	ErrAgendamentoDuplicado = errors.New("cidadão já possui agendamento ativo na data")
	// ErrCPFDivergente indica CPF informado diferente do titular do agendamento.
	ErrCPFDivergente = errors.New("cpf não corresponde ao agendamento")
	// ErrStatusInvalido indica transição de status não permitida.
	ErrStatusInvalido = errors.New("status inválido")
)

// Status do agendamento ao longo do ciclo de vida.
const (
	StatusAgendado               = "AGENDADO"
	StatusCancelamentoSolicitado = "CANCELAMENTO_SOLICITADO"
	StatusCancelado              = "CANCELADO"
	StatusConcluido              = "CONCLUIDO"
	StatusFaltou                 = "FALTOU"
)

// LocalAtendimento descreve um ponto de atendimento e sua grade de horários.
// A grade é cada passo de IntervaloMinutos em [HoraAbertura, HoraFechamento).
type LocalAtendimento struct {
	ID               uuid.UUID `json:"id"`
	Nome             string    `json:"nome"`
	Endereco         string    `json:"endereco"`
	Ativo            bool      `json:"ativo"`
	HoraAbertura     string    `json:"hora_abertura"`
	HoraFechamento   string    `json:"hora_fechamento"`
	IntervaloMinutos int       `json:"intervalo_minutos"`
	VagasPorHorario  int       `json:"vagas_por_horario"`
	PrefeituraID     uuid.UUID `json:"-"`
}

// Grade devolve os horários atendidos pelo local, em ordem.
func (l LocalAtendimento) Grade() []string {
	abertura, errA := time.Parse("15:04", l.HoraAbertura)
	fechamento, errF := time.Parse("15:04", l.HoraFechamento)
	if errA != nil || errF != nil || l.IntervaloMinutos <= 0 || !abertura.Before(fechamento) {
		return nil
	}

	var grade []string
	for t := abertura; t.Before(fechamento); t = t.Add(time.Duration(l.IntervaloMinutos) * time.Minute) {
		grade = append(grade, t.Format("15:04"))
	}
	return grade
}

// ContemHorario verifica se a hora pertence à grade do local.
func (l LocalAtendimento) ContemHorario(hora string) bool {
	for _, h := range l.Grade() {
		if h == hora {
			return true
		}
	}
	return false
}

// Agendamento vincula um cidadão a um horário em um local da prefeitura.
type Agendamento struct {
	ID              int64      `json:"id"`
	Protocolo       string     `json:"protocolo"`
	CidadaoNome     string     `json:"cidadao_nome"`
	CidadaoCPF      string     `json:"cidadao_cpf"`
	CidadaoTelefone *string    `json:"cidadao_telefone,omitempty"`
	LocalID         uuid.UUID  `json:"local_id"`
	LocalNome       string     `json:"local_nome,omitempty"`
	LocalidadeID    *uuid.UUID `json:"localidade_id,omitempty"`
	BairroID        *uuid.UUID `json:"bairro_id,omitempty"`
	Data            time.Time  `json:"data_agendamento"`
	Hora            string     `json:"hora_agendamento"`
	Status          string     `json:"status"`
	PrefeituraID    uuid.UUID  `json:"-"`
	CriadoEm        time.Time  `json:"criado_em"`
	AtualizadoEm    time.Time  `json:"atualizado_em"`
}

// Ativo indica se o agendamento ainda ocupa vaga na grade.
func (a Agendamento) Ativo() bool {
	return a.Status != StatusCancelado
}

// CreateInput são os dados validados para criar um agendamento.
type CreateInput struct {
	PrefeituraID    uuid.UUID
	LocalID         uuid.UUID
	CidadaoNome     string
	CidadaoCPF      string
	CidadaoTelefone *string
	LocalidadeID    *uuid.UUID
	BairroID        *uuid.UUID
	Data            time.Time
	Hora            string
}

// Filter restringe listagens de agendamentos.
type Filter struct {
	CPF    string
	Data   *time.Time
	Status string
}

// HorarioDisponivel é um slot da grade com vagas remanescentes.
type HorarioDisponivel struct {
	Hora  string `json:"hora"`
	Vagas int    `json:"vagas"`
}

// LocalInput são os dados para cadastro/atualização de local de atendimento.
type LocalInput struct {
	Nome             string `json:"nome"`
	Endereco         string `json:"endereco"`
	Ativo            bool   `json:"ativo"`
	HoraAbertura     string `json:"hora_abertura"`
	HoraFechamento   string `json:"hora_fechamento"`
	IntervaloMinutos int    `json:"intervalo_minutos"`
	VagasPorHorario  int    `json:"vagas_por_horario"`
}

// FormatProtocolo deriva o protocolo humano a partir do id da linha.
// O formato é estável: nunca muda depois de atribuído.
func FormatProtocolo(id int64) string {
	return fmt.Sprintf("AGD-%d", id)
}
