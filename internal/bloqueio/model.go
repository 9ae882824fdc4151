package bloqueio

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound indica bloqueio inexistente no tenant.
	ErrNotFound = errors.New("bloqueio não encontrado")
	// ErrValidation embrulha falhas de validação de entrada.
	ErrValidation = errors.New("dados inválidos")
	// ErrDataJaBloqueada indica bloqueio duplicado para a mesma data.
	ErrDataJaBloqueada = errors.New("data já possui bloqueio")
)

// Tipos de bloqueio de data.
const (
	TipoDiaInteiro = "DIA_INTEIRO"
	TipoParcial    = "PARCIAL"
)

// DataBloqueada impede agendamentos na data, no dia todo ou em horários específicos.
// HorariosBloqueados é nulo para DIA_INTEIRO e não vazio para PARCIAL.
type DataBloqueada struct {
	ID                 uuid.UUID `json:"id"`
	Data               time.Time `json:"data"`
	Motivo             string    `json:"motivo"`
	TipoBloqueio       string    `json:"tipo_bloqueio"`
	HorariosBloqueados []string  `json:"horarios_bloqueados,omitempty"`
	CriadoPor          string    `json:"criado_por"`
	PrefeituraID       uuid.UUID `json:"-"`
	CriadoEm           time.Time `json:"criado_em"`
}

// CPFBloqueio impede um cidadão de agendar enquanto ativo.
// Ativo enquanto ExpiraEm for nulo ou futuro.
type CPFBloqueio struct {
	ID           uuid.UUID  `json:"id"`
	CPF          string     `json:"cpf"`
	Motivo       string     `json:"motivo"`
	CriadoPor    string     `json:"criado_por"`
	PrefeituraID uuid.UUID  `json:"-"`
	CriadoEm     time.Time  `json:"criado_em"`
	ExpiraEm     *time.Time `json:"expira_em,omitempty"`
}

// Ativo indica se o bloqueio ainda vale no instante informado.
func (b CPFBloqueio) Ativo(agora time.Time) bool {
	return b.ExpiraEm == nil || b.ExpiraEm.After(agora)
}

// CPFCancelamento registra um pedido de cancelamento feito pelo cidadão.
// Log append-only; alimenta decisões de bloqueio do atendente.
type CPFCancelamento struct {
	ID            uuid.UUID `json:"id"`
	CPF           string    `json:"cpf"`
	AgendamentoID int64     `json:"agendamento_id"`
	Motivo        *string   `json:"motivo,omitempty"`
	PrefeituraID  uuid.UUID `json:"-"`
	CriadoEm      time.Time `json:"criado_em"`
}

// DataBloqueadaInput são os dados de criação de bloqueio de data.
type DataBloqueadaInput struct {
	Data               string   `json:"data"`
	Motivo             string   `json:"motivo"`
	TipoBloqueio       string   `json:"tipo_bloqueio"`
	HorariosBloqueados []string `json:"horarios_bloqueados"`
}

// CPFBloqueioInput são os dados de criação de bloqueio de CPF.
type CPFBloqueioInput struct {
	CPF      string     `json:"cpf"`
	Motivo   string     `json:"motivo"`
	ExpiraEm *time.Time `json:"expira_em"`
}
