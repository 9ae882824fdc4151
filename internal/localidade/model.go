package localidade

import (
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrNotFound indica localidade ou bairro inexistente no tenant.
	ErrNotFound = errors.New("registro não encontrado")
	// ErrValidation embrulha falhas de validação de entrada.
	ErrValidation = errors.New("dados inválidos")
	// ErrLocalidadeDivergente indica bairro apontando para localidade de outra prefeitura.
	ErrLocalidadeDivergente = errors.New("localidade não pertence à prefeitura")
	// ErrEmUso indica registro referenciado por agendamentos.
	ErrEmUso = errors.New("registro em uso por agendamentos")
)

// LocalidadeOrigem é um distrito, povoado ou zona de origem do cidadão.
type LocalidadeOrigem struct {
	ID           uuid.UUID `json:"id"`
	Nome         string    `json:"nome"`
	Tipo         string    `json:"tipo"`
	PrefeituraID uuid.UUID `json:"-"`
}

// Bairro pertence a uma localidade de origem da mesma prefeitura.
type Bairro struct {
	ID           uuid.UUID `json:"id"`
	Nome         string    `json:"nome"`
	LocalidadeID uuid.UUID `json:"localidade_id"`
	PrefeituraID uuid.UUID `json:"-"`
}

// LocalidadeInput são os dados de cadastro de localidade.
type LocalidadeInput struct {
	Nome string `json:"nome"`
	Tipo string `json:"tipo"`
}

// BairroInput são os dados de cadastro de bairro.
type BairroInput struct {
	Nome         string    `json:"nome"`
	LocalidadeID uuid.UUID `json:"localidade_id"`
}
