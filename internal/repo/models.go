package repo

import (
	"time"

	"github.com/google/uuid"
)

// Usuario representa operador do backoffice de uma prefeitura.
type Usuario struct {
	ID           uuid.UUID
	Nome         string
	Email        string
	CPF          *string
	SenhaHash    string
	Roles        []string
	Ativo        bool
	PrefeituraID uuid.UUID
	CriadoEm     time.Time
}
