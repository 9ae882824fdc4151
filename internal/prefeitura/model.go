package prefeitura

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound indica slug ou id sem prefeitura correspondente.
	ErrNotFound = errors.New("prefeitura não encontrada")
	// ErrInativa indica prefeitura desativada; nenhuma operação deve prosseguir.
	ErrInativa = errors.New("prefeitura inativa")
	// ErrSlugEmUso indica tentativa de cadastro com slug já existente.
	ErrSlugEmUso = errors.New("slug já cadastrado")
)

// Prefeitura representa um município/cliente na plataforma.
type Prefeitura struct {
	ID           uuid.UUID      `json:"id"`
	Nome         string         `json:"nome"`
	Slug         string         `json:"slug"`
	Ativo        bool           `json:"ativo"`
	Settings     map[string]any `json:"settings"`
	LogoURL      *string        `json:"logo_url,omitempty"`
	CriadoEm     time.Time      `json:"criado_em"`
	AtualizadoEm time.Time      `json:"atualizado_em"`
}

// CreateInput contém os campos necessários para registrar uma prefeitura.
type CreateInput struct {
	Nome     string
	Slug     string
	Settings map[string]any
}
