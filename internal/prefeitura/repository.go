package prefeitura

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 3 * time.Second

// Repository provê acesso ao armazenamento de prefeituras.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository cria um novo repositório de prefeituras.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const prefeituraColumns = `id, nome, slug, ativo, settings, logo_url, criado_em, atualizado_em`

// GetBySlug busca prefeitura pelo slug normalizado.
func (r *Repository) GetBySlug(ctx context.Context, slug string) (*Prefeitura, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	row := r.pool.QueryRow(ctx, `
		SELECT `+prefeituraColumns+`
		FROM prefeituras
		WHERE slug = $1
	`, slug)
	return scanPrefeitura(row)
}

// GetByID busca prefeitura pelo identificador.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Prefeitura, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	row := r.pool.QueryRow(ctx, `
		SELECT `+prefeituraColumns+`
		FROM prefeituras
		WHERE id = $1
	`, id)
	return scanPrefeitura(row)
}

// List devolve todas as prefeituras ordenadas por criação.
func (r *Repository) List(ctx context.Context) ([]Prefeitura, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, `
		SELECT `+prefeituraColumns+`
		FROM prefeituras
		ORDER BY criado_em DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var prefeituras []Prefeitura
	for rows.Next() {
		p, err := scanPrefeitura(rows)
		if err != nil {
			return nil, err
		}
		prefeituras = append(prefeituras, *p)
	}

	return prefeituras, rows.Err()
}

// Create insere uma nova prefeitura e devolve os dados persistidos.
func (r *Repository) Create(ctx context.Context, input CreateInput) (*Prefeitura, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	settingsJSON, err := jsonMarshalMap(input.Settings)
	if err != nil {
		return nil, err
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO prefeituras (nome, slug, ativo, settings)
		VALUES ($1, $2, TRUE, $3)
		RETURNING `+prefeituraColumns+`
	`,
		strings.TrimSpace(input.Nome),
		strings.TrimSpace(strings.ToLower(input.Slug)),
		settingsJSON,
	)

	p, err := scanPrefeitura(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrSlugEmUso
		}
		return nil, err
	}
	return p, nil
}

// SetAtivo liga/desliga a prefeitura.
func (r *Repository) SetAtivo(ctx context.Context, id uuid.UUID, ativo bool) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `
		UPDATE prefeituras
		SET ativo = $2,
		    atualizado_em = now()
		WHERE id = $1
	`, id, ativo)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateSettings atualiza apenas o campo settings e o timestamp.
func (r *Repository) UpdateSettings(ctx context.Context, id uuid.UUID, settings map[string]any) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	settingsJSON, err := jsonMarshalMap(settings)
	if err != nil {
		return err
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE prefeituras
		SET settings = $2,
		    atualizado_em = now()
		WHERE id = $1
	`, id, settingsJSON)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateLogoURL grava a URL pública do brasão/logo.
func (r *Repository) UpdateLogoURL(ctx context.Context, id uuid.UUID, logoURL string) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `
		UPDATE prefeituras
		SET logo_url = $2,
		    atualizado_em = now()
		WHERE id = $1
	`, id, logoURL)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanPrefeitura(row pgx.Row) (*Prefeitura, error) {
	var (
		p           Prefeitura
		settingsRaw []byte
		logoURL     *string
	)

	if err := row.Scan(&p.ID, &p.Nome, &p.Slug, &p.Ativo, &settingsRaw, &logoURL, &p.CriadoEm, &p.AtualizadoEm); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	settings, err := decodeJSONMap(settingsRaw)
	if err != nil {
		return nil, err
	}
	p.Settings = settings
	p.LogoURL = logoURL

	return &p, nil
}

func decodeJSONMap(raw []byte) (map[string]any, error) {
	if len(raw) == 0 {
		return map[string]any{}, nil
	}
	var result map[string]any
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, err
	}
	if result == nil {
		return map[string]any{}, nil
	}
	return result, nil
}

func jsonMarshalMap(m map[string]any) ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}
