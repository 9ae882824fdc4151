package localidade

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 3 * time.Second

// Repository acessa localidades_origem e bairros no Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) ListLocalidades(ctx context.Context, prefeituraID uuid.UUID) ([]LocalidadeOrigem, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, `
		SELECT id, nome, tipo, prefeitura_id
		FROM localidades_origem
		WHERE prefeitura_id = $1
		ORDER BY nome`, prefeituraID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LocalidadeOrigem
	for rows.Next() {
		var l LocalidadeOrigem
		if err := rows.Scan(&l.ID, &l.Nome, &l.Tipo, &l.PrefeituraID); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *Repository) GetLocalidade(ctx context.Context, prefeituraID, id uuid.UUID) (LocalidadeOrigem, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var l LocalidadeOrigem
	err := r.pool.QueryRow(ctx, `
		SELECT id, nome, tipo, prefeitura_id
		FROM localidades_origem
		WHERE prefeitura_id = $1 AND id = $2`, prefeituraID, id).
		Scan(&l.ID, &l.Nome, &l.Tipo, &l.PrefeituraID)
	if errors.Is(err, pgx.ErrNoRows) {
		return LocalidadeOrigem{}, ErrNotFound
	}
	if err != nil {
		return LocalidadeOrigem{}, err
	}
	return l, nil
}

func (r *Repository) CreateLocalidade(ctx context.Context, prefeituraID uuid.UUID, input LocalidadeInput) (LocalidadeOrigem, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var l LocalidadeOrigem
	err := r.pool.QueryRow(ctx, `
		INSERT INTO localidades_origem (id, nome, tipo, prefeitura_id)
		VALUES (gen_random_uuid(), $1, $2, $3)
		RETURNING id, nome, tipo, prefeitura_id`, input.Nome, input.Tipo, prefeituraID).
		Scan(&l.ID, &l.Nome, &l.Tipo, &l.PrefeituraID)
	if err != nil {
		return LocalidadeOrigem{}, err
	}
	return l, nil
}

func (r *Repository) DeleteLocalidade(ctx context.Context, prefeituraID, id uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `
		DELETE FROM localidades_origem
		WHERE prefeitura_id = $1 AND id = $2`, prefeituraID, id)
	if isForeignKeyViolation(err) {
		return ErrEmUso
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) ListBairros(ctx context.Context, prefeituraID, localidadeID uuid.UUID) ([]Bairro, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, `
		SELECT id, nome, localidade_id, prefeitura_id
		FROM bairros
		WHERE prefeitura_id = $1 AND localidade_id = $2
		ORDER BY nome`, prefeituraID, localidadeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Bairro
	for rows.Next() {
		var b Bairro
		if err := rows.Scan(&b.ID, &b.Nome, &b.LocalidadeID, &b.PrefeituraID); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// CreateBairro garante que a localidade referenciada pertence à mesma prefeitura.
func (r *Repository) CreateBairro(ctx context.Context, prefeituraID uuid.UUID, input BairroInput) (Bairro, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var b Bairro
	err := r.pool.QueryRow(ctx, `
		INSERT INTO bairros (id, nome, localidade_id, prefeitura_id)
		SELECT gen_random_uuid(), $1, l.id, l.prefeitura_id
		FROM localidades_origem l
		WHERE l.id = $2 AND l.prefeitura_id = $3
		RETURNING id, nome, localidade_id, prefeitura_id`,
		input.Nome, input.LocalidadeID, prefeituraID).
		Scan(&b.ID, &b.Nome, &b.LocalidadeID, &b.PrefeituraID)
	if errors.Is(err, pgx.ErrNoRows) {
		return Bairro{}, ErrLocalidadeDivergente
	}
	if err != nil {
		return Bairro{}, err
	}
	return b, nil
}

func (r *Repository) DeleteBairro(ctx context.Context, prefeituraID, id uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `
		DELETE FROM bairros
		WHERE prefeitura_id = $1 AND id = $2`, prefeituraID, id)
	if isForeignKeyViolation(err) {
		return ErrEmUso
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
