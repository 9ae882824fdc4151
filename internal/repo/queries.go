package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 3 * time.Second

// Queries agrupa consultas compartilhadas entre serviços.
type Queries struct {
	pool *pgxpool.Pool
}

// New cria o agregador de consultas.
func New(pool *pgxpool.Pool) *Queries {
	return &Queries{pool: pool}
}

const usuarioColumns = `id, nome, email, cpf, senha_hash, roles, ativo, prefeitura_id, criado_em`

// GetUsuarioByEmail busca usuário do backoffice pelo e-mail, escopado à prefeitura.
func (q *Queries) GetUsuarioByEmail(ctx context.Context, prefeituraID uuid.UUID, email string) (Usuario, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	row := q.pool.QueryRow(ctx, `
		SELECT `+usuarioColumns+`
		FROM usuarios
		WHERE prefeitura_id = $1 AND lower(email) = lower($2)
	`, prefeituraID, email)
	return scanUsuario(row)
}

// GetUsuarioByCPF busca usuário do backoffice pelo CPF, escopado à prefeitura.
func (q *Queries) GetUsuarioByCPF(ctx context.Context, prefeituraID uuid.UUID, cpf string) (Usuario, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	row := q.pool.QueryRow(ctx, `
		SELECT `+usuarioColumns+`
		FROM usuarios
		WHERE prefeitura_id = $1 AND cpf = $2
	`, prefeituraID, cpf)
	return scanUsuario(row)
}

// GetUsuarioByID busca usuário pelo identificador.
func (q *Queries) GetUsuarioByID(ctx context.Context, id uuid.UUID) (Usuario, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	row := q.pool.QueryRow(ctx, `
		SELECT `+usuarioColumns+`
		FROM usuarios
		WHERE id = $1
	`, id)
	return scanUsuario(row)
}

func scanUsuario(row pgx.Row) (Usuario, error) {
	var u Usuario
	err := row.Scan(&u.ID, &u.Nome, &u.Email, &u.CPF, &u.SenhaHash, &u.Roles, &u.Ativo, &u.PrefeituraID, &u.CriadoEm)
	if errors.Is(err, pgx.ErrNoRows) {
		return Usuario{}, ErrNotFound
	}
	return u, err
}
