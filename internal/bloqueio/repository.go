package bloqueio

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

// Repository acessa datas_bloqueadas, cpf_bloqueios e cpf_cancelamentos.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) ListDatasBloqueadas(ctx context.Context, prefeituraID uuid.UUID, apenasFuturas bool) ([]DataBloqueada, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, `
		SELECT id, data, motivo, tipo_bloqueio, horarios_bloqueados, criado_por, prefeitura_id, criado_em
		FROM datas_bloqueadas
		WHERE prefeitura_id = $1
		  AND ($2 = false OR data >= CURRENT_DATE)
		ORDER BY data`, prefeituraID, apenasFuturas)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DataBloqueada
	for rows.Next() {
		d, err := scanDataBloqueada(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *Repository) CreateDataBloqueada(ctx context.Context, prefeituraID uuid.UUID, data time.Time, motivo, tipo string, horarios []string, criadoPor string) (DataBloqueada, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	row := r.pool.QueryRow(ctx, `
		INSERT INTO datas_bloqueadas (id, data, motivo, tipo_bloqueio, horarios_bloqueados, criado_por, prefeitura_id, criado_em)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, now())
		RETURNING id, data, motivo, tipo_bloqueio, horarios_bloqueados, criado_por, prefeitura_id, criado_em`,
		data, motivo, tipo, horarios, criadoPor, prefeituraID)

	d, err := scanDataBloqueada(row)
	if isUniqueViolation(err) {
		return DataBloqueada{}, ErrDataJaBloqueada
	}
	if err != nil {
		return DataBloqueada{}, err
	}
	return d, nil
}

func (r *Repository) DeleteDataBloqueada(ctx context.Context, prefeituraID, id uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `
		DELETE FROM datas_bloqueadas
		WHERE prefeitura_id = $1 AND id = $2`, prefeituraID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) ListCPFBloqueios(ctx context.Context, prefeituraID uuid.UUID) ([]CPFBloqueio, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, `
		SELECT id, cpf, motivo, criado_por, prefeitura_id, criado_em, expira_em
		FROM cpf_bloqueios
		WHERE prefeitura_id = $1
		ORDER BY criado_em DESC`, prefeituraID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CPFBloqueio
	for rows.Next() {
		var b CPFBloqueio
		if err := rows.Scan(&b.ID, &b.CPF, &b.Motivo, &b.CriadoPor, &b.PrefeituraID, &b.CriadoEm, &b.ExpiraEm); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *Repository) CreateCPFBloqueio(ctx context.Context, prefeituraID uuid.UUID, cpf, motivo string, expiraEm *time.Time, criadoPor string) (CPFBloqueio, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var b CPFBloqueio
	err := r.pool.QueryRow(ctx, `
		INSERT INTO cpf_bloqueios (id, cpf, motivo, criado_por, prefeitura_id, criado_em, expira_em)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, now(), $5)
		RETURNING id, cpf, motivo, criado_por, prefeitura_id, criado_em, expira_em`,
		cpf, motivo, criadoPor, prefeituraID, expiraEm).
		Scan(&b.ID, &b.CPF, &b.Motivo, &b.CriadoPor, &b.PrefeituraID, &b.CriadoEm, &b.ExpiraEm)
	if err != nil {
		return CPFBloqueio{}, err
	}
	return b, nil
}

func (r *Repository) DeleteCPFBloqueio(ctx context.Context, prefeituraID, id uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `
		DELETE FROM cpf_bloqueios
		WHERE prefeitura_id = $1 AND id = $2`, prefeituraID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) ListCPFCancelamentos(ctx context.Context, prefeituraID uuid.UUID, cpf string) ([]CPFCancelamento, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, `
		SELECT id, cpf, agendamento_id, motivo, prefeitura_id, criado_em
		FROM cpf_cancelamentos
		WHERE prefeitura_id = $1
		  AND ($2 = '' OR cpf = $2)
		ORDER BY criado_em DESC`, prefeituraID, cpf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CPFCancelamento
	for rows.Next() {
		var c CPFCancelamento
		if err := rows.Scan(&c.ID, &c.CPF, &c.AgendamentoID, &c.Motivo, &c.PrefeituraID, &c.CriadoEm); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanDataBloqueada(row pgx.Row) (DataBloqueada, error) {
	var d DataBloqueada
	err := row.Scan(&d.ID, &d.Data, &d.Motivo, &d.TipoBloqueio, &d.HorariosBloqueados, &d.CriadoPor, &d.PrefeituraID, &d.CriadoEm)
	return d, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
