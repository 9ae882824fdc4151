package monitor

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

// Tipos de ocorrência de integridade.
const (
	TipoProtocoloAusente   = "PROTOCOLO_AUSENTE"
	TipoProtocoloDuplicado = "PROTOCOLO_DUPLICADO"
	TipoDataBloqueada      = "AGENDAMENTO_EM_DATA_BLOQUEADA"
)

// Ocorrencia é um achado de integridade sobre os dados de agendamento.
type Ocorrencia struct {
	ID           uuid.UUID  `json:"id"`
	PrefeituraID uuid.UUID  `json:"prefeitura_id"`
	Tipo         string     `json:"tipo"`
	Referencia   string     `json:"referencia"`
	Detalhe      string     `json:"detalhe"`
	DetectadaEm  time.Time  `json:"detectada_em"`
	ResolvidaEm  *time.Time `json:"resolvida_em,omitempty"`
}

// Repository persiste ocorrências e executa as consultas de verificação.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ProtocolosAusentes lista agendamentos sem protocolo atribuído.
func (r *Repository) ProtocolosAusentes(ctx context.Context, prefeituraID uuid.UUID) ([]int64, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, `
		SELECT id
		FROM agendamentos
		WHERE prefeitura_id = $1
		  AND (protocolo IS NULL OR protocolo = '')
		ORDER BY id`, prefeituraID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ProtocolosDuplicados lista protocolos repetidos dentro do tenant.
func (r *Repository) ProtocolosDuplicados(ctx context.Context, prefeituraID uuid.UUID) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, `
		SELECT protocolo
		FROM agendamentos
		WHERE prefeitura_id = $1
		  AND protocolo IS NOT NULL AND protocolo <> ''
		GROUP BY protocolo
		HAVING COUNT(*) > 1
		ORDER BY protocolo`, prefeituraID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var protocolos []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		protocolos = append(protocolos, p)
	}
	return protocolos, rows.Err()
}

// AgendamentosEmDataBloqueada lista agendamentos ativos caídos em datas
// bloqueadas por dia inteiro (bloqueio criado depois da reserva).
func (r *Repository) AgendamentosEmDataBloqueada(ctx context.Context, prefeituraID uuid.UUID) ([]int64, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, `
		SELECT a.id
		FROM agendamentos a
		JOIN datas_bloqueadas d
		  ON d.prefeitura_id = a.prefeitura_id
		 AND d.data = a.data_agendamento
		 AND d.tipo_bloqueio = 'DIA_INTEIRO'
		WHERE a.prefeitura_id = $1
		  AND a.status NOT IN ('CANCELADO', 'CONCLUIDO', 'FALTOU')
		ORDER BY a.id`, prefeituraID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// RegistrarOcorrencia grava um achado ainda aberto. Devolve false quando a
// mesma referência já está registrada sem resolução.
func (r *Repository) RegistrarOcorrencia(ctx context.Context, o Ocorrencia) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `
		INSERT INTO monitor_ocorrencias (id, prefeitura_id, tipo, referencia, detalhe, detectada_em)
		SELECT gen_random_uuid(), $1, $2, $3, $4, now()
		WHERE NOT EXISTS (
			SELECT 1 FROM monitor_ocorrencias
			WHERE prefeitura_id = $1 AND tipo = $2 AND referencia = $3 AND resolvida_em IS NULL
		)`, o.PrefeituraID, o.Tipo, o.Referencia, o.Detalhe)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ResolverAusentes marca como resolvidas as ocorrências cuja referência não
// aparece mais entre os achados atuais do tipo.
func (r *Repository) ResolverAusentes(ctx context.Context, prefeituraID uuid.UUID, tipo string, referenciasAtuais []string) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	_, err := r.pool.Exec(ctx, `
		UPDATE monitor_ocorrencias
		SET resolvida_em = now()
		WHERE prefeitura_id = $1
		  AND tipo = $2
		  AND resolvida_em IS NULL
		  AND NOT (referencia = ANY($3))`, prefeituraID, tipo, referenciasAtuais)
	return err
}

// ListOcorrencias devolve as ocorrências mais recentes do tenant.
func (r *Repository) ListOcorrencias(ctx context.Context, prefeituraID uuid.UUID, apenasAbertas bool, limit int) ([]Ocorrencia, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if limit <= 0 || limit > 500 {
		limit = 100
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, prefeitura_id, tipo, referencia, detalhe, detectada_em, resolvida_em
		FROM monitor_ocorrencias
		WHERE prefeitura_id = $1
		  AND ($2 = false OR resolvida_em IS NULL)
		ORDER BY detectada_em DESC
		LIMIT $3`, prefeituraID, apenasAbertas, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Ocorrencia
	for rows.Next() {
		var o Ocorrencia
		if err := rows.Scan(&o.ID, &o.PrefeituraID, &o.Tipo, &o.Referencia, &o.Detalhe, &o.DetectadaEm, &o.ResolvidaEm); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// UltimaNotificacaoDesde verifica se já houve alerta do tipo na janela.
func (r *Repository) UltimaNotificacaoDesde(ctx context.Context, prefeituraID uuid.UUID, tipo string, desde time.Time) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var id uuid.UUID
	err := r.pool.QueryRow(ctx, `
		SELECT id
		FROM monitor_ocorrencias
		WHERE prefeitura_id = $1 AND tipo = $2 AND detectada_em >= $3
		ORDER BY detectada_em DESC
		LIMIT 1`, prefeituraID, tipo, desde).Scan(&id)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	return false, err
}
