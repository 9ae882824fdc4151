package agenda

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agendacidade/api/internal/db"
)

const dbTimeout = 3 * time.Second

// Repository fornece acesso aos dados de agendamento.
type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const localColumns = `id, nome, endereco, ativo, hora_abertura, hora_fechamento, intervalo_minutos, vagas_por_horario, prefeitura_id`

func (r *Repository) ListLocais(ctx context.Context, prefeituraID uuid.UUID) ([]LocalAtendimento, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT `+localColumns+`
		FROM locais_atendimento
		WHERE prefeitura_id = $1
		ORDER BY nome
	`, prefeituraID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var locais []LocalAtendimento
	for rows.Next() {
		l, err := scanLocal(rows)
		if err != nil {
			return nil, err
		}
		locais = append(locais, l)
	}
	return locais, rows.Err()
}

func (r *Repository) GetLocal(ctx context.Context, prefeituraID, localID uuid.UUID) (LocalAtendimento, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	row := r.db.QueryRow(ctx, `
		SELECT `+localColumns+`
		FROM locais_atendimento
		WHERE prefeitura_id = $1 AND id = $2
	`, prefeituraID, localID)
	l, err := scanLocal(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return LocalAtendimento{}, errNotFound
	}
	return l, err
}

func (r *Repository) CreateLocal(ctx context.Context, prefeituraID uuid.UUID, input LocalInput) (LocalAtendimento, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	row := r.db.QueryRow(ctx, `
		INSERT INTO locais_atendimento (nome, endereco, ativo, hora_abertura, hora_fechamento, intervalo_minutos, vagas_por_horario, prefeitura_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING `+localColumns+`
	`, input.Nome, input.Endereco, input.Ativo, input.HoraAbertura, input.HoraFechamento, input.IntervaloMinutos, input.VagasPorHorario, prefeituraID)
	return scanLocal(row)
}

func (r *Repository) UpdateLocal(ctx context.Context, prefeituraID, localID uuid.UUID, input LocalInput) (LocalAtendimento, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	row := r.db.QueryRow(ctx, `
		UPDATE locais_atendimento
		SET nome = $3,
		    endereco = $4,
		    ativo = $5,
		    hora_abertura = $6,
		    hora_fechamento = $7,
		    intervalo_minutos = $8,
		    vagas_por_horario = $9
		WHERE prefeitura_id = $1 AND id = $2
		RETURNING `+localColumns+`
	`, prefeituraID, localID, input.Nome, input.Endereco, input.Ativo, input.HoraAbertura, input.HoraFechamento, input.IntervaloMinutos, input.VagasPorHorario)
	l, err := scanLocal(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return LocalAtendimento{}, errNotFound
	}
	return l, err
}

func (r *Repository) DeleteLocal(ctx context.Context, prefeituraID, localID uuid.UUID) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
		DELETE FROM locais_atendimento
		WHERE prefeitura_id = $1 AND id = $2
	`, prefeituraID, localID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errNotFound
	}
	return nil
}

const agendamentoColumns = `a.id, a.protocolo, a.cidadao_nome, a.cidadao_cpf, a.cidadao_telefone, a.local_id, l.nome, a.localidade_id, a.bairro_id, a.data_agendamento, a.hora_agendamento, a.status, a.prefeitura_id, a.criado_em, a.atualizado_em`

// CreateAgendamento executa a reserva completa em uma transação única.
// O lock na linha do local serializa requisições concorrentes do mesmo
// local; contagem de vagas, bloqueios de data e de CPF são verificados
// sob esse lock, e o protocolo é atribuído antes do commit. Um advisory
// lock por (prefeitura, cpf, data) serializa também reservas do mesmo
// CPF em locais diferentes, fechando a janela do check de duplicidade.
func (r *Repository) CreateAgendamento(ctx context.Context, input CreateInput) (Agendamento, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var created Agendamento

	err := db.WithTx(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		var local LocalAtendimento
		err := tx.QueryRow(ctx, `
			SELECT id, nome, ativo, hora_abertura, hora_fechamento, intervalo_minutos, vagas_por_horario
			FROM locais_atendimento
			WHERE prefeitura_id = $1 AND id = $2
			FOR UPDATE
		`, input.PrefeituraID, input.LocalID).Scan(&local.ID, &local.Nome, &local.Ativo, &local.HoraAbertura, &local.HoraFechamento, &local.IntervaloMinutos, &local.VagasPorHorario)
		if errors.Is(err, pgx.ErrNoRows) {
			return errNotFound
		}
		if err != nil {
			return err
		}
		if !local.Ativo {
			return ErrLocalInativo
		}
		if !local.ContemHorario(input.Hora) {
			return ErrHoraForaDaGrade
		}

		if _, err := tx.Exec(ctx, `
			SELECT pg_advisory_xact_lock(hashtextextended($1::text || ':' || $2 || ':' || $3::date::text, 0))
		`, input.PrefeituraID, input.CidadaoCPF, input.Data); err != nil {
			return err
		}

		bloqueada, err := dataBloqueadaParaHora(ctx, tx, input.PrefeituraID, input.Data, input.Hora)
		if err != nil {
			return err
		}
		if bloqueada {
			return ErrDataBloqueada
		}

		var cpfBloqueado bool
		err = tx.QueryRow(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM cpf_bloqueios
				WHERE prefeitura_id = $1 AND cpf = $2
				  AND (expira_em IS NULL OR expira_em > now())
			)
		`, input.PrefeituraID, input.CidadaoCPF).Scan(&cpfBloqueado)
		if err != nil {
			return err
		}
		if cpfBloqueado {
			return ErrCPFBloqueado
		}

		var duplicado bool
		err = tx.QueryRow(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM agendamentos
				WHERE prefeitura_id = $1 AND cidadao_cpf = $2
				  AND data_agendamento = $3 AND status <> $4
			)
		`, input.PrefeituraID, input.CidadaoCPF, input.Data, StatusCancelado).Scan(&duplicado)
		if err != nil {
			return err
		}
		if duplicado {
			return ErrAgendamentoDuplicado
		}

		var ocupadas int
		err = tx.QueryRow(ctx, `
			SELECT COUNT(*) FROM agendamentos
			WHERE prefeitura_id = $1 AND local_id = $2
			  AND data_agendamento = $3 AND hora_agendamento = $4
			  AND status <> $5
		`, input.PrefeituraID, input.LocalID, input.Data, input.Hora, StatusCancelado).Scan(&ocupadas)
		if err != nil {
			return err
		}
		if ocupadas >= local.VagasPorHorario {
			return ErrSemVagas
		}

		err = tx.QueryRow(ctx, `
			INSERT INTO agendamentos (cidadao_nome, cidadao_cpf, cidadao_telefone, local_id, localidade_id, bairro_id, data_agendamento, hora_agendamento, status, prefeitura_id)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
			RETURNING id, criado_em, atualizado_em
		`, input.CidadaoNome, input.CidadaoCPF, input.CidadaoTelefone, input.LocalID, input.LocalidadeID, input.BairroID, input.Data, input.Hora, StatusAgendado, input.PrefeituraID).
			Scan(&created.ID, &created.CriadoEm, &created.AtualizadoEm)
		if err != nil {
			return err
		}

		// protocolo atribuído na mesma transação; a unicidade é garantida
		// por constraint de banco, nunca por reparo posterior
		err = tx.QueryRow(ctx, `
			UPDATE agendamentos
			SET protocolo = $2
			WHERE id = $1
			RETURNING protocolo
		`, created.ID, FormatProtocolo(created.ID)).Scan(&created.Protocolo)
		if err != nil {
			return err
		}

		created.CidadaoNome = input.CidadaoNome
		created.CidadaoCPF = input.CidadaoCPF
		created.CidadaoTelefone = input.CidadaoTelefone
		created.LocalID = input.LocalID
		created.LocalNome = local.Nome
		created.LocalidadeID = input.LocalidadeID
		created.BairroID = input.BairroID
		created.Data = input.Data
		created.Hora = input.Hora
		created.Status = StatusAgendado
		created.PrefeituraID = input.PrefeituraID
		return nil
	})
	if err != nil {
		return Agendamento{}, err
	}

	return created, nil
}

func (r *Repository) ListAgendamentos(ctx context.Context, prefeituraID uuid.UUID, filter Filter) ([]Agendamento, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT `+agendamentoColumns+`
		FROM agendamentos a
		JOIN locais_atendimento l ON l.id = a.local_id
		WHERE a.prefeitura_id = $1
		  AND ($2 = '' OR a.cidadao_cpf = $2)
		  AND ($3::date IS NULL OR a.data_agendamento = $3)
		  AND ($4 = '' OR a.status = $4)
		ORDER BY a.data_agendamento, a.hora_agendamento, a.id
	`, prefeituraID, filter.CPF, filter.Data, filter.Status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var agendamentos []Agendamento
	for rows.Next() {
		a, err := scanAgendamento(rows)
		if err != nil {
			return nil, err
		}
		agendamentos = append(agendamentos, a)
	}
	return agendamentos, rows.Err()
}

func (r *Repository) GetAgendamento(ctx context.Context, prefeituraID uuid.UUID, id int64) (Agendamento, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	row := r.db.QueryRow(ctx, `
		SELECT `+agendamentoColumns+`
		FROM agendamentos a
		JOIN locais_atendimento l ON l.id = a.local_id
		WHERE a.prefeitura_id = $1 AND a.id = $2
	`, prefeituraID, id)
	a, err := scanAgendamento(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Agendamento{}, errNotFound
	}
	return a, err
}

func (r *Repository) DeleteAgendamento(ctx context.Context, prefeituraID uuid.UUID, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
		DELETE FROM agendamentos
		WHERE prefeitura_id = $1 AND id = $2
	`, prefeituraID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errNotFound
	}
	return nil
}

// SolicitarCancelamento marca o agendamento e registra o pedido no log de
// cancelamentos do CPF, na mesma transação.
func (r *Repository) SolicitarCancelamento(ctx context.Context, prefeituraID uuid.UUID, id int64, cpf string, motivo *string) (Agendamento, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var updated Agendamento

	err := db.WithTx(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		var (
			atualCPF    string
			atualStatus string
		)
		err := tx.QueryRow(ctx, `
			SELECT cidadao_cpf, status
			FROM agendamentos
			WHERE prefeitura_id = $1 AND id = $2
			FOR UPDATE
		`, prefeituraID, id).Scan(&atualCPF, &atualStatus)
		if errors.Is(err, pgx.ErrNoRows) {
			return errNotFound
		}
		if err != nil {
			return err
		}

		if atualCPF != cpf {
			return ErrCPFDivergente
		}
		if atualStatus != StatusAgendado {
			return ErrStatusInvalido
		}

		row := tx.QueryRow(ctx, `
			UPDATE agendamentos a
			SET status = $3,
			    atualizado_em = now()
			FROM locais_atendimento l
			WHERE a.prefeitura_id = $1 AND a.id = $2 AND l.id = a.local_id
			RETURNING `+agendamentoColumns+`
		`, prefeituraID, id, StatusCancelamentoSolicitado)
		updated, err = scanAgendamento(row)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO cpf_cancelamentos (cpf, agendamento_id, motivo, prefeitura_id)
			VALUES ($1,$2,$3,$4)
		`, cpf, id, motivo, prefeituraID)
		return err
	})
	if err != nil {
		return Agendamento{}, err
	}
	return updated, nil
}

func (r *Repository) UpdateStatus(ctx context.Context, prefeituraID uuid.UUID, id int64, status string) (Agendamento, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	row := r.db.QueryRow(ctx, `
		UPDATE agendamentos a
		SET status = $3,
		    atualizado_em = now()
		FROM locais_atendimento l
		WHERE a.prefeitura_id = $1 AND a.id = $2 AND l.id = a.local_id
		RETURNING `+agendamentoColumns+`
	`, prefeituraID, id, status)
	a, err := scanAgendamento(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Agendamento{}, errNotFound
	}
	return a, err
}

// OcupacaoPorHorario conta agendamentos ativos por hora do local na data.
func (r *Repository) OcupacaoPorHorario(ctx context.Context, prefeituraID, localID uuid.UUID, data time.Time) (map[string]int, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT hora_agendamento, COUNT(*)
		FROM agendamentos
		WHERE prefeitura_id = $1 AND local_id = $2
		  AND data_agendamento = $3 AND status <> $4
		GROUP BY hora_agendamento
	`, prefeituraID, localID, data, StatusCancelado)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ocupacao := make(map[string]int)
	for rows.Next() {
		var (
			hora  string
			total int
		)
		if err := rows.Scan(&hora, &total); err != nil {
			return nil, err
		}
		ocupacao[hora] = total
	}
	return ocupacao, rows.Err()
}

// BloqueiosDaData devolve se a data está inteiramente bloqueada e, no caso
// parcial, os horários bloqueados.
func (r *Repository) BloqueiosDaData(ctx context.Context, prefeituraID uuid.UUID, data time.Time) (bool, []string, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT tipo_bloqueio, horarios_bloqueados
		FROM datas_bloqueadas
		WHERE prefeitura_id = $1 AND data = $2
	`, prefeituraID, data)
	if err != nil {
		return false, nil, err
	}
	defer rows.Close()

	var horarios []string
	for rows.Next() {
		var (
			tipo  string
			horas []string
		)
		if err := rows.Scan(&tipo, &horas); err != nil {
			return false, nil, err
		}
		if tipo == "DIA_INTEIRO" {
			return true, nil, nil
		}
		horarios = append(horarios, horas...)
	}
	return false, horarios, rows.Err()
}

func dataBloqueadaParaHora(ctx context.Context, tx pgx.Tx, prefeituraID uuid.UUID, data time.Time, hora string) (bool, error) {
	rows, err := tx.Query(ctx, `
		SELECT tipo_bloqueio, horarios_bloqueados
		FROM datas_bloqueadas
		WHERE prefeitura_id = $1 AND data = $2
	`, prefeituraID, data)
	if err != nil {
		return false, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			tipo  string
			horas []string
		)
		if err := rows.Scan(&tipo, &horas); err != nil {
			return false, err
		}
		if tipo == "DIA_INTEIRO" {
			return true, nil
		}
		for _, h := range horas {
			if h == hora {
				return true, nil
			}
		}
	}
	return false, rows.Err()
}

func scanLocal(row pgx.Row) (LocalAtendimento, error) {
	var l LocalAtendimento
	err := row.Scan(&l.ID, &l.Nome, &l.Endereco, &l.Ativo, &l.HoraAbertura, &l.HoraFechamento, &l.IntervaloMinutos, &l.VagasPorHorario, &l.PrefeituraID)
	return l, err
}

func scanAgendamento(row pgx.Row) (Agendamento, error) {
	var a Agendamento
	err := row.Scan(&a.ID, &a.Protocolo, &a.CidadaoNome, &a.CidadaoCPF, &a.CidadaoTelefone, &a.LocalID, &a.LocalNome, &a.LocalidadeID, &a.BairroID, &a.Data, &a.Hora, &a.Status, &a.PrefeituraID, &a.CriadoEm, &a.AtualizadoEm)
	return a, err
}
