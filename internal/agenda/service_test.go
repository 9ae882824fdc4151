package agenda

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/agendacidade/api/internal/util"
)

const cpfValido = "52998224725"

type stubRepo struct {
	local        LocalAtendimento
	localErr     error
	diaInteiro   bool
	horasBloq    []string
	ocupacao     map[string]int
	agendamento  Agendamento
	agendamentos []Agendamento
	createErr    error
	createCalls  int
	lastCreate   CreateInput
	lastStatus   string
	deleteCalls  int
	cancelCPF    string
}

func (s *stubRepo) ListLocais(ctx context.Context, prefeituraID uuid.UUID) ([]LocalAtendimento, error) {
	return []LocalAtendimento{s.local}, nil
}
func (s *stubRepo) GetLocal(ctx context.Context, prefeituraID, localID uuid.UUID) (LocalAtendimento, error) {
	if s.localErr != nil {
		return LocalAtendimento{}, s.localErr
	}
	return s.local, nil
}
func (s *stubRepo) CreateLocal(ctx context.Context, prefeituraID uuid.UUID, input LocalInput) (LocalAtendimento, error) {
	return s.local, nil
}
func (s *stubRepo) UpdateLocal(ctx context.Context, prefeituraID, localID uuid.UUID, input LocalInput) (LocalAtendimento, error) {
	return s.local, nil
}
func (s *stubRepo) DeleteLocal(ctx context.Context, prefeituraID, localID uuid.UUID) error {
	return nil
}
func (s *stubRepo) CreateAgendamento(ctx context.Context, input CreateInput) (Agendamento, error) {
	s.createCalls++
	s.lastCreate = input
	if s.createErr != nil {
		return Agendamento{}, s.createErr
	}
	return s.agendamento, nil
}
func (s *stubRepo) ListAgendamentos(ctx context.Context, prefeituraID uuid.UUID, filter Filter) ([]Agendamento, error) {
	return s.agendamentos, nil
}
func (s *stubRepo) GetAgendamento(ctx context.Context, prefeituraID uuid.UUID, id int64) (Agendamento, error) {
	return s.agendamento, nil
}
func (s *stubRepo) DeleteAgendamento(ctx context.Context, prefeituraID uuid.UUID, id int64) error {
	s.deleteCalls++
	return nil
}
func (s *stubRepo) SolicitarCancelamento(ctx context.Context, prefeituraID uuid.UUID, id int64, cpf string, motivo *string) (Agendamento, error) {
	s.cancelCPF = cpf
	out := s.agendamento
	out.Status = StatusCancelamentoSolicitado
	return out, nil
}
func (s *stubRepo) UpdateStatus(ctx context.Context, prefeituraID uuid.UUID, id int64, status string) (Agendamento, error) {
	s.lastStatus = status
	out := s.agendamento
	out.Status = status
	return out, nil
}
func (s *stubRepo) OcupacaoPorHorario(ctx context.Context, prefeituraID, localID uuid.UUID, data time.Time) (map[string]int, error) {
	return s.ocupacao, nil
}
func (s *stubRepo) BloqueiosDaData(ctx context.Context, prefeituraID uuid.UUID, data time.Time) (bool, []string, error) {
	return s.diaInteiro, s.horasBloq, nil
}

func localTeste() LocalAtendimento {
	return LocalAtendimento{
		ID:               uuid.New(),
		Nome:             "Sede",
		Ativo:            true,
		HoraAbertura:     "08:00",
		HoraFechamento:   "10:00",
		IntervaloMinutos: 30,
		VagasPorHorario:  2,
	}
}

func TestDisponibilidade(t *testing.T) {
	prefID := uuid.New()
	data := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)

	t.Run("grade completa sem ocupação", func(t *testing.T) {
		repo := &stubRepo{local: localTeste()}
		svc := NewService(repo, nil)

		horarios, err := svc.Disponibilidade(context.Background(), prefID, repo.local.ID, data)
		if err != nil {
			t.Fatalf("erro inesperado: %v", err)
		}
		if len(horarios) != 4 {
			t.Fatalf("esperado 4 horários, veio %d", len(horarios))
		}
		if horarios[0].Hora != "08:00" || horarios[0].Vagas != 2 {
			t.Fatalf("primeiro slot inesperado: %+v", horarios[0])
		}
	})

	t.Run("horário lotado some da grade", func(t *testing.T) {
		repo := &stubRepo{local: localTeste(), ocupacao: map[string]int{"08:00": 2, "08:30": 1}}
		svc := NewService(repo, nil)

		horarios, err := svc.Disponibilidade(context.Background(), prefID, repo.local.ID, data)
		if err != nil {
			t.Fatalf("erro inesperado: %v", err)
		}
		if len(horarios) != 3 {
			t.Fatalf("esperado 3 horários, veio %d", len(horarios))
		}
		if horarios[0].Hora != "08:30" || horarios[0].Vagas != 1 {
			t.Fatalf("slot parcial inesperado: %+v", horarios[0])
		}
	})

	t.Run("bloqueio parcial remove horários listados", func(t *testing.T) {
		repo := &stubRepo{local: localTeste(), horasBloq: []string{"09:00", "09:30"}}
		svc := NewService(repo, nil)

		horarios, err := svc.Disponibilidade(context.Background(), prefID, repo.local.ID, data)
		if err != nil {
			t.Fatalf("erro inesperado: %v", err)
		}
		if len(horarios) != 2 {
			t.Fatalf("esperado 2 horários, veio %d", len(horarios))
		}
	})

	t.Run("dia inteiro bloqueado devolve grade vazia", func(t *testing.T) {
		repo := &stubRepo{local: localTeste(), diaInteiro: true}
		svc := NewService(repo, nil)

		horarios, err := svc.Disponibilidade(context.Background(), prefID, repo.local.ID, data)
		if err != nil {
			t.Fatalf("erro inesperado: %v", err)
		}
		if len(horarios) != 0 {
			t.Fatalf("esperado grade vazia, veio %d", len(horarios))
		}
	})

	t.Run("local inativo", func(t *testing.T) {
		local := localTeste()
		local.Ativo = false
		repo := &stubRepo{local: local}
		svc := NewService(repo, nil)

		if _, err := svc.Disponibilidade(context.Background(), prefID, local.ID, data); !errors.Is(err, ErrLocalInativo) {
			t.Fatalf("esperado ErrLocalInativo, veio %v", err)
		}
	})
}

func TestAgendar(t *testing.T) {
	prefID := uuid.New()
	local := localTeste()
	amanha := time.Now().UTC().AddDate(0, 0, 1)

	base := func() CreateInput {
		return CreateInput{
			PrefeituraID: prefID,
			LocalID:      local.ID,
			CidadaoNome:  "Maria da Silva",
			CidadaoCPF:   "529.982.247-25",
			Data:         amanha,
			Hora:         "08:30",
		}
	}

	t.Run("sucesso normaliza cpf e trunca data", func(t *testing.T) {
		repo := &stubRepo{local: local, agendamento: Agendamento{ID: 7, Protocolo: "AGD-7", Status: StatusAgendado}}
		svc := NewService(repo, nil)

		a, err := svc.Agendar(context.Background(), base())
		if err != nil {
			t.Fatalf("erro inesperado: %v", err)
		}
		if a.Protocolo != "AGD-7" {
			t.Fatalf("protocolo inesperado: %s", a.Protocolo)
		}
		if repo.lastCreate.CidadaoCPF != cpfValido {
			t.Fatalf("cpf não normalizado: %s", repo.lastCreate.CidadaoCPF)
		}
		if h := repo.lastCreate.Data.Hour(); h != 0 {
			t.Fatalf("data não truncada: %v", repo.lastCreate.Data)
		}
	})

	t.Run("nome vazio", func(t *testing.T) {
		svc := NewService(&stubRepo{local: local}, nil)
		input := base()
		input.CidadaoNome = "  "
		if _, err := svc.Agendar(context.Background(), input); !errors.Is(err, ErrValidation) {
			t.Fatalf("esperado ErrValidation, veio %v", err)
		}
	})

	t.Run("cpf inválido", func(t *testing.T) {
		svc := NewService(&stubRepo{local: local}, nil)
		input := base()
		input.CidadaoCPF = "11111111111"
		if _, err := svc.Agendar(context.Background(), input); !errors.Is(err, util.ErrCPFInvalido) {
			t.Fatalf("esperado ErrCPFInvalido, veio %v", err)
		}
	})

	t.Run("hora malformada", func(t *testing.T) {
		svc := NewService(&stubRepo{local: local}, nil)
		input := base()
		input.Hora = "8h30"
		if _, err := svc.Agendar(context.Background(), input); !errors.Is(err, ErrHoraForaDaGrade) {
			t.Fatalf("esperado ErrHoraForaDaGrade, veio %v", err)
		}
	})

	t.Run("data no passado", func(t *testing.T) {
		repo := &stubRepo{local: local}
		svc := NewService(repo, nil)
		input := base()
		input.Data = time.Now().UTC().AddDate(0, 0, -1)
		if _, err := svc.Agendar(context.Background(), input); !errors.Is(err, ErrDataPassada) {
			t.Fatalf("esperado ErrDataPassada, veio %v", err)
		}
		if repo.createCalls != 0 {
			t.Fatalf("repo não deveria ter sido chamado")
		}
	})

	t.Run("conflitos do repositório sobem intactos", func(t *testing.T) {
		for _, sentinel := range []error{ErrSemVagas, ErrDataBloqueada, ErrCPFBloqueado, ErrAgendamentoDuplicado} {
			repo := &stubRepo{local: local, createErr: sentinel}
			svc := NewService(repo, nil)
			if _, err := svc.Agendar(context.Background(), base()); !errors.Is(err, sentinel) {
				t.Fatalf("esperado %v, veio %v", sentinel, err)
			}
		}
	})
}

func TestSolicitarCancelamento(t *testing.T) {
	prefID := uuid.New()
	repo := &stubRepo{agendamento: Agendamento{ID: 3, Protocolo: "AGD-3", CidadaoCPF: cpfValido, Status: StatusAgendado}}
	svc := NewService(repo, nil)

	a, err := svc.SolicitarCancelamento(context.Background(), prefID, 3, "529.982.247-25", nil)
	if err != nil {
		t.Fatalf("erro inesperado: %v", err)
	}
	if a.Status != StatusCancelamentoSolicitado {
		t.Fatalf("status inesperado: %s", a.Status)
	}
	if repo.cancelCPF != cpfValido {
		t.Fatalf("cpf não normalizado: %s", repo.cancelCPF)
	}

	if _, err := svc.SolicitarCancelamento(context.Background(), prefID, 3, "123", nil); !errors.Is(err, util.ErrCPFInvalido) {
		t.Fatalf("esperado ErrCPFInvalido, veio %v", err)
	}
}

func TestAtualizarStatus(t *testing.T) {
	prefID := uuid.New()

	t.Run("transições permitidas", func(t *testing.T) {
		cases := []struct {
			atual string
			novo  string
		}{
			{StatusAgendado, StatusCancelado},
			{StatusAgendado, StatusConcluido},
			{StatusAgendado, StatusFaltou},
			{StatusCancelamentoSolicitado, StatusCancelado},
			{StatusCancelamentoSolicitado, StatusAgendado},
		}
		for _, tc := range cases {
			repo := &stubRepo{agendamento: Agendamento{ID: 1, Status: tc.atual}}
			svc := NewService(repo, nil)
			a, err := svc.AtualizarStatus(context.Background(), prefID, 1, tc.novo)
			if err != nil {
				t.Fatalf("%s -> %s: erro inesperado: %v", tc.atual, tc.novo, err)
			}
			if a.Status != tc.novo {
				t.Fatalf("%s -> %s: status inesperado %s", tc.atual, tc.novo, a.Status)
			}
		}
	})

	t.Run("transições proibidas", func(t *testing.T) {
		cases := []struct {
			atual string
			novo  string
		}{
			{StatusCancelado, StatusAgendado},
			{StatusConcluido, StatusCancelado},
			{StatusFaltou, StatusAgendado},
			{StatusAgendado, "QUALQUER"},
		}
		for _, tc := range cases {
			repo := &stubRepo{agendamento: Agendamento{ID: 1, Status: tc.atual}}
			svc := NewService(repo, nil)
			if _, err := svc.AtualizarStatus(context.Background(), prefID, 1, tc.novo); !errors.Is(err, ErrStatusInvalido) {
				t.Fatalf("%s -> %s: esperado ErrStatusInvalido, veio %v", tc.atual, tc.novo, err)
			}
		}
	})

	t.Run("status em minúsculas é normalizado", func(t *testing.T) {
		repo := &stubRepo{agendamento: Agendamento{ID: 1, Status: StatusAgendado}}
		svc := NewService(repo, nil)
		if _, err := svc.AtualizarStatus(context.Background(), prefID, 1, "concluido"); err != nil {
			t.Fatalf("erro inesperado: %v", err)
		}
		if repo.lastStatus != StatusConcluido {
			t.Fatalf("status gravado inesperado: %s", repo.lastStatus)
		}
	})
}

func TestValidateLocalInput(t *testing.T) {
	valido := LocalInput{Nome: "Sede", HoraAbertura: "08:00", HoraFechamento: "17:00", IntervaloMinutos: 30, VagasPorHorario: 3}
	if err := validateLocalInput(valido); err != nil {
		t.Fatalf("erro inesperado: %v", err)
	}

	cases := []struct {
		name string
		mut  func(*LocalInput)
	}{
		{"nome vazio", func(l *LocalInput) { l.Nome = " " }},
		{"abertura inválida", func(l *LocalInput) { l.HoraAbertura = "25:00" }},
		{"fechamento inválido", func(l *LocalInput) { l.HoraFechamento = "xx" }},
		{"abertura após fechamento", func(l *LocalInput) { l.HoraAbertura = "18:00" }},
		{"intervalo zero", func(l *LocalInput) { l.IntervaloMinutos = 0 }},
		{"vagas zero", func(l *LocalInput) { l.VagasPorHorario = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := valido
			tc.mut(&input)
			if err := validateLocalInput(input); !errors.Is(err, ErrValidation) {
				t.Fatalf("esperado ErrValidation, veio %v", err)
			}
		})
	}
}

func TestGrade(t *testing.T) {
	local := localTeste()
	grade := local.Grade()
	want := []string{"08:00", "08:30", "09:00", "09:30"}
	if len(grade) != len(want) {
		t.Fatalf("grade inesperada: %v", grade)
	}
	for i := range want {
		if grade[i] != want[i] {
			t.Fatalf("grade[%d] = %s, esperado %s", i, grade[i], want[i])
		}
	}
	if !local.ContemHorario("09:00") || local.ContemHorario("10:00") {
		t.Fatalf("ContemHorario fora do esperado")
	}
}

func TestFormatProtocolo(t *testing.T) {
	if got := FormatProtocolo(7); got != "AGD-7" {
		t.Fatalf("protocolo inesperado: %s", got)
	}
	if got := FormatProtocolo(123456); got != "AGD-123456" {
		t.Fatalf("protocolo inesperado: %s", got)
	}
}
