package monitor

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/agendacidade/api/internal/config"
	"github.com/agendacidade/api/internal/prefeitura"
)

// Service roda verificações periódicas de integridade sobre os dados de
// agendamento. Apenas reporta; nunca altera dados de reserva.
type Service struct {
	repo     *Repository
	tenants  *prefeitura.Service
	cfg      config.MonitorConfig
	notifier Notifier
	logger   zerolog.Logger

	once   sync.Once
	cancel context.CancelFunc
}

func NewService(repo *Repository, tenants *prefeitura.Service, cfg config.MonitorConfig, logger zerolog.Logger, notifier Notifier) *Service {
	// NewSlackNotifier devolve *SlackNotifier nulo quando não há webhook;
	// embrulhado na interface ele deixaria de ser == nil e o guard de envio
	// chamaria Notify em receptor nulo a cada ocorrência
	if sn, ok := notifier.(*SlackNotifier); ok && sn == nil {
		notifier = nil
	}
	return &Service{
		repo:     repo,
		tenants:  tenants,
		cfg:      cfg,
		notifier: notifier,
		logger:   logger,
	}
}

// Start inicia loop periódico. Safe para chamar múltiplas vezes.
func (s *Service) Start(parent context.Context) error {
	if !s.cfg.Enabled {
		return nil
	}
	s.once.Do(func() {
		ctx, cancel := context.WithCancel(parent)
		s.cancel = cancel
		go s.runLoop(ctx)
	})
	return nil
}

// Stop encerra loop periódico.
func (s *Service) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *Service) runLoop(ctx context.Context) {
	interval := s.cfg.Interval
	if interval <= 0 {
		interval = 10 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info().Dur("interval", interval).Msg("monitor: loop iniciado")

	if err := s.RunOnce(ctx); err != nil {
		s.logger.Error().Err(err).Msg("monitor: primeira execução falhou")
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("monitor: loop encerrado")
			return
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.logger.Error().Err(err).Msg("monitor: execução periódica falhou")
			}
		}
	}
}

// RunOnce verifica todos os tenants ativos.
func (s *Service) RunOnce(ctx context.Context) error {
	tenants, err := s.tenants.List(ctx)
	if err != nil {
		return fmt.Errorf("listar prefeituras: %w", err)
	}

	for _, t := range tenants {
		if !t.Ativo {
			continue
		}
		if err := s.checkTenant(ctx, &t); err != nil {
			s.logger.Warn().Err(err).Str("prefeitura", t.Slug).Msg("monitor: check falhou")
		}
	}
	return nil
}

// CheckTenant executa as verificações de um único tenant sob demanda.
func (s *Service) CheckTenant(ctx context.Context, prefeituraID uuid.UUID) error {
	t, err := s.tenants.GetByID(ctx, prefeituraID)
	if err != nil {
		return err
	}
	return s.checkTenant(ctx, t)
}

func (s *Service) checkTenant(ctx context.Context, t *prefeitura.Prefeitura) error {
	ausentes, err := s.repo.ProtocolosAusentes(ctx, t.ID)
	if err != nil {
		return fmt.Errorf("protocolos ausentes: %w", err)
	}
	refsAusentes := make([]string, 0, len(ausentes))
	for _, id := range ausentes {
		ref := strconv.FormatInt(id, 10)
		refsAusentes = append(refsAusentes, ref)
		s.registrar(ctx, t, Ocorrencia{
			PrefeituraID: t.ID,
			Tipo:         TipoProtocoloAusente,
			Referencia:   ref,
			Detalhe:      fmt.Sprintf("agendamento %d sem protocolo", id),
		})
	}
	if err := s.repo.ResolverAusentes(ctx, t.ID, TipoProtocoloAusente, refsAusentes); err != nil {
		s.logger.Warn().Err(err).Str("prefeitura", t.Slug).Msg("monitor: falha ao resolver ocorrências")
	}

	duplicados, err := s.repo.ProtocolosDuplicados(ctx, t.ID)
	if err != nil {
		return fmt.Errorf("protocolos duplicados: %w", err)
	}
	refsDuplicados := make([]string, 0, len(duplicados))
	for _, protocolo := range duplicados {
		refsDuplicados = append(refsDuplicados, protocolo)
		s.registrar(ctx, t, Ocorrencia{
			PrefeituraID: t.ID,
			Tipo:         TipoProtocoloDuplicado,
			Referencia:   protocolo,
			Detalhe:      fmt.Sprintf("protocolo %s atribuído a mais de um agendamento", protocolo),
		})
	}
	if err := s.repo.ResolverAusentes(ctx, t.ID, TipoProtocoloDuplicado, refsDuplicados); err != nil {
		s.logger.Warn().Err(err).Str("prefeitura", t.Slug).Msg("monitor: falha ao resolver ocorrências")
	}

	emBloqueio, err := s.repo.AgendamentosEmDataBloqueada(ctx, t.ID)
	if err != nil {
		return fmt.Errorf("agendamentos em data bloqueada: %w", err)
	}
	refsBloqueio := make([]string, 0, len(emBloqueio))
	for _, id := range emBloqueio {
		ref := strconv.FormatInt(id, 10)
		refsBloqueio = append(refsBloqueio, ref)
		s.registrar(ctx, t, Ocorrencia{
			PrefeituraID: t.ID,
			Tipo:         TipoDataBloqueada,
			Referencia:   ref,
			Detalhe:      fmt.Sprintf("agendamento %d ativo em data bloqueada por dia inteiro", id),
		})
	}
	if err := s.repo.ResolverAusentes(ctx, t.ID, TipoDataBloqueada, refsBloqueio); err != nil {
		s.logger.Warn().Err(err).Str("prefeitura", t.Slug).Msg("monitor: falha ao resolver ocorrências")
	}

	return nil
}

// registrar grava o achado e dispara alerta externo com janela anti-ruído.
func (s *Service) registrar(ctx context.Context, t *prefeitura.Prefeitura, o Ocorrencia) {
	// a janela precisa ser avaliada antes do insert para não contar a própria linha
	throttled := s.shouldThrottle(ctx, t.ID, o.Tipo)

	inserted, err := s.repo.RegistrarOcorrencia(ctx, o)
	if err != nil {
		s.logger.Error().Err(err).Str("prefeitura", t.Slug).Str("tipo", o.Tipo).Msg("monitor: falha ao registrar ocorrência")
		return
	}
	if !inserted {
		return
	}

	s.logger.Warn().Str("prefeitura", t.Slug).Str("tipo", o.Tipo).Str("referencia", o.Referencia).Msg("monitor: ocorrência detectada")

	if s.notifier == nil || throttled {
		return
	}

	msg := AlertMessage{
		Title:    fmt.Sprintf("Prefeitura %s (%s)", t.Nome, t.Slug),
		Tipo:     o.Tipo,
		Text:     o.Detalhe,
		Severity: "warning",
	}
	if err := s.notifier.Notify(ctx, msg); err != nil {
		s.logger.Error().Err(err).Str("prefeitura", t.Slug).Msg("monitor: falha ao enviar alerta")
	}
}

func (s *Service) shouldThrottle(ctx context.Context, prefeituraID uuid.UUID, tipo string) bool {
	window := time.Now().Add(-30 * time.Minute)
	seen, err := s.repo.UltimaNotificacaoDesde(ctx, prefeituraID, tipo, window)
	if err != nil {
		return false
	}
	return seen
}

// Ocorrencias lista os achados do tenant para o painel administrativo.
func (s *Service) Ocorrencias(ctx context.Context, prefeituraID uuid.UUID, apenasAbertas bool, limit int) ([]Ocorrencia, error) {
	return s.repo.ListOcorrencias(ctx, prefeituraID, apenasAbertas, limit)
}
