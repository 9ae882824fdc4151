package prefeitura

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store define o acesso a dados exigido pelo serviço.
type Store interface {
	GetBySlug(ctx context.Context, slug string) (*Prefeitura, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Prefeitura, error)
	List(ctx context.Context) ([]Prefeitura, error)
	Create(ctx context.Context, input CreateInput) (*Prefeitura, error)
	SetAtivo(ctx context.Context, id uuid.UUID, ativo bool) error
	UpdateSettings(ctx context.Context, id uuid.UUID, settings map[string]any) error
	UpdateLogoURL(ctx context.Context, id uuid.UUID, logoURL string) error
}

// Service contém as regras de resolução e cadastro de prefeituras.
type Service struct {
	repo     Store
	cache    sync.Map
	cacheTTL time.Duration
}

type cachedPrefeitura struct {
	prefeitura Prefeitura
	expireAt   time.Time
}

// NewService cria uma nova instância de Service.
func NewService(repo Store) *Service {
	return &Service{repo: repo, cacheTTL: 2 * time.Minute}
}

// Resolve encontra prefeitura pelo slug do header. Prefeitura desativada
// resolve em ErrInativa: nenhuma rota do tenant deve responder com sucesso.
func (s *Service) Resolve(ctx context.Context, slug string) (*Prefeitura, error) {
	normalized := normalizeSlug(slug)
	if normalized == "" {
		return nil, ErrNotFound
	}

	if v, ok := s.cache.Load(normalized); ok {
		entry := v.(cachedPrefeitura)
		if time.Now().Before(entry.expireAt) {
			if !entry.prefeitura.Ativo {
				return nil, ErrInativa
			}
			copia := entry.prefeitura
			return &copia, nil
		}
		s.cache.Delete(normalized)
	}

	p, err := s.repo.GetBySlug(ctx, normalized)
	if err != nil {
		return nil, err
	}

	s.cache.Store(normalized, cachedPrefeitura{prefeitura: *p, expireAt: time.Now().Add(s.cacheTTL)})

	if !p.Ativo {
		return nil, ErrInativa
	}

	copia := *p
	return &copia, nil
}

// Create registra uma nova prefeitura com configurações padrão.
func (s *Service) Create(ctx context.Context, input CreateInput) (*Prefeitura, error) {
	input.Slug = normalizeSlug(input.Slug)
	input.Settings = defaultSettings(input.Settings)

	p, err := s.repo.Create(ctx, input)
	if err != nil {
		return nil, err
	}

	s.cache.Store(p.Slug, cachedPrefeitura{prefeitura: *p, expireAt: time.Now().Add(s.cacheTTL)})
	return p, nil
}

// SetAtivo liga/desliga a prefeitura e invalida o cache do slug.
func (s *Service) SetAtivo(ctx context.Context, id uuid.UUID, ativo bool) error {
	if err := s.repo.SetAtivo(ctx, id, ativo); err != nil {
		return err
	}
	s.invalidateByID(id)
	return nil
}

// UpdateSettings substitui o JSON de configuração da prefeitura.
func (s *Service) UpdateSettings(ctx context.Context, id uuid.UUID, settings map[string]any) error {
	if settings == nil {
		settings = map[string]any{}
	}
	if err := s.repo.UpdateSettings(ctx, id, settings); err != nil {
		return err
	}
	s.invalidateByID(id)
	return nil
}

// UpdateLogoURL grava a URL do brasão e invalida o cache.
func (s *Service) UpdateLogoURL(ctx context.Context, id uuid.UUID, logoURL string) error {
	if err := s.repo.UpdateLogoURL(ctx, id, logoURL); err != nil {
		return err
	}
	s.invalidateByID(id)
	return nil
}

// GetByID busca prefeitura sem passar pelo cache de slug.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*Prefeitura, error) {
	return s.repo.GetByID(ctx, id)
}

// List devolve todas as prefeituras e aquece o cache.
func (s *Service) List(ctx context.Context) ([]Prefeitura, error) {
	prefeituras, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	for _, p := range prefeituras {
		s.cache.Store(p.Slug, cachedPrefeitura{prefeitura: p, expireAt: time.Now().Add(s.cacheTTL)})
	}

	return prefeituras, nil
}

func (s *Service) invalidateByID(id uuid.UUID) {
	s.cache.Range(func(key, value any) bool {
		entry := value.(cachedPrefeitura)
		if entry.prefeitura.ID == id {
			s.cache.Delete(key)
			return false
		}
		return true
	})
}

func normalizeSlug(slug string) string {
	slug = strings.TrimSpace(strings.ToLower(slug))
	slug = strings.ReplaceAll(slug, " ", "-")
	return slug
}

func defaultSettings(settings map[string]any) map[string]any {
	if settings == nil {
		settings = map[string]any{}
	}
	if _, ok := settings["corPrimaria"]; !ok {
		settings["corPrimaria"] = "#1351B4"
	}
	if _, ok := settings["diasAntecedenciaMaxima"]; !ok {
		settings["diasAntecedenciaMaxima"] = 60
	}
	return settings
}
