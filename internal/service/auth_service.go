package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/agendacidade/api/internal/auth"
	"github.com/agendacidade/api/internal/repo"
	"github.com/agendacidade/api/internal/util"
)

var (
	// ErrInvalidCredentials indica falha na autenticação.
	ErrInvalidCredentials = errors.New("credenciais inválidas")
	// ErrAccountDisabled indica conta desativada.
	ErrAccountDisabled = errors.New("conta desativada")
	// ErrRefreshInvalid indica refresh token inválido ou expirado.
	ErrRefreshInvalid = errors.New("refresh token inválido")
)

const audienceBackoffice = "backoffice"

type authRepository interface {
	GetUsuarioByEmail(ctx context.Context, prefeituraID uuid.UUID, email string) (repo.Usuario, error)
	GetUsuarioByCPF(ctx context.Context, prefeituraID uuid.UUID, cpf string) (repo.Usuario, error)
	GetUsuarioByID(ctx context.Context, id uuid.UUID) (repo.Usuario, error)
}

type redisCommander interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// AuthService concentra regras de autenticação e sessões do backoffice.
type AuthService struct {
	repo       authRepository
	redis      redisCommander
	jwt        *auth.JWTManager
	refreshTTL time.Duration
}

// NewAuthService cria novo serviço.
func NewAuthService(r authRepository, redisClient redisCommander, jwtMgr *auth.JWTManager, refreshTTL time.Duration) *AuthService {
	return &AuthService{repo: r, redis: redisClient, jwt: jwtMgr, refreshTTL: refreshTTL}
}

// JWT expõe gerenciador de JWT (útil em middlewares).
func (s *AuthService) JWT() *auth.JWTManager {
	return s.jwt
}

// LoginResult representa retorno padrão de autenticações.
type LoginResult struct {
	AccessToken   string
	RefreshToken  string
	Subject       uuid.UUID
	Roles         []string
	Profile       UsuarioProfile
	RefreshExpiry time.Time
}

// UsuarioProfile descreve o operador autenticado.
type UsuarioProfile struct {
	ID    string   `json:"id"`
	Nome  string   `json:"nome"`
	Email string   `json:"email"`
	Roles []string `json:"roles"`
}

// refreshSession é o estado serializado no Redis por hash de refresh token.
type refreshSession struct {
	Subject      string   `json:"subject"`
	PrefeituraID string   `json:"prefeitura_id"`
	Roles        []string `json:"roles"`
}

// Login autentica operador por e-mail ou CPF dentro da prefeitura resolvida.
// A comparação de senha é sempre Argon2id; não existe caminho de texto puro.
func (s *AuthService) Login(ctx context.Context, prefeituraID uuid.UUID, identifier, senha string) (*LoginResult, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || senha == "" {
		return nil, ErrInvalidCredentials
	}

	var (
		user repo.Usuario
		err  error
	)
	if util.ValidateCPF(identifier) == nil {
		user, err = s.repo.GetUsuarioByCPF(ctx, prefeituraID, util.NormalizeCPF(identifier))
	} else {
		user, err = s.repo.GetUsuarioByEmail(ctx, prefeituraID, identifier)
	}
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	ok, err := auth.Verify(senha, user.SenhaHash)
	if err != nil || !ok {
		return nil, ErrInvalidCredentials
	}

	if !user.Ativo {
		return nil, ErrAccountDisabled
	}

	return s.issueSession(ctx, user)
}

// Refresh troca um refresh token válido por novos tokens, revogando o anterior.
func (s *AuthService) Refresh(ctx context.Context, rawRefresh string) (*LoginResult, error) {
	hash := auth.HashRefreshToken(strings.TrimSpace(rawRefresh))
	key := auth.RefreshRedisKey(audienceBackoffice, hash)

	payload, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		return nil, ErrRefreshInvalid
	}

	var session refreshSession
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, ErrRefreshInvalid
	}

	subject, err := uuid.Parse(session.Subject)
	if err != nil {
		return nil, ErrRefreshInvalid
	}

	user, err := s.repo.GetUsuarioByID(ctx, subject)
	if err != nil {
		return nil, ErrRefreshInvalid
	}
	if !user.Ativo {
		return nil, ErrAccountDisabled
	}

	if err := s.redis.Del(ctx, key).Err(); err != nil {
		log.Warn().Err(err).Msg("falha ao revogar refresh anterior")
	}

	return s.issueSession(ctx, user)
}

// Me devolve o perfil do operador autenticado.
func (s *AuthService) Me(ctx context.Context, subject uuid.UUID) (UsuarioProfile, error) {
	user, err := s.repo.GetUsuarioByID(ctx, subject)
	if err != nil {
		return UsuarioProfile{}, err
	}
	roles := user.Roles
	if len(roles) == 0 {
		roles = []string{"ATENDENTE"}
	}
	return UsuarioProfile{ID: user.ID.String(), Nome: user.Nome, Email: user.Email, Roles: roles}, nil
}

// Logout revoga o refresh token informado.
func (s *AuthService) Logout(ctx context.Context, rawRefresh string) error {
	hash := auth.HashRefreshToken(strings.TrimSpace(rawRefresh))
	key := auth.RefreshRedisKey(audienceBackoffice, hash)
	return s.redis.Del(ctx, key).Err()
}

func (s *AuthService) issueSession(ctx context.Context, user repo.Usuario) (*LoginResult, error) {
	roles := user.Roles
	if len(roles) == 0 {
		roles = []string{"ATENDENTE"}
	}

	access, _, err := s.jwt.GenerateAccessToken(user.ID.String(), audienceBackoffice, user.PrefeituraID.String(), roles)
	if err != nil {
		return nil, err
	}

	rawRefresh, hashed, err := auth.GenerateRefreshToken()
	if err != nil {
		return nil, err
	}

	session := refreshSession{
		Subject:      user.ID.String(),
		PrefeituraID: user.PrefeituraID.String(),
		Roles:        roles,
	}
	payload, err := json.Marshal(session)
	if err != nil {
		return nil, err
	}

	key := auth.RefreshRedisKey(audienceBackoffice, hashed)
	if err := s.redis.Set(ctx, key, payload, s.refreshTTL).Err(); err != nil {
		return nil, err
	}

	return &LoginResult{
		AccessToken:   access,
		RefreshToken:  rawRefresh,
		Subject:       user.ID,
		Roles:         roles,
		Profile:       UsuarioProfile{ID: user.ID.String(), Nome: user.Nome, Email: user.Email, Roles: roles},
		RefreshExpiry: time.Now().Add(s.refreshTTL),
	}, nil
}
