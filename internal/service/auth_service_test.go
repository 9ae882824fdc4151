package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/agendacidade/api/internal/auth"
	"github.com/agendacidade/api/internal/repo"
)

type stubAuthRepo struct {
	user repo.Usuario
}

func (s *stubAuthRepo) GetUsuarioByEmail(ctx context.Context, prefeituraID uuid.UUID, email string) (repo.Usuario, error) {
	if strings.EqualFold(email, s.user.Email) && prefeituraID == s.user.PrefeituraID {
		return s.user, nil
	}
	return repo.Usuario{}, repo.ErrNotFound
}

func (s *stubAuthRepo) GetUsuarioByCPF(ctx context.Context, prefeituraID uuid.UUID, cpf string) (repo.Usuario, error) {
	if s.user.CPF != nil && *s.user.CPF == cpf && prefeituraID == s.user.PrefeituraID {
		return s.user, nil
	}
	return repo.Usuario{}, repo.ErrNotFound
}

func (s *stubAuthRepo) GetUsuarioByID(ctx context.Context, id uuid.UUID) (repo.Usuario, error) {
	if id == s.user.ID {
		return s.user, nil
	}
	return repo.Usuario{}, repo.ErrNotFound
}

type stubRedis struct {
	store map[string]string
}

func newStubRedis() *stubRedis {
	return &stubRedis{store: map[string]string{}}
}

func (s *stubRedis) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	switch v := value.(type) {
	case []byte:
		s.store[key] = string(v)
	case string:
		s.store[key] = v
	}
	return redis.NewStatusResult("OK", nil)
}

func (s *stubRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	if v, ok := s.store[key]; ok {
		return redis.NewStringResult(v, nil)
	}
	return redis.NewStringResult("", redis.Nil)
}

func (s *stubRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, k := range keys {
		if _, ok := s.store[k]; ok {
			delete(s.store, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func newTestService(t *testing.T, user repo.Usuario) (*AuthService, *stubRedis) {
	t.Helper()
	rds := newStubRedis()
	jwtMgr := auth.NewJWTManager(strings.Repeat("s", 32), 15*time.Minute)
	return NewAuthService(&stubAuthRepo{user: user}, rds, jwtMgr, time.Hour), rds
}

func testUsuario(t *testing.T, senha string) repo.Usuario {
	t.Helper()
	hash, err := auth.Hash(senha)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	cpf := "52998224725"
	return repo.Usuario{
		ID:           uuid.New(),
		Nome:         "Operadora",
		Email:        "operadora@prefeitura.gov.br",
		CPF:          &cpf,
		SenhaHash:    hash,
		Roles:        []string{"ADMIN"},
		Ativo:        true,
		PrefeituraID: uuid.New(),
	}
}

func TestLoginComEmail(t *testing.T) {
	user := testUsuario(t, "senha-forte-123")
	svc, _ := newTestService(t, user)

	result, err := svc.Login(context.Background(), user.PrefeituraID, user.Email, "senha-forte-123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if result.AccessToken == "" || result.RefreshToken == "" {
		t.Fatal("tokens vazios")
	}
	if result.Subject != user.ID {
		t.Fatalf("subject inesperado: %s", result.Subject)
	}
}

func TestLoginComCPF(t *testing.T) {
	user := testUsuario(t, "senha-forte-123")
	svc, _ := newTestService(t, user)

	if _, err := svc.Login(context.Background(), user.PrefeituraID, "529.982.247-25", "senha-forte-123"); err != nil {
		t.Fatalf("login por cpf: %v", err)
	}
}

func TestLoginSenhaErrada(t *testing.T) {
	user := testUsuario(t, "senha-forte-123")
	svc, _ := newTestService(t, user)

	if _, err := svc.Login(context.Background(), user.PrefeituraID, user.Email, "outra-senha"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("esperava ErrInvalidCredentials, veio %v", err)
	}
}

func TestLoginContaDesativada(t *testing.T) {
	user := testUsuario(t, "senha-forte-123")
	user.Ativo = false
	svc, _ := newTestService(t, user)

	if _, err := svc.Login(context.Background(), user.PrefeituraID, user.Email, "senha-forte-123"); !errors.Is(err, ErrAccountDisabled) {
		t.Fatalf("esperava ErrAccountDisabled, veio %v", err)
	}
}

func TestSenhaNuncaArmazenadaEmTextoPuro(t *testing.T) {
	const senha = "senha-forte-123"
	user := testUsuario(t, senha)
	if user.SenhaHash == senha || strings.Contains(user.SenhaHash, senha) {
		t.Fatal("hash contém a senha em texto puro")
	}
	if !strings.HasPrefix(user.SenhaHash, "$argon2id$") {
		t.Fatalf("hash não é argon2id: %s", user.SenhaHash)
	}
}

func TestRefreshRotacionaToken(t *testing.T) {
	user := testUsuario(t, "senha-forte-123")
	svc, rds := newTestService(t, user)

	first, err := svc.Login(context.Background(), user.PrefeituraID, user.Email, "senha-forte-123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	second, err := svc.Refresh(context.Background(), first.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if second.RefreshToken == first.RefreshToken {
		t.Fatal("refresh token não foi rotacionado")
	}

	// o token antigo fica revogado
	if _, err := svc.Refresh(context.Background(), first.RefreshToken); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("esperava ErrRefreshInvalid, veio %v", err)
	}

	if err := svc.Logout(context.Background(), second.RefreshToken); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if len(rds.store) != 0 {
		t.Fatalf("sessões remanescentes após logout: %d", len(rds.store))
	}
}
