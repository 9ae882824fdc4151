package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/agendacidade/api/internal/agenda"
	"github.com/agendacidade/api/internal/bloqueio"
	"github.com/agendacidade/api/internal/config"
	httpmiddleware "github.com/agendacidade/api/internal/http/middleware"
	"github.com/agendacidade/api/internal/localidade"
	"github.com/agendacidade/api/internal/monitor"
	"github.com/agendacidade/api/internal/prefeitura"
	"github.com/agendacidade/api/internal/service"
	"github.com/agendacidade/api/internal/storage"
)

type Handler struct {
	cfg           *config.Config
	pool          *pgxpool.Pool
	redis         *redis.Client
	authService   *service.AuthService
	tenants       *prefeitura.Service
	storage       storage.Uploader
	monitor       *monitor.Service
	publicLimiter *httpmiddleware.RateLimiter
	authLimiter   *httpmiddleware.RateLimiter
	devCookies    bool
}

const maxLogoSize = 2 << 20

// NewRouter devolve roteador configurado.
func NewRouter(cfg *config.Config, pool *pgxpool.Pool, redisClient *redis.Client, authService *service.AuthService) (http.Handler, error) {
	devCookies := false
	for _, origin := range cfg.AllowOrigins {
		if strings.Contains(origin, "localhost") {
			devCookies = true
			break
		}
	}

	tenantRepo := prefeitura.NewRepository(pool)
	tenantService := prefeitura.NewService(tenantRepo)

	agendaRepo := agenda.NewRepository(pool)
	agendaService := agenda.NewService(agendaRepo, redisClient)
	agendaHandler := agenda.NewHandler(agendaService)

	localidadeRepo := localidade.NewRepository(pool)
	localidadeService := localidade.NewService(localidadeRepo)
	localidadeHandler := localidade.NewHandler(localidadeService)

	bloqueioRepo := bloqueio.NewRepository(pool)
	bloqueioService := bloqueio.NewService(bloqueioRepo)
	bloqueioHandler := bloqueio.NewHandler(bloqueioService)

	monitorRepo := monitor.NewRepository(pool)
	var monitorNotifier monitor.Notifier
	if cfg.Monitor.SlackWebhook != "" {
		monitorNotifier = monitor.NewSlackNotifier(cfg.Monitor.SlackWebhook)
	}
	monitorLogger := log.With().Str("component", "monitor").Logger()
	monitorService := monitor.NewService(monitorRepo, tenantService, cfg.Monitor, monitorLogger, monitorNotifier)
	if err := monitorService.Start(context.Background()); err != nil {
		return nil, fmt.Errorf("monitor: %w", err)
	}

	var uploader storage.Uploader = storage.NoopUploader{}
	if cfg.Storage.Enabled() {
		s3Uploader, err := storage.NewS3Uploader(storage.S3Config{
			Endpoint:      cfg.Storage.Endpoint,
			Region:        cfg.Storage.Region,
			Bucket:        cfg.Storage.Bucket,
			AccessKey:     cfg.Storage.AccessKey,
			SecretKey:     cfg.Storage.SecretKey,
			PublicBaseURL: cfg.Storage.PublicBaseURL,
		})
		if err != nil {
			return nil, fmt.Errorf("storage: %w", err)
		}
		uploader = s3Uploader
	}

	h := &Handler{
		cfg:           cfg,
		pool:          pool,
		redis:         redisClient,
		authService:   authService,
		tenants:       tenantService,
		storage:       uploader,
		monitor:       monitorService,
		publicLimiter: httpmiddleware.NewRateLimiter(cfg.RateLimitPublic.RequestsPerSecond, cfg.RateLimitPublic.Burst),
		authLimiter:   httpmiddleware.NewRateLimiter(cfg.RateLimitAuth.RequestsPerSecond, cfg.RateLimitAuth.Burst),
		devCookies:    devCookies,
	}

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(httpmiddleware.Logging)
	r.Use(httpmiddleware.Recover)
	r.Use(httpmiddleware.CORS(cfg.AllowOrigins))

	r.Route("/api", func(api chi.Router) {
		api.Get("/health", h.Health)
		api.Get("/ready", h.Ready)

		api.Group(func(scoped chi.Router) {
			scoped.Use(httpmiddleware.Prefeitura(tenantService))

			scoped.Group(func(public chi.Router) {
				public.Use(httpmiddleware.IPRateLimit(h.publicLimiter))

				public.Get("/prefeitura", h.PrefeituraConfig)
				agenda.Mount(public, agendaHandler)
				localidade.Mount(public, localidadeHandler)
				bloqueio.Mount(public, bloqueioHandler)

				public.Route("/users", func(users chi.Router) {
					users.Post("/login", h.Login)
					users.Post("/refresh", h.Refresh)
					users.Post("/logout", h.Logout)
				})
			})

			scoped.Group(func(private chi.Router) {
				private.Use(httpmiddleware.Auth(authService.JWT()))
				private.Use(httpmiddleware.UserRateLimit(h.authLimiter))
				private.Use(httpmiddleware.RequireAdmin)

				private.Get("/me", h.Me)
				agenda.MountAdmin(private, agendaHandler)

				private.Route("/admin", func(admin chi.Router) {
					localidade.MountAdmin(admin, localidadeHandler)
					bloqueio.MountAdmin(admin, bloqueioHandler)
					admin.Put("/prefeitura/logo", h.UploadLogo)
					admin.Route("/monitor", func(m chi.Router) {
						m.Get("/ocorrencias", h.MonitorOcorrencias)
						m.Post("/run", h.MonitorRun)
					})
				})
			})
		})
	})

	return r, nil
}

// Health responde status simples.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready valida conexões com Postgres e Redis.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	dbErr := h.pool.Ping(ctx)
	redisErr := h.redis.Ping(ctx).Err()

	if dbErr != nil || redisErr != nil {
		WriteError(w, http.StatusServiceUnavailable, "INTERNAL", "dependências indisponíveis", map[string]any{
			"db":    errorString(dbErr),
			"redis": errorString(redisErr),
		})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]bool{"ready": true})
}

func errorString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// PrefeituraConfig expõe os dados públicos do tenant resolvido.
func (h *Handler) PrefeituraConfig(w http.ResponseWriter, r *http.Request) {
	tenant := httpmiddleware.GetPrefeitura(r.Context())

	WriteJSON(w, http.StatusOK, map[string]any{
		"id":       tenant.ID,
		"nome":     tenant.Nome,
		"slug":     tenant.Slug,
		"settings": tenant.Settings,
		"logo_url": tenant.LogoURL,
	})
}

// Login autentica operador do backoffice por e-mail ou CPF.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Identifier string `json:"identifier"`
		Senha      string `json:"senha"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON inválido", nil)
		return
	}

	if strings.TrimSpace(payload.Identifier) == "" || strings.TrimSpace(payload.Senha) == "" {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "identifier e senha são obrigatórios", nil)
		return
	}

	tenant := httpmiddleware.GetPrefeitura(r.Context())
	result, err := h.authService.Login(r.Context(), tenant.ID, payload.Identifier, payload.Senha)
	if err != nil {
		h.handleAuthError(w, err)
		return
	}

	h.writeLoginSuccess(w, result)
}

// Refresh troca o refresh token do cookie por nova sessão.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	token, err := getRefreshFromRequest(r)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "refresh ausente", nil)
		return
	}

	result, err := h.authService.Refresh(r.Context(), token)
	if err != nil {
		if errors.Is(err, service.ErrRefreshInvalid) {
			WriteError(w, http.StatusUnauthorized, "AUTH", "refresh inválido", nil)
			return
		}
		if errors.Is(err, service.ErrAccountDisabled) {
			WriteError(w, http.StatusForbidden, "FORBIDDEN", err.Error(), nil)
			return
		}
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro ao renovar sessão", nil)
		return
	}

	h.writeLoginSuccess(w, result)
}

// Logout revoga refresh token atual.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if token, err := getRefreshFromRequest(r); err == nil {
		_ = h.authService.Logout(r.Context(), token)
	}

	h.clearRefreshCookie(w)
	WriteJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

// Me retorna informações do operador autenticado.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	subject, err := uuid.Parse(httpmiddleware.GetSubject(r.Context()))
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "subject inválido", nil)
		return
	}

	profile, err := h.authService.Me(r.Context(), subject)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "não foi possível carregar perfil", nil)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"user": profile})
}

// UploadLogo recebe multipart e grava o brasão da prefeitura no bucket.
func (h *Handler) UploadLogo(w http.ResponseWriter, r *http.Request) {
	tenant := httpmiddleware.GetPrefeitura(r.Context())

	if err := r.ParseMultipartForm(maxLogoSize); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "multipart inválido", nil)
		return
	}

	file, header, err := r.FormFile("logo")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "campo logo obrigatório", nil)
		return
	}
	defer file.Close()

	body, err := io.ReadAll(io.LimitReader(file, maxLogoSize+1))
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "falha ao ler arquivo", nil)
		return
	}
	if len(body) > maxLogoSize {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "arquivo excede 2MB", nil)
		return
	}

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "apenas imagens são aceitas", nil)
		return
	}

	ext := path.Ext(header.Filename)
	key := fmt.Sprintf("prefeituras/%s/logo-%d%s", tenant.Slug, time.Now().Unix(), ext)

	result, err := h.storage.Upload(r.Context(), storage.UploadInput{
		Key:          key,
		Body:         body,
		ContentType:  contentType,
		CacheControl: "public, max-age=86400",
	})
	if err != nil {
		log.Error().Err(err).Str("prefeitura", tenant.Slug).Msg("upload de logo falhou")
		WriteError(w, http.StatusBadGateway, "INTERNAL", "não foi possível armazenar o arquivo", nil)
		return
	}

	if err := h.tenants.UpdateLogoURL(r.Context(), tenant.ID, result.URL); err != nil {
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "não foi possível salvar a URL", nil)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"logo_url": result.URL})
}

// MonitorOcorrencias lista achados de integridade do tenant.
func (h *Handler) MonitorOcorrencias(w http.ResponseWriter, r *http.Request) {
	tenant := httpmiddleware.GetPrefeitura(r.Context())

	apenasAbertas := !strings.EqualFold(r.URL.Query().Get("todas"), "true")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	ocorrencias, err := h.monitor.Ocorrencias(r.Context(), tenant.ID, apenasAbertas, limit)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "não foi possível listar ocorrências", nil)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"ocorrencias": ocorrencias})
}

// MonitorRun dispara verificação imediata do tenant.
func (h *Handler) MonitorRun(w http.ResponseWriter, r *http.Request) {
	tenant := httpmiddleware.GetPrefeitura(r.Context())

	if err := h.monitor.CheckTenant(r.Context(), tenant.ID); err != nil {
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "verificação falhou", nil)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		WriteError(w, http.StatusUnauthorized, "AUTH", err.Error(), nil)
	case errors.Is(err, service.ErrAccountDisabled):
		WriteError(w, http.StatusForbidden, "FORBIDDEN", err.Error(), nil)
	default:
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "erro ao autenticar", nil)
	}
}

func (h *Handler) writeLoginSuccess(w http.ResponseWriter, result *service.LoginResult) {
	h.setRefreshCookie(w, result.RefreshToken, result.RefreshExpiry)

	WriteJSON(w, http.StatusOK, map[string]any{
		"access_token": result.AccessToken,
		"user":         result.Profile,
	})
}

const refreshCookieName = "backoffice"

func getRefreshFromRequest(r *http.Request) (string, error) {
	if c, err := r.Cookie(refreshCookieName); err == nil && c.Value != "" {
		return c.Value, nil
	}
	return "", errors.New("refresh ausente")
}

func (h *Handler) setRefreshCookie(w http.ResponseWriter, token string, expires time.Time) {
	secure := !h.devCookies
	sameSite := http.SameSiteNoneMode
	if h.devCookies {
		sameSite = http.SameSiteLaxMode
	}
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   secure,
		SameSite: sameSite,
	})
}

func (h *Handler) clearRefreshCookie(w http.ResponseWriter) {
	secure := !h.devCookies
	sameSite := http.SameSiteNoneMode
	if h.devCookies {
		sameSite = http.SameSiteLaxMode
	}
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: sameSite,
	})
}
