package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/agendacidade/api/internal/prefeitura"
)

// HeaderPrefeituraSlug identifica o tenant em toda requisição da API pública.
const HeaderPrefeituraSlug = "x-prefeitura-slug"

// Prefeitura resolve o tenant a partir do header de slug e injeta no contexto.
// Slug desconhecido responde 404; prefeitura desativada responde 403 antes de
// qualquer handler, inclusive para operadores autenticados.
func Prefeitura(tenants *prefeitura.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			slug := r.Header.Get(HeaderPrefeituraSlug)
			if slug == "" {
				writePrefeituraError(w, http.StatusBadRequest, "VALIDATION", "header x-prefeitura-slug obrigatório")
				return
			}

			p, err := tenants.Resolve(r.Context(), slug)
			if err != nil {
				switch {
				case errors.Is(err, prefeitura.ErrInativa):
					writePrefeituraError(w, http.StatusForbidden, "TENANT_INATIVO", "prefeitura desativada")
				case errors.Is(err, prefeitura.ErrNotFound):
					writePrefeituraError(w, http.StatusNotFound, "NOT_FOUND", "prefeitura não encontrada")
				default:
					writePrefeituraError(w, http.StatusInternalServerError, "INTERNAL", "erro interno")
				}
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyPrefeitura, p)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetPrefeitura retorna o tenant resolvido do contexto.
func GetPrefeitura(ctx context.Context) *prefeitura.Prefeitura {
	val, _ := ctx.Value(ContextKeyPrefeitura).(*prefeitura.Prefeitura)
	return val
}

// GetPrefeituraID retorna o id do tenant resolvido, ou vazio.
func GetPrefeituraID(ctx context.Context) string {
	if p := GetPrefeitura(ctx); p != nil {
		return p.ID.String()
	}
	return ""
}

func writePrefeituraError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"data": nil,
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	})
}
