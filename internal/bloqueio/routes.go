package bloqueio

import (
	"github.com/go-chi/chi/v5"
)

// Mount adiciona rotas públicas de bloqueio no router.
func Mount(r chi.Router, handler *Handler) {
	handler.RegisterPublicRoutes(r)
}

// MountAdmin adiciona rotas administrativas de bloqueio no router.
func MountAdmin(r chi.Router, handler *Handler) {
	handler.RegisterAdminRoutes(r)
}
