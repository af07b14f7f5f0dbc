// Package server wires the HTTP surface: the OAuth connect flow, the
// admin settings API and the order-completed webhook.
package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/oakmont/xerosync/internal/auth/token"
	"github.com/oakmont/xerosync/internal/config"
	"github.com/oakmont/xerosync/internal/db"
	"github.com/oakmont/xerosync/internal/sync"
	"github.com/oakmont/xerosync/internal/xero"
	"go.uber.org/zap"
)

// Server carries the handler dependencies.
type Server struct {
	cfg        config.Config
	tokens     *token.Manager
	client     *xero.Client
	engine     *sync.Engine
	settings   *db.Settings
	orderSyncs *db.OrderSyncs
	log        *zap.Logger
}

func New(cfg config.Config, tokens *token.Manager, client *xero.Client, engine *sync.Engine,
	settings *db.Settings, orderSyncs *db.OrderSyncs, log *zap.Logger) *Server {
	return &Server{
		cfg:        cfg,
		tokens:     tokens,
		client:     client,
		engine:     engine,
		settings:   settings,
		orderSyncs: orderSyncs,
		log:        log,
	}
}

// Router builds the chi router.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(RequestLogger(s.log))

	// OAuth flow. The provider redirects the browser here, so these
	// stay outside the admin auth.
	r.Get("/auth/xero/connect", s.handleConnect)
	r.Get("/auth/xero/callback", s.handleCallback)

	// Admin API (protected when admin_password is set).
	r.Route("/api", func(r chi.Router) {
		r.Use(AdminAuth(s.cfg.AdminPassword))
		r.Get("/status", s.handleStatus)
		r.Post("/disconnect", s.handleDisconnect)
		r.Get("/settings", s.handleGetSettings)
		r.Put("/settings", s.handlePutSettings)
		r.Get("/accounts/bank", s.handleBankAccounts)
		r.Get("/accounts/sales", s.handleSalesAccounts)
		r.Get("/orders/{id}", s.handleGetOrderSync)
	})

	// Inbound store event, verified by its own HMAC signature.
	r.Post("/webhook/order-completed", s.handleOrderCompleted)

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
