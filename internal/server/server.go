// Package server exposes the escrow service over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"marketplace-escrow-go/internal/api"
	"marketplace-escrow-go/internal/metrics"
	"marketplace-escrow-go/internal/models"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Server struct {
	svc    *api.EscrowService
	auth   *Authenticator
	router http.Handler
}

func New(svc *api.EscrowService, cfg models.AuthConfig) *Server {
	s := &Server{
		svc:  svc,
		auth: NewAuthenticator(cfg),
	}
	if !s.auth.Enabled() {
		zap.L().Warn("AUTH_JWT_SECRET is empty, API authentication is disabled")
	}
	s.router = s.buildRouter()
	return s
}

// Handler exposes the configured HTTP router.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(observe)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(apiRouter chi.Router) {
		apiRouter.Use(s.auth.Middleware)

		apiRouter.Post("/users", s.createUser)
		apiRouter.Put("/users/{id}/profile", s.updateProfile)
		apiRouter.With(s.auth.RequireAdmin).Post("/users/{id}/verify", s.verifyCreator)

		apiRouter.Post("/reservations", s.createReservation)
		apiRouter.Get("/reservations/{id}", s.getReservation)
		apiRouter.Post("/reservations/{id}/confirm-presence", s.confirmPresence)
		apiRouter.Post("/reservations/{id}/update-escort-status", s.updateEscortStatus)
		apiRouter.Post("/reservations/{id}/update-status", s.updateStatus)

		apiRouter.Get("/wallets/{userId}", s.getWallet)
		apiRouter.Get("/wallets/{userId}/transactions", s.getTransactions)
		apiRouter.With(s.auth.RequireAdmin).Post("/wallets/{userId}/deposit", s.deposit)
		apiRouter.Post("/wallets/{userId}/withdraw", s.withdraw)

		apiRouter.Post("/contact-passes", s.purchaseContactPass)
		apiRouter.With(s.auth.RequireAdmin).Post("/sponsorships", s.billSponsorship)

		apiRouter.Route("/admin", func(admin chi.Router) {
			admin.Use(s.auth.RequireAdmin)
			admin.Get("/settings", s.getSettings)
			admin.Put("/settings", s.updateSettings)
			admin.Get("/conservation", s.conservation)
		})
	})

	return r
}

// observe records request metrics and an access log line per request.
func observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(recorder, r)

		status := recorder.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := ""
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			route = rctx.RoutePattern()
		}
		elapsed := time.Since(start)
		metrics.Escrow().ObserveRequest(route, r.Method, status, elapsed)
		zap.L().Debug("HTTP request",
			zap.String("request_id", chimw.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("elapsed", elapsed))
	})
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeData(w, http.StatusOK, map[string]string{"state": "alive"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.svc.HealthCheck(ctx); err != nil {
		writeFailure(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeData(w, http.StatusOK, map[string]string{"state": "ready"})
}
