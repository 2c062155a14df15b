package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"votelab/internal/usecase"
)

// PhoneNormalizer turns a caller id into E.164.
type PhoneNormalizer interface {
	E164(raw string) (string, error)
}

// Deps are the collaborators the HTTP surface delegates to.
type Deps struct {
	USSD          usecase.USSDUseCase
	Ledger        usecase.LedgerUseCase
	Votes         usecase.VoteUseCase
	Results       usecase.ResultsUseCase
	Admin         usecase.AdminUseCase
	Auth          *AuthManager
	Phones        PhoneNormalizer
	WebhookSecret string
	// Health reports readiness; nil means always healthy.
	Health         func(ctx context.Context) error
	RequestTimeout time.Duration
	Logger         *zerolog.Logger
}

type Server struct {
	d   Deps
	log *zerolog.Logger
}

func NewServer(d Deps) *Server {
	l := d.Logger.With().Str("component", "http").Logger()
	return &Server{d: d, log: &l}
}

// Routes builds the full router.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(TraceID(), Recover(s.log), RequestLog(s.log))

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(Timeout(s.d.RequestTimeout))

		r.Post("/ussd", s.handleUSSD)

		r.Route("/api/v1", func(r chi.Router) {
			r.Get("/payments/verify/{reference}", s.handleVerify)
			r.Post("/payments/webhook", s.handleWebhook)

			r.Route("/polls/{pollID}", func(r chi.Router) {
				r.Post("/votes", s.handlePaidVote)
				r.Post("/creator-votes", s.handleCodeVote)
				r.Get("/results", s.handleResults)
			})

			r.Post("/admin/token", s.handleAdminToken)
			r.Group(func(r chi.Router) {
				r.Use(s.d.Auth.Require)
				r.Post("/admin/polls/{pollID}/payment-link", s.handleActivationLink)
				r.Post("/admin/polls/{pollID}/codes", s.handleGenerateCodes)
			})
		})
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.d.Health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.d.Health(ctx); err != nil {
			s.log.Warn().Err(err).Msg("health check failed")
			writeJSON(w, http.StatusServiceUnavailable, statusBody{Status: "error", Detail: "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, statusBody{Status: "ok"})
}
