package web

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"saas-api-console/internal/infra/redis"
	"saas-api-console/internal/usecase"
)

type Server struct {
	paymentUC usecase.PaymentUseCase
	apiKeyUC  usecase.APIKeyUseCase
	planUC    usecase.PlanUseCase
	ticketUC  usecase.TicketUseCase
	audit     *usecase.AuditRecorder

	auth    *AuthManager
	limiter *redis.RateLimiter

	verifyPerMinute int
	log             *zerolog.Logger
}

func NewServer(
	paymentUC usecase.PaymentUseCase,
	apiKeyUC usecase.APIKeyUseCase,
	planUC usecase.PlanUseCase,
	ticketUC usecase.TicketUseCase,
	audit *usecase.AuditRecorder,
	auth *AuthManager,
	limiter *redis.RateLimiter,
	verifyPerMinute int,
	logger *zerolog.Logger,
) *Server {
	return &Server{
		paymentUC:       paymentUC,
		apiKeyUC:        apiKeyUC,
		planUC:          planUC,
		ticketUC:        ticketUC,
		audit:           audit,
		auth:            auth,
		limiter:         limiter,
		verifyPerMinute: verifyPerMinute,
		log:             logger,
	}
}

// Router builds the full route tree. Everything under /api/v1 requires a
// valid session token except the plan catalog, which the pricing page reads
// before sign-in.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestMetaMiddleware)

	r.Get("/health", healthHandler())
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/plans", plansListHandler(s.planUC))
		r.With(s.auth.Middleware).Group(func(r chi.Router) {
			r.Route("/payments", func(r chi.Router) {
				r.Post("/", paymentInitiateHandler(s.paymentUC))
				r.With(s.verifyRateLimit).Post("/verify", paymentVerifyHandler(s.paymentUC, s.log))
				r.Get("/", paymentHistoryHandler(s.paymentUC))
				r.Get("/{id}", paymentGetHandler(s.paymentUC))
			})
			r.Route("/keys", func(r chi.Router) {
				r.Post("/", keyCreateHandler(s.apiKeyUC))
				r.Get("/", keyListHandler(s.apiKeyUC))
				r.Get("/{id}", keyGetHandler(s.apiKeyUC))
				r.Post("/{id}/rotate", keyRotateHandler(s.apiKeyUC))
				r.Delete("/{id}", keyRevokeHandler(s.apiKeyUC))
			})
			r.Route("/tickets", func(r chi.Router) {
				r.Post("/", ticketCreateHandler(s.ticketUC))
				r.Get("/", ticketListHandler(s.ticketUC))
				r.Get("/{id}", ticketGetHandler(s.ticketUC))
				r.Post("/{id}/responses", ticketRespondHandler(s.ticketUC))
				r.Put("/{id}/status", ticketStatusHandler(s.ticketUC))
			})
			r.Get("/audit-logs", auditListHandler(s.audit))
		})
	})

	return r
}

// requestMetaMiddleware captures client attribution for audit entries.
func (s *Server) requestMetaMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := usecase.WithRequestMeta(r.Context(), usecase.RequestMeta{
			IPAddress: clientIP(r),
			UserAgent: r.UserAgent(),
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		// first hop is the client
		if i := strings.IndexByte(fwd, ','); i > 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	if real := r.Header.Get("X-Real-IP"); real != "" {
		return real
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// verifyRateLimit caps verification polling per user. The limiter failing
// open is deliberate: redis being down must not block settlements.
func (s *Server) verifyRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter == nil {
			next.ServeHTTP(w, r)
			return
		}
		key := redis.UserEndpointKey(UserID(r.Context()), "payments_verify")
		ok, err := s.limiter.Allow(r.Context(), key, s.verifyPerMinute, time.Minute)
		if err != nil {
			s.log.Warn().Err(err).Msg("rate limiter unavailable, allowing request")
			next.ServeHTTP(w, r)
			return
		}
		if !ok {
			writeError(w, http.StatusTooManyRequests, "Too many verification attempts, slow down")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
