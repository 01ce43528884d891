package devserver

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/mbelkin/authfront/internal/common"
	"github.com/mbelkin/authfront/internal/logging"
)

type Server struct {
	cfg     *Config
	store   *Store
	log     logging.Logger
	router  *mux.Router
	limiter *rateLimiter
}

func NewServer(cfg *Config, log logging.Logger) *Server {
	if log == nil {
		log = logging.NewNop()
	}
	s := &Server{
		cfg:     cfg,
		store:   NewStore(),
		log:     log,
		limiter: newRateLimiter(cfg.LoginRateLimit, cfg.LoginRateWindow),
	}
	s.routes()
	return s
}

// Handler exposes the router for http.Server and for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Store exposes the in-memory state for test seeding.
func (s *Server) Store() *Store { return s.store }

func (s *Server) routes() {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	api.HandleFunc("/2fa/login", s.handleTwoFactorLogin).Methods(http.MethodPost)
	api.HandleFunc("/register", s.handleRegister).Methods(http.MethodPost)
	api.HandleFunc("/request-password-reset", s.handleResetRequest).Methods(http.MethodPost)
	api.HandleFunc("/reset-password", s.handleResetPassword).Methods(http.MethodPost)
	api.HandleFunc("/presence/{channel}", s.handlePresence).Methods(http.MethodGet)

	api.Handle("/user", s.withAuth(s.handleCurrentUser)).Methods(http.MethodGet)
	api.Handle("/logout", s.withAuth(s.handleLogout)).Methods(http.MethodPost)
	api.Handle("/user/2fa/enable", s.withAuth(s.handleEnableTwoFactor)).Methods(http.MethodPost)
	api.Handle("/auth/2fa/verify", s.withAuth(s.handleConfirmTwoFactor)).Methods(http.MethodPost)
	api.Handle("/user/2fa/disable", s.withAuth(s.handleDisableTwoFactor)).Methods(http.MethodPost)

	s.router = r
}

// envelope mirrors the production backend's response wrapper. Errors is
// deliberately loose: depending on the endpoint it carries a bare list or
// a map of field messages, exactly like the backend it stands in for.
type envelope struct {
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Errors  any    `json:"errors,omitempty"`
	Status  int    `json:"status"`
}

func (s *Server) respond(w http.ResponseWriter, status int, env envelope) {
	env.Status = status
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		s.log.Error(context.Background(), "response encode failed", "error", err)
	}
}

func (s *Server) respondFieldErrors(w http.ResponseWriter, fields map[string][]string) {
	s.respond(w, http.StatusUnprocessableEntity, envelope{
		Message: "validation failed",
		Errors:  fields,
	})
}

// respondRootErrors answers with the backend's other error shape, a bare
// message list not tied to any field.
func (s *Server) respondRootErrors(w http.ResponseWriter, status int, message string, errs []string) {
	s.respond(w, status, envelope{Message: message, Errors: errs})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, into any) bool {
	if err := json.NewDecoder(r.Body).Decode(into); err != nil {
		s.respondRootErrors(w, http.StatusBadRequest, "malformed request body", []string{"request body must be valid JSON"})
		return false
	}
	return true
}

type ctxKey int

const (
	ctxKeyAccount ctxKey = iota
	ctxKeyJTI
)

// withAuth authenticates the bearer token and rejects tokens whose session
// was invalidated by logout.
func (s *Server) withAuth(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get(common.AuthorizationHeader)
		if !strings.HasPrefix(header, common.BearerPrefix) {
			s.respondRootErrors(w, http.StatusUnauthorized, "unauthenticated", []string{"missing bearer token"})
			return
		}

		userID, jti, err := parseToken(strings.TrimPrefix(header, common.BearerPrefix), []byte(s.cfg.JWTSecret))
		if err != nil {
			s.respondRootErrors(w, http.StatusUnauthorized, "unauthenticated", []string{"invalid or expired token"})
			return
		}
		if _, live := s.store.SessionUser(jti); !live {
			s.respondRootErrors(w, http.StatusUnauthorized, "unauthenticated", []string{"session was invalidated"})
			return
		}
		account, err := s.store.Get(userID)
		if err != nil {
			s.respondRootErrors(w, http.StatusUnauthorized, "unauthenticated", []string{"account no longer exists"})
			return
		}

		ctx := context.WithValue(r.Context(), ctxKeyAccount, account)
		ctx = context.WithValue(ctx, ctxKeyJTI, jti)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func accountFrom(r *http.Request) *Account {
	a, _ := r.Context().Value(ctxKeyAccount).(*Account)
	return a
}

func jtiFrom(r *http.Request) string {
	jti, _ := r.Context().Value(ctxKeyJTI).(string)
	return jti
}

// rateLimiter is a fixed-window counter per key. Good enough for a dev
// backend; the point is producing realistic 429 responses, not fairness.
type rateLimiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	counts map[string]int
	starts map[string]time.Time
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		limit:  limit,
		window: window,
		counts: make(map[string]int),
		starts: make(map[string]time.Time),
	}
}

// allow counts an attempt against key and reports whether it is within the
// window's budget.
func (l *rateLimiter) allow(key string) bool {
	if l.limit <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if start, ok := l.starts[key]; !ok || now.Sub(start) >= l.window {
		l.starts[key] = now
		l.counts[key] = 0
	}
	l.counts[key]++
	return l.counts[key] <= l.limit
}
