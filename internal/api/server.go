package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"editorial/internal/journal"
	"editorial/internal/logging"
	"editorial/internal/workflow"
)

// ActorHeader carries the acting user's id. Identity only; requests are not
// authenticated.
const ActorHeader = "X-Actor-ID"

// Store is the read side the API serves directly.
type Store interface {
	Ping(ctx context.Context) error
	CreateUser(ctx context.Context, u *journal.User) error
	ListUsers(ctx context.Context) ([]*journal.User, error)
	GetManuscript(ctx context.Context, id int64) (*journal.Manuscript, error)
	ListManuscripts(ctx context.Context) ([]*journal.Manuscript, error)
	GetRevision(ctx context.Context, id int64) (*journal.Revision, error)
	GetReview(ctx context.Context, id int64) (*journal.Review, error)
	History(ctx context.Context, entity string, entityID int64) ([]*journal.HistoryEntry, error)
	RecentHistory(ctx context.Context, limit int) ([]*journal.HistoryEntry, error)
}

// Server exposes the workflow over JSON HTTP.
type Server struct {
	bind     string
	svc      *workflow.Service
	store    Store
	logger   *slog.Logger
	gatherer prometheus.Gatherer

	listener net.Listener
	server   *http.Server
}

// NewServer builds a server bound to bind. A nil gatherer serves the default
// Prometheus registry.
func NewServer(bind string, svc *workflow.Service, store Store, logger *slog.Logger, gatherer prometheus.Gatherer) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	s := &Server{
		bind:     strings.TrimSpace(bind),
		svc:      svc,
		store:    store,
		logger:   logging.NewComponentLogger(logger, "api"),
		gatherer: gatherer,
	}
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", s.handle(s.handleHealth))
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Route("/users", func(r chi.Router) {
		r.Get("/", s.handle(s.handleListUsers))
		r.Post("/", s.handle(s.handleCreateUser))
	})
	r.Route("/manuscripts", func(r chi.Router) {
		r.Get("/", s.handle(s.handleListManuscripts))
		r.Post("/", s.handle(s.handleCreateManuscript))
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handle(s.handleGetManuscript))
			r.Post("/authors/{author}/acknowledge", s.handle(s.handleAcknowledge))
			r.Post("/reviewers", s.handle(s.handleAssignReviewer))
		})
	})
	r.Route("/revisions/{id}", func(r chi.Router) {
		r.Get("/", s.handle(s.handleGetRevision))
		r.Get("/transitions", s.handle(s.handleRevisionAllowed))
		r.Post("/transitions", s.handle(s.handleRevisionTransition))
		r.Post("/new-revision", s.handle(s.handleNewRevision))
		r.Get("/history", s.handle(s.handleHistory("revision")))
	})
	r.Post("/reviews/expire", s.handle(s.handleExpire))
	r.Route("/reviews/{id}", func(r chi.Router) {
		r.Get("/", s.handle(s.handleGetReview))
		r.Get("/transitions", s.handle(s.handleReviewAllowed))
		r.Post("/transitions", s.handle(s.handleReviewTransition))
		r.Post("/submit", s.handle(s.handleSubmitReview))
		r.Get("/history", s.handle(s.handleHistory("review")))
	})
	r.Get("/reviewers/ranked", s.handle(s.handleRankReviewers))
	r.Get("/history", s.handle(s.handleRecentHistory))
	return r
}

// Start listens on the configured address and serves until ctx ends.
func (s *Server) Start(ctx context.Context) error {
	if s.bind == "" {
		return errors.New("api: bind address is required")
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.bind
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down, waiting briefly for in-flight requests.
func (s *Server) Stop() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			logging.String("request_id", middleware.GetReqID(r.Context())),
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
			logging.Int("status", ww.Status()),
			logging.Duration("elapsed", time.Since(started)),
		)
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return badRequest("invalid request body: "+err.Error(), err)
	}
	return nil
}

func idParam(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest(fmt.Sprintf("invalid %s %q", name, raw), err)
	}
	return id, nil
}

// actorID reads ActorHeader. A missing header means no acting user.
func actorID(r *http.Request) (int64, error) {
	raw := strings.TrimSpace(r.Header.Get(ActorHeader))
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest(fmt.Sprintf("invalid %s header %q", ActorHeader, raw), err)
	}
	return id, nil
}
