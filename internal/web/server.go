// Package web serves the HTTP side of the bot: health and status pages,
// the database search API, the Telegram webhook and Prometheus metrics.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bsfilter-bot/internal/cache"
	"bsfilter-bot/internal/config"
	"bsfilter-bot/internal/model"
	"bsfilter-bot/internal/search"
	"bsfilter-bot/internal/tg"
)

const maxAPIResults = 50

// UpdateHandler consumes one Telegram update delivered over the webhook.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, upd tg.Update)
}

type Server struct {
	cfg     *config.Config
	cache   *cache.FileCache
	matcher *search.Matcher
	bot     UpdateHandler
	logger  *slog.Logger
	srv     *http.Server
}

func New(cfg *config.Config, fc *cache.FileCache, m *search.Matcher, bot UpdateHandler, logger *slog.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		cache:   fc,
		matcher: m,
		bot:     bot,
		logger:  logger.With(slog.String("component", "web")),
	}
	s.srv = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.Router(),
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}
	return s
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(loggingMiddleware(s.logger))
	r.Use(metricsMiddleware)

	r.Get("/", s.handleStatus)
	r.Get("/health", s.handleHealth)
	r.Get("/api/search_db", s.handleSearchDB)
	r.Post("/api/webhook", s.handleWebhook)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", slog.String("addr", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	s.logger.Info("http server stopped")
	return nil
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "running",
		"version":       config.Version,
		"indexed_files": s.cache.Len(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleSearchDB searches the indexed files. The response is always a JSON
// array: bad or unmatched queries yield an empty one.
func (s *Server) handleSearchDB(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		query = r.URL.Query().Get("q")
	}

	files := []model.FileRecord{}
	res, err := s.matcher.Search(r.Context(), query, s.cache.Snapshot())
	if err == nil && res.Kind == search.KindMatches {
		files = res.Files
		if len(files) > maxAPIResults {
			files = files[:maxAPIResults]
		}
	}
	writeJSON(w, http.StatusOK, files)
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 2<<20))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	var upd tg.Update
	if err := json.Unmarshal(body, &upd); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if s.bot != nil {
		s.bot.HandleUpdate(r.Context(), upd)
	}
	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
