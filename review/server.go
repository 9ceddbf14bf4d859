// Package review serves duplicate groups over HTTP so a user can inspect them
// and move individual pictures to the trash.
package review

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"dupfinder/types"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// PageSize is the number of groups returned per page
const PageSize = 25

// DefaultAddr is used when no listen address is configured
const DefaultAddr = "127.0.0.1:5000"

const shutdownTimeout = 5 * time.Second

// PictureDeleter relocates a single picture and reports success.
// *resolver.Resolver implements it.
type PictureDeleter interface {
	DeletePicture(ctx context.Context, path string) bool
}

// Server is the HTTP review server
type Server struct {
	mu      sync.Mutex
	groups  []types.DuplicateGroup
	members map[string]struct{} // files that may still be served or deleted
	deleter PictureDeleter
	logger  *zap.Logger
}

// NewServer creates a server over a fixed list of groups
func NewServer(groups []types.DuplicateGroup, deleter PictureDeleter, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	members := make(map[string]struct{})
	for _, g := range groups {
		for _, item := range g.Items {
			members[item.FileName] = struct{}{}
		}
	}
	return &Server{
		groups:  groups,
		members: members,
		deleter: deleter,
		logger:  logger,
	}
}

// Handler builds the router
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/", s.handleGroups)
	r.Get("/groups", s.handleGroups)
	r.Get("/picture/*", s.handleGetPicture)
	r.Delete("/picture/*", s.handleDeletePicture)
	r.Get("/health", s.handleHealth)
	return r
}

// ListenAndServe serves on addr until ctx is cancelled
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("cannot listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting review server", zap.String("addr", ln.Addr().String()), zap.Int("groups", len(s.groups)))

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Info("Review server stopped")
	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)))
	})
}
