package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"nvd-api/internal/config"
	"nvd-api/internal/database"
	"nvd-api/internal/utils"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"
)

// Server represents the HTTP server
// Server will handle request routing and owns the store handle
type Server struct {
	DB      database.DataStore
	Router  *http.ServeMux
	Address string
	Logger  *logrus.Entry

	// QueryTimeout bounds each store query; zero leaves only the request context
	QueryTimeout    time.Duration
	ShutdownTimeout time.Duration
}

func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.NewDatabase(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}
	s := &Server{
		DB:              database.Guarded(db, cfg.BreakerFailures, cfg.BreakerCooldown),
		Router:          http.NewServeMux(),
		Address:         cfg.Addr,
		Logger:          utils.NewLogger("server"),
		QueryTimeout:    cfg.QueryTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}
	// register configured route handlers once server is initialized
	s.registerHandlers()
	return s, nil
}

// Start serves until ctx is cancelled, then drains in-flight requests and
// closes the store
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.Address,
		Handler: s.logRequests(s.Router),
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.Logger.Infof("listening on %s", s.Address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return xerrors.Errorf("listen on %s: %w", s.Address, err)
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		s.Logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return xerrors.Errorf("shutdown: %w", err)
		}
		return nil
	})

	err := g.Wait()
	if cerr := s.DB.Close(); cerr != nil && err == nil {
		err = xerrors.Errorf("close store: %w", cerr)
	}
	return err
}

func (s *Server) registerHandlers() {
	for _, rt := range routes() {
		s.Router.HandleFunc(rt.pattern(), func(w http.ResponseWriter, r *http.Request) {
			rt.handler(s, w, r)
		})
	}
}

// queryContext applies the configured per-query timeout to the request context
func (s *Server) queryContext(r *http.Request) (context.Context, context.CancelFunc) {
	if s.QueryTimeout > 0 {
		return context.WithTimeout(r.Context(), s.QueryTimeout)
	}
	return context.WithCancel(r.Context())
}
