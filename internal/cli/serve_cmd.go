package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/feridsherif/crms-frontend/internal/config"
	api "github.com/feridsherif/crms-frontend/internal/http"
	"github.com/feridsherif/crms-frontend/internal/http/handlers"
	"github.com/feridsherif/crms-frontend/internal/http/middleware"
	"github.com/feridsherif/crms-frontend/internal/repositories"
	"github.com/feridsherif/crms-frontend/internal/services"
	"github.com/feridsherif/crms-frontend/internal/telemetry"
	"github.com/feridsherif/crms-frontend/internal/upstream"
	"github.com/feridsherif/crms-frontend/internal/utils"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP gateway",
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := config.LoadEnv()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), env)
		},
	}
}

// buildAPI assembles the handler dependencies. The returned cleanup closes
// the audit database when one was opened.
func buildAPI(ctx context.Context, env config.Env, logger *logrus.Logger) (*handlers.API, func(), error) {
	backend, err := upstream.New(env.BackendBaseURL, env.BackendTimeout, env.RequestIDHeader)
	if err != nil {
		return nil, nil, err
	}

	gateway := services.Gateway{
		Backend:       backend,
		Logger:        logger,
		BulkDeleteMax: env.BulkDeleteMax,
	}
	store, closeStore, err := newSessionStore(env.Session)
	if err != nil {
		return nil, nil, err
	}
	a := &handlers.API{
		Sessions: services.SessionIssuer{Secret: env.SessionSecret(), TTL: env.Session.TTL, Store: store},
		Env:      env,
		Logger:   logger,
	}

	switch env.Auth.Mode {
	case "local":
		a.Auth = services.LocalAuthenticator{
			Username:     env.Auth.LocalUsername,
			PasswordHash: env.Auth.LocalPasswordHash,
			Permissions:  env.Auth.LocalPermissions,
			StaticToken:  env.Auth.LocalBackendToken,
		}
	default:
		a.Auth = services.BackendAuthenticator{Backend: backend}
	}

	cleanup := closeStore
	if env.AuditEnabled {
		db, err := config.OpenDB(ctx, env.Database)
		if err != nil {
			closeStore()
			return nil, nil, errors.Wrap(err, "audit database")
		}
		repo := repositories.AuditRepository{DB: db}
		if err := repo.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			closeStore()
			return nil, nil, err
		}
		gateway.Audit = repo
		a.Audit = repo
		cleanup = func() {
			_ = db.Close()
			closeStore()
		}
	}
	a.Gateway = gateway
	return a, cleanup, nil
}

// newSessionStore picks where backend access tokens live between requests.
func newSessionStore(opts config.SessionOptions) (services.SessionStore, func(), error) {
	if opts.Store == "redis" {
		repo, err := repositories.NewRedisSessionRepositoryFromURL(opts.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return repo, func() { _ = repo.Close() }, nil
	}
	return repositories.NewMemorySessionRepository(), func() {}, nil
}

func serve(ctx context.Context, env config.Env) error {
	if env.GinMode != "" {
		gin.SetMode(env.GinMode)
	}
	logger := utils.NewLogger(env.LogLevel, env.LogFormat)

	shutdownTracing, err := telemetry.Setup(ctx, env.OpenTelemetry)
	if err != nil {
		return err
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	a, cleanup, err := buildAPI(ctx, env, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	var loginLimit gin.HandlerFunc
	if env.RateLimit.Enabled {
		loginLimit, err = middleware.LoginRateLimit(env.RateLimit, logger)
		if err != nil {
			return err
		}
	}

	srv := &http.Server{
		Addr:              env.AppAddr,
		Handler:           api.NewRouter(a, loginLimit),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       20 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithFields(logrus.Fields{"addr": env.AppAddr, "backend": env.BackendBaseURL}).Info("gateway listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err, ok := <-errCh:
		if ok {
			return errors.Wrap(err, "listen")
		}
		return nil
	case <-quit:
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutdown")
	}
	logger.Info("server stopped")
	return nil
}
