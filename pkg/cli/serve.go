package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-dbproxy/pkg/audit"
	"github.com/ekaya-inc/ekaya-dbproxy/pkg/auth"
	"github.com/ekaya-inc/ekaya-dbproxy/pkg/handlers"
	"github.com/ekaya-inc/ekaya-dbproxy/pkg/middleware"
	"github.com/ekaya-inc/ekaya-dbproxy/pkg/telegram"
)

const shutdownTimeout = 15 * time.Second

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := getConfig(cmd.Context())
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			handler, closeHandler, err := a.httpHandler(ctx)
			if err != nil {
				return err
			}
			defer closeHandler()

			return a.serve(ctx, handler)
		},
	}
}

// httpHandler builds the routed, logged and recovered API handler.
// The returned func releases the token validator.
func (a *app) httpHandler(ctx context.Context) (http.Handler, func(), error) {
	var validator auth.TokenValidator
	closeValidator := func() {}
	if a.cfg.Auth.Enabled {
		v, err := auth.NewTokenValidator(ctx, auth.ValidatorConfig{
			HMACSecret:    a.cfg.Auth.HMACSecret,
			JWKSEndpoints: a.cfg.Auth.JWKSEndpoints,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create token validator: %w", err)
		}
		validator = v
		closeValidator = v.Close
	}
	authMiddleware := auth.NewMiddleware(validator, a.logger)

	telegramClient := telegram.NewClient(a.cfg.Telegram.APIBaseURL, a.cfg.Telegram.Timeout, a.cfg.Telegram.DiagnosticsTimeout, a.logger)

	auditor := audit.NewSecurityAuditor(a.logger)

	mux := http.NewServeMux()
	handlers.NewHealthHandler(a.cfg, a.db, engineNames, a.logger).RegisterRoutes(mux)
	handlers.NewDatabaseHandler(a.databaseService, auditor, a.logger).RegisterRoutes(mux, authMiddleware)
	handlers.NewProfilesHandler(a.profiles, a.databaseService, auditor, a.logger).RegisterRoutes(mux, authMiddleware)
	handlers.NewTelegramHandler(telegramClient, a.logger).RegisterRoutes(mux, authMiddleware)

	var handler http.Handler = mux
	handler = middleware.RequestLogger(a.logger)(handler)
	handler = middleware.Recover(a.logger)(handler)
	return handler, closeValidator, nil
}

// serve runs the server until ctx is cancelled, then drains in-flight requests.
func (a *app) serve(ctx context.Context, handler http.Handler) error {
	srv := &http.Server{
		Addr:              a.cfg.ListenAddr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	tlsEnabled := a.cfg.TLSCertPath != ""
	a.logger.Info("Starting ekaya-dbproxy",
		zap.String("addr", srv.Addr),
		zap.String("base_url", a.cfg.BaseURL),
		zap.String("version", a.cfg.Version),
		zap.String("env", a.cfg.Env),
		zap.Bool("tls", tlsEnabled),
		zap.Bool("auth", a.cfg.Auth.Enabled),
		zap.Bool("sealed_profiles", a.cfg.ProfileCredentialsKey != ""),
		zap.Strings("engines", engineNames()))

	errCh := make(chan error, 1)
	go func() {
		var err error
		if tlsEnabled {
			err = srv.ListenAndServeTLS(a.cfg.TLSCertPath, a.cfg.TLSKeyPath)
		} else {
			err = srv.ListenAndServe()
		}
		errCh <- err
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	a.logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
