package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"bookledger/internal/catalog"
	"bookledger/internal/circulation"
	"bookledger/internal/config"
	"bookledger/internal/journal"
	"bookledger/internal/storage"
	"bookledger/internal/telemetry"
	"bookledger/internal/transport"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rootOpts.loadConfig()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, cmd.OutOrStdout())
		},
	}
}

// runServe serves the API until ctx is cancelled, then drains in-flight
// requests for at most cfg.HTTP.ShutdownTimeout.
func runServe(ctx context.Context, cfg config.Config, logOut io.Writer) error {
	level, err := cfg.Log.SlogLevel()
	if err != nil {
		return err
	}
	logger := telemetry.NewLogger(logOut, level, cfg.Telemetry.ServiceName)
	slog.SetDefault(logger)

	shutdownTelemetry, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(flushCtx); err != nil {
			logger.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	db, err := storage.Open(ctx, cfg.Database.Storage())
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.Database.ApplySchema {
		if err := db.ApplySchema(ctx); err != nil {
			return err
		}
	}

	ln, err := net.Listen("tcp", cfg.HTTP.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.HTTP.Addr, err)
	}

	srv := &http.Server{
		Handler:           NewHandler(db, cfg, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ln)
	}()
	logger.Info("server listening", "addr", ln.Addr().String(), "driver", db.Driver())

	select {
	case err := <-serveErr:
		return fmt.Errorf("server stopped: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	if err := <-serveErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// NewHandler assembles the catalog and ledger APIs over db.
func NewHandler(db *storage.DB, cfg config.Config, logger *slog.Logger) http.Handler {
	store := catalog.NewStore(db)
	catalogService := catalog.NewService(db, store, catalog.WithLogger(logger))
	ledger := circulation.NewService(db, store,
		circulation.WithLogger(logger),
		circulation.WithJournal(journal.New(db)),
	)

	return transport.NewRouter(transport.RouterConfig{
		Logger:  logger,
		Limiter: transport.NewLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst),
		Health:  db.PingContext,
	},
		catalog.NewHandler(catalogService, logger),
		circulation.NewHandler(ledger, logger),
	)
}
