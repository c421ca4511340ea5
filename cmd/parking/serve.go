package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"parking/internal/adapter/boltstore"
	adapthttp "parking/internal/adapter/http"
	"parking/internal/adapter/memory"
	"parking/internal/adapter/postgres"
	"parking/internal/adapter/token"
	"parking/internal/app"
	"parking/internal/config"
	"parking/internal/domain"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(envFile)
		if err != nil {
			return err
		}
		logger, err := cfg.Logger()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg, logger)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

type store interface {
	domain.LotRepository
	domain.SessionRepository
	Close() error
}

type memoryStore struct{ *memory.DB }

func (memoryStore) Close() error { return nil }

func openStore(cfg *config.Config) (store, error) {
	switch cfg.Store {
	case config.StorePostgres:
		db, err := postgres.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return db, nil
	case config.StoreBolt:
		db, err := boltstore.Open(cfg.BoltPath)
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		return memoryStore{memory.New()}, nil
	}
}

func newVerifier(ctx context.Context, cfg *config.Config) (adapthttp.TokenVerifier, error) {
	if cfg.OIDCIssuer != "" {
		return token.NewOIDC(ctx, cfg.OIDCIssuer, cfg.OIDCClientID, cfg.OIDCRoleClaim)
	}
	return token.NewHMAC(cfg.JWTSecret), nil
}

func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	db, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Store, err)
	}
	defer func() { _ = db.Close() }()

	verifier, err := newVerifier(ctx, cfg)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	lots := app.NewLotService(db)
	sessions := app.NewSessionService(db, lots)
	h := adapthttp.New(lots, sessions, verifier, logger, adapthttp.NewMetrics(reg)).Handler()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", cfg.Addr), zap.String("store", cfg.Store))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
