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

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/denisok6893-rgb/midmod-radar/internal/config"
	"github.com/denisok6893-rgb/midmod-radar/internal/houses"
	httpapi "github.com/denisok6893-rgb/midmod-radar/internal/http"
	"github.com/denisok6893-rgb/midmod-radar/internal/logging"
	"github.com/denisok6893-rgb/midmod-radar/internal/matching"
	"github.com/denisok6893-rgb/midmod-radar/internal/session"
	"github.com/denisok6893-rgb/midmod-radar/internal/storage"
)

const sessionSweepEvery = time.Minute

var (
	envFile string

	cfg    config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "midmod",
	Short:         "MidMod Radar catalog API",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(envFile); err != nil {
			return err
		}
		if logger, err = logging.New(cfg.LogLevel, cfg.LogDev); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Migrate the database and serve the HTTP API",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer store.Close()
		logger.Info("migrations applied", zap.String("driver", cfg.DBDriver))
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed [file]",
	Short: "Load a JSON or YAML catalog snapshot",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfg.SeedPath
		if len(args) == 1 {
			path = args[0]
		}
		data, err := storage.LoadSeedFromFile(path)
		if err != nil {
			return err
		}

		store, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Seed(cmd.Context(), data, time.Now()); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		logger.Info("catalog seeded",
			zap.String("path", path),
			zap.Int("architects", len(data.Architects)),
			zap.Int("styles", len(data.Styles)),
			zap.Int("houses", len(data.Houses)))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func openStore(ctx context.Context) (*storage.Store, error) {
	store, err := storage.Open(ctx, cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return store, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	objects, err := storage.NewDiskObjectStore(cfg.PhotoDir, cfg.PhotoBase)
	if err != nil {
		return err
	}

	w, err := matching.LoadWeightsFromFile(cfg.WeightsPath)
	if err != nil {
		logger.Warn("use default weights", zap.String("path", cfg.WeightsPath), zap.Error(err))
		w = matching.DefaultWeights()
	}

	svc := houses.NewService(store, objects, matching.NewEngine(w), logger)
	sessions := session.NewManager(cfg.SessionTTL, logger)
	go sessions.Run(ctx, sessionSweepEvery)

	api := httpapi.NewServer(svc, sessions, logger)
	api.PhotoDir = objects.Root()
	api.Ping = store.Ping

	srv := &http.Server{
		Addr:         cfg.Address,
		Handler:      api.Routes(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("API listening", zap.String("address", cfg.Address))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
