package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/evtrends/evtrends/internal/config"
	"github.com/evtrends/evtrends/internal/dashboard"
	"github.com/evtrends/evtrends/internal/dataset"
	"github.com/evtrends/evtrends/internal/model"
	"github.com/evtrends/evtrends/internal/server"
	"github.com/evtrends/evtrends/internal/store"
	"github.com/evtrends/evtrends/internal/version"
)

var configFile string

func main() {
	rootCmd := &cobra.Command{
		Use:           "evtrends",
		Short:         "County-level electric vehicle adoption forecaster",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to configuration file")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(forecastCmd())
	rootCmd.AddCommand(countiesCmd())
	rootCmd.AddCommand(runsCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app holds everything loaded once at startup.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	data   *dataset.Dataset
	svc    *dashboard.Service
	store  *store.SQLiteStore // nil when run history is disabled
}

// loadConfig reads configuration before the logger, so log level and
// format can be configured.
func loadConfig() (*config.Config, *zap.Logger, error) {
	v, err := config.Load(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load configuration: %w", err)
	}
	cfg, err := config.Decode(v)
	if err != nil {
		return nil, nil, err
	}
	logger, err := config.NewLogger(v)
	if err != nil {
		return nil, nil, fmt.Errorf("initialize logger: %w", err)
	}
	if f := v.ConfigFileUsed(); f != "" {
		logger.Debug("configuration loaded", zap.String("source", f))
	}
	return cfg, logger, nil
}

func openStore(cfg *config.Config, logger *zap.Logger) (*store.SQLiteStore, error) {
	if cfg.Database.Path == "" {
		return nil, nil
	}
	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	logger.Info("run history enabled", zap.String("path", cfg.Database.Path))
	return db, nil
}

func loadApp() (*app, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, err
	}

	data, err := dataset.Load(cfg.Data.Path)
	if err != nil {
		return nil, err
	}
	from, to := data.Range()
	logger.Info("dataset loaded",
		zap.String("path", cfg.Data.Path),
		zap.Int("records", data.Len()),
		zap.Int("skipped", data.Skipped()),
		zap.Int("counties", len(data.Counties())),
		zap.Time("from", from),
		zap.Time("to", to),
	)

	predictor, err := model.Open(cfg.Model.Source, cfg.Model.Timeout)
	if err != nil {
		return nil, err
	}
	logger.Info("model loaded", zap.String("model", fmt.Sprint(predictor)))

	db, err := openStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	opts := dashboard.Options{CacheSize: cfg.Cache.Size, Logger: logger.Named("dashboard")}
	if db != nil {
		opts.Recorder = db
	}
	svc, err := dashboard.New(data, predictor, opts)
	if err != nil {
		if db != nil {
			_ = db.Close()
		}
		return nil, err
	}
	return &app{cfg: cfg, logger: logger, data: data, svc: svc, store: db}, nil
}

func (a *app) close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("close run history", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the forecasting dashboard and API",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			defer a.close()

			loc, err := time.LoadLocation(a.cfg.Dashboard.Timezone)
			if err != nil {
				return fmt.Errorf("dashboard timezone %q: %w", a.cfg.Dashboard.Timezone, err)
			}

			trusted, err := server.ParseTrustedProxies(a.cfg.RateLimit.TrustedProxies)
			if err != nil {
				return fmt.Errorf("ratelimit: %w", err)
			}

			opts := server.Options{
				Location:       loc,
				RateRPS:        a.cfg.RateLimit.RPS,
				RateBurst:      a.cfg.RateLimit.Burst,
				TrustedProxies: trusted,
			}
			if a.store != nil {
				opts.Runs = a.store
			}
			srv := server.New(a.cfg.Server.Addr(), a.svc, a.logger.Named("http"), opts)

			a.logger.Info("evtrends starting", zap.String("version", version.Short()))

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigCh)

			select {
			case err := <-errCh:
				return err
			case sig := <-sigCh:
				a.logger.Info("received shutdown signal", zap.String("signal", sig.String()))
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			a.logger.Info("server stopped")
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.Info())
		},
	}
}
