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

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rewear-collective/rewear/internal/api"
	"github.com/rewear-collective/rewear/internal/app/points"
	"github.com/rewear-collective/rewear/internal/app/shipping"
	"github.com/rewear-collective/rewear/internal/app/swap"
	"github.com/rewear-collective/rewear/internal/auth"
	"github.com/rewear-collective/rewear/internal/daemon"
	"github.com/rewear-collective/rewear/internal/domain"
	"github.com/rewear-collective/rewear/internal/infra/sqlite"
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address (overrides config)")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the exchange API server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetOutput(os.Stdout)
	log := logrus.StandardLogger().WithField("type", "cli/serve")

	cfg, err := daemon.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if key := os.Getenv("REWEAR_SIGNING_KEY"); key != "" {
		cfg.Auth.SigningKey = key
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	db, err := sqlite.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	quotes := shipping.New(shipping.WithDefaultLocalities(
		domain.Address{City: cfg.Shipping.DefaultRequesterCity},
		domain.Address{City: cfg.Shipping.DefaultOwnerCity},
	))
	tokens := auth.New(cfg.Auth.SigningKey, cfg.Auth.Issuer)
	svc := swap.NewService(db, db, db, quotes)
	srv := api.NewServer(svc, points.NewLedger(db), tokens, db)
	if cfg.Metrics.Enabled {
		srv.EnableMetrics()
	}

	addr := cfg.API.Addr()
	if flag, _ := cmd.Flags().GetString("addr"); flag != "" {
		addr = flag
	}

	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      srv.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", addr).WithField("data_dir", cfg.Storage.DataDir).Info("server listening")
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		log.WithField("signal", sig.String()).Info("shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpSrv.Shutdown(ctx)
}
