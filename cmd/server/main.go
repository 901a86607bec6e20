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

	"kdash-mock/internal/collector"
	"kdash-mock/internal/config"
	"kdash-mock/internal/handlers"
	"kdash-mock/internal/logging"
	"kdash-mock/internal/mock"
	"kdash-mock/internal/services"
	"kdash-mock/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"k8s.io/utils/clock"
)

var rootCmd = &cobra.Command{
	Use:   "kdash-mock",
	Short: "Multi-cluster Kubernetes dashboard backend with synthesized clusters",
	Long: `kdash-mock serves snapshots of real clusters, reached through kubeconfig contexts,
and of mock clusters generated deterministically from their id and the current time.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer(cmd.Context())
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the history collector",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(snapshotCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServer(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	clusters, err := config.LoadClusters(cfg.ClusterConfig, cfg.MockClusters)
	if err != nil {
		return err
	}

	var rnd mock.Rand
	if cfg.RandomSeed != 0 {
		rnd = mock.NewSeededRand(cfg.RandomSeed)
	}
	clk := clock.RealClock{}
	generator := mock.NewGenerator(clk, rnd)

	log.Info().Int("clusters", len(clusters)).Msg("initializing kubernetes service")
	k8sService := services.NewKubernetesService(clusters, generator)

	metricsStore, err := store.NewMetricsStore(cfg.DBPath, clk)
	if err != nil {
		return fmt.Errorf("failed to initialize metrics store: %w", err)
	}
	defer metricsStore.Close()

	if zerolog.GlobalLevel() <= zerolog.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	apiHandler := handlers.NewAPIHandler(k8sService, metricsStore, clk, cfg.StreamInterval)
	router := handlers.NewRouter(apiHandler)

	// no WriteTimeout: /events responses stay open
	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	// the collector must be stopped before the deferred store Close
	stopCollector := runInBackground(ctx, collector.New(k8sService, metricsStore, clk, collector.Options{
		Interval:        cfg.CollectInterval,
		CleanupInterval: cfg.CleanupInterval,
		Retention:       cfg.HistoryRetention,
	}).Run)
	defer stopCollector()

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server")
	stopCollector()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited")
	return nil
}

// runInBackground starts run on its own goroutine. The returned stop cancels run's context
// and waits for it to return; calling it again is a no-op
func runInBackground(ctx context.Context, run func(context.Context)) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		run(ctx)
	}()
	return func() {
		cancel()
		<-done
	}
}
