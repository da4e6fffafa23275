package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/solatis/couponkeeper/internal/core/api"
	"github.com/solatis/couponkeeper/internal/core/couponstore"
	"github.com/solatis/couponkeeper/internal/core/db"
	"github.com/solatis/couponkeeper/internal/core/server"
	"github.com/solatis/couponkeeper/internal/eligibility"
)

var eligibilityAPICmd = &cobra.Command{
	Use:   "eligibility-api",
	Short: "Start gRPC eligibility API service",
	RunE:  runEligibilityAPI,
}

func init() {
	rootCmd.AddCommand(eligibilityAPICmd)
	eligibilityAPICmd.Flags().String("host", "0.0.0.0", "gRPC server host")
	eligibilityAPICmd.Flags().Int("port", 50061, "gRPC server port")
	eligibilityAPICmd.Flags().Int("metrics-port", 9464, "Prometheus metrics port (0 disables)")
}

func runEligibilityAPI(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("host") {
		cfg.Host, _ = cmd.Flags().GetString("host")
	}
	if cmd.Flags().Changed("port") {
		cfg.Port, _ = cmd.Flags().GetInt("port")
	}
	if cmd.Flags().Changed("metrics-port") {
		cfg.MetricsPort, _ = cmd.Flags().GetInt("metrics-port")
	}

	database, err := openDatabase(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer database.Close()

	queries, err := db.LoadQueries(database)
	if err != nil {
		return fmt.Errorf("failed to load queries: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := eligibility.NewMetrics(reg)

	service, err := api.NewService(couponstore.New(queries), metrics, cfg.MaxCartItems)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	grpcServer, err := server.NewGRPCServer(cfg, service, logger)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	logger.Info().
		Str("version", Version).
		Str("addr", cfg.Address()).
		Str("metrics_addr", cfg.MetricsAddress()).
		Msg("starting couponkeeper eligibility API")

	errChan := make(chan error, 2)
	go func() {
		errChan <- grpcServer.Start(ctx)
	}()

	var metricsServer *http.Server
	if addr := cfg.MetricsAddress(); addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
		metricsServer = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logger.Info().Msg("shutting down gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if metricsServer != nil {
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				logger.Warn().Err(err).Msg("metrics server shutdown")
			}
		}
		return grpcServer.Shutdown(shutdownCtx)
	}
}
