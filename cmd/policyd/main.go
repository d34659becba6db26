package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"approval_engine/internal/api"
	"approval_engine/internal/config"
	"approval_engine/internal/engine"
	"approval_engine/internal/repository/memory"
	"approval_engine/internal/selector"
	"approval_engine/internal/service"
	"approval_engine/pkg/crypto"
	"approval_engine/pkg/currency"
	"approval_engine/pkg/metrics"
)

const (
	appName = "approval_engine"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config; built-in defaults when empty")
	flag.Parse()

	logger := setupLogger()
	logger.Info("Starting application",
		slog.String("name", appName))

	cfg, err := loadConfig(*configPath)
	if err != nil {
		logger.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	rates, err := cfg.RateTable()
	if err != nil {
		logger.Error("Invalid rate table", slog.String("error", err.Error()))
		os.Exit(1)
	}
	thresholds, err := cfg.ThresholdTables()
	if err != nil {
		logger.Error("Invalid threshold tables", slog.String("error", err.Error()))
		os.Exit(1)
	}
	tiers, err := cfg.Tiers()
	if err != nil {
		logger.Error("Invalid selector tiers", slog.String("error", err.Error()))
		os.Exit(1)
	}

	metricsCollector := metrics.NewMetricsCollector(logger)
	signer := setupSigner(cfg, logger)
	directory := memory.NewApproverDirectory()
	auditLog := memory.NewAuditLog()
	seedDirectory(directory, cfg, logger)

	ruleEngine, err := engine.NewRuleEngine(thresholds, cfg.TypePolicies(), directory, auditLog, logger)
	if err != nil {
		logger.Error("Failed to build rule engine", slog.String("error", err.Error()))
		os.Exit(1)
	}
	metricsCollector.SetActiveRules(len(ruleEngine.GetRules()))

	normalizer := currency.NewNormalizer(cfg.ReferenceCurrency, rates)
	approverSelector := selector.NewSelector(normalizer, tiers, ruleEngine, directory, logger)
	dispatcher := setupDispatcher(logger)
	apiHandler := api.NewAPIHandler(ruleEngine, approverSelector, auditLog, dispatcher, metricsCollector, signer, logger)
	metricsServer := metricsCollector.StartMetricsServer(cfg.MetricsAddr)
	httpServer := startHTTPServer(cfg.ListenAddr, apiHandler, logger)
	waitForShutdown(logger, httpServer, metricsServer, dispatcher)
	logger.Info("Application shutdown complete")
}

func setupLogger() *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func setupSigner(cfg *config.Config, logger *slog.Logger) *crypto.Signer {
	if cfg.SnapshotKey == "" {
		return nil
	}
	return crypto.NewSigner(cfg.SnapshotKey, logger)
}

func seedDirectory(directory *memory.ApproverDirectory, cfg *config.Config, logger *slog.Logger) {
	ctx := context.Background()
	for _, approver := range cfg.Roster() {
		if err := directory.Save(ctx, approver); err != nil {
			logger.Warn("Failed to seed approver",
				slog.String("approver_id", approver.ID),
				slog.String("error", err.Error()))
		}
	}
}

func setupDispatcher(logger *slog.Logger) *service.NotificationDispatcher {
	messengerSink := &service.MockMessengerSink{}
	emailSink := &service.MockEmailSink{}

	return service.NewNotificationDispatcher(
		nil,
		emailSink,
		messengerSink,
		3,
		logger,
	)
}

func startHTTPServer(addr string, apiHandler *api.APIHandler, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()

	apiHandler.RegisterRoutes(mux)

	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"name": "%s", "status": "ok"}`, appName)
	})

	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	return server
}

func waitForShutdown(
	logger *slog.Logger,
	httpServer *http.Server,
	metricsServer *http.Server,
	dispatcher *service.NotificationDispatcher,
) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	logger.Info("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown failed", slog.String("error", err.Error()))
	}

	if err := metricsServer.Shutdown(ctx); err != nil {
		logger.Error("Metrics server shutdown failed", slog.String("error", err.Error()))
	}

	if err := dispatcher.Shutdown(ctx); err != nil {
		logger.Error("Notification dispatcher shutdown failed", slog.String("error", err.Error()))
	}
}
