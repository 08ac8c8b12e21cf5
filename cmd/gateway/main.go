package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aurastack/aura/internal/agent"
	"github.com/aurastack/aura/internal/auth/jwt"
	"github.com/aurastack/aura/internal/common/config"
	"github.com/aurastack/aura/internal/file"
	"github.com/aurastack/aura/internal/gateway"
	"github.com/aurastack/aura/internal/llm"
	"github.com/aurastack/aura/pkg/logger"
	"github.com/aurastack/aura/pkg/metrics"
	"github.com/aurastack/aura/pkg/version"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of gateway",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("gateway version %s\n", version.Get())
		},
	}

	rootCmd = &cobra.Command{
		Use:   "gateway",
		Short: "AURA API Gateway",
		Long:  `AURA API Gateway fronts the platform: SQL generation, agent proxying, uploads and auth`,
		Run: func(cmd *cobra.Command, args []string) {
			run()
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "conf", "gateway.yaml", "path to configuration file")
	rootCmd.AddCommand(versionCmd)
}

func run() {
	cfg, cfgPath, err := config.LoadConfig[config.GatewayConfig](configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration from %s: %v", cfgPath, err)
	}

	zapLogger, err := logger.NewLogger(&cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting gateway",
		zap.String("version", version.Get()),
		zap.String("config", cfgPath))

	client := llm.NewClient(&cfg.OpenAI)
	orchestrator := agent.NewOrchestrator(zapLogger,
		agent.NewGenerator(zapLogger, client),
		agent.NewCritic(zapLogger, client))

	files, err := file.NewService(zapLogger, cfg.Upload.Dir, cfg.Upload.MaxSizeMB)
	if err != nil {
		zapLogger.Fatal("Failed to initialize file service", zap.Error(err))
	}

	var jwtService *jwt.Service
	if cfg.JWT.SecretKey != "" {
		jwtService, err = jwt.NewService(cfg.JWT.SecretKey, cfg.JWT.Duration)
		if err != nil {
			zapLogger.Fatal("Failed to initialize JWT service", zap.Error(err))
		}
		zapLogger.Info("JWT auth enabled")
	}

	srv := gateway.NewServer(zapLogger, cfg, orchestrator, files, jwtService, metrics.New(cfg.Metrics))

	port := cfg.Port
	if port == 0 {
		port = 8000
	}
	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: srv.Router(),
	}

	go func() {
		zapLogger.Info("Server is running", zap.Int("port", port))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		zapLogger.Error("failed to shutdown server", zap.Error(err))
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
