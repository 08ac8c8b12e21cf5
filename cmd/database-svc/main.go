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

	"github.com/aurastack/aura/internal/common/config"
	"github.com/aurastack/aura/internal/connection"
	"github.com/aurastack/aura/internal/dbservice"
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
		Short: "Print the version number of database-svc",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("database-svc version %s\n", version.Get())
		},
	}

	rootCmd = &cobra.Command{
		Use:   "database-svc",
		Short: "AURA Database Service",
		Long:  `AURA Database Service manages database connections, schema introspection and query execution`,
		Run: func(cmd *cobra.Command, args []string) {
			run()
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "conf", "database-svc.yaml", "path to configuration file")
	rootCmd.AddCommand(versionCmd)
}

func run() {
	cfg, cfgPath, err := config.LoadConfig[config.DBServiceConfig](configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration from %s: %v", cfgPath, err)
	}

	zapLogger, err := logger.NewLogger(&cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting database-svc",
		zap.String("version", version.Get()),
		zap.String("config", cfgPath))

	manager := connection.NewManager(zapLogger, cfg.Query.DefaultLimit, cfg.Query.MaxLimit)
	defer manager.Close()

	srv := dbservice.NewServer(zapLogger, manager, metrics.New(cfg.Metrics))

	port := cfg.Port
	if port == 0 {
		port = 8002
	}
	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: srv.Router(cfg.CORS),
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
