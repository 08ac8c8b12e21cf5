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
	"github.com/aurastack/aura/internal/common/config"
	"github.com/aurastack/aura/internal/connection"
	ctxstore "github.com/aurastack/aura/internal/context"
	"github.com/aurastack/aura/internal/llm"
	"github.com/aurastack/aura/internal/mcpserver"
	"github.com/aurastack/aura/internal/protocol"
	"github.com/aurastack/aura/internal/tool"
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
		Short: "Print the version number of mcp-server",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("mcp-server version %s\n", version.Get())
		},
	}

	rootCmd = &cobra.Command{
		Use:   "mcp-server",
		Short: "AURA MCP Server",
		Long:  `AURA MCP Server provides shared context, protocol message routing and agent tooling`,
		Run: func(cmd *cobra.Command, args []string) {
			run()
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "conf", "mcp-server.yaml", "path to configuration file")
	rootCmd.AddCommand(versionCmd)
}

func run() {
	cfg, cfgPath, err := config.LoadConfig[config.MCPServerConfig](configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration from %s: %v", cfgPath, err)
	}

	zapLogger, err := logger.NewLogger(&cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting mcp-server",
		zap.String("version", version.Get()),
		zap.String("config", cfgPath))

	store, err := ctxstore.NewStore(zapLogger, &cfg.Store)
	if err != nil {
		zapLogger.Fatal("Failed to initialize context store", zap.Error(err))
	}
	defer store.Close()

	manager := connection.NewManager(zapLogger, 0, 0)
	defer manager.Close()

	var generateSQL tool.SQLGenerateFunc
	if cfg.OpenAI.APIKey != "" {
		generator := agent.NewGenerator(zapLogger, llm.NewClient(&cfg.OpenAI))
		generateSQL = func(ctx context.Context, prompt, dbContext string) (string, error) {
			return generator.Generate(ctx, prompt, dbContext, "")
		}
	}

	registry := tool.NewRegistry(zapLogger)
	tool.RegisterBuiltinTools(registry, manager, generateSQL)

	agents := agent.NewRegistry()
	agents.Register(agent.NewDatabaseAgent(zapLogger, registry, ""))

	srv := mcpserver.NewServer(
		zapLogger,
		store,
		registry,
		agents,
		protocol.NewHandler(zapLogger, store, registry),
		metrics.New(cfg.Metrics),
	)

	port := cfg.Port
	if port == 0 {
		port = 8007
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
