package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/sorenhq/llmgate/cmd"
	"github.com/sorenhq/llmgate/internal/cli"
	"github.com/sorenhq/llmgate/internal/config"
	"github.com/sorenhq/llmgate/internal/core/domain"
	"github.com/sorenhq/llmgate/internal/gateway"
	"github.com/sorenhq/llmgate/internal/platform/logger"
	"github.com/sorenhq/llmgate/internal/platform/otel"
	"github.com/sorenhq/llmgate/internal/server"
	"github.com/sorenhq/llmgate/internal/store/cache"
	"github.com/sorenhq/llmgate/internal/store/sqlite"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logCfg := logger.DefaultConfig()
	if cfg.Log.Level != "" {
		logCfg.Level = cfg.Log.Level
	}
	if cfg.Log.Format != "" {
		logCfg.Format = cfg.Log.Format
	}
	logger.Initialize(logCfg)
	defer logger.Sync()

	go cmd.CheckForUpdates()

	ctx := context.Background()

	if cfg.Tracing.Enabled {
		shutdown, err := otel.InitTracer("llmgate", logger.Get(), os.Stdout)
		if err != nil {
			logger.Fatal("failed to initialize tracing", zap.Error(err))
		}
		defer func() {
			_ = shutdown(ctx)
		}()
	}

	repo, err := sqlite.NewSettingsStorage(cfg.Database.DSN)
	if err != nil {
		logger.Fatal("failed to open settings store", zap.Error(err))
	}
	defer func() {
		_ = repo.Close()
	}()

	var cacheSvc cache.CacheService = cache.NewMemoryCache()
	if cfg.Redis.Enabled {
		cacheSvc = cache.NewRedisCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	}

	gw := gateway.New(repo, cacheSvc, func(svc gateway.Service, settings domain.GatewaySettings) http.Handler {
		return server.New(cfg, logger.Get(), svc, settings).Handler()
	})

	if err := gw.Start(ctx); err != nil {
		var cfgErr *domain.ConfigError
		if errors.As(err, &cfgErr) {
			fmt.Printf("%s %s\n", cli.CrossMark(), cfgErr.Reason)
			fmt.Printf("%s enable the gateway first: go run ./cmd/seed -enable\n", cli.Arrow())
			os.Exit(1)
		}
		logger.Fatal("failed to start gateway", zap.Error(err))
	}

	printBanner(gw)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := gw.Stop(shutdownCtx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
}

func printBanner(gw *gateway.Gateway) {
	st := gw.Status()
	fmt.Printf("\n%s %s listening on %s\n",
		cli.CheckMark(),
		cli.Style("llmgate "+cmd.AppVersion, cli.Bold),
		cli.Style(fmt.Sprintf("127.0.0.1:%d", st.Port), cli.Cyan))

	env, err := gw.EnvVars()
	if err != nil {
		return
	}
	fmt.Println("point your client at the gateway:")
	for _, key := range []string{"ANTHROPIC_BASE_URL", "ANTHROPIC_API_KEY", "ANTHROPIC_AUTH_TOKEN", "LLM_GATEWAY_PROVIDER"} {
		fmt.Printf("  %s export %s=%q\n", cli.Arrow(), key, env[key])
	}
	fmt.Println()
}
