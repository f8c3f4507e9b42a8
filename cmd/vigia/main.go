package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/nocmx/vigia/internal/aggregate"
	"github.com/nocmx/vigia/internal/auth"
	"github.com/nocmx/vigia/internal/cache"
	"github.com/nocmx/vigia/internal/config"
	"github.com/nocmx/vigia/internal/cost"
	"github.com/nocmx/vigia/internal/event"
	"github.com/nocmx/vigia/internal/health"
	"github.com/nocmx/vigia/internal/narrative"
	"github.com/nocmx/vigia/internal/nms"
	"github.com/nocmx/vigia/internal/pipeline"
	"github.com/nocmx/vigia/internal/server"
	"github.com/nocmx/vigia/internal/threshold"
	"github.com/nocmx/vigia/internal/version"
	"github.com/nocmx/vigia/internal/ws"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file")
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Info())
		os.Exit(0)
	}

	// Load configuration (before logger, so log level/format can be configured).
	v, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := config.NewLogger(v)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Vigia server starting", zap.String("version", version.Short()))

	if f := v.ConfigFileUsed(); f != "" {
		logger.Info("configuration loaded",
			zap.String("component", "config"),
			zap.String("source", f),
		)
	} else {
		logger.Warn("no configuration file found, using defaults",
			zap.String("component", "config"),
		)
	}

	// Upstream backend client.
	var nmsCfg nms.Config
	if err := v.Sub("nms").Unmarshal(&nmsCfg); err != nil {
		logger.Fatal("invalid nms configuration", zap.Error(err))
	}
	backend := nms.NewClient(nmsCfg, logger.Named("nms"))
	logger.Info("backend client configured",
		zap.String("component", "nms"),
		zap.String("url", nmsCfg.URL),
	)

	// Shared services.
	bus := event.NewBus(logger.Named("event"))

	agg := aggregate.NewEngine(nil, v.GetStringMapString("aggregate.plaza_aliases"), logger.Named("aggregate"))

	var healthCfg health.Config
	if err := v.Sub("health").Unmarshal(&healthCfg); err != nil {
		logger.Fatal("invalid health configuration", zap.Error(err))
	}
	healthEngine := health.NewEngine(healthCfg)

	var thresholdCfg threshold.Config
	if err := v.Sub("threshold").Unmarshal(&thresholdCfg); err != nil {
		logger.Fatal("invalid threshold configuration", zap.Error(err))
	}
	thresholdEngine := threshold.NewEngine(thresholdCfg)

	var costCfg cost.Config
	if err := v.Sub("cost").Unmarshal(&costCfg); err != nil {
		logger.Fatal("invalid cost configuration", zap.Error(err))
	}
	costEngine := cost.NewEngine(costCfg)

	var ttl cache.TTLPolicy
	if err := v.Sub("cache").Unmarshal(&ttl); err != nil {
		logger.Fatal("invalid cache configuration", zap.Error(err))
	}
	resultCache := cache.New()

	// Narrative backend, optional.
	var summarizer narrative.Summarizer
	if v.GetBool("narrative.enabled") {
		var nCfg narrative.OllamaConfig
		if err := v.Sub("narrative").Unmarshal(&nCfg); err != nil {
			logger.Fatal("invalid narrative configuration", zap.Error(err))
		}
		primary, err := narrative.NewOllamaSummarizer(nCfg, logger.Named("narrative"))
		if err != nil {
			logger.Fatal("failed to create narrative backend", zap.Error(err))
		}
		summarizer = narrative.FallbackSummarizer{Primary: primary, Timeout: nCfg.Timeout}
		logger.Info("narrative backend enabled",
			zap.String("component", "narrative"),
			zap.String("url", nCfg.URL),
			zap.String("model", nCfg.Model),
		)
	} else {
		summarizer = narrative.TemplateSummarizer{}
		logger.Info("narrative backend disabled, using template summaries",
			zap.String("component", "narrative"),
		)
	}

	svc := pipeline.NewService(backend, agg, healthEngine, thresholdEngine, costEngine,
		resultCache, ttl, bus, summarizer, logger.Named("pipeline"))

	// Auth, optional; tokens are issued out of band.
	var authMiddleware server.Middleware
	var tokens *auth.TokenService
	if v.GetBool("auth.enabled") {
		jwtSecret := v.GetString("auth.jwt_secret")
		if jwtSecret == "" {
			// Ephemeral secret: tokens won't survive restarts.
			b := make([]byte, 32)
			if _, err := rand.Read(b); err != nil {
				logger.Fatal("failed to generate JWT secret", zap.Error(err))
			}
			jwtSecret = hex.EncodeToString(b)
			logger.Warn("no auth.jwt_secret configured; using ephemeral secret (tokens will not survive restarts)",
				zap.String("component", "auth"),
			)
		}
		accessTTL := v.GetDuration("auth.access_token_ttl")
		if accessTTL == 0 {
			accessTTL = 15 * time.Minute
		}
		tokens = auth.NewTokenService([]byte(jwtSecret), accessTTL)
		authMiddleware = auth.Middleware(tokens)
		logger.Info("auth enabled",
			zap.String("component", "auth"),
			zap.Duration("access_token_ttl", accessTTL),
		)
	}

	wsHandler := ws.NewHandler(tokens, bus, logger.Named("ws"))
	apiHandler := pipeline.NewHandler(svc, logger.Named("api"))

	var serverCfg server.Config
	if err := v.Sub("server").Unmarshal(&serverCfg); err != nil {
		logger.Fatal("invalid server configuration", zap.Error(err))
	}
	srv := server.New(serverCfg, logger.Named("server"),
		server.ReadinessChecker(svc.Ready), authMiddleware,
		apiHandler, wsHandler)

	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	logger.Info("Vigia server ready",
		zap.String("addr", fmt.Sprintf("%s:%d", serverCfg.Host, serverCfg.Port)),
	)

	// Wait for shutdown signal.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}

	logger.Info("Vigia server stopped")
}
