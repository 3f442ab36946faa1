package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"plagiax/internal/app"
	"plagiax/internal/config"
	"plagiax/internal/server"
	"plagiax/internal/util"
	"plagiax/pkg/ai"
	"plagiax/pkg/extract"
	"plagiax/pkg/metadata"
	"plagiax/pkg/storage"
	"plagiax/pkg/store"
)

func main() {
	cfgPath := os.Getenv("PLAGIAX_CONFIG")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	sessionTTL, err := config.ParseTTL(cfg.SessionTTL)
	if err != nil {
		log.Fatalf("failed to parse session TTL: %v", err)
	}
	reportTTL, err := config.ParseTTL(cfg.ReportTTL)
	if err != nil {
		log.Fatalf("failed to parse report TTL: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	}

	var revoker store.TokenRevoker
	var reports store.ReportCache
	if redisClient != nil {
		revoker = store.NewRedisTokenRevoker(redisClient, "")
		reports = store.NewRedisReportCache(redisClient, "", reportTTL)
	} else {
		slog.Warn("redis not configured, using in-process session revocation and report cache")
		revoker = store.NewMemoryTokenRevoker()
		reports = store.NewMemoryReportCache()
	}
	sessions, err := store.NewJWTSessionStore(cfg.JWTSecret, sessionTTL, revoker)
	if err != nil {
		log.Fatalf("failed to init session store: %v", err)
	}

	var dataStore store.Store
	if cfg.DatabaseURL != "" {
		gs, err := store.NewGormStore(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("failed to init postgres store: %v", err)
		}
		dataStore = gs
	} else {
		slog.Warn("databaseURL not configured, using in-memory store")
		dataStore = store.NewMemoryStore()
	}

	var objects storage.ObjectStore
	if cfg.MinioEndpoint != "" {
		objects, err = storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			log.Fatalf("failed to init object storage: %v", err)
		}
	} else {
		slog.Warn("minio not configured, storing documents in memory")
		objects = storage.NewMemoryStore()
	}

	reporter, extractor, err := buildAI(cfg)
	if err != nil {
		log.Fatalf("failed to init AI provider: %v", err)
	}

	appCore, err := app.New(app.Config{
		Store:     dataStore,
		Sessions:  sessions,
		Reports:   reports,
		Objects:   objects,
		Extractor: extractor,
		Reporter:  reporter,
		Metadata:  metadata.NewCoreClient(cfg.CoreBaseURL, cfg.CoreAPIKey),
	})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	trustedProxies, err := util.NewTrustedProxies(cfg.TrustedProxyCIDRs)
	if err != nil {
		log.Fatalf("failed to parse trusted proxies: %v", err)
	}
	httpServer, err := server.New(server.Config{
		App:                      appCore,
		RedisAddr:                cfg.RedisAddr,
		RedisPassword:            cfg.RedisPassword,
		MaxUploadBytes:           cfg.MaxUploadBytes,
		AllowedExtensions:        cfg.AllowedExtensions,
		AllowedOrigins:           cfg.AllowedOrigins,
		TrustedProxies:           trustedProxies,
		CookieConsentName:        cfg.CookieConsent,
		SignupRateLimitPerMinute: cfg.SignupRateLimitPerMinute,
		LoginRateLimitPerMinute:  cfg.LoginRateLimitPerMinute,
		CheckRateLimitPerMinute:  cfg.CheckRateLimitPerMinute,
	})
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		logger.Error("server error", "err", err)
		os.Exit(1)
	}
}

// buildAI selects the report generator and document extractor for the
// configured provider. Providers without document input fall back to
// local parsing.
func buildAI(cfg config.FileConfig) (*ai.ReportGenerator, ai.Extractor, error) {
	switch cfg.AIProvider {
	case "gemini":
		client, err := ai.NewGeminiClient(cfg.GeminiAPIKey)
		if err != nil {
			return nil, nil, err
		}
		reporter := ai.NewReportGenerator(ai.NewGeminiGenerator(client, cfg.ReportModel))
		var extractor ai.Extractor = ai.NewLLMExtractor(ai.NewGeminiGenerator(client, cfg.ExtractModel))
		if cfg.LocalExtract {
			extractor = extract.NewLocalExtractor()
		}
		return reporter, extractor, nil
	case "openai":
		baseURL := cfg.AIBaseURL
		if baseURL == "" {
			baseURL = "https://api.openai.com/v1"
		}
		gen := ai.NewOpenAICompatGenerator(baseURL, cfg.OpenAIAPIKey, cfg.ReportModel)
		return ai.NewReportGenerator(gen), extract.NewLocalExtractor(), nil
	case "ollama":
		gen := ai.NewOllamaGenerator(cfg.AIBaseURL, cfg.ReportModel)
		return ai.NewReportGenerator(gen), extract.NewLocalExtractor(), nil
	}
	return nil, nil, fmt.Errorf("unknown aiProvider %q", cfg.AIProvider)
}
