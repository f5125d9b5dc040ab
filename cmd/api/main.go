package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/josinaldojr/chat-gateway-rag/internal/cache"
	"github.com/josinaldojr/chat-gateway-rag/internal/chat"
	"github.com/josinaldojr/chat-gateway-rag/internal/config"
	"github.com/josinaldojr/chat-gateway-rag/internal/db"
	apphttp "github.com/josinaldojr/chat-gateway-rag/internal/http"
	"github.com/josinaldojr/chat-gateway-rag/internal/llm"
	"github.com/josinaldojr/chat-gateway-rag/internal/logger"
	"github.com/josinaldojr/chat-gateway-rag/internal/metrics"
	"github.com/josinaldojr/chat-gateway-rag/internal/profile"
	"github.com/josinaldojr/chat-gateway-rag/internal/rag"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	defer func() { _ = log.Sync() }()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("failed to init database", zap.Error(err))
	}
	defer pool.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	var profiles profile.Store
	switch cfg.ProfileSource {
	case config.ProfileSourcePostgres:
		profiles = profile.NewPgStore(pool)
	case config.ProfileSourceEnv:
		profiles = profile.NewStaticStore(cfg.Profile)
	default:
		log.Fatal("unknown PROFILE_SOURCE", zap.String("value", cfg.ProfileSource))
	}

	// no client timeout: streamed completions run as long as the caller stays
	httpClient := &http.Client{}

	registry := llm.DefaultRegistry(llm.Options{
		HTTPClient:       httpClient,
		OpenAIBaseURL:    cfg.OpenAIBaseURL,
		AnthropicBaseURL: cfg.AnthropicBaseURL,
		AzureAPIVersion:  cfg.AzureAPIVersion,
	})
	openaiAdapter, _ := registry.Lookup(llm.ProviderOpenAI)
	azureAdapter, _ := registry.Lookup(llm.ProviderAzure)

	resolver := rag.NewResolver(openaiAdapter, azureAdapter, llm.NewOllamaEmbedder(httpClient, cfg.OllamaURL, cfg.OllamaEmbedModel))
	switch cfg.EmbedCache {
	case config.EmbedCacheMemory:
		resolver.WithCache(cache.NewMemoryCache(), cfg.EmbedCacheTTL, log.Named("cache"))
	case config.EmbedCacheRedis:
		rdb, err := cache.NewRedisClient(cfg.RedisURL)
		if err != nil {
			log.Fatal("invalid REDIS_URL", zap.Error(err))
		}
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal("failed to reach redis", zap.Error(err))
		}
		resolver.WithCache(cache.NewRedisCache(rdb), cfg.EmbedCacheTTL, log.Named("cache"))
	}

	retrieval := rag.NewService(resolver, rag.NewPgRepository(pool), log.Named("rag"))
	gateway := chat.NewGateway(registry, m, log.Named("chat"))

	h := apphttp.NewHandler(gateway, retrieval, openaiAdapter.(*llm.OpenAIAdapter), profiles, m, log.Named("http"))
	router := apphttp.NewRouter(h, apphttp.RouterOptions{CORSOrigins: cfg.CORSOrigins, Gatherer: reg})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("API listening",
		zap.String("addr", srv.Addr),
		zap.String("profile_source", cfg.ProfileSource),
		zap.String("embed_cache", cfg.EmbedCache),
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("server failed", zap.Error(err))
	}
}
