package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/user/toolscout-service/internal/adapter/awesome"
	"github.com/user/toolscout-service/internal/adapter/channels"
	"github.com/user/toolscout-service/internal/adapter/deepseek"
	"github.com/user/toolscout-service/internal/adapter/github"
	"github.com/user/toolscout-service/internal/adapter/npm"
	"github.com/user/toolscout-service/internal/adapter/postgres"
	"github.com/user/toolscout-service/internal/adapter/rediscache"
	"github.com/user/toolscout-service/internal/adapter/website"
	"github.com/user/toolscout-service/internal/delivery/http/handler"
	"github.com/user/toolscout-service/internal/delivery/http/router"
	"github.com/user/toolscout-service/internal/repository"
	"github.com/user/toolscout-service/internal/usecase"
	"github.com/user/toolscout-service/pkg/config"
	"github.com/user/toolscout-service/pkg/logger"
	"github.com/user/toolscout-service/pkg/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "init logger:", err)
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck

	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// PostgreSQL
	pgConnString := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresDB)
	dbpool, err := pgxpool.New(ctx, pgConnString)
	if err != nil {
		log.Fatal("connect to postgres", zap.Error(err))
	}
	defer dbpool.Close()
	log.Info("postgres connection pool established")

	// Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatal("connect to redis", zap.Error(err))
	}
	log.Info("redis connection established")

	// Repositories
	sourceRepo := postgres.NewSourceRepo(dbpool)
	jobRepo := postgres.NewCrawlJobRepo(dbpool)
	resultRepo := postgres.NewCrawlResultRepo(dbpool)
	llmJobRepo := postgres.NewLLMJobRepo(dbpool)
	ingestRepo := postgres.NewIngestRepo(dbpool)
	toolRepo := postgres.NewToolRepo(dbpool)
	cache := rediscache.NewCache(rdb)

	// Provider fetchers
	fetchers := []repository.Fetcher{
		github.NewFetcher(cfg.GitHubToken, cache, cfg.ProviderCacheTTL, log),
		npm.NewFetcher(cache, cfg.ProviderCacheTTL, log),
		awesome.NewFetcher(cache, cfg.ProviderCacheTTL, log),
		website.NewFetcher(cfg.PageLoadTimeout, cache, cfg.ProviderCacheTTL, log),
	}

	// Research channels
	collectorChannels := []repository.Channel{
		channels.NewDocsChannel(),
		channels.NewGitHubIssuesChannel(cfg.GitHubToken),
		channels.NewStackOverflowChannel(cfg.StackExchangeKey),
		channels.NewRedditChannel(),
	}

	// LLM client
	llmClient := deepseek.NewClient(cfg.LLMEndpoint, cfg.LLMAPIKey, cfg.LLMModel, cfg.LLMMaxTokens, log)

	// Use cases
	orchestrator := usecase.NewOrchestratorUseCase(sourceRepo, jobRepo, resultRepo, llmJobRepo, fetchers, log)
	decider := usecase.NewIngestUseCase(ingestRepo, toolRepo, llmJobRepo, resultRepo,
		cfg.AutoApprove, cfg.ApprovalCutoff, log)
	queue := usecase.NewQueueUseCase(llmJobRepo, resultRepo, llmClient, decider,
		cfg.LLMModel, deepseek.PromptVersion, cfg.BatchDelay, cfg.RateLimitDelay, log)
	collector := usecase.NewCollectorUseCase(collectorChannels, cfg.MaxPerChannel, cfg.CollectTimeout, log)
	researcher := usecase.NewResearchUseCase(collector, usecase.NewProcessorUseCase(cfg.ContentSimilarity), llmClient, log)
	svc := usecase.NewService(orchestrator, queue, decider, researcher)

	// HTTP server
	apiHandler := handler.NewHandler(svc, sourceRepo, jobRepo, cache, cfg.LLMBatchSize, log)
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router.New(apiHandler, log),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("starting server", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server stopped", zap.Error(err))
			stop()
		}
	}()

	go runPipeline(ctx, cfg, sourceRepo, orchestrator, queue, log)

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", zap.Error(err))
	}
}

// runPipeline crawls every enabled source on the configured interval and
// drains the enrichment queue after each sweep.
func runPipeline(
	ctx context.Context,
	cfg *config.Config,
	sources repository.SourceRepository,
	orchestrator usecase.Orchestrator,
	queue usecase.QueueProcessor,
	log *zap.Logger,
) {
	ticker := time.NewTicker(cfg.CrawlIntervalMin)
	defer ticker.Stop()

	sweep := func() {
		enabled, err := sources.ListEnabled(ctx)
		if err != nil {
			log.Error("list enabled sources failed", zap.Error(err))
			return
		}
		for _, source := range enabled {
			if ctx.Err() != nil {
				return
			}
			if _, err := orchestrator.RunCrawlJob(ctx, source.ID); err != nil {
				log.Warn("crawl sweep source failed",
					zap.String("source_id", source.ID), zap.Error(err))
			}
		}
		processed, err := queue.Drain(ctx, cfg.LLMBatchSize)
		if err != nil {
			log.Warn("queue drain failed", zap.Error(err))
		}
		log.Info("pipeline sweep finished",
			zap.Int("sources", len(enabled)), zap.Int("enriched", processed))
	}

	sweep()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweep()
		}
	}
}
