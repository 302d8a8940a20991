package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/docuchat/api/internal/config"
	"github.com/docuchat/api/internal/database"
	"github.com/docuchat/api/internal/document"
	"github.com/docuchat/api/internal/embedding"
	"github.com/docuchat/api/internal/llm"
	"github.com/docuchat/api/internal/queue"
	"github.com/docuchat/api/internal/queue/workers"
	"github.com/docuchat/api/internal/rag"
	"github.com/docuchat/api/internal/storage"
	"github.com/docuchat/api/internal/vectorstore"
	"github.com/docuchat/api/pkg/chunker"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	db, err := database.NewPool(ctx, cfg.Database)
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	var fallback llm.Provider
	if cfg.OpenAI.AnthropicKey != "" {
		fallback = llm.NewAnthropicProvider(cfg.OpenAI.AnthropicKey)
	}
	gw := llm.NewGateway(llm.NewOpenAIProvider(cfg.OpenAI.APIKey), fallback, cfg.OpenAI.MaxRetries)

	embedSvc := embedding.NewService(gw, cfg.OpenAI.EmbedModel, cfg.Search.EmbeddingDim, cfg.OpenAI.RateLimitRPM)
	vs := vectorstore.NewPgVectorStore(db)
	retriever := rag.NewRetriever(vs, embedSvc, nil)
	generator := rag.NewGenerator(gw, cfg.OpenAI.ChatModel)
	pipeline := rag.NewPipeline(vs, embedSvc, retriever, generator, rag.PipelineConfig{
		TopK:     cfg.Search.MaxResults,
		MinScore: cfg.Search.SimilarityThreshold,
	})

	store := storage.NewSupabaseStorage(cfg.Storage.SupabaseURL, cfg.Storage.SupabaseKey)
	queueClient := queue.NewClient(cfg.Redis)
	defer queueClient.Close()

	docSvc := document.NewService(db, store, queueClient, cfg.Storage.DocumentBucket, cfg.Ingest.MaxFileSizeBytes)

	ingestWorker := workers.NewIngestWorker(docSvc, store, pipeline, cfg.Storage.DocumentBucket, chunker.ChunkOptions{
		ChunkSize:    cfg.Ingest.ChunkSize,
		ChunkOverlap: cfg.Ingest.ChunkOverlap,
		Strategy:     "recursive",
	})

	registry := queue.NewHandlersRegistry()
	registry.Register(queue.TypeDocumentProcess, asynq.HandlerFunc(ingestWorker.ProcessTask))

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	slog.Info("starting worker", "concurrency", 10)
	if err := srv.Run(registry.Mux()); err != nil {
		slog.Error("worker error", "error", err)
		os.Exit(1)
	}
}
