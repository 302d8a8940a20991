// Package api wires the HTTP surface: routing, middleware, and the service
// graph behind the handlers.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/docuchat/api/internal/api/handlers"
	"github.com/docuchat/api/internal/api/middleware"
	"github.com/docuchat/api/internal/auth"
	"github.com/docuchat/api/internal/cache"
	"github.com/docuchat/api/internal/chat"
	"github.com/docuchat/api/internal/config"
	"github.com/docuchat/api/internal/document"
	"github.com/docuchat/api/internal/embedding"
	"github.com/docuchat/api/internal/llm"
	"github.com/docuchat/api/internal/metrics"
	"github.com/docuchat/api/internal/queue"
	"github.com/docuchat/api/internal/rag"
	"github.com/docuchat/api/internal/storage"
	"github.com/docuchat/api/internal/template"
	"github.com/docuchat/api/internal/vectorstore"
)

type Router struct {
	mux   *chi.Mux
	db    *pgxpool.Pool
	redis *redis.Client
	cfg   *config.Config
	jwt   *auth.JWTMiddleware
}

func NewRouter(db *pgxpool.Pool, rdb *redis.Client, cfg *config.Config) *Router {
	return &Router{
		mux:   chi.NewRouter(),
		db:    db,
		redis: rdb,
		cfg:   cfg,
		jwt:   auth.NewJWTMiddleware(cfg.Auth.JWTSecret),
	}
}

func (rt *Router) Setup() http.Handler {
	r := rt.mux
	cfg := rt.cfg

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           3600,
	}))
	r.Use(metrics.Middleware())

	rl := middleware.NewRateLimiter(float64(cfg.Server.RateLimitRPM)/60.0, cfg.Server.RateLimitRPM)
	r.Use(rl.Limit)

	// Service graph
	var fallback llm.Provider
	if cfg.OpenAI.AnthropicKey != "" {
		fallback = llm.NewAnthropicProvider(cfg.OpenAI.AnthropicKey)
	}
	gw := llm.NewGateway(llm.NewOpenAIProvider(cfg.OpenAI.APIKey), fallback, cfg.OpenAI.MaxRetries)

	embedSvc := embedding.NewService(gw, cfg.OpenAI.EmbedModel, cfg.Search.EmbeddingDim, cfg.OpenAI.RateLimitRPM)
	embedCache := cache.NewEmbeddingCache(cache.NewCache(rt.redis), cfg.OpenAI.EmbedModel)

	vs := vectorstore.NewPgVectorStore(rt.db)
	retriever := rag.NewRetriever(vs, embedSvc, embedCache)
	generator := rag.NewGenerator(gw, cfg.OpenAI.ChatModel)
	pipeline := rag.NewPipeline(vs, embedSvc, retriever, generator, rag.PipelineConfig{
		TopK:     cfg.Search.MaxResults,
		MinScore: cfg.Search.SimilarityThreshold,
	})

	store := storage.NewSupabaseStorage(cfg.Storage.SupabaseURL, cfg.Storage.SupabaseKey)
	queueClient := queue.NewClient(cfg.Redis)
	docSvc := document.NewService(rt.db, store, queueClient, cfg.Storage.DocumentBucket, cfg.Ingest.MaxFileSizeBytes)
	tmplSvc := template.NewService(rt.db, store, cfg.Storage.TemplateBucket)
	chatSvc := chat.NewService(pipeline, tmplSvc, gw, cfg.OpenAI.ChatModel)
	authSvc := auth.NewService(rt.db, cfg.Auth.JWTSecret, cfg.Auth.TokenExpiryMinutes)

	// Public endpoints
	health := handlers.NewHealthHandler(rt.db, rt.redis)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)
	r.Handle("/metrics", promhttp.Handler())

	authH := handlers.NewAuthHandler(authSvc)
	r.Route("/auth", func(r chi.Router) {
		r.Post("/token", authH.Token)
		r.Post("/register", authH.Register)
	})

	// Authenticated endpoints
	docH := handlers.NewDocumentHandler(docSvc, cfg.Ingest.MaxFileSizeBytes)
	chatH := handlers.NewChatHandler(chatSvc)
	tmplH := handlers.NewTemplateHandler(tmplSvc, cfg.Ingest.MaxFileSizeBytes)

	r.Group(func(r chi.Router) {
		r.Use(rt.jwt.Authenticate)

		r.Route("/files", func(r chi.Router) {
			r.Post("/upload", docH.Upload)
			r.Get("/", docH.List)
			r.Get("/{id}", docH.Status)
			r.Delete("/{id}", docH.Delete)
		})

		r.Route("/chat", func(r chi.Router) {
			r.Post("/query", chatH.Query)
			r.Post("/template", chatH.TemplateChat)
		})

		r.Route("/templates", func(r chi.Router) {
			r.Post("/upload", tmplH.Upload)
			r.Get("/", tmplH.List)
			r.Get("/{id}", tmplH.Get)
			r.Post("/{id}/process", tmplH.Process)
			r.Delete("/{id}", tmplH.Delete)
		})
	})

	return r
}
