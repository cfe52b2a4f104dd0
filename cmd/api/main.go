package main

import (
	"context"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"

	"kbchat/internal/boundary"
	"kbchat/internal/chat"
	"kbchat/internal/config"
	"kbchat/internal/handlers"
	"kbchat/internal/http"
	"kbchat/internal/ingest"
	"kbchat/internal/latechunk"
	"kbchat/internal/lexical"
	"kbchat/internal/llm"
	"kbchat/internal/quality"
	"kbchat/internal/rerank"
	"kbchat/internal/retrieval"
	"kbchat/internal/router"
	"kbchat/internal/storage"
	"kbchat/internal/vectorstore"
)

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	// Initialize database
	db, err := storage.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := storage.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	slog.Info("Database initialized", "path", cfg.DBPath)

	documentRepo := storage.NewDocumentRepo(db)
	chunkRepo := storage.NewChunkRepo(db)

	ctx := context.Background()

	// Initialize Qdrant vector store
	vectorStore, err := vectorstore.NewQdrantStore(cfg.QdrantURL)
	if err != nil {
		log.Fatalf("Failed to create Qdrant client: %v", err)
	}
	if err := vectorStore.EnsureCollection(ctx, cfg.QdrantCollection, cfg.QdrantVectorSize); err != nil {
		log.Fatalf("Failed to ensure Qdrant collection: %v", err)
	}
	slog.Info("Qdrant collection ready", "collection", cfg.QdrantCollection, "vector_size", cfg.QdrantVectorSize)

	// Validate embedding client vector size (fail-fast)
	embedder := llm.NewEmbeddingsClient(llm.Options{
		APIKey:         cfg.LLMAPIKey,
		BaseURL:        cfg.EmbeddingBaseURL,
		EmbeddingModel: cfg.EmbeddingModelName,
		Dimension:      cfg.QdrantVectorSize,
	})
	testEmbedding, err := embedder.EmbedText(ctx, "test")
	if err != nil {
		log.Fatalf("Failed to validate embedding client: %v", err)
	}
	if len(testEmbedding) != cfg.QdrantVectorSize {
		log.Fatalf("Embedding vector size mismatch: expected %d, got %d", cfg.QdrantVectorSize, len(testEmbedding))
	}
	slog.Info("Embedding client validated", "vector_size", cfg.QdrantVectorSize)

	// Build the late-chunking engine
	qualityCfg := quality.DefaultConfig()
	qualityCfg.MinQualityScore = cfg.MinQualityScore
	engineCfg := latechunk.DefaultConfig()
	engineCfg.Pooling = cfg.PoolingStrategy
	engineCfg.MaxSegmentTokens = cfg.MaxSegmentTokens
	engineCfg.EmbedBatchSize = cfg.EmbedBatchSize
	engineCfg.Quality = qualityCfg

	engine, err := latechunk.NewEngine(embedder, boundary.NewDetector(), engineCfg)
	if err != nil {
		log.Fatalf("Failed to create chunking engine: %v", err)
	}

	// Ingestion pipeline with the in-memory lexical index
	lexicalIndex := lexical.NewIndex()
	pipeline := ingest.NewPipeline(
		documentRepo,
		chunkRepo,
		engine,
		vectorStore,
		lexicalIndex,
		cfg.QdrantCollection,
		qualityCfg,
	)

	// The lexical index lives in memory; reload it from approved chunks.
	indexed, err := pipeline.RebuildLexical(ctx)
	if err != nil {
		log.Fatalf("Failed to rebuild lexical index: %v", err)
	}
	slog.Info("Lexical index ready", "chunks", indexed)

	// Retrieval, reranking and chat
	llmClient := llm.NewClient(llm.Options{
		APIKey:  cfg.LLMAPIKey,
		BaseURL: cfg.LLMBaseURL,
		Model:   cfg.LLMModelName,
	})

	retriever := retrieval.NewHybridRetriever(
		embedder,
		lexicalIndex,
		vectorstore.NewDenseSearcher(vectorStore, cfg.QdrantCollection),
		retrieval.DefaultConfig(),
	)

	rerankCfg := rerank.DefaultConfig()
	rerankCfg.TopK = cfg.RerankTopK
	reranker := rerank.NewReranker(llmClient, rerankCfg)

	chatCfg := chat.Config{
		Router: router.Config{
			ChitchatThreshold:   cfg.ChitchatThreshold,
			OutOfScopeThreshold: cfg.OutOfScopeThreshold,
			ReverifyThreshold:   cfg.ReverifyThreshold,
			DeclineThreshold:    cfg.DeclineThreshold,
		},
		RetrieveLimit: cfg.RetrieveLimit,
	}
	chatService, err := chat.NewService(
		chat.NewLLMClassifier(llmClient),
		retriever,
		reranker,
		chat.NewGenerator(llmClient),
		chatCfg,
	)
	if err != nil {
		log.Fatalf("Failed to create chat service: %v", err)
	}
	slog.Info("Chat service initialized")

	deps := &http.Deps{
		ChatService: chatService,
		Ingestor:    pipeline,
		Reviewer:    pipeline,
		Chunks:      chunkRepo,
		Health:      handlers.NewHealthHandler(vectorStore, db, cfg.QdrantCollection),
	}
	apiRouter := http.NewRouter(deps)

	addr := ":" + cfg.APIPort
	slog.Info("Starting API server", "addr", addr)
	slog.Debug("LLM configuration", "base_url", cfg.LLMBaseURL, "model", cfg.LLMModelName)
	if err := nethttp.ListenAndServe(addr, apiRouter); err != nil {
		log.Fatalf("API server failed to start: %v", err)
	}
}
