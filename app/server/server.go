package server

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"ragserver/app/agent"
	"ragserver/app/api"
	"ragserver/app/service"
	"ragserver/model"
	"ragserver/store"
	"ragserver/types"
)

var config = fiber.Config{
	ErrorHandler: api.ErrorHandler,
}

type Server struct {
	cfg    types.Config
	logger *zap.SugaredLogger
	app    *fiber.App
	svc    *service.RAGService
}

func NewServer(cfg types.Config, logger *zap.SugaredLogger) *Server {
	return &Server{
		cfg:    cfg,
		logger: logger,
	}
}

func (s *Server) Run() {
	ctx := context.Background()

	vector, err := buildVectorStore(ctx, s.cfg)
	if err != nil {
		s.logger.Fatalw("failed to build vector store", "backend", s.cfg.VectorBackend, "error", err)
	}
	ledger, err := buildLedger(ctx, s.cfg)
	if err != nil {
		s.logger.Fatalw("failed to build chat ledger", "backend", s.cfg.LedgerBackend, "error", err)
	}

	embedder := model.NewHTTPEmbedder(s.cfg.EmbeddingURL, s.cfg.EmbedBatch)
	generator := agent.NewLLMAgent(s.cfg.LLMURL, s.cfg.LLMModel, s.cfg.LLMAPIKey, s.logger)
	s.svc = service.NewRAGService(vector, ledger, embedder, generator, s.cfg, s.logger)

	s.app = fiber.New(config)

	var (
		checkHandler = api.NewCheckHandler()
		ragHandler   = api.NewRAGHandler(s.svc)
		check        = s.app.Group("/check")
		apiv1        = s.app.Group("/api/v1")
	)

	check.Get("/healthy", checkHandler.HandleHealthy)
	apiv1.Post("/upload", ragHandler.HandleUpload)
	apiv1.Post("/query", ragHandler.HandleQuery)
	apiv1.Get("/query-result/:id", ragHandler.HandleQueryResult)
	apiv1.Get("/files", ragHandler.HandleListFiles)
	apiv1.Delete("/files/:fileId", ragHandler.HandleDeleteFile)
	apiv1.Get("/new-session", ragHandler.HandleNewSession)
	apiv1.Get("/all-chats", ragHandler.HandleAllChats)

	s.logger.Infow("server starting", "addr", s.cfg.ListenAddr,
		"vector_backend", s.cfg.VectorBackend, "ledger_backend", s.cfg.LedgerBackend)
	if err := s.app.Listen(s.cfg.ListenAddr); err != nil {
		s.logger.Errorw("error to start server", "error", err)
	}
}

func (s *Server) Stop() {
	if s.app != nil {
		_ = s.app.Shutdown()
	}
	if s.svc != nil {
		s.svc.Close()
	}
	s.logger.Info("server stopped")
}

func buildVectorStore(ctx context.Context, cfg types.Config) (store.VectorStorer, error) {
	if cfg.VectorBackend == "postgres" {
		return store.NewPostgresVectorStore(ctx, cfg.PostgresDSN, cfg.EmbeddingDim)
	}
	return store.NewMemoryVectorStore(cfg.EmbeddingDim), nil
}

func buildLedger(ctx context.Context, cfg types.Config) (store.ChatLedger, error) {
	switch cfg.LedgerBackend {
	case "postgres":
		return store.NewPostgresLedger(ctx, cfg.PostgresDSN)
	case "redis":
		return store.NewRedisLedger(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	default:
		return store.NewMemoryLedger(), nil
	}
}
