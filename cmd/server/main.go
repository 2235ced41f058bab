package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"document-chat/internal/auth"
	"document-chat/internal/config"
	"document-chat/internal/conversation"
	"document-chat/internal/db"
	"document-chat/internal/embedding"
	"document-chat/internal/helper"
	"document-chat/internal/ingest"
	"document-chat/internal/llmservice"
	"document-chat/internal/rag"
	"document-chat/internal/server"
	"document-chat/internal/vectorstore"
)

const configFilePath = "./configs/config.yaml"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	configPath := flag.String("config", configFilePath, "Path to the config file")
	printConfig := flag.Bool("print-config", false, "Print the loaded config and exit")
	flag.Parse()

	// .env is optional; real secrets may come from the environment.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}

	if *printConfig {
		helper.PrettyPrint(cfg)
		return
	}

	if err := os.MkdirAll(cfg.Upload.TempDir, 0o755); err != nil {
		log.Fatal().Err(err).Msg("Error creating temp dir")
	}

	ctx := context.Background()

	dbClient, err := db.ConnectDB(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Error connecting to database")
	}
	bunDB := db.NewDB(dbClient, cfg.Database.Debug)
	defer bunDB.Close()

	conversations := conversation.NewStore(bunDB)
	if err := conversations.CreateSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("Error initializing conversation schema")
	}

	authService := auth.NewService(bunDB, &cfg.Auth)
	if err := authService.CreateSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("Error initializing auth schema")
	}

	index, err := vectorstore.NewChromemIndex(cfg.VectorDB.Path, cfg.VectorDB.Collection, cfg.VectorDB.InMemory)
	if err != nil {
		log.Fatal().Err(err).Msg("Error creating vector index")
	}

	embedder, err := embedding.New(&cfg.EmbedLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}

	generator, err := llmservice.NewClient(&cfg.InferLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing LLM client")
	}

	pipeline := ingest.NewPipeline(index, embedder, ingest.Options{
		ChunkSize:    cfg.RAG.ChunkSize,
		ChunkOverlap: cfg.RAG.ChunkOverlap,
		MaxFileSize:  int64(cfg.Upload.MaxFileSizeMB) << 20,
	})

	engine := rag.NewEngine(index, embedder, generator, conversations)

	handler := server.NewHandler(pipeline, engine, conversations, authService, cfg.Upload.TempDir, cfg.RAG.DefaultTopK)
	router := server.NewRouter(handler, authService)

	log.Info().Str("addr", cfg.Server.Addr).Msg("Starting server")
	if err := router.Run(cfg.Server.Addr); err != nil {
		log.Fatal().Err(err).Msg("Server stopped")
	}
}
