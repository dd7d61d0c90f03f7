package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/dskvich/pmc-assistant/pkg/api/handler"
	"github.com/dskvich/pmc-assistant/pkg/auth"
	"github.com/dskvich/pmc-assistant/pkg/database"
	"github.com/dskvich/pmc-assistant/pkg/domain"
	"github.com/dskvich/pmc-assistant/pkg/ingest"
	"github.com/dskvich/pmc-assistant/pkg/logger"
	"github.com/dskvich/pmc-assistant/pkg/openai"
	"github.com/dskvich/pmc-assistant/pkg/pinecone"
	"github.com/dskvich/pmc-assistant/pkg/repository"
	"github.com/dskvich/pmc-assistant/pkg/services"
	"github.com/dskvich/pmc-assistant/pkg/telegram"
	"github.com/dskvich/pmc-assistant/pkg/urlmap"
	"github.com/dskvich/pmc-assistant/pkg/workers"
)

type Config struct {
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
	LogNoColor bool   `env:"LOG_NO_COLOR"`

	OpenAIToken         string        `env:"OPENAI_API_KEY,required"`
	OpenAIBaseURL       string        `env:"OPENAI_BASE_URL"`
	ChatModel           string        `env:"CHAT_MODEL" envDefault:"gpt-4o-mini"`
	AnswerTemperature   float32       `env:"ANSWER_TEMPERATURE" envDefault:"0.3"`
	DetectTemperature   float32       `env:"DETECT_TEMPERATURE" envDefault:"0.1"`
	DetectMaxTokens     int           `env:"DETECT_MAX_TOKENS" envDefault:"10"`
	EmbeddingModel      string        `env:"EMBEDDING_MODEL" envDefault:"text-embedding-3-small"`
	EmbeddingDimensions int           `env:"EMBEDDING_DIMENSIONS" envDefault:"384"`
	EmbedTimeout        time.Duration `env:"EMBED_TIMEOUT" envDefault:"10s"`
	DetectTimeout       time.Duration `env:"DETECT_TIMEOUT" envDefault:"5s"`
	GenerateTimeout     time.Duration `env:"GENERATE_TIMEOUT" envDefault:"60s"`

	PineconeAPIKey    string        `env:"PINECONE_API_KEY,required"`
	PineconeIndexHost string        `env:"PINECONE_INDEX_HOST,required"`
	PineconeNamespace string        `env:"PINECONE_NAMESPACE"`
	PineconeRetryMax  int           `env:"PINECONE_RETRY_MAX" envDefault:"2"`
	IndexTimeout      time.Duration `env:"INDEX_TIMEOUT" envDefault:"10s"`

	MappingFile      string `env:"MAPPING_FILE" envDefault:"clean_api_frontend_mappings.json"`
	BackendAPIPrefix string `env:"BACKEND_API_PREFIX" envDefault:"https://webadmin.pmc.gov.in/api/"`
	PublicSiteURL    string `env:"PUBLIC_SITE_URL" envDefault:"https://www.pmc.gov.in/en/"`

	HTTPAddr  string `env:"HTTP_ADDR" envDefault:":8000"`
	StaticDir string `env:"STATIC_DIR" envDefault:"static"`

	SessionBackend     string        `env:"SESSION_BACKEND" envDefault:"memory"`
	SessionTTL         time.Duration `env:"SESSION_TTL" envDefault:"30m"`
	SessionMaxSessions int           `env:"SESSION_MAX_SESSIONS" envDefault:"10000"`
	SessionMaxTurns    int           `env:"SESSION_MAX_TURNS" envDefault:"50"`
	RedisAddr          string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword      string        `env:"REDIS_PASSWORD"`
	RedisDB            int           `env:"REDIS_DB"`

	DiagnosticLogFile string `env:"DIAGNOSTIC_LOG_FILE"`
	PgURL             string `env:"DATABASE_URL"`

	TelegramBotToken          string  `env:"TELEGRAM_BOT_TOKEN"`
	TelegramAuthorizedUserIDs []int64 `env:"TELEGRAM_AUTHORIZED_USER_IDS" envSeparator:" "`

	IngestFetchTimeout time.Duration `env:"INGEST_FETCH_TIMEOUT" envDefault:"10s"`
}

func main() {
	slog.SetDefault(slog.New(logger.NewHandler(os.Stderr, logger.DefaultOptions)))

	if err := rootCmd().ExecuteContext(context.Background()); err != nil {
		slog.Error("Shutting down due to error", logger.Err(err))
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "pmc-assistant",
		Short:         "Question answering assistant for the Pune Municipal Corporation website",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}

	root.AddCommand(serveCmd(), ingestCmd())
	return root
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the chat API, web widget and Telegram bot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

func ingestCmd() *cobra.Command {
	var urlsFile string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Fetch content-API pages, embed them and upsert them into the index",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runIngest(cmd.Context(), urlsFile)
		},
	}
	cmd.Flags().StringVarP(&urlsFile, "urls", "u", "data/urls.txt", "file with one content-API URL per line")

	return cmd
}

func loadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("Failed to load .env file", logger.Err(err))
	}

	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parsing env config: %w", err)
	}

	slog.SetDefault(slog.New(logger.NewHandler(os.Stderr, &logger.Options{
		Level:      logger.ParseLevel(cfg.LogLevel),
		TimeFormat: logger.DefaultOptions.TimeFormat,
		ShowSource: true,
		NoColor:    cfg.LogNoColor,
	})))

	return cfg, nil
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancelFn := context.WithCancel(parent)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
		defer signal.Stop(sigCh)
		select {
		case s := <-sigCh:
			slog.Info("Shutting down due to signal", "signal", s.String())
			cancelFn()
		case <-ctx.Done():
		}
	}()

	return ctx, cancelFn
}

func runServe(parent context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancelFn := signalContext(parent)
	defer cancelFn()

	workerGroup, cleanup, err := setupWorkers(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	err = workerGroup.Start(ctx)
	slog.Info("Shutdown complete")
	return err
}

func setupWorkers(cfg Config) (workers.Group, func(), error) {
	var (
		workerGroup workers.Group
		closers     []func()
	)
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	openAIClient, err := openai.NewClient(openai.Config{
		Token:               cfg.OpenAIToken,
		BaseURL:             cfg.OpenAIBaseURL,
		ChatModel:           cfg.ChatModel,
		EmbeddingModel:      cfg.EmbeddingModel,
		EmbeddingDimensions: cfg.EmbeddingDimensions,
	})
	if err != nil {
		return nil, cleanup, fmt.Errorf("creating open ai client: %w", err)
	}

	pineconeClient, err := pinecone.NewClient(pinecone.Config{
		APIKey:    cfg.PineconeAPIKey,
		IndexHost: cfg.PineconeIndexHost,
		Namespace: cfg.PineconeNamespace,
		RetryMax:  cfg.PineconeRetryMax,
	})
	if err != nil {
		return nil, cleanup, fmt.Errorf("creating pinecone client: %w", err)
	}

	mapper := urlmap.Load(cfg.MappingFile, cfg.BackendAPIPrefix)
	slog.Info("URL mapper ready", "mappings", mapper.Len(), "frontendURLs", len(mapper.AllFrontendURLs()))

	var sessions services.SessionRepository
	switch cfg.SessionBackend {
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		closers = append(closers, func() { _ = rdb.Close() })
		sessions = repository.NewRedisSessionRepository(rdb, cfg.SessionTTL, cfg.SessionMaxTurns)
	case "memory":
		memory := repository.NewSessionRepository(cfg.SessionTTL, cfg.SessionMaxSessions, cfg.SessionMaxTurns)
		sessions = memory
		workerGroup = append(workerGroup, memory)
	default:
		return nil, cleanup, fmt.Errorf("unknown session backend %q", cfg.SessionBackend)
	}

	var sinks repository.DiagnosticFanout
	if cfg.DiagnosticLogFile != "" {
		sinks = append(sinks, repository.NewDiagnosticFile(cfg.DiagnosticLogFile))
	}
	if cfg.PgURL != "" {
		db, err := database.NewPostgres(cfg.PgURL)
		if err != nil {
			return nil, cleanup, fmt.Errorf("creating db: %w", err)
		}
		closers = append(closers, func() { _ = db.Close() })
		sinks = append(sinks, repository.NewDiagnosticRepository(db))
	}
	var diagnostics services.DiagnosticSink
	if len(sinks) > 0 {
		diagnostics = sinks
	}

	answerService := services.NewAnswerService(
		services.NewLanguageDetector(openAIClient, cfg.DetectTemperature, cfg.DetectMaxTokens, cfg.DetectTimeout),
		services.NewRetriever(openAIClient, pineconeClient, cfg.EmbedTimeout, cfg.IndexTimeout),
		openAIClient,
		mapper,
		sessions,
		diagnostics,
		services.AnswerConfig{
			Temperature:     cfg.AnswerTemperature,
			GenerateTimeout: cfg.GenerateTimeout,
		},
	)

	workerGroup = append(workerGroup, workers.NewHTTPServer(cfg.HTTPAddr, cfg.StaticDir, handler.NewChat(answerService)))

	if cfg.TelegramBotToken != "" {
		telegramClient, err := telegram.NewClient(cfg.TelegramBotToken)
		if err != nil {
			return nil, cleanup, fmt.Errorf("creating telegram client: %w", err)
		}
		closers = append(closers, telegramClient.StopUpdates)

		responseCh := make(chan domain.Response)
		workerGroup = append(workerGroup, workers.NewTelegramUpdateListener(
			telegramClient,
			auth.NewAuthenticator(cfg.TelegramAuthorizedUserIDs),
			telegram.NewHandler(answerService, responseCh),
			responseCh,
		))
	}

	return workerGroup, cleanup, nil
}

func runIngest(parent context.Context, urlsFile string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancelFn := signalContext(parent)
	defer cancelFn()

	urls, err := ingest.ReadURLs(urlsFile)
	if err != nil {
		return err
	}

	openAIClient, err := openai.NewClient(openai.Config{
		Token:               cfg.OpenAIToken,
		BaseURL:             cfg.OpenAIBaseURL,
		EmbeddingModel:      cfg.EmbeddingModel,
		EmbeddingDimensions: cfg.EmbeddingDimensions,
	})
	if err != nil {
		return fmt.Errorf("creating open ai client: %w", err)
	}

	pineconeClient, err := pinecone.NewClient(pinecone.Config{
		APIKey:    cfg.PineconeAPIKey,
		IndexHost: cfg.PineconeIndexHost,
		Namespace: cfg.PineconeNamespace,
		RetryMax:  cfg.PineconeRetryMax,
		Timeout:   cfg.IndexTimeout,
	})
	if err != nil {
		return fmt.Errorf("creating pinecone client: %w", err)
	}

	indexer := ingest.NewIndexer(
		ingest.NewFetcher(cfg.IngestFetchTimeout, 2),
		openAIClient,
		pineconeClient,
		urlmap.Load(cfg.MappingFile, cfg.BackendAPIPrefix),
		cfg.PublicSiteURL,
	)

	stats, err := indexer.Run(ctx, urls)
	if err != nil {
		return fmt.Errorf("ingesting: %w", err)
	}

	slog.Info("Ingestion summary",
		"urls", stats.URLs,
		"documents", stats.Documents,
		"links", stats.Links,
		"upserted", stats.Upserted,
		"failed", stats.Failed,
	)
	return nil
}

