package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/readmate/readmate/internal/ai"
	"github.com/readmate/readmate/internal/config"
	"github.com/readmate/readmate/internal/contentstore"
	"github.com/readmate/readmate/internal/db"
	"github.com/readmate/readmate/internal/embedcache"
	"github.com/readmate/readmate/internal/handler"
	"github.com/readmate/readmate/internal/job"
	"github.com/readmate/readmate/internal/middleware"
	"github.com/readmate/readmate/internal/pkg/jwt"
	"github.com/readmate/readmate/internal/pkg/logutil"
	"github.com/readmate/readmate/internal/rag"
	"github.com/readmate/readmate/internal/repo"
	"github.com/readmate/readmate/internal/schedule"
	"github.com/readmate/readmate/internal/service"
	"github.com/readmate/readmate/internal/vectorstore"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "readmate",
		Short: "readmate textbook backend",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run the readmate server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, conn, err := setup(configPath)
			if err != nil {
				return err
			}
			defer conn.Close()
			return runServer(cfg, conn)
		},
	}
	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")

	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "sync chapters from the content store and rebuild the index, then exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, conn, err := setup(configPath)
			if err != nil {
				return err
			}
			defer conn.Close()
			app, err := buildApp(cfg, conn)
			if err != nil {
				return err
			}
			return app.content.Sync(context.Background())
		},
	}
	syncCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")

	var tokenSubject string
	var tokenTTLHours int
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "issue an admin token for the maintenance endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			token, err := jwt.GenerateToken(tokenSubject, middleware.RoleAdmin,
				[]byte(cfg.JWTSecret), time.Duration(tokenTTLHours)*time.Hour)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
	tokenCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "ops", "token subject")
	tokenCmd.Flags().IntVar(&tokenTTLHours, "ttl-hours", 24, "token lifetime in hours")

	rootCmd.AddCommand(runCmd, syncCmd, tokenCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func setup(configPath string) (*config.Config, *sql.DB, error) {
	if configPath == "" {
		return nil, nil, fmt.Errorf("--config is required")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if err := logutil.Init(cfg.Log.Level, cfg.Log.Console); err != nil {
		return nil, nil, err
	}
	logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))

	conn, err := db.Open(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.ApplyMigrations(conn); err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("migrations: %w", err)
	}
	return cfg, conn, nil
}

type app struct {
	content  *service.ContentService
	sessions *service.SessionService
	query    *service.QueryService
	indexer  *service.IndexService
	caches   *repo.EmbeddingCacheRepo
}

func buildApp(cfg *config.Config, conn *sql.DB) (*app, error) {
	chapterRepo := repo.NewChapterRepo(conn)
	sessionRepo := repo.NewSessionRepo(conn)
	cacheRepo := repo.NewEmbeddingCacheRepo(conn)

	var generators []ai.GeneratorEntry
	var embedders []ai.EmbedderEntry
	for _, pc := range cfg.AI.Providers {
		provider, err := ai.NewProvider(pc.Provider, pc.Data)
		if err != nil {
			return nil, fmt.Errorf("init ai provider %s: %w", pc.Provider, err)
		}
		generators = append(generators, ai.GeneratorEntry{
			Name:      pc.Provider,
			Generator: ai.NewGenerator(provider, cfg.AI.GenModel),
		})
		embedders = append(embedders, ai.EmbedderEntry{
			Name:     pc.Provider,
			Embedder: ai.NewEmbedder(provider, cfg.AI.EmbedModel),
		})
	}
	generator := ai.NewGroupGenerator(generators)
	embedder := ai.NewGroupEmbedder(embedders)

	// LRU in front of the DB cache: hot texts never leave memory, warm
	// ones survive restarts.
	embedder = embedcache.WrapDB(embedder, cacheRepo)
	embedder = embedcache.WrapLRU(embedder, cfg.EmbedCache.LRUSize,
		time.Duration(cfg.EmbedCache.LRUTTLMinutes)*time.Minute)

	store := vectorstore.NewPgvectorStore(conn)

	chunker, err := rag.NewChunker(cfg.Chunking.ChunkSize, cfg.Chunking.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	embedTimeout := time.Duration(cfg.Timeouts.EmbeddingMs) * time.Millisecond
	searchTimeout := time.Duration(cfg.Timeouts.SearchMs) * time.Millisecond
	genTimeout := time.Duration(cfg.Timeouts.GenerationMs) * time.Millisecond

	retriever := rag.NewRetriever(embedder, store, rag.RetrieverConfig{
		DefaultK:      cfg.Retrieval.DefaultK,
		MaxK:          cfg.Retrieval.MaxK,
		EmbedTimeout:  embedTimeout,
		SearchTimeout: searchTimeout,
	})
	validator := rag.NewValidator(rag.ValidatorConfig{
		MinRelevance: cfg.Retrieval.MinRelevance,
		Margin:       cfg.Retrieval.Margin,
	})
	composer := rag.NewComposer(generator, genTimeout)
	limiter := rag.NewLimiter(cfg.Generation.MaxConcurrent, cfg.Generation.MaxQueue)

	indexService := service.NewIndexService(chunker, embedder, store, embedTimeout)
	sessionService := service.NewSessionService(sessionRepo)
	queryService := service.NewQueryService(retriever, validator, composer, limiter, sessionService)
	translationService := service.NewTranslationService(generator, genTimeout)
	personalService := service.NewPersonalizationService()

	contentStore, err := contentstore.New(cfg.Content)
	if err != nil {
		return nil, fmt.Errorf("init content store: %w", err)
	}
	contentService := service.NewContentService(contentStore, chapterRepo, indexService, translationService, personalService)

	return &app{
		content:  contentService,
		sessions: sessionService,
		query:    queryService,
		indexer:  indexService,
		caches:   cacheRepo,
	}, nil
}

func runServer(cfg *config.Config, conn *sql.DB) error {
	logutil.GetLogger(context.Background()).Info("starting server",
		zap.Int("port", cfg.Port),
		zap.String("content_store", cfg.Content.Type),
	)

	app, err := buildApp(cfg, conn)
	if err != nil {
		return err
	}

	deps := handler.RouterDeps{
		Textbook:     handler.NewTextbookHandler(app.content, app.sessions),
		Sessions:     handler.NewSessionHandler(app.sessions),
		AI:           handler.NewAIHandler(app.query),
		Admin:        handler.NewAdminHandler(app.content, app.indexer),
		JWTSecret:    []byte(cfg.JWTSecret),
		AIRateWindow: time.Second,
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestID())
	engine.Use(middleware.CORS(cfg.CORSOrigins))
	engine.Use(gzip.Gzip(gzip.DefaultCompression))
	handler.RegisterRoutes(engine.Group("/api/v1"), deps)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := schedule.NewCronScheduler()
	if err := scheduler.AddJob(job.NewContentSyncJob(app.content), cfg.Schedules.ContentSync); err != nil {
		return err
	}
	if err := scheduler.AddJob(job.NewSessionCleanupJob(app.sessions, 24*time.Hour), cfg.Schedules.SessionCleanup); err != nil {
		return err
	}
	if err := scheduler.AddJob(job.NewEmbeddingCacheCleanupJob(app.caches, cfg.EmbedCache.DBKeepDays), cfg.Schedules.CacheCleanup); err != nil {
		return err
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	// Initial sync so a fresh deployment serves content without waiting
	// for the first scheduled run.
	go func() {
		if err := app.content.Sync(ctx); err != nil {
			logutil.GetLogger(ctx).Error("initial content sync failed", zap.Error(err))
		}
	}()

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	server := &http.Server{Addr: addr, Handler: engine}
	go func() {
		logutil.GetLogger(ctx).Info("http server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
