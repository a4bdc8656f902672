package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v3"

	"github.com/Skufu/radiolens/internal/agents"
	"github.com/Skufu/radiolens/internal/archive"
	"github.com/Skufu/radiolens/internal/gemini"
	"github.com/Skufu/radiolens/internal/handlers"
	"github.com/Skufu/radiolens/internal/logging"
	"github.com/Skufu/radiolens/internal/pdfreport"
	"github.com/Skufu/radiolens/internal/report"
	"github.com/Skufu/radiolens/internal/search"
	"github.com/Skufu/radiolens/internal/store"
)

var logger = logging.Logger(logging.SourceApp)

var CmdServe = &cli.Command{
	Name:    "serve",
	Aliases: []string{"start"},
	Usage:   "Start the HTTP API",
	Action:  serve,
}

// textModel is what both the image endpoints and the agent pipeline need from the model.
type textModel interface {
	handlers.ImageAnalyzer
	agents.Completer
}

// closer collects cleanup functions and runs them in reverse order.
type closer []func()

func (c *closer) add(fn func()) { *c = append(*c, fn) }

func (c closer) run() {
	for i := len(c) - 1; i >= 0; i-- {
		c[i]()
	}
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	gin.SetMode(cfg.GinMode)

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.AppEnv,
			Release:          "radiolens@" + version,
			AttachStacktrace: true,
		}); err != nil {
			return fmt.Errorf("sentry init: %w", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	var cleanup closer
	defer cleanup.run()

	deps, checks, err := buildDeps(ctx, cfg, &cleanup)
	if err != nil {
		return err
	}

	api, err := handlers.New(deps)
	if err != nil {
		return err
	}

	router := setupRouter(checks, api, cfg.MaxUploadBytes, detectStaticRoot())
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       60 * time.Second,
		ErrorLog:          logging.StdLogger(logging.SourceWeb),
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	logger.Info("server listening", "port", cfg.Port, "mock_ai", cfg.MockAI)
	return waitForShutdown(server, errCh)
}

func buildDeps(ctx context.Context, cfg *Config, cleanup *closer) (handlers.Deps, map[string]HealthChecker, error) {
	checks := map[string]HealthChecker{}

	profiles := report.DefaultProfiles()
	if cfg.ProfilesFile != "" {
		loaded, err := report.LoadProfiles(cfg.ProfilesFile)
		if err != nil {
			return handlers.Deps{}, nil, fmt.Errorf("load profiles: %w", err)
		}
		profiles = loaded
	}

	model, err := newModel(ctx, cfg, profiles)
	if err != nil {
		return handlers.Deps{}, nil, err
	}

	reports, err := pdfreport.New(cfg.ReportsDir)
	if err != nil {
		return handlers.Deps{}, nil, err
	}
	logger.Info("pdf reports directory", "dir", reports.Dir())

	deps := handlers.Deps{
		Analyzer: model,
		Profiles: profiles,
		Reports:  reports,
		Version:  version,
	}

	var cache search.Store
	if cfg.RedisURL != "" {
		redisStore, err := search.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			return handlers.Deps{}, nil, fmt.Errorf("redis: %w", err)
		}
		cleanup.add(func() { _ = redisStore.Close() })
		checks["redis"] = redisStore
		cache = redisStore
	}

	withCache := func(s search.Searcher) search.Searcher {
		if cache == nil {
			return s
		}
		return search.NewCached(s, cache, cfg.SearchCacheTTL)
	}

	if cfg.TavilyAPIKey != "" {
		tavily, err := search.NewTavily(cfg.TavilyAPIKey)
		if err != nil {
			return handlers.Deps{}, nil, err
		}
		deps.Search = withCache(tavily)
	} else {
		logger.Warn("TAVILY_API_KEY not set; web search disabled")
	}

	var references search.Searcher
	if cfg.SerperAPIKey != "" {
		serper, err := search.NewSerper(cfg.SerperAPIKey)
		if err != nil {
			return handlers.Deps{}, nil, err
		}
		references = withCache(serper)
	}
	deps.Agents = agents.New(model, references)

	if cfg.EnableDB {
		pool, err := store.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return handlers.Deps{}, nil, fmt.Errorf("database connection failed: %w", err)
		}
		cleanup.add(pool.Close)
		if err := store.SyncSchema(ctx, cfg.DatabaseURL); err != nil {
			return handlers.Deps{}, nil, err
		}
		records := store.New(pool)
		checks["db"] = records
		deps.Records = records
	}

	if cfg.MongoURI != "" {
		mongo, err := archive.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return handlers.Deps{}, nil, err
		}
		cleanup.add(func() { _ = mongo.Close(context.Background()) })
		checks["mongo"] = mongo
		deps.Archive = mongo
	}

	return deps, checks, nil
}

func newModel(ctx context.Context, cfg *Config, profiles report.Profiles) (textModel, error) {
	if cfg.MockAI {
		imaging, err := profiles.Get(report.ProfileImaging)
		if err != nil {
			return nil, err
		}
		comprehensive, err := profiles.Get(report.ProfileComprehensive)
		if err != nil {
			return nil, err
		}
		logger.Warn("MOCK_AI enabled; serving canned model output")
		return gemini.NewStatic(imaging).WithProfile(imaging).WithProfile(comprehensive), nil
	}

	client, err := gemini.New(ctx, gemini.Config{
		APIKey:     cfg.GeminiAPIKey,
		Model:      cfg.GeminiModel,
		AgentModel: cfg.AgentModel,
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}

func waitForShutdown(server *http.Server, errCh <-chan error) error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-stop:
	}

	logger.Info("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		return err
	}
	return nil
}
