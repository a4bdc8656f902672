package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"time"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/Skufu/radiolens/internal/handlers"
)

type HealthChecker interface {
	Ping(ctx context.Context) error
}

func setupRouter(checks map[string]HealthChecker, api *handlers.Handler, maxBody int64, staticRoot string) *gin.Engine {
	router := gin.New()
	router.Use(
		handlers.RequestLogger(),
		gin.Recovery(),
		sentrygin.New(sentrygin.Options{Repanic: true}),
		handlers.LimitBodySize(maxBody),
		cors.New(cors.Config{
			AllowOrigins: []string{"*"},
			AllowMethods: []string{"GET", "POST", "OPTIONS"},
			AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
			MaxAge:       12 * time.Hour,
		}),
	)

	// Serve a built frontend when one is present.
	if staticRoot != "" {
		router.Static("/static", staticRoot)
		router.StaticFile("/", filepath.Join(staticRoot, "index.html"))
	}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/readyz", func(c *gin.Context) {
		if len(checks) == 0 {
			c.JSON(http.StatusOK, gin.H{"status": "ok", "db": "disabled"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		names := make([]string, 0, len(checks))
		for name := range checks {
			names = append(names, name)
		}
		sort.Strings(names)

		body := gin.H{"status": "ok"}
		status := http.StatusOK
		for _, name := range names {
			if err := checks[name].Ping(ctx); err != nil {
				body[name] = fmt.Sprintf("unhealthy: %v", err)
				body["status"] = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			body[name] = "ok"
		}

		c.JSON(status, body)
	})

	if api != nil {
		api.Register(router)
	}

	return router
}

// detectStaticRoot looks for a frontend build (a directory holding index.html) near the working directory.
func detectStaticRoot() string {
	startDir, err := os.Getwd()
	if err != nil {
		return ""
	}

	candidates := []string{
		filepath.Join(startDir, "web", "dist"),
		filepath.Join(startDir, "dist"),
		filepath.Join(filepath.Dir(startDir), "web", "dist"),
	}

	for _, dir := range candidates {
		if fileExists(filepath.Join(dir, "index.html")) {
			return dir
		}
	}

	return ""
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
