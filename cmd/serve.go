package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	_ "github.com/epeers/marketetl/docs"
	"github.com/epeers/marketetl/internal/handlers"
	"github.com/epeers/marketetl/internal/middleware"
	"github.com/epeers/marketetl/internal/scheduler"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// runTimeout bounds one scheduled or admin-triggered pipeline run
const runTimeout = 2 * time.Hour

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the read API",
	Long: `Serves summaries and indicator series over HTTP, the token-protected admin
endpoints, Prometheus metrics and the Swagger UI. When ETL_SCHEDULE is set the
pipeline also runs on that cron schedule (New York time).`,
	RunE: runServe,
}

func newRouter(a *app, adminToken string) *gin.Engine {
	summaryHandler := handlers.NewSummaryHandler(a.summaries, a.cache)
	indicatorHandler := handlers.NewIndicatorHandler(a.indicators, a.companies, a.cache)
	adminHandler := handlers.NewAdminHandler(a.pipeline, runTimeout)

	router := gin.Default()

	router.GET("/health", func(c *gin.Context) {
		if err := a.db.Pool.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/summaries", summaryHandler.List)
	router.GET("/summaries/:ticker", summaryHandler.Get)
	router.GET("/indicators/:ticker", indicatorHandler.GetSeries)

	admin := router.Group("/admin", middleware.RequireAdminToken(adminToken))
	admin.POST("/run", adminHandler.RunPipeline)
	admin.POST("/summarize", adminHandler.Summarize)
	admin.POST("/extracts/:kind", adminHandler.UploadExtract)

	router.GET("/metrics", gin.WrapH(a.metrics.Handler()))
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return router
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if cfg.AdminToken == "" {
		log.Warn("ADMIN_TOKEN is not set; admin endpoints are disabled")
	}

	if cfg.ETLSchedule != "" {
		sched := scheduler.NewScheduler(ctx, a.pipeline, runTimeout)
		if err := sched.Register(cfg.ETLSchedule); err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: newRouter(a, cfg.AdminToken),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info("Shutting down server...")

	// Give outstanding requests 5 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info("Server exited")
	return nil
}
