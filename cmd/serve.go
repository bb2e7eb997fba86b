package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/wekan-tools/github-wekan-sync/api"
	"github.com/wekan-tools/github-wekan-sync/database"
	"github.com/wekan-tools/github-wekan-sync/internal/boards"
	"github.com/wekan-tools/github-wekan-sync/internal/config"
	"github.com/wekan-tools/github-wekan-sync/internal/events"
	"github.com/wekan-tools/github-wekan-sync/internal/signature"
	"github.com/wekan-tools/github-wekan-sync/internal/templates"
	"github.com/wekan-tools/github-wekan-sync/internal/wekan"
)

var serveStandalone bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the GitHub webhook receiver",
	Long: `Starts the HTTP server exposing POST /github-webhook and GET /health.
In standalone mode no Wekan connection is made: signature verification
accepts unsigned requests and event handlers only report what they
would provision.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveStandalone, "standalone", false, "run without a Wekan connection (also via STANDALONE=true)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	verifier := signature.Verifier{Secret: cfg.Webhook.Secret, Policy: signature.PolicyStrict}
	var router *events.Router

	standalone := serveStandalone || cfg.Server.Standalone
	if standalone {
		verifier.Policy = signature.PolicyPermissive
		router = events.NewRouter(nil)
		zap.L().Info("Starting in standalone mode (no WeKan connection required)")
	} else {
		if err := cfg.ValidateWekan(); err != nil {
			return err
		}
		if err := cfg.ValidateWebhook(); err != nil {
			return err
		}

		// Authentication is eager: rejected credentials are fatal
		// here, before the server starts accepting deliveries.
		auth, err := wekan.NewAuthManager(cmd.Context(), cfg.Wekan.URL, cfg.Wekan.Username, cfg.Wekan.Password, nil)
		if err != nil {
			zap.L().Error("Failed to initialise WeKan connection", zap.Error(err))
			return err
		}
		client := wekan.NewClient(cfg.Wekan.URL, auth, nil)
		tm := templates.New(cfg.Server.TemplatesDir, nil)
		creator := boards.NewCreator(client, tm, nil)
		router = events.NewRouter(creator)
		zap.L().Info("WeKan API components initialised successfully", zap.String("url", cfg.Wekan.URL))
	}

	var db *gorm.DB
	if cfg.Server.DatabasePath != "" {
		db = database.Init(cfg.Server.DatabasePath)
	}

	logger := zap.L()
	engine := gin.New()
	engine.Use(ginzap.Ginzap(logger, time.RFC3339, true))
	engine.Use(ginzap.RecoveryWithZap(logger, true))

	apiHandler := &api.Handler{
		DB:       db,
		Verifier: verifier,
		Router:   router,
	}
	engine.POST("/github-webhook", apiHandler.GithubWebhookHandler)
	engine.GET("/health", apiHandler.HealthCheckHandler)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: engine,
	}

	zap.L().Info("Starting server", zap.String("port", cfg.Server.Port))
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Fatal("Server error", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sig := <-sigCh
	zap.L().Info("Shutdown initiated", zap.String("reason", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zap.L().Error("Error shutting down server", zap.Error(err))
		return err
	}

	if db != nil {
		if sqlDB, err := db.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				zap.L().Error("Error closing database", zap.Error(err))
			}
		}
	}

	zap.L().Info("HTTP server shut down gracefully.")
	return nil
}
