package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sitesafe-api/config"
	"sitesafe-api/controllers"
	"sitesafe-api/middleware"
	"sitesafe-api/routes"
	"sitesafe-api/services"
	"sitesafe-api/storage"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

func main() {
	settings, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logFile, _ := config.InitLogging()
	if logFile != nil {
		defer logFile.Close()
	}

	if settings.Server.GinMode == gin.ReleaseMode || settings.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize database
	config.InitDB()

	store, err := storage.NewLocalStore(settings.Storage.Root)
	if err != nil {
		log.Fatalf("Failed to prepare storage: %v", err)
	}

	var mailer config.Mailer
	if settings.Mail.Host != "" && settings.Mail.From != "" {
		mailer = config.NewSMTPMailer(settings.Mail)
	} else {
		log.Warn("SMTP not configured, reminder e-mails are disabled")
	}

	bank, err := services.LoadQuestionBank(settings.QuestionnaireFile)
	if err != nil {
		log.Fatalf("Failed to load health questionnaire: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := bank.Watch(ctx); err != nil {
			log.WithError(err).Warn("questionnaire watcher stopped")
		}
	}()

	controllers.Configure(store, mailer, bank)

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Logging())
	router.Use(gin.Recovery())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORSMiddleware())
	router.MaxMultipartMemory = settings.MaxUploadBytes()

	routes.SetupRoutes(router)

	srv := &http.Server{
		Addr:              ":" + settings.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithFields(log.Fields{
			"port":        settings.Server.Port,
			"environment": settings.Server.Environment,
			"storage":     settings.Storage.Root,
		}).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
}
