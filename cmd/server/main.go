package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/digitool/volerex/internal/ai"
	"github.com/digitool/volerex/internal/handlers"
	"github.com/digitool/volerex/internal/middleware"
	"github.com/digitool/volerex/internal/models"
	"github.com/digitool/volerex/internal/pdftext"
	"github.com/digitool/volerex/internal/repositories"
	"github.com/digitool/volerex/internal/services"
	"github.com/digitool/volerex/internal/storage"
	"github.com/digitool/volerex/pkg/config"
	"github.com/digitool/volerex/pkg/database"
	"github.com/digitool/volerex/pkg/logger"
)

func main() {
	// Load configuration
	if err := config.Load(); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	gin.SetMode(config.AppConfig.Server.Mode)
	logger.Init()

	// Initialize database
	if err := database.Init(config.AppConfig.Database.Path); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	fileStore, err := storage.NewFileStore(config.AppConfig.Storage.DataDir)
	if err != nil {
		log.Fatalf("Failed to initialize file store: %v", err)
	}

	// Initialize dependencies
	pdfTemplateRepo := repositories.NewPdfTemplateRepository(database.DB)
	emailTemplateRepo := repositories.NewEmailTemplateRepository(database.DB)
	documentRepo := repositories.NewDocumentRepository(database.DB)
	emailDocumentRepo := repositories.NewEmailDocumentRepository(database.DB)
	emailConfigRepo := repositories.NewEmailConfigRepository(database.DB)

	aiClient := ai.NewClient(config.AppConfig.AI.BaseURL, config.AppConfig.AI.APIKey, config.AppConfig.AI.Model)
	textExtractor := pdftext.NewExtractor()

	pdfTemplateService := services.NewPdfTemplateService(pdfTemplateRepo)
	emailTemplateService := services.NewEmailTemplateService(emailTemplateRepo)
	matcherService := services.NewEmailMatcherService(config.AppConfig.Matching.AutoProcessThreshold)
	extractionService := services.NewExtractionService(pdfTemplateService, documentRepo, fileStore, textExtractor, aiClient)
	documentService := services.NewDocumentService(documentRepo, fileStore)
	exportService := services.NewExportService(documentRepo, pdfTemplateService, fileStore)
	emailConfigService := services.NewEmailConfigService(emailConfigRepo)
	inboundEmailService := services.NewInboundEmailService(
		emailConfigRepo, emailDocumentRepo, emailTemplateService, matcherService, extractionService, fileStore,
	)

	jwtManager := middleware.NewJWTManager(config.AppConfig.Auth.JWTSecret, 0)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler()
	pdfTemplateHandler := handlers.NewPdfTemplateHandler(pdfTemplateService)
	emailTemplateHandler := handlers.NewEmailTemplateHandler(emailTemplateService, matcherService)
	pdfParserHandler := handlers.NewPdfParserHandler(extractionService)
	documentHandler := handlers.NewDocumentHandler(documentService, exportService)
	webhookHandler := handlers.NewEmailChannelHandler(models.ChannelWebhook, inboundEmailService, emailConfigService)
	imapHandler := handlers.NewEmailChannelHandler(models.ChannelIMAP, inboundEmailService, emailConfigService)

	// Initialize router
	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{config.AppConfig.Server.CORSOrigin},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	setupRoutes(router, jwtManager, healthHandler, pdfTemplateHandler, emailTemplateHandler,
		pdfParserHandler, documentHandler, webhookHandler, imapHandler)

	server := &http.Server{
		Addr:         ":" + config.AppConfig.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(config.AppConfig.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(config.AppConfig.Server.WriteTimeout) * time.Second,
	}

	// Graceful shutdown
	go func() {
		logger.WithField("addr", server.Addr).Info("Server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Forced shutdown")
	}
	logger.Info("Server stopped")
}

func setupRoutes(
	router *gin.Engine,
	jwtManager *middleware.JWTManager,
	healthHandler *handlers.HealthHandler,
	pdfTemplateHandler *handlers.PdfTemplateHandler,
	emailTemplateHandler *handlers.EmailTemplateHandler,
	pdfParserHandler *handlers.PdfParserHandler,
	documentHandler *handlers.DocumentHandler,
	webhookHandler *handlers.EmailChannelHandler,
	imapHandler *handlers.EmailChannelHandler,
) {
	router.GET("/_healthz", healthHandler.Check)

	routes := router.Group("/routes")
	routes.Use(middleware.JWTMiddleware(jwtManager))

	// Extraction templates
	routes.POST("/templates", pdfTemplateHandler.Create)
	routes.GET("/templates", pdfTemplateHandler.List)
	routes.GET("/templates/:id", pdfTemplateHandler.Get)
	routes.PUT("/templates/:id", pdfTemplateHandler.Update)
	routes.DELETE("/templates/:id", pdfTemplateHandler.Delete)

	// Email templates
	routes.POST("/email-templates", emailTemplateHandler.Create)
	routes.GET("/email-templates", emailTemplateHandler.List)
	routes.POST("/email-templates/test-match", emailTemplateHandler.TestMatch)
	routes.GET("/email-templates/:id", emailTemplateHandler.Get)
	routes.PUT("/email-templates/:id", emailTemplateHandler.Update)
	routes.DELETE("/email-templates/:id", emailTemplateHandler.Delete)

	// Direct PDF extraction
	routes.POST("/pdf-parser/extract-data", pdfParserHandler.ExtractData)

	// Document store
	routes.GET("/list", documentHandler.List)
	routes.GET("/get/:id", documentHandler.Get)
	routes.PUT("/update/:id", documentHandler.Update)
	routes.DELETE("/delete/:id", documentHandler.Delete)
	routes.POST("/delete-batch", documentHandler.DeleteBatch)
	routes.POST("/export-batch", documentHandler.ExportBatch)
	routes.GET("/download-export/:filename", documentHandler.DownloadExport)
	routes.GET("/download-pdf/:document_id", documentHandler.DownloadPDF)

	// Webhook intake channel
	email := routes.Group("/email")
	email.POST("/webhook", webhookHandler.Webhook)
	registerChannelRoutes(email, webhookHandler)

	// IMAP intake channel
	imap := routes.Group("/imap-email")
	registerChannelRoutes(imap, imapHandler)

	// Configuration aliases kept for older clients
	routes.GET("/email-config", imapHandler.GetConfig)
	routes.POST("/email-config", imapHandler.SaveConfig)
	routes.DELETE("/email-config", imapHandler.DeleteConfig)
	routes.POST("/email-config/test", imapHandler.TestConnection)

	routes.GET("/config/email", webhookHandler.GetConfig)
	routes.PUT("/config/email", webhookHandler.SaveConfig)
	routes.DELETE("/config/email", webhookHandler.DeleteConfig)
	routes.POST("/config/email/test", webhookHandler.TestConnection)
}

func registerChannelRoutes(group *gin.RouterGroup, handler *handlers.EmailChannelHandler) {
	group.GET("/status", handler.Status)
	group.POST("/check", handler.Check)
	group.GET("/documents", handler.ListDocuments)
	group.GET("/documents/:id/pdfs", handler.ListPDFs)
	group.POST("/documents/:id/process", handler.Process)
	group.GET("/config", handler.GetConfig)
	group.PUT("/config", handler.SaveConfig)
	group.DELETE("/config", handler.DeleteConfig)
	group.POST("/test-connection", handler.TestConnection)
}
