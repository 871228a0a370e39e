package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"path/filepath"
	"time"

	"originality/config"
	"originality/extract"
	"originality/models"
	"originality/render"
	"originality/services"
	"originality/storage"

	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	submissionsProcessed prometheus.Counter
	pipelineFailures     *prometheus.CounterVec
	pipelineDuration     prometheus.Histogram
)

func init() {
	submissionsProcessed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "submissions_processed_total",
			Help: "Total number of submissions processed successfully.",
		},
	)
	pipelineFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_failures_total",
			Help: "Total number of pipeline failures by stage.",
		},
		[]string{"stage"},
	)
	pipelineDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pipeline_duration_seconds",
			Help:    "Wall-clock duration of the submission pipeline.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		},
	)
	prometheus.MustRegister(submissionsProcessed, pipelineFailures, pipelineDuration)
}

func apiKeyAuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.APISecretKey == "" {
			c.Next()
			return
		}
		apiKey := c.GetHeader("X-API-KEY")
		if apiKey != cfg.APISecretKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Invalid API Key"})
			return
		}
		c.Next()
	}
}

func main() {
	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("Config load error", zap.Error(err))
	}

	// Setup Database Connection
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		logging.Fatal("Failed to connect to database", zap.Error(err))
	}
	logging.Info("Successfully connected to submissions database.")

	logging.Info("Running database auto-migration...")
	db.AutoMigrate(&models.Submission{}, &models.User{})

	// Setup Services
	s3Client, err := storage.NewS3Client(cfg)
	if err != nil {
		logging.Fatal("S3 client creation failed", zap.Error(err))
	}

	openSession := func(ctx context.Context) (services.Renderer, error) {
		return render.Open(ctx, render.Options{
			RemoteURL: cfg.ChromeRemoteURL,
			Logger:    logging,
		})
	}
	pipeline := services.NewPipelineService(
		cfg,
		logging,
		extract.Extract,
		openSession,
		&services.S3ArtifactStore{Client: s3Client, Config: cfg},
		&services.GormRecordStore{DB: db},
	)
	sweeper := services.NewSweeper(cfg, db, s3Client, logging)

	// Setup Router
	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(apiKeyAuthMiddleware(cfg))
	router.MaxMultipartMemory = cfg.MaxUploadBytes
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Setup Routes
	api := router.Group("/api/v1")
	setupSubmissionRoutes(api, cfg, pipeline, s3Client, logging)
	setupUserRoutes(api, db, logging)

	// Setup Cron: periodischer Sweep verwaister Artefakte
	cronScheduler := cron.New()
	cronScheduler.AddFunc(cfg.SweepSchedule, func() {
		logging.Info("Running scheduled orphan sweep...")
		removed, err := sweeper.Run(context.Background())
		if err != nil {
			logging.Error("Orphan sweep failed", zap.Error(err))
		} else {
			logging.Info("Orphan sweep completed", zap.Int("removed", removed))
		}
	})
	cronScheduler.Start()

	logging.Info("Starting server", zap.String("port", cfg.HTTPPort))
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadTimeout:       5 * time.Minute,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logging.Fatal("Failed to run server", zap.Error(err))
	}
}

func setupSubmissionRoutes(api *gin.RouterGroup, cfg *config.Config, pipeline *services.PipelineService, s3Client *awss3.Client, log *zap.Logger) {
	rg := api.Group("/submissions")

	// Upload: nimmt eine Datei + user_id an und führt die komplette
	// Pipeline synchron aus. Antwort enthält alle drei Referenzen.
	rg.POST("/upload", func(c *gin.Context) {
		userID := c.PostForm("user_id")

		fileHeader, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
			return
		}
		if fileHeader.Size > cfg.MaxUploadBytes {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File exceeds upload limit"})
			return
		}

		mediaType := fileHeader.Header.Get("Content-Type")
		if mediaType == "" || mediaType == "application/octet-stream" {
			mediaType = mime.TypeByExtension(filepath.Ext(fileHeader.Filename))
		}
		// Ingestion-Grenze: nicht unterstützte Media-Types ablehnen,
		// bevor irgendein externer Aufruf passiert.
		if !extract.Supported(mediaType) {
			c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": fmt.Sprintf("Unsupported media type: %s", mediaType)})
			return
		}

		f, err := fileHeader.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Could not read uploaded file"})
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Could not read uploaded file"})
			return
		}

		start := time.Now()
		sub, err := pipeline.Process(c.Request.Context(), services.UploadInput{
			UserID:    userID,
			Filename:  fileHeader.Filename,
			MediaType: mediaType,
			Data:      data,
		})
		if err != nil {
			var se *services.StageError
			if errors.As(err, &se) {
				pipelineFailures.WithLabelValues(string(se.Stage)).Inc()
			}
			switch {
			case errors.Is(err, services.ErrInvalidInput):
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			case errors.Is(err, extract.ErrUnsupportedMediaType):
				c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": err.Error()})
			default:
				// Einheitliche Processing-Fehlermeldung für alle
				// Stage-Fehler; Details stehen im Log.
				c.JSON(http.StatusInternalServerError, gin.H{"error": "submission processing failed"})
			}
			return
		}
		submissionsProcessed.Inc()
		pipelineDuration.Observe(time.Since(start).Seconds())

		c.JSON(http.StatusCreated, gin.H{"submission": sub})
	})

	// Submissions eines Benutzers, neueste zuerst
	rg.GET("/user/:user_id", func(c *gin.Context) {
		subs, err := pipeline.Records.ListByUser(c.Request.Context(), c.Param("user_id"))
		if err != nil {
			log.Error("Database query for submissions failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, subs)
	})

	// Download: liefert das Artefakt als Datei-Anhang
	rg.GET("/download", func(c *gin.Context) {
		key := c.Query("key")
		if key == "" || storage.SubmissionIDFromKey(key) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid object key"})
			return
		}
		data, err := storage.DownloadFile(c.Request.Context(), s3Client, cfg.ReportS3Bucket, key)
		if err != nil {
			log.Error("Artifact download failed", zap.String("key", key), zap.Error(err))
			c.JSON(http.StatusNotFound, gin.H{"error": "artifact not found"})
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(key)))
		c.Data(http.StatusOK, "application/pdf", data)
	})

	// Kurzlebige Abruf-URL für ein Artefakt
	rg.GET("/signed-url", func(c *gin.Context) {
		key := c.Query("key")
		if key == "" || storage.SubmissionIDFromKey(key) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid object key"})
			return
		}
		url, err := storage.PresignGet(c.Request.Context(), s3Client, cfg.ReportS3Bucket, key, 15*time.Minute)
		if err != nil {
			log.Error("Presign failed", zap.String("key", key), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not sign url"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"url": url})
	})
}

func setupUserRoutes(api *gin.RouterGroup, db *gorm.DB, log *zap.Logger) {
	rg := api.Group("/users")

	rg.GET("/", func(c *gin.Context) {
		var users []models.User
		if err := db.Find(&users).Error; err != nil {
			log.Error("Database query for users failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, users)
	})

	rg.POST("/create-user", func(c *gin.Context) {
		var user models.User
		if err := c.ShouldBindJSON(&user); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		if user.Name == "" || user.Email == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name and email are required"})
			return
		}
		if err := db.Create(&user).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create user"})
			return
		}
		c.JSON(http.StatusCreated, user)
	})
}
