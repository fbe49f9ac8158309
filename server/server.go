package server

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"audiopub/cache"
	"audiopub/config"
	"audiopub/core/interaction"
	"audiopub/core/mailer"
	"audiopub/core/media"
	"audiopub/core/mention"
	"audiopub/core/notify"
	"audiopub/db"
	"audiopub/logger"
	"audiopub/repository"
	"audiopub/storage"

	"github.com/gorilla/mux"
)

// Start initializes and starts the HTTP server.
func Start() {
	cfg := config.Load()

	logger.InitLogger(logger.Config{
		Level:      logger.LogLevel(cfg.LogLevel),
		OutputPath: cfg.LogPath,
		MaxSize:    100,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	})

	server := &http.Server{
		Addr:         cfg.ListenAddr,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Connect to the database
	if err := db.ConnectDB(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.DB.Close()

	if err := db.InitDB(); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	if err := db.ConnectGormDB(cfg); err != nil {
		log.Fatalf("Failed to connect GORM: %v", err)
	}
	defer db.CloseGormDB()

	if err := db.MigrateGormModels(); err != nil {
		log.Fatalf("Failed to migrate models: %v", err)
	}

	// Redis only backs the favorite-count cache; the server runs without it.
	if err := db.ConnectRedis(cfg); err != nil {
		logger.Warn("Redis unavailable, favorite counts will hit the database", logger.ErrorField(err))
	} else {
		defer db.CloseRedis()
		cache.RedisClient = db.RedisClient
	}

	var mirror media.Mirror
	if cfg.MinioEndpoint != "" {
		if err := storage.InitMinio(cfg); err != nil {
			log.Fatalf("Failed to initialize MinIO: %v", err)
		}
		mirror = storage.NewMinioMirror(cfg.MinioBucket)
	}

	ensureDirExists(cfg.UploadDir)
	ensureDirExists(cfg.AudioUploadDir)

	userRepo := repository.NewMySQLUserRepository(db.DB)
	audioRepo := repository.NewMySQLAudioRepository(db.DB)
	commentRepo := repository.NewMySQLCommentRepository(db.DB)
	followRepo := repository.NewGormFollowRepository(db.GormDB)
	favoriteRepo := repository.NewGormFavoriteRepository(db.GormDB)
	notificationRepo := repository.NewGormNotificationRepository(db.GormDB)

	extractor := mention.NewExtractor(userRepo)
	notifier := notify.NewEngine(notificationRepo, followRepo, extractor)
	aggregator := interaction.NewAggregator(followRepo, favoriteRepo)
	alerts := mailer.New(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.MailFrom)

	pipeline := media.NewPipeline(media.PipelineConfig{
		Audios:        audioRepo,
		Files:         media.NewOSFileStore(),
		Transcoder:    media.NewFFmpegTranscoder(cfg.FFmpegPath, cfg.AudioBitrate),
		Notifier:      notifier,
		Mailer:        alerts,
		Mirror:        mirror,
		AudioDir:      cfg.AudioUploadDir,
		MaxUploadSize: cfg.MaxUploadSize,
		Timeout:       cfg.TranscodeTimeout,
		AdminEmail:    cfg.AdminEmail,
	})

	apiHandler := NewAPIHandler(APIHandlerDeps{
		Users:         userRepo,
		Audios:        audioRepo,
		Comments:      commentRepo,
		Follows:       followRepo,
		Favorites:     favoriteRepo,
		Notifications: notificationRepo,
		Pipeline:      pipeline,
		Files:         media.NewOSFileStore(),
		Mirror:        mirror,
		Notifier:      notifier,
		Aggregator:    aggregator,
		Cfg:           cfg,
	})

	router := mux.NewRouter()

	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, HEAD")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Range")
			w.Header().Set("Access-Control-Expose-Headers", "Content-Length, Content-Range")
			w.Header().Set("Access-Control-Max-Age", "86400") // 24 hours

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	})

	router.HandleFunc("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	// Auth endpoints
	router.HandleFunc("/api/auth/register", apiHandler.RegisterHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/login", apiHandler.LoginHandler).Methods(http.MethodPost)

	// Audio endpoints
	router.HandleFunc("/api/audios", apiHandler.ListAudiosHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/upload", apiHandler.AuthMiddleware(apiHandler.UploadAudioHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/audios/{id}", apiHandler.OptionalAuthMiddleware(apiHandler.GetAudioHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/audios/{id}", apiHandler.AuthMiddleware(apiHandler.UpdateAudioHandler)).Methods(http.MethodPut)
	router.HandleFunc("/api/audios/{id}", apiHandler.AuthMiddleware(apiHandler.DeleteAudioHandler)).Methods(http.MethodDelete)

	// Comment endpoints
	router.HandleFunc("/api/audios/{id}/comments", apiHandler.AuthMiddleware(apiHandler.CreateCommentHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/comments/{commentId}", apiHandler.AuthMiddleware(apiHandler.UpdateCommentHandler)).Methods(http.MethodPut)
	router.HandleFunc("/api/comments/{commentId}", apiHandler.AuthMiddleware(apiHandler.DeleteCommentHandler)).Methods(http.MethodDelete)

	// Interaction endpoints
	router.HandleFunc("/api/audios/{id}/follow", apiHandler.AuthMiddleware(apiHandler.FollowAudioHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/audios/{id}/follow", apiHandler.AuthMiddleware(apiHandler.UnfollowAudioHandler)).Methods(http.MethodDelete)
	router.HandleFunc("/api/audios/{id}/favorite", apiHandler.AuthMiddleware(apiHandler.FavoriteAudioHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/audios/{id}/favorite", apiHandler.AuthMiddleware(apiHandler.UnfavoriteAudioHandler)).Methods(http.MethodDelete)

	// Notification endpoints
	router.HandleFunc("/api/notifications", apiHandler.AuthMiddleware(apiHandler.ListNotificationsHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/notifications/unread", apiHandler.AuthMiddleware(apiHandler.UnreadCountHandler)).Methods(http.MethodGet)

	// Transcoded audio is served straight from the upload directory.
	uploadsFileServer := http.FileServer(http.Dir(cfg.UploadDir))
	router.PathPrefix("/uploads/").Handler(http.StripPrefix("/uploads/", uploadsFileServer))

	server.Handler = router

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("server starting", logger.String("addr", cfg.ListenAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-stop
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Info("server stopped")
}

func ensureDirExists(path string) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		log.Printf("Creating directory: %s", path)
		if err := os.MkdirAll(path, 0755); err != nil {
			log.Fatalf("Failed to create directory %s: %v", path, err)
		}
	} else if err != nil {
		log.Fatalf("Failed to check directory %s: %v", path, err)
	}
}
