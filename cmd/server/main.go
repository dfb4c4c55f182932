package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/stemstage/api/internal/config"
	"github.com/stemstage/api/internal/handler"
	"github.com/stemstage/api/internal/middleware"
	"github.com/stemstage/api/internal/model"
	"github.com/stemstage/api/internal/service"
	"github.com/stemstage/api/internal/session"
	"github.com/stemstage/api/internal/taskstore"
	"github.com/stemstage/api/internal/tool"
	"github.com/stemstage/api/internal/worker"
	ws "github.com/stemstage/api/internal/websocket"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	for _, dir := range cfg.Dirs.Roots() {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Failed to create %s: %v", dir, err)
		}
	}

	// Initialize Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: Redis not available: %v", err)
	}

	// Initialize Asynq client
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer asynqClient.Close()

	// Initialize validator
	validate := validator.New()

	// Initialize WebSocket hub
	hub := ws.NewHub()
	go hub.Run()

	// Task store and external tools
	store := taskstore.NewRedisStore(redisClient)
	runner := tool.NewRunner(time.Duration(cfg.Tasks.ToolTimeoutMinutes) * time.Minute)
	downloader := tool.NewDownloader(cfg.Tools.YTDLP, runner)
	separator := tool.NewSeparator(cfg.Tools.Python, runner)
	remuxer := tool.NewRemuxer(cfg.Tools.FFmpeg, cfg.Tools.FFprobe, runner)

	// Initialize services
	taskService := service.NewTaskService(store, asynqClient)
	libraryService := service.NewLibraryService(cfg.Dirs, store)
	uploadService := service.NewUploadService(cfg.Dirs.Downloads)
	sessionManager := session.NewManager(hub)

	// Initialize handlers
	taskHandler := handler.NewTaskHandler(taskService, validate)
	libraryHandler := handler.NewLibraryHandler(libraryService)
	uploadHandler := handler.NewUploadHandler(uploadService)
	sessionHandler := handler.NewSessionHandler(sessionManager, validate)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.Auth.Secret)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    2 * 1024 * 1024 * 1024, // uploads carry whole videos
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// File serving is deliberately outside the auth group: playback
	// surfaces fetch media without credentials. The allow-list in the
	// library service is the guard.
	app.Get("/files/*", libraryHandler.Serve)

	// API routes
	api := app.Group("/api", authMiddleware.Authenticate())

	api.Post("/download", rateLimiter.DownloadLimit(cfg.RateLimit.DownloadPerHour), taskHandler.Download)
	api.Post("/separate", rateLimiter.SeparateLimit(cfg.RateLimit.SeparatePerHour), taskHandler.Separate)
	api.Post("/merge", taskHandler.Merge)
	api.Post("/export", rateLimiter.ExportLimit(cfg.RateLimit.ExportPerHour), taskHandler.Export)
	api.Get("/progress/:taskId", taskHandler.Progress)
	api.Get("/library", libraryHandler.List)
	api.Post("/cleanup", libraryHandler.Cleanup)
	api.Post("/upload/video", rateLimiter.UploadLimit(cfg.RateLimit.UploadPerHour), uploadHandler.Video)

	// Session routes
	api.Post("/session/open", sessionHandler.Open)
	api.Get("/session/:id", sessionHandler.State)
	api.Post("/session/:id/play", sessionHandler.Play)
	api.Post("/session/:id/pause", sessionHandler.Pause)
	api.Post("/session/:id/stop", sessionHandler.Stop)
	api.Post("/session/:id/seek", sessionHandler.Seek)
	api.Post("/session/:id/gain", sessionHandler.Gain)
	api.Delete("/session/:id", sessionHandler.Close)

	// WebSocket routes
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/tasks/:taskId", websocket.New(func(c *websocket.Conn) {
		hub.HandleConnection(c, ws.TaskTopic(c.Params("taskId")))
	}))
	app.Get("/ws/session/:id/video", websocket.New(func(c *websocket.Conn) {
		hub.HandleConnection(c, "session:"+c.Params("id")+":video")
	}))
	app.Get("/ws/session/:id/projector", websocket.New(func(c *websocket.Conn) {
		hub.HandleConnection(c, "session:"+c.Params("id")+":projector")
	}))

	// Start Asynq worker server
	go startWorkerServer(cfg, store, hub, downloader, separator, remuxer)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		sessionManager.CloseAll()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// Start server
	addr := ":" + cfg.Server.Port
	log.Printf("Server starting on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func startWorkerServer(cfg *config.Config, store taskstore.Store, hub *ws.Hub, downloader *tool.Downloader, separator *tool.Separator, remuxer *tool.Remuxer) {
	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"download": 3,
				"separate": 2,
				"merge":    3,
				"export":   2,
			},
		},
	)

	downloadWorker := worker.NewDownloadWorker(store, hub, downloader, cfg.Dirs.Downloads)
	separationWorker := worker.NewSeparationWorker(store, hub, separator, remuxer, cfg.Dirs, cfg.Tasks.SilenceRMS)
	mergeWorker := worker.NewMergeWorker(store, hub, remuxer, cfg.Tasks.SilenceRMS)
	exportWorker := worker.NewExportWorker(store, hub, remuxer, cfg.Dirs)

	mux := asynq.NewServeMux()
	mux.HandleFunc(model.TaskTypeDownload, downloadWorker.ProcessTask)
	mux.HandleFunc(model.TaskTypeSeparate, separationWorker.ProcessTask)
	mux.HandleFunc(model.TaskTypeMerge, mergeWorker.ProcessTask)
	mux.HandleFunc(model.TaskTypeExport, exportWorker.ProcessTask)

	if err := srv.Run(mux); err != nil {
		log.Printf("Asynq worker error: %v", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "SERVICE_ERROR",
			"message": message,
		},
	})
}
