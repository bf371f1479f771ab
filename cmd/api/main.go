package main

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/minio/minio-go/v7"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"blood-donation/internal/config"
	"blood-donation/internal/domain"
	"blood-donation/internal/handler"
	"blood-donation/internal/middleware"
	"blood-donation/internal/pkg/i18n"
	"blood-donation/internal/pkg/metrics"
	"blood-donation/internal/repository"
	"blood-donation/internal/service"
	"blood-donation/internal/service/auth"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()

	zlog, err := config.NewLogger(cfg.LogLevel, cfg.LogFormat, "blood-donation-api")
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zlog.Sync()

	if err := i18n.LoadTranslations(cfg.LocalesDir); err != nil {
		zlog.Warn("reason catalog not loaded, falling back to English defaults", zap.Error(err))
	}

	db, err := config.NewPostgresDB(cfg)
	if err != nil {
		zlog.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	redis, err := config.NewRedisClient(cfg)
	if err != nil {
		zlog.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer redis.Close()

	var minioClient *minio.Client
	if cfg.LocationsBucket != "" {
		minioClient, err = config.NewMinIOClient(cfg)
		if err != nil {
			zlog.Warn("minio unavailable, reading locations from disk", zap.Error(err))
			minioClient = nil
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	repos := repository.NewRepositories(db)
	services := service.NewServices(repos, redis, minioClient, cfg, m, zlog)
	handlers := handler.NewHandlers(services)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := services.Location.Reload(ctx); err != nil {
		zlog.Warn("location reference data not loaded at startup", zap.Error(err))
	}
	cancel()

	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(zlog),
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Next: func(c *fiber.Ctx) bool {
			return c.Path() == "/health" || c.Path() == "/metrics"
		},
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Accept-Language, Authorization",
		AllowMethods: "GET, POST, PUT, PATCH, DELETE, OPTIONS",
	}))
	app.Use(middleware.RequestInfo())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	setupRoutes(app, handlers, services.Auth)

	zlog.Info("server starting", zap.String("port", cfg.Port), zap.String("environment", cfg.Environment))
	if err := app.Listen(":" + cfg.Port); err != nil {
		zlog.Fatal("failed to start server", zap.Error(err))
	}
}

func setupRoutes(app *fiber.App, h *handler.Handlers, authService auth.Service) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	v1 := app.Group("/api/v1")
	optional := middleware.OptionalAuth(authService)
	required := middleware.AuthRequired(authService)

	locations := v1.Group("/locations")
	locations.Get("/divisions", h.Location.Divisions)
	locations.Get("/districts", h.Location.Districts)
	locations.Get("/upazilas", h.Location.Upazilas)
	locations.Post("/reload", required, middleware.RequireRole(domain.RoleAdmin), h.Location.Reload)

	v1.Get("/donors", h.Donor.Search)

	requests := v1.Group("/requests")
	requests.Get("/", optional, h.DonationRequest.List)
	requests.Get("/:id", h.DonationRequest.Get)
	requests.Get("/:id/actions", optional, h.DonationRequest.Actions)
	requests.Get("/:id/audit", required, middleware.RequireRole(domain.RoleVolunteer), h.DonationRequest.AuditTrail)
	requests.Post("/", required, h.DonationRequest.Create)
	requests.Patch("/:id", required, h.DonationRequest.Update)
	requests.Delete("/:id", required, h.DonationRequest.Delete)
	requests.Post("/:id/donate", required, h.DonationRequest.Donate)
	requests.Post("/:id/complete", required, h.DonationRequest.Complete)
	requests.Post("/:id/cancel", required, h.DonationRequest.Cancel)
	requests.Post("/:id/status", required, middleware.RequireRole(domain.RoleVolunteer), h.DonationRequest.ForceStatus)

	users := v1.Group("/users", required)
	users.Get("/me", h.User.GetProfile)
	users.Patch("/me", h.User.UpdateProfile)
	users.Patch("/:id/block", middleware.RequireRole(domain.RoleAdmin), h.User.SetStatus)
	users.Patch("/:id/role", middleware.RequireRole(domain.RoleAdmin), h.User.AssignRole)

	dashboard := v1.Group("/dashboard", required, middleware.RequireRole(domain.RoleVolunteer))
	dashboard.Get("/stats", h.Dashboard.GetStats)

	notifications := v1.Group("/notifications", required)
	notifications.Get("/", h.Notification.List)
	notifications.Get("/unread-count", h.Notification.GetUnreadCount)
	notifications.Patch("/:id/read", h.Notification.MarkAsRead)
	notifications.Post("/mark-all-read", h.Notification.MarkAllAsRead)

	audit := v1.Group("/audit", required, middleware.RequireRole(domain.RoleAdmin))
	audit.Get("/recent", h.Audit.GetRecentActivities)
}
