package service

import (
	"github.com/minio/minio-go/v7"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"blood-donation/internal/clock"
	"blood-donation/internal/config"
	"blood-donation/internal/pkg/metrics"
	"blood-donation/internal/repository"
	"blood-donation/internal/service/audit"
	"blood-donation/internal/service/auth"
	"blood-donation/internal/service/dashboard"
	"blood-donation/internal/service/donation"
	"blood-donation/internal/service/email"
	"blood-donation/internal/service/lifecycle"
	"blood-donation/internal/service/location"
	"blood-donation/internal/service/notification"
	"blood-donation/internal/service/search"
	"blood-donation/internal/service/user"
)

type Services struct {
	Auth         auth.Service
	User         user.Service
	Donation     donation.Service
	Location     location.Service
	Search       search.Service
	Email        email.Service
	Audit        audit.Service
	Notification notification.Service
	Dashboard    dashboard.Service
}

func NewServices(repos *repository.Repositories, redis *redis.Client, minioClient *minio.Client, cfg *config.Config, m *metrics.Metrics, logger *zap.Logger) *Services {
	var source location.Source = location.NewFileSource(cfg.LocationsDir)
	if minioClient != nil && cfg.LocationsBucket != "" {
		source = location.NewMinIOSource(minioClient, cfg.LocationsBucket, cfg.LocationsPrefix)
	}

	emailService := email.NewService(cfg)
	authService := auth.NewService(repos.User, cfg, logger.Named("auth"))
	auditService := audit.NewService(repos.AuditLog, logger.Named("audit"))
	locationService := location.NewService(source, redis, logger.Named("location"))
	searchService := search.NewService(repos.User, locationService, redis, logger.Named("search"))
	notificationService := notification.NewService(repos.Notification, emailService, logger.Named("notification"))
	dashboardService := dashboard.NewService(repos.DonationRequest, repos.User, redis)
	userService := user.NewService(repos.User, locationService, searchService, auditService)

	machine := lifecycle.NewMachine(clock.NewSystem(), cfg.Location())
	donationService := donation.NewService(
		repos.DonationRequest,
		machine,
		locationService,
		auditService,
		notificationService,
		dashboardService,
		m,
		logger.Named("donation"),
	)

	return &Services{
		Auth:         authService,
		User:         userService,
		Donation:     donationService,
		Location:     locationService,
		Search:       searchService,
		Email:        emailService,
		Audit:        auditService,
		Notification: notificationService,
		Dashboard:    dashboardService,
	}
}
