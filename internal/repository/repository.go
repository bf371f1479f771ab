package repository

import (
	"github.com/jmoiron/sqlx"
)

type Repositories struct {
	User            UserRepository
	DonationRequest DonationRequestRepository
	AuditLog        AuditLogRepository
	Notification    NotificationRepository
}

func NewRepositories(db *sqlx.DB) *Repositories {
	return &Repositories{
		User:            NewUserRepository(db),
		DonationRequest: NewDonationRequestRepository(db),
		AuditLog:        NewAuditLogRepository(db),
		Notification:    NewNotificationRepository(db),
	}
}
