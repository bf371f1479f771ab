package email

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"

	"github.com/resend/resend-go/v3"

	"blood-donation/internal/config"
)

//go:embed templates/*.html
var templateFS embed.FS

type Service interface {
	SendDonorCommitted(ctx context.Context, toEmail, requesterName, donorName, recipientName, hospital string) error
	SendRequestCompleted(ctx context.Context, toEmail, recipientName, hospital string) error
	SendRequestCancelled(ctx context.Context, toEmail, name, recipientName, hospital string) error
	SendStatusForced(ctx context.Context, toEmail, name, recipientName, status, moderatorName string) error
}

type service struct {
	client    *resend.Client
	config    *config.Config
	templates *template.Template
}

func NewService(cfg *config.Config) Service {
	return &service{
		client:    resend.NewClient(cfg.ResendAPIKey),
		config:    cfg,
		templates: template.Must(template.ParseFS(templateFS, "templates/*.html")),
	}
}

type message struct {
	Title string
	Name  string
	Body  string
	Link  string
	Color string
}

func (s *service) sendEmail(toEmail, subject string, data message) error {
	if s.config.ResendAPIKey == "" {
		return nil
	}

	var body bytes.Buffer
	if err := s.templates.ExecuteTemplate(&body, "layout.html", data); err != nil {
		return fmt.Errorf("failed to execute email template: %w", err)
	}

	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("Blood Donation <%s>", s.config.FromEmail),
		To:      []string{toEmail},
		Html:    body.String(),
		Subject: subject,
	}

	_, err := s.client.Emails.Send(params)
	return err
}

func (s *service) requestLink() string {
	return fmt.Sprintf("https://%s/dashboard/my-donation-requests", s.config.Domain)
}

func (s *service) SendDonorCommitted(ctx context.Context, toEmail, requesterName, donorName, recipientName, hospital string) error {
	data := message{
		Title: "A donor is on the way",
		Name:  requesterName,
		Body:  fmt.Sprintf("%s committed to donate for %s at %s.", donorName, recipientName, hospital),
		Link:  s.requestLink(),
		Color: "#dc2626",
	}
	return s.sendEmail(toEmail, "A donor responded to your request", data)
}

func (s *service) SendRequestCompleted(ctx context.Context, toEmail, recipientName, hospital string) error {
	data := message{
		Title: "Donation completed",
		Name:  recipientName,
		Body:  fmt.Sprintf("The donation for %s at %s has been marked as completed. Thank you.", recipientName, hospital),
		Link:  s.requestLink(),
		Color: "#10b981",
	}
	return s.sendEmail(toEmail, "Donation completed", data)
}

func (s *service) SendRequestCancelled(ctx context.Context, toEmail, name, recipientName, hospital string) error {
	data := message{
		Title: "Request cancelled",
		Name:  name,
		Body:  fmt.Sprintf("The blood request for %s at %s was cancelled.", recipientName, hospital),
		Link:  s.requestLink(),
		Color: "#6b7280",
	}
	return s.sendEmail(toEmail, "Blood request cancelled", data)
}

func (s *service) SendStatusForced(ctx context.Context, toEmail, name, recipientName, status, moderatorName string) error {
	data := message{
		Title: "Request status changed",
		Name:  name,
		Body:  fmt.Sprintf("%s set the request for %s to %s.", moderatorName, recipientName, status),
		Link:  s.requestLink(),
		Color: "#f59e0b",
	}
	return s.sendEmail(toEmail, fmt.Sprintf("Request marked %s", status), data)
}
