package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/resend/resend-go/v2"
)

type EmailService struct {
	client    *resend.Client
	fromEmail string
	isDev     bool
	appURL    string
	appName   string
}

func NewEmailService(apiKey, fromEmail, appURL, appName string, isDev bool) *EmailService {
	var client *resend.Client
	if apiKey != "" && !isDev {
		client = resend.NewClient(apiKey)
	}

	return &EmailService{
		client:    client,
		fromEmail: fromEmail,
		isDev:     isDev,
		appURL:    appURL,
		appName:   appName,
	}
}

func (s *EmailService) SendConfirmationEmail(ctx context.Context, email, token string) error {
	confirmURL := fmt.Sprintf("%s/auth/confirm/%s", s.appURL, token)
	subject, body := confirmEmailTemplate(confirmURL, s.appName)
	return s.send(ctx, "confirm_email", email, subject, body, "url", confirmURL)
}

func (s *EmailService) SendPasswordResetEmail(ctx context.Context, email, token string) error {
	resetURL := fmt.Sprintf("%s/auth/reset-password/%s", s.appURL, token)
	subject, body := passwordResetEmailTemplate(resetURL, s.appName)
	return s.send(ctx, "password_reset", email, subject, body, "url", resetURL)
}

func (s *EmailService) SendNewRequirementEmail(ctx context.Context, adminEmail, customerEmail, fileName string) error {
	adminURL := fmt.Sprintf("%s/admin", s.appURL)
	subject, body := newRequirementEmailTemplate(customerEmail, fileName, adminURL, s.appName)
	return s.send(ctx, "new_requirement", adminEmail, subject, body, "customer", customerEmail)
}

func (s *EmailService) SendQuoteRequestEmail(ctx context.Context, adminEmail, productName, customerName string, quantity int) error {
	subject, body := quoteRequestEmailTemplate(productName, customerName, quantity, s.appName)
	return s.send(ctx, "quote_request", adminEmail, subject, body, "product", productName)
}

func (s *EmailService) send(ctx context.Context, kind, to, subject, body string, attrs ...any) error {
	if s.isDev {
		slog.Info("email sent (dev mode)", append([]any{"type", kind, "to", to, "subject", subject}, attrs...)...)
		return nil
	}

	if s.client == nil {
		return fmt.Errorf("email service not configured (missing RESEND_API_KEY)")
	}

	params := &resend.SendEmailRequest{
		From:    s.fromEmail,
		To:      []string{to},
		Subject: subject,
		Text:    body,
	}

	_, err := s.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return fmt.Errorf("send %s email: %w", kind, err)
	}

	slog.Info("email sent", "type", kind, "to", to)
	return nil
}
