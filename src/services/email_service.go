package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mailgun/mailgun-go/v4"
	"github.com/username/finflow/backend/src/config"
	"github.com/username/finflow/backend/src/logger"
)

const emailSendTimeout = 20 * time.Second

// NewEmailService picks the provider named by EMAIL_SERVICE_PROVIDER, falling back
// to the log-only mock when it is unknown or incompletely configured.
func NewEmailService(cfg *config.AppConfig) EmailService {
	provider := strings.ToLower(cfg.EmailServiceProvider)
	logger.L.Info("Initializing email service", "provider", provider)

	switch provider {
	case "mailgun":
		if cfg.MailgunDomain == "" || cfg.MailgunPrivateAPIKey == "" || cfg.SenderEmail == "" {
			logger.L.Warn("Mailgun configuration incomplete (Domain, API Key, or SenderEmail missing). Falling back to MockEmailService.")
			return &MockEmailService{}
		}
		mg := mailgun.NewMailgun(cfg.MailgunDomain, cfg.MailgunPrivateAPIKey)
		logger.L.Info("Mailgun client initialized", "domain", cfg.MailgunDomain)
		return &MailgunEmailService{
			mg:          mg,
			senderEmail: cfg.SenderEmail,
			senderName:  cfg.SenderName,
		}
	default:
		logger.L.Info("Defaulting to MockEmailService.")
		return &MockEmailService{}
	}
}

func welcomeBody(username string) string {
	return fmt.Sprintf(`Hi %s,

Welcome to FinFlow! Your account is ready. Add your first purchase to start
tracking your portfolio's value, profit and dividend yield.

Thanks,
The FinFlow Team`, username)
}

type MailgunEmailService struct {
	mg          mailgun.Mailgun
	senderEmail string
	senderName  string
}

func (s *MailgunEmailService) SendWelcomeEmail(ctx context.Context, toEmail, username string) error {
	from := fmt.Sprintf("%s <%s>", s.senderName, s.senderEmail)
	message := s.mg.NewMessage(from, "Welcome to FinFlow", welcomeBody(username), toEmail)
	message.AddTag("welcome")

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), emailSendTimeout)
	defer cancel()
	resp, id, err := s.mg.Send(ctx, message)
	if err != nil {
		logger.FromContext(ctx).Error("Failed to send welcome email via Mailgun", "error", err, "to", toEmail, "mailgunResp", resp)
		return fmt.Errorf("mailgun send failed: %w", err)
	}
	logger.FromContext(ctx).Info("Welcome email sent via Mailgun", "to", toEmail, "id", id)
	return nil
}

// MockEmailService only logs. Sent records the recipients, for tests.
type MockEmailService struct {
	mu   sync.Mutex
	Sent []string
}

func (m *MockEmailService) SendWelcomeEmail(ctx context.Context, toEmail, username string) error {
	logger.FromContext(ctx).Info("MockEmailService: Would send welcome email.", "to", toEmail, "username", username)
	m.mu.Lock()
	m.Sent = append(m.Sent, toEmail)
	m.mu.Unlock()
	return nil
}
