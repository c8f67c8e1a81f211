package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/finpro/contact-search-api/internal/config"
)

// EmailSender delivers transactional email
type EmailSender interface {
	SendVerification(ctx context.Context, to, link string) error
}

// resendSender delivers email through the Resend HTTP API
type resendSender struct {
	cfg    *config.EmailConfig
	client *http.Client
}

func newResendSender(cfg *config.EmailConfig) *resendSender {
	return &resendSender{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *resendSender) SendVerification(ctx context.Context, to, link string) error {
	if s.cfg.ResendAPIKey == "" {
		return fmt.Errorf("email sending is not configured")
	}

	html := fmt.Sprintf(
		`<p>Thanks for registering with FINPRO.</p>`+
			`<p>Please confirm your email address by clicking the link below:</p>`+
			`<p><a href="%s">Verify email</a></p>`+
			`<p>If you did not request this, you can ignore this message.</p>`,
		link,
	)

	payload := map[string]interface{}{
		"from":    s.cfg.FromAddress,
		"to":      []string{to},
		"subject": "Verify your email address",
		"html":    html,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.resend.com/emails", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build email request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.ResendAPIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("email provider returned status %d", resp.StatusCode)
	}
	return nil
}
