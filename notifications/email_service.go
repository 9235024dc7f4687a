package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/anjiri1684/talent_booking/configs"
	"github.com/anjiri1684/talent_booking/logging"
	"github.com/rs/zerolog"
)

const brevoEndpoint = "https://api.brevo.com/v3/smtp/email"

// BrevoService sends transactional email through the Brevo HTTP API.
type BrevoService struct {
	apiKey      string
	senderEmail string
	senderName  string
	endpoint    string
	httpClient  *http.Client
	logger      *zerolog.Logger
}

type brevoPayload struct {
	Sender      map[string]string   `json:"sender"`
	To          []map[string]string `json:"to"`
	Subject     string              `json:"subject"`
	HTMLContent string              `json:"htmlContent"`
}

func NewBrevoService(cfg configs.EmailConfig, logger *zerolog.Logger) *BrevoService {
	if logger == nil {
		logger = logging.Nop()
	}
	s := &BrevoService{
		apiKey:      cfg.BrevoAPIKey,
		senderEmail: cfg.Sender,
		senderName:  cfg.SenderName,
		endpoint:    brevoEndpoint,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		logger:      logger,
	}
	if !s.Enabled() {
		logger.Warn().Msg("email service not configured, notifications will be skipped")
	}
	return s
}

func (s *BrevoService) Enabled() bool {
	return s.apiKey != "" && s.senderEmail != "" && s.senderName != ""
}

// SendEmail delivers in the background; failures are logged, never returned.
func (s *BrevoService) SendEmail(toName, toEmail, subject, htmlContent string) {
	if !s.Enabled() {
		s.logger.Debug().Str("subject", subject).Msg("email client not configured, skipping send")
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := s.send(ctx, toName, toEmail, subject, htmlContent); err != nil {
			s.logger.Error().Err(err).Str("to", toEmail).Str("subject", subject).Msg("failed to send email")
			return
		}
		s.logger.Info().Str("to", toEmail).Str("subject", subject).Msg("email sent")
	}()
}

func (s *BrevoService) send(ctx context.Context, toName, toEmail, subject, htmlContent string) error {
	at := strings.Index(toEmail, "@")
	if at <= 0 {
		return fmt.Errorf("invalid recipient email: %s", toEmail)
	}
	if toName == "" {
		toName = toEmail[:at]
	}

	body, err := json.Marshal(brevoPayload{
		Sender:      map[string]string{"name": s.senderName, "email": s.senderEmail},
		To:          []map[string]string{{"email": toEmail, "name": toName}},
		Subject:     subject,
		HTMLContent: htmlContent,
	})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("api-key", s.apiKey)
	req.Header.Set("content-type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("brevo returned %d: %s", resp.StatusCode, string(raw))
	}
	return nil
}
