package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spec-kit/adoption-service/internal/config"
)

// EmailJSSender posts messages to the EmailJS REST API.
type EmailJSSender struct {
	http       *http.Client
	url        string
	serviceID  string
	templateID string
	publicKey  string
	privateKey string
}

// NewEmailJSSender creates a sender bounded by cfg.Timeout().
func NewEmailJSSender(cfg config.NotificationConfig) *EmailJSSender {
	return &EmailJSSender{
		http:       &http.Client{Timeout: cfg.Timeout()},
		url:        cfg.EmailJSURL,
		serviceID:  cfg.EmailJSService,
		templateID: cfg.EmailJSTemplate,
		publicKey:  cfg.EmailJSPublic,
		privateKey: cfg.EmailJSPrivate,
	}
}

type emailJSRequest struct {
	ServiceID      string            `json:"service_id"`
	TemplateID     string            `json:"template_id"`
	UserID         string            `json:"user_id"`
	AccessToken    string            `json:"accessToken,omitempty"`
	TemplateParams map[string]string `json:"template_params"`
}

// SendError reports a non-2xx EmailJS response.
type SendError struct {
	StatusCode int
	Body       string
}

func (e *SendError) Error() string {
	return fmt.Sprintf("emailjs: status=%d body=%s", e.StatusCode, e.Body)
}

func (s *EmailJSSender) Send(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(emailJSRequest{
		ServiceID:   s.serviceID,
		TemplateID:  s.templateID,
		UserID:      s.publicKey,
		AccessToken: s.privateKey,
		// "tittle" is the variable name used by the deployed template.
		TemplateParams: map[string]string{
			"tittle":  msg.Title,
			"email":   msg.ToEmail,
			"name":    msg.ToName,
			"message": msg.Body,
		},
	})
	if err != nil {
		return fmt.Errorf("emailjs: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("emailjs: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("emailjs: do request: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &SendError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	return nil
}
