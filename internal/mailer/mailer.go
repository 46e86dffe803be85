// Package mailer delivers adoption decision emails.
package mailer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/adoption-service/internal/config"
	"github.com/spec-kit/adoption-service/internal/domain"
)

const decisionTitle = "Adoption application notification !!!"

// Message is a single outgoing email.
type Message struct {
	ToEmail string
	ToName  string
	Title   string
	Body    string
}

// Sender delivers a message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// AdoptionDecision builds the email sent when an adoption is approved or rejected.
func AdoptionDecision(toEmail, toName, petName string, status domain.AdoptionStatus) Message {
	body := fmt.Sprintf("We're sorry to inform you that your adoption request for %q has been rejected. Feel free to browse other pets available for adoption.", petName)
	if status == domain.AdoptionStatusApproved {
		body = fmt.Sprintf("Great news! Your adoption request for %q has been approved. Please visit us to complete the adoption process.", petName)
	}
	return Message{
		ToEmail: toEmail,
		ToName:  toName,
		Title:   decisionTitle,
		Body:    body,
	}
}

// LogSender writes messages to the logger instead of delivering them.
type LogSender struct {
	logger *zap.Logger
	from   string
}

// NewLogSender creates a LogSender.
func NewLogSender(logger *zap.Logger, from string) *LogSender {
	return &LogSender{logger: logger, from: from}
}

func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.logger.Info("email",
		zap.String("from", s.from),
		zap.String("to", msg.ToEmail),
		zap.String("title", msg.Title),
		zap.String("body", msg.Body),
	)
	return nil
}

// NewFromConfig returns the Sender selected by cfg.Backend.
func NewFromConfig(cfg config.NotificationConfig, logger *zap.Logger) (Sender, error) {
	switch cfg.Backend {
	case config.NotifyBackendLog:
		return NewLogSender(logger, cfg.EmailFrom), nil
	case config.NotifyBackendEmailJS:
		return NewEmailJSSender(cfg), nil
	default:
		return nil, fmt.Errorf("unknown notification backend: %s", cfg.Backend)
	}
}
