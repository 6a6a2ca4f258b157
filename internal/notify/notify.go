// Package notify holds the outbound messaging collaborators. Real transports
// live outside this system; these implementations log the message intent so
// staging environments can trace what would have been sent.
package notify

import (
	"context"
	"fmt"

	"github.com/rastromax/rastromax-backend/pkg/config"
	"github.com/rastromax/rastromax-backend/pkg/logger"
)

// EmailSender logs transactional emails instead of delivering them.
type EmailSender struct {
	from string
	logg *logger.Logger
}

// NewEmailSender builds the logging email sender.
func NewEmailSender(cfg config.MailConfig, logg *logger.Logger) (*EmailSender, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &EmailSender{from: cfg.FromEmail, logg: logg}, nil
}

// SendTemporaryPassword records that a temporary password email would be
// sent. The password itself is never logged.
func (s *EmailSender) SendTemporaryPassword(ctx context.Context, email, name, password string) error {
	ctx = s.logg.WithFields(ctx, map[string]any{
		"from": s.from,
		"to":   email,
		"kind": "temporary_password",
	})
	s.logg.Info(ctx, "outbound email queued")
	return nil
}

// SMSSender logs device activation commands instead of delivering them.
type SMSSender struct {
	senderID string
	logg     *logger.Logger
}

// NewSMSSender builds the logging SMS sender.
func NewSMSSender(cfg config.SMSConfig, logg *logger.Logger) (*SMSSender, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &SMSSender{senderID: cfg.SenderID, logg: logg}, nil
}

// SendActivationCommand records the activation command for a freshly
// provisioned tracker. Commands without a chip number cannot be routed and
// are reported as an error to the caller, which treats delivery as
// best-effort.
func (s *SMSSender) SendActivationCommand(ctx context.Context, identifier string, chipNumber *string) error {
	if chipNumber == nil || *chipNumber == "" {
		return fmt.Errorf("tracker %s has no chip number", identifier)
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"sender_id": s.senderID,
		"to":        *chipNumber,
		"command":   ActivationCommand(identifier),
	})
	s.logg.Info(ctx, "outbound sms queued")
	return nil
}

// ActivationCommand builds the text command a tracker expects after
// provisioning.
func ActivationCommand(identifier string) string {
	return fmt.Sprintf("BEGIN,%s,ACTIVATE#", identifier)
}
