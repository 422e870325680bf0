package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	syncapp "github.com/portal/backend/internal/application/sync"
	"github.com/portal/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// SMTPNotifier delivers admin notifications over plain SMTP. Delivery is
// best-effort by contract: callers log failures and move on.
type SMTPNotifier struct {
	cfg    config.NotifyConfig
	logger *zap.Logger
}

// NewSMTPNotifier creates a new SMTPNotifier
func NewSMTPNotifier(cfg config.NotifyConfig, logger *zap.Logger) *SMTPNotifier {
	return &SMTPNotifier{cfg: cfg, logger: logger}
}

// Notify sends one message to the given recipients. With notifications
// disabled it logs the message instead, so development environments see
// what would have gone out.
func (n *SMTPNotifier) Notify(ctx context.Context, recipients []string, subject, body string) error {
	if len(recipients) == 0 {
		recipients = n.cfg.Recipients
	}
	if len(recipients) == 0 {
		return fmt.Errorf("no notification recipients configured")
	}

	if !n.cfg.Enabled {
		n.logger.Info("Notification suppressed (disabled)",
			zap.Strings("recipients", recipients),
			zap.String("subject", subject),
		)
		return nil
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	msg := strings.Join([]string{
		"From: " + n.cfg.From,
		"To: " + strings.Join(recipients, ", "),
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		body,
	}, "\r\n")

	addr := fmt.Sprintf("%s:%d", n.cfg.SMTPHost, n.cfg.SMTPPort)
	var auth smtp.Auth
	if n.cfg.Username != "" {
		auth = smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.SMTPHost)
	}

	if err := smtp.SendMail(addr, auth, n.cfg.From, recipients, []byte(msg)); err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}

	n.logger.Info("Notification sent",
		zap.Strings("recipients", recipients),
		zap.String("subject", subject),
	)
	return nil
}

var _ syncapp.Notifier = (*SMTPNotifier)(nil)
