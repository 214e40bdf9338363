package smtp

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"

	"github.com/k-chan22/DeteXTB-System/internal/core/port"
	"github.com/k-chan22/DeteXTB-System/internal/infra/config"
	"github.com/k-chan22/DeteXTB-System/internal/infra/logger"
)

// Mailer delivers plain-text mail over SMTP with STARTTLS.
type Mailer struct {
	cfg config.SMTPSettings
	log *zap.Logger

	// sendMail is swappable for tests.
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewMailer constructs a Mailer from SMTP settings.
func NewMailer(cfg config.SMTPSettings, log *zap.Logger) *Mailer {
	return &Mailer{cfg: cfg, log: log, sendMail: smtp.SendMail}
}

// Send delivers a single plain-text message. The context deadline is not
// propagated into the SMTP dial; delivery is expected to be fast and callers
// treat failures as non-fatal where appropriate.
func (m *Mailer) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", m.cfg.From)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)

	if err := m.sendMail(addr, auth, m.cfg.From, []string{to}, []byte(msg.String())); err != nil {
		m.log.Warn("smtp delivery failed",
			zap.String("to", logger.MaskEmail(to)),
			zap.Error(err),
		)
		return fmt.Errorf("send mail: %w", err)
	}

	m.log.Info("mail sent",
		zap.String("to", logger.MaskEmail(to)),
		zap.String("subject", subject),
	)

	return nil
}

var _ port.Notifier = (*Mailer)(nil)
