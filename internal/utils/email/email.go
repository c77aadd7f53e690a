package email

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/Dan9191/ledger-service/internal/config"
	"github.com/Dan9191/ledger-service/internal/models"
	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"
)

// Sender handles sending emails via SMTP
type Sender struct {
	cfg    *config.Config
	logger *logrus.Logger
	send   func(e *email.Email, addr string, auth smtp.Auth) error
}

// NewSender creates a new email sender
func NewSender(cfg *config.Config, logger *logrus.Logger) *Sender {
	return &Sender{
		cfg:    cfg,
		logger: logger,
		send: func(e *email.Email, addr string, auth smtp.Auth) error {
			return e.Send(addr, auth)
		},
	}
}

// FeedErrorReport builds the message telling an owner which bank feeds
// stopped syncing.
func FeedErrorReport(from, to, username string, conns []models.FeedConnection) *email.Email {
	e := email.NewEmail()
	e.From = from
	e.To = []string{to}
	if len(conns) == 1 {
		e.Subject = "A bank feed needs your attention"
	} else {
		e.Subject = fmt.Sprintf("%d bank feeds need your attention", len(conns))
	}

	var body strings.Builder
	fmt.Fprintf(&body, "Dear %s,\n\n", username)
	body.WriteString("The following bank connections failed to sync and are paused until they recover:\n\n")
	for _, c := range conns {
		institution := c.InstitutionName
		if institution == "" {
			institution = models.DefaultInstitutionName
		}
		fmt.Fprintf(&body, "  - %s (connection %d): %s\n", institution, c.ID, c.ErrorMessage)
	}
	body.WriteString("\nThey will be retried automatically. If the problem persists, reconnect the bank.\n")
	body.WriteString("\nBest regards,\nLedger Service")
	e.Text = []byte(body.String())
	return e
}

// SendFeedErrorReport emails an owner the list of their errored connections
func (s *Sender) SendFeedErrorReport(to, username string, conns []models.FeedConnection) error {
	e := FeedErrorReport(s.cfg.SenderEmail, to, username, conns)

	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	auth := smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	if err := s.send(e, addr, auth); err != nil {
		s.logger.Errorf("Failed to send feed error report to %s: %v", to, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Infof("Email sent to %s: %s", to, e.Subject)
	return nil
}
