package mail

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"
)

type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string

	// Public base URL of this service, used to build the links in messages
	AppBaseURL string
}

// SMTPSender delivers messages over plain SMTP
type SMTPSender struct {
	cfg SMTPConfig
}

func NewSMTPSender(cfg SMTPConfig) (*SMTPSender, error) {
	if cfg.Host == "" || cfg.Port == "" || cfg.From == "" {
		return nil, errors.New("smtp host, port and from address must be set")
	}

	cfg.AppBaseURL = strings.TrimRight(cfg.AppBaseURL, "/")

	return &SMTPSender{cfg: cfg}, nil
}

func (s *SMTPSender) SendEmailConfirmation(ctx context.Context, to string, username string, token string) error {
	link := fmt.Sprintf("%s/users/confirmed_email/%s", s.cfg.AppBaseURL, token)
	body := fmt.Sprintf(
		"Hi %s,\r\n\r\nConfirm your email by following the link below:\r\n%s\r\n",
		username, link,
	)

	return s.send(ctx, to, "Confirm your email", body)
}

func (s *SMTPSender) SendPasswordReset(ctx context.Context, to string, username string, token string) error {
	link := fmt.Sprintf("%s/users/reset_password/%s", s.cfg.AppBaseURL, token)
	body := fmt.Sprintf(
		"Hi %s,\r\n\r\nReset your password by following the link below (valid for 15 minutes):\r\n%s\r\n",
		username, link,
	)

	return s.send(ctx, to, "Reset password", body)
}

func (s *SMTPSender) send(ctx context.Context, to string, subject string, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	from := s.cfg.From
	if s.cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.cfg.FromName, s.cfg.From)
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s", from, to, subject, body)

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	addr := fmt.Sprintf("%s:%s", s.cfg.Host, s.cfg.Port)
	if err := smtp.SendMail(addr, auth, s.cfg.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("smtp send failed. Err: %w", err)
	}

	return nil
}
