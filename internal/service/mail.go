package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// Mail is a single html email
type Mail struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type Mailer interface {
	Send(ctx context.Context, m Mail) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	From     string
	Password string
}

// SMTPMailer sends mail right away over SMTP
type SMTPMailer struct {
	cfg    SMTPConfig
	dialer *gomail.Dialer
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.From, cfg.Password),
	}
}

func (s *SMTPMailer) Send(ctx context.Context, m Mail) error {
	if m.To == s.cfg.From {
		return errors.New("invalid email address")
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", s.cfg.From)
	msg.SetHeader("To", m.To)
	msg.SetHeader("Subject", m.Subject)
	msg.SetBody("text/html", m.Body)

	if err := s.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send mail, %w", err)
	}

	return nil
}

// LogMailer only logs outgoing mail. Used when no SMTP host is configured.
type LogMailer struct{}

func (LogMailer) Send(_ context.Context, m Mail) error {
	zap.L().Info("Mail not sent, no SMTP host configured",
		zap.String("to", m.To),
		zap.String("subject", m.Subject))

	return nil
}

func VerificationMail(appName, to, code string) Mail {
	return Mail{
		To:      to,
		Subject: fmt.Sprintf("Your %s verification code", appName),
		Body: fmt.Sprintf("Your verification code is <b>%s</b>.<br><br>"+
			"The code will expire in 15 minutes. If you didn't create an account you can ignore this email.", code),
	}
}

func PasswordResetMail(appName, to, link string) Mail {
	return Mail{
		To:      to,
		Subject: fmt.Sprintf("Reset your %s password", appName),
		Body: fmt.Sprintf("Click <a href='%s'>here</a> to set a new password.<br><br>"+
			"This link will expire in 1 hour. If you didn't ask for a reset you can ignore this email.", link),
	}
}
