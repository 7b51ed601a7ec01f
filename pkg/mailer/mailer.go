package mailer

import (
	"context"
	"fmt"
	"time"

	"github.com/suteetoe/cloudbook/pkg/logger"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// Sender delivers OTP codes to an address.
type Sender interface {
	SendOTP(ctx context.Context, to, code string) error
}

// Config holds SMTP relay settings
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	FromName string
	TTL      time.Duration
}

// SMTPSender sends mail through an authenticated SMTP relay.
type SMTPSender struct {
	config Config
	dialer *gomail.Dialer
}

// NewSMTPSender creates a sender for the given relay.
func NewSMTPSender(config Config) *SMTPSender {
	if config.FromName == "" {
		config.FromName = "CloudBook"
	}
	return &SMTPSender{
		config: config,
		dialer: gomail.NewDialer(config.Host, config.Port, config.User, config.Password),
	}
}

// SendOTP emails the plaintext code.
func (s *SMTPSender) SendOTP(ctx context.Context, to, code string) error {
	log := logger.FromStdContext(ctx)

	m := s.otpMessage(to, code)
	if err := s.dialer.DialAndSend(m); err != nil {
		log.Error("Failed to send OTP email", zap.String("to", to), zap.Error(err))
		return fmt.Errorf("send otp email: %w", err)
	}

	log.Info("OTP email sent", zap.String("to", to))
	return nil
}

func (s *SMTPSender) otpMessage(to, code string) *gomail.Message {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.config.User, s.config.FromName)
	m.SetHeader("To", to)
	m.SetHeader("Subject", "Your OTP Code")
	m.SetBody("text/html", otpBody(code, s.config.TTL))
	return m
}

func otpBody(code string, ttl time.Duration) string {
	minutes := int(ttl.Minutes())
	if minutes <= 0 {
		minutes = 2
	}
	unit := "minutes"
	if minutes == 1 {
		unit = "minute"
	}
	return fmt.Sprintf(`<p>Your OTP code is:</p>
<h2>%s</h2>
<p>This code is valid for %d %s.</p>`, code, minutes, unit)
}
