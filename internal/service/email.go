package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lunia-labs/whatsapp-assistant/pkg/logger"
)

// EmailClient sends plain-text email over SMTP with STARTTLS.
type EmailClient struct {
	server   string
	port     int
	user     string
	password string
	logger   *logger.Logger
}

// NewEmailClient creates an SMTP email client. All four settings are
// required.
func NewEmailClient(server string, port int, user, password string, log *logger.Logger) (*EmailClient, error) {
	if server == "" || port == 0 || user == "" || password == "" {
		return nil, errors.New("incomplete SMTP configuration")
	}
	return &EmailClient{
		server:   server,
		port:     port,
		user:     user,
		password: password,
		logger:   log,
	}, nil
}

// Send delivers a plain-text email. cc and bcc may be nil.
func (c *EmailClient) Send(ctx context.Context, to, subject, body string, cc, bcc []string) error {
	addr := fmt.Sprintf("%s:%d", c.server, c.port)

	dialer := &net.Dialer{Timeout: 15 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to dial SMTP server: %w", err)
	}

	client, err := smtp.NewClient(conn, c.server)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(nil); err != nil {
			return fmt.Errorf("STARTTLS failed: %w", err)
		}
	}

	auth := smtp.PlainAuth("", c.user, c.password, c.server)
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("SMTP auth failed: %w", err)
	}

	if err := client.Mail(c.user); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}

	recipients := append([]string{to}, cc...)
	recipients = append(recipients, bcc...)
	for _, rcpt := range recipients {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("RCPT TO %s failed: %w", rcpt, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("DATA failed: %w", err)
	}
	if _, err := w.Write([]byte(c.buildMessage(to, subject, body, cc))); err != nil {
		w.Close()
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finish message: %w", err)
	}

	if err := client.Quit(); err != nil {
		c.logger.Warn("SMTP quit failed", zap.Error(err))
	}

	c.logger.Info("email sent", zap.String("to", to))
	return nil
}

func (c *EmailClient) buildMessage(to, subject, body string, cc []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", c.user)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	if len(cc) > 0 {
		fmt.Fprintf(&b, "Cc: %s\r\n", strings.Join(cc, ", "))
	}
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return b.String()
}
