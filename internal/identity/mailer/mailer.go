// Package mailer delivers sign-in codes by email.
package mailer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/aussiebroadwan/identity/pkg/slogx"
)

// Config for SMTPMailer.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string

	// MaxRetries after the first attempt. Zero means 2.
	MaxRetries uint64
	// Backoff is the first retry delay, doubled each time. Zero means 500ms.
	Backoff time.Duration
}

var ErrNoHost = errors.New("mailer: smtp host not configured")

// SendFunc matches smtp.SendMail.
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer sends one HTML message per code through an SMTP relay.
type SMTPMailer struct {
	cfg  Config
	send SendFunc
}

func NewSMTPMailer(cfg Config) (*SMTPMailer, error) {
	if cfg.Host == "" {
		return nil, ErrNoHost
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 2
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 500 * time.Millisecond
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	return &SMTPMailer{cfg: cfg, send: smtp.SendMail}, nil
}

// WithSendFunc swaps the transport, for tests.
func (m *SMTPMailer) WithSendFunc(fn SendFunc) *SMTPMailer {
	m.send = fn
	return m
}

// Send mails code to the recipient, retrying transient failures with
// exponential backoff. A rejected recipient or auth failure is not retried.
func (m *SMTPMailer) Send(ctx context.Context, to, code, expiresIn string) error {
	msg, err := Compose(m.cfg.From, to, code, expiresIn)
	if err != nil {
		return err
	}

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))

	backoff := retry.WithMaxRetries(m.cfg.MaxRetries, retry.NewExponential(m.cfg.Backoff))
	attempt := 0
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := m.send(addr, auth, m.cfg.From, []string{to}, msg); err != nil {
			slogx.FromContext(ctx).Warn("smtp send failed",
				slog.Int("attempt", attempt),
				slog.Any("error", err),
			)
			if permanent(err) {
				return fmt.Errorf("smtp send: %w", err)
			}
			return retry.RetryableError(fmt.Errorf("smtp send: %w", err))
		}
		return nil
	})
}

// permanent reports a 5xx SMTP reply.
func permanent(err error) bool {
	var tpe interface{ Temporary() bool }
	if errors.As(err, &tpe) && tpe.Temporary() {
		return false
	}
	msg := err.Error()
	return len(msg) >= 3 && msg[0] == '5' && msg[1] >= '0' && msg[1] <= '9' && msg[2] >= '0' && msg[2] <= '9'
}

// Subject is the subject line for a code.
func Subject(code string) string {
	return "Sign In Confirmation Code: " + code
}

var body = template.Must(template.New("otp").Parse(`<!doctype html>
<html>
<body style="font-family: sans-serif">
<p>Use the following code to finish signing in:</p>
<p style="font-size: 28px; font-weight: bold; letter-spacing: 4px">{{.Code}}</p>
<p>This code expires in {{.ExpiresIn}}. If you did not try to sign in, you can ignore this email.</p>
</body>
</html>
`))

// Compose builds the RFC 5322 message.
func Compose(from, to, code, expiresIn string) ([]byte, error) {
	if strings.ContainsAny(to, "\r\n") || strings.ContainsAny(from, "\r\n") {
		return nil, fmt.Errorf("mailer: invalid address")
	}

	var html bytes.Buffer
	if err := body.Execute(&html, struct{ Code, ExpiresIn string }{code, expiresIn}); err != nil {
		return nil, fmt.Errorf("mailer: render body: %w", err)
	}

	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", Subject(code))
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().UTC().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.Write(bytes.ReplaceAll(html.Bytes(), []byte("\n"), []byte("\r\n")))
	return b.Bytes(), nil
}

// LogMailer writes codes to the log instead of sending them. Development only.
type LogMailer struct {
	Logger *slog.Logger
}

func (m LogMailer) Send(ctx context.Context, to, code, expiresIn string) error {
	l := m.Logger
	if l == nil {
		l = slogx.FromContext(ctx)
	}
	l.Warn("sign-in code (log mailer, not delivered)",
		slog.String("to", to),
		slog.String("code", code),
		slog.String("expires_in", expiresIn),
	)
	return nil
}
