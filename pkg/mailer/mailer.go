package mailer

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/wneessen/go-mail"
)

// tls modes
const (
	TLSImplicit = "ssl"      // tls from the first byte, usually port 465
	TLSStart    = "starttls" // mandatory STARTTLS upgrade, usually port 587
	TLSNone     = "none"
)

// Message is a single html email with a plain-text alternative
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// SMTPConfig holds smtp connection parameters
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string // defaults to Username
	TLS      string
	Timeout  time.Duration
}

// SMTP sends messages through an authenticated smtp server
type SMTP struct {
	cfg SMTPConfig
}

// NewSMTP creates a new smtp sender
func NewSMTP(cfg SMTPConfig) (*SMTP, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if cfg.Port == 0 {
		cfg.Port = 465
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	if cfg.TLS == "" {
		cfg.TLS = TLSImplicit
	}
	switch cfg.TLS {
	case TLSImplicit, TLSStart, TLSNone:
	default:
		return nil, fmt.Errorf("unknown tls mode %q", cfg.TLS)
	}
	return &SMTP{cfg: cfg}, nil
}

// Send delivers the message, no retries
func (s *SMTP) Send(ctx context.Context, msg Message) error {
	m, err := s.buildMessage(msg)
	if err != nil {
		return err
	}

	client, err := mail.NewClient(s.cfg.Host, s.clientOptions()...)
	if err != nil {
		return fmt.Errorf("make smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	lgr.Printf("[DEBUG] sent %q to %s via %s:%d", msg.Subject, msg.To, s.cfg.Host, s.cfg.Port)
	return nil
}

func (s *SMTP) clientOptions() []mail.Option {
	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithSMTPAuth(s.authType()),
		mail.WithUsername(s.cfg.Username),
		mail.WithPassword(s.cfg.Password),
	}
	if s.cfg.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(s.cfg.Timeout))
	}
	switch s.cfg.TLS {
	case TLSImplicit:
		opts = append(opts, mail.WithSSL())
	case TLSStart:
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	case TLSNone:
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}
	return opts
}

// authType returns the PLAIN variant allowed for the tls mode, unencrypted connections need the no-enc one
func (s *SMTP) authType() mail.SMTPAuthType {
	if s.cfg.TLS == TLSNone {
		return mail.SMTPAuthPlainNoEnc
	}
	return mail.SMTPAuthPlain
}

// buildMessage makes the mime message, html body with plain-text alternative
func (s *SMTP) buildMessage(msg Message) (*mail.Msg, error) {
	if msg.To == "" {
		return nil, fmt.Errorf("recipient is required")
	}
	m := mail.NewMsg()
	if err := m.From(s.cfg.From); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", s.cfg.From, err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", msg.To, err)
	}
	m.Subject(msg.Subject)
	m.SetDate()
	m.SetBodyString(mail.TypeTextHTML, msg.HTML)
	if msg.Text != "" {
		m.AddAlternativeString(mail.TypeTextPlain, msg.Text)
	}
	return m, nil
}

// Writer "sends" messages by writing their html body to a writer, used for dry runs
type Writer struct {
	w io.Writer
}

// NewWriter makes a Writer dispatcher
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Send writes the html body
func (d *Writer) Send(_ context.Context, msg Message) error {
	if _, err := io.WriteString(d.w, msg.HTML); err != nil {
		return fmt.Errorf("write digest: %w", err)
	}
	lgr.Printf("[INFO] dry run, digest %q for %s written instead of sent", msg.Subject, msg.To)
	return nil
}
