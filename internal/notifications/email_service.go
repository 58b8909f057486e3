package notifications

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"html/template"
	"log"
	"net/smtp"
	"os"
	"strconv"
	"time"
)

// EmailService interface for sending booking emails
type EmailService interface {
	SendBookingConfirmation(ctx context.Context, email BookingEmail) error
	SendBookingCancellation(ctx context.Context, email BookingEmail) error
}

// BookingEmail carries everything a booking email template needs.
type BookingEmail struct {
	RecipientEmail string
	RecipientName  string
	BookingID      string
	FieldName      string
	Date           string
	Interval       string
	Amount         int64
	MethodLabel    string
	Reason         string
}

// SMTPConfig holds SMTP configuration
type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromEmail string
	FromName  string
	UseTLS    bool
	Timeout   time.Duration
}

// NewSMTPConfigFromEnv creates SMTP config from environment variables
func NewSMTPConfigFromEnv() *SMTPConfig {
	port, _ := strconv.Atoi(os.Getenv("SMTP_PORT"))
	if port == 0 {
		port = 587
	}

	timeout, _ := time.ParseDuration(os.Getenv("SMTP_TIMEOUT"))
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &SMTPConfig{
		Host:      os.Getenv("SMTP_HOST"),
		Port:      port,
		Username:  os.Getenv("SMTP_USERNAME"),
		Password:  os.Getenv("SMTP_PASSWORD"),
		FromEmail: os.Getenv("FROM_EMAIL"),
		FromName:  "SportZone",
		UseTLS:    true,
		Timeout:   timeout,
	}
}

// IsConfigured reports whether enough settings exist to reach a server.
func (c *SMTPConfig) IsConfigured() bool {
	return c != nil && c.Host != "" && c.Username != "" && c.FromEmail != ""
}

// SMTPEmailService is a real SMTP implementation of the EmailService interface
type SMTPEmailService struct {
	config    *SMTPConfig
	templates map[string]*template.Template
}

// NewSMTPEmailService creates a new SMTP email service
func NewSMTPEmailService(config *SMTPConfig) (*SMTPEmailService, error) {
	if !config.IsConfigured() {
		return nil, fmt.Errorf("SMTP configuration incomplete")
	}

	service := &SMTPEmailService{
		config:    config,
		templates: make(map[string]*template.Template),
	}
	service.loadDefaultTemplates()
	return service, nil
}

// SendBookingConfirmation sends the confirmation email for a paid booking.
func (s *SMTPEmailService) SendBookingConfirmation(ctx context.Context, email BookingEmail) error {
	subject := fmt.Sprintf("Booking confirmed: %s on %s", email.FieldName, email.Date)
	return s.sendTemplate(ctx, email, "booking_confirmed", subject)
}

// SendBookingCancellation sends the cancellation notice.
func (s *SMTPEmailService) SendBookingCancellation(ctx context.Context, email BookingEmail) error {
	subject := fmt.Sprintf("Booking cancelled: %s on %s", email.FieldName, email.Date)
	return s.sendTemplate(ctx, email, "booking_cancelled", subject)
}

func (s *SMTPEmailService) sendTemplate(_ context.Context, email BookingEmail, templateName, subject string) error {
	tmpl, exists := s.templates[templateName]
	if !exists {
		return fmt.Errorf("template %s not found", templateName)
	}

	var htmlBuf bytes.Buffer
	if err := tmpl.Execute(&htmlBuf, email); err != nil {
		return fmt.Errorf("failed to execute email template: %w", err)
	}

	message := s.buildMessage(email.RecipientEmail, subject, htmlBuf.String())
	auth := smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	var err error
	if s.config.UseTLS {
		err = s.sendWithSTARTTLS(addr, auth, email.RecipientEmail, message)
	} else {
		err = smtp.SendMail(addr, auth, s.config.FromEmail, []string{email.RecipientEmail}, message)
	}
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	log.Printf("📧 [SMTP] Email sent successfully to %s", email.RecipientEmail)
	return nil
}

// sendWithSTARTTLS sends email with STARTTLS encryption
func (s *SMTPEmailService) sendWithSTARTTLS(addr string, auth smtp.Auth, to string, message []byte) error {
	client, err := smtp.Dial(addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer client.Quit()

	tlsconfig := &tls.Config{
		ServerName: s.config.Host,
	}
	if err = client.StartTLS(tlsconfig); err != nil {
		return fmt.Errorf("failed to start TLS: %w", err)
	}

	if auth != nil {
		if err = client.Auth(auth); err != nil {
			return fmt.Errorf("failed to authenticate: %w", err)
		}
	}

	if err = client.Mail(s.config.FromEmail); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	if err = client.Rcpt(to); err != nil {
		return fmt.Errorf("failed to set recipient: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to get data writer: %w", err)
	}
	if _, err = w.Write(message); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return w.Close()
}

// buildMessage creates the email message with proper headers
func (s *SMTPEmailService) buildMessage(to, subject, htmlBody string) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s <%s>\r\n", s.config.FromName, s.config.FromEmail)
	fmt.Fprintf(&buf, "To: %s\r\n", to)
	fmt.Fprintf(&buf, "Subject: %s\r\n", subject)
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(htmlBody)
	return buf.Bytes()
}

func (s *SMTPEmailService) loadDefaultTemplates() {
	s.templates["booking_confirmed"] = template.Must(template.New("booking_confirmed").Parse(`
<h2>Your booking is confirmed 🎉</h2>
<p>Hi {{.RecipientName}},</p>
<p>Your booking at <strong>{{.FieldName}}</strong> on <strong>{{.Date}}</strong>
({{.Interval}}) is confirmed.</p>
<p>Paid: {{.Amount}} VND via {{.MethodLabel}}.</p>
<p>Booking reference: {{.BookingID}}</p>
`))

	s.templates["booking_cancelled"] = template.Must(template.New("booking_cancelled").Parse(`
<h2>Your booking was cancelled</h2>
<p>Hi {{.RecipientName}},</p>
<p>Your booking at <strong>{{.FieldName}}</strong> on <strong>{{.Date}}</strong>
({{.Interval}}) was cancelled.</p>
{{if .Reason}}<p>Reason: {{.Reason}}</p>{{end}}
<p>Booking reference: {{.BookingID}}</p>
`))
}

// NoopEmailService drops every email; used when SMTP is not configured.
type NoopEmailService struct{}

func (NoopEmailService) SendBookingConfirmation(context.Context, BookingEmail) error {
	return nil
}

func (NoopEmailService) SendBookingCancellation(context.Context, BookingEmail) error {
	return nil
}
