package notification

import (
	"context"
	"fmt"
	"net/smtp"
	"time"

	"deals-portal/utils"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Address is a named mailbox
type Address struct {
	Name  string
	Email string
}

// Message is a rendered email ready for delivery
type Message struct {
	From    Address
	To      string
	Subject string
	HTML    string
}

// SendResult describes an accepted message
type SendResult struct {
	MessageID string
	SentAt    time.Time
}

// EmailSender delivers a single message
type EmailSender interface {
	SendEmail(ctx context.Context, msg Message) (SendResult, error)
}

// SendGridSender delivers through the SendGrid v3 API
type SendGridSender struct {
	client *sendgrid.Client
}

// NewSendGridSender creates a sender for apiKey
func NewSendGridSender(apiKey string) (*SendGridSender, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("SENDGRID_API_KEY is not set")
	}
	return &SendGridSender{client: sendgrid.NewSendClient(apiKey)}, nil
}

// SendEmail sends msg and treats any 4xx/5xx response as a failure
func (s *SendGridSender) SendEmail(ctx context.Context, msg Message) (SendResult, error) {
	from := mail.NewEmail(msg.From.Name, msg.From.Email)
	to := mail.NewEmail("", msg.To)
	email := mail.NewSingleEmail(from, msg.Subject, to, "", msg.HTML)

	resp, err := s.client.SendWithContext(ctx, email)
	if err != nil {
		return SendResult{}, fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 400 {
		return SendResult{}, fmt.Errorf("sendgrid send: status %d: %s", resp.StatusCode, resp.Body)
	}

	id := ""
	if ids := resp.Headers["X-Message-Id"]; len(ids) > 0 {
		id = ids[0]
	}
	return SendResult{MessageID: id, SentAt: time.Now().UTC()}, nil
}

// SMTPSender delivers through an SMTP relay with PLAIN auth
type SMTPSender struct {
	host     string
	port     string
	username string
	password string
}

// NewSMTPSender validates the relay settings
func NewSMTPSender(host, port, username, password string) (*SMTPSender, error) {
	switch {
	case host == "":
		return nil, fmt.Errorf("SMTP_HOST not set")
	case port == "":
		return nil, fmt.Errorf("SMTP_PORT not set")
	case username == "":
		return nil, fmt.Errorf("SMTP_USER not set")
	case password == "":
		return nil, fmt.Errorf("SMTP_PASS not set")
	}
	return &SMTPSender{host: host, port: port, username: username, password: password}, nil
}

// SendEmail sends msg as text/html. net/smtp has no context support, so ctx
// only short-circuits an already expired delivery.
func (s *SMTPSender) SendEmail(ctx context.Context, msg Message) (SendResult, error) {
	if err := ctx.Err(); err != nil {
		return SendResult{}, fmt.Errorf("smtp send: %w", err)
	}

	addr := s.host + ":" + s.port
	auth := smtp.PlainAuth("", s.username, s.password, s.host)
	from := msg.From.Email
	if msg.From.Name != "" {
		from = fmt.Sprintf("%q <%s>", msg.From.Name, msg.From.Email)
	}

	body := []byte(
		"From: " + from + "\r\n" +
			"To: " + msg.To + "\r\n" +
			"Subject: " + msg.Subject + "\r\n" +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/html; charset=UTF-8\r\n" +
			"\r\n" +
			msg.HTML,
	)

	if err := smtp.SendMail(addr, auth, msg.From.Email, []string{msg.To}, body); err != nil {
		return SendResult{}, fmt.Errorf("smtp send: %w", err)
	}
	return SendResult{
		MessageID: "smtp-" + utils.GenerateID(),
		SentAt:    time.Now().UTC(),
	}, nil
}

// LogSender only logs messages; used when no provider is configured
type LogSender struct{}

// SendEmail logs the envelope of msg
func (LogSender) SendEmail(_ context.Context, msg Message) (SendResult, error) {
	id := "log-" + utils.GenerateID()
	utils.Info("email not sent, log sender active", map[string]any{
		"message_id": id,
		"to":         msg.To,
		"subject":    msg.Subject,
	})
	return SendResult{MessageID: id, SentAt: time.Now().UTC()}, nil
}
