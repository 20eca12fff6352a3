package notify

import (
	"context"
	"errors"
	"fmt"
	"net/mail"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

const sendgridHost = "https://api.sendgrid.com"

var (
	ErrMailKeyMissing       = errors.New("sendgrid api key is not set")
	ErrInvalidMailSender    = errors.New("invalid mail sender")
	ErrInvalidMailRecipient = errors.New("invalid mail recipient")
)

// MailConfig configures end-of-run reports
type MailConfig struct {
	APIKey  string
	From    string
	ErrorTo string
	DebugTo string
	Prefix  string
	// Host overrides the SendGrid API host
	Host string
}

// Enabled reports whether any report can be sent
func (c MailConfig) Enabled() bool {
	return c.APIKey != "" && c.From != "" && (c.ErrorTo != "" || c.DebugTo != "")
}

// Mailer sends the run reports through SendGrid
type Mailer struct {
	cfg MailConfig
}

// NewMailer validates cfg
func NewMailer(cfg MailConfig) (*Mailer, error) {
	if cfg.APIKey == "" {
		return nil, ErrMailKeyMissing
	}
	if _, err := mail.ParseAddress(cfg.From); err != nil {
		return nil, ErrInvalidMailSender
	}
	for _, to := range []string{cfg.ErrorTo, cfg.DebugTo} {
		if to == "" {
			continue
		}
		if _, err := mail.ParseAddress(to); err != nil {
			return nil, ErrInvalidMailRecipient
		}
	}
	if cfg.Host == "" {
		cfg.Host = sendgridHost
	}
	return &Mailer{cfg: cfg}, nil
}

// SendFailure mails the errors and trail of a failed run to the error
// recipient, copying the debug recipient
func (m *Mailer) SendFailure(ctx context.Context, errorsText, trail string) error {
	to, cc := m.cfg.ErrorTo, m.cfg.DebugTo
	if to == "" {
		to, cc = cc, ""
	}
	if to == "" {
		return nil
	}
	body := fmt.Sprintf("The following errors were found:\n\n%s\n\nLog trail is:\n\n%s", errorsText, trail)
	return m.send(ctx, "Error caught while processing a Google Drive update", to, cc, body)
}

// SendTrail mails the trail of a finished run to the debug recipient
func (m *Mailer) SendTrail(ctx context.Context, trail string) error {
	if m.cfg.DebugTo == "" {
		return nil
	}
	body := fmt.Sprintf("The process log is:\n\n%s", trail)
	return m.send(ctx, "Finished processing a Google Drive update", m.cfg.DebugTo, "", body)
}

func (m *Mailer) send(ctx context.Context, subject, to, cc, body string) error {
	message := sgmail.NewV3Mail()
	message.SetFrom(address(m.cfg.From))
	message.Subject = m.cfg.Prefix + subject

	p := sgmail.NewPersonalization()
	p.AddTos(address(to))
	if cc != "" && cc != to {
		p.AddCCs(address(cc))
	}
	message.AddPersonalizations(p)
	message.AddContent(sgmail.NewContent("text/plain", body))

	request := sendgrid.GetRequest(m.cfg.APIKey, "/v3/mail/send", m.cfg.Host)
	request.Method = "POST"
	request.Body = sgmail.GetRequestBody(message)

	resp, err := sendgrid.MakeRequestWithContext(ctx, request)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("failed to send email: status %d", resp.StatusCode)
	}
	return nil
}

func address(s string) *sgmail.Email {
	if a, err := mail.ParseAddress(s); err == nil {
		return sgmail.NewEmail(a.Name, a.Address)
	}
	return sgmail.NewEmail("", s)
}
