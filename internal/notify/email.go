package notify

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"time"

	brevo "github.com/getbrevo/brevo-go/lib"
)

// Email sends notifications at or above MinPriority through Brevo's
// transactional API. Lower priorities are dropped silently.
type Email struct {
	From        string
	To          string
	MinPriority Priority
	Timeout     time.Duration // per send; defaults to emailTimeout

	send func(ctx context.Context, e brevo.SendSmtpEmail) error
}

const emailTimeout = 10 * time.Second

func brevoConfig(apiKey string, timeout time.Duration) *brevo.Configuration {
	cfg := brevo.NewConfiguration()
	cfg.AddDefaultHeader("api-key", apiKey)
	cfg.HTTPClient = &http.Client{Timeout: timeout}
	return cfg
}

func NewEmail(apiKey, from, to string, min Priority) *Email {
	client := brevo.NewAPIClient(brevoConfig(apiKey, emailTimeout))
	return &Email{
		From:        from,
		To:          to,
		MinPriority: min,
		Timeout:     emailTimeout,
		send: func(ctx context.Context, e brevo.SendSmtpEmail) error {
			_, _, err := client.TransactionalEmailsApi.SendTransacEmail(ctx, e)
			return err
		},
	}
}

func (e *Email) Send(ctx context.Context, msg Message) error {
	if !msg.Priority.AtLeast(e.MinPriority) {
		return nil
	}
	email := brevo.SendSmtpEmail{
		Sender: &brevo.SendSmtpEmailSender{
			Name:  "linkwatch",
			Email: e.From,
		},
		To: []brevo.SendSmtpEmailTo{
			{Email: e.To},
		},
		Subject:     msg.Title,
		HtmlContent: fmt.Sprintf("<pre>%s</pre>", html.EscapeString(msg.Text)),
		TextContent: msg.Text,
	}
	timeout := e.Timeout
	if timeout <= 0 {
		timeout = emailTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := e.send(ctx, email); err != nil {
		return fmt.Errorf("brevo send: %w", err)
	}
	return nil
}
