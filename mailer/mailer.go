package mailer

import (
	"regexp"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	"github.com/civichero/civichero-api/config"
)

// DefaultRetries is how many times a failed send is retried before
// giving up.
const DefaultRetries = 2

var tagPattern = regexp.MustCompile(`<[^>]+>`)

// Options tweaks a single send. A nil Options means no CC/BCC and
// DefaultRetries.
type Options struct {
	CC      []string
	BCC     []string
	Retries int
}

// Sender delivers a notification email. Implementations report success
// with a bool rather than an error because callers treat delivery as
// best-effort and never fail the request over it.
type Sender interface {
	Send(to, subject, textBody, htmlBody string, opts *Options) bool
}

// transport is the slice of the sendgrid client the mailer uses,
// extracted so tests can count attempts.
type transport interface {
	Send(email *mail.SGMailV3) (*rest.Response, error)
}

// SendGridMailer sends email through sendgrid.
type SendGridMailer struct {
	client    transport
	fromName  string
	fromEmail string
}

// New creates a mailer from the app config.
func New(conf *config.Config) *SendGridMailer {
	return &SendGridMailer{
		client:    sendgrid.NewSendClient(conf.SendgridAPIKey),
		fromName:  conf.EmailFromName,
		fromEmail: conf.EmailFrom,
	}
}

// Send delivers one email, retrying failed attempts sequentially. With
// Retries set to n the message is attempted n+1 times. When textBody is
// empty a plain-text fallback is derived from the HTML body by stripping
// tags.
func (m *SendGridMailer) Send(to, subject, textBody, htmlBody string, opts *Options) bool {
	if opts == nil {
		opts = &Options{Retries: DefaultRetries}
	}

	if textBody == "" {
		textBody = tagPattern.ReplaceAllString(htmlBody, "")
	}

	message := m.build(to, subject, textBody, htmlBody, opts)

	attempts := opts.Retries + 1
	for attempt := 1; attempt <= attempts; attempt++ {
		resp, err := m.client.Send(message)
		if err == nil && resp != nil && resp.StatusCode >= 200 && resp.StatusCode < 300 {
			zap.S().Infow("email sent",
				"to", to,
				"subject", subject,
				"attempt", attempt,
			)
			return true
		}
		if err != nil {
			zap.S().Warnw("email send failed",
				"to", to,
				"subject", subject,
				"attempt", attempt,
				"error", err,
			)
		} else {
			zap.S().Warnw("email send rejected",
				"to", to,
				"subject", subject,
				"attempt", attempt,
				"status", resp.StatusCode,
			)
		}
	}

	zap.S().Errorw("email delivery gave up",
		"to", to,
		"subject", subject,
		"attempts", attempts,
	)
	return false
}

func (m *SendGridMailer) build(to, subject, textBody, htmlBody string, opts *Options) *mail.SGMailV3 {
	from := mail.NewEmail(m.fromName, m.fromEmail)
	message := mail.NewSingleEmail(from, subject, mail.NewEmail("", to), textBody, htmlBody)

	p := message.Personalizations[0]
	for _, cc := range opts.CC {
		p.AddCCs(mail.NewEmail("", cc))
	}
	for _, bcc := range opts.BCC {
		p.AddBCCs(mail.NewEmail("", bcc))
	}
	return message
}
