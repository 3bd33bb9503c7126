package mailer

import (
	"errors"
	"testing"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/assert"
)

type fakeTransport struct {
	attempts int
	failures int
	lastMail *mail.SGMailV3
	err      error
}

func (f *fakeTransport) Send(email *mail.SGMailV3) (*rest.Response, error) {
	f.attempts++
	f.lastMail = email
	if f.err != nil {
		return nil, f.err
	}
	if f.attempts <= f.failures {
		return &rest.Response{StatusCode: 500}, nil
	}
	return &rest.Response{StatusCode: 202}, nil
}

func TestSendFailingTransportAttemptsExactlyThreeTimes(t *testing.T) {
	transport := &fakeTransport{err: errors.New("connection refused")}
	m := &SendGridMailer{client: transport, fromName: "CivicHero", fromEmail: "noreply@civichero.com"}

	ok := m.Send("user@example.com", "Report Received", "hello", "<p>hello</p>", &Options{Retries: 2})

	assert.False(t, ok)
	assert.Equal(t, 3, transport.attempts)
}

func TestSendNilOptionsDefaultsToTwoRetries(t *testing.T) {
	transport := &fakeTransport{err: errors.New("connection refused")}
	m := &SendGridMailer{client: transport, fromName: "CivicHero", fromEmail: "noreply@civichero.com"}

	ok := m.Send("user@example.com", "Report Received", "hello", "<p>hello</p>", nil)

	assert.False(t, ok)
	assert.Equal(t, DefaultRetries+1, transport.attempts)
}

func TestSendSucceedsOnFirstAttempt(t *testing.T) {
	transport := &fakeTransport{}
	m := &SendGridMailer{client: transport, fromName: "CivicHero", fromEmail: "noreply@civichero.com"}

	ok := m.Send("user@example.com", "Report Received", "hello", "<p>hello</p>", nil)

	assert.True(t, ok)
	assert.Equal(t, 1, transport.attempts)
}

func TestSendRetriesPastRejectedAttempts(t *testing.T) {
	transport := &fakeTransport{failures: 1}
	m := &SendGridMailer{client: transport, fromName: "CivicHero", fromEmail: "noreply@civichero.com"}

	ok := m.Send("user@example.com", "Report Received", "hello", "<p>hello</p>", &Options{Retries: 2})

	assert.True(t, ok)
	assert.Equal(t, 2, transport.attempts)
}

func TestSendDerivesTextBodyFromHTML(t *testing.T) {
	transport := &fakeTransport{}
	m := &SendGridMailer{client: transport, fromName: "CivicHero", fromEmail: "noreply@civichero.com"}

	ok := m.Send("user@example.com", "Report Resolved", "", "<div><b>Great news!</b> Your report is resolved.</div>", nil)

	assert.True(t, ok)
	var plain string
	for _, c := range transport.lastMail.Content {
		if c.Type == "text/plain" {
			plain = c.Value
		}
	}
	assert.Equal(t, "Great news! Your report is resolved.", plain)
}

func TestSendCarriesCCAndBCC(t *testing.T) {
	transport := &fakeTransport{}
	m := &SendGridMailer{client: transport, fromName: "CivicHero", fromEmail: "noreply@civichero.com"}

	ok := m.Send("user@example.com", "Report Received", "hi", "<p>hi</p>", &Options{
		CC:      []string{"cc@example.com"},
		BCC:     []string{"bcc@example.com"},
		Retries: 1,
	})

	assert.True(t, ok)
	p := transport.lastMail.Personalizations[0]
	assert.Len(t, p.CC, 1)
	assert.Equal(t, "cc@example.com", p.CC[0].Address)
	assert.Len(t, p.BCC, 1)
	assert.Equal(t, "bcc@example.com", p.BCC[0].Address)
}
