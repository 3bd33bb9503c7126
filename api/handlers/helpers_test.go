package handlers_test

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/civichero/civichero-api/api"
	"github.com/civichero/civichero-api/mailer"
)

type sentMail struct {
	to      string
	subject string
	html    string
}

// fakeSender records outgoing mail instead of hitting sendgrid
type fakeSender struct {
	result bool
	sent   []sentMail
}

func (f *fakeSender) Send(to, subject, textBody, htmlBody string, opts *mailer.Options) bool {
	f.sent = append(f.sent, sentMail{to: to, subject: subject, html: htmlBody})
	return f.result
}

type fakeVerifier struct {
	ok  bool
	err error
}

func (f fakeVerifier) Verify(_ context.Context, _ string) (bool, error) {
	return f.ok, f.err
}

func newMultipartRequest(t *testing.T, method, target string, fields map[string]string) *http.Request {
	t.Helper()

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}

	req, err := http.NewRequest(method, target, body)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func withCaller(req *http.Request, id primitive.ObjectID, role string) *http.Request {
	return req.WithContext(api.ContextWithCaller(req.Context(), api.Caller{ID: id, Role: role}))
}
