package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const siteVerifyURL = "https://www.google.com/recaptcha/api/siteverify"

// CaptchaVerifier validates a client-side captcha token. Injectable so
// handler tests can stub verification.
type CaptchaVerifier interface {
	Verify(ctx context.Context, token string) (bool, error)
}

type googleCaptcha struct {
	secret string
	client *http.Client
}

// NewGoogleCaptcha returns a verifier backed by the reCAPTCHA siteverify
// endpoint.
func NewGoogleCaptcha(secret string) CaptchaVerifier {
	return &googleCaptcha{
		secret: secret,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (g *googleCaptcha) Verify(ctx context.Context, token string) (bool, error) {
	form := url.Values{
		"secret":   {g.secret},
		"response": {token},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, siteVerifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	var body struct {
		Success bool `json:"success"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, err
	}
	return body.Success, nil
}
