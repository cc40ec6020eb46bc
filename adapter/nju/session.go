package nju

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	_ "image/gif"
	_ "image/jpeg"

	"github.com/PuerkitoBio/goquery"

	"campuscal/adapter"
	"campuscal/fetch"
)

// loginSession holds one scraped CAS login form together with the cookie
// jar it was served into. The captcha shown to the visitor is only valid
// for this jar, so both travel together.
type loginSession struct {
	mu      sync.Mutex
	cas     cas
	name    string
	client  *http.Client
	fields  url.Values
	salt    string
	captcha []byte
	done    bool
}

// newLoginSession fetches the CAS login page, scrapes its hidden form
// fields and downloads a captcha bound to the fresh cookie jar.
func newLoginSession(ctx context.Context, c cas, adapterName string) (*loginSession, error) {
	client, err := fetch.NewClientNoRedirect()
	if err != nil {
		return nil, err
	}

	s := &loginSession{cas: c, name: adapterName, client: client}
	if err := s.scrapeForm(ctx); err != nil {
		return nil, err
	}
	if err := s.fetchCaptcha(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *loginSession) scrapeForm(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cas.loginURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetching login page: %w", err)
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return fmt.Errorf("parsing login page: %w", err)
	}

	s.fields = url.Values{}
	doc.Find("#casLoginForm input").Each(func(_ int, sel *goquery.Selection) {
		key, ok := sel.Attr("name")
		if !ok {
			key, ok = sel.Attr("id")
		}
		if !ok || key == "" {
			return
		}
		value, _ := sel.Attr("value")
		if key == "pwdDefaultEncryptSalt" {
			s.salt = value
			return
		}
		s.fields.Set(key, value)
	})

	if s.salt == "" {
		return &adapter.ScrapeError{Page: "cas login page", Missing: "pwdDefaultEncryptSalt"}
	}
	if len(s.fields) == 0 {
		return &adapter.ScrapeError{Page: "cas login page", Missing: "#casLoginForm inputs"}
	}
	return nil
}

// fetchCaptcha downloads the challenge and re-encodes it as PNG so the
// frontend can serve one content type regardless of what CAS emitted.
func (s *loginSession) fetchCaptcha(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cas.captchaURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetching captcha: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading captcha: %w", err)
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return &adapter.ScrapeError{Page: "cas captcha", Missing: "decodable image"}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("encoding captcha: %w", err)
	}
	s.captcha = buf.Bytes()
	return nil
}

func (s *loginSession) Captcha() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.captcha
}

// Login submits the scraped form. A portal rejection returns
// *adapter.RejectedError and leaves the session usable for another
// attempt; a success spends the session.
func (s *loginSession) Login(ctx context.Context, username, password, captchaAnswer string) (adapter.Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done {
		return adapter.Credentials{}, fmt.Errorf("login session already completed")
	}

	encrypted, err := EncryptPassword(password, s.salt)
	if err != nil {
		return adapter.Credentials{}, err
	}

	form := url.Values{}
	for key := range s.fields {
		form.Set(key, s.fields.Get(key))
	}
	form.Set("username", username)
	form.Set("password", encrypted)
	form.Set("captchaResponse", captchaAnswer)
	form.Set("dllt", "mobileLogin")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cas.loginURL, strings.NewReader(form.Encode()))
	if err != nil {
		return adapter.Credentials{}, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := s.client.Do(req)
	if err != nil {
		return adapter.Credentials{}, fmt.Errorf("submitting login: %w", err)
	}
	defer resp.Body.Close()

	for _, c := range resp.Cookies() {
		if c.Name == "CASTGC" && c.Value != "" {
			s.done = true
			return adapter.Credentials{Adapter: s.name, Token: c.Value}, nil
		}
	}

	reason, err := rejectionReason(resp.Body)
	if err != nil {
		return adapter.Credentials{}, err
	}
	return adapter.Credentials{}, &adapter.RejectedError{Reason: reason}
}

// rejectionReason scrapes the portal's error banner out of a failed login
// response.
func rejectionReason(body io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return "", fmt.Errorf("parsing login response: %w", err)
	}
	reason := strings.TrimSpace(doc.Find("#casLoginForm span.auth_error").Text())
	if reason == "" {
		reason = strings.TrimSpace(doc.Find("#msg1").Text())
	}
	if reason == "" {
		return "", &adapter.ScrapeError{Page: "cas login response", Missing: "rejection reason"}
	}
	return reason, nil
}
