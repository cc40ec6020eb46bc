package nju

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"campuscal/adapter"
)

const testLoginPage = `<html><body>
<form id="casLoginForm" action="/authserver/login" method="post">
  <input type="hidden" name="lt" value="LT-12345">
  <input type="hidden" name="execution" value="e1s1">
  <input type="hidden" name="_eventId" value="submit">
  <input type="hidden" id="pwdDefaultEncryptSalt" value="xHbfAO7d6lYwkFCH">
</form>
</body></html>`

func testCaptchaPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 2))
	img.Set(0, 0, color.White)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding test captcha: %v", err)
	}
	return buf.Bytes()
}

// testCAS stands up a fake portal. login decides how POSTs are answered.
func testCAS(t *testing.T, login http.HandlerFunc) cas {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/authserver/login", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			login(w, r)
			return
		}
		fmt.Fprint(w, testLoginPage)
	})
	captcha := testCaptchaPNG(t)
	mux.HandleFunc("/authserver/captcha.html", func(w http.ResponseWriter, r *http.Request) {
		w.Write(captcha)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return cas{
		origin:     srv.URL,
		loginURL:   srv.URL + "/authserver/login",
		captchaURL: srv.URL + "/authserver/captcha.html",
		warmupURL:  srv.URL + "/appShow",
	}
}

func TestLoginSessionScrape(t *testing.T) {
	c := testCAS(t, func(w http.ResponseWriter, r *http.Request) {})
	s, err := newLoginSession(context.Background(), c, "test-school")
	if err != nil {
		t.Fatalf("newLoginSession: %v", err)
	}
	if s.salt != "xHbfAO7d6lYwkFCH" {
		t.Errorf("salt = %q", s.salt)
	}
	if got := s.fields.Get("lt"); got != "LT-12345" {
		t.Errorf("lt field = %q", got)
	}
	if len(s.Captcha()) == 0 {
		t.Error("no captcha bytes")
	}
	if _, err := png.Decode(bytes.NewReader(s.Captcha())); err != nil {
		t.Errorf("captcha is not a png: %v", err)
	}
}

func TestLoginSuccess(t *testing.T) {
	c := testCAS(t, func(w http.ResponseWriter, r *http.Request) {
		if r.FormValue("dllt") != "mobileLogin" {
			t.Errorf("dllt = %q", r.FormValue("dllt"))
		}
		if r.FormValue("lt") != "LT-12345" {
			t.Errorf("scraped field not forwarded, lt = %q", r.FormValue("lt"))
		}
		if r.FormValue("password") == "secret" {
			t.Error("password submitted in cleartext")
		}
		// The real portal answers success with a redirect; the ticket
		// cookie must be read off the 302 itself, not the landing page.
		http.SetCookie(w, &http.Cookie{Name: "CASTGC", Value: "TGT-abc"})
		w.Header().Set("Location", "/landing")
		w.WriteHeader(http.StatusFound)
	})

	s, err := newLoginSession(context.Background(), c, "test-school")
	if err != nil {
		t.Fatalf("newLoginSession: %v", err)
	}
	cred, err := s.Login(context.Background(), "user", "secret", "1234")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if cred.Adapter != "test-school" || cred.Token != "TGT-abc" {
		t.Errorf("credential = %+v", cred)
	}

	if _, err := s.Login(context.Background(), "user", "secret", "1234"); err == nil {
		t.Error("expected error reusing a completed session")
	}
}

func TestLoginRejected(t *testing.T) {
	c := testCAS(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><form id="casLoginForm"><span class="auth_error">验证码错误</span></form></body></html>`)
	})

	s, err := newLoginSession(context.Background(), c, "test-school")
	if err != nil {
		t.Fatalf("newLoginSession: %v", err)
	}
	_, err = s.Login(context.Background(), "user", "secret", "0000")
	var rejected *adapter.RejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("want RejectedError, got %v", err)
	}
	if rejected.Reason != "验证码错误" {
		t.Errorf("reason = %q", rejected.Reason)
	}

	// A rejection leaves the session open for another attempt.
	if _, err := s.Login(context.Background(), "user", "secret", "0001"); err == nil {
		t.Error("second attempt should still reach the portal and be rejected")
	}
}

func TestLoginRejectionReasonMissing(t *testing.T) {
	c := testCAS(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>unexpected page</body></html>`)
	})

	s, err := newLoginSession(context.Background(), c, "test-school")
	if err != nil {
		t.Fatalf("newLoginSession: %v", err)
	}
	_, err = s.Login(context.Background(), "user", "secret", "0000")
	var scrape *adapter.ScrapeError
	if !errors.As(err, &scrape) {
		t.Fatalf("want ScrapeError, got %v", err)
	}
}

func TestLoginSessionMissingSalt(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/authserver/login", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><form id="casLoginForm"><input name="lt" value="x"></form></body></html>`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c := cas{origin: srv.URL, loginURL: srv.URL + "/authserver/login", captchaURL: srv.URL + "/authserver/captcha.html"}
	_, err := newLoginSession(context.Background(), c, "test-school")
	var scrape *adapter.ScrapeError
	if !errors.As(err, &scrape) {
		t.Fatalf("want ScrapeError, got %v", err)
	}
	if scrape.Missing != "pwdDefaultEncryptSalt" {
		t.Errorf("missing = %q", scrape.Missing)
	}
}

func TestAuthenticatedClientWrongAdapter(t *testing.T) {
	c := defaultCAS()
	_, err := c.authenticatedClient(context.Background(), "a", adapter.Credentials{Adapter: "b", Token: "t"})
	if !errors.Is(err, adapter.ErrCredentialMismatch) {
		t.Fatalf("want ErrCredentialMismatch, got %v", err)
	}
}
