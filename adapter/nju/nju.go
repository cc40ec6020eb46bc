// Package nju implements the Nanjing University adapters. Undergraduates
// and graduates authenticate against the same CAS portal but fetch their
// schedules from incompatible APIs, so they are two registry entries
// sharing the login machinery.
package nju

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"campuscal/adapter"
	"campuscal/fetch"
)

const (
	casOrigin     = "https://authserver.nju.edu.cn"
	casLoginURL   = casOrigin + "/authserver/login"
	casCaptchaURL = casOrigin + "/authserver/captcha.html"

	// Visiting the ehall app page turns a CASTGC into the service
	// cookies the schedule APIs expect.
	ehallWarmupURL = "https://ehall.nju.edu.cn/appShow?appId=4770397878132218"

	userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/15.6.1 Safari/605.1.15"
)

// cas bundles the CAS endpoint set. Kept on the adapter so tests can point
// it at a local server.
type cas struct {
	origin     string
	loginURL   string
	captchaURL string
	warmupURL  string
}

func defaultCAS() cas {
	return cas{
		origin:     casOrigin,
		loginURL:   casLoginURL,
		captchaURL: casCaptchaURL,
		warmupURL:  ehallWarmupURL,
	}
}

// authenticatedClient rebuilds a logged-in client from a stored credential.
func (c cas) authenticatedClient(ctx context.Context, adapterName string, cred adapter.Credentials) (*http.Client, error) {
	if cred.Adapter != adapterName {
		return nil, fmt.Errorf("%w: got %q, want %q", adapter.ErrCredentialMismatch, cred.Adapter, adapterName)
	}

	client, err := fetch.NewClient()
	if err != nil {
		return nil, err
	}

	origin, err := url.Parse(c.origin)
	if err != nil {
		return nil, err
	}
	client.Jar.SetCookies(origin, []*http.Cookie{{
		Name:  "CASTGC",
		Value: cred.Token,
		Path:  "/",
	}})

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.warmupURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("establishing ehall session: %w", err)
	}
	resp.Body.Close()

	return client, nil
}

// cstZone returns the fixed UTC+8 zone both campuses live in. The IANA
// database is preferred, with a fixed offset as fallback for minimal
// deployments.
func cstZone() *time.Location {
	if loc, err := time.LoadLocation("Asia/Shanghai"); err == nil {
		return loc
	}
	return time.FixedZone("CST", 8*3600)
}

// mondayOf truncates a date to the Monday of its week. Semester arithmetic
// assumes Monday-aligned starts; some upstream "start" dates are the day
// the timetable opened instead.
func mondayOf(t time.Time) time.Time {
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	t = t.AddDate(0, 0, 1-weekday)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
