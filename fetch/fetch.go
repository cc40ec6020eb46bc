// Package fetch builds the HTTP clients adapters talk to school portals
// with: bounded exponential-backoff retry on transient transport failures,
// a conservative per-request deadline, and an attempt-scoped cookie jar.
// Application-level rejections (wrong captcha, bad password) are plain
// 200-class responses and are never retried here.
package fetch

import (
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

const (
	maxRetries     = 3
	retryWaitMin   = 500 * time.Millisecond
	retryWaitMax   = 8 * time.Second
	requestTimeout = 15 * time.Second
)

// NewClient returns a retrying client with its own cookie jar. Redirect
// handling follows the default policy.
func NewClient() (*http.Client, error) {
	return newClient(true)
}

// NewClientNoRedirect returns a retrying client with its own cookie jar
// that does not follow redirects. CAS-style login flows need to observe
// the Set-Cookie on the redirect response itself.
func NewClientNoRedirect() (*http.Client, error) {
	return newClient(false)
}

func newClient(followRedirects bool) (*http.Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = maxRetries
	rc.RetryWaitMin = retryWaitMin
	rc.RetryWaitMax = retryWaitMax
	rc.HTTPClient.Timeout = requestTimeout
	rc.HTTPClient.Jar = jar
	rc.Logger = nil

	noRedirect := func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}
	if !followRedirects {
		// The standard-client wrapper hands each attempt to rc.HTTPClient,
		// so the redirect policy must live on the inner client; on the
		// wrapper alone it never fires.
		rc.HTTPClient.CheckRedirect = noRedirect
	}

	client := rc.StandardClient()
	client.Jar = jar
	if !followRedirects {
		client.CheckRedirect = noRedirect
	}
	return client, nil
}
