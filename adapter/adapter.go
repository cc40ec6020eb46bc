// Package adapter defines the capability set every school backend
// implements and the registry that maps school names to shared adapter
// instances. Schools differ completely in wire protocol but are driven
// identically by the login flow and calendar generation.
package adapter

import (
	"context"
	"net/http"
	"time"

	"campuscal/schedule"
)

// Credentials is the opaque token a successful login produces. It is
// scoped to the adapter that created it; Adapter tags the owner so a token
// handed to the wrong adapter fails instead of being misread.
type Credentials struct {
	Adapter string `json:"adapter"`
	Token   string `json:"token"`
}

// CredentialStore persists finished credentials under generated keys.
type CredentialStore interface {
	// Put saves the credential and returns its durable lookup key.
	Put(ctx context.Context, cred Credentials) (string, error)
	// Get resolves a key back to the stored credential, refreshing its
	// last-access stamp. Unknown keys yield ErrCredentialNotFound.
	Get(ctx context.Context, key string) (Credentials, error)
}

// LoginSession is one in-flight authentication attempt. It owns an HTTP
// client with its own cookie jar plus everything scraped from the login
// page. A successful Login consumes the session; a portal rejection
// leaves it open so the visitor may try again against the same captcha.
type LoginSession interface {
	// Captcha returns the challenge image as PNG bytes. Reading it does no
	// network I/O and may be repeated.
	Captcha() []byte

	// Login submits the credentials and captcha answer. A portal rejection
	// surfaces as *RejectedError with the scraped reason.
	Login(ctx context.Context, username, password, captchaAnswer string) (Credentials, error)
}

// Login is the authentication capability of a school adapter.
type Login interface {
	// NewLoginSession fetches the school's login page and captcha,
	// returning a session ready for the user's input.
	NewLoginSession(ctx context.Context) (LoginSession, error)

	// AuthenticatedClient builds an HTTP client logged in as the
	// credential's owner. Presenting another adapter's credential fails
	// with ErrCredentialMismatch.
	AuthenticatedClient(ctx context.Context, cred Credentials) (*http.Client, error)
}

// CoursesProvider is the schedule retrieval capability.
type CoursesProvider interface {
	// Courses fetches and normalizes the current semester's schedule using
	// a client from AuthenticatedClient.
	Courses(ctx context.Context, client *http.Client) ([]schedule.Course, error)
}

// CalendarHelper supplies the display metadata calendar assembly needs.
type CalendarHelper interface {
	// Name is the stable registry key.
	Name() string
	// DisplayName disambiguates locations shared across schools.
	DisplayName() string
	// Timezone is the school's local timezone.
	Timezone() *time.Location
}

// School is the full capability set of one institution backend. Adapters
// are shared across sessions and must be safe for concurrent use; all
// per-attempt state lives in the LoginSession.
type School interface {
	Login
	CoursesProvider
	CalendarHelper
}
