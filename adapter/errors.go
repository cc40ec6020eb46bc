package adapter

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownAdapter is returned when a registry lookup names no adapter.
	ErrUnknownAdapter = errors.New("no such school adapter")

	// ErrCredentialNotFound is returned for unknown or expired credential keys.
	ErrCredentialNotFound = errors.New("credential not found")

	// ErrCredentialMismatch is returned when a credential is presented to an
	// adapter other than the one that produced it.
	ErrCredentialMismatch = errors.New("credential belongs to a different adapter")

	// ErrMalformedRow marks a raw schedule row missing a required field.
	// Normalization aborts the whole batch on it: a silently dropped course
	// is worse than a loud failure.
	ErrMalformedRow = errors.New("malformed schedule row")
)

// ScrapeError means an upstream page or payload no longer matches the
// structure this adapter expects. It signals a compatibility break, not a
// transient fault, and is never retried.
type ScrapeError struct {
	Page    string
	Missing string
}

func (e *ScrapeError) Error() string {
	return fmt.Sprintf("scraping %s: %s not found (page layout changed?)", e.Page, e.Missing)
}

// RejectedError carries the human-readable reason the portal refused a
// login, scraped from its error page. The portal's own wording is the only
// taxonomy: bad password, wrong captcha and locked accounts are
// indistinguishable except by this text.
type RejectedError struct {
	Reason string
}

func (e *RejectedError) Error() string {
	return "login rejected: " + e.Reason
}
