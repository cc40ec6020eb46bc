// Package login drives a visitor through the interactive login flow:
// pick a school, solve its captcha, submit credentials. Each visitor owns
// one Process; the site layer maps browser sessions to processes.
package login

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"campuscal/adapter"
)

// State is the visitor's position in the login flow.
type State int

const (
	// StateStarted is the initial state, before a school is chosen.
	StateStarted State = iota
	// StateSelectedSchool means a captcha has been issued and the
	// visitor may attempt to log in.
	StateSelectedSchool
	// StateFinished means credentials were accepted and persisted.
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateStarted:
		return "started"
	case StateSelectedSchool:
		return "selected school"
	case StateFinished:
		return "finished"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ErrInvalidState rejects an operation issued out of order.
var ErrInvalidState = errors.New("operation not allowed in current login state")

// Process is one visitor's login state machine. The mutex is held across
// the portal round trips, so concurrent requests from the same visitor
// run one at a time.
type Process struct {
	mu       sync.Mutex
	registry *adapter.Registry
	store    adapter.CredentialStore

	state   State
	school  adapter.School
	session adapter.LoginSession
	credKey string
}

func NewProcess(registry *adapter.Registry, store adapter.CredentialStore) *Process {
	return &Process{registry: registry, store: store, state: StateStarted}
}

// State reports the current position without advancing it.
func (p *Process) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// SelectSchool resolves the school and opens a login session against its
// portal. A failure leaves the process in the started state so the
// visitor can pick again.
func (p *Process) SelectSchool(ctx context.Context, name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StateStarted {
		return fmt.Errorf("%w: select school while %s", ErrInvalidState, p.state)
	}

	school, err := p.registry.Get(name)
	if err != nil {
		return err
	}
	session, err := school.NewLoginSession(ctx)
	if err != nil {
		return fmt.Errorf("opening login session for %s: %w", name, err)
	}

	p.school = school
	p.session = session
	p.state = StateSelectedSchool
	return nil
}

// SchoolName reports which school the visitor picked. Valid from the
// moment a school is selected, not just after the login finishes.
func (p *Process) SchoolName() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == StateStarted {
		return "", fmt.Errorf("%w: school name while %s", ErrInvalidState, p.state)
	}
	return p.school.Name(), nil
}

// Captcha returns the challenge image for the open login session.
func (p *Process) Captcha() ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StateSelectedSchool {
		return nil, fmt.Errorf("%w: captcha while %s", ErrInvalidState, p.state)
	}
	return p.session.Captcha(), nil
}

// Login submits the visitor's credentials. On success the portal
// credential is persisted and the process finishes. A portal rejection
// keeps the process in the selected state so the visitor may retry;
// nothing is persisted on any failure path.
func (p *Process) Login(ctx context.Context, username, password, captchaAnswer string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StateSelectedSchool {
		return fmt.Errorf("%w: login while %s", ErrInvalidState, p.state)
	}

	cred, err := p.session.Login(ctx, username, password, captchaAnswer)
	if err != nil {
		return err
	}

	key, err := p.store.Put(ctx, cred)
	if err != nil {
		return fmt.Errorf("persisting credential: %w", err)
	}

	p.credKey = key
	p.state = StateFinished
	return nil
}

// Result returns the school name and the credential key backing the
// visitor's feed URL.
func (p *Process) Result() (schoolName, credentialKey string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StateFinished {
		return "", "", fmt.Errorf("%w: result while %s", ErrInvalidState, p.state)
	}
	return p.school.Name(), p.credKey, nil
}
