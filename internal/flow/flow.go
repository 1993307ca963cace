// Package flow implements the per-field profile edit conversation:
// enter-field, validate, commit-or-reprompt.
package flow

import (
	"fmt"
	"strings"
	"sync"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"vacancywatch/internal/subscriber"
	logx "vacancywatch/pkg/logx"
)

// State tags the one awaited reply of an open conversation. A user has at
// most one open conversation; starting a new one replaces it.
type State int

const (
	StateIdle State = iota
	AwaitingUsername
	AwaitingEmail
	AwaitingPhone
)

// Manager owns the per-user conversation states. All profile mutations go
// through the subscriber store's Update, so a conversation commit can never
// race the notification engine into a lost write.
type Manager struct {
	store *subscriber.Store
	log   logx.Logger

	mu       sync.Mutex
	sessions map[string]State
}

func NewManager(store *subscriber.Store, log logx.Logger) *Manager {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Manager{store: store, log: log, sessions: map[string]State{}}
}

// Begin opens a conversation for the given field and returns the prompt.
// The subscriber must already be registered.
func (m *Manager) Begin(id string, state State) (string, error) {
	sub, ok := m.store.Get(id)
	if !ok {
		return "", subscriber.ErrNotRegistered
	}

	m.mu.Lock()
	m.sessions[id] = state
	m.mu.Unlock()

	switch state {
	case AwaitingUsername:
		return fmt.Sprintf("Your current username is %s. Please enter your new username.\n\n/cancel this operation", sub.Username), nil
	case AwaitingEmail:
		return fmt.Sprintf("Your current email address is %s. Please enter your new email address.\n\n/clear your email address\n/cancel this operation",
			orUnset(sub.Email)), nil
	case AwaitingPhone:
		return fmt.Sprintf("Your current phone number is %s. Please enter your new phone number.\n\n/clear your phone number\n/cancel this operation",
			phoneDisplay(sub.Phone)), nil
	default:
		m.mu.Lock()
		delete(m.sessions, id)
		m.mu.Unlock()
		return "", fmt.Errorf("flow: invalid state %d", state)
	}
}

// State reports the open conversation state for the user, if any.
func (m *Manager) State(id string) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[id]
}

// HandleText consumes one reply for the user's open conversation.
// Invalid input re-prompts and keeps the conversation open; valid input
// commits and closes it. done reports whether the conversation ended.
func (m *Manager) HandleText(id, text string) (reply string, done bool) {
	m.mu.Lock()
	state := m.sessions[id]
	m.mu.Unlock()

	if state == StateIdle {
		return "", true
	}

	switch state {
	case AwaitingUsername:
		reply, done = m.commitUsername(id, text)
	case AwaitingEmail:
		reply, done = m.commitEmail(id, text)
	case AwaitingPhone:
		reply, done = m.commitPhone(id, text)
	}

	if done {
		m.end(id)
	}
	return reply, done
}

func (m *Manager) commitUsername(id, text string) (string, bool) {
	name := strings.TrimSpace(text)
	if err := validation.Validate(name, validation.Required); err != nil {
		return "Username cannot be empty.\n\n/cancel this operation", false
	}
	m.update(id, func(s *subscriber.Subscriber) { s.Username = name })
	return fmt.Sprintf("Your username has been updated to %s.", name), true
}

func (m *Manager) commitEmail(id, text string) (string, bool) {
	email := strings.TrimSpace(text)
	if err := validation.Validate(email,
		validation.Required,
		is.EmailFormat,
		validation.By(hasDottedDomain),
	); err != nil {
		return "Invalid email address. Please try again.\n\n/clear your email address\n/cancel this operation", false
	}
	m.update(id, func(s *subscriber.Subscriber) { s.Email = &email })
	return fmt.Sprintf("Your email address has been saved as %s.", email), true
}

func (m *Manager) commitPhone(id, text string) (string, bool) {
	digits := stripNonDigits(text)
	if err := validation.Validate(digits,
		validation.Required,
		validation.Length(10, 10),
		is.Digit,
	); err != nil {
		return "Invalid phone number. Please try again.\n\n/clear your phone number\n/cancel this operation", false
	}
	m.update(id, func(s *subscriber.Subscriber) { s.Phone = &digits })
	return fmt.Sprintf("Your phone number has been saved as %s.", subscriber.FormatPhone(digits)), true
}

// Clear nulls the field of the open conversation and closes it.
// It only applies to the email and phone conversations.
func (m *Manager) Clear(id string) (reply string, handled bool) {
	m.mu.Lock()
	state := m.sessions[id]
	m.mu.Unlock()

	switch state {
	case AwaitingEmail:
		m.update(id, func(s *subscriber.Subscriber) { s.Email = nil })
		m.end(id)
		return "Your email address has been cleared.", true
	case AwaitingPhone:
		m.update(id, func(s *subscriber.Subscriber) { s.Phone = nil })
		m.end(id)
		return "Your phone number has been cleared.", true
	default:
		return "", false
	}
}

// Cancel closes the open conversation with no mutation.
func (m *Manager) Cancel(id string) (reply string, handled bool) {
	m.mu.Lock()
	state := m.sessions[id]
	m.mu.Unlock()

	if state == StateIdle {
		return "", false
	}
	m.end(id)
	return "Operation cancelled.", true
}

func (m *Manager) end(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

func (m *Manager) update(id string, fn func(*subscriber.Subscriber)) {
	if _, err := m.store.Update(id, fn); err != nil {
		// Disk mirror failure only; in-memory state is authoritative.
		m.log.Error("profile persist failed", logx.String("subscriber", id), logx.Err(err))
	}
}

func orUnset(v *string) string {
	if v == nil {
		return "not yet entered"
	}
	return *v
}

func phoneDisplay(v *string) string {
	if v == nil {
		return "not yet entered"
	}
	return subscriber.FormatPhone(*v)
}

func stripNonDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// hasDottedDomain rejects addresses whose domain has no dot (e.g. "a@b").
func hasDottedDomain(value any) error {
	s, _ := value.(string)
	at := strings.LastIndex(s, "@")
	if at < 0 || !strings.Contains(s[at+1:], ".") {
		return fmt.Errorf("domain must contain a dot")
	}
	return nil
}
