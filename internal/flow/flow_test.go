package flow

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"vacancywatch/internal/subscriber"
	logx "vacancywatch/pkg/logx"
)

func newTestManager(t *testing.T) (*Manager, *subscriber.Store) {
	t.Helper()
	store := subscriber.NewStore(filepath.Join(t.TempDir(), "user_data.json"), logx.Nop())
	store.Load()
	if _, _, err := store.Register("1", 1, 10); err != nil {
		t.Fatalf("Register: %v", err)
	}
	return NewManager(store, logx.Nop()), store
}

func TestBeginNotRegistered(t *testing.T) {
	t.Parallel()
	m, _ := newTestManager(t)
	if _, err := m.Begin("404", AwaitingEmail); !errors.Is(err, subscriber.ErrNotRegistered) {
		t.Fatalf("err = %v, want ErrNotRegistered", err)
	}
	if m.State("404") != StateIdle {
		t.Fatal("failed Begin must not open a session")
	}
}

func TestBeginShowsCurrentValue(t *testing.T) {
	t.Parallel()
	m, store := newTestManager(t)
	phone := "5551234567"
	if _, err := store.Update("1", func(s *subscriber.Subscriber) { s.Phone = &phone }); err != nil {
		t.Fatalf("Update: %v", err)
	}

	prompt, err := m.Begin("1", AwaitingPhone)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if !strings.Contains(prompt, "555-123-4567") {
		t.Fatalf("prompt missing formatted current value: %q", prompt)
	}

	prompt, err = m.Begin("1", AwaitingEmail)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if !strings.Contains(prompt, "not yet entered") {
		t.Fatalf("prompt missing unset placeholder: %q", prompt)
	}
}

func TestUsernameFlow(t *testing.T) {
	t.Parallel()
	m, store := newTestManager(t)
	if _, err := m.Begin("1", AwaitingUsername); err != nil {
		t.Fatalf("Begin: %v", err)
	}

	reply, done := m.HandleText("1", "   ")
	if done {
		t.Fatal("whitespace-only username must re-prompt")
	}
	if !strings.Contains(reply, "cannot be empty") {
		t.Fatalf("unexpected reply: %q", reply)
	}
	if m.State("1") != AwaitingUsername {
		t.Fatal("session must stay open after invalid input")
	}

	reply, done = m.HandleText("1", "Night Owl")
	if !done {
		t.Fatal("valid username must end conversation")
	}
	if !strings.Contains(reply, "Night Owl") {
		t.Fatalf("unexpected reply: %q", reply)
	}
	sub, _ := store.Get("1")
	if sub.Username != "Night Owl" {
		t.Fatalf("Username = %q", sub.Username)
	}
}

func TestEmailValidation(t *testing.T) {
	t.Parallel()
	tests := []struct {
		input string
		valid bool
	}{
		{input: "user@example.com", valid: true},
		{input: "first.last+tag@sub.example.co", valid: true},
		{input: "no-at-sign", valid: false},
		{input: "user@nodot", valid: false},
		{input: "@example.com", valid: false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			m, store := newTestManager(t)
			if _, err := m.Begin("1", AwaitingEmail); err != nil {
				t.Fatalf("Begin: %v", err)
			}
			_, done := m.HandleText("1", tt.input)
			if done != tt.valid {
				t.Fatalf("HandleText(%q) done = %v, want %v", tt.input, done, tt.valid)
			}
			sub, _ := store.Get("1")
			if tt.valid {
				if sub.Email == nil || *sub.Email != tt.input {
					t.Fatalf("Email = %v, want %q", sub.Email, tt.input)
				}
			} else if sub.Email != nil {
				t.Fatalf("invalid input committed: %v", *sub.Email)
			}
		})
	}
}

func TestPhoneValidation(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		input  string
		stored string // empty means rejected
	}{
		{name: "formatted", input: "(555) 123-4567", stored: "5551234567"},
		{name: "digits", input: "5551234567", stored: "5551234567"},
		{name: "too short", input: "12345"},
		{name: "too long", input: "555123456789"},
		{name: "letters only", input: "call me"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m, store := newTestManager(t)
			if _, err := m.Begin("1", AwaitingPhone); err != nil {
				t.Fatalf("Begin: %v", err)
			}
			reply, done := m.HandleText("1", tt.input)
			if tt.stored == "" {
				if done {
					t.Fatalf("HandleText(%q) accepted, reply %q", tt.input, reply)
				}
				return
			}
			if !done {
				t.Fatalf("HandleText(%q) rejected, reply %q", tt.input, reply)
			}
			if !strings.Contains(reply, subscriber.FormatPhone(tt.stored)) {
				t.Fatalf("confirmation %q missing formatted echo", reply)
			}
			sub, _ := store.Get("1")
			if sub.Phone == nil || *sub.Phone != tt.stored {
				t.Fatalf("Phone = %v, want %q", sub.Phone, tt.stored)
			}
		})
	}
}

func TestClear(t *testing.T) {
	t.Parallel()
	m, store := newTestManager(t)
	email := "a@b.co"
	if _, err := store.Update("1", func(s *subscriber.Subscriber) { s.Email = &email }); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if _, err := m.Begin("1", AwaitingEmail); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	reply, handled := m.Clear("1")
	if !handled {
		t.Fatal("Clear must handle an open email conversation")
	}
	if !strings.Contains(reply, "cleared") {
		t.Fatalf("unexpected reply: %q", reply)
	}
	sub, _ := store.Get("1")
	if sub.Email != nil {
		t.Fatalf("Email = %v, want nil", *sub.Email)
	}
	if m.State("1") != StateIdle {
		t.Fatal("Clear must end the conversation")
	}
}

func TestClearOutsideEmailOrPhone(t *testing.T) {
	t.Parallel()
	m, _ := newTestManager(t)

	// No conversation open.
	if _, handled := m.Clear("1"); handled {
		t.Fatal("Clear with no open conversation must not handle")
	}

	// Username conversations have no clear fallback.
	if _, err := m.Begin("1", AwaitingUsername); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if _, handled := m.Clear("1"); handled {
		t.Fatal("Clear must not apply to username conversations")
	}
	if m.State("1") != AwaitingUsername {
		t.Fatal("unhandled Clear must keep the conversation open")
	}
}

func TestCancel(t *testing.T) {
	t.Parallel()
	m, store := newTestManager(t)
	if _, err := m.Begin("1", AwaitingPhone); err != nil {
		t.Fatalf("Begin: %v", err)
	}

	reply, handled := m.Cancel("1")
	if !handled || reply != "Operation cancelled." {
		t.Fatalf("Cancel = (%q, %v)", reply, handled)
	}
	if m.State("1") != StateIdle {
		t.Fatal("Cancel must end the conversation")
	}
	sub, _ := store.Get("1")
	if sub.Phone != nil {
		t.Fatal("Cancel must not mutate")
	}

	if _, handled := m.Cancel("1"); handled {
		t.Fatal("Cancel with no open conversation must not handle")
	}
}
