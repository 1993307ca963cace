package subscriber

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	logx "vacancywatch/pkg/logx"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "user_data.json"), logx.Nop())
}

func TestLoadMissingFileStartsEmpty(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	s.Load()
	if s.Len() != 0 {
		t.Fatalf("expected empty store, got %d entries", s.Len())
	}
}

func TestLoadMalformedFileStartsEmpty(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "user_data.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	s := NewStore(path, logx.Nop())
	s.Load()
	if s.Len() != 0 {
		t.Fatalf("expected empty store, got %d entries", s.Len())
	}
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "user_data.json")
	s := NewStore(path, logx.Nop())
	s.Load()

	email := "a@b.co"
	phone := "5551234567"
	msgID := 42
	in := Subscriber{
		UserID:          7,
		ChatID:          7,
		Username:        "Black Otter",
		Email:           &email,
		Phone:           &phone,
		StatusMessageID: &msgID,
		Active:          true,
	}
	if err := s.Put("7", in); err != nil {
		t.Fatalf("Put: %v", err)
	}

	reloaded := NewStore(path, logx.Nop())
	reloaded.Load()
	got, ok := reloaded.Get("7")
	if !ok {
		t.Fatal("subscriber missing after reload")
	}
	if got.UserID != in.UserID || got.ChatID != in.ChatID || got.Username != in.Username || got.Active != in.Active {
		t.Fatalf("reloaded = %+v, want %+v", got, in)
	}
	if got.Email == nil || *got.Email != email {
		t.Fatalf("Email = %v, want %q", got.Email, email)
	}
	if got.Phone == nil || *got.Phone != phone {
		t.Fatalf("Phone = %v, want %q", got.Phone, phone)
	}
	if got.StatusMessageID == nil || *got.StatusMessageID != msgID {
		t.Fatalf("StatusMessageID = %v, want %d", got.StatusMessageID, msgID)
	}
}

func TestRegisterIdempotent(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	s.Load()

	first, created, err := s.Register("9", 9, 90)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if !created {
		t.Fatal("expected first Register to create")
	}
	if !strings.HasPrefix(first.Username, "Black ") {
		t.Fatalf("Username = %q, want generated default", first.Username)
	}
	if first.Active {
		t.Fatal("new subscriber must start inactive")
	}

	email := "a@b.co"
	if _, err := s.Update("9", func(sub *Subscriber) {
		sub.Active = true
		sub.Email = &email
	}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	again, created, err := s.Register("9", 9, 90)
	if err != nil {
		t.Fatalf("Register again: %v", err)
	}
	if created {
		t.Fatal("repeat Register must not re-create")
	}
	if !again.Active || again.Email == nil || *again.Email != email {
		t.Fatalf("repeat Register reset fields: %+v", again)
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", s.Len())
	}
}

func TestUpdateUnknownID(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	s.Load()
	if _, err := s.Update("404", func(sub *Subscriber) { sub.Active = true }); err != ErrNotRegistered {
		t.Fatalf("err = %v, want ErrNotRegistered", err)
	}
}

func TestPersistSurvivesWriteFailure(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	// Point the store at a path whose parent is a file, so rename must fail.
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o600); err != nil {
		t.Fatalf("write blocker: %v", err)
	}
	s := NewStore(filepath.Join(blocker, "user_data.json"), logx.Nop())
	s.Load()

	_, _, err := s.Register("1", 1, 10)
	if err == nil {
		t.Fatal("expected write error")
	}
	// In-memory state stays authoritative.
	if _, ok := s.Get("1"); !ok {
		t.Fatal("subscriber lost after failed persist")
	}
}

func TestFormatPhone(t *testing.T) {
	t.Parallel()
	if got := FormatPhone("5551234567"); got != "555-123-4567" {
		t.Fatalf("FormatPhone = %q", got)
	}
	if got := FormatPhone("12345"); got != "12345" {
		t.Fatalf("FormatPhone short input = %q", got)
	}
}

func TestRandomUsername(t *testing.T) {
	t.Parallel()
	for i := 0; i < 50; i++ {
		name := RandomUsername()
		if !strings.HasPrefix(name, "Black ") {
			t.Fatalf("unexpected username %q", name)
		}
		if len(strings.Fields(name)) != 2 {
			t.Fatalf("expected two tokens, got %q", name)
		}
	}
}
