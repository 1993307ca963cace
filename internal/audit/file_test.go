package audit

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	logx "vacancywatch/pkg/logx"
)

func TestOpenDisabled(t *testing.T) {
	t.Parallel()
	for _, driver := range []string{"", "none"} {
		l, err := Open(Config{Driver: driver}, logx.Nop())
		if err != nil {
			t.Fatalf("Open(%q): %v", driver, err)
		}
		if l != nil {
			t.Fatalf("Open(%q) returned a live log", driver)
		}
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	t.Parallel()
	if _, err := Open(Config{Driver: "redis"}, logx.Nop()); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestFileAppend(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	l, err := Open(Config{Driver: "file", Path: filepath.Join(dir, "watch")}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer l.Close()

	entries := []Entry{
		{SubscriberID: "7", ChatID: 70, Action: "send", MessageID: 1, OK: true},
		{SubscriberID: "8", ChatID: 80, Action: "edit", MessageID: 2, JobFound: false, OK: false, Error: "boom"},
	}
	for _, e := range entries {
		if err := l.Append(e); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	f, err := os.Open(filepath.Join(dir, "watch.audit.jsonl"))
	if err != nil {
		t.Fatalf("open audit file: %v", err)
	}
	defer f.Close()

	var got []Entry
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("decode line: %v", err)
		}
		got = append(got, e)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(got))
	}
	if got[0].Action != "send" || !got[0].OK {
		t.Fatalf("unexpected first entry: %+v", got[0])
	}
	if got[1].Error != "boom" {
		t.Fatalf("unexpected second entry: %+v", got[1])
	}
	if got[0].At.IsZero() || time.Since(got[0].At) > time.Minute {
		t.Fatalf("Append did not stamp time: %v", got[0].At)
	}
}
