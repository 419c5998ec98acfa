package ledger

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileIsEmptySet(t *testing.T) {
	l := New(filepath.Join(t.TempDir(), "absent.txt"))
	entries, err := l.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected empty set, got %d entries", len(entries))
	}
}

func TestRecordThenLoadRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processed.txt")
	l := New(path)

	if err := l.Record("http://a/1"); err != nil {
		t.Fatal(err)
	}
	if err := l.Record("http://b/2"); err != nil {
		t.Fatal(err)
	}

	// A fresh instance simulates the next process run.
	entries, err := New(path).Load()
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"http://a/1", "http://b/2"} {
		if _, ok := entries[want]; !ok {
			t.Errorf("missing entry %q", want)
		}
	}
}

func TestLoadSkipsBlankLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processed.txt")
	if err := os.WriteFile(path, []byte("http://a/1\n\n  \nhttp://b/2\n"), 0644); err != nil {
		t.Fatal(err)
	}
	entries, err := New(path).Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Errorf("expected 2 entries, got %d", len(entries))
	}
}

func TestRecordCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "seen_ips.log")
	if err := New(path).Record("203.0.113.7"); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("ledger file not created: %v", err)
	}
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct{ in, want string }{
		{"http://a/1?x=2", "http://a/1"},
		{"http://a/1#section", "http://a/1"},
		{"http://a/1/", "http://a/1"},
		{"http://a/1?x=2&y=3#frag", "http://a/1"},
		{" http://a/1 ", "http://a/1"},
		{"http://a/1", "http://a/1"},
	}
	for _, tt := range tests {
		if got := NormalizeURL(tt.in); got != tt.want {
			t.Errorf("NormalizeURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
