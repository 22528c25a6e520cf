package sink_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/logsmith/logsmith/internal/sink"
)

func TestWriterAppendsNewlineTerminatedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	w, err := sink.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := w.WriteLine("first"); err != nil {
		t.Fatalf("WriteLine: %v", err)
	}
	if err := w.WriteLine("second"); err != nil {
		t.Fatalf("WriteLine: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "first\nsecond\n" {
		t.Fatalf("file contents %q", data)
	}
}

func TestWriterAppendsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	for _, line := range []string{"one", "two"} {
		w, err := sink.Open(path)
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		if err := w.WriteLine(line); err != nil {
			t.Fatalf("WriteLine: %v", err)
		}
		if err := w.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if lines := strings.Split(strings.TrimSpace(string(data)), "\n"); len(lines) != 2 {
		t.Fatalf("expected 2 lines after reopen, got %q", data)
	}
}

func TestOpenUnwritableDestination(t *testing.T) {
	_, err := sink.Open(filepath.Join(t.TempDir(), "missing", "out.log"))
	var writeErr *sink.WriteError
	if !errors.As(err, &writeErr) {
		t.Fatalf("got %v, want WriteError", err)
	}
}
