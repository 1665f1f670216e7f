package applog

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestFormat(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	got := format(now, "ERROR", "organize.group", errors.New("tab gone"), []any{"key", "github.com", "tabs", 3})
	want := "2024-03-01T12:30:00.000Z ERROR organize.group err=\"tab gone\" key=github.com tabs=3\n"
	if got != want {
		t.Errorf("format = %q, want %q", got, want)
	}
}

func TestQuoteTruncates(t *testing.T) {
	long := strings.Repeat("a", maxValueLen+10)
	got := quote(long)
	if !strings.HasSuffix(got, truncSuffix) {
		t.Errorf("expected truncation suffix, got %q", got[len(got)-5:])
	}
}

func TestInitWritesFile(t *testing.T) {
	dir := t.TempDir()
	if err := Init(dir); err != nil {
		t.Fatalf("Init: %v", err)
	}
	Info("timer.start", "phase", "WORK")
	Close()

	data, err := os.ReadFile(filepath.Join(dir, logFileName))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "INFO timer.start phase=WORK") {
		t.Errorf("log line missing, got %q", data)
	}
}

func TestNoopBeforeInit(t *testing.T) {
	Close()
	// Must not panic.
	Warn("classify.skip", "url", "::bad")
}
