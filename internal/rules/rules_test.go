package rules

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lotas/tabgruppen/internal/types"
)

// 2024-03-04 is a Monday.
func at(day, hour, minute int) time.Time {
	return time.Date(2024, 3, day, hour, minute, 0, 0, time.Local)
}

func names(ts []Template) []string {
	var out []string
	for _, t := range ts {
		out = append(out, t.Name)
	}
	return out
}

func TestDefaultActive(t *testing.T) {
	s := Default()
	tests := []struct {
		name string
		now  time.Time
		want []string
	}{
		{"monday morning", at(4, 10, 0), []string{"Work"}},
		{"monday evening", at(4, 18, 30), []string{"Social"}},
		{"tuesday early, window opened monday", at(5, 7, 0), []string{"Social"}},
		{"saturday noon", at(9, 12, 0), nil},
		{"saturday early, window opened friday", at(9, 2, 0), []string{"Social"}},
		{"monday early, window opened sunday", at(4, 2, 0), nil},
		{"end is exclusive", at(4, 17, 0), []string{"Social"}},
	}
	for _, tt := range tests {
		got := names(s.Active(tt.now))
		if len(got) != len(tt.want) {
			t.Errorf("%s: Active = %v, want %v", tt.name, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("%s: Active = %v, want %v", tt.name, got, tt.want)
			}
		}
	}
}

func TestMatch(t *testing.T) {
	s := Default()
	tpl, ok := s.Match("github.com", at(4, 10, 0))
	if !ok || tpl.Name != "Work" || tpl.Color != types.ColorBlue {
		t.Errorf("Match(github.com) = %+v, %v; want Work/blue", tpl, ok)
	}
	if _, ok := s.Match("github.com", at(4, 20, 0)); ok {
		t.Error("Work template should be inactive in the evening")
	}
	if _, ok := s.Match("example.com", at(4, 10, 0)); ok {
		t.Error("unrelated domain should not match")
	}
}

func TestGlobPatterns(t *testing.T) {
	s, err := Compile(
		[]Template{{Name: "Atlassian", Domains: []string{"*.atlassian.net"}, Color: types.ColorCyan}},
		[]Rule{{Name: "always", Active: true, Start: "00:00", End: "00:00", Templates: []string{"Atlassian"}}},
	)
	if err != nil {
		t.Fatal(err)
	}
	now := at(9, 12, 0)
	if _, ok := s.Match("acme.atlassian.net", now); !ok {
		t.Error("acme.atlassian.net should match *.atlassian.net")
	}
	if _, ok := s.Match("a.b.atlassian.net", now); ok {
		t.Error("glob * must not cross label separators")
	}
	if _, ok := s.Match("atlassian.net", now); ok {
		t.Error("bare atlassian.net should not match *.atlassian.net")
	}
}

func TestCompileErrors(t *testing.T) {
	if _, err := Compile([]Template{{Name: "X", Color: "magenta"}}, nil); err == nil {
		t.Error("expected invalid color error")
	}
	if _, err := Compile(nil, []Rule{{Name: "r", Start: "25:00", End: "10:00"}}); err == nil {
		t.Error("expected invalid hour error")
	}
	if _, err := Compile(nil, []Rule{{Name: "r", Start: "9", End: "10:00"}}); err == nil {
		t.Error("expected format error")
	}
}

func TestParseYAML(t *testing.T) {
	doc := `
templates:
  - name: Docs
    domains: [go.dev, pkg.go.dev, "*.readthedocs.io"]
    color: green
rules:
  - name: weekend
    active: true
    start: "08:00"
    end: "20:00"
    days: [0, 6]
    templates: [Docs, Missing]
`
	s, err := Parse([]byte(doc))
	if err != nil {
		t.Fatal(err)
	}
	got := names(s.Active(at(9, 9, 0)))
	if len(got) != 1 || got[0] != "Docs" {
		t.Errorf("Active on saturday = %v, want [Docs]", got)
	}
	if len(s.Active(at(4, 9, 0))) != 0 {
		t.Error("weekend rule active on monday")
	}
}

func TestParseKeepsDefaultsForMissingSections(t *testing.T) {
	s, err := Parse([]byte("rules: []\n"))
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Templates()) != len(DefaultTemplates) {
		t.Errorf("got %d templates, want defaults", len(s.Templates()))
	}
	if len(s.Active(at(4, 10, 0))) != 0 {
		t.Error("explicit empty rule list should disable every template")
	}
}

func TestLoadMissingFile(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "rules.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Templates()) != 3 {
		t.Errorf("expected default templates, got %d", len(s.Templates()))
	}
}

func TestWatchReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	reloaded := make(chan *Set, 1)
	go Watch(ctx, path, func(s *Set, err error) {
		if err == nil {
			select {
			case reloaded <- s:
			default:
			}
		}
	})

	// Give the watcher a moment to register the directory.
	time.Sleep(100 * time.Millisecond)
	doc := "templates:\n  - name: Only\n    domains: [example.com]\n    color: red\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case s := <-reloaded:
		if got := names(s.Templates()); len(got) != 1 || got[0] != "Only" {
			t.Errorf("reloaded templates = %v", got)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for reload")
	}
}
