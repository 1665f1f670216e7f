package rules

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/lotas/tabgruppen/internal/applog"
)

// file is the YAML layout of the rules file. Template domains are matched
// against each tab's full hostname:
//
//	templates:
//	  - name: Work
//	    domains: [github.com, "*.atlassian.net"]
//	    color: blue
//	rules:
//	  - name: workHours
//	    active: true
//	    start: "09:00"
//	    end: "17:00"
//	    days: [1, 2, 3, 4, 5]
//	    templates: [Work]
type file struct {
	Templates []Template `yaml:"templates"`
	Rules     []Rule     `yaml:"rules"`
}

// Load reads the rules file at path. A missing file yields Default().
// Sections left out of the file fall back to their defaults.
func Load(path string) (*Set, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("read rules: %w", err)
	}
	return Parse(data)
}

// Parse compiles a rules document.
func Parse(data []byte) (*Set, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}
	if f.Templates == nil {
		f.Templates = DefaultTemplates
	}
	if f.Rules == nil {
		f.Rules = DefaultRules
	}
	return Compile(f.Templates, f.Rules)
}

const reloadDebounce = 200 * time.Millisecond

// Watch reloads the rules file whenever it changes and hands the result to
// onReload. The parent directory is watched so editors that replace the file
// on save are seen. Watch blocks until ctx is done.
func Watch(ctx context.Context, path string, onReload func(*Set, error)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create rules directory: %w", err)
	}
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	applog.Info("rules.watch", "path", path)

	target := filepath.Clean(path)
	var debounce <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			debounce = time.After(reloadDebounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			applog.Error("rules.watch", err)
		case <-debounce:
			debounce = nil
			set, err := Load(path)
			if err != nil {
				applog.Error("rules.reload", err, "path", path)
			} else {
				applog.Info("rules.reload", "path", path, "templates", len(set.templates))
			}
			onReload(set, err)
		}
	}
}
