package main

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lotas/tabgruppen/internal/settings"
)

func TestParsePatch(t *testing.T) {
	p, err := parsePatch([]string{"autoGroup=true", "maxGroupSize=1", "pomodoroWorkDuration=30"})
	require.NoError(t, err)
	require.NotNil(t, p.AutoGroup)
	assert.True(t, *p.AutoGroup)
	require.NotNil(t, p.MaxGroupSize)
	assert.Equal(t, 1, *p.MaxGroupSize)
	require.NotNil(t, p.PomodoroWorkDuration)
	assert.Equal(t, 30, *p.PomodoroWorkDuration)
	assert.Nil(t, p.DarkMode)

	p, err = parsePatch([]string{`{"excludeDomains": ["a.com"], "darkMode": true}`})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.com"}, p.ExcludeDomains)
	require.NotNil(t, p.DarkMode)

	_, err = parsePatch([]string{"darkMode"})
	assert.Error(t, err)
	_, err = parsePatch([]string{"maxGroupSize=lots"})
	assert.Error(t, err)
}

// run executes the CLI with an isolated home directory and database.
func run(t *testing.T, home string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", home)
	for _, k := range []string{"TABGRUPPEN_PORT", "TABGRUPPEN_DB", "TABGRUPPEN_FIREFOX_DIR", "TABGRUPPEN_PROFILE"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--db", filepath.Join(home, "test.db")}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestSettingsCommands(t *testing.T) {
	home := t.TempDir()

	out, err := run(t, home, "settings", "set", "maxGroupSize=500", "darkMode=true")
	require.NoError(t, err, out)

	out, err = run(t, home, "settings", "get")
	require.NoError(t, err, out)
	var s settings.Settings
	require.NoError(t, json.Unmarshal([]byte(out), &s), out)
	assert.Equal(t, settings.MaxGroupTabs, s.MaxGroupSize)
	assert.True(t, s.DarkMode)

	out, err = run(t, home, "settings", "preset")
	require.NoError(t, err)
	assert.Contains(t, out, "Minimal")

	out, err = run(t, home, "settings", "preset", "Minimal")
	require.NoError(t, err, out)
	require.NoError(t, json.Unmarshal([]byte(out), &s), out)
	assert.Equal(t, 5, s.MaxGroupSize)

	_, err = run(t, home, "settings", "preset", "nope")
	assert.ErrorContains(t, err, "unknown preset")

	out, err = run(t, home, "settings", "reset")
	require.NoError(t, err, out)
	require.NoError(t, json.Unmarshal([]byte(out), &s), out)
	assert.Equal(t, settings.Defaults().MaxGroupSize, s.MaxGroupSize)
	assert.False(t, s.DarkMode)
}

func writeProfile(t *testing.T, session string) string {
	t.Helper()
	ff := t.TempDir()
	ini := "[Profile0]\nName=work\nIsRelative=1\nPath=abc.work\nDefault=1\n"
	require.NoError(t, os.WriteFile(filepath.Join(ff, "profiles.ini"), []byte(ini), 0o644))

	payload := []byte(session)
	compressed := make([]byte, lz4.CompressBlockBound(len(payload)))
	n, err := lz4.CompressBlock(payload, compressed, nil)
	require.NoError(t, err)
	data := append([]byte("mozLz40\x00"), binary.LittleEndian.AppendUint32(nil, uint32(len(payload)))...)
	data = append(data, compressed[:n]...)

	dir := filepath.Join(ff, "abc.work", "sessionstore-backups")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "recovery.jsonlz4"), data, 0o644))
	return ff
}

const testSession = `{
	"windows": [{
		"tabs": [
			{"entries": [{"url": "https://example.com/a", "title": "Example A"}], "index": 1, "lastAccessed": 1707654321000},
			{"entries": [{"url": "https://example.com/b", "title": "Example B"}], "index": 1, "lastAccessed": 1707654321000},
			{"entries": [{"url": "https://other.com/page", "title": "Other 1"}], "index": 1, "lastAccessed": 1707654321000},
			{"entries": [{"url": "https://other.com/more", "title": "Other 2"}], "index": 1, "lastAccessed": 1707654321000}
		]
	}]
}`

func TestPlanCommand(t *testing.T) {
	home := t.TempDir()
	ff := writeProfile(t, testSession)

	out, err := run(t, home, "--firefox-dir", ff, "plan", "--json")
	require.NoError(t, err, out)

	var report struct {
		Groups []struct {
			Key  string `json:"key"`
			Tabs []struct {
				URL string `json:"url"`
			} `json:"tabs"`
		} `json:"groups"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report), out)
	var keys []string
	for _, g := range report.Groups {
		keys = append(keys, g.Key)
		assert.Len(t, g.Tabs, 2)
	}
	assert.ElementsMatch(t, []string{"example.com", "other.com"}, keys)

	out, err = run(t, home, "--firefox-dir", ff, "plan")
	require.NoError(t, err, out)
	assert.Contains(t, out, "# Tab plan: work, window 1")

	_, err = run(t, home, "--firefox-dir", ff, "plan", "--window", "7")
	assert.ErrorContains(t, err, "window 7 has no tabs")

	_, err = run(t, home, "--firefox-dir", ff, "plan", "--profile", "missing")
	assert.Error(t, err)
}

func TestProfilesCommand(t *testing.T) {
	home := t.TempDir()
	ff := writeProfile(t, testSession)

	out, err := run(t, home, "--firefox-dir", ff, "profiles")
	require.NoError(t, err, out)
	assert.Contains(t, out, "work (")
	assert.Contains(t, out, "[default]")
}

func TestSuggestCommandWithoutHistory(t *testing.T) {
	home := t.TempDir()
	ff := writeProfile(t, testSession)

	out, err := run(t, home, "--firefox-dir", ff, "suggest")
	require.NoError(t, err, out)
	assert.Contains(t, out, "No suggestions yet.")
}
