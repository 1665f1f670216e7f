package settings

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lotas/tabgruppen/internal/storage"
	"github.com/lotas/tabgruppen/internal/types"
)

func TestApplyClampsDurations(t *testing.T) {
	tests := []struct {
		name  string
		patch Patch
		check func(t *testing.T, s Settings)
	}{
		{
			name:  "work above max",
			patch: Patch{PomodoroWorkDuration: Int(500)},
			check: func(t *testing.T, s Settings) { assert.Equal(t, 60, s.PomodoroWorkDuration) },
		},
		{
			name:  "work zero",
			patch: Patch{PomodoroWorkDuration: Int(0)},
			check: func(t *testing.T, s Settings) { assert.Equal(t, 1, s.PomodoroWorkDuration) },
		},
		{
			name:  "break above max",
			patch: Patch{PomodoroBreakDuration: Int(45)},
			check: func(t *testing.T, s Settings) { assert.Equal(t, 30, s.PomodoroBreakDuration) },
		},
		{
			name:  "long break negative",
			patch: Patch{PomodoroLongBreakDuration: Int(-3)},
			check: func(t *testing.T, s Settings) { assert.Equal(t, 1, s.PomodoroLongBreakDuration) },
		},
		{
			name:  "max group size zero",
			patch: Patch{MaxGroupSize: Int(0)},
			check: func(t *testing.T, s Settings) { assert.Equal(t, 1, s.MaxGroupSize) },
		},
		{
			name:  "in range untouched",
			patch: Patch{PomodoroWorkDuration: Int(50)},
			check: func(t *testing.T, s Settings) { assert.Equal(t, 50, s.PomodoroWorkDuration) },
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.check(t, Apply(Defaults(), tc.patch))
		})
	}
}

func TestApplyLeavesUnsetFields(t *testing.T) {
	s := Apply(Defaults(), Patch{DarkMode: Bool(true)})
	assert.True(t, s.DarkMode)
	assert.Equal(t, 10, s.MaxGroupSize)
	assert.True(t, s.SmartGroups)
	assert.Equal(t, 25, s.PomodoroWorkDuration)
}

func TestApplyDropsInvalidColors(t *testing.T) {
	s := Apply(Defaults(), Patch{CustomColors: map[string]types.Color{
		"github.com": types.ColorBlue,
		"slack.com":  "magenta",
	}})
	assert.Equal(t, map[string]types.Color{"github.com": types.ColorBlue}, s.CustomColors)
}

func TestStores(t *testing.T) {
	db, err := storage.OpenDB(filepath.Join(t.TempDir(), "settings.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	stores := map[string]Store{
		"sql": NewSQLStore(db),
		"mem": NewMemStore(),
	}
	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			s, err := store.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, Defaults(), s)

			require.NoError(t, store.Save(ctx, Patch{
				PomodoroWorkDuration: Int(500),
				ExcludeDomains:       []string{"mail.example.com"},
				CustomColors:         map[string]types.Color{"github.com": types.ColorPurple},
			}))
			require.NoError(t, store.Save(ctx, Patch{GroupSingleTabs: Bool(true)}))

			s, err = store.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, 60, s.PomodoroWorkDuration)
			assert.True(t, s.GroupSingleTabs)
			assert.True(t, s.SortTabs, "unset keys keep defaults")
			assert.Equal(t, []string{"mail.example.com"}, s.ExcludeDomains)
			assert.Equal(t, types.ColorPurple, s.CustomColors["github.com"])

			require.NoError(t, store.Save(ctx, Patch{ExcludeDomains: []string{}}))
			s, err = store.Load(ctx)
			require.NoError(t, err)
			assert.Empty(t, s.ExcludeDomains)
		})
	}
}

func TestSQLStoreIgnoresCorruptValue(t *testing.T) {
	db, err := storage.OpenDB(filepath.Join(t.TempDir(), "corrupt.db"))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, storage.SaveSettings(db, map[string]string{
		"maxGroupSize": `"lots"`,
		"darkMode":     "true",
		"unknownKey":   "1",
	}))

	s, err := NewSQLStore(db).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, s.MaxGroupSize)
	assert.True(t, s.DarkMode)
}

func TestTimerSubset(t *testing.T) {
	s := Defaults()
	ts := s.Timer()
	assert.False(t, ts.Enabled)
	assert.Equal(t, 25, ts.WorkMinutes)
	assert.Equal(t, 5, ts.BreakMinutes)
	assert.Equal(t, 15, ts.LongBreakMinutes)
	assert.True(t, ts.Notifications)
}

func TestLoadPresets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.toml")
	content := `
[preset."Deep Work"]
pomodoroEnabled = true
pomodoroWorkDuration = 50
excludeDomains = ["music.example.com"]

[preset.Minimal]
maxGroupSize = 3
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	presets, err := LoadPresets(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Deep Work", "Minimal", "Power User"}, presets.Names())

	deep := Apply(Defaults(), presets["Deep Work"])
	assert.True(t, deep.PomodoroEnabled)
	assert.Equal(t, 50, deep.PomodoroWorkDuration)
	assert.Equal(t, []string{"music.example.com"}, deep.ExcludeDomains)

	minimal := Apply(Defaults(), presets["Minimal"])
	assert.Equal(t, 3, minimal.MaxGroupSize, "user preset replaces built-in")
}

func TestLoadPresetsMissingFile(t *testing.T) {
	presets, err := LoadPresets(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Len(t, presets, 2)
}
