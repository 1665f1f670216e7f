package settings

import (
	"errors"
	"fmt"
	"os"
	"sort"

	toml "github.com/pelletier/go-toml/v2"
)

// Presets maps a preset name to the patch it applies.
type Presets map[string]Patch

// BuiltinPresets returns the presets shipped with the extension.
func BuiltinPresets() Presets {
	return Presets{
		"Minimal": {
			AutoCollapse:    Bool(true),
			GroupSingleTabs: Bool(false),
			MaxGroupSize:    Int(5),
		},
		"Power User": {
			AutoCollapse:    Bool(false),
			GroupSingleTabs: Bool(true),
			SmartGroups:     Bool(true),
			SortTabs:        Bool(true),
		},
	}
}

// Names returns the preset names in sorted order.
func (p Presets) Names() []string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// presetFile is the on-disk layout:
//
//	[preset."Deep Work"]
//	pomodoroWorkDuration = 50
//	autoCollapse = true
type presetFile struct {
	Preset map[string]presetEntry `toml:"preset"`
}

type presetEntry struct {
	AutoGroup                 *bool    `toml:"autoGroup"`
	GroupSingleTabs           *bool    `toml:"groupSingleTabs"`
	ColorByDomain             *bool    `toml:"colorByDomain"`
	MaxGroupSize              *int     `toml:"maxGroupSize"`
	SortTabs                  *bool    `toml:"sortTabs"`
	AutoCollapse              *bool    `toml:"autoCollapse"`
	PinGroups                 *bool    `toml:"pinGroups"`
	GroupBySubdomain          *bool    `toml:"groupBySubdomain"`
	ExcludeDomains            []string `toml:"excludeDomains"`
	GroupEmptyTabs            *bool    `toml:"groupEmptyTabs"`
	SmartGroups               *bool    `toml:"smartGroups"`
	UseTemplates              *bool    `toml:"useTemplates"`
	PomodoroEnabled           *bool    `toml:"pomodoroEnabled"`
	PomodoroWorkDuration      *int     `toml:"pomodoroWorkDuration"`
	PomodoroBreakDuration     *int     `toml:"pomodoroBreakDuration"`
	PomodoroLongBreakDuration *int     `toml:"pomodoroLongBreakDuration"`
	PomodoroNotifications     *bool    `toml:"pomodoroNotifications"`
}

func (e presetEntry) patch() Patch {
	return Patch{
		AutoGroup:                 e.AutoGroup,
		GroupSingleTabs:           e.GroupSingleTabs,
		ColorByDomain:             e.ColorByDomain,
		MaxGroupSize:              e.MaxGroupSize,
		SortTabs:                  e.SortTabs,
		AutoCollapse:              e.AutoCollapse,
		PinGroups:                 e.PinGroups,
		GroupBySubdomain:          e.GroupBySubdomain,
		ExcludeDomains:            e.ExcludeDomains,
		GroupEmptyTabs:            e.GroupEmptyTabs,
		SmartGroups:               e.SmartGroups,
		UseTemplates:              e.UseTemplates,
		PomodoroEnabled:           e.PomodoroEnabled,
		PomodoroWorkDuration:      e.PomodoroWorkDuration,
		PomodoroBreakDuration:     e.PomodoroBreakDuration,
		PomodoroLongBreakDuration: e.PomodoroLongBreakDuration,
		PomodoroNotifications:     e.PomodoroNotifications,
	}
}

// LoadPresets returns the built-in presets merged with those defined in the
// TOML file at path. A user preset replaces a built-in one of the same name.
// A missing file is not an error.
func LoadPresets(path string) (Presets, error) {
	presets := BuiltinPresets()
	if path == "" {
		return presets, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return presets, nil
		}
		return nil, fmt.Errorf("read presets: %w", err)
	}

	var file presetFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse presets %s: %w", path, err)
	}
	for name, entry := range file.Preset {
		presets[name] = entry.patch()
	}
	return presets, nil
}
