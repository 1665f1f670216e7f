// Package firefox reads tabs and groups from a Firefox profile's session
// store, so plans can be previewed without a connected browser.
package firefox

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
	"github.com/pierrec/lz4/v4"

	"github.com/lotas/tabgruppen/internal/types"
)

var mozLz4Magic = []byte("mozLz40\x00")

// ErrNoSession is returned when a profile has no session file.
var ErrNoSession = errors.New("no session file")

// sessionFiles are tried in order: the live session, then the last closed one.
var sessionFiles = []string{"recovery.jsonlz4", "previous.jsonlz4"}

// DecompressMozLz4 decompresses Mozilla's mozlz4 format: the magic
// "mozLz40\x00", a little-endian uint32 uncompressed size, then one lz4 block.
func DecompressMozLz4(data []byte) ([]byte, error) {
	const headerSize = 12

	if len(data) < headerSize {
		return nil, fmt.Errorf("mozlz4: data too short (%d bytes)", len(data))
	}
	if !bytes.Equal(data[:len(mozLz4Magic)], mozLz4Magic) {
		return nil, fmt.Errorf("mozlz4: invalid header magic")
	}

	size := binary.LittleEndian.Uint32(data[8:12])
	dst := make([]byte, size)
	n, err := lz4.UncompressBlock(data[headerSize:], dst)
	if err != nil {
		return nil, fmt.Errorf("mozlz4: decompress failed: %w", err)
	}
	return dst[:n], nil
}

type rawEntry struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

type rawTab struct {
	Entries      []rawEntry `json:"entries"`
	Index        int        `json:"index"`
	LastAccessed int64      `json:"lastAccessed"`
	Pinned       bool       `json:"pinned"`
	Group        string     `json:"groupId"`
}

type rawGroup struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Color     string `json:"color"`
	Collapsed bool   `json:"collapsed"`
}

type rawWindow struct {
	Tabs   []rawTab   `json:"tabs"`
	Groups []rawGroup `json:"groups"`
}

type rawSession struct {
	Windows []rawWindow `json:"windows"`
}

// ParseSession converts session JSON into tabs and groups. Windows are
// numbered from 1 in file order, tabs from 1 across all windows, and groups
// from 1 in declaration order. Tabs referencing an undeclared group are
// ungrouped. Firefox group colors outside the palette become grey.
func ParseSession(data []byte) (*types.SessionData, error) {
	var raw rawSession
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse session JSON: %w", err)
	}

	sd := &types.SessionData{ParsedAt: time.Now()}
	nextTab, nextGroup := 1, 1
	for w, window := range raw.Windows {
		windowID := w + 1

		groupIDs := make(map[string]int, len(window.Groups))
		for _, rg := range window.Groups {
			color := types.Color(rg.Color)
			if !color.Valid() {
				color = types.ColorGrey
			}
			groupIDs[rg.ID] = nextGroup
			sd.Groups = append(sd.Groups, &types.TabGroup{
				ID:        nextGroup,
				Title:     rg.Name,
				Color:     color,
				Collapsed: rg.Collapsed,
				WindowID:  windowID,
			})
			nextGroup++
		}

		index := 0
		for _, rt := range window.Tabs {
			if len(rt.Entries) == 0 {
				continue
			}
			// index is 1-based and points at the current history entry.
			e := rt.Index - 1
			if e < 0 || e >= len(rt.Entries) {
				e = len(rt.Entries) - 1
			}
			entry := rt.Entries[e]

			groupID := types.NoGroup
			if id, ok := groupIDs[rt.Group]; ok && rt.Group != "" {
				groupID = id
			}
			tab := &types.Tab{
				ID:       nextTab,
				URL:      entry.URL,
				Title:    entry.Title,
				GroupID:  groupID,
				WindowID: windowID,
				Index:    index,
				Pinned:   rt.Pinned,
			}
			if rt.LastAccessed > 0 {
				tab.LastAccessed = time.UnixMilli(rt.LastAccessed)
			}
			sd.Tabs = append(sd.Tabs, tab)
			nextTab++
			index++
		}
	}
	return sd, nil
}

// ReadSessionFile reads and parses the session store of profileDir.
func ReadSessionFile(profileDir string) (*types.SessionData, error) {
	path, ok := sessionFile(profileDir)
	if !ok {
		return nil, fmt.Errorf("%w in %s", ErrNoSession, filepath.Join(profileDir, "sessionstore-backups"))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}
	decompressed, err := DecompressMozLz4(data)
	if err != nil {
		return nil, fmt.Errorf("decompress session file: %w", err)
	}
	return ParseSession(decompressed)
}

// LoadProfile reads the session of p and records p on the result.
func LoadProfile(p types.Profile) (*types.SessionData, error) {
	sd, err := ReadSessionFile(p.Path)
	if err != nil {
		return nil, err
	}
	sd.Profile = p
	return sd, nil
}

func sessionFile(profileDir string) (string, bool) {
	dir := filepath.Join(profileDir, "sessionstore-backups")
	for _, name := range sessionFiles {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
	}
	return "", false
}
