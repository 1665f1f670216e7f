package firefox

import (
	"encoding/binary"
	"testing"

	"github.com/goccy/go-json"
	"github.com/pierrec/lz4/v4"

	"github.com/lotas/tabgruppen/internal/types"
)

func TestDecompressMozLz4(t *testing.T) {
	t.Run("valid mozlz4 payload", func(t *testing.T) {
		original := []byte(`{"windows":[{"tabs":[]}]}`)

		// Compress with lz4 block compression.
		dst := make([]byte, lz4.CompressBlockBound(len(original)))
		n, err := lz4.CompressBlock(original, dst, nil)
		if err != nil {
			t.Fatalf("lz4.CompressBlock failed: %v", err)
		}
		compressed := dst[:n]

		// Build mozlz4 payload: 8-byte magic + 4-byte LE uint32 size + compressed data.
		magic := []byte("mozLz40\x00")
		sizeBytes := make([]byte, 4)
		binary.LittleEndian.PutUint32(sizeBytes, uint32(len(original)))

		payload := make([]byte, 0, len(magic)+len(sizeBytes)+len(compressed))
		payload = append(payload, magic...)
		payload = append(payload, sizeBytes...)
		payload = append(payload, compressed...)

		result, err := DecompressMozLz4(payload)
		if err != nil {
			t.Fatalf("DecompressMozLz4 returned error: %v", err)
		}
		if string(result) != string(original) {
			t.Errorf("expected %q, got %q", string(original), string(result))
		}
	})

	t.Run("invalid header returns error", func(t *testing.T) {
		// Wrong magic bytes.
		bad := []byte("BADMAGIC\x00\x00\x00\x00some data here")
		_, err := DecompressMozLz4(bad)
		if err == nil {
			t.Fatal("expected error for invalid header, got nil")
		}
	})

	t.Run("too short data returns error", func(t *testing.T) {
		short := []byte("mozLz40")
		_, err := DecompressMozLz4(short)
		if err == nil {
			t.Fatal("expected error for too-short data, got nil")
		}
	})
}

func TestParseSession(t *testing.T) {
	session := map[string]any{
		"windows": []map[string]any{
			{
				"tabs": []map[string]any{
					{
						"entries":      []map[string]any{{"url": "https://example.com", "title": "Example"}},
						"index":        1,
						"lastAccessed": 1707654321000,
						"groupId":      "group-1",
						"pinned":       true,
					},
					{
						"entries": []map[string]any{
							{"url": "https://old.com", "title": "Old Page"},
							{"url": "https://current.com", "title": "Current Page"},
						},
						"index":        2,
						"lastAccessed": 1707654999000,
					},
					{"entries": []map[string]any{}},
					{
						"entries": []map[string]any{{"url": "https://orphan.com", "title": "Orphan"}},
						"index":   1,
						"groupId": "missing",
					},
				},
				"groups": []map[string]any{
					{"id": "group-1", "name": "Work", "color": "blue", "collapsed": true},
				},
			},
			{
				"tabs": []map[string]any{
					{
						"entries": []map[string]any{{"url": "https://second.com", "title": "Second"}},
						"index":   1,
						"groupId": "group-2",
					},
				},
				"groups": []map[string]any{
					{"id": "group-2", "name": "Shop", "color": "orange"},
				},
			},
		},
	}
	data, err := json.Marshal(session)
	if err != nil {
		t.Fatalf("json.Marshal failed: %v", err)
	}

	sd, err := ParseSession(data)
	if err != nil {
		t.Fatalf("ParseSession returned error: %v", err)
	}

	if len(sd.Groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(sd.Groups))
	}
	work, shop := sd.Groups[0], sd.Groups[1]
	if work.ID != 1 || work.Title != "Work" || work.Color != types.ColorBlue || !work.Collapsed || work.WindowID != 1 {
		t.Errorf("work group = %+v", work)
	}
	if shop.ID != 2 || shop.Color != types.ColorGrey || shop.WindowID != 2 {
		t.Errorf("shop group = %+v, want id 2, grey, window 2", shop)
	}

	if len(sd.Tabs) != 4 {
		t.Fatalf("expected 4 tabs (empty entries skipped), got %d", len(sd.Tabs))
	}
	tab0 := sd.Tabs[0]
	if tab0.ID != 1 || tab0.URL != "https://example.com" || tab0.GroupID != 1 || !tab0.Pinned {
		t.Errorf("tab0 = %+v", tab0)
	}
	if tab0.LastAccessed.UnixMilli() != 1707654321000 {
		t.Errorf("tab0 LastAccessed: expected 1707654321000, got %d", tab0.LastAccessed.UnixMilli())
	}

	tab1 := sd.Tabs[1]
	// index=2 means entries[1] is the current page.
	if tab1.URL != "https://current.com" || tab1.Title != "Current Page" || tab1.Grouped() {
		t.Errorf("tab1 = %+v", tab1)
	}

	orphan := sd.Tabs[2]
	if orphan.GroupID != types.NoGroup || orphan.Index != 2 || !orphan.LastAccessed.IsZero() {
		t.Errorf("orphan = %+v, want ungrouped at index 2 with no access time", orphan)
	}

	second := sd.Tabs[3]
	if second.ID != 4 || second.WindowID != 2 || second.Index != 0 || second.GroupID != 2 {
		t.Errorf("second-window tab = %+v", second)
	}
	if got := sd.TabsInWindow(2); len(got) != 1 || got[0].ID != 4 {
		t.Errorf("TabsInWindow(2) = %v", got)
	}
}

func TestParseSessionInvalidJSON(t *testing.T) {
	if _, err := ParseSession([]byte("{not json")); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}
