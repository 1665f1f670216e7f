package colors

import (
	"math/rand/v2"
	"testing"

	"github.com/lotas/tabgruppen/internal/settings"
	"github.com/lotas/tabgruppen/internal/types"
)

func TestCustomColorWins(t *testing.T) {
	a := New()
	s := settings.Defaults()
	s.CustomColors = map[string]types.Color{"github.com": types.ColorPink}

	for _, byDomain := range []bool{true, false} {
		s.ColorByDomain = byDomain
		if got := a.ColorFor("github.com", s); got != types.ColorPink {
			t.Errorf("ColorByDomain=%v: got %q, want pink", byDomain, got)
		}
	}
}

func TestColorByDomainIsStable(t *testing.T) {
	a := New()
	s := settings.Defaults()

	first := a.ColorFor("example.com", s)
	if !first.Valid() {
		t.Fatalf("got invalid color %q", first)
	}
	for i := 0; i < 20; i++ {
		if got := a.ColorFor("example.com", s); got != first {
			t.Fatalf("call %d returned %q, want %q", i, got, first)
		}
	}

	// A second assigner derives the same color for the same key.
	if got := New().ColorFor("example.com", s); got != first {
		t.Errorf("fresh assigner returned %q, want %q", got, first)
	}
}

func TestRandomModeUsesPalette(t *testing.T) {
	a := NewWithSource(rand.NewPCG(1, 2))
	s := settings.Defaults()
	s.ColorByDomain = false

	seen := make(map[types.Color]bool)
	for i := 0; i < 200; i++ {
		c := a.ColorFor("example.com", s)
		if !c.Valid() {
			t.Fatalf("random pick %q not in palette", c)
		}
		seen[c] = true
	}
	if len(seen) < 2 {
		t.Errorf("random mode produced only %d distinct colors", len(seen))
	}
}

func TestForget(t *testing.T) {
	a := New()
	a.ColorFor("example.com", settings.Defaults())
	a.Forget()
	if len(a.cache) != 0 {
		t.Errorf("cache has %d entries after Forget", len(a.cache))
	}
}
