// Package colors picks tab group colors.
package colors

import (
	"hash/fnv"
	"math/rand/v2"
	"sync"

	"github.com/lotas/tabgruppen/internal/settings"
	"github.com/lotas/tabgruppen/internal/types"
)

// Assigner chooses a color per bucket key. Colors derived in color-by-domain
// mode are memoized for the Assigner's lifetime; nothing is persisted.
type Assigner struct {
	mu    sync.Mutex
	cache map[string]types.Color
	rng   *rand.Rand
}

// New returns an Assigner using a randomly seeded source.
func New() *Assigner {
	return NewWithSource(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

// NewWithSource returns an Assigner drawing random colors from src.
func NewWithSource(src rand.Source) *Assigner {
	return &Assigner{
		cache: make(map[string]types.Color),
		rng:   rand.New(src),
	}
}

// ColorFor returns the color for key. A custom color wins, then the memoized
// per-key color when ColorByDomain is set, otherwise a fresh random pick.
func (a *Assigner) ColorFor(key string, s settings.Settings) types.Color {
	if c, ok := s.CustomColors[key]; ok && c.Valid() {
		return c
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if !s.ColorByDomain {
		return types.Palette[a.rng.IntN(len(types.Palette))]
	}
	if c, ok := a.cache[key]; ok {
		return c
	}
	c := derive(key)
	a.cache[key] = c
	return c
}

// Forget drops every memoized color.
func (a *Assigner) Forget() {
	a.mu.Lock()
	defer a.mu.Unlock()
	clear(a.cache)
}

func derive(key string) types.Color {
	h := fnv.New32a()
	h.Write([]byte(key))
	return types.Palette[h.Sum32()%uint32(len(types.Palette))]
}
