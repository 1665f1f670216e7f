// Package suggest learns which domains are open together and proposes
// groups from those recorded patterns.
package suggest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/lotas/tabgruppen/internal/applog"
	"github.com/lotas/tabgruppen/internal/classify"
	"github.com/lotas/tabgruppen/internal/types"
)

// MinOverlap is the number of shared domains a pattern needs before it is
// offered as a suggestion.
const MinOverlap = 2

// PatternStore records how often each canonical domain set was seen.
// storage.PatternStore is the durable implementation.
type PatternStore interface {
	Increment(ctx context.Context, key string) (int, error)
	All(ctx context.Context) (map[string]int, error)
}

// Engine records tab patterns and ranks suggestions against them.
type Engine struct {
	store PatternStore
}

// New returns an Engine backed by store.
func New(store PatternStore) *Engine {
	return &Engine{store: store}
}

// Domains returns the sorted, de-duplicated bare domains of tabs.
// Empty, internal and unparsable tabs are skipped.
func Domains(tabs []*types.Tab) []string {
	set := make(map[string]bool)
	for _, t := range tabs {
		if classify.IsEmptyTab(t.URL) || classify.IsInternal(t.URL) {
			continue
		}
		d, err := classify.DomainKey(t.URL, false)
		if err != nil {
			continue
		}
		set[d] = true
	}
	out := make([]string, 0, len(set))
	for d := range set {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// Key is the canonical pattern key for a sorted domain list.
func Key(domains []string) string {
	return strings.Join(domains, ",")
}

// RecordPattern bumps the occurrence count of the tabs' domain set.
// A tab set with no domains is not recorded.
func (e *Engine) RecordPattern(ctx context.Context, tabs []*types.Tab) error {
	domains := Domains(tabs)
	if len(domains) == 0 {
		return nil
	}
	key := Key(domains)
	n, err := e.store.Increment(ctx, key)
	if err != nil {
		return fmt.Errorf("record pattern: %w", err)
	}
	applog.Info("suggest.record", "domains", len(domains), "occurrences", n)
	return nil
}

// Suggest ranks recorded patterns that share at least MinOverlap domains
// with tabs. Confidence is (overlap / pattern size) * occurrences; results
// are ordered by descending confidence, then by pattern key.
func (e *Engine) Suggest(ctx context.Context, tabs []*types.Tab) ([]types.Suggestion, error) {
	current := make(map[string]bool)
	for _, d := range Domains(tabs) {
		current[d] = true
	}

	patterns, err := e.store.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("load patterns: %w", err)
	}

	type ranked struct {
		key string
		s   types.Suggestion
	}
	var out []ranked
	for key, count := range patterns {
		domains := strings.Split(key, ",")
		overlap := 0
		for _, d := range domains {
			if current[d] {
				overlap++
			}
		}
		if overlap < MinOverlap {
			continue
		}
		out = append(out, ranked{key: key, s: types.Suggestion{
			Domains:     domains,
			Confidence:  float64(overlap) / float64(len(domains)) * float64(count),
			Occurrences: count,
		}})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].s.Confidence != out[j].s.Confidence {
			return out[i].s.Confidence > out[j].s.Confidence
		}
		return out[i].key < out[j].key
	})

	result := make([]types.Suggestion, len(out))
	for i, r := range out {
		result[i] = r.s
	}
	return result, nil
}

// MemStore is an in-memory PatternStore.
type MemStore struct {
	mu     sync.Mutex
	counts map[string]int
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{counts: make(map[string]int)}
}

func (m *MemStore) Increment(ctx context.Context, key string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[key]++
	return m.counts[key], nil
}

func (m *MemStore) All(ctx context.Context) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int, len(m.counts))
	for k, v := range m.counts {
		out[k] = v
	}
	return out, nil
}
