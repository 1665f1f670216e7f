package analyzer

import (
	"net/url"
	"sort"
	"strings"

	"github.com/lotas/tabgruppen/internal/types"
)

func NormalizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	u.Fragment = ""
	params := u.Query()
	for k := range params {
		sort.Strings(params[k])
	}
	u.RawQuery = params.Encode()
	result := u.String()
	if strings.HasSuffix(result, "/") && result != u.Scheme+"://"+u.Host+"/" {
		result = strings.TrimRight(result, "/")
	}
	return result
}

// DuplicateSets returns the ids of tabs sharing a normalized URL, one set
// per URL with at least two tabs, in the order the URLs first appear.
// Empty and internal pages are never duplicates.
func DuplicateSets(tabs []*types.Tab) [][]int {
	var order []string
	byURL := make(map[string][]int)
	for _, tab := range tabs {
		if tab.URL == "" || strings.HasPrefix(tab.URL, "about:") || strings.HasPrefix(tab.URL, "chrome://newtab") {
			continue
		}
		normalized := NormalizeURL(tab.URL)
		if _, ok := byURL[normalized]; !ok {
			order = append(order, normalized)
		}
		byURL[normalized] = append(byURL[normalized], tab.ID)
	}
	var sets [][]int
	for _, u := range order {
		if ids := byURL[u]; len(ids) >= 2 {
			sets = append(sets, ids)
		}
	}
	return sets
}

// CountDuplicates returns the number of tabs that repeat an earlier tab's URL.
func CountDuplicates(tabs []*types.Tab) int {
	n := 0
	for _, set := range DuplicateSets(tabs) {
		n += len(set) - 1
	}
	return n
}
