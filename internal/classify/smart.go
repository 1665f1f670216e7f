package classify

import "strings"

// SmartGroup is a named cluster of related domains.
type SmartGroup struct {
	Name    string
	Domains []string
}

// Table is an ordered list of smart groups. Lookups scan it in order and the
// first hit wins.
type Table []SmartGroup

// DefaultSmartGroups is the built-in smart group table.
var DefaultSmartGroups = Table{
	{Name: "Google Services", Domains: []string{"google.com", "gmail.com", "drive.google.com", "docs.google.com"}},
	{Name: "Social Media", Domains: []string{"facebook.com", "twitter.com", "instagram.com", "linkedin.com"}},
	{Name: "Microsoft", Domains: []string{"microsoft.com", "office.com", "live.com", "outlook.com"}},
	{Name: "Amazon", Domains: []string{"amazon.com", "aws.amazon.com", "kindle.com"}},
}

// Match returns the first smart group with a member that is a substring of domain.
func (t Table) Match(domain string) (string, bool) {
	for _, g := range t {
		if g.matches(domain) {
			return g.Name, true
		}
	}
	return "", false
}

// Related reports whether a single smart group matches both domains.
func (t Table) Related(a, b string) bool {
	for _, g := range t {
		if g.matches(a) && g.matches(b) {
			return true
		}
	}
	return false
}

func (g SmartGroup) matches(domain string) bool {
	if domain == "" {
		return false
	}
	for _, d := range g.Domains {
		if strings.Contains(domain, d) {
			return true
		}
	}
	return false
}
