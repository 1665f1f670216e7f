// Package classify maps tab URLs to grouping keys: bare domains, full
// hostnames, or smart-group names.
package classify

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// ErrParse is returned when a URL has no usable hostname.
var ErrParse = errors.New("unparsable url")

var emptyTabURLs = []string{"", "chrome://newtab/", "about:newtab", "about:home"}

var internalPrefixes = []string{
	"chrome://", "chrome-extension://", "extension://", "moz-extension://",
	"about:", "edge://", "resource:", "view-source:",
}

// DomainKey returns the grouping key for rawURL. With useSubdomain the full
// hostname is returned; otherwise the last two labels of the hostname.
// The two-label form is not public-suffix aware ("bbc.co.uk" yields "co.uk");
// see RegistrableDomain for the aware variant.
func DomainKey(rawURL string, useSubdomain bool) (string, error) {
	host, err := hostname(rawURL)
	if err != nil {
		return "", err
	}
	if useSubdomain || net.ParseIP(host) != nil {
		return host, nil
	}
	labels := strings.Split(host, ".")
	if len(labels) <= 2 {
		return host, nil
	}
	return strings.Join(labels[len(labels)-2:], "."), nil
}

// RegistrableDomain returns the eTLD+1 of rawURL using the public suffix list.
// Hosts that are themselves a public suffix fall back to the full hostname.
func RegistrableDomain(rawURL string) (string, error) {
	host, err := hostname(rawURL)
	if err != nil {
		return "", err
	}
	if net.ParseIP(host) != nil {
		return host, nil
	}
	d, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host, nil
	}
	return d, nil
}

func hostname(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrParse, err)
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", fmt.Errorf("%w: %q has no hostname", ErrParse, rawURL)
	}
	return host, nil
}

// IsEmptyTab reports whether the URL is blank or a new-tab page.
func IsEmptyTab(rawURL string) bool {
	for _, u := range emptyTabURLs {
		if rawURL == u {
			return true
		}
	}
	return false
}

// IsInternal reports whether the URL uses a privileged browser scheme.
func IsInternal(rawURL string) bool {
	for _, p := range internalPrefixes {
		if strings.HasPrefix(rawURL, p) {
			return true
		}
	}
	return false
}
