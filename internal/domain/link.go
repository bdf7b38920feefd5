package domain

import (
	"fmt"
	"net/url"
	"strings"
)

// NormalizeLink resolves a listing href into the absolute URL used as dedup key.
// Protocol-relative links get https. Relative links, path-relative included,
// resolve against the root of origin, so "x" and "/x" name the same record.
// Query strings and fragments are left untouched.
func NormalizeLink(href string, origin *url.URL) (string, error) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", fmt.Errorf("empty link")
	}

	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}

	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("parse link %q: %w", href, err)
	}

	if ref.IsAbs() {
		if ref.Scheme != "http" && ref.Scheme != "https" {
			return "", fmt.Errorf("unsupported scheme in %q", href)
		}
		if ref.Host == "" {
			return "", fmt.Errorf("missing host in %q", href)
		}
		return ref.String(), nil
	}

	if origin == nil || !origin.IsAbs() {
		return "", fmt.Errorf("relative link %q without source origin", href)
	}

	root := &url.URL{Scheme: origin.Scheme, Host: origin.Host, Path: "/"}
	return root.ResolveReference(ref).String(), nil
}
