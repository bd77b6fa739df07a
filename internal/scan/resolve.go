package scan

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ResolveURL turns a discovered link into the absolute URL used as the dedup
// key. ref may be absolute, root-relative, relative or protocol-relative.
// The result is always http(s) with a host, a lower-case host and no fragment.
func ResolveURL(base, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", errors.New("empty url")
	}

	baseURL, err := url.Parse(strings.TrimSpace(base))
	if err != nil {
		return "", fmt.Errorf("parsing base url %q: %w", base, err)
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("parsing url %q: %w", ref, err)
	}

	resolved := baseURL.ResolveReference(refURL)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return "", fmt.Errorf("url %q does not resolve to http(s)", ref)
	}
	if resolved.Host == "" {
		return "", fmt.Errorf("url %q has no host", ref)
	}
	resolved.Host = strings.ToLower(resolved.Host)
	resolved.Fragment = ""
	resolved.RawFragment = ""
	return resolved.String(), nil
}
