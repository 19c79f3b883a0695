package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"regexp"
	"strings"
)

// HashURL creates a SHA256 hash of a URL string. The hash serves as the
// content-address for crawl result deduplication.
func HashURL(rawURL string) string {
	h := sha256.New()
	h.Write([]byte(rawURL))
	return hex.EncodeToString(h.Sum(nil))
}

// CanonicalURL normalizes a URL before hashing: lowercased scheme and host,
// no fragment, no trailing slash. Two spellings of the same address must
// produce the same dedupe hash.
func CanonicalURL(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return strings.TrimSpace(rawURL)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.Path = strings.TrimRight(u.Path, "/")
	return u.String()
}

// ToAbsoluteURL converts a relative URL to an absolute URL given a base URL.
func ToAbsoluteURL(base *url.URL, relative string) (string, error) {
	relURL, err := url.Parse(relative)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(relURL).String(), nil
}

var (
	slugInvalid = regexp.MustCompile(`[^a-z0-9-]+`)
	slugRepeats = regexp.MustCompile(`-{2,}`)
)

// Slugify lower-cases the input, replaces whitespace with hyphens, strips
// everything outside [a-z0-9-], and collapses repeated hyphens.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Join(strings.Fields(s), "-")
	s = slugInvalid.ReplaceAllString(s, "")
	s = slugRepeats.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
