// Package locator turns the URLs a backend hands out (relative paths, absolute
// URLs, blob references) into addresses a client can fetch directly.
package locator

import (
	"fmt"
	"net/url"
	"strings"
)

const apiSuffix = "/api/v1"

var absolutePrefixes = []string{"http://", "https://", "blob:"}

// originPrefixes are served from the deployment origin rather than under the API base.
var originPrefixes = []string{"/uploads", "/api/"}

type Resolver struct {
	base   string
	origin string
}

// CheckBase reports whether base can serve as an API base: an absolute http or
// https URL with a host.
func CheckBase(base string) error {
	u, err := url.Parse(strings.TrimSpace(base))
	if err != nil {
		return fmt.Errorf("invalid API base %q: %w", base, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid API base %q: want an http or https URL", base)
	}
	return nil
}

// NewResolver derives the origin by stripping a trailing /api/v1 from base.
func NewResolver(base string) *Resolver {
	base = strings.TrimRight(base, "/")
	origin := strings.TrimSuffix(base, apiSuffix)
	return &Resolver{base: base, origin: origin}
}

func (r *Resolver) Base() string   { return r.base }
func (r *Resolver) Origin() string { return r.origin }

// Resolve maps url to an absolute address. The empty string stands for a missing
// locator and is returned unchanged. Resolving an already resolved value is a no-op.
func (r *Resolver) Resolve(url string) string {
	if url == "" {
		return ""
	}
	for _, p := range absolutePrefixes {
		if strings.HasPrefix(url, p) {
			return url
		}
	}
	for _, p := range originPrefixes {
		if strings.HasPrefix(url, p) {
			return r.origin + url
		}
	}
	if strings.HasPrefix(url, "/") {
		return r.base + url
	}
	return r.base + "/" + url
}

// ResolvePtr is Resolve for nullable fields; nil and "" both yield nil.
func (r *Resolver) ResolvePtr(url *string) *string {
	if url == nil || *url == "" {
		return nil
	}
	resolved := r.Resolve(*url)
	return &resolved
}
