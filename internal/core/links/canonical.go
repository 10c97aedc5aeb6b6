package links

import (
	"net/url"
	"strings"
)

const (
	wwwPrefix   = "www."
	schemeHTTP  = "http"
	schemeHTTPS = "https"
)

// trackingPrefixes are query parameter name prefixes removed during
// canonicalization. Matching is case-insensitive.
var trackingPrefixes = []string{
	"utm_",
	"fbclid",
	"gclid",
	"mc_",
}

// Canonicalize returns the stable form of rawURL used as the deduplication key.
// Tracking parameters, fragments and trailing path slashes are removed, the host
// is lower-cased and plain http is upgraded to https. Input that does not parse
// as an absolute URL is returned trimmed and otherwise unchanged.
func Canonicalize(rawURL string) string {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return ""
	}

	u, err := url.Parse(trimmed)
	if err != nil || u.Host == "" {
		return trimmed
	}

	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme == schemeHTTP {
		u.Scheme = schemeHTTPS
	}

	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	u.ForceQuery = false

	trimPath(u)
	u.RawQuery = canonicalQuery(u.RawQuery)

	return u.String()
}

// trimPath drops trailing slashes. An escaped path is trimmed in its raw
// form so encoded slashes such as %2F survive.
func trimPath(u *url.URL) {
	if u.RawPath == "" {
		u.Path = strings.TrimRight(u.Path, "/")

		return
	}

	raw := strings.TrimRight(u.RawPath, "/")

	path, err := url.PathUnescape(raw)
	if err != nil {
		u.Path = strings.TrimRight(u.Path, "/")
		u.RawPath = ""

		return
	}

	u.Path = path
	u.RawPath = raw
}

// canonicalQuery removes tracking parameters and sorts the rest. A query the
// standard parser rejects (for example one using ';' separators) keeps its
// original pairs and order, minus tracking parameters.
func canonicalQuery(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}

	q, err := url.ParseQuery(rawQuery)
	if err == nil {
		return stripTracking(q).Encode()
	}

	pairs := strings.Split(rawQuery, "&")
	kept := pairs[:0]

	for _, pair := range pairs {
		key, _, _ := strings.Cut(pair, "=")
		if name, err := url.QueryUnescape(key); err == nil && isTrackingParam(name) {
			continue
		}

		if pair != "" {
			kept = append(kept, pair)
		}
	}

	return strings.Join(kept, "&")
}

func stripTracking(q url.Values) url.Values {
	for key := range q {
		if isTrackingParam(key) {
			q.Del(key)
		}
	}

	return q
}

func isTrackingParam(name string) bool {
	lower := strings.ToLower(name)

	for _, prefix := range trackingPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}

	return false
}

// Host returns the normalized host name of rawURL without port and without a
// leading "www.". It returns an empty string when rawURL has no host.
func Host(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}

	return normalizeDomain(u.Hostname())
}

func normalizeDomain(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	host = strings.TrimSuffix(host, ".")
	host = strings.TrimPrefix(host, wwwPrefix)

	return host
}
