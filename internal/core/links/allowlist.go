package links

import "strings"

// DefaultAllowedHosts are the publishers trusted by default. Subdomains of each
// entry are allowed as well.
var DefaultAllowedHosts = []string{
	"openai.com",
	"blog.google",
	"anthropic.com",
	"deepmind.google",
	"huggingface.co",
	"techcrunch.com",
	"theverge.com",
	"venturebeat.com",
	"technologyreview.com",
	"reuters.com",
	"bloomberg.com",
	"nikkei.com",
	"itmedia.co.jp",
	"ainow.ai",
	"impress.co.jp",
	"nhk.or.jp",
}

// AllowList decides which publisher hosts may contribute candidates.
// An empty list allows nothing.
type AllowList struct {
	hosts map[string]bool
}

// NewAllowList builds an allow-list from host names. Entries are normalized the
// same way candidate hosts are, so "www.example.com" and "Example.com" are equal.
func NewAllowList(hosts []string) *AllowList {
	set := make(map[string]bool, len(hosts))

	for _, h := range hosts {
		h = normalizeDomain(h)
		if h != "" {
			set[h] = true
		}
	}

	return &AllowList{hosts: set}
}

// Allows reports whether host equals an allowed entry or is a subdomain of one.
func (a *AllowList) Allows(host string) bool {
	host = normalizeDomain(host)
	if host == "" || a == nil {
		return false
	}

	if a.hosts[host] {
		return true
	}

	for d := range a.hosts {
		if strings.HasSuffix(host, "."+d) {
			return true
		}
	}

	return false
}

// Len returns the number of allowed entries.
func (a *AllowList) Len() int {
	if a == nil {
		return 0
	}

	return len(a.hosts)
}
