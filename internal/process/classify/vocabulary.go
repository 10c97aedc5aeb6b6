package classify

import (
	"regexp"
	"strings"
)

// Vocabulary matches a title against a primary-language term set and a
// local-language term set. Primary terms are regular expression fragments
// anchored at ASCII word boundaries and matched case-insensitively; local terms
// are plain substrings.
type Vocabulary struct {
	primary *regexp.Regexp
	local   []string
}

// NewVocabulary compiles a vocabulary. It panics on an invalid fragment, so it
// is meant for package-level variables.
func NewVocabulary(primary, local []string) Vocabulary {
	v := Vocabulary{local: local}

	if len(primary) > 0 {
		v.primary = regexp.MustCompile(`(?i)\b(?:` + strings.Join(primary, "|") + `)\b`)
	}

	return v
}

// Matches reports whether text contains any term of the vocabulary.
func (v Vocabulary) Matches(text string) bool {
	if v.primary != nil && v.primary.MatchString(text) {
		return true
	}

	for _, term := range v.local {
		if strings.Contains(text, term) {
			return true
		}
	}

	return false
}
