// Package htmlutils provides text cleanup helpers for feed content.
//
// The package handles:
//   - Markup removal with entity decoding
//   - Whitespace collapsing
//   - Unicode compatibility folding for keyword matching
//   - Rune-safe truncation
package htmlutils

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"
)

// skippedElements hold content that is never rendered as text.
var skippedElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
}

// StripHTMLTags removes all markup from text, keeping only the content.
// Tags are replaced by a single space so adjacent blocks do not merge.
func StripHTMLTags(text string) string {
	if !strings.ContainsAny(text, "<&") {
		return text
	}

	var sb strings.Builder

	z := html.NewTokenizer(strings.NewReader(text))
	skipDepth := 0

	for {
		tt := z.Next()

		switch tt {
		case html.ErrorToken:
			// io.EOF or a tokenizer error; either way the text so far is all we get.
			return sb.String()
		case html.TextToken:
			if skipDepth == 0 {
				sb.Write(z.Text())
			}
		case html.StartTagToken:
			name, _ := z.TagName()
			if skippedElements[string(name)] {
				skipDepth++
			}

			sb.WriteByte(' ')
		case html.EndTagToken:
			name, _ := z.TagName()
			if skippedElements[string(name)] && skipDepth > 0 {
				skipDepth--
			}

			sb.WriteByte(' ')
		case html.SelfClosingTagToken:
			sb.WriteByte(' ')
		case html.CommentToken, html.DoctypeToken:
		}
	}
}

// CollapseWhitespace replaces runs of whitespace with a single space and trims.
func CollapseWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// Clean strips markup and collapses whitespace.
func Clean(text string) string {
	return CollapseWhitespace(StripHTMLTags(text))
}

// Fold applies NFKC compatibility normalization so full-width Latin letters and
// half-width kana compare equal to their canonical forms.
func Fold(text string) string {
	return norm.NFKC.String(text)
}

// Truncate cuts text to at most max runes. It never splits a rune.
func Truncate(text string, max int) string {
	if max <= 0 {
		return ""
	}

	if utf8.RuneCountInString(text) <= max {
		return text
	}

	runes := []rune(text)

	return strings.TrimSpace(string(runes[:max]))
}

// TruncateWithEllipsis cuts text to at most max runes and marks the cut.
func TruncateWithEllipsis(text string, max int) string {
	if utf8.RuneCountInString(text) <= max {
		return text
	}

	return Truncate(text, max) + "…"
}
