package links

import (
	"strings"
	"unicode"
)

const (
	LangEnglish  = "en"
	LangJapanese = "ja"

	// Language detection thresholds
	japaneseThreshold = 0.3 // If >30% kana or kanji, consider Japanese
	latinThreshold    = 0.5 // If >50% Latin, consider Latin-based language

	englishStopwordMin   = 1
	englishStopwordRatio = 0.08
)

var englishStopwords = map[string]struct{}{
	"the": {}, "and": {}, "of": {}, "to": {}, "in": {}, "is": {}, "for": {}, "on": {}, "with": {},
	"as": {}, "by": {}, "from": {}, "at": {}, "that": {}, "this": {}, "be": {}, "are": {}, "was": {},
	"were": {}, "has": {}, "have": {}, "will": {}, "its": {}, "it": {},
}

// DetectLanguage returns a short language code for the text ("ja", "en") or "" if unknown.
// Text written only in kanji is left undecided since it may be Chinese.
func DetectLanguage(text string) string {
	if text == "" {
		return ""
	}

	latinCount, kanaCount, hanCount, totalLetters := countLanguageChars(text)

	if totalLetters == 0 {
		return ""
	}

	japaneseRatio := float64(kanaCount+hanCount) / float64(totalLetters)
	latinRatio := float64(latinCount) / float64(totalLetters)

	if kanaCount > 0 && japaneseRatio >= japaneseThreshold {
		return LangJapanese
	}

	if latinRatio >= latinThreshold && isLikelyEnglish(text) {
		return LangEnglish
	}

	return ""
}

// IsJapanese reports whether text reads as Japanese.
func IsJapanese(text string) bool {
	return DetectLanguage(text) == LangJapanese
}

func countLanguageChars(text string) (latinCount, kanaCount, hanCount, totalLetters int) {
	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}

		totalLetters++

		switch {
		case isKana(r):
			kanaCount++
		case unicode.Is(unicode.Han, r):
			hanCount++
		case isLatin(r):
			latinCount++
		}
	}

	return
}

func isKana(r rune) bool {
	return unicode.Is(unicode.Hiragana, r) || unicode.Is(unicode.Katakana, r) ||
		r == 'ー' // prolonged sound mark
}

func isLatin(r rune) bool {
	return (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') ||
		(r >= 0x00C0 && r <= 0x00FF) || // Latin-1 Supplement
		(r >= 0x0100 && r <= 0x017F) || // Latin Extended-A
		(r >= 0xFF21 && r <= 0xFF3A) || (r >= 0xFF41 && r <= 0xFF5A) // Fullwidth
}

func isLikelyEnglish(text string) bool {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})

	if len(words) == 0 {
		return false
	}

	matches := 0

	for _, w := range words {
		if _, ok := englishStopwords[w]; ok {
			matches++
		}
	}

	if matches < englishStopwordMin {
		return false
	}

	return float64(matches)/float64(len(words)) >= englishStopwordRatio
}
