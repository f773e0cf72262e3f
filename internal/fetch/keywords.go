package fetch

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// maxKeywords caps how many keywords are extracted per item.
const maxKeywords = 10

var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {}, "in": {},
	"on": {}, "at": {}, "to": {}, "for": {}, "of": {}, "with": {}, "by": {},
	"from": {}, "is": {}, "are": {}, "was": {}, "were": {}, "be": {},
	"been": {}, "being": {}, "have": {}, "has": {}, "had": {}, "do": {},
	"does": {}, "did": {}, "will": {}, "would": {}, "could": {},
	"should": {}, "may": {}, "might": {}, "can": {}, "this": {},
	"that": {}, "these": {}, "those": {}, "i": {}, "you": {}, "he": {},
	"she": {}, "it": {}, "we": {}, "they": {}, "them": {}, "their": {},
}

// ExtractKeywords pulls up to maxKeywords distinct words from text in
// first-occurrence order. Words are lowercased, stripped of punctuation,
// and must be longer than three characters after cleaning.
func ExtractKeywords(text string) []string {
	if text == "" {
		return nil
	}

	var keywords []string
	seen := make(map[string]struct{})

	for _, word := range strings.Fields(strings.ToLower(text)) {
		var b strings.Builder
		for _, r := range word {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				b.WriteRune(r)
			}
		}
		cleaned := b.String()

		if utf8.RuneCountInString(cleaned) <= 3 {
			continue
		}
		if _, stop := stopWords[cleaned]; stop {
			continue
		}
		if _, dup := seen[cleaned]; dup {
			continue
		}
		seen[cleaned] = struct{}{}
		keywords = append(keywords, cleaned)
		if len(keywords) >= maxKeywords {
			break
		}
	}

	return keywords
}
