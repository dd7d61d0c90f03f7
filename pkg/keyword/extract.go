package keyword

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/samber/lo"
)

const (
	maxKeywords     = 5
	minKeywordRunes = 3
)

var wordRe = regexp.MustCompile(`[\p{L}\p{M}\p{N}_]+`)

// Extract returns up to five salient lower-cased terms of the query, in
// first-seen order, followed by any civic terms the query mentions.
func Extract(query string) []string {
	words := wordRe.FindAllString(strings.ToLower(query), -1)

	keywords := lo.Filter(words, func(w string, _ int) bool {
		return !StopWords.Contains(w) && utf8.RuneCountInString(w) >= minKeywordRunes
	})

	for _, term := range CivicTerms {
		if lo.Contains(words, term) {
			keywords = append(keywords, term)
		}
	}

	keywords = lo.Uniq(keywords)
	if len(keywords) > maxKeywords {
		keywords = keywords[:maxKeywords]
	}
	return keywords
}
