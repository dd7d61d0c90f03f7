package keyword

// CivicTerms are municipal-service words that are always worth a link
// search, even when the generic filter would drop them.
var CivicTerms = []string{
	"property", "tax", "tree", "cutting", "permission", "circular",
	"aadhaar", "pan", "card", "linking",
}

// StopWords is the English stop-word list used by keyword extraction.
var StopWords = newSet(
	"the", "a", "an", "and", "or", "but", "in", "on", "at", "to", "for", "of", "with", "by",
	"is", "are", "was", "were", "be", "been", "being", "have", "has", "had", "do", "does", "did",
	"will", "would", "could", "should", "may", "might", "can", "this", "that", "these", "those",
	"i", "you", "he", "she", "it", "we", "they", "me", "him", "her", "us", "them",
	"what", "when", "where", "why", "how", "who", "which", "whose", "whom",
)

type Set map[string]struct{}

func newSet(words ...string) Set {
	s := make(Set, len(words))
	for _, w := range words {
		s[w] = struct{}{}
	}
	return s
}

func (s Set) Contains(word string) bool {
	_, ok := s[word]
	return ok
}
