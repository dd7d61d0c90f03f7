package keyword

import "regexp"

// MarathiIndicators are Romanized-Marathi particles, verb forms and civic
// words that rarely appear in English queries.
var MarathiIndicators = newSet(
	"kasa", "kase", "kay", "kaay", "kuthe", "kadhi", "kiti", "konala", "kona",
	"milwaycha", "milwayche", "milwaychi", "karaycha", "karayche", "karaychi",
	"ghaycha", "ghayche", "ghaychi", "deyacha", "deyache", "deyachi",
	"bharaycha", "bharayche", "bharaychi", "mahnaycha", "mahnayche", "mahnaychi",
	"sangaycha", "sangayche", "sangaychi", "hotay", "hoti", "hota", "hotat",
	"aadhaar", "mahapalika", "nagar", "palika",
)

// MarathiPatterns capture interrogatives and postpositions of Romanized
// Marathi. They run against the lower-cased query.
var MarathiPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(kasa|kase|kay|kaay|kuthe|kadhi|kiti|konala|kona)\s+\w+`),
	regexp.MustCompile(`\w+\s+(cha|che|chi|la|na|ta|te|ti|sa|se|si)\b`),
	regexp.MustCompile(`\b(milwaycha|milwayche|milwaychi|karaycha|karayche|karaychi)\b`),
	regexp.MustCompile(`\b(ghaycha|ghayche|ghaychi|deyacha|deyache|deyachi)\b`),
	regexp.MustCompile(`\b(bharaycha|bharayche|bharaychi|mahnaycha|mahnayche|mahnaychi)\b`),
	regexp.MustCompile(`\w+\s+(kasa|kase|kay|kaay|kuthe|kadhi|kiti|konala|kona)\s+\w+`),
}

// IsDevanagari reports whether r is in the Devanagari block (U+0900..U+097F).
func IsDevanagari(r rune) bool {
	return r >= 0x0900 && r <= 0x097F
}
