package domain

type Language string

const (
	LanguageEnglish Language = "english"
	LanguageMarathi Language = "marathi"
)

// Resolution records which detection layer produced the language.
type Resolution string

const (
	ResolvedByScript   Resolution = "script"
	ResolvedByRule     Resolution = "rule"
	ResolvedByModel    Resolution = "model"
	ResolvedByFallback Resolution = "fallback"
)

type Detection struct {
	Language      Language
	Resolution    Resolution
	IndicatorHits int
	PatternHits   int
}
