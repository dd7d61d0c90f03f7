package services

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/dskvich/pmc-assistant/pkg/domain"
	"github.com/dskvich/pmc-assistant/pkg/keyword"
	"github.com/dskvich/pmc-assistant/pkg/logger"
	"github.com/dskvich/pmc-assistant/pkg/metrics"
	"github.com/dskvich/pmc-assistant/pkg/prompts"
)

type Completer interface {
	Complete(ctx context.Context, req domain.CompletionRequest) (string, error)
}

type languageDetector struct {
	completer   Completer
	temperature float32
	maxTokens   int
	timeout     time.Duration
}

func NewLanguageDetector(completer Completer, temperature float32, maxTokens int, timeout time.Duration) *languageDetector {
	return &languageDetector{
		completer:   completer,
		temperature: temperature,
		maxTokens:   maxTokens,
		timeout:     timeout,
	}
}

// Detect classifies a query as English or Marathi. The model is consulted
// only when the rules see exactly one indicator word and no pattern.
func (l *languageDetector) Detect(ctx context.Context, query string) domain.Detection {
	det := l.detect(ctx, query)

	metrics.LanguageDetections.WithLabelValues(string(det.Language), string(det.Resolution)).Inc()
	slog.DebugContext(ctx, "Language detected",
		"language", det.Language,
		"resolution", det.Resolution,
		"indicatorHits", det.IndicatorHits,
		"patternHits", det.PatternHits,
	)

	return det
}

func (l *languageDetector) detect(ctx context.Context, query string) domain.Detection {
	if devanagari, latin := countScripts(query); devanagari > latin {
		return domain.Detection{Language: domain.LanguageMarathi, Resolution: domain.ResolvedByScript}
	}

	lower := strings.ToLower(query)
	det := domain.Detection{
		IndicatorHits: countIndicators(lower),
		PatternHits:   countPatterns(lower),
	}

	switch {
	case det.IndicatorHits == 0 && det.PatternHits == 0:
		det.Language, det.Resolution = domain.LanguageEnglish, domain.ResolvedByRule
		return det
	case det.IndicatorHits >= 2 || det.PatternHits > 0:
		det.Language, det.Resolution = domain.LanguageMarathi, domain.ResolvedByRule
		return det
	}

	lang, err := l.askModel(ctx, query)
	if err != nil {
		slog.WarnContext(ctx, "Language detection call failed, using rules", logger.Err(err))
		det.Language, det.Resolution = fallbackLanguage(det), domain.ResolvedByFallback
		return det
	}

	det.Language, det.Resolution = lang, domain.ResolvedByModel
	return det
}

func (l *languageDetector) askModel(ctx context.Context, query string) (domain.Language, error) {
	prompt, err := prompts.RenderDetection(query)
	if err != nil {
		return "", err
	}

	ctx, cancel := withDeadline(ctx, l.timeout)
	defer cancel()

	start := time.Now()
	reply, err := l.completer.Complete(ctx, domain.CompletionRequest{
		Prompt:      prompt,
		Temperature: l.temperature,
		MaxTokens:   l.maxTokens,
	})
	observe("detect_language", start, err)
	if err != nil {
		return "", err
	}

	return normalizeReply(reply), nil
}

// normalizeReply maps a free-form classification reply to a language,
// defaulting to English when the reply names neither.
func normalizeReply(reply string) domain.Language {
	reply = strings.ToLower(strings.TrimSpace(reply))
	switch {
	case strings.Contains(reply, "marathi"):
		return domain.LanguageMarathi
	case strings.Contains(reply, "english"):
		return domain.LanguageEnglish
	default:
		return domain.LanguageEnglish
	}
}

func fallbackLanguage(det domain.Detection) domain.Language {
	if det.IndicatorHits > 0 || det.PatternHits > 0 {
		return domain.LanguageMarathi
	}
	return domain.LanguageEnglish
}

func countScripts(s string) (devanagari, latin int) {
	for _, r := range s {
		switch {
		case keyword.IsDevanagari(r):
			devanagari++
		case r <= unicode.MaxASCII && unicode.IsLetter(r):
			latin++
		}
	}
	return devanagari, latin
}

func countIndicators(lower string) int {
	var hits int
	for _, word := range strings.Fields(lower) {
		word = strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				return r
			}
			return -1
		}, word)
		if keyword.MarathiIndicators.Contains(word) {
			hits++
		}
	}
	return hits
}

func countPatterns(lower string) int {
	var hits int
	for _, re := range keyword.MarathiPatterns {
		if re.MatchString(lower) {
			hits++
		}
	}
	return hits
}
