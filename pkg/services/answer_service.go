package services

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/dskvich/pmc-assistant/pkg/domain"
	"github.com/dskvich/pmc-assistant/pkg/keyword"
	"github.com/dskvich/pmc-assistant/pkg/logger"
	"github.com/dskvich/pmc-assistant/pkg/metrics"
	"github.com/dskvich/pmc-assistant/pkg/prompts"
)

const (
	topK              = 5
	historyTurns      = 5
	snippetRunes      = 500
	maxLinks          = 5
	linksPerKeyword   = 2
	maxKeywordLinks   = 3
	linksHeadingEN    = "Useful Links:"
	linksHeadingMR    = "उपयुक्त लिंक्स:"
	diagnosticTimeout = 5 * time.Second
)

// linkRepairs fix markdown links whose target swallowed trailing punctuation.
var linkRepairs = []struct {
	re   *regexp.Regexp
	repl string
}{
	{re: regexp.MustCompile(`\]\((https?://[^\s)]+)([).,])\)`), repl: "](${1})${2})"},
}

type LanguageDetector interface {
	Detect(ctx context.Context, query string) domain.Detection
}

type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]domain.RetrievedMatch, error)
}

type LinkMapper interface {
	ResolveLink(link string) (string, bool)
	SearchByKeyword(keyword string) []domain.URLMapping
	ConvertURLs(text string) string
}

type SessionRepository interface {
	History(ctx context.Context, sessionID string, limit int) ([]domain.ChatTurn, error)
	Append(ctx context.Context, sessionID string, turns ...domain.ChatTurn) error
	Reset(ctx context.Context, sessionID string) error
}

// SessionLocker is implemented by session stores shared between replicas.
type SessionLocker interface {
	Lock(ctx context.Context, sessionID string) (func(), error)
}

type DiagnosticSink interface {
	Record(ctx context.Context, rec domain.DiagnosticRecord) error
}

type AnswerConfig struct {
	Temperature     float32
	GenerateTimeout time.Duration
}

type answerService struct {
	detector    LanguageDetector
	retriever   Retriever
	completer   Completer
	mapper      LinkMapper
	sessions    SessionRepository
	diagnostics DiagnosticSink
	cfg         AnswerConfig
	locks       *keyedMutex
	now         func() time.Time
}

// NewAnswerService wires the answering pipeline. diagnostics may be nil.
func NewAnswerService(
	detector LanguageDetector,
	retriever Retriever,
	completer Completer,
	mapper LinkMapper,
	sessions SessionRepository,
	diagnostics DiagnosticSink,
	cfg AnswerConfig,
) *answerService {
	return &answerService{
		detector:    detector,
		retriever:   retriever,
		completer:   completer,
		mapper:      mapper,
		sessions:    sessions,
		diagnostics: diagnostics,
		cfg:         cfg,
		locks:       newKeyedMutex(),
		now:         time.Now,
	}
}

// Answer composes a grounded answer and records the exchange in the session.
// Requests for the same session are handled one at a time.
func (a *answerService) Answer(ctx context.Context, sessionID, query string) (domain.Answer, error) {
	if strings.TrimSpace(query) == "" {
		return domain.Answer{}, domain.ErrEmptyQuery
	}

	unlock, err := a.lockSession(ctx, sessionID)
	if err != nil {
		return domain.Answer{}, err
	}
	defer unlock()

	det := a.detector.Detect(ctx, query)
	failed := domain.Answer{Language: det.Language}

	slog.InfoContext(ctx, "Answering query", "sessionID", sessionID, "language", det.Language, "resolution", det.Resolution)

	matches, err := a.retriever.Retrieve(ctx, query, topK)
	if err != nil {
		return failed, fmt.Errorf("retrieving matches: %w", err)
	}

	related := a.relatedLinks(matches)
	additional := a.keywordLinks(query, related)
	links := append(append([]string{}, related...), additional...)

	history, err := a.sessions.History(ctx, sessionID, historyTurns)
	if err != nil {
		return failed, fmt.Errorf("loading history: %w", err)
	}

	prompt, err := prompts.RenderAnswer(det.Language, prompts.AnswerData{
		History: historyBlock(history),
		Context: contextBlock(matches),
		Query:   query,
		Links:   linksBlock(det.Language, links),
	})
	if err != nil {
		return failed, err
	}

	raw, err := a.generate(ctx, prompt)
	if err != nil {
		return failed, fmt.Errorf("generating answer: %w", err)
	}

	text := a.postProcess(raw)

	if err := a.sessions.Append(ctx, sessionID, domain.UserTurn(query), domain.AssistantTurn(text)); err != nil {
		return failed, fmt.Errorf("saving turns: %w", err)
	}

	sources := lo.Map(matches, func(m domain.RetrievedMatch, _ int) string { return m.Metadata.Source })

	a.record(ctx, domain.DiagnosticRecord{
		Timestamp:       a.now().UTC(),
		SessionID:       sessionID,
		Language:        det.Language,
		Resolution:      det.Resolution,
		Query:           query,
		History:         history,
		Matches:         matches,
		RelatedLinks:    related,
		AdditionalLinks: additional,
		Prompt:          prompt,
		Answer:          text,
	})

	return domain.Answer{Text: text, Sources: sources, Language: det.Language}, nil
}

// Reset forgets the conversation of a session.
func (a *answerService) Reset(ctx context.Context, sessionID string) error {
	unlock, err := a.lockSession(ctx, sessionID)
	if err != nil {
		return err
	}
	defer unlock()

	return a.sessions.Reset(ctx, sessionID)
}

// lockSession serializes work on a session within this process and, when
// the store is shared, across replicas.
func (a *answerService) lockSession(ctx context.Context, sessionID string) (func(), error) {
	unlock, err := a.locks.Lock(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("waiting for session: %w", err)
	}

	locker, ok := a.sessions.(SessionLocker)
	if !ok {
		return unlock, nil
	}

	unlockShared, err := locker.Lock(ctx, sessionID)
	if err != nil {
		unlock()
		return nil, fmt.Errorf("waiting for session: %w", err)
	}

	return func() {
		unlockShared()
		unlock()
	}, nil
}

func (a *answerService) generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := withDeadline(ctx, a.cfg.GenerateTimeout)
	defer cancel()

	start := time.Now()
	reply, err := a.completer.Complete(ctx, domain.CompletionRequest{
		Prompt:      prompt,
		Temperature: a.cfg.Temperature,
	})
	observe("generate_answer", start, err)
	return reply, err
}

func (a *answerService) postProcess(raw string) string {
	text := a.mapper.ConvertURLs(raw)
	for _, r := range linkRepairs {
		text = r.re.ReplaceAllString(text, r.repl)
	}
	return text
}

func (a *answerService) relatedLinks(matches []domain.RetrievedMatch) []string {
	var links []string
	for _, m := range matches {
		for _, link := range m.Metadata.RelatedLinks {
			if resolved, ok := a.mapper.ResolveLink(link); ok {
				links = append(links, resolved)
			}
		}
	}
	return lo.Uniq(links)
}

func (a *answerService) keywordLinks(query string, related []string) []string {
	seen := lo.SliceToMap(related, func(l string) (string, struct{}) { return l, struct{}{} })

	var links []string
	for _, kw := range keyword.Extract(query) {
		for _, rec := range lo.Slice(a.mapper.SearchByKeyword(kw), 0, linksPerKeyword) {
			if _, ok := seen[rec.FrontendURL]; ok {
				continue
			}
			seen[rec.FrontendURL] = struct{}{}
			links = append(links, rec.FrontendURL)
		}
	}
	return lo.Slice(links, 0, maxKeywordLinks)
}

func (a *answerService) record(ctx context.Context, rec domain.DiagnosticRecord) {
	if a.diagnostics == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), diagnosticTimeout)
	defer cancel()

	if err := a.diagnostics.Record(ctx, rec); err != nil {
		metrics.DiagnosticFailures.Inc()
		slog.WarnContext(ctx, "Failed to record diagnostics", "sessionID", rec.SessionID, logger.Err(err))
	}
}

func contextBlock(matches []domain.RetrievedMatch) string {
	parts := lo.Map(matches, func(m domain.RetrievedMatch, _ int) string {
		return m.Metadata.Source + ":\n" + truncateRunes(m.Metadata.Text, snippetRunes)
	})
	return strings.Join(parts, "\n\n")
}

func historyBlock(turns []domain.ChatTurn) string {
	lines := lo.Map(lo.Subset(turns, -historyTurns, historyTurns), func(t domain.ChatTurn, _ int) string {
		return string(t.Role) + ": " + t.Content
	})
	return strings.Join(lines, "\n")
}

func linksBlock(lang domain.Language, links []string) string {
	if len(links) == 0 {
		return ""
	}

	heading := linksHeadingEN
	if lang == domain.LanguageMarathi {
		heading = linksHeadingMR
	}

	lines := lo.Map(lo.Slice(links, 0, maxLinks), func(l string, _ int) string {
		return fmt.Sprintf("- [%s](%s)", l, l)
	})
	return heading + "\n" + strings.Join(lines, "\n")
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
