package urlmap

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"github.com/samber/lo"

	"github.com/dskvich/pmc-assistant/pkg/domain"
	"github.com/dskvich/pmc-assistant/pkg/logger"
)

// trailingPunct is stripped from a URL found in prose when the exact URL has no mapping.
const trailingPunct = ".,;:!?'\""

var urlRe = regexp.MustCompile(`https?://[^\s)]+`)

// Mapper translates backend content-API URLs to public site URLs. It is
// read-only after construction and safe for concurrent use.
type Mapper struct {
	backendPrefix string
	byAPI         map[string]string
	mappings      []domain.URLMapping
}

type mappingFile struct {
	TotalMappings   int                 `json:"total_mappings"`
	CorrectMappings int                 `json:"correct_mappings"`
	Mappings        []domain.URLMapping `json:"mappings"`
}

// New builds a Mapper from the valid records of the table. Conflicting
// duplicates and chained mappings are rejected with ErrInvalidMapping.
func New(mappings []domain.URLMapping, backendPrefix string) (*Mapper, error) {
	m := Empty(backendPrefix)

	for _, rec := range mappings {
		if !rec.Valid() {
			continue
		}
		if strings.ContainsAny(rec.FrontendURL, " \t\r\n)") {
			return nil, fmt.Errorf("%w: frontend url %q is not a single token", domain.ErrInvalidMapping, rec.FrontendURL)
		}
		if existing, ok := m.byAPI[rec.APIURL]; ok {
			if existing != rec.FrontendURL {
				return nil, fmt.Errorf("%w: api url %q maps to both %q and %q", domain.ErrInvalidMapping, rec.APIURL, existing, rec.FrontendURL)
			}
			continue
		}
		m.byAPI[rec.APIURL] = rec.FrontendURL
		m.mappings = append(m.mappings, rec)
	}

	// A converted URL keeps its trailing punctuation, so no key may equal a
	// frontend URL once both lose theirs.
	keys := lo.SliceToMap(m.mappings, func(rec domain.URLMapping) (string, string) {
		return strings.TrimRight(rec.APIURL, trailingPunct), rec.APIURL
	})
	for _, rec := range m.mappings {
		if key, chained := keys[strings.TrimRight(rec.FrontendURL, trailingPunct)]; chained {
			return nil, fmt.Errorf("%w: frontend url %q is reachable as mapped api url %q", domain.ErrInvalidMapping, rec.FrontendURL, key)
		}
	}

	return m, nil
}

// Empty returns a Mapper without mappings: lookups miss and text passes through.
func Empty(backendPrefix string) *Mapper {
	return &Mapper{
		backendPrefix: backendPrefix,
		byAPI:         make(map[string]string),
	}
}

// Load reads the mapping table from a JSON file. A missing or malformed
// table yields an empty Mapper and a warning, never an error.
func Load(path, backendPrefix string) *Mapper {
	records, err := readFile(path)
	if err != nil {
		slog.Warn("url mappings unavailable, links will not be rewritten", "path", path, logger.Err(err))
		return Empty(backendPrefix)
	}

	m, err := New(records, backendPrefix)
	if err != nil {
		slog.Warn("url mappings rejected, links will not be rewritten", "path", path, logger.Err(err))
		return Empty(backendPrefix)
	}

	slog.Info("loaded url mappings", "path", path, "records", len(records), "valid", m.Len())
	return m
}

func readFile(path string) ([]domain.URLMapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading mapping file: %w", err)
	}

	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var records []domain.URLMapping
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("decoding mapping list: %w", err)
		}
		return records, nil
	}

	var file mappingFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decoding mapping file: %w", err)
	}
	return file.Mappings, nil
}

func (m *Mapper) Len() int {
	return len(m.mappings)
}

// FrontendURL is an exact-match lookup over valid records.
func (m *Mapper) FrontendURL(apiURL string) (string, bool) {
	u, ok := m.byAPI[apiURL]
	return u, ok
}

// ConvertURLs replaces every mapped http(s) URL in text with its frontend
// URL. Frontend URLs are never keys, so the conversion is idempotent.
func (m *Mapper) ConvertURLs(text string) string {
	if text == "" || len(m.byAPI) == 0 {
		return text
	}

	return urlRe.ReplaceAllStringFunc(text, func(u string) string {
		if f, ok := m.byAPI[u]; ok {
			return f
		}
		trimmed := strings.TrimRight(u, trailingPunct)
		if f, ok := m.byAPI[trimmed]; ok && trimmed != u {
			return f + u[len(trimmed):]
		}
		return u
	})
}

// SearchByKeyword returns valid records whose api or frontend URL contains
// the keyword, case-insensitively, in table order.
func (m *Mapper) SearchByKeyword(keyword string) []domain.URLMapping {
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	if keyword == "" {
		return nil
	}

	return lo.Filter(m.mappings, func(rec domain.URLMapping, _ int) bool {
		return strings.Contains(strings.ToLower(rec.APIURL), keyword) ||
			strings.Contains(strings.ToLower(rec.FrontendURL), keyword)
	})
}

func (m *Mapper) AllFrontendURLs() []string {
	return lo.Uniq(lo.Map(m.mappings, func(rec domain.URLMapping, _ int) string {
		return rec.FrontendURL
	}))
}

func (m *Mapper) IsBackendURL(link string) bool {
	return m.backendPrefix != "" && strings.HasPrefix(link, m.backendPrefix)
}

// ResolveLink decides whether a link may be shown to users and in which
// form: its frontend URL when mapped, nothing when it is an unmapped
// backend URL, the link itself otherwise.
func (m *Mapper) ResolveLink(link string) (string, bool) {
	link = strings.TrimSpace(link)
	if link == "" {
		return "", false
	}
	if f, ok := m.byAPI[link]; ok {
		return f, true
	}
	if m.IsBackendURL(link) {
		return "", false
	}
	return link, true
}
