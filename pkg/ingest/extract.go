package ingest

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"
	"golang.org/x/net/html"
)

var (
	textKeys = []string{"title", "detail_summary", "sub_summary"}
	linkKeys = []string{"internal_link", "external_link", "file_url", "paragraph_file_url", "node_file_url"}
)

// ExtractTextAndLinks walks a content-API JSON document and collects its
// readable text and the links it references. Object keys are visited in
// sorted order so the result is stable.
func ExtractTextAndLinks(data any) (string, []string) {
	var texts, links []string

	var walk func(v any)
	walk = func(v any) {
		switch node := v.(type) {
		case map[string]any:
			for _, key := range textKeys {
				if val, ok := node[key]; ok && truthy(val) {
					texts = append(texts, stringify(val))
				}
			}

			if blocks, ok := node["summary"].([]any); ok {
				for _, block := range blocks {
					if s, ok := block.(string); ok {
						texts = append(texts, CleanHTML(s))
					}
				}
			}

			if descs, ok := node["descriptions"].([]any); ok {
				for _, d := range descs {
					texts = append(texts, stringify(d))
				}
			}

			for _, key := range linkKeys {
				if s, ok := node[key].(string); ok && s != "" {
					links = append(links, s)
				}
			}

			if pdfs, ok := node["pdf_files"].([]any); ok {
				for _, p := range pdfs {
					pdf, ok := p.(map[string]any)
					if !ok {
						continue
					}
					if s, ok := pdf["file_url"].(string); ok && s != "" {
						links = append(links, s)
					}
					if title, ok := pdf["pdf_title"]; ok && title != nil {
						texts = append(texts, stringify(title))
					}
				}
			}

			keys := lo.Keys(node)
			sort.Strings(keys)
			for _, k := range keys {
				walk(node[k])
			}

		case []any:
			for _, item := range node {
				walk(item)
			}
		}
	}

	walk(data)
	return strings.Join(texts, " "), lo.Uniq(links)
}

// CleanHTML returns the visible text of an HTML fragment, one space between text nodes.
func CleanHTML(fragment string) string {
	z := html.NewTokenizer(strings.NewReader(fragment))

	var parts []string
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(parts, " ")
		case html.StartTagToken:
			if name, _ := z.TagName(); isHiddenTag(string(name)) {
				skip++
			}
		case html.EndTagToken:
			if name, _ := z.TagName(); isHiddenTag(string(name)) && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip > 0 {
				continue
			}
			if t := strings.TrimSpace(string(z.Text())); t != "" {
				parts = append(parts, t)
			}
		}
	}
}

func isHiddenTag(name string) bool {
	return name == "script" || name == "style"
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case bool:
		return t
	case float64:
		return t != 0
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
