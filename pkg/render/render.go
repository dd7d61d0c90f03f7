package render

import (
	"regexp"
	"strings"

	"github.com/russross/blackfriday"
)

var mdLinkRe = regexp.MustCompile(`\[([^\]]*)\]\(([^)\s]+)\)`)

// HTML renders an answer's markdown for the web widget.
func HTML(markdown string) string {
	return string(blackfriday.MarkdownCommon([]byte(markdown)))
}

// PlainText flattens markdown links for channels without markdown support.
// Links whose label equals the target keep only the URL.
func PlainText(markdown string) string {
	return mdLinkRe.ReplaceAllStringFunc(markdown, func(m string) string {
		parts := mdLinkRe.FindStringSubmatch(m)
		label, target := strings.TrimSpace(parts[1]), parts[2]
		if label == "" || label == target {
			return target
		}
		return label + " (" + target + ")"
	})
}
