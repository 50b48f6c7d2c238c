package segmenter

import (
	"strings"
	"unicode/utf8"
)

// previewMaxLen is the preview budget before the ellipsis
const previewMaxLen = 150

// CompactPreview builds the truncated one-line preview used in list
// views: the first two non-blank lines of the main content joined by a
// space, capped at 150 bytes with a trailing ellipsis when content was
// cut. HTML input is reduced to plain text first. The result never
// contains a newline.
func CompactPreview(mainContent string) string {
	text := mainContent
	if htmlTagPattern.MatchString(text) {
		if root, err := parseFragment(text); err == nil {
			text = extractText(root)
		}
	}

	var kept []string
	truncated := false
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if len(kept) == 2 {
			truncated = true
			break
		}
		kept = append(kept, line)
	}

	preview := strings.Join(kept, " ")
	if len(preview) > previewMaxLen {
		// Back off to a rune boundary so the cut never splits a
		// multi-byte character
		cut := previewMaxLen
		for cut > 0 && !utf8.RuneStart(preview[cut]) {
			cut--
		}
		preview = preview[:cut]
		truncated = true
	}
	if truncated {
		preview += "..."
	}
	return preview
}
