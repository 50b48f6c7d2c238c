// Package segmenter splits raw message content into main body, signature,
// and quoted reply, so viewers can collapse everything but the new text.
package segmenter

import (
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// EmailContent is the three-way split of a message body
type EmailContent struct {
	MainContent string `json:"main_content"`
	Signature   string `json:"signature"`
	QuotedText  string `json:"quoted_text"`
	IsHTML      bool   `json:"is_html"`
}

// memoCacheSize bounds the per-process segmentation cache
const memoCacheSize = 256

// Segmenter memoizes segmentation results keyed by (content, subject).
type Segmenter struct {
	cache *lru.Cache[string, EmailContent]
}

// New creates a Segmenter with a bounded LRU memo cache
func New() *Segmenter {
	// lru.New only fails for a non-positive size
	cache, _ := lru.New[string, EmailContent](memoCacheSize)
	return &Segmenter{cache: cache}
}

// Segment returns the split for content, reusing a cached result when the
// same (content, subject) pair was segmented before.
func (s *Segmenter) Segment(content, subject string) EmailContent {
	key := subject + "\x00" + content
	if cached, ok := s.cache.Get(key); ok {
		return cached
	}
	result := Segment(content)
	s.cache.Add(key, result)
	return result
}

// Segment splits raw message content into main body, signature, and quoted
// text. HTML content goes through structural extraction first; plain text
// (and HTML with no structural markers) goes through the line heuristics.
// Content with no recognizable markers comes back whole as MainContent.
func Segment(content string) EmailContent {
	if htmlTagPattern.MatchString(content) {
		return segmentHTML(content)
	}
	main, signature, quoted := segmentPlainText(content)
	return EmailContent{
		MainContent: main,
		Signature:   signature,
		QuotedText:  quoted,
	}
}

// segmentPlainText runs the line heuristics. Signature detection runs
// first over the whole text; quote detection runs only over the lines
// before the signature cut. A quote header that lands inside or below
// the signature block is therefore never found. That ordering is
// intentional and must not be "fixed": compact previews and full views
// both rely on it.
func segmentPlainText(content string) (main, signature, quoted string) {
	lines := strings.Split(content, "\n")

	sigStart := -1
	var sigPattern *linePattern
	for i, line := range lines {
		if p := matchLine(signaturePatterns, strings.TrimRight(line, "\r")); p != nil {
			sigStart = i
			sigPattern = p
			break
		}
	}

	working := lines
	if sigStart >= 0 {
		sigEnd := len(lines)
		if !sigPattern.captureToEnd {
			// Paragraph-style signature: stop at the first blank line.
			for i := sigStart + 1; i < len(lines); i++ {
				if strings.TrimSpace(lines[i]) == "" {
					sigEnd = i
					break
				}
			}
		}
		signature = strings.Join(lines[sigStart:sigEnd], "\n")
		working = lines[:sigStart]
	}

	quoteStart := -1
	for i, line := range working {
		if matchLine(quotePatterns, strings.TrimRight(line, "\r")) != nil {
			quoteStart = i
			break
		}
	}

	if quoteStart >= 0 {
		quoted = strings.Join(working[quoteStart:], "\n")
		working = working[:quoteStart]
	}

	main = strings.TrimSpace(strings.Join(working, "\n"))
	signature = strings.TrimSpace(signature)
	quoted = strings.TrimSpace(quoted)
	return main, signature, quoted
}
