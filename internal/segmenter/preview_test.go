package segmenter

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestCompactPreview_TwoLinesJoined(t *testing.T) {
	preview := CompactPreview("First line\nSecond line")

	assert.Equal(t, "First line Second line", preview)
}

func TestCompactPreview_SkipsBlankLines(t *testing.T) {
	preview := CompactPreview("First line\n\n\nSecond line")

	assert.Equal(t, "First line Second line", preview)
}

func TestCompactPreview_EllipsisWhenMoreLinesExist(t *testing.T) {
	preview := CompactPreview("one\ntwo\nthree")

	assert.Equal(t, "one two...", preview)
}

func TestCompactPreview_TruncatesLongContent(t *testing.T) {
	preview := CompactPreview(strings.Repeat("a", 400))

	assert.Len(t, preview, 153)
	assert.True(t, strings.HasSuffix(preview, "..."))
}

// A multi-byte character straddling the byte limit is dropped whole,
// never sliced into invalid UTF-8
func TestCompactPreview_TruncatesOnRuneBoundary(t *testing.T) {
	preview := CompactPreview(strings.Repeat("a", 149) + "€€€")

	assert.True(t, utf8.ValidString(preview))
	assert.True(t, strings.HasSuffix(preview, "..."))
	assert.LessOrEqual(t, len(preview), 153)
	assert.NotContains(t, preview, "�")
}

func TestCompactPreview_MultibyteContentStaysValid(t *testing.T) {
	preview := CompactPreview(strings.Repeat("é", 200))

	assert.True(t, utf8.ValidString(preview))
	assert.True(t, strings.HasSuffix(preview, "..."))
}

// The preview is bounded at 153 bytes and never multi-line, whatever
// the input shape
func TestCompactPreview_BoundedAndSingleLine(t *testing.T) {
	inputs := []string{
		"",
		"short",
		strings.Repeat("word ", 100),
		"a\nb\nc\nd\ne",
		strings.Repeat("x", 149) + "\n" + strings.Repeat("y", 200),
		"<p>" + strings.Repeat("z", 300) + "</p>",
	}

	for _, input := range inputs {
		preview := CompactPreview(input)
		assert.LessOrEqual(t, len(preview), 153, "input %q", input)
		assert.NotContains(t, preview, "\n", "input %q", input)
	}
}

func TestCompactPreview_StripsHTML(t *testing.T) {
	preview := CompactPreview("<p>Hello <b>world</b></p><p>second</p>")

	assert.Equal(t, "Hello world second", preview)
}

func TestCompactPreview_EmptyInput(t *testing.T) {
	assert.Equal(t, "", CompactPreview(""))
	assert.Equal(t, "", CompactPreview("\n\n\n"))
}
