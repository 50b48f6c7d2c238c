package segmenter

import "regexp"

// The classifiers below are best-effort heuristics: an ordered list of
// patterns evaluated top-to-bottom with first-match-wins semantics.
// Extend by appending patterns; control flow never changes.

// linePattern pairs a name with the regexp that detects it on a single line.
type linePattern struct {
	name string
	re   *regexp.Regexp

	// captureToEnd controls how much of the remaining text a signature
	// match claims: a "--" style delimiter claims everything below it,
	// while a closing salutation claims only its own paragraph (up to
	// the next blank line). Text below a paragraph-style signature is
	// dropped from all three outputs.
	captureToEnd bool
}

// signaturePatterns mark the first line of an email signature block.
var signaturePatterns = []linePattern{
	{name: "delimiter", re: regexp.MustCompile(`^--\s*$`), captureToEnd: true},
	{name: "sent_from_device", re: regexp.MustCompile(`(?i)^sent from my .+`), captureToEnd: true},
	{name: "get_outlook", re: regexp.MustCompile(`(?i)^get outlook for .+`), captureToEnd: true},
	{name: "salutation", re: regexp.MustCompile(`(?i)^(best regards|kind regards|warm regards|regards|best wishes|best|thanks|thank you|many thanks|sincerely|cheers|cordially|respectfully)[,.!]?\s*$`)},
	{name: "inline_image", re: regexp.MustCompile(`^\[(cid:[^\]]+|image[^\]]*)\]\s*$`)},
}

// quotePatterns mark the first line of a quoted reply or forwarded block.
// A quote match always claims everything below it.
var quotePatterns = []linePattern{
	{name: "on_wrote", re: regexp.MustCompile(`(?i)^on .+wrote:\s*$`)},
	{name: "reply_header", re: regexp.MustCompile(`(?i)^(from|sent|to|subject|date):\s`)},
	{name: "original_message", re: regexp.MustCompile(`(?i)^-+\s*original message\s*-+\s*$`)},
	{name: "forwarded_message", re: regexp.MustCompile(`(?i)^-+\s*forwarded message\s*-+\s*$`)},
	{name: "underscore_rule", re: regexp.MustCompile(`^_{3,}`)},
	{name: "quote_prefix", re: regexp.MustCompile(`^(>|&gt;)`)},
}

// htmlTagPattern decides whether content is treated as HTML at all.
var htmlTagPattern = regexp.MustCompile(`<[^>]+>`)

// Structural markers for the HTML path: a node whose class or id contains
// one of these literals (case-sensitive substring match) is part of the
// signature, or of the quoted block respectively.
var (
	signatureClassMarkers = []string{"signature", "gmail_signature"}
	quoteClassMarkers     = []string{"quoted", "gmail_quote"}
)

// matchLine returns the first pattern matching line, or nil.
func matchLine(patterns []linePattern, line string) *linePattern {
	for i := range patterns {
		if patterns[i].re.MatchString(line) {
			return &patterns[i]
		}
	}
	return nil
}
