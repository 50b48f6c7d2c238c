package segmenter

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Sanitizer allow-lists. Anything else is unwrapped (children kept),
// except script/style which are dropped entirely.
var allowedTags = map[string]bool{
	"p": true, "br": true, "b": true, "i": true, "u": true, "a": true,
	"blockquote": true, "div": true, "span": true, "strong": true, "em": true,
	"ul": true, "ol": true, "li": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"table": true, "thead": true, "tbody": true, "tr": true, "td": true, "th": true,
}

var allowedAttrs = map[string]bool{
	"href": true, "class": true, "id": true, "style": true,
}

// blockTags get a newline appended when extracting plain text, so the
// line heuristics still see line boundaries after tag stripping.
var blockTags = map[string]bool{
	"p": true, "div": true, "blockquote": true, "li": true, "tr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"table": true, "ul": true, "ol": true,
}

// segmentHTML sanitizes the fragment, then tries structural extraction of
// signature and quote nodes. When the markup carries no structural markers
// at all (common with bare-paragraph emails), it falls back to the plain
// text heuristics over the extracted text.
func segmentHTML(content string) EmailContent {
	root, err := parseFragment(content)
	if err != nil {
		main, signature, quoted := segmentPlainText(content)
		return EmailContent{MainContent: main, Signature: signature, QuotedText: quoted, IsHTML: true}
	}

	sanitizeChildren(root)
	removeTags(root, "script", "style")

	// Signature nodes first; quote detection never sees removed signatures.
	sigNodes := collectNodes(root, isSignatureNode)
	var sigParts []string
	for _, n := range sigNodes {
		sigParts = append(sigParts, extractText(n))
		n.Parent.RemoveChild(n)
	}

	quoteNodes := collectNodes(root, isQuoteNode)
	var quoteParts []string
	for _, n := range quoteNodes {
		quoteParts = append(quoteParts, extractText(n))
		n.Parent.RemoveChild(n)
	}

	if len(sigNodes) == 0 && len(quoteNodes) == 0 {
		main, signature, quoted := segmentPlainText(extractText(root))
		return EmailContent{MainContent: main, Signature: signature, QuotedText: quoted, IsHTML: true}
	}

	return EmailContent{
		MainContent: strings.TrimSpace(renderChildren(root)),
		Signature:   strings.TrimSpace(strings.Join(sigParts, "\n")),
		QuotedText:  strings.TrimSpace(strings.Join(quoteParts, "\n")),
		IsHTML:      true,
	}
}

// parseFragment parses content as a body fragment under a detached root
func parseFragment(content string) (*html.Node, error) {
	ctx := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(content), ctx)
	if err != nil {
		return nil, err
	}

	root := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	for _, n := range nodes {
		root.AppendChild(n)
	}
	return root, nil
}

// sanitizeChildren applies the allow-lists below parent, in place
func sanitizeChildren(parent *html.Node) {
	for c := parent.FirstChild; c != nil; {
		next := c.NextSibling

		if c.Type == html.ElementNode {
			tag := strings.ToLower(c.Data)
			switch {
			case tag == "script" || tag == "style":
				parent.RemoveChild(c)
			case !allowedTags[tag]:
				// Unwrap: keep children in place of the element, then
				// continue the scan from the first promoted child.
				first := c.FirstChild
				for gc := c.FirstChild; gc != nil; {
					gcNext := gc.NextSibling
					c.RemoveChild(gc)
					parent.InsertBefore(gc, c)
					gc = gcNext
				}
				parent.RemoveChild(c)
				if first != nil {
					next = first
				}
			default:
				filterAttrs(c)
				sanitizeChildren(c)
			}
		}

		c = next
	}
}

// filterAttrs drops every attribute not on the allow-list
func filterAttrs(n *html.Node) {
	kept := n.Attr[:0]
	for _, a := range n.Attr {
		if allowedAttrs[strings.ToLower(a.Key)] {
			kept = append(kept, a)
		}
	}
	n.Attr = kept
}

// removeTags removes whole subtrees for the named tags
func removeTags(parent *html.Node, tags ...string) {
	drop := make(map[string]bool, len(tags))
	for _, t := range tags {
		drop[t] = true
	}

	for c := parent.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.ElementNode && drop[strings.ToLower(c.Data)] {
			parent.RemoveChild(c)
		} else {
			removeTags(c, tags...)
		}
		c = next
	}
}

// collectNodes gathers matching nodes without descending into matches,
// so a matched container is reported once.
func collectNodes(n *html.Node, match func(*html.Node) bool) []*html.Node {
	var found []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && match(c) {
			found = append(found, c)
			continue
		}
		found = append(found, collectNodes(c, match)...)
	}
	return found
}

func isSignatureNode(n *html.Node) bool {
	return attrContainsAny(n, signatureClassMarkers)
}

func isQuoteNode(n *html.Node) bool {
	if strings.ToLower(n.Data) == "blockquote" {
		return true
	}
	return attrContainsAny(n, quoteClassMarkers)
}

// attrContainsAny checks the class and id attributes for any of the
// marker literals, as a case-sensitive substring match.
func attrContainsAny(n *html.Node, markers []string) bool {
	for _, a := range n.Attr {
		key := strings.ToLower(a.Key)
		if key != "class" && key != "id" {
			continue
		}
		for _, m := range markers {
			if strings.Contains(a.Val, m) {
				return true
			}
		}
	}
	return false
}

// extractText returns the plain text of a subtree, with newlines at
// <br> and after block-level elements
func extractText(n *html.Node) string {
	var sb strings.Builder
	appendText(&sb, n)
	return strings.TrimSpace(sb.String())
}

func appendText(sb *strings.Builder, n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			sb.WriteString(c.Data)
		case html.ElementNode:
			tag := strings.ToLower(c.Data)
			if tag == "br" {
				sb.WriteByte('\n')
				continue
			}
			appendText(sb, c)
			if blockTags[tag] {
				sb.WriteByte('\n')
			}
		}
	}
}

// renderChildren serializes the children of n back to markup
func renderChildren(n *html.Node) string {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		// Render only fails on unrenderable node types, which the
		// sanitizer has already removed.
		_ = html.Render(&sb, c)
	}
	return sb.String()
}
