package smtp

import (
	"bytes"
	"io"
	"regexp"
	"strings"

	"github.com/jhillyerd/enmime"
	"github.com/relaydesk/relaydesk-backend/internal/segmenter"
)

// ParsedEmail represents a parsed email message
type ParsedEmail struct {
	SenderEmail string
	SenderName  string
	Subject     string
	Snippet     string
	BodyText    string
	BodyHTML    string
	Attachments []ParsedAttachment
}

// ParsedAttachment represents a parsed email attachment
type ParsedAttachment struct {
	Filename    string
	ContentType string
	Content     io.Reader
	Size        int64
}

// ParseEmail parses an email from an io.Reader
func ParseEmail(r io.Reader) (*ParsedEmail, error) {
	env, err := enmime.ReadEnvelope(r)
	if err != nil {
		return nil, err
	}

	parsed := &ParsedEmail{
		Subject:  env.GetHeader("Subject"),
		BodyText: env.Text,
		BodyHTML: env.HTML,
	}

	// Parse From header
	fromHeader := env.GetHeader("From")
	parsed.SenderName, parsed.SenderEmail = parseFromHeader(fromHeader)

	// Snippet is the compact preview of the main content, quotes and
	// signatures excluded
	body := parsed.BodyText
	if body == "" {
		body = parsed.BodyHTML
	}
	parsed.Snippet = segmenter.CompactPreview(segmenter.Segment(body).MainContent)

	// Parse attachments
	for _, att := range env.Attachments {
		parsed.Attachments = append(parsed.Attachments, ParsedAttachment{
			Filename:    att.FileName,
			ContentType: att.ContentType,
			Content:     bytes.NewReader(att.Content),
			Size:        int64(len(att.Content)),
		})
	}

	// Also include inline attachments
	for _, att := range env.Inlines {
		if att.FileName != "" {
			parsed.Attachments = append(parsed.Attachments, ParsedAttachment{
				Filename:    att.FileName,
				ContentType: att.ContentType,
				Content:     bytes.NewReader(att.Content),
				Size:        int64(len(att.Content)),
			})
		}
	}

	return parsed, nil
}

// parseFromHeader extracts name and email from a From header
func parseFromHeader(from string) (name, email string) {
	from = strings.TrimSpace(from)
	if from == "" {
		return "", ""
	}

	// Pattern: "Name" <email@example.com> or Name <email@example.com>
	re := regexp.MustCompile(`^(?:"?([^"<]*)"?\s*)?<?([^<>]+@[^<>]+)>?$`)
	matches := re.FindStringSubmatch(from)

	if len(matches) >= 3 {
		name = strings.TrimSpace(matches[1])
		email = strings.TrimSpace(matches[2])
		// Remove quotes from name
		name = strings.Trim(name, `"`)
	} else {
		// Fallback: treat entire string as email
		email = from
	}

	return name, email
}
