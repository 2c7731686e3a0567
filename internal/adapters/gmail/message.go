package gmail

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/mikey/gmail-spam-detector/internal/adapters/mailmime"
	"github.com/mikey/gmail-spam-detector/internal/core"
	gmail "google.golang.org/api/gmail/v1"
)

// parseMessage converts a full-format Gmail message into an Email
func parseMessage(msg *gmail.Message, fetcher attachmentFetcher) *core.Email {
	email := &core.Email{ID: msg.Id}
	if msg.Payload == nil {
		return email
	}

	headers := msg.Payload.Headers
	email.From = headerValue(headers, "From")
	email.To = headerValue(headers, "To")
	email.Subject = headerValue(headers, "Subject")
	email.Date = headerValue(headers, "Date")
	email.Body = extractBody(msg.Payload)

	walkParts(msg.Payload, func(part *gmail.MessagePart) {
		if part.Filename != "" {
			email.Attachments = append(email.Attachments, newAttachment(msg.Id, part, fetcher))
		}
	})

	return email
}

// headerValue returns the first header matching name case-insensitively
func headerValue(headers []*gmail.MessagePartHeader, name string) string {
	for _, h := range headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// extractBody prefers text/plain, then the text of text/html, then the
// payload body itself
func extractBody(payload *gmail.MessagePart) string {
	if text, ok := findPartData(payload, "text/plain"); ok {
		return text
	}
	if markup, ok := findPartData(payload, "text/html"); ok {
		return mailmime.HTMLToText(markup)
	}
	if payload.Body != nil && payload.Body.Data != "" {
		if data, err := decodeBase64URL(payload.Body.Data); err == nil {
			return string(data)
		}
	}
	return ""
}

// findPartData returns the decoded data of the first non-attachment part with
// the given MIME type
func findPartData(payload *gmail.MessagePart, mimeType string) (string, bool) {
	var found string
	var ok bool
	walkParts(payload, func(part *gmail.MessagePart) {
		if ok || part.Filename != "" || part.MimeType != mimeType {
			return
		}
		if part.Body == nil || part.Body.Data == "" {
			return
		}
		data, err := decodeBase64URL(part.Body.Data)
		if err != nil {
			return
		}
		found, ok = string(data), true
	})
	return found, ok
}

// walkParts recursively walks through message parts
func walkParts(part *gmail.MessagePart, fn func(*gmail.MessagePart)) {
	if part == nil {
		return
	}

	fn(part)

	for _, subpart := range part.Parts {
		walkParts(subpart, fn)
	}
}

// decodeBase64URL decodes Gmail's base64url data with or without padding.
// Standard base64 is accepted as a last resort.
func decodeBase64URL(s string) ([]byte, error) {
	data, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
	if err == nil {
		return data, nil
	}
	data, stdErr := base64.StdEncoding.DecodeString(s)
	if stdErr != nil {
		return nil, fmt.Errorf("failed to decode base64 data: %w", err)
	}
	return data, nil
}
