package mailmime

import (
	"errors"
	"fmt"
	"io"
	"strings"

	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"github.com/mikey/gmail-spam-detector/internal/core"
)

// Parse reads an RFC 5322 message into an Email. The body is the first
// text/plain part, or the text of the first text/html part. Parts with a
// filename become in-memory attachments.
func Parse(id string, r io.Reader) (*core.Email, error) {
	mr, err := mail.CreateReader(r)
	if err != nil && mr == nil {
		return nil, fmt.Errorf("failed to read message: %w", err)
	}
	defer mr.Close()

	email := &core.Email{
		ID:      id,
		From:    headerText(&mr.Header, "From"),
		To:      headerText(&mr.Header, "To"),
		Subject: headerText(&mr.Header, "Subject"),
		Date:    mr.Header.Get("Date"),
	}

	var plain, markup string
	var havePlain, haveHTML bool

	for {
		p, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// keep what was read so far, a broken trailing part is common
			if havePlain || haveHTML {
				break
			}
			return nil, fmt.Errorf("failed to read message part: %w", err)
		}

		switch h := p.Header.(type) {
		case *mail.InlineHeader:
			ct, _, _ := h.ContentType()
			if (ct == "text/plain" && havePlain) || (ct == "text/html" && haveHTML) {
				continue
			}
			if ct != "text/plain" && ct != "text/html" && ct != "" {
				continue
			}
			b, err := io.ReadAll(p.Body)
			if err != nil {
				continue
			}
			if ct == "text/html" {
				markup, haveHTML = string(b), true
			} else {
				plain, havePlain = string(b), true
			}
		case *mail.AttachmentHeader:
			filename, _ := h.Filename()
			ct, _, _ := h.ContentType()
			b, err := io.ReadAll(p.Body)
			if err != nil {
				return nil, fmt.Errorf("failed to read attachment %s: %w", filename, err)
			}
			email.Attachments = append(email.Attachments, core.NewAttachment(filename, b, ct))
		}
	}

	switch {
	case havePlain:
		email.Body = plain
	case haveHTML:
		email.Body = HTMLToText(markup)
	}
	return email, nil
}

// headerText returns a decoded header value, falling back to the raw value
// when the encoding is unknown
func headerText(h *mail.Header, key string) string {
	if v, err := h.Text(key); err == nil {
		return strings.TrimSpace(v)
	}
	return strings.TrimSpace(h.Get(key))
}
