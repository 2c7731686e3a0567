package mailmime

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/mikey/gmail-spam-detector/internal/core"
)

// Compose builds a multipart/mixed RFC 5322 message with a plain text
// body followed by the attachments. from may be empty when the submission
// service fills it in.
func Compose(ctx context.Context, from, to, subject, body string, attachments []core.Attachment) ([]byte, error) {
	var h mail.Header
	h.SetDate(time.Now())
	h.SetSubject(subject)
	if from != "" {
		setAddress(&h, "From", from)
	}
	setAddress(&h, "To", to)

	var buf bytes.Buffer
	w, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("failed to create message writer: %w", err)
	}

	var th mail.InlineHeader
	th.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	th.Set("Content-Transfer-Encoding", "quoted-printable")
	tw, err := w.CreateSingleInline(th)
	if err != nil {
		return nil, fmt.Errorf("failed to create message body: %w", err)
	}
	if _, err := tw.Write([]byte(body)); err != nil {
		return nil, fmt.Errorf("failed to write message body: %w", err)
	}
	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("failed to write message body: %w", err)
	}

	for _, att := range attachments {
		data, err := att.Data(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read attachment %s: %w", att.Filename(), err)
		}

		var ah mail.AttachmentHeader
		ah.SetContentType(att.ContentType(), nil)
		ah.SetFilename(att.Filename())
		aw, err := w.CreateAttachment(ah)
		if err != nil {
			return nil, fmt.Errorf("failed to create attachment %s: %w", att.Filename(), err)
		}
		if _, err := aw.Write(data); err != nil {
			return nil, fmt.Errorf("failed to write attachment %s: %w", att.Filename(), err)
		}
		if err := aw.Close(); err != nil {
			return nil, fmt.Errorf("failed to write attachment %s: %w", att.Filename(), err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize message: %w", err)
	}
	return buf.Bytes(), nil
}

func setAddress(h *mail.Header, key, value string) {
	if addrs, err := mail.ParseAddressList(value); err == nil {
		h.SetAddressList(key, addrs)
		return
	}
	h.Set(key, value)
}
