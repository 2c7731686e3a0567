package gmail

import (
	"context"
	"mime"
	"path/filepath"
	"sync"

	gmail "google.golang.org/api/gmail/v1"
)

// attachmentFetcher downloads attachment bodies that are not inlined
type attachmentFetcher interface {
	FetchAttachment(ctx context.Context, messageID, attachmentID string) ([]byte, error)
}

// Attachment is a Gmail message part with a filename. Its data is decoded
// on first use and memoised.
type Attachment struct {
	messageID string
	part      *gmail.MessagePart
	fetcher   attachmentFetcher

	mu     sync.Mutex
	loaded bool
	data   []byte
}

func newAttachment(messageID string, part *gmail.MessagePart, fetcher attachmentFetcher) *Attachment {
	return &Attachment{
		messageID: messageID,
		part:      part,
		fetcher:   fetcher,
	}
}

// Filename returns the attachment file name
func (a *Attachment) Filename() string {
	return a.part.Filename
}

// ContentType returns the part MIME type, a guess from the file extension,
// or application/octet-stream
func (a *Attachment) ContentType() string {
	if a.part.MimeType != "" {
		return a.part.MimeType
	}
	if a.part.Filename != "" {
		if guessed := mime.TypeByExtension(filepath.Ext(a.part.Filename)); guessed != "" {
			return guessed
		}
	}
	return "application/octet-stream"
}

// Data returns the decoded attachment content
func (a *Attachment) Data(ctx context.Context) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.loaded {
		return a.data, nil
	}

	var body *gmail.MessagePartBody
	if a.part.Body != nil {
		body = a.part.Body
	} else {
		body = &gmail.MessagePartBody{}
	}

	switch {
	case body.Data != "":
		data, err := decodeBase64URL(body.Data)
		if err != nil {
			return nil, err
		}
		a.data = data
	case body.AttachmentId != "" && a.fetcher != nil:
		data, err := a.fetcher.FetchAttachment(ctx, a.messageID, body.AttachmentId)
		if err != nil {
			return nil, err
		}
		a.data = data
	default:
		a.data = []byte{}
	}

	a.loaded = true
	return a.data, nil
}
