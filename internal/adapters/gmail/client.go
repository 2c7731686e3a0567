package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/mikey/gmail-spam-detector/internal/adapters/mailmime"
	"github.com/mikey/gmail-spam-detector/internal/core"
	"go.uber.org/zap"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// Gmail caps messages.list page size at 500
const maxPageSize = 500

// Client is an implementation of the MailClient interface backed by the
// Gmail REST API
type Client struct {
	svc    *gmail.UsersService
	userID string
	label  string
	logger *zap.Logger
}

// NewClient creates a Gmail client from an authorized HTTP client. Extra
// options are appended, which lets tests point the service at a fake server.
func NewClient(
	ctx context.Context,
	httpClient *http.Client,
	userID string,
	label string,
	logger *zap.Logger,
	opts ...option.ClientOption,
) (*Client, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	if userID == "" {
		userID = "me"
	}
	if label == "" {
		label = "INBOX"
	}

	return &Client{
		svc:    svc.Users,
		userID: userID,
		label:  label,
		logger: logger,
	}, nil
}

// GetMessages returns up to max messages carrying the configured label.
// Messages that cannot be fetched are skipped. A failed list call is
// returned as an error rather than an empty list, so callers never write a
// report for a mailbox they could not read.
func (c *Client) GetMessages(ctx context.Context, max int) ([]*core.Email, error) {
	if max <= 0 {
		return []*core.Email{}, nil
	}

	ids, err := c.listMessageIDs(ctx, max)
	if err != nil {
		return nil, err
	}

	emails := make([]*core.Email, 0, len(ids))
	for _, id := range ids {
		email, err := c.GetMessage(ctx, id)
		if err != nil {
			c.logger.Warn("Skipping message that could not be fetched",
				zap.String("mail_id", id),
				zap.Error(err))
			continue
		}
		emails = append(emails, email)
	}
	return emails, nil
}

func (c *Client) listMessageIDs(ctx context.Context, max int) ([]string, error) {
	var ids []string
	pageToken := ""

	for {
		remaining := max - len(ids)
		if remaining <= 0 {
			break
		}
		pageSize := remaining
		if pageSize > maxPageSize {
			pageSize = maxPageSize
		}

		req := c.svc.Messages.List(c.userID).LabelIds(c.label).MaxResults(int64(pageSize))
		if pageToken != "" {
			req = req.PageToken(pageToken)
		}

		res, err := req.Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("failed to list messages: %w", err)
		}

		for _, m := range res.Messages {
			ids = append(ids, m.Id)
		}

		if res.NextPageToken == "" {
			break
		}
		pageToken = res.NextPageToken
	}

	if len(ids) > max {
		ids = ids[:max]
	}
	return ids, nil
}

// GetMessage retrieves a full message by ID
func (c *Client) GetMessage(ctx context.Context, id string) (*core.Email, error) {
	msg, err := c.svc.Messages.Get(c.userID, id).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", id, err)
	}
	return parseMessage(msg, c), nil
}

// SendMessage sends a message with optional attachments
func (c *Client) SendMessage(ctx context.Context, to, subject, body string, attachments []core.Attachment) error {
	raw, err := mailmime.Compose(ctx, "", to, subject, body, attachments)
	if err != nil {
		return err
	}

	_, err = c.svc.Messages.Send(c.userID, &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString(raw),
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	c.logger.Info("Message sent", zap.String("to", to), zap.String("subject", subject))
	return nil
}

// DeleteMessage moves a message to the trash
func (c *Client) DeleteMessage(ctx context.Context, id string) error {
	if _, err := c.svc.Messages.Trash(c.userID, id).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to trash message %s: %w", id, err)
	}
	return nil
}

// FetchAttachment downloads an attachment body by ID
func (c *Client) FetchAttachment(ctx context.Context, messageID, attachmentID string) ([]byte, error) {
	att, err := c.svc.Messages.Attachments.Get(c.userID, messageID, attachmentID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get attachment %s: %w", attachmentID, err)
	}
	return decodeBase64URL(att.Data)
}
