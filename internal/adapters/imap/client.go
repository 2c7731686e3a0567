package imap

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/mikey/gmail-spam-detector/internal/adapters/mailmime"
	"github.com/mikey/gmail-spam-detector/internal/config"
	"github.com/mikey/gmail-spam-detector/internal/core"
	"go.uber.org/zap"
)

// Client is an implementation of the MailClient interface that reads a
// mailbox over IMAP and submits mail over SMTP. It suits accounts that use
// app passwords instead of OAuth.
type Client struct {
	cfg    config.IMAPConfig
	logger *zap.Logger

	dialIMAP func(addr string) (*client.Client, error)
	dialSMTP func(addr string) (*smtp.Client, error)
}

// NewClient creates a new IMAP/SMTP client. Both servers are reached over
// implicit TLS.
func NewClient(cfg config.IMAPConfig, logger *zap.Logger) *Client {
	return &Client{
		cfg:    cfg,
		logger: logger,
		dialIMAP: func(addr string) (*client.Client, error) {
			return client.DialTLS(addr, &tls.Config{ServerName: hostOf(addr)})
		},
		dialSMTP: func(addr string) (*smtp.Client, error) {
			conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: hostOf(addr)})
			if err != nil {
				return nil, err
			}
			return smtp.NewClient(conn), nil
		},
	}
}

// firstSeq returns the sequence number of the oldest of the newest max
// messages in a mailbox holding total messages. max must be positive.
func firstSeq(total uint32, max int) uint32 {
	if uint64(max) >= uint64(total) {
		return 1
	}
	return total - uint32(max) + 1
}

func hostOf(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}

func (c *Client) password() string {
	// Google shows app passwords in groups of four
	return strings.ReplaceAll(c.cfg.Password, " ", "")
}

func (c *Client) connect() (*client.Client, error) {
	if c.cfg.Username == "" || c.cfg.Password == "" {
		return nil, errors.New("imap username and password are required")
	}

	ic, err := c.dialIMAP(c.cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to dial IMAP server: %w", err)
	}
	if err := ic.Login(c.cfg.Username, c.password()); err != nil {
		_ = ic.Logout()
		return nil, fmt.Errorf("failed to log in to IMAP server: %w", err)
	}
	return ic, nil
}

// GetMessages returns up to max of the most recent messages in the mailbox,
// newest first
func (c *Client) GetMessages(ctx context.Context, max int) ([]*core.Email, error) {
	if max <= 0 {
		return []*core.Email{}, nil
	}

	ic, err := c.connect()
	if err != nil {
		return nil, err
	}
	defer ic.Logout()

	mbox, err := ic.Select(c.cfg.Mailbox, true)
	if err != nil {
		return nil, fmt.Errorf("failed to select mailbox %s: %w", c.cfg.Mailbox, err)
	}
	if mbox.Messages == 0 {
		return []*core.Email{}, nil
	}

	from := firstSeq(mbox.Messages, max)
	seqSet := new(imap.SeqSet)
	seqSet.AddRange(from, mbox.Messages)

	emails, err := c.fetch(ctx, ic, seqSet, false)
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(emails)-1; i < j; i, j = i+1, j-1 {
		emails[i], emails[j] = emails[j], emails[i]
	}
	return emails, nil
}

// GetMessage retrieves a message by UID
func (c *Client) GetMessage(ctx context.Context, id string) (*core.Email, error) {
	uid, err := parseUID(id)
	if err != nil {
		return nil, err
	}

	ic, err := c.connect()
	if err != nil {
		return nil, err
	}
	defer ic.Logout()

	if _, err := ic.Select(c.cfg.Mailbox, true); err != nil {
		return nil, fmt.Errorf("failed to select mailbox %s: %w", c.cfg.Mailbox, err)
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uid)
	emails, err := c.fetch(ctx, ic, seqSet, true)
	if err != nil {
		return nil, err
	}
	if len(emails) == 0 {
		return nil, fmt.Errorf("message %s not found", id)
	}
	return emails[0], nil
}

// fetch downloads and parses the messages in seqSet. Messages that fail to
// parse are skipped.
func (c *Client) fetch(ctx context.Context, ic *client.Client, seqSet *imap.SeqSet, byUID bool) ([]*core.Email, error) {
	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchUid, section.FetchItem()}

	messages := make(chan *imap.Message, 16)
	done := make(chan error, 1)
	go func() {
		if byUID {
			done <- ic.UidFetch(seqSet, items, messages)
		} else {
			done <- ic.Fetch(seqSet, items, messages)
		}
	}()

	var emails []*core.Email
	for msg := range messages {
		// drain the channel even when cancelled so the fetch goroutine can finish
		if ctx.Err() != nil {
			continue
		}
		literal := msg.GetBody(section)
		if literal == nil {
			continue
		}
		raw, err := io.ReadAll(literal)
		if err != nil {
			c.logger.Warn("Skipping unreadable message", zap.Uint32("uid", msg.Uid), zap.Error(err))
			continue
		}
		email, err := mailmime.Parse(strconv.FormatUint(uint64(msg.Uid), 10), bytes.NewReader(raw))
		if err != nil {
			c.logger.Warn("Skipping unparseable message", zap.Uint32("uid", msg.Uid), zap.Error(err))
			continue
		}
		emails = append(emails, email)
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return emails, nil
}

// SendMessage submits a message through the SMTP server
func (c *Client) SendMessage(ctx context.Context, to, subject, body string, attachments []core.Attachment) error {
	raw, err := mailmime.Compose(ctx, c.cfg.Username, to, subject, body, attachments)
	if err != nil {
		return err
	}

	sc, err := c.dialSMTP(c.cfg.SMTPAddress)
	if err != nil {
		return fmt.Errorf("failed to dial SMTP server: %w", err)
	}
	defer sc.Close()

	if err := sc.Auth(sasl.NewPlainClient("", c.cfg.Username, c.password())); err != nil {
		return fmt.Errorf("SMTP auth failed: %w", err)
	}
	if err := sc.Mail(c.cfg.Username, nil); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}
	if err := sc.Rcpt(envelopeAddress(to), nil); err != nil {
		return fmt.Errorf("RCPT TO %q failed: %w", to, err)
	}

	w, err := sc.Data()
	if err != nil {
		return fmt.Errorf("DATA failed: %w", err)
	}
	if _, err := w.Write(raw); err != nil {
		return fmt.Errorf("writing message failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalizing message failed: %w", err)
	}
	if err := sc.Quit(); err != nil {
		return fmt.Errorf("QUIT failed: %w", err)
	}

	c.logger.Info("Message sent", zap.String("to", to), zap.String("subject", subject))
	return nil
}

// DeleteMessage moves a message to the trash mailbox
func (c *Client) DeleteMessage(ctx context.Context, id string) error {
	uid, err := parseUID(id)
	if err != nil {
		return err
	}

	ic, err := c.connect()
	if err != nil {
		return err
	}
	defer ic.Logout()

	if _, err := ic.Select(c.cfg.Mailbox, false); err != nil {
		return fmt.Errorf("failed to select mailbox %s: %w", c.cfg.Mailbox, err)
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uid)
	if err := uidMove(ic, seqSet, c.cfg.TrashMailbox); err != nil {
		return fmt.Errorf("failed to move message %s to %s: %w", id, c.cfg.TrashMailbox, err)
	}
	return nil
}

// uidMove uses MOVE when available and otherwise copies, flags and expunges
func uidMove(ic *client.Client, seqSet *imap.SeqSet, destination string) error {
	if err := ic.UidMove(seqSet, destination); err == nil {
		return nil
	}
	if err := ic.UidCopy(seqSet, destination); err != nil {
		return err
	}
	storeItem := imap.FormatFlagsOp(imap.AddFlags, true)
	if err := ic.UidStore(seqSet, storeItem, []interface{}{imap.DeletedFlag}, nil); err != nil {
		return err
	}
	return ic.Expunge(nil)
}

func parseUID(id string) (uint32, error) {
	uid, err := strconv.ParseUint(id, 10, 32)
	if err != nil || uid == 0 {
		return 0, fmt.Errorf("invalid message id %q", id)
	}
	return uint32(uid), nil
}

// envelopeAddress strips a display name from an address
func envelopeAddress(addr string) string {
	if i := strings.LastIndex(addr, "<"); i >= 0 {
		if j := strings.LastIndex(addr, ">"); j > i {
			return strings.TrimSpace(addr[i+1 : j])
		}
	}
	return strings.TrimSpace(addr)
}
