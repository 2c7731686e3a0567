package core_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mikey/gmail-spam-detector/internal/adapters/cache"
	"github.com/mikey/gmail-spam-detector/internal/adapters/report"
	"github.com/mikey/gmail-spam-detector/internal/core"
	"github.com/mikey/gmail-spam-detector/internal/utils"
	"github.com/mikey/gmail-spam-detector/internal/whitelist"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeMail struct {
	emails  []*core.Email
	err     error
	asked   int
	trashed []string
}

func (m *fakeMail) GetMessages(ctx context.Context, max int) ([]*core.Email, error) {
	m.asked = max
	if m.err != nil {
		return nil, m.err
	}
	if len(m.emails) > max {
		return m.emails[:max], nil
	}
	return m.emails, nil
}

func (m *fakeMail) GetMessage(ctx context.Context, id string) (*core.Email, error) {
	for _, e := range m.emails {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, errors.New("not found")
}

func (m *fakeMail) SendMessage(ctx context.Context, to, subject, body string, attachments []core.Attachment) error {
	return nil
}

func (m *fakeMail) DeleteMessage(ctx context.Context, id string) error {
	m.trashed = append(m.trashed, id)
	return nil
}

// fakeAI answers with the queued replies in order. An error entry makes
// the matching call fail.
type fakeAI struct {
	mu       sync.Mutex
	replies  []any
	prompts  []string
	sessions map[string]bool
	started  int
}

func newFakeAI(replies ...any) *fakeAI {
	return &fakeAI{replies: replies, sessions: map[string]bool{}}
}

func (a *fakeAI) StartNewSession(ctx context.Context, userID string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.started++
	id := "sess_0000000" + string(rune('0'+a.started))
	a.sessions[id] = true
	return id, nil
}

func (a *fakeAI) SendMessage(ctx context.Context, sessionID, message string) (*core.ChatMessage, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.sessions[sessionID] {
		return nil, errors.New("session not found")
	}
	a.prompts = append(a.prompts, message)
	if len(a.replies) == 0 {
		return nil, errors.New("no reply queued")
	}
	next := a.replies[0]
	a.replies = a.replies[1:]
	if err, ok := next.(error); ok {
		return nil, err
	}
	return &core.ChatMessage{Role: core.RoleAssistant, Content: next.(string)}, nil
}

func (a *fakeAI) GetChatHistory(sessionID string) []core.ChatMessage { return nil }

func (a *fakeAI) SetUserPreferences(userID string, prefs core.UserPreferences) {}

func (a *fakeAI) EndSession(sessionID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.sessions, sessionID)
	return true
}

func (a *fakeAI) openSessions() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.sessions)
}

func sampleEmails() []*core.Email {
	return []*core.Email{
		{ID: "id1", From: "alice@example.com", To: "me@example.com", Subject: "Lunch?", Date: "Mon, 1 Jan 2024 10:00:00 +0000", Body: "Are we still on for lunch?"},
		{ID: "id2", From: "promo@deals.biz", To: "me@example.com", Subject: "WIN BIG", Date: "Mon, 1 Jan 2024 11:00:00 +0000", Body: "Claim your prize now!!!"},
		{ID: "id3", From: "bob@example.org", To: "me@example.com", Subject: "Report", Date: "Mon, 1 Jan 2024 12:00:00 +0000", Body: "Attached is the report."},
	}
}

func newDetector(mail core.MailClient, ai core.AIConversationClient, repo core.CacheRepository, filter core.SenderFilter, opts core.DetectorOptions) *core.SpamDetector {
	logger := zap.NewNop()
	return core.NewSpamDetector(mail, ai, report.NewCSVWriter(logger), repo, utils.NewTextProcessor(logger), filter, logger, opts)
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func TestDetectSpamWritesReport(t *testing.T) {
	mail := &fakeMail{emails: sampleEmails()}
	ai := newFakeAI("30", "85", "5")
	out := filepath.Join(t.TempDir(), "spam_report.csv")

	results, err := newDetector(mail, ai, nil, nil, core.DetectorOptions{Threshold: 70}).DetectSpam(context.Background(), out, 3)
	require.NoError(t, err)

	assert.Equal(t, "mail_id,Pct_spam\r\nid1,30.0\r\nid2,85.0\r\nid3,5.0\r\n", readFile(t, out))
	require.Len(t, results, 3)
	assert.False(t, results[0].IsSpam)
	assert.True(t, results[1].IsSpam)
	assert.Equal(t, core.SourceModel, results[1].Source)
	assert.Equal(t, 0, ai.openSessions())
	assert.Equal(t, 3, mail.asked)
	assert.Empty(t, mail.trashed)

	assert.Contains(t, ai.prompts[1], "Subject: WIN BIG\nFrom: promo@deals.biz\nTo: me@example.com\n")
	assert.Contains(t, ai.prompts[1], "Body: Claim your prize now!!!\n")
}

func TestDetectSpamDefaultsFailuresToZero(t *testing.T) {
	mail := &fakeMail{emails: sampleEmails()}
	ai := newFakeAI(errors.New("quota exceeded"), "definitely spam", "0x1p4")
	out := filepath.Join(t.TempDir(), "report.csv")

	results, err := newDetector(mail, ai, nil, nil, core.DetectorOptions{Threshold: 70}).DetectSpam(context.Background(), out, 3)
	require.NoError(t, err)

	assert.Equal(t, "mail_id,Pct_spam\r\nid1,0.0\r\nid2,0.0\r\nid3,0.0\r\n", readFile(t, out))
	for _, r := range results {
		assert.Equal(t, core.SourceError, r.Source)
		assert.False(t, r.IsSpam)
	}
}

func TestDetectSpamClampsReplies(t *testing.T) {
	mail := &fakeMail{emails: sampleEmails()}
	ai := newFakeAI("150", "-3", " 42.5 \n")
	out := filepath.Join(t.TempDir(), "report.csv")

	_, err := newDetector(mail, ai, nil, nil, core.DetectorOptions{}).DetectSpam(context.Background(), out, 3)
	require.NoError(t, err)
	assert.Equal(t, "mail_id,Pct_spam\r\nid1,100.0\r\nid2,0.0\r\nid3,42.5\r\n", readFile(t, out))
}

func TestDetectSpamNoEmails(t *testing.T) {
	for _, max := range []int{0, -1} {
		mail := &fakeMail{emails: sampleEmails()}
		ai := newFakeAI()
		out := filepath.Join(t.TempDir(), "report.csv")

		results, err := newDetector(mail, ai, nil, nil, core.DetectorOptions{}).DetectSpam(context.Background(), out, max)
		require.NoError(t, err)
		assert.Empty(t, results)
		assert.Equal(t, "mail_id,Pct_spam\r\n", readFile(t, out))
		assert.Equal(t, 0, mail.asked, "mailbox must not be queried")
		assert.Equal(t, 0, ai.openSessions())
	}
}

func TestDetectSpamMailboxError(t *testing.T) {
	mail := &fakeMail{err: errors.New("invalid_grant")}
	ai := newFakeAI()
	out := filepath.Join(t.TempDir(), "report.csv")

	_, err := newDetector(mail, ai, nil, nil, core.DetectorOptions{}).DetectSpam(context.Background(), out, 5)
	require.Error(t, err)
	assert.ErrorContains(t, err, "invalid_grant")
	assert.Equal(t, 0, ai.openSessions())
	assert.NoFileExists(t, out)
}

func TestDetectSpamWhitelist(t *testing.T) {
	mail := &fakeMail{emails: sampleEmails()}
	ai := newFakeAI("85")
	filter := whitelist.NewChecker([]string{"example.com", "example.org"}, zap.NewNop())
	out := filepath.Join(t.TempDir(), "report.csv")

	results, err := newDetector(mail, ai, nil, filter, core.DetectorOptions{Threshold: 70}).DetectSpam(context.Background(), out, 3)
	require.NoError(t, err)

	assert.Len(t, ai.prompts, 1)
	assert.Equal(t, core.SourceWhitelist, results[0].Source)
	assert.Equal(t, 85.0, results[1].PctSpam)
	assert.Equal(t, core.SourceWhitelist, results[2].Source)
	assert.Equal(t, 0.0, results[2].PctSpam)
}

func TestDetectSpamTrash(t *testing.T) {
	mail := &fakeMail{emails: sampleEmails()}
	ai := newFakeAI("30", "85", "70")
	out := filepath.Join(t.TempDir(), "report.csv")

	_, err := newDetector(mail, ai, nil, nil, core.DetectorOptions{Threshold: 70, TrashSpam: true}).DetectSpam(context.Background(), out, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"id2", "id3"}, mail.trashed)
}

func TestDetectSpamCache(t *testing.T) {
	repo := cache.NewMemoryCache(zap.NewNop(), 0)
	defer repo.Stop()

	opts := core.DetectorOptions{ModelName: "test-model", CacheEnabled: true, CacheTTL: time.Hour, Threshold: 70}
	out := filepath.Join(t.TempDir(), "report.csv")

	// first run fails on id2 so only id1 and id3 are cached
	ai := newFakeAI("30", errors.New("timeout"), "5")
	_, err := newDetector(&fakeMail{emails: sampleEmails()}, ai, repo, nil, opts).DetectSpam(context.Background(), out, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.Len())

	ai = newFakeAI("85")
	results, err := newDetector(&fakeMail{emails: sampleEmails()}, ai, repo, nil, opts).DetectSpam(context.Background(), out, 3)
	require.NoError(t, err)

	assert.Len(t, ai.prompts, 1)
	assert.Equal(t, core.SourceCache, results[0].Source)
	assert.Equal(t, 30.0, results[0].PctSpam)
	assert.Equal(t, core.SourceModel, results[1].Source)
	assert.Equal(t, core.SourceCache, results[2].Source)
	assert.Equal(t, "mail_id,Pct_spam\r\nid1,30.0\r\nid2,85.0\r\nid3,5.0\r\n", readFile(t, out))

	entry, err := repo.Get(context.Background(), core.PromptHash(ai.prompts[0]))
	require.NoError(t, err)
	assert.Equal(t, "test-model", entry.ModelUsed)
	assert.Equal(t, "id2", entry.MailID)
}

func TestDetectSpamCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ai := newFakeAI("30", "85", "5")
	_, err := newDetector(&fakeMail{emails: sampleEmails()}, ai, nil, nil, core.DetectorOptions{}).DetectSpam(ctx, filepath.Join(t.TempDir(), "r.csv"), 3)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, ai.openSessions())
}

func TestAnalyzeEmailTruncatesBody(t *testing.T) {
	ai := newFakeAI("10")
	d := newDetector(&fakeMail{}, ai, nil, nil, core.DetectorOptions{MaxBodySize: 5})

	sessionID, err := ai.StartNewSession(context.Background(), core.DefaultUserID)
	require.NoError(t, err)

	email := &core.Email{ID: "x", Subject: "s", Body: "0123456789"}
	assert.Equal(t, 10.0, d.AnalyzeEmail(context.Background(), sessionID, email))
	assert.Contains(t, ai.prompts[0], "Body: 01234"+utils.TruncationMarker+"\n")
}

func TestAnalyzeEmailUnknownSession(t *testing.T) {
	d := newDetector(&fakeMail{}, newFakeAI("99"), nil, nil, core.DetectorOptions{})
	assert.Equal(t, 0.0, d.AnalyzeEmail(context.Background(), "sess_missing", &core.Email{ID: "x"}))
}

func TestIsSpam(t *testing.T) {
	d := newDetector(&fakeMail{}, newFakeAI(), nil, nil, core.DetectorOptions{Threshold: 70})
	assert.True(t, d.IsSpam(70))
	assert.True(t, d.IsSpam(100))
	assert.False(t, d.IsSpam(69.99))

	disabled := newDetector(&fakeMail{}, newFakeAI(), nil, nil, core.DetectorOptions{})
	assert.False(t, disabled.IsSpam(100))
}

func TestCrawlEmailsCapsResult(t *testing.T) {
	mail := &fakeMail{emails: sampleEmails()}
	d := newDetector(mail, newFakeAI(), nil, nil, core.DetectorOptions{})

	emails, err := d.CrawlEmails(context.Background(), 2)
	require.NoError(t, err)
	assert.Len(t, emails, 2)
	assert.Equal(t, "id1", emails[0].ID)
}

type sessionCheckingReport struct {
	ai          *fakeAI
	openAtWrite int
	written     []core.SpamResult
}

func (r *sessionCheckingReport) Write(path string, results []core.SpamResult) error {
	r.openAtWrite = r.ai.openSessions()
	r.written = results
	return nil
}

func TestDetectSpamEndsSessionBeforeReport(t *testing.T) {
	ai := newFakeAI("30", "85", "5")
	rep := &sessionCheckingReport{ai: ai, openAtWrite: -1}
	logger := zap.NewNop()
	d := core.NewSpamDetector(&fakeMail{emails: sampleEmails()}, ai, rep, nil, utils.NewTextProcessor(logger), nil, logger, core.DetectorOptions{})

	_, err := d.DetectSpam(context.Background(), "unused.csv", 3)
	require.NoError(t, err)
	assert.Equal(t, 1, ai.started)
	assert.Equal(t, 0, rep.openAtWrite)
	assert.Len(t, rep.written, 3)
}

func TestAnalyzeEmailKeepsBodyWithoutLimit(t *testing.T) {
	ai := newFakeAI("10")
	d := newDetector(&fakeMail{}, ai, nil, nil, core.DetectorOptions{})

	sessionID, err := ai.StartNewSession(context.Background(), core.DefaultUserID)
	require.NoError(t, err)

	email := &core.Email{ID: "x", Subject: "s", Body: strings.Repeat("caf\u00e9 au lait\xff ", 600)}
	assert.Equal(t, 10.0, d.AnalyzeEmail(context.Background(), sessionID, email))
	assert.Equal(t, core.BuildPrompt(email, email.Body), ai.prompts[0])
}
