package watcher

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mikey/gmail-spam-detector/internal/core"
	"github.com/mikey/gmail-spam-detector/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var _ ports.Service = (*Watcher)(nil)

type countingDetector struct {
	runs   atomic.Int32
	output string
	max    int
	err    error
}

func (d *countingDetector) DetectSpam(ctx context.Context, outputCSV string, maxEmails int) ([]core.SpamResult, error) {
	d.runs.Add(1)
	d.output = outputCSV
	d.max = maxEmails
	if d.err != nil {
		return nil, d.err
	}
	return []core.SpamResult{{MailID: "a", PctSpam: 10}}, nil
}

func TestWatcherRunsPeriodically(t *testing.T) {
	d := &countingDetector{}
	w := NewWatcher(d, zap.NewNop(), 10*time.Millisecond, "out.csv", 5)

	require.NoError(t, w.Start())
	assert.Error(t, w.Start())

	assert.Eventually(t, func() bool { return d.runs.Load() >= 3 }, time.Second, 5*time.Millisecond)
	require.NoError(t, w.Stop())

	runs := d.runs.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, runs, d.runs.Load())
	assert.Equal(t, "out.csv", d.output)
	assert.Equal(t, 5, d.max)

	// Stop is idempotent
	assert.NoError(t, w.Stop())
}

func TestWatcherKeepsRunningAfterErrors(t *testing.T) {
	d := &countingDetector{err: errors.New("mailbox unavailable")}
	w := NewWatcher(d, zap.NewNop(), 10*time.Millisecond, "out.csv", 5)

	require.NoError(t, w.Start())
	assert.Eventually(t, func() bool { return d.runs.Load() >= 2 }, time.Second, 5*time.Millisecond)
	require.NoError(t, w.Stop())
}

func TestWatcherInvalidInterval(t *testing.T) {
	w := NewWatcher(&countingDetector{}, zap.NewNop(), 0, "out.csv", 5)
	assert.Error(t, w.Start())
	assert.NoError(t, w.Stop())
}
