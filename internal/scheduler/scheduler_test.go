package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parking-status-backend/internal/parking"
)

type blockingRefresher struct {
	mu      sync.Mutex
	calls   int
	release chan struct{}
	err     error
}

func (b *blockingRefresher) Refresh(context.Context) ([]parking.RawBayRecord, error) {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()
	if b.release != nil {
		<-b.release
	}
	return nil, b.err
}

func (b *blockingRefresher) callCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

func TestExecuteScrapeCountsRunsAndErrors(t *testing.T) {
	src := &blockingRefresher{}
	s := New(src, time.Minute)

	s.ExecuteScrape(context.Background())
	st := s.Status()
	assert.Equal(t, int64(1), st.ScrapeCount)
	assert.Equal(t, int64(0), st.ErrorCount)
	assert.False(t, st.LastRunAt.IsZero())

	src.err = errors.New("chrome exploded")
	s.ExecuteScrape(context.Background())
	st = s.Status()
	assert.Equal(t, int64(1), st.ScrapeCount, "failed cycles do not count as runs")
	assert.Equal(t, int64(1), st.ErrorCount)
	assert.Equal(t, "chrome exploded", st.LastError)
	assert.False(t, st.LastErrorTime.IsZero())

	src.err = nil
	s.ExecuteScrape(context.Background())
	st = s.Status()
	assert.Equal(t, int64(2), st.ScrapeCount)
	assert.Equal(t, int64(1), st.ErrorCount)
}

func TestExecuteScrapeSkipsOverlappingRuns(t *testing.T) {
	src := &blockingRefresher{release: make(chan struct{})}
	s := New(src, time.Minute)

	done := make(chan struct{})
	go func() {
		s.ExecuteScrape(context.Background())
		close(done)
	}()

	// Wait for the first cycle to enter Refresh.
	require.Eventually(t, func() bool { return src.callCount() == 1 },
		time.Second, 5*time.Millisecond)

	s.ExecuteScrape(context.Background())
	s.ExecuteScrape(context.Background())

	close(src.release)
	<-done

	st := s.Status()
	assert.Equal(t, int64(1), st.ScrapeCount, "overlapping ticks must not run")
	assert.Equal(t, int64(2), st.SkippedCount)
	assert.Equal(t, 1, src.callCount())
}

func TestStartAndStop(t *testing.T) {
	src := &blockingRefresher{}
	s := New(src, time.Hour)

	require.NoError(t, s.Start())
	require.NoError(t, s.Start(), "a second Start is a no-op")

	// The immediate first cycle fires in the background.
	require.Eventually(t, func() bool { return src.callCount() == 1 },
		time.Second, 5*time.Millisecond)

	st := s.Status()
	assert.True(t, st.Running)
	assert.False(t, st.NextRunAt.IsZero())
	assert.InDelta(t, 60.0, st.IntervalMinutes, 0.001)

	s.Stop()
	st = s.Status()
	assert.False(t, st.Running)
}
