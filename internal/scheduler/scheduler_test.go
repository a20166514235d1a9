package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderhub-lab/orderhub-analytics/internal/core/storage"
)

type stubJobs struct {
	bootstraps atomic.Int32
	refreshes  atomic.Int32
	err        error
}

func (s *stubJobs) RunBootstrap(ctx context.Context) error {
	s.bootstraps.Add(1)
	return s.err
}

func (s *stubJobs) RunDailyRefresh(ctx context.Context, target time.Time) error {
	s.refreshes.Add(1)
	return s.err
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    ClockTime
		wantErr bool
	}{
		{in: "01:00", want: ClockTime{Hour: 1, Minute: 0}},
		{in: "23:00", want: ClockTime{Hour: 23, Minute: 0}},
		{in: "09:45", want: ClockTime{Hour: 9, Minute: 45}},
		{in: "24:00", wantErr: true},
		{in: "12:60", wantErr: true},
		{in: "noon", wantErr: true},
		{in: "12", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseClock(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestUntilNext_LaterToday(t *testing.T) {
	s := New(&stubJobs{}, &stubJobs{}, time.Second, ClockTime{}, ClockTime{}, time.UTC)
	s.nowFn = func() time.Time { return time.Date(2026, 3, 2, 0, 30, 0, 0, time.UTC) }

	d := s.untilNext(ClockTime{Hour: 1, Minute: 0})
	assert.Equal(t, 30*time.Minute, d)
}

func TestUntilNext_AlreadyPassedSchedulesTomorrow(t *testing.T) {
	s := New(&stubJobs{}, &stubJobs{}, time.Second, ClockTime{}, ClockTime{}, time.UTC)
	s.nowFn = func() time.Time { return time.Date(2026, 3, 2, 2, 0, 0, 0, time.UTC) }

	d := s.untilNext(ClockTime{Hour: 1, Minute: 0})
	assert.Equal(t, 23*time.Hour, d)
}

func TestUntilNext_ExactFireTimeSchedulesTomorrow(t *testing.T) {
	s := New(&stubJobs{}, &stubJobs{}, time.Second, ClockTime{}, ClockTime{}, time.UTC)
	s.nowFn = func() time.Time { return time.Date(2026, 3, 2, 23, 0, 0, 0, time.UTC) }

	d := s.untilNext(ClockTime{Hour: 23, Minute: 0})
	assert.Equal(t, 24*time.Hour, d)
}

func TestStart_BootstrapFiresOnceAfterDelay(t *testing.T) {
	jobs := &stubJobs{}
	s := New(jobs, &stubJobs{}, 5*time.Millisecond, ClockTime{Hour: 1}, ClockTime{Hour: 23}, time.UTC)

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	err := s.Start(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(1), jobs.bootstraps.Load())
	assert.Equal(t, int32(0), jobs.refreshes.Load())
}

func TestStart_SkipsTickWhenRunInProgress(t *testing.T) {
	jobs := &stubJobs{err: storage.ErrRunInProgress}
	s := New(jobs, &stubJobs{}, 5*time.Millisecond, ClockTime{Hour: 1}, ClockTime{Hour: 23}, time.UTC)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	// A busy job lock must not crash the loop; Start keeps running until
	// the context expires.
	err := s.Start(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(1), jobs.bootstraps.Load())
}
