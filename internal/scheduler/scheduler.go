package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	joberrors "github.com/orderhub-lab/orderhub-analytics/internal/core/errors"
	"github.com/orderhub-lab/orderhub-analytics/internal/core/storage"
)

// defaultBootstrapDelay keeps the bootstrap run off the critical startup
// path: the server comes up first, history materializes shortly after.
const defaultBootstrapDelay = 5 * time.Second

// AnalysisJobs is the product analysis run surface the scheduler drives.
type AnalysisJobs interface {
	RunBootstrap(ctx context.Context) error
	RunDailyRefresh(ctx context.Context, target time.Time) error
}

// RevenueJobs is the revenue run surface the scheduler drives.
type RevenueJobs interface {
	RunDailyRefresh(ctx context.Context, target time.Time) error
}

// ClockTime is a wall-clock fire time in the scheduler's location.
type ClockTime struct {
	Hour   int
	Minute int
}

// ParseClock parses "HH:MM" into a ClockTime.
func ParseClock(s string) (ClockTime, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return ClockTime{}, fmt.Errorf("invalid clock time %q, want HH:MM", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return ClockTime{}, fmt.Errorf("invalid hour in clock time %q", s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return ClockTime{}, fmt.Errorf("invalid minute in clock time %q", s)
	}
	return ClockTime{Hour: hour, Minute: minute}, nil
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// Scheduler drives the three periodic jobs: a one-shot bootstrap after a
// short startup delay, and two daily wall-clock refreshes. It is stateless
// between ticks; cross-process exclusion lives in the coordinator's job
// lock, so overlapping ticks degrade to skipped runs.
type Scheduler struct {
	analysis AnalysisJobs
	revenue  RevenueJobs

	bootstrapDelay time.Duration
	analysisAt     ClockTime
	revenueAt      ClockTime
	loc            *time.Location

	nowFn func() time.Time
}

func New(
	analysis AnalysisJobs,
	revenue RevenueJobs,
	bootstrapDelay time.Duration,
	analysisAt, revenueAt ClockTime,
	loc *time.Location,
) *Scheduler {
	if bootstrapDelay <= 0 {
		bootstrapDelay = defaultBootstrapDelay
	}
	return &Scheduler{
		analysis:       analysis,
		revenue:        revenue,
		bootstrapDelay: bootstrapDelay,
		analysisAt:     analysisAt,
		revenueAt:      revenueAt,
		loc:            loc,
		nowFn:          time.Now,
	}
}

// Start runs the schedule until the context is cancelled. The bootstrap
// timer fires once; the two daily timers re-arm after every fire.
func (s *Scheduler) Start(ctx context.Context) error {
	slog.Info("[Scheduler] Starting analytics scheduler",
		"bootstrap_delay", s.bootstrapDelay,
		"analysis_refresh_at", s.analysisAt.String(),
		"revenue_refresh_at", s.revenueAt.String(),
		"timezone", s.loc.String(),
	)

	bootstrap := time.NewTimer(s.bootstrapDelay)
	defer bootstrap.Stop()

	analysisTimer := time.NewTimer(s.untilNext(s.analysisAt))
	defer analysisTimer.Stop()

	// A nil revenue job leaves its timer channel nil, so that select arm
	// never fires.
	var revenueTimer *time.Timer
	var revenueC <-chan time.Time
	if s.revenue != nil {
		revenueTimer = time.NewTimer(s.untilNext(s.revenueAt))
		defer revenueTimer.Stop()
		revenueC = revenueTimer.C
	}

	for {
		select {
		case <-bootstrap.C:
			s.runJob(ctx, joberrors.JobBootstrapAnalysis, func(ctx context.Context) error {
				return s.analysis.RunBootstrap(ctx)
			})

		case <-analysisTimer.C:
			s.runJob(ctx, joberrors.JobRefreshAnalysis, func(ctx context.Context) error {
				return s.analysis.RunDailyRefresh(ctx, time.Time{})
			})
			analysisTimer.Reset(s.untilNext(s.analysisAt))

		case <-revenueC:
			s.runJob(ctx, joberrors.JobRefreshRevenue, func(ctx context.Context) error {
				return s.revenue.RunDailyRefresh(ctx, time.Time{})
			})
			revenueTimer.Reset(s.untilNext(s.revenueAt))

		case <-ctx.Done():
			slog.Info("[Scheduler] Stopping (context cancelled)")
			return nil
		}
	}
}

func (s *Scheduler) runJob(ctx context.Context, job string, run func(context.Context) error) {
	start := s.nowFn()
	err := run(ctx)
	switch {
	case err == nil:
		slog.Info("[Scheduler] Job finished", "job", job, "elapsed", s.nowFn().Sub(start))
	case errors.Is(err, storage.ErrRunInProgress):
		slog.Warn("[Scheduler] Previous run still active, skipping tick", "job", job)
	default:
		slog.Error("[Scheduler] Job failed", "job", job, "error", err)
	}
}

// untilNext computes the duration from now to the next wall-clock fire in
// the scheduler's location. A fire time equal to now schedules tomorrow.
func (s *Scheduler) untilNext(at ClockTime) time.Duration {
	now := s.nowFn().In(s.loc)
	next := time.Date(now.Year(), now.Month(), now.Day(), at.Hour, at.Minute, 0, 0, s.loc)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(now)
}
