package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/todaysales-settlement/internal/config"
	"github.com/todaysales-settlement/internal/domain/settlement"
	"github.com/todaysales-settlement/internal/settlement_engine/service"
)

type fakeSettler struct {
	exists    bool
	existsErr error
	runErr    error
	panicMsg  string
	checked   []time.Time
	ran       []time.Time
}

func (f *fakeSettler) CheckSettlementExists(_ context.Context, date time.Time) (bool, error) {
	f.checked = append(f.checked, date)
	return f.exists, f.existsErr
}

func (f *fakeSettler) RunSettlement(_ context.Context, date time.Time) (*settlement.Settlement, error) {
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	f.ran = append(f.ran, date)
	if f.runErr != nil {
		return nil, f.runErr
	}
	s := settlement.New(date, date)
	s.ID = 1
	return s, nil
}

type failure struct {
	date   time.Time
	reason string
}

type fakeRecorder struct {
	failures []failure
	err      error
}

func (f *fakeRecorder) RecordFailure(_ context.Context, date time.Time, reason string) error {
	f.failures = append(f.failures, failure{date: date, reason: reason})
	return f.err
}

type fixedClock time.Time

func (c fixedClock) Now() time.Time { return time.Time(c) }

func newScheduler(t *testing.T, settler Settler, recorder service.FailureRecorder, now time.Time) *DailyScheduler {
	t.Helper()
	cfg := &config.SchedulerConfig{Enabled: true, Timezone: "Asia/Seoul", RunHour: 2, RunMinute: 0}
	s, err := NewDailyScheduler(settler, recorder, fixedClock(now), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return s
}

func TestTargetDate(t *testing.T) {
	kst, err := time.LoadLocation("Asia/Seoul")
	require.NoError(t, err)

	tests := []struct {
		name string
		now  time.Time
		want string
	}{
		{"after midnight in Seoul", time.Date(2024, 3, 15, 2, 0, 0, 0, kst), "2024-03-14"},
		{"UTC clock still on the previous day", time.Date(2024, 3, 14, 17, 30, 0, 0, time.UTC), "2024-03-14"},
		{"month boundary", time.Date(2024, 3, 1, 2, 0, 0, 0, kst), "2024-02-29"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newScheduler(t, &fakeSettler{}, &fakeRecorder{}, tt.now)
			assert.Equal(t, tt.want, settlement.FormatDate(s.TargetDate()))
		})
	}
}

func TestRunOnce(t *testing.T) {
	now := time.Date(2024, 3, 15, 2, 0, 0, 0, time.FixedZone("KST", 9*3600))
	yesterday := time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC)

	t.Run("settles yesterday", func(t *testing.T) {
		settler := &fakeSettler{}
		recorder := &fakeRecorder{}

		require.NoError(t, newScheduler(t, settler, recorder, now).RunOnce(context.Background()))
		assert.Equal(t, []time.Time{yesterday}, settler.ran)
		assert.Empty(t, recorder.failures)
	})

	t.Run("skips a settled day", func(t *testing.T) {
		settler := &fakeSettler{exists: true}
		recorder := &fakeRecorder{}

		require.NoError(t, newScheduler(t, settler, recorder, now).RunOnce(context.Background()))
		assert.Equal(t, []time.Time{yesterday}, settler.checked)
		assert.Empty(t, settler.ran)
		assert.Empty(t, recorder.failures)
	})

	t.Run("existence check failure is recorded", func(t *testing.T) {
		settler := &fakeSettler{existsErr: errors.New("connection refused")}
		recorder := &fakeRecorder{}

		err := newScheduler(t, settler, recorder, now).RunOnce(context.Background())
		require.Error(t, err)
		assert.Empty(t, settler.ran)
		require.Len(t, recorder.failures, 1)
		assert.Equal(t, yesterday, recorder.failures[0].date)
		assert.Equal(t, "connection refused", recorder.failures[0].reason)
	})

	t.Run("concurrent duplicate is not a failure", func(t *testing.T) {
		settler := &fakeSettler{runErr: settlement.ErrDuplicateSettlement{Date: yesterday}}
		recorder := &fakeRecorder{}

		require.NoError(t, newScheduler(t, settler, recorder, now).RunOnce(context.Background()))
		assert.Empty(t, recorder.failures)
	})

	t.Run("persistence failure is already recorded", func(t *testing.T) {
		settler := &fakeSettler{runErr: &service.PersistenceError{Date: yesterday, Err: errors.New("deadlock")}}
		recorder := &fakeRecorder{}

		err := newScheduler(t, settler, recorder, now).RunOnce(context.Background())
		require.Error(t, err)
		assert.Empty(t, recorder.failures)
	})

	t.Run("other run errors are recorded", func(t *testing.T) {
		settler := &fakeSettler{runErr: context.DeadlineExceeded}
		recorder := &fakeRecorder{err: errors.New("store down")}

		err := newScheduler(t, settler, recorder, now).RunOnce(context.Background())
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Len(t, recorder.failures, 1)
	})

	t.Run("panic is recovered and recorded", func(t *testing.T) {
		settler := &fakeSettler{panicMsg: "nil map"}
		recorder := &fakeRecorder{}

		err := newScheduler(t, settler, recorder, now).RunOnce(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "nil map")
		require.Len(t, recorder.failures, 1)
		assert.Contains(t, recorder.failures[0].reason, "nil map")
	})
}

func TestNewDailyScheduler_InvalidTimezone(t *testing.T) {
	cfg := &config.SchedulerConfig{Timezone: "Mars/Olympus"}
	_, err := NewDailyScheduler(&fakeSettler{}, &fakeRecorder{}, fixedClock(time.Now()), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Error(t, err)
}

func TestDailyJobRegistration(t *testing.T) {
	kst, err := time.LoadLocation("Asia/Seoul")
	require.NoError(t, err)

	s := newScheduler(t, &fakeSettler{}, &fakeRecorder{}, time.Now())
	sched, err := s.newScheduler(context.Background())
	require.NoError(t, err)
	sched.Start()
	defer func() { assert.NoError(t, sched.Shutdown()) }()

	jobs := sched.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, jobName, jobs[0].Name())

	var next time.Time
	require.Eventually(t, func() bool {
		next, err = jobs[0].NextRun()
		return err == nil && !next.IsZero()
	}, time.Second, 10*time.Millisecond)

	local := next.In(kst)
	assert.Equal(t, 2, local.Hour())
	assert.Equal(t, 0, local.Minute())
	assert.True(t, next.After(time.Now()))
}

func TestRun_StopsOnCancel(t *testing.T) {
	s := newScheduler(t, &fakeSettler{}, &fakeRecorder{}, time.Now())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
