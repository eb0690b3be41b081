package scheduler

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"saldo/internal/domain/transaction"
	"saldo/internal/shared/logging"
)

type MockJob struct {
	ExecuteFunc func(ctx context.Context) error
}

func (m *MockJob) Execute(ctx context.Context) error {
	if m.ExecuteFunc != nil {
		return m.ExecuteFunc(ctx)
	}
	return nil
}

func (m *MockJob) Description() string { return "mock job" }

type MockAccountLister struct {
	ListIDsFunc func(ctx context.Context) ([]string, error)
}

func (m *MockAccountLister) ListIDs(ctx context.Context) ([]string, error) {
	return m.ListIDsFunc(ctx)
}

type MockReconciler struct {
	ReconcileFunc func(ctx context.Context, accountIDs []string, fix bool) *transaction.ReconcileResult
}

func (m *MockReconciler) Reconcile(ctx context.Context, accountIDs []string, fix bool) *transaction.ReconcileResult {
	return m.ReconcileFunc(ctx, accountIDs, fix)
}

func TestParseScheduleTime(t *testing.T) {
	tests := []struct {
		in      string
		want    ScheduleTime
		wantErr bool
	}{
		{"03:00", ScheduleTime{3, 0}, false},
		{"23:59", ScheduleTime{23, 59}, false},
		{"7:5", ScheduleTime{7, 5}, false},
		{"24:00", ScheduleTime{}, true},
		{"12:60", ScheduleTime{}, true},
		{"noon", ScheduleTime{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseScheduleTime(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNew_RequiresScheduleTime(t *testing.T) {
	_, err := New(&MockJob{}, Config{}, logging.NewSilent())
	assert.Error(t, err)

	_, err = New(&MockJob{}, Config{ScheduleTimes: []string{"25:00"}}, logging.NewSilent())
	assert.Error(t, err)
}

func TestScheduler_ShouldRunOncePerMinute(t *testing.T) {
	s, err := New(&MockJob{}, Config{ScheduleTimes: []string{"03:00", "15:30"}}, logging.NewSilent())
	require.NoError(t, err)

	at := time.Date(2026, 3, 1, 3, 0, 10, 0, time.UTC)
	assert.True(t, s.shouldRun(at))
	assert.False(t, s.shouldRun(at.Add(30*time.Second)))
	assert.False(t, s.shouldRun(at.Add(time.Minute)))
	assert.True(t, s.shouldRun(time.Date(2026, 3, 1, 15, 30, 0, 0, time.UTC)))
	assert.True(t, s.shouldRun(at.AddDate(0, 0, 1)))
}

func TestScheduler_Next(t *testing.T) {
	s, err := New(&MockJob{}, Config{ScheduleTimes: []string{"15:30", "03:00"}}, logging.NewSilent())
	require.NoError(t, err)

	s.now = func() time.Time { return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC) }
	assert.Equal(t, time.Date(2026, 3, 1, 15, 30, 0, 0, time.UTC), s.Next())

	s.now = func() time.Time { return time.Date(2026, 3, 1, 16, 0, 0, 0, time.UTC) }
	assert.Equal(t, time.Date(2026, 3, 2, 3, 0, 0, 0, time.UTC), s.Next())
}

func TestScheduler_TriggerNow(t *testing.T) {
	ran := make(chan struct{}, 1)
	job := &MockJob{
		ExecuteFunc: func(ctx context.Context) error {
			ran <- struct{}{}
			return errors.New("boom")
		},
	}
	s, err := New(job, Config{ScheduleTimes: []string{"03:00"}, Tick: time.Hour}, logging.NewSilent())
	require.NoError(t, err)

	s.Start()
	s.TriggerNow()

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not run")
	}
	s.Shutdown(2 * time.Second)
}

func TestScheduler_RunLogsJobOutcome(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantLog []string
	}{
		{"failure", errors.New("ledger offline"), []string{`"level":"error"`, "job failed", "ledger offline"}},
		{"success", nil, []string{`"level":"info"`, "job completed"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			job := &MockJob{ExecuteFunc: func(ctx context.Context) error { return tt.err }}
			s, err := New(job, Config{ScheduleTimes: []string{"03:00"}}, logging.NewWithOutput("debug", &buf))
			require.NoError(t, err)

			s.run()

			for _, want := range tt.wantLog {
				assert.Contains(t, buf.String(), want)
			}
		})
	}
}

func TestScheduler_SkipsOverlappingRun(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 2)
	job := &MockJob{
		ExecuteFunc: func(ctx context.Context) error {
			started <- struct{}{}
			<-release
			return nil
		},
	}
	s, err := New(job, Config{ScheduleTimes: []string{"03:00"}}, logging.NewSilent())
	require.NoError(t, err)

	s.TriggerNow()
	<-started
	s.run()
	close(release)
	s.Shutdown(2 * time.Second)

	assert.Len(t, started, 0)
}

func TestReconcileJob_Execute(t *testing.T) {
	tests := []struct {
		name       string
		ids        []string
		listErr    error
		result     *transaction.ReconcileResult
		wantErr    bool
		wantCalled bool
	}{
		{
			name:       "clean run",
			ids:        []string{"a-1", "a-2"},
			result:     &transaction.ReconcileResult{AccountsChecked: 2},
			wantCalled: true,
		},
		{
			name: "drift is reported, not failed",
			ids:  []string{"a-1"},
			result: &transaction.ReconcileResult{
				AccountsChecked: 1,
				Drifts: []transaction.Drift{{
					AccountID: "a-1",
					Stored:    decimal.RequireFromString("10"),
					Expected:  decimal.RequireFromString("12"),
				}},
			},
			wantCalled: true,
		},
		{
			name:       "account errors fail the job",
			ids:        []string{"a-1"},
			result:     &transaction.ReconcileResult{AccountsChecked: 1, Errors: []string{"account a-1: boom"}},
			wantErr:    true,
			wantCalled: true,
		},
		{
			name:    "list failure",
			listErr: errors.New("db down"),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			lister := &MockAccountLister{
				ListIDsFunc: func(ctx context.Context) ([]string, error) {
					return tt.ids, tt.listErr
				},
			}
			reconciler := &MockReconciler{
				ReconcileFunc: func(ctx context.Context, accountIDs []string, fix bool) *transaction.ReconcileResult {
					called = true
					assert.Equal(t, tt.ids, accountIDs)
					assert.False(t, fix)
					return tt.result
				},
			}

			err := NewReconcileJob(lister, reconciler, false, logging.NewSilent()).Execute(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantCalled, called)
		})
	}
}
