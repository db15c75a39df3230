package poll

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/valence-cli/internal/model"
	"github.com/sells-group/valence-cli/internal/resilience"
)

func fastPolicy() Policy {
	retry := resilience.FixedDelay(3, time.Millisecond)
	retry.ShouldRetry = func(error) bool { return true }
	retry.OnRetry = func(int, error) {}
	return Policy{Interval: time.Millisecond, Retry: retry}
}

// sequence returns statuses in order, repeating the last one.
func sequence(calls *atomic.Int32, statuses ...model.Status) FetchFunc {
	return func(_ context.Context, id string) (*model.DealStatus, error) {
		n := int(calls.Add(1)) - 1
		if n >= len(statuses) {
			n = len(statuses) - 1
		}
		return &model.DealStatus{DealID: id, Status: statuses[n]}, nil
	}
}

func TestWatch_StopsAtTerminal(t *testing.T) {
	t.Parallel()

	for _, terminal := range []model.Status{model.StatusComplete, model.StatusError} {
		var calls atomic.Int32
		var seen []model.Status

		got, err := Watch(context.Background(), "d1",
			sequence(&calls, model.StatusPending, model.StatusExtracting, model.StatusStoring, terminal),
			fastPolicy(),
			func(u Update) { seen = append(seen, u.Status.Status) },
		)

		require.NoError(t, err)
		assert.Equal(t, terminal, got.Status)
		assert.Equal(t, int32(4), calls.Load())
		assert.Equal(t, []model.Status{model.StatusPending, model.StatusExtracting, model.StatusStoring, terminal}, seen)

		time.Sleep(10 * time.Millisecond)
		assert.Equal(t, int32(4), calls.Load(), "no fetch after terminal state")
	}
}

func TestWatch_AlreadyTerminalFetchesOnce(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	_, err := Watch(context.Background(), "d1", sequence(&calls, model.StatusComplete), fastPolicy(), nil)

	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestWatch_RetriesThenSucceeds(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	fetch := func(_ context.Context, id string) (*model.DealStatus, error) {
		if calls.Add(1) < 3 {
			return nil, errors.New("not ready")
		}
		return &model.DealStatus{DealID: id, Status: model.StatusComplete}, nil
	}

	got, err := Watch(context.Background(), "d1", fetch, fastPolicy(), nil)

	require.NoError(t, err)
	assert.Equal(t, model.StatusComplete, got.Status)
	assert.Equal(t, int32(3), calls.Load())
}

func TestWatch_ErrorAfterRetries(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	fetch := func(context.Context, string) (*model.DealStatus, error) {
		calls.Add(1)
		return nil, errors.New("boom")
	}

	var updates []Update
	_, err := Watch(context.Background(), "d1", fetch, fastPolicy(), func(u Update) { updates = append(updates, u) })

	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, int32(3), calls.Load())
	require.Len(t, updates, 1)
	assert.Error(t, updates[0].Err)
}

func TestWatch_EmptyID(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	_, err := Watch(context.Background(), "", sequence(&calls, model.StatusPending), fastPolicy(), nil)

	assert.ErrorIs(t, err, ErrNoDeal)
	assert.Zero(t, calls.Load())
}

func TestWatch_OneShot(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	p := fastPolicy()
	p.OneShot = true

	got, err := Watch(context.Background(), "d1", sequence(&calls, model.StatusPending), p, nil)

	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, got.Status)
	assert.Equal(t, int32(1), calls.Load())
}

func TestWatch_ContextCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	fetch := func(_ context.Context, id string) (*model.DealStatus, error) {
		if calls.Add(1) == 2 {
			cancel()
		}
		return &model.DealStatus{DealID: id, Status: model.StatusExtracting}, nil
	}

	got, err := Watch(ctx, "d1", fetch, fastPolicy(), nil)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, model.StatusExtracting, got.Status)
	assert.Equal(t, int32(2), calls.Load())
}

func TestSubscription_StopLeavesNoTimers(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	var mu sync.Mutex
	var updates int

	sub := Start(context.Background(), "d1", sequence(&calls, model.StatusExtracting), fastPolicy(), func(Update) {
		mu.Lock()
		updates++
		mu.Unlock()
	})

	require.Eventually(t, func() bool { return calls.Load() >= 2 }, time.Second, time.Millisecond)
	sub.Stop()
	sub.Stop()

	select {
	case <-sub.Done():
	default:
		t.Fatal("subscription still running after Stop")
	}

	stopped := calls.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, stopped, calls.Load())

	last, err := sub.Result()
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, model.StatusExtracting, last.Status)
}

func TestSubscription_CompletesOnItsOwn(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	sub := Start(context.Background(), "d1", sequence(&calls, model.StatusStoring, model.StatusComplete), fastPolicy(), nil)

	select {
	case <-sub.Done():
	case <-time.After(time.Second):
		t.Fatal("subscription did not finish")
	}
	last, err := sub.Result()
	require.NoError(t, err)
	assert.Equal(t, model.StatusComplete, last.Status)
	sub.Stop()
}

func TestSteps(t *testing.T) {
	t.Parallel()

	states := func(s model.DealStatus) []StepState {
		var out []StepState
		for _, st := range Steps(s) {
			out = append(out, st.State)
		}
		return out
	}

	tests := []struct {
		name   string
		status model.DealStatus
		want   []StepState
	}{
		{
			name:   "complete",
			status: model.DealStatus{Status: model.StatusComplete, CurrentStep: "parsing"},
			want:   []StepState{StepComplete, StepComplete, StepComplete, StepComplete},
		},
		{
			name:   "error",
			status: model.DealStatus{Status: model.StatusError, CurrentStep: "storing"},
			want:   []StepState{StepPending, StepPending, StepPending, StepPending},
		},
		{
			name:   "answering via question label",
			status: model.DealStatus{Status: model.StatusExtracting, CurrentStep: "Answering question 12 of 40"},
			want:   []StepState{StepComplete, StepComplete, StepCurrent, StepPending},
		},
		{
			name:   "unknown label while extracting",
			status: model.DealStatus{Status: model.StatusExtracting, CurrentStep: "warming up"},
			want:   []StepState{StepCurrent, StepPending, StepPending, StepPending},
		},
		{
			name:   "unknown label while pending",
			status: model.DealStatus{Status: model.StatusPending},
			want:   []StepState{StepPending, StepPending, StepPending, StepPending},
		},
		{
			name:   "storing",
			status: model.DealStatus{Status: model.StatusStoring, CurrentStep: "Storing results"},
			want:   []StepState{StepComplete, StepComplete, StepComplete, StepCurrent},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, states(tt.status))
		})
	}

	assert.Equal(t, "PDF Parsed", Steps(model.DealStatus{})[0].Label)
}

func TestPolicies_RetryThreeTimesAfterFirstFetch(t *testing.T) {
	t.Parallel()

	for _, p := range []Policy{Aggressive(), Conservative(), OneShot()} {
		assert.Equal(t, 4, p.Retry.MaxAttempts)
		assert.Equal(t, time.Second, p.Retry.InitialBackoff)
	}

	p := Aggressive()
	p.Retry.InitialBackoff = time.Millisecond
	p.Retry.OnRetry = func(int, error) {}

	var calls atomic.Int32
	got, err := Watch(context.Background(), "d1", func(context.Context, string) (*model.DealStatus, error) {
		if calls.Add(1) <= 3 {
			return nil, errors.New("status not ready")
		}
		return &model.DealStatus{Status: model.StatusComplete}, nil
	}, p, nil)

	require.NoError(t, err)
	assert.Equal(t, model.StatusComplete, got.Status)
	assert.Equal(t, int32(4), calls.Load())
}
