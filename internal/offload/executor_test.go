package offload

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"nl2code/internal/config"
	"nl2code/internal/telemetry"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type captureSink struct {
	mu     sync.Mutex
	events []telemetry.Event
}

func (s *captureSink) Emit(ev telemetry.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *captureSink) reasons() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, ev := range s.events {
		if ev.Name == telemetry.EventOffloadFallback {
			out = append(out, ev.Fields["reason"].(string))
		}
	}
	return out
}

func testConfig() config.OffloadConfig {
	cfg := config.Default().Offload
	cfg.MaxWorkers = 2
	cfg.TaskTimeout = "100ms"
	cfg.JobSizeCap = 1000
	return cfg
}

func TestExecuteOnPool(t *testing.T) {
	sink := &captureSink{}
	e := New(testConfig(), sink)
	defer e.Close()

	e.Register(KindParse, func(_ context.Context, payload string) (any, error) {
		return strings.ToUpper(payload), nil
	})

	got, err := e.Execute(context.Background(), Task{Kind: KindParse, Payload: "abc"})
	require.NoError(t, err)
	assert.Equal(t, "ABC", got)
	assert.Empty(t, sink.reasons(), "successful pool run must not emit fallbacks")

	stats := e.Stats()
	assert.Equal(t, 1, stats.Submitted)
	assert.Equal(t, 1, stats.Completed)
	assert.Zero(t, stats.LocalRuns)
}

func TestExecuteUnregisteredKind(t *testing.T) {
	e := New(testConfig(), nil)
	defer e.Close()

	_, err := e.Execute(context.Background(), Task{Kind: KindValidate, Payload: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no handler registered")
}

func TestOversizedPayloadRunsLocally(t *testing.T) {
	sink := &captureSink{}
	e := New(testConfig(), sink)
	defer e.Close()

	e.Register(KindParse, func(_ context.Context, payload string) (any, error) {
		return len(payload), nil
	})

	big := strings.Repeat("x", 2000)
	got, err := e.Execute(context.Background(), Task{Kind: KindParse, Payload: big})
	require.NoError(t, err)
	assert.Equal(t, 2000, got)

	require.Equal(t, []string{"job_too_large"}, sink.reasons())
	stats := e.Stats()
	assert.Zero(t, stats.Submitted, "oversized payload must never reach the pool")
	assert.Equal(t, 1, stats.LocalRuns)
	assert.Equal(t, 1, stats.Oversized)
}

func TestTimeoutFallsBackOnceAndEmitsOneEvent(t *testing.T) {
	sink := &captureSink{}
	e := New(testConfig(), sink)
	defer e.Close()

	var calls atomic.Int32
	release := make(chan struct{})
	e.Register(KindValidate, func(_ context.Context, _ string) (any, error) {
		if calls.Add(1) == 1 {
			<-release // first (pool) run hangs past the timeout
			return "slow", nil
		}
		return "local", nil
	})

	start := time.Now()
	got, err := e.Execute(context.Background(), Task{Kind: KindValidate, Payload: "p"})
	elapsed := time.Since(start)
	close(release)

	require.NoError(t, err)
	assert.Equal(t, "local", got, "fallback must return the local run's result")
	assert.Equal(t, []string{"timeout"}, sink.reasons(), "exactly one timeout event")
	assert.Less(t, elapsed, 2*time.Second, "caller must not block past timeout plus one retry")

	stats := e.Stats()
	assert.Equal(t, 1, stats.Timeouts)
	assert.Equal(t, 1, stats.LocalRuns)
}

func TestClosedPoolFallsBackBrokenPool(t *testing.T) {
	sink := &captureSink{}
	e := New(testConfig(), sink)
	e.Register(KindParse, func(_ context.Context, payload string) (any, error) {
		return payload, nil
	})
	e.Close()

	got, err := e.Execute(context.Background(), Task{Kind: KindParse, Payload: "after-close"})
	require.NoError(t, err)
	assert.Equal(t, "after-close", got)
	assert.Equal(t, []string{"broken_pool"}, sink.reasons())
	assert.Equal(t, 1, e.Stats().BrokenPool)
}

func TestHandlerErrorPropagates(t *testing.T) {
	e := New(testConfig(), nil)
	defer e.Close()

	want := errors.New("bad payload")
	e.Register(KindParse, func(_ context.Context, _ string) (any, error) {
		return nil, want
	})

	_, err := e.Execute(context.Background(), Task{Kind: KindParse, Payload: "x"})
	assert.ErrorIs(t, err, want)
}

func TestHandlerPanicBecomesError(t *testing.T) {
	e := New(testConfig(), nil)
	defer e.Close()

	e.Register(KindParse, func(_ context.Context, _ string) (any, error) {
		panic("boom")
	})

	_, err := e.Execute(context.Background(), Task{Kind: KindParse, Payload: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")
}

func TestConcurrentExecutes(t *testing.T) {
	e := New(testConfig(), nil)
	defer e.Close()

	e.Register(KindParse, func(_ context.Context, payload string) (any, error) {
		return payload, nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := e.Execute(context.Background(), Task{Kind: KindParse, Payload: "p"})
			assert.NoError(t, err)
			assert.Equal(t, "p", got)
		}()
	}
	wg.Wait()
	assert.Equal(t, 20, e.Stats().Completed)
}

func TestCancelledContext(t *testing.T) {
	e := New(testConfig(), nil)
	defer e.Close()

	e.Register(KindParse, func(ctx context.Context, payload string) (any, error) {
		return payload, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Execute(ctx, Task{Kind: KindParse, Payload: "x"})
	if err != nil {
		assert.ErrorIs(t, err, context.Canceled)
	}
}
