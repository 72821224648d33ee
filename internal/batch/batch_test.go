package batch

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"nl2code/internal/config"
	"nl2code/internal/model"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

func testProcessor(t *testing.T, opts Options) *Processor {
	t.Helper()
	cfg := config.Default()
	cfg.Model.Provider = "none"
	cfg.Offload.MaxWorkers = 1
	p := New(cfg, &model.Mock{}, nil, opts)
	t.Cleanup(p.Close)
	return p
}

func TestRunTranslatesAll(t *testing.T) {
	p := testProcessor(t, Options{Size: 2})

	var reqs []Request
	for i := 0; i < 6; i++ {
		reqs = append(reqs, Request{
			ID:    fmt.Sprintf("job-%d", i),
			Input: fmt.Sprintf("compute value number %d please\ndef helper_%d(): pass", i, i),
		})
	}

	out, err := p.Run(context.Background(), reqs)
	require.NoError(t, err)
	require.Len(t, out, len(reqs))

	for i, resp := range out {
		assert.Equal(t, reqs[i].ID, resp.ID, "responses must keep input order")
		require.NotNil(t, resp.Result)
		assert.True(t, resp.Result.Success, "job %s errors: %v", resp.ID, resp.Result.Errors)
		assert.Contains(t, resp.Result.Code, fmt.Sprintf("compute_value_number_%d", i))
	}
}

func TestRunEmptyBatch(t *testing.T) {
	p := testProcessor(t, Options{Size: 1})
	out, err := p.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestRunReleasesInstancesAcrossBatches(t *testing.T) {
	p := testProcessor(t, Options{Size: 1, AcquireTimeout: time.Second})

	for round := 0; round < 3; round++ {
		out, err := p.Run(context.Background(), []Request{
			{ID: "only", Input: "def f(): pass"},
		})
		require.NoError(t, err, "round %d: pool instance was not released", round)
		require.Len(t, out, 1)
	}
}

func TestRunCancelledContext(t *testing.T) {
	p := testProcessor(t, Options{Size: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Run(ctx, []Request{{ID: "a", Input: "def f(): pass"}})
	// Either the acquire or the translation observes the cancellation;
	// both are acceptable as long as Run returns promptly.
	if err != nil {
		assert.ErrorIs(t, err, context.Canceled)
	}
}
