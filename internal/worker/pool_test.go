package worker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests exercise queue bookkeeping only — Start() is never called, so
// no task is ever dispatched to a real *orchestrator.Orchestrator.

func TestNewPoolReportsSize(t *testing.T) {
	p := NewPool(3, 10, nil)
	assert.Equal(t, 3, p.WorkerCount())
	assert.Equal(t, 0, p.QueueSize())
}

func TestSubmitFillsQueue(t *testing.T) {
	p := NewPool(1, 2, nil)

	require.NoError(t, p.Submit(Task{JobID: "job-1", Kind: KindPipeline}))
	require.NoError(t, p.Submit(Task{JobID: "job-2", Kind: KindRegeneration}))
	assert.Equal(t, 2, p.QueueSize())
}

// TestSubmitNonBlockingWhenFull verifies Submit never blocks the caller —
// once the buffered channel is full it returns an error immediately instead
// of stalling an HTTP handler goroutine.
func TestSubmitNonBlockingWhenFull(t *testing.T) {
	p := NewPool(1, 1, nil)

	require.NoError(t, p.Submit(Task{JobID: "job-1", Kind: KindPipeline}))
	err := p.Submit(Task{JobID: "job-2", Kind: KindPipeline})
	assert.Error(t, err)
}
