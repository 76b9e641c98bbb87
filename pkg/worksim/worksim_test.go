package worksim

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSuspend_WaitsForDuration(t *testing.T) {
	start := time.Now()
	err := Suspend(context.Background(), 20*time.Millisecond)

	assert.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestSuspend_ReturnsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := Suspend(ctx, time.Minute)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestBlock_IgnoresContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := Block(ctx, 10*time.Millisecond)

	assert.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
}

func TestNone(t *testing.T) {
	assert.NoError(t, None(context.Background(), time.Hour))
}
