package ratelimiter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiter_WaitGrantsToken(t *testing.T) {
	l := New(Config{InitialRPS: 1000, Burst: 10})
	require.NoError(t, l.Wait(context.Background()))
}

func TestLimiter_ReportAdaptsRate(t *testing.T) {
	l := New(Config{InitialRPS: 10, MinRPS: 1, MaxRPS: 20, LatencyTargetMS: 100})
	before := l.CurrentRPS()

	l.Report(10 * time.Millisecond)
	assert.Greater(t, l.CurrentRPS(), before)

	afterUp := l.CurrentRPS()
	l.Report(500 * time.Millisecond)
	assert.Less(t, l.CurrentRPS(), afterUp)
}

func TestLimiter_RespectsBounds(t *testing.T) {
	l := New(Config{InitialRPS: 19.5, MinRPS: 1, MaxRPS: 20, LatencyTargetMS: 100})
	for i := 0; i < 20; i++ {
		l.Report(0)
	}
	assert.LessOrEqual(t, l.CurrentRPS(), 20.0)
}
