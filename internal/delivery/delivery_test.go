package delivery

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/leandrodaf/pianosync/internal/cell"
	"github.com/leandrodaf/pianosync/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeSender struct {
	mu     sync.Mutex
	frames []string
	calls  int
	fail   func(call int) bool
	closed bool
}

func (f *fakeSender) Send(frame string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail != nil && f.fail(f.calls) {
		return errors.New("broken pipe")
	}
	f.frames = append(f.frames, frame)
	return nil
}

func (f *fakeSender) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeSender) snapshot() ([]string, int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.frames...), f.calls, f.closed
}

func testConfig() (Config, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return Config{Interval: time.Millisecond, Logger: logger.NewFromCore(core)}, logs
}

func TestNoChangeNoSend(t *testing.T) {
	c := cell.New("decoded")
	c.Publish("frame")
	s := &fakeSender{}
	cfg, _ := testConfig()
	l := New(c, s, "peer", cfg)

	for i := 0; i < 50; i++ {
		require.False(t, l.poll())
	}
	frames, calls, _ := s.snapshot()
	assert.Equal(t, []string{"frame"}, frames)
	assert.Equal(t, 1, calls)
}

func TestNothingPublishedNothingSent(t *testing.T) {
	s := &fakeSender{}
	cfg, _ := testConfig()
	l := New(cell.New("raw"), s, "peer", cfg)
	for i := 0; i < 20; i++ {
		l.poll()
	}
	_, calls, _ := s.snapshot()
	assert.Zero(t, calls)
}

func TestSendsOnChangeAndSkipsIntermediate(t *testing.T) {
	c := cell.New("decoded")
	s := &fakeSender{}
	cfg, _ := testConfig()
	l := New(c, s, "peer", cfg)

	c.Publish("a")
	l.poll()
	c.Publish("b")
	c.Publish("c")
	l.poll()
	l.poll()
	c.Publish("a")
	l.poll()

	frames, _, _ := s.snapshot()
	assert.Equal(t, []string{"a", "c", "a"}, frames)
	assert.Equal(t, 3, l.Session().Sent())
}

func TestFailureCounterResetsOnSuccess(t *testing.T) {
	c := cell.New("decoded")
	c.Publish("a")
	s := &fakeSender{fail: func(call int) bool { return call <= 9 }}
	cfg, _ := testConfig()
	l := New(c, s, "peer", cfg)

	for i := 0; i < 9; i++ {
		require.False(t, l.poll())
	}
	assert.Equal(t, 9, l.Session().Failures())
	require.False(t, l.poll())
	assert.Equal(t, 0, l.Session().Failures())
	frames, calls, _ := s.snapshot()
	assert.Equal(t, []string{"a"}, frames)
	assert.Equal(t, 10, calls)
}

func TestEvictedAfterTenFailures(t *testing.T) {
	c := cell.New("decoded")
	c.Publish("a")
	s := &fakeSender{fail: func(int) bool { return true }}
	cfg, logs := testConfig()
	l := New(c, s, "10.0.0.7:5123", cfg)

	err := l.Run(context.Background())
	assert.ErrorIs(t, err, ErrEvicted)
	_, calls, closed := s.snapshot()
	assert.Equal(t, DefaultThreshold, calls)
	assert.True(t, closed)

	evicted := logs.FilterMessage("Subscriber evicted").All()
	require.Len(t, evicted, 1)
	assert.Equal(t, "10.0.0.7:5123", evicted[0].ContextMap()["peer"])
}

func TestRunStopsOnCancel(t *testing.T) {
	c := cell.New("decoded")
	s := &fakeSender{}
	cfg, _ := testConfig()
	l := New(c, s, "peer", cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	c.Publish("x")
	require.Eventually(t, func() bool {
		frames, _, _ := s.snapshot()
		return len(frames) == 1
	}, time.Second, time.Millisecond)

	time.Sleep(20 * time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	frames, calls, closed := s.snapshot()
	assert.Equal(t, []string{"x"}, frames)
	assert.Equal(t, 1, calls)
	assert.True(t, closed)
}
