package bridge

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/leandrodaf/pianosync/internal/logger"
	"github.com/leandrodaf/pianosync/sdk/contracts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type keyboard struct {
	mu       sync.Mutex
	events   chan<- contracts.MIDI
	failures chan error
	started  chan struct{}
}

func newKeyboard() *keyboard {
	return &keyboard{failures: make(chan error, 1), started: make(chan struct{})}
}

func (k *keyboard) ListDevices() ([]contracts.DeviceInfo, error) {
	return []contracts.DeviceInfo{{Name: "Stage Piano"}}, nil
}

func (k *keyboard) SelectDevice(int) error { return nil }

func (k *keyboard) StartCapture(ch chan<- contracts.MIDI) error {
	k.mu.Lock()
	k.events = ch
	k.mu.Unlock()
	close(k.started)
	return nil
}

func (k *keyboard) Failures() <-chan error { return k.failures }

func (k *keyboard) Stop() error { return nil }

func (k *keyboard) play(data ...byte) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.events <- contracts.MIDI{Data: data}
}

func startBridge(t *testing.T, kb *keyboard) (*Bridge, *observer.ObservedLogs, context.CancelFunc, <-chan error) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	b, err := New(
		contracts.WithClient(kb),
		contracts.WithBridgeLogger(logger.NewFromCore(core)),
		contracts.WithAddrs("127.0.0.1:0", "127.0.0.1:0"),
		contracts.WithDeliveryPoll(time.Millisecond),
	)
	require.NoError(t, err)
	require.NoError(t, b.Listen())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	select {
	case <-kb.started:
	case <-time.After(2 * time.Second):
		t.Fatal("capture never started")
	}
	return b, logs, cancel, done
}

func dial(t *testing.T, addr string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/", nil)
	require.NoError(t, err)
	return conn
}

func read(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	return string(data)
}

func TestNewRequiresClient(t *testing.T) {
	_, err := New()
	assert.ErrorIs(t, err, ErrNoClient)
}

func TestEndToEnd(t *testing.T) {
	kb := newKeyboard()
	b, _, cancel, done := startBridge(t, kb)

	decoded := dial(t, b.DecodedAddr().String())
	defer decoded.Close()
	raw := dial(t, b.RawAddr().String())
	defer raw.Close()

	kb.play(0x90, 0x3C, 0x40)
	frame := read(t, decoded)
	require.Len(t, frame, 91)
	assert.Equal(t, byte('5'), frame[39])
	assert.Equal(t, byte('0'), frame[90])

	kb.play(0xB0, 0x40, 0x7F)
	frame = read(t, decoded)
	assert.Equal(t, byte('8'), frame[88])

	kb.play(0xC0, 0x05)
	assert.Equal(t, "c0-05", read(t, raw))

	d, r := b.Subscribers()
	assert.Equal(t, 1, d)
	assert.Equal(t, 1, r)

	cancel()
	require.NoError(t, <-done)
}

func TestLateSubscriberGetsCurrentSnapshot(t *testing.T) {
	kb := newKeyboard()
	b, _, cancel, done := startBridge(t, kb)
	defer func() {
		cancel()
		<-done
	}()

	kb.play(0x95, 0x15, 0x7F)
	require.Eventually(t, func() bool { _, ok := b.decoded.Read(); return ok }, time.Second, time.Millisecond)

	conn := dial(t, b.DecodedAddr().String())
	defer conn.Close()
	frame := read(t, conn)
	assert.Equal(t, byte('9'), frame[0])
	assert.Equal(t, byte('5'), frame[90])
}

func TestIngestionFailureKeepsServing(t *testing.T) {
	kb := newKeyboard()
	b, logs, cancel, done := startBridge(t, kb)

	kb.play(0x90, 0x3C, 0x40)
	require.Eventually(t, func() bool { _, ok := b.decoded.Read(); return ok }, time.Second, time.Millisecond)

	kb.failures <- errors.New("usb disconnected")
	require.Eventually(t, func() bool { return b.IngestionErr() != nil }, time.Second, time.Millisecond)
	assert.Equal(t, 1, logs.FilterMessage("MIDI ingestion stopped").Len())

	conn := dial(t, b.DecodedAddr().String())
	defer conn.Close()
	assert.Equal(t, byte('5'), read(t, conn)[39])

	cancel()
	require.NoError(t, <-done)
}
