// Package ingest owns the device connection and publishes every state change
// into the shared cells.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/leandrodaf/pianosync/internal/cell"
	"github.com/leandrodaf/pianosync/internal/logger"
	"github.com/leandrodaf/pianosync/internal/protocol"
	"github.com/leandrodaf/pianosync/internal/state"
	"github.com/leandrodaf/pianosync/sdk/contracts"
)

const (
	DefaultDevicePoll    = 10 * time.Second
	DefaultCaptureBuffer = 1024
)

// Config wires a Loop to its collaborators.
type Config struct {
	Client     contracts.ClientMIDI
	Selector   contracts.PortSelector
	Logger     contracts.Logger
	Decoded    *cell.Cell
	Raw        *cell.Cell
	DevicePoll time.Duration
	Buffer     int
}

// Loop moves events from the device into the decoded and raw cells. It is
// the only writer of both cells.
type Loop struct {
	client   contracts.ClientMIDI
	selector contracts.PortSelector
	logger   contracts.Logger
	decoded  *cell.Cell
	raw      *cell.Cell
	poll     time.Duration
	buffer   int

	table *state.Table
}

// New creates a Loop with defaults filled in for zero durations and sizes.
func New(cfg Config) *Loop {
	if cfg.DevicePoll <= 0 {
		cfg.DevicePoll = DefaultDevicePoll
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = DefaultCaptureBuffer
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewZapLogger()
	}
	return &Loop{
		client:   cfg.Client,
		selector: cfg.Selector,
		logger:   cfg.Logger,
		decoded:  cfg.Decoded,
		raw:      cfg.Raw,
		poll:     cfg.DevicePoll,
		buffer:   cfg.Buffer,
		table:    state.NewTable(),
	}
}

// Run waits for a device, connects to it and streams its events until ctx is
// cancelled or the device fails. Only device absence is retried.
func (l *Loop) Run(ctx context.Context) error {
	ports, err := l.waitForDevice(ctx)
	if err != nil {
		return err
	}
	if ports == nil {
		return nil // cancelled while waiting
	}

	idx, err := l.selectPort(ports)
	if err != nil {
		return err
	}

	l.logger.Info("Opening connection", l.logger.Field().String("port", ports[idx].Name))
	if err := l.client.SelectDevice(idx); err != nil {
		return fmt.Errorf("connecting to %q: %w", ports[idx].Name, err)
	}
	defer func() {
		if err := l.client.Stop(); err != nil {
			l.logger.Warn("Failed to stop MIDI client", l.logger.Field().Error("error", err))
		}
	}()

	events := make(chan contracts.MIDI, l.buffer)
	if err := l.client.StartCapture(events); err != nil {
		return fmt.Errorf("starting capture on %q: %w", ports[idx].Name, err)
	}
	l.logger.Info("Connection open, reading input", l.logger.Field().String("port", ports[idx].Name))

	return l.stream(ctx, events)
}

func (l *Loop) waitForDevice(ctx context.Context) ([]contracts.DeviceInfo, error) {
	for {
		ports, err := l.client.ListDevices()
		switch {
		case err == nil && len(ports) > 0:
			return ports, nil
		case err != nil && !errors.Is(err, contracts.ErrNoMIDIDevices):
			return nil, fmt.Errorf("listing MIDI ports: %w", err)
		}

		l.logger.Warn("No MIDI input port found, retrying",
			l.logger.Field().String("retry_in", l.poll.String()))

		t := time.NewTimer(l.poll)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, nil
		case <-t.C:
		}
	}
}

func (l *Loop) selectPort(ports []contracts.DeviceInfo) (int, error) {
	switch len(ports) {
	case 0:
		return 0, contracts.ErrNoMIDIDevices
	case 1:
		l.logger.Info("Choosing the only available input port", l.logger.Field().String("port", ports[0].Name))
		return 0, nil
	}
	if l.selector == nil {
		return 0, fmt.Errorf("%w: %d ports and no selector", contracts.ErrInvalidPortSelection, len(ports))
	}
	idx, err := l.selector.SelectPort(ports)
	if err != nil {
		return 0, err
	}
	if idx < 0 || idx >= len(ports) {
		return 0, fmt.Errorf("%w: index %d of %d", contracts.ErrInvalidPortSelection, idx, len(ports))
	}
	return idx, nil
}

func (l *Loop) stream(ctx context.Context, events <-chan contracts.MIDI) error {
	failures := l.client.Failures()
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-failures:
			return fmt.Errorf("MIDI device failed: %w", err)
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			l.handle(ev.Data)
		}
	}
}

// handle decodes one event, applies it to the table and publishes the
// resulting frame.
func (l *Loop) handle(data []byte) {
	if len(data) <= 1 {
		return
	}
	ch, recognized := l.table.Apply(protocol.Decode(data))
	if recognized {
		l.decoded.Publish(l.table.Serialize(ch))
		return
	}
	l.raw.Publish(protocol.HexDump(data))
}
