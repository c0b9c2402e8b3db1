// Package midirtmidi captures MIDI input through rtmidi (ALSA/JACK on Linux).
package midirtmidi

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/leandrodaf/pianosync/sdk/contracts"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register rtmidi driver
)

// ClientMid manages rtmidi input ports.
type ClientMid struct {
	logger          contracts.Logger
	midiEventFilter *contracts.MIDIEventFilter
	eventChannel    atomic.Value // chan<- contracts.MIDI
	failures        chan error

	mu       sync.Mutex
	in       drivers.In
	stopFn   func()
	stopOnce sync.Once
}

// NewMIDIClient creates an rtmidi backed client.
func NewMIDIClient(options *contracts.ClientOptions) (contracts.ClientMIDI, error) {
	options.Logger.Info("MIDI client created for rtmidi")
	return &ClientMid{
		logger:          options.Logger,
		midiEventFilter: options.MIDIEventFilter,
		failures:        make(chan error, 1),
	}, nil
}

// ListDevices lists the available MIDI input ports.
func (m *ClientMid) ListDevices() ([]contracts.DeviceInfo, error) {
	ins := midi.GetInPorts()
	if len(ins) == 0 {
		return nil, contracts.ErrNoMIDIDevices
	}
	devices := make([]contracts.DeviceInfo, len(ins))
	for i, in := range ins {
		devices[i] = contracts.DeviceInfo{Name: in.String(), EntityName: in.String()}
	}
	return devices, nil
}

// SelectDevice opens the input port with the given index.
func (m *ClientMid) SelectDevice(deviceID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ins := midi.GetInPorts()
	if deviceID < 0 || deviceID >= len(ins) {
		return contracts.ErrInvalidMIDIDevice
	}
	if m.in != nil {
		m.closePort()
	}

	in := ins[deviceID]
	if err := in.Open(); err != nil {
		return fmt.Errorf("%w: %v", contracts.ErrMIDIConnectionError, err)
	}
	m.in = in
	m.logger.Info("MIDI device selected",
		m.logger.Field().Int("deviceID", deviceID),
		m.logger.Field().String("deviceName", in.String()))
	return nil
}

// StartCapture starts forwarding events from the selected port.
func (m *ClientMid) StartCapture(eventChannel chan<- contracts.MIDI) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.in == nil {
		return contracts.ErrNoDeviceSelected
	}
	if m.stopFn != nil {
		m.logger.Warn("Capture already started")
		return nil
	}
	m.eventChannel.Store(eventChannel)

	stop, err := midi.ListenTo(m.in, m.handleMessage, midi.UseSysEx(), midi.HandleError(m.handleError))
	if err != nil {
		return fmt.Errorf("%w: %v", contracts.ErrCreateInputPort, err)
	}
	m.stopFn = stop
	m.logger.Info("MIDI capture started")
	return nil
}

// Failures reports listener errors raised by the driver.
func (m *ClientMid) Failures() <-chan error {
	return m.failures
}

func (m *ClientMid) handleMessage(msg midi.Message, _ int32) {
	if len(msg) == 0 || !m.midiEventFilter.Allows(msg[0]) {
		return
	}
	ch, _ := m.eventChannel.Load().(chan<- contracts.MIDI)
	if ch == nil {
		return
	}
	event := contracts.MIDI{
		Timestamp: uint64(time.Now().UTC().UnixNano()),
		Data:      append([]byte(nil), msg...),
	}
	select {
	case ch <- event:
	default:
		m.logger.Warn("MIDI event channel is full; event discarded")
	}
}

func (m *ClientMid) handleError(err error) {
	select {
	case m.failures <- err:
	default:
	}
}

// Stop terminates capture, closes the port and the driver.
func (m *ClientMid) Stop() error {
	m.stopOnce.Do(func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.closePort()
		midi.CloseDriver()
		m.logger.Info("MIDI capture stopped")
	})
	return nil
}

func (m *ClientMid) closePort() {
	if m.stopFn != nil {
		m.stopFn()
		m.stopFn = nil
	}
	if m.in != nil {
		if err := m.in.Close(); err != nil {
			m.logger.Warn("Failed to close MIDI port", m.logger.Field().Error("error", err))
		}
		m.in = nil
	}
	m.eventChannel.Store((chan<- contracts.MIDI)(nil))
}
