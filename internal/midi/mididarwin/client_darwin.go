//go:build darwin
// +build darwin

package mididarwin

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/leandrodaf/pianosync/internal/protocol"
	"github.com/leandrodaf/pianosync/sdk/contracts"
	"github.com/youpy/go-coremidi"
)

// internalPortConnection is an interface for handling disconnection from a MIDI port.
type internalPortConnection interface {
	Disconnect()
}

// ClientMid manages MIDI input on Darwin (macOS) systems.
type ClientMid struct {
	logger          contracts.Logger
	eventChannel    atomic.Value               // chan<- contracts.MIDI, swapped on start and stop.
	client          coremidi.Client            // CoreMIDI client instance.
	inputPort       coremidi.InputPort         // Input port receiving packets.
	portConn        internalPortConnection     // Connection from the input port to the source.
	midiEventFilter *contracts.MIDIEventFilter // Filter for specific MIDI events.
	failures        chan error                 // CoreMIDI reports no asynchronous failures; stays silent.
	mu              sync.Mutex
	capturing       bool
	wg              sync.WaitGroup // In-flight packet callbacks.
	stopOnce        sync.Once
}

// NewMIDIClient initializes a new ClientMid for handling MIDI events on macOS.
func NewMIDIClient(options *contracts.ClientOptions) (contracts.ClientMIDI, error) {
	client, err := coremidi.NewClient(options.CoreMIDIConfig.ClientName)
	if err != nil {
		return nil, err
	}
	options.Logger.Info("MIDI client successfully created")

	return &ClientMid{
		logger:          options.Logger,
		client:          client,
		midiEventFilter: options.MIDIEventFilter,
		failures:        make(chan error),
	}, nil
}

// ListDevices retrieves the available MIDI sources.
func (m *ClientMid) ListDevices() ([]contracts.DeviceInfo, error) {
	sources, err := coremidi.AllSources()
	if err != nil {
		return nil, fmt.Errorf("error listing MIDI sources: %w", err)
	}
	if len(sources) == 0 {
		return nil, contracts.ErrNoMIDIDevices
	}

	devices := make([]contracts.DeviceInfo, len(sources))
	for i, source := range sources {
		sourceEntity := source.Entity()
		devices[i] = contracts.DeviceInfo{
			Name:         source.Name(),
			EntityName:   sourceEntity.Name(),
			Manufacturer: sourceEntity.Manufacturer(),
		}
	}
	return devices, nil
}

// SelectDevice selects a MIDI source by index and connects to it.
// If a source is already connected, it disconnects first.
func (m *ClientMid) SelectDevice(deviceID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sources, err := coremidi.AllSources()
	if err != nil {
		return fmt.Errorf("error retrieving MIDI sources: %w", err)
	}
	if deviceID < 0 || deviceID >= len(sources) {
		return contracts.ErrInvalidMIDIDevice
	}

	if m.portConn != nil {
		m.portConn.Disconnect()
		m.portConn = nil
	}

	source := sources[deviceID]
	m.logger.Info("MIDI device selected",
		m.logger.Field().Int("deviceID", deviceID),
		m.logger.Field().String("deviceName", source.Name()))

	m.inputPort, err = coremidi.NewInputPort(m.client, "Input Port", m.handleMIDIMessage)
	if err != nil {
		return fmt.Errorf("%w: %v", contracts.ErrCreateInputPort, err)
	}

	m.portConn, err = m.inputPort.Connect(source)
	if err != nil {
		return fmt.Errorf("%w: %v", contracts.ErrMIDIConnectionError, err)
	}
	return nil
}

// handleMIDIMessage splits a packet into messages and forwards the ones the
// filter allows. It runs on the CoreMIDI thread and never blocks.
func (m *ClientMid) handleMIDIMessage(source coremidi.Source, packet coremidi.Packet) {
	m.wg.Add(1)
	defer m.wg.Done()

	eventChannel, _ := m.eventChannel.Load().(chan<- contracts.MIDI)
	if eventChannel == nil {
		return
	}
	if len(packet.Data) == 0 {
		m.logger.Warn(contracts.ErrIncompleteMIDIPacket.Error())
		return
	}

	now := uint64(time.Now().UTC().UnixNano())
	for _, msg := range protocol.Split(packet.Data) {
		if !m.midiEventFilter.Allows(msg[0]) {
			continue
		}
		event := contracts.MIDI{Timestamp: now, Data: append([]byte(nil), msg...)}
		select {
		case eventChannel <- event:
		default:
			m.logger.Warn("Event buffer full; dropping MIDI event")
		}
	}
}

// StartCapture begins forwarding events into eventChannel.
func (m *ClientMid) StartCapture(eventChannel chan<- contracts.MIDI) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.portConn == nil {
		return contracts.ErrNoDeviceSelected
	}
	if m.capturing {
		m.logger.Warn("Capture already started")
		return nil
	}

	m.logger.Info("Starting MIDI event capture")
	m.eventChannel.Store(eventChannel)
	m.capturing = true
	return nil
}

// Failures never fires on CoreMIDI.
func (m *ClientMid) Failures() <-chan error {
	return m.failures
}

// Stop halts capture, disconnects from the source and waits for in-flight
// callbacks. Only the first call has any effect.
func (m *ClientMid) Stop() error {
	m.stopOnce.Do(func() {
		m.mu.Lock()
		defer m.mu.Unlock()

		if m.portConn != nil {
			m.portConn.Disconnect()
			m.portConn = nil
		}
		m.eventChannel.Store((chan<- contracts.MIDI)(nil))
		m.capturing = false
		m.wg.Wait()
		m.logger.Info("MIDI capture stopped")
	})
	return nil
}
