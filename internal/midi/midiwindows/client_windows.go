//go:build windows
// +build windows

package midiwindows

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/leandrodaf/pianosync/internal/protocol"
	"github.com/leandrodaf/pianosync/sdk/contracts"
	"golang.org/x/sys/windows"
)

// HMIDIIN is a winmm MIDI input handle.
type HMIDIIN windows.Handle

// Constants for callback flags
const (
	CALLBACK_FUNCTION = 0x00030000 // Indicates that the callback is a function
	MIDI_IO_STATUS    = 0x00000020 // MIDI input/output status
)

// Constants for MIDI message types
const (
	MIM_OPEN      = 0x3C1 // MIDI device opened
	MIM_CLOSE     = 0x3C2 // MIDI device closed
	MIM_DATA      = 0x3C3 // MIDI data received
	MIM_ERROR     = 0x3C5 // Invalid MIDI message received
	MIM_LONGERROR = 0x3C6 // Invalid SysEx received
	MIM_MOREDATA  = 0x3CC // More MIDI data available
)

var errDeviceClosed = errors.New("MIDI device closed by driver")

// Struct representing MIDI device capabilities
type midiInCaps struct {
	wMid           uint16
	wPid           uint16
	vDriverVersion uint32
	szPname        [32]uint16
	dwSupport      uint32
}

// ClientMid manages MIDI input on Windows.
type ClientMid struct {
	logger          contracts.Logger
	eventChannel    atomic.Value // chan<- contracts.MIDI
	capturing       atomic.Bool
	failures        chan error
	handle          HMIDIIN
	portConn        bool
	mu              sync.Mutex
	callback        uintptr
	midiEventFilter *contracts.MIDIEventFilter
}

// Load the winmm.dll library and required functions
var (
	winmm                = windows.NewLazySystemDLL("winmm.dll")
	procMidiInGetNumDevs = winmm.NewProc("midiInGetNumDevs")
	procMidiInGetDevCaps = winmm.NewProc("midiInGetDevCapsW")
	procMidiInOpen       = winmm.NewProc("midiInOpen")
	procMidiInStart      = winmm.NewProc("midiInStart")
	procMidiInStop       = winmm.NewProc("midiInStop")
	procMidiInClose      = winmm.NewProc("midiInClose")
)

// NewMIDIClient creates a MIDI client for Windows
func NewMIDIClient(options *contracts.ClientOptions) (contracts.ClientMIDI, error) {
	options.Logger.Info("MIDI client created for Windows")

	return &ClientMid{
		logger:          options.Logger,
		midiEventFilter: options.MIDIEventFilter,
		failures:        make(chan error, 1),
	}, nil
}

// ListDevices lists the available MIDI input devices
func (m *ClientMid) ListDevices() ([]contracts.DeviceInfo, error) {
	r0, _, _ := procMidiInGetNumDevs.Call()
	numDevices := uint32(r0)
	if numDevices == 0 {
		return nil, contracts.ErrNoMIDIDevices
	}

	devices := make([]contracts.DeviceInfo, numDevices)
	for i := uint32(0); i < numDevices; i++ {
		var caps midiInCaps
		r1, _, _ := procMidiInGetDevCaps.Call(
			uintptr(i),
			uintptr(unsafe.Pointer(&caps)),
			unsafe.Sizeof(caps),
		)
		if r1 != 0 {
			m.logger.Warn("Failed to get information for MIDI device", m.logger.Field().Int("deviceID", int(i)))
			continue
		}
		deviceName := windows.UTF16ToString(caps.szPname[:])
		devices[i] = contracts.DeviceInfo{
			Name:         deviceName,
			EntityName:   deviceName,
			Manufacturer: fmt.Sprintf("MID: %d PID: %d", caps.wMid, caps.wPid),
		}
	}
	return devices, nil
}

// SelectDevice opens a MIDI input device
func (m *ClientMid) SelectDevice(deviceID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.portConn {
		if err := m.stopCapture(); err != nil {
			return fmt.Errorf("failed to stop previous MIDI capture: %w", err)
		}
	}

	m.callback = windows.NewCallback(midiInCallback)
	fdwOpen := CALLBACK_FUNCTION | MIDI_IO_STATUS

	r1, _, err := procMidiInOpen.Call(
		uintptr(unsafe.Pointer(&m.handle)),
		uintptr(deviceID),
		m.callback,
		uintptr(unsafe.Pointer(m)),
		uintptr(fdwOpen),
	)
	if r1 != 0 {
		return fmt.Errorf("%w: device %d: %v", contracts.ErrMIDIConnectionError, deviceID, err)
	}

	m.portConn = true
	m.logger.Info("MIDI device connected", m.logger.Field().Int("deviceID", deviceID))
	return nil
}

// StartCapture starts delivering input into eventChannel
func (m *ClientMid) StartCapture(eventChannel chan<- contracts.MIDI) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.portConn || m.handle == 0 {
		return contracts.ErrNoDeviceSelected
	}
	if m.capturing.Load() {
		m.logger.Warn("Capture already started")
		return nil
	}

	m.eventChannel.Store(eventChannel)
	r1, _, err := procMidiInStart.Call(uintptr(m.handle))
	if r1 != 0 {
		return fmt.Errorf("failed to start MIDI capture: %v", err)
	}
	m.capturing.Store(true)
	m.logger.Info("MIDI capture started")
	return nil
}

// Failures reports the device being closed underneath a running capture.
func (m *ClientMid) Failures() <-chan error {
	return m.failures
}

// midiInCallback runs on the winmm thread for every input notification
func midiInCallback(hMidiIn uintptr, wMsg uint32, dwInstance uintptr, dwParam1 uintptr, dwParam2 uintptr) uintptr {
	m := (*ClientMid)(unsafe.Pointer(dwInstance))

	switch wMsg {
	case MIM_OPEN:
		m.logger.Debug("MIDI device opened")
	case MIM_CLOSE:
		if m.capturing.Load() {
			select {
			case m.failures <- errDeviceClosed:
			default:
			}
		}
	case MIM_DATA, MIM_MOREDATA:
		status := byte(dwParam1 & 0xFF)
		n := protocol.MessageLength(status)
		if n == 0 || !m.midiEventFilter.Allows(status) {
			return 0
		}
		packed := [3]byte{status, byte((dwParam1 >> 8) & 0xFF), byte((dwParam1 >> 16) & 0xFF)}
		event := contracts.MIDI{
			Timestamp: uint64(time.Now().UTC().UnixNano()),
			Data:      append([]byte(nil), packed[:n]...),
		}

		if ch, ok := m.eventChannel.Load().(chan<- contracts.MIDI); ok && ch != nil {
			select {
			case ch <- event:
			default:
				m.logger.Warn("MIDI event channel is full; event discarded")
			}
		}
	case MIM_ERROR, MIM_LONGERROR:
		m.logger.Debug("Invalid MIDI input ignored", m.logger.Field().Uint64("msg", uint64(wMsg)))
	default:
		m.logger.Warn("Unknown MIDI message", m.logger.Field().Uint64("msg", uint64(wMsg)))
	}

	return 0
}

// Stop terminates MIDI event capture and closes the device
func (m *ClientMid) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.portConn {
		return nil
	}
	if err := m.stopCapture(); err != nil {
		return fmt.Errorf("failed to stop MIDI capture: %w", err)
	}
	m.logger.Info("MIDI capture stopped and device closed")
	return nil
}

// stopCapture stops the capture and releases the handle
func (m *ClientMid) stopCapture() error {
	if m.handle == 0 {
		return fmt.Errorf("invalid MIDI device handle")
	}
	m.capturing.Store(false)

	r1, _, err := procMidiInStop.Call(uintptr(m.handle))
	if r1 != 0 {
		return err
	}
	r1, _, err = procMidiInClose.Call(uintptr(m.handle))
	if r1 != 0 {
		return err
	}

	m.portConn = false
	m.handle = 0
	m.eventChannel.Store((chan<- contracts.MIDI)(nil))
	return nil
}
