package contracts

import "errors"

// Errors shared by every device backend.
var (
	ErrNoMIDIDevices        = errors.New("no MIDI devices found")
	ErrInvalidMIDIDevice    = errors.New("invalid MIDI device")
	ErrMIDIConnectionError  = errors.New("error connecting to MIDI device")
	ErrCreateInputPort      = errors.New("error creating input port")
	ErrIncompleteMIDIPacket = errors.New("incomplete MIDI packet")
	ErrUnsupportedOS        = errors.New("unsupported operating system")
	ErrInvalidPortSelection = errors.New("invalid input port selected")
	ErrNoDeviceSelected     = errors.New("no MIDI device selected")
)

// MIDI is one raw event as delivered by the device driver.
type MIDI struct {
	Timestamp uint64 // Timestamp indicates the time the event was received, in Unix nanoseconds.
	Data      []byte // Data holds the status byte followed by its data bytes.
}

// ClientMIDI defines an interface for MIDI device operations.
type ClientMIDI interface {
	Stop() error                                 // Stops the MIDI client and releases resources.
	ListDevices() ([]DeviceInfo, error)          // Lists all available MIDI input ports.
	SelectDevice(deviceID int) error             // Connects to the input port with the given index.
	StartCapture(eventChannel chan<- MIDI) error // Starts forwarding events into eventChannel.
	Failures() <-chan error                      // Reports unrecoverable device errors after capture started.
}
