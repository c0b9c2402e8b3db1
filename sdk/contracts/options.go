package contracts

import "time"

// MIDICommand is the high nibble of a status byte, used for event filtering.
type MIDICommand byte

const (
	// NoteOff is the MIDI command for a Note Off event (0x80).
	NoteOff MIDICommand = 0x80
	// NoteOn is the MIDI command for a Note On event (0x90).
	NoteOn MIDICommand = 0x90
	// ControlChange is the MIDI command for a Control Change event (0xB0).
	ControlChange MIDICommand = 0xB0
	// ProgramChange is the MIDI command for a Program Change event (0xC0).
	ProgramChange MIDICommand = 0xC0
)

// MIDIEventFilter allows users to specify which MIDI commands to capture.
type MIDIEventFilter struct {
	Commands []MIDICommand // List of MIDI commands to let through.
}

// Allows reports whether an event with the given status byte passes the filter.
// A nil filter allows everything.
func (f *MIDIEventFilter) Allows(status byte) bool {
	if f == nil {
		return true
	}
	command := MIDICommand(status & 0xF0)
	if status >= 0xF0 {
		command = MIDICommand(status)
	}
	for _, allowed := range f.Commands {
		if command == allowed {
			return true
		}
	}
	return false
}

// CoreMIDIConfig holds configuration for CoreMIDI.
type CoreMIDIConfig struct {
	ClientName string // Name of the MIDI client.
}

// ClientOptions defines the configuration options for the MIDI client.
type ClientOptions struct {
	Logger          Logger           // Logger for logging events and errors.
	LogLevel        LogLevel         // Level of logging to use.
	LogFilePath     string           // File path for logging if file logging is enabled.
	MIDIEventFilter *MIDIEventFilter // Optional filter for MIDI events to capture.
	CoreMIDIConfig  *CoreMIDIConfig  // Configuration specific to CoreMIDI.
}

// Option is a function that modifies ClientOptions.
type Option func(*ClientOptions)

// WithLogger sets the logger for the MIDI client.
func WithLogger(l Logger) Option {
	return func(opts *ClientOptions) {
		opts.Logger = l
	}
}

// WithLogLevel sets the logging level for the MIDI client.
func WithLogLevel(level LogLevel) Option {
	return func(opts *ClientOptions) {
		opts.LogLevel = level
	}
}

// WithLogFile sends log output to the given file.
func WithLogFile(path string) Option {
	return func(opts *ClientOptions) {
		opts.LogFilePath = path
	}
}

// WithMIDIEventFilter sets the MIDI event filter for the MIDI client.
func WithMIDIEventFilter(filter MIDIEventFilter) Option {
	return func(opts *ClientOptions) {
		opts.MIDIEventFilter = &filter
	}
}

// WithCoreMIDIConfig sets the CoreMIDI configuration for the MIDI client.
func WithCoreMIDIConfig(config CoreMIDIConfig) Option {
	return func(opts *ClientOptions) {
		opts.CoreMIDIConfig = &config
	}
}

// PortSelector resolves one port out of several candidates.
type PortSelector interface {
	SelectPort(ports []DeviceInfo) (int, error)
}

// BridgeOptions configures the device-to-network bridge.
type BridgeOptions struct {
	Logger           Logger        // Logger shared by every component.
	Client           ClientMIDI    // Device client, see sdk/midi.NewMIDIClient.
	Selector         PortSelector  // Resolves a port when several are present.
	DecodedAddr      string        // Listen address streaming decoded snapshots.
	RawAddr          string        // Listen address streaming raw fallback frames.
	DevicePoll       time.Duration // Interval between device presence checks.
	DeliveryPoll     time.Duration // Interval between shared cell polls per subscriber.
	FailureThreshold int           // Consecutive failed sends before a subscriber is evicted.
	WriteTimeout     time.Duration // Deadline for a single frame write.
	CaptureBuffer    int           // Capacity of the device event channel.
}

// BridgeOption is a function that modifies BridgeOptions.
type BridgeOption func(*BridgeOptions)

// WithBridgeLogger sets the logger for the bridge.
func WithBridgeLogger(l Logger) BridgeOption {
	return func(opts *BridgeOptions) {
		opts.Logger = l
	}
}

// WithClient uses an already constructed device client.
func WithClient(c ClientMIDI) BridgeOption {
	return func(opts *BridgeOptions) {
		opts.Client = c
	}
}

// WithSelector sets the port selector used when several ports are present.
func WithSelector(s PortSelector) BridgeOption {
	return func(opts *BridgeOptions) {
		opts.Selector = s
	}
}

// WithAddrs sets the decoded and raw listen addresses.
func WithAddrs(decoded, raw string) BridgeOption {
	return func(opts *BridgeOptions) {
		opts.DecodedAddr = decoded
		opts.RawAddr = raw
	}
}

// WithDevicePoll sets how often device presence is checked while none is found.
func WithDevicePoll(d time.Duration) BridgeOption {
	return func(opts *BridgeOptions) {
		opts.DevicePoll = d
	}
}

// WithDeliveryPoll sets how often each subscriber polls its shared cell.
func WithDeliveryPoll(d time.Duration) BridgeOption {
	return func(opts *BridgeOptions) {
		opts.DeliveryPoll = d
	}
}

// WithFailureThreshold sets the consecutive send failures that evict a subscriber.
func WithFailureThreshold(n int) BridgeOption {
	return func(opts *BridgeOptions) {
		opts.FailureThreshold = n
	}
}

// WithWriteTimeout sets the per-frame write deadline.
func WithWriteTimeout(d time.Duration) BridgeOption {
	return func(opts *BridgeOptions) {
		opts.WriteTimeout = d
	}
}

// WithCaptureBuffer sets the capacity of the device event channel.
func WithCaptureBuffer(n int) BridgeOption {
	return func(opts *BridgeOptions) {
		opts.CaptureBuffer = n
	}
}
