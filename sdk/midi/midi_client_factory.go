package midi

import (
	"fmt"
	"runtime"

	"github.com/leandrodaf/pianosync/internal/midi/mididarwin"
	"github.com/leandrodaf/pianosync/internal/midi/midirtmidi"
	"github.com/leandrodaf/pianosync/internal/midi/midiwindows"
	"github.com/leandrodaf/pianosync/sdk/contracts"
)

// clientInitializers maps OS names to corresponding MIDI client initializers.
var clientInitializers = map[string]func(*contracts.ClientOptions) (contracts.ClientMIDI, error){
	"darwin":  mididarwin.NewMIDIClient,  // macOS (Darwin) CoreMIDI client.
	"windows": midiwindows.NewMIDIClient, // Windows winmm client.
	"linux":   midirtmidi.NewMIDIClient,  // Linux ALSA/JACK through rtmidi.
}

// NewClient initializes a MIDI client based on the current operating system.
// It returns contracts.ErrUnsupportedOS if no backend exists for it.
func NewClient(opts *contracts.ClientOptions) (contracts.ClientMIDI, error) {
	if initializer, exists := clientInitializers[runtime.GOOS]; exists {
		return initializer(opts)
	}
	return nil, fmt.Errorf("%w: %s", contracts.ErrUnsupportedOS, runtime.GOOS)
}
