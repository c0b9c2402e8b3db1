package midi

import (
	"github.com/leandrodaf/pianosync/sdk/contracts"
)

// NewMIDIClient creates a device client for the current platform, with
// defaults applied for every option left unset.
func NewMIDIClient(opts ...contracts.Option) (contracts.ClientMIDI, error) {
	options, err := applyDefaultOptions(opts...)
	if err != nil {
		return nil, err
	}

	return NewClient(&options)
}
