//go:build !windows
// +build !windows

package midiwindows

import (
	"fmt"

	"github.com/leandrodaf/pianosync/sdk/contracts"
)

var errUnavailable = fmt.Errorf("%w: winmm is only available on Windows", contracts.ErrUnsupportedOS)

type dummyMIDIClient struct {
	logger contracts.Logger
}

// NewMIDIClient initializes a dummy MIDI client for non-Windows systems.
func NewMIDIClient(options *contracts.ClientOptions) (contracts.ClientMIDI, error) {
	options.Logger.Info("Using dummy MIDI client for non-Windows system")
	return &dummyMIDIClient{logger: options.Logger}, nil
}

// ListDevices reports that MIDI functionality is unavailable on this platform.
func (m *dummyMIDIClient) ListDevices() ([]contracts.DeviceInfo, error) {
	m.logger.Warn("ListDevices called on dummy MIDI client")
	return nil, errUnavailable
}

func (m *dummyMIDIClient) SelectDevice(int) error {
	return errUnavailable
}

func (m *dummyMIDIClient) StartCapture(chan<- contracts.MIDI) error {
	return errUnavailable
}

func (m *dummyMIDIClient) Failures() <-chan error { return nil }

func (m *dummyMIDIClient) Stop() error { return nil }
