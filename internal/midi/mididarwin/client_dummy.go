//go:build !darwin
// +build !darwin

package mididarwin

import (
	"fmt"

	"github.com/leandrodaf/pianosync/sdk/contracts"
)

var errUnavailable = fmt.Errorf("%w: CoreMIDI is only available on macOS", contracts.ErrUnsupportedOS)

// DummyMIDIClient stands in for the CoreMIDI client on other systems.
type DummyMIDIClient struct {
	logger contracts.Logger
}

func NewMIDIClient(options *contracts.ClientOptions) (contracts.ClientMIDI, error) {
	options.Logger.Info("Using dummy MIDI client for non-macOS system")
	return &DummyMIDIClient{logger: options.Logger}, nil
}

func (m *DummyMIDIClient) ListDevices() ([]contracts.DeviceInfo, error) {
	m.logger.Warn("ListDevices called on dummy MIDI client")
	return nil, errUnavailable
}

func (m *DummyMIDIClient) SelectDevice(int) error {
	return errUnavailable
}

func (m *DummyMIDIClient) StartCapture(chan<- contracts.MIDI) error {
	return errUnavailable
}

func (m *DummyMIDIClient) Failures() <-chan error { return nil }

func (m *DummyMIDIClient) Stop() error { return nil }
