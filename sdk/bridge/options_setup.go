package bridge

import (
	"errors"

	"github.com/leandrodaf/pianosync/internal/delivery"
	"github.com/leandrodaf/pianosync/internal/ingest"
	"github.com/leandrodaf/pianosync/internal/logger"
	"github.com/leandrodaf/pianosync/internal/transport"
	"github.com/leandrodaf/pianosync/sdk/contracts"
)

// Default listen addresses for the two views.
const (
	DefaultDecodedAddr = "127.0.0.1:3012"
	DefaultRawAddr     = "127.0.0.1:3013"
)

// ErrNoClient is returned by New when no device client was supplied.
var ErrNoClient = errors.New("bridge: a MIDI device client is required")

// applyDefaultOptions sets default values for BridgeOptions if not explicitly provided.
func applyDefaultOptions(opts ...contracts.BridgeOption) (contracts.BridgeOptions, error) {
	options := &contracts.BridgeOptions{}
	for _, opt := range opts {
		opt(options)
	}

	if options.Client == nil {
		return contracts.BridgeOptions{}, ErrNoClient
	}
	if options.Logger == nil {
		options.Logger = logger.NewZapLogger()
	}
	if options.DecodedAddr == "" {
		options.DecodedAddr = DefaultDecodedAddr
	}
	if options.RawAddr == "" {
		options.RawAddr = DefaultRawAddr
	}
	if options.DevicePoll <= 0 {
		options.DevicePoll = ingest.DefaultDevicePoll
	}
	if options.DeliveryPoll <= 0 {
		options.DeliveryPoll = delivery.DefaultInterval
	}
	if options.FailureThreshold <= 0 {
		options.FailureThreshold = delivery.DefaultThreshold
	}
	if options.WriteTimeout <= 0 {
		options.WriteTimeout = transport.DefaultWriteTimeout
	}
	if options.CaptureBuffer <= 0 {
		options.CaptureBuffer = ingest.DefaultCaptureBuffer
	}
	return *options, nil
}
