// Package bridge streams the key and pedal state of a MIDI keyboard to
// WebSocket subscribers.
//
// One endpoint serves the decoded per-channel snapshot, a second one serves
// a hex dump of every event the snapshot cannot represent.
package bridge

import (
	"context"
	"net"
	"sync"

	"github.com/leandrodaf/pianosync/internal/cell"
	"github.com/leandrodaf/pianosync/internal/delivery"
	"github.com/leandrodaf/pianosync/internal/ingest"
	"github.com/leandrodaf/pianosync/internal/transport"
	"github.com/leandrodaf/pianosync/sdk/contracts"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// Bridge ties the ingestion loop to the two subscriber endpoints.
type Bridge struct {
	opts    contracts.BridgeOptions
	logger  contracts.Logger
	decoded *cell.Cell
	raw     *cell.Cell
	ingest  *ingest.Loop

	decodedEP *transport.Endpoint
	rawEP     *transport.Endpoint

	mu           sync.Mutex
	decodedLn    net.Listener
	rawLn        net.Listener
	ingestionErr error
}

// New creates a bridge. A device client must be supplied with
// contracts.WithClient.
func New(opts ...contracts.BridgeOption) (*Bridge, error) {
	options, err := applyDefaultOptions(opts...)
	if err != nil {
		return nil, err
	}

	b := &Bridge{
		opts:    options,
		logger:  options.Logger,
		decoded: cell.New("decoded"),
		raw:     cell.New("raw"),
	}
	b.ingest = ingest.New(ingest.Config{
		Client:     options.Client,
		Selector:   options.Selector,
		Logger:     options.Logger,
		Decoded:    b.decoded,
		Raw:        b.raw,
		DevicePoll: options.DevicePoll,
		Buffer:     options.CaptureBuffer,
	})
	epCfg := transport.Config{
		Logger: options.Logger,
		Delivery: delivery.Config{
			Interval:  options.DeliveryPoll,
			Threshold: options.FailureThreshold,
			Logger:    options.Logger,
		},
		WriteTimeout: options.WriteTimeout,
	}
	b.decodedEP = transport.NewEndpoint(b.decoded.Name(), options.DecodedAddr, b.decoded, epCfg)
	b.rawEP = transport.NewEndpoint(b.raw.Name(), options.RawAddr, b.raw, epCfg)
	return b, nil
}

// Listen binds both endpoints. Run calls it when it was not called before.
func (b *Bridge) Listen() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.decodedLn != nil {
		return nil
	}

	decodedLn, err := net.Listen("tcp", b.opts.DecodedAddr)
	if err != nil {
		return err
	}
	rawLn, err := net.Listen("tcp", b.opts.RawAddr)
	if err != nil {
		return multierr.Append(err, decodedLn.Close())
	}
	b.decodedLn, b.rawLn = decodedLn, rawLn
	return nil
}

// DecodedAddr returns the bound address of the decoded endpoint, or nil
// before Listen.
func (b *Bridge) DecodedAddr() net.Addr {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.decodedLn == nil {
		return nil
	}
	return b.decodedLn.Addr()
}

// RawAddr returns the bound address of the raw endpoint, or nil before Listen.
func (b *Bridge) RawAddr() net.Addr {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.rawLn == nil {
		return nil
	}
	return b.rawLn.Addr()
}

// Subscribers reports the connected subscribers per view.
func (b *Bridge) Subscribers() (decoded, raw int) {
	return b.decodedEP.Active(), b.rawEP.Active()
}

// IngestionErr returns the error that stopped the ingestion loop, if any.
func (b *Bridge) IngestionErr() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ingestionErr
}

// Run serves both endpoints and ingests device events until ctx is
// cancelled. An ingestion failure is logged and leaves the endpoints
// serving the last published frames.
func (b *Bridge) Run(ctx context.Context) error {
	if err := b.Listen(); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return b.decodedEP.Serve(ctx, b.decodedLn)
	})
	g.Go(func() error {
		return b.rawEP.Serve(ctx, b.rawLn)
	})
	g.Go(func() error {
		if err := b.ingest.Run(ctx); err != nil {
			b.mu.Lock()
			b.ingestionErr = err
			b.mu.Unlock()
			b.logger.Error("MIDI ingestion stopped", b.logger.Field().Error("error", err))
		}
		return nil
	})
	return g.Wait()
}
