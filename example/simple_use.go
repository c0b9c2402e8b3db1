package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/leandrodaf/pianosync/internal/ingest"
	"github.com/leandrodaf/pianosync/internal/logger"
	"github.com/leandrodaf/pianosync/sdk/bridge"
	"github.com/leandrodaf/pianosync/sdk/contracts"
	"github.com/leandrodaf/pianosync/sdk/midi"
)

func main() {
	log := logger.NewConsoleLogger()

	client, err := midi.NewMIDIClient(
		contracts.WithLogger(log),
		contracts.WithLogLevel(contracts.DebugLevel),
		contracts.WithMIDIEventFilter(contracts.MIDIEventFilter{
			Commands: []contracts.MIDICommand{contracts.NoteOn, contracts.NoteOff, contracts.ControlChange},
		}),
	)
	if err != nil {
		log.Error("Failed to initialize MIDI client", log.Field().Error("error", err))
		return
	}

	b, err := bridge.New(
		contracts.WithClient(client),
		contracts.WithBridgeLogger(log),
		contracts.WithSelector(ingest.FixedSelector(0)),
		contracts.WithDevicePoll(2*time.Second),
	)
	if err != nil {
		log.Error("Failed to create bridge", log.Field().Error("error", err))
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("Streaming snapshots on ws://%s and raw events on ws://%s. Press Ctrl+C to exit.\n",
		bridge.DefaultDecodedAddr, bridge.DefaultRawAddr)
	if err := b.Run(ctx); err != nil {
		log.Error("Bridge stopped", log.Field().Error("error", err))
	}
}
