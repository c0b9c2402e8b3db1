// Command pianosync streams the keys and pedals held on a MIDI keyboard to
// WebSocket subscribers.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	flag "github.com/spf13/pflag"

	"github.com/leandrodaf/pianosync/internal/ingest"
	"github.com/leandrodaf/pianosync/internal/logger"
	"github.com/leandrodaf/pianosync/sdk/bridge"
	"github.com/leandrodaf/pianosync/sdk/contracts"
	"github.com/leandrodaf/pianosync/sdk/midi"
)

var (
	decodedAddr = flag.String("addr", bridge.DefaultDecodedAddr, "listen address streaming decoded key snapshots")
	rawAddr     = flag.String("raw-addr", bridge.DefaultRawAddr, "listen address streaming raw events the snapshot cannot show")
	port        = flag.IntP("port", "p", -1, "index of the MIDI input port; prompts when several exist and this is unset")
	logLevel    = flag.String("log-level", "info", "one of debug, info, warn, error")
	logFile     = flag.String("log-file", "", "write logs to this file instead of stderr")
)

func main() {
	flag.Parse()

	log := logger.NewConsoleLogger()
	level, ok := contracts.ParseLogLevel(*logLevel)
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown log level %q\n", *logLevel)
		os.Exit(2)
	}

	client, err := midi.NewMIDIClient(
		contracts.WithLogger(log),
		contracts.WithLogLevel(level),
		contracts.WithLogFile(*logFile),
	)
	if err != nil {
		log.Fatal("Failed to initialize MIDI client", log.Field().Error("error", err))
	}

	var selector contracts.PortSelector = ingest.PromptSelector{In: os.Stdin, Out: os.Stdout}
	if *port >= 0 {
		selector = ingest.FixedSelector(*port)
	}

	b, err := bridge.New(
		contracts.WithClient(client),
		contracts.WithBridgeLogger(log),
		contracts.WithSelector(selector),
		contracts.WithAddrs(*decodedAddr, *rawAddr),
	)
	if err != nil {
		log.Fatal("Failed to create bridge", log.Field().Error("error", err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := b.Run(ctx); err != nil {
		log.Fatal("Bridge stopped", log.Field().Error("error", err))
	}
}
