package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	flag "github.com/spf13/pflag"

	"github.com/nixxel-company-limited/escpos-mqtt-bridge/adapter"
	"github.com/nixxel-company-limited/escpos-mqtt-bridge/bridge"
	"github.com/nixxel-company-limited/escpos-mqtt-bridge/bus"
	"github.com/nixxel-company-limited/escpos-mqtt-bridge/config"
	"github.com/nixxel-company-limited/escpos-mqtt-bridge/notify"
	"github.com/nixxel-company-limited/escpos-mqtt-bridge/protocol"
)

func main() {
	debug := flag.BoolP("debug", "d", false, "enable debug logging")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s [--debug] <config.toml>\n", os.Args[0])
		os.Exit(2)
	}

	level := zerolog.InfoLevel
	if *debug {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()

	cfg, err := config.Load(flag.Arg(0))
	if err != nil {
		log.Fatal().Err(err).Msg("configuration error")
	}

	var dev adapter.Channel
	if cfg.UseUSB() {
		usb := adapter.NewUSBChannel(cfg.USBVendorID, cfg.USBProductID)
		log.Info().Str("device", usb.Path()).Msg("using raw USB transport")
		dev = usb
	} else {
		file := adapter.NewFileChannel(cfg.Printer)
		log.Info().Str("device", file.Path()).Msg("using character device transport")
		dev = file
	}

	prober := protocol.NewProber(dev, log.With().Str("component", "prober").Logger())

	client := bus.New(bus.Config{
		Hostname: cfg.Hostname,
		Port:     cfg.Port,
		Username: cfg.Username,
		Password: cfg.Password,
		ClientID: cfg.ClientID,
		Topics:   bus.NewTopics(cfg.Prefix),
	}, log.With().Str("component", "bus").Logger())

	notifier := notify.NewSystemd(log)

	br := bridge.New(client, prober, dev, notifier,
		bridge.Config{PollInterval: cfg.StatusCheckInterval},
		log.With().Str("component", "bridge").Logger())

	// Inbound messages decode on the bus client's goroutine and land in
	// the bridge's queue.
	client.OnPrintJob(br.HandlePrintMessage)

	notifier.Ready()

	// Run connects on its first iteration and only ever returns the
	// broker's refusal of our credentials.
	if err := br.Run(); err != nil {
		log.Fatal().Err(err).Msg("bridge terminated")
	}
}
