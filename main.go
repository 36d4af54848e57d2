package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"gitlab.com/gomidi/midi/v2"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"musmus/lib/config"
	"musmus/lib/transmitter"
)

func main() {
	configPath := flag.String("config", "", "TOML config file")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [-config file] [input port]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	name := cfg.MIDI.Port
	if flag.NArg() > 0 {
		name = flag.Arg(0)
	}

	defer midi.CloseDriver()

	port, err := transmitter.FindInPort(name)
	if err != nil {
		fmt.Println("Available MIDI input ports:")
		for _, p := range midi.GetInPorts() {
			fmt.Printf("  %s\n", p)
		}
		fmt.Fprintf(os.Stderr, "\nError: %v\n", err)
		os.Exit(1)
	}

	dec := transmitter.NewDecoder(cfg.Transmitter())

	fmt.Printf("Listening on: %s (channel %d, X cc %d, Y cc %d, snapshot cc %d)\n",
		port, cfg.MIDI.Channel, cfg.MIDI.ControlX, cfg.MIDI.ControlY, cfg.MIDI.ControlSnap)

	stop, err := midi.ListenTo(port, func(msg midi.Message, timestampms int32) {
		if event := dec.Decode(msg); event != nil {
			fmt.Printf("%8dms  %s\n", timestampms, event)
		}
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listening: %v\n", err)
		os.Exit(1)
	}
	defer stop()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	fmt.Println()
}
