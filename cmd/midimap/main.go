package main

import (
	"flag"
	"fmt"
	"os"

	"gitlab.com/gomidi/midi/v2"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"musmus/lib/config"
	"musmus/lib/transmitter"
)

func main() {
	configPath := flag.String("config", "", "TOML config file")
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

	if err := run(name, cfg.Transmitter()); err != nil {
		fmt.Fprintf(os.Stderr, "\nError: %v\n", err)
		os.Exit(1)
	}
}

func run(name string, cfg transmitter.Config) error {
	defer midi.CloseDriver()

	tx, err := transmitter.Open(name, cfg)
	if err != nil {
		fmt.Println("Available MIDI output ports:")
		for _, p := range midi.GetOutPorts() {
			fmt.Printf("  %s\n", p)
		}
		return err
	}
	defer tx.Stop()

	fmt.Printf("Sending on: %s, channel %d\n", name, cfg.Channel)
	return tx.MidiMapping(os.Stdin, os.Stdout)
}
