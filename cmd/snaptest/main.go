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
	"musmus/lib/snappad"
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

	pad, err := snappad.Open()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer pad.Close()

	fmt.Printf("Connected to: %s (%s)\n", pad.Name(), pad.Model().Name)

	defer midi.CloseDriver()

	var tx *transmitter.Transmitter
	if cfg.MIDI.Port != "" {
		tx, err = transmitter.Open(cfg.MIDI.Port, cfg.Transmitter())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer tx.Stop()
		fmt.Printf("Sending snapshots on: %s\n", cfg.MIDI.Port)
	}

	pad.SetBrightness(80)

	count := min(cfg.Pad.Snapshots, pad.Snapshots())
	pad.ShowSnapshots(count, 0)

	keys := make(chan int, 64)
	go func() {
		if err := pad.ReadSelections(keys); err != nil {
			fmt.Fprintf(os.Stderr, "Read error: %v\n", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case idx := <-keys:
			if idx > count {
				continue
			}
			pad.ShowSnapshots(count, idx)
			fmt.Printf("Snapshot %d\n", idx)
			if tx != nil {
				if err := tx.SetSnap(idx); err != nil {
					fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				}
			}
		case <-sig:
			fmt.Println()
			return
		}
	}
}
