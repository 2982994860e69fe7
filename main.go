package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"go-gurdy/config"
	"go-gurdy/debug"
	"go-gurdy/engine"
	"go-gurdy/midi"
	"go-gurdy/sensors"
	"go-gurdy/theme"
	"go-gurdy/tui"
)

func main() {
	debugFlag := flag.Bool("debug", false, "enable debug logging to ~/.config/go-gurdy/debug.log")
	sensorPort := flag.String("sensor", "", "sensor serial port (overrides config)")
	midiPort := flag.String("midi", "", "MIDI output port name (overrides config)")
	flag.Parse()

	if *debugFlag {
		if err := debug.Enable(); err != nil {
			fmt.Printf("debug log: %v\n", err)
		}
		defer debug.Disable()
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("config: %v\n", err)
		os.Exit(1)
	}
	if *sensorPort != "" {
		cfg.SensorPort = *sensorPort
	}
	if *midiPort != "" {
		cfg.MIDIPort = *midiPort
	}

	// Sound backend
	sink, err := openSink(cfg)
	if err != nil {
		fmt.Printf("output: %v\n", err)
		os.Exit(1)
	}
	defer sink.Close()

	// Sensor link to the instrument
	link, err := sensors.Open(cfg.SensorPort, cfg.SensorBaud)
	if err != nil {
		fmt.Printf("sensors: %v\n", err)
		os.Exit(1)
	}
	defer link.Close()

	eng := engine.New(cfg, sink, link.Samples())

	// Display: the engine reports snapshots, the TUI renders them
	states := make(chan tui.StateMsg, 1)
	send := func(snap engine.Snapshot, playing bool) {
		msg := tui.StateMsg{Snap: snap, Playing: playing}
		select {
		case states <- msg:
		default:
			// Drop the stale frame; a newer one is on the way.
			select {
			case <-states:
			default:
			}
			select {
			case states <- msg:
			default:
			}
		}
	}
	eng.SetReporters(
		func(snap engine.Snapshot) { send(snap, true) },
		func(snap engine.Snapshot) { send(snap, false) },
	)

	// The model takes its initial snapshot here, so the control loop may
	// only start once it is built.
	th := theme.New(theme.Default())
	m := tui.NewModel(eng, th, cfg.Keybox.NumKeys, states)
	p := tea.NewProgram(m, tea.WithAltScreen())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go link.Run(ctx)
	go eng.Run(ctx)

	if _, err := p.Run(); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	// Stop the control loop and wait for its final all-sound-off. The
	// loop is the sole writer of voice state and sole caller of the
	// sink, so the ports must stay open and untouched until it exits.
	cancel()
	<-eng.Done()
}

// openSink picks the configured sound backend.
func openSink(cfg *config.Config) (midi.Sink, error) {
	if cfg.Output == config.OutputTrigger {
		return midi.OpenTrigger(cfg.TriggerPort, cfg.TriggerBaud)
	}
	return midi.OpenOut(cfg.MIDIPort)
}
