package main

import (
	"context"
	"fmt"
	"os"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"go-gurdy/sensors"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}

	switch os.Args[1] {
	case "midi":
		listMIDIPorts()
	case "serial":
		listSerialPorts()
	case "watch":
		watchSensors()
	default:
		usage()
	}
}

func usage() {
	fmt.Println("gurdytest - hardware bring-up checks")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  midi           - list MIDI output ports")
	fmt.Println("  serial         - list serial devices")
	fmt.Println("  watch <port>   - dump decoded sensor frames")
}

func listMIDIPorts() {
	fmt.Println("=== MIDI Output Ports ===")
	fmt.Println("(waiting up to 3 seconds...)")

	ch := make(chan []drivers.Out, 1)
	go func() {
		ch <- gomidi.GetOutPorts()
	}()

	select {
	case outs := <-ch:
		for i, p := range outs {
			fmt.Printf("  %d: %s\n", i, p.String())
		}
		if len(outs) == 0 {
			fmt.Println("  (none)")
		}
	case <-time.After(3 * time.Second):
		fmt.Println("\nTIMEOUT! MIDI subsystem is hung.")
	}
	gomidi.CloseDriver()
}

func listSerialPorts() {
	fmt.Println("=== Serial Devices ===")
	ports, err := sensors.ListPorts()
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	for i, p := range ports {
		fmt.Printf("  %d: %s\n", i, p)
	}
	if len(ports) == 0 {
		fmt.Println("  (none)")
	}
}

func watchSensors() {
	if len(os.Args) < 3 {
		fmt.Println("usage: gurdytest watch <port>")
		return
	}
	port := os.Args[2]

	link, err := sensors.Open(port, 115200)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	defer link.Close()

	fmt.Printf("Watching %s - crank the instrument. Ctrl+C to exit.\n", port)

	go link.Run(context.Background())

	for s := range link.Samples() {
		fmt.Printf("keys=%06x btn=%02x crank=%4d edge=%6dus knob=%4d pedal=%4d\n",
			s.KeyMask, s.Buttons, s.CrankRaw, s.EdgeInterval, s.BuzzKnob, s.Pedal)
	}
}
