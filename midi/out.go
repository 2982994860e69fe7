package midi

import (
	"fmt"
	"strings"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register MIDI driver

	"go-gurdy/debug"
)

// Out is the standard MIDI backend, sending over one rtmidi output port.
type Out struct {
	portName string
	send     func(gomidi.Message) error
}

// OpenOut connects to the first MIDI output port whose name contains
// portName (case-insensitive). An empty portName takes the first port.
func OpenOut(portName string) (*Out, error) {
	outs, err := scanOutPorts()
	if err != nil {
		return nil, err
	}
	if len(outs) == 0 {
		return nil, fmt.Errorf("midi: no output ports available")
	}

	var port drivers.Out
	for _, p := range outs {
		if portName == "" || containsCI(p.String(), portName) {
			port = p
			break
		}
	}
	if port == nil {
		return nil, fmt.Errorf("midi: no output port matching %q", portName)
	}

	send, err := gomidi.SendTo(port)
	if err != nil {
		return nil, fmt.Errorf("midi: open %q: %w", port.String(), err)
	}
	debug.Log("midi", "output connected: %s", port.String())
	return &Out{portName: port.String(), send: send}, nil
}

// scanOutPorts enumerates output ports with a timeout (CoreMIDI can hang).
func scanOutPorts() ([]drivers.Out, error) {
	ch := make(chan []drivers.Out, 1)
	go func() {
		ch <- gomidi.GetOutPorts()
	}()
	select {
	case outs := <-ch:
		return outs, nil
	case <-time.After(3 * time.Second):
		return nil, fmt.Errorf("midi: port scan timed out")
	}
}

// PortName returns the connected output port's name.
func (o *Out) PortName() string { return o.portName }

func (o *Out) NoteOn(channel, note, velocity uint8) {
	o.emit(gomidi.NoteOn(channel-1, note, velocity))
}

func (o *Out) NoteOff(channel, note, velocity uint8) {
	o.emit(gomidi.NoteOffVelocity(channel-1, note, velocity))
}

func (o *Out) ControlChange(channel, controller, value uint8) {
	o.emit(gomidi.ControlChange(channel-1, controller, value))
}

func (o *Out) ProgramChange(channel, program uint8) {
	o.emit(gomidi.ProgramChange(channel-1, program))
}

func (o *Out) PitchBend(channel uint8, value int) {
	// gomidi takes the signed offset from center
	o.emit(gomidi.Pitchbend(channel-1, int16(value-8192)))
}

func (o *Out) emit(msg gomidi.Message) {
	if err := o.send(msg); err != nil {
		debug.Log("midi", "send failed: %v", err)
	}
}

func (o *Out) Close() error {
	gomidi.CloseDriver()
	return nil
}

func containsCI(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
