package midi

import (
	"encoding/binary"
	"fmt"
	"io"

	"go.bug.st/serial"

	"go-gurdy/debug"
)

// TriggerOut drives a polyphonic WAV-trigger board over a serial line
// instead of a MIDI synth. Each (channel, note) pair maps to one audio
// track on the board's SD card:
//
//	track = note + 128*(channel-1)
//
// so channel 1 owns tracks 0-127, channel 2 tracks 128-255, and so on.
// Gains are on the board's -70..+10 dB scale, derived from the MIDI
// velocity the same way the voices derive their trigger gain.
type TriggerOut struct {
	w      io.Writer
	closer io.Closer
}

// Trigger board message framing and control codes.
const (
	triggerSOM1 = 0xF0
	triggerSOM2 = 0xAA
	triggerEOM  = 0x55

	cmdTrackControl = 0x03
	cmdStopAll      = 0x04
	cmdTrackGain    = 0x08
	cmdTrackFade    = 0x0A

	trackCodePlayPoly = 0x01
	trackCodeLoopOn   = 0x07
	trackCodeLoopOff  = 0x08
)

// fadeMillis is how long a graceful note-off fades before stopping.
const fadeMillis = 200

// OpenTrigger opens the trigger board's serial device.
func OpenTrigger(name string, baud int) (*TriggerOut, error) {
	mode := &serial.Mode{BaudRate: baud}
	p, err := serial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("trigger: open %s: %w", name, err)
	}
	debug.Log("trigger", "board connected: %s @ %d baud", name, baud)
	return &TriggerOut{w: p, closer: p}, nil
}

// NewTriggerOut wraps an arbitrary writer. Used by tests and simulators.
func NewTriggerOut(w io.Writer) *TriggerOut {
	return &TriggerOut{w: w}
}

// TrackFor returns the board track for a channel/note pair.
func TrackFor(channel, note uint8) int {
	return int(note) + 128*(int(channel)-1)
}

// GainFor maps a MIDI velocity/volume 0-127 onto the board's dB scale:
// 0 -> -70, 127 -> +9.
func GainFor(velocity uint8) int {
	return int(float64(velocity)/128.0*80.0 - 70.0)
}

func (t *TriggerOut) NoteOn(channel, note, velocity uint8) {
	track := TrackFor(channel, note)
	t.trackGain(track, GainFor(velocity))
	t.trackControl(trackCodePlayPoly, track)
	t.trackControl(trackCodeLoopOn, track)
}

// NoteOff fades the track out rather than cutting it. Very quiet tracks
// fade straight to the floor; audible ones dip 10 dB first so the tail
// does not pump.
func (t *TriggerOut) NoteOff(channel, note, velocity uint8) {
	track := TrackFor(channel, note)
	gain := GainFor(velocity)
	if gain > -60 {
		t.trackFade(track, gain-10, fadeMillis, true)
	} else {
		t.trackFade(track, -70, fadeMillis, true)
	}
}

// ControlChange only honors All Sound Off; the board has no notion of
// expression or modulation.
func (t *TriggerOut) ControlChange(channel, controller, value uint8) {
	if controller == CCAllSoundOff {
		t.stopAll()
	}
}

// ProgramChange is a no-op: tracks are selected by note, not program.
func (t *TriggerOut) ProgramChange(channel, program uint8) {}

// PitchBend is a no-op: the board plays fixed samples.
func (t *TriggerOut) PitchBend(channel uint8, value int) {}

func (t *TriggerOut) Close() error {
	if t.closer != nil {
		return t.closer.Close()
	}
	return nil
}

// -------------------- wire helpers --------------------

func (t *TriggerOut) trackControl(code byte, track int) {
	body := make([]byte, 0, 3)
	body = append(body, code)
	body = binary.LittleEndian.AppendUint16(body, uint16(track))
	t.emit(cmdTrackControl, body)
}

func (t *TriggerOut) trackGain(track, gain int) {
	body := make([]byte, 0, 4)
	body = binary.LittleEndian.AppendUint16(body, uint16(track))
	body = binary.LittleEndian.AppendUint16(body, uint16(int16(gain)))
	t.emit(cmdTrackGain, body)
}

func (t *TriggerOut) trackFade(track, gain, millis int, stopAtEnd bool) {
	body := make([]byte, 0, 7)
	body = binary.LittleEndian.AppendUint16(body, uint16(track))
	body = binary.LittleEndian.AppendUint16(body, uint16(int16(gain)))
	body = binary.LittleEndian.AppendUint16(body, uint16(millis))
	if stopAtEnd {
		body = append(body, 1)
	} else {
		body = append(body, 0)
	}
	t.emit(cmdTrackFade, body)
}

func (t *TriggerOut) stopAll() {
	t.emit(cmdStopAll, nil)
}

// emit frames a message as [SOM1][SOM2][LEN][CMD][body...][EOM] where LEN
// counts every byte of the message including the markers.
func (t *TriggerOut) emit(cmd byte, body []byte) {
	msg := make([]byte, 0, 5+len(body))
	msg = append(msg, triggerSOM1, triggerSOM2, byte(5+len(body)), cmd)
	msg = append(msg, body...)
	msg = append(msg, triggerEOM)
	if _, err := t.w.Write(msg); err != nil {
		debug.Log("trigger", "write failed: %v", err)
	}
}
