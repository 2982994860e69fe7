package midi

import (
	"bytes"
	"encoding/binary"
	"testing"
)

// boardMsg is one parsed trigger-board message.
type boardMsg struct {
	cmd  byte
	body []byte
}

// parseBoard splits the raw serial stream back into messages.
func parseBoard(t *testing.T, raw []byte) []boardMsg {
	t.Helper()
	var msgs []boardMsg
	for len(raw) > 0 {
		if len(raw) < 5 || raw[0] != 0xF0 || raw[1] != 0xAA {
			t.Fatalf("malformed stream at %x", raw)
		}
		length := int(raw[2])
		if length > len(raw) || raw[length-1] != 0x55 {
			t.Fatalf("bad message length %d in %x", length, raw)
		}
		msgs = append(msgs, boardMsg{cmd: raw[3], body: raw[4 : length-1]})
		raw = raw[length:]
	}
	return msgs
}

func TestTrackFor(t *testing.T) {
	tests := []struct {
		channel, note uint8
		track         int
	}{
		{1, 0, 0},
		{1, 60, 60},
		{2, 0, 128},
		{2, 60, 188},
		{5, 127, 639},
	}
	for _, tt := range tests {
		if got := TrackFor(tt.channel, tt.note); got != tt.track {
			t.Errorf("TrackFor(%d, %d) = %d, want %d", tt.channel, tt.note, got, tt.track)
		}
	}
}

func TestGainFor(t *testing.T) {
	tests := []struct {
		velocity uint8
		gain     int
	}{
		{0, -70},
		{64, -30},
		{112, 0},
		{127, 9},
	}
	for _, tt := range tests {
		if got := GainFor(tt.velocity); got != tt.gain {
			t.Errorf("GainFor(%d) = %d, want %d", tt.velocity, got, tt.gain)
		}
	}
}

func TestNoteOnPlaysLoopedTrack(t *testing.T) {
	var buf bytes.Buffer
	out := NewTriggerOut(&buf)

	out.NoteOn(2, 60, 127)

	msgs := parseBoard(t, buf.Bytes())
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want gain + play + loop", len(msgs))
	}

	// Gain first, so the track never plays at a stale level.
	if msgs[0].cmd != cmdTrackGain {
		t.Fatalf("first message cmd = %02x, want track gain", msgs[0].cmd)
	}
	if track := binary.LittleEndian.Uint16(msgs[0].body[0:2]); track != 188 {
		t.Fatalf("gain track = %d, want 188", track)
	}
	if gain := int16(binary.LittleEndian.Uint16(msgs[0].body[2:4])); gain != 9 {
		t.Fatalf("gain = %d, want +9 dB at full velocity", gain)
	}

	if msgs[1].cmd != cmdTrackControl || msgs[1].body[0] != trackCodePlayPoly {
		t.Fatalf("second message %02x/%x, want poly play", msgs[1].cmd, msgs[1].body)
	}
	if msgs[2].cmd != cmdTrackControl || msgs[2].body[0] != trackCodeLoopOn {
		t.Fatalf("third message %02x/%x, want loop on", msgs[2].cmd, msgs[2].body)
	}
}

func TestNoteOffFadesOut(t *testing.T) {
	var buf bytes.Buffer
	out := NewTriggerOut(&buf)

	out.NoteOff(1, 60, 127)

	msgs := parseBoard(t, buf.Bytes())
	if len(msgs) != 1 || msgs[0].cmd != cmdTrackFade {
		t.Fatalf("got %+v, want a single fade", msgs)
	}
	body := msgs[0].body
	if track := binary.LittleEndian.Uint16(body[0:2]); track != 60 {
		t.Fatalf("fade track = %d, want 60", track)
	}
	// Audible tracks dip 10 dB below their playing gain.
	if gain := int16(binary.LittleEndian.Uint16(body[2:4])); gain != -1 {
		t.Fatalf("fade target = %d dB, want -1", gain)
	}
	if millis := binary.LittleEndian.Uint16(body[4:6]); millis != 200 {
		t.Fatalf("fade time = %d ms, want 200", millis)
	}
	if body[6] != 1 {
		t.Fatal("fade should stop the track at the end")
	}
}

func TestNoteOffQuietTrackFadesToFloor(t *testing.T) {
	var buf bytes.Buffer
	out := NewTriggerOut(&buf)

	out.NoteOff(1, 60, 10) // -64 dB: already near the floor

	msgs := parseBoard(t, buf.Bytes())
	if gain := int16(binary.LittleEndian.Uint16(msgs[0].body[2:4])); gain != -70 {
		t.Fatalf("fade target = %d dB, want the -70 floor", gain)
	}
}

func TestControlChangeOnlyHonorsAllSoundOff(t *testing.T) {
	var buf bytes.Buffer
	out := NewTriggerOut(&buf)

	out.ControlChange(1, CCExpression, 100)
	out.ControlChange(1, CCModulation, 16)
	out.ProgramChange(1, 24)
	out.PitchBend(1, 8192)
	if buf.Len() != 0 {
		t.Fatalf("board received %x for messages it cannot play", buf.Bytes())
	}

	out.ControlChange(1, CCAllSoundOff, 0)
	msgs := parseBoard(t, buf.Bytes())
	if len(msgs) != 1 || msgs[0].cmd != cmdStopAll {
		t.Fatalf("got %+v, want a single stop-all", msgs)
	}
	if len(msgs[0].body) != 0 {
		t.Fatal("stop-all carries no body")
	}
}
