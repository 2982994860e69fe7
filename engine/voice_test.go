package engine

import (
	"testing"

	"go-gurdy/config"
)

// fakeSink records every backend call for inspection.
type fakeSink struct {
	calls []sinkCall
}

type sinkCall struct {
	method  string
	channel uint8
	a, b    uint8
	value   int
}

func (f *fakeSink) NoteOn(ch, note, vel uint8) {
	f.calls = append(f.calls, sinkCall{method: "noteOn", channel: ch, a: note, b: vel})
}

func (f *fakeSink) NoteOff(ch, note, vel uint8) {
	f.calls = append(f.calls, sinkCall{method: "noteOff", channel: ch, a: note, b: vel})
}

func (f *fakeSink) ControlChange(ch, cc, val uint8) {
	f.calls = append(f.calls, sinkCall{method: "cc", channel: ch, a: cc, b: val})
}

func (f *fakeSink) ProgramChange(ch, prog uint8) {
	f.calls = append(f.calls, sinkCall{method: "program", channel: ch, a: prog})
}

func (f *fakeSink) PitchBend(ch uint8, value int) {
	f.calls = append(f.calls, sinkCall{method: "bend", channel: ch, value: value})
}

func (f *fakeSink) Close() error { return nil }

func (f *fakeSink) count(method string) int {
	n := 0
	for _, c := range f.calls {
		if c.method == method {
			n++
		}
	}
	return n
}

func (f *fakeSink) reset() { f.calls = nil }

func testVoice(sink *fakeSink) *Voice {
	return NewVoice(sink, config.VoiceConfig{
		Name: "Drone", Channel: 3, Note: 60, Volume: 100,
	})
}

func TestSoundOnSendsNoteAndModulation(t *testing.T) {
	sink := &fakeSink{}
	v := testVoice(sink)

	v.SoundOn(2, 16)

	if !v.Playing() {
		t.Fatal("voice should be playing after SoundOn")
	}
	if got := v.CurrentNote(); got != 62 {
		t.Fatalf("current note = %d, want 62", got)
	}
	if len(sink.calls) != 2 {
		t.Fatalf("got %d sink calls, want 2", len(sink.calls))
	}
	if c := sink.calls[0]; c.method != "noteOn" || c.channel != 3 || c.a != 62 || c.b != 100 {
		t.Fatalf("unexpected note-on: %+v", c)
	}
	if c := sink.calls[1]; c.method != "cc" || c.a != 1 || c.b != 16 {
		t.Fatalf("unexpected modulation: %+v", c)
	}
}

func TestSoundOnZeroModulationSendsNoCC(t *testing.T) {
	sink := &fakeSink{}
	v := testVoice(sink)

	v.SoundOn(0, 0)

	if sink.count("cc") != 0 {
		t.Fatal("no CC expected for zero modulation")
	}
}

func TestSoundOnMutedIsNoOp(t *testing.T) {
	sink := &fakeSink{}
	v := testVoice(sink)
	v.SetMute(true)

	v.SoundOn(0, 16)

	if v.Playing() {
		t.Fatal("muted voice must not become playing")
	}
	if len(sink.calls) != 0 {
		t.Fatalf("muted voice sent %d calls, want 0", len(sink.calls))
	}
}

func TestSoundOnWhilePlayingRestarts(t *testing.T) {
	sink := &fakeSink{}
	v := testVoice(sink)

	v.SoundOn(0, 0)
	v.SoundOn(2, 0)

	want := []string{"noteOn", "noteOff", "noteOn"}
	if len(sink.calls) != len(want) {
		t.Fatalf("got %d calls, want %d", len(sink.calls), len(want))
	}
	for i, m := range want {
		if sink.calls[i].method != m {
			t.Fatalf("call %d = %s, want %s", i, sink.calls[i].method, m)
		}
	}
	// The off releases the old note, the second on sounds the new one.
	if sink.calls[1].a != 60 || sink.calls[2].a != 62 {
		t.Fatalf("restart released %d and started %d, want 60 and 62",
			sink.calls[1].a, sink.calls[2].a)
	}
}

func TestSoundOffReleasesCurrentNote(t *testing.T) {
	sink := &fakeSink{}
	v := testVoice(sink)

	v.SoundOn(5, 0)
	sink.reset()
	v.SoundOff()

	if v.Playing() {
		t.Fatal("voice should be silent after SoundOff")
	}
	if len(sink.calls) != 1 || sink.calls[0].method != "noteOff" || sink.calls[0].a != 65 {
		t.Fatalf("unexpected calls: %+v", sink.calls)
	}
}

func TestSoundKillSendsAllSoundOff(t *testing.T) {
	sink := &fakeSink{}
	v := testVoice(sink)

	v.SoundOn(0, 0)
	sink.reset()
	v.SoundKill()

	if v.Playing() {
		t.Fatal("voice should be silent after SoundKill")
	}
	if len(sink.calls) != 1 {
		t.Fatalf("got %d calls, want 1", len(sink.calls))
	}
	if c := sink.calls[0]; c.method != "cc" || c.a != 123 || c.b != 0 {
		t.Fatalf("unexpected kill call: %+v", c)
	}
}

func TestTriggerGainMapping(t *testing.T) {
	tests := []struct {
		volume uint8
		gain   int
	}{
		{0, -70},
		{64, -30},
		{112, 0},
		{127, 9},
	}
	sink := &fakeSink{}
	v := testVoice(sink)
	for _, tt := range tests {
		v.SetVolume(tt.volume)
		if got := v.TriggerGain(); got != tt.gain {
			t.Errorf("gain(%d) = %d, want %d", tt.volume, got, tt.gain)
		}
	}
}

func TestTriggerGainMonotonic(t *testing.T) {
	sink := &fakeSink{}
	v := testVoice(sink)
	prev := -71
	for vol := 0; vol <= 127; vol++ {
		v.SetVolume(uint8(vol))
		if g := v.TriggerGain(); g < prev {
			t.Fatalf("gain(%d) = %d dropped below gain(%d) = %d", vol, g, vol-1, prev)
		} else {
			prev = g
		}
	}
}

func TestParameterSetters(t *testing.T) {
	sink := &fakeSink{}
	v := testVoice(sink)

	v.SetProgram(24)
	v.SetExpression(100)
	v.SetPitchBend(8192)
	v.SetVibrato(30)

	want := []sinkCall{
		{method: "program", channel: 3, a: 24},
		{method: "cc", channel: 3, a: 11, b: 100},
		{method: "bend", channel: 3, value: 8192},
		{method: "cc", channel: 3, a: 1, b: 30},
	}
	if len(sink.calls) != len(want) {
		t.Fatalf("got %d calls, want %d", len(sink.calls), len(want))
	}
	for i, w := range want {
		if sink.calls[i] != w {
			t.Errorf("call %d = %+v, want %+v", i, sink.calls[i], w)
		}
	}
}
