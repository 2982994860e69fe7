package engine

import (
	"go-gurdy/config"
	"go-gurdy/debug"
	"go-gurdy/midi"
)

// Voice is one sustained string of the instrument (drone, trompette, buzz,
// high/low melody). It owns its channel, base note and volume, and turns
// sound on and off against the output sink. At most one note plays per
// voice at a time; SoundOn while playing interrupts the old note first.
type Voice struct {
	name     string
	sink     midi.Sink
	channel  uint8
	openNote uint8
	volume   uint8

	// currentNote is the note of the most recent SoundOn, meaningful
	// while playing.
	currentNote uint8

	// triggerGain mirrors volume on the WAV-trigger board's -70..+10 dB
	// scale, recomputed whenever volume changes.
	triggerGain int

	muted   bool
	playing bool
}

// NewVoice builds a voice from its config entry.
func NewVoice(sink midi.Sink, cfg config.VoiceConfig) *Voice {
	return &Voice{
		name:        cfg.Name,
		sink:        sink,
		channel:     cfg.Channel,
		openNote:    cfg.Note,
		volume:      cfg.Volume,
		currentNote: cfg.Note,
		triggerGain: midi.GainFor(cfg.Volume),
	}
}

// SoundOn starts sound at openNote+offset, optionally with CC1 modulation
// (0 = none). On a muted voice this is a no-op: nothing is sent and the
// voice does not become playing, so a mute-cycle retrigger audibly and
// observably silences it. If the voice is already playing the old note is
// released first.
func (v *Voice) SoundOn(offset int, modulation uint8) {
	if v.muted {
		return
	}
	if v.playing {
		v.SoundOff()
	}
	v.currentNote = uint8(int(v.openNote) + offset)
	v.sink.NoteOn(v.channel, v.currentNote, v.volume)
	if modulation > 0 {
		v.sink.ControlChange(v.channel, midi.CCModulation, modulation)
	}
	v.playing = true
	debug.Log("voice", "%s: on note=%d offset=%d", v.name, v.currentNote, offset)
}

// SoundOff releases the current note gracefully.
func (v *Voice) SoundOff() {
	v.sink.NoteOff(v.channel, v.currentNote, v.volume)
	v.playing = false
	debug.Log("voice", "%s: off note=%d", v.name, v.currentNote)
}

// SoundKill sends All Sound Off on the voice's channel. This is the
// emergency stop, not the regular way to end a note.
func (v *Voice) SoundKill() {
	v.sink.ControlChange(v.channel, midi.CCAllSoundOff, 0)
	v.playing = false
	debug.Log("voice", "%s: kill", v.name)
}

// Retrigger releases and restarts the current note, keeping its pitch.
// Mute-cycle transitions use this so a new mute configuration is audible
// without a fresh crank gesture. No-op unless playing.
func (v *Voice) Retrigger(modulation uint8) {
	if !v.playing {
		return
	}
	offset := int(v.currentNote) - int(v.openNote)
	v.SoundOff()
	v.SoundOn(offset, modulation)
}

// SetMute mutes or unmutes the voice. While muted SoundOn does nothing,
// which lets callers sound every string without checking mute state.
func (v *Voice) SetMute(mute bool) {
	v.muted = mute
}

func (v *Voice) Muted() bool   { return v.muted }
func (v *Voice) Playing() bool { return v.playing }

func (v *Voice) Name() string       { return v.name }
func (v *Voice) Channel() uint8     { return v.channel }
func (v *Voice) OpenNote() uint8    { return v.openNote }
func (v *Voice) CurrentNote() uint8 { return v.currentNote }

// SetOpenNote changes the voice's base note (retuning).
func (v *Voice) SetOpenNote(note uint8) {
	v.openNote = note
}

// SetVolume changes the voice volume and recomputes the trigger-board gain.
func (v *Voice) SetVolume(vol uint8) {
	v.volume = vol
	v.triggerGain = midi.GainFor(vol)
}

func (v *Voice) Volume() uint8    { return v.volume }
func (v *Voice) TriggerGain() int { return v.triggerGain }

// SetProgram sends a program change on the voice's channel.
func (v *Voice) SetProgram(program uint8) {
	v.sink.ProgramChange(v.channel, program)
}

// SetExpression sends CC11, the crank-speed expression controller.
func (v *Voice) SetExpression(expression uint8) {
	v.sink.ControlChange(v.channel, midi.CCExpression, expression)
}

// SetPitchBend bends the channel: 0-16383, 8192 = no bend.
func (v *Voice) SetPitchBend(bend int) {
	v.sink.PitchBend(v.channel, bend)
}

// SetVibrato sends CC1, the mod wheel, for a vibrato effect.
func (v *Voice) SetVibrato(vibrato uint8) {
	v.sink.ControlChange(v.channel, midi.CCModulation, vibrato)
}
