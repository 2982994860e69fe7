package engine

import (
	"context"
	"time"

	"go-gurdy/config"
	"go-gurdy/debug"
	"go-gurdy/midi"
	"go-gurdy/sensors"
)

// Command is a discrete player action delivered from outside the control
// loop (ex-buttons on the instrument, or keys on the terminal UI).
type Command int

const (
	CmdCycleMelodyMute Command = iota
	CmdCycleDroneTrompMute
	CmdCycleDroneMute
	CmdCycleTrompMute
	CmdTransposeUp
	CmdTransposeDown
	CmdCycleCapo
)

// VoiceStatus is one voice's state in a Snapshot.
type VoiceStatus struct {
	Name        string
	Channel     uint8
	OpenNote    uint8
	CurrentNote uint8
	Muted       bool
	Playing     bool
}

// Snapshot is the full engine state handed to the display reporters.
type Snapshot struct {
	Sounding   bool
	Buzzing    bool
	Velocity   float64
	Expression uint8

	KeyOffset int
	KeyMask   uint32
	Transpose int
	Capo      int

	MelodyMode MelodyMuteMode
	DroneMode  DroneMuteMode

	// MelodyNote is the note the high melody string plays (or would play)
	// at the current offsets.
	MelodyNote uint8

	Voices []VoiceStatus
}

// reportInterval rate-limits playing-screen updates.
const reportInterval = 50 * time.Millisecond

// Engine owns every voice and state machine of the performance core and
// runs the single cooperative control loop. All mutable state is touched
// only from that loop; the UI talks to it through the command channel.
type Engine struct {
	cfg  *config.Config
	sink midi.Sink

	crank   Crank
	trigger *Trigger
	keybox  *Keybox
	pedal   *Pedal

	melodyHigh *Voice
	melodyLow  *Voice
	drone      *Voice
	tromp      *Voice
	buzz       *Voice

	melodyMutes *MelodyMutes
	droneMutes  *DroneMutes

	samples <-chan sensors.Sample
	cmds    chan Command
	done    chan struct{}

	lastSample  sensors.Sample
	prevButtons uint8

	lastExpression uint8
	lastVibrato    uint8

	// Display reporters: one for the playing screen, one for the idle
	// screen. Both receive the full state snapshot.
	onPlaying func(Snapshot)
	onIdle    func(Snapshot)

	lastReport  time.Time
	reportDirty bool
}

// New wires up the whole performance core from config.
func New(cfg *config.Config, sink midi.Sink, samples <-chan sensors.Sample) *Engine {
	e := &Engine{
		cfg:     cfg,
		sink:    sink,
		samples: samples,
		cmds:    make(chan Command, 8),
		done:    make(chan struct{}),
		keybox:  NewKeybox(cfg.Keybox),
		pedal:   NewPedal(cfg.Pedal),

		melodyHigh: NewVoice(sink, cfg.Voices.MelodyHigh),
		melodyLow:  NewVoice(sink, cfg.Voices.MelodyLow),
		drone:      NewVoice(sink, cfg.Voices.Drone),
		tromp:      NewVoice(sink, cfg.Voices.Trompette),
		buzz:       NewVoice(sink, cfg.Voices.Buzz),
	}

	e.crank = NewCrank(cfg)
	e.trigger = NewTrigger(e.crank,
		cfg.Geared.BuzzSmoothing, cfg.Geared.BuzzDecay,
		time.Duration(cfg.Optical.BuzzMinMillis)*time.Millisecond)

	e.trigger.OnSoundStart = e.soundStart
	e.trigger.OnSoundStop = e.soundStop
	e.trigger.OnExpression = e.expression
	e.trigger.OnBuzzStart = e.buzzStart
	e.trigger.OnBuzzStop = e.buzzStop

	sounding := e.trigger.Sounding
	e.melodyMutes = NewMelodyMutes(e.melodyHigh, e.melodyLow,
		sounding, e.keybox.MelodyOffset, e.vibrato)
	e.droneMutes = NewDroneMutes(e.drone, e.tromp, e.buzz,
		sounding, e.keybox.DroneOffset)

	return e
}

// SetReporters installs the display callbacks. Must be called before Run.
func (e *Engine) SetReporters(onPlaying, onIdle func(Snapshot)) {
	e.onPlaying = onPlaying
	e.onIdle = onIdle
}

// Done is closed once Run has exited, after its final all-sound-off.
// Callers wait on it before closing the sink or the sensor port.
func (e *Engine) Done() <-chan struct{} { return e.done }

// Do enqueues a command for the control loop. Non-blocking; commands are
// dropped if the loop is badly behind, which beats stalling the caller.
func (e *Engine) Do(cmd Command) {
	select {
	case e.cmds <- cmd:
	default:
		debug.Log("engine", "command %d dropped", cmd)
	}
}

// Run is the control loop: one tick services sensor intake, velocity
// decay, trigger evaluation, command handling and display reporting, in
// that order, and always returns control on schedule. Blocking - run in a
// goroutine; cancel the context to stop. On cancellation Run sends the
// final all-sound-off itself and then closes Done: the loop is the only
// writer of voice state and the only caller of the sink, so shutdown
// must not touch either from outside until Done is closed.
func (e *Engine) Run(ctx context.Context) {
	defer close(e.done)
	e.applyPrograms()

	tick := time.Duration(e.cfg.TickMicros) * time.Microsecond
	if tick <= 0 {
		tick = time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	e.reportDirty = true

	for {
		select {
		case <-ctx.Done():
			e.KillAll()
			return
		case now := <-ticker.C:
			e.step(now)
		}
	}
}

// step is one control cycle.
func (e *Engine) step(now time.Time) {
	// Newest sensor sample if one arrived; otherwise re-use the previous
	// one with its edge data spent, so the estimator sees "no motion".
	select {
	case s, ok := <-e.samples:
		if !ok {
			// Sensor link lost: decay to silence on stale samples.
			e.lastSample.EdgeInterval = 0
			e.lastSample.CrankRaw = 0
		} else {
			e.lastSample = s
			e.handleButtons(s.Buttons)
			e.handleKeys(s.KeyMask)
			e.handlePedal(s.Pedal)
		}
	default:
		e.lastSample.EdgeInterval = 0
	}

	e.trigger.Tick(now, e.lastSample)
	debug.LogEvery(1000, "engine", "velocity=%.2f sounding=%v",
		e.crank.Velocity(), e.trigger.Sounding())

	for {
		select {
		case cmd := <-e.cmds:
			e.handleCommand(cmd)
			continue
		default:
		}
		break
	}

	e.report(now)
}

// applyPrograms sends the configured program change per voice, once.
func (e *Engine) applyPrograms() {
	for _, v := range e.allVoices() {
		if p := e.programFor(v); p > 0 {
			v.SetProgram(p)
		}
	}
}

func (e *Engine) programFor(v *Voice) uint8 {
	switch v {
	case e.melodyHigh:
		return e.cfg.Voices.MelodyHigh.Program
	case e.melodyLow:
		return e.cfg.Voices.MelodyLow.Program
	case e.drone:
		return e.cfg.Voices.Drone.Program
	case e.tromp:
		return e.cfg.Voices.Trompette.Program
	default:
		return e.cfg.Voices.Buzz.Program
	}
}

func (e *Engine) allVoices() []*Voice {
	return []*Voice{e.melodyHigh, e.melodyLow, e.drone, e.tromp, e.buzz}
}

// vibrato is the CC1 amount for melody strings: the pedal if present,
// otherwise the configured fixed amount.
func (e *Engine) vibrato() uint8 {
	if e.pedal.Enabled() {
		return e.pedal.Vibrato()
	}
	return e.cfg.MelodyVibrato
}

// -------------------- trigger callbacks --------------------

func (e *Engine) soundStart() {
	mo, do := e.keybox.MelodyOffset(), e.keybox.DroneOffset()
	vib := e.vibrato()
	e.melodyHigh.SoundOn(mo, vib)
	e.melodyLow.SoundOn(mo, vib)
	e.drone.SoundOn(do, 0)
	e.tromp.SoundOn(do, 0)
	e.reportDirty = true
}

func (e *Engine) soundStop() {
	for _, v := range e.allVoices() {
		if v.Playing() {
			v.SoundOff()
		}
	}
	e.lastExpression = 0
	e.reportDirty = true
}

// expression forwards the crank expression to the pitched channels,
// deduplicated: the trigger offers a value every tick, the wire only sees
// changes.
func (e *Engine) expression(value uint8) {
	if value == e.lastExpression {
		return
	}
	e.lastExpression = value
	e.melodyHigh.SetExpression(value)
	e.melodyLow.SetExpression(value)
	e.drone.SetExpression(value)
	e.tromp.SetExpression(value)
}

func (e *Engine) buzzStart() {
	e.buzz.SoundOn(e.keybox.DroneOffset(), 0)
	e.reportDirty = true
}

func (e *Engine) buzzStop() {
	if e.buzz.Playing() {
		e.buzz.SoundOff()
	}
	e.reportDirty = true
}

// -------------------- input handling --------------------

// handleButtons dispatches ex-button press edges as commands.
func (e *Engine) handleButtons(buttons uint8) {
	pressed := buttons &^ e.prevButtons
	e.prevButtons = buttons

	if pressed&sensors.BtnMelodyMute != 0 {
		e.handleCommand(CmdCycleMelodyMute)
	}
	if pressed&sensors.BtnDroneTrompMute != 0 {
		e.handleCommand(CmdCycleDroneTrompMute)
	}
	if pressed&sensors.BtnDroneMute != 0 {
		e.handleCommand(CmdCycleDroneMute)
	}
	if pressed&sensors.BtnTrompMute != 0 {
		e.handleCommand(CmdCycleTrompMute)
	}
	if pressed&sensors.BtnCapo != 0 {
		e.handleCommand(CmdCycleCapo)
	}
}

// handleKeys feeds the key mask to the resolver; a changed offset
// re-pitches the sounding strings live. Transpose/capo chords shift the
// drones too, so those resound everything.
func (e *Engine) handleKeys(mask uint32) {
	mBefore, dBefore := e.keybox.MelodyOffset(), e.keybox.DroneOffset()
	e.keybox.Update(mask)
	switch {
	case e.keybox.DroneOffset() != dBefore:
		e.resoundAll()
		e.reportDirty = true
	case e.keybox.MelodyOffset() != mBefore:
		e.resoundMelody()
		e.reportDirty = true
	}
}

// handlePedal re-sends melody vibrato when the pedal moves.
func (e *Engine) handlePedal(voltage uint16) {
	if !e.pedal.Update(voltage) {
		return
	}
	vib := e.pedal.Vibrato()
	if vib == e.lastVibrato {
		return
	}
	e.lastVibrato = vib
	if e.trigger.Sounding() {
		e.melodyHigh.SetVibrato(vib)
		e.melodyLow.SetVibrato(vib)
	}
}

func (e *Engine) handleCommand(cmd Command) {
	switch cmd {
	case CmdCycleMelodyMute:
		e.melodyMutes.Cycle()
	case CmdCycleDroneTrompMute:
		e.droneMutes.Cycle()
	case CmdCycleDroneMute:
		e.droneMutes.ToggleDrone()
	case CmdCycleTrompMute:
		e.droneMutes.ToggleTromp()
	case CmdTransposeUp:
		e.keybox.TransposeUp()
		e.resoundAll()
	case CmdTransposeDown:
		e.keybox.TransposeDown()
		e.resoundAll()
	case CmdCycleCapo:
		e.keybox.CycleCapo()
		e.resoundAll()
	}
	e.reportDirty = true
}

// resoundMelody restarts the sounding melody strings at the current
// offset. SoundOn interrupts the old note and is suppressed on muted
// voices, so no per-voice bookkeeping is needed.
func (e *Engine) resoundMelody() {
	if !e.trigger.Sounding() {
		return
	}
	mo, vib := e.keybox.MelodyOffset(), e.vibrato()
	e.melodyHigh.SoundOn(mo, vib)
	e.melodyLow.SoundOn(mo, vib)
}

// resoundAll restarts every sounding pitched voice after a transpose or
// capo change.
func (e *Engine) resoundAll() {
	if !e.trigger.Sounding() {
		return
	}
	e.resoundMelody()
	do := e.keybox.DroneOffset()
	e.drone.SoundOn(do, 0)
	e.tromp.SoundOn(do, 0)
}

// -------------------- reporting --------------------

func (e *Engine) report(now time.Time) {
	if !e.reportDirty {
		if !e.trigger.Sounding() || now.Sub(e.lastReport) < reportInterval {
			return
		}
	}
	e.reportDirty = false
	e.lastReport = now

	snap := e.Snapshot()
	if snap.Sounding {
		if e.onPlaying != nil {
			e.onPlaying(snap)
		}
	} else if e.onIdle != nil {
		e.onIdle(snap)
	}
}

// Snapshot assembles the current engine state for display.
func (e *Engine) Snapshot() Snapshot {
	snap := Snapshot{
		Sounding:   e.trigger.Sounding(),
		Buzzing:    e.trigger.Buzzing(),
		Velocity:   e.crank.Velocity(),
		Expression: e.lastExpression,
		KeyOffset:  e.keybox.KeyOffset(),
		KeyMask:    e.lastSample.KeyMask,
		Transpose:  e.keybox.Transpose(),
		Capo:       e.keybox.Capo(),
		MelodyMode: e.melodyMutes.Mode(),
		DroneMode:  e.droneMutes.Mode(),
		MelodyNote: uint8(int(e.melodyHigh.OpenNote()) + e.keybox.MelodyOffset()),
	}
	for _, v := range e.allVoices() {
		snap.Voices = append(snap.Voices, VoiceStatus{
			Name:        v.Name(),
			Channel:     v.Channel(),
			OpenNote:    v.OpenNote(),
			CurrentNote: v.CurrentNote(),
			Muted:       v.Muted(),
			Playing:     v.Playing(),
		})
	}
	return snap
}

// KillAll sends All Sound Off on every voice channel. The panic stop.
func (e *Engine) KillAll() {
	debug.Log("engine", "kill all")
	for _, v := range e.allVoices() {
		v.SoundKill()
	}
}
