package engine

import (
	"time"

	"go-gurdy/debug"
	"go-gurdy/sensors"
)

// expresser is implemented by crank strategies that map velocity to a
// continuous expression value. Only the optical crank does; the geared
// crank's stepped voltage is too coarse to ride a volume controller on.
type expresser interface {
	Expression() uint8
}

// Trigger is the performance state machine: it thresholds the crank
// velocity with hysteresis to decide when the strings sustain, rides the
// expression controller while they do, and smooths the instantaneous buzz
// condition into coups with a minimum audible duration.
//
// The trigger itself never touches voices; the engine wires the callbacks.
type Trigger struct {
	crank Crank

	sounding bool
	buzzing  bool

	// Geared buzz smoothing: reset to buzzSmoothing on a hot sample,
	// decremented by buzzDecay on a cold one, buzzing while positive.
	buzzSmoothing int
	buzzDecay     int
	buzzCount     int

	// Optical buzz floor: a coup lasts at least buzzMin.
	buzzMin   time.Duration
	buzzUntil time.Time

	// OnSoundStart fires on the exact tick velocity first crosses the
	// start threshold; OnSoundStop when it falls below the stop
	// threshold. Between the two thresholds the current state holds.
	OnSoundStart func()
	OnSoundStop  func()

	// OnExpression fires every tick while sounding, optical builds only.
	OnExpression func(value uint8)

	OnBuzzStart func()
	OnBuzzStop  func()
}

// NewTrigger builds a trigger for the given crank. Buzz smoothing
// parameters come from whichever crank mode is active: geared cranks use
// the counter (smoothing/decay), optical cranks the minimum duration.
func NewTrigger(crank Crank, buzzSmoothing, buzzDecay int, buzzMin time.Duration) *Trigger {
	return &Trigger{
		crank:         crank,
		buzzSmoothing: buzzSmoothing,
		buzzDecay:     buzzDecay,
		buzzMin:       buzzMin,
	}
}

// Sounding reports whether the strings are currently sustaining.
func (t *Trigger) Sounding() bool { return t.sounding }

// Buzzing reports whether a coup is currently sounding.
func (t *Trigger) Buzzing() bool { return t.buzzing }

// Tick advances the trigger by one control cycle: feed the crank the new
// sample, evaluate the hysteresis band, then the buzz condition.
func (t *Trigger) Tick(now time.Time, s sensors.Sample) {
	t.crank.Update(now, s)
	v := t.crank.Velocity()

	switch {
	case !t.sounding && v >= t.crank.StartThreshold():
		t.sounding = true
		debug.Log("trigger", "sound start, velocity=%.2f", v)
		if t.OnSoundStart != nil {
			t.OnSoundStart()
		}
	case t.sounding && v < t.crank.StopThreshold():
		t.sounding = false
		// Sound stop silences everything, the buzz included, so the buzz
		// machine resets without firing its own stop.
		t.buzzing = false
		t.buzzCount = 0
		debug.Log("trigger", "sound stop, velocity=%.2f", v)
		if t.OnSoundStop != nil {
			t.OnSoundStop()
		}
	}

	if t.sounding {
		if e, ok := t.crank.(expresser); ok && t.OnExpression != nil {
			t.OnExpression(e.Expression())
		}
	}

	t.tickBuzz(now, s)
}

func (t *Trigger) tickBuzz(now time.Time, s sensors.Sample) {
	hot := t.sounding && t.crank.BuzzHot(s)

	if hot {
		t.buzzCount = t.buzzSmoothing
		t.buzzUntil = now.Add(t.buzzMin)
		if !t.buzzing {
			t.buzzing = true
			debug.Log("trigger", "buzz start")
			if t.OnBuzzStart != nil {
				t.OnBuzzStart()
			}
		}
		return
	}

	if !t.buzzing {
		return
	}

	// Cold sample: run the smoothing down. The coup keeps sounding until
	// both the counter is spent and the minimum duration has passed.
	if t.buzzCount > 0 {
		t.buzzCount -= t.buzzDecay
	}
	if t.buzzCount <= 0 && now.After(t.buzzUntil) {
		t.buzzing = false
		debug.Log("trigger", "buzz stop")
		if t.OnBuzzStop != nil {
			t.OnBuzzStop()
		}
	}
}
