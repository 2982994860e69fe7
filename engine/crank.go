package engine

import (
	"math"
	"time"

	"go-gurdy/config"
	"go-gurdy/sensors"
)

// Crank estimates crank velocity from raw sensor samples. Update must be
// called once per control tick at a bounded cadence; Velocity returns the
// decayed estimate in the strategy's own unit (RPM for optical, spin for
// geared). StartThreshold and StopThreshold bound the hysteresis band the
// performance trigger works in, with StopThreshold strictly the lower.
type Crank interface {
	Update(now time.Time, s sensors.Sample)
	Velocity() float64
	StartThreshold() float64
	StopThreshold() float64

	// BuzzHot reports whether the instantaneous buzz condition holds for
	// this sample. Smoothing into an audible buzz is the trigger's job.
	BuzzHot(s sensors.Sample) bool
}

// adcMax is the full-scale sensor ADC reading (3.3V).
const adcMax = 1023.0

// -------------------- Optical crank --------------------

// OpticalCrank times spoke edges of an optical wheel. Each new edge
// interval yields an RPM estimate; when no edge arrives within the wait
// window the estimate decays by a configurable factor every tick, so a
// stopped crank fades to silence instead of chattering.
type OpticalCrank struct {
	cfg config.OpticalConfig

	velocity   float64
	lastEdge   time.Time
	lastUpdate time.Time
	maxWait    time.Duration
	samplePd   time.Duration
}

func NewOpticalCrank(cfg config.OpticalConfig) *OpticalCrank {
	return &OpticalCrank{
		cfg:      cfg,
		maxWait:  time.Duration(cfg.MaxWaitMicros) * time.Microsecond,
		samplePd: time.Duration(cfg.SampleRateMicros) * time.Microsecond,
	}
}

func (c *OpticalCrank) Update(now time.Time, s sensors.Sample) {
	elapsed := now.Sub(c.lastUpdate)
	c.lastUpdate = now

	if s.EdgeInterval > 0 {
		// One spoke passed in EdgeInterval microseconds.
		c.velocity = 60e6 / (float64(s.EdgeInterval) * float64(c.cfg.NumSpokes))
		c.lastEdge = now
		return
	}
	if c.lastEdge.IsZero() || now.Sub(c.lastEdge) > c.maxWait {
		// The decay factor is defined per sampling period; the control
		// loop may tick slower than that, so raise the factor to the
		// number of periods that actually passed.
		periods := float64(elapsed) / float64(c.samplePd)
		c.velocity *= math.Pow(c.cfg.DecayFactor, periods)
	}
}

// Velocity returns the current estimate in RPM.
func (c *OpticalCrank) Velocity() float64 { return c.velocity }

func (c *OpticalCrank) StartThreshold() float64 { return c.cfg.VThreshold }
func (c *OpticalCrank) StopThreshold() float64  { return c.cfg.VStopThreshold }

// Expression maps velocity onto CC11: ExpressionStart at the sound
// threshold, rising linearly to 127 at ExpressionVMax RPM.
func (c *OpticalCrank) Expression() uint8 {
	e := float64(c.cfg.ExpressionStart) +
		c.velocity/c.cfg.ExpressionVMax*float64(127-c.cfg.ExpressionStart)
	if e < float64(c.cfg.ExpressionStart) {
		e = float64(c.cfg.ExpressionStart)
	}
	if e > 127 {
		e = 127
	}
	return uint8(e)
}

// BuzzHot: the buzz knob dials an RPM threshold between 0 and
// ExpressionVMax; cranking faster than it coups.
func (c *OpticalCrank) BuzzHot(s sensors.Sample) bool {
	threshold := float64(s.BuzzKnob) / adcMax * c.cfg.ExpressionVMax
	return threshold > 0 && c.velocity > threshold
}

// -------------------- Geared crank --------------------

// GearCrank integrates generator voltage into a bounded "spin" counter.
// The geared generator induces voltage in steps, so motion adds a large
// weight and stillness subtracts a small decay, smoothing the steps into a
// steady velocity proxy. Spin stays within [0, MaxSpin] for any input.
type GearCrank struct {
	cfg  config.GearedConfig
	spin int
}

func NewGearCrank(cfg config.GearedConfig) *GearCrank {
	return &GearCrank{cfg: cfg}
}

func (c *GearCrank) Update(now time.Time, s sensors.Sample) {
	if int(s.CrankRaw) > c.cfg.VolThreshold {
		c.spin += c.cfg.SpinWeight
		if c.spin > c.cfg.MaxSpin {
			c.spin = c.cfg.MaxSpin
		}
	} else {
		c.spin -= c.cfg.SpinDecay
		if c.spin < 0 {
			c.spin = 0
		}
	}
}

// Spin returns the raw accumulator.
func (c *GearCrank) Spin() int { return c.spin }

// Velocity returns the spin count; the thresholds are on the same scale.
func (c *GearCrank) Velocity() float64 { return float64(c.spin) }

func (c *GearCrank) StartThreshold() float64 { return float64(c.cfg.SpinThreshold) }
func (c *GearCrank) StopThreshold() float64  { return float64(c.cfg.SpinStopThreshold) }

// BuzzHot: the crank voltage beating the buzz knob's voltage registers a
// coup.
func (c *GearCrank) BuzzHot(s sensors.Sample) bool {
	return s.CrankRaw > s.BuzzKnob
}

// NewCrank builds the estimator selected by the config.
func NewCrank(cfg *config.Config) Crank {
	if cfg.Crank == config.CrankGeared {
		return NewGearCrank(cfg.Geared)
	}
	return NewOpticalCrank(cfg.Optical)
}
