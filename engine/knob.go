package engine

import "go-gurdy/config"

// Pedal maps the accessory vibrato pedal's voltage onto a CC1 vibrato
// amount. With the pedal disabled (or absent) the melody strings fall back
// to the configured fixed vibrato.
type Pedal struct {
	cfg   config.PedalConfig
	value uint8
}

func NewPedal(cfg config.PedalConfig) *Pedal {
	return &Pedal{cfg: cfg}
}

// Update takes the pedal voltage (0-1023 ADC scale) and returns true when
// the resolved vibrato amount changed.
func (p *Pedal) Update(voltage uint16) (changed bool) {
	if !p.cfg.Enabled {
		return false
	}
	v := float64(voltage) / p.cfg.MaxVoltage * 127.0
	if v > 127 {
		v = 127
	}
	nv := uint8(v)
	if nv != p.value {
		p.value = nv
		return true
	}
	return false
}

// Enabled reports whether a pedal is configured.
func (p *Pedal) Enabled() bool { return p.cfg.Enabled }

// Vibrato returns the current pedal vibrato amount, 0-127.
func (p *Pedal) Vibrato() uint8 { return p.value }
