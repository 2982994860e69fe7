package engine

import "go-gurdy/debug"

// MelodyMuteMode is the melody-pair mute state. There is deliberately no
// "both off" state - a hurdy-gurdy with no melody string is not a mode
// anyone asks for.
type MelodyMuteMode int

const (
	MelodyBothOn MelodyMuteMode = iota
	MelodyHighOnly
	MelodyLowOnly
)

// Next advances the fixed cycle: both -> high only -> low only -> both.
func (m MelodyMuteMode) Next() MelodyMuteMode {
	switch m {
	case MelodyBothOn:
		return MelodyHighOnly
	case MelodyHighOnly:
		return MelodyLowOnly
	default:
		return MelodyBothOn
	}
}

func (m MelodyMuteMode) HighMuted() bool { return m == MelodyLowOnly }
func (m MelodyMuteMode) LowMuted() bool  { return m == MelodyHighOnly }

func (m MelodyMuteMode) String() string {
	switch m {
	case MelodyBothOn:
		return "both"
	case MelodyHighOnly:
		return "high"
	case MelodyLowOnly:
		return "low"
	}
	return "?"
}

// DroneMuteMode is the drone/trompette-pair mute state.
type DroneMuteMode int

const (
	DroneTrompBothOn DroneMuteMode = iota
	DroneTrompBothOff
	DroneOnly
	TrompOnly
)

// Next advances the fixed cycle: both on -> both off -> drone only ->
// tromp only -> both on.
func (m DroneMuteMode) Next() DroneMuteMode {
	switch m {
	case DroneTrompBothOn:
		return DroneTrompBothOff
	case DroneTrompBothOff:
		return DroneOnly
	case DroneOnly:
		return TrompOnly
	default:
		return DroneTrompBothOn
	}
}

// ToggleDrone flips only the drone's mute, keeping the trompette's.
func (m DroneMuteMode) ToggleDrone() DroneMuteMode {
	switch m {
	case DroneTrompBothOn:
		return TrompOnly
	case TrompOnly:
		return DroneTrompBothOn
	case DroneOnly:
		return DroneTrompBothOff
	default: // DroneTrompBothOff
		return DroneOnly
	}
}

// ToggleTromp flips only the trompette's mute, keeping the drone's.
func (m DroneMuteMode) ToggleTromp() DroneMuteMode {
	switch m {
	case DroneTrompBothOn:
		return DroneOnly
	case DroneOnly:
		return DroneTrompBothOn
	case TrompOnly:
		return DroneTrompBothOff
	default: // DroneTrompBothOff
		return TrompOnly
	}
}

func (m DroneMuteMode) DroneMuted() bool {
	return m == DroneTrompBothOff || m == TrompOnly
}

func (m DroneMuteMode) TrompMuted() bool {
	return m == DroneTrompBothOff || m == DroneOnly
}

func (m DroneMuteMode) String() string {
	switch m {
	case DroneTrompBothOn:
		return "both"
	case DroneTrompBothOff:
		return "none"
	case DroneOnly:
		return "drone"
	case TrompOnly:
		return "tromp"
	}
	return "?"
}

// MelodyMutes governs muting of the two melody strings. Every transition
// re-asserts mute flags and, if the crank is currently sounding, performs
// an off/on retrigger at the current pitch so the change is audible within
// one control cycle.
type MelodyMutes struct {
	mode MelodyMuteMode

	high, low *Voice

	sounding func() bool  // is the performance trigger in its sounding state
	offset   func() int   // current melody pitch offset
	vibrato  func() uint8 // current melody vibrato amount
}

func NewMelodyMutes(high, low *Voice, sounding func() bool, offset func() int, vibrato func() uint8) *MelodyMutes {
	return &MelodyMutes{
		high:     high,
		low:      low,
		sounding: sounding,
		offset:   offset,
		vibrato:  vibrato,
	}
}

func (m *MelodyMutes) Mode() MelodyMuteMode { return m.mode }

// Cycle advances to the next melody mute state and applies it.
func (m *MelodyMutes) Cycle() {
	m.mode = m.mode.Next()
	debug.Log("mutes", "melody mode -> %s", m.mode)
	m.apply()
}

func (m *MelodyMutes) apply() {
	m.high.SetMute(m.mode.HighMuted())
	m.low.SetMute(m.mode.LowMuted())

	// Off-then-on: a newly muted string falls silent (its SoundOn is
	// suppressed), a newly unmuted one joins at the current pitch.
	for _, v := range []*Voice{m.high, m.low} {
		if v.Playing() {
			v.SoundOff()
		}
		if m.sounding() {
			v.SoundOn(m.offset(), m.vibrato())
		}
	}
}

// DroneMutes governs muting of the drone, trompette and buzz strings. The
// buzz voice always follows the trompette's mute: the buzz is the
// trompette bridge's rhythm effect and makes no sense without it.
type DroneMutes struct {
	mode DroneMuteMode

	drone, tromp, buzz *Voice

	sounding func() bool
	offset   func() int // current drone/trompette pitch offset
}

func NewDroneMutes(drone, tromp, buzz *Voice, sounding func() bool, offset func() int) *DroneMutes {
	return &DroneMutes{
		drone:    drone,
		tromp:    tromp,
		buzz:     buzz,
		sounding: sounding,
		offset:   offset,
	}
}

func (m *DroneMutes) Mode() DroneMuteMode { return m.mode }

// Cycle advances through all four drone/trompette mute combinations.
func (m *DroneMutes) Cycle() {
	m.mode = m.mode.Next()
	debug.Log("mutes", "drone/tromp mode -> %s", m.mode)
	m.apply()
}

// ToggleDrone flips only the drone's mute.
func (m *DroneMutes) ToggleDrone() {
	m.mode = m.mode.ToggleDrone()
	debug.Log("mutes", "drone toggled, mode -> %s", m.mode)
	m.apply()
}

// ToggleTromp flips only the trompette's (and therefore the buzz's) mute.
func (m *DroneMutes) ToggleTromp() {
	m.mode = m.mode.ToggleTromp()
	debug.Log("mutes", "tromp toggled, mode -> %s", m.mode)
	m.apply()
}

func (m *DroneMutes) apply() {
	m.drone.SetMute(m.mode.DroneMuted())
	m.tromp.SetMute(m.mode.TrompMuted())
	m.buzz.SetMute(m.mode.TrompMuted())

	for _, v := range []*Voice{m.drone, m.tromp} {
		if v.Playing() {
			v.SoundOff()
		}
		if m.sounding() {
			v.SoundOn(m.offset(), 0)
		}
	}

	// The buzz is event-driven, not sustained: silence it if freshly
	// muted, but never start it here - the next buzz event will.
	if m.buzz.Muted() && m.buzz.Playing() {
		m.buzz.SoundOff()
	}
}
