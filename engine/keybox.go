package engine

import (
	"go-gurdy/config"
	"go-gurdy/debug"
)

// transposeRange clamps the session transpose to one octave either way.
const transposeRange = 12

// capoSteps are the capo positions cycled through: open, +2, +4.
var capoSteps = [3]int{0, 2, 4}

// Keybox resolves the chromatic key-box plus transpose and capo state into
// the pitch offsets applied when triggering voices. Key index N raises the
// melody by N semitones; when several keys are held the highest one wins,
// exactly like tangents on a real key-box - the tangent closest to the
// bridge stops the string.
type Keybox struct {
	cfg config.KeyboxConfig

	held     []bool
	prevHeld []bool

	keyOffset int
	transpose int
	capoStep  int
}

func NewKeybox(cfg config.KeyboxConfig) *Keybox {
	return &Keybox{
		cfg:      cfg,
		held:     make([]bool, cfg.NumKeys),
		prevHeld: make([]bool, cfg.NumKeys),
	}
}

// Update takes the current key mask and recomputes the key offset.
// It returns true when the melody offset changed, so the caller can
// re-trigger sounding strings at the new pitch. Transpose chords (the X
// key held together with a transpose key) are consumed here too.
func (k *Keybox) Update(mask uint32) (changed bool) {
	copy(k.prevHeld, k.held)
	for i := range k.held {
		k.held[i] = mask&(1<<uint(i)) != 0
	}

	// Chords on the X modifier, all on the press edge of the second key:
	// X+T-UP / X+T-DN adjust the session transpose, X+A cycles the capo,
	// X+B drops transpose and capo back to open tuning.
	if k.held[k.cfg.XIndex] {
		if k.risingEdge(k.cfg.TposeUpIndex) {
			k.TransposeUp()
		}
		if k.risingEdge(k.cfg.TposeDnIndex) {
			k.TransposeDown()
		}
		if k.risingEdge(k.cfg.AIndex) {
			k.CycleCapo()
		}
		if k.risingEdge(k.cfg.BIndex) {
			k.Reset()
		}
	}

	// Highest held key wins. Keys consumed by an X-chord are not
	// tangents while the chord is possible, or pressing X+T-UP would
	// yank the melody up to the transpose key's pitch for a cycle.
	offset := 0
	for i := len(k.held) - 1; i > 0; i-- {
		if !k.held[i] || (k.held[k.cfg.XIndex] && k.chordKey(i)) {
			continue
		}
		offset = i
		break
	}
	if offset != k.keyOffset {
		k.keyOffset = offset
		return true
	}
	return false
}

// chordKey reports whether key idx pairs with X to form a chord.
func (k *Keybox) chordKey(idx int) bool {
	switch idx {
	case k.cfg.AIndex, k.cfg.BIndex, k.cfg.TposeUpIndex, k.cfg.TposeDnIndex:
		return true
	}
	return false
}

func (k *Keybox) risingEdge(idx int) bool {
	return idx > 0 && idx < len(k.held) && k.held[idx] && !k.prevHeld[idx]
}

// KeyHeld reports whether key idx is currently held.
func (k *Keybox) KeyHeld(idx int) bool {
	return idx >= 0 && idx < len(k.held) && k.held[idx]
}

// KeyOffset is the semitone offset from the held keys alone.
func (k *Keybox) KeyOffset() int { return k.keyOffset }

// TransposeUp raises the session transpose one semitone, to at most +12.
func (k *Keybox) TransposeUp() {
	if k.transpose < transposeRange {
		k.transpose++
		debug.Log("keybox", "transpose -> %+d", k.transpose)
	}
}

// TransposeDown lowers the session transpose one semitone, to at least -12.
func (k *Keybox) TransposeDown() {
	if k.transpose > -transposeRange {
		k.transpose--
		debug.Log("keybox", "transpose -> %+d", k.transpose)
	}
}

// Transpose returns the session transpose in semitones.
func (k *Keybox) Transpose() int { return k.transpose }

// CycleCapo advances the capo: open -> +2 -> +4 -> open.
func (k *Keybox) CycleCapo() {
	k.capoStep = (k.capoStep + 1) % len(capoSteps)
	debug.Log("keybox", "capo -> %+d", k.Capo())
}

// Capo returns the capo offset in semitones.
func (k *Keybox) Capo() int { return capoSteps[k.capoStep] }

// Reset drops transpose and capo back to open tuning.
func (k *Keybox) Reset() {
	k.transpose = 0
	k.capoStep = 0
	debug.Log("keybox", "tuning reset")
}

// MelodyOffset is the full offset applied to melody voices:
// key offset + transpose + capo.
func (k *Keybox) MelodyOffset() int {
	return k.keyOffset + k.transpose + k.Capo()
}

// DroneOffset is the offset applied to the drone and trompette, which the
// key-box does not stop: transpose + capo only.
func (k *Keybox) DroneOffset() int {
	return k.transpose + k.Capo()
}

// CurrentOffset is the combined key + transpose + capo offset.
func (k *Keybox) CurrentOffset() int {
	return k.MelodyOffset()
}
