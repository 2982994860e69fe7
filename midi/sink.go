package midi

// Sink is the sound backend a string voice plays into. Channels are 1-16
// as on the wire labels, notes/velocities/CC values are 0-127. Values are
// trusted to be in range; backends do not validate.
//
// Backend failures are the sink's own problem: the performance engine runs
// on a fixed tick and never blocks or retries on output, so implementations
// log and drop rather than propagate errors into the hot path.
type Sink interface {
	NoteOn(channel, note, velocity uint8)
	NoteOff(channel, note, velocity uint8)
	ControlChange(channel, controller, value uint8)
	ProgramChange(channel, program uint8)

	// PitchBend takes the absolute 14-bit value 0-16383, 8192 = no bend.
	PitchBend(channel uint8, value int)

	Close() error
}

// Standard controller numbers the engine uses.
const (
	CCModulation  uint8 = 1   // vibrato
	CCExpression  uint8 = 11  // crank-speed expression
	CCAllSoundOff uint8 = 123 // emergency kill
)
