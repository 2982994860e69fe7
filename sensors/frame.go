package sensors

import (
	"encoding/binary"
	"fmt"
	"time"
)

const (
	SOF0 = 0xAA
	SOF1 = 0x55

	CmdSensorReport = 0x01

	// payload after the CMD byte: key mask (4) + buttons (1) + crank raw (2)
	// + edge interval (4) + buzz knob (2) + pedal (2)
	payloadLen = 15
	frameLen   = 2 + 1 + 1 + payloadLen + 1 // SOF0 SOF1 LEN CMD payload CKS
)

// Ex-button bits in the Buttons byte. These are the discrete side buttons
// of the instrument, separate from the chromatic key-box.
const (
	BtnMelodyMute     = 1 << 0 // cycle melody-string muting
	BtnDroneTrompMute = 1 << 1 // cycle drone/trompette muting
	BtnDroneMute      = 1 << 2 // toggle drone muting
	BtnTrompMute      = 1 << 3 // toggle trompette muting
	BtnCapo           = 1 << 4 // cycle the capo
)

// Sample is one decoded sensor report from the instrument's MCU.
type Sample struct {
	Time time.Time

	// KeyMask has bit N set while key-box key N is held.
	KeyMask uint32

	// Buttons carries the ex-button states (Btn* bits).
	Buttons uint8

	// CrankRaw is the generator voltage on the 0-1023 ADC scale, already
	// averaged over SpinSamples reads by the MCU. Zero on optical builds.
	CrankRaw uint16

	// EdgeInterval is the time in microseconds between the two most recent
	// spoke edges. Zero means no new edge since the previous report.
	// Always zero on geared builds.
	EdgeInterval uint32

	// BuzzKnob and Pedal are knob/pedal voltages on the 0-1023 ADC scale.
	BuzzKnob uint16
	Pedal    uint16
}

// KeyHeld reports whether key-box key idx is held in this sample.
func (s Sample) KeyHeld(idx int) bool {
	if idx < 0 || idx > 31 {
		return false
	}
	return s.KeyMask&(1<<uint(idx)) != 0
}

// Encode builds the on-wire representation:
//
//	[SOF0][SOF1][LEN][CMD][keymask:4][buttons][crank:2][interval:4][knob:2][pedal:2][CKS]
//
// Multi-byte fields are little-endian. The checksum is LEN xor CMD xor
// every payload byte. Encode exists for the test bench and for simulated
// instruments; real frames come from the MCU.
func (s Sample) Encode() []byte {
	payload := make([]byte, 0, payloadLen)
	payload = binary.LittleEndian.AppendUint32(payload, s.KeyMask)
	payload = append(payload, s.Buttons)
	payload = binary.LittleEndian.AppendUint16(payload, s.CrankRaw)
	payload = binary.LittleEndian.AppendUint32(payload, s.EdgeInterval)
	payload = binary.LittleEndian.AppendUint16(payload, s.BuzzKnob)
	payload = binary.LittleEndian.AppendUint16(payload, s.Pedal)

	length := byte(len(payload) + 1) // +1 for CMD byte
	cks := length ^ CmdSensorReport
	for _, b := range payload {
		cks ^= b
	}

	out := []byte{SOF0, SOF1, length, CmdSensorReport}
	out = append(out, payload...)
	out = append(out, cks)
	return out
}

// DecodeFrame parses one complete frame starting at buf[0]. The caller is
// responsible for aligning buf on the SOF bytes (see Link.resync).
func DecodeFrame(buf []byte) (Sample, error) {
	var s Sample
	if len(buf) < frameLen {
		return s, fmt.Errorf("frame: short read (%d bytes)", len(buf))
	}
	if buf[0] != SOF0 || buf[1] != SOF1 {
		return s, fmt.Errorf("frame: bad start bytes %02x %02x", buf[0], buf[1])
	}
	length := buf[2]
	if int(length) != payloadLen+1 {
		return s, fmt.Errorf("frame: bad length %d", length)
	}
	if buf[3] != CmdSensorReport {
		return s, fmt.Errorf("frame: unknown command %02x", buf[3])
	}

	cks := length ^ buf[3]
	for _, b := range buf[4 : 4+payloadLen] {
		cks ^= b
	}
	if cks != buf[4+payloadLen] {
		return s, fmt.Errorf("frame: checksum mismatch (got %02x, want %02x)", buf[4+payloadLen], cks)
	}

	p := buf[4:]
	s.KeyMask = binary.LittleEndian.Uint32(p[0:4])
	s.Buttons = p[4]
	s.CrankRaw = binary.LittleEndian.Uint16(p[5:7])
	s.EdgeInterval = binary.LittleEndian.Uint32(p[7:11])
	s.BuzzKnob = binary.LittleEndian.Uint16(p[11:13])
	s.Pedal = binary.LittleEndian.Uint16(p[13:15])
	s.Time = time.Now()
	return s, nil
}

// FrameLen is the fixed size of an encoded sensor frame.
func FrameLen() int { return frameLen }
