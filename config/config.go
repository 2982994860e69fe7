package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// CrankMode selects which crank sensor the instrument is built with
type CrankMode string

const (
	CrankOptical CrankMode = "optical" // spoke wheel + photo interrupter
	CrankGeared  CrankMode = "geared"  // geared DC generator, voltage sensed
)

// OutputMode selects the sound backend
type OutputMode string

const (
	OutputMIDI    OutputMode = "midi"    // standard MIDI out port
	OutputTrigger OutputMode = "trigger" // polyphonic WAV-trigger board on serial
)

// VoiceConfig defines one sustained string voice
type VoiceConfig struct {
	Name    string `json:"name"`
	Channel uint8  `json:"channel"` // MIDI channel 1-16
	Note    uint8  `json:"note"`    // open (base) MIDI note
	Volume  uint8  `json:"volume"`  // 0-127
	Program uint8  `json:"program,omitempty"`
}

// VoicesConfig holds the five string voices of the instrument
type VoicesConfig struct {
	MelodyHigh VoiceConfig `json:"melodyHigh"`
	MelodyLow  VoiceConfig `json:"melodyLow"`
	Drone      VoiceConfig `json:"drone"`
	Trompette  VoiceConfig `json:"trompette"`
	Buzz       VoiceConfig `json:"buzz"`
}

// OpticalConfig tunes the optical (spoke wheel) crank estimator
type OpticalConfig struct {
	NumSpokes        int     `json:"numSpokes"`        // blocking bars on the wheel
	VThreshold       float64 `json:"vThreshold"`       // RPM at which sound starts
	VStopThreshold   float64 `json:"vStopThreshold"`   // RPM below which sound stops
	SampleRateMicros int     `json:"sampleRateMicros"` // spacing between crank samples
	MaxWaitMicros    int     `json:"maxWaitMicros"`    // longest wait for a spoke edge
	DecayFactor      float64 `json:"decayFactor"`      // velocity multiplier per idle tick, 0..1
	ExpressionVMax   float64 `json:"expressionVMax"`   // RPM at which expression maxes out
	ExpressionStart  int     `json:"expressionStart"`  // minimum CC11 value while sounding
	BuzzMinMillis    int     `json:"buzzMinMillis"`    // minimum audible buzz duration
}

// GearedConfig tunes the geared (DC generator) crank estimator
type GearedConfig struct {
	SpinSamples       int `json:"spinSamples"`  // ADC reads averaged per reported sample
	VolThreshold      int `json:"volThreshold"` // 0-1023 voltage floor for motion
	MaxSpin           int `json:"maxSpin"`
	SpinWeight        int `json:"spinWeight"`
	SpinDecay         int `json:"spinDecay"`
	SpinThreshold     int `json:"spinThreshold"`     // spin above which sound starts
	SpinStopThreshold int `json:"spinStopThreshold"` // spin below which sound stops
	BuzzSmoothing     int `json:"buzzSmoothing"`     // smoothing counter reset value
	BuzzDecay         int `json:"buzzDecay"`         // smoothing subtracted per idle cycle
}

// KeyboxConfig describes the chromatic key-box and its special keys.
// Key indices count chromatically from the low end: index 1 raises the
// melody by one semitone, index 2 by two, and so on.
type KeyboxConfig struct {
	NumKeys      int `json:"numKeys"`
	XIndex       int `json:"xIndex"`       // upper-left modifier key (no pitch effect)
	AIndex       int `json:"aIndex"`       // X+this = cycle capo
	BIndex       int `json:"bIndex"`       // X+this = reset transpose and capo
	TposeUpIndex int `json:"tposeUpIndex"` // X+this = transpose up
	TposeDnIndex int `json:"tposeDnIndex"` // X+this = transpose down
}

// PedalConfig tunes the optional accessory vibrato pedal
type PedalConfig struct {
	Enabled    bool    `json:"enabled"`
	MaxVoltage float64 `json:"maxVoltage"` // highest ADC value the pedal reports, 0-1023 scale
}

// Config is the main configuration structure
type Config struct {
	Crank  CrankMode  `json:"crank"`
	Output OutputMode `json:"output"`

	SensorPort  string `json:"sensorPort"`  // serial device streaming sensor frames
	SensorBaud  int    `json:"sensorBaud"`
	MIDIPort    string `json:"midiPort,omitempty"`    // substring match, empty = first port
	TriggerPort string `json:"triggerPort,omitempty"` // serial device of the trigger board
	TriggerBaud int    `json:"triggerBaud,omitempty"`

	// Vibrato (CC1) applied to melody strings when no pedal is attached
	MelodyVibrato uint8 `json:"melodyVibrato"`

	TickMicros int `json:"tickMicros"` // control loop cadence

	Voices  VoicesConfig  `json:"voices"`
	Optical OpticalConfig `json:"optical"`
	Geared  GearedConfig  `json:"geared"`
	Keybox  KeyboxConfig  `json:"keybox"`
	Pedal   PedalConfig   `json:"pedal"`
}

// DefaultConfig returns a config matching a standard G/C instrument
func DefaultConfig() *Config {
	return &Config{
		Crank:  CrankOptical,
		Output: OutputMIDI,

		SensorPort: "/dev/ttyACM0",
		SensorBaud: 115200,

		TriggerBaud: 57600,

		MelodyVibrato: 16,
		TickMicros:    1000,

		Voices: VoicesConfig{
			MelodyHigh: VoiceConfig{Name: "Hi Melody", Channel: 1, Note: 67, Volume: 110}, // G4
			MelodyLow:  VoiceConfig{Name: "Lo Melody", Channel: 2, Note: 55, Volume: 110}, // G3
			Drone:      VoiceConfig{Name: "Drone", Channel: 3, Note: 48, Volume: 100},     // C3
			Trompette:  VoiceConfig{Name: "Trompette", Channel: 4, Note: 60, Volume: 100}, // C4
			Buzz:       VoiceConfig{Name: "Buzz", Channel: 5, Note: 60, Volume: 100},
		},

		Optical: OpticalConfig{
			NumSpokes:        80,
			VThreshold:       5.5,
			VStopThreshold:   4.5,
			SampleRateMicros: 100,
			MaxWaitMicros:    40000,
			DecayFactor:      0.00,
			ExpressionVMax:   120.0,
			ExpressionStart:  90,
			BuzzMinMillis:    100,
		},

		Geared: GearedConfig{
			SpinSamples:       700,
			VolThreshold:      5,
			MaxSpin:           7600,
			SpinWeight:        2500,
			SpinDecay:         200,
			SpinThreshold:     5001,
			SpinStopThreshold: 1000,
			BuzzSmoothing:     250,
			BuzzDecay:         1,
		},

		Keybox: KeyboxConfig{
			NumKeys:      24,
			XIndex:       0,
			AIndex:       22,
			BIndex:       19,
			TposeUpIndex: 23,
			TposeDnIndex: 21,
		},

		Pedal: PedalConfig{
			Enabled:    false,
			MaxVoltage: 658.0,
		},
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "go-gurdy"), nil
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from disk, or returns defaults if not found
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the config to disk
func (c *Config) Save() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	// Create directory if it doesn't exist
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	path, err := ConfigPath()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
