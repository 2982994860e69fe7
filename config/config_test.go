package config

import (
	"encoding/json"
	"testing"
)

func TestDefaultConfigIsCoherent(t *testing.T) {
	cfg := DefaultConfig()

	// The trigger thresholds must leave a hysteresis band, or the sound
	// chatters on and off at the boundary.
	if cfg.Optical.VStopThreshold >= cfg.Optical.VThreshold {
		t.Fatalf("optical stop threshold %.1f must sit below start %.1f",
			cfg.Optical.VStopThreshold, cfg.Optical.VThreshold)
	}
	if cfg.Geared.SpinStopThreshold >= cfg.Geared.SpinThreshold {
		t.Fatalf("geared stop threshold %d must sit below start %d",
			cfg.Geared.SpinStopThreshold, cfg.Geared.SpinThreshold)
	}
	if cfg.Geared.SpinThreshold > cfg.Geared.MaxSpin {
		t.Fatal("the spin threshold must be reachable")
	}

	// Every voice needs its own channel, or mute state bleeds across
	// strings on the output side.
	seen := map[uint8]string{}
	for _, v := range []VoiceConfig{
		cfg.Voices.MelodyHigh, cfg.Voices.MelodyLow,
		cfg.Voices.Drone, cfg.Voices.Trompette, cfg.Voices.Buzz,
	} {
		if prev, dup := seen[v.Channel]; dup {
			t.Fatalf("%s and %s share channel %d", prev, v.Name, v.Channel)
		}
		seen[v.Channel] = v.Name
	}

	if cfg.Keybox.NumKeys < 1 || cfg.Keybox.TposeUpIndex >= cfg.Keybox.NumKeys {
		t.Fatal("key indices must fit inside the key-box")
	}
}

func TestConfigJSONRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Crank = CrankGeared
	cfg.Output = OutputTrigger
	cfg.Voices.Drone.Note = 43

	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var got Config
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Crank != CrankGeared || got.Output != OutputTrigger {
		t.Fatalf("modes lost in round trip: %+v", got)
	}
	if got.Voices.Drone.Note != 43 {
		t.Fatalf("drone note = %d, want 43", got.Voices.Drone.Note)
	}
	if got.Geared != cfg.Geared || got.Optical != cfg.Optical {
		t.Fatal("crank tuning lost in round trip")
	}
}
