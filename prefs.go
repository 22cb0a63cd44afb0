package livewall

import (
	"fmt"
	"strconv"
	"time"

	"gopkg.in/ini.v1"
)

// Preferences are machine-local settings kept next to the configuration
// document in an INI file:
//
//	[audio]
//	master_volume = 1
//	voice_volume  = 1
//	effect_volume = 1
//	music_volume  = 0.6
//	sample_rate   = 44100
//
//	[runtime]
//	tps             = 60
//	scan_interval   = 10
//	reload_interval = 2s
//	debug           = false
type Preferences struct {
	MasterVolume float64
	VoiceVolume  float64
	EffectVolume float64
	MusicVolume  float64
	SampleRate   int

	TPS            int
	ScanInterval   int
	ReloadInterval time.Duration
	Debug          bool
}

// DefaultPreferences returns the settings used when no file exists.
func DefaultPreferences() Preferences {
	return Preferences{
		MasterVolume:   1,
		VoiceVolume:    1,
		EffectVolume:   1,
		MusicVolume:    0.6,
		SampleRate:     44100,
		TPS:            60,
		ScanInterval:   defaultScanInterval,
		ReloadInterval: 2 * time.Second,
	}
}

// LoadPreferences reads path over the defaults. A missing file is not an
// error.
func LoadPreferences(path string) (Preferences, error) {
	p := DefaultPreferences()
	f, err := ini.LoadSources(ini.LoadOptions{
		Loose:                   true,
		SkipUnrecognizableLines: true,
	}, path)
	if err != nil {
		return p, fmt.Errorf("livewall: read preferences: %w", err)
	}
	audio := f.Section("audio")
	p.MasterVolume = clampUnit(audio.Key("master_volume").MustFloat64(p.MasterVolume))
	p.VoiceVolume = clampUnit(audio.Key("voice_volume").MustFloat64(p.VoiceVolume))
	p.EffectVolume = clampUnit(audio.Key("effect_volume").MustFloat64(p.EffectVolume))
	p.MusicVolume = clampUnit(audio.Key("music_volume").MustFloat64(p.MusicVolume))
	p.SampleRate = audio.Key("sample_rate").MustInt(p.SampleRate)

	rt := f.Section("runtime")
	p.TPS = rt.Key("tps").MustInt(p.TPS)
	p.ScanInterval = rt.Key("scan_interval").MustInt(p.ScanInterval)
	p.ReloadInterval = rt.Key("reload_interval").MustDuration(p.ReloadInterval)
	p.Debug = rt.Key("debug").MustBool(p.Debug)
	if p.TPS < 1 {
		p.TPS = 60
	}
	if p.ScanInterval < 1 {
		p.ScanInterval = 1
	}
	return p, nil
}

// Save writes the preferences to path.
func (p Preferences) Save(path string) error {
	f := ini.Empty()
	audio := f.Section("audio")
	audio.Key("master_volume").SetValue(formatFloat(p.MasterVolume))
	audio.Key("voice_volume").SetValue(formatFloat(p.VoiceVolume))
	audio.Key("effect_volume").SetValue(formatFloat(p.EffectVolume))
	audio.Key("music_volume").SetValue(formatFloat(p.MusicVolume))
	audio.Key("sample_rate").SetValue(strconv.Itoa(p.SampleRate))

	rt := f.Section("runtime")
	rt.Key("tps").SetValue(strconv.Itoa(p.TPS))
	rt.Key("scan_interval").SetValue(strconv.Itoa(p.ScanInterval))
	rt.Key("reload_interval").SetValue(p.ReloadInterval.String())
	rt.Key("debug").SetValue(strconv.FormatBool(p.Debug))
	if err := f.SaveTo(path); err != nil {
		return fmt.Errorf("livewall: write preferences: %w", err)
	}
	return nil
}

// Voice is the gain applied to animation voices.
func (p Preferences) Voice() float64 { return p.MasterVolume * p.VoiceVolume }

// Effect is the gain applied to special-effect and overlay audio.
func (p Preferences) Effect() float64 { return p.MasterVolume * p.EffectVolume }

// Music is the gain applied to background music.
func (p Preferences) Music() float64 { return p.MasterVolume * p.MusicVolume }

func clampUnit(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
