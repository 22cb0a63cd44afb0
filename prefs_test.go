package livewall

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadPreferencesMissingFile(t *testing.T) {
	p, err := LoadPreferences(filepath.Join(t.TempDir(), "none.ini"))
	if err != nil {
		t.Fatalf("LoadPreferences: %v", err)
	}
	if p != DefaultPreferences() {
		t.Errorf("preferences = %+v, want defaults", p)
	}
}

func TestLoadPreferences(t *testing.T) {
	path := filepath.Join(t.TempDir(), "livewall.ini")
	doc := `
[audio]
master_volume = 0.5
voice_volume  = 2
music_volume  = -1
sample_rate   = 48000

[runtime]
tps             = 0
scan_interval   = 5
reload_interval = 500ms
debug           = true
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	p, err := LoadPreferences(path)
	if err != nil {
		t.Fatalf("LoadPreferences: %v", err)
	}
	want := Preferences{
		MasterVolume:   0.5,
		VoiceVolume:    1,
		EffectVolume:   1,
		MusicVolume:    0,
		SampleRate:     48000,
		TPS:            60,
		ScanInterval:   5,
		ReloadInterval: 500 * time.Millisecond,
		Debug:          true,
	}
	if p != want {
		t.Errorf("preferences = %+v, want %+v", p, want)
	}
	if got := p.Voice(); got != 0.5 {
		t.Errorf("Voice = %v, want 0.5", got)
	}
	if got := p.Music(); got != 0 {
		t.Errorf("Music = %v, want 0", got)
	}
}

func TestPreferencesSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "livewall.ini")
	p := DefaultPreferences()
	p.EffectVolume = 0.25
	p.ScanInterval = 3
	p.ReloadInterval = 5 * time.Second
	p.Debug = true
	if err := p.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := LoadPreferences(path)
	if err != nil {
		t.Fatalf("LoadPreferences: %v", err)
	}
	if got != p {
		t.Errorf("loaded = %+v, want %+v", got, p)
	}
	if e := got.Effect(); e != 0.25 {
		t.Errorf("Effect = %v, want 0.25", e)
	}
}
