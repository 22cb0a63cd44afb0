package livewall

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// writeWAV writes n frames of 16-bit mono silence at rate Hz.
func writeWAV(t *testing.T, path string, rate, n int) {
	t.Helper()
	data := make([]byte, 44+2*n)
	copy(data[0:], "RIFF")
	binary.LittleEndian.PutUint32(data[4:], uint32(36+2*n))
	copy(data[8:], "WAVEfmt ")
	binary.LittleEndian.PutUint32(data[16:], 16)
	binary.LittleEndian.PutUint16(data[20:], 1)
	binary.LittleEndian.PutUint16(data[22:], 1)
	binary.LittleEndian.PutUint32(data[24:], uint32(rate))
	binary.LittleEndian.PutUint32(data[28:], uint32(2*rate))
	binary.LittleEndian.PutUint16(data[32:], 2)
	binary.LittleEndian.PutUint16(data[34:], 16)
	copy(data[36:], "data")
	binary.LittleEndian.PutUint32(data[40:], uint32(2*n))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestBeepBackendOpenAudio(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "beep.wav")
	writeWAV(t, path, 8000, 4000)

	b := NewBeepBackend(NewScheduler(), 0)
	a, err := b.OpenAudio(path)
	if err != nil {
		t.Fatalf("OpenAudio: %v", err)
	}
	if !a.Ready() || a.Playing() {
		t.Errorf("Ready = %v, Playing = %v, want true, false", a.Ready(), a.Playing())
	}
	if got := a.Duration(); got != 500*time.Millisecond {
		t.Errorf("Duration = %v, want 500ms", got)
	}
	a.SetVolume(0.5)
	a.Stop()
	a.Close()
	a.Close()
	if a.Ready() || a.Duration() != 0 {
		t.Errorf("after Close Ready = %v, Duration = %v, want false, 0", a.Ready(), a.Duration())
	}
	if err := a.Play(); err == nil {
		t.Error("Play after Close = nil error")
	}

	if _, err := b.OpenAudio(filepath.Join(dir, "nope.wav")); err == nil {
		t.Error("OpenAudio of a missing file = nil error")
	}
	other := filepath.Join(dir, "clip.aiff")
	if err := os.WriteFile(other, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := b.OpenAudio(other); err == nil {
		t.Error("OpenAudio of an unsupported format = nil error")
	}
	if _, err := b.OpenVideo("clip.mp4"); !errors.Is(err, ErrNoVideoDecoder) {
		t.Errorf("OpenVideo err = %v, want ErrNoVideoDecoder", err)
	}
}

func TestGainVolume(t *testing.T) {
	tests := []struct {
		v      float64
		gain   float64
		silent bool
	}{
		{1, 0, false},
		{0.5, -1, false},
		{2, 1, false},
		{0, 0, true},
		{-1, 0, true},
	}
	for _, tt := range tests {
		gain, silent := gainVolume(tt.v)
		if gain != tt.gain || silent != tt.silent {
			t.Errorf("gainVolume(%v) = %v, %v, want %v, %v", tt.v, gain, silent, tt.gain, tt.silent)
		}
	}
}

func TestMediaBackendFuncs(t *testing.T) {
	var m MediaBackendFuncs
	if _, err := m.OpenAudio("a.mp3"); err == nil {
		t.Error("OpenAudio without a decoder = nil error")
	}
	if _, err := m.OpenVideo("v.mp4"); !errors.Is(err, ErrNoVideoDecoder) {
		t.Errorf("OpenVideo err = %v, want ErrNoVideoDecoder", err)
	}
	opened := ""
	m.Audio = func(path string) (Audio, error) {
		opened = path
		return &fakeAudio{path: path}, nil
	}
	if _, err := m.OpenAudio("a.mp3"); err != nil || opened != "a.mp3" {
		t.Errorf("OpenAudio = %v, opened %q", err, opened)
	}
}
