package livewall

import "log"

// BackgroundMusic is the looping music track of a wallpaper. Pauses nest:
// the track resumes when every Pause has been matched by a Resume.
type BackgroundMusic struct {
	clip   Audio
	paused int
}

// NewBackgroundMusic opens cfg through media. It returns nil when no music is
// configured or the file cannot be opened.
func NewBackgroundMusic(cfg *MusicConfig, media MediaBackend, resolve func(string) string, gain float64) *BackgroundMusic {
	if cfg == nil || cfg.File == "" || media == nil {
		return nil
	}
	clip, err := media.OpenAudio(resolve(cfg.File))
	if err != nil {
		log.Printf("livewall: background music %q: %v", cfg.File, err)
		return nil
	}
	vol := 1.0
	if cfg.Volume != nil {
		vol = *cfg.Volume
	}
	loop := true
	if cfg.Loop != nil {
		loop = *cfg.Loop
	}
	clip.SetVolume(vol * gain)
	clip.SetLoop(loop)
	clip.OnError(func(err error) {
		log.Printf("livewall: background music %q: %v", cfg.File, err)
	})
	return &BackgroundMusic{clip: clip}
}

// Start begins playback.
func (m *BackgroundMusic) Start() {
	if m == nil {
		return
	}
	if err := m.clip.Play(); err != nil {
		log.Printf("livewall: background music: %v", err)
	}
}

// Pause implements MusicPlayer.
func (m *BackgroundMusic) Pause() {
	if m == nil {
		return
	}
	m.paused++
	if m.paused == 1 {
		m.clip.Pause()
	}
}

// Resume implements MusicPlayer.
func (m *BackgroundMusic) Resume() {
	if m == nil || m.paused == 0 {
		return
	}
	m.paused--
	if m.paused == 0 {
		m.clip.Resume()
	}
}

// Paused reports whether the track is held by at least one Pause.
func (m *BackgroundMusic) Paused() bool {
	return m != nil && m.paused > 0
}

// Close ends playback and releases the track.
func (m *BackgroundMusic) Close() {
	if m == nil {
		return
	}
	m.clip.Close()
}
