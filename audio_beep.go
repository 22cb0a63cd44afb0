package livewall

import (
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
)

// ErrNoVideoDecoder is returned by backends that cannot decode video.
var ErrNoVideoDecoder = errors.New("livewall: no video decoder available")

const resampleQuality = 4

// BeepBackend plays audio through the beep speaker. End and error events
// are posted to the scheduler, so they arrive on the loop goroutine. It has
// no video decoder; pair it with a Video implementation through
// MediaBackendFuncs when overlays are needed.
type BeepBackend struct {
	sched      *Scheduler
	sampleRate beep.SampleRate

	initOnce sync.Once
	initErr  error
}

// NewBeepBackend creates a backend mixing at sampleRate Hz.
func NewBeepBackend(sched *Scheduler, sampleRate int) *BeepBackend {
	if sampleRate <= 0 {
		sampleRate = 44100
	}
	return &BeepBackend{sched: sched, sampleRate: beep.SampleRate(sampleRate)}
}

func (b *BeepBackend) init() error {
	b.initOnce.Do(func() {
		b.initErr = speaker.Init(b.sampleRate, b.sampleRate.N(time.Second/10))
	})
	return b.initErr
}

// decode picks the decoder from the file extension.
func decode(f *os.File) (beep.StreamSeekCloser, beep.Format, error) {
	switch strings.ToLower(filepath.Ext(f.Name())) {
	case ".mp3":
		return mp3.Decode(f)
	case ".wav":
		return wav.Decode(f)
	case ".ogg":
		return vorbis.Decode(f)
	case ".flac":
		return flac.Decode(f)
	default:
		return nil, beep.Format{}, fmt.Errorf("unsupported audio format %q", filepath.Ext(f.Name()))
	}
}

// OpenAudio decodes path. The clip is ready as soon as it is returned.
func (b *BeepBackend) OpenAudio(path string) (Audio, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("livewall: open audio: %w", err)
	}
	stream, format, err := decode(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("livewall: decode %s: %w", filepath.Base(path), err)
	}
	return &beepClip{backend: b, path: path, stream: stream, format: format, volume: 1}, nil
}

// OpenVideo always fails.
func (b *BeepBackend) OpenVideo(path string) (Video, error) {
	return nil, fmt.Errorf("%w: %s", ErrNoVideoDecoder, filepath.Base(path))
}

// Close releases the speaker.
func (b *BeepBackend) Close() {
	if b.initErr == nil {
		speaker.Clear()
	}
}

// beepClip is one decoded clip. All methods run on the loop goroutine; the
// speaker lock guards the fields the mixer reads.
type beepClip struct {
	backend *BeepBackend
	path    string
	stream  beep.StreamSeekCloser
	format  beep.Format

	ctrl    *beep.Ctrl
	vol     *effects.Volume
	volume  float64
	loop    bool
	playing bool
	gen     int

	onEnded func()
	onError func(error)
}

func gainVolume(v float64) (float64, bool) {
	if v <= 0 {
		return 0, true
	}
	return math.Log2(v), false
}

func (c *beepClip) Play() error {
	if c.stream == nil {
		return fmt.Errorf("livewall: play %s: clip is closed", filepath.Base(c.path))
	}
	if err := c.backend.init(); err != nil {
		return fmt.Errorf("livewall: speaker: %w", err)
	}
	c.Stop()

	speaker.Lock()
	err := c.stream.Seek(0)
	speaker.Unlock()
	if err != nil {
		return fmt.Errorf("livewall: rewind %s: %w", filepath.Base(c.path), err)
	}

	var src beep.Streamer = c.stream
	if c.loop {
		looped, err := beep.Loop2(c.stream)
		if err != nil {
			return fmt.Errorf("livewall: loop %s: %w", filepath.Base(c.path), err)
		}
		src = looped
	}
	if c.format.SampleRate != c.backend.sampleRate {
		src = beep.Resample(resampleQuality, c.format.SampleRate, c.backend.sampleRate, src)
	}
	level, silent := gainVolume(c.volume)
	c.vol = &effects.Volume{Streamer: src, Base: 2, Volume: level, Silent: silent}
	c.ctrl = &beep.Ctrl{Streamer: c.vol}

	c.gen++
	gen := c.gen
	c.playing = true
	speaker.Play(beep.Seq(c.ctrl, beep.Callback(func() {
		streamErr := c.stream.Err()
		c.backend.sched.Post(func() {
			if c.gen != gen {
				return
			}
			c.playing = false
			if streamErr != nil {
				if c.onError != nil {
					c.onError(streamErr)
				}
				return
			}
			if c.onEnded != nil {
				c.onEnded()
			}
		})
	})))
	return nil
}

func (c *beepClip) Pause() {
	if c.ctrl == nil {
		return
	}
	speaker.Lock()
	c.ctrl.Paused = true
	speaker.Unlock()
}

func (c *beepClip) Resume() {
	if c.ctrl == nil {
		return
	}
	speaker.Lock()
	c.ctrl.Paused = false
	speaker.Unlock()
}

// Stop ends playback without an ended event.
func (c *beepClip) Stop() {
	c.gen++
	c.playing = false
	if c.ctrl == nil {
		return
	}
	speaker.Lock()
	c.ctrl.Streamer = nil
	speaker.Unlock()
	c.ctrl = nil
	c.vol = nil
}

func (c *beepClip) SetVolume(v float64) {
	c.volume = v
	if c.vol == nil {
		return
	}
	level, silent := gainVolume(v)
	speaker.Lock()
	c.vol.Volume = level
	c.vol.Silent = silent
	speaker.Unlock()
}

// SetLoop takes effect on the next Play.
func (c *beepClip) SetLoop(loop bool) { c.loop = loop }

func (c *beepClip) Ready() bool   { return c.stream != nil }
func (c *beepClip) Playing() bool { return c.playing }

func (c *beepClip) Duration() time.Duration {
	if c.stream == nil {
		return 0
	}
	return c.format.SampleRate.D(c.stream.Len())
}

// Close stops the clip and closes the decoder together with its file.
func (c *beepClip) Close() {
	c.Stop()
	if c.stream == nil {
		return
	}
	speaker.Lock()
	err := c.stream.Close()
	speaker.Unlock()
	c.stream = nil
	if err != nil {
		log.Printf("livewall: close %s: %v", filepath.Base(c.path), err)
	}
}

func (c *beepClip) OnEnded(fn func())      { c.onEnded = fn }
func (c *beepClip) OnError(fn func(error)) { c.onError = fn }

// MediaBackendFuncs adapts two functions to MediaBackend, so an audio
// backend can be combined with a separate video decoder.
type MediaBackendFuncs struct {
	Audio func(path string) (Audio, error)
	Video func(path string) (Video, error)
}

// OpenAudio implements MediaBackend.
func (m MediaBackendFuncs) OpenAudio(path string) (Audio, error) {
	if m.Audio == nil {
		return nil, fmt.Errorf("livewall: no audio decoder for %s", filepath.Base(path))
	}
	return m.Audio(path)
}

// OpenVideo implements MediaBackend.
func (m MediaBackendFuncs) OpenVideo(path string) (Video, error) {
	if m.Video == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoVideoDecoder, filepath.Base(path))
	}
	return m.Video(path)
}
