package livewall

import (
	"context"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
)

// The interfaces in this file are the collaborators the runtime drives but
// does not implement: the skeletal animation engine, the background renderer
// and the media decoders.

// Attachment is the renderable content currently bound to a slot.
type Attachment interface {
	Name() string
}

// Slot is one named region of a skeleton.
type Slot interface {
	Name() string
	Attachment() Attachment
	SetAttachment(a Attachment)
	Alpha() float64
	SetAlpha(a float64)
	// DefaultAttachment resolves the attachment of the slot's setup pose,
	// or nil when the setup pose has none.
	DefaultAttachment() Attachment
	// ClearDefaultAttachment removes the attachment from the setup pose so
	// no later pose reset can bring it back.
	ClearDefaultAttachment()
	// WorldVertices returns the slot's current quad in skeleton space as
	// x,y pairs, or nil if the slot renders nothing.
	WorldVertices() []float64
}

// AnimationEventKind identifies a track entry lifecycle event.
type AnimationEventKind uint8

const (
	AnimationStart     AnimationEventKind = iota // entry became the current entry of its track
	AnimationComplete                            // entry finished one full loop
	AnimationInterrupt                           // entry was replaced before finishing
	AnimationEnd                                 // entry will not be applied again
)

// AnimationEvent is delivered by the skeleton on the loop goroutine, from
// inside Skeleton.Update or a Set/Add call.
type AnimationEvent struct {
	Kind  AnimationEventKind
	Track int
	Name  string
}

// Skeleton is one loaded animation instance.
type Skeleton interface {
	// SetAnimation replaces the track's current entry and clears its queue.
	SetAnimation(track int, name string, loop bool)
	// AddAnimation queues an entry that starts after delay seconds once the
	// current entry completes, cross-fading into it.
	AddAnimation(track int, name string, loop bool, delay float64)
	// ClearQueue drops queued entries without touching the current one.
	ClearQueue(track int)
	HasAnimation(name string) bool
	FindSlot(name string) Slot
	Slots() []Slot
	// SetListener installs the single event listener.
	SetListener(fn func(AnimationEvent))
	// Update advances animation time and applies the pose.
	Update(dt float64)
	Draw(dst *ebiten.Image, p Placement)
	Dispose()
}

// SkeletonLoader builds skeletons from mesh configuration. Load may block on
// disk or GPU work; the runtime calls it off the loop goroutine.
type SkeletonLoader interface {
	Load(ctx context.Context, mesh MeshConfig) (Skeleton, error)
}

// Renderer draws the background scene.
type Renderer interface {
	RenderFrame(dst *ebiten.Image)
	PauseGPU()
	ResumeGPU()
	Resize(w, h int)
	SetBackground(path string, transition time.Duration)
}

// Audio is one playable clip. Ended and error callbacks must be delivered on
// the loop goroutine (backends use Scheduler.Post).
type Audio interface {
	Play() error
	Pause()
	Resume()
	Stop()
	SetVolume(v float64)
	SetLoop(loop bool)
	// Ready reports whether the clip is decoded and able to start.
	Ready() bool
	Playing() bool
	// Duration is the clip length, or 0 when unknown.
	Duration() time.Duration
	OnEnded(fn func())
	OnError(fn func(error))
	// Close stops the clip and releases its decoder. A closed clip is never
	// ready again. Close may be called more than once.
	Close()
}

// BufferState is a video's buffering report.
type BufferState struct {
	Ahead          time.Duration // buffered media ahead of the playhead
	Fraction       float64       // buffered share of the whole clip, 0..1
	CanPlayThrough bool          // decoder believes playback will not stall
}

// Video is a full-screen clip.
type Video interface {
	Audio
	SetMuted(muted bool)
	Buffer() BufferState
	// Frame returns the current frame, or nil before the first one.
	Frame() *ebiten.Image
	// Detach releases the element; a detached video never draws again.
	Detach()
	Attached() bool
}

// MediaBackend opens media files relative to the configuration directory.
type MediaBackend interface {
	OpenAudio(path string) (Audio, error)
	OpenVideo(path string) (Video, error)
}
