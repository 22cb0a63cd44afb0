package livewall

// Signal is a runtime-wide broadcast.
type Signal uint8

const (
	SignalOverlayActive   Signal = iota // a full-screen overlay started
	SignalOverlayInactive               // the overlay and all of its media finished
	SignalMeshSwitched                  // a new mesh instance is live
)

type signalHandler struct {
	id uint32
	fn func(Signal)
}

// Signals is a small synchronous event bus. Components receive it at
// construction time instead of reaching for globals.
type Signals struct {
	handlers []signalHandler
	nextID   uint32
}

// NewSignals creates an empty bus.
func NewSignals() *Signals {
	return &Signals{}
}

// SignalHandle allows removing a subscription.
type SignalHandle struct {
	id  uint32
	bus *Signals
}

// Subscribe registers fn for every emitted signal.
func (s *Signals) Subscribe(fn func(Signal)) SignalHandle {
	s.nextID++
	s.handlers = append(s.handlers, signalHandler{id: s.nextID, fn: fn})
	return SignalHandle{id: s.nextID, bus: s}
}

// Remove unregisters the subscription. Removing twice is a no-op.
func (h SignalHandle) Remove() {
	if h.bus == nil {
		return
	}
	s := h.bus.handlers
	for i := range s {
		if s[i].id == h.id {
			copy(s[i:], s[i+1:])
			s[len(s)-1] = signalHandler{}
			h.bus.handlers = s[:len(s)-1]
			return
		}
	}
}

// Emit calls every handler in subscription order. Handlers subscribed during
// Emit are not called for this signal. Emitting on a nil bus does nothing.
func (s *Signals) Emit(sig Signal) {
	if s == nil {
		return
	}
	handlers := append([]signalHandler(nil), s.handlers...)
	for _, h := range handlers {
		h.fn(sig)
	}
}
