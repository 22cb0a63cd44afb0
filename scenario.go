package livewall

import (
	"encoding/json"
	"fmt"
	"log"
	"time"
)

// scenarioStep is a single action in a scenario script.
type scenarioStep struct {
	Action  string  `json:"action"`
	X       float64 `json:"x,omitempty"`
	Y       float64 `json:"y,omitempty"`
	ToX     float64 `json:"toX,omitempty"`
	ToY     float64 `json:"toY,omitempty"`
	Frames  int     `json:"frames,omitempty"`
	Ms      float64 `json:"ms,omitempty"`
	Seconds float64 `json:"seconds,omitempty"`
	Mesh    int     `json:"mesh,omitempty"`
	Label   string  `json:"label,omitempty"`
}

// scenarioScript is the top-level JSON structure of a scenario.
type scenarioScript struct {
	Steps []scenarioStep `json:"steps"`
}

// Scenario plays scripted input across frames: clicks, drags, waits, voice
// requests, wall-clock jumps, mesh switches and screenshots. Attach it with
// Runtime.SetScenario.
//
//	{"steps": [
//	  {"action": "click", "x": 960, "y": 400},
//	  {"action": "wait", "ms": 1500},
//	  {"action": "clock", "seconds": 60},
//	  {"action": "switch", "mesh": 1},
//	  {"action": "screenshot", "label": "night"}
//	]}
type Scenario struct {
	steps     []scenarioStep
	cursor    int
	waitCount int
	waitUntil time.Duration
	done      bool
}

// LoadScenario parses a JSON scenario.
func LoadScenario(jsonData []byte) (*Scenario, error) {
	var script scenarioScript
	if err := json.Unmarshal(jsonData, &script); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if len(script.Steps) == 0 {
		return nil, fmt.Errorf("parse scenario: no steps")
	}
	return &Scenario{steps: script.Steps}, nil
}

// Done reports whether every step has been executed.
func (s *Scenario) Done() bool {
	return s.done
}

// step advances the scenario by one frame. Called from Runtime.Step.
func (s *Scenario) step(r *Runtime) {
	if s.done {
		return
	}
	// Wait for pending injections to drain before advancing.
	if r.injectPending() {
		return
	}
	if s.waitCount > 0 {
		s.waitCount--
		return
	}
	if s.waitUntil > 0 {
		if r.sched.Now() < s.waitUntil {
			return
		}
		s.waitUntil = 0
	}
	if s.cursor >= len(s.steps) {
		s.done = true
		return
	}

	st := s.steps[s.cursor]
	s.cursor++

	switch st.Action {
	case "click":
		r.InjectClick(st.X, st.Y)
	case "drag":
		r.InjectDrag(st.X, st.Y, st.ToX, st.ToY, max(st.Frames, 2))
	case "wait":
		if st.Frames > 0 {
			s.waitCount = st.Frames - 1 // this frame counts as one
		}
		if st.Ms > 0 {
			s.waitUntil = r.sched.Now() + msDuration(st.Ms)
		}
	case "voice":
		if v := r.Voice(); v != nil {
			v.RequestVoiceAnimation()
		}
	case "dismiss":
		r.sequencer.Dismiss()
	case "clock":
		if c, ok := r.clock.(*ManualClock); ok {
			c.Advance(time.Duration(st.Seconds * float64(time.Second)))
		} else {
			log.Printf("livewall: scenario clock step needs a ManualClock")
		}
	case "screenshot":
		r.Screenshot(st.Label)
	case "switch":
		if err := r.SwitchMesh(st.Mesh); err != nil {
			log.Printf("livewall: scenario switch: %v", err)
		}
	default:
		log.Printf("livewall: scenario action %q unknown", st.Action)
	}

	if s.cursor >= len(s.steps) && s.waitCount == 0 && s.waitUntil == 0 && !r.injectPending() {
		s.done = true
	}
}
