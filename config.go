package livewall

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

var (
	// ErrNoMeshes is returned when a configuration defines no mesh.
	ErrNoMeshes = errors.New("livewall: configuration has no meshes")
	// ErrMeshIndex is returned for a mesh index outside the mesh list.
	ErrMeshIndex = errors.New("livewall: mesh index out of range")
	// ErrMissingSkeleton is returned when a mesh has no skeleton file.
	ErrMissingSkeleton = errors.New("livewall: mesh has no skeleton")
)

// disabledAlarmOffset marks a disabled time-of-day trigger: the stored value
// is the target second plus this offset.
const disabledAlarmOffset = 100000

// Config is the wallpaper configuration document.
type Config struct {
	Canvas               CanvasConfig         `json:"canvas"`
	BackgroundMusic      *MusicConfig         `json:"backgroundMusic,omitempty"`
	Notes                []Note               `json:"notes,omitempty"`
	SpecialEffectLibrary SpecialEffectLibrary `json:"specialEffectLibrary,omitempty"`
	CurrentMeshIndex     int                  `json:"currentMeshIndex"`
	Meshes               []MeshConfig         `json:"meshes"`

	// Dir is the directory media paths are resolved against.
	Dir string `json:"-"`
	// Path is the file the document was read from, if any.
	Path string `json:"-"`

	raw []byte
}

// CanvasConfig describes the drawing surface and the background image.
type CanvasConfig struct {
	Width                int    `json:"width"`
	Height               int    `json:"height"`
	Background           string `json:"background"`
	Alignment            string `json:"alignment"`
	BackgroundTransition int    `json:"backgroundTransition"` // ms
}

// MusicConfig is the looping background music track.
type MusicConfig struct {
	File   string   `json:"file"`
	Volume *float64 `json:"volume,omitempty"`
	Loop   *bool    `json:"loop,omitempty"`
}

// Note is a sticky-note entry. The runtime only carries notes; drawing them
// belongs to the note widget.
type Note struct {
	Visible         bool    `json:"visible"`
	BackgroundImage string  `json:"backgroundImage"`
	Text            string  `json:"text"`
	Scale           float64 `json:"scale"`
}

// MeshConfig is one animation instance.
type MeshConfig struct {
	Name     string    `json:"name"`
	Skeleton string    `json:"skeleton"`
	Atlas    string    `json:"atlas"`
	Position Placement `json:"position"`
	Scale    float64   `json:"scale"`

	Animations    []AnimationVariant `json:"animations"`
	HiddenSlots   []string           `json:"hiddenSlots,omitempty"`
	SlotHideRules []SlotHideRule     `json:"slotHideRules,omitempty"`
	VoiceSlots    []string           `json:"voiceSlots,omitempty"`
	PointEffects  []PointEffect      `json:"pointEffects,omitempty"`

	Videos                []OverlayMediaItem     `json:"videos,omitempty"`
	SpecialEffectTriggers []SpecialEffectTrigger `json:"specialEffectTriggers,omitempty"`
}

// Placement returns the screen placement of the mesh.
func (m MeshConfig) Placement() Placement {
	p := m.Position
	p.Scale = m.Scale
	if p.Scale == 0 {
		p.Scale = 1
	}
	return p
}

// AnimationVariant is one selectable animation with an optional voice clip.
type AnimationVariant struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
	Voice  string  `json:"voice,omitempty"`
}

// SlotHideRule hides a slot when it is clicked. RestoreAfter (ms) schedules
// an automatic Show; 0 keeps it hidden until a trigger restores it.
type SlotHideRule struct {
	Slot         string `json:"slot"`
	RestoreAfter int    `json:"restoreAfter,omitempty"`
}

// PointEffect is one click-spawned image.
type PointEffect struct {
	ImageFileName string  `json:"imageFileName"`
	Weight        float64 `json:"weight"`
	Scale         float64 `json:"scale"`
	Duration      int     `json:"duration"` // ms the token holds before fading out
	Animation     string  `json:"animation,omitempty"`
}

// CountTarget requires exactly Count visible tokens of an image.
type CountTarget struct {
	ImageFileName string `json:"imageFileName"`
	Count         int    `json:"count"`
}

// CumulativeTarget requires a counter to reach Count. ID is an image file
// name or "effect:<libraryIndex>".
type CumulativeTarget struct {
	ID    string `json:"id"`
	Count int    `json:"count"`
}

// TriggerConditions are shared by overlay items and special-effect triggers.
// A rule with no condition never fires.
type TriggerConditions struct {
	ClickSlots           StringList         `json:"clickSlots,omitempty"`
	HiddenSlots          StringList         `json:"hiddenSlots,omitempty"`
	ActivePointEffects   StringList         `json:"activePointEffects,omitempty"`
	PointEffectCounts    []CountTarget      `json:"pointEffectCounts,omitempty"`
	CumulativeCounts     []CumulativeTarget `json:"cumulativeCounts,omitempty"`
	TriggerAtSecondOfDay *SecondOfDay       `json:"triggerAtSecondOfDay,omitempty"`
	Random               bool               `json:"random,omitempty"`
}

// OverlayMediaItem is a full-screen video rule.
type OverlayMediaItem struct {
	TriggerConditions

	Video                string   `json:"video,omitempty"`
	Videos               []string `json:"videos,omitempty"`
	Audio                string   `json:"audio,omitempty"`
	Volume               *float64 `json:"volume,omitempty"`
	Loop                 bool     `json:"loop,omitempty"`
	Muted                bool     `json:"muted,omitempty"`
	PauseBackgroundMusic bool     `json:"pauseBackgroundMusic,omitempty"`
	SwitchToMesh         *int     `json:"switchToMesh,omitempty"`
}

// SpecialEffectTrigger plays library effects when its conditions hold.
type SpecialEffectTrigger struct {
	TriggerConditions

	EffectIndices IndexList `json:"effectIndices"`
}

// StringList accepts either a JSON string or an array of strings.
type StringList []string

// UnmarshalJSON implements json.Unmarshaler.
func (l *StringList) UnmarshalJSON(b []byte) error {
	r := gjson.ParseBytes(b)
	switch {
	case r.Type == gjson.Null:
		*l = nil
	case r.Type == gjson.String:
		if r.Str == "" {
			*l = nil
		} else {
			*l = StringList{r.Str}
		}
	case r.IsArray():
		out := StringList{}
		r.ForEach(func(_, v gjson.Result) bool {
			if s := v.String(); s != "" {
				out = append(out, s)
			}
			return true
		})
		*l = out
	default:
		return fmt.Errorf("livewall: expected string or string list, got %s", r.Raw)
	}
	return nil
}

// SecondOfDay is a time-of-day target. The document may store it as a
// number or a numeric string; values of 100000 and above are disabled alarms.
type SecondOfDay struct {
	Value int
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *SecondOfDay) UnmarshalJSON(b []byte) error {
	r := gjson.ParseBytes(b)
	switch r.Type {
	case gjson.Number:
		s.Value = int(r.Int())
	case gjson.String:
		v, err := strconv.Atoi(strings.TrimSpace(r.Str))
		if err != nil {
			return fmt.Errorf("livewall: triggerAtSecondOfDay %q: %w", r.Str, err)
		}
		s.Value = v
	default:
		return fmt.Errorf("livewall: triggerAtSecondOfDay must be a number, got %s", r.Raw)
	}
	return nil
}

// MarshalJSON writes the value back as the string form the editor uses.
func (s SecondOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.Itoa(s.Value))
}

// Target returns the target second and whether the alarm is enabled.
func (s SecondOfDay) Target() (int, bool) {
	if s.Value >= disabledAlarmOffset {
		return s.Value - disabledAlarmOffset, false
	}
	return s.Value, s.Value >= 0
}

// IndexList is the effectIndices field: a list whose entries are library
// indices or lists of library indices. Every entry is stored as a group; a
// bare index is a group of one.
type IndexList struct {
	Groups [][]int
	// Nested is true when at least one entry was written as a list.
	Nested bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (l *IndexList) UnmarshalJSON(b []byte) error {
	r := gjson.ParseBytes(b)
	*l = IndexList{}
	if r.Type == gjson.Null {
		return nil
	}
	if r.Type == gjson.Number {
		l.Groups = [][]int{{int(r.Int())}}
		return nil
	}
	if !r.IsArray() {
		return fmt.Errorf("livewall: effectIndices must be a list, got %s", r.Raw)
	}
	var err error
	r.ForEach(func(_, v gjson.Result) bool {
		switch {
		case v.Type == gjson.Number:
			l.Groups = append(l.Groups, []int{int(v.Int())})
		case v.IsArray():
			l.Nested = true
			var g []int
			v.ForEach(func(_, iv gjson.Result) bool {
				if iv.Type != gjson.Number {
					err = fmt.Errorf("livewall: effectIndices entry %s is not a number", iv.Raw)
					return false
				}
				g = append(g, int(iv.Int()))
				return true
			})
			if len(g) > 0 {
				l.Groups = append(l.Groups, g)
			}
		default:
			err = fmt.Errorf("livewall: effectIndices entry %s is not a number or list", v.Raw)
		}
		return err == nil
	})
	return err
}

// MarshalJSON writes flat lists as ints and nested lists as arrays.
func (l IndexList) MarshalJSON() ([]byte, error) {
	out := make([]any, 0, len(l.Groups))
	for _, g := range l.Groups {
		if !l.Nested && len(g) == 1 {
			out = append(out, g[0])
		} else {
			out = append(out, g)
		}
	}
	return json.Marshal(out)
}

// Flatten returns every index in order.
func (l IndexList) Flatten() []int {
	var out []int
	for _, g := range l.Groups {
		out = append(out, g...)
	}
	return out
}

// LoadConfig reads and parses a configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("livewall: read config: %w", err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, err
	}
	cfg.Path = path
	cfg.Dir = filepath.Dir(path)
	return cfg, nil
}

// ParseConfig decodes a configuration document and validates it.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("livewall: parse config: %w", err)
	}
	cfg.raw = append([]byte(nil), data...)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the invariants the runtime relies on.
func (c *Config) Validate() error {
	if len(c.Meshes) == 0 {
		return ErrNoMeshes
	}
	if c.CurrentMeshIndex < 0 || c.CurrentMeshIndex >= len(c.Meshes) {
		return fmt.Errorf("%w: currentMeshIndex %d with %d meshes", ErrMeshIndex, c.CurrentMeshIndex, len(c.Meshes))
	}
	return nil
}

// Raw returns the document bytes the configuration was parsed from.
func (c *Config) Raw() []byte {
	return c.raw
}

// Mesh returns the mesh at index i.
func (c *Config) Mesh(i int) (MeshConfig, error) {
	if i < 0 || i >= len(c.Meshes) {
		return MeshConfig{}, fmt.Errorf("%w: %d of %d", ErrMeshIndex, i, len(c.Meshes))
	}
	return c.Meshes[i], nil
}

// resolve joins a media path with the configuration directory.
func (c *Config) resolve(name string) string {
	if name == "" || filepath.IsAbs(name) || c.Dir == "" {
		return name
	}
	return filepath.Join(c.Dir, name)
}

// msDuration converts a millisecond configuration value.
func msDuration(ms float64) time.Duration {
	if ms <= 0 {
		return 0
	}
	return time.Duration(ms * float64(time.Millisecond))
}
