// Package assist implements the AI writing assistant: it builds an
// instruction, asks the completion proxy for text, falls back to offline
// phrases when that fails, and writes the result into the targeted field.
package assist

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrBusy is returned when a generation is already in flight.
	ErrBusy = errors.New("assist: a generation is already in progress")
	// ErrInvalidTarget is returned for targets other than the summary or an experience entry.
	ErrInvalidTarget = errors.New("assist: invalid target")
)

// Kind names the field kinds the assistant can write.
type Kind string

// Target kinds
const (
	KindSummary    Kind = "summary"
	KindExperience Kind = "experience"
)

// Target identifies the summary or one experience entry's description.
type Target struct {
	Kind Kind   `json:"kind"`
	ID   string `json:"id,omitempty"`
}

// Validate checks the target shape. Experience targets need an entry id.
func (t Target) Validate() error {
	switch t.Kind {
	case KindSummary:
		return nil
	case KindExperience:
		if strings.TrimSpace(t.ID) == "" {
			return fmt.Errorf("%w: experience target needs an entry id", ErrInvalidTarget)
		}
		return nil
	}
	return fmt.Errorf("%w: unknown kind %q", ErrInvalidTarget, t.Kind)
}

// State is the controller's position in its request cycle.
type State int

// Controller states
const (
	StateIdle State = iota
	StateRequesting
	StateSuccess
	StateFallback
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRequesting:
		return "requesting"
	case StateSuccess:
		return "success"
	case StateFallback:
		return "fallback"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// MarshalText renders the state by name in JSON.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Source says where generated text came from.
type Source string

// Text sources
const (
	SourceAI       Source = "ai"
	SourceFallback Source = "fallback"
)

// Result describes a finished generation.
type Result struct {
	Text   string `json:"text"`
	Source Source `json:"source"`
	// Applied is false when the target entry was removed while the request
	// was in flight and the write was dropped.
	Applied  bool   `json:"applied"`
	Revision uint64 `json:"revision"`
}
