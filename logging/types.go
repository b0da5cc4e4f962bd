package logging

import "github.com/wippyai/bespoke-runtime/layout"

// ProfileID identifies a logging profile. ID 0 is reserved and always
// invalid.
type ProfileID uint32

// EventType classifies sink events.
type EventType uint8

const (
	EventProfileCreated EventType = iota
	EventProfileDropped
	EventOp
	EventReach
	EventGuardFailure
	EventEscalation
)

func (t EventType) String() string {
	switch t {
	case EventProfileCreated:
		return "profile-created"
	case EventProfileDropped:
		return "profile-dropped"
	case EventOp:
		return "op"
	case EventReach:
		return "reach"
	case EventGuardFailure:
		return "guard-failure"
	case EventEscalation:
		return "escalation"
	}
	return "unknown"
}

// Event is one recorded occurrence.
type Event struct {
	Reason  string
	Site    uint64
	Arr     uint32
	Profile ProfileID
	Layout  layout.Index
	Op      layout.Op
	Key     layout.KeyKind
	Type    EventType
}

// Observer receives sink events.
type Observer interface {
	OnEvent(Event)
}
