package logging

import (
	"maps"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/bespoke-runtime/layout"
)

// Sink is the profiling collaborator: it implements layout.Profiler and
// keeps per-profile operation counts.
type Sink struct {
	profiles      *ProfileTable
	guardFailures map[layout.Index]uint64
	escalations   map[string]uint64
	observers     []Observer
	sampleRate    uint32
	candidates    uint64
	ops           uint64
	reaches       uint64
	mu            sync.RWMutex
	obsMu         sync.RWMutex
}

var _ layout.Profiler = (*Sink)(nil)

// Stats is a point-in-time copy of the sink's counters.
type Stats struct {
	GuardFailures map[layout.Index]uint64
	Escalations   map[string]uint64
	Profiles      int
	Ops           uint64
	Reaches       uint64
}

// NewSink creates a sink wrapping every sampleRate-th candidate array.
func NewSink(sampleRate uint32) *Sink {
	return &Sink{
		profiles:      NewProfileTable(),
		guardFailures: make(map[layout.Index]uint64),
		escalations:   make(map[string]uint64),
		sampleRate:    sampleRate,
	}
}

// NewProfile creates a profile for an allocation site.
func (s *Sink) NewProfile(site string) (ProfileID, error) {
	p, err := s.profiles.Create(site)
	if err != nil {
		return 0, err
	}
	s.notify(Event{Type: EventProfileCreated, Profile: p.ID})
	return p.ID, nil
}

// DropProfile forgets a profile.
func (s *Sink) DropProfile(id ProfileID) bool {
	s.mu.Lock()
	_, ok := s.profiles.Drop(id)
	s.mu.Unlock()
	if ok {
		s.notify(Event{Type: EventProfileDropped, Profile: id})
	}
	return ok
}

// Profile returns a copy of the profile with id.
func (s *Sink) Profile(id ProfileID) (Profile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles.Get(id)
	if !ok {
		return Profile{}, false
	}
	return *p, true
}

// Profiles returns copies of every live profile.
func (s *Sink) Profiles() []Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Profile
	s.profiles.Each(func(p *Profile) bool {
		out = append(out, *p)
		return true
	})
	return out
}

// SampleRate returns the current sample rate.
func (s *Sink) SampleRate() uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sampleRate
}

// SetSampleRate changes the sample rate. 0 disables wrapping.
func (s *Sink) SetSampleRate(rate uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sampleRate = rate
	s.candidates = 0
}

// shouldSample reports whether the next candidate array is wrapped.
func (s *Sink) shouldSample() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sampleRate == 0 {
		return false
	}
	s.candidates++
	return s.candidates%uint64(s.sampleRate) == 0
}

func (s *Sink) recordWrap(id ProfileID) {
	s.mu.Lock()
	if p, ok := s.profiles.Get(id); ok {
		p.Arrays++
	}
	s.mu.Unlock()
}

// RecordOp counts one operation on a logging array.
func (s *Sink) RecordOp(id ProfileID, arr uint32, op layout.Op, key layout.KeyKind) {
	s.mu.Lock()
	s.ops++
	if p, ok := s.profiles.Get(id); ok {
		p.Ops[op][key]++
	}
	s.mu.Unlock()
	s.notify(Event{Type: EventOp, Profile: id, Arr: arr, Op: op, Key: key})
}

// RecordGuardFailure counts a failed layout guard.
func (s *Sink) RecordGuardFailure(arr uint32, idx layout.Index, site uint64) {
	s.mu.Lock()
	s.guardFailures[idx]++
	s.mu.Unlock()
	Logger().Debug("layout guard failed",
		zap.Uint32("arr", arr),
		zap.Uint16("layout", uint16(idx)),
		zap.Uint64("site", site))
	s.notify(Event{Type: EventGuardFailure, Arr: arr, Layout: idx, Site: site})
}

// RecordSpecializationOutcome counts a logging array reaching the
// specialized code of its profile.
func (s *Sink) RecordSpecializationOutcome(profile uint32) {
	id := ProfileID(profile)
	s.mu.Lock()
	s.reaches++
	if p, ok := s.profiles.Get(id); ok {
		p.Reaches++
	}
	s.mu.Unlock()
	s.notify(Event{Type: EventReach, Profile: id})
}

// RecordEscalation counts an escalation by reason.
func (s *Sink) RecordEscalation(arr uint32, reason string) {
	s.mu.Lock()
	s.escalations[reason]++
	s.mu.Unlock()
	s.notify(Event{Type: EventEscalation, Arr: arr, Reason: reason})
}

func (s *Sink) recordProfileEscalation(id ProfileID) {
	s.mu.Lock()
	if p, ok := s.profiles.Get(id); ok {
		p.Escalations++
	}
	s.mu.Unlock()
}

// Snapshot copies the sink's counters.
func (s *Sink) Snapshot() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{
		GuardFailures: maps.Clone(s.guardFailures),
		Escalations:   maps.Clone(s.escalations),
		Profiles:      s.profiles.Len(),
		Ops:           s.ops,
		Reaches:       s.reaches,
	}
}

// Subscribe adds an observer.
func (s *Sink) Subscribe(o Observer) {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	s.observers = append(s.observers, o)
}

// Unsubscribe removes an observer.
func (s *Sink) Unsubscribe(o Observer) {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	for i, obs := range s.observers {
		if obs == o {
			s.observers = append(s.observers[:i], s.observers[i+1:]...)
			return
		}
	}
}

// Close drops every profile.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profiles.Close()
}

func (s *Sink) notify(e Event) {
	s.obsMu.RLock()
	defer s.obsMu.RUnlock()
	for _, o := range s.observers {
		o.OnEvent(e)
	}
}
