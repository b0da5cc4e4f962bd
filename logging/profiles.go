package logging

import (
	"sync"

	"github.com/wippyai/bespoke-runtime/errors"
	"github.com/wippyai/bespoke-runtime/layout"
)

// Profile accumulates the traffic observed at one allocation site.
type Profile struct {
	Site          string
	Ops           [layout.NumOps][layout.NumKeyKinds]uint64
	Reaches       uint64
	Escalations   uint64
	GuardFailures uint64
	Arrays        uint64
	ID            ProfileID
}

// Total returns the number of operations recorded for op over all key kinds.
func (p *Profile) Total(op layout.Op) uint64 {
	var n uint64
	for _, c := range p.Ops[op] {
		n += c
	}
	return n
}

// ProfileTable maps profile ids to profiles, reusing freed ids.
type ProfileTable struct {
	entries  []profileEntry
	freeList []ProfileID
	mu       sync.RWMutex
	closed   bool
}

type profileEntry struct {
	profile *Profile
	valid   bool
}

// NewProfileTable creates an empty table.
func NewProfileTable() *ProfileTable {
	return &ProfileTable{
		entries:  make([]profileEntry, 0, 64),
		freeList: make([]ProfileID, 0, 16),
	}
}

// Create allocates a profile for site.
func (t *ProfileTable) Create(site string) (*Profile, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, errors.New(errors.PhaseRuntime, errors.KindNotInitialized).
			Detail("profile table closed").
			Build()
	}

	p := &Profile{Site: site}
	if len(t.freeList) > 0 {
		id := t.freeList[len(t.freeList)-1]
		t.freeList = t.freeList[:len(t.freeList)-1]
		p.ID = id
		t.entries[id-1] = profileEntry{profile: p, valid: true}
		return p, nil
	}

	t.entries = append(t.entries, profileEntry{profile: p, valid: true})
	p.ID = ProfileID(len(t.entries))
	return p, nil
}

// Get returns the profile with id.
func (t *ProfileTable) Get(id ProfileID) (*Profile, bool) {
	if id == 0 {
		return nil, false
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	idx := id - 1
	if int(idx) >= len(t.entries) || !t.entries[idx].valid {
		return nil, false
	}
	return t.entries[idx].profile, true
}

// Drop removes a profile. Its id may be handed out again.
func (t *ProfileTable) Drop(id ProfileID) (*Profile, bool) {
	if id == 0 {
		return nil, false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	idx := id - 1
	if int(idx) >= len(t.entries) || !t.entries[idx].valid {
		return nil, false
	}
	p := t.entries[idx].profile
	t.entries[idx] = profileEntry{}
	t.freeList = append(t.freeList, id)
	return p, true
}

// Len returns the number of live profiles.
func (t *ProfileTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries) - len(t.freeList)
}

// Each calls fn for every live profile in id order until fn returns false.
func (t *ProfileTable) Each(fn func(*Profile) bool) {
	t.mu.RLock()
	live := make([]*Profile, 0, len(t.entries))
	for _, e := range t.entries {
		if e.valid {
			live = append(live, e.profile)
		}
	}
	t.mu.RUnlock()

	for _, p := range live {
		if !fn(p) {
			return
		}
	}
}

// Close drops every profile and rejects further creation.
func (t *ProfileTable) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true
	t.entries = nil
	t.freeList = nil
	return nil
}
