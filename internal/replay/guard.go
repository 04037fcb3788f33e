// Package replay detects stanza ids that were already processed.
package replay

import (
	"sync"
	"time"
)

const (
	numSlot = 16
)

// Clock is a scaled monotonic clock.
// It increments time by 1 every step nanoseconds.
type Clock struct {
	t0   time.Time
	step int64
}

// Init initializes the Clock.
// It errors if step <= 0
func (self *Clock) Init(step time.Duration) error {
	if step <= 0 {
		return newError("invalid step %d <= 0", step)
	}

	self.step = int64(step)
	self.t0 = time.Now()

	return nil
}

// T returns the number of step since Init was called.
func (self Clock) T() int64 {
	return time.Since(self.t0).Nanoseconds() / self.step
}

// slot holds the ids marked during clock tick t.
type slot struct {
	t    int64
	seen map[string]struct{}
}

// Guard remembers ids for a limited lifetime.
// An id is remembered for at least lifetime - lifetime/16 and less than lifetime.
type Guard struct {
	clock Clock
	mut   sync.Mutex
	slots [numSlot]slot
}

// NewGuard returns a Guard that forgets ids after lifetime.
// It errors if lifetime is shorter than 16ns.
func NewGuard(lifetime time.Duration) (*Guard, error) {
	rv := &Guard{}
	err := rv.clock.Init(lifetime / numSlot)
	if nil != err {
		return nil, newError("invalid lifetime %v", lifetime)
	}
	return rv, nil
}

// Seen returns true if id was marked and has not expired.
func (self *Guard) Seen(id string) bool {
	self.mut.Lock()
	defer self.mut.Unlock()

	return self.seen(self.clock.T(), id)
}

// Mark registers id.
func (self *Guard) Mark(id string) {
	self.mut.Lock()
	defer self.mut.Unlock()

	self.mark(self.clock.T(), id)
}

// Check returns an ErrReplayed error if id was already seen.
func (self *Guard) Check(id string) error {
	if self.Seen(id) {
		return flagError(ErrReplayed, "id %q already seen", id)
	}
	return nil
}

// Reserve marks id, it returns an ErrReplayed error if id was already seen.
// Lookup & mark happen under a single lock, of concurrent Reserve calls with the same id only 1 succeeds.
func (self *Guard) Reserve(id string) error {
	self.mut.Lock()
	defer self.mut.Unlock()

	now := self.clock.T()
	if self.seen(now, id) {
		return flagError(ErrReplayed, "id %q already seen", id)
	}
	self.mark(now, id)

	return nil
}

// Release forgets id, so that a failed attempt can be retried.
func (self *Guard) Release(id string) {
	self.mut.Lock()
	defer self.mut.Unlock()

	for pos := range self.slots {
		delete(self.slots[pos].seen, id)
	}
}

func (self *Guard) seen(now int64, id string) bool {
	for pos := range self.slots {
		slot := &self.slots[pos]
		if _, found := slot.seen[id]; found && now-slot.t < numSlot {
			return true
		}
	}
	return false
}

func (self *Guard) mark(now int64, id string) {
	slot := &self.slots[now%numSlot]
	if now != slot.t || nil == slot.seen {
		// slot contains expired ids
		slot.t = now
		slot.seen = make(map[string]struct{})
	}
	slot.seen[id] = struct{}{}
}
