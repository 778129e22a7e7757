package rtms

import (
	"fmt"
	"sync"
)

// Handle identifies a live Session. It packs an arena slot index with the
// slot's generation, so a handle kept past Release never resolves again,
// even after the slot has been reused by a newer session.
type Handle uint64

func makeHandle(index, gen uint32) Handle { return Handle(uint64(index)<<32 | uint64(gen)) }

func (h Handle) index() uint32      { return uint32(h >> 32) }
func (h Handle) generation() uint32 { return uint32(h) }

func (h Handle) String() string {
	return fmt.Sprintf("%d:%d", h.index(), h.generation())
}

type registrySlot struct {
	gen     uint32
	session *Session
}

// registry maps native session pointers to their owning Session.
type registry struct {
	mu     sync.Mutex
	slots  []registrySlot
	free   []uint32
	native map[uintptr]Handle
}

func newRegistry() *registry {
	return &registry{native: make(map[uintptr]Handle)}
}

// sessions is the process-wide registry consulted by every trampoline.
var sessions = newRegistry()

// register binds a freshly allocated native pointer to s. The native
// allocator never hands out a live pointer twice, so a duplicate means the
// registry is corrupt and registration panics.
func (r *registry) register(native uintptr, s *Session) Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	if h, ok := r.native[native]; ok {
		panic(fmt.Sprintf("rtms: native session %#x already registered as %s", native, h))
	}

	var idx uint32
	if n := len(r.free); n > 0 {
		idx = r.free[n-1]
		r.free = r.free[:n-1]
	} else {
		idx = uint32(len(r.slots))
		r.slots = append(r.slots, registrySlot{gen: 1})
	}
	r.slots[idx].session = s
	h := makeHandle(idx, r.slots[idx].gen)
	r.native[native] = h
	return h
}

// lookup resolves the native pointer a trampoline received. A miss is the
// normal outcome for a session that is being torn down.
func (r *registry) lookup(native uintptr) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.native[native]
	if !ok {
		return nil, false
	}
	return r.resolveLocked(h)
}

// resolve validates h against the slot generation.
func (r *registry) resolve(h Handle) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resolveLocked(h)
}

func (r *registry) resolveLocked(h Handle) (*Session, bool) {
	idx := h.index()
	if int(idx) >= len(r.slots) {
		return nil, false
	}
	slot := r.slots[idx]
	if slot.gen != h.generation() || slot.session == nil {
		return nil, false
	}
	return slot.session, true
}

// unregister retires h and its native pointer. Unknown or stale handles are ignored.
func (r *registry) unregister(h Handle, native uintptr) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := h.index()
	if int(idx) >= len(r.slots) || r.slots[idx].gen != h.generation() || r.slots[idx].session == nil {
		return
	}
	r.slots[idx].session = nil
	r.slots[idx].gen++
	if r.slots[idx].gen == 0 {
		r.slots[idx].gen = 1
	}
	r.free = append(r.free, idx)
	if cur, ok := r.native[native]; ok && cur == h {
		delete(r.native, native)
	}
}

// count returns the number of live sessions.
func (r *registry) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.native)
}
