package ws

import (
	"container/list"
	"sync"
)

// Key identifies one live socket.
type Key struct {
	ChatID   int64
	UserID   int64
	DeviceID string
}

// Member is one (user, device) pair connected to a chat.
type Member struct {
	UserID   int64
	DeviceID string
}

// Conn is a send-capable handle to a live connection. Implementations
// serialize their own writes.
type Conn interface {
	Write(payload []byte) error
	Close() error
}

type entry struct {
	key  Key
	conn Conn
	freq int
	elem *list.Element
}

// Registry is a capacity-bounded set of live connections with a per-chat
// index. When full, the least frequently used entry is evicted; ties go to
// the entry that reached that frequency first.
//
// minFreq is exact whenever the registry is full. Only an insert can fill it,
// every insert resets minFreq to 1, and touch keeps it exact. A removal may
// leave it pointing at an empty bucket, but the registry is then below
// capacity and the next insert resets it before any eviction. Every
// operation is O(1).
type Registry struct {
	mu       sync.Mutex
	capacity int
	entries  map[Key]*entry
	buckets  map[int]*list.List
	minFreq  int
	chats    map[int64]map[Member]struct{}
}

func NewRegistry(capacity int) *Registry {
	if capacity < 1 {
		capacity = 1
	}
	return &Registry{
		capacity: capacity,
		entries:  make(map[Key]*entry),
		buckets:  make(map[int]*list.List),
		chats:    make(map[int64]map[Member]struct{}),
	}
}

// Register stores conn under key. It returns the handle that was pushed out,
// either the previous handle for the same key or an evicted entry, so the
// caller can close it outside the lock.
func (r *Registry) Register(key Key, conn Conn) (displaced Conn, displacedKey Key) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[key]; ok {
		old := e.conn
		e.conn = conn
		r.touch(e)
		if old == conn {
			return nil, Key{}
		}
		return old, key
	}

	if len(r.entries) >= r.capacity {
		victim := r.victim()
		r.remove(victim)
		displaced, displacedKey = victim.conn, victim.key
	}

	e := &entry{key: key, conn: conn, freq: 1}
	e.elem = r.bucket(1).PushBack(e)
	r.entries[key] = e
	r.minFreq = 1

	devices := r.chats[key.ChatID]
	if devices == nil {
		devices = make(map[Member]struct{})
		r.chats[key.ChatID] = devices
	}
	devices[Member{UserID: key.UserID, DeviceID: key.DeviceID}] = struct{}{}
	return displaced, displacedKey
}

// Unregister drops key. It reports whether anything was removed.
func (r *Registry) Unregister(key Key) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[key]
	if !ok {
		return false
	}
	r.remove(e)
	return true
}

// Remove drops key only while it still maps to conn, so a stale session
// cannot unregister the socket that replaced it.
func (r *Registry) Remove(key Key, conn Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[key]
	if !ok || e.conn != conn {
		return false
	}
	r.remove(e)
	return true
}

// Lookup returns the handle for key and counts the access as a use.
func (r *Registry) Lookup(key Key) (Conn, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[key]
	if !ok {
		return nil, false
	}
	r.touch(e)
	return e.conn, true
}

// Drain empties the registry and returns every handle it held.
func (r *Registry) Drain() []Conn {
	r.mu.Lock()
	defer r.mu.Unlock()

	conns := make([]Conn, 0, len(r.entries))
	for _, e := range r.entries {
		conns = append(conns, e.conn)
	}
	r.entries = make(map[Key]*entry)
	r.buckets = make(map[int]*list.List)
	r.chats = make(map[int64]map[Member]struct{})
	r.minFreq = 0
	return conns
}

// ConnectedDevices returns a copy of the devices live in chatID.
func (r *Registry) ConnectedDevices(chatID int64) []Member {
	r.mu.Lock()
	defer r.mu.Unlock()

	devices := r.chats[chatID]
	out := make([]Member, 0, len(devices))
	for m := range devices {
		out = append(out, m)
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *Registry) Cap() int {
	return r.capacity
}

func (r *Registry) bucket(freq int) *list.List {
	b, ok := r.buckets[freq]
	if !ok {
		b = list.New()
		r.buckets[freq] = b
	}
	return b
}

func (r *Registry) touch(e *entry) {
	r.unlink(e)
	if _, ok := r.buckets[e.freq]; !ok && r.minFreq == e.freq {
		r.minFreq = e.freq + 1
	}
	e.freq++
	e.elem = r.bucket(e.freq).PushBack(e)
}

func (r *Registry) unlink(e *entry) {
	b := r.buckets[e.freq]
	b.Remove(e.elem)
	if b.Len() == 0 {
		delete(r.buckets, e.freq)
	}
}

// victim is the oldest entry of the lowest frequency. Only valid when full.
func (r *Registry) victim() *entry {
	return r.buckets[r.minFreq].Front().Value.(*entry)
}

func (r *Registry) remove(e *entry) {
	r.unlink(e)
	delete(r.entries, e.key)

	devices := r.chats[e.key.ChatID]
	delete(devices, Member{UserID: e.key.UserID, DeviceID: e.key.DeviceID})
	if len(devices) == 0 {
		delete(r.chats, e.key.ChatID)
	}
}
