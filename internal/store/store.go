// Package store implements the shared key/value state: entries with
// optional per-key TTL, a background expirer, and the pub/sub broadcaster
// registry.
package store

import (
	"sync"
	"time"
)

// defaultSubscriberBufferSize is used when NewStore is called with a
// non-positive bufferSize.
const defaultSubscriberBufferSize = 1024

type entry struct {
	data      []byte
	expiresAt time.Time // zero Time means "no TTL"
}

func (e entry) hasTTL() bool { return !e.expiresAt.IsZero() }

// Store is the server's shared, mutex-guarded state: the key/value map,
// the pub/sub broadcaster registry, and the TTL index driving the
// background expirer.
//
// A Store is created once per server run (NewStore) and explicitly closed
// by its owner once every connection that might still touch it has
// finished (see internal/server's shutdown choreography) -- Go has no
// RAII drop-guard, so rather than reference-count handles the way the
// original Rust DbDropGuard does, the Listener closes the Store directly
// after draining its handler goroutines. See DESIGN.md.
type Store struct {
	mu     sync.Mutex
	shared sharedState

	pubsubBufferSize int

	wakeup chan struct{} // capacity 1; coalesces expirer notifications
	done   chan struct{} // closed once the expirer goroutine has exited
}

type sharedState struct {
	entries     map[string]entry
	pubsub      map[string]*broadcaster
	expirations expirationSet
	shutdown    bool
}

// NewStore creates an empty Store and starts its background expirer.
// pubsubBufferSize sets the per-subscriber channel capacity (see
// config.StoreConfig.PubSubBufferSize); a non-positive value falls back to
// defaultSubscriberBufferSize.
func NewStore(pubsubBufferSize int) *Store {
	if pubsubBufferSize <= 0 {
		pubsubBufferSize = defaultSubscriberBufferSize
	}
	s := &Store{
		shared: sharedState{
			entries: make(map[string]entry),
			pubsub:  make(map[string]*broadcaster),
		},
		pubsubBufferSize: pubsubBufferSize,
		wakeup:           make(chan struct{}, 1),
		done:             make(chan struct{}),
	}
	go s.runExpirer()
	return s
}

// Close signals the background expirer to exit and blocks until it has.
// Safe to call once; callers (the Listener) must ensure no connection
// handler is still using the Store when Close returns, since Get/Set on a
// shut-down Store still technically "work" but leak the entries map
// forever (the expirer is gone).
func (s *Store) Close() {
	s.mu.Lock()
	s.shared.shutdown = true
	s.mu.Unlock()
	s.notifyWakeup()
	<-s.done
}

func (s *Store) notifyWakeup() {
	select {
	case s.wakeup <- struct{}{}:
	default:
		// A notification is already pending; one is all the expirer needs.
	}
}

// Get returns the value stored at key, if any and if still live.
//
// Besides the expirer's purge, Get checks the entry's deadline itself, so
// a read that lands at or after a key's deadline reports a miss without
// waiting for the next purge tick (see TTL correctness in SPEC_FULL.md §8).
func (s *Store) Get(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.shared.entries[key]
	if !ok {
		return nil, false
	}
	if e.hasTTL() && !e.expiresAt.After(time.Now()) {
		return nil, false
	}
	return e.data, true
}

// Set stores value at key with an optional TTL (zero ttl means no
// expiration). If key previously held a TTL'd entry, its expirations
// record is removed first (invariant I1).
func (s *Store) Set(key string, value []byte, ttl time.Duration) {
	s.mu.Lock()

	var expiresAt time.Time
	notify := false
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
		next, ok := s.shared.expirations.next()
		notify = !ok || next.when.After(expiresAt)
	}

	prev, hadPrev := s.shared.entries[key]
	s.shared.entries[key] = entry{data: value, expiresAt: expiresAt}

	if hadPrev && prev.hasTTL() {
		s.shared.expirations.remove(prev.expiresAt, key)
	}
	if !expiresAt.IsZero() {
		s.shared.expirations.insert(expiresAt, key)
	}

	s.mu.Unlock()

	if notify {
		s.notifyWakeup()
	}
}

// Subscribe returns a Subscription delivering future Publish calls on
// channel. The underlying broadcaster is created lazily and retained even
// after every subscriber disconnects (see SPEC_FULL.md §9).
func (s *Store) Subscribe(channel string) *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.shared.pubsub[channel]
	if !ok {
		b = newBroadcaster(s.pubsubBufferSize)
		s.shared.pubsub[channel] = b
	}
	return b.subscribe()
}

// Publish delivers value to channel's broadcaster, if one exists, and
// returns the number of subscribers it was sent to. The count is a hint:
// subscribers may disconnect before actually consuming the message.
func (s *Store) Publish(channel string, value []byte) int {
	s.mu.Lock()
	b, ok := s.shared.pubsub[channel]
	s.mu.Unlock()

	if !ok {
		return 0
	}
	return b.publish(value)
}
