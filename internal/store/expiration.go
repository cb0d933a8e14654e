package store

import (
	"sort"
	"time"
)

// expirationTuple is one (deadline, key) pair. expirationSet keeps these
// ordered primarily by when, secondarily by key, so that two keys expiring
// at the identical instant remain distinguishable (SPEC_FULL.md invariant
// I1).
type expirationTuple struct {
	when time.Time
	key  string
}

func (a expirationTuple) less(b expirationTuple) bool {
	if !a.when.Equal(b.when) {
		return a.when.Before(b.when)
	}
	return a.key < b.key
}

// expirationSet is a small sorted-slice total order over (time, key). The
// expirer only ever needs the minimum element and occasional point
// removals, so a slice kept sorted by insertion is simpler than importing
// a tree/heap for the handful of outstanding TTLs a demo server will ever
// hold. insert does not deduplicate; the "one tuple per expiring key"
// invariant holds because Store.Set removes a key's old tuple (an exact
// (when, key) match) before inserting the new one.
type expirationSet struct {
	items []expirationTuple
}

func (s *expirationSet) insert(when time.Time, key string) {
	t := expirationTuple{when: when, key: key}
	i := sort.Search(len(s.items), func(i int) bool { return !s.items[i].less(t) })
	s.items = append(s.items, expirationTuple{})
	copy(s.items[i+1:], s.items[i:])
	s.items[i] = t
}

func (s *expirationSet) remove(when time.Time, key string) {
	t := expirationTuple{when: when, key: key}
	i := sort.Search(len(s.items), func(i int) bool { return !s.items[i].less(t) })
	if i < len(s.items) && s.items[i].when.Equal(when) && s.items[i].key == key {
		s.items = append(s.items[:i], s.items[i+1:]...)
	}
}

// next returns the earliest outstanding expiration, if any.
func (s *expirationSet) next() (expirationTuple, bool) {
	if len(s.items) == 0 {
		return expirationTuple{}, false
	}
	return s.items[0], true
}

// popExpired removes every tuple with when <= now, in order, calling fn for
// each. It returns the deadline of the earliest remaining tuple, if any.
func (s *expirationSet) popExpired(now time.Time, fn func(key string)) (time.Time, bool) {
	i := 0
	for i < len(s.items) && !s.items[i].when.After(now) {
		fn(s.items[i].key)
		i++
	}
	s.items = s.items[i:]
	if len(s.items) == 0 {
		return time.Time{}, false
	}
	return s.items[0].when, true
}
