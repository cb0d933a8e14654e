package store

import "time"

// runExpirer is the background worker: purge everything due, then sleep
// until either the next deadline or a wakeup notification, repeating until
// Close sets shutdown. It is started once per Store by NewStore and never
// surfaces errors -- it simply exits on shutdown.
func (s *Store) runExpirer() {
	defer close(s.done)

	for {
		next, ok := s.purgeExpired()
		if s.isShutdown() {
			return
		}

		if ok {
			timer := time.NewTimer(time.Until(next))
			select {
			case <-timer.C:
			case <-s.wakeup:
				timer.Stop()
			}
		} else {
			<-s.wakeup
		}
	}
}

func (s *Store) isShutdown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shared.shutdown
}

// purgeExpired removes every entry whose deadline has passed and reports
// the next deadline to wait for, if any. Returns ok=false when there is
// nothing left with a TTL.
func (s *Store) purgeExpired() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.shared.shutdown {
		return time.Time{}, false
	}

	next, ok := s.shared.expirations.popExpired(time.Now(), func(key string) {
		delete(s.shared.entries, key)
	})
	return next, ok
}
