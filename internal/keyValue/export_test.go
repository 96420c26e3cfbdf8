package keyValue

import "time"

// SetClock replaces the clock used for expiry checks.
func SetClock(s Store, now func() time.Time) {
	switch s := s.(type) {
	case *Hashmap:
		s.mutex.Lock()
		s.now = now
		s.mutex.Unlock()
	case *SQL:
		s.now = now
	}
}
