package session

import "time"

// SetClock replace the clock of a manager
func SetClock(m Manager, now func() time.Time) {
	m.(*managerImpl).now = now
}
