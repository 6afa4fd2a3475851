package listing

import "time"

// Timer is a pending delayed task
type Timer interface {
	// Stop cancels the task; it reports false if the task already ran or was stopped
	Stop() bool
}

// Scheduler runs f once after d
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// RealScheduler schedules with the runtime's timers
func RealScheduler() Scheduler {
	return realScheduler{}
}
