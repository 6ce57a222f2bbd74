package alerting

import "time"

// Clock abstracts wall-clock time so the wall-clock cooldowns and duration
// tracking can be driven deterministically in tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }
