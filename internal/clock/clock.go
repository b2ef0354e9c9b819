package clock

import "time"

// Clock abstracts time for services and scheduled jobs.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

func NewRealClock() Clock {
	return realClock{}
}
