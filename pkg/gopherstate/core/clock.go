package core

import "time"

// Clock is injected wherever the current instant matters so dwell times can be tested.
type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func NewRealClock() Clock { return RealClock{} }

func (RealClock) Now() time.Time { return time.Now().UTC() }
