package session

import "time"

// Ticker delivers round deadlines
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Clock starts a Ticker firing every d
type Clock func(d time.Duration) Ticker

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

// RealClock ticks on wall time
func RealClock(d time.Duration) Ticker {
	return realTicker{t: time.NewTicker(d)}
}
