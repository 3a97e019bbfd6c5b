// Package host provides the single-threaded cooperative loop the tracker runs on.
// Every callback handed to a Scheduler runs on one goroutine, one at a time.
package host

import "time"

type Scheduler interface {
	// Post queues fn to run on the loop. Safe to call from any goroutine.
	Post(fn func())
	// RequestFrame runs fn once on the next frame. Must be called on the loop.
	RequestFrame(fn func())
	// Every runs fn on the loop each interval until the ticker is stopped.
	Every(interval time.Duration, fn func()) Ticker
}

type Ticker interface {
	Stop()
}
