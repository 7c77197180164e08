package ingest

import "sync/atomic"

// atomicState is a small wrapper giving State lock-free load/store, since
// State transitions happen from paho's callback goroutines concurrently
// with reads through Subscriber.State and Engine.State.
type atomicState struct {
	v atomic.Int32
}

func (a *atomicState) Store(s State) { a.v.Store(int32(s)) }
func (a *atomicState) Load() State   { return State(a.v.Load()) }
