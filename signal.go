// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package handoff

import (
	"sync"

	"code.hybscloud.com/atomix"
)

// CompletionSignal is a one-to-many counting notification.
//
// Every queue embeds two unexported signals (reader and writer) used to
// park and wake blocked Send/Recv callers; Close and Destroy never expose
// them. A CompletionSignal is also a first-class client-visible handle:
// callers attach one to a [CompletionMarker] to be woken when a receiver
// finishes processing a message.
//
// The zero value is a valid, unfired signal — CompletionSignal embeds
// cleanly by value with no separate init call, the same way a zero-value
// sync.Mutex is ready to use. The waiter-count and signal-count invariants
// are maintained entirely under mu; count is additionally an atomic field
// so [CompletionSignal.Count] can be queried lock-free by a busy-polling
// caller.
type CompletionSignal struct {
	mu      sync.Mutex
	cond    sync.Cond
	waiters int
	count   atomix.Uint64
}

// NewCompletionSignal constructs a signal with zero counts.
func NewCompletionSignal() *CompletionSignal {
	return &CompletionSignal{}
}

// condVar returns the condition variable, binding its Locker to mu on first
// use. Callers must hold mu before calling this.
func (s *CompletionSignal) condVar() *sync.Cond {
	if s.cond.L == nil {
		s.cond.L = &s.mu
	}
	return &s.cond
}

// Destroy fails with [ErrUndefinedIfWaitersPresent] if any thread is
// currently parked in Wait; otherwise it is a no-op (Go's garbage collector
// owns the lock and condition storage).
func (s *CompletionSignal) Destroy() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.waiters > 0 {
		return ErrUndefinedIfWaitersPresent
	}
	return nil
}

// Wait parks the calling goroutine until the signal-count is non-zero.
// Wait does not clear the count; call [CompletionSignal.Clear] for
// edge-triggered semantics. Spurious wakes re-check the count and re-park.
func (s *CompletionSignal) Wait() {
	s.mu.Lock()
	defer s.mu.Unlock()
	cond := s.condVar()
	for s.count.LoadAcquire() == 0 {
		s.waiters++
		cond.Wait()
		s.waiters--
	}
}

// awaitRetry parks the caller on this signal until retry returns nil or a
// non-ErrWouldBlock error, re-attempting retry once immediately after
// acquiring the lock (closing the lost-wakeup window against a concurrent
// Fire) and again after every wake.
func (s *CompletionSignal) awaitRetry(retry func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cond := s.condVar()
	s.waiters++
	defer func() { s.waiters-- }()
	for {
		err := retry()
		if err == nil || !IsWouldBlock(err) {
			return err
		}
		cond.Wait()
	}
}

// Fire increments the signal-count by one and wakes every parked waiter.
func (s *CompletionSignal) Fire() {
	s.mu.Lock()
	s.count.AddAcqRel(1)
	s.condVar().Broadcast()
	s.mu.Unlock()
}

// Count returns the current signal-count.
//
// Count does not take the lock: it is a relaxed-for-the-caller atomic load,
// suitable for a busy-polling caller that wants to observe completions
// without parking.
func (s *CompletionSignal) Count() uint64 {
	return s.count.LoadAcquire()
}

// Clear atomically resets the signal-count to zero and returns its prior
// value. Two successive Clear calls with no intervening Fire return zero
// on the second.
func (s *CompletionSignal) Clear() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.count.LoadAcquire()
	s.count.StoreRelease(0)
	return prev
}

// hasWaiters reports whether any thread is currently parked. The queue
// engines do not call it; they use fireIfWaiting, which makes the same
// check under the lock.
func (s *CompletionSignal) hasWaiters() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.waiters > 0
}

// fireIfWaiting fires only when a waiter is parked. It takes the lock on
// every call; in the common case where nobody is blocked it skips the count
// increment and the broadcast.
func (s *CompletionSignal) fireIfWaiting() {
	s.mu.Lock()
	if s.waiters > 0 {
		s.count.AddAcqRel(1)
		s.condVar().Broadcast()
	}
	s.mu.Unlock()
}

// broadcastDrain wakes every waiter currently parked and reports the
// waiter-count observed while doing so, used by close to loop until both
// of a queue's signals have drained their waiters.
func (s *CompletionSignal) broadcastDrain() int {
	s.mu.Lock()
	n := s.waiters
	s.condVar().Broadcast()
	s.mu.Unlock()
	return n
}

// lockForClose and unlockForClose expose the signal's own lock so the
// queue's close protocol (mq.go/sq.go) can acquire both signals' locks in a
// fixed order before setting the closed flag.
func (s *CompletionSignal) lockForClose() {
	s.mu.Lock()
}

func (s *CompletionSignal) unlockForClose() {
	s.mu.Unlock()
}
