// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package handoff

import (
	"runtime"
	"unsafe"

	"code.hybscloud.com/atomix"
)

// SQ is a bounded single-producer / single-consumer handoff queue.
//
// At most one goroutine may call Send/TrySend and at most one goroutine
// may call Recv/TryRecv at a time. Calling either from more than one
// goroutine concurrently is undefined behavior (data corruption, not a
// panic) — SQ trades MQ's admission-counter synchronization for two
// independent indices (readpos, writepos) owned one each by the single
// producer and single consumer, needing less cross-goroutine coordination
// on the fast path.
type SQ[T any] struct {
	eng *sqEngine
}

// NewSQ constructs an SQ with the given capacity, rounded up to the next
// power of two. Capacity above 1<<15 fails with [ErrInvalidArgument] (the
// ceiling is shared with [MQ] for API symmetry), as does a negative
// capacity; capacities 0 and 1 are rounded up to 2.
func NewSQ[T any](capacity int) (*SQ[T], error) {
	eng, err := newSQEngine(capacity)
	if err != nil {
		return nil, err
	}
	return &SQ[T]{eng: eng}, nil
}

// Cap returns the queue's capacity.
func (q *SQ[T]) Cap() int { return q.eng.cap() }

// Size returns the current occupancy, computed from the producer's and
// consumer's independently-owned indices. Exact for a well-behaved
// single-producer/single-consumer caller; meaningless if the single-owner
// discipline is violated.
func (q *SQ[T]) Size() int { return q.eng.size() }

// TrySend publishes msg without blocking. Producer-side only.
// Returns [ErrInvalidArgument] if msg is nil, [ErrClosed] if the queue is
// closed, [ErrWouldBlock] if the queue is full.
func (q *SQ[T]) TrySend(msg *T) error {
	if msg == nil {
		return ErrInvalidArgument
	}
	return q.eng.trySend(unsafe.Pointer(msg))
}

// Send publishes msg, blocking while the queue is full. Producer-side only.
func (q *SQ[T]) Send(msg *T) error {
	if msg == nil {
		return ErrInvalidArgument
	}
	return q.eng.send(unsafe.Pointer(msg))
}

// TryRecv consumes a message without blocking. Consumer-side only.
// Returns [ErrClosed] if the queue is closed, [ErrWouldBlock] if empty.
func (q *SQ[T]) TryRecv() (*T, error) {
	ptr, err := q.eng.tryRecv()
	if err != nil {
		return nil, err
	}
	return (*T)(ptr), nil
}

// Recv consumes a message, blocking while the queue is empty.
// Consumer-side only.
func (q *SQ[T]) Recv() (*T, error) {
	ptr, err := q.eng.recv()
	if err != nil {
		return nil, err
	}
	return (*T)(ptr), nil
}

// Close marks the queue closed; see [MQ.Close] for the exact contract,
// which SQ shares verbatim.
func (q *SQ[T]) Close() { q.eng.close() }

// Destroy closes the queue and releases its internal signals.
func (q *SQ[T]) Destroy() error { return q.eng.destroy() }

// sqEngine is the untyped pointer-passing engine behind [SQ].
type sqEngine struct {
	_        pad
	readpos  atomix.Uint32 // owned by the sole consumer
	_        pad
	writepos atomix.Uint32 // owned by the sole producer
	_        pad
	closed   atomix.Bool
	_        pad
	reader   CompletionSignal
	_        pad
	writer   CompletionSignal
	_        pad
	ring     []slot
	mask     uint32
	capacity uint32
}

func newSQEngine(capacity int) (*sqEngine, error) {
	if capacity < 0 {
		return nil, ErrInvalidArgument
	}
	n := roundToPow2(capacity)
	if n > maxCapacity {
		return nil, ErrInvalidArgument
	}
	return &sqEngine{
		ring:     make([]slot, n),
		mask:     uint32(n - 1),
		capacity: uint32(n),
	}, nil
}

func (q *sqEngine) cap() int { return int(q.capacity) }

func (q *sqEngine) size() int {
	wp := q.writepos.LoadAcquire()
	rp := q.readpos.LoadAcquire()
	// writepos/readpos are monotonic counters (never masked when stored,
	// per spsc.go's head/tail), so unsigned wraparound subtraction gives
	// the correct occupancy even across a uint32 rollover.
	return int(wp - rp)
}

// trySend is the non-blocking send: a single slot CAS, no internal retry
// loop — SQ leaves retrying to the caller (TrySend) or to send's blocking
// overlay.
func (q *sqEngine) trySend(ptr unsafe.Pointer) error {
	if ptr == nil {
		return ErrInvalidArgument
	}
	if q.closed.LoadAcquire() {
		return ErrClosed
	}

	wp := q.writepos.LoadAcquire()
	s := &q.ring[wp&q.mask]
	if !s.cas(nil, ptr) {
		return ErrWouldBlock
	}
	q.writepos.StoreRelease(wp + 1)
	q.reader.fireIfWaiting()
	return nil
}

// tryRecv is the non-blocking receive: a single slot CAS, no internal
// retry loop.
func (q *sqEngine) tryRecv() (unsafe.Pointer, error) {
	if q.closed.LoadAcquire() {
		return nil, ErrClosed
	}

	rp := q.readpos.LoadAcquire()
	s := &q.ring[rp&q.mask]
	val := s.load()
	if val == nil {
		return nil, ErrWouldBlock
	}
	if !s.cas(val, nil) {
		return nil, ErrWouldBlock
	}
	q.readpos.StoreRelease(rp + 1)
	q.writer.fireIfWaiting()
	return val, nil
}

func (q *sqEngine) send(ptr unsafe.Pointer) error {
	if err := q.trySend(ptr); err == nil || !IsWouldBlock(err) {
		return err
	}
	return q.writer.awaitRetry(func() error { return q.trySend(ptr) })
}

func (q *sqEngine) recv() (unsafe.Pointer, error) {
	if val, err := q.tryRecv(); err == nil || !IsWouldBlock(err) {
		return val, err
	}
	var out unsafe.Pointer
	err := q.reader.awaitRetry(func() error {
		v, e := q.tryRecv()
		out = v
		return e
	})
	return out, err
}

// close is identical to [mqEngine.close]; duplicated rather than shared
// because the two engines have no common embeddable state beyond the two
// CompletionSignal fields (mqEngine additionally needs the admission word
// path, sqEngine the two independent indices).
func (q *sqEngine) close() {
	q.reader.lockForClose()
	q.writer.lockForClose()
	q.closed.StoreRelease(true)
	q.writer.unlockForClose()
	q.reader.unlockForClose()

	for {
		rw := q.reader.broadcastDrain()
		ww := q.writer.broadcastDrain()
		if rw == 0 && ww == 0 {
			return
		}
		runtime.Gosched()
	}
}

func (q *sqEngine) destroy() error {
	q.close()
	if err := q.reader.Destroy(); err != nil {
		return err
	}
	return q.writer.Destroy()
}
