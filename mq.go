// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package handoff

import (
	"runtime"
	"unsafe"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// MQ is a bounded multi-producer / multi-consumer handoff queue.
//
// Any number of goroutines may call Send/TrySend and any number may call
// Recv/TryRecv concurrently. Reservation of a ring slot is linearized by a
// single packed admission word (head:16 | occupancy:16): the thread that
// wins the compare-and-swap incrementing occupancy owns the newly
// reserved slot, and the thread that wins the decrement owns the old head
// slot. A slot is never reserved by two producers at once because a
// producer privately wins the slot via a CAS before publicly advancing
// the admission word.
//
// Messages sent by a single goroutine are received in the order they were
// enqueued. Across producers, receive order follows the order producers
// won the occupancy-increment CAS (best-effort, not externally
// observable without additional coordination).
type MQ[T any] struct {
	eng *mqEngine
}

// NewMQ constructs an MQ with the given capacity, rounded up to the next
// power of two. Capacity above the admission word's representable ceiling
// (1<<15) fails with [ErrInvalidArgument], as does a negative capacity;
// capacities 0 and 1 are rounded up to 2.
func NewMQ[T any](capacity int) (*MQ[T], error) {
	eng, err := newMQEngine(capacity)
	if err != nil {
		return nil, err
	}
	return &MQ[T]{eng: eng}, nil
}

// Cap returns the queue's capacity.
func (q *MQ[T]) Cap() int { return q.eng.cap() }

// Size returns the current occupancy. Under concurrent use this is a
// best-effort snapshot: it may be stale by the time the caller observes it.
func (q *MQ[T]) Size() int { return q.eng.size() }

// TrySend publishes msg without blocking.
// Returns [ErrInvalidArgument] if msg is nil, [ErrClosed] if the queue is
// closed, [ErrWouldBlock] if the queue is full.
func (q *MQ[T]) TrySend(msg *T) error {
	if msg == nil {
		return ErrInvalidArgument
	}
	return q.eng.tryPublish(unsafe.Pointer(msg))
}

// Send publishes msg, blocking while the queue is full.
// Returns [ErrInvalidArgument] if msg is nil, [ErrClosed] if the queue is
// or becomes closed.
func (q *MQ[T]) Send(msg *T) error {
	if msg == nil {
		return ErrInvalidArgument
	}
	return q.eng.send(unsafe.Pointer(msg))
}

// TryRecv consumes a message without blocking.
// Returns [ErrClosed] if the queue is closed (even if non-empty),
// [ErrWouldBlock] if the queue is empty.
func (q *MQ[T]) TryRecv() (*T, error) {
	ptr, err := q.eng.tryConsume()
	if err != nil {
		return nil, err
	}
	return (*T)(ptr), nil
}

// Recv consumes a message, blocking while the queue is empty.
// Returns [ErrClosed] if the queue is or becomes closed.
func (q *MQ[T]) Recv() (*T, error) {
	ptr, err := q.eng.recv()
	if err != nil {
		return nil, err
	}
	return (*T)(ptr), nil
}

// Close marks the queue closed. Every subsequent Send, TrySend, Recv, and
// TryRecv call returns [ErrClosed]. Close blocks until every goroutine
// parked in Send or Recv has woken and observed the closed flag; it does
// not drain messages still sitting in the ring. Close is idempotent.
func (q *MQ[T]) Close() { q.eng.close() }

// Destroy closes the queue and releases its internal signals. It fails
// only if the documented close protocol somehow left a waiter parked.
func (q *MQ[T]) Destroy() error { return q.eng.destroy() }

// mqEngine is the untyped pointer-passing engine behind [MQ]; the generic
// facade above exists only to constrain the message type at compile time
// — no dynamic dispatch is introduced.
type mqEngine struct {
	_         pad
	admission atomix.Uint32 // packed (head:16 | occupancy:16)
	_         pad
	closed    atomix.Bool
	_         pad
	reader    CompletionSignal // fired on successful publish; parked receivers wait here
	_         pad
	writer    CompletionSignal // fired on successful consume; parked senders wait here
	_         pad
	ring      []slot
	mask      uint32
	capacity  uint32
}

func newMQEngine(capacity int) (*mqEngine, error) {
	if capacity < 0 {
		return nil, ErrInvalidArgument
	}
	n := roundToPow2(capacity)
	if n > maxCapacity {
		return nil, ErrInvalidArgument
	}
	q := &mqEngine{
		ring:     make([]slot, n),
		mask:     uint32(n - 1),
		capacity: uint32(n),
	}
	return q, nil
}

func packAdmission(head, occupancy uint32) uint32 {
	return head<<16 | occupancy&0xFFFF
}

func unpackAdmission(w uint32) (head, occupancy uint32) {
	return w >> 16, w & 0xFFFF
}

func (q *mqEngine) cap() int { return int(q.capacity) }

func (q *mqEngine) size() int {
	_, occupancy := unpackAdmission(q.admission.LoadAcquire())
	return int(occupancy)
}

// tryPublish is the non-blocking send: reserve a slot via CAS, publish into
// it, then advance the admission word; revert the slot on a lost race.
func (q *mqEngine) tryPublish(ptr unsafe.Pointer) error {
	if ptr == nil {
		return ErrInvalidArgument
	}
	sw := spin.Wait{}
	for {
		w := q.admission.LoadAcquire()
		head, occupancy := unpackAdmission(w)

		if q.closed.LoadAcquire() {
			return ErrClosed
		}
		if occupancy >= q.capacity {
			return ErrWouldBlock
		}

		idx := (head + occupancy) & q.mask
		s := &q.ring[idx]
		if !s.cas(nil, ptr) {
			// Slot still holds a stale reference or another producer beat
			// us to it; retry from the top.
			sw.Once()
			continue
		}

		newW := packAdmission(head, occupancy+1)
		if !q.admission.CompareAndSwapAcqRel(w, newW) {
			// Lost the admission race; revert the slot publication.
			s.cas(ptr, nil)
			sw.Once()
			continue
		}

		q.reader.fireIfWaiting()
		return nil
	}
}

// tryConsume is the non-blocking receive. Closed overrides emptiness: a
// receive on a closed queue fails with ErrClosed regardless of remaining
// occupancy — Close does not guarantee delivery of what is still queued.
func (q *mqEngine) tryConsume() (unsafe.Pointer, error) {
	for {
		w := q.admission.LoadAcquire()

		if q.closed.LoadAcquire() {
			return nil, ErrClosed
		}

		head, occupancy := unpackAdmission(w)
		if occupancy == 0 {
			return nil, ErrWouldBlock
		}

		newW := packAdmission((head+1)&q.mask, occupancy-1)
		if !q.admission.CompareAndSwapAcqRel(w, newW) {
			continue
		}

		idx := head & q.mask
		s := &q.ring[idx]
		sw := spin.Wait{}
		var val unsafe.Pointer
		for {
			val = s.load()
			if val != nil {
				break
			}
			// Slot was reserved by a producer that has not yet published.
			sw.Once()
		}
		s.store(nil)

		q.writer.fireIfWaiting()
		return val, nil
	}
}

func (q *mqEngine) send(ptr unsafe.Pointer) error {
	if err := q.tryPublish(ptr); err == nil || !IsWouldBlock(err) {
		return err
	}
	return q.writer.awaitRetry(func() error { return q.tryPublish(ptr) })
}

func (q *mqEngine) recv() (unsafe.Pointer, error) {
	if val, err := q.tryConsume(); err == nil || !IsWouldBlock(err) {
		return val, err
	}
	var out unsafe.Pointer
	err := q.reader.awaitRetry(func() error {
		v, e := q.tryConsume()
		out = v
		return e
	})
	return out, err
}

// close acquires both signal locks in a fixed order (reader then writer),
// sets the closed flag, releases, then broadcasts and yields until both
// waiter-counts drain.
func (q *mqEngine) close() {
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

func (q *mqEngine) destroy() error {
	q.close()
	if err := q.reader.Destroy(); err != nil {
		return err
	}
	return q.writer.Destroy()
}
