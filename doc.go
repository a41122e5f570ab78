// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package handoff provides bounded, pointer-passing handoff queues for
// moving work between goroutines in the same process.
//
// A sender transfers only a pointer to a payload it owns; the receiver
// processes it in place and the sender is optionally notified of
// completion through a [CompletionSignal] attached via a
// [CompletionMarker]. The package never copies a payload and never
// allocates or frees one — payload lifetime is the caller's responsibility,
// and delivering a nil pointer as a message is rejected with
// [ErrInvalidArgument].
//
// # Quick Start
//
//	type Request struct {
//	    handoff.CompletionMarker
//	    In  int
//	    Out int
//	}
//
//	q, _ := handoff.NewMQ[Request](1024)
//
//	// Producer
//	sig := handoff.NewCompletionSignal()
//	req := &Request{In: 41}
//	req.Init(sig)
//	if err := q.Send(req); err != nil {
//	    // ErrClosed
//	}
//	sig.Wait()
//	fmt.Println(req.Out) // 42
//
//	// Consumer
//	req, err := q.Recv()
//	if err == nil {
//	    req.Out = req.In + 1
//	    req.MarkProcessed()
//	}
//
// # Queue Variants
//
// Two queue variants are offered, differing only in the concurrency they
// admit:
//
//	MQ[T] - multi-producer / multi-consumer: any number of senders and
//	        receivers may call Send/Recv concurrently.
//	SQ[T] - single-producer / single-consumer: at most one sender and one
//	        receiver may be active concurrently. Faster because it
//	        synchronizes less shared state.
//
// Both share one external contract: TrySend/TryRecv never block and report
// [ErrWouldBlock] on a full/empty queue; Send/Recv block until the opposite
// side makes progress or the queue is closed.
//
// # Worker Pool (MQ)
//
//	q, _ := handoff.NewMQ[Job](4096)
//
//	for range numWorkers {
//	    go func() {
//	        for {
//	            job, err := q.Recv()
//	            if handoff.IsClosed(err) {
//	                return
//	            }
//	            job.Run()
//	            job.MarkProcessed()
//	        }
//	    }()
//	}
//
//	func Submit(j *Job) error {
//	    return q.Send(j)
//	}
//
// # Pipeline Stage (SQ)
//
//	q, _ := handoff.NewSQ[Frame](1024)
//
//	go func() { // producer
//	    for frame := range source {
//	        if err := q.Send(&frame); handoff.IsClosed(err) {
//	            return
//	        }
//	    }
//	}()
//
//	go func() { // consumer
//	    for {
//	        frame, err := q.Recv()
//	        if handoff.IsClosed(err) {
//	            return
//	        }
//	        process(frame)
//	    }
//	}()
//
// # Non-blocking Operations
//
//	backoff := iox.Backoff{}
//	for {
//	    err := q.TrySend(&item)
//	    if err == nil {
//	        backoff.Reset()
//	        break
//	    }
//	    if !handoff.IsWouldBlock(err) {
//	        return err // ErrClosed or ErrInvalidArgument
//	    }
//	    backoff.Wait()
//	}
//
// # Capacity
//
// Capacity rounds up to the next power of two:
//
//	q, _ := handoff.NewMQ[int](3)    // Cap() == 4
//	q, _ := handoff.NewMQ[int](1000) // Cap() == 1024
//
// MQ's admission counter packs head and occupancy into 16 bits each, so
// capacity above 1<<15 fails construction with [ErrInvalidArgument]; SQ
// shares the same ceiling for API symmetry even though its readpos/writepos
// indices have no packing constraint of their own.
//
// Size is intentionally approximate under concurrent use on MQ: occupancy
// can change between the atomic load that produces it and the caller
// observing the result. Track exact counts in application logic if needed.
//
// # Close and Destroy
//
// Close is idempotent and irreversible: once it returns, every subsequent
// Send, TrySend, Recv, and TryRecv call returns [ErrClosed], even if the
// ring still holds unconsumed messages. Close does not drain the ring —
// payload lifetime is caller-managed, and messages already in flight remain
// observable to any caller that raced the close with a TryRecv that had
// already reserved a slot. A drain-on-close variant that flushes remaining
// messages before returning ErrClosed is a possible future extension, not
// implemented here. Destroy calls Close and then releases the
// queue's internal completion signals, failing only if the documented
// close protocol somehow left a waiter parked.
//
// # Completion Signals and Markers
//
// A [CompletionSignal] is a one-to-many counting notification: Fire
// increments its count and wakes every parked Wait call; Count reads the
// count lock-free for busy-polling; Clear resets it to zero and returns
// the prior value. Every MQ and SQ embeds two private signals internally
// (one per direction) to implement the blocking Send/Recv overlay; those
// internal signals are never exposed. Construct your own CompletionSignal
// and attach it to a [CompletionMarker] embedded in your message type to
// be notified when a receiver finishes processing it.
//
// # Thread Safety
//
// SQ requires exactly one producer goroutine and exactly one consumer
// goroutine; calling Send/TrySend from two goroutines at once on the same
// SQ is undefined behavior (data corruption, not a panic). MQ admits any
// number of concurrent senders and receivers.
//
// # Error Handling
//
// Operations return errors from a closed set: [ErrInvalidArgument],
// [ErrWouldBlock], [ErrClosed], and (from Destroy only)
// [ErrUndefinedIfWaitersPresent]. [ErrOutOfMemory] is defined but never
// returned: allocation failure in Go is a runtime panic. [IsWouldBlock], [IsClosed], [IsSemantic], and
// [IsNonFailure] classify them; ErrWouldBlock is sourced from
// [code.hybscloud.com/iox] for consistency with the rest of the ecosystem.
//
// # Race Detection
//
// Go's race detector tracks explicit synchronization (mutex, channel,
// WaitGroup) but cannot observe happens-before relationships established
// purely through atomic acquire/release orderings on separate variables.
// The admission-word and slot-pointer protocols in mq.go/sq.go are correct
// under the Go memory model but may report false positives under -race;
// stress tests that rely on cross-variable ordering skip themselves when
// [RaceEnabled] is true (it is set by the race build tag), the same policy
// this package's lock-free predecessor documents for its own algorithms.
package handoff
