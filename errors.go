// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package handoff

import (
	"errors"

	"code.hybscloud.com/iox"
)

// ErrWouldBlock indicates the operation cannot proceed immediately.
//
// For Send/TrySend: the queue is full (backpressure).
// For Recv/TryRecv: the queue is empty (no data available).
//
// ErrWouldBlock is a control flow signal, not a failure. Only the
// non-blocking variants (TrySend, TryRecv) ever return it; Send and Recv
// absorb it internally and park the caller instead.
//
// This is an alias for [iox.ErrWouldBlock] for ecosystem consistency.
//
// Example:
//
//	backoff := iox.Backoff{}
//	for {
//	    err := q.TrySend(&item)
//	    if err == nil {
//	        backoff.Reset()
//	        break
//	    }
//	    if handoff.IsWouldBlock(err) {
//	        backoff.Wait()
//	        continue
//	    }
//	    return err // Closed, or an argument error
//	}
var ErrWouldBlock = iox.ErrWouldBlock

// ErrClosed indicates the queue has been closed.
//
// Returned by every send and receive variant once [MQ.Close] or [SQ.Close]
// has returned, including receives on a queue that still holds unconsumed
// messages: this library makes no drain-on-close guarantee. Messages left
// in the ring at close time are never delivered; their lifetime remains
// the caller's responsibility.
var ErrClosed = errors.New("handoff: queue closed")

// ErrInvalidArgument indicates a nil message pointer was passed to a send,
// or a queue was constructed with an unrepresentable capacity.
var ErrInvalidArgument = errors.New("handoff: invalid argument")

// ErrOutOfMemory is reserved for ring or signal allocation failure.
//
// Go's runtime reports allocation failure as a panic, not a returned error,
// so queue construction in this package never actually produces
// ErrOutOfMemory; it is kept so a caller's switch over error kinds does not
// need a non-Go-idiomatic special case if a future implementation ever
// preallocates and checks.
var ErrOutOfMemory = errors.New("handoff: out of memory")

// ErrUndefinedIfWaitersPresent indicates [CompletionSignal.Destroy] was
// called while threads were still parked in Wait. Destroying storage out
// from under a parked waiter is never safe, so this is reported as an
// error instead of left undefined.
var ErrUndefinedIfWaitersPresent = errors.New("handoff: destroy called with waiters parked")

// IsWouldBlock reports whether err indicates the operation would block.
// Delegates to [iox.IsWouldBlock] for wrapped error support.
func IsWouldBlock(err error) bool {
	return iox.IsWouldBlock(err)
}

// IsClosed reports whether err indicates the queue is closed.
func IsClosed(err error) bool {
	return errors.Is(err, ErrClosed)
}

// IsSemantic reports whether err is a control flow signal (not a failure):
// ErrWouldBlock or ErrClosed.
func IsSemantic(err error) bool {
	return iox.IsSemantic(err) || IsClosed(err)
}

// IsNonFailure reports whether err represents a non-failure condition.
// Returns true for nil or ErrWouldBlock.
// Delegates to [iox.IsNonFailure].
func IsNonFailure(err error) bool {
	return iox.IsNonFailure(err)
}
