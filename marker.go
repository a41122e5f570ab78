// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package handoff

import "code.hybscloud.com/atomix"

// CompletionMarker is a small header a sender embeds in a message to learn
// when the receiver has finished processing it.
//
// Typical placement is as the first field of a user-defined message struct:
//
//	type Request struct {
//	    handoff.CompletionMarker
//	    Err int
//	    In  [2]int
//	    Out int
//	}
//
//	sig := handoff.NewCompletionSignal()
//	req := &Request{In: [2]int{1, 2}}
//	req.Init(sig)
//	q.Send(req)
//	sig.Wait()
//	fmt.Println(req.IsProcessed(), req.Out)
//
// A CompletionMarker is mutated at most once by the receiver; repeated
// MarkProcessed calls are idempotent and fire the attached signal only on
// the first transition.
type CompletionMarker struct {
	signal    *CompletionSignal
	processed atomix.Bool
}

// Init attaches signal to the marker. Pass nil for a marker with no
// completion notification (IsProcessed is still observable by polling).
// Init is not safe to call concurrently with MarkProcessed; call it before
// handing the message to a queue.
func (m *CompletionMarker) Init(signal *CompletionSignal) {
	m.signal = signal
	m.processed.StoreRelease(false)
}

// IsProcessed reports whether MarkProcessed has been called.
func (m *CompletionMarker) IsProcessed() bool {
	return m.processed.LoadAcquire()
}

// MarkProcessed transitions the processed flag from false to true and, on
// that transition, fires the attached signal (if any). Calling it again is
// a no-op: the flag only moves forward.
func (m *CompletionMarker) MarkProcessed() {
	if m.processed.CompareAndSwapAcqRel(false, true) && m.signal != nil {
		m.signal.Fire()
	}
}
