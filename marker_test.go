// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package handoff_test

import (
	"testing"

	"code.hybscloud.com/handoff"
)

// request is a message with an embedded marker, the pattern documented in
// doc.go's Quick Start.
type request struct {
	handoff.CompletionMarker
	In  [2]int
	Out int
	Err int
}

// TestCompletionMarkerNoSignal verifies a marker with no attached signal
// still tracks processed state.
func TestCompletionMarkerNoSignal(t *testing.T) {
	var m handoff.CompletionMarker
	m.Init(nil)

	if m.IsProcessed() {
		t.Fatal("IsProcessed() = true before MarkProcessed")
	}
	m.MarkProcessed()
	if !m.IsProcessed() {
		t.Fatal("IsProcessed() = false after MarkProcessed")
	}
}

// TestCompletionMarkerFiresSignal verifies MarkProcessed fires the
// attached signal exactly once, even when called twice.
func TestCompletionMarkerFiresSignal(t *testing.T) {
	sig := handoff.NewCompletionSignal()
	var m handoff.CompletionMarker
	m.Init(sig)

	m.MarkProcessed()
	m.MarkProcessed() // idempotent: must not fire twice

	if got := sig.Count(); got != 1 {
		t.Fatalf("Count() = %d, want 1", got)
	}
	if !m.IsProcessed() {
		t.Fatal("IsProcessed() = false after MarkProcessed")
	}
}

// TestCompletionMarkerEchoRoundTrip verifies the end-to-end echo pattern: a
// producer sends a message with an attached signal, a consumer processes
// it and marks it done, and the producer's Wait observes the result.
func TestCompletionMarkerEchoRoundTrip(t *testing.T) {
	q, err := handoff.NewSQ[request](1)
	if err != nil {
		t.Fatalf("NewSQ: %v", err)
	}

	sig := handoff.NewCompletionSignal()
	req := &request{In: [2]int{0, 0}}
	req.Init(sig)

	done := make(chan struct{})
	go func() {
		defer close(done)
		r, err := q.Recv()
		if err != nil {
			t.Errorf("Recv: %v", err)
			return
		}
		r.Err = 0
		r.MarkProcessed()
	}()

	if err := q.Send(req); err != nil {
		t.Fatalf("Send: %v", err)
	}
	sig.Wait()
	<-done

	if req.Err != 0 {
		t.Fatalf("req.Err = %d, want 0", req.Err)
	}
	if !req.IsProcessed() {
		t.Fatal("req.IsProcessed() = false after Wait returned")
	}
}
