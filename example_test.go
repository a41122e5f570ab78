// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package handoff_test

import (
	"fmt"

	"code.hybscloud.com/handoff"
)

// greeting is the message type used by the package-level example: a
// CompletionMarker embedded as the first field, per doc.go's Quick Start.
type greeting struct {
	handoff.CompletionMarker
	Text string
	Err  int
}

func ExampleSQ() {
	q, err := handoff.NewSQ[greeting](1)
	if err != nil {
		panic(err)
	}

	sig := handoff.NewCompletionSignal()
	msg := &greeting{Text: "Hello Server"}
	msg.Init(sig)

	if err := q.Send(msg); err != nil {
		panic(err)
	}

	// In a real program this runs on a separate goroutine; it can run inline
	// here because the queue has room for the message, so Send returned
	// without waiting for a receiver.
	got, err := q.Recv()
	if err != nil {
		panic(err)
	}
	got.Err = 0
	got.MarkProcessed()

	sig.Wait()
	fmt.Println(msg.Text, msg.Err)
	// Output: Hello Server 0
}

func ExampleMQ_trySend() {
	q, err := handoff.NewMQ[int](2)
	if err != nil {
		panic(err)
	}

	a, b := 1, 2
	fmt.Println(q.TrySend(&a) == nil)
	fmt.Println(q.TrySend(&b) == nil)

	c := 3
	fmt.Println(handoff.IsWouldBlock(q.TrySend(&c)))
	// Output:
	// true
	// true
	// true
}
