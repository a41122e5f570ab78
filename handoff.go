// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package handoff

import (
	"sync/atomic"
	"unsafe"
)

// maxCapacity is the largest power-of-two capacity the 16-bit occupancy
// field of MQ's packed admission word can represent: occupancy ranges over
// the closed interval [0, C], which needs 17 bits once C reaches 1<<16.
// SQ shares the ceiling for symmetry between the two constructors even
// though its readpos/writepos indices have no such packing constraint.
const maxCapacity = 1 << 15

// roundToPow2 rounds n up to the next power of 2 so that index-mod-capacity
// reduces to a bitwise mask.
func roundToPow2(n int) int {
	if n < 2 {
		return 2
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}

// pad is cache-line padding used to keep the admission word, head/tail
// indices, and the two completion signals of a queue on separate cache
// lines, avoiding false sharing between goroutines hammering different
// fields.
type pad [64]byte

// slot is one ring entry: either a caller-owned, non-nil pointer or the
// nil sentinel. A zero-value slot is empty.
//
// Slots store unsafe.Pointer, not an atomix integer wrapper: a live
// heap-object pointer kept only as a uintptr would no longer be tracked as
// a GC root between the pointer-to-uintptr and uintptr-to-pointer
// conversions. code.hybscloud.com/atomix's pointer-width wrapper
// (Uintptr) is for non-pointer handles — it is not a substitute for a
// GC-safe pointer CAS. sync/atomic's CompareAndSwapPointer / LoadPointer /
// StorePointer are the stdlib's GC-safe primitives for this exact case:
// atomix for index counters, raw pointer ops for the slot itself.
type slot struct {
	ptr unsafe.Pointer
}

func (s *slot) cas(old, new unsafe.Pointer) bool {
	return atomic.CompareAndSwapPointer(&s.ptr, old, new)
}

func (s *slot) load() unsafe.Pointer {
	return atomic.LoadPointer(&s.ptr)
}

func (s *slot) store(v unsafe.Pointer) {
	atomic.StorePointer(&s.ptr, v)
}
