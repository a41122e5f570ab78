// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build race

package handoff

// RaceEnabled is true when the race detector is active.
// Used by tests to skip heavy concurrent stress tests, which trigger false
// positives because the race detector cannot observe happens-before
// relationships established purely through atomic acquire/release orderings
// on separate variables.
const RaceEnabled = true
