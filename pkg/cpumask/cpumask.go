// Copyright 2024 The kernmm Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cpumask provides a fixed-size set of processors with atomic
// per-bit mutation.
package cpumask

import (
	"fmt"
	"math/bits"
	"sync/atomic"
)

// MaxCPUs is the maximum number of processors supported at build time.
// Address-space descriptors that exist for the whole lifetime of the process
// size their CPU set to MaxCPUs rather than to the number of processors
// actually present.
const MaxCPUs = 512

// blocks is the number of 64-bit words backing a CPUSet.
const blocks = (MaxCPUs + 63) / 64

// CPUSet is a set of processor numbers in [0, MaxCPUs).
//
// Individual bits are set and cleared atomically, so concurrent mutators of
// distinct CPUs do not need external synchronization. Whole-set observations
// (IsEmpty, Count, ForEach) are not atomic with respect to concurrent
// mutation; they observe each word atomically.
//
// The zero value of CPUSet is an empty set. A CPUSet may not be copied after
// first use.
type CPUSet struct {
	bitBlock [blocks]atomic.Uint64
}

func checkCPU(cpu uint32) {
	if cpu >= MaxCPUs {
		panic(fmt.Sprintf("cpu %d out of range [0, %d)", cpu, MaxCPUs))
	}
}

// Set atomically adds cpu to the set.
func (s *CPUSet) Set(cpu uint32) {
	checkCPU(cpu)
	word := &s.bitBlock[cpu/64]
	mask := uint64(1) << (cpu % 64)
	for {
		old := word.Load()
		if old&mask != 0 {
			return
		}
		if word.CompareAndSwap(old, old|mask) {
			return
		}
	}
}

// Clear atomically removes cpu from the set.
func (s *CPUSet) Clear(cpu uint32) {
	checkCPU(cpu)
	word := &s.bitBlock[cpu/64]
	mask := uint64(1) << (cpu % 64)
	for {
		old := word.Load()
		if old&mask == 0 {
			return
		}
		if word.CompareAndSwap(old, old&^mask) {
			return
		}
	}
}

// Test returns true if cpu is in the set.
func (s *CPUSet) Test(cpu uint32) bool {
	checkCPU(cpu)
	return s.bitBlock[cpu/64].Load()&(uint64(1)<<(cpu%64)) != 0
}

// IsEmpty returns true if no CPU is in the set.
func (s *CPUSet) IsEmpty() bool {
	for i := range s.bitBlock {
		if s.bitBlock[i].Load() != 0 {
			return false
		}
	}
	return true
}

// Count returns the number of CPUs in the set.
func (s *CPUSet) Count() int {
	count := 0
	for i := range s.bitBlock {
		count += bits.OnesCount64(s.bitBlock[i].Load())
	}
	return count
}

// ForEach calls fn for each CPU in the set in increasing order, until fn
// returns false.
func (s *CPUSet) ForEach(fn func(cpu uint32) bool) {
	for i := range s.bitBlock {
		w := s.bitBlock[i].Load()
		for w != 0 {
			bit := uint32(bits.TrailingZeros64(w))
			if !fn(uint32(i)*64 + bit) {
				return
			}
			w &^= uint64(1) << bit
		}
	}
}
