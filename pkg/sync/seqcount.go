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

package sync

import (
	"runtime"
	"sync/atomic"
)

// SeqCount is a synchronization primitive for optimistic reader/writer
// synchronization in cases where readers can work with stale data and
// therefore do not need to block writers.
//
// Compared to sync/atomic, SeqCount:
//
//   - Supports arbitrary-sized atomic reads of multiple fields without
//     requiring that all fields fit in a single machine word.
//
//   - Does not require that readers allocate memory; in contrast, reading
//     from an atomic.Value requires that the data it stores be boxed.
//
// In all cases, SeqCount may be significantly more expensive than equivalent
// mutex usage for writers.
//
// SeqCount may not be copied after first use.
type SeqCount struct {
	// epoch is incremented by BeginWrite and EndWrite, such that epoch is odd
	// if a writer critical section is active, and a read from data protected
	// by this SeqCount is atomic iff epoch is the same even value before and
	// after the read.
	epoch atomic.Uint32
}

// SeqCountEpoch tracks writer critical sections in a SeqCount.
type SeqCountEpoch uint32

// BeginRead indicates the beginning of a reader critical section. Reader
// critical sections DO NOT BLOCK writer critical sections, so operations in a
// reader critical section MAY RACE with writer critical sections. Races are
// detected by ReadOk at the end of the reader critical section. Thus, the
// low-level structure of readers is generally:
//
//	for {
//	    epoch := seq.BeginRead()
//	    // do something idempotent with seq-protected data
//	    if seq.ReadOk(epoch) {
//	        break
//	    }
//	}
func (s *SeqCount) BeginRead() SeqCountEpoch {
	if epoch := s.epoch.Load(); epoch&1 == 0 {
		return SeqCountEpoch(epoch)
	}
	return s.beginReadSlow()
}

func (s *SeqCount) beginReadSlow() SeqCountEpoch {
	for {
		runtime.Gosched()
		if epoch := s.epoch.Load(); epoch&1 == 0 {
			return SeqCountEpoch(epoch)
		}
	}
}

// ReadOk returns true if the reader critical section initiated by a previous
// call to BeginRead() that returned epoch did not race with any writer
// critical sections.
//
// ReadOk may be called any number of times during a reader critical section.
// Reader critical sections do not need to be explicitly terminated; the last
// call to ReadOk is implicitly the end of the reader critical section.
func (s *SeqCount) ReadOk(epoch SeqCountEpoch) bool {
	return s.epoch.Load() == uint32(epoch)
}

// BeginWrite indicates the beginning of a writer critical section.
//
// SeqCount does not support concurrent writer critical sections; clients with
// concurrent writers must synchronize them using e.g. sync.Mutex.
func (s *SeqCount) BeginWrite() {
	if epoch := s.epoch.Add(1); epoch&1 == 0 {
		panic("SeqCount.BeginWrite during existing writer critical section")
	}
}

// EndWrite ends the effect of a preceding BeginWrite.
func (s *SeqCount) EndWrite() {
	if epoch := s.epoch.Add(1); epoch&1 != 0 {
		panic("SeqCount.EndWrite outside writer critical section")
	}
}

// SeqAtomicLoad runs load in a reader critical section of seq, retrying until
// the loaded value is known not to have raced with any writer critical
// section. load must be idempotent and must not itself use seq.
func SeqAtomicLoad[T any](seq *SeqCount, load func() T) T {
	for {
		epoch := seq.BeginRead()
		val := load()
		if seq.ReadOk(epoch) {
			return val
		}
	}
}
