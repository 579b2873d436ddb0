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

package kernspace

import (
	"github.com/sirupsen/logrus"

	"kernmm.dev/kernmm/pkg/hostarch"
)

// SetBootBoundaries records where the address space's code, initialized data
// and initial heap break actually reside. The boot sequence calls it exactly
// once on the kernel address space, after static construction and before any
// consumer reads the boundaries; boot is single-threaded at that point, so
// no locking is taken.
//
// The four values are stored verbatim. Callers are responsible for supplying
// a consistent ordering (startCode <= endCode <= endData <= brk); no
// validation is performed.
func (as *AddressSpace) SetBootBoundaries(startCode, endCode, endData, brk hostarch.Addr) {
	as.startCode = startCode
	as.endCode = endCode
	as.endData = endData
	as.brk = brk
	logrus.WithFields(logrus.Fields{
		"start_code": startCode,
		"end_code":   endCode,
		"end_data":   endData,
		"brk":        brk,
	}).Debug("boot boundaries set")
}

// BootBoundaries returns the code, data and heap markers set by
// SetBootBoundaries. All four are zero before the first call.
func (as *AddressSpace) BootBoundaries() (startCode, endCode, endData, brk hostarch.Addr) {
	return as.startCode, as.endCode, as.endData, as.brk
}

// SetArgRange sets the boundaries of the argument block.
func (as *AddressSpace) SetArgRange(ar hostarch.AddrRange) {
	as.argMu.Lock()
	defer as.argMu.Unlock()
	as.argStart = ar.Start
	as.argEnd = ar.End
}

// ArgRange returns the boundaries of the argument block.
func (as *AddressSpace) ArgRange() hostarch.AddrRange {
	as.argMu.Lock()
	defer as.argMu.Unlock()
	return hostarch.AddrRange{Start: as.argStart, End: as.argEnd}
}

// SetEnvRange sets the boundaries of the environment block.
func (as *AddressSpace) SetEnvRange(ar hostarch.AddrRange) {
	as.argMu.Lock()
	defer as.argMu.Unlock()
	as.envStart = ar.Start
	as.envEnd = ar.End
}

// EnvRange returns the boundaries of the environment block.
func (as *AddressSpace) EnvRange() hostarch.AddrRange {
	as.argMu.Lock()
	defer as.argMu.Unlock()
	return hostarch.AddrRange{Start: as.envStart, End: as.envEnd}
}
