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
	"kernmm.dev/kernmm/pkg/hostarch"
	"kernmm.dev/kernmm/pkg/sync"
)

// WriteProtect describes an address space's write-protection window: the
// range of addresses whose protections are being downgraded and the level of
// the downgrade.
type WriteProtect struct {
	// Range is the affected interval.
	Range hostarch.AddrRange

	// Level is the protection level applied to Range. Zero means no
	// write-protection change is in effect.
	Level uint64
}

// SetWriteProtect publishes a new write-protection window. The region table
// lock is taken exclusively for the duration of the change, serializing
// writers; readers are not blocked and instead detect the change through the
// sequence counter (see ReadWriteProtect).
func (as *AddressSpace) SetWriteProtect(wp WriteProtect) {
	as.mappingMu.Lock()
	defer as.mappingMu.Unlock()
	as.writeProtectSeq.BeginWrite()
	as.wpStart.Store(uint64(wp.Range.Start))
	as.wpEnd.Store(uint64(wp.Range.End))
	as.wpLevel.Store(wp.Level)
	as.writeProtectSeq.EndWrite()
}

// ReadWriteProtect returns a consistent snapshot of the write-protection
// window without taking any lock. If a concurrent SetWriteProtect runs, the
// read is retried, so the returned range and level always belong to the same
// change.
func (as *AddressSpace) ReadWriteProtect() WriteProtect {
	return sync.SeqAtomicLoad(&as.writeProtectSeq, func() WriteProtect {
		return WriteProtect{
			Range: hostarch.AddrRange{
				Start: hostarch.Addr(as.wpStart.Load()),
				End:   hostarch.Addr(as.wpEnd.Load()),
			},
			Level: as.wpLevel.Load(),
		}
	})
}
