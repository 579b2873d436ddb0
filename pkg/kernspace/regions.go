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
	"errors"
	"fmt"

	"github.com/google/btree"

	"kernmm.dev/kernmm/pkg/hostarch"
)

// regionTableDegree is the degree of the B-tree backing a region table.
const regionTableDegree = 8

// A Region describes one mapped interval of an address space.
type Region struct {
	// Range is the interval of virtual addresses the region covers.
	Range hostarch.AddrRange

	// Perms are the region's effective permissions.
	Perms hostarch.AccessType

	// Backing identifies what backs the region. It is opaque to this
	// package.
	Backing any
}

// Less implements btree.Item.Less by start address. Regions in a table are
// pairwise disjoint, so ordering by Start is total.
func (r Region) Less(than btree.Item) bool {
	return r.Range.Start < than.(Region).Range.Start
}

// Region table errors.
var (
	// ErrInvalidRange indicates a range that is not well-formed or has zero
	// length.
	ErrInvalidRange = errors.New("invalid region range")

	// ErrOverlap indicates that a region to be inserted overlaps an
	// existing region.
	ErrOverlap = errors.New("region overlaps an existing region")

	// ErrNoSuchRegion indicates that no region matches the given range.
	ErrNoSuchRegion = errors.New("no region at the given range")
)

// InsertRegion inserts r into the region table. It fails if r's range is not
// well-formed or has zero length, or if it overlaps any existing region.
func (as *AddressSpace) InsertRegion(r Region) error {
	if !r.Range.WellFormed() || r.Range.Length() == 0 {
		return fmt.Errorf("%w: %v", ErrInvalidRange, r.Range)
	}
	as.mappingMu.Lock()
	defer as.mappingMu.Unlock()
	if conflict, ok := as.overlappingRegionLocked(r.Range); ok {
		return fmt.Errorf("%w: %v overlaps %v", ErrOverlap, r.Range, conflict.Range)
	}
	as.regions.ReplaceOrInsert(r)
	as.lockSeq.Add(1)
	return nil
}

// RemoveRegion removes the region whose range is exactly ar.
func (as *AddressSpace) RemoveRegion(ar hostarch.AddrRange) error {
	if !ar.WellFormed() || ar.Length() == 0 {
		return fmt.Errorf("%w: %v", ErrInvalidRange, ar)
	}
	as.mappingMu.Lock()
	defer as.mappingMu.Unlock()
	item := as.regions.Get(Region{Range: hostarch.AddrRange{Start: ar.Start}})
	if item == nil || item.(Region).Range != ar {
		return fmt.Errorf("%w: %v", ErrNoSuchRegion, ar)
	}
	as.regions.Delete(item)
	as.lockSeq.Add(1)
	return nil
}

// FindRegion returns the region containing addr, if any.
func (as *AddressSpace) FindRegion(addr hostarch.Addr) (Region, bool) {
	as.mappingMu.RLock()
	defer as.mappingMu.RUnlock()
	return as.findRegionLocked(addr)
}

// Preconditions: as.mappingMu must be locked.
func (as *AddressSpace) findRegionLocked(addr hostarch.Addr) (Region, bool) {
	var (
		found Region
		ok    bool
	)
	pivot := Region{Range: hostarch.AddrRange{Start: addr}}
	as.regions.DescendLessOrEqual(pivot, func(i btree.Item) bool {
		r := i.(Region)
		if r.Range.Contains(addr) {
			found, ok = r, true
		}
		return false
	})
	return found, ok
}

// overlappingRegionLocked returns a region overlapping ar, if any. Since
// regions are disjoint and ordered by start address, it suffices to examine
// the region with the greatest start address below ar.End.
//
// Preconditions: as.mappingMu must be locked. ar.Length() != 0.
func (as *AddressSpace) overlappingRegionLocked(ar hostarch.AddrRange) (Region, bool) {
	if checkInvariants {
		if !ar.WellFormed() || ar.Length() == 0 {
			panic(fmt.Sprintf("invalid ar: %v", ar))
		}
	}
	var (
		found Region
		ok    bool
	)
	pivot := Region{Range: hostarch.AddrRange{Start: ar.End - 1}}
	as.regions.DescendLessOrEqual(pivot, func(i btree.Item) bool {
		r := i.(Region)
		if r.Range.End > ar.Start {
			found, ok = r, true
		}
		return false
	})
	return found, ok
}

// ForEachRegion calls fn for each region in ascending order of start address,
// until fn returns false. fn must not mutate the region table.
func (as *AddressSpace) ForEachRegion(fn func(r Region) bool) {
	as.mappingMu.RLock()
	defer as.mappingMu.RUnlock()
	as.regions.Ascend(func(i btree.Item) bool {
		return fn(i.(Region))
	})
}

// RegionCount returns the number of regions in the table.
func (as *AddressSpace) RegionCount() int {
	as.mappingMu.RLock()
	defer as.mappingMu.RUnlock()
	return as.regions.Len()
}

// RegionSpan returns the total number of bytes covered by all regions.
func (as *AddressSpace) RegionSpan() uint64 {
	as.mappingMu.RLock()
	defer as.mappingMu.RUnlock()
	var span uint64
	as.regions.Ascend(func(i btree.Item) bool {
		span += i.(Region).Range.Length()
		return true
	})
	return span
}

// Preconditions: as.mappingMu must be locked for writing.
func (as *AddressSpace) clearRegionsLocked() {
	as.regions.Clear(false)
	as.lockSeq.Add(1)
}
