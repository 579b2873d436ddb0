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

// spaceEntry is an intrusive list entry embedded in AddressSpace. Entries
// are added to and removed from a spaceList in O(1) time with no additional
// allocations.
type spaceEntry struct {
	next *AddressSpace
	prev *AddressSpace
}

// spaceList is an intrusive list of address-space descriptors.
//
// The zero value for spaceList is an empty list ready to use.
type spaceList struct {
	head *AddressSpace
	tail *AddressSpace
}

// Empty returns true iff the list is empty.
func (l *spaceList) Empty() bool {
	return l.head == nil
}

// Front returns the first descriptor in the list or nil.
func (l *spaceList) Front() *AddressSpace {
	return l.head
}

// PushBack inserts as at the back of the list.
func (l *spaceList) PushBack(as *AddressSpace) {
	as.spaceEntry.next = nil
	as.spaceEntry.prev = l.tail
	if l.tail != nil {
		l.tail.spaceEntry.next = as
	} else {
		l.head = as
	}
	l.tail = as
}

// Remove removes as from the list.
func (l *spaceList) Remove(as *AddressSpace) {
	prev := as.spaceEntry.prev
	next := as.spaceEntry.next
	if prev != nil {
		prev.spaceEntry.next = next
	} else if l.head == as {
		l.head = next
	}
	if next != nil {
		next.spaceEntry.prev = prev
	} else if l.tail == as {
		l.tail = prev
	}
	as.spaceEntry.next = nil
	as.spaceEntry.prev = nil
}

var (
	// allSpacesMu protects allSpaces and every spaceEntry.
	allSpacesMu sync.Mutex

	// allSpaces is the list of all live address-space descriptors. The
	// kernel address space is its first member from package initialization
	// onward.
	allSpaces spaceList
)

func registerSpace(as *AddressSpace) {
	allSpacesMu.Lock()
	defer allSpacesMu.Unlock()
	allSpaces.PushBack(as)
}

func unregisterSpace(as *AddressSpace) {
	allSpacesMu.Lock()
	defer allSpacesMu.Unlock()
	allSpaces.Remove(as)
}

// ForEachAddressSpace calls fn for each live address-space descriptor in
// registration order, until fn returns false. fn must not create or destroy
// address spaces.
func ForEachAddressSpace(fn func(as *AddressSpace) bool) {
	allSpacesMu.Lock()
	defer allSpacesMu.Unlock()
	for as := allSpaces.Front(); as != nil; as = as.spaceEntry.next {
		if !fn(as) {
			return
		}
	}
}

// BroadcastInvalidate notifies every other live address space sharing as's
// page-table format class that translations for ar must be refreshed before
// next use. This is the cross-descriptor coordination point for TLB
// shoot-down: peers observe the notification via InvalidateGen.
func (as *AddressSpace) BroadcastInvalidate(ar hostarch.AddrRange) {
	allSpacesMu.Lock()
	defer allSpacesMu.Unlock()
	for other := allSpaces.Front(); other != nil; other = other.spaceEntry.next {
		if other == as {
			continue
		}
		if other.pageTables.FormatClass() != as.pageTables.FormatClass() {
			continue
		}
		other.invalidateGen.Add(1)
	}
}

// InvalidateGen returns the number of translation invalidations broadcast to
// this address space so far. The value never decreases.
func (as *AddressSpace) InvalidateGen() uint64 {
	return as.invalidateGen.Load()
}
