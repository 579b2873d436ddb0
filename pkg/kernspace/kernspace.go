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

// Package kernspace implements address-space descriptors: the bookkeeping
// structures describing a virtual address space's mapped regions, page
// tables and associated state. The package also owns the descriptor for the
// kernel's own address space, which exists from process initialization until
// shutdown and is used when no task context exists yet.
//
// Lock order:
//
//	as.mappingMu
//	  as.pageTableMu
//	allSpacesMu
//
// as.argMu is independent of the locks above and is never held together with
// them.
package kernspace

import (
	"sync/atomic"

	"github.com/google/btree"

	"kernmm.dev/kernmm/pkg/cpumask"
	"kernmm.dev/kernmm/pkg/hostarch"
	"kernmm.dev/kernmm/pkg/kernspace/auth"
	"kernmm.dev/kernmm/pkg/sync"
)

// AddressSpace is an address-space descriptor.
//
// AddressSpace must not be copied, and the zero value is not usable; all
// descriptors are obtained from NewAddressSpace or KernelAddressSpace.
type AddressSpace struct {
	// users is the number of live users of the address space: tasks
	// currently operating against it. When users reaches zero the mapped
	// state is torn down and the descriptor's own reference is dropped.
	users atomic.Int64

	// refs is the number of holders keeping the descriptor itself alive,
	// independently of users.
	refs atomic.Int64

	// pinned is true for descriptors that exist for the whole lifetime of
	// the process, such as the kernel's own address space. A pinned
	// descriptor's counts are pre-biased so that they never reach zero;
	// reaching zero anyway is a fatal bug. pinned is immutable.
	pinned bool

	// mappingMu serializes structural changes to regions. Lookups take it
	// shared; insertion and removal take it exclusively.
	mappingMu mappingRWMutex

	// regions is the table of mapped regions, keyed by start address.
	// Ranges of distinct regions never overlap.
	//
	// regions is protected by mappingMu.
	regions *btree.BTree

	// lockSeq is a generation counter incremented on every structural
	// change to regions. Lock-free fast paths may sample it before and
	// after an unlocked walk to validate the walk.
	lockSeq atomic.Uint64

	// pageTables is the top-level translation structure for this address
	// space. The pointer is immutable and never nil; the pointed-to tables
	// are mutated only with pageTableMu held.
	pageTables  *PageTables
	pageTableMu pageTableMutex

	// writeProtectSeq is entered, with mappingMu locked for writing, around
	// changes to the write-protection window, so that readers of protection
	// state can detect a concurrent change without blocking.
	//
	// wpStart, wpEnd and wpLevel are protected by writeProtectSeq.
	writeProtectSeq sync.SeqCount
	wpStart         atomic.Uint64
	wpEnd           atomic.Uint64
	wpLevel         atomic.Uint64

	// argMu guards the auxiliary argument and environment boundaries below,
	// independently of mappingMu to avoid false contention.
	argMu            argMutex
	argStart, argEnd hostarch.Addr
	envStart, envEnd hostarch.Addr

	// spaceEntry links this descriptor into the global list of address-space
	// descriptors; see BroadcastInvalidate. Protected by allSpacesMu.
	spaceEntry spaceEntry

	// invalidateGen counts translation invalidations broadcast to this
	// address space by its page-table format peers.
	invalidateGen atomic.Uint64

	// ownerNS is the namespace that owns this address space. Immutable.
	ownerNS *auth.Namespace

	// activeCPUs records which processors currently have this address space
	// loaded. Sized to cpumask.MaxCPUs at build time.
	activeCPUs cpumask.CPUSet

	// startCode, endCode, endData and brk delimit the address space's code,
	// initialized data and initial heap break. For the kernel address space
	// they are zero until the boot sequence calls SetBootBoundaries.
	startCode, endCode, endData, brk hostarch.Addr
}

// kernelBootUsers is the kernel address space's initial user count: one for
// the boot thread and one for the idle thread, neither of which ever drops
// its reference.
const kernelBootUsers = 2

var kernelSpace = newKernelAddressSpace()

// KernelAddressSpace returns the descriptor for the kernel's own address
// space: the one in effect at boot and for kernel threads, before and
// outside any task context. It is constructed during package initialization,
// before any concurrency exists, and is never torn down.
func KernelAddressSpace() *AddressSpace {
	return kernelSpace
}

func newKernelAddressSpace() *AddressSpace {
	as := &AddressSpace{
		regions:    btree.New(regionTableDegree),
		pageTables: BootPageTables(),
		ownerNS:    auth.RootNamespace(),
		pinned:     true,
	}
	// The kernel address space is never naturally freed, so its counts are
	// pre-biased to stay positive for the lifetime of the process.
	as.users.Store(kernelBootUsers)
	as.refs.Store(1)
	registerSpace(as)
	return as
}

// NewAddressSpace returns a new, empty address space owned by ns and
// translated by pt. The caller holds both a user reference and a descriptor
// reference on the result.
func NewAddressSpace(ns *auth.Namespace, pt *PageTables) *AddressSpace {
	as := &AddressSpace{
		regions:    btree.New(regionTableDegree),
		pageTables: pt,
		ownerNS:    ns,
	}
	as.users.Store(1)
	as.refs.Store(1)
	registerSpace(as)
	return as
}

// OwnerNamespace returns the namespace that owns the address space.
func (as *AddressSpace) OwnerNamespace() *auth.Namespace {
	return as.ownerNS
}

// Pinned returns true if the descriptor exists for the whole lifetime of the
// process and is never torn down.
func (as *AddressSpace) Pinned() bool {
	return as.pinned
}

// Activate records that cpu has loaded this address space into its
// translation hardware.
func (as *AddressSpace) Activate(cpu uint32) {
	as.activeCPUs.Set(cpu)
}

// Deactivate records that cpu no longer has this address space loaded.
func (as *AddressSpace) Deactivate(cpu uint32) {
	as.activeCPUs.Clear(cpu)
}

// IsActiveOn returns true if cpu currently has this address space loaded.
func (as *AddressSpace) IsActiveOn(cpu uint32) bool {
	return as.activeCPUs.Test(cpu)
}

// ActiveCPUCount returns the number of processors that currently have this
// address space loaded.
func (as *AddressSpace) ActiveCPUCount() int {
	return as.activeCPUs.Count()
}

// LockSeq returns the current region-table generation. The value increases
// on every structural change to the region table; it never decreases.
func (as *AddressSpace) LockSeq() uint64 {
	return as.lockSeq.Load()
}
