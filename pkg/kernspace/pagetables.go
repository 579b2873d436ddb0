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

import "kernmm.dev/kernmm/pkg/hostarch"

// PageTables is an opaque reference to the top-level translation structure
// for an address space. The contents of the tables belong to the
// architecture layer; this package tracks only identity and format class.
type PageTables struct {
	// formatClass groups page-table formats whose translations are
	// invalidated together; see AddressSpace.BroadcastInvalidate.
	// Immutable.
	formatClass uint8

	// root is the address of the top-level table. Immutable.
	root hostarch.Addr
}

// NewPageTables returns a reference to page tables of the given format class
// rooted at root.
func NewPageTables(formatClass uint8, root hostarch.Addr) *PageTables {
	return &PageTables{
		formatClass: formatClass,
		root:        root,
	}
}

// FormatClass returns the page-table format class.
func (pt *PageTables) FormatClass() uint8 {
	return pt.formatClass
}

// Root returns the address of the top-level table.
func (pt *PageTables) Root() hostarch.Addr {
	return pt.root
}

// bootPageTableRoot is the address at which the boot environment establishes
// the initial top-level table, before the kernel proper runs.
const bootPageTableRoot hostarch.Addr = hostarch.PageSize

// bootPageTables is the built-in initial translation structure. The kernel
// address space refers to it from construction onward.
var bootPageTables = PageTables{
	formatClass: 0,
	root:        bootPageTableRoot,
}

// BootPageTables returns the initial page tables used by the kernel address
// space.
func BootPageTables() *PageTables {
	return &bootPageTables
}

// MutatePageTables runs fn with the page-table lock held. The lock is held
// only for short, bounded critical sections; fn must not block or sleep.
func (as *AddressSpace) MutatePageTables(fn func(pt *PageTables)) {
	as.pageTableMu.Lock()
	defer as.pageTableMu.Unlock()
	fn(as.pageTables)
}

// PageTables returns the address space's top-level translation structure.
// The result is never nil.
func (as *AddressSpace) PageTables() *PageTables {
	return as.pageTables
}
