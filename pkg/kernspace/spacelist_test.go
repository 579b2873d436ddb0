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
	"testing"

	"kernmm.dev/kernmm/pkg/hostarch"
	"kernmm.dev/kernmm/pkg/kernspace/auth"
)

// With no dynamic address spaces alive, the global list contains exactly the
// kernel singleton, registered first.
func TestGlobalListContainsKernelSpace(t *testing.T) {
	var spaces []*AddressSpace
	ForEachAddressSpace(func(as *AddressSpace) bool {
		spaces = append(spaces, as)
		return true
	})
	if len(spaces) != 1 || spaces[0] != KernelAddressSpace() {
		t.Errorf("global list: got %d spaces (first %p), wanted exactly the kernel singleton %p",
			len(spaces), spaces[0], KernelAddressSpace())
	}
}

func TestRegistrationOrder(t *testing.T) {
	a := NewAddressSpace(auth.RootNamespace(), NewPageTables(1, 0x4000))
	t.Cleanup(a.DecUsers)
	b := NewAddressSpace(auth.RootNamespace(), NewPageTables(1, 0x5000))
	t.Cleanup(b.DecUsers)
	var spaces []*AddressSpace
	ForEachAddressSpace(func(as *AddressSpace) bool {
		spaces = append(spaces, as)
		return true
	})
	if len(spaces) != 3 || spaces[0] != KernelAddressSpace() || spaces[1] != a || spaces[2] != b {
		t.Errorf("global list: got %d spaces, wanted kernel, a, b in registration order", len(spaces))
	}
}

func TestBroadcastInvalidate(t *testing.T) {
	kern := KernelAddressSpace()
	// Same format class as the kernel's boot tables.
	peer := NewAddressSpace(auth.RootNamespace(), NewPageTables(0, 0x4000))
	t.Cleanup(peer.DecUsers)
	// A different format class: must not be notified.
	other := NewAddressSpace(auth.RootNamespace(), NewPageTables(7, 0x5000))
	t.Cleanup(other.DecUsers)

	ar := hostarch.AddrRange{Start: 0x1000, End: 0x2000}
	kern.BroadcastInvalidate(ar)
	if got := peer.InvalidateGen(); got != 1 {
		t.Errorf("peer InvalidateGen: got %d, wanted 1", got)
	}
	if got := other.InvalidateGen(); got != 0 {
		t.Errorf("other InvalidateGen: got %d, wanted 0", got)
	}
	// The broadcaster does not notify itself.
	if got := kern.InvalidateGen(); got != 0 {
		t.Errorf("kernel InvalidateGen: got %d, wanted 0", got)
	}
	kern.BroadcastInvalidate(ar)
	if got := peer.InvalidateGen(); got != 2 {
		t.Errorf("peer InvalidateGen after second broadcast: got %d, wanted 2", got)
	}
}
