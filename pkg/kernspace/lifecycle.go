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
	"fmt"

	"github.com/sirupsen/logrus"
)

// IncUsers increments the address space's user count.
func (as *AddressSpace) IncUsers() {
	if !as.TryIncUsers() {
		panic("Attempting to increment users of a destroyed AddressSpace")
	}
}

// TryIncUsers increments the address space's user count unless it has
// already reached zero. It returns true on success.
func (as *AddressSpace) TryIncUsers() bool {
	for {
		users := as.users.Load()
		if users == 0 {
			return false
		}
		if as.users.CompareAndSwap(users, users+1) {
			return true
		}
	}
}

// DecUsers decrements the address space's user count. When the count reaches
// zero the mapped state is torn down and the descriptor's own reference is
// dropped.
func (as *AddressSpace) DecUsers() {
	users := as.users.Add(-1)
	if users < 0 {
		panic(fmt.Sprintf("Invalid address space user count %d", users))
	}
	if users > 0 {
		return
	}
	if as.pinned {
		panic("All users of the pinned kernel address space dropped")
	}
	as.mappingMu.Lock()
	as.clearRegionsLocked()
	as.mappingMu.Unlock()
	as.DecRef()
}

// IncRef increments the descriptor's reference count.
func (as *AddressSpace) IncRef() {
	if as.refs.Add(1) <= 1 {
		panic("Attempting to increment refs of a destroyed AddressSpace")
	}
}

// DecRef decrements the descriptor's reference count. When the count reaches
// zero the descriptor is removed from the global address-space list and
// becomes unreachable.
func (as *AddressSpace) DecRef() {
	refs := as.refs.Add(-1)
	if refs < 0 {
		panic(fmt.Sprintf("Invalid address space ref count %d", refs))
	}
	if refs > 0 {
		return
	}
	if as.pinned {
		panic("Last reference to the pinned kernel address space dropped")
	}
	unregisterSpace(as)
	logrus.WithField("owner", as.ownerNS.Owner()).Debug("address space released")
}

// UserCount returns the current user count.
func (as *AddressSpace) UserCount() int64 {
	return as.users.Load()
}

// RefCount returns the current descriptor reference count.
func (as *AddressSpace) RefCount() int64 {
	return as.refs.Load()
}
