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
	"reflect"

	"kernmm.dev/kernmm/pkg/sync"
	"kernmm.dev/kernmm/pkg/sync/locking"
)

// mappingRWMutex is sync.RWMutex with the correctness validator.
type mappingRWMutex struct {
	mu sync.RWMutex
}

// Lock locks m.
// +checklocksignore
func (m *mappingRWMutex) Lock() {
	locking.AddGLock(mappingprefixIndex, 0)
	m.mu.Lock()
}

// NestedLock locks m knowing that another lock of the same type is held.
// +checklocksignore
func (m *mappingRWMutex) NestedLock() {
	locking.AddGLock(mappingprefixIndex, 1)
	m.mu.Lock()
}

// Unlock unlocks m.
// +checklocksignore
func (m *mappingRWMutex) Unlock() {
	m.mu.Unlock()
	locking.DelGLock(mappingprefixIndex, 0)
}

// NestedUnlock unlocks m knowing that another lock of the same type is held.
// +checklocksignore
func (m *mappingRWMutex) NestedUnlock() {
	m.mu.Unlock()
	locking.DelGLock(mappingprefixIndex, 1)
}

// RLock locks m for reading.
// +checklocksignore
func (m *mappingRWMutex) RLock() {
	locking.AddGLock(mappingprefixIndex, 0)
	m.mu.RLock()
}

// RUnlock undoes a single RLock call.
// +checklocksignore
func (m *mappingRWMutex) RUnlock() {
	m.mu.RUnlock()
	locking.DelGLock(mappingprefixIndex, 0)
}

var mappingprefixIndex *locking.MutexClass

func init() {
	mappingprefixIndex = locking.NewMutexClass(reflect.TypeOf(mappingRWMutex{}))
}
