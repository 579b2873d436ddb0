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

// pageTableMutex is sync.Mutex with the correctness validator.
//
// It is held only for short, bounded critical sections mutating page-table
// entries; holders must not block or sleep.
type pageTableMutex struct {
	mu sync.Mutex
}

// Lock locks m.
// +checklocksignore
func (m *pageTableMutex) Lock() {
	locking.AddGLock(pageTableprefixIndex, 0)
	m.mu.Lock()
}

// NestedLock locks m knowing that another lock of the same type is held.
// +checklocksignore
func (m *pageTableMutex) NestedLock() {
	locking.AddGLock(pageTableprefixIndex, 1)
	m.mu.Lock()
}

// Unlock unlocks m.
// +checklocksignore
func (m *pageTableMutex) Unlock() {
	m.mu.Unlock()
	locking.DelGLock(pageTableprefixIndex, 0)
}

// NestedUnlock unlocks m knowing that another lock of the same type is held.
// +checklocksignore
func (m *pageTableMutex) NestedUnlock() {
	m.mu.Unlock()
	locking.DelGLock(pageTableprefixIndex, 1)
}

var pageTableprefixIndex *locking.MutexClass

func init() {
	pageTableprefixIndex = locking.NewMutexClass(reflect.TypeOf(pageTableMutex{}))
}
