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

// argMutex is sync.Mutex with the correctness validator.
//
// It guards only the argument and environment boundary fields, so that
// readers of those fields never contend with region-table or page-table
// operations.
type argMutex struct {
	mu sync.Mutex
}

// Lock locks m.
// +checklocksignore
func (m *argMutex) Lock() {
	locking.AddGLock(argprefixIndex, 0)
	m.mu.Lock()
}

// Unlock unlocks m.
// +checklocksignore
func (m *argMutex) Unlock() {
	m.mu.Unlock()
	locking.DelGLock(argprefixIndex, 0)
}

var argprefixIndex *locking.MutexClass

func init() {
	argprefixIndex = locking.NewMutexClass(reflect.TypeOf(argMutex{}))
}
