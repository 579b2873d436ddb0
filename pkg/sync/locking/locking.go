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

// Package locking implements lock-class bookkeeping for the lock order
// validator.
//
// All mutexes are divided into classes, and the validator checks the
// following conditions:
//   - Mutexes of the same class are not taken more than once except in cases
//     when that is expected.
//   - Mutexes are never locked in a reverse order. Lock dependencies are
//     tracked on the class level.
//
// The validator is compiled in only when the "lockdep" build tag is set;
// otherwise all hooks are no-ops.
package locking
