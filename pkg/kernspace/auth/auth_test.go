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

package auth

import "testing"

func TestRootNamespace(t *testing.T) {
	root := RootNamespace()
	if root != RootNamespace() {
		t.Errorf("RootNamespace is not a singleton")
	}
	if !root.IsRoot() {
		t.Errorf("IsRoot: got false, wanted true")
	}
	if root.Parent() != nil {
		t.Errorf("Parent: got %v, wanted nil", root.Parent())
	}
	if got := root.Owner(); got != RootKUID {
		t.Errorf("Owner: got %d, wanted %d", got, RootKUID)
	}
}

func TestNamespaceNesting(t *testing.T) {
	ns := RootNamespace()
	for i := 0; i < maxNamespaceDepth-1; i++ {
		child, err := NewNamespace(ns, KUID(1000+i))
		if err != nil {
			t.Fatalf("NewNamespace at depth %d: got err %v, wanted nil", i+1, err)
		}
		if child.Root() != RootNamespace() {
			t.Fatalf("Root at depth %d: got %v, wanted the root namespace", i+1, child.Root())
		}
		ns = child
	}
	if _, err := NewNamespace(ns, 42); err != ErrTooDeep {
		t.Errorf("NewNamespace past the limit: got err %v, wanted ErrTooDeep", err)
	}
}
