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

// Package auth implements identity namespaces owning address spaces.
package auth

import "errors"

// A KUID is a kernel user ID.
type KUID uint32

// RootKUID is the user ID of the initial namespace's owner.
const RootKUID KUID = 0

// maxNamespaceDepth limits nesting of namespaces.
const maxNamespaceDepth = 32

// A Namespace is an identity and permission namespace. Every address space
// belongs to exactly one Namespace.
type Namespace struct {
	// parent is this namespace's parent. If this is the root namespace,
	// parent is nil. The parent pointer is immutable.
	parent *Namespace

	// owner is the user ID of the namespace's creator in the root namespace.
	// owner is immutable.
	owner KUID

	// depth is the number of ancestors of this namespace. 0 for the root
	// namespace. Immutable.
	depth int
}

// rootNamespace is the process-wide initial namespace. It exists before any
// other namespace and is never torn down.
var rootNamespace = Namespace{owner: RootKUID}

// RootNamespace returns the initial namespace.
func RootNamespace() *Namespace {
	return &rootNamespace
}

// ErrTooDeep is returned by NewNamespace when the nesting limit is reached.
var ErrTooDeep = errors.New("auth: namespace nesting limit exceeded")

// NewNamespace returns a new namespace with the given parent and owner.
func NewNamespace(parent *Namespace, owner KUID) (*Namespace, error) {
	if parent.depth+1 >= maxNamespaceDepth {
		return nil, ErrTooDeep
	}
	return &Namespace{
		parent: parent,
		owner:  owner,
		depth:  parent.depth + 1,
	}, nil
}

// Parent returns ns's parent, or nil if ns is the root namespace.
func (ns *Namespace) Parent() *Namespace {
	return ns.parent
}

// Owner returns the user ID of ns's creator.
func (ns *Namespace) Owner() KUID {
	return ns.owner
}

// Root returns the root of the namespace tree containing ns.
func (ns *Namespace) Root() *Namespace {
	for ns.parent != nil {
		ns = ns.parent
	}
	return ns
}

// IsRoot returns true if ns is the initial namespace.
func (ns *Namespace) IsRoot() bool {
	return ns == &rootNamespace
}
