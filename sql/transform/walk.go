// Copyright 2020-2021 Dolthub, Inc.
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

package transform

import (
	"github.com/dolthub/go-plancompiler/sql/itree"
)

// Visitor visits nodes in the tree.
type Visitor interface {
	// Visit method is invoked for each node encountered by Walk.
	// If the result Visitor is not nil, Walk visits each of the children
	// of the node with that visitor, followed by a call of Visit(nil)
	// to the returned visitor.
	Visit(node *itree.Node) Visitor
}

// Walk traverses the tree in depth-first order. It starts by calling v.Visit(node); node must not be nil. If the
// visitor returned by v.Visit(node) is not nil, Walk is invoked recursively with the returned visitor for each
// children of the node, followed by a call of v.Visit(nil) to the returned visitor.
func Walk(v Visitor, node *itree.Node) {
	if v = v.Visit(node); v == nil {
		return
	}

	for _, child := range node.Children {
		Walk(v, child)
	}

	v.Visit(nil)
}

type inspector func(*itree.Node) bool

func (f inspector) Visit(node *itree.Node) Visitor {
	if node == nil {
		return nil
	}
	if f(node) {
		return f
	}
	return nil
}

// Inspect performs a pre-order traversal of the tree. It calls f(node) and,
// if f returns true, inspects the children of node.
func Inspect(node *itree.Node, f func(*itree.Node) bool) {
	Walk(inspector(f), node)
}

// InspectUp performs a post-order traversal of the tree, stopping as soon
// as f returns true. It reports whether the traversal was stopped.
func InspectUp(node *itree.Node, f func(*itree.Node) bool) bool {
	for _, child := range node.Children {
		if InspectUp(child, f) {
			return true
		}
	}
	return f(node)
}

// InspectWithParents performs a pre-order traversal of the tree, passing
// the chain of ancestors of each node, root first.
func InspectWithParents(node *itree.Node, f func(n *itree.Node, parents []*itree.Node) bool) {
	inspectWithParents(node, nil, f)
}

func inspectWithParents(node *itree.Node, parents []*itree.Node, f func(*itree.Node, []*itree.Node) bool) {
	if !f(node, parents) {
		return
	}
	parents = append(parents, node)
	for _, child := range node.Children {
		inspectWithParents(child, parents, f)
	}
}
