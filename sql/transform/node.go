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

// TreeIdentity tells whether a transformation changed a tree.
type TreeIdentity bool

const (
	SameTree TreeIdentity = true
	NewTree  TreeIdentity = false
)

// NodeFunc is a function that transforms a node. It returns the node to put
// in its place and whether that is a change.
type NodeFunc func(n *itree.Node) (*itree.Node, TreeIdentity, error)

// Node applies a transformation function to the given tree from the bottom
// up. Children that change are replaced in place in their parent. Each
// callback [f] returns a TreeIdentity that is aggregated into a final output
// indicating whether the tree was changed.
func Node(n *itree.Node, f NodeFunc) (*itree.Node, TreeIdentity, error) {
	sameC := SameTree
	for i, child := range n.Children {
		c, same, err := Node(child, f)
		if err != nil {
			return nil, SameTree, err
		}
		if !same {
			n.Children[i] = c
			sameC = NewTree
		}
	}

	n, sameN, err := f(n)
	if err != nil {
		return nil, SameTree, err
	}
	return n, sameC && sameN, nil
}

// NodeDown applies a transformation function to the given tree from the
// top down. The children of the node returned by [f] are visited.
func NodeDown(n *itree.Node, f NodeFunc) (*itree.Node, TreeIdentity, error) {
	n, sameN, err := f(n)
	if err != nil {
		return nil, SameTree, err
	}

	sameC := SameTree
	for i, child := range n.Children {
		c, same, err := NodeDown(child, f)
		if err != nil {
			return nil, SameTree, err
		}
		if !same {
			n.Children[i] = c
			sameC = NewTree
		}
	}
	return n, sameC && sameN, nil
}

// Scalar applies a transformation function to a scalar tree from the bottom
// up. It does not descend into relational subtrees, such as the input of an
// Exists, which are passed to [f] whole.
func Scalar(n *itree.Node, f NodeFunc) (*itree.Node, TreeIdentity, error) {
	if n.OpType().IsRelational() {
		return f(n)
	}
	sameC := SameTree
	for i, child := range n.Children {
		c, same, err := Scalar(child, f)
		if err != nil {
			return nil, SameTree, err
		}
		if !same {
			n.Children[i] = c
			sameC = NewTree
		}
	}

	n, sameN, err := f(n)
	if err != nil {
		return nil, SameTree, err
	}
	return n, sameC && sameN, nil
}

// InspectScalar traverses a scalar tree in pre-order without descending into
// relational subtrees. The relational roots themselves are passed to f.
func InspectScalar(n *itree.Node, f func(*itree.Node) bool) {
	if !f(n) || n.OpType().IsRelational() {
		return
	}
	for _, child := range n.Children {
		InspectScalar(child, f)
	}
}
