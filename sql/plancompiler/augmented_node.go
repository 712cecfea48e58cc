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

package plancompiler

import (
	"fmt"

	"github.com/dolthub/go-plancompiler/sql/itree"
)

// augmentedNode is a node of the shadow tree built over a join subtree.
type augmentedNode interface {
	base() *AugmentedNode
	String() string
}

// AugmentedNode mirrors an input of a join that is neither a join nor a
// table scan. Nodes live in the JoinGraph arena; Parent and Children are
// indices into it. The root has no parent and Parent -1.
type AugmentedNode struct {
	Id       int
	Node     *itree.Node
	Parent   int
	Children []int
}

func (n *AugmentedNode) base() *AugmentedNode { return n }

func (n *AugmentedNode) String() string {
	return fmt.Sprintf("%d:%s", n.Id, n.Node.OpType())
}

// AugmentedTableNode mirrors a table scan.
type AugmentedTableNode struct {
	AugmentedNode
	Table *itree.Table
	// ReplacementTable is the id of the table standing in for this one, or
	// its own id when the table is not eliminated.
	ReplacementTable int
	// FirstVisibleId is the id of the lowest join whose predicate reads a
	// column of the table, or -1.
	FirstVisibleId int
	// NewLocationId is the id of the slot the table is rebuilt at. It is the
	// table's own id unless the table took the place of an eliminated one.
	NewLocationId int
}

// IsEliminated reports whether another table replaces this one.
func (t *AugmentedTableNode) IsEliminated() bool {
	return t.ReplacementTable != t.Id
}

func (t *AugmentedTableNode) String() string {
	s := fmt.Sprintf("%d:%s(%d) visible@%d", t.Id, t.Table.MD.Name, t.Table.Id, t.FirstVisibleId)
	if t.NewLocationId != t.Id {
		s += fmt.Sprintf(" moved to %d", t.NewLocationId)
	}
	if t.IsEliminated() {
		s += fmt.Sprintf(" replaced by %d", t.ReplacementTable)
	}
	return s
}

// AugmentedJoinNode mirrors a join. Its predicate is split into equijoin
// column pairs, LeftVars[i] = RightVars[i], and the remaining conjuncts.
type AugmentedJoinNode struct {
	AugmentedNode
	JoinType       itree.OpType
	LeftVars       []*itree.Var
	RightVars      []*itree.Var
	OtherPredicate *itree.Node

	pairPredicates  []*itree.Node
	rightEliminated bool
}

func (j *AugmentedJoinNode) String() string {
	return fmt.Sprintf("%d:%s%v %s=%s", j.Id, j.JoinType, j.Children, itree.VarList(j.LeftVars), itree.VarList(j.RightVars))
}
