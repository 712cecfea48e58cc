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

// JoinKind is the kind of a join edge.
type JoinKind int

const (
	InnerJoinKind JoinKind = iota
	LeftOuterJoinKind
)

func (k JoinKind) String() string {
	if k == LeftOuterJoinKind {
		return "LeftOuter"
	}
	return "Inner"
}

// JoinEdge is an equijoin between the columns of two tables:
// LeftVars[i] = RightVars[i] for every i. Left is on the left of the join
// the edge comes from. Edges inferred from other edges have no Join.
type JoinEdge struct {
	Left      *AugmentedTableNode
	Right     *AugmentedTableNode
	Kind      JoinKind
	LeftVars  []*itree.Var
	RightVars []*itree.Var
	Join      *AugmentedJoinNode
}

// IsEliminated reports whether one of the tables of the edge is.
func (e *JoinEdge) IsEliminated() bool {
	return e.Left.IsEliminated() || e.Right.IsEliminated()
}

// Touches reports whether t is one of the tables of the edge.
func (e *JoinEdge) Touches(t *AugmentedTableNode) bool {
	return e.Left == t || e.Right == t
}

// Other returns the table at the other end of the edge from t.
func (e *JoinEdge) Other(t *AugmentedTableNode) *AugmentedTableNode {
	if e.Left == t {
		return e.Right
	}
	return e.Left
}

// VarsOn returns the join columns of the edge on the side of t.
func (e *JoinEdge) VarsOn(t *AugmentedTableNode) []*itree.Var {
	if e.Left == t {
		return e.LeftVars
	}
	return e.RightVars
}

func (e *JoinEdge) addPair(left, right *itree.Var) {
	e.LeftVars = append(e.LeftVars, left)
	e.RightVars = append(e.RightVars, right)
}

func (e *JoinEdge) String() string {
	return fmt.Sprintf("%s(%d, %d) %s=%s", e.Kind, e.Left.Id, e.Right.Id, itree.VarList(e.LeftVars), itree.VarList(e.RightVars))
}
