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
	"github.com/dolthub/go-plancompiler/sql/itree"
)

// JoinElimination removes the tables of join subtrees that do not change
// the result of the join. Each maximal join subtree gets its own
// JoinGraph; the columns of removed tables are then replaced throughout
// the tree.
type JoinElimination struct {
	pc       *PlanCompiler
	cmd      *itree.Command
	remapper *VarRemapper
	changed  bool
}

func NewJoinElimination(pc *PlanCompiler) *JoinElimination {
	return &JoinElimination{
		pc:       pc,
		cmd:      pc.Command,
		remapper: NewVarRemapper(pc.Command),
	}
}

// Process eliminates joins in the tree of the compilation and reports
// whether it changed.
func (je *JoinElimination) Process() bool {
	root := je.visit(je.cmd.Root)
	if !je.changed {
		return false
	}
	je.cmd.Root = root
	je.remapper.RemapSubtree(root)
	je.cmd.RecomputeSubtreeNodeInfo(root)
	je.pc.MarkProjectionPruningRequired()
	return true
}

func (je *JoinElimination) visit(n *itree.Node) *itree.Node {
	if isEliminableJoin(n.OpType()) {
		return je.processJoin(n)
	}
	je.visitChildren(n)
	return n
}

func (je *JoinElimination) visitChildren(n *itree.Node) {
	for i, child := range n.Children {
		n.Children[i] = je.visit(child)
	}
}

func isEliminableJoin(t itree.OpType) bool {
	switch t {
	case itree.OpCrossJoin, itree.OpInnerJoin, itree.OpLeftOuterJoin, itree.OpFullOuterJoin:
		return true
	}
	return false
}

func (je *JoinElimination) processJoin(n *itree.Node) *itree.Node {
	outside := je.cmd.CreateVarVec()
	if n == je.cmd.Root {
		outside.Or(je.cmd.GetExtendedNodeInfo(n).Definitions)
	} else {
		collectVarRefs(je.cmd.Root, n, outside)
	}

	g := NewJoinGraph(je.cmd, je.pc.ConstraintManager(), je.remapper, n, outside)
	res, changed := g.DoJoinElimination()
	if changed {
		je.changed = true
		je.pc.Log("eliminated tables of join subtree:\n%s", g)
	}

	for _, input := range g.InputNodes() {
		je.visitChildren(input)
	}
	for _, pred := range g.Predicates() {
		je.visitChildren(pred)
	}
	return res
}
