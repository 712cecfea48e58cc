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

// ProjectionPruner removes the definitions and outputs nobody reads. The
// tree is walked top down, collecting the vars referenced so far; each node
// drops what is not in that set before its children are visited.
type ProjectionPruner struct {
	pc         *PlanCompiler
	cmd        *itree.Command
	referenced *itree.VarVec
	changed    bool
}

func NewProjectionPruner(pc *PlanCompiler) *ProjectionPruner {
	return &ProjectionPruner{
		pc:         pc,
		cmd:        pc.Command,
		referenced: pc.Command.CreateVarVec(),
	}
}

// Process prunes the tree of the compilation and reports whether it
// changed.
func (p *ProjectionPruner) Process() bool {
	root := p.cmd.Root
	if op, ok := root.Op.(*itree.PhysicalProjectOp); ok {
		for _, v := range op.Outputs {
			p.referenced.Set(v)
		}
	} else if root.OpType().IsRelational() {
		p.referenced.Or(p.cmd.GetExtendedNodeInfo(root).Definitions)
	}

	p.visit(root)
	if p.changed {
		p.cmd.RecomputeSubtreeNodeInfo(root)
		p.pc.Log("pruned unreferenced definitions")
	}
	return p.changed
}

func (p *ProjectionPruner) visit(n *itree.Node) {
	switch op := n.Op.(type) {
	case *itree.VarRefOp:
		p.referenced.Set(op.Var)
	case *itree.ProjectOp:
		p.pruneProject(n, op)
	case *itree.GroupByOp:
		p.pruneGroupBy(n, op)
	case *itree.GroupByIntoOp:
		p.referenced.Or(op.Keys).Or(op.Inputs).Or(op.Outputs)
	case *itree.SetOp:
		p.pruneSetOp(n, op)
	case *itree.ScanTableOp:
		p.pruneTable(op.Table)
	case *itree.UnnestOp:
		p.referenced.Set(op.Var)
	case *itree.SortOp:
		p.addSortKeys(op.Keys)
	case *itree.ConstrainedSortOp:
		p.addSortKeys(op.Keys)
	case *itree.DistinctOp:
		p.referenced.Or(op.Keys)
	case *itree.PhysicalProjectOp:
		for _, v := range op.Outputs {
			p.referenced.Set(v)
		}
	default:
		if n.OpType().IsScalar() {
			// a relational input of a scalar op is read as a whole
			for _, child := range n.Children {
				if child.OpType().IsRelational() {
					p.referenced.Or(p.cmd.GetExtendedNodeInfo(child).Definitions)
				}
			}
		}
	}
	p.visitChildren(n)
}

// visitChildren visits the scalar and ancillary children first, then the
// relational ones from right to left, so that references made by a right
// input to its left sibling are known before the left input is pruned.
func (p *ProjectionPruner) visitChildren(n *itree.Node) {
	for _, child := range n.Children {
		if !child.OpType().IsRelational() {
			p.visit(child)
		}
	}
	for i := len(n.Children) - 1; i >= 0; i-- {
		if child := n.Children[i]; child.OpType().IsRelational() {
			p.visit(child)
		}
	}
}

func (p *ProjectionPruner) pruneProject(n *itree.Node, op *itree.ProjectOp) {
	if outputs := op.Outputs.Clone().And(p.referenced); !outputs.Equal(op.Outputs) {
		op.Outputs = outputs
		p.changed = true
	}
	p.pruneVarDefList(n.Child1(), op.Outputs)
	p.referenced.Or(op.Outputs)
}

func (p *ProjectionPruner) pruneGroupBy(n *itree.Node, op *itree.GroupByOp) {
	aggregates := n.Child2()
	p.pruneVarDefList(aggregates, p.referenced)
	outputs := op.Keys.Clone()
	for _, varDef := range aggregates.Children {
		outputs.Set(varDef.Op.(*itree.VarDefOp).Var)
	}
	if !outputs.Equal(op.Outputs) {
		op.Outputs = outputs
		p.changed = true
	}
	p.referenced.Or(op.Keys)
}

func (p *ProjectionPruner) pruneVarDefList(varDefList *itree.Node, keep *itree.VarVec) {
	kept := varDefList.Children[:0]
	for _, varDef := range varDefList.Children {
		if keep.IsSet(varDef.Op.(*itree.VarDefOp).Var) {
			kept = append(kept, varDef)
		} else {
			p.changed = true
		}
	}
	varDefList.Children = kept
}

// pruneSetOp drops the unreferenced outputs of a UnionAll, keeping at least
// one. Intersect and Except compare whole rows and keep every output.
func (p *ProjectionPruner) pruneSetOp(n *itree.Node, op *itree.SetOp) {
	if n.OpType() == itree.OpUnionAll {
		for _, v := range op.Outputs.Vars() {
			if p.referenced.IsSet(v) || op.Outputs.Count() == 1 {
				continue
			}
			op.Outputs.Clear(v)
			op.VarMap[0].Delete(v)
			op.VarMap[1].Delete(v)
			p.changed = true
		}
	}
	p.referenced.Or(op.Outputs)
	for _, m := range op.VarMap {
		for _, out := range m.Keys() {
			in, _ := m.Get(out)
			p.referenced.Set(in)
		}
	}
}

func (p *ProjectionPruner) pruneTable(t *itree.Table) {
	cols := t.ReferencedColumns.Clone().And(p.referenced)
	if !cols.Equal(t.ReferencedColumns) {
		t.ReferencedColumns = cols
		p.changed = true
	}
}

func (p *ProjectionPruner) addSortKeys(keys []*itree.SortKey) {
	for _, k := range keys {
		p.referenced.Set(k.Var)
	}
}
