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

package itree

type copier struct {
	cmd    *Command
	varMap map[*Var]*Var
}

// Copy returns a deep copy of the subtree rooted at n. Every var defined in
// the subtree is replaced by a fresh var in the copy, and references to it
// are rewritten; references to vars defined outside the subtree are kept.
func (c *Command) Copy(n *Node) *Node {
	cp := &copier{cmd: c, varMap: make(map[*Var]*Var)}
	return cp.copy(n)
}

// CopyWithVarMap is Copy, also returning the mapping of the vars defined in
// the subtree to their copies.
func (c *Command) CopyWithVarMap(n *Node) (*Node, *VarMap) {
	cp := &copier{cmd: c, varMap: make(map[*Var]*Var)}
	res := cp.copy(n)
	m := NewVarMap()
	for _, v := range c.vars {
		if nv, ok := cp.varMap[v]; ok {
			m.Add(v, nv)
		}
	}
	return res, m
}

func (cp *copier) mapVar(v *Var) *Var {
	if nv, ok := cp.varMap[v]; ok {
		return nv
	}
	return v
}

func (cp *copier) copy(n *Node) *Node {
	children := make([]*Node, len(n.Children))
	for i, child := range n.Children {
		children[i] = cp.copy(child)
	}

	op := CloneOp(n.Op)
	switch o := op.(type) {
	case *VarDefOp:
		nv := cp.cmd.CreateComputedVar(o.Var.Type)
		cp.varMap[o.Var] = nv
		o.Var = nv
	case *ScanTableOp:
		o.Table = cp.copyTable(o.Table)
	case *UnnestOp:
		o.Table = cp.copyTable(o.Table)
	case *SetOp:
		for _, out := range o.Outputs.Vars() {
			cp.varMap[out] = cp.cmd.CreateSetOpVar(out.Type)
		}
	}
	RemapOpVars(op, cp.mapVar)

	return cp.cmd.CreateNode(op, children...)
}

func (cp *copier) copyTable(t *Table) *Table {
	nt := cp.cmd.CreateTableInstance(t.MD)
	for i, v := range t.Columns {
		cp.varMap[v] = nt.Columns[i]
	}
	nt.ReferencedColumns.ClearAll()
	for _, v := range t.ReferencedColumns.Vars() {
		nt.ReferencedColumns.Set(cp.varMap[v])
	}
	return nt
}
