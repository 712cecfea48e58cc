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

// VarRemapper replaces references to vars in a tree. Mappings are followed
// transitively, so after a->b and b->c every reference to a becomes c.
type VarRemapper struct {
	cmd    *itree.Command
	varMap map[*itree.Var]*itree.Var
}

// NewVarRemapper returns a remapper with no mappings.
func NewVarRemapper(cmd *itree.Command) *VarRemapper {
	return &VarRemapper{cmd: cmd, varMap: make(map[*itree.Var]*itree.Var)}
}

// NewVarRemapperFromMap returns a remapper with the mappings of m.
func NewVarRemapperFromMap(cmd *itree.Command, m *itree.VarMap) *VarRemapper {
	r := NewVarRemapper(cmd)
	for _, k := range m.Keys() {
		v, _ := m.Get(k)
		r.AddMapping(k, v)
	}
	return r
}

// AddMapping makes every reference to oldVar a reference to newVar.
func (r *VarRemapper) AddMapping(oldVar, newVar *itree.Var) {
	if oldVar == newVar {
		return
	}
	Assert(r.Map(newVar) != oldVar, "var mapping %s -> %s creates a cycle", oldVar, newVar)
	r.varMap[oldVar] = newVar
}

// IsEmpty reports whether the remapper has no mappings.
func (r *VarRemapper) IsEmpty() bool {
	return len(r.varMap) == 0
}

// Map returns the var v ends up mapped to, or v itself.
func (r *VarRemapper) Map(v *itree.Var) *itree.Var {
	for {
		nv, ok := r.varMap[v]
		if !ok {
			return v
		}
		v = nv
	}
}

// RemapNode rewrites the vars held by the operator of n. It does not look at
// the children of n and does not recompute node info.
func (r *VarRemapper) RemapNode(n *itree.Node) bool {
	if len(r.varMap) == 0 {
		return false
	}
	return itree.RemapOpVars(n.Op, r.Map)
}

// RemapSubtree rewrites every var reference of the subtree, bottom up,
// recomputing the node info of changed nodes and their ancestors.
func (r *VarRemapper) RemapSubtree(n *itree.Node) bool {
	if len(r.varMap) == 0 {
		return false
	}
	changed := false
	for _, child := range n.Children {
		if r.RemapSubtree(child) {
			changed = true
		}
	}
	if r.RemapNode(n) {
		changed = true
	}
	if changed {
		r.cmd.RecomputeNodeInfo(n)
	}
	return changed
}

// RemapVarList returns a copy of vars with every var mapped.
func (r *VarRemapper) RemapVarList(vars itree.VarList) itree.VarList {
	res := make(itree.VarList, len(vars))
	for i, v := range vars {
		res[i] = r.Map(v)
	}
	return res
}

// RemapVarVec returns a new set with every var of vv mapped.
func (r *VarRemapper) RemapVarVec(vv *itree.VarVec) *itree.VarVec {
	res := r.cmd.CreateVarVec()
	for _, v := range vv.Vars() {
		res.Set(r.Map(v))
	}
	return res
}

// RemapVarVecThroughVarInfo returns a new set where every structured or
// collection var of vv is replaced by the vars it was split into.
func (r *VarRemapper) RemapVarVecThroughVarInfo(vv *itree.VarVec, infos *VarInfoMap) *itree.VarVec {
	res := r.cmd.CreateVarVec()
	for _, v := range vv.Vars() {
		v = r.Map(v)
		info, ok := infos.TryGetVarInfo(v)
		if !ok {
			res.Set(v)
			continue
		}
		for _, nv := range info.NewVars() {
			res.Set(nv)
		}
	}
	return res
}
