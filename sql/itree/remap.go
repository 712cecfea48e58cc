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

// VarMapper returns the replacement of a var, or the var itself.
type VarMapper func(*Var) *Var

// RemapOpVars rewrites in place every var the operator holds, except the
// var defined by a VarDef. Sets that end up with two copies of the same var
// keep one. It reports whether anything changed.
func RemapOpVars(op Op, m VarMapper) bool {
	switch o := op.(type) {
	case *VarRefOp:
		if nv := m(o.Var); nv != o.Var {
			o.Var = nv
			return true
		}
		return false
	case *ProjectOp:
		return remapVarVec(o.Outputs, m)
	case *GroupByOp:
		changed := remapVarVec(o.Keys, m)
		return remapVarVec(o.Outputs, m) || changed
	case *GroupByIntoOp:
		changed := remapVarVec(o.Keys, m)
		changed = remapVarVec(o.Inputs, m) || changed
		return remapVarVec(o.Outputs, m) || changed
	case *DistinctOp:
		return remapVarVec(o.Keys, m)
	case *SortOp:
		var changed bool
		o.Keys, changed = remapSortKeys(o.Keys, m)
		return changed
	case *ConstrainedSortOp:
		var changed bool
		o.Keys, changed = remapSortKeys(o.Keys, m)
		return changed
	case *SetOp:
		changed := false
		for i := range o.VarMap {
			nm := NewVarMap()
			for _, k := range o.VarMap[i].Keys() {
				v, _ := o.VarMap[i].Get(k)
				nk, nv := m(k), m(v)
				changed = changed || nk != k || nv != v
				nm.Add(nk, nv)
			}
			o.VarMap[i] = nm
		}
		return remapVarVec(o.Outputs, m) || changed
	case *UnnestOp:
		if nv := m(o.Var); nv != o.Var {
			o.Var = nv
			return true
		}
		return false
	case *PhysicalProjectOp:
		changed := false
		for i, v := range o.Outputs {
			if nv := m(v); nv != v {
				o.Outputs[i] = nv
				changed = true
			}
		}
		if o.ColumnMap != nil {
			changed = remapColumnMap(o.ColumnMap, m) || changed
		}
		return changed
	default:
		return false
	}
}

func remapVarVec(vv *VarVec, m VarMapper) bool {
	vars := vv.Vars()
	changed := false
	for _, v := range vars {
		if m(v) != v {
			changed = true
			break
		}
	}
	if !changed {
		return false
	}
	vv.ClearAll()
	for _, v := range vars {
		vv.Set(m(v))
	}
	return true
}

func remapSortKeys(keys []*SortKey, m VarMapper) ([]*SortKey, bool) {
	changed := false
	seen := make(map[*Var]bool, len(keys))
	res := keys[:0]
	for _, k := range keys {
		if nv := m(k.Var); nv != k.Var {
			k.Var = nv
			changed = true
		}
		if seen[k.Var] {
			changed = true
			continue
		}
		seen[k.Var] = true
		res = append(res, k)
	}
	return res, changed
}

func remapColumnMap(cm ColumnMap, m VarMapper) bool {
	switch c := cm.(type) {
	case *VarRefColumnMap:
		if nv := m(c.Var); nv != c.Var {
			c.Var = nv
			return true
		}
	case *RecordColumnMap:
		changed := false
		for _, p := range c.Properties {
			changed = remapColumnMap(p, m) || changed
		}
		if c.NullSentinel != nil {
			changed = remapColumnMap(c.NullSentinel, m) || changed
		}
		return changed
	case *SimpleCollectionColumnMap:
		return remapColumnMap(c.Element, m)
	}
	return false
}
