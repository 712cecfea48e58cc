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

import (
	"fmt"
	"strings"
)

// VarType is the kind of producer of a var.
type VarType int

const (
	// ColumnVarType is a column of a table instance.
	ColumnVarType VarType = iota
	// ComputedVarType is defined by a VarDef.
	ComputedVarType
	// ParameterVarType is an external query parameter.
	ParameterVarType
	// SetOpVarType is an output of a set operation.
	SetOpVarType
)

// Var is a value slot flowing through the tree. Vars are unique within a
// Command and are compared by identity.
type Var struct {
	Id      int
	VarType VarType
	Type    *TypeUsage

	// Table and Column are set for column vars.
	Table  *Table
	Column *ColumnMD

	// Name is set for parameter vars.
	Name string
}

func (v *Var) String() string {
	return fmt.Sprintf("Var(%d)", v.Id)
}

// VarList is an ordered list of vars.
type VarList []*Var

// Contains reports whether v is in the list.
func (l VarList) Contains(v *Var) bool {
	return l.IndexOf(v) >= 0
}

// IndexOf returns the position of v in the list or -1.
func (l VarList) IndexOf(v *Var) int {
	for i, lv := range l {
		if lv == v {
			return i
		}
	}
	return -1
}

func (l VarList) String() string {
	parts := make([]string, len(l))
	for i, v := range l {
		parts[i] = v.String()
	}
	return strings.Join(parts, ", ")
}

// VarMap maps vars to vars, preserving insertion order.
type VarMap struct {
	keys   []*Var
	values map[*Var]*Var
}

// NewVarMap returns an empty VarMap.
func NewVarMap() *VarMap {
	return &VarMap{values: make(map[*Var]*Var)}
}

// Add maps k to v, replacing any previous mapping of k.
func (m *VarMap) Add(k, v *Var) {
	if _, ok := m.values[k]; !ok {
		m.keys = append(m.keys, k)
	}
	m.values[k] = v
}

// Get returns the var k maps to.
func (m *VarMap) Get(k *Var) (*Var, bool) {
	v, ok := m.values[k]
	return v, ok
}

// Delete removes the mapping of k.
func (m *VarMap) Delete(k *Var) {
	if _, ok := m.values[k]; !ok {
		return
	}
	delete(m.values, k)
	for i, key := range m.keys {
		if key == k {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the mapped vars in insertion order.
func (m *VarMap) Keys() []*Var {
	return m.keys
}

// Len returns the number of mappings.
func (m *VarMap) Len() int {
	return len(m.keys)
}

// Reverse returns the inverse mapping.
func (m *VarMap) Reverse() *VarMap {
	r := NewVarMap()
	for _, k := range m.keys {
		r.Add(m.values[k], k)
	}
	return r
}

// Clone returns a copy of the map.
func (m *VarMap) Clone() *VarMap {
	c := NewVarMap()
	for _, k := range m.keys {
		c.Add(k, m.values[k])
	}
	return c
}

func (m *VarMap) String() string {
	parts := make([]string, len(m.keys))
	for i, k := range m.keys {
		parts[i] = fmt.Sprintf("%s->%s", k, m.values[k])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
