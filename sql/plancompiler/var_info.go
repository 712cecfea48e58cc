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

// VarInfoKind tells the shape of the var a VarInfo replaces.
type VarInfoKind int

const (
	PrimitiveTypeVarInfoKind VarInfoKind = iota
	StructuredVarInfoKind
	CollectionVarInfoKind
)

// VarInfo describes the vars that replace a var once its type has been
// flattened.
type VarInfo interface {
	Kind() VarInfoKind
	// NewVars returns the replacement vars.
	NewVars() []*itree.Var
}

// PrimitiveTypeVarInfo replaces a primitive var by another one.
type PrimitiveTypeVarInfo struct {
	NewVar *itree.Var
}

func (i *PrimitiveTypeVarInfo) Kind() VarInfoKind { return PrimitiveTypeVarInfoKind }

func (i *PrimitiveTypeVarInfo) NewVars() []*itree.Var { return []*itree.Var{i.NewVar} }

// CollectionVarInfo replaces a collection var by a var of the flattened
// element type.
type CollectionVarInfo struct {
	NewVar *itree.Var
}

func (i *CollectionVarInfo) Kind() VarInfoKind { return CollectionVarInfoKind }

func (i *CollectionVarInfo) NewVars() []*itree.Var { return []*itree.Var{i.NewVar} }

// StructuredVarInfo replaces a record var by one var per field of the
// flattened record type.
type StructuredVarInfo struct {
	NewType *itree.TypeUsage
	// NewVarsIncludeNullSentinelVar is set when the first new var is the
	// null sentinel of the record.
	NewVarsIncludeNullSentinelVar bool

	vars   []*itree.Var
	fields map[string]*itree.Var
}

func (i *StructuredVarInfo) Kind() VarInfoKind { return StructuredVarInfoKind }

func (i *StructuredVarInfo) NewVars() []*itree.Var { return i.vars }

// TryGetVar returns the var holding the named field.
func (i *StructuredVarInfo) TryGetVar(field string) (*itree.Var, bool) {
	v, ok := i.fields[field]
	return v, ok
}

// TryGetVarForRef returns the var holding the referenced property. Only
// fields and the null sentinel have a var of their own.
func (i *StructuredVarInfo) TryGetVarForRef(ref PropertyRef) (*itree.Var, bool) {
	switch ref := ref.(type) {
	case SimplePropertyRef:
		return i.TryGetVar(ref.Name)
	case NullSentinelPropertyRef:
		if !i.NewVarsIncludeNullSentinelVar {
			return nil, false
		}
		return i.vars[0], true
	default:
		return nil, false
	}
}

// VarInfoMap holds the VarInfo of every flattened var.
type VarInfoMap struct {
	infos map[*itree.Var]VarInfo
}

func NewVarInfoMap() *VarInfoMap {
	return &VarInfoMap{infos: make(map[*itree.Var]VarInfo)}
}

// CreateStructuredVarInfo records that v is replaced by newVars, newVars[i]
// holding field newFields[i] of newType.
func (m *VarInfoMap) CreateStructuredVarInfo(
	v *itree.Var,
	newType *itree.TypeUsage,
	newVars []*itree.Var,
	newFields []string,
	newVarsIncludeNullSentinelVar bool,
) VarInfo {
	Assert(len(newVars) == len(newFields), "%d vars for %d fields flattening %s", len(newVars), len(newFields), v)
	info := &StructuredVarInfo{
		NewType:                       newType,
		NewVarsIncludeNullSentinelVar: newVarsIncludeNullSentinelVar,
		vars:                          newVars,
		fields:                        make(map[string]*itree.Var, len(newVars)),
	}
	for idx, f := range newFields {
		info.fields[f] = newVars[idx]
	}
	m.infos[v] = info
	return info
}

// CreateCollectionVarInfo records that the collection var v is replaced by
// newVar.
func (m *VarInfoMap) CreateCollectionVarInfo(v, newVar *itree.Var) VarInfo {
	info := &CollectionVarInfo{NewVar: newVar}
	m.infos[v] = info
	return info
}

// CreatePrimitiveTypeVarInfo records that v is replaced by newVar.
func (m *VarInfoMap) CreatePrimitiveTypeVarInfo(v, newVar *itree.Var) VarInfo {
	Assert(v.Type.IsPrimitive(), "%s is not of a primitive type", v)
	info := &PrimitiveTypeVarInfo{NewVar: newVar}
	m.infos[v] = info
	return info
}

func (m *VarInfoMap) TryGetVarInfo(v *itree.Var) (VarInfo, bool) {
	info, ok := m.infos[v]
	return info, ok
}
