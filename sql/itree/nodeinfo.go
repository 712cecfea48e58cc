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

	"github.com/mitchellh/hashstructure"
)

// RowCount bounds the number of rows of a relational node.
type RowCount int

const (
	RowCountZero RowCount = iota
	RowCountOne
	RowCountUnbounded
)

func (r RowCount) String() string {
	switch r {
	case RowCountZero:
		return "0"
	case RowCountOne:
		return "1"
	default:
		return "*"
	}
}

func minRowCount(a, b RowCount) RowCount {
	if a < b {
		return a
	}
	return b
}

func maxRowCount(a, b RowCount) RowCount {
	if a > b {
		return a
	}
	return b
}

// NodeInfo holds the derived facts of a node. Scalar and ancillary nodes
// only carry ExternalReferences and HashValue; relational nodes carry the
// rest too.
type NodeInfo struct {
	// ExternalReferences are the vars referenced in the subtree but not
	// defined in it.
	ExternalReferences *VarVec
	HashValue          uint64

	// Definitions are the vars visible above the node.
	Definitions *VarVec

	// LocalDefinitions are the vars defined by the node itself.
	LocalDefinitions *VarVec
	Keys             *KeyVec

	// NonNullableDefinitions are the definitions known never to be null.
	NonNullableDefinitions        *VarVec
	NonNullableVisibleDefinitions *VarVec
	MinRows                       RowCount
	MaxRows                       RowCount
}

func newNodeInfo(c *Command) *NodeInfo {
	return &NodeInfo{
		ExternalReferences:            c.CreateVarVec(),
		Definitions:                   c.CreateVarVec(),
		LocalDefinitions:              c.CreateVarVec(),
		Keys:                          &KeyVec{KeyVars: c.CreateVarVec(), NoKeys: true},
		NonNullableDefinitions:        c.CreateVarVec(),
		NonNullableVisibleDefinitions: c.CreateVarVec(),
		MinRows:                       RowCountZero,
		MaxRows:                       RowCountUnbounded,
	}
}

func (ni *NodeInfo) reset() {
	ni.ExternalReferences.ClearAll()
	ni.HashValue = 0
	ni.Definitions.ClearAll()
	ni.LocalDefinitions.ClearAll()
	ni.Keys.Clear()
	ni.NonNullableDefinitions.ClearAll()
	ni.NonNullableVisibleDefinitions.ClearAll()
	ni.MinRows = RowCountZero
	ni.MaxRows = RowCountUnbounded
}

// SetRowCount sets both row count bounds.
func (ni *NodeInfo) SetRowCount(min, max RowCount) {
	ni.MinRows = min
	ni.MaxRows = max
}

func (ni *NodeInfo) String() string {
	return fmt.Sprintf("defs=%s ext=%s keys=%s nonnull=%s rows=[%s,%s]",
		ni.Definitions, ni.ExternalReferences, ni.Keys, ni.NonNullableDefinitions, ni.MinRows, ni.MaxRows)
}

// IsDefinitionNonNullable reports whether the value of def is known never
// to be null, given the non-nullable vars of its input.
func IsDefinitionNonNullable(def *Node, nonNullableInputs *VarVec) bool {
	switch op := def.Op.(type) {
	case *ConstantOp:
		switch op.OpType() {
		case OpInternalConstant, OpNullSentinel:
			return true
		case OpConstant:
			return op.Value != nil
		}
		return false
	case *VarRefOp:
		return nonNullableInputs.IsSet(op.Var)
	default:
		return false
	}
}

type hashedNode struct {
	OpType   OpType
	Key      interface{}
	Children []uint64
}

func opHashKey(op Op) interface{} {
	switch o := op.(type) {
	case *ConstantOp:
		return fmt.Sprintf("%v", o.Value)
	case *ConstantPredicateOp:
		return o.Value
	case *VarRefOp:
		return o.Var.Id
	case *VarDefOp:
		return o.Var.Id
	case *ScanTableOp:
		return o.Table.Id
	case *FunctionOp:
		return o.Name
	case *AggregateOp:
		return o.Name
	case *PropertyOp:
		return o.Property
	case *ProjectOp:
		return varIds(o.Outputs.Vars())
	case *DistinctOp:
		return varIds(o.Keys.Vars())
	case *GroupByOp:
		return varIds(o.Outputs.Vars())
	case *GroupByIntoOp:
		return varIds(o.Outputs.Vars())
	case *SetOp:
		return varIds(o.Outputs.Vars())
	case *UnnestOp:
		return o.Var.Id
	default:
		return nil
	}
}

func varIds(vars []*Var) []int {
	ids := make([]int, len(vars))
	for i, v := range vars {
		ids[i] = v.Id
	}
	return ids
}

func computeHash(c *Command, n *Node) uint64 {
	h := hashedNode{OpType: n.OpType(), Key: opHashKey(n.Op)}
	for _, child := range n.Children {
		h.Children = append(h.Children, c.GetNodeInfo(child).HashValue)
	}
	v, err := hashstructure.Hash(h, nil)
	if err != nil {
		return uint64(n.OpType())
	}
	return v
}
