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
	"github.com/dolthub/go-plancompiler/sql"
)

func computeNodeInfo(c *Command, n *Node, info *NodeInfo) {
	switch op := n.Op.(type) {
	case *VarRefOp:
		info.ExternalReferences.Set(op.Var)
	case *ScanTableOp:
		computeScanTableInfo(c, op, info)
	case *UnnestOp:
		computeUnnestInfo(c, n, op, info)
	case *ProjectOp:
		computeProjectInfo(c, n, op, info)
	case *FilterOp:
		computeFilterInfo(c, n, info)
	case *SortOp:
		computeSortInfo(c, n, info)
	case *ConstrainedSortOp:
		computeConstrainedSortInfo(c, n, op, info)
	case *GroupByOp:
		computeGroupByInfo(c, n, op.Keys, op.Outputs, info)
	case *GroupByIntoOp:
		computeGroupByInfo(c, n, op.Keys, op.Outputs, info)
	case *JoinOp:
		computeJoinInfo(c, n, info)
	case *ApplyOp:
		computeApplyInfo(c, n, info)
	case *SetOp:
		computeSetOpInfo(c, n, op, info)
	case *DistinctOp:
		computeDistinctInfo(c, n, op, info)
	case *SingleRowOp:
		computeSingleRowInfo(c, n, info)
	case *SingleRowTableOp:
		info.Keys.NoKeys = false
		info.SetRowCount(RowCountOne, RowCountOne)
	case *PhysicalProjectOp:
		computePhysicalProjectInfo(c, n, op, info)
	case *VarDefOp, *VarDefListOp, *LeafOp:
		unionChildExternalReferences(c, n, info)
	default:
		if !n.OpType().IsScalar() {
			panic(sql.ErrInvalidOpType.New("node info", n.OpType()))
		}
		unionChildExternalReferences(c, n, info)
	}
	info.HashValue = computeHash(c, n)
}

func unionChildExternalReferences(c *Command, n *Node, info *NodeInfo) {
	for _, child := range n.Children {
		info.ExternalReferences.Or(c.GetNodeInfo(child).ExternalReferences)
	}
}

// addExternalReferences adds the references of the scalar or ancillary
// child that are not satisfied by defs.
func addExternalReferences(c *Command, child *Node, defs *VarVec, info *NodeInfo) {
	refs := c.GetNodeInfo(child).ExternalReferences.Clone()
	refs.Minus(defs)
	info.ExternalReferences.Or(refs)
}

func computeScanTableInfo(c *Command, op *ScanTableOp, info *NodeInfo) {
	t := op.Table
	info.Definitions.InitFrom(t.ReferencedColumns)
	info.LocalDefinitions.InitFrom(t.ReferencedColumns)
	info.NonNullableDefinitions.InitFrom(t.NonNullableColumns).And(t.ReferencedColumns)
	info.NonNullableVisibleDefinitions.InitFrom(info.NonNullableDefinitions)
	if !t.Keys.IsEmpty() && t.ReferencedColumns.Subsumes(t.Keys) {
		info.Keys.InitFromVars(t.Keys)
	}
	info.SetRowCount(RowCountZero, RowCountUnbounded)
}

func computeUnnestInfo(c *Command, n *Node, op *UnnestOp, info *NodeInfo) {
	info.ExternalReferences.InitFrom(c.GetNodeInfo(n.Child0()).ExternalReferences)
	for _, v := range op.Table.Columns {
		info.Definitions.Set(v)
		info.LocalDefinitions.Set(v)
	}
	info.SetRowCount(RowCountZero, RowCountUnbounded)
}

func computeProjectInfo(c *Command, n *Node, op *ProjectOp, info *NodeInfo) {
	input := c.GetNodeInfo(n.Child0())

	info.ExternalReferences.InitFrom(input.ExternalReferences)
	addExternalReferences(c, n.Child1(), input.Definitions, info)
	info.Definitions.InitFrom(op.Outputs)

	for _, varDef := range n.Child1().Children {
		vd := varDef.Op.(*VarDefOp)
		info.LocalDefinitions.Set(vd.Var)
		if op.Outputs.IsSet(vd.Var) && IsDefinitionNonNullable(varDef.Child0(), input.NonNullableDefinitions) {
			info.NonNullableDefinitions.Set(vd.Var)
		}
	}
	nonNullableInputs := input.NonNullableDefinitions.Clone().And(op.Outputs)
	info.NonNullableDefinitions.Or(nonNullableInputs)
	info.NonNullableVisibleDefinitions.InitFrom(info.NonNullableDefinitions)

	// Keys survive if every key var is either output or renamed by a simple
	// redefinition that is output.
	if !input.Keys.NoKeys {
		keys := c.CreateVarVec()
		found := true
		for _, k := range input.Keys.KeyVars.Vars() {
			if op.Outputs.IsSet(k) {
				keys.Set(k)
				continue
			}
			if v := findRedefinition(n.Child1(), k, op.Outputs); v != nil {
				keys.Set(v)
				continue
			}
			found = false
			break
		}
		if found {
			info.Keys.InitFromVars(keys)
		}
	}

	info.SetRowCount(input.MinRows, input.MaxRows)
}

func findRedefinition(varDefList *Node, v *Var, outputs *VarVec) *Var {
	for _, varDef := range varDefList.Children {
		vd := varDef.Op.(*VarDefOp)
		if ref, ok := varDef.Child0().Op.(*VarRefOp); ok && ref.Var == v && outputs.IsSet(vd.Var) {
			return vd.Var
		}
	}
	return nil
}

func computeFilterInfo(c *Command, n *Node, info *NodeInfo) {
	input := c.GetNodeInfo(n.Child0())

	info.ExternalReferences.InitFrom(input.ExternalReferences)
	addExternalReferences(c, n.Child1(), input.Definitions, info)
	info.Definitions.InitFrom(input.Definitions)
	info.Keys.InitFrom(input.Keys)
	info.NonNullableDefinitions.InitFrom(input.NonNullableDefinitions)
	info.NonNullableVisibleDefinitions.InitFrom(input.NonNullableVisibleDefinitions)

	info.SetRowCount(RowCountZero, input.MaxRows)
	if pred, ok := n.Child1().Op.(*ConstantPredicateOp); ok {
		if pred.IsFalse() {
			info.MaxRows = RowCountZero
		} else {
			info.MinRows = input.MinRows
		}
	}
}

func inheritInputInfo(c *Command, n *Node, info *NodeInfo) *NodeInfo {
	input := c.GetNodeInfo(n.Child0())
	info.ExternalReferences.InitFrom(input.ExternalReferences)
	info.Definitions.InitFrom(input.Definitions)
	info.Keys.InitFrom(input.Keys)
	info.NonNullableDefinitions.InitFrom(input.NonNullableDefinitions)
	info.NonNullableVisibleDefinitions.InitFrom(input.NonNullableVisibleDefinitions)
	info.SetRowCount(input.MinRows, input.MaxRows)
	return input
}

func computeSortInfo(c *Command, n *Node, info *NodeInfo) {
	inheritInputInfo(c, n, info)
}

func computeConstrainedSortInfo(c *Command, n *Node, op *ConstrainedSortOp, info *NodeInfo) {
	input := inheritInputInfo(c, n, info)
	addExternalReferences(c, n.Child1(), input.Definitions, info)
	addExternalReferences(c, n.Child2(), input.Definitions, info)

	info.MinRows = RowCountZero
	if limit, ok := n.Child2().Op.(*ConstantOp); ok && limit.OpType() != OpNull {
		if l, ok := limit.Int64Value(); ok {
			switch {
			case l <= 0:
				info.MaxRows = RowCountZero
			case l == 1 && !op.WithTies:
				info.MaxRows = minRowCount(info.MaxRows, RowCountOne)
			}
		}
	}
}

func computeGroupByInfo(c *Command, n *Node, keys, outputs *VarVec, info *NodeInfo) {
	input := c.GetNodeInfo(n.Child0())

	info.ExternalReferences.InitFrom(input.ExternalReferences)
	for _, child := range n.Children[1:] {
		addExternalReferences(c, child, input.Definitions, info)
		for _, varDef := range child.Children {
			vd := varDef.Op.(*VarDefOp)
			info.LocalDefinitions.Set(vd.Var)
		}
	}
	info.Definitions.InitFrom(outputs)
	info.Keys.InitFromVars(keys)

	info.NonNullableDefinitions.InitFrom(input.NonNullableDefinitions).And(keys)
	for _, varDef := range n.Child1().Children {
		vd := varDef.Op.(*VarDefOp)
		if IsDefinitionNonNullable(varDef.Child0(), input.NonNullableDefinitions) {
			info.NonNullableDefinitions.Set(vd.Var)
		}
	}
	info.NonNullableVisibleDefinitions.InitFrom(info.NonNullableDefinitions)

	if keys.IsEmpty() {
		info.SetRowCount(RowCountOne, RowCountOne)
	} else {
		info.SetRowCount(minRowCount(input.MinRows, RowCountOne), input.MaxRows)
	}
}

func joinMaxRows(children []*NodeInfo) RowCount {
	max := RowCountOne
	for _, ci := range children {
		if ci.MaxRows == RowCountZero {
			return RowCountZero
		}
		max = maxRowCount(max, ci.MaxRows)
	}
	return max
}

func computeJoinInfo(c *Command, n *Node, info *NodeInfo) {
	inputs := n.Children
	var pred *Node
	if n.OpType() != OpCrossJoin {
		inputs = n.Children[:2]
		pred = n.Child2()
	}

	children := make([]*NodeInfo, len(inputs))
	keys := c.CreateVarVec()
	hasKeys := true
	for i, input := range inputs {
		ci := c.GetNodeInfo(input)
		children[i] = ci
		info.ExternalReferences.Or(ci.ExternalReferences)
		info.Definitions.Or(ci.Definitions)
		if ci.Keys.NoKeys {
			hasKeys = false
		} else {
			keys.Or(ci.Keys.KeyVars)
		}
	}
	if pred != nil {
		addExternalReferences(c, pred, info.Definitions, info)
	}
	if hasKeys {
		info.Keys.InitFromVars(keys)
	}

	switch n.OpType() {
	case OpCrossJoin, OpInnerJoin:
		for _, ci := range children {
			info.NonNullableDefinitions.Or(ci.NonNullableDefinitions)
		}
	case OpLeftOuterJoin:
		info.NonNullableDefinitions.InitFrom(children[0].NonNullableDefinitions)
	}
	info.NonNullableVisibleDefinitions.InitFrom(info.NonNullableDefinitions)

	switch n.OpType() {
	case OpCrossJoin:
		min := RowCountOne
		for _, ci := range children {
			min = minRowCount(min, ci.MinRows)
		}
		info.SetRowCount(min, joinMaxRows(children))
	case OpInnerJoin:
		info.SetRowCount(RowCountZero, joinMaxRows(children))
	case OpLeftOuterJoin:
		max := joinMaxRows(children)
		if children[0].MaxRows != RowCountZero && children[1].MaxRows == RowCountZero {
			max = children[0].MaxRows
		}
		info.SetRowCount(children[0].MinRows, max)
	case OpFullOuterJoin:
		max := maxRowCount(children[0].MaxRows, children[1].MaxRows)
		if max != RowCountZero && (children[0].MaxRows > RowCountOne || children[1].MaxRows > RowCountOne) {
			max = RowCountUnbounded
		}
		info.SetRowCount(maxRowCount(children[0].MinRows, children[1].MinRows), max)
	}
}

func computeApplyInfo(c *Command, n *Node, info *NodeInfo) {
	left := c.GetNodeInfo(n.Child0())
	right := c.GetNodeInfo(n.Child1())

	info.ExternalReferences.InitFrom(left.ExternalReferences)
	rightRefs := right.ExternalReferences.Clone().Minus(left.Definitions)
	info.ExternalReferences.Or(rightRefs)
	info.Definitions.InitFrom(left.Definitions).Or(right.Definitions)
	if !left.Keys.NoKeys && !right.Keys.NoKeys {
		info.Keys.InitFromVars(left.Keys.KeyVars.Clone().Or(right.Keys.KeyVars))
	}

	info.NonNullableDefinitions.InitFrom(left.NonNullableDefinitions)
	if n.OpType() == OpCrossApply {
		info.NonNullableDefinitions.Or(right.NonNullableDefinitions)
	}
	info.NonNullableVisibleDefinitions.InitFrom(info.NonNullableDefinitions)

	max := joinMaxRows([]*NodeInfo{left, right})
	if n.OpType() == OpOuterApply {
		if left.MaxRows != RowCountZero && right.MaxRows == RowCountZero {
			max = left.MaxRows
		}
		info.SetRowCount(left.MinRows, max)
	} else {
		info.SetRowCount(RowCountZero, max)
	}
}

func computeSetOpInfo(c *Command, n *Node, op *SetOp, info *NodeInfo) {
	left := c.GetNodeInfo(n.Child0())
	right := c.GetNodeInfo(n.Child1())

	info.ExternalReferences.InitFrom(left.ExternalReferences).Or(right.ExternalReferences)
	info.Definitions.InitFrom(op.Outputs)
	info.LocalDefinitions.InitFrom(op.Outputs)
	if n.OpType() != OpUnionAll {
		info.Keys.InitFromVars(op.Outputs)
	}

	branches := []*NodeInfo{left, right}
	for _, out := range op.Outputs.Vars() {
		var nonNull [2]bool
		for i, bi := range branches {
			if in, ok := op.VarMap[i].Get(out); ok {
				nonNull[i] = bi.NonNullableDefinitions.IsSet(in)
			}
		}
		var set bool
		switch n.OpType() {
		case OpUnionAll:
			set = nonNull[0] && nonNull[1]
		case OpIntersect:
			set = nonNull[0] || nonNull[1]
		case OpExcept:
			set = nonNull[0]
		}
		if set {
			info.NonNullableDefinitions.Set(out)
		}
	}
	info.NonNullableVisibleDefinitions.InitFrom(info.NonNullableDefinitions)

	switch n.OpType() {
	case OpUnionAll:
		max := RowCountUnbounded
		if left.MaxRows == RowCountZero {
			max = right.MaxRows
		} else if right.MaxRows == RowCountZero {
			max = left.MaxRows
		}
		info.SetRowCount(maxRowCount(left.MinRows, right.MinRows), max)
	case OpIntersect:
		info.SetRowCount(RowCountZero, minRowCount(left.MaxRows, right.MaxRows))
	case OpExcept:
		info.SetRowCount(RowCountZero, left.MaxRows)
	}
}

func computeDistinctInfo(c *Command, n *Node, op *DistinctOp, info *NodeInfo) {
	input := c.GetNodeInfo(n.Child0())
	info.ExternalReferences.InitFrom(input.ExternalReferences)
	info.Definitions.InitFrom(op.Keys)
	info.Keys.InitFromVars(op.Keys)
	info.NonNullableDefinitions.InitFrom(input.NonNullableDefinitions).And(op.Keys)
	info.NonNullableVisibleDefinitions.InitFrom(info.NonNullableDefinitions)
	info.SetRowCount(input.MinRows, input.MaxRows)
}

func computeSingleRowInfo(c *Command, n *Node, info *NodeInfo) {
	input := inheritInputInfo(c, n, info)
	info.SetRowCount(minRowCount(input.MinRows, RowCountOne), minRowCount(input.MaxRows, RowCountOne))
}

func computePhysicalProjectInfo(c *Command, n *Node, op *PhysicalProjectOp, info *NodeInfo) {
	input := c.GetNodeInfo(n.Child0())
	info.ExternalReferences.InitFrom(input.ExternalReferences)
	for _, child := range n.Children[1:] {
		addExternalReferences(c, child, input.Definitions, info)
	}
	for _, v := range op.Outputs {
		info.Definitions.Set(v)
	}
	info.NonNullableDefinitions.InitFrom(input.NonNullableDefinitions).And(info.Definitions)
	info.NonNullableVisibleDefinitions.InitFrom(info.NonNullableDefinitions)
	info.SetRowCount(input.MinRows, input.MaxRows)
}
