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

func singleRowRules() []Rule {
	return []Rule{
		NewSimpleRule(singleRowOpOverAnythingId, itree.OpSingleRow, processSingleRowOpOverAnything),
		NewPatternMatchRule(singleRowOpOverProjectId,
			pattern(itree.NewSingleRowOp(), pattern(itree.NewProjectOp(nil), leaf(), leaf())),
			processSingleRowOpOverProject),
	}
}

// SingleRow(X) => X when X has at most one row, or when X filters every
// key of its input on a value that does not depend on the row.
func processSingleRowOpOverAnything(ctx *TransformationRulesContext, n *itree.Node) (bool, *itree.Node) {
	cmd := ctx.Command()
	child := n.Child0()
	if cmd.GetExtendedNodeInfo(child).MaxRows <= itree.RowCountOne {
		return true, child
	}
	if child.OpType() == itree.OpFilter && filtersOnAllKeys(cmd, child) {
		return true, child
	}
	return false, n
}

func filtersOnAllKeys(cmd *itree.Command, filter *itree.Node) bool {
	inputInfo := cmd.GetExtendedNodeInfo(filter.Child0())
	if inputInfo.Keys.NoKeys || inputInfo.Keys.KeyVars.IsEmpty() {
		return false
	}

	isRowIndependent := func(n *itree.Node) bool {
		if isNonNullConstant(n) {
			return true
		}
		return n.OpType().IsScalar() && !cmd.GetNodeInfo(n).ExternalReferences.Overlaps(inputInfo.Definitions)
	}

	bound := cmd.CreateVarVec()
	for _, conjunct := range splitConjuncts(filter.Child1()) {
		if conjunct.OpType() != itree.OpEQ {
			continue
		}
		left, right := conjunct.Child0(), conjunct.Child1()
		if ref, ok := left.Op.(*itree.VarRefOp); ok && isRowIndependent(right) {
			bound.Set(ref.Var)
		}
		if ref, ok := right.Op.(*itree.VarRefOp); ok && isRowIndependent(left) {
			bound.Set(ref.Var)
		}
	}
	return bound.Subsumes(inputInfo.Keys.KeyVars)
}

// SingleRow(Project(X, defs)) => Project(SingleRow(X), defs)
func processSingleRowOpOverProject(ctx *TransformationRulesContext, n *itree.Node) (bool, *itree.Node) {
	cmd := ctx.Command()
	project := n.Child0()
	n.Children[0] = project.Child0()
	cmd.RecomputeNodeInfo(n)
	project.Children[0] = n
	return true, project
}
