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

func applyRules() []Rule {
	crossApply := func(children ...*itree.Node) *itree.Node {
		return pattern(itree.NewApplyOp(itree.OpCrossApply), children...)
	}
	outerApply := func(children ...*itree.Node) *itree.Node {
		return pattern(itree.NewApplyOp(itree.OpOuterApply), children...)
	}
	filter := pattern(itree.NewFilterOp(), leaf(), leaf())
	project := pattern(itree.NewProjectOp(nil), leaf(), leaf())

	return []Rule{
		NewSimpleRule(crossApplyOverEmptyRightId, itree.OpCrossApply, processApplyOverEmptyRight),
		NewSimpleRule(outerApplyOverEmptyRightId, itree.OpOuterApply, processApplyOverEmptyRight),
		NewPatternMatchRule(crossApplyOverFilterId, crossApply(leaf(), filter), processApplyOverFilter),
		NewPatternMatchRule(outerApplyOverFilterId, outerApply(leaf(), filter), processApplyOverFilter),
		NewPatternMatchRule(crossApplyOverProjectId, crossApply(leaf(), project), processCrossApplyOverProject),
		NewSimpleRule(crossApplyOverAnythingId, itree.OpCrossApply, processApplyOverAnything),
		NewSimpleRule(outerApplyOverAnythingId, itree.OpOuterApply, processApplyOverAnything),
	}
}

// isCorrelated reports whether right reads vars defined by left.
func isCorrelated(cmd *itree.Command, left, right *itree.Node) bool {
	leftDefs := cmd.GetExtendedNodeInfo(left).Definitions
	return cmd.GetNodeInfo(right).ExternalReferences.Overlaps(leftDefs)
}

// CrossApply(X, Filter(Y, p)) => InnerJoin(X, Y, p)
// OuterApply(X, Filter(Y, p)) => LeftOuterJoin(X, Y, p)
//
// Only when Y does not read the vars of X. The predicate may.
func processApplyOverFilter(ctx *TransformationRulesContext, n *itree.Node) (bool, *itree.Node) {
	cmd := ctx.Command()
	filter := n.Child1()
	if isCorrelated(cmd, n.Child0(), filter.Child0()) {
		return false, n
	}
	joinType := itree.OpInnerJoin
	if n.OpType() == itree.OpOuterApply {
		joinType = itree.OpLeftOuterJoin
	}
	return true, cmd.CreateNode(itree.NewJoinOp(joinType), n.Child0(), filter.Child0(), filter.Child1())
}

// CrossApply(X, Project(Y, defs)) => Project(CrossApply(X, Y), defs)
func processCrossApplyOverProject(ctx *TransformationRulesContext, n *itree.Node) (bool, *itree.Node) {
	cmd := ctx.Command()
	project := n.Child1()
	outputs := project.Op.(*itree.ProjectOp).Outputs.Clone()
	outputs.Or(cmd.GetExtendedNodeInfo(n.Child0()).Definitions)

	n.Children[1] = project.Child0()
	cmd.RecomputeNodeInfo(n)
	return true, cmd.CreateNode(itree.NewProjectOp(outputs), n, project.Child1())
}

// CrossApply(X, Y) => CrossJoin(X, Y)
// OuterApply(X, Y) => LeftOuterJoin(X, Y, true)
//
// Only when Y does not read the vars of X.
func processApplyOverAnything(ctx *TransformationRulesContext, n *itree.Node) (bool, *itree.Node) {
	cmd := ctx.Command()
	if isCorrelated(cmd, n.Child0(), n.Child1()) {
		return false, n
	}
	if n.OpType() == itree.OpCrossApply {
		return true, cmd.CreateNode(itree.NewJoinOp(itree.OpCrossJoin), n.Child0(), n.Child1())
	}
	return true, cmd.CreateNode(itree.NewJoinOp(itree.OpLeftOuterJoin),
		n.Child0(), n.Child1(), cmd.CreateConstantPredicateNode(true))
}

// OuterApply(X, Y) => Project(X, nulls) when Y has no rows
// CrossApply(X, Y) => Filter(Project(X, nulls), false) when Y has no rows
//
// nulls defines a null in place of every var of Y.
func processApplyOverEmptyRight(ctx *TransformationRulesContext, n *itree.Node) (bool, *itree.Node) {
	cmd := ctx.Command()
	right := n.Child1()
	rightInfo := cmd.GetExtendedNodeInfo(right)
	if rightInfo.MaxRows != itree.RowCountZero {
		return false, n
	}

	left := n.Child0()
	outputs := cmd.GetExtendedNodeInfo(left).Definitions.Clone()
	varDefList, nulls := buildNullDefinitions(ctx, rightInfo.Definitions.Vars())
	outputs.Or(nulls)
	project := cmd.CreateNode(itree.NewProjectOp(outputs), left, varDefList)

	if n.OpType() == itree.OpOuterApply {
		return true, project
	}
	return true, cmd.CreateNode(itree.NewFilterOp(), project, cmd.CreateConstantPredicateNode(false))
}

// buildNullDefinitions defines a null var for each of vars and maps every
// var to its null.
func buildNullDefinitions(ctx *TransformationRulesContext, vars []*itree.Var) (*itree.Node, *itree.VarVec) {
	cmd := ctx.Command()
	varDefList := cmd.CreateNode(itree.NewVarDefListOp())
	outputs := cmd.CreateVarVec()
	for _, v := range vars {
		varDef, nv := cmd.CreateVarDefNode(cmd.CreateNode(itree.NewNullOp(v.Type)))
		varDefList.Children = append(varDefList.Children, varDef)
		outputs.Set(nv)
		ctx.AddVarMapping(v, nv)
	}
	return varDefList, outputs
}
