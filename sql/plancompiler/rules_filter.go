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

func filterRules() []Rule {
	return []Rule{
		NewPatternMatchRule(filterWithConstantPredicateId,
			pattern(itree.NewFilterOp(), leaf(), pattern(itree.NewConstantPredicateOp(true))),
			processFilterWithConstantPredicate),
		NewPatternMatchRule(filterOverFilterId,
			pattern(itree.NewFilterOp(), pattern(itree.NewFilterOp(), leaf(), leaf()), leaf()),
			processFilterOverFilter),
		NewPatternMatchRule(filterOverProjectId,
			pattern(itree.NewFilterOp(), pattern(itree.NewProjectOp(nil), leaf(), leaf()), leaf()),
			processFilterOverProject),
		NewPatternMatchRule(filterOverUnionAllId,
			pattern(itree.NewFilterOp(), pattern(itree.NewSetOp(itree.OpUnionAll, nil, nil, nil), leaf(), leaf()), leaf()),
			processFilterOverSetOp),
		NewPatternMatchRule(filterOverIntersectId,
			pattern(itree.NewFilterOp(), pattern(itree.NewSetOp(itree.OpIntersect, nil, nil, nil), leaf(), leaf()), leaf()),
			processFilterOverSetOp),
		NewPatternMatchRule(filterOverExceptId,
			pattern(itree.NewFilterOp(), pattern(itree.NewSetOp(itree.OpExcept, nil, nil, nil), leaf(), leaf()), leaf()),
			processFilterOverSetOp),
		NewPatternMatchRule(filterOverDistinctId,
			pattern(itree.NewFilterOp(), pattern(itree.NewDistinctOp(nil), leaf()), leaf()),
			processFilterOverDistinct),
		NewPatternMatchRule(filterOverGroupById,
			pattern(itree.NewFilterOp(), pattern(itree.NewGroupByOp(nil, nil), leaf(), leaf(), leaf()), leaf()),
			processFilterOverGroupBy),
		NewPatternMatchRule(filterOverCrossJoinId,
			pattern(itree.NewFilterOp(), pattern(itree.NewJoinOp(itree.OpCrossJoin), leaf(), leaf()), leaf()),
			processFilterOverCrossJoin),
		NewPatternMatchRule(filterOverInnerJoinId,
			pattern(itree.NewFilterOp(), pattern(itree.NewJoinOp(itree.OpInnerJoin), leaf(), leaf(), leaf()), leaf()),
			processFilterOverInnerJoin),
		NewPatternMatchRule(filterOverLeftOuterJoinId,
			pattern(itree.NewFilterOp(), pattern(itree.NewJoinOp(itree.OpLeftOuterJoin), leaf(), leaf(), leaf()), leaf()),
			processFilterOverLeftOuterJoin),
		NewPatternMatchRule(filterOverOuterApplyId,
			pattern(itree.NewFilterOp(), pattern(itree.NewApplyOp(itree.OpOuterApply), leaf(), leaf()), leaf()),
			processFilterOverOuterApply),
	}
}

// Filter(X, true) => X
// Filter(X, false) => Project(Filter(SingleRowTable, false), nulls)
//
// In the second form every var X defined is replaced by a null of the same
// type, so X can be dropped.
func processFilterWithConstantPredicate(ctx *TransformationRulesContext, n *itree.Node) (bool, *itree.Node) {
	cmd := ctx.Command()
	pred := n.Child1().Op.(*itree.ConstantPredicateOp)
	if pred.IsTrue() {
		return true, n.Child0()
	}
	if n.Child0().OpType() == itree.OpSingleRowTable {
		return false, n
	}

	empty := cmd.CreateNode(itree.NewFilterOp(),
		cmd.CreateNode(itree.NewSingleRowTableOp()),
		cmd.CreateConstantPredicateNode(false),
	)
	defs := cmd.GetExtendedNodeInfo(n.Child0()).Definitions.Vars()
	if len(defs) == 0 {
		return true, empty
	}
	varDefList, outputs := buildNullDefinitions(ctx, defs)
	return true, cmd.CreateNode(itree.NewProjectOp(outputs), empty, varDefList)
}

// Filter(Filter(X, p1), p2) => Filter(X, And(p1, p2))
func processFilterOverFilter(ctx *TransformationRulesContext, n *itree.Node) (bool, *itree.Node) {
	cmd := ctx.Command()
	child := n.Child0()
	pred := cmd.BuildAnd(child.Child1(), n.Child1())
	return true, cmd.CreateNode(itree.NewFilterOp(), child.Child0(), pred)
}

// Filter(Project(X, defs), p) => Project(Filter(X, p'), defs)
//
// p' is p with the references to the vars of defs replaced by their
// definitions.
func processFilterOverProject(ctx *TransformationRulesContext, n *itree.Node) (bool, *itree.Node) {
	cmd := ctx.Command()
	project := n.Child0()
	pred := n.Child1()
	if pred.OpType() == itree.OpConstantPredicate {
		return false, n
	}

	varRefs := make(map[*itree.Var]int)
	if !ctx.IsScalarOpTree(pred, varRefs) {
		return false, n
	}
	varMap, ok := ctx.GetVarMap(project.Child1(), varRefs)
	if !ok {
		return false, n
	}

	newPred := ctx.ReMap(pred, varMap)
	filter := cmd.CreateNode(itree.NewFilterOp(), project.Child0(), newPred)
	project.Children[0] = filter
	return true, project
}

// Filter(SetOp(X, Y), p) => SetOp(Filter(X, px), Filter(Y, py))
// Filter(Except(X, Y), p) => Except(Filter(X, px), Y)
//
// px and py are copies of p over the vars of each input.
func processFilterOverSetOp(ctx *TransformationRulesContext, n *itree.Node) (bool, *itree.Node) {
	cmd := ctx.Command()
	setOpNode := n.Child0()
	setOp := setOpNode.Op.(*itree.SetOp)
	pred := n.Child1()
	if !ctx.IsScalarOpTree(pred, nil) {
		return false, n
	}

	for i := range setOpNode.Children {
		if i > 0 && setOp.OpType() == itree.OpExcept {
			break
		}
		branchPred := cmd.Copy(pred)
		NewVarRemapperFromMap(cmd, setOp.VarMap[i]).RemapSubtree(branchPred)
		setOpNode.Children[i] = cmd.CreateNode(itree.NewFilterOp(), setOpNode.Children[i], branchPred)
	}
	return true, setOpNode
}

// Filter(Distinct(X), p) => Distinct(Filter(X, p))
func processFilterOverDistinct(ctx *TransformationRulesContext, n *itree.Node) (bool, *itree.Node) {
	cmd := ctx.Command()
	distinct := n.Child0()
	distinct.Children[0] = cmd.CreateNode(itree.NewFilterOp(), distinct.Child0(), n.Child1())
	return true, distinct
}

// Filter(GroupBy(X, keys, aggs), p1 AND p2) => Filter(GroupBy(Filter(X, p1'), keys, aggs), p2)
//
// p1 are the conjuncts that do not read aggregates; p1' reads the
// definitions of the keys instead of the keys. Filters over a GroupBy with
// no keys are not pushed, since the GroupBy yields a row even for an empty
// input.
func processFilterOverGroupBy(ctx *TransformationRulesContext, n *itree.Node) (bool, *itree.Node) {
	cmd := ctx.Command()
	groupBy := n.Child0()
	op := groupBy.Op.(*itree.GroupByOp)
	if op.Keys.IsEmpty() {
		return false, n
	}
	if !ctx.IsScalarOpTree(n.Child1(), nil) {
		return false, n
	}

	aggregates := cmd.CreateVarVec()
	for _, varDef := range groupBy.Child2().Children {
		aggregates.Set(varDef.Op.(*itree.VarDefOp).Var)
	}
	keyMap, ok := ctx.GetVarMap(groupBy.Child1(), nil)
	if !ok {
		return false, n
	}

	var pushed, kept []*itree.Node
	for _, conjunct := range splitConjuncts(n.Child1()) {
		if cmd.GetNodeInfo(conjunct).ExternalReferences.Overlaps(aggregates) {
			kept = append(kept, conjunct)
		} else {
			pushed = append(pushed, ctx.ReMap(conjunct, keyMap))
		}
	}
	if len(pushed) == 0 {
		return false, n
	}

	groupBy.Children[0] = cmd.CreateNode(itree.NewFilterOp(), groupBy.Child0(), cmd.BuildAnd(pushed...))
	if len(kept) == 0 {
		return true, groupBy
	}
	return true, cmd.CreateNode(itree.NewFilterOp(), groupBy, cmd.BuildAnd(kept...))
}

// Filter(CrossJoin(X, Y), p) => InnerJoin(X, Y, p)
func processFilterOverCrossJoin(ctx *TransformationRulesContext, n *itree.Node) (bool, *itree.Node) {
	cmd := ctx.Command()
	join := n.Child0()
	return true, cmd.CreateNode(itree.NewJoinOp(itree.OpInnerJoin), join.Child0(), join.Child1(), n.Child1())
}

// Filter(InnerJoin(X, Y, p1), p2) => InnerJoin(X, Y, And(p1, p2))
func processFilterOverInnerJoin(ctx *TransformationRulesContext, n *itree.Node) (bool, *itree.Node) {
	cmd := ctx.Command()
	join := n.Child0()
	join.Children[2] = cmd.BuildAnd(join.Child2(), n.Child1())
	return true, join
}

// Filter(LeftOuterJoin(X, Y, p1), p2) => Filter(InnerJoin(X, Y, p1), p2)
//
// Only when p2 rejects the rows where the vars of Y are null.
func processFilterOverLeftOuterJoin(ctx *TransformationRulesContext, n *itree.Node) (bool, *itree.Node) {
	cmd := ctx.Command()
	join := n.Child0()
	rightDefs := cmd.GetExtendedNodeInfo(join.Child1()).Definitions
	if !rejectsNulls(ctx, n.Child1(), rightDefs) {
		return false, n
	}
	n.Children[0] = cmd.CreateNode(itree.NewJoinOp(itree.OpInnerJoin), join.Children...)
	return true, n
}

// Filter(OuterApply(X, Y), p) => Filter(CrossApply(X, Y), p)
//
// Only when p rejects the rows where the vars of Y are null.
func processFilterOverOuterApply(ctx *TransformationRulesContext, n *itree.Node) (bool, *itree.Node) {
	cmd := ctx.Command()
	apply := n.Child0()
	rightDefs := cmd.GetExtendedNodeInfo(apply.Child1()).Definitions
	if !rejectsNulls(ctx, n.Child1(), rightDefs) {
		return false, n
	}
	n.Children[0] = cmd.CreateNode(itree.NewApplyOp(itree.OpCrossApply), apply.Children...)
	return true, n
}

// rejectsNulls reports whether pred is never true when all the vars of
// vars are null.
func rejectsNulls(ctx *TransformationRulesContext, pred *itree.Node, vars *itree.VarVec) bool {
	for _, conjunct := range splitConjuncts(pred) {
		if conjunctRejectsNulls(ctx, conjunct, vars) {
			return true
		}
	}
	return false
}

func conjunctRejectsNulls(ctx *TransformationRulesContext, pred *itree.Node, vars *itree.VarVec) bool {
	switch op := pred.Op.(type) {
	case *itree.ComparisonOp:
		dbSemantics := op.UseDatabaseNullSemantics || ctx.PlanCompiler().UseDatabaseNullSemantics
		left, right := pred.Child0(), pred.Child1()
		leftVar, rightVar := refersToVar(left, vars), refersToVar(right, vars)
		if !leftVar && !rightVar {
			return false
		}
		switch op.OpType() {
		case itree.OpEQ:
			if dbSemantics {
				return true
			}
			return (leftVar && isNonNullConstant(right)) || (rightVar && isNonNullConstant(left))
		case itree.OpNE:
			return dbSemantics
		default:
			return true
		}
	case *itree.ConditionalOp:
		if op.OpType() != itree.OpNot || pred.Child0().OpType() != itree.OpIsNull {
			return false
		}
		return refersToVar(pred.Child0().Child0(), vars)
	}
	return false
}

// refersToVar reports whether n reads one of vars, looking through casts.
func refersToVar(n *itree.Node, vars *itree.VarVec) bool {
	for n.OpType() == itree.OpCast || n.OpType() == itree.OpSoftCast {
		n = n.Child0()
	}
	ref, ok := n.Op.(*itree.VarRefOp)
	return ok && vars.IsSet(ref.Var)
}

func isNonNullConstant(n *itree.Node) bool {
	switch op := n.Op.(type) {
	case *itree.ConstantOp:
		return op.OpType() != itree.OpNull && op.Value != nil
	}
	return false
}
