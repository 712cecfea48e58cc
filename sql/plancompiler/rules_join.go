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

func joinRules() []Rule {
	crossJoin := func(children ...*itree.Node) *itree.Node {
		return pattern(itree.NewJoinOp(itree.OpCrossJoin), children...)
	}
	innerJoin := func(children ...*itree.Node) *itree.Node {
		return pattern(itree.NewJoinOp(itree.OpInnerJoin), children...)
	}
	leftOuterJoin := func(children ...*itree.Node) *itree.Node {
		return pattern(itree.NewJoinOp(itree.OpLeftOuterJoin), children...)
	}
	project := pattern(itree.NewProjectOp(nil), leaf(), leaf())
	filter := pattern(itree.NewFilterOp(), leaf(), leaf())
	singleRowTable := pattern(itree.NewSingleRowTableOp())

	return []Rule{
		NewPatternMatchRule(crossJoinOverProject1Id, crossJoin(project, leaf()), joinOverProject(0)),
		NewPatternMatchRule(crossJoinOverProject2Id, crossJoin(leaf(), project), joinOverProject(1)),
		NewPatternMatchRule(innerJoinOverProject1Id, innerJoin(project, leaf(), leaf()), joinOverProject(0)),
		NewPatternMatchRule(innerJoinOverProject2Id, innerJoin(leaf(), project, leaf()), joinOverProject(1)),
		NewPatternMatchRule(leftOuterJoinOverProject1Id, leftOuterJoin(project, leaf(), leaf()), joinOverProject(0)),
		NewPatternMatchRule(leftOuterJoinOverProject2Id, leftOuterJoin(leaf(), project, leaf()), joinOverProject(1)),
		NewPatternMatchRule(crossJoinOverFilter1Id, crossJoin(filter, leaf()), joinOverFilter(0)),
		NewPatternMatchRule(crossJoinOverFilter2Id, crossJoin(leaf(), filter), joinOverFilter(1)),
		NewPatternMatchRule(innerJoinOverFilter1Id, innerJoin(filter, leaf(), leaf()), joinOverFilter(0)),
		NewPatternMatchRule(innerJoinOverFilter2Id, innerJoin(leaf(), filter, leaf()), joinOverFilter(1)),
		NewPatternMatchRule(leftOuterJoinOverFilter1Id, leftOuterJoin(filter, leaf(), leaf()), joinOverFilter(0)),
		NewPatternMatchRule(leftOuterJoinOverFilter2Id, leftOuterJoin(leaf(), filter, leaf()), joinOverFilter(1)),
		NewPatternMatchRule(crossJoinOverSingleRowTable1Id, crossJoin(singleRowTable, leaf()), joinOverSingleRowTable(1)),
		NewPatternMatchRule(crossJoinOverSingleRowTable2Id, crossJoin(leaf(), singleRowTable), joinOverSingleRowTable(0)),
		NewPatternMatchRule(leftOuterJoinOverSingleRowTableId, leftOuterJoin(leaf(), singleRowTable, leaf()), joinOverSingleRowTable(0)),
	}
}

// joinOverProject pulls the Project input at idx above the join.
//
// Join(Project(X, defs), Y, p) => Project(Join(X, Y, p'), defs)
// Join(X, Project(Y, defs), p) => Project(Join(X, Y, p'), defs)
//
// p' is p with the references to the vars of defs replaced by their
// definitions. When the project is the right input of a LeftOuterJoin its
// definitions become null for the rows with no match, which needs a non
// null var of Y to tell those rows apart.
func joinOverProject(idx int) RuleFunc {
	return func(ctx *TransformationRulesContext, n *itree.Node) (bool, *itree.Node) {
		cmd := ctx.Command()
		project := n.Children[idx]
		projectOp := project.Op.(*itree.ProjectOp)
		varDefList := project.Child1()

		var cond *itree.Var
		if n.OpType() == itree.OpLeftOuterJoin && idx == 1 {
			var ok bool
			if cond, ok = nullIfCondition(ctx, project); !ok {
				return false, n
			}
		}

		var newPred *itree.Node
		if n.OpType() != itree.OpCrossJoin {
			varRefs := make(map[*itree.Var]int)
			if !ctx.IsScalarOpTree(n.Child2(), varRefs) {
				return false, n
			}
			varMap, ok := ctx.GetVarMap(varDefList, varRefs)
			if !ok {
				return false, n
			}
			newPred = n.Child2()
			if len(varDefList.Children) > 0 {
				newPred = ctx.ReMap(newPred, varMap)
			}
		}

		if cond != nil {
			wrapNullableDefinitions(ctx, project, cond)
		}

		children := append([]*itree.Node(nil), n.Children...)
		children[idx] = project.Child0()
		if newPred != nil {
			children[2] = newPred
		}
		join := cmd.CreateNode(n.Op, children...)

		outputs := projectOp.Outputs.Clone()
		for i, child := range children {
			if i != idx && child.OpType().IsRelational() {
				outputs.Or(cmd.GetExtendedNodeInfo(child).Definitions)
			}
		}
		return true, cmd.CreateNode(itree.NewProjectOp(outputs), join, varDefList)
	}
}

// nullIfCondition returns a non null var of the input of project, if some
// definition of project needs to be wrapped by wrapNullableDefinitions.
func nullIfCondition(ctx *TransformationRulesContext, project *itree.Node) (*itree.Var, bool) {
	inputInfo := ctx.Command().GetExtendedNodeInfo(project.Child0())
	needed := false
	for _, varDef := range project.Child1().Children {
		if !isSimpleVarRedefinition(varDef, inputInfo.Definitions) {
			needed = true
			break
		}
	}
	if !needed {
		return nil, true
	}
	if v, ok := ctx.TryGetInt32Var(inputInfo.NonNullableDefinitions); ok {
		return v, true
	}
	v := inputInfo.NonNullableDefinitions.First()
	return v, v != nil
}

// wrapNullableDefinitions rewrites every definition of the project that does
// not just read a var of its input so that it is null when cond is null.
func wrapNullableDefinitions(ctx *TransformationRulesContext, project *itree.Node, cond *itree.Var) {
	cmd := ctx.Command()
	inputDefs := cmd.GetExtendedNodeInfo(project.Child0()).Definitions
	for _, varDef := range project.Child1().Children {
		if isSimpleVarRedefinition(varDef, inputDefs) {
			continue
		}
		varDef.Children[0] = ctx.BuildNullIfExpression(cond, varDef.Child0())
		cmd.RecomputeSubtreeNodeInfo(varDef)
	}
}

// joinOverFilter handles a Filter input at idx. Filters with a constant
// predicate are left to the filter rules.
//
// CrossJoin(Filter(X, p), Y) => InnerJoin(X, Y, p)
// InnerJoin(Filter(X, p1), Y, p2) => InnerJoin(X, Y, And(p2, p1))
// LeftOuterJoin(Filter(X, p1), Y, p2) => Filter(LeftOuterJoin(X, Y, p2), p1)
// LeftOuterJoin(X, Filter(Y, p1), p2) => LeftOuterJoin(X, Y, And(p2, p1))
//
// and the mirror forms for the right input of cross and inner joins.
func joinOverFilter(idx int) RuleFunc {
	return func(ctx *TransformationRulesContext, n *itree.Node) (bool, *itree.Node) {
		cmd := ctx.Command()
		filter := n.Children[idx]
		pred := filter.Child1()
		if pred.OpType() == itree.OpConstantPredicate {
			return false, n
		}

		switch n.OpType() {
		case itree.OpCrossJoin:
			children := append([]*itree.Node(nil), n.Children...)
			children[idx] = filter.Child0()
			return true, cmd.CreateNode(itree.NewJoinOp(itree.OpInnerJoin), children[0], children[1], pred)
		case itree.OpLeftOuterJoin:
			if idx == 0 {
				n.Children[0] = filter.Child0()
				cmd.RecomputeNodeInfo(n)
				return true, cmd.CreateNode(itree.NewFilterOp(), n, pred)
			}
		}

		n.Children[idx] = filter.Child0()
		n.Children[2] = cmd.BuildAnd(n.Child2(), pred)
		return true, n
	}
}

// joinOverSingleRowTable replaces the join by its input at keep, when the
// other input is a SingleRowTable.
//
// CrossJoin(X, SingleRowTable) => X
// CrossJoin(SingleRowTable, X) => X
// LeftOuterJoin(X, SingleRowTable, p) => X
func joinOverSingleRowTable(keep int) RuleFunc {
	return func(ctx *TransformationRulesContext, n *itree.Node) (bool, *itree.Node) {
		return true, n.Children[keep]
	}
}
