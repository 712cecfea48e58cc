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

func scalarRules() []Rule {
	and := itree.NewConditionalOp(itree.OpAnd)
	or := itree.NewConditionalOp(itree.OpOr)
	not := itree.NewConditionalOp(itree.OpNot)
	isNull := itree.NewConditionalOp(itree.OpIsNull)
	constPred := func() *itree.Node { return pattern(itree.NewConstantPredicateOp(true)) }

	return []Rule{
		NewSimpleRule(equalsOverConstantId, itree.OpEQ, processEqualsOverConstant),
		NewPatternMatchRule(andOverConstantPred1Id, pattern(and, constPred(), leaf()), logicalOpOverConstantPred(0)),
		NewPatternMatchRule(andOverConstantPred2Id, pattern(and, leaf(), constPred()), logicalOpOverConstantPred(1)),
		NewPatternMatchRule(orOverConstantPred1Id, pattern(or, constPred(), leaf()), logicalOpOverConstantPred(0)),
		NewPatternMatchRule(orOverConstantPred2Id, pattern(or, leaf(), constPred()), logicalOpOverConstantPred(1)),
		NewPatternMatchRule(notOverConstantPredId, pattern(not, constPred()), processNotOverConstantPred),
		NewPatternMatchRule(isNullOverConstantId,
			pattern(isNull, pattern(itree.NewConstantOp(nil, nil))), processIsNullOverConstant),
		NewPatternMatchRule(isNullOverInternalConstantId,
			pattern(isNull, pattern(itree.NewInternalConstantOp(nil, nil))), isNullOver(false)),
		NewPatternMatchRule(isNullOverNullSentinelId,
			pattern(isNull, pattern(itree.NewNullSentinelOp())), isNullOver(false)),
		NewPatternMatchRule(isNullOverNullId,
			pattern(isNull, pattern(itree.NewNullOp(nil))), isNullOver(true)),
		NewPatternMatchRule(nullCastId,
			pattern(itree.NewCastOp(nil), pattern(itree.NewNullOp(nil))), processNullCast),
		NewPatternMatchRule(isNullOverVarRefId,
			pattern(isNull, pattern(itree.NewVarRefOp(&itree.Var{}))), processIsNullOverVarRef),
		NewSimpleRule(simplifyCaseId, itree.OpCase, processSimplifyCase),
	}
}

// EQ(c1, c2) => true or false, for two non null constants
func processEqualsOverConstant(ctx *TransformationRulesContext, n *itree.Node) (bool, *itree.Node) {
	left, ok := n.Child0().Op.(*itree.ConstantOp)
	if !ok || !isNonNullConstant(n.Child0()) {
		return false, n
	}
	right, ok := n.Child1().Op.(*itree.ConstantOp)
	if !ok || !isNonNullConstant(n.Child1()) {
		return false, n
	}
	return true, ctx.Command().CreateConstantPredicateNode(left.IsEquivalent(right))
}

// And(true, X) => X, And(false, X) => false
// Or(true, X) => true, Or(false, X) => X
//
// and the mirror forms, where the constant is the child at idx.
func logicalOpOverConstantPred(idx int) RuleFunc {
	return func(ctx *TransformationRulesContext, n *itree.Node) (bool, *itree.Node) {
		pred := n.Children[idx].Op.(*itree.ConstantPredicateOp)
		other := n.Children[1-idx]
		if n.OpType() == itree.OpAnd {
			if pred.IsTrue() {
				return true, other
			}
			return true, n.Children[idx]
		}
		if pred.IsTrue() {
			return true, n.Children[idx]
		}
		return true, other
	}
}

// Not(true) => false, Not(false) => true
func processNotOverConstantPred(ctx *TransformationRulesContext, n *itree.Node) (bool, *itree.Node) {
	pred := n.Child0().Op.(*itree.ConstantPredicateOp)
	return true, ctx.Command().CreateConstantPredicateNode(!pred.Value)
}

// IsNull(c) => false, or true for a constant with no value
func processIsNullOverConstant(ctx *TransformationRulesContext, n *itree.Node) (bool, *itree.Node) {
	c := n.Child0().Op.(*itree.ConstantOp)
	return true, ctx.Command().CreateConstantPredicateNode(c.Value == nil)
}

func isNullOver(result bool) RuleFunc {
	return func(ctx *TransformationRulesContext, n *itree.Node) (bool, *itree.Node) {
		return true, ctx.Command().CreateConstantPredicateNode(result)
	}
}

// Cast(Null) => Null of the cast type
func processNullCast(ctx *TransformationRulesContext, n *itree.Node) (bool, *itree.Node) {
	return true, ctx.Command().CreateNode(itree.NewNullOp(n.Op.Type()))
}

// IsNull(VarRef(v)) => false when v is never null
func processIsNullOverVarRef(ctx *TransformationRulesContext, n *itree.Node) (bool, *itree.Node) {
	v := n.Child0().Op.(*itree.VarRefOp).Var
	if !ctx.IsNonNullable(v) {
		return false, n
	}
	return true, ctx.Command().CreateConstantPredicateNode(false)
}

// Case(false, t1, w2, t2, ..., e) => Case(w2, t2, ..., e)
// Case(true, t1, ...) => t1
// Case(e) => e
func processSimplifyCase(ctx *TransformationRulesContext, n *itree.Node) (bool, *itree.Node) {
	cmd := ctx.Command()
	if len(n.Children)%2 == 0 {
		return false, n
	}

	changed := false
	var children []*itree.Node
	elseExpr := n.Children[len(n.Children)-1]
	for i := 0; i+1 < len(n.Children); i += 2 {
		when, then := n.Children[i], n.Children[i+1]
		pred, ok := when.Op.(*itree.ConstantPredicateOp)
		if !ok {
			children = append(children, when, then)
			continue
		}
		changed = true
		if pred.IsTrue() {
			elseExpr = then
			break
		}
	}
	if !changed {
		return false, n
	}
	if len(children) == 0 {
		return true, elseExpr
	}
	children = append(children, elseExpr)
	return true, cmd.CreateNode(n.Op, children...)
}
