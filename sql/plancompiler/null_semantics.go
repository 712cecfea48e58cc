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

// NullSemantics rewrites equality comparisons so that null values compare
// equal to each other, as they do in the source language of the query,
// rather than comparing as unknown.
//
// NE comparisons are turned into Not(EQ) first, so only EQ is expanded.
// The expansion depends on the number of Not above the comparison, counted
// through And and Or only. Comparisons already using the store's null
// semantics are left alone.
//
// A var is only known not to be null when the relational input of the
// comparison says so, or when an enclosing IS NULL test rules null out. The
// declared type of a column is not enough: the right side of an outer join
// produces nulls for any column.
type NullSemantics struct {
	pc  *PlanCompiler
	cmd *itree.Command

	modified bool
	negated  bool
	// nonNullable holds vars known not to be null in the current subtree.
	nonNullable map[*itree.Var]bool
	// visible holds the non null definitions of the relational inputs of
	// the closest relational ancestor.
	visible *itree.VarVec
}

func NewNullSemantics(pc *PlanCompiler) *NullSemantics {
	return &NullSemantics{
		pc:          pc,
		cmd:         pc.Command,
		nonNullable: make(map[*itree.Var]bool),
	}
}

// Process rewrites the tree of the compilation and reports whether it
// changed.
func (ns *NullSemantics) Process() bool {
	root := ns.visit(ns.cmd.Root)
	if ns.modified {
		ns.cmd.Root = root
		ns.cmd.RecomputeSubtreeNodeInfo(root)
	}
	return ns.modified
}

func (ns *NullSemantics) visit(n *itree.Node) *itree.Node {
	negated := ns.negated
	defer func() { ns.negated = negated }()

	switch n.OpType() {
	case itree.OpNot:
		ns.negated = !ns.negated
		ns.visitChildren(n)
		return ns.foldNot(n)
	case itree.OpAnd:
		ns.visitChildren(n)
		return n
	case itree.OpOr:
		return ns.handleOr(n)
	case itree.OpEQ:
		ns.negated = false
		ns.visitChildren(n)
		res := ns.implementEquality(n, negated)
		if res != n {
			ns.modified = true
		}
		return res
	case itree.OpNE:
		return ns.handleNE(n)
	default:
		ns.negated = false
		if t := n.OpType(); t.IsRelational() || t.IsPhysical() {
			visible := ns.visible
			ns.visible = ns.nonNullableInputs(n)
			defer func() { ns.visible = visible }()
		}
		ns.visitChildren(n)
		return n
	}
}

// nonNullableInputs returns the vars of the relational inputs of n that are
// never null when the scalar children of n are evaluated.
func (ns *NullSemantics) nonNullableInputs(n *itree.Node) *itree.VarVec {
	res := ns.cmd.CreateVarVec()
	for _, child := range n.Children {
		if child.OpType().IsRelational() {
			res.Or(ns.cmd.GetExtendedNodeInfo(child).NonNullableDefinitions)
		}
	}
	return res
}

func (ns *NullSemantics) visitChildren(n *itree.Node) {
	for i, child := range n.Children {
		if newChild := ns.visit(child); newChild != child {
			n.Children[i] = newChild
			ns.modified = true
		}
	}
}

// (VarRef(v) IS NULL) OR e: v is not null while e is evaluated.
func (ns *NullSemantics) handleOr(n *itree.Node) *itree.Node {
	isNull := n.Child0()
	if isNull.OpType() != itree.OpIsNull || isNull.Child0().OpType() != itree.OpVarRef {
		ns.visitChildren(n)
		return n
	}

	v := isNull.Child0().Op.(*itree.VarRefOp).Var
	known := ns.nonNullable[v]
	ns.nonNullable[v] = true
	if child := ns.visit(n.Child1()); child != n.Child1() {
		n.Children[1] = child
		ns.modified = true
	}
	ns.nonNullable[v] = known
	return n
}

// NE(a, b) => Not(EQ(a, b))
func (ns *NullSemantics) handleNE(n *itree.Node) *itree.Node {
	op := n.Op.(*itree.ComparisonOp)
	eq := itree.NewComparisonOp(itree.OpEQ)
	eq.UseDatabaseNullSemantics = op.UseDatabaseNullSemantics
	not := ns.cmd.BuildNot(ns.cmd.CreateNode(eq, n.Child0(), n.Child1()))
	ns.modified = true
	return ns.visit(not)
}

// Not(Not(x)) => x, Not(true) => false, Not(false) => true
func (ns *NullSemantics) foldNot(n *itree.Node) *itree.Node {
	switch child := n.Child0(); child.OpType() {
	case itree.OpNot:
		ns.modified = true
		return child.Child0()
	case itree.OpConstantPredicate:
		ns.modified = true
		return ns.cmd.CreateConstantPredicateNode(!child.Op.(*itree.ConstantPredicateOp).Value)
	}
	return n
}

type operandKind int

const (
	constantOperand operandKind = iota
	nullOperand
	otherOperand
)

func classifyOperand(n *itree.Node) operandKind {
	switch n.OpType() {
	case itree.OpConstant, itree.OpInternalConstant, itree.OpNullSentinel:
		return constantOperand
	case itree.OpNull:
		return nullOperand
	default:
		return otherOperand
	}
}

func (ns *NullSemantics) isNonNullable(n *itree.Node) bool {
	ref, ok := n.Op.(*itree.VarRefOp)
	if !ok {
		return false
	}
	v := ref.Var
	switch {
	case ns.nonNullable[v]:
		return true
	case v.VarType == itree.ParameterVarType:
		return !v.Type.Nullable
	default:
		return ns.visible != nil && ns.visible.IsSet(v)
	}
}

// implementEquality expands EQ(a, b) so that it holds when a and b are both
// null. When negated, the result is built so that its negation holds when
// exactly one of a and b is null.
func (ns *NullSemantics) implementEquality(n *itree.Node, negated bool) *itree.Node {
	op := n.Op.(*itree.ComparisonOp)
	if op.UseDatabaseNullSemantics {
		return n
	}
	op.UseDatabaseNullSemantics = true

	left, right := n.Child0(), n.Child1()
	lk, rk := classifyOperand(left), classifyOperand(right)

	switch {
	case lk == nullOperand && rk == nullOperand:
		return ns.cmd.CreateConstantPredicateNode(true)
	case lk == nullOperand && rk == constantOperand, lk == constantOperand && rk == nullOperand:
		return ns.cmd.CreateConstantPredicateNode(false)
	case lk == nullOperand:
		return ns.cmd.BuildIsNull(right)
	case rk == nullOperand:
		return ns.cmd.BuildIsNull(left)
	case lk == constantOperand && rk == constantOperand:
		return n
	case lk == constantOperand:
		return ns.equalsConstant(n, right, negated)
	case rk == constantOperand:
		return ns.equalsConstant(n, left, negated)
	}

	leftNonNull, rightNonNull := ns.isNonNullable(left), ns.isNonNullable(right)
	switch {
	case leftNonNull && rightNonNull:
		return n
	case leftNonNull:
		return ns.equalsConstant(n, right, negated)
	case rightNonNull:
		return ns.equalsConstant(n, left, negated)
	}

	if negated {
		return ns.cmd.BuildAnd(n, ns.sameNullness(left, right))
	}
	bothNull := ns.cmd.BuildAnd(ns.cmd.BuildIsNull(ns.cmd.Copy(left)), ns.cmd.BuildIsNull(ns.cmd.Copy(right)))
	return ns.cmd.BuildOr(n, bothNull)
}

// equalsConstant handles EQ(x, c) where c is never null. It is only
// expanded when negated, so that Not(EQ(x, c)) holds for a null x.
func (ns *NullSemantics) equalsConstant(n, operand *itree.Node, negated bool) *itree.Node {
	if !negated || ns.isNonNullable(operand) {
		return n
	}
	return ns.cmd.BuildAnd(n, ns.cmd.BuildNot(ns.cmd.BuildIsNull(ns.cmd.Copy(operand))))
}

// sameNullness returns a predicate holding when both a and b are null or
// both are not null.
func (ns *NullSemantics) sameNullness(a, b *itree.Node) *itree.Node {
	nullFlag := func(n *itree.Node) *itree.Node {
		return ns.cmd.CreateNode(itree.NewCaseOp(itree.Int32),
			ns.cmd.BuildIsNull(ns.cmd.Copy(n)),
			ns.cmd.CreateNode(itree.NewInternalConstantOp(itree.Int32, int32(1))),
			ns.cmd.CreateNode(itree.NewInternalConstantOp(itree.Int32, int32(0))))
	}
	eq := itree.NewComparisonOp(itree.OpEQ)
	eq.UseDatabaseNullSemantics = true
	return ns.cmd.CreateNode(eq, nullFlag(a), nullFlag(b))
}
