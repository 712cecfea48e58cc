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
	"fmt"
	"testing"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/stretchr/testify/require"

	"github.com/dolthub/go-plancompiler/sql"
	"github.com/dolthub/go-plancompiler/sql/itree"
	"github.com/dolthub/go-plancompiler/sql/metadata"
)

const shopModel = `
name: Shop
entity_types:
  - name: Customer
    keys: [CustomerId]
    properties:
      - {name: CustomerId, type: int32}
      - {name: Name, type: varchar, nullable: true}
  - name: Order
    keys: [OrderId]
    properties:
      - {name: OrderId, type: int32}
      - {name: CustomerId, type: int32}
      - {name: Amount, type: int32, nullable: true}
entity_sets:
  - {name: Customers, type: Customer}
  - {name: Orders, type: Order}
associations:
  - name: CustomerOrders
    ends:
      - {role: Customer, type: Customer, multiplicity: one, set: Customers}
      - {role: Order, type: Order, multiplicity: many, set: Orders}
    constraints:
      - from: Customer
        to: Order
        from_properties: [CustomerId]
        to_properties: [CustomerId]
`

type shop struct {
	container *metadata.EntityContainer
	orders    *itree.TableMD
	customers *itree.TableMD
}

func newShop(t *testing.T) *shop {
	c, err := metadata.ParseContainer([]byte(shopModel))
	require.NoError(t, err)
	orders, ok := c.EntitySet("Orders")
	require.True(t, ok)
	customers, ok := c.EntitySet("Customers")
	require.True(t, ok)
	return &shop{
		container: c,
		orders:    itree.NewTableMDFromExtent(orders),
		customers: itree.NewTableMDFromExtent(customers),
	}
}

// itemsMD is a table with no extent, so no constraint applies to it.
func itemsMD() *itree.TableMD {
	return itree.NewTableMD("Items", []*itree.ColumnMD{
		{Name: "ItemId", Type: itree.Int32},
		{Name: "Price", Type: itree.Int32.AsNullable()},
		{Name: "Label", Type: itree.Text},
	}, "ItemId")
}

func newTestCompiler(t *testing.T, opts ...func(*Options)) *Compiler {
	o := DefaultOptions()
	for _, fn := range opts {
		fn(&o)
	}
	c, err := NewBuilder().WithOptions(o).Build()
	require.NoError(t, err)
	return c
}

func newTestPlanCompiler(t *testing.T, cmd *itree.Command, opts ...func(*Options)) *PlanCompiler {
	return newPlanCompiler(newTestCompiler(t, opts...), sql.NewEmptyContext(), cmd)
}

// runRules runs the rule tables over the root of cmd and returns whether
// any rule fired.
func runRules(t *testing.T, cmd *itree.Command, tables ...*RuleTable) bool {
	pc := newTestPlanCompiler(t, cmd)
	changed, err := pc.applyTransformations(tables...)
	require.NoError(t, err)
	return changed
}

func allRules() *RuleTable {
	return DefaultTransformationRules().AllRules
}

func requireTree(t *testing.T, expected string, n *itree.Node) {
	t.Helper()
	actual := itree.Dump(n)
	if expected == actual {
		return
	}
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(expected),
		B:        difflib.SplitLines(actual),
		FromFile: "expected",
		ToFile:   "actual",
		Context:  3,
	})
	require.NoError(t, err)
	t.Fatalf("unexpected tree:\n%s", diff)
}

// requireValidVarReferences checks that the tree reads no var it does not
// define, parameters aside, and that projects only output vars they can
// see.
func requireValidVarReferences(t *testing.T, cmd *itree.Command, root *itree.Node) {
	t.Helper()
	cmd.RecomputeSubtreeNodeInfo(root)
	for _, v := range cmd.GetNodeInfo(root).ExternalReferences.Vars() {
		require.Equal(t, itree.ParameterVarType, v.VarType, "unbound reference to %s", v)
	}

	var check func(n *itree.Node)
	check = func(n *itree.Node) {
		if op, ok := n.Op.(*itree.ProjectOp); ok {
			visible := cmd.GetExtendedNodeInfo(n.Child0()).Definitions.Clone()
			for _, varDef := range n.Child1().Children {
				visible.Set(varDef.Op.(*itree.VarDefOp).Var)
			}
			require.True(t, visible.Subsumes(op.Outputs), "project %d outputs %s but sees %s", n.Id, op.Outputs, visible)
		}
		for _, child := range n.Children {
			check(child)
		}
	}
	check(root)
}

func varRef(cmd *itree.Command, v *itree.Var) *itree.Node {
	return cmd.CreateVarRefNode(v)
}

func int32Const(cmd *itree.Command, v int32) *itree.Node {
	return cmd.CreateNode(itree.NewConstantOp(itree.Int32, v))
}

func eq(cmd *itree.Command, left, right *itree.Node) *itree.Node {
	return cmd.BuildComparison(itree.OpEQ, left, right)
}

func filter(cmd *itree.Command, input, pred *itree.Node) *itree.Node {
	return cmd.CreateNode(itree.NewFilterOp(), input, pred)
}

func project(cmd *itree.Command, input *itree.Node, outputs []*itree.Var, defs ...*itree.Node) *itree.Node {
	return cmd.CreateNode(itree.NewProjectOp(cmd.CreateVarVec(outputs...)), input,
		cmd.CreateNode(itree.NewVarDefListOp(), defs...))
}

func join(cmd *itree.Command, t itree.OpType, children ...*itree.Node) *itree.Node {
	return cmd.CreateNode(itree.NewJoinOp(t), children...)
}

func emptyInput(cmd *itree.Command) *itree.Node {
	return filter(cmd, cmd.CreateNode(itree.NewSingleRowTableOp()), cmd.CreateConstantPredicateNode(false))
}

// row binds vars to values. A missing var is null.
type row map[*itree.Var]interface{}

// eval computes a scalar tree over r. Predicates yield true, false, or nil
// for unknown; comparisons follow the null semantics of the store when
// flagged so and compare nulls as equal otherwise.
func eval(t *testing.T, n *itree.Node, r row) interface{} {
	t.Helper()
	switch op := n.Op.(type) {
	case *itree.VarRefOp:
		return r[op.Var]
	case *itree.ConstantOp:
		return op.Value
	case *itree.ConstantPredicateOp:
		return op.Value
	case *itree.ComparisonOp:
		left, right := eval(t, n.Child0(), r), eval(t, n.Child1(), r)
		if left == nil || right == nil {
			if op.UseDatabaseNullSemantics {
				return nil
			}
			same := left == nil && right == nil
			if op.OpType() == itree.OpNE {
				return !same
			}
			return op.OpType() == itree.OpEQ && same
		}
		lv, rv := toInt64(t, left), toInt64(t, right)
		switch op.OpType() {
		case itree.OpEQ:
			return lv == rv
		case itree.OpNE:
			return lv != rv
		case itree.OpLT:
			return lv < rv
		case itree.OpGT:
			return lv > rv
		case itree.OpLE:
			return lv <= rv
		case itree.OpGE:
			return lv >= rv
		}
	case *itree.ConditionalOp:
		switch op.OpType() {
		case itree.OpIsNull:
			return eval(t, n.Child0(), r) == nil
		case itree.OpNot:
			v := eval(t, n.Child0(), r)
			if v == nil {
				return nil
			}
			return !v.(bool)
		case itree.OpAnd:
			left, right := eval(t, n.Child0(), r), eval(t, n.Child1(), r)
			if left == false || right == false {
				return false
			}
			if left == nil || right == nil {
				return nil
			}
			return true
		case itree.OpOr:
			left, right := eval(t, n.Child0(), r), eval(t, n.Child1(), r)
			if left == true || right == true {
				return true
			}
			if left == nil || right == nil {
				return nil
			}
			return false
		}
	case *itree.CaseOp:
		for i := 0; i+1 < len(n.Children); i += 2 {
			if eval(t, n.Children[i], r) == true {
				return eval(t, n.Children[i+1], r)
			}
		}
		return eval(t, n.Children[len(n.Children)-1], r)
	}
	t.Fatalf("cannot evaluate %s", n.OpType())
	return nil
}

func toInt64(t *testing.T, v interface{}) int64 {
	switch x := v.(type) {
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case int64:
		return x
	}
	t.Fatalf("not an integer: %v", v)
	return 0
}

func describeRow(r row) string {
	s := "{"
	for v, val := range r {
		s += fmt.Sprintf("%s=%v ", v, val)
	}
	return s + "}"
}
