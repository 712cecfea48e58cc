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
	"context"
	"strings"
	"testing"

	"github.com/opentracing/opentracing-go/mocktracer"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/dolthub/go-plancompiler/sql"
	"github.com/dolthub/go-plancompiler/sql/itree"
)

func TestBuilder(t *testing.T) {
	require := require.New(t)

	c, err := NewBuilder().WithOptions(Options{}).WithDebug().Build()
	require.NoError(err)
	require.Equal(maxRuleIterations, c.MaxRuleIterations)
	require.Equal(maxJoinEliminationPasses, c.MaxJoinEliminationPasses)
	require.Equal(defaultConstraintCache, c.ConstraintCacheSize)
	require.True(c.Debug)
	require.NotNil(c.ConstraintManager())

	_, err = NewBuilder().WithOptions(Options{DisabledPhases: []string{"optimize_everything"}}).Build()
	require.Error(err)
	require.True(sql.ErrInvalidConfig.Is(err))

	_, err = NewBuilder().WithOptions(Options{DisabledPhases: []string{"codgen"}}).Build()
	require.Error(err)
	require.Contains(err.Error(), "maybe you mean codegen?")

	c, err = NewBuilder().
		AddRule("first", itree.OpFilter, func(*TransformationRulesContext, *itree.Node) (bool, *itree.Node) { return false, nil }).
		AddRule("second", itree.OpFilter, func(*TransformationRulesContext, *itree.Node) (bool, *itree.Node) { return false, nil }).
		Build()
	require.NoError(err)
	defaults := DefaultTransformationRules().AllRules
	require.Equal(defaults.Len()+2, c.tables.all.Len())
	rules := c.tables.all.Rules(itree.OpFilter)
	require.Equal("first", rules[len(rules)-2].Name())
	require.Equal(customRuleIdStart+1, rules[len(rules)-1].Id())
}

// ordersWithCustomers is
//
//	PhysicalProject(OrderId, Customers.CustomerId)
//	  InnerJoin(Orders, Customers, Orders.CustomerId = Customers.CustomerId)
type ordersWithCustomers struct {
	cmd        *itree.Command
	ordersScan *itree.Node
	orders     *itree.Table
	customers  *itree.Table
}

func newOrdersWithCustomers(t *testing.T) *ordersWithCustomers {
	s := newShop(t)
	cmd := itree.NewCommand()
	ordersScan, orders := cmd.CreateScanTableNode(s.orders)
	customersScan, customers := cmd.CreateScanTableNode(s.customers)
	orderId, customerId := orders.ColumnVar("OrderId"), customers.ColumnVar("CustomerId")

	j := join(cmd, itree.OpInnerJoin, ordersScan, customersScan,
		columnEq(cmd, orders.ColumnVar("CustomerId"), customerId))
	rowType := itree.RecordType(
		itree.Field{Name: "OrderId", Type: orderId.Type},
		itree.Field{Name: "CustomerId", Type: customerId.Type},
	)
	columnMap := &itree.SimpleCollectionColumnMap{
		Typ:        itree.CollectionType(rowType),
		ColumnName: "result",
		Element: &itree.RecordColumnMap{
			Typ:        rowType,
			ColumnName: "row",
			Properties: []itree.ColumnMap{
				&itree.VarRefColumnMap{Typ: orderId.Type, ColumnName: "OrderId", Var: orderId},
				&itree.VarRefColumnMap{Typ: customerId.Type, ColumnName: "CustomerId", Var: customerId},
			},
		},
	}
	cmd.Root = cmd.CreateNode(itree.NewPhysicalProjectOp(itree.VarList{orderId, customerId}, columnMap), j)
	return &ordersWithCustomers{cmd: cmd, ordersScan: ordersScan, orders: orders, customers: customers}
}

func TestCompile(t *testing.T) {
	require := require.New(t)
	q := newOrdersWithCustomers(t)

	plan, err := newTestCompiler(t).Compile(sql.NewEmptyContext(), q.cmd)
	require.NoError(err)
	require.True(plan.Changed)
	require.Same(q.cmd.Root, plan.Root)
	require.Same(q.ordersScan, plan.Root.Child0())

	orderCustomer := q.orders.ColumnVar("CustomerId")
	require.Equal(itree.VarList{q.orders.ColumnVar("OrderId"), orderCustomer}, plan.Root.Op.(*itree.PhysicalProjectOp).Outputs)
	require.Equal(q.cmd.CreateVarVec(q.orders.ColumnVar("OrderId"), orderCustomer).String(), q.orders.ReferencedColumns.String())

	require.Len(plan.Commands, 1)
	require.Equal(2, plan.ColumnCount)
	row := plan.ColumnMap.(*itree.SimpleCollectionColumnMap).Element.(*itree.RecordColumnMap)
	require.Equal(&itree.ScalarColumnMap{Typ: orderCustomer.Type, ColumnName: "CustomerId", CommandId: 0, ColumnPos: 1}, row.Properties[1])
	requireValidVarReferences(t, q.cmd, plan.Root)
}

func TestCompileDisabledPhases(t *testing.T) {
	require := require.New(t)
	q := newOrdersWithCustomers(t)

	c := newTestCompiler(t, func(o *Options) {
		o.DisabledPhases = []string{PhaseJoinElimination, PhaseCodeGen}
	})
	plan, err := c.Compile(sql.NewEmptyContext(), q.cmd)
	require.NoError(err)
	require.Equal(itree.OpInnerJoin, plan.Root.Child0().OpType())
	require.Empty(plan.Commands)
	require.Nil(plan.ColumnMap)
}

func TestCompileNullSemantics(t *testing.T) {
	build := func(t *testing.T) (*itree.Command, *itree.Node) {
		s := newShop(t)
		cmd := itree.NewCommand()
		scan, orders := cmd.CreateScanTableNode(s.orders)
		p := cmd.CreateParameterVar("amount", itree.Int32.AsNullable())
		f := filter(cmd, scan, columnEq(cmd, orders.ColumnVar("Amount"), p))
		cmd.Root = physicalProject(cmd, f, orders.ColumnVar("OrderId"))
		return cmd, f
	}

	t.Run("nulls compare equal", func(t *testing.T) {
		cmd, f := build(t)
		_, err := newTestCompiler(t).Compile(sql.NewEmptyContext(), cmd)
		require.NoError(t, err)
		require.Equal(t, itree.OpOr, f.Child1().OpType())
	})

	t.Run("database null semantics", func(t *testing.T) {
		cmd, f := build(t)
		c := newTestCompiler(t, func(o *Options) { o.UseDatabaseNullSemantics = true })
		_, err := c.Compile(sql.NewEmptyContext(), cmd)
		require.NoError(t, err)
		require.Equal(t, itree.OpEQ, f.Child1().OpType())
	})
}

func TestCompileRecoversInternalErrors(t *testing.T) {
	require := require.New(t)
	q := newOrdersWithCustomers(t)

	c, err := NewBuilder().
		AddRule("broken", itree.OpScanTable, func(*TransformationRulesContext, *itree.Node) (bool, *itree.Node) {
			Assert(false, "broken rule")
			return false, nil
		}).
		Build()
	require.NoError(err)

	plan, err := c.Compile(sql.NewEmptyContext(), q.cmd)
	require.Nil(plan)
	require.Error(err)
	require.True(sql.ErrInternal.Is(err))
}

func TestCompileWarnsOnMaxRuleIterations(t *testing.T) {
	require := require.New(t)
	logger, hook := logtest.NewNullLogger()
	ctx := sql.NewContext(context.Background(), sql.WithLogger(logrus.NewEntry(logger)))

	s := newShop(t)
	cmd := itree.NewCommand()
	scan, orders := cmd.CreateScanTableNode(s.orders)
	pred := cmd.BuildComparison(itree.OpGT, varRef(cmd, orders.ColumnVar("Amount")), int32Const(cmd, 10))
	cmd.Root = physicalProject(cmd, filter(cmd, scan, pred), orders.ColumnVar("OrderId"))

	c, err := NewBuilder().
		WithOptions(Options{MaxRuleIterations: 3}).
		AddRule("rebuild", itree.OpGT, func(ctx *TransformationRulesContext, n *itree.Node) (bool, *itree.Node) {
			return true, ctx.Command().CreateNode(n.Op, n.Children...)
		}).
		Build()
	require.NoError(err)

	plan, err := c.Compile(ctx, cmd)
	require.NoError(err)
	require.NotNil(plan)

	var warned bool
	for _, e := range hook.AllEntries() {
		warned = warned || (e.Level == logrus.WarnLevel && strings.Contains(e.Message, "exceeded max rule iterations"))
	}
	require.True(warned)
}

func TestCompileTracesPhases(t *testing.T) {
	require := require.New(t)
	tracer := mocktracer.New()
	ctx := sql.NewContext(context.Background(), sql.WithTracer(tracer))
	q := newOrdersWithCustomers(t)

	_, err := newTestCompiler(t).Compile(ctx, q.cmd)
	require.NoError(err)

	spans := make(map[string]bool)
	for _, s := range tracer.FinishedSpans() {
		spans[s.OperationName] = true
	}
	for _, name := range []string{"compile_plan", PhaseNullSemantics, PhaseTransformations, PhaseJoinElimination, PhaseCodeGen, "apply_rules"} {
		require.True(spans[name], "missing span %s", name)
	}
}

func TestCompileWithoutPhysicalProject(t *testing.T) {
	require := require.New(t)
	s := newShop(t)
	cmd := itree.NewCommand()
	scan, _ := cmd.CreateScanTableNode(s.orders)
	cmd.Root = filter(cmd, scan, cmd.CreateConstantPredicateNode(true))

	plan, err := newTestCompiler(t).Compile(sql.NewEmptyContext(), cmd)
	require.NoError(err)
	require.Same(scan, plan.Root)
	require.True(plan.Changed)
	require.Empty(plan.Commands)
}

func TestHasSortingOnNullSentinels(t *testing.T) {
	require := require.New(t)
	s := newShop(t)
	cmd := itree.NewCommand()
	scan, _ := cmd.CreateScanTableNode(s.orders)
	def, sentinel := cmd.CreateVarDefNode(cmd.CreateNode(itree.NewNullSentinelOp()))
	proj := project(cmd, scan, []*itree.Var{sentinel}, def)

	require.False(hasSortingOnNullSentinels(proj))
	sorted := cmd.CreateNode(itree.NewSortOp(&itree.SortKey{Var: sentinel, Ascending: true}), proj)
	require.True(hasSortingOnNullSentinels(sorted))
}
