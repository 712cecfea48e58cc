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
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/src-d/go-vitess.v0/vt/proto/query"

	"github.com/dolthub/go-plancompiler/sql/itree"
)

// emptyBranch returns a relation with no rows defining a single var.
func emptyBranch(cmd *itree.Command) (*itree.Node, *itree.Var) {
	varDef, v := cmd.CreateVarDefNode(int32Const(cmd, 1))
	return project(cmd, emptyInput(cmd), []*itree.Var{v}, varDef), v
}

func plusOne(cmd *itree.Command, v *itree.Var) *itree.Node {
	return cmd.CreateNode(itree.NewArithmeticOp(itree.OpPlus, v.Type), varRef(cmd, v), int32Const(cmd, 1))
}

func varDefs(n *itree.Node) []*itree.Var {
	var res []*itree.Var
	for _, varDef := range n.Children {
		res = append(res, varDef.Op.(*itree.VarDefOp).Var)
	}
	return res
}

func TestFilterRules(t *testing.T) {
	t.Run("constant true", func(t *testing.T) {
		require := require.New(t)
		cmd := itree.NewCommand()
		scan, _ := cmd.CreateScanTableNode(itemsMD())
		cmd.Root = filter(cmd, scan, cmd.CreateConstantPredicateNode(true))

		require.True(runRules(t, cmd, allRules()))
		require.Equal(scan, cmd.Root)
	})

	t.Run("constant false", func(t *testing.T) {
		require := require.New(t)
		cmd := itree.NewCommand()
		scan, _ := cmd.CreateScanTableNode(itemsMD())
		cmd.Root = filter(cmd, scan, cmd.CreateConstantPredicateNode(false))

		require.True(runRules(t, cmd, allRules()))
		root := cmd.Root
		require.Equal(itree.OpProject, root.OpType())
		require.Equal(itree.OpFilter, root.Child0().OpType())
		require.Equal(itree.OpSingleRowTable, root.Child0().Child0().OpType())
		require.Len(root.Child1().Children, 3)
		for _, varDef := range root.Child1().Children {
			require.Equal(itree.OpNull, varDef.Child0().OpType())
		}
		info := cmd.GetExtendedNodeInfo(root)
		require.Equal(itree.RowCountZero, info.MaxRows)
		require.Equal(3, info.Definitions.Count())
		requireValidVarReferences(t, cmd, root)
	})

	t.Run("over filter", func(t *testing.T) {
		cmd := itree.NewCommand()
		scan, items := cmd.CreateScanTableNode(itemsMD())
		inner := filter(cmd, scan, eq(cmd, varRef(cmd, items.ColumnVar("ItemId")), int32Const(cmd, 1)))
		cmd.Root = filter(cmd, inner, eq(cmd, varRef(cmd, items.ColumnVar("Price")), int32Const(cmd, 2)))

		require.True(t, runRules(t, cmd, allRules()))
		requireTree(t, `Filter
 ├─ ScanTable(Items{Var(0), Var(1), Var(2)})
 └─ And
     ├─ EQ
     │   ├─ VarRef(Var(0))
     │   └─ Constant(1)
     └─ EQ
         ├─ VarRef(Var(1))
         └─ Constant(2)
`, cmd.Root)
	})

	t.Run("over project", func(t *testing.T) {
		cmd := itree.NewCommand()
		scan, items := cmd.CreateScanTableNode(itemsMD())
		itemId := items.ColumnVar("ItemId")
		varDef, five := cmd.CreateVarDefNode(int32Const(cmd, 5))
		proj := project(cmd, scan, []*itree.Var{itemId, five}, varDef)
		cmd.Root = filter(cmd, proj, eq(cmd, varRef(cmd, itemId), varRef(cmd, five)))

		require.True(t, runRules(t, cmd, allRules()))
		requireTree(t, `Project{Var(0), Var(3)}
 ├─ Filter
 │   ├─ ScanTable(Items{Var(0), Var(1), Var(2)})
 │   └─ EQ
 │       ├─ VarRef(Var(0))
 │       └─ Constant(5)
 └─ VarDefList
     └─ VarDef(Var(3))
         └─ Constant(5)
`, cmd.Root)
		requireValidVarReferences(t, cmd, cmd.Root)
	})

	t.Run("over cross join", func(t *testing.T) {
		require := require.New(t)
		s := newShop(t)
		cmd := itree.NewCommand()
		itemScan, items := cmd.CreateScanTableNode(itemsMD())
		orderScan, orders := cmd.CreateScanTableNode(s.orders)
		pred := eq(cmd, varRef(cmd, items.ColumnVar("ItemId")), varRef(cmd, orders.ColumnVar("OrderId")))
		cmd.Root = filter(cmd, join(cmd, itree.OpCrossJoin, itemScan, orderScan), pred)

		require.True(runRules(t, cmd, allRules()))
		require.Equal(itree.OpInnerJoin, cmd.Root.OpType())
		require.Equal(itemScan, cmd.Root.Child0())
		require.Equal(orderScan, cmd.Root.Child1())
		require.Equal(pred, cmd.Root.Child2())
	})

	t.Run("over left outer join rejecting nulls", func(t *testing.T) {
		require := require.New(t)
		s := newShop(t)
		cmd := itree.NewCommand()
		itemScan, items := cmd.CreateScanTableNode(itemsMD())
		orderScan, orders := cmd.CreateScanTableNode(s.orders)
		on := eq(cmd, varRef(cmd, items.ColumnVar("ItemId")), varRef(cmd, orders.ColumnVar("OrderId")))
		loj := join(cmd, itree.OpLeftOuterJoin, itemScan, orderScan, on)
		cmd.Root = filter(cmd, loj, eq(cmd, varRef(cmd, orders.ColumnVar("Amount")), int32Const(cmd, 3)))

		require.True(runRules(t, cmd, allRules()))
		require.Equal(itree.OpInnerJoin, cmd.Root.OpType())
		require.Equal(itree.OpAnd, cmd.Root.Child2().OpType())
		require.Len(splitConjuncts(cmd.Root.Child2()), 2)
	})

	t.Run("over left outer join keeping nulls", func(t *testing.T) {
		require := require.New(t)
		s := newShop(t)
		cmd := itree.NewCommand()
		itemScan, items := cmd.CreateScanTableNode(itemsMD())
		orderScan, orders := cmd.CreateScanTableNode(s.orders)
		on := eq(cmd, varRef(cmd, items.ColumnVar("ItemId")), varRef(cmd, orders.ColumnVar("OrderId")))
		loj := join(cmd, itree.OpLeftOuterJoin, itemScan, orderScan, on)
		cmd.Root = filter(cmd, loj, cmd.BuildIsNull(varRef(cmd, orders.ColumnVar("Amount"))))

		require.False(runRules(t, cmd, allRules()))
		require.Equal(itree.OpFilter, cmd.Root.OpType())
		require.Equal(itree.OpLeftOuterJoin, cmd.Root.Child0().OpType())
	})

	t.Run("over group by", func(t *testing.T) {
		require := require.New(t)
		cmd := itree.NewCommand()
		scan, items := cmd.CreateScanTableNode(itemsMD())
		label := items.ColumnVar("Label")
		aggDef, total := cmd.CreateVarDefNode(cmd.CreateNode(
			itree.NewAggregateOp("SUM", itree.Int32.AsNullable(), false), varRef(cmd, items.ColumnVar("Price"))))
		groupBy := cmd.CreateNode(itree.NewGroupByOp(cmd.CreateVarVec(label), cmd.CreateVarVec(label, total)),
			scan, cmd.CreateNode(itree.NewVarDefListOp()), cmd.CreateNode(itree.NewVarDefListOp(), aggDef))
		onKey := eq(cmd, varRef(cmd, label), cmd.CreateNode(itree.NewConstantOp(itree.Text, "x")))
		onAggregate := cmd.BuildComparison(itree.OpGT, varRef(cmd, total), int32Const(cmd, 10))
		cmd.Root = filter(cmd, groupBy, cmd.BuildAnd(onKey, onAggregate))

		require.True(runRules(t, cmd, allRules()))
		require.Equal(itree.OpFilter, cmd.Root.OpType())
		require.Equal(onAggregate, cmd.Root.Child1())
		require.Equal(groupBy, cmd.Root.Child0())
		pushed := groupBy.Child0()
		require.Equal(itree.OpFilter, pushed.OpType())
		require.Equal(scan, pushed.Child0())
		require.Equal(onKey, pushed.Child1())
	})

	t.Run("over group by without keys", func(t *testing.T) {
		require := require.New(t)
		cmd := itree.NewCommand()
		scan, items := cmd.CreateScanTableNode(itemsMD())
		aggDef, total := cmd.CreateVarDefNode(cmd.CreateNode(
			itree.NewAggregateOp("SUM", itree.Int32.AsNullable(), false), varRef(cmd, items.ColumnVar("Price"))))
		groupBy := cmd.CreateNode(itree.NewGroupByOp(cmd.CreateVarVec(), cmd.CreateVarVec(total)),
			scan, cmd.CreateNode(itree.NewVarDefListOp()), cmd.CreateNode(itree.NewVarDefListOp(), aggDef))
		param := cmd.CreateParameterVar("p", itree.Int32)
		cmd.Root = filter(cmd, groupBy, eq(cmd, varRef(cmd, param), int32Const(cmd, 1)))

		require.False(runRules(t, cmd, allRules()))
		require.Equal(itree.OpFilter, cmd.Root.OpType())
		require.Equal(scan, groupBy.Child0())
	})
}

func TestJoinRules(t *testing.T) {
	t.Run("cross join over filter", func(t *testing.T) {
		require := require.New(t)
		s := newShop(t)
		cmd := itree.NewCommand()
		itemScan, items := cmd.CreateScanTableNode(itemsMD())
		orderScan, _ := cmd.CreateScanTableNode(s.orders)
		pred := eq(cmd, varRef(cmd, items.ColumnVar("ItemId")), int32Const(cmd, 1))
		cmd.Root = join(cmd, itree.OpCrossJoin, filter(cmd, itemScan, pred), orderScan)

		require.True(runRules(t, cmd, allRules()))
		require.Equal(itree.OpInnerJoin, cmd.Root.OpType())
		require.Equal(itemScan, cmd.Root.Child0())
		require.Equal(orderScan, cmd.Root.Child1())
		require.Equal(pred, cmd.Root.Child2())
	})

	t.Run("left outer join over left filter", func(t *testing.T) {
		require := require.New(t)
		s := newShop(t)
		cmd := itree.NewCommand()
		itemScan, items := cmd.CreateScanTableNode(itemsMD())
		orderScan, orders := cmd.CreateScanTableNode(s.orders)
		p1 := eq(cmd, varRef(cmd, items.ColumnVar("ItemId")), int32Const(cmd, 1))
		p2 := eq(cmd, varRef(cmd, items.ColumnVar("ItemId")), varRef(cmd, orders.ColumnVar("OrderId")))
		cmd.Root = join(cmd, itree.OpLeftOuterJoin, filter(cmd, itemScan, p1), orderScan, p2)

		require.True(runRules(t, cmd, allRules()))
		require.Equal(itree.OpFilter, cmd.Root.OpType())
		require.Equal(p1, cmd.Root.Child1())
		loj := cmd.Root.Child0()
		require.Equal(itree.OpLeftOuterJoin, loj.OpType())
		require.Equal(itemScan, loj.Child0())
		require.Equal(p2, loj.Child2())
	})

	t.Run("inner join over project", func(t *testing.T) {
		require := require.New(t)
		s := newShop(t)
		cmd := itree.NewCommand()
		itemScan, items := cmd.CreateScanTableNode(itemsMD())
		orderScan, orders := cmd.CreateScanTableNode(s.orders)
		varDef, one := cmd.CreateVarDefNode(int32Const(cmd, 1))
		proj := project(cmd, orderScan, []*itree.Var{orders.ColumnVar("OrderId"), one}, varDef)
		cmd.Root = join(cmd, itree.OpInnerJoin, itemScan, proj,
			eq(cmd, varRef(cmd, items.ColumnVar("ItemId")), varRef(cmd, one)))

		require.True(runRules(t, cmd, allRules()))
		require.Equal(itree.OpProject, cmd.Root.OpType())
		inner := cmd.Root.Child0()
		require.Equal(itree.OpInnerJoin, inner.OpType())
		require.Equal(orderScan, inner.Child1())
		require.Equal(itree.OpConstant, inner.Child2().Child1().OpType())
		outputs := cmd.Root.Op.(*itree.ProjectOp).Outputs
		require.True(outputs.IsSet(one))
		require.True(outputs.Subsumes(cmd.GetExtendedNodeInfo(itemScan).Definitions))
		requireValidVarReferences(t, cmd, cmd.Root)
	})

	t.Run("left outer join over right project", func(t *testing.T) {
		require := require.New(t)
		s := newShop(t)
		cmd := itree.NewCommand()
		itemScan, items := cmd.CreateScanTableNode(itemsMD())
		orderScan, orders := cmd.CreateScanTableNode(s.orders)
		orderId := orders.ColumnVar("OrderId")
		varDef, one := cmd.CreateVarDefNode(int32Const(cmd, 1))
		proj := project(cmd, orderScan, []*itree.Var{orderId, one}, varDef)
		cmd.Root = join(cmd, itree.OpLeftOuterJoin, itemScan, proj,
			eq(cmd, varRef(cmd, items.ColumnVar("ItemId")), varRef(cmd, orderId)))

		require.True(runRules(t, cmd, allRules()))
		require.Equal(itree.OpProject, cmd.Root.OpType())
		require.Equal(itree.OpLeftOuterJoin, cmd.Root.Child0().OpType())

		def := cmd.Root.Child1().Child0().Child0()
		require.Equal(itree.OpCase, def.OpType())
		require.Nil(eval(t, def, row{}), "no matching order")
		require.EqualValues(1, eval(t, def, row{orderId: int32(5)}))
	})

	t.Run("cross join over single row table", func(t *testing.T) {
		require := require.New(t)
		cmd := itree.NewCommand()
		scan, _ := cmd.CreateScanTableNode(itemsMD())
		cmd.Root = join(cmd, itree.OpCrossJoin, cmd.CreateNode(itree.NewSingleRowTableOp()), scan)

		require.True(runRules(t, cmd, allRules()))
		require.Equal(scan, cmd.Root)
	})
}

func TestApplyRules(t *testing.T) {
	t.Run("uncorrelated filter", func(t *testing.T) {
		for _, tt := range []struct {
			apply itree.OpType
			join  itree.OpType
		}{
			{itree.OpCrossApply, itree.OpInnerJoin},
			{itree.OpOuterApply, itree.OpLeftOuterJoin},
		} {
			t.Run(tt.apply.String(), func(t *testing.T) {
				require := require.New(t)
				s := newShop(t)
				cmd := itree.NewCommand()
				itemScan, items := cmd.CreateScanTableNode(itemsMD())
				orderScan, orders := cmd.CreateScanTableNode(s.orders)
				pred := eq(cmd, varRef(cmd, orders.ColumnVar("OrderId")), varRef(cmd, items.ColumnVar("ItemId")))
				cmd.Root = cmd.CreateNode(itree.NewApplyOp(tt.apply), itemScan, filter(cmd, orderScan, pred))

				require.True(runRules(t, cmd, allRules()))
				require.Equal(tt.join, cmd.Root.OpType())
				require.Equal(itemScan, cmd.Root.Child0())
				require.Equal(orderScan, cmd.Root.Child1())
				require.Equal(pred, cmd.Root.Child2())
			})
		}
	})

	t.Run("cross apply over correlated project", func(t *testing.T) {
		require := require.New(t)
		s := newShop(t)
		cmd := itree.NewCommand()
		itemScan, items := cmd.CreateScanTableNode(itemsMD())
		orderScan, _ := cmd.CreateScanTableNode(s.orders)
		varDef, next := cmd.CreateVarDefNode(plusOne(cmd, items.ColumnVar("ItemId")))
		proj := project(cmd, orderScan, []*itree.Var{next}, varDef)
		cmd.Root = cmd.CreateNode(itree.NewApplyOp(itree.OpCrossApply), itemScan, proj)

		require.True(runRules(t, cmd, allRules()))
		require.Equal(itree.OpProject, cmd.Root.OpType())
		require.Equal(itree.OpCrossJoin, cmd.Root.Child0().OpType())
		require.Equal([]*itree.Var{next}, varDefs(cmd.Root.Child1()))
		requireValidVarReferences(t, cmd, cmd.Root)
	})

	t.Run("outer apply over empty right", func(t *testing.T) {
		require := require.New(t)
		cmd := itree.NewCommand()
		scan, _ := cmd.CreateScanTableNode(itemsMD())
		right, _ := emptyBranch(cmd)
		cmd.Root = cmd.CreateNode(itree.NewApplyOp(itree.OpOuterApply), scan, right)

		require.True(runRules(t, cmd, allRules()))
		require.Equal(itree.OpProject, cmd.Root.OpType())
		require.Equal(scan, cmd.Root.Child0())
		require.Len(cmd.Root.Child1().Children, 1)
		require.Equal(itree.OpNull, cmd.Root.Child1().Child0().Child0().OpType())
	})

	t.Run("cross apply over empty right", func(t *testing.T) {
		require := require.New(t)
		cmd := itree.NewCommand()
		scan, _ := cmd.CreateScanTableNode(itemsMD())
		right, _ := emptyBranch(cmd)
		cmd.Root = cmd.CreateNode(itree.NewApplyOp(itree.OpCrossApply), scan, right)

		require.True(runRules(t, cmd, allRules()))
		require.Equal(itree.RowCountZero, cmd.GetExtendedNodeInfo(cmd.Root).MaxRows)
		requireValidVarReferences(t, cmd, cmd.Root)
	})
}

func TestGroupByRules(t *testing.T) {
	t.Run("no aggregates over unique keys", func(t *testing.T) {
		require := require.New(t)
		cmd := itree.NewCommand()
		scan, items := cmd.CreateScanTableNode(itemsMD())
		keys := cmd.CreateVarVec(items.ColumnVar("ItemId"))
		cmd.Root = cmd.CreateNode(itree.NewGroupByOp(keys, keys.Clone()),
			scan, cmd.CreateNode(itree.NewVarDefListOp()), cmd.CreateNode(itree.NewVarDefListOp()))

		require.True(runRules(t, cmd, allRules()))
		require.Equal(itree.OpProject, cmd.Root.OpType())
		require.True(keys.Equal(cmd.Root.Op.(*itree.ProjectOp).Outputs))
		require.Equal(scan, cmd.Root.Child0())
	})

	t.Run("no aggregates", func(t *testing.T) {
		require := require.New(t)
		cmd := itree.NewCommand()
		scan, items := cmd.CreateScanTableNode(itemsMD())
		keys := cmd.CreateVarVec(items.ColumnVar("Label"))
		cmd.Root = cmd.CreateNode(itree.NewGroupByOp(keys, keys.Clone()),
			scan, cmd.CreateNode(itree.NewVarDefListOp()), cmd.CreateNode(itree.NewVarDefListOp()))

		require.True(runRules(t, cmd, allRules()))
		require.Equal(itree.OpDistinct, cmd.Root.OpType())
		require.True(keys.Equal(cmd.Root.Op.(*itree.DistinctOp).Keys))
		require.Equal(itree.OpProject, cmd.Root.Child0().OpType())
	})

	t.Run("simple key redefinition", func(t *testing.T) {
		require := require.New(t)
		cmd := itree.NewCommand()
		scan, items := cmd.CreateScanTableNode(itemsMD())
		label := items.ColumnVar("Label")
		keyDef, key := cmd.CreateVarDefNode(varRef(cmd, label))
		aggDef, count := cmd.CreateVarDefNode(cmd.CreateNode(
			itree.NewAggregateOp("COUNT", itree.Int32, false), varRef(cmd, items.ColumnVar("ItemId"))))
		groupBy := cmd.CreateNode(itree.NewGroupByOp(cmd.CreateVarVec(key), cmd.CreateVarVec(key, count)),
			scan, cmd.CreateNode(itree.NewVarDefListOp(), keyDef), cmd.CreateNode(itree.NewVarDefListOp(), aggDef))
		cmd.Root = cmd.CreateProjectNode(groupBy, cmd.CreateVarVec(key, count))

		require.True(runRules(t, cmd, allRules()))
		op := groupBy.Op.(*itree.GroupByOp)
		require.True(op.Keys.Equal(cmd.CreateVarVec(label)))
		require.Empty(groupBy.Child1().Children)
		require.True(cmd.GetExtendedNodeInfo(cmd.Root).Definitions.IsSet(label))
		requireValidVarReferences(t, cmd, cmd.Root)
	})

	t.Run("over project", func(t *testing.T) {
		require := require.New(t)
		cmd := itree.NewCommand()
		scan, items := cmd.CreateScanTableNode(itemsMD())
		def, next := cmd.CreateVarDefNode(plusOne(cmd, items.ColumnVar("Price")))
		proj := project(cmd, scan, []*itree.Var{next}, def)
		aggDef, total := cmd.CreateVarDefNode(cmd.CreateNode(
			itree.NewAggregateOp("SUM", itree.Int32.AsNullable(), false), varRef(cmd, next)))
		groupBy := cmd.CreateNode(itree.NewGroupByOp(cmd.CreateVarVec(), cmd.CreateVarVec(total)),
			proj, cmd.CreateNode(itree.NewVarDefListOp()), cmd.CreateNode(itree.NewVarDefListOp(), aggDef))
		cmd.Root = groupBy

		require.True(runRules(t, cmd, allRules()))
		require.Equal(groupBy, cmd.Root)
		require.Equal(scan, groupBy.Child0())
		require.Equal(itree.OpPlus, aggDef.Child0().Child0().OpType())
		requireValidVarReferences(t, cmd, cmd.Root)
	})
}

func TestSortRules(t *testing.T) {
	for _, tt := range []struct {
		name  string
		build func(cmd *itree.Command, scan *itree.Node, items *itree.Table) (root, expected *itree.Node)
	}{
		{
			name: "no keys",
			build: func(cmd *itree.Command, scan *itree.Node, _ *itree.Table) (*itree.Node, *itree.Node) {
				return cmd.CreateNode(itree.NewSortOp(), scan), scan
			},
		},
		{
			name: "single row input",
			build: func(cmd *itree.Command, scan *itree.Node, items *itree.Table) (*itree.Node, *itree.Node) {
				in := cmd.CreateNode(itree.NewSingleRowOp(), scan)
				key := &itree.SortKey{Var: items.ColumnVar("Label"), Ascending: true}
				return cmd.CreateNode(itree.NewSortOp(key), in), in
			},
		},
		{
			name: "constrained sort over empty input",
			build: func(cmd *itree.Command, _ *itree.Node, _ *itree.Table) (*itree.Node, *itree.Node) {
				empty := emptyInput(cmd)
				return cmd.CreateNode(itree.NewConstrainedSortOp(false),
					empty, cmd.CreateNode(itree.NewNullOp(itree.Int64)), int32Const(cmd, 10)), empty
			},
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)
			cmd := itree.NewCommand()
			scan, items := cmd.CreateScanTableNode(itemsMD())
			root, expected := tt.build(cmd, scan, items)
			cmd.Root = root

			require.True(runRules(t, cmd, allRules()))
			require.Equal(expected, cmd.Root)
		})
	}

	t.Run("sort is kept", func(t *testing.T) {
		require := require.New(t)
		cmd := itree.NewCommand()
		scan, items := cmd.CreateScanTableNode(itemsMD())
		cmd.Root = cmd.CreateNode(itree.NewSortOp(&itree.SortKey{Var: items.ColumnVar("Label")}), scan)
		require.False(runRules(t, cmd, allRules()))
	})
}

func TestDistinctOfKeys(t *testing.T) {
	require := require.New(t)
	cmd := itree.NewCommand()
	scan, items := cmd.CreateScanTableNode(itemsMD())
	keys := cmd.CreateVarVec(items.ColumnVar("ItemId"), items.ColumnVar("Label"))
	cmd.Root = cmd.CreateNode(itree.NewDistinctOp(keys), scan)

	require.True(runRules(t, cmd, allRules()))
	require.Equal(itree.OpProject, cmd.Root.OpType())
	require.True(keys.Equal(cmd.Root.Op.(*itree.ProjectOp).Outputs))

	cmd = itree.NewCommand()
	scan, items = cmd.CreateScanTableNode(itemsMD())
	cmd.Root = cmd.CreateNode(itree.NewDistinctOp(cmd.CreateVarVec(items.ColumnVar("Label"))), scan)
	require.False(runRules(t, cmd, allRules()))
}

func TestSetOpOverEmptySet(t *testing.T) {
	for _, tt := range []struct {
		op         itree.OpType
		leftEmpty  bool
		rightEmpty bool
		keep       int
	}{
		{itree.OpUnionAll, true, false, 1},
		{itree.OpUnionAll, false, true, 0},
		{itree.OpIntersect, true, false, 0},
		{itree.OpIntersect, false, true, 1},
		{itree.OpExcept, true, false, 0},
		{itree.OpExcept, false, true, 0},
	} {
		name := tt.op.String()
		if tt.leftEmpty {
			name += " empty left"
		} else {
			name += " empty right"
		}
		t.Run(name, func(t *testing.T) {
			require := require.New(t)
			cmd := itree.NewCommand()

			var branches [2]*itree.Node
			var inputs [2]*itree.Var
			for i, empty := range []bool{tt.leftEmpty, tt.rightEmpty} {
				if empty {
					branches[i], inputs[i] = emptyBranch(cmd)
				} else {
					scan, items := cmd.CreateScanTableNode(itemsMD())
					branches[i], inputs[i] = scan, items.ColumnVar("ItemId")
				}
			}
			out := cmd.CreateSetOpVar(itree.Int32)
			left, right := itree.NewVarMap(), itree.NewVarMap()
			left.Add(out, inputs[0])
			right.Add(out, inputs[1])
			setOp := cmd.CreateNode(itree.NewSetOp(tt.op, cmd.CreateVarVec(out), left, right), branches[0], branches[1])
			cmd.Root = cmd.CreateNode(itree.NewPhysicalProjectOp(itree.VarList{out}, nil), setOp)

			require.True(runRules(t, cmd, allRules()))
			require.Equal(branches[tt.keep], cmd.Root.Child0())
			require.Equal(itree.VarList{inputs[tt.keep]}, cmd.Root.Op.(*itree.PhysicalProjectOp).Outputs)
			requireValidVarReferences(t, cmd, cmd.Root)
		})
	}
}

func TestSingleRowRules(t *testing.T) {
	t.Run("filter on every key", func(t *testing.T) {
		require := require.New(t)
		cmd := itree.NewCommand()
		scan, items := cmd.CreateScanTableNode(itemsMD())
		f := filter(cmd, scan, eq(cmd, varRef(cmd, items.ColumnVar("ItemId")), int32Const(cmd, 3)))
		cmd.Root = cmd.CreateNode(itree.NewSingleRowOp(), f)

		require.True(runRules(t, cmd, allRules()))
		require.Equal(f, cmd.Root)
	})

	t.Run("filter on another column", func(t *testing.T) {
		require := require.New(t)
		cmd := itree.NewCommand()
		scan, items := cmd.CreateScanTableNode(itemsMD())
		f := filter(cmd, scan, eq(cmd, varRef(cmd, items.ColumnVar("Price")), int32Const(cmd, 3)))
		cmd.Root = cmd.CreateNode(itree.NewSingleRowOp(), f)

		require.False(runRules(t, cmd, allRules()))
		require.Equal(itree.OpSingleRow, cmd.Root.OpType())
	})

	t.Run("over project", func(t *testing.T) {
		require := require.New(t)
		cmd := itree.NewCommand()
		scan, items := cmd.CreateScanTableNode(itemsMD())
		def, next := cmd.CreateVarDefNode(plusOne(cmd, items.ColumnVar("ItemId")))
		cmd.Root = cmd.CreateNode(itree.NewSingleRowOp(), project(cmd, scan, []*itree.Var{next}, def))

		require.True(runRules(t, cmd, allRules()))
		require.Equal(itree.OpProject, cmd.Root.OpType())
		require.Equal(itree.OpSingleRow, cmd.Root.Child0().OpType())
		require.Equal(scan, cmd.Root.Child0().Child0())
	})
}

func TestScalarRules(t *testing.T) {
	const (
		keepsAll  = "all rows"
		keepsNone = "no rows"
	)
	for _, tt := range []struct {
		name     string
		pred     func(cmd *itree.Command, items *itree.Table) *itree.Node
		expected string
	}{
		{
			name: "equal constants",
			pred: func(cmd *itree.Command, _ *itree.Table) *itree.Node {
				return eq(cmd, int32Const(cmd, 1), int32Const(cmd, 1))
			},
			expected: keepsAll,
		},
		{
			name: "different constants",
			pred: func(cmd *itree.Command, _ *itree.Table) *itree.Node {
				return eq(cmd, int32Const(cmd, 1), int32Const(cmd, 2))
			},
			expected: keepsNone,
		},
		{
			name: "and with true",
			pred: func(cmd *itree.Command, items *itree.Table) *itree.Node {
				return cmd.BuildAnd(cmd.CreateConstantPredicateNode(true),
					eq(cmd, varRef(cmd, items.ColumnVar("ItemId")), int32Const(cmd, 1)))
			},
			expected: "EQ\n ├─ VarRef(Var(0))\n └─ Constant(1)\n",
		},
		{
			name: "and with false",
			pred: func(cmd *itree.Command, items *itree.Table) *itree.Node {
				return cmd.BuildAnd(eq(cmd, varRef(cmd, items.ColumnVar("ItemId")), int32Const(cmd, 1)),
					cmd.CreateConstantPredicateNode(false))
			},
			expected: keepsNone,
		},
		{
			name: "or with true",
			pred: func(cmd *itree.Command, items *itree.Table) *itree.Node {
				return cmd.BuildOr(eq(cmd, varRef(cmd, items.ColumnVar("ItemId")), int32Const(cmd, 1)),
					cmd.CreateConstantPredicateNode(true))
			},
			expected: keepsAll,
		},
		{
			name: "not false",
			pred: func(cmd *itree.Command, _ *itree.Table) *itree.Node {
				return cmd.BuildNot(cmd.CreateConstantPredicateNode(false))
			},
			expected: keepsAll,
		},
		{
			name: "is null over constant",
			pred: func(cmd *itree.Command, _ *itree.Table) *itree.Node {
				return cmd.BuildIsNull(int32Const(cmd, 5))
			},
			expected: keepsNone,
		},
		{
			name: "is null over null",
			pred: func(cmd *itree.Command, _ *itree.Table) *itree.Node {
				return cmd.BuildIsNull(cmd.CreateNode(itree.NewNullOp(itree.Int32)))
			},
			expected: keepsAll,
		},
		{
			name: "is null over cast null",
			pred: func(cmd *itree.Command, _ *itree.Table) *itree.Node {
				cast := cmd.CreateNode(itree.NewCastOp(itree.PrimitiveType(query.Type_INT64, true)),
					cmd.CreateNode(itree.NewNullOp(itree.Int32)))
				return cmd.BuildIsNull(cast)
			},
			expected: keepsAll,
		},
		{
			name: "is null over non null column",
			pred: func(cmd *itree.Command, items *itree.Table) *itree.Node {
				return cmd.BuildIsNull(varRef(cmd, items.ColumnVar("ItemId")))
			},
			expected: keepsNone,
		},
		{
			name: "is null over nullable column",
			pred: func(cmd *itree.Command, items *itree.Table) *itree.Node {
				return cmd.BuildIsNull(varRef(cmd, items.ColumnVar("Price")))
			},
			expected: "IsNull\n └─ VarRef(Var(1))\n",
		},
		{
			name: "case with constant conditions",
			pred: func(cmd *itree.Command, items *itree.Table) *itree.Node {
				c := cmd.CreateNode(itree.NewCaseOp(itree.Int32),
					cmd.CreateConstantPredicateNode(false), int32Const(cmd, 1),
					cmd.CreateConstantPredicateNode(true), varRef(cmd, items.ColumnVar("ItemId")),
					int32Const(cmd, 3))
				return eq(cmd, c, int32Const(cmd, 2))
			},
			expected: "EQ\n ├─ VarRef(Var(0))\n └─ Constant(2)\n",
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)
			cmd := itree.NewCommand()
			scan, items := cmd.CreateScanTableNode(itemsMD())
			cmd.Root = filter(cmd, scan, tt.pred(cmd, items))

			runRules(t, cmd, allRules())
			switch tt.expected {
			case keepsAll:
				require.Equal(scan, cmd.Root)
			case keepsNone:
				require.Equal(itree.RowCountZero, cmd.GetExtendedNodeInfo(cmd.Root).MaxRows)
				require.Equal(itree.OpProject, cmd.Root.OpType())
			default:
				require.Equal(itree.OpFilter, cmd.Root.OpType())
				require.Equal(tt.expected, itree.Dump(cmd.Root.Child1()))
			}
		})
	}
}

func TestProjectWithNullSentinels(t *testing.T) {
	build := func(t *testing.T) (*itree.Command, *itree.Node, *itree.Var, *itree.Var, *itree.Var) {
		s := newShop(t)
		cmd := itree.NewCommand()
		scan, orders := cmd.CreateScanTableNode(s.orders)
		orderId := orders.ColumnVar("OrderId")
		def1, s1 := cmd.CreateVarDefNode(cmd.CreateNode(itree.NewNullSentinelOp()))
		def2, s2 := cmd.CreateVarDefNode(cmd.CreateNode(itree.NewNullSentinelOp()))
		return cmd, project(cmd, scan, []*itree.Var{orderId, s1, s2}, def1, def2), orderId, s1, s2
	}

	t.Run("replaced by a non null column", func(t *testing.T) {
		require := require.New(t)
		cmd, proj, orderId, _, _ := build(t)
		cmd.Root = proj

		require.True(runRules(t, cmd, allRules()))
		require.Equal(itree.OpProject, cmd.Root.OpType())
		require.Empty(cmd.Root.Child1().Children)
		require.True(cmd.Root.Op.(*itree.ProjectOp).Outputs.Equal(cmd.CreateVarVec(orderId)))
	})

	t.Run("collapsed under distinct", func(t *testing.T) {
		require := require.New(t)
		cmd, proj, orderId, s1, s2 := build(t)
		cmd.Root = cmd.CreateNode(itree.NewDistinctOp(cmd.CreateVarVec(s1, s2)), proj)

		require.True(runRules(t, cmd, allRules()))
		require.Equal([]*itree.Var{s1}, varDefs(proj.Child1()))
		require.True(proj.Op.(*itree.ProjectOp).Outputs.Equal(cmd.CreateVarVec(orderId, s1)))
		require.True(cmd.Root.Op.(*itree.DistinctOp).Keys.Equal(cmd.CreateVarVec(s1)))
		requireValidVarReferences(t, cmd, cmd.Root)
	})
}
