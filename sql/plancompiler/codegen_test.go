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

	"github.com/dolthub/go-plancompiler/sql"
	"github.com/dolthub/go-plancompiler/sql/itree"
)

func orderRowMap(orderId, amount *itree.Var) *itree.SimpleCollectionColumnMap {
	rowType := itree.RecordType(
		itree.Field{Name: "OrderId", Type: orderId.Type},
		itree.Field{Name: "Amount", Type: amount.Type},
	)
	return &itree.SimpleCollectionColumnMap{
		Typ:        itree.CollectionType(rowType),
		ColumnName: "orders",
		Element: &itree.RecordColumnMap{
			Typ:        rowType,
			ColumnName: "order",
			Properties: []itree.ColumnMap{
				&itree.VarRefColumnMap{Typ: orderId.Type, ColumnName: "OrderId", Var: orderId},
				&itree.VarRefColumnMap{Typ: amount.Type, ColumnName: "Amount", Var: amount},
			},
		},
	}
}

func TestCodeGenSingleCommand(t *testing.T) {
	require := require.New(t)
	s := newShop(t)
	cmd := itree.NewCommand()
	scan, orders := cmd.CreateScanTableNode(s.orders)
	orderId, amount := orders.ColumnVar("OrderId"), orders.ColumnVar("Amount")
	cmd.Root = cmd.CreateNode(itree.NewPhysicalProjectOp(itree.VarList{amount, orderId}, orderRowMap(orderId, amount)), scan)

	plan, err := NewCodeGen(newTestPlanCompiler(t, cmd)).Process()
	require.NoError(err)
	require.Len(plan.Commands, 1)
	require.Same(cmd.Root, plan.Commands[0].Root)
	require.Equal(itree.VarList{amount, orderId}, plan.Commands[0].Outputs)
	require.Equal(2, plan.ColumnCount)

	collection := plan.ColumnMap.(*itree.SimpleCollectionColumnMap)
	record := collection.Element.(*itree.RecordColumnMap)
	require.Equal("order", record.ColumnName)
	require.Equal(&itree.ScalarColumnMap{Typ: orderId.Type, ColumnName: "OrderId", CommandId: 0, ColumnPos: 1}, record.Properties[0])
	require.Equal(&itree.ScalarColumnMap{Typ: amount.Type, ColumnName: "Amount", CommandId: 0, ColumnPos: 0}, record.Properties[1])

	_, ok := cmd.Root.Op.(*itree.PhysicalProjectOp).ColumnMap.Element.(*itree.RecordColumnMap).Properties[0].(*itree.VarRefColumnMap)
	require.True(ok, "the tree keeps its var references")
}

func TestCodeGenSubCommands(t *testing.T) {
	require := require.New(t)
	s := newShop(t)
	cmd := itree.NewCommand()
	ordersScan, orders := cmd.CreateScanTableNode(s.orders)
	customersScan, customers := cmd.CreateScanTableNode(s.customers)
	orderId := orders.ColumnVar("OrderId")
	name := customers.ColumnVar("Name")

	nameMap := &itree.VarRefColumnMap{Typ: name.Type, ColumnName: "Name", Var: name}
	sub := cmd.CreateNode(itree.NewPhysicalProjectOp(itree.VarList{customers.ColumnVar("CustomerId"), name}, nil), customersScan)
	rowType := itree.RecordType(itree.Field{Name: "OrderId", Type: orderId.Type}, itree.Field{Name: "Name", Type: name.Type})
	columnMap := &itree.RecordColumnMap{
		Typ:        rowType,
		ColumnName: "row",
		Properties: []itree.ColumnMap{
			&itree.VarRefColumnMap{Typ: orderId.Type, ColumnName: "OrderId", Var: orderId},
			nameMap,
		},
		NullSentinel: &itree.VarRefColumnMap{Typ: orderId.Type, ColumnName: "sentinel", Var: orderId},
	}
	cmd.Root = cmd.CreateNode(itree.NewPhysicalProjectOp(itree.VarList{orderId}, nil), ordersScan, sub)

	cg := NewCodeGen(newTestPlanCompiler(t, cmd))
	plan, err := cg.Process()
	require.NoError(err)
	require.Len(plan.Commands, 2)
	require.Equal(1, plan.ColumnCount)

	first := plan.Commands[0]
	require.Equal(itree.OpPhysicalProject, first.Root.OpType())
	require.Len(first.Root.Children, 1)
	require.Same(ordersScan, first.Root.Child0())
	require.Same(sub, plan.Commands[1].Root)
	require.Equal("command 1: "+itree.VarList{customers.ColumnVar("CustomerId"), name}.String(), plan.Commands[1].String())

	require.Nil(plan.ColumnMap)

	translated := NewColumnMapTranslator(cg.lookup).Translate(columnMap).(*itree.RecordColumnMap)
	require.Equal(&itree.ScalarColumnMap{Typ: orderId.Type, ColumnName: "OrderId", CommandId: 0, ColumnPos: 0}, translated.Properties[0])
	require.Equal(&itree.ScalarColumnMap{Typ: name.Type, ColumnName: "Name", CommandId: 1, ColumnPos: 1}, translated.Properties[1])
	require.Equal(&itree.ScalarColumnMap{Typ: orderId.Type, ColumnName: "sentinel", CommandId: 0, ColumnPos: 0}, translated.NullSentinel)
}

func TestCodeGenErrors(t *testing.T) {
	s := newShop(t)

	t.Run("no physical project", func(t *testing.T) {
		cmd := itree.NewCommand()
		scan, _ := cmd.CreateScanTableNode(s.orders)
		cmd.Root = scan
		_, err := NewCodeGen(newTestPlanCompiler(t, cmd)).Process()
		require.Error(t, err)
		require.True(t, ErrNoPhysicalProject.Is(err))
	})

	t.Run("column of no command", func(t *testing.T) {
		cmd := itree.NewCommand()
		scan, orders := cmd.CreateScanTableNode(s.orders)
		orderId, amount := orders.ColumnVar("OrderId"), orders.ColumnVar("Amount")
		cmd.Root = cmd.CreateNode(itree.NewPhysicalProjectOp(itree.VarList{orderId}, orderRowMap(orderId, amount)), scan)

		defer func() {
			r := recover()
			require.NotNil(t, r)
			require.True(t, sql.ErrInternal.Is(r.(error)))
		}()
		_, _ = NewCodeGen(newTestPlanCompiler(t, cmd)).Process()
	})
}
