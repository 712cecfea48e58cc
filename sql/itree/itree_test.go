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

package itree

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/src-d/go-vitess.v0/vt/proto/query"
)

func ordersMD() *TableMD {
	return NewTableMD("Orders", []*ColumnMD{
		{Name: "OrderId", Type: Int32},
		{Name: "CustomerId", Type: Int32},
		{Name: "Note", Type: Text},
	}, "OrderId")
}

func TestVarVec(t *testing.T) {
	require := require.New(t)

	c := NewCommand()
	a := c.CreateComputedVar(Int32)
	b := c.CreateComputedVar(Int32)
	d := c.CreateComputedVar(Int32)

	ab := c.CreateVarVec(a, b)
	bd := c.CreateVarVec(b, d)
	require.Equal(2, ab.Count())
	require.True(ab.Overlaps(bd))
	require.False(ab.Subsumes(bd))
	require.Equal([]*Var{a, b, d}, ab.Clone().Or(bd).Vars())
	require.Equal([]*Var{b}, ab.Clone().And(bd).Vars())
	require.Equal([]*Var{a}, ab.Clone().Minus(bd).Vars())
	require.Equal(a, ab.First())
	require.True(c.CreateVarVec(b, a).Equal(ab))

	// vars created after the set still fit
	e := c.CreateComputedVar(Int32)
	ab.Set(e)
	require.True(ab.IsSet(e))
	require.Equal("{Var(0), Var(1), Var(3)}", ab.String())
}

func TestVarMap(t *testing.T) {
	require := require.New(t)

	c := NewCommand()
	a := c.CreateComputedVar(Int32)
	b := c.CreateComputedVar(Int32)
	m := NewVarMap()
	m.Add(b, a)
	m.Add(a, b)
	require.Equal([]*Var{b, a}, m.Keys())

	r := m.Reverse()
	v, ok := r.Get(a)
	require.True(ok)
	require.Equal(b, v)

	m.Delete(b)
	require.Equal(1, m.Len())
	require.Equal("{Var(0)->Var(1)}", m.String())
}

func TestScanTableKeys(t *testing.T) {
	require := require.New(t)

	c := NewCommand()
	scan, orders := c.CreateScanTableNode(ordersMD())
	info := c.GetExtendedNodeInfo(scan)
	require.False(info.Keys.NoKeys)
	require.True(info.Keys.KeyVars.IsSet(orders.ColumnVar("OrderId")))
	require.True(info.NonNullableDefinitions.IsSet(orders.ColumnVar("CustomerId")))
	require.False(info.NonNullableDefinitions.IsSet(orders.ColumnVar("Note")))

	orders.ReferencedColumns.Clear(orders.ColumnVar("OrderId"))
	c.RecomputeNodeInfo(scan)
	require.True(info.Keys.NoKeys)
	require.Equal(2, info.Definitions.Count())
}

func TestProjectKeysThroughRedefinition(t *testing.T) {
	require := require.New(t)

	c := NewCommand()
	scan, orders := c.CreateScanTableNode(ordersMD())
	id := orders.ColumnVar("OrderId")

	def, renamed := c.CreateVarDefNode(c.CreateVarRefNode(id))
	project := c.CreateNode(NewProjectOp(c.CreateVarVec(renamed)), scan, c.CreateNode(NewVarDefListOp(), def))

	info := c.GetExtendedNodeInfo(project)
	require.False(info.Keys.NoKeys)
	require.Equal([]*Var{renamed}, info.Keys.KeyVars.Vars())
	require.True(info.NonNullableDefinitions.IsSet(renamed))
	require.True(info.LocalDefinitions.IsSet(renamed))

	dropped := c.CreateProjectNode(c.Copy(scan), c.CreateVarVec())
	require.True(c.GetExtendedNodeInfo(dropped).Keys.NoKeys)
}

func TestRowCounts(t *testing.T) {
	c := NewCommand()

	single := func() *Node { return c.CreateNode(NewSingleRowTableOp()) }
	scan := func() *Node {
		n, _ := c.CreateScanTableNode(ordersMD())
		return n
	}
	empty := func() *Node {
		return c.CreateNode(NewFilterOp(), scan(), c.CreateConstantPredicateNode(false))
	}
	limit := func(withTies bool, n int64) *Node {
		return c.CreateNode(NewConstrainedSortOp(withTies), scan(),
			c.CreateNode(NewNullOp(Int64)), c.CreateNode(NewConstantOp(Int64, n)))
	}

	testCases := []struct {
		name     string
		node     *Node
		min, max RowCount
	}{
		{"single row table", single(), RowCountOne, RowCountOne},
		{"scan", scan(), RowCountZero, RowCountUnbounded},
		{"false filter", empty(), RowCountZero, RowCountZero},
		{"cross join of singles", c.CreateNode(NewJoinOp(OpCrossJoin), single(), single()), RowCountOne, RowCountOne},
		{"cross join with empty", c.CreateNode(NewJoinOp(OpCrossJoin), scan(), empty()), RowCountZero, RowCountZero},
		{"left outer join keeps left", c.CreateNode(NewJoinOp(OpLeftOuterJoin), single(), empty(), c.CreateConstantPredicateNode(true)), RowCountOne, RowCountOne},
		{"limit 1", limit(false, 1), RowCountZero, RowCountOne},
		{"limit 1 with ties", limit(true, 1), RowCountZero, RowCountUnbounded},
		{"limit 0", limit(false, 0), RowCountZero, RowCountZero},
		{"single row", c.CreateNode(NewSingleRowOp(), scan()), RowCountZero, RowCountOne},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			info := c.GetExtendedNodeInfo(tt.node)
			require.Equal(t, tt.min, info.MinRows, "min rows")
			require.Equal(t, tt.max, info.MaxRows, "max rows")
		})
	}
}

func TestGroupByWithoutKeysHasOneRow(t *testing.T) {
	require := require.New(t)

	c := NewCommand()
	scan, orders := c.CreateScanTableNode(ordersMD())
	agg, count := c.CreateVarDefNode(c.CreateNode(NewAggregateOp("COUNT", Int64, false), c.CreateVarRefNode(orders.ColumnVar("OrderId"))))
	gb := c.CreateNode(NewGroupByOp(c.CreateVarVec(), c.CreateVarVec(count)), scan,
		c.CreateNode(NewVarDefListOp()), c.CreateNode(NewVarDefListOp(), agg))

	info := c.GetExtendedNodeInfo(gb)
	require.Equal(RowCountOne, info.MinRows)
	require.Equal(RowCountOne, info.MaxRows)
	require.False(info.Keys.NoKeys)
	require.True(info.Keys.KeyVars.IsEmpty())
	require.True(info.ExternalReferences.IsEmpty())
}

func TestApplyExternalReferences(t *testing.T) {
	require := require.New(t)

	c := NewCommand()
	left, orders := c.CreateScanTableNode(ordersMD())
	right, customers := c.CreateScanTableNode(ordersMD())
	pred := c.BuildComparison(OpEQ, c.CreateVarRefNode(orders.ColumnVar("CustomerId")), c.CreateVarRefNode(customers.ColumnVar("CustomerId")))
	filter := c.CreateNode(NewFilterOp(), right, pred)

	require.True(c.GetExtendedNodeInfo(filter).ExternalReferences.IsSet(orders.ColumnVar("CustomerId")))

	apply := c.CreateNode(NewApplyOp(OpCrossApply), left, filter)
	require.True(c.GetExtendedNodeInfo(apply).ExternalReferences.IsEmpty())
}

func TestSetOpNonNullable(t *testing.T) {
	require := require.New(t)

	c := NewCommand()
	l, lt := c.CreateScanTableNode(ordersMD())
	r, rt := c.CreateScanTableNode(ordersMD())
	id := c.CreateSetOpVar(Int32)
	note := c.CreateSetOpVar(Text)
	lm, rm := NewVarMap(), NewVarMap()
	lm.Add(id, lt.ColumnVar("OrderId"))
	lm.Add(note, lt.ColumnVar("Note"))
	rm.Add(id, rt.ColumnVar("OrderId"))
	rm.Add(note, rt.ColumnVar("Note"))

	union := c.CreateNode(NewSetOp(OpUnionAll, c.CreateVarVec(id, note), lm, rm), l, r)
	info := c.GetExtendedNodeInfo(union)
	require.True(info.NonNullableDefinitions.IsSet(id))
	require.False(info.NonNullableDefinitions.IsSet(note))
	require.True(info.Keys.NoKeys)

	except := c.CreateNode(NewSetOp(OpExcept, c.CreateVarVec(id, note), lm.Clone(), rm.Clone()), c.Copy(l), c.Copy(r))
	require.False(c.GetExtendedNodeInfo(except).Keys.NoKeys)
}

func TestCopy(t *testing.T) {
	require := require.New(t)

	c := NewCommand()
	scan, orders := c.CreateScanTableNode(ordersMD())
	def, v := c.CreateVarDefNode(c.CreateNode(NewArithmeticOp(OpPlus, Int32),
		c.CreateVarRefNode(orders.ColumnVar("OrderId")), c.CreateNode(NewConstantOp(Int32, 1))))
	project := c.CreateNode(NewProjectOp(c.CreateVarVec(v)), scan, c.CreateNode(NewVarDefListOp(), def))

	cp, m := c.CopyWithVarMap(project)
	require.NotEqual(project.Id, cp.Id)

	nv, ok := m.Get(v)
	require.True(ok)
	require.NotEqual(v, nv)
	require.Equal([]*Var{nv}, cp.Op.(*ProjectOp).Outputs.Vars())

	newScan := cp.Child0().Op.(*ScanTableOp)
	require.NotEqual(orders, newScan.Table)
	ref := cp.Child1().Child0().Child0().Child0().Op.(*VarRefOp)
	require.Equal(newScan.Table.ColumnVar("OrderId"), ref.Var)

	require.False(project.IsEquivalent(cp))
	require.True(cp.Child1().Child0().Child0().Child1().IsEquivalent(def.Child0().Child1()))
}

func TestDump(t *testing.T) {
	require := require.New(t)

	c := NewCommand()
	scan, orders := c.CreateScanTableNode(ordersMD())
	pred := c.BuildComparison(OpEQ,
		c.CreateVarRefNode(orders.ColumnVar("OrderId")),
		c.CreateNode(NewConstantOp(PrimitiveType(query.Type_INT32, false), 7)))
	filter := c.CreateNode(NewFilterOp(), scan, pred)

	expected := `Filter
 ├─ ScanTable(Orders{Var(0), Var(1), Var(2)})
 └─ EQ
     ├─ VarRef(Var(0))
     └─ Constant(7)
`
	require.Equal(expected, Dump(filter))
}

func TestTypes(t *testing.T) {
	require := require.New(t)

	require.True(Int32.IsIntegral())
	require.False(Text.IsIntegral())
	require.True(Boolean.IsBoolean())
	require.True(Int32.AsNullable().Nullable)
	require.False(Int32.Nullable)

	rec := RecordType(Field{"Id", Int32}, Field{"Name", Text})
	ft, ok := rec.FieldType("Name")
	require.True(ok)
	require.Equal(Text, ft)
	require.True(CollectionType(rec).ElementType().Equals(rec))
	require.Equal("collection(record(Id int32, Name varchar))", CollectionType(rec).String())
}
