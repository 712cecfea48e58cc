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

package transform

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dolthub/go-plancompiler/sql/itree"
)

var testCmd = itree.NewCommand()

func a(children ...*itree.Node) *itree.Node {
	return testCmd.CreateNode(itree.NewArithmeticOp(itree.OpPlus, itree.Int32), children...)
}

func b(children ...*itree.Node) *itree.Node {
	return testCmd.CreateNode(itree.NewArithmeticOp(itree.OpMinus, itree.Int32), children...)
}

func c(children ...*itree.Node) *itree.Node {
	return testCmd.CreateNode(itree.NewArithmeticOp(itree.OpMultiply, itree.Int32), children...)
}

func TestTransformUp(t *testing.T) {
	require := require.New(t)

	tests := []struct {
		inp   *itree.Node
		cmp   *itree.Node
		visit NodeFunc
		same  TreeIdentity
	}{
		{
			inp:  a(a(a(), a(), a(b())), c()),
			cmp:  b(b(b(), b(), b(c())), c()),
			same: NewTree,
			visit: func(n *itree.Node) (*itree.Node, TreeIdentity, error) {
				switch n.OpType() {
				case itree.OpPlus:
					return b(n.Children...), NewTree, nil
				case itree.OpMinus:
					return c(n.Children...), NewTree, nil
				default:
					return n, SameTree, nil
				}
			},
		},
		{
			inp:  a(a(a(), a(), a(b())), c()),
			cmp:  a(a(a(), a(), a(b())), b()),
			same: NewTree,
			visit: func(n *itree.Node) (*itree.Node, TreeIdentity, error) {
				if n.OpType() == itree.OpMultiply {
					return b(n.Children...), NewTree, nil
				}
				return n, SameTree, nil
			},
		},
		{
			inp:  a(b(b(), c(), b(b())), c()),
			cmp:  a(b(b(), c(), b(b())), c()),
			same: SameTree,
			visit: func(n *itree.Node) (*itree.Node, TreeIdentity, error) {
				return n, SameTree, nil
			},
		},
	}

	for _, tt := range tests {
		res, same, err := Node(tt.inp, tt.visit)
		require.NoError(err)
		require.Equal(itree.Dump(tt.cmp), itree.Dump(res))
		require.Equal(tt.same, same)
	}
}

func TestTransformDown(t *testing.T) {
	require := require.New(t)

	var visited []itree.OpType
	res, same, err := NodeDown(a(b(c()), c()), func(n *itree.Node) (*itree.Node, TreeIdentity, error) {
		visited = append(visited, n.OpType())
		if n.OpType() == itree.OpPlus {
			return c(b(), c()), NewTree, nil
		}
		return n, SameTree, nil
	})
	require.NoError(err)
	require.Equal(NewTree, same)
	// the replacement's children are visited, not the original ones
	require.Equal([]itree.OpType{itree.OpPlus, itree.OpMinus, itree.OpMultiply}, visited)
	require.Equal(itree.Dump(c(b(), c())), itree.Dump(res))
}

func TestTransformError(t *testing.T) {
	require := require.New(t)

	_, _, err := Node(a(b(), c()), func(n *itree.Node) (*itree.Node, TreeIdentity, error) {
		if n.OpType() == itree.OpMultiply {
			return nil, SameTree, fmt.Errorf("boom")
		}
		return n, SameTree, nil
	})
	require.Error(err)
}

func TestScalarStopsAtRelationalNodes(t *testing.T) {
	require := require.New(t)

	scan, orders := testCmd.CreateScanTableNode(itree.NewTableMD("Orders", []*itree.ColumnMD{
		{Name: "OrderId", Type: itree.Int32},
	}, "OrderId"))
	filter := testCmd.CreateNode(itree.NewFilterOp(), scan, a(testCmd.CreateVarRefNode(orders.ColumnVar("OrderId")), c()))
	exists := testCmd.CreateNode(itree.NewExistsOp(), filter)
	pred := testCmd.CreateNode(itree.NewConditionalOp(itree.OpNot), exists)

	var seen []itree.OpType
	_, same, err := Scalar(pred, func(n *itree.Node) (*itree.Node, TreeIdentity, error) {
		seen = append(seen, n.OpType())
		return n, SameTree, nil
	})
	require.NoError(err)
	require.Equal(SameTree, same)
	require.Equal([]itree.OpType{itree.OpFilter, itree.OpExists, itree.OpNot}, seen)

	seen = nil
	InspectScalar(pred, func(n *itree.Node) bool {
		seen = append(seen, n.OpType())
		return true
	})
	require.Equal([]itree.OpType{itree.OpNot, itree.OpExists, itree.OpFilter}, seen)
}

func TestInspect(t *testing.T) {
	require := require.New(t)

	tree := a(b(c()), c(b()))

	var pre []itree.OpType
	Inspect(tree, func(n *itree.Node) bool {
		pre = append(pre, n.OpType())
		return n.OpType() != itree.OpMinus
	})
	require.Equal([]itree.OpType{itree.OpPlus, itree.OpMinus, itree.OpMultiply, itree.OpMinus}, pre)

	var post []itree.OpType
	stopped := InspectUp(tree, func(n *itree.Node) bool {
		post = append(post, n.OpType())
		return n.OpType() == itree.OpPlus
	})
	require.True(stopped)
	require.Equal([]itree.OpType{itree.OpMultiply, itree.OpMinus, itree.OpMinus, itree.OpMultiply, itree.OpPlus}, post)

	depths := map[int]int{}
	InspectWithParents(tree, func(n *itree.Node, parents []*itree.Node) bool {
		depths[n.Id] = len(parents)
		return true
	})
	require.Equal(0, depths[tree.Id])
	require.Equal(2, depths[tree.Child1().Child0().Id])
}
