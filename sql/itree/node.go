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

// Node is a node of the tree. Nodes own their children; a node appears in at
// most one place of a tree. Id is assigned by the Command that created the
// node and is stable for the life of the node.
type Node struct {
	Op       Op
	Children []*Node
	Id       int

	info *NodeInfo
}

// NewPatternNode returns a node used only as a rule pattern. Pattern nodes
// do not belong to any Command.
func NewPatternNode(op Op, children ...*Node) *Node {
	return &Node{Op: op, Children: children, Id: -1}
}

// Child0 returns the first child.
func (n *Node) Child0() *Node { return n.Children[0] }

// Child1 returns the second child.
func (n *Node) Child1() *Node { return n.Children[1] }

// Child2 returns the third child.
func (n *Node) Child2() *Node { return n.Children[2] }

// Child3 returns the fourth child.
func (n *Node) Child3() *Node { return n.Children[3] }

// OpType is a shorthand for n.Op.OpType().
func (n *Node) OpType() OpType { return n.Op.OpType() }

// HasChild0 reports whether the node has at least one child.
func (n *Node) HasChild0() bool { return len(n.Children) > 0 }

// IsEquivalent reports whether both subtrees have the same shape, operators
// and var references.
func (n *Node) IsEquivalent(other *Node) bool {
	if n == other {
		return true
	}
	if n.OpType() != other.OpType() || len(n.Children) != len(other.Children) {
		return false
	}
	if !opsEquivalent(n.Op, other.Op) {
		return false
	}
	for i := range n.Children {
		if !n.Children[i].IsEquivalent(other.Children[i]) {
			return false
		}
	}
	return true
}

func opsEquivalent(a, b Op) bool {
	switch ao := a.(type) {
	case *ConstantOp:
		return ao.IsEquivalent(b.(*ConstantOp))
	case *ConstantPredicateOp:
		return ao.Value == b.(*ConstantPredicateOp).Value
	case *VarRefOp:
		return ao.Var == b.(*VarRefOp).Var
	case *ComparisonOp:
		return ao.UseDatabaseNullSemantics == b.(*ComparisonOp).UseDatabaseNullSemantics
	case *FunctionOp:
		return ao.Name == b.(*FunctionOp).Name
	case *AggregateOp:
		bo := b.(*AggregateOp)
		return ao.Name == bo.Name && ao.IsDistinct == bo.IsDistinct
	case *PropertyOp:
		return ao.Property == b.(*PropertyOp).Property
	case *CastOp:
		return ao.typ.Equals(b.(*CastOp).typ)
	case *ScanTableOp:
		return ao.Table == b.(*ScanTableOp).Table
	case *VarDefOp:
		return ao.Var == b.(*VarDefOp).Var
	case *ProjectOp:
		return ao.Outputs.Equal(b.(*ProjectOp).Outputs)
	case *DistinctOp:
		return ao.Keys.Equal(b.(*DistinctOp).Keys)
	case *GroupByOp:
		bo := b.(*GroupByOp)
		return ao.Keys.Equal(bo.Keys) && ao.Outputs.Equal(bo.Outputs)
	case *NewRecordOp, *UnnestOp, *SortOp, *ConstrainedSortOp, *GroupByIntoOp, *SetOp, *PhysicalProjectOp:
		return a == b
	default:
		return true
	}
}
