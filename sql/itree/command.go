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
	"github.com/dolthub/go-plancompiler/sql"
)

// Command owns one query tree: it creates the nodes, vars and table
// instances of the tree and computes node info on demand. Node ids and var
// ids are dense, so per-node and per-var side tables can be plain slices.
type Command struct {
	Root *Node

	vars       []*Var
	tables     []*Table
	parameters map[string]*Var
	nodeCount  int
}

// NewCommand returns an empty command.
func NewCommand() *Command {
	return &Command{parameters: make(map[string]*Var)}
}

// NodeCount returns one more than the largest node id handed out.
func (c *Command) NodeCount() int { return c.nodeCount }

// Vars returns every var of the command, indexed by id.
func (c *Command) Vars() []*Var { return c.vars }

// Tables returns every table instance of the command.
func (c *Command) Tables() []*Table { return c.tables }

// GetVar returns the var with the given id.
func (c *Command) GetVar(id int) (*Var, error) {
	if id < 0 || id >= len(c.vars) {
		return nil, sql.ErrVarNotFound.New(id)
	}
	return c.vars[id], nil
}

// Parameter returns the parameter var with the given name.
func (c *Command) Parameter(name string) (*Var, bool) {
	v, ok := c.parameters[name]
	return v, ok
}

// CreateNode creates a node with the given operator and children.
func (c *Command) CreateNode(op Op, children ...*Node) *Node {
	n := &Node{Op: op, Children: children, Id: c.nodeCount}
	c.nodeCount++
	return n
}

// CreateVarVec returns a set holding the given vars.
func (c *Command) CreateVarVec(vars ...*Var) *VarVec {
	vv := newVarVec(c)
	for _, v := range vars {
		vv.Set(v)
	}
	return vv
}

func (c *Command) addVar(v *Var) *Var {
	v.Id = len(c.vars)
	c.vars = append(c.vars, v)
	return v
}

// CreateComputedVar returns a new var to be defined by a VarDef.
func (c *Command) CreateComputedVar(t *TypeUsage) *Var {
	return c.addVar(&Var{VarType: ComputedVarType, Type: t})
}

// CreateSetOpVar returns a new output var of a set operation.
func (c *Command) CreateSetOpVar(t *TypeUsage) *Var {
	return c.addVar(&Var{VarType: SetOpVarType, Type: t})
}

// CreateParameterVar returns the parameter var with the given name,
// creating it if needed.
func (c *Command) CreateParameterVar(name string, t *TypeUsage) *Var {
	if v, ok := c.parameters[name]; ok {
		return v
	}
	v := c.addVar(&Var{VarType: ParameterVarType, Type: t, Name: name})
	c.parameters[name] = v
	return v
}

// CreateTableInstance returns a new instance of md with fresh column vars.
// Every column starts out referenced.
func (c *Command) CreateTableInstance(md *TableMD) *Table {
	t := &Table{Id: len(c.tables), MD: md}
	for _, col := range md.Columns {
		t.Columns = append(t.Columns, c.addVar(&Var{VarType: ColumnVarType, Type: col.Type, Table: t, Column: col}))
	}
	t.ReferencedColumns = c.CreateVarVec(t.Columns...)
	t.NonNullableColumns = c.CreateVarVec()
	t.Keys = c.CreateVarVec()
	for _, v := range t.Columns {
		if !v.Column.IsNullable() {
			t.NonNullableColumns.Set(v)
		}
	}
	for _, k := range md.Keys {
		t.Keys.Set(t.ColumnVarFor(k))
	}
	c.tables = append(c.tables, t)
	return t
}

// CreateScanTableNode returns a scan of a new instance of md.
func (c *Command) CreateScanTableNode(md *TableMD) (*Node, *Table) {
	t := c.CreateTableInstance(md)
	return c.CreateNode(NewScanTableOp(t)), t
}

// CreateVarRefNode returns a reference to v.
func (c *Command) CreateVarRefNode(v *Var) *Node {
	return c.CreateNode(NewVarRefOp(v))
}

// CreateVarDefNode returns a VarDef of a new var holding the value of def.
func (c *Command) CreateVarDefNode(def *Node) (*Node, *Var) {
	v := c.CreateComputedVar(def.Op.Type())
	return c.CreateNode(NewVarDefOp(v), def), v
}

// CreateVarDefListNode returns a VarDefList with a single VarDef of def.
func (c *Command) CreateVarDefListNode(def *Node) (*Node, *Var) {
	varDef, v := c.CreateVarDefNode(def)
	return c.CreateNode(NewVarDefListOp(), varDef), v
}

// CreateConstantPredicateNode returns a literal true or false.
func (c *Command) CreateConstantPredicateNode(value bool) *Node {
	return c.CreateNode(NewConstantPredicateOp(value))
}

// CreateProjectNode projects the given vars of input, defining nothing.
func (c *Command) CreateProjectNode(input *Node, outputs *VarVec) *Node {
	return c.CreateNode(NewProjectOp(outputs), input, c.CreateNode(NewVarDefListOp()))
}

// BuildComparison returns a comparison of left and right.
func (c *Command) BuildComparison(t OpType, left, right *Node) *Node {
	return c.CreateNode(NewComparisonOp(t), left, right)
}

// BuildAnd returns the conjunction of the non-nil predicates, or nil.
func (c *Command) BuildAnd(preds ...*Node) *Node {
	var res *Node
	for _, p := range preds {
		if p == nil {
			continue
		}
		if res == nil {
			res = p
		} else {
			res = c.CreateNode(NewConditionalOp(OpAnd), res, p)
		}
	}
	return res
}

// BuildOr returns the disjunction of left and right.
func (c *Command) BuildOr(left, right *Node) *Node {
	return c.CreateNode(NewConditionalOp(OpOr), left, right)
}

// BuildIsNull returns an IS NULL test of n.
func (c *Command) BuildIsNull(n *Node) *Node {
	return c.CreateNode(NewConditionalOp(OpIsNull), n)
}

// BuildNot returns the negation of n.
func (c *Command) BuildNot(n *Node) *Node {
	return c.CreateNode(NewConditionalOp(OpNot), n)
}

// GetNodeInfo returns the node info of n, computing it if needed.
func (c *Command) GetNodeInfo(n *Node) *NodeInfo {
	if n.info == nil {
		n.info = newNodeInfo(c)
		computeNodeInfo(c, n, n.info)
	}
	return n.info
}

// GetExtendedNodeInfo returns the node info of a relational node.
func (c *Command) GetExtendedNodeInfo(n *Node) *NodeInfo {
	return c.GetNodeInfo(n)
}

// RecomputeNodeInfo recomputes the node info of n from the current node
// info of its children. It must be called after any change to n or beneath
// it.
func (c *Command) RecomputeNodeInfo(n *Node) {
	if n.info == nil {
		n.info = newNodeInfo(c)
	} else {
		n.info.reset()
	}
	computeNodeInfo(c, n, n.info)
}

// RecomputeSubtreeNodeInfo recomputes the node info of every node of the
// subtree, bottom up.
func (c *Command) RecomputeSubtreeNodeInfo(n *Node) {
	for _, child := range n.Children {
		c.RecomputeSubtreeNodeInfo(child)
	}
	c.RecomputeNodeInfo(n)
}
