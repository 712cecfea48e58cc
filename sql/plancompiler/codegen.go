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

	"github.com/dolthub/go-plancompiler/sql/itree"
)

// ProviderCommandInfo is one command for the backend: a PhysicalProject
// tree and the positions of its output columns.
type ProviderCommandInfo struct {
	Id      int
	Root    *itree.Node
	Outputs itree.VarList
}

func (c *ProviderCommandInfo) String() string {
	return fmt.Sprintf("command %d: %s", c.Id, c.Outputs)
}

// commandColumn is the position of a var in the results of the commands.
type commandColumn struct {
	commandId int
	pos       int
}

// CodeGen splits a tree rooted at a PhysicalProject into backend commands
// and translates the result column map to command column positions. The
// input of the root is the first command; every further PhysicalProject
// child of the root is a command of its own.
type CodeGen struct {
	pc      *PlanCompiler
	cmd     *itree.Command
	columns map[*itree.Var]commandColumn
}

func NewCodeGen(pc *PlanCompiler) *CodeGen {
	return &CodeGen{pc: pc, cmd: pc.Command, columns: make(map[*itree.Var]commandColumn)}
}

// Process builds the commands and the translated column map.
func (cg *CodeGen) Process() (*CompiledPlan, error) {
	root := cg.cmd.Root
	op, ok := root.Op.(*itree.PhysicalProjectOp)
	if !ok {
		return nil, ErrNoPhysicalProject.New(root.OpType())
	}

	subCommands := []*itree.Node{root}
	for _, child := range root.Children[1:] {
		Assert(child.OpType() == itree.OpPhysicalProject, "expected PhysicalProject sub command, got %s", child.OpType())
		subCommands = append(subCommands, child)
	}

	commands := make([]*ProviderCommandInfo, len(subCommands))
	for i, sub := range subCommands {
		commands[i] = cg.createCommand(i, sub)
		cg.pc.Log("generated %s", commands[i])
	}

	var columnMap itree.ColumnMap
	if op.ColumnMap != nil {
		columnMap = NewColumnMapTranslator(cg.lookup).Translate(op.ColumnMap)
	}

	return &CompiledPlan{
		Root:        root,
		Commands:    commands,
		ColumnMap:   columnMap,
		ColumnCount: len(op.Outputs),
	}, nil
}

func (cg *CodeGen) createCommand(id int, n *itree.Node) *ProviderCommandInfo {
	op := n.Op.(*itree.PhysicalProjectOp)
	for pos, v := range op.Outputs {
		if _, ok := cg.columns[v]; !ok {
			cg.columns[v] = commandColumn{commandId: id, pos: pos}
		}
	}
	root := n
	if len(n.Children) > 1 {
		root = cg.cmd.CreateNode(op, n.Child0())
		cg.cmd.RecomputeNodeInfo(root)
	}
	return &ProviderCommandInfo{Id: id, Root: root, Outputs: op.Outputs}
}

func (cg *CodeGen) lookup(v *itree.Var) (int, int, bool) {
	c, ok := cg.columns[v]
	return c.commandId, c.pos, ok
}

// ColumnMapTranslator rewrites var reference column maps into command
// column positions.
type ColumnMapTranslator struct {
	lookup func(*itree.Var) (commandId, pos int, ok bool)
}

func NewColumnMapTranslator(lookup func(*itree.Var) (int, int, bool)) *ColumnMapTranslator {
	return &ColumnMapTranslator{lookup: lookup}
}

// Translate returns a copy of cm where every VarRefColumnMap is replaced
// by a ScalarColumnMap.
func (t *ColumnMapTranslator) Translate(cm itree.ColumnMap) itree.ColumnMap {
	switch c := cm.(type) {
	case *itree.VarRefColumnMap:
		commandId, pos, ok := t.lookup(c.Var)
		Assert(ok, "var %s of column %s is not produced by any command", c.Var, c.ColumnName)
		return &itree.ScalarColumnMap{Typ: c.Typ, ColumnName: c.ColumnName, CommandId: commandId, ColumnPos: pos}
	case *itree.RecordColumnMap:
		res := &itree.RecordColumnMap{Typ: c.Typ, ColumnName: c.ColumnName}
		for _, p := range c.Properties {
			res.Properties = append(res.Properties, t.Translate(p))
		}
		if c.NullSentinel != nil {
			res.NullSentinel = t.Translate(c.NullSentinel)
		}
		return res
	case *itree.SimpleCollectionColumnMap:
		return &itree.SimpleCollectionColumnMap{Typ: c.Typ, ColumnName: c.ColumnName, Element: t.Translate(c.Element)}
	}
	return cm
}
