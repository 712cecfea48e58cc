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

func groupByRules() []Rule {
	return []Rule{
		NewSimpleRule(groupByOpWithSimpleVarRedefinitionsId, itree.OpGroupBy, processGroupByOpWithSimpleVarRedefinitions),
		NewPatternMatchRule(groupByOverProjectId,
			pattern(itree.NewGroupByOp(nil, nil),
				pattern(itree.NewProjectOp(nil), leaf(), leaf()),
				leaf(),
				leaf()),
			processGroupByOverProject),
		NewPatternMatchRule(groupByOpWithNoAggregatesId,
			pattern(itree.NewGroupByOp(nil, nil), leaf(), leaf(), pattern(itree.NewVarDefListOp())),
			processGroupByOpWithNoAggregates),
	}
}

// GroupBy(X, VarDefList(VarDef(k, VarRef(x)), ...), aggs) with x defined by X
// => GroupBy(X, VarDefList(...), aggs), grouping on x in place of k.
func processGroupByOpWithSimpleVarRedefinitions(ctx *TransformationRulesContext, n *itree.Node) (bool, *itree.Node) {
	cmd := ctx.Command()
	op := n.Op.(*itree.GroupByOp)
	inputDefs := cmd.GetExtendedNodeInfo(n.Child0()).Definitions

	found := false
	for _, varDef := range n.Child1().Children {
		if isSimpleVarRedefinition(varDef, inputDefs) {
			found = true
			break
		}
	}
	if !found {
		return false, n
	}

	kept := n.Child1().Children[:0]
	for _, varDef := range n.Child1().Children {
		if !isSimpleVarRedefinition(varDef, inputDefs) {
			kept = append(kept, varDef)
			continue
		}
		key := varDef.Op.(*itree.VarDefOp).Var
		ref := varDef.Child0().Op.(*itree.VarRefOp).Var
		op.Keys.Clear(key).Set(ref)
		op.Outputs.Clear(key).Set(ref)
		ctx.AddVarMapping(key, ref)
	}
	n.Child1().Children = kept
	cmd.RecomputeNodeInfo(n.Child1())
	return true, n
}

// GroupBy(Project(X, defs), VarDefList(), aggs) => GroupBy(X, VarDefList(), aggs')
//
// aggs' reads the definitions of defs in place of their vars. Only when the
// keys are not defined by the project and no definition but a constant is
// read more than once.
func processGroupByOverProject(ctx *TransformationRulesContext, n *itree.Node) (bool, *itree.Node) {
	cmd := ctx.Command()
	op := n.Op.(*itree.GroupByOp)
	project := n.Child0()
	if len(n.Child1().Children) > 0 {
		return false, n
	}

	projectDefs := cmd.GetExtendedNodeInfo(project).LocalDefinitions
	if op.Outputs.Overlaps(projectDefs) {
		return false, n
	}

	varRefs := make(map[*itree.Var]int)
	for _, varDef := range n.Child2().Children {
		if !ctx.IsScalarOpTree(varDef.Child0(), varRefs) {
			return false, n
		}
	}
	varMap, ok := ctx.GetVarMap(project.Child1(), varRefs)
	if !ok {
		return false, n
	}
	for v, def := range varMap {
		if varRefs[v] > 1 && !def.OpType().IsConstant() {
			return false, n
		}
	}

	for _, varDef := range n.Child2().Children {
		varDef.Children[0] = ctx.ReMap(varDef.Child0(), varMap)
		cmd.RecomputeNodeInfo(varDef)
	}
	n.Children[0] = project.Child0()
	return true, n
}

// GroupBy(X, keys, VarDefList()) => Project(X, keys) when X is already
// unique on the keys, Distinct(Project(X, keys)) otherwise.
func processGroupByOpWithNoAggregates(ctx *TransformationRulesContext, n *itree.Node) (bool, *itree.Node) {
	cmd := ctx.Command()
	op := n.Op.(*itree.GroupByOp)
	if op.Keys.IsEmpty() {
		return false, n
	}

	inputKeys := cmd.GetExtendedNodeInfo(n.Child0()).Keys
	project := cmd.CreateNode(itree.NewProjectOp(op.Keys.Clone()), n.Child0(), n.Child1())
	if !inputKeys.NoKeys && op.Keys.Subsumes(inputKeys.KeyVars) {
		return true, project
	}
	return true, cmd.CreateNode(itree.NewDistinctOp(op.Keys.Clone()), project)
}
