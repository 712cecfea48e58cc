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
	"gopkg.in/src-d/go-vitess.v0/vt/proto/query"

	"github.com/dolthub/go-plancompiler/sql/itree"
)

func projectRules() []Rule {
	return []Rule{
		NewPatternMatchRule(projectOverProjectId,
			pattern(itree.NewProjectOp(nil),
				pattern(itree.NewProjectOp(nil), leaf(), leaf()),
				leaf()),
			processProjectOverProject),
		NewPatternMatchRule(projectWithNoLocalDefinitionsId,
			pattern(itree.NewProjectOp(nil), leaf(), pattern(itree.NewVarDefListOp())),
			processProjectWithNoLocalDefinitions),
		NewSimpleRule(projectWithSimpleVarRedefinitionsId, itree.OpProject, processProjectWithSimpleVarRedefinitions),
		NewSimpleRule(projectOpWithNullSentinelId, itree.OpProject, processProjectOpWithNullSentinel),
	}
}

// Project(Project(X, defs1), defs2) => Project(X, defs1' + defs2')
//
// The definitions of the inner project are inlined in the outer ones. Inner
// definitions that are outputs of the outer project are kept.
func processProjectOverProject(ctx *TransformationRulesContext, n *itree.Node) (bool, *itree.Node) {
	cmd := ctx.Command()
	op := n.Op.(*itree.ProjectOp)
	child := n.Child0()
	varDefList := n.Child1()
	childVarDefList := child.Child1()

	varRefs := make(map[*itree.Var]int)
	for _, varDef := range varDefList.Children {
		if !ctx.IsScalarOpTree(varDef.Child0(), varRefs) {
			return false, n
		}
	}
	varMap, ok := ctx.GetVarMap(childVarDefList, varRefs)
	if !ok {
		return false, n
	}

	newVarDefList := cmd.CreateNode(itree.NewVarDefListOp())
	for _, varDef := range varDefList.Children {
		varDef.Children[0] = ctx.ReMap(varDef.Child0(), varMap)
		cmd.RecomputeNodeInfo(varDef)
		newVarDefList.Children = append(newVarDefList.Children, varDef)
	}
	for _, varDef := range childVarDefList.Children {
		if op.Outputs.IsSet(varDef.Op.(*itree.VarDefOp).Var) {
			newVarDefList.Children = append(newVarDefList.Children, varDef)
		}
	}

	return true, cmd.CreateNode(op, child.Child0(), newVarDefList)
}

// Project(X, VarDefList()) => X when the project outputs everything X
// defines.
func processProjectWithNoLocalDefinitions(ctx *TransformationRulesContext, n *itree.Node) (bool, *itree.Node) {
	cmd := ctx.Command()
	info := cmd.GetExtendedNodeInfo(n)
	childInfo := cmd.GetExtendedNodeInfo(n.Child0())
	if !info.Definitions.Subsumes(childInfo.Definitions) {
		return false, n
	}
	return true, n.Child0()
}

// Project(X, VarDefList(VarDef(v2, VarRef(v1)), ...)) with v1 defined by X
// => Project(X, VarDefList(...)), outputting v1 in place of v2.
func processProjectWithSimpleVarRedefinitions(ctx *TransformationRulesContext, n *itree.Node) (bool, *itree.Node) {
	cmd := ctx.Command()
	op := n.Op.(*itree.ProjectOp)
	childInfo := cmd.GetExtendedNodeInfo(n.Child0())

	found := false
	for _, varDef := range n.Child1().Children {
		if isSimpleVarRedefinition(varDef, childInfo.Definitions) {
			found = true
			break
		}
	}
	if !found {
		return false, n
	}

	kept := n.Child1().Children[:0]
	for _, varDef := range n.Child1().Children {
		if !isSimpleVarRedefinition(varDef, childInfo.Definitions) {
			kept = append(kept, varDef)
			continue
		}
		defined := varDef.Op.(*itree.VarDefOp).Var
		ref := varDef.Child0().Op.(*itree.VarRefOp).Var
		if op.Outputs.IsSet(defined) {
			op.Outputs.Clear(defined)
			op.Outputs.Set(ref)
		}
		ctx.AddVarMapping(defined, ref)
	}
	n.Child1().Children = kept
	cmd.RecomputeNodeInfo(n.Child1())
	return true, n
}

func isSimpleVarRedefinition(varDef *itree.Node, defs *itree.VarVec) bool {
	ref, ok := varDef.Child0().Op.(*itree.VarRefOp)
	return ok && defs.IsSet(ref.Var)
}

// Project(X, VarDefList(VarDef(s1, NullSentinel), VarDef(s2, NullSentinel), ...))
// => Project(X, VarDefList(VarDef(r, ...), ...)) with every si mapped to r.
//
// When the value of the sentinels may change, r is a non null 32-bit integer
// var of X or an integer constant defined by the same project. Otherwise r
// is the first sentinel.
func processProjectOpWithNullSentinel(ctx *TransformationRulesContext, n *itree.Node) (bool, *itree.Node) {
	cmd := ctx.Command()
	op := n.Op.(*itree.ProjectOp)

	var sentinels []*itree.Var
	for _, varDef := range n.Child1().Children {
		if varDef.Child0().OpType() == itree.OpNullSentinel {
			sentinels = append(sentinels, varDef.Op.(*itree.VarDefOp).Var)
		}
	}
	if len(sentinels) == 0 {
		return false, n
	}

	var replacement *itree.Var
	if ctx.CanChangeNullSentinelValue() {
		childInfo := cmd.GetExtendedNodeInfo(n.Child0())
		if v, ok := ctx.TryGetInt32Var(childInfo.NonNullableDefinitions); ok {
			replacement = v
		} else {
			replacement = findInt32ConstantDefinition(n.Child1())
		}
	}
	if replacement == nil {
		if len(sentinels) == 1 {
			return false, n
		}
		replacement = sentinels[0]
	}

	removed := idVarSet(sentinels)
	delete(removed, replacement)
	kept := n.Child1().Children[:0]
	for _, varDef := range n.Child1().Children {
		v := varDef.Op.(*itree.VarDefOp).Var
		if !removed[v] {
			kept = append(kept, varDef)
			continue
		}
		if op.Outputs.IsSet(v) {
			op.Outputs.Clear(v)
			op.Outputs.Set(replacement)
		}
		ctx.AddVarMapping(v, replacement)
	}
	n.Child1().Children = kept
	cmd.RecomputeNodeInfo(n.Child1())
	return true, n
}

func findInt32ConstantDefinition(varDefList *itree.Node) *itree.Var {
	for _, varDef := range varDefList.Children {
		def := varDef.Child0()
		if def.OpType() != itree.OpConstant && def.OpType() != itree.OpInternalConstant {
			continue
		}
		if !isNonNullConstant(def) {
			continue
		}
		if t := def.Op.Type(); t.IsPrimitive() && t.Primitive == query.Type_INT32 {
			return varDef.Op.(*itree.VarDefOp).Var
		}
	}
	return nil
}

func idVarSet(vars []*itree.Var) map[*itree.Var]bool {
	res := make(map[*itree.Var]bool, len(vars))
	for _, v := range vars {
		res[v] = true
	}
	return res
}
