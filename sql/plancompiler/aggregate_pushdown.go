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

// AggregatePushdown moves collection aggregates computed over the group of
// a GroupByInto into the GroupByInto itself, as regular aggregates over
// the input rows. A GroupByInto whose group aggregate vars are no longer
// read afterwards becomes a GroupBy.
type AggregatePushdown struct {
	pc      *PlanCompiler
	cmd     *itree.Command
	parents parentMap
}

func NewAggregatePushdown(pc *PlanCompiler) *AggregatePushdown {
	return &AggregatePushdown{pc: pc, cmd: pc.Command}
}

// Process pushes down every candidate aggregate it can and reports whether
// the tree changed.
func (ap *AggregatePushdown) Process() bool {
	infos, parents := computeGroupAggregateRefs(ap.cmd)
	ap.parents = parents

	changed := false
	for _, info := range infos {
		if !info.HasCandidateAggregateNodes() {
			continue
		}
		for _, c := range info.candidates {
			if ap.tryProcessCandidate(c, info) {
				changed = true
			}
		}
	}
	if !changed {
		return false
	}

	for _, info := range infos {
		ap.tryConvertToGroupBy(info.DefiningGroupNode)
	}
	ap.cmd.RecomputeSubtreeNodeInfo(ap.cmd.Root)
	return true
}

func (ap *AggregatePushdown) tryProcessCandidate(c aggregateCandidate, info *GroupAggregateVarInfo) bool {
	groupNode := info.DefiningGroupNode
	_, groupAncestors := ap.pathsToLeastCommonAncestor(c.Function, groupNode)
	if !supportsPropagation(groupAncestors) {
		return false
	}

	groupOp := groupNode.Op.(*itree.GroupByIntoOp)
	Assert(groupOp.Inputs.Count() == 1, "expected one input var to GroupByInto, got %d", groupOp.Inputs.Count())
	inputVar := groupOp.Inputs.First()
	function := c.Function.Op.(*itree.FunctionOp)

	arg := ap.cmd.Copy(c.Template)
	remapper := NewVarRemapper(ap.cmd)
	remapper.AddMapping(info.GroupAggregateVar, inputVar)
	remapper.RemapSubtree(arg)

	aggregate := ap.cmd.CreateNode(itree.NewAggregateOp(function.Name, function.Type(), false), arg)
	varDef, v := ap.cmd.CreateVarDefNode(aggregate)
	groupNode.Child2().Children = append(groupNode.Child2().Children, varDef)
	groupOp.Outputs.Set(v)

	for _, ancestor := range groupAncestors {
		if project, ok := ancestor.Op.(*itree.ProjectOp); ok {
			project.Outputs.Set(v)
		}
	}

	ap.pc.Log("pushed %s into group by node %d as var %s", function.Name, groupNode.Id, v)
	c.Function.Op = itree.NewVarRefOp(v)
	c.Function.Children = nil
	return true
}

func supportsPropagation(nodes []*itree.Node) bool {
	for _, n := range nodes {
		switch n.OpType() {
		case itree.OpProject, itree.OpFilter, itree.OpConstrainedSort:
		default:
			return false
		}
	}
	return true
}

// pathsToLeastCommonAncestor returns the ancestors of a and of b up to, and
// excluding, their least common ancestor.
func (ap *AggregatePushdown) pathsToLeastCommonAncestor(a, b *itree.Node) ([]*itree.Node, []*itree.Node) {
	ancestorsA := ap.ancestors(a)
	ancestorsB := ap.ancestors(b)
	i, j := len(ancestorsA)-1, len(ancestorsB)-1
	for i >= 0 && j >= 0 && ancestorsA[i] == ancestorsB[j] {
		i--
		j--
	}
	return ancestorsA[:i+1], ancestorsB[:j+1]
}

func (ap *AggregatePushdown) ancestors(n *itree.Node) []*itree.Node {
	var res []*itree.Node
	for p, ok := ap.parents.TryGetParent(n); ok; p, ok = ap.parents.TryGetParent(p) {
		res = append(res, p)
	}
	return res
}

// tryConvertToGroupBy turns a GroupByInto whose group aggregate vars are
// not read anywhere into a GroupBy.
func (ap *AggregatePushdown) tryConvertToGroupBy(n *itree.Node) {
	op, ok := n.Op.(*itree.GroupByIntoOp)
	if !ok {
		return
	}
	refs := ap.cmd.CreateVarVec()
	collectVarRefs(ap.cmd.Root, n.Child3(), refs)
	groupVars := ap.cmd.CreateVarVec()
	for _, varDef := range n.Child3().Children {
		groupVars.Set(varDef.Op.(*itree.VarDefOp).Var)
	}
	if refs.Overlaps(groupVars) {
		return
	}
	outputs := op.Outputs.Clone().Minus(groupVars)
	n.Op = itree.NewGroupByOp(op.Keys, outputs)
	n.Children = n.Children[:3]
	ap.pc.Log("group by into node %d no longer needs its groups", n.Id)
}

// parentMap holds the parent of every non leaf node, indexed by node id.
type parentMap []*itree.Node

func (m parentMap) TryGetParent(n *itree.Node) (*itree.Node, bool) {
	if n.Id >= len(m) || m[n.Id] == nil {
		return nil, false
	}
	return m[n.Id], true
}

// groupAggregateRefCollector finds the group aggregate vars of the tree,
// the vars computed from them and the aggregate functions that could be
// pushed down.
type groupAggregateRefCollector struct {
	cmd     *itree.Command
	manager *GroupAggregateVarInfoManager
	parents parentMap
}

func computeGroupAggregateRefs(cmd *itree.Command) ([]*GroupAggregateVarInfo, parentMap) {
	c := &groupAggregateRefCollector{
		cmd:     cmd,
		manager: NewGroupAggregateVarInfoManager(),
		parents: make(parentMap, cmd.NodeCount()),
	}
	c.visit(cmd.Root)
	return c.manager.GroupAggregateVarInfos(), c.parents
}

func (c *groupAggregateRefCollector) visit(n *itree.Node) {
	for _, child := range n.Children {
		if len(child.Children) > 0 && child.Id < len(c.parents) {
			c.parents[child.Id] = n
		}
		c.visit(child)
	}

	switch op := n.Op.(type) {
	case *itree.VarDefOp:
		c.visitVarDef(op, n)
	case *itree.UnnestOp:
		if ref, ok := c.manager.TryGetReferencedGroupAggregateVarInfo(op.Var); ok {
			Assert(len(op.Table.Columns) == 1, "expected one column in unnest table, got %d", len(op.Table.Columns))
			c.manager.Add(op.Table.Columns[0], ref.Info, ref.Computation, true)
		}
	case *itree.FunctionOp:
		c.visitFunction(op, n)
	case *itree.GroupByIntoOp:
		for _, varDef := range n.Child3().Children {
			v := varDef.Op.(*itree.VarDefOp).Var
			// a group by over a group may already be tracked
			if _, ok := c.manager.TryGetReferencedGroupAggregateVarInfo(v); ok {
				continue
			}
			c.manager.Add(v, newGroupAggregateVarInfo(n, v), c.cmd.CreateVarRefNode(v), false)
		}
	}
}

func (c *groupAggregateRefCollector) visitVarDef(op *itree.VarDefOp, n *itree.Node) {
	def := n.Child0()
	if info, template, isUnnested, ok := tryTranslateOverGroupAggregateVar(c.cmd, c.manager, def); ok {
		c.manager.Add(op.Var, info, template, isUnnested)
		return
	}
	record, ok := def.Op.(*itree.NewRecordOp)
	if !ok {
		return
	}
	for i, arg := range def.Children {
		if info, template, isUnnested, ok := tryTranslateOverGroupAggregateVar(c.cmd, c.manager, arg); ok {
			c.manager.AddProperty(op.Var, record.Properties[i], info, template, isUnnested)
		}
	}
}

func (c *groupAggregateRefCollector) visitFunction(op *itree.FunctionOp, n *itree.Node) {
	if !op.IsCollectionAggregate || len(n.Children) != 1 {
		return
	}
	info, template, isUnnested, ok := tryTranslateOverGroupAggregateVar(c.cmd, c.manager, n.Child0())
	if !ok {
		return
	}
	if isUnnested || isVarRefOver(template, info.GroupAggregateVar) {
		info.AddCandidate(n, template)
	}
}

func isVarRefOver(n *itree.Node, v *itree.Var) bool {
	ref, ok := n.Op.(*itree.VarRefOp)
	return ok && ref.Var == v
}

// groupAggregateVarTranslator rewrites a scalar subtree as a computation
// over a single group aggregate var.
type groupAggregateVarTranslator struct {
	cmd        *itree.Command
	manager    *GroupAggregateVarInfoManager
	target     *GroupAggregateVarInfo
	isUnnested bool
}

// tryTranslateOverGroupAggregateVar returns the computation of subtree
// over the group aggregate var it is derived from. It fails when the
// subtree reads more than one group aggregate var, reads any other var or
// contains an operator that cannot be computed per input row.
func tryTranslateOverGroupAggregateVar(cmd *itree.Command, manager *GroupAggregateVarInfoManager, subtree *itree.Node) (*GroupAggregateVarInfo, *itree.Node, bool, bool) {
	t := &groupAggregateVarTranslator{cmd: cmd, manager: manager}

	input := subtree
	var softCast *itree.CastOp
	if input.OpType() == itree.OpSoftCast {
		softCast = input.Op.(*itree.CastOp)
		input = input.Child0()
	}

	var template *itree.Node
	if input.OpType() == itree.OpCollect {
		template = t.visitCollect(input)
	} else {
		template = t.visit(input)
	}
	if t.target == nil || template == nil {
		return nil, nil, false, false
	}

	if softCast != nil {
		typ := softCast.Type()
		if t.isUnnested {
			typ = typ.ElementType()
		}
		template = cmd.CreateNode(itree.NewSoftCastOp(typ), template)
	}
	return t.target, template, t.isUnnested, true
}

func (t *groupAggregateVarTranslator) visit(n *itree.Node) *itree.Node {
	switch op := n.Op.(type) {
	case *itree.VarRefOp:
		return t.translateVar(op.Var, "", nil)
	case *itree.PropertyOp:
		if ref, ok := n.Child0().Op.(*itree.VarRefOp); ok {
			return t.translateVar(ref.Var, op.Property, op.Type())
		}
	case *itree.AggregateOp, *itree.CollectOp, *itree.ElementOp:
		return nil
	}
	if !n.OpType().IsScalar() {
		return nil
	}
	return t.visitChildren(n)
}

func (t *groupAggregateVarTranslator) visitChildren(n *itree.Node) *itree.Node {
	children := make([]*itree.Node, len(n.Children))
	changed := false
	for i, child := range n.Children {
		res := t.visit(child)
		if res == nil {
			return nil
		}
		changed = changed || res != child
		children[i] = res
	}
	if !changed {
		return n
	}
	return t.cmd.CreateNode(n.Op, children...)
}

// visitCollect handles Collect(PhysicalProject(X)) where X is a chain of
// Project and Filter nodes over an Unnest of a group aggregate var. The
// template is the value of the single output per element of the group;
// filters make it null for the elements they reject.
func (t *groupAggregateVarTranslator) visitCollect(n *itree.Node) *itree.Node {
	project, ok := n.Child0().Op.(*itree.PhysicalProjectOp)
	if !ok || len(project.Outputs) != 1 {
		return nil
	}

	constants := make(map[*itree.Var]*itree.Node)
	var preds []*itree.Node
	current := n.Child0().Child0()
chain:
	for {
		switch current.OpType() {
		case itree.OpProject:
			for _, varDef := range current.Child1().Children {
				if isNonNullConstant(varDef.Child0()) {
					constants[varDef.Op.(*itree.VarDefOp).Var] = varDef.Child0()
				}
			}
			current = current.Child0()
		case itree.OpFilter:
			preds = append(preds, current.Child1())
			current = current.Child0()
		default:
			break chain
		}
	}

	unnest, ok := current.Op.(*itree.UnnestOp)
	if !ok {
		return nil
	}
	ref, ok := t.manager.TryGetReferencedGroupAggregateVarInfo(unnest.Var)
	if !ok || ref.IsUnnested {
		return nil
	}

	output := project.Outputs[0]
	var template *itree.Node
	if _, ok := t.manager.TryGetReferencedGroupAggregateVarInfo(output); ok {
		template = t.translateVar(output, "", nil)
		if template == nil || !t.isUnnested {
			return nil
		}
	} else if c, ok := constants[output]; ok {
		if !t.setTarget(ref.Info, true) {
			return nil
		}
		template = t.cmd.Copy(c)
	} else {
		return nil
	}
	if t.target != ref.Info {
		return nil
	}

	if len(preds) == 0 {
		return template
	}
	translated := make([]*itree.Node, len(preds))
	for i, pred := range preds {
		if translated[i] = t.visit(pred); translated[i] == nil {
			return nil
		}
	}
	typ := template.Op.Type()
	return t.cmd.CreateNode(itree.NewCaseOp(typ.AsNullable()),
		t.cmd.BuildAnd(translated...),
		template,
		t.cmd.CreateNode(itree.NewNullOp(typ.AsNullable())))
}

func (t *groupAggregateVarTranslator) translateVar(v *itree.Var, property string, propertyType *itree.TypeUsage) *itree.Node {
	ref, ok := t.manager.TryGetReferencedGroupAggregateVarInfo(v)
	if !ok && property != "" {
		ref, ok = t.manager.TryGetReferencedGroupAggregateVarInfoForProperty(v, property)
		property = ""
	}
	if !ok {
		return nil
	}
	if !t.setTarget(ref.Info, ref.IsUnnested) {
		return nil
	}

	template := ref.Computation
	if property != "" {
		template = t.cmd.CreateNode(itree.NewPropertyOp(property, propertyType), template)
	}
	return template
}

func (t *groupAggregateVarTranslator) setTarget(info *GroupAggregateVarInfo, isUnnested bool) bool {
	if t.target == nil {
		t.target = info
		t.isUnnested = isUnnested
		return true
	}
	return t.target == info && t.isUnnested == isUnnested
}
