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
	"github.com/emirpasic/gods/stacks/arraystack"
	"gopkg.in/src-d/go-vitess.v0/vt/proto/query"

	"github.com/dolthub/go-plancompiler/sql/itree"
)

// Definitions bigger than this many operators are not inlined in more than
// maxInlinedReferences places.
const (
	maxInlinedDefinitionSize = 100
	maxInlinedReferences     = 2
)

// TransformationRulesContext is the state shared by the transformation
// rules during one run of the RuleProcessor.
type TransformationRulesContext struct {
	pc  *PlanCompiler
	cmd *itree.Command

	remapper     *VarRemapper
	remappedVars *itree.VarVec

	// relational ancestors of the node being processed, nearest on top
	relOpAncestors *arraystack.Stack

	projectionPruningRequired bool
	reapplyNullabilityRules   bool
}

var _ RuleProcessingContext = (*TransformationRulesContext)(nil)

// NewTransformationRulesContext returns a context for the tree of pc.
func NewTransformationRulesContext(pc *PlanCompiler) *TransformationRulesContext {
	return &TransformationRulesContext{
		pc:             pc,
		cmd:            pc.Command,
		remapper:       NewVarRemapper(pc.Command),
		remappedVars:   pc.Command.CreateVarVec(),
		relOpAncestors: arraystack.New(),
	}
}

// Command implements RuleProcessingContext.
func (c *TransformationRulesContext) Command() *itree.Command { return c.cmd }

// PlanCompiler returns the compilation the context belongs to.
func (c *TransformationRulesContext) PlanCompiler() *PlanCompiler { return c.pc }

// ProjectionPruningRequired reports whether a rule that fired left
// unreferenced definitions behind.
func (c *TransformationRulesContext) ProjectionPruningRequired() bool {
	return c.projectionPruningRequired
}

// ReapplyNullabilityRules reports whether a rule that fired may have made
// more vars non-nullable.
func (c *TransformationRulesContext) ReapplyNullabilityRules() bool {
	return c.reapplyNullabilityRules
}

// AddVarMapping replaces every later reference to oldVar by newVar. The
// replacement happens lazily, when the nodes holding the references are
// processed, and once more over the whole tree at the end of the run.
func (c *TransformationRulesContext) AddVarMapping(oldVar, newVar *itree.Var) {
	c.remapper.AddMapping(oldVar, newVar)
	c.remappedVars.Set(oldVar)
}

// RemapSubtree applies the mappings added so far to the subtree.
func (c *TransformationRulesContext) RemapSubtree(n *itree.Node) {
	c.remapper.RemapSubtree(n)
}

// Copy returns a deep copy of n with fresh vars for its definitions.
func (c *TransformationRulesContext) Copy(n *itree.Node) *itree.Node {
	return c.cmd.Copy(n)
}

// Finish applies the pending var mappings to the whole tree.
func (c *TransformationRulesContext) Finish() {
	if c.remapper.IsEmpty() {
		return
	}
	c.remapper.RemapSubtree(c.cmd.Root)
}

// PreProcess implements RuleProcessingContext. The pending mappings are
// applied to the vars of n and of its scalar and ancillary children, so
// rules always see up to date references.
func (c *TransformationRulesContext) PreProcess(n *itree.Node) {
	if c.remapper.IsEmpty() {
		return
	}
	changed := c.remapper.RemapNode(n)
	for _, child := range n.Children {
		if child.OpType().IsRelational() {
			continue
		}
		if c.cmd.GetNodeInfo(child).ExternalReferences.Overlaps(c.remappedVars) {
			c.remapper.RemapSubtree(child)
			changed = true
		}
	}
	if changed {
		c.cmd.RecomputeNodeInfo(n)
	}
}

// PreProcessSubTree implements RuleProcessingContext.
func (c *TransformationRulesContext) PreProcessSubTree(n *itree.Node) {
	if n.OpType().IsRelational() {
		c.relOpAncestors.Push(n)
	}
}

// PostProcess implements RuleProcessingContext.
func (c *TransformationRulesContext) PostProcess(n *itree.Node, rule Rule) {
	if rule == nil {
		return
	}
	rules := getTransformationRules()
	if rules.RequiresProjectionPruning(rule.Id()) {
		c.projectionPruningRequired = true
	}
	if rules.RequiresNullabilityRules(rule.Id()) {
		c.reapplyNullabilityRules = true
	}
	c.cmd.RecomputeSubtreeNodeInfo(n)
	c.pc.Log("rule %s fired, new node %s", rule.Name(), n.OpType())
}

// PostProcessSubTree implements RuleProcessingContext.
func (c *TransformationRulesContext) PostProcessSubTree(n *itree.Node) {
	if n.OpType().IsRelational() {
		_, ok := c.relOpAncestors.Pop()
		Assert(ok, "unbalanced relational ancestor stack at %s", n.OpType())
	}
}

// ancestors returns the relational ancestors of the node being processed,
// nearest first. The node itself is included when it is relational.
func (c *TransformationRulesContext) ancestors() []*itree.Node {
	values := c.relOpAncestors.Values()
	res := make([]*itree.Node, len(values))
	for i, v := range values {
		res[i] = v.(*itree.Node)
	}
	return res
}

// IsNonNullable reports whether v is known never to be null where the node
// being processed reads it.
func (c *TransformationRulesContext) IsNonNullable(v *itree.Var) bool {
	if v.VarType == itree.ParameterVarType {
		return !v.Type.Nullable
	}
	for _, a := range c.ancestors() {
		c.cmd.RecomputeNodeInfo(a)
		info := c.cmd.GetExtendedNodeInfo(a)
		if info.NonNullableVisibleDefinitions.IsSet(v) {
			return true
		}
		if info.LocalDefinitions.IsSet(v) {
			return false
		}
	}
	return false
}

// CanChangeNullSentinelValue reports whether the value of a null sentinel
// defined under the node being processed may be replaced by any other non
// null value.
func (c *TransformationRulesContext) CanChangeNullSentinelValue() bool {
	if c.pc.hasSortingOnNullSentinels {
		return false
	}
	for _, a := range c.ancestors() {
		switch a.OpType() {
		case itree.OpDistinct, itree.OpGroupBy, itree.OpGroupByInto, itree.OpIntersect, itree.OpExcept:
			return false
		}
	}
	return true
}

// TryGetInt32Var returns a var of vars holding a 32-bit integer.
func (c *TransformationRulesContext) TryGetInt32Var(vars *itree.VarVec) (*itree.Var, bool) {
	for _, v := range vars.Vars() {
		if v.Type.IsPrimitive() && v.Type.Primitive == query.Type_INT32 {
			return v, true
		}
	}
	return nil, false
}

// BuildNullIfExpression returns an expression that is null when cond is
// null and expr otherwise.
func (c *TransformationRulesContext) BuildNullIfExpression(cond *itree.Var, expr *itree.Node) *itree.Node {
	typ := expr.Op.Type()
	return c.cmd.CreateNode(itree.NewCaseOp(typ.AsNullable()),
		c.cmd.BuildIsNull(c.cmd.CreateVarRefNode(cond)),
		c.cmd.CreateNode(itree.NewNullOp(typ)),
		expr,
	)
}

// IsScalarOpTree reports whether the subtree is made of scalar operators
// only. When varRefs is not nil it counts the references to each var.
func (c *TransformationRulesContext) IsScalarOpTree(n *itree.Node, varRefs map[*itree.Var]int) bool {
	_, ok := scalarOpTreeSize(n, varRefs)
	return ok
}

func scalarOpTreeSize(n *itree.Node, varRefs map[*itree.Var]int) (int, bool) {
	if !n.OpType().IsScalar() {
		return 0, false
	}
	if ref, ok := n.Op.(*itree.VarRefOp); ok && varRefs != nil {
		varRefs[ref.Var]++
	}
	if len(n.Children) == 0 {
		return 0, true
	}
	size := 1
	for _, child := range n.Children {
		s, ok := scalarOpTreeSize(child, varRefs)
		if !ok {
			return 0, false
		}
		size += s
	}
	return size, true
}

// GetVarMap maps each var defined in varDefList to its defining expression.
// It fails when a definition is not a scalar tree, or when a big
// definition would be inlined in too many places according to varRefs.
func (c *TransformationRulesContext) GetVarMap(varDefList *itree.Node, varRefs map[*itree.Var]int) (map[*itree.Var]*itree.Node, bool) {
	res := make(map[*itree.Var]*itree.Node, len(varDefList.Children))
	for _, varDef := range varDefList.Children {
		v := varDef.Op.(*itree.VarDefOp).Var
		size, ok := scalarOpTreeSize(varDef.Child0(), nil)
		if !ok {
			return nil, false
		}
		if size > maxInlinedDefinitionSize && varRefs != nil && varRefs[v] > maxInlinedReferences {
			return nil, false
		}
		res[v] = varDef.Child0()
	}
	return res, true
}

// ReMap replaces the references of n to the vars of varMap by copies of
// their definitions. It returns the new root of the subtree.
func (c *TransformationRulesContext) ReMap(n *itree.Node, varMap map[*itree.Var]*itree.Node) *itree.Node {
	res, _ := c.reMap(n, varMap)
	return res
}

func (c *TransformationRulesContext) reMap(n *itree.Node, varMap map[*itree.Var]*itree.Node) (*itree.Node, bool) {
	if ref, ok := n.Op.(*itree.VarRefOp); ok {
		if def, ok := varMap[ref.Var]; ok {
			return c.Copy(def), true
		}
		return n, false
	}
	changed := false
	for i, child := range n.Children {
		if nc, childChanged := c.reMap(child, varMap); childChanged {
			n.Children[i] = nc
			changed = true
		}
	}
	if changed {
		c.cmd.RecomputeNodeInfo(n)
	}
	return n, changed
}
