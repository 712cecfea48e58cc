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

// RuleFunc rewrites the node a rule matched. It returns whether anything
// changed and the node to put in place of n. When it returns false, the tree
// must be untouched and the returned node must be n.
type RuleFunc func(ctx *TransformationRulesContext, n *itree.Node) (bool, *itree.Node)

// RuleProcessingContext is the state shared by the rules of one run of the
// RuleProcessor.
type RuleProcessingContext interface {
	// Command returns the command owning the tree.
	Command() *itree.Command
	// PreProcess is called before rules are applied to n.
	PreProcess(n *itree.Node)
	// PreProcessSubTree is called before the children of n are processed.
	PreProcessSubTree(n *itree.Node)
	// PostProcess is called after rule fired and produced n.
	PostProcess(n *itree.Node, rule Rule)
	// PostProcessSubTree is called once the subtree rooted at n is done.
	PostProcessSubTree(n *itree.Node)
}

// Rule is a local rewrite of the tree.
type Rule interface {
	// Id returns the identifier of the rule.
	Id() RuleId
	// Name returns the name used in logs.
	Name() string
	// RuleOpType returns the type of operator the rule applies to.
	RuleOpType() itree.OpType
	// Match reports whether the rule may apply to n.
	Match(n *itree.Node) bool
	// Apply rewrites n. It must only be called when Match returned true.
	Apply(ctx RuleProcessingContext, n *itree.Node) (bool, *itree.Node)
}

func transformationContext(ctx RuleProcessingContext) *TransformationRulesContext {
	trc, ok := ctx.(*TransformationRulesContext)
	Assert(ok, "transformation rules need a TransformationRulesContext, got %T", ctx)
	return trc
}

// SimpleRule matches every node of a given operator type. Further checks are
// left to the rule function.
type SimpleRule struct {
	id     RuleId
	name   string
	opType itree.OpType
	fn     RuleFunc
}

var _ Rule = (*SimpleRule)(nil)

// NewSimpleRule returns a rule running fn on every node of type opType.
func NewSimpleRule(id RuleId, opType itree.OpType, fn RuleFunc) *SimpleRule {
	return &SimpleRule{id: id, opType: opType, fn: fn}
}

func (r *SimpleRule) Id() RuleId               { return r.id }
func (r *SimpleRule) RuleOpType() itree.OpType { return r.opType }

func (r *SimpleRule) Name() string {
	if r.name != "" {
		return r.name
	}
	return r.id.String()
}

func (r *SimpleRule) Match(n *itree.Node) bool {
	return n.OpType() == r.opType
}

func (r *SimpleRule) Apply(ctx RuleProcessingContext, n *itree.Node) (bool, *itree.Node) {
	return r.fn(transformationContext(ctx), n)
}

// PatternMatchRule matches nodes against a pattern tree. A pattern node
// matches a node with the same operator type and the same number of
// children, each matching the corresponding pattern child. The Leaf pattern
// matches any node.
type PatternMatchRule struct {
	id      RuleId
	pattern *itree.Node
	fn      RuleFunc
}

var _ Rule = (*PatternMatchRule)(nil)

// NewPatternMatchRule returns a rule running fn on nodes matching pattern.
func NewPatternMatchRule(id RuleId, pattern *itree.Node, fn RuleFunc) *PatternMatchRule {
	Assert(pattern.OpType() != itree.OpLeaf, "rule %s: the root of a pattern cannot be a leaf", id)
	return &PatternMatchRule{id: id, pattern: pattern, fn: fn}
}

func (r *PatternMatchRule) Id() RuleId               { return r.id }
func (r *PatternMatchRule) Name() string             { return r.id.String() }
func (r *PatternMatchRule) RuleOpType() itree.OpType { return r.pattern.OpType() }

func (r *PatternMatchRule) Match(n *itree.Node) bool {
	return matchPattern(r.pattern, n)
}

func (r *PatternMatchRule) Apply(ctx RuleProcessingContext, n *itree.Node) (bool, *itree.Node) {
	return r.fn(transformationContext(ctx), n)
}

func matchPattern(pattern, n *itree.Node) bool {
	if pattern.OpType() == itree.OpLeaf {
		return true
	}
	if pattern.OpType() != n.OpType() || len(pattern.Children) != len(n.Children) {
		return false
	}
	for i, child := range pattern.Children {
		if !matchPattern(child, n.Children[i]) {
			return false
		}
	}
	return true
}

// pattern helpers

func pattern(op itree.Op, children ...*itree.Node) *itree.Node {
	return itree.NewPatternNode(op, children...)
}

func leaf() *itree.Node {
	return itree.NewPatternNode(itree.Leaf)
}
