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

// subTreeId identifies a subtree at a given position of the tree. A subtree
// whose content changed gets a new hash, and so a new id.
type subTreeId struct {
	nodeId     int
	hash       uint64
	parentId   int
	childIndex int
}

func newSubTreeId(cmd *itree.Command, n, parent *itree.Node, childIndex int) subTreeId {
	id := subTreeId{nodeId: n.Id, hash: cmd.GetNodeInfo(n).HashValue, parentId: -1, childIndex: childIndex}
	if parent != nil {
		id.parentId = parent.Id
	}
	return id
}

// RuleProcessor applies rule tables to a tree, bottom up, until no rule
// fires.
type RuleProcessor struct {
	maxIterations int
	processed     map[subTreeId]bool
	passes        int
	firings       int
}

// NewRuleProcessor returns a processor that gives up after maxIterations
// passes over the tree, or maxIterations rewrites of the same node.
func NewRuleProcessor(maxIterations int) *RuleProcessor {
	if maxIterations <= 0 {
		maxIterations = maxRuleIterations
	}
	return &RuleProcessor{maxIterations: maxIterations}
}

// Passes returns the number of passes over the tree so far.
func (p *RuleProcessor) Passes() int { return p.passes }

// Firings returns the number of rules that changed the tree so far.
func (p *RuleProcessor) Firings() int { return p.firings }

// ApplyRulesToSubtree applies the rules of tables to the subtree rooted at
// root until a whole pass leaves it unchanged. It returns the new root and
// whether any rule fired. When the fixpoint is not reached in time, the
// current tree is returned along with ErrMaxRuleIterations.
func (p *RuleProcessor) ApplyRulesToSubtree(ctx RuleProcessingContext, tables []*RuleTable, root *itree.Node) (*itree.Node, bool, error) {
	changed := false
	for pass := 0; ; pass++ {
		if pass >= p.maxIterations {
			return root, changed, ErrMaxRuleIterations.New(p.maxIterations)
		}

		p.passes++
		p.processed = make(map[subTreeId]bool)
		newRoot, passChanged, err := p.applyRulesToSubtree(ctx, tables, root, nil, 0)
		if err != nil {
			return newRoot, changed || passChanged, err
		}
		root = newRoot
		if !passChanged {
			return root, changed, nil
		}
		changed = true
	}
}

func (p *RuleProcessor) applyRulesToSubtree(
	ctx RuleProcessingContext,
	tables []*RuleTable,
	n, parent *itree.Node,
	childIndex int,
) (*itree.Node, bool, error) {
	cmd := ctx.Command()
	local := make(map[subTreeId]bool)
	changed := false

	for loops := 0; ; loops++ {
		if loops >= p.maxIterations {
			return n, changed, ErrMaxRuleIterations.New(p.maxIterations)
		}

		ctx.PreProcessSubTree(n)
		id := newSubTreeId(cmd, n, parent, childIndex)
		if p.processed[id] {
			break
		}
		// a rewrite cycle brought back a subtree already seen at this spot
		if local[id] {
			p.processed[id] = true
			break
		}
		local[id] = true

		for i, child := range n.Children {
			newChild, childChanged, err := p.applyRulesToSubtree(ctx, tables, child, n, i)
			n.Children[i] = newChild
			if childChanged {
				changed = true
			}
			if err != nil {
				ctx.PostProcessSubTree(n)
				return n, changed, err
			}
		}

		newNode, fired := p.applyRulesToNode(ctx, tables, n)
		if !fired {
			p.processed[id] = true
			break
		}
		changed = true
		ctx.PostProcessSubTree(n)
		n = newNode
	}

	ctx.PostProcessSubTree(n)
	return n, changed, nil
}

func (p *RuleProcessor) applyRulesToNode(ctx RuleProcessingContext, tables []*RuleTable, n *itree.Node) (*itree.Node, bool) {
	ctx.PreProcess(n)
	for _, table := range tables {
		for _, rule := range table.Rules(n.OpType()) {
			if !rule.Match(n) {
				continue
			}
			fired, newNode := rule.Apply(ctx, n)
			if fired {
				p.firings++
				ctx.PostProcess(newNode, rule)
				return newNode, true
			}
			Assert(newNode == n, "rule %s returned a new node without reporting a change", rule.Name())
		}
	}
	ctx.PostProcess(n, nil)
	return n, false
}
