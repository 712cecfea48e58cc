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

func setOpRules() []Rule {
	return []Rule{
		NewSimpleRule(unionAllOverEmptySetId, itree.OpUnionAll, processSetOpOverEmptySet),
		NewSimpleRule(intersectOverEmptySetId, itree.OpIntersect, processSetOpOverEmptySet),
		NewSimpleRule(exceptOverEmptySetId, itree.OpExcept, processSetOpOverEmptySet),
	}
}

// UnionAll(Empty, X) => X, UnionAll(X, Empty) => X
// Intersect(Empty, X) => Empty, Intersect(X, Empty) => Empty
// Except(Empty, X) => Empty, Except(X, Empty) => X
//
// The outputs of the set operation are mapped to the vars of the input that
// is kept.
func processSetOpOverEmptySet(ctx *TransformationRulesContext, n *itree.Node) (bool, *itree.Node) {
	cmd := ctx.Command()
	leftEmpty := cmd.GetExtendedNodeInfo(n.Child0()).MaxRows == itree.RowCountZero
	rightEmpty := cmd.GetExtendedNodeInfo(n.Child1()).MaxRows == itree.RowCountZero
	if !leftEmpty && !rightEmpty {
		return false, n
	}

	var keep int
	switch n.OpType() {
	case itree.OpUnionAll:
		if leftEmpty {
			keep = 1
		}
	case itree.OpIntersect:
		if !leftEmpty {
			keep = 1
		}
	case itree.OpExcept:
		keep = 0
	}

	varMap := n.Op.(*itree.SetOp).VarMap[keep]
	for _, out := range varMap.Keys() {
		in, _ := varMap.Get(out)
		ctx.AddVarMapping(out, in)
	}
	return true, n.Children[keep]
}
