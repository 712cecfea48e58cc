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

func sortRules() []Rule {
	return []Rule{
		NewSimpleRule(sortOverTrivialInputId, itree.OpSort, processSortOverTrivialInput),
		NewSimpleRule(sortWithNoKeysId, itree.OpSort, processSortWithNoKeys),
		NewSimpleRule(constrainedSortOverEmptyInputId, itree.OpConstrainedSort, processConstrainedSortOverEmptyInput),
	}
}

// Sort(X) => X when X has at most one row
func processSortOverTrivialInput(ctx *TransformationRulesContext, n *itree.Node) (bool, *itree.Node) {
	if ctx.Command().GetExtendedNodeInfo(n.Child0()).MaxRows > itree.RowCountOne {
		return false, n
	}
	return true, n.Child0()
}

// Sort() over X => X
func processSortWithNoKeys(ctx *TransformationRulesContext, n *itree.Node) (bool, *itree.Node) {
	if len(n.Op.(*itree.SortOp).Keys) > 0 {
		return false, n
	}
	return true, n.Child0()
}

// ConstrainedSort(X, skip, limit) => X when X has no rows
func processConstrainedSortOverEmptyInput(ctx *TransformationRulesContext, n *itree.Node) (bool, *itree.Node) {
	if ctx.Command().GetExtendedNodeInfo(n.Child0()).MaxRows != itree.RowCountZero {
		return false, n
	}
	return true, n.Child0()
}
