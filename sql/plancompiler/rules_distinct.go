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

func distinctRules() []Rule {
	return []Rule{
		NewSimpleRule(distinctOpOfKeysId, itree.OpDistinct, processDistinctOpOfKeys),
	}
}

// Distinct(X, keys) => Project(X, keys) when keys include the keys of X
func processDistinctOpOfKeys(ctx *TransformationRulesContext, n *itree.Node) (bool, *itree.Node) {
	cmd := ctx.Command()
	op := n.Op.(*itree.DistinctOp)
	inputKeys := cmd.GetExtendedNodeInfo(n.Child0()).Keys
	if inputKeys.NoKeys || !op.Keys.Subsumes(inputKeys.KeyVars) {
		return false, n
	}
	return true, cmd.CreateProjectNode(n.Child0(), op.Keys.Clone())
}
