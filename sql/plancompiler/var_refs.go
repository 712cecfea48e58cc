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
	"github.com/dolthub/go-plancompiler/sql/transform"
)

// collectVarRefs adds to refs every var read by the tree rooted at n,
// leaving out the subtree rooted at skip. Besides VarRefs, the vars named
// by the operators themselves (outputs, keys, set op inputs) are read.
func collectVarRefs(n, skip *itree.Node, refs *itree.VarVec) {
	transform.Inspect(n, func(n *itree.Node) bool {
		if n == skip {
			return false
		}
		switch op := n.Op.(type) {
		case *itree.VarRefOp:
			refs.Set(op.Var)
		case *itree.ProjectOp:
			refs.Or(op.Outputs)
		case *itree.GroupByOp:
			refs.Or(op.Keys)
		case *itree.GroupByIntoOp:
			refs.Or(op.Keys).Or(op.Inputs)
		case *itree.SortOp:
			addSortKeyVars(op.Keys, refs)
		case *itree.ConstrainedSortOp:
			addSortKeyVars(op.Keys, refs)
		case *itree.DistinctOp:
			refs.Or(op.Keys)
		case *itree.SetOp:
			for _, m := range op.VarMap {
				for _, out := range m.Keys() {
					in, _ := m.Get(out)
					refs.Set(in)
				}
			}
		case *itree.UnnestOp:
			refs.Set(op.Var)
		case *itree.PhysicalProjectOp:
			for _, v := range op.Outputs {
				refs.Set(v)
			}
		}
		return true
	})
}

func addSortKeyVars(keys []*itree.SortKey, refs *itree.VarVec) {
	for _, k := range keys {
		refs.Set(k.Var)
	}
}
