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

package itree

import (
	"fmt"
	"strings"

	"github.com/dolthub/go-plancompiler/sql"
)

// Dump renders the subtree rooted at n, one operator per line.
func Dump(n *Node) string {
	if n == nil {
		return "<nil>\n"
	}
	p := sql.NewTreePrinter()
	p.WriteNode("%s", describeOp(n.Op))
	if len(n.Children) > 0 {
		children := make([]string, len(n.Children))
		for i, child := range n.Children {
			children[i] = Dump(child)
		}
		p.WriteChildren(children...)
	}
	return p.String()
}

func describeOp(op Op) string {
	switch o := op.(type) {
	case *ConstantOp:
		if o.OpType() == OpNull {
			return "Null"
		}
		return fmt.Sprintf("%s(%v)", o.OpType(), o.Value)
	case *ConstantPredicateOp:
		return fmt.Sprintf("ConstantPredicate(%t)", o.Value)
	case *VarRefOp:
		return fmt.Sprintf("VarRef(%s)", o.Var)
	case *ComparisonOp:
		if o.UseDatabaseNullSemantics {
			return fmt.Sprintf("%s[db]", o.OpType())
		}
		return o.OpType().String()
	case *FunctionOp:
		return fmt.Sprintf("Function(%s)", o.Name)
	case *AggregateOp:
		if o.IsDistinct {
			return fmt.Sprintf("Aggregate(%s, distinct)", o.Name)
		}
		return fmt.Sprintf("Aggregate(%s)", o.Name)
	case *NewRecordOp:
		return fmt.Sprintf("NewRecord(%s)", strings.Join(o.Properties, ", "))
	case *PropertyOp:
		return fmt.Sprintf("Property(%s)", o.Property)
	case *CastOp:
		return fmt.Sprintf("%s(%s)", o.OpType(), o.Type())
	case *ScanTableOp:
		return fmt.Sprintf("ScanTable(%s%s)", o.Table.MD.Name, o.Table.ReferencedColumns)
	case *UnnestOp:
		return fmt.Sprintf("Unnest(%s -> %s)", o.Var, o.Table.Columns)
	case *ProjectOp:
		return fmt.Sprintf("Project%s", o.Outputs)
	case *SortOp:
		return fmt.Sprintf("Sort(%s)", describeSortKeys(o.Keys))
	case *ConstrainedSortOp:
		if o.WithTies {
			return fmt.Sprintf("ConstrainedSort(%s, with ties)", describeSortKeys(o.Keys))
		}
		return fmt.Sprintf("ConstrainedSort(%s)", describeSortKeys(o.Keys))
	case *GroupByOp:
		return fmt.Sprintf("GroupBy(keys=%s, outputs=%s)", o.Keys, o.Outputs)
	case *GroupByIntoOp:
		return fmt.Sprintf("GroupByInto(keys=%s, inputs=%s, outputs=%s)", o.Keys, o.Inputs, o.Outputs)
	case *SetOp:
		return fmt.Sprintf("%s%s %s %s", o.OpType(), o.Outputs, o.VarMap[0], o.VarMap[1])
	case *DistinctOp:
		return fmt.Sprintf("Distinct%s", o.Keys)
	case *VarDefOp:
		return fmt.Sprintf("VarDef(%s)", o.Var)
	case *PhysicalProjectOp:
		return fmt.Sprintf("PhysicalProject(%s)", o.Outputs)
	default:
		return op.OpType().String()
	}
}

func describeSortKeys(keys []*SortKey) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		dir := "desc"
		if k.Ascending {
			dir = "asc"
		}
		parts[i] = fmt.Sprintf("%s %s", k.Var, dir)
	}
	return strings.Join(parts, ", ")
}
