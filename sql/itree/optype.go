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

import "fmt"

// OpType is the tag of an operator. The set of tags is closed.
type OpType int

const (
	// Scalar operators.
	OpConstant OpType = iota
	OpInternalConstant
	OpNullSentinel
	OpNull
	OpConstantPredicate
	OpVarRef
	OpGT
	OpGE
	OpLE
	OpLT
	OpEQ
	OpNE
	OpLike
	OpPlus
	OpMinus
	OpMultiply
	OpDivide
	OpModulo
	OpUnaryMinus
	OpAnd
	OpOr
	OpNot
	OpIsNull
	OpCase
	OpFunction
	OpNewRecord
	OpProperty
	OpCast
	OpSoftCast
	OpAggregate
	OpCollect
	OpElement
	OpExists

	// Relational operators.
	OpScanTable
	OpUnnest
	OpProject
	OpFilter
	OpSort
	OpConstrainedSort
	OpGroupBy
	OpGroupByInto
	OpCrossJoin
	OpInnerJoin
	OpLeftOuterJoin
	OpFullOuterJoin
	OpCrossApply
	OpOuterApply
	OpUnionAll
	OpIntersect
	OpExcept
	OpDistinct
	OpSingleRow
	OpSingleRowTable

	// Ancillary operators.
	OpVarDef
	OpVarDefList

	// Physical operators.
	OpPhysicalProject

	// Pattern operators.
	OpLeaf

	// OpTypeMax is the number of operator types.
	OpTypeMax
)

var opTypeNames = [...]string{
	OpConstant:          "Constant",
	OpInternalConstant:  "InternalConstant",
	OpNullSentinel:      "NullSentinel",
	OpNull:              "Null",
	OpConstantPredicate: "ConstantPredicate",
	OpVarRef:            "VarRef",
	OpGT:                "GT",
	OpGE:                "GE",
	OpLE:                "LE",
	OpLT:                "LT",
	OpEQ:                "EQ",
	OpNE:                "NE",
	OpLike:              "Like",
	OpPlus:              "Plus",
	OpMinus:             "Minus",
	OpMultiply:          "Multiply",
	OpDivide:            "Divide",
	OpModulo:            "Modulo",
	OpUnaryMinus:        "UnaryMinus",
	OpAnd:               "And",
	OpOr:                "Or",
	OpNot:               "Not",
	OpIsNull:            "IsNull",
	OpCase:              "Case",
	OpFunction:          "Function",
	OpNewRecord:         "NewRecord",
	OpProperty:          "Property",
	OpCast:              "Cast",
	OpSoftCast:          "SoftCast",
	OpAggregate:         "Aggregate",
	OpCollect:           "Collect",
	OpElement:           "Element",
	OpExists:            "Exists",
	OpScanTable:         "ScanTable",
	OpUnnest:            "Unnest",
	OpProject:           "Project",
	OpFilter:            "Filter",
	OpSort:              "Sort",
	OpConstrainedSort:   "ConstrainedSort",
	OpGroupBy:           "GroupBy",
	OpGroupByInto:       "GroupByInto",
	OpCrossJoin:         "CrossJoin",
	OpInnerJoin:         "InnerJoin",
	OpLeftOuterJoin:     "LeftOuterJoin",
	OpFullOuterJoin:     "FullOuterJoin",
	OpCrossApply:        "CrossApply",
	OpOuterApply:        "OuterApply",
	OpUnionAll:          "UnionAll",
	OpIntersect:         "Intersect",
	OpExcept:            "Except",
	OpDistinct:          "Distinct",
	OpSingleRow:         "SingleRow",
	OpSingleRowTable:    "SingleRowTable",
	OpVarDef:            "VarDef",
	OpVarDefList:        "VarDefList",
	OpPhysicalProject:   "PhysicalProject",
	OpLeaf:              "Leaf",
}

func (t OpType) String() string {
	if t < 0 || int(t) >= len(opTypeNames) {
		return fmt.Sprintf("OpType(%d)", int(t))
	}
	return opTypeNames[t]
}

// IsScalar reports whether the tag is a scalar operator.
func (t OpType) IsScalar() bool { return t >= OpConstant && t <= OpExists }

// IsRelational reports whether the tag is a relational operator.
func (t OpType) IsRelational() bool { return t >= OpScanTable && t <= OpSingleRowTable }

// IsAncillary reports whether the tag is a VarDef or VarDefList.
func (t OpType) IsAncillary() bool { return t == OpVarDef || t == OpVarDefList }

// IsPhysical reports whether the tag is a physical operator.
func (t OpType) IsPhysical() bool { return t == OpPhysicalProject }

// IsComparison reports whether the tag is one of the comparison operators.
func (t OpType) IsComparison() bool { return t >= OpGT && t <= OpNE }

// IsConstant reports whether the tag is one of the constant operators.
func (t OpType) IsConstant() bool { return t >= OpConstant && t <= OpConstantPredicate }

// IsJoin reports whether the tag is a join operator.
func (t OpType) IsJoin() bool { return t >= OpCrossJoin && t <= OpFullOuterJoin }

// IsApply reports whether the tag is an apply operator.
func (t OpType) IsApply() bool { return t == OpCrossApply || t == OpOuterApply }

// IsSetOp reports whether the tag is a set operator.
func (t OpType) IsSetOp() bool { return t >= OpUnionAll && t <= OpExcept }

// IsSort reports whether the tag is a sort operator.
func (t OpType) IsSort() bool { return t == OpSort || t == OpConstrainedSort }
