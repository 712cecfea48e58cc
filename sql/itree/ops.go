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
	"github.com/mitchellh/hashstructure"
	"github.com/spf13/cast"
)

// ArityVarying is the arity of operators taking any number of children.
const ArityVarying = -1

// Op is the operator of a node.
type Op interface {
	// OpType returns the tag of the operator.
	OpType() OpType
	// Arity returns the number of children the operator takes, or
	// ArityVarying.
	Arity() int
	// Type returns the result type of scalar operators, nil otherwise.
	Type() *TypeUsage
}

type baseOp struct {
	opType OpType
	arity  int
	typ    *TypeUsage
}

func (o baseOp) OpType() OpType   { return o.opType }
func (o baseOp) Arity() int       { return o.arity }
func (o baseOp) Type() *TypeUsage { return o.typ }

// ConstantOp is a literal. It is used for the Constant, InternalConstant,
// Null and NullSentinel tags.
type ConstantOp struct {
	baseOp
	Value interface{}
}

// NewConstantOp returns a user constant.
func NewConstantOp(t *TypeUsage, value interface{}) *ConstantOp {
	return &ConstantOp{baseOp: baseOp{OpConstant, 0, t}, Value: value}
}

// NewInternalConstantOp returns a constant introduced by the compiler.
func NewInternalConstantOp(t *TypeUsage, value interface{}) *ConstantOp {
	return &ConstantOp{baseOp: baseOp{OpInternalConstant, 0, t}, Value: value}
}

// NewNullOp returns a typed null literal.
func NewNullOp(t *TypeUsage) *ConstantOp {
	return &ConstantOp{baseOp: baseOp{OpNull, 0, t.AsNullable()}}
}

// NewNullSentinelOp returns the placeholder used to tell a null row apart
// from a row of nulls. Its value is always the integer 1.
func NewNullSentinelOp() *ConstantOp {
	return &ConstantOp{baseOp: baseOp{OpNullSentinel, 0, Int32}, Value: int32(1)}
}

// IsEquivalent reports whether both constants have the same tag and value.
func (o *ConstantOp) IsEquivalent(other *ConstantOp) bool {
	if o.opType != other.opType {
		return false
	}
	if o.Value == nil || other.Value == nil {
		return o.Value == nil && other.Value == nil
	}
	a, err := hashstructure.Hash(o.Value, nil)
	if err != nil {
		return false
	}
	b, err := hashstructure.Hash(other.Value, nil)
	if err != nil {
		return false
	}
	if a == b {
		return true
	}
	// 1 and int64(1) are the same literal
	ai, aerr := cast.ToInt64E(o.Value)
	bi, berr := cast.ToInt64E(other.Value)
	return aerr == nil && berr == nil && ai == bi && isNumeric(o.Value) && isNumeric(other.Value)
}

// Int64Value returns the value of an integer constant.
func (o *ConstantOp) Int64Value() (int64, bool) {
	if o.Value == nil || !isNumeric(o.Value) {
		return 0, false
	}
	i, err := cast.ToInt64E(o.Value)
	if err != nil {
		return 0, false
	}
	return i, true
}

func isNumeric(v interface{}) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	default:
		return false
	}
}

// ConstantPredicateOp is a literal true or false predicate.
type ConstantPredicateOp struct {
	baseOp
	Value bool
}

// NewConstantPredicateOp returns a literal predicate.
func NewConstantPredicateOp(value bool) *ConstantPredicateOp {
	return &ConstantPredicateOp{baseOp: baseOp{OpConstantPredicate, 0, Boolean}, Value: value}
}

// IsTrue reports whether the predicate is the literal true.
func (o *ConstantPredicateOp) IsTrue() bool { return o.Value }

// IsFalse reports whether the predicate is the literal false.
func (o *ConstantPredicateOp) IsFalse() bool { return !o.Value }

// VarRefOp reads a var.
type VarRefOp struct {
	baseOp
	Var *Var
}

// NewVarRefOp returns a reference to v.
func NewVarRefOp(v *Var) *VarRefOp {
	return &VarRefOp{baseOp: baseOp{OpVarRef, 0, v.Type}, Var: v}
}

// ComparisonOp is one of GT, GE, LE, LT, EQ and NE. When
// UseDatabaseNullSemantics is set the comparison already follows the
// store's null semantics and must not be expanded.
type ComparisonOp struct {
	baseOp
	UseDatabaseNullSemantics bool
}

// NewComparisonOp returns a comparison with the given tag.
func NewComparisonOp(t OpType) *ComparisonOp {
	return &ComparisonOp{baseOp: baseOp{t, 2, Boolean}}
}

// LikeOp matches a string against a pattern and an escape character.
type LikeOp struct {
	baseOp
}

// NewLikeOp returns a Like operator.
func NewLikeOp() *LikeOp {
	return &LikeOp{baseOp{OpLike, 3, Boolean}}
}

// ArithmeticOp is one of Plus, Minus, Multiply, Divide, Modulo and
// UnaryMinus.
type ArithmeticOp struct {
	baseOp
}

// NewArithmeticOp returns an arithmetic operator with the given tag.
func NewArithmeticOp(t OpType, typ *TypeUsage) *ArithmeticOp {
	arity := 2
	if t == OpUnaryMinus {
		arity = 1
	}
	return &ArithmeticOp{baseOp{t, arity, typ}}
}

// ConditionalOp is one of And, Or, Not and IsNull.
type ConditionalOp struct {
	baseOp
}

// NewConditionalOp returns a logical operator with the given tag.
func NewConditionalOp(t OpType) *ConditionalOp {
	arity := 2
	if t == OpNot || t == OpIsNull {
		arity = 1
	}
	return &ConditionalOp{baseOp{t, arity, Boolean}}
}

// CaseOp has children when1, then1, ..., whenN, thenN, else.
type CaseOp struct {
	baseOp
}

// NewCaseOp returns a Case operator of the given type.
func NewCaseOp(typ *TypeUsage) *CaseOp {
	return &CaseOp{baseOp{OpCase, ArityVarying, typ}}
}

// FunctionOp invokes a function. IsCollectionAggregate is set for functions
// like COUNT or SUM taking a collection argument.
type FunctionOp struct {
	baseOp
	Name                  string
	IsCollectionAggregate bool
}

// NewFunctionOp returns a call of the named function.
func NewFunctionOp(name string, typ *TypeUsage, isCollectionAggregate bool) *FunctionOp {
	return &FunctionOp{
		baseOp:                baseOp{OpFunction, ArityVarying, typ},
		Name:                  name,
		IsCollectionAggregate: isCollectionAggregate,
	}
}

// NewRecordOp builds a record with one child per property.
type NewRecordOp struct {
	baseOp
	Properties []string
}

// NewNewRecordOp returns a record constructor of the given record type.
func NewNewRecordOp(typ *TypeUsage) *NewRecordOp {
	props := make([]string, len(typ.Fields))
	for i, f := range typ.Fields {
		props[i] = f.Name
	}
	return &NewRecordOp{baseOp: baseOp{OpNewRecord, ArityVarying, typ}, Properties: props}
}

// PropertyOp reads a field of a record.
type PropertyOp struct {
	baseOp
	Property string
}

// NewPropertyOp returns an accessor of the named property.
func NewPropertyOp(name string, typ *TypeUsage) *PropertyOp {
	return &PropertyOp{baseOp: baseOp{OpProperty, 1, typ}, Property: name}
}

// CastOp is a Cast or a SoftCast. A SoftCast only changes the static type.
type CastOp struct {
	baseOp
}

// NewCastOp returns a cast to typ.
func NewCastOp(typ *TypeUsage) *CastOp {
	return &CastOp{baseOp{OpCast, 1, typ}}
}

// NewSoftCastOp returns a soft cast to typ.
func NewSoftCastOp(typ *TypeUsage) *CastOp {
	return &CastOp{baseOp{OpSoftCast, 1, typ}}
}

// AggregateOp is an aggregate computed by a GroupBy.
type AggregateOp struct {
	baseOp
	Name       string
	IsDistinct bool
}

// NewAggregateOp returns an aggregate of the named function.
func NewAggregateOp(name string, typ *TypeUsage, isDistinct bool) *AggregateOp {
	return &AggregateOp{baseOp: baseOp{OpAggregate, ArityVarying, typ}, Name: name, IsDistinct: isDistinct}
}

// CollectOp turns the rows of a PhysicalProject into a collection.
type CollectOp struct {
	baseOp
}

// NewCollectOp returns a Collect of the given collection type.
func NewCollectOp(typ *TypeUsage) *CollectOp {
	return &CollectOp{baseOp{OpCollect, 1, typ}}
}

// ElementOp extracts the single row of its relational input.
type ElementOp struct {
	baseOp
}

// NewElementOp returns an Element of the given type.
func NewElementOp(typ *TypeUsage) *ElementOp {
	return &ElementOp{baseOp{OpElement, 1, typ}}
}

// ExistsOp is true when its relational input has rows.
type ExistsOp struct {
	baseOp
}

// NewExistsOp returns an Exists predicate.
func NewExistsOp() *ExistsOp {
	return &ExistsOp{baseOp{OpExists, 1, Boolean}}
}

// ScanTableOp reads every row of a table instance.
type ScanTableOp struct {
	baseOp
	Table *Table
}

// NewScanTableOp returns a scan of t.
func NewScanTableOp(t *Table) *ScanTableOp {
	return &ScanTableOp{baseOp: baseOp{OpScanTable, 0, nil}, Table: t}
}

// UnnestOp produces one row per element of Var. Its only child is the
// VarDef of Var, and Table holds the single output column.
type UnnestOp struct {
	baseOp
	Var   *Var
	Table *Table
}

// NewUnnestOp returns an unnest of v into t.
func NewUnnestOp(v *Var, t *Table) *UnnestOp {
	return &UnnestOp{baseOp: baseOp{OpUnnest, 1, nil}, Var: v, Table: t}
}

// ProjectOp has children input and VarDefList. Outputs are the vars it
// makes visible to its parent.
type ProjectOp struct {
	baseOp
	Outputs *VarVec
}

// NewProjectOp returns a projection of the given outputs.
func NewProjectOp(outputs *VarVec) *ProjectOp {
	return &ProjectOp{baseOp: baseOp{OpProject, 2, nil}, Outputs: outputs}
}

// FilterOp has children input and predicate.
type FilterOp struct {
	baseOp
}

// NewFilterOp returns a Filter.
func NewFilterOp() *FilterOp {
	return &FilterOp{baseOp{OpFilter, 2, nil}}
}

// SortKey is one ordering key.
type SortKey struct {
	Var       *Var
	Ascending bool
	Collation string
}

// SortOp orders its input.
type SortOp struct {
	baseOp
	Keys []*SortKey
}

// NewSortOp returns a sort by the given keys.
func NewSortOp(keys ...*SortKey) *SortOp {
	return &SortOp{baseOp: baseOp{OpSort, 1, nil}, Keys: keys}
}

// ConstrainedSortOp has children input, skip and limit. Either count may be
// a Null.
type ConstrainedSortOp struct {
	baseOp
	Keys     []*SortKey
	WithTies bool
}

// NewConstrainedSortOp returns a constrained sort.
func NewConstrainedSortOp(withTies bool, keys ...*SortKey) *ConstrainedSortOp {
	return &ConstrainedSortOp{baseOp: baseOp{OpConstrainedSort, 3, nil}, Keys: keys, WithTies: withTies}
}

// GroupByOp has children input, key VarDefList and aggregate VarDefList.
// Outputs are the keys followed by the aggregates.
type GroupByOp struct {
	baseOp
	Keys    *VarVec
	Outputs *VarVec
}

// NewGroupByOp returns a GroupBy.
func NewGroupByOp(keys, outputs *VarVec) *GroupByOp {
	return &GroupByOp{baseOp: baseOp{OpGroupBy, 3, nil}, Keys: keys, Outputs: outputs}
}

// GroupByIntoOp is a GroupBy that also defines group aggregate vars in a
// fourth VarDefList child. Inputs are the vars of the input rows exposed to
// the group aggregates.
type GroupByIntoOp struct {
	baseOp
	Keys    *VarVec
	Inputs  *VarVec
	Outputs *VarVec
}

// NewGroupByIntoOp returns a GroupByInto.
func NewGroupByIntoOp(keys, inputs, outputs *VarVec) *GroupByIntoOp {
	return &GroupByIntoOp{baseOp: baseOp{OpGroupByInto, 4, nil}, Keys: keys, Inputs: inputs, Outputs: outputs}
}

// JoinOp is a CrossJoin, which takes two or more inputs, or an Inner,
// LeftOuter or FullOuter join with children left, right and predicate.
type JoinOp struct {
	baseOp
}

// NewJoinOp returns a join with the given tag.
func NewJoinOp(t OpType) *JoinOp {
	arity := 3
	if t == OpCrossJoin {
		arity = ArityVarying
	}
	return &JoinOp{baseOp{t, arity, nil}}
}

// ApplyOp is a CrossApply or OuterApply. The right input may reference
// vars of the left input.
type ApplyOp struct {
	baseOp
}

// NewApplyOp returns an apply with the given tag.
func NewApplyOp(t OpType) *ApplyOp {
	return &ApplyOp{baseOp{t, 2, nil}}
}

// SetOp is a UnionAll, Intersect or Except. VarMap[i] maps each output to
// the var of the i-th input it reads.
type SetOp struct {
	baseOp
	VarMap  [2]*VarMap
	Outputs *VarVec
}

// NewSetOp returns a set operation with the given tag.
func NewSetOp(t OpType, outputs *VarVec, left, right *VarMap) *SetOp {
	return &SetOp{baseOp: baseOp{t, 2, nil}, VarMap: [2]*VarMap{left, right}, Outputs: outputs}
}

// DistinctOp removes duplicate rows, comparing only Keys.
type DistinctOp struct {
	baseOp
	Keys *VarVec
}

// NewDistinctOp returns a Distinct over keys.
func NewDistinctOp(keys *VarVec) *DistinctOp {
	return &DistinctOp{baseOp: baseOp{OpDistinct, 1, nil}, Keys: keys}
}

// SingleRowOp fails if its input has more than one row.
type SingleRowOp struct {
	baseOp
}

// NewSingleRowOp returns a SingleRow.
func NewSingleRowOp() *SingleRowOp {
	return &SingleRowOp{baseOp{OpSingleRow, 1, nil}}
}

// SingleRowTableOp produces exactly one row with no columns.
type SingleRowTableOp struct {
	baseOp
}

// NewSingleRowTableOp returns a SingleRowTable.
func NewSingleRowTableOp() *SingleRowTableOp {
	return &SingleRowTableOp{baseOp{OpSingleRowTable, 0, nil}}
}

// VarDefOp defines Var as the value of its only child.
type VarDefOp struct {
	baseOp
	Var *Var
}

// NewVarDefOp returns a definition of v.
func NewVarDefOp(v *Var) *VarDefOp {
	return &VarDefOp{baseOp: baseOp{OpVarDef, 1, v.Type}, Var: v}
}

// VarDefListOp groups VarDef children.
type VarDefListOp struct {
	baseOp
}

// NewVarDefListOp returns a VarDefList.
func NewVarDefListOp() *VarDefListOp {
	return &VarDefListOp{baseOp{OpVarDefList, ArityVarying, nil}}
}

// PhysicalProjectOp is the root of a compiled command. Outputs are the
// result columns, in order, and ColumnMap describes how to assemble them.
type PhysicalProjectOp struct {
	baseOp
	Outputs   VarList
	ColumnMap *SimpleCollectionColumnMap
}

// NewPhysicalProjectOp returns a PhysicalProject.
func NewPhysicalProjectOp(outputs VarList, columnMap *SimpleCollectionColumnMap) *PhysicalProjectOp {
	return &PhysicalProjectOp{baseOp: baseOp{OpPhysicalProject, ArityVarying, nil}, Outputs: outputs, ColumnMap: columnMap}
}

// LeafOp matches any node in a rule pattern.
type LeafOp struct {
	baseOp
}

// Leaf is the pattern wildcard.
var Leaf = &LeafOp{baseOp{OpLeaf, 0, nil}}

// CloneOp returns a copy of op that shares no var collections with it.
func CloneOp(op Op) Op {
	switch o := op.(type) {
	case *ConstantOp:
		c := *o
		return &c
	case *ConstantPredicateOp:
		c := *o
		return &c
	case *VarRefOp:
		c := *o
		return &c
	case *ComparisonOp:
		c := *o
		return &c
	case *LikeOp:
		c := *o
		return &c
	case *ArithmeticOp:
		c := *o
		return &c
	case *ConditionalOp:
		c := *o
		return &c
	case *CaseOp:
		c := *o
		return &c
	case *FunctionOp:
		c := *o
		return &c
	case *NewRecordOp:
		c := *o
		c.Properties = append([]string(nil), o.Properties...)
		return &c
	case *PropertyOp:
		c := *o
		return &c
	case *CastOp:
		c := *o
		return &c
	case *AggregateOp:
		c := *o
		return &c
	case *CollectOp:
		c := *o
		return &c
	case *ElementOp:
		c := *o
		return &c
	case *ExistsOp:
		c := *o
		return &c
	case *ScanTableOp:
		c := *o
		return &c
	case *UnnestOp:
		c := *o
		return &c
	case *ProjectOp:
		return &ProjectOp{baseOp: o.baseOp, Outputs: o.Outputs.Clone()}
	case *FilterOp:
		c := *o
		return &c
	case *SortOp:
		return &SortOp{baseOp: o.baseOp, Keys: cloneSortKeys(o.Keys)}
	case *ConstrainedSortOp:
		return &ConstrainedSortOp{baseOp: o.baseOp, Keys: cloneSortKeys(o.Keys), WithTies: o.WithTies}
	case *GroupByOp:
		return &GroupByOp{baseOp: o.baseOp, Keys: o.Keys.Clone(), Outputs: o.Outputs.Clone()}
	case *GroupByIntoOp:
		return &GroupByIntoOp{baseOp: o.baseOp, Keys: o.Keys.Clone(), Inputs: o.Inputs.Clone(), Outputs: o.Outputs.Clone()}
	case *JoinOp:
		c := *o
		return &c
	case *ApplyOp:
		c := *o
		return &c
	case *SetOp:
		return &SetOp{
			baseOp:  o.baseOp,
			VarMap:  [2]*VarMap{o.VarMap[0].Clone(), o.VarMap[1].Clone()},
			Outputs: o.Outputs.Clone(),
		}
	case *DistinctOp:
		return &DistinctOp{baseOp: o.baseOp, Keys: o.Keys.Clone()}
	case *SingleRowOp:
		c := *o
		return &c
	case *SingleRowTableOp:
		c := *o
		return &c
	case *VarDefOp:
		c := *o
		return &c
	case *VarDefListOp:
		c := *o
		return &c
	case *PhysicalProjectOp:
		return &PhysicalProjectOp{baseOp: o.baseOp, Outputs: append(VarList(nil), o.Outputs...), ColumnMap: o.ColumnMap}
	case *LeafOp:
		return o
	default:
		panic("unknown operator")
	}
}

func cloneSortKeys(keys []*SortKey) []*SortKey {
	res := make([]*SortKey, len(keys))
	for i, k := range keys {
		c := *k
		res[i] = &c
	}
	return res
}
