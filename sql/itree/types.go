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

	"gopkg.in/src-d/go-vitess.v0/sqltypes"
	"gopkg.in/src-d/go-vitess.v0/vt/proto/query"
)

// TypeKind is the shape of a TypeUsage.
type TypeKind int

const (
	// PrimitiveKind is a scalar type backed by a wire type.
	PrimitiveKind TypeKind = iota
	// RecordKind is a row of named fields.
	RecordKind
	// CollectionKind is a multiset of an element type.
	CollectionKind
)

// Field is a named member of a record type.
type Field struct {
	Name string
	Type *TypeUsage
}

// TypeUsage describes the type of a var or a scalar expression.
type TypeUsage struct {
	Kind      TypeKind
	Primitive query.Type
	Nullable  bool
	Fields    []Field
	Element   *TypeUsage
}

var (
	// Boolean is the type of predicates.
	Boolean = &TypeUsage{Kind: PrimitiveKind, Primitive: query.Type_BIT}
	// Int32 is a non nullable 32-bit integer.
	Int32 = &TypeUsage{Kind: PrimitiveKind, Primitive: query.Type_INT32}
	// Int64 is a non nullable 64-bit integer.
	Int64 = &TypeUsage{Kind: PrimitiveKind, Primitive: query.Type_INT64}
	// Text is a nullable string.
	Text = &TypeUsage{Kind: PrimitiveKind, Primitive: query.Type_VARCHAR, Nullable: true}
)

// PrimitiveType returns a primitive type for the given wire type.
func PrimitiveType(t query.Type, nullable bool) *TypeUsage {
	return &TypeUsage{Kind: PrimitiveKind, Primitive: t, Nullable: nullable}
}

// RecordType returns a record type with the given fields.
func RecordType(fields ...Field) *TypeUsage {
	return &TypeUsage{Kind: RecordKind, Fields: fields, Nullable: true}
}

// CollectionType returns a collection of the given element type.
func CollectionType(elem *TypeUsage) *TypeUsage {
	return &TypeUsage{Kind: CollectionKind, Element: elem}
}

// IsPrimitive reports whether the type is a primitive.
func (t *TypeUsage) IsPrimitive() bool { return t != nil && t.Kind == PrimitiveKind }

// IsRecord reports whether the type is a record.
func (t *TypeUsage) IsRecord() bool { return t != nil && t.Kind == RecordKind }

// IsCollection reports whether the type is a collection.
func (t *TypeUsage) IsCollection() bool { return t != nil && t.Kind == CollectionKind }

// IsIntegral reports whether the type is a primitive integer type.
func (t *TypeUsage) IsIntegral() bool {
	return t.IsPrimitive() && sqltypes.IsIntegral(t.Primitive)
}

// IsBoolean reports whether the type is the predicate type.
func (t *TypeUsage) IsBoolean() bool {
	return t.IsPrimitive() && t.Primitive == query.Type_BIT
}

// ElementType returns the element type of a collection, or the type itself.
func (t *TypeUsage) ElementType() *TypeUsage {
	if t.IsCollection() {
		return t.Element
	}
	return t
}

// FieldType returns the type of the named record field.
func (t *TypeUsage) FieldType(name string) (*TypeUsage, bool) {
	if !t.IsRecord() {
		return nil, false
	}
	for _, f := range t.Fields {
		if f.Name == name {
			return f.Type, true
		}
	}
	return nil, false
}

// AsNullable returns a copy of the type that admits nulls.
func (t *TypeUsage) AsNullable() *TypeUsage {
	if t == nil || t.Nullable {
		return t
	}
	nt := *t
	nt.Nullable = true
	return &nt
}

// Equals reports whether both types describe the same shape.
func (t *TypeUsage) Equals(o *TypeUsage) bool {
	if t == o {
		return true
	}
	if t == nil || o == nil || t.Kind != o.Kind {
		return false
	}
	switch t.Kind {
	case PrimitiveKind:
		return t.Primitive == o.Primitive
	case CollectionKind:
		return t.Element.Equals(o.Element)
	default:
		if len(t.Fields) != len(o.Fields) {
			return false
		}
		for i := range t.Fields {
			if t.Fields[i].Name != o.Fields[i].Name || !t.Fields[i].Type.Equals(o.Fields[i].Type) {
				return false
			}
		}
		return true
	}
}

func (t *TypeUsage) String() string {
	if t == nil {
		return "<nil>"
	}
	switch t.Kind {
	case PrimitiveKind:
		return strings.ToLower(query.Type_name[int32(t.Primitive)])
	case CollectionKind:
		return fmt.Sprintf("collection(%s)", t.Element)
	default:
		fields := make([]string, len(t.Fields))
		for i, f := range t.Fields {
			fields[i] = fmt.Sprintf("%s %s", f.Name, f.Type)
		}
		return fmt.Sprintf("record(%s)", strings.Join(fields, ", "))
	}
}
