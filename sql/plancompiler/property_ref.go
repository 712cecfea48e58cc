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
	"fmt"
	"strings"

	"github.com/dolthub/go-plancompiler/sql/metadata"
)

// PropertyRef identifies a property of a structured value: a named field, a
// field of a nested value, or one of the hidden properties carried by
// flattened entities.
type PropertyRef interface {
	fmt.Stringer
	// Equal reports whether both references name the same property.
	Equal(PropertyRef) bool
}

// SimplePropertyRef is a named field.
type SimplePropertyRef struct {
	Name string
}

func (r SimplePropertyRef) Equal(o PropertyRef) bool {
	other, ok := o.(SimplePropertyRef)
	return ok && other.Name == r.Name
}

func (r SimplePropertyRef) String() string { return r.Name }

// NestedPropertyRef is the Inner property of the value held by Outer.
type NestedPropertyRef struct {
	Outer PropertyRef
	Inner PropertyRef
}

// NewNestedPropertyRef returns a reference to inner through outer.
func NewNestedPropertyRef(outer, inner PropertyRef) NestedPropertyRef {
	return NestedPropertyRef{Outer: outer, Inner: inner}
}

func (r NestedPropertyRef) Equal(o PropertyRef) bool {
	other, ok := o.(NestedPropertyRef)
	return ok && r.Outer.Equal(other.Outer) && r.Inner.Equal(other.Inner)
}

func (r NestedPropertyRef) String() string {
	return fmt.Sprintf("%s.%s", r.Outer, r.Inner)
}

// AllPropertyRef stands for every property of a value.
type AllPropertyRef struct{}

func (AllPropertyRef) Equal(o PropertyRef) bool {
	_, ok := o.(AllPropertyRef)
	return ok
}

func (AllPropertyRef) String() string { return "ALL" }

// TypeIdPropertyRef is the discriminator of a polymorphic value.
type TypeIdPropertyRef struct{}

func (TypeIdPropertyRef) Equal(o PropertyRef) bool {
	_, ok := o.(TypeIdPropertyRef)
	return ok
}

func (TypeIdPropertyRef) String() string { return "TYPEID" }

// EntitySetIdPropertyRef identifies the entity set an entity comes from.
type EntitySetIdPropertyRef struct{}

func (EntitySetIdPropertyRef) Equal(o PropertyRef) bool {
	_, ok := o.(EntitySetIdPropertyRef)
	return ok
}

func (EntitySetIdPropertyRef) String() string { return "ENTITYSETID" }

// NullSentinelPropertyRef is the flag telling a null value apart from a
// value whose fields are all null.
type NullSentinelPropertyRef struct{}

func (NullSentinelPropertyRef) Equal(o PropertyRef) bool {
	_, ok := o.(NullSentinelPropertyRef)
	return ok
}

func (NullSentinelPropertyRef) String() string { return "NULLSENTINEL" }

// RelPropertyRef is the navigation from one end of a relationship to the
// other.
type RelPropertyRef struct {
	Relationship *metadata.RelationshipType
	FromEnd      *metadata.AssociationEnd
	ToEnd        *metadata.AssociationEnd
}

func (r RelPropertyRef) Equal(o PropertyRef) bool {
	other, ok := o.(RelPropertyRef)
	return ok && r.Relationship == other.Relationship && r.FromEnd == other.FromEnd && r.ToEnd == other.ToEnd
}

func (r RelPropertyRef) String() string {
	return fmt.Sprintf("NAVIGATE(%s, %s, %s)", r.Relationship.Name, r.FromEnd.Name, r.ToEnd.Name)
}

// PropertyRefList is a set of property references. A list holding
// AllPropertyRef stands for every property and ignores further additions.
type PropertyRefList struct {
	all   bool
	props []PropertyRef
}

// NewPropertyRefList returns an empty list.
func NewPropertyRefList() *PropertyRefList {
	return &PropertyRefList{}
}

// AllPropertyRefList returns a list standing for every property.
func AllPropertyRefList() *PropertyRefList {
	return &PropertyRefList{all: true}
}

// Add adds p to the list unless it is already there.
func (l *PropertyRefList) Add(p PropertyRef) {
	if l.all {
		return
	}
	if _, ok := p.(AllPropertyRef); ok {
		l.all = true
		l.props = nil
		return
	}
	if !l.Contains(p) {
		l.props = append(l.props, p)
	}
}

// Append adds every property of other.
func (l *PropertyRefList) Append(other *PropertyRefList) {
	if other.all {
		l.Add(AllPropertyRef{})
		return
	}
	for _, p := range other.props {
		l.Add(p)
	}
}

// AllProperties reports whether the list stands for every property.
func (l *PropertyRefList) AllProperties() bool { return l.all }

// Contains reports whether p is in the list. Every property is in a list
// standing for all of them.
func (l *PropertyRefList) Contains(p PropertyRef) bool {
	if l.all {
		return true
	}
	for _, lp := range l.props {
		if lp.Equal(p) {
			return true
		}
	}
	return false
}

// Properties returns the references in the list, in insertion order.
func (l *PropertyRefList) Properties() []PropertyRef {
	return l.props
}

func (l *PropertyRefList) Clone() *PropertyRefList {
	return &PropertyRefList{all: l.all, props: append([]PropertyRef(nil), l.props...)}
}

func (l *PropertyRefList) String() string {
	if l.all {
		return "{ALL}"
	}
	parts := make([]string, len(l.props))
	for i, p := range l.props {
		parts[i] = p.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
