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

// Package metadata is the conceptual model consumed by the plan compiler:
// entity types, the extents (entity sets) holding them and the relationship
// sets, with their referential constraints, connecting those extents.
package metadata

import (
	"fmt"

	"gopkg.in/src-d/go-vitess.v0/vt/proto/query"
)

// Multiplicity of an association end.
type Multiplicity int

const (
	ZeroOrOne Multiplicity = iota
	One
	Many
)

func (m Multiplicity) String() string {
	switch m {
	case ZeroOrOne:
		return "0..1"
	case One:
		return "1"
	default:
		return "*"
	}
}

// Property is a scalar member of an entity type.
type Property struct {
	Name     string
	Type     query.Type
	Nullable bool
}

// EntityType describes the shape of the rows held by an entity set.
type EntityType struct {
	Name       string
	BaseType   *EntityType
	Properties []*Property
	KeyMembers []*Property
}

// Property returns the property with the given name.
func (t *EntityType) Property(name string) (*Property, bool) {
	for _, p := range t.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}

// IsKeyMember reports whether p is part of the entity key.
func (t *EntityType) IsKeyMember(p *Property) bool {
	for _, k := range t.KeyMembers {
		if k == p {
			return true
		}
	}
	return false
}

// IsSubtypeOf reports whether t is o or derives from it.
func (t *EntityType) IsSubtypeOf(o *EntityType) bool {
	for cur := t; cur != nil; cur = cur.BaseType {
		if cur == o {
			return true
		}
	}
	return false
}

// EntitySet is an extent: a named collection of entities of one type.
type EntitySet struct {
	Name        string
	ElementType *EntityType
	Container   *EntityContainer
}

func (s *EntitySet) String() string {
	if s.Container != nil {
		return fmt.Sprintf("%s.%s", s.Container.Name, s.Name)
	}
	return s.Name
}

// AssociationEnd is one role of an association type.
type AssociationEnd struct {
	Name         string
	EntityType   *EntityType
	Multiplicity Multiplicity
}

// ReferentialConstraint says that the ToProperties of the dependent (To)
// end reference the FromProperties of the principal (From) end.
type ReferentialConstraint struct {
	FromRole       *AssociationEnd
	ToRole         *AssociationEnd
	FromProperties []*Property
	ToProperties   []*Property
}

// RelationshipKind distinguishes associations from other relationships.
type RelationshipKind int

const (
	AssociationKind RelationshipKind = iota
	CompositionKind
)

// RelationshipType is an association or composition type.
type RelationshipType struct {
	Name                   string
	Kind                   RelationshipKind
	Ends                   []*AssociationEnd
	ReferentialConstraints []*ReferentialConstraint
}

// End returns the association end with the given role name.
func (r *RelationshipType) End(role string) (*AssociationEnd, bool) {
	for _, e := range r.Ends {
		if e.Name == role {
			return e, true
		}
	}
	return nil, false
}

// RelationshipSetEnd binds a role to the entity set playing it.
type RelationshipSetEnd struct {
	Role      *AssociationEnd
	EntitySet *EntitySet
}

// RelationshipSet is an extent of relationships of one type.
type RelationshipSet struct {
	Name string
	Type *RelationshipType
	Ends []*RelationshipSetEnd
}

// EndFor returns the set end playing the given role.
func (s *RelationshipSet) EndFor(role *AssociationEnd) (*RelationshipSetEnd, bool) {
	for _, e := range s.Ends {
		if e.Role == role {
			return e, true
		}
	}
	return nil, false
}

// EntityContainer groups entity sets and relationship sets.
type EntityContainer struct {
	Name             string
	EntitySets       []*EntitySet
	RelationshipSets []*RelationshipSet
}

// EntitySet returns the entity set with the given name.
func (c *EntityContainer) EntitySet(name string) (*EntitySet, bool) {
	for _, s := range c.EntitySets {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// EntitySetNames returns the names of the entity sets of the container.
func (c *EntityContainer) EntitySetNames() []string {
	names := make([]string, len(c.EntitySets))
	for i, s := range c.EntitySets {
		names[i] = s.Name
	}
	return names
}
