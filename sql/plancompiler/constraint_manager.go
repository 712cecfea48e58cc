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

	lru "github.com/hashicorp/golang-lru"

	"github.com/dolthub/go-plancompiler/sql"
	"github.com/dolthub/go-plancompiler/sql/metadata"
)

// ExtentPair is an ordered (parent, child) pair of entity sets.
type ExtentPair struct {
	Parent *metadata.EntitySet
	Child  *metadata.EntitySet
}

func (p ExtentPair) String() string {
	return fmt.Sprintf("(%s, %s)", p.Parent, p.Child)
}

// ForeignKeyConstraint is a referential constraint between the entity sets
// of an association set. The parent end is unique.
type ForeignKeyConstraint struct {
	Pair       ExtentPair
	ParentKeys []string
	ChildKeys  []string

	constraint *metadata.ReferentialConstraint
	keyMap     map[string]string
}

// NewForeignKeyConstraint builds the constraint c of the relationship set.
func NewForeignKeyConstraint(relSet *metadata.RelationshipSet, c *metadata.ReferentialConstraint) (*ForeignKeyConstraint, error) {
	if relSet.Type.Kind != metadata.AssociationKind {
		return nil, sql.ErrNotSupported.New(fmt.Sprintf("referential constraint on relationship set %s", relSet.Name))
	}

	parentEnd, ok := relSet.EndFor(c.FromRole)
	if !ok {
		return nil, sql.ErrNotSupported.New(fmt.Sprintf("role %s is not an end of %s", c.FromRole.Name, relSet.Name))
	}
	childEnd, ok := relSet.EndFor(c.ToRole)
	if !ok {
		return nil, sql.ErrNotSupported.New(fmt.Sprintf("role %s is not an end of %s", c.ToRole.Name, relSet.Name))
	}

	Assert(c.FromRole.Multiplicity == metadata.One || c.FromRole.Multiplicity == metadata.ZeroOrOne,
		"parent end %s of %s has multiplicity %s", c.FromRole.Name, relSet.Name, c.FromRole.Multiplicity)

	fk := &ForeignKeyConstraint{
		Pair:       ExtentPair{Parent: parentEnd.EntitySet, Child: childEnd.EntitySet},
		constraint: c,
	}
	for _, p := range c.FromProperties {
		fk.ParentKeys = append(fk.ParentKeys, p.Name)
	}
	for _, p := range c.ToProperties {
		fk.ChildKeys = append(fk.ChildKeys, p.Name)
	}
	return fk, nil
}

// ChildMultiplicity is the multiplicity of the child end.
func (fk *ForeignKeyConstraint) ChildMultiplicity() metadata.Multiplicity {
	return fk.constraint.ToRole.Multiplicity
}

// GetParentProperty returns the parent key matched by the child property.
func (fk *ForeignKeyConstraint) GetParentProperty(childProperty string) (string, bool) {
	if fk.keyMap == nil {
		fk.keyMap = make(map[string]string, len(fk.ChildKeys))
		for i, ck := range fk.ChildKeys {
			fk.keyMap[ck] = fk.ParentKeys[i]
		}
	}
	p, ok := fk.keyMap[childProperty]
	return p, ok
}

func (fk *ForeignKeyConstraint) String() string {
	return fmt.Sprintf("FK%s(%v -> %v)", fk.Pair, fk.ParentKeys, fk.ChildKeys)
}

type foreignKeys map[ExtentPair][]*ForeignKeyConstraint

// ConstraintManager finds the foreign keys between entity sets. The
// constraints of a container are computed once and kept in a bounded
// cache shared by every compilation.
type ConstraintManager struct {
	cache *lru.Cache
}

// NewConstraintManager returns a manager caching the constraints of up to
// size containers.
func NewConstraintManager(size int) (*ConstraintManager, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, sql.ErrInvalidConfig.New("constraint_cache_size", size)
	}
	return &ConstraintManager{cache: cache}, nil
}

// LoadRelationships computes the foreign keys of the container, unless
// they are cached already.
func (m *ConstraintManager) LoadRelationships(container *metadata.EntityContainer) error {
	_, err := m.load(container)
	return err
}

func (m *ConstraintManager) load(container *metadata.EntityContainer) (foreignKeys, error) {
	if container == nil {
		return nil, nil
	}
	if v, ok := m.cache.Get(container); ok {
		return v.(foreignKeys), nil
	}

	fks := make(foreignKeys)
	for _, relSet := range container.RelationshipSets {
		if relSet.Type.Kind != metadata.AssociationKind || len(relSet.Ends) != 2 {
			continue
		}
		for _, c := range relSet.Type.ReferentialConstraints {
			fk, err := NewForeignKeyConstraint(relSet, c)
			if err != nil {
				return nil, err
			}
			fks[fk.Pair] = append(fks[fk.Pair], fk)
		}
	}
	m.cache.Add(container, fks)
	return fks, nil
}

// IsParentChildRelationship returns the foreign keys from parent to child.
func (m *ConstraintManager) IsParentChildRelationship(parent, child *metadata.EntitySet) ([]*ForeignKeyConstraint, bool) {
	pair := ExtentPair{Parent: parent, Child: child}
	for _, container := range []*metadata.EntityContainer{parent.Container, child.Container} {
		fks, err := m.load(container)
		Assert(err == nil, "loading relationships of %s: %v", containerName(container), err)
		if res, ok := fks[pair]; ok {
			return res, true
		}
		if parent.Container == child.Container {
			break
		}
	}
	return nil, false
}

// Len is the number of containers in the cache.
func (m *ConstraintManager) Len() int {
	return m.cache.Len()
}

func containerName(c *metadata.EntityContainer) string {
	if c == nil {
		return "<nil>"
	}
	return c.Name
}
