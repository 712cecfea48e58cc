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

package metadata

import (
	"io/ioutil"
	"strings"

	"gopkg.in/src-d/go-errors.v1"
	"gopkg.in/src-d/go-vitess.v0/vt/proto/query"
	yaml "gopkg.in/yaml.v2"

	"github.com/dolthub/go-plancompiler/internal/similartext"
)

var (
	// ErrInvalidModel is returned when a model document is inconsistent.
	ErrInvalidModel = errors.NewKind("invalid model: %s")

	// ErrUnknownType is returned when a property uses an unknown wire type.
	ErrUnknownType = errors.NewKind("unknown type %q for property %s.%s")
)

type propertyDoc struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Nullable bool   `yaml:"nullable"`
}

type entityTypeDoc struct {
	Name       string        `yaml:"name"`
	Base       string        `yaml:"base"`
	Keys       []string      `yaml:"keys"`
	Properties []propertyDoc `yaml:"properties"`
}

type entitySetDoc struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

type endDoc struct {
	Role         string `yaml:"role"`
	Type         string `yaml:"type"`
	Multiplicity string `yaml:"multiplicity"`
	Set          string `yaml:"set"`
}

type constraintDoc struct {
	From           string   `yaml:"from"`
	To             string   `yaml:"to"`
	FromProperties []string `yaml:"from_properties"`
	ToProperties   []string `yaml:"to_properties"`
}

type associationDoc struct {
	Name        string          `yaml:"name"`
	Kind        string          `yaml:"kind"`
	Ends        []endDoc        `yaml:"ends"`
	Constraints []constraintDoc `yaml:"constraints"`
}

type containerDoc struct {
	Name         string           `yaml:"name"`
	EntityTypes  []entityTypeDoc  `yaml:"entity_types"`
	EntitySets   []entitySetDoc   `yaml:"entity_sets"`
	Associations []associationDoc `yaml:"associations"`
}

// LoadContainer reads an entity container from a YAML file.
func LoadContainer(path string) (*EntityContainer, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseContainer(data)
}

// ParseContainer builds an entity container from a YAML document.
func ParseContainer(data []byte) (*EntityContainer, error) {
	var doc containerDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, ErrInvalidModel.Wrap(err, "yaml")
	}

	c := &EntityContainer{Name: doc.Name}
	types := make(map[string]*EntityType)
	for _, td := range doc.EntityTypes {
		t := &EntityType{Name: td.Name}
		for _, pd := range td.Properties {
			typ, ok := query.Type_value[strings.ToUpper(pd.Type)]
			if !ok {
				return nil, ErrUnknownType.New(pd.Type, td.Name, pd.Name)
			}
			t.Properties = append(t.Properties, &Property{
				Name:     pd.Name,
				Type:     query.Type(typ),
				Nullable: pd.Nullable,
			})
		}
		for _, k := range td.Keys {
			p, ok := t.Property(k)
			if !ok {
				return nil, ErrInvalidModel.New("key " + k + " is not a property of " + td.Name)
			}
			t.KeyMembers = append(t.KeyMembers, p)
		}
		types[td.Name] = t
	}
	for _, td := range doc.EntityTypes {
		if td.Base == "" {
			continue
		}
		base, ok := types[td.Base]
		if !ok {
			return nil, ErrInvalidModel.New("unknown base type " + td.Base + similartext.FindFromMap(types, td.Base))
		}
		types[td.Name].BaseType = base
	}

	for _, sd := range doc.EntitySets {
		t, ok := types[sd.Type]
		if !ok {
			return nil, ErrInvalidModel.New("unknown entity type " + sd.Type + similartext.FindFromMap(types, sd.Type))
		}
		c.EntitySets = append(c.EntitySets, &EntitySet{Name: sd.Name, ElementType: t, Container: c})
	}

	for _, ad := range doc.Associations {
		rs, err := buildRelationshipSet(c, types, ad)
		if err != nil {
			return nil, err
		}
		c.RelationshipSets = append(c.RelationshipSets, rs)
	}

	return c, nil
}

func buildRelationshipSet(c *EntityContainer, types map[string]*EntityType, ad associationDoc) (*RelationshipSet, error) {
	rt := &RelationshipType{Name: ad.Name}
	if strings.EqualFold(ad.Kind, "composition") {
		rt.Kind = CompositionKind
	}

	rs := &RelationshipSet{Name: ad.Name, Type: rt}
	for _, ed := range ad.Ends {
		t, ok := types[ed.Type]
		if !ok {
			return nil, ErrInvalidModel.New("unknown entity type " + ed.Type + similartext.FindFromMap(types, ed.Type))
		}
		m, err := parseMultiplicity(ed.Multiplicity)
		if err != nil {
			return nil, err
		}
		end := &AssociationEnd{Name: ed.Role, EntityType: t, Multiplicity: m}
		rt.Ends = append(rt.Ends, end)

		set, ok := c.EntitySet(ed.Set)
		if !ok {
			return nil, ErrInvalidModel.New("unknown entity set " + ed.Set + similartext.Find(c.EntitySetNames(), ed.Set))
		}
		rs.Ends = append(rs.Ends, &RelationshipSetEnd{Role: end, EntitySet: set})
	}

	for _, cd := range ad.Constraints {
		from, ok := rt.End(cd.From)
		if !ok {
			return nil, ErrInvalidModel.New("unknown role " + cd.From)
		}
		to, ok := rt.End(cd.To)
		if !ok {
			return nil, ErrInvalidModel.New("unknown role " + cd.To)
		}
		rc := &ReferentialConstraint{FromRole: from, ToRole: to}
		for _, name := range cd.FromProperties {
			p, ok := from.EntityType.Property(name)
			if !ok {
				return nil, ErrInvalidModel.New("unknown property " + name)
			}
			rc.FromProperties = append(rc.FromProperties, p)
		}
		for _, name := range cd.ToProperties {
			p, ok := to.EntityType.Property(name)
			if !ok {
				return nil, ErrInvalidModel.New("unknown property " + name)
			}
			rc.ToProperties = append(rc.ToProperties, p)
		}
		if len(rc.FromProperties) != len(rc.ToProperties) {
			return nil, ErrInvalidModel.New("constraint of " + ad.Name + " has unbalanced property lists")
		}
		rt.ReferentialConstraints = append(rt.ReferentialConstraints, rc)
	}

	return rs, nil
}

func parseMultiplicity(s string) (Multiplicity, error) {
	switch strings.ToLower(s) {
	case "0..1", "zero_or_one", "zeroorone":
		return ZeroOrOne, nil
	case "1", "one":
		return One, nil
	case "*", "many":
		return Many, nil
	default:
		return Many, ErrInvalidModel.New("unknown multiplicity " + s)
	}
}
