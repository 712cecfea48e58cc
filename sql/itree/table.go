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
	"github.com/dolthub/go-plancompiler/sql/metadata"
)

// ColumnMD describes one column of a table definition.
type ColumnMD struct {
	Name string
	Type *TypeUsage
}

// IsNullable reports whether the column admits nulls.
func (c *ColumnMD) IsNullable() bool { return c.Type.Nullable }

// TableMD is a table definition. Extent is the entity set the table is a
// scan of, or nil for derived tables such as the output of an Unnest.
type TableMD struct {
	Name    string
	Columns []*ColumnMD
	Keys    []*ColumnMD
	Extent  *metadata.EntitySet
}

// NewTableMD creates a table definition. Key names must name columns.
func NewTableMD(name string, columns []*ColumnMD, keys ...string) *TableMD {
	md := &TableMD{Name: name, Columns: columns}
	for _, k := range keys {
		if c := md.Column(k); c != nil {
			md.Keys = append(md.Keys, c)
		}
	}
	return md
}

// NewTableMDFromExtent creates the definition of a scan of an entity set.
func NewTableMDFromExtent(es *metadata.EntitySet) *TableMD {
	md := &TableMD{Name: es.Name, Extent: es}
	for _, p := range es.ElementType.Properties {
		md.Columns = append(md.Columns, &ColumnMD{Name: p.Name, Type: PrimitiveType(p.Type, p.Nullable)})
	}
	for _, k := range es.ElementType.KeyMembers {
		md.Keys = append(md.Keys, md.Column(k.Name))
	}
	return md
}

// Column returns the column with the given name, or nil.
func (md *TableMD) Column(name string) *ColumnMD {
	for _, c := range md.Columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Table is an instance of a table definition in a Command. Every instance
// has its own column vars.
type Table struct {
	Id                 int
	MD                 *TableMD
	Columns            VarList
	ReferencedColumns  *VarVec
	NonNullableColumns *VarVec
	Keys               *VarVec
}

// ColumnVar returns the var of the named column, or nil.
func (t *Table) ColumnVar(name string) *Var {
	for _, v := range t.Columns {
		if v.Column.Name == name {
			return v
		}
	}
	return nil
}

// ColumnVarFor returns the var of the given column definition, or nil.
func (t *Table) ColumnVarFor(c *ColumnMD) *Var {
	for _, v := range t.Columns {
		if v.Column == c {
			return v
		}
	}
	return nil
}
