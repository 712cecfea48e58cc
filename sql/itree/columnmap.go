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
)

// ColumnMap describes how to assemble a result value from the columns of
// the compiled commands.
type ColumnMap interface {
	fmt.Stringer
	// Type returns the type of the assembled value.
	Type() *TypeUsage
	// Name returns the name of the value in its parent.
	Name() string
}

// VarRefColumnMap reads the value of a var. It only exists before code
// generation assigns vars to command columns.
type VarRefColumnMap struct {
	Typ        *TypeUsage
	ColumnName string
	Var        *Var
}

func (m *VarRefColumnMap) Type() *TypeUsage { return m.Typ }
func (m *VarRefColumnMap) Name() string     { return m.ColumnName }
func (m *VarRefColumnMap) String() string   { return fmt.Sprintf("%s=%s", m.ColumnName, m.Var) }

// ScalarColumnMap reads the column at ColumnPos of the result of the
// command at CommandId.
type ScalarColumnMap struct {
	Typ        *TypeUsage
	ColumnName string
	CommandId  int
	ColumnPos  int
}

func (m *ScalarColumnMap) Type() *TypeUsage { return m.Typ }
func (m *ScalarColumnMap) Name() string     { return m.ColumnName }
func (m *ScalarColumnMap) String() string {
	return fmt.Sprintf("%s=#%d[%d]", m.ColumnName, m.CommandId, m.ColumnPos)
}

// RecordColumnMap builds a record from its property maps. When NullSentinel
// is set and reads null, the whole record is null.
type RecordColumnMap struct {
	Typ          *TypeUsage
	ColumnName   string
	Properties   []ColumnMap
	NullSentinel ColumnMap
}

func (m *RecordColumnMap) Type() *TypeUsage { return m.Typ }
func (m *RecordColumnMap) Name() string     { return m.ColumnName }
func (m *RecordColumnMap) String() string {
	parts := make([]string, len(m.Properties))
	for i, p := range m.Properties {
		parts[i] = p.String()
	}
	if m.NullSentinel != nil {
		return fmt.Sprintf("%s=record(%s | sentinel %s)", m.ColumnName, strings.Join(parts, ", "), m.NullSentinel)
	}
	return fmt.Sprintf("%s=record(%s)", m.ColumnName, strings.Join(parts, ", "))
}

// SimpleCollectionColumnMap builds a collection with one Element per row.
type SimpleCollectionColumnMap struct {
	Typ        *TypeUsage
	ColumnName string
	Element    ColumnMap
}

func (m *SimpleCollectionColumnMap) Type() *TypeUsage { return m.Typ }
func (m *SimpleCollectionColumnMap) Name() string     { return m.ColumnName }
func (m *SimpleCollectionColumnMap) String() string {
	return fmt.Sprintf("%s=collection(%s)", m.ColumnName, m.Element)
}
