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

package sql

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const expectedTree = `Project(Var(1), Var(2))
 ├─ CrossJoin
 │   ├─ ScanTable(Orders)
 │   └─ ScanTable(Customers)
 └─ VarDefList
     ├─ VarDef(Var(1))
     └─ VarDef(Var(2))
`

func TestTreePrinter(t *testing.T) {
	p := NewTreePrinter()
	p.WriteNode("Project(%s, %s)", "Var(1)", "Var(2)")

	p2 := NewTreePrinter()
	p2.WriteNode("CrossJoin")
	p2.WriteChildren(
		"ScanTable(Orders)",
		"ScanTable(Customers)",
	)

	p3 := NewTreePrinter()
	p3.WriteNode("VarDefList")
	p3.WriteChildren(
		"VarDef(Var(1))",
		"VarDef(Var(2))",
	)

	p.WriteChildren(
		p2.String(),
		p3.String(),
	)

	require.Equal(t, expectedTree, p.String())
}

func TestTreePrinterPanicsOnDoubleWrite(t *testing.T) {
	require := require.New(t)

	p := NewTreePrinter()
	p.WriteNode("SingleRowTable")
	require.Panics(func() { p.WriteNode("SingleRowTable") })

	p.WriteChildren("a")
	require.Panics(func() { p.WriteChildren("b") })
}
