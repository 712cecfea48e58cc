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
	"github.com/dolthub/go-plancompiler/sql/itree"
)

// RuleTable groups rules by the operator type they apply to. Rules of the
// same operator type are tried in the order they were added.
type RuleTable [itree.OpTypeMax][]Rule

// NewRuleTable returns a table holding the given rules.
func NewRuleTable(rules ...Rule) *RuleTable {
	t := new(RuleTable)
	t.Add(rules...)
	return t
}

// Add appends rules to the table.
func (t *RuleTable) Add(rules ...Rule) {
	for _, r := range rules {
		op := r.RuleOpType()
		t[op] = append(t[op], r)
	}
}

// Rules returns the rules that apply to nodes of the given type.
func (t *RuleTable) Rules(op itree.OpType) []Rule {
	return t[op]
}

// Len returns the number of rules of the table.
func (t *RuleTable) Len() int {
	n := 0
	for _, rules := range t {
		n += len(rules)
	}
	return n
}

// Clone returns a copy of the table that can be extended without changing
// t.
func (t *RuleTable) Clone() *RuleTable {
	c := new(RuleTable)
	for i, rules := range t {
		c[i] = append([]Rule(nil), rules...)
	}
	return c
}
