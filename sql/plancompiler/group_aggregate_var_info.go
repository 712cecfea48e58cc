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

// aggregateCandidate is a collection aggregate function that may be
// computed by the GroupByInto defining the group aggregate var it reads.
// Template is its argument rewritten over the group aggregate var.
type aggregateCandidate struct {
	Function *itree.Node
	Template *itree.Node
}

// GroupAggregateVarInfo describes a group aggregate var: the collection of
// the input rows of one group of a GroupByInto.
type GroupAggregateVarInfo struct {
	DefiningGroupNode *itree.Node
	GroupAggregateVar *itree.Var

	candidates []aggregateCandidate
}

func newGroupAggregateVarInfo(definingGroupNode *itree.Node, v *itree.Var) *GroupAggregateVarInfo {
	return &GroupAggregateVarInfo{DefiningGroupNode: definingGroupNode, GroupAggregateVar: v}
}

// AddCandidate records an aggregate function that could be pushed to the
// defining node.
func (i *GroupAggregateVarInfo) AddCandidate(function, template *itree.Node) {
	i.candidates = append(i.candidates, aggregateCandidate{Function: function, Template: template})
}

// HasCandidateAggregateNodes reports whether any aggregate could be pushed.
func (i *GroupAggregateVarInfo) HasCandidateAggregateNodes() bool {
	return len(i.candidates) > 0
}

// GroupAggregateVarRefInfo tells how a var is computed from a group
// aggregate var. When IsUnnested is set, the var holds a value computed
// from one element of the group rather than from the whole group.
type GroupAggregateVarRefInfo struct {
	Info        *GroupAggregateVarInfo
	Computation *itree.Node
	IsUnnested  bool
}

// GroupAggregateVarInfoManager tracks the vars computed from group
// aggregate vars, and the record fields computed from them.
type GroupAggregateVarInfoManager struct {
	byVar         map[*itree.Var]*GroupAggregateVarRefInfo
	byVarProperty map[*itree.Var]map[string]*GroupAggregateVarRefInfo
	infos         []*GroupAggregateVarInfo
	known         map[*GroupAggregateVarInfo]bool
}

func NewGroupAggregateVarInfoManager() *GroupAggregateVarInfoManager {
	return &GroupAggregateVarInfoManager{
		byVar:         make(map[*itree.Var]*GroupAggregateVarRefInfo),
		byVarProperty: make(map[*itree.Var]map[string]*GroupAggregateVarRefInfo),
		known:         make(map[*GroupAggregateVarInfo]bool),
	}
}

// GroupAggregateVarInfos returns every group aggregate var seen, in the
// order they were added.
func (m *GroupAggregateVarInfoManager) GroupAggregateVarInfos() []*GroupAggregateVarInfo {
	return m.infos
}

// Add records that v is computed by template from the var of info.
func (m *GroupAggregateVarInfoManager) Add(v *itree.Var, info *GroupAggregateVarInfo, template *itree.Node, isUnnested bool) {
	m.byVar[v] = &GroupAggregateVarRefInfo{Info: info, Computation: template, IsUnnested: isUnnested}
	m.addInfo(info)
}

// AddProperty records that the field property of the record var v is
// computed by template from the var of info.
func (m *GroupAggregateVarInfoManager) AddProperty(v *itree.Var, property string, info *GroupAggregateVarInfo, template *itree.Node, isUnnested bool) {
	props, ok := m.byVarProperty[v]
	if !ok {
		props = make(map[string]*GroupAggregateVarRefInfo)
		m.byVarProperty[v] = props
	}
	props[property] = &GroupAggregateVarRefInfo{Info: info, Computation: template, IsUnnested: isUnnested}
	m.addInfo(info)
}

func (m *GroupAggregateVarInfoManager) addInfo(info *GroupAggregateVarInfo) {
	if !m.known[info] {
		m.known[info] = true
		m.infos = append(m.infos, info)
	}
}

func (m *GroupAggregateVarInfoManager) TryGetReferencedGroupAggregateVarInfo(v *itree.Var) (*GroupAggregateVarRefInfo, bool) {
	info, ok := m.byVar[v]
	return info, ok
}

func (m *GroupAggregateVarInfoManager) TryGetReferencedGroupAggregateVarInfoForProperty(v *itree.Var, property string) (*GroupAggregateVarRefInfo, bool) {
	info, ok := m.byVarProperty[v][property]
	return info, ok
}
