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
	"sync"

	"github.com/dolthub/go-plancompiler/sql/itree"
)

// TransformationRules holds the rule tables used by the compilation phases.
// They are built once and only read afterwards.
type TransformationRules struct {
	// AllRules is run by the transformations phase.
	AllRules *RuleTable
	// PostJoinEliminationRules is run after each pass of join elimination.
	PostJoinEliminationRules *RuleTable
	// ProjectRules is run after projection pruning.
	ProjectRules *RuleTable
	// NullabilityRules is run once more when a rule made vars non null.
	NullabilityRules *RuleTable

	projectionPruning map[RuleId]bool
	nullability       map[RuleId]bool
}

var (
	transformationRulesOnce sync.Once
	transformationRules     *TransformationRules
)

func getTransformationRules() *TransformationRules {
	transformationRulesOnce.Do(func() {
		transformationRules = newTransformationRules()
	})
	return transformationRules
}

// DefaultTransformationRules returns the shared rule tables.
func DefaultTransformationRules() *TransformationRules {
	return getTransformationRules()
}

func newTransformationRules() *TransformationRules {
	project := projectRules()
	filter := filterRules()
	join := joinRules()
	apply := applyRules()
	groupBy := groupByRules()
	sort := sortRules()
	distinct := distinctRules()
	setOp := setOpRules()
	singleRow := singleRowRules()
	scalar := scalarRules()

	all := NewRuleTable()
	for _, family := range [][]Rule{project, filter, join, apply, groupBy, sort, distinct, setOp, singleRow, scalar} {
		all.Add(family...)
	}

	postJoinElimination := NewRuleTable()
	for _, family := range [][]Rule{project, filter, join, distinct, sort, singleRow, scalar} {
		postJoinElimination.Add(family...)
	}

	nullability := NewRuleTable()
	nullabilityIds := idSet(
		isNullOverVarRefId,
		andOverConstantPred1Id,
		andOverConstantPred2Id,
		orOverConstantPred1Id,
		orOverConstantPred2Id,
		notOverConstantPredId,
		filterWithConstantPredicateId,
		simplifyCaseId,
	)
	for _, family := range [][]Rule{filter, scalar} {
		for _, r := range family {
			if nullabilityIds[r.Id()] {
				nullability.Add(r)
			}
		}
	}

	return &TransformationRules{
		AllRules:                 all,
		PostJoinEliminationRules: postJoinElimination,
		ProjectRules:             NewRuleTable(project...),
		NullabilityRules:         nullability,
		projectionPruning: idSet(
			projectWithNoLocalDefinitionsId,
			crossJoinOverProject1Id,
			crossJoinOverProject2Id,
			innerJoinOverProject1Id,
			innerJoinOverProject2Id,
			leftOuterJoinOverProject1Id,
			leftOuterJoinOverProject2Id,
			crossApplyOverProjectId,
			crossApplyOverEmptyRightId,
			outerApplyOverEmptyRightId,
			filterWithConstantPredicateId,
			unionAllOverEmptySetId,
			intersectOverEmptySetId,
			exceptOverEmptySetId,
			groupByOpWithNoAggregatesId,
		),
		nullability: idSet(
			filterOverLeftOuterJoinId,
			filterOverOuterApplyId,
		),
	}
}

func idSet(ids ...RuleId) map[RuleId]bool {
	res := make(map[RuleId]bool, len(ids))
	for _, id := range ids {
		res[id] = true
	}
	return res
}

// RequiresProjectionPruning reports whether the rule may leave definitions
// nobody reads.
func (r *TransformationRules) RequiresProjectionPruning(id RuleId) bool {
	return r.projectionPruning[id]
}

// RequiresNullabilityRules reports whether the rule may make vars non null,
// so that the nullability rules need to run again.
func (r *TransformationRules) RequiresNullabilityRules(id RuleId) bool {
	return r.nullability[id]
}

// splitConjuncts returns the operands of a tree of And nodes.
func splitConjuncts(pred *itree.Node) []*itree.Node {
	if pred.OpType() != itree.OpAnd {
		return []*itree.Node{pred}
	}
	return append(splitConjuncts(pred.Child0()), splitConjuncts(pred.Child1())...)
}
