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

import "fmt"

// RuleId identifies a transformation rule.
type RuleId int

const (
	ruleIdUnknown RuleId = iota

	// project
	projectOverProjectId
	projectWithNoLocalDefinitionsId
	projectWithSimpleVarRedefinitionsId
	projectOpWithNullSentinelId

	// filter
	filterWithConstantPredicateId
	filterOverFilterId
	filterOverProjectId
	filterOverUnionAllId
	filterOverIntersectId
	filterOverExceptId
	filterOverDistinctId
	filterOverGroupById
	filterOverCrossJoinId
	filterOverInnerJoinId
	filterOverLeftOuterJoinId
	filterOverOuterApplyId

	// join
	crossJoinOverProject1Id
	crossJoinOverProject2Id
	innerJoinOverProject1Id
	innerJoinOverProject2Id
	leftOuterJoinOverProject1Id
	leftOuterJoinOverProject2Id
	crossJoinOverFilter1Id
	crossJoinOverFilter2Id
	innerJoinOverFilter1Id
	innerJoinOverFilter2Id
	leftOuterJoinOverFilter1Id
	leftOuterJoinOverFilter2Id
	crossJoinOverSingleRowTable1Id
	crossJoinOverSingleRowTable2Id
	leftOuterJoinOverSingleRowTableId

	// apply
	crossApplyOverFilterId
	outerApplyOverFilterId
	crossApplyOverProjectId
	crossApplyOverAnythingId
	outerApplyOverAnythingId
	crossApplyOverEmptyRightId
	outerApplyOverEmptyRightId

	// group by
	groupByOpWithSimpleVarRedefinitionsId
	groupByOverProjectId
	groupByOpWithNoAggregatesId

	// sort
	sortOverTrivialInputId
	sortWithNoKeysId
	constrainedSortOverEmptyInputId

	// distinct
	distinctOpOfKeysId

	// set operations
	unionAllOverEmptySetId
	intersectOverEmptySetId
	exceptOverEmptySetId

	// single row
	singleRowOpOverAnythingId
	singleRowOpOverProjectId

	// scalar
	equalsOverConstantId
	andOverConstantPred1Id
	andOverConstantPred2Id
	orOverConstantPred1Id
	orOverConstantPred2Id
	notOverConstantPredId
	isNullOverConstantId
	isNullOverInternalConstantId
	isNullOverNullSentinelId
	isNullOverNullId
	nullCastId
	isNullOverVarRefId
	simplifyCaseId

	// customRuleIdStart is the first id handed out to rules added through
	// the Builder.
	customRuleIdStart
)

var ruleNames = [...]string{
	ruleIdUnknown:                         "unknown",
	projectOverProjectId:                  "project_over_project",
	projectWithNoLocalDefinitionsId:       "project_with_no_local_definitions",
	projectWithSimpleVarRedefinitionsId:   "project_with_simple_var_redefinitions",
	projectOpWithNullSentinelId:           "project_op_with_null_sentinel",
	filterWithConstantPredicateId:         "filter_with_constant_predicate",
	filterOverFilterId:                    "filter_over_filter",
	filterOverProjectId:                   "filter_over_project",
	filterOverUnionAllId:                  "filter_over_union_all",
	filterOverIntersectId:                 "filter_over_intersect",
	filterOverExceptId:                    "filter_over_except",
	filterOverDistinctId:                  "filter_over_distinct",
	filterOverGroupById:                   "filter_over_group_by",
	filterOverCrossJoinId:                 "filter_over_cross_join",
	filterOverInnerJoinId:                 "filter_over_inner_join",
	filterOverLeftOuterJoinId:             "filter_over_left_outer_join",
	filterOverOuterApplyId:                "filter_over_outer_apply",
	crossJoinOverProject1Id:               "cross_join_over_project_1",
	crossJoinOverProject2Id:               "cross_join_over_project_2",
	innerJoinOverProject1Id:               "inner_join_over_project_1",
	innerJoinOverProject2Id:               "inner_join_over_project_2",
	leftOuterJoinOverProject1Id:           "left_outer_join_over_project_1",
	leftOuterJoinOverProject2Id:           "left_outer_join_over_project_2",
	crossJoinOverFilter1Id:                "cross_join_over_filter_1",
	crossJoinOverFilter2Id:                "cross_join_over_filter_2",
	innerJoinOverFilter1Id:                "inner_join_over_filter_1",
	innerJoinOverFilter2Id:                "inner_join_over_filter_2",
	leftOuterJoinOverFilter1Id:            "left_outer_join_over_filter_1",
	leftOuterJoinOverFilter2Id:            "left_outer_join_over_filter_2",
	crossJoinOverSingleRowTable1Id:        "cross_join_over_single_row_table_1",
	crossJoinOverSingleRowTable2Id:        "cross_join_over_single_row_table_2",
	leftOuterJoinOverSingleRowTableId:     "left_outer_join_over_single_row_table",
	crossApplyOverFilterId:                "cross_apply_over_filter",
	outerApplyOverFilterId:                "outer_apply_over_filter",
	crossApplyOverProjectId:               "cross_apply_over_project",
	crossApplyOverAnythingId:              "cross_apply_over_anything",
	outerApplyOverAnythingId:              "outer_apply_over_anything",
	crossApplyOverEmptyRightId:            "cross_apply_over_empty_right",
	outerApplyOverEmptyRightId:            "outer_apply_over_empty_right",
	groupByOpWithSimpleVarRedefinitionsId: "group_by_op_with_simple_var_redefinitions",
	groupByOverProjectId:                  "group_by_over_project",
	groupByOpWithNoAggregatesId:           "group_by_op_with_no_aggregates",
	sortOverTrivialInputId:                "sort_over_trivial_input",
	sortWithNoKeysId:                      "sort_with_no_keys",
	constrainedSortOverEmptyInputId:       "constrained_sort_over_empty_input",
	distinctOpOfKeysId:                    "distinct_op_of_keys",
	unionAllOverEmptySetId:                "union_all_over_empty_set",
	intersectOverEmptySetId:               "intersect_over_empty_set",
	exceptOverEmptySetId:                  "except_over_empty_set",
	singleRowOpOverAnythingId:             "single_row_op_over_anything",
	singleRowOpOverProjectId:              "single_row_op_over_project",
	equalsOverConstantId:                  "equals_over_constant",
	andOverConstantPred1Id:                "and_over_constant_pred_1",
	andOverConstantPred2Id:                "and_over_constant_pred_2",
	orOverConstantPred1Id:                 "or_over_constant_pred_1",
	orOverConstantPred2Id:                 "or_over_constant_pred_2",
	notOverConstantPredId:                 "not_over_constant_pred",
	isNullOverConstantId:                  "is_null_over_constant",
	isNullOverInternalConstantId:          "is_null_over_internal_constant",
	isNullOverNullSentinelId:              "is_null_over_null_sentinel",
	isNullOverNullId:                      "is_null_over_null",
	nullCastId:                            "null_cast",
	isNullOverVarRefId:                    "is_null_over_var_ref",
	simplifyCaseId:                        "simplify_case",
}

func (r RuleId) String() string {
	if r >= 0 && int(r) < len(ruleNames) && ruleNames[r] != "" {
		return ruleNames[r]
	}
	return fmt.Sprintf("custom_rule_%d", int(r))
}
