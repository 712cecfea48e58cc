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

package similartext

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFind(t *testing.T) {
	require := require.New(t)

	var names []string
	res := Find(names, "")
	require.Empty(res)

	names = []string{"foo", "bar", "aka", "ake"}
	res = Find(names, "baz")
	require.Equal(", maybe you mean bar?", res)

	res = Find(names, "")
	require.Empty(res)

	res = Find(names, "foo")
	require.Equal(", maybe you mean foo?", res)

	res = Find(names, "willBeTooDifferent")
	require.Empty(res)

	res = Find(names, "aki")
	require.Equal(", maybe you mean aka or ake?", res)
}

func TestFindFromMap(t *testing.T) {
	require := require.New(t)

	var names map[string]int
	res := FindFromMap(names, "")
	require.Empty(res)

	names = map[string]int{
		"foo": 1,
		"bar": 2,
	}
	res = FindFromMap(names, "baz")
	require.Equal(", maybe you mean bar?", res)

	res = FindFromMap(names, "")
	require.Empty(res)

	res = FindFromMap(names, "foo")
	require.Equal(", maybe you mean foo?", res)
}

func TestFindNames(t *testing.T) {
	phases := []string{
		"null_semantics",
		"aggregate_pushdown",
		"transformations",
		"join_elimination",
		"projection_pruning",
		"nullability_rules",
		"codegen",
	}
	keys := []string{
		"debug",
		"verbose",
		"log_level",
		"log_format",
		"max_rule_iterations",
		"max_join_elimination_passes",
		"use_database_null_semantics",
		"disabled_phases",
		"constraint_cache_size",
		"models",
	}

	for _, tt := range []struct {
		names    []string
		src      string
		expected string
	}{
		{phases, "codgen", ", maybe you mean codegen?"},
		{phases, "transformation", ", maybe you mean transformations?"},
		{phases, "join_eliminations", ", maybe you mean join_elimination?"},
		{phases, "null_semantic", ", maybe you mean null_semantics?"},
		{phases, "projection", ""},
		{keys, "verbos", ", maybe you mean verbose?"},
		{keys, "log_levle", ", maybe you mean log_level?"},
		{keys, "model", ", maybe you mean models?"},
		{keys, "max_rule_iteration", ", maybe you mean max_rule_iterations?"},
		{keys, "disabled_phase", ", maybe you mean disabled_phases?"},
		{keys, "null_semantics", ""},
	} {
		t.Run(tt.src, func(t *testing.T) {
			require.Equal(t, tt.expected, Find(tt.names, tt.src))
		})
	}

	require.Equal(t, ", maybe you mean debug?", FindFromMap(map[string]bool{"debug": true, "verbose": false}, "debg"))
}

func TestDistanceForStrings(t *testing.T) {
	for _, tt := range []struct {
		a, b     string
		distance int
	}{
		{"", "", 0},
		{"codegen", "codegen", 0},
		{"codgen", "codegen", 1},
		{"log_levle", "log_level", 2},
		{"", "models", 6},
		{"join_elimination", "nullability_rules", 15},
	} {
		t.Run(tt.a+"/"+tt.b, func(t *testing.T) {
			require.Equal(t, tt.distance, DistanceForStrings([]rune(tt.a), []rune(tt.b)))
			require.Equal(t, tt.distance, DistanceForStrings([]rune(tt.b), []rune(tt.a)))
		})
	}
}
