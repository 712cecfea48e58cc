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

	"github.com/dolthub/go-plancompiler/sql"
	"gopkg.in/src-d/go-errors.v1"
)

var (
	// ErrMaxRuleIterations is returned when a rule table does not reach a
	// fixpoint within the configured number of passes.
	ErrMaxRuleIterations = errors.NewKind("exceeded max rule iterations (%d)")

	// ErrNoPhysicalProject is returned by code generation when the root of
	// the tree is not a PhysicalProject.
	ErrNoPhysicalProject = errors.NewKind("cannot generate code for a tree rooted at %s")
)

// Assert panics with an internal error if cond does not hold. The panic is
// recovered by Compiler.Compile and returned as an error.
func Assert(cond bool, format string, args ...interface{}) {
	if !cond {
		panic(sql.ErrInternal.New(fmt.Sprintf(format, args...)))
	}
}
