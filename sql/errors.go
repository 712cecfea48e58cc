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

import "gopkg.in/src-d/go-errors.v1"

var (
	// ErrInternal is raised when the tree is not shaped the way an earlier
	// phase guarantees. It aborts the whole compilation.
	ErrInternal = errors.NewKind("internal plan compiler error: %s")

	// ErrNotSupported is returned when metadata or a tree uses a construct
	// the compiler cannot model.
	ErrNotSupported = errors.NewKind("not supported: %s")

	// ErrInvalidOpType is returned when an operator of an unexpected type is
	// found at some part of the tree.
	ErrInvalidOpType = errors.NewKind("%s: invalid operator of type: %s")

	// ErrVarNotFound is returned when a var id does not belong to the command.
	ErrVarNotFound = errors.NewKind("var %d not found in command")

	// ErrInvalidConfig is returned when a configuration value cannot be used.
	ErrInvalidConfig = errors.NewKind("invalid configuration value for %q: %v")
)
