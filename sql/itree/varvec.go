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
	"strings"

	"github.com/bits-and-blooms/bitset"
)

// VarVec is a set of vars of one Command, keyed by var id.
type VarVec struct {
	cmd  *Command
	bits *bitset.BitSet
}

func newVarVec(cmd *Command) *VarVec {
	return &VarVec{cmd: cmd, bits: bitset.New(uint(len(cmd.vars)))}
}

// Set adds v to the set.
func (vv *VarVec) Set(v *Var) *VarVec {
	vv.bits.Set(uint(v.Id))
	return vv
}

// Clear removes v from the set.
func (vv *VarVec) Clear(v *Var) *VarVec {
	vv.bits.Clear(uint(v.Id))
	return vv
}

// ClearAll empties the set.
func (vv *VarVec) ClearAll() {
	vv.bits.ClearAll()
}

// IsSet reports whether v is in the set.
func (vv *VarVec) IsSet(v *Var) bool {
	return vv.bits.Test(uint(v.Id))
}

// Count returns the number of vars in the set.
func (vv *VarVec) Count() int {
	return int(vv.bits.Count())
}

// IsEmpty reports whether the set has no vars.
func (vv *VarVec) IsEmpty() bool {
	return vv.bits.None()
}

// First returns the var with the lowest id, or nil.
func (vv *VarVec) First() *Var {
	if i, ok := vv.bits.NextSet(0); ok {
		return vv.cmd.vars[i]
	}
	return nil
}

// Vars returns the vars of the set, ordered by id.
func (vv *VarVec) Vars() []*Var {
	vars := make([]*Var, 0, vv.bits.Count())
	for i, ok := vv.bits.NextSet(0); ok; i, ok = vv.bits.NextSet(i + 1) {
		vars = append(vars, vv.cmd.vars[i])
	}
	return vars
}

// Or adds every var of other to the set.
func (vv *VarVec) Or(other *VarVec) *VarVec {
	vv.bits.InPlaceUnion(other.bits)
	return vv
}

// And keeps only the vars also in other.
func (vv *VarVec) And(other *VarVec) *VarVec {
	vv.bits.InPlaceIntersection(other.bits)
	return vv
}

// Minus removes every var of other from the set.
func (vv *VarVec) Minus(other *VarVec) *VarVec {
	vv.bits.InPlaceDifference(other.bits)
	return vv
}

// InitFrom replaces the content of the set with other's.
func (vv *VarVec) InitFrom(other *VarVec) *VarVec {
	vv.bits = other.bits.Clone()
	return vv
}

// Subsumes reports whether every var of other is in the set.
func (vv *VarVec) Subsumes(other *VarVec) bool {
	return vv.bits.IsSuperSet(other.bits)
}

// Overlaps reports whether the sets share a var.
func (vv *VarVec) Overlaps(other *VarVec) bool {
	return vv.bits.IntersectionCardinality(other.bits) > 0
}

// Equal reports whether both sets have the same vars.
func (vv *VarVec) Equal(other *VarVec) bool {
	return vv.bits.Count() == other.bits.Count() && vv.bits.IsSuperSet(other.bits)
}

// Clone returns a copy of the set.
func (vv *VarVec) Clone() *VarVec {
	return &VarVec{cmd: vv.cmd, bits: vv.bits.Clone()}
}

func (vv *VarVec) String() string {
	vars := vv.Vars()
	parts := make([]string, len(vars))
	for i, v := range vars {
		parts[i] = v.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// KeyVec is the set of vars that uniquely identify rows of a relational
// node. NoKeys means no key is known.
type KeyVec struct {
	KeyVars *VarVec
	NoKeys  bool
}

// InitFrom copies the key facts of other.
func (k *KeyVec) InitFrom(other *KeyVec) {
	k.KeyVars.InitFrom(other.KeyVars)
	k.NoKeys = other.NoKeys
}

// InitFromVars sets the keys to the given set.
func (k *KeyVec) InitFromVars(keys *VarVec) {
	k.KeyVars.InitFrom(keys)
	k.NoKeys = false
}

// Clear forgets all keys.
func (k *KeyVec) Clear() {
	k.KeyVars.ClearAll()
	k.NoKeys = true
}

func (k *KeyVec) String() string {
	if k.NoKeys {
		return "NoKeys"
	}
	return k.KeyVars.String()
}
