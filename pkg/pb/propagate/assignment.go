// Copyright Consensys Software Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package propagate implements the unit-propagation engine (C4): the RUP
// decision procedure (forward and backward/core-first variants) and the
// full-model solution check.
package propagate

import (
	"github.com/bits-and-blooms/bitset"

	"github.com/consensys/pbcheck/pkg/pb/literal"
)

// Assignment is a growable partial truth assignment τ, backed by a pair of
// bitsets (one per polarity) so that membership tests stay O(1) regardless
// of how many literals a long proof's propagation loop accumulates.
type Assignment struct {
	pos     *bitset.BitSet
	neg     *bitset.BitSet
	touched *bitset.BitSet // which variables have been assigned at all
	count   uint
}

// NewAssignment constructs an empty assignment sized for numVars variables.
func NewAssignment(numVars uint) *Assignment {
	return &Assignment{
		pos:     bitset.New(numVars + 1),
		neg:     bitset.New(numVars + 1),
		touched: bitset.New(numVars + 1),
	}
}

// Contains implements constraint.Assignment: true iff l currently holds.
func (a *Assignment) Contains(l literal.Literal) bool {
	idx := l.Var()

	if l.IsPositive() {
		return a.pos.Test(idx)
	}

	return a.neg.Test(idx)
}

// Add asserts l, returning true iff this newly assigned l's variable (a
// variable is only ever assigned once; re-asserting the same literal, or
// attempting to assert its complement, is a caller error detected
// elsewhere via the falsification check, not here).
func (a *Assignment) Add(l literal.Literal) bool {
	idx := l.Var()

	if a.touched.Test(idx) {
		return false
	}

	a.touched.Set(idx)

	if l.IsPositive() {
		a.pos.Set(idx)
	} else {
		a.neg.Set(idx)
	}

	a.count++

	return true
}

// AddAll asserts every literal in ls, skipping any whose variable is
// already assigned.
func (a *Assignment) AddAll(ls []literal.Literal) {
	for _, l := range ls {
		a.Add(l)
	}
}

// Len returns the number of distinct variables assigned so far.
func (a *Assignment) Len() uint {
	return a.count
}
