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
package propagate_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/consensys/pbcheck/pkg/pb/constraint"
	"github.com/consensys/pbcheck/pkg/pb/database"
	"github.com/consensys/pbcheck/pkg/pb/literal"
	"github.com/consensys/pbcheck/pkg/pb/propagate"
)

// x and y are variables 1 and 2 throughout.
const (
	x  literal.Literal = 1
	nx literal.Literal = -1
	y  literal.Literal = 2
	ny literal.Literal = -2
)

func mustConstruct(t *testing.T, lits []literal.Literal, coeffs []int64, degree int64) constraint.Constraint {
	t.Helper()

	bc := make([]*big.Int, len(coeffs))
	for i, c := range coeffs {
		bc[i] = big.NewInt(c)
	}

	c, err := constraint.Construct(lits, bc, big.NewInt(degree))
	require.NoError(t, err)

	return c
}

// S2: `x + y >= 1` and `x + ~y >= 1` are in the model; RUP-admitting
// `x >= 1` must succeed, since negating it (~x >= 1) propagates y then
// falsifies the second axiom.
func TestRUPAdmitsForcedUnit(t *testing.T) {
	db := database.New()
	db.AddModel(mustConstruct(t, []literal.Literal{x, y}, []int64{1, 1}, 1))
	db.AddModel(mustConstruct(t, []literal.Literal{x, ny}, []int64{1, 1}, 1))

	engine := propagate.NewEngine(db, 2)

	candidate := mustConstruct(t, []literal.Literal{x}, []int64{1}, 1)
	result := engine.RUP(candidate)

	assert.True(t, result.Admitted)
	assert.NotEmpty(t, result.Fired)
}

// Admitting a candidate with no supporting axioms must be rejected:
// propagation saturates without ever falsifying anything.
func TestRUPRejectsUnsupportedCandidate(t *testing.T) {
	db := database.New()
	db.AddModel(mustConstruct(t, []literal.Literal{x}, []int64{1}, 0))

	engine := propagate.NewEngine(db, 2)

	candidate := mustConstruct(t, []literal.Literal{y}, []int64{1}, 1)
	result := engine.RUP(candidate)

	assert.False(t, result.Admitted)
}

// A candidate unrelated to the model is still admitted when the model itself
// is unsatisfiable: nothing is falsified by the seed ~y, but x >= 1
// propagates x, after which the falsify pass finds ~x >= 1 falsified.
func TestRUPAdmitsWhenModelIsUnsatisfiable(t *testing.T) {
	db := database.New()
	// x >= 1 and ~x >= 1 together are UNSAT regardless of candidate.
	db.AddModel(mustConstruct(t, []literal.Literal{x}, []int64{1}, 1))
	db.AddModel(mustConstruct(t, []literal.Literal{nx}, []int64{1}, 1))

	engine := propagate.NewEngine(db, 2)

	candidate := mustConstruct(t, []literal.Literal{y}, []int64{1}, 1)
	result := engine.RUP(candidate)

	assert.True(t, result.Admitted)
}

// Tombstoned constraints must not participate in RUP: deleting the axiom
// that would have propagated the contradiction turns an admit into a
// rejection.
func TestRUPIgnoresTombstonedConstraints(t *testing.T) {
	db := database.New()
	db.AddModel(mustConstruct(t, []literal.Literal{x, y}, []int64{1, 1}, 1))
	id2 := db.Add(mustConstruct(t, []literal.Literal{x, ny}, []int64{1, 1}, 1), 0)

	require.NoError(t, db.Delete(id2, id2))

	engine := propagate.NewEngine(db, 2)
	candidate := mustConstruct(t, []literal.Literal{x}, []int64{1}, 1)

	result := engine.RUP(candidate)
	assert.False(t, result.Admitted)
}

// RUPAsOf must reconstruct the historical view: a constraint that is live
// "now" but was not yet created as of an earlier step must be invisible to
// that earlier replay.
func TestRUPAsOfHidesFutureConstraints(t *testing.T) {
	db := database.New()
	db.AddModel(mustConstruct(t, []literal.Literal{x, y}, []int64{1, 1}, 1))
	laterID := db.Add(mustConstruct(t, []literal.Literal{x, ny}, []int64{1, 1}, 1), 0)

	engine := propagate.NewEngine(db, 2)
	candidate := mustConstruct(t, []literal.Literal{x}, []int64{1}, 1)

	// As of laterID's own step, laterID itself is not yet visible.
	result := engine.RUPAsOf(candidate, laterID)
	assert.False(t, result.Admitted)
}

// Solution accepts a full, consistent assignment that satisfies every live
// constraint and touches every variable.
func TestSolutionAcceptsCompleteConsistentAssignment(t *testing.T) {
	db := database.New()
	db.AddModel(mustConstruct(t, []literal.Literal{x, y}, []int64{1, 1}, 1))

	engine := propagate.NewEngine(db, 2)

	result := engine.Solution([]literal.Literal{x, y})
	assert.True(t, result.Admitted)
}

// Solution rejects an assignment that falsifies a live constraint.
func TestSolutionRejectsFalsifyingAssignment(t *testing.T) {
	db := database.New()
	db.AddModel(mustConstruct(t, []literal.Literal{x, y}, []int64{1, 1}, 2))

	engine := propagate.NewEngine(db, 2)

	result := engine.Solution([]literal.Literal{nx, ny})
	assert.False(t, result.Admitted)
}

// Solution rejects a partial assignment even if nothing is falsified:
// saturation must cover every variable, not merely avoid contradiction.
// x on its own never forces y, so propagation saturates one variable short.
func TestSolutionRejectsIncompleteAssignment(t *testing.T) {
	db := database.New()
	db.AddModel(mustConstruct(t, []literal.Literal{x}, []int64{1}, 0))
	db.AddModel(mustConstruct(t, []literal.Literal{y}, []int64{1}, 0))

	engine := propagate.NewEngine(db, 2)

	result := engine.Solution([]literal.Literal{x})
	assert.False(t, result.Admitted)
}

// A partial claim that unit propagation can close out still counts as a
// full solution: claiming only ~x forces y true via the single axiom.
func TestSolutionClosesPartialClaimByPropagation(t *testing.T) {
	db := database.New()
	db.AddModel(mustConstruct(t, []literal.Literal{x, y}, []int64{1, 1}, 1))

	engine := propagate.NewEngine(db, 2)

	result := engine.Solution([]literal.Literal{nx})
	assert.True(t, result.Admitted)
}
