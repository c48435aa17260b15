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
package proof_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/consensys/pbcheck/pkg/pb/constraint"
	"github.com/consensys/pbcheck/pkg/pb/database"
	"github.com/consensys/pbcheck/pkg/pb/literal"
	"github.com/consensys/pbcheck/pkg/pb/proof"
	"github.com/consensys/pbcheck/pkg/pb/propagate"
)

func setup(t *testing.T) (*database.Database, *literal.Table, *proof.Interpreter) {
	t.Helper()

	table := literal.NewTable()
	table.Intern("x1")
	table.Intern("x2")

	db := database.New()
	engine := propagate.NewEngine(db, table.NumLiterals())
	ip := proof.NewInterpreter(db, table, engine)

	return db, table, ip
}

func TestDeclareAxiomCountMustMatch(t *testing.T) {
	db, _, ip := setup(t)
	db.AddModel(constraint.UnitLiteral(1))

	require.NoError(t, ip.Step("f 1"))
	assert.Error(t, ip.Step("f 2"))
}

func TestSetLevelAffectsSubsequentDerivations(t *testing.T) {
	db, _, ip := setup(t)
	db.AddModel(constraint.UnitLiteral(1))

	require.NoError(t, ip.Step("# 3"))
	require.NoError(t, ip.Step("p 1"))

	assert.Equal(t, uint(3), db.Level(2))
}

// Multi-step Polish scenario: derive a duplicate of axiom 1 via a bare
// Polish reference, then derive the sum of axioms 1 and 2.
func TestPolishDuplicateAndAdd(t *testing.T) {
	db, _, ip := setup(t)
	db.AddModel(constraint.UnitLiteral(1)) // id 1: x1 >= 0
	db.AddModel(constraint.UnitLiteral(2)) // id 2: x2 >= 0

	require.NoError(t, ip.Step("p 1"))
	require.NoError(t, ip.Step("p 1 2 +"))

	c3, ok := db.Get(3)
	require.True(t, ok)
	assert.True(t, constraint.Equal(c3, constraint.UnitLiteral(1)))

	c4, ok := db.Get(4)
	require.True(t, ok)
	expected := constraint.Add(constraint.UnitLiteral(1), constraint.UnitLiteral(2))
	assert.True(t, constraint.Equal(c4, expected))

	ants, ok := ip.Recorder().Antecedents(4)
	require.True(t, ok)
	assert.ElementsMatch(t, []uint{1, 2}, ants)
}

func TestPolishMultiplyAndDivide(t *testing.T) {
	db, _, ip := setup(t)
	db.AddModel(constraint.UnitLiteral(1))

	require.NoError(t, ip.Step("p 1 3 *"))
	require.NoError(t, ip.Step("p 2 2 d"))

	c2, ok := db.Get(2)
	require.True(t, ok)
	expectedMul, _ := constraint.Multiply(constraint.UnitLiteral(1), big.NewInt(3))
	assert.True(t, constraint.Equal(c2, expectedMul))

	c3, ok := db.Get(3)
	require.True(t, ok)
	expectedDiv, _ := constraint.Divide(c2, big.NewInt(2))
	assert.True(t, constraint.Equal(c3, expectedDiv))
}

// S2: RUP-admit should succeed only when the negated candidate propagates
// to a falsified axiom.
func TestRUPStepSucceedsAndFails(t *testing.T) {
	db, table, ip := setup(t)

	x1, ok := table.Lookup("x1")
	require.True(t, ok)

	axiom, err := constraint.Construct([]literal.Literal{x1}, []*big.Int{big.NewInt(1)}, big.NewInt(1))
	require.NoError(t, err)
	db.AddModel(axiom)

	require.NoError(t, ip.Step("u 1 x1 >= 1"))

	_, ok = db.Get(2)
	require.True(t, ok)

	assert.Error(t, ip.Step("u 1 x2 >= 1"))
}

func TestImplicationStepIsTrusted(t *testing.T) {
	db, _, ip := setup(t)
	db.AddModel(constraint.UnitLiteral(1))

	require.NoError(t, ip.Step("j 1 1 x1 >= 1"))

	ants, ok := ip.Recorder().Antecedents(2)
	require.True(t, ok)
	assert.Equal(t, []uint{1}, ants)
}

func TestSolutionStepAppendsBlockingClause(t *testing.T) {
	db, _, ip := setup(t)
	db.AddModel(constraint.UnitLiteral(1)) // x1 >= 0, trivially true

	require.NoError(t, ip.Step("v x1 x2"))

	_, ok := db.Get(2)
	assert.True(t, ok)
}

func TestCheckContradictionStep(t *testing.T) {
	db, _, ip := setup(t)
	db.AddModel(constraint.Contradiction())

	assert.NoError(t, ip.Step("c 1"))
}

func TestCheckContradictionFailsIfNotFalsified(t *testing.T) {
	db, _, ip := setup(t)
	db.AddModel(constraint.UnitLiteral(1))

	assert.Error(t, ip.Step("c 1"))
}

func TestWipeoutTombstonesLevel(t *testing.T) {
	db, _, ip := setup(t)
	db.AddModel(constraint.UnitLiteral(1))

	require.NoError(t, ip.Step("# 2"))
	require.NoError(t, ip.Step("p 1"))
	require.NoError(t, ip.Step("w 2"))

	assert.False(t, db.IsLive(2))
}

func TestCommentAndHeaderAreNoops(t *testing.T) {
	_, _, ip := setup(t)

	assert.NoError(t, ip.Step("* a comment"))
	assert.NoError(t, ip.Step("pseudo-Boolean proof version 1.0"))
}
