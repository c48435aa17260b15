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
package proof

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/consensys/pbcheck/pkg/pb/constraint"
	"github.com/consensys/pbcheck/pkg/pb/database"
	"github.com/consensys/pbcheck/pkg/pb/literal"
	"github.com/consensys/pbcheck/pkg/pb/propagate"
)

// Interpreter is the step interpreter (C5): it consumes one proof line at
// a time, consults the propagation engine (C4) for the RUP and solution
// side conditions, mutates the database (C3), and hands every derived
// step's justification to the antecedent recorder (C6).
type Interpreter struct {
	db       *database.Database
	table    *literal.Table
	engine   *propagate.Engine
	recorder *Recorder
	level    uint
	axioms   uint
	log      *logrus.Entry
}

// NewInterpreter constructs a step interpreter over an already-populated
// database (model constraints parsed) and literal table.
func NewInterpreter(db *database.Database, table *literal.Table, engine *propagate.Engine) *Interpreter {
	return &Interpreter{
		db:       db,
		table:    table,
		engine:   engine,
		recorder: NewRecorder(),
		log:      logrus.WithField("component", "proof"),
	}
}

// Recorder exposes the antecedent side-band accumulated so far.
func (ip *Interpreter) Recorder() *Recorder {
	return ip.recorder
}

// Level returns the currently active proof level.
func (ip *Interpreter) Level() uint {
	return ip.level
}

// Step dispatches a single proof line per spec.md §4.5's kind table.
func (ip *Interpreter) Step(line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	fields := strings.Fields(line)
	kind := fields[0]

	switch {
	case strings.HasPrefix(kind, "pseudo"):
		return nil
	case kind == "*":
		return nil
	case kind == "f":
		return ip.declareAxiomCount(fields)
	case kind == "#":
		return ip.setLevel(fields)
	case kind == "p":
		return ip.polish(fields)
	case kind == "u":
		return ip.rup(fields)
	case kind == "j":
		return ip.implication(fields)
	case kind == "v":
		return ip.solution(fields)
	case kind == "c":
		return ip.checkContradiction(fields)
	case kind == "w":
		return ip.wipeout(fields)
	default:
		return fmt.Errorf("unrecognised proof step kind %q", kind)
	}
}

func (ip *Interpreter) declareAxiomCount(fields []string) error {
	if len(fields) != 2 {
		return fmt.Errorf("malformed \"f\" step: expected one operand")
	}

	n, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return fmt.Errorf("malformed \"f\" step: %w", err)
	}

	if uint(n) != ip.db.NumModel() {
		return &CountMismatchError{Declared: uint(n), Parsed: ip.db.NumModel()}
	}

	ip.axioms = uint(n)

	return nil
}

func (ip *Interpreter) setLevel(fields []string) error {
	if len(fields) != 2 {
		return fmt.Errorf("malformed \"#\" step: expected one operand")
	}

	l, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return fmt.Errorf("malformed \"#\" step: %w", err)
	}

	ip.level = uint(l)

	return nil
}

// polish handles a `p expr` cutting-planes derivation.
func (ip *Interpreter) polish(fields []string) error {
	c, antecedents, err := evalPolish(fields[1:], ip.db, ip.table)
	if err != nil {
		return fmt.Errorf("p step: %w", err)
	}

	id := ip.db.Add(c, ip.level)
	ip.recorder.Record(id, antecedents)
	ip.log.WithFields(logrus.Fields{"step": id, "kind": "p"}).Debug("admitted cutting-planes derivation")

	return nil
}

// rup handles a `u C` RUP-admit step: `rup(¬C)` must succeed against the
// live database before C may be appended.
func (ip *Interpreter) rup(fields []string) error {
	lits, coeffs, degree, err := parseConstraintLiterals(fields[1:], ip.table)
	if err != nil {
		return fmt.Errorf("u step: %w", err)
	}

	ip.engine.SetNumVars(ip.table.NumLiterals())

	c, err := constraint.Construct(lits, coeffs, degree)
	if err != nil {
		return fmt.Errorf("u step: %w", err)
	}

	result := ip.engine.RUP(c)
	if !result.Admitted {
		return &RUPFailureError{Candidate: c.String()}
	}

	id := ip.db.Add(c, ip.level)
	ip.recorder.Record(id, result.Fired)
	ip.log.WithFields(logrus.Fields{"step": id, "kind": "u"}).Debug("admitted by reverse unit propagation")

	return nil
}

// implication handles a `j k C` step: C is trusted given antecedent k, with
// no side condition beyond successful parsing (spec.md §4.5).
func (ip *Interpreter) implication(fields []string) error {
	if len(fields) < 3 {
		return fmt.Errorf("j step: expected an antecedent step id and a constraint")
	}

	k, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return fmt.Errorf("j step: malformed antecedent %q: %w", fields[1], err)
	}

	lits, coeffs, degree, err := parseConstraintLiterals(fields[2:], ip.table)
	if err != nil {
		return fmt.Errorf("j step: %w", err)
	}

	ip.engine.SetNumVars(ip.table.NumLiterals())

	c, err := constraint.Construct(lits, coeffs, degree)
	if err != nil {
		return fmt.Errorf("j step: %w", err)
	}

	id := ip.db.Add(c, ip.level)
	ip.recorder.Record(id, []uint{uint(k)})
	ip.log.WithFields(logrus.Fields{"step": id, "kind": "j", "antecedent": k}).Debug("admitted by trusted implication")

	return nil
}

// solution handles a `v l1 ... ln` claimed-full-model step: on success the
// blocking clause (the disjunction of the negation of every claimed
// literal) is appended so later search cannot rediscover the same model.
func (ip *Interpreter) solution(fields []string) error {
	lits := make([]literal.Literal, 0, len(fields)-1)

	for _, tok := range fields[1:] {
		l, ok := ip.table.Lookup(tok)
		if !ok {
			return fmt.Errorf("v step: unknown literal %q", tok)
		}

		lits = append(lits, l)
	}

	result := ip.engine.Solution(lits)
	if !result.Admitted {
		return &InvalidSolutionError{}
	}

	blocking := blockingClause(lits)
	id := ip.db.Add(blocking, ip.level)
	ip.recorder.Record(id, result.Fired)
	ip.log.WithFields(logrus.Fields{"step": id, "kind": "v"}).Debug("accepted full model claim")

	return nil
}

// blockingClause builds `Σ ¬ℓᵢ >= 1`, the negation of the claimed
// assignment, so a future search cannot re-derive the identical model.
func blockingClause(lits []literal.Literal) constraint.Constraint {
	negated := make([]literal.Literal, len(lits))
	coeffs := make([]*big.Int, len(lits))

	for i, l := range lits {
		negated[i] = l.Negate()
		coeffs[i] = big.NewInt(1)
	}

	c, _ := constraint.Construct(negated, coeffs, big.NewInt(1))

	return c
}

// checkContradiction handles a `c k` step: constraint k must already be
// falsified by the empty assignment (i.e. its coefficients sum to less than
// its degree, as in `0 >= 1`).
func (ip *Interpreter) checkContradiction(fields []string) error {
	if len(fields) != 2 {
		return fmt.Errorf("c step: expected one operand")
	}

	k, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return fmt.Errorf("c step: malformed step id %q: %w", fields[1], err)
	}

	c, ok := ip.db.Get(uint(k))
	if !ok {
		return fmt.Errorf("c step: step %d is unknown or dead", k)
	}

	if !c.Falsified(emptyAssignment{}) {
		return &ContradictionAbsentError{StepID: uint(k)}
	}

	ip.log.WithFields(logrus.Fields{"step": k, "kind": "c"}).Debug("contradiction confirmed")

	return nil
}

// wipeout handles a `w L` step: tombstone every derived step at or above
// level L.
func (ip *Interpreter) wipeout(fields []string) error {
	if len(fields) != 2 {
		return fmt.Errorf("w step: expected one operand")
	}

	l, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return fmt.Errorf("w step: malformed level %q: %w", fields[1], err)
	}

	wiped := ip.db.WipeoutLevel(uint(l), ip.db.NumConstraints())
	ip.log.WithFields(logrus.Fields{"level": l, "count": len(wiped)}).Debug("wiped out proof level")

	return nil
}

// emptyAssignment is the vacuous τ = ∅ used by the `c` step's contradiction
// check.
type emptyAssignment struct{}

func (emptyAssignment) Contains(literal.Literal) bool { return false }
