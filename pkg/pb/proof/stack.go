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
	"strings"

	"github.com/consensys/pbcheck/pkg/pb/constraint"
	"github.com/consensys/pbcheck/pkg/pb/database"
	"github.com/consensys/pbcheck/pkg/pb/literal"
	"github.com/consensys/pbcheck/pkg/util/collection/stack"
)

// stripTerminator drops a trailing ";" line terminator from a whitespace-
// split proof line, whether it arrived as its own token ("... >= 1 ;") or
// stuck to the preceding one ("... >= 1;").
func stripTerminator(fields []string) []string {
	if len(fields) == 0 {
		return fields
	}

	last := fields[len(fields)-1]
	if last == ";" {
		return fields[:len(fields)-1]
	}

	if strings.HasSuffix(last, ";") {
		out := append([]string{}, fields[:len(fields)-1]...)
		return append(out, strings.TrimSuffix(last, ";"))
	}

	return fields
}

// entryKind tags what a Polish stack slot currently holds.  An integer
// token is pushed in an ambiguous state: it denotes a step id when an
// operand of `+`/`-`, but a bare scalar when consumed by `*`/`d` — so the
// stack entry itself stays untyped until an operator resolves it.
type entryKind int

const (
	intEntry entryKind = iota
	literalEntry
	constraintEntry
)

type stackEntry struct {
	kind   entryKind
	intVal *big.Int
	lit    literal.Literal
	con    constraint.Constraint
}

// evalPolish evaluates a `p`-step expression (spec.md §4.5) against db and
// table, returning the resulting constraint and the numeric antecedents
// (step ids) consulted while building it.
func evalPolish(tokens []string, db *database.Database, table *literal.Table) (constraint.Constraint, []uint, error) {
	tokens = stripTerminator(tokens)
	s := stack.NewStack[stackEntry]()

	var antecedents []uint

	for _, tok := range tokens {
		switch tok {
		case "+":
			if err := applyBinary(s, &antecedents, db, constraint.Add); err != nil {
				return constraint.Constraint{}, nil, err
			}
		case "-":
			if err := applyBinary(s, &antecedents, db, constraint.Subtract); err != nil {
				return constraint.Constraint{}, nil, err
			}
		case "*":
			if err := applyScale(s, &antecedents, db, constraint.Multiply); err != nil {
				return constraint.Constraint{}, nil, err
			}
		case "d":
			if err := applyScale(s, &antecedents, db, constraint.Divide); err != nil {
				return constraint.Constraint{}, nil, err
			}
		default:
			entry, err := pushOperand(tok, table)
			if err != nil {
				return constraint.Constraint{}, nil, err
			}

			s.Push(entry)
		}
	}

	if s.Len() != 1 {
		return constraint.Constraint{}, nil, fmt.Errorf("polish expression left %d values on the stack, expected 1", s.Len())
	}

	c, id, err := resolveConstraint(s.Pop(), db)
	if err != nil {
		return constraint.Constraint{}, nil, err
	}

	if id != nil {
		antecedents = append(antecedents, *id)
	}

	return c, antecedents, nil
}

// pushOperand classifies a raw token: a decimal integer is pushed
// ambiguously (step id or scalar, resolved later); anything else is a
// literal token (optionally `~`-prefixed).
func pushOperand(tok string, table *literal.Table) (stackEntry, error) {
	if n, ok := new(big.Int).SetString(tok, 10); ok {
		return stackEntry{kind: intEntry, intVal: n}, nil
	}

	l, ok := table.Lookup(tok)
	if !ok {
		return stackEntry{}, fmt.Errorf("polish expression references unknown literal %q", tok)
	}

	return stackEntry{kind: literalEntry, lit: l}, nil
}

// resolveConstraint turns a stack entry into a constraint.  For an intEntry
// this means dereferencing a step id, and the id is returned as a numeric
// antecedent; for a literalEntry it is the unit constraint `1*l >= 0`; a
// constraintEntry (the result of a prior operator) is returned unchanged.
func resolveConstraint(e stackEntry, db *database.Database) (constraint.Constraint, *uint, error) {
	switch e.kind {
	case intEntry:
		if e.intVal.Sign() <= 0 || !e.intVal.IsUint64() {
			return constraint.Constraint{}, nil, fmt.Errorf("polish expression references invalid step id %s", e.intVal.String())
		}

		id := uint(e.intVal.Uint64())

		c, ok := db.Get(id)
		if !ok {
			return constraint.Constraint{}, nil, fmt.Errorf("polish expression references unknown or dead step %d", id)
		}

		return c, &id, nil
	case literalEntry:
		return constraint.UnitLiteral(e.lit), nil, nil
	default:
		return e.con, nil, nil
	}
}

// resolveScalar turns a stack entry into the positive scalar `*`/`d`
// require; only a bare integer token can serve as a scalar.
func resolveScalar(e stackEntry) (*big.Int, error) {
	if e.kind != intEntry {
		return nil, fmt.Errorf("expected a scalar operand, got a constraint")
	}

	return e.intVal, nil
}

func applyBinary(
	s *stack.Stack[stackEntry],
	antecedents *[]uint,
	db *database.Database,
	op func(a, b constraint.Constraint) constraint.Constraint,
) error {
	if s.Len() < 2 {
		return fmt.Errorf("operator requires two operands, found %d", s.Len())
	}

	bEntry := s.Pop()
	aEntry := s.Pop()

	b, bID, err := resolveConstraint(bEntry, db)
	if err != nil {
		return err
	}

	a, aID, err := resolveConstraint(aEntry, db)
	if err != nil {
		return err
	}

	if aID != nil {
		*antecedents = append(*antecedents, *aID)
	}

	if bID != nil {
		*antecedents = append(*antecedents, *bID)
	}

	s.Push(stackEntry{kind: constraintEntry, con: op(a, b)})

	return nil
}

func applyScale(
	s *stack.Stack[stackEntry],
	antecedents *[]uint,
	db *database.Database,
	op func(a constraint.Constraint, k *big.Int) (constraint.Constraint, error),
) error {
	if s.Len() < 2 {
		return fmt.Errorf("operator requires a constraint and a scalar, found %d values", s.Len())
	}

	scalarEntry := s.Pop()
	constraintOperand := s.Pop()

	k, err := resolveScalar(scalarEntry)
	if err != nil {
		return err
	}

	a, aID, err := resolveConstraint(constraintOperand, db)
	if err != nil {
		return err
	}

	if aID != nil {
		*antecedents = append(*antecedents, *aID)
	}

	result, err := op(a, k)
	if err != nil {
		return err
	}

	s.Push(stackEntry{kind: constraintEntry, con: result})

	return nil
}

// parseConstraintLiterals parses a `c1 lit1 c2 lit2 ... >= d` textual
// constraint (the OPB/VeriPB inline constraint form used by `u` and `j`
// lines) into parallel literal/coefficient slices and a degree.
func parseConstraintLiterals(fields []string, table *literal.Table) ([]literal.Literal, []*big.Int, *big.Int, error) {
	fields = stripTerminator(fields)
	gteIdx := -1

	for i, f := range fields {
		if f == ">=" {
			gteIdx = i
			break
		}
	}

	if gteIdx < 0 || gteIdx%2 != 0 {
		return nil, nil, nil, fmt.Errorf("malformed constraint: missing or misplaced \">=\"")
	}

	if gteIdx+2 != len(fields) {
		return nil, nil, nil, fmt.Errorf("malformed constraint: expected a single degree after \">=\"")
	}

	degree, ok := new(big.Int).SetString(fields[gteIdx+1], 10)
	if !ok {
		return nil, nil, nil, fmt.Errorf("malformed constraint: invalid degree %q", fields[gteIdx+1])
	}

	n := gteIdx / 2
	lits := make([]literal.Literal, n)
	coeffs := make([]*big.Int, n)

	for i := 0; i < n; i++ {
		c, ok := new(big.Int).SetString(fields[2*i], 10)
		if !ok {
			return nil, nil, nil, fmt.Errorf("malformed constraint: invalid coefficient %q", fields[2*i])
		}

		l, ok := table.Lookup(fields[2*i+1])
		if !ok {
			l = table.Intern(fields[2*i+1])
		}

		coeffs[i] = c
		lits[i] = l
	}

	return lits, coeffs, degree, nil
}
