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

// Package constraint implements the pseudo-Boolean cutting-planes algebra:
// a single normalised inequality Σ aᵢ·ℓᵢ ≥ d, and the operations (add,
// multiply, generalised division, negation, subtraction) the proof system
// uses to derive new constraints from old ones.  Coefficients and the
// degree are arbitrary-precision, since the cutting-planes rules may
// multiply proof terms without bound.
package constraint

import (
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/consensys/pbcheck/pkg/pb/literal"
)

// Term is a single `coefficient * literal` summand of a constraint.  In
// stored (coefficient-normalised) form, Coeff is always strictly positive.
type Term struct {
	Lit   literal.Literal
	Coeff *big.Int
}

// Assignment models a partial truth assignment τ: a set of literals known
// to hold.  Constraint only ever reads from an Assignment; ownership and
// mutation are the propagation engine's concern (see pkg/pb/propagate).
type Assignment interface {
	// Contains returns true iff l is known to hold under this assignment.
	Contains(l literal.Literal) bool
}

// Constraint is a PB inequality Σ aᵢ·ℓᵢ ≥ d in coefficient-normalised form:
// every coefficient is strictly positive, no variable's literal appears
// with both polarities, and terms are kept sorted by variable id for
// deterministic iteration and equality comparison.  A Constraint is
// immutable once constructed.
type Constraint struct {
	terms  []Term
	degree *big.Int
}

// Degree returns the right-hand side of the inequality.
func (c Constraint) Degree() *big.Int {
	return new(big.Int).Set(c.degree)
}

// Terms returns the (already sorted, coefficient-normalised) summands.
// The returned slice must not be mutated.
func (c Constraint) Terms() []Term {
	return c.terms
}

// Construct builds a coefficient-normalised constraint from parallel
// literal/coefficient slices and a degree.  Literals may repeat (their
// coefficients are summed) and may appear with mixed polarity for the same
// variable; both are resolved during normalisation.
func Construct(lits []literal.Literal, coeffs []*big.Int, degree *big.Int) (Constraint, error) {
	if len(lits) != len(coeffs) {
		return Constraint{}, fmt.Errorf("unequal number of literals (%d) and coefficients (%d)", len(lits), len(coeffs))
	}

	varMap, adjusted := toVarMap(lits, coeffs, degree)

	return fromVarMap(varMap, adjusted), nil
}

// UnitLiteral constructs the unit constraint `1*l >= 0`, used when a bare
// literal token appears as an operand of a Polish ("p") expression.
func UnitLiteral(l literal.Literal) Constraint {
	c, _ := Construct([]literal.Literal{l}, []*big.Int{big.NewInt(1)}, big.NewInt(0))
	return c
}

// Contradiction returns the empty, unconditionally-falsified constraint
// `0 >= 1`, which every "c" (check-contradiction) step ultimately targets.
func Contradiction() Constraint {
	return Constraint{terms: nil, degree: big.NewInt(1)}
}

// Slack returns s(τ) = (Σ coefficients of literals not falsified by τ) − d.
// A negative slack means the constraint is falsified by τ.
func (c Constraint) Slack(tau Assignment) *big.Int {
	sum := big.NewInt(0)

	for _, t := range c.terms {
		if !tau.Contains(t.Lit.Negate()) {
			sum.Add(sum, t.Coeff)
		}
	}

	return sum.Sub(sum, c.degree)
}

// Falsified returns true iff this constraint is falsified by τ (negative
// slack).
func (c Constraint) Falsified(tau Assignment) bool {
	return c.Slack(tau).Sign() < 0
}

// Propagate returns every free literal whose coefficient exceeds the
// current slack — the literals this constraint forces true under τ.  The
// returned order follows term order (ascending variable id), which is
// stable and hence deterministic.
func (c Constraint) Propagate(tau Assignment) []literal.Literal {
	slack := c.Slack(tau)

	var forced []literal.Literal

	for _, t := range c.terms {
		if tau.Contains(t.Lit) || tau.Contains(t.Lit.Negate()) {
			// already satisfied or falsified; not free
			continue
		}

		if t.Coeff.Cmp(slack) > 0 {
			forced = append(forced, t.Lit)
		}
	}

	return forced
}

// Negate returns ¬C: `Σ aᵢ·ℓᵢ ≥ d` becomes `−Σ aᵢ·ℓᵢ ≥ 1−d`, renormalised
// (that is, `Σ aᵢ·¬ℓᵢ ≥ 1−d+Σ aᵢ`; e.g. `x ≥ 1` becomes `¬x ≥ 1`).
//
// Working in literal-normalised form, C is equivalent to `Σ cᵥ·v ≥ d'`; its
// logical complement over the integers is `Σ cᵥ·v ≤ d'-1`, i.e.
// `Σ(-cᵥ)·v ≥ -d'+1`.
func (c Constraint) Negate() Constraint {
	varMap, d := toVarMapFromConstraint(c)

	for v, cv := range varMap {
		varMap[v] = new(big.Int).Neg(cv)
	}

	degree := new(big.Int).Add(new(big.Int).Neg(d), big.NewInt(1))

	return fromVarMap(varMap, degree)
}

// Add returns A + B, computed in literal-normalised form and renormalised.
func Add(a, b Constraint) Constraint {
	varMap, degree := toVarMapFromConstraint(a)
	bMap, bDegree := toVarMapFromConstraint(b)

	for v, c := range bMap {
		if cur, ok := varMap[v]; ok {
			varMap[v] = new(big.Int).Add(cur, c)
		} else {
			varMap[v] = new(big.Int).Set(c)
		}
	}

	degree.Add(degree, bDegree)

	return fromVarMap(varMap, degree)
}

// Subtract returns A − B (B is the subtrahend), i.e. add(A, multiply(B,-1)).
func Subtract(a, b Constraint) Constraint {
	varMap, degree := toVarMapFromConstraint(a)
	bMap, bDegree := toVarMapFromConstraint(b)

	for v, c := range bMap {
		if cur, ok := varMap[v]; ok {
			varMap[v] = new(big.Int).Sub(cur, c)
		} else {
			varMap[v] = new(big.Int).Neg(c)
		}
	}

	degree.Sub(degree, bDegree)

	return fromVarMap(varMap, degree)
}

// Multiply scales every coefficient and the degree by a positive integer k.
func Multiply(a Constraint, k *big.Int) (Constraint, error) {
	if k.Sign() <= 0 {
		return Constraint{}, fmt.Errorf("multiply requires a positive scalar, got %s", k.String())
	}

	varMap, degree := toVarMapFromConstraint(a)

	for v, c := range varMap {
		varMap[v] = new(big.Int).Mul(c, k)
	}

	degree.Mul(degree, k)

	return fromVarMap(varMap, degree), nil
}

// Divide applies the generalised division cutting-planes rule: every
// coefficient and the degree are divided by the positive integer k,
// rounding up (ceiling division).  Sound only for k > 0.
func Divide(a Constraint, k *big.Int) (Constraint, error) {
	if k.Sign() <= 0 {
		return Constraint{}, fmt.Errorf("divide requires a positive scalar, got %s", k.String())
	}

	terms := make([]Term, len(a.terms))

	for i, t := range a.terms {
		terms[i] = Term{Lit: t.Lit, Coeff: ceilDiv(t.Coeff, k)}
	}

	degree := ceilDiv(a.degree, k)

	// Division cannot introduce zero coefficients (ceiling of a positive
	// numerator by a positive divisor is always >= 1), so no further
	// normalisation is required beyond re-sorting (already sorted).
	return Constraint{terms: terms, degree: degree}, nil
}

// Equal returns true iff a and b are identical after coefficient
// normalisation: same literal set, same per-literal coefficient, same
// degree.
func Equal(a, b Constraint) bool {
	if a.degree.Cmp(b.degree) != 0 {
		return false
	}

	if len(a.terms) != len(b.terms) {
		return false
	}

	for i := range a.terms {
		if a.terms[i].Lit != b.terms[i].Lit {
			return false
		}

		if a.terms[i].Coeff.Cmp(b.terms[i].Coeff) != 0 {
			return false
		}
	}

	return true
}

// String renders the constraint as `c1 lit1 c2 lit2 ... >= degree`, with
// terms ordered by variable id, matching the reference implementation's
// textual form.
func (c Constraint) String() string {
	var b strings.Builder

	for i, t := range c.terms {
		if i > 0 {
			b.WriteByte(' ')
		}

		b.WriteString(t.Coeff.String())
		b.WriteByte(' ')

		if t.Lit.IsPositive() {
			fmt.Fprintf(&b, "x%d", t.Lit.Var())
		} else {
			fmt.Fprintf(&b, "~x%d", t.Lit.Var())
		}
	}

	if len(c.terms) > 0 {
		b.WriteByte(' ')
	}

	b.WriteString(">= ")
	b.WriteString(c.degree.String())

	return b.String()
}

// toVarMap accumulates raw (possibly duplicated, possibly mixed-polarity)
// literal/coefficient pairs into a per-variable signed-coefficient map in
// literal-normalised form (every entry relative to the variable's positive
// literal), adjusting degree for every negative-literal term folded in.
func toVarMap(lits []literal.Literal, coeffs []*big.Int, degree *big.Int) (map[uint]*big.Int, *big.Int) {
	m := make(map[uint]*big.Int, len(lits))
	d := new(big.Int).Set(degree)

	for i, lit := range lits {
		v := lit.Var()
		c := coeffs[i]

		cur, ok := m[v]
		if !ok {
			cur = big.NewInt(0)
		}

		if lit.IsPositive() {
			cur = new(big.Int).Add(cur, c)
		} else {
			cur = new(big.Int).Sub(cur, c)
			d = new(big.Int).Sub(d, c)
		}

		m[v] = cur
	}

	return m, d
}

// toVarMapFromConstraint re-derives the literal-normalised var-map from an
// already coefficient-normalised Constraint.
func toVarMapFromConstraint(c Constraint) (map[uint]*big.Int, *big.Int) {
	lits := make([]literal.Literal, len(c.terms))
	coeffs := make([]*big.Int, len(c.terms))

	for i, t := range c.terms {
		lits[i] = t.Lit
		coeffs[i] = t.Coeff
	}

	return toVarMap(lits, coeffs, c.degree)
}

// fromVarMap converts a literal-normalised var-map back into stored
// coefficient-normalised form, flipping any variable with a negative
// coefficient onto its negative literal and adjusting degree accordingly.
func fromVarMap(varMap map[uint]*big.Int, degree *big.Int) Constraint {
	terms := make([]Term, 0, len(varMap))
	d := new(big.Int).Set(degree)

	for v, c := range varMap {
		switch c.Sign() {
		case 0:
			continue
		case 1:
			terms = append(terms, Term{Lit: literal.Literal(v), Coeff: new(big.Int).Set(c)})
		default:
			// flip(v): replace c*v (c<0) with -c*~v, degree -= c
			terms = append(terms, Term{Lit: literal.Literal(-int(v)), Coeff: new(big.Int).Neg(c)})
			d.Sub(d, c)
		}
	}

	sort.Slice(terms, func(i, j int) bool {
		return terms[i].Lit.Var() < terms[j].Lit.Var()
	})

	return Constraint{terms: terms, degree: d}
}

// ceilDiv computes ceil(a/b) for a positive divisor b (a may be any sign,
// though in practice callers only ever divide positive coefficients).
func ceilDiv(a, b *big.Int) *big.Int {
	q, r := new(big.Int), new(big.Int)
	q.QuoRem(a, b, r)

	if r.Sign() != 0 && (r.Sign() > 0) == (b.Sign() > 0) {
		q.Add(q, big.NewInt(1))
	}

	return q
}
