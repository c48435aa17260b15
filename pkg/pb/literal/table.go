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

// Package literal interns the textual variable names occurring in an OPB
// model or VeriPB proof into small signed integer identifiers.
package literal

import "strings"

// Literal is a non-zero signed integer.  Positive v means variable v is
// true; negative -v means it is false.
type Literal int

// Negate returns the logical negation of a literal.
func (l Literal) Negate() Literal {
	return -l
}

// Var returns the underlying (always positive) variable identifier.
func (l Literal) Var() uint {
	if l < 0 {
		return uint(-l)
	}

	return uint(l)
}

// IsPositive returns true iff this literal asserts its variable true.
func (l Literal) IsPositive() bool {
	return l > 0
}

// Table interns textual variable names (optionally `~`-prefixed for
// negation) into Literal values.  New names are assigned the next free
// variable id; there is no deletion.
type Table struct {
	// forward maps a bare variable name to its positive id.
	forward map[string]uint
	// reverse maps a positive id back to its variable name.
	reverse []string
}

// NewTable constructs an empty literal table.
func NewTable() *Table {
	return &Table{
		forward: make(map[string]uint),
	}
}

// Intern looks up (or creates) the Literal for a token.  A token prefixed
// with `~` denotes the negated literal of the underlying variable.
func (t *Table) Intern(token string) Literal {
	name, negated := splitToken(token)

	id, ok := t.forward[name]
	if !ok {
		t.reverse = append(t.reverse, name)
		id = uint(len(t.reverse))
		t.forward[name] = id
	}

	if negated {
		return Literal(-int(id))
	}

	return Literal(id)
}

// Lookup returns the Literal for a token without creating a new entry; ok
// is false if the variable was never interned.
func (t *Table) Lookup(token string) (lit Literal, ok bool) {
	name, negated := splitToken(token)

	id, found := t.forward[name]
	if !found {
		return 0, false
	}

	if negated {
		return Literal(-int(id)), true
	}

	return Literal(id), true
}

// Name returns the textual name of the variable underlying a literal, with
// a leading `~` if the literal is negative.
func (t *Table) Name(l Literal) string {
	name := t.reverse[l.Var()-1]

	if !l.IsPositive() {
		return "~" + name
	}

	return name
}

// NumLiterals returns the number of distinct variables interned so far
// (spec.md's `no_of_literals`).
func (t *Table) NumLiterals() uint {
	return uint(len(t.reverse))
}

func splitToken(token string) (name string, negated bool) {
	if strings.HasPrefix(token, "~") {
		return token[1:], true
	}

	return token, false
}
