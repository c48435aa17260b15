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
package literal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInternNewVariable(t *testing.T) {
	tbl := NewTable()

	x := tbl.Intern("x1")
	assert.Equal(t, Literal(1), x)
	assert.Equal(t, uint(1), tbl.NumLiterals())
}

func TestInternNegation(t *testing.T) {
	tbl := NewTable()

	x := tbl.Intern("x1")
	nx := tbl.Intern("~x1")
	assert.Equal(t, x.Negate(), nx)
	assert.Equal(t, uint(1), tbl.NumLiterals(), "negation must not create a second variable")
}

func TestInternIsStable(t *testing.T) {
	tbl := NewTable()

	a := tbl.Intern("a")
	b := tbl.Intern("b")
	a2 := tbl.Intern("a")

	assert.Equal(t, a, a2)
	assert.NotEqual(t, a, b)
}

func TestLookupMissing(t *testing.T) {
	tbl := NewTable()

	_, ok := tbl.Lookup("unknown")
	assert.False(t, ok)
}

func TestName(t *testing.T) {
	tbl := NewTable()

	x := tbl.Intern("foo")
	assert.Equal(t, "foo", tbl.Name(x))
	assert.Equal(t, "~foo", tbl.Name(x.Negate()))
}
