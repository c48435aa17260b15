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

// Package opb parses OPB model files (spec.md §6): a `#variable= N
// #constraint= M` header followed by `*`-commented lines and one
// `coeff lit coeff lit ... >= degree ;` constraint per line.
package opb

import (
	"bufio"
	"fmt"
	"io"
	"math/big"
	"regexp"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/consensys/pbcheck/pkg/pb/constraint"
	"github.com/consensys/pbcheck/pkg/pb/database"
	"github.com/consensys/pbcheck/pkg/pb/literal"
)

// ParseError reports a malformed OPB line, tagged with its 1-based line
// number in the source file (spec.md §7's ParseError kind).
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("opb:%d: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Header is the parsed `#variable= N #constraint= M` declaration.
type Header struct {
	NumVariables   uint
	NumConstraints uint
}

var lineLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Relation", Pattern: `>=`},
	{Name: "Semicolon", Pattern: `;`},
	{Name: "Number", Pattern: `[-+]?[0-9]+`},
	{Name: "Ident", Pattern: `~?[A-Za-z_][A-Za-z0-9_]*`},
	{Name: "Whitespace", Pattern: `[ \t\r\n]+`},
})

// term is one `coeff lit` pair in a constraint line.
type term struct {
	Coeff string `@Number`
	Lit   string `@Ident`
}

// constraintLine is the grammar for a single OPB constraint.
type constraintLine struct {
	Terms  []*term `@@+`
	Degree string  `">=" @Number ";"`
}

var lineParser = participle.MustBuild[constraintLine](
	participle.Lexer(lineLexer),
	participle.Elide("Whitespace"),
)

var headerPattern = regexp.MustCompile(`#variable\s*=\s*(\d+)\s*#constraint\s*=\s*(\d+)`)

// Parse reads an OPB model from r.  Every variable name encountered is
// interned into table; every constraint line becomes a model axiom in db,
// in file order, so OPB line k becomes database id k.  The returned Header
// reflects whatever `#variable=`/`#constraint=` declaration was found, if
// any; a declared constraint count that disagrees with what was actually
// parsed is a fatal format error.
func Parse(r io.Reader, table *literal.Table, db *database.Database) (Header, error) {
	scanner := bufio.NewScanner(r)

	var header Header

	haveHeader := false
	lineNo := 0

	for scanner.Scan() {
		lineNo++

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if m := headerPattern.FindStringSubmatch(line); m != nil {
			nv, _ := strconv.ParseUint(m[1], 10, 64)
			nc, _ := strconv.ParseUint(m[2], 10, 64)
			header = Header{NumVariables: uint(nv), NumConstraints: uint(nc)}
			haveHeader = true

			continue
		}

		if strings.HasPrefix(line, "*") {
			continue
		}

		if err := parseConstraintLine(line, table, db); err != nil {
			return header, &ParseError{Line: lineNo, Err: err}
		}
	}

	if err := scanner.Err(); err != nil {
		return header, fmt.Errorf("opb: %w", err)
	}

	if haveHeader && header.NumConstraints != db.NumModel() {
		return header, &ParseError{
			Line: lineNo,
			Err:  fmt.Errorf("declared constraint count %d does not match parsed count %d", header.NumConstraints, db.NumModel()),
		}
	}

	return header, nil
}

func parseConstraintLine(line string, table *literal.Table, db *database.Database) error {
	parsed, err := lineParser.ParseString("", line)
	if err != nil {
		return fmt.Errorf("malformed constraint: %w", err)
	}

	lits := make([]literal.Literal, len(parsed.Terms))
	coeffs := make([]*big.Int, len(parsed.Terms))

	for i, t := range parsed.Terms {
		c, ok := new(big.Int).SetString(t.Coeff, 10)
		if !ok {
			return fmt.Errorf("invalid coefficient %q", t.Coeff)
		}

		coeffs[i] = c
		lits[i] = table.Intern(t.Lit)
	}

	degree, ok := new(big.Int).SetString(parsed.Degree, 10)
	if !ok {
		return fmt.Errorf("invalid degree %q", parsed.Degree)
	}

	c, err := constraint.Construct(lits, coeffs, degree)
	if err != nil {
		return fmt.Errorf("unbalanced coeff/lit pairing: %w", err)
	}

	db.AddModel(c)

	return nil
}
