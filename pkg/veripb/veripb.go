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

// Package veripb reads the textual envelope of a VeriPB proof file (spec.md
// §6): the version header, then one kind-prefixed line per step. It drives
// each line through the step interpreter (pkg/pb/proof), tags every line
// with the database id it produced (if any), and hands the tagged sequence
// to the backward minimiser. The inline `coeff lit ... >= degree`/literal
// grammar inside each line remains the interpreter's concern; this package
// owns only line framing and step-id bookkeeping.
package veripb

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/consensys/pbcheck/pkg/pb/database"
	"github.com/consensys/pbcheck/pkg/pb/minimise"
	"github.com/consensys/pbcheck/pkg/pb/proof"
)

const versionPrefix = "pseudo-Boolean proof version"

// ParseError reports a malformed VeriPB proof line, or a step interpreter
// failure, tagged with its 1-based line number.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("veripb:%d: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// producesStep reports whether a line's kind appends a new id to the
// database (spec.md §4.5): only `p`, `u`, `j`, `v` do.
func producesStep(kind string) bool {
	switch kind {
	case "p", "u", "j", "v":
		return true
	default:
		return false
	}
}

// Replay feeds every line of r through interpreter in order. It returns the
// tagged line sequence the backward minimiser (pkg/pb/minimise) consumes,
// and the terminal step id: the operand of the final `c` line, i.e. the
// step the proof claims derives the contradiction.
func Replay(r io.Reader, db *database.Database, interpreter *proof.Interpreter) ([]minimise.Line, uint, error) {
	scanner := bufio.NewScanner(r)

	var lines []minimise.Line

	var terminal uint

	lineNo := 0
	sawHeader := false

	for scanner.Scan() {
		lineNo++

		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		fields := strings.Fields(text)
		kind := fields[0]

		if !sawHeader {
			if !strings.HasPrefix(text, versionPrefix) {
				return nil, 0, &ParseError{Line: lineNo, Err: fmt.Errorf("expected %q header, got %q", versionPrefix, text)}
			}

			sawHeader = true
			lines = append(lines, minimise.Line{Text: text})

			continue
		}

		if err := interpreter.Step(text); err != nil {
			return nil, 0, &ParseError{Line: lineNo, Err: err}
		}

		var stepID uint
		if producesStep(kind) {
			stepID = db.NumConstraints()
		}

		if kind == "c" && len(fields) == 2 {
			if id, err := strconv.ParseUint(fields[1], 10, 64); err == nil {
				terminal = uint(id)
			}
		}

		lines = append(lines, minimise.Line{Text: text, StepID: stepID})
	}

	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("veripb: %w", err)
	}

	if !sawHeader {
		return nil, 0, &ParseError{Line: lineNo, Err: fmt.Errorf("empty proof: missing %q header", versionPrefix)}
	}

	return lines, terminal, nil
}

// Write renders a minimised proof (spec.md §6: header, `f` line, retained
// steps, trailing stats comment — all already present in result.Lines) to
// w, one line per entry.
func Write(w io.Writer, result minimise.Result) error {
	for _, line := range result.Lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return fmt.Errorf("veripb: %w", err)
		}
	}

	return nil
}
