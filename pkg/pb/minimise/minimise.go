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

// Package minimise implements the backward minimiser (C7): a reverse
// reachability sweep over the antecedent record that discards every proof
// step the terminal contradiction does not actually depend on, then
// renumbers and rewrites what remains.
package minimise

import (
	"fmt"
	"math/big"
	"sort"
	"strconv"
	"strings"

	"github.com/consensys/pbcheck/pkg/pb/proof"
)

// Line pairs one original proof line with the step id it produced, if any.
// Lines that do not introduce a step (`f`, `#`, `w`, comments, the header)
// carry StepID zero and are always retained verbatim.
type Line struct {
	Text   string
	StepID uint
}

// Result is a minimised proof: the rewritten lines (including the trailing
// stats comment) plus the counts that comment reports.
type Result struct {
	Lines    []string
	Original uint
	Kept     uint
}

// Ratio returns kept/original as a float in [0,1]; 1.0 if Original is zero.
func (r Result) Ratio() float64 {
	if r.Original == 0 {
		return 1.0
	}

	return float64(r.Kept) / float64(r.Original)
}

// Minimise runs the backward minimiser over lines (the original proof text,
// each tagged with the step id it produced) using recorder's antecedent
// record.  numAxioms is M, the count of model constraints; terminal is the
// step id of the final derivation (the contradiction), the root of the
// reverse reachability sweep.
func Minimise(lines []Line, recorder *proof.Recorder, numAxioms, terminal uint) (Result, error) {
	reachable := backwardReachable(recorder, terminal)

	mapping := renumber(lines, reachable, numAxioms)

	var out []string

	var original, kept uint

	for _, line := range lines {
		if line.StepID == 0 {
			// A "c" line checks an existing step without introducing a new
			// one, but still carries a step-id reference that must follow
			// that step's renumbering.
			rewritten, err := rewriteLine(line.Text, mapping, numAxioms)
			if err != nil {
				return Result{}, fmt.Errorf("line %q: %w", line.Text, err)
			}

			out = append(out, rewritten)

			continue
		}

		original++

		if !reachable[line.StepID] {
			continue
		}

		kept++

		rewritten, err := rewriteLine(line.Text, mapping, numAxioms)
		if err != nil {
			return Result{}, fmt.Errorf("step %d: %w", line.StepID, err)
		}

		out = append(out, rewritten)
	}

	result := Result{Lines: out, Original: original, Kept: kept}
	result.Lines = append(result.Lines, statsComment(result)...)

	return result, nil
}

// backwardReachable returns every step id the terminal step depends on,
// transitively, including the terminal itself.  Ids with no antecedent
// record (axioms, or unrecorded leaves) are included but not expanded
// further.
func backwardReachable(recorder *proof.Recorder, terminal uint) map[uint]bool {
	visited := make(map[uint]bool)

	var visit func(id uint)

	visit = func(id uint) {
		if visited[id] {
			return
		}

		visited[id] = true

		ants, ok := recorder.Antecedents(id)
		if !ok {
			return
		}

		for _, a := range ants {
			visit(a)
		}
	}

	visit(terminal)

	return visited
}

// renumber assigns every kept derived step (id > numAxioms, present in
// reachable) a fresh contiguous id starting at numAxioms+1, in ascending
// original-id order.  Axiom ids map to themselves.
func renumber(lines []Line, reachable map[uint]bool, numAxioms uint) map[uint]uint {
	mapping := make(map[uint]uint)

	var ids []uint

	for _, line := range lines {
		if line.StepID > numAxioms && reachable[line.StepID] {
			ids = append(ids, line.StepID)
		}
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	next := numAxioms + 1
	for _, id := range ids {
		mapping[id] = next
		next++
	}

	return mapping
}

// remap looks up id's new number; axiom ids (<= numAxioms) and any id not
// in mapping (a dropped step referenced only by something itself dropped,
// which cannot happen for a correctly-computed reachable set) pass through
// unchanged.
func remap(id, numAxioms uint, mapping map[uint]uint) uint {
	if id <= numAxioms {
		return id
	}

	if n, ok := mapping[id]; ok {
		return n
	}

	return id
}

// rewriteLine rewrites the integer step-id references inside a kept `p`,
// `j`, or `c` line using mapping; `u`, `v`, `#`, `f`, `w` and comment lines
// carry no step-id references and pass through unchanged (their own kind
// dispatch never reads back a derived id).
func rewriteLine(text string, mapping map[uint]uint, numAxioms uint) (string, error) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return text, nil
	}

	switch fields[0] {
	case "p":
		return rewritePolish(fields, mapping, numAxioms), nil
	case "j":
		return rewriteImplication(fields, mapping, numAxioms)
	case "c":
		return rewriteCheck(fields, mapping, numAxioms)
	default:
		return text, nil
	}
}

// rewritePolish remaps only tokens that parse as plain decimal integers
// greater than numAxioms; literal tokens, operators and axiom references
// stay as-is.  A `*`/`d` scalar is not told apart from a step id, so a
// scalar above numAxioms that equals a kept step id is remapped as well.
func rewritePolish(fields []string, mapping map[uint]uint, numAxioms uint) string {
	out := make([]string, len(fields))
	out[0] = fields[0]

	for i := 1; i < len(fields); i++ {
		tok := fields[i]

		n, ok := new(big.Int).SetString(tok, 10)
		if !ok || n.Sign() <= 0 || !n.IsUint64() {
			out[i] = tok
			continue
		}

		id := uint(n.Uint64())
		if id <= numAxioms {
			out[i] = tok
			continue
		}

		out[i] = strconv.FormatUint(uint64(remap(id, numAxioms, mapping)), 10)
	}

	return strings.Join(out, " ")
}

func rewriteImplication(fields []string, mapping map[uint]uint, numAxioms uint) (string, error) {
	if len(fields) < 2 {
		return "", fmt.Errorf("malformed j line")
	}

	k, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return "", fmt.Errorf("malformed j line antecedent %q: %w", fields[1], err)
	}

	out := append([]string{}, fields...)
	out[1] = strconv.FormatUint(uint64(remap(uint(k), numAxioms, mapping)), 10)

	return strings.Join(out, " "), nil
}

func rewriteCheck(fields []string, mapping map[uint]uint, numAxioms uint) (string, error) {
	if len(fields) != 2 {
		return "", fmt.Errorf("malformed c line")
	}

	k, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return "", fmt.Errorf("malformed c line operand %q: %w", fields[1], err)
	}

	return fmt.Sprintf("c %d", remap(uint(k), numAxioms, mapping)), nil
}

// statsComment renders the trailing three-line comment block spec.md §6
// requires on a minimised proof.
func statsComment(r Result) []string {
	return []string{
		fmt.Sprintf("* no of proof steps: %d", r.Original),
		fmt.Sprintf("* no of short proof steps: %d", r.Kept),
		fmt.Sprintf("* %% of proof steps kept: %.2f", r.Ratio()*100),
	}
}
