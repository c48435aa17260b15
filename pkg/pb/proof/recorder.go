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

// Package proof implements the step interpreter (C5) and antecedent
// recorder (C6): dispatching one VeriPB proof line at a time against the
// constraint database and propagation engine, and recording, for every
// derived step, which prior steps justified it.
package proof

import (
	"fmt"
	"io"
	"sort"

	"github.com/emicklei/dot"
)

// AntecedentRecord is the justification for one derived step: the set of
// prior step ids that were consulted to admit it.  For RUP and `v` steps
// these are the constraints fired during propagation; for `p` steps the
// numeric operands; for `j` steps the single cited step.
type AntecedentRecord struct {
	StepID      uint
	Antecedents []uint
}

// Recorder accumulates antecedent records in step order and can render them
// in the `.rup` side-band format, or as a dependency graph.  The backward
// minimiser (C7) reads the Recorder itself, not a rendered file.
type Recorder struct {
	records []AntecedentRecord
	index   map[uint][]uint
}

// NewRecorder constructs an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{index: make(map[uint][]uint)}
}

// Record appends the justification for stepID.  Every antecedent id must be
// strictly less than stepID (spec.md's invariant); callers are trusted to
// maintain this since it follows from step ids being assigned in order.
func (r *Recorder) Record(stepID uint, antecedents []uint) {
	cp := make([]uint, len(antecedents))
	copy(cp, antecedents)

	r.records = append(r.records, AntecedentRecord{StepID: stepID, Antecedents: cp})
	r.index[stepID] = cp
}

// Antecedents returns the recorded justification for stepID, if any.
func (r *Recorder) Antecedents(stepID uint) ([]uint, bool) {
	a, ok := r.index[stepID]
	return a, ok
}

// Records returns every record in the order they were appended.
func (r *Recorder) Records() []AntecedentRecord {
	return r.records
}

// WriteTo renders the side-band record as `<id>:<space-separated ids>`
// lines, one per derived step, matching spec.md §6's antecedent side-band
// format (the `.rup` file).
func (r *Recorder) WriteTo(w io.Writer) (int64, error) {
	var written int64

	for _, rec := range r.records {
		n, err := fmt.Fprintf(w, "%d:%s\n", rec.StepID, formatIDs(rec.Antecedents))
		written += int64(n)

		if err != nil {
			return written, err
		}
	}

	return written, nil
}

func formatIDs(ids []uint) string {
	s := ""

	for i, id := range ids {
		if i > 0 {
			s += " "
		}

		s += fmt.Sprintf("%d", id)
	}

	return s
}

// ToDOT renders the antecedent relation as a directed graph, edges running
// from each antecedent to the step it justifies — useful for visually
// inspecting how much of a proof the backward minimiser (C7) actually
// needs to keep.
func (r *Recorder) ToDOT() *dot.Graph {
	g := dot.NewGraph(dot.Directed)

	ids := make([]uint, 0, len(r.index))
	for id := range r.index {
		ids = append(ids, id)
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	nodes := make(map[uint]dot.Node, len(ids))

	node := func(id uint) dot.Node {
		if n, ok := nodes[id]; ok {
			return n
		}

		n := g.Node(fmt.Sprintf("%d", id))
		nodes[id] = n

		return n
	}

	for _, id := range ids {
		for _, a := range r.index[id] {
			g.Edge(node(a), node(id))
		}
	}

	return g
}
