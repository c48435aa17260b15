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
package propagate

import (
	lru "github.com/hashicorp/golang-lru/v2"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/sirupsen/logrus"

	"github.com/consensys/pbcheck/pkg/pb/constraint"
	"github.com/consensys/pbcheck/pkg/pb/database"
	"github.com/consensys/pbcheck/pkg/pb/literal"
)

// coreCacheSize bounds the recency cache layered on top of the
// known-to-propagate core; it only affects scan order, never soundness.
const coreCacheSize = 4096

// Result is the outcome of a RUP decision or solution check: whether it
// succeeded, and the ordered list of antecedent ids that justified it.
type Result struct {
	Admitted bool
	Fired    []uint
}

// Engine decides the RUP side condition and the `v`-step solution check
// against a Database.  It owns the "known-to-propagate" heuristic cache
// itself (spec.md §9: not a hidden global); the cache is mutated only from
// the Engine's own methods and execution is assumed single-threaded.
type Engine struct {
	db      *database.Database
	numVars uint
	// core holds every id that has ever fired in a previous RUP call.
	core mapset.Set[uint]
	// recent is a bounded LRU recording the most recently fired ids,
	// consulted before the full core so that hot constraints are found
	// fast even once the core itself grows large.
	recent *lru.Cache[uint, struct{}]
	log    *logrus.Entry
}

// NewEngine constructs a propagation engine over db, for a model with
// numVars distinct variables.
func NewEngine(db *database.Database, numVars uint) *Engine {
	recent, _ := lru.New[uint, struct{}](coreCacheSize)

	return &Engine{
		db:      db,
		numVars: numVars,
		core:    mapset.NewThreadUnsafeSet[uint](),
		recent:  recent,
		log:     logrus.WithField("component", "propagate"),
	}
}

// SetNumVars updates the variable count backing Solution's completeness
// check and Assignment sizing.  The literal table can grow mid-replay (a
// `u`/`j` line may intern a variable absent from the model), so the caller
// re-syncs this after any step that might have interned a fresh literal.
func (e *Engine) SetNumVars(numVars uint) {
	e.numVars = numVars
}

// promote records ids as known to propagate, to be tried first in future
// calls.  This is purely a performance heuristic; it never changes which
// constraints are found, only the order they are tried.
func (e *Engine) promote(ids []uint) {
	for _, id := range ids {
		e.core.Add(id)
		e.recent.Add(id, struct{}{})
	}
}

// orderedCore returns the current known-to-propagate core, most-recently-
// fired first, for use as the first scan pass.
func (e *Engine) orderedCore() []uint {
	ordered := make([]uint, 0, e.core.Cardinality())

	// Keys() lists the cache from oldest to newest; walk it backwards.
	keys := e.recent.Keys()
	for i := len(keys) - 1; i >= 0; i-- {
		ordered = append(ordered, keys[i])
	}

	e.core.Each(func(id uint) bool {
		if !e.recent.Contains(id) {
			ordered = append(ordered, id)
		}

		return false
	})

	return ordered
}

// RUP decides whether candidate is admissible by reverse unit propagation
// against the database's current live constraints: τ is seeded from
// ¬candidate, then falsification/core-first/full propagation alternate
// until either a contradiction is found (admit) or propagation saturates
// without one (reject).  See spec.md §4.4.
func (e *Engine) RUP(candidate constraint.Constraint) Result {
	neg := candidate.Negate()
	tau := NewAssignment(e.numVars)
	tau.AddAll(neg.Propagate(tau))

	return e.run(tau, neg, e.db.LiveIDs, func(id uint) (constraint.Constraint, bool) {
		return e.db.Get(id)
	})
}

// RUPAsOf is the backward variant of RUP, for re-deriving a step during a
// reverse replay: it consults time-of-death so constraints tombstoned before
// stepID are treated as absent, exactly as they were when stepID was first
// admitted.  The minimiser (pkg/pb/minimise) does not call it; it works from
// the antecedent record alone.
func (e *Engine) RUPAsOf(candidate constraint.Constraint, stepID uint) Result {
	neg := candidate.Negate()
	tau := NewAssignment(e.numVars)
	tau.AddAll(neg.Propagate(tau))

	return e.run(tau, neg, func() []uint { return e.db.IDsAsOf(stepID) }, func(id uint) (constraint.Constraint, bool) {
		return e.db.GetAsOf(id, stepID)
	})
}

// run implements the shared falsify/core-first/full/saturate loop; liveIDs
// and get abstract over the forward (current database state) and backward
// (as-of a historical step) variants.  neg is the negated RUP candidate
// itself: once the database scan finds nothing falsified, neg is checked
// too, since tau may falsify it without falsifying any single live
// constraint (original_source/stack_model.py's `rup_constraint.is_unsatisfied`
// check).
func (e *Engine) run(tau *Assignment, neg constraint.Constraint, liveIDs func() []uint, get func(uint) (constraint.Constraint, bool)) Result {
	var fired []uint

	for {
		ids := liveIDs()

		// 1. Falsification check, ascending id order.
		for _, id := range ids {
			c, ok := get(id)
			if !ok {
				continue
			}

			if c.Falsified(tau) {
				fired = append(fired, id)
				e.promote(fired)

				return Result{Admitted: true, Fired: fired}
			}
		}

		if neg.Falsified(tau) {
			e.promote(fired)

			return Result{Admitted: true, Fired: fired}
		}

		// 2. Core-first propagation.
		if e.stepPropagate(tau, e.orderedCore(), get, &fired) {
			continue
		}

		// 3. Full propagation over every live id.  Core ids are scanned
		// again, but they were just tried under the same tau and cannot fire.
		if e.stepPropagate(tau, ids, get, &fired) {
			continue
		}

		// 4. Saturation: no constraint falsifies or propagates.
		return Result{Admitted: false, Fired: fired}
	}
}

// stepPropagate scans candidates in order and, on the first one that
// forces new literals, extends tau, appends its id to fired, and returns
// true (the caller should restart the outer loop).
func (e *Engine) stepPropagate(tau *Assignment, candidates []uint, get func(uint) (constraint.Constraint, bool), fired *[]uint) bool {
	for _, id := range candidates {
		c, ok := get(id)
		if !ok {
			continue
		}

		forced := c.Propagate(tau)
		if len(forced) == 0 {
			continue
		}

		tau.AddAll(forced)
		*fired = append(*fired, id)
		e.promote([]uint{id})

		return true
	}

	return false
}

// Solution checks a claimed full assignment (spec.md's `v` step): tau is
// seeded directly from the claimed literals, then unit-propagated to a
// fixpoint to close any variables the claim left implicit.  The assignment
// is valid iff tau eventually covers every variable without any live
// constraint ever being falsified along the way.  The caller (the step
// interpreter) is responsible for appending the resulting blocking clause
// — the disjunction of the negation of every claimed literal — to the
// database on success.
func (e *Engine) Solution(claimed []literal.Literal) Result {
	tau := NewAssignment(e.numVars)
	tau.AddAll(claimed)

	var fired []uint

	for {
		ids := e.db.LiveIDs()

		for _, id := range ids {
			c, ok := e.db.Get(id)
			if !ok {
				continue
			}

			if c.Falsified(tau) {
				return Result{Admitted: false, Fired: fired}
			}
		}

		if e.stepPropagate(tau, e.orderedCore(), e.db.Get, &fired) {
			continue
		}

		if e.stepPropagate(tau, ids, e.db.Get, &fired) {
			continue
		}

		return Result{Admitted: tau.Len() == e.numVars, Fired: fired}
	}
}
