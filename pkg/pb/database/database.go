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

// Package database implements the constraint database (C3): an
// id-indexed store split into an immutable model partition (ids 1..M) and
// a derived partition (ids > M) whose entries may be tombstoned but never
// physically removed, so step numbering stays dense and stable.
package database

import (
	"fmt"

	roaring "github.com/RoaringBitmap/roaring/v2"

	"github.com/consensys/pbcheck/pkg/pb/constraint"
)

// IllegalDeleteError is returned when the caller attempts to tombstone a
// model-partition id; model axioms are immutable by construction.
type IllegalDeleteError struct {
	ID uint
}

func (e *IllegalDeleteError) Error() string {
	return fmt.Sprintf("illegal delete: step %d belongs to the immutable model partition", e.ID)
}

// Database is the indexed store of model and derived PB constraints.
type Database struct {
	model   []constraint.Constraint
	derived []constraint.Constraint
	// levels[i] is the proof level active when derived[i] was created.
	levels []uint
	// timeOfDeath[id] records the step id that was "current" when id was
	// tombstoned; consulted only by the backward/core-first propagation
	// variant (pkg/pb/propagate).
	timeOfDeath map[uint]uint
	tombstones  *roaring.Bitmap
}

// New constructs an empty database.
func New() *Database {
	return &Database{
		timeOfDeath: make(map[uint]uint),
		tombstones:  roaring.New(),
	}
}

// AddModel appends an axiom constraint to the model partition, returning
// its (permanent, 1-based) step id.  Must only be called while parsing the
// OPB model, before any derived step is admitted.
func (db *Database) AddModel(c constraint.Constraint) uint {
	db.model = append(db.model, c)
	return uint(len(db.model))
}

// NumModel returns M, the number of model (axiom) constraints.
func (db *Database) NumModel() uint {
	return uint(len(db.model))
}

// NumConstraints returns the total number of ids issued so far (model plus
// derived, including tombstoned derived ids).
func (db *Database) NumConstraints() uint {
	return uint(len(db.model) + len(db.derived))
}

// Add appends a derived constraint at the given proof level, returning its
// newly-assigned step id (always > NumModel()).
func (db *Database) Add(c constraint.Constraint, level uint) uint {
	db.derived = append(db.derived, c)
	db.levels = append(db.levels, level)

	return uint(len(db.model) + len(db.derived))
}

// Get returns the constraint stored at id, and false if id is unknown or
// has been tombstoned.
func (db *Database) Get(id uint) (constraint.Constraint, bool) {
	if !db.IsLive(id) {
		return constraint.Constraint{}, false
	}

	return db.raw(id), true
}

// raw fetches a constraint by id without checking liveness; callers must
// already know the id is in range.
func (db *Database) raw(id uint) constraint.Constraint {
	m := uint(len(db.model))
	if id <= m {
		return db.model[id-1]
	}

	return db.derived[id-m-1]
}

// Level returns the proof level a derived step was created at.  Model
// steps are always considered level 0.
func (db *Database) Level(id uint) uint {
	m := uint(len(db.model))
	if id <= m {
		return 0
	}

	return db.levels[id-m-1]
}

// IsLive returns true iff id names a known, non-tombstoned constraint.
func (db *Database) IsLive(id uint) bool {
	if id == 0 || id > db.NumConstraints() {
		return false
	}

	if id <= db.NumModel() {
		return true
	}

	return !db.tombstones.Contains(uint32(id))
}

// Delete tombstones a derived-partition id.  Tombstoning a model id is a
// hard, fatal error (spec.md's IllegalDelete).
func (db *Database) Delete(id uint, currentStepID uint) error {
	if id <= db.NumModel() {
		return &IllegalDeleteError{ID: id}
	}

	if !db.IsLive(id) {
		// already tombstoned; deletion is idempotent
		return nil
	}

	db.tombstones.Add(uint32(id))
	db.timeOfDeath[id] = currentStepID

	return nil
}

// TimeOfDeath returns the step id that was current when id was
// tombstoned, and false if id has never been deleted.
func (db *Database) TimeOfDeath(id uint) (uint, bool) {
	tod, ok := db.timeOfDeath[id]
	return tod, ok
}

// WipeoutLevel tombstones every live derived step whose level is >= L,
// recording currentStepID as each one's time of death.  A no-op (and
// legal) if no live derivation exists at or above L.
func (db *Database) WipeoutLevel(level uint, currentStepID uint) []uint {
	var wiped []uint

	m := uint(len(db.model))

	for i, lvl := range db.levels {
		id := m + uint(i) + 1
		if lvl >= level && db.IsLive(id) {
			// Delete cannot fail here: id is necessarily > NumModel().
			_ = db.Delete(id, currentStepID)
			wiped = append(wiped, id)
		}
	}

	return wiped
}

// LiveIDs returns every live id (model and derived) in ascending order,
// which is the scan order the RUP decision procedure (pkg/pb/propagate)
// is required to use for determinism.
func (db *Database) LiveIDs() []uint {
	ids := make([]uint, 0, db.NumConstraints())

	for id := uint(1); id <= db.NumConstraints(); id++ {
		if db.IsLive(id) {
			ids = append(ids, id)
		}
	}

	return ids
}

// GetAsOf returns the constraint stored at id as it stood immediately
// before stepID was processed: model constraints are always visible;
// derived constraints are visible unless their recorded time of death is
// below stepID, or they were not yet created (id >= stepID).  This is the
// time-of-death lookup the backward/core-first propagation variant
// (pkg/pb/propagate) uses to faithfully replay history.
func (db *Database) GetAsOf(id uint, stepID uint) (constraint.Constraint, bool) {
	if id == 0 || id >= stepID || id > db.NumConstraints() {
		return constraint.Constraint{}, false
	}

	if id <= db.NumModel() {
		return db.raw(id), true
	}

	if tod, tombstoned := db.TimeOfDeath(id); tombstoned && tod < stepID {
		return constraint.Constraint{}, false
	}

	return db.raw(id), true
}

// IDsAsOf returns, in ascending order, every id visible as of stepID (see
// GetAsOf).
func (db *Database) IDsAsOf(stepID uint) []uint {
	var ids []uint

	for id := uint(1); id < stepID && id <= db.NumConstraints(); id++ {
		if _, ok := db.GetAsOf(id, stepID); ok {
			ids = append(ids, id)
		}
	}

	return ids
}
