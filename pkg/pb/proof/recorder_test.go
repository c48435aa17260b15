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
package proof_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/consensys/pbcheck/pkg/pb/proof"
)

func TestRecorderAntecedentsLookup(t *testing.T) {
	r := proof.NewRecorder()
	r.Record(5, []uint{2, 3})

	ants, ok := r.Antecedents(5)
	require.True(t, ok)
	assert.Equal(t, []uint{2, 3}, ants)

	_, ok = r.Antecedents(99)
	assert.False(t, ok)
}

func TestRecorderWriteToFormatsSideBand(t *testing.T) {
	r := proof.NewRecorder()
	r.Record(3, []uint{1, 2})
	r.Record(4, nil)

	var b strings.Builder
	_, err := r.WriteTo(&b)
	require.NoError(t, err)

	assert.Equal(t, "3:1 2\n4:\n", b.String())
}

func TestRecorderToDOTIncludesEveryStep(t *testing.T) {
	r := proof.NewRecorder()
	r.Record(2, []uint{1})
	r.Record(3, []uint{1, 2})

	g := r.ToDOT()
	out := g.String()

	assert.Contains(t, out, "1")
	assert.Contains(t, out, "2")
	assert.Contains(t, out, "3")
}
