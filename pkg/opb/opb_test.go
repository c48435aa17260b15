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
package opb_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/consensys/pbcheck/pkg/opb"
	"github.com/consensys/pbcheck/pkg/pb/database"
	"github.com/consensys/pbcheck/pkg/pb/literal"
)

func TestParseSimpleModel(t *testing.T) {
	src := `* a tiny model
#variable= 2 #constraint= 2
1 x1 1 x2 >= 1 ;
1 ~x1 1 x2 >= 0 ;
`
	table := literal.NewTable()
	db := database.New()

	header, err := opb.Parse(strings.NewReader(src), table, db)
	require.NoError(t, err)

	assert.Equal(t, uint(2), header.NumVariables)
	assert.Equal(t, uint(2), header.NumConstraints)
	assert.Equal(t, uint(2), db.NumModel())
	assert.Equal(t, uint(2), table.NumLiterals())

	_, ok := db.Get(1)
	require.True(t, ok)
}

func TestParseRejectsMalformedLine(t *testing.T) {
	src := `#variable= 1 #constraint= 1
1 x1 >= ;
`
	table := literal.NewTable()
	db := database.New()

	_, err := opb.Parse(strings.NewReader(src), table, db)
	require.Error(t, err)

	var perr *opb.ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 2, perr.Line)
}

func TestParseRejectsCountMismatch(t *testing.T) {
	src := `#variable= 1 #constraint= 2
1 x1 >= 1 ;
`
	table := literal.NewTable()
	db := database.New()

	_, err := opb.Parse(strings.NewReader(src), table, db)
	require.Error(t, err)

	var perr *opb.ParseError
	require.ErrorAs(t, err, &perr)
}

func TestParseAcceptsNegatedLiteral(t *testing.T) {
	src := `#variable= 1 #constraint= 1
1 ~x1 >= 0 ;
`
	table := literal.NewTable()
	db := database.New()

	_, err := opb.Parse(strings.NewReader(src), table, db)
	require.NoError(t, err)

	x1, ok := table.Lookup("x1")
	require.True(t, ok)

	c, ok := db.Get(1)
	require.True(t, ok)
	assert.Len(t, c.Terms(), 1)
	assert.Equal(t, x1.Negate(), c.Terms()[0].Lit)
}
