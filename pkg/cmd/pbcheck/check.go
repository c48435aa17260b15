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
package pbcheck

import (
	"errors"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/consensys/pbcheck/pkg/opb"
	"github.com/consensys/pbcheck/pkg/pb/database"
	"github.com/consensys/pbcheck/pkg/pb/literal"
	"github.com/consensys/pbcheck/pkg/pb/minimise"
	"github.com/consensys/pbcheck/pkg/pb/proof"
	"github.com/consensys/pbcheck/pkg/pb/propagate"
	"github.com/consensys/pbcheck/pkg/veripb"
)

// Exit codes (spec.md §6): 0 = proof admitted, non-zero = RUP failed,
// contradiction absent, or format error.
const (
	exitOK          = 0
	exitFormatError = 2
	exitRejected    = 1
)

var checkCmd = &cobra.Command{
	Use:   "check model.opb proof.pbp",
	Short: "Replay a VeriPB proof against an OPB model and report whether it is admitted.",
	Run: func(cmd *cobra.Command, args []string) {
		configureLogging(cmd)

		if len(args) != 2 {
			fmt.Println(cmd.UsageString())
			os.Exit(exitFormatError)
		}

		_, _, _, _, _, err := replay(args[0], args[1])

		reportMemoryBudget(cmd)

		if err != nil {
			fmt.Println(err)
			os.Exit(classifyExitCode(err))
		}

		fmt.Println("proof admitted")
		os.Exit(exitOK)
	},
}

// replay parses modelPath/proofPath and runs the full replay, returning the
// populated database, table, interpreter, and tagged line sequence/terminal
// step id so the `minimise` subcommand can reuse this without duplicating
// the setup.
func replay(modelPath, proofPath string) (
	*database.Database, *literal.Table, *proof.Interpreter, []minimise.Line, uint, error,
) {
	modelFile, err := os.Open(modelPath)
	if err != nil {
		return nil, nil, nil, nil, 0, fmt.Errorf("opening model file: %w", err)
	}
	defer modelFile.Close()

	table := literal.NewTable()
	db := database.New()

	header, err := opb.Parse(modelFile, table, db)
	if err != nil {
		return nil, nil, nil, nil, 0, err
	}

	log.WithFields(log.Fields{
		"variables":   header.NumVariables,
		"constraints": header.NumConstraints,
	}).Debug("parsed OPB model")

	engine := propagate.NewEngine(db, table.NumLiterals())
	interpreter := proof.NewInterpreter(db, table, engine)

	proofFile, err := os.Open(proofPath)
	if err != nil {
		return nil, nil, nil, nil, 0, fmt.Errorf("opening proof file: %w", err)
	}
	defer proofFile.Close()

	lines, terminal, err := veripb.Replay(proofFile, db, interpreter)
	if err != nil {
		return db, table, interpreter, lines, terminal, err
	}

	return db, table, interpreter, lines, terminal, nil
}

// classifyExitCode maps a replay error to a reference-driver exit code.
// Parse-shaped errors (malformed input) get exitFormatError; everything
// else (RUP failure, invalid solution, absent contradiction, count
// mismatch) is a rejected proof.
func classifyExitCode(err error) int {
	// veripb.Replay wraps interpreter failures in *veripb.ParseError, so the
	// rejection kinds are looked for in the wrapped chain first.
	var (
		rup      *proof.RUPFailureError
		solution *proof.InvalidSolutionError
		absent   *proof.ContradictionAbsentError
		count    *proof.CountMismatchError
	)

	if errors.As(err, &rup) || errors.As(err, &solution) || errors.As(err, &absent) || errors.As(err, &count) {
		return exitRejected
	}

	switch err.(type) {
	case *opb.ParseError, *veripb.ParseError:
		return exitFormatError
	default:
		return exitRejected
	}
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
