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
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/consensys/pbcheck/pkg/pb/minimise"
	"github.com/consensys/pbcheck/pkg/veripb"
)

var minimiseCmd = &cobra.Command{
	Use:   "minimise model.opb proof.pbp out.pbp",
	Short: "Replay a VeriPB proof and, on success, write a minimised proof covering only the steps the final contradiction depends on.",
	Run: func(cmd *cobra.Command, args []string) {
		configureLogging(cmd)

		if len(args) != 3 {
			fmt.Println(cmd.UsageString())
			os.Exit(exitFormatError)
		}

		result, err := minimiseProof(args[0], args[1], args[2])

		reportMemoryBudget(cmd)

		if err != nil {
			fmt.Println(err)
			os.Exit(classifyExitCode(err))
		}

		fmt.Printf("kept %d of %d proof steps (%.2f%%)\n", result.Kept, result.Original, result.Ratio()*100)
		os.Exit(exitOK)
	},
}

// minimiseProof replays modelPath/proofPath and, if the proof is admitted,
// writes a minimised proof to outPath.
func minimiseProof(modelPath, proofPath, outPath string) (minimise.Result, error) {
	db, _, interpreter, lines, terminal, err := replay(modelPath, proofPath)
	if err != nil {
		return minimise.Result{}, err
	}

	result, err := minimise.Minimise(lines, interpreter.Recorder(), db.NumModel(), terminal)
	if err != nil {
		return minimise.Result{}, fmt.Errorf("minimising: %w", err)
	}

	outFile, err := os.Create(outPath)
	if err != nil {
		return minimise.Result{}, fmt.Errorf("creating output file: %w", err)
	}
	defer outFile.Close()

	if err := veripb.Write(outFile, result); err != nil {
		return minimise.Result{}, err
	}

	return result, nil
}

func init() {
	rootCmd.AddCommand(minimiseCmd)
}
