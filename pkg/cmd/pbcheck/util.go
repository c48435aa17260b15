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

	"github.com/c2h5oh/datasize"
	"github.com/spf13/cobra"
)

// GetFlag gets an expected boolean flag, or exits if the flag is unknown.
func GetFlag(cmd *cobra.Command, flag string) bool {
	r, err := cmd.Flags().GetBool(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	return r
}

// GetString gets an expected string flag, or exits if the flag is unknown.
func GetString(cmd *cobra.Command, flag string) string {
	r, err := cmd.Flags().GetString(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	return r
}

// getMemoryBudget parses the "--memory-budget" flag, if given.  This is a
// purely advisory figure: the core never reads it and replay is never
// gated on it (spec.md §5), it is only echoed back at exit so a caller
// driving many proofs in a loop has something to eyeball memory use against.
func getMemoryBudget(cmd *cobra.Command) (datasize.ByteSize, bool) {
	raw := GetString(cmd, "memory-budget")
	if raw == "" {
		return 0, false
	}

	var budget datasize.ByteSize
	if err := budget.UnmarshalText([]byte(raw)); err != nil {
		fmt.Printf("invalid --memory-budget %q: %v\n", raw, err)
		os.Exit(2)
	}

	return budget, true
}

func reportMemoryBudget(cmd *cobra.Command) {
	if budget, ok := getMemoryBudget(cmd); ok {
		var mem memStats

		mem.sample()

		fmt.Printf("memory budget: %s (heap in use: %s)\n", budget.HR(), mem.heapAlloc.HR())
	}
}
