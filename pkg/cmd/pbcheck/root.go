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

// Package pbcheck implements the reference driver (spec.md §1's "external
// collaborator" CLI orchestration layer): a thin cobra front-end over the
// core replay/minimise pipeline, out of the checker's own scope but
// required for the checker to be runnable as a standalone tool.
package pbcheck

import (
	"fmt"
	"os"
	"runtime/debug"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Version may be set at link time (-ldflags "-X ..."); when empty, the
// module version from the build info is reported instead.
var Version string

var rootCmd = &cobra.Command{
	Use:   "pbcheck",
	Short: "A pseudo-Boolean cutting-planes proof checker and minimiser.",
	Long:  "Replays a VeriPB proof against an OPB model and, on success, produces a minimised proof.",
	Run: func(cmd *cobra.Command, args []string) {
		if GetFlag(cmd, "version") {
			fmt.Print("pbcheck ")

			if Version != "" {
				fmt.Printf("%s", Version)
			} else if info, ok := debug.ReadBuildInfo(); ok {
				fmt.Printf("%s", info.Main.Version)
			} else {
				fmt.Printf("(unknown version)")
			}

			fmt.Println()

			return
		}

		_ = cmd.Help()
	},
}

// Execute runs the root command; the subcommands register themselves in
// their own init functions. Called once by cmd/pbcheck/main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().Bool("version", false, "report the version of this executable")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "increase logging verbosity")
	rootCmd.PersistentFlags().String("memory-budget", "", "soft memory budget (e.g. \"2GB\"), reported at exit; not enforced")
}

func configureLogging(cmd *cobra.Command) {
	if GetFlag(cmd, "verbose") {
		log.SetLevel(log.DebugLevel)
	}
}
