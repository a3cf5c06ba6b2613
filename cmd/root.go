// Copyright 2025 The packetd Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cmd provides the "ids" CLI: subcommands that drive the H2FS
// scanner and PDFTok lexer over files for manual/CI smoke testing, plus a
// long-running debug-server-only mode.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"go.uber.org/automaxprocs/maxprocs"

	"github.com/packetd/ids-core/common"
)

var rootCmd = &cobra.Command{
	Use:   "ids",
	Short: "HTTP/2 frame reassembly and PDF/JS object extraction toolkit",
}

func init() {
	cobra.OnInitialize(func() {
		if _, err := maxprocs.Set(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to set GOMAXPROCS: %v\n", err)
		}
	})
}

// Execute runs the root command; main() calls this directly.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = common.Version
}
