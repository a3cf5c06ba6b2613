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

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/packetd/ids-core/confengine"
	"github.com/packetd/ids-core/debugserver"
	"github.com/packetd/ids-core/internal/sigs"
	"github.com/packetd/ids-core/logger"
)

type serveCmdConfig struct {
	ConfigPath string
}

var serveConfig serveCmdConfig

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the debug server (/metrics and /-/logger) with no scanning workload",
	Run: func(cmd *cobra.Command, args []string) {
		conf, err := confengine.LoadConfigPath(serveConfig.ConfigPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
			os.Exit(1)
		}

		svr, err := debugserver.New(conf)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to build debug server: %v\n", err)
			os.Exit(1)
		}
		if svr == nil {
			logger.Std().Infof("server section disabled in config, nothing to serve")
			return
		}

		go func() {
			if err := svr.ListenAndServe(); err != nil {
				logger.Std().Errorf("debug server stopped: %v", err)
			}
		}()

		<-sigs.Terminate()
		logger.Std().Infof("received termination signal, shutting down")
	},
	Example: "# ids serve --config ids.yml",
}

func init() {
	serveCmd.Flags().StringVar(&serveConfig.ConfigPath, "config", "ids.yml", "Path to the YAML config file")
	rootCmd.AddCommand(serveCmd)
}
