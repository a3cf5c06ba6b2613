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
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"github.com/packetd/ids-core/common"
	"github.com/packetd/ids-core/metrics"
	"github.com/packetd/ids-core/pdftok"
)

type pdftokCmdConfig struct {
	In        string
	BlockSize int
}

var pdftokConfig pdftokCmdConfig

type pdftokResult struct {
	File   string `json:"file"`
	JS     string `json:"js"`
	JSRefs []int  `json:"js_refs"`
	Error  string `json:"error,omitempty"`
}

var pdftokCmd = &cobra.Command{
	Use:   "pdftok",
	Short: "Feed a PDF file (or directory of PDFs) through the object lexer and extract JavaScript",
	Run: func(cmd *cobra.Command, args []string) {
		info, err := os.Stat(pdftokConfig.In)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to stat input: %v\n", err)
			os.Exit(1)
		}

		var results []pdftokResult
		var aggregate *multierror.Error

		if info.IsDir() {
			entries, err := os.ReadDir(pdftokConfig.In)
			if err != nil {
				fmt.Fprintf(os.Stderr, "failed to read directory: %v\n", err)
				os.Exit(1)
			}
			for _, e := range entries {
				if e.IsDir() {
					continue
				}
				path := filepath.Join(pdftokConfig.In, e.Name())
				res := lexFile(path)
				results = append(results, res)
				if res.Error != "" {
					aggregate = multierror.Append(aggregate, fmt.Errorf("%s: %s", path, res.Error))
				}
			}
		} else {
			res := lexFile(pdftokConfig.In)
			results = append(results, res)
			if res.Error != "" {
				aggregate = multierror.Append(aggregate, fmt.Errorf("%s: %s", pdftokConfig.In, res.Error))
			}
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			fmt.Fprintf(os.Stderr, "failed to encode result: %v\n", err)
		}

		if aggregate.ErrorOrNil() != nil {
			fmt.Fprintln(os.Stderr, aggregate)
			os.Exit(1)
		}
	},
	Example: "# ids pdftok --in sample.pdf\n# ids pdftok --in ./corpus",
}

func lexFile(path string) pdftokResult {
	res := pdftokResult{File: path}

	f, err := os.Open(path)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	defer f.Close()

	var out bytes.Buffer
	lexer := pdftok.NewLexer(&out)
	block := make([]byte, pdftokConfig.BlockSize)

	for {
		n, rerr := f.Read(block)
		if n > 0 {
			before := out.Len()
			if werr := lexer.Write(block[:n]); werr != nil {
				var pe *pdftok.Err
				if errors.As(werr, &pe) {
					metrics.PDFErrors.WithLabelValues(string(pe.Reason)).Inc()
				}
				res.Error = werr.Error()
				metrics.PDFJSBytes.Add(float64(out.Len() - before))
				return finishResult(res, lexer, out)
			}
			metrics.PDFJSBytes.Add(float64(out.Len() - before))
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			res.Error = rerr.Error()
			return finishResult(res, lexer, out)
		}
	}

	if err := lexer.Finish(); err != nil && !errors.Is(err, pdftok.Eos) {
		res.Error = err.Error()
	}
	return finishResult(res, lexer, out)
}

func finishResult(res pdftokResult, lexer *pdftok.Lexer, out bytes.Buffer) pdftokResult {
	res.JS = out.String()
	for id := range lexer.JSRefs() {
		res.JSRefs = append(res.JSRefs, id)
	}
	metrics.PDFObjects.Add(float64(lexer.ObjectsOpened()))
	return res
}

func init() {
	pdftokCmd.Flags().StringVar(&pdftokConfig.In, "in", "", "Path to a PDF file or a directory of PDF files")
	pdftokCmd.Flags().IntVar(&pdftokConfig.BlockSize, "block-size", common.ReadWriteBlockSize, "Chunk size used to simulate arbitrary read segmentation")
	_ = pdftokCmd.MarkFlagRequired("in")
	rootCmd.AddCommand(pdftokCmd)
}
