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

	"github.com/goccy/go-json"
	"github.com/mitchellh/mapstructure"
)

// chunkScript describes a fixed, reproducible fragmentation of an input file
// rather than the uniform --block-size split, so a specific adversarial
// split found by fuzzing can be replayed exactly.
type chunkScript struct {
	Chunks []int `mapstructure:"chunks"`
}

// loadChunkScript reads a loosely-typed JSON document (chunk sizes may come
// back as float64 from json.Unmarshal) and coerces it into chunkScript.
func loadChunkScript(path string) ([]int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var generic map[string]any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("parsing chunk script: %w", err)
	}

	var cs chunkScript
	if err := mapstructure.Decode(generic, &cs); err != nil {
		return nil, fmt.Errorf("decoding chunk script: %w", err)
	}
	if len(cs.Chunks) == 0 {
		return nil, fmt.Errorf("chunk script %q names no chunks", path)
	}
	return cs.Chunks, nil
}

// splitByScript re-slices data according to sizes, repeating the script if
// data is longer than the sum of sizes.
func splitByScript(data []byte, sizes []int) [][]byte {
	var out [][]byte
	pos := 0
	for pos < len(data) {
		for _, n := range sizes {
			if pos >= len(data) {
				break
			}
			end := pos + n
			if end > len(data) {
				end = len(data)
			}
			out = append(out, data[pos:end])
			pos = end
		}
	}
	return out
}
