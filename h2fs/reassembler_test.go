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

package h2fs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReassembleHeadersPlusContinuation(t *testing.T) {
	headersPayload := []byte("partial-header-block")
	continuationPayload := []byte("rest-of-header-block")

	frame := buildFrame(uint32(len(headersPayload)), frameHeaders, 0, 1, headersPayload)
	frame = append(frame, buildFrame(uint32(len(continuationPayload)), frameContinuation, flagEndHeaders, 1, continuationPayload)...)

	r := NewReassembler(frameHeaders, 2, nil)
	defer r.Free()

	sb, err := r.Reassemble(uint32(len(frame)), 0, frame, PDUTail)
	require.NoError(t, err)
	assert.Empty(t, sb.Data, "PDU_TAIL must return the zero-length sentinel")

	assert.Equal(t, 2*headerLength, len(r.FrameHeader()))
	assert.Equal(t, append(append([]byte{}, headersPayload...), continuationPayload...), r.FrameData())
}

func TestReassemblePaddedDataStripsPadding(t *testing.T) {
	payload := []byte{5, 1, 2, 3, 4, 5, 6, 0, 0, 0, 0, 0} // padLen=5, data=6 bytes, 5 pad bytes
	frame := buildFrame(uint32(len(payload)), frameData, flagPadded|flagEndStream, 1, payload)

	r := NewReassembler(frameData, 1, nil)
	defer r.Free()

	_, err := r.Reassemble(uint32(len(frame)), 0, frame, PDUTail)
	require.NoError(t, err)

	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6}, r.FrameData())
	assert.Equal(t, headerLength, len(r.FrameHeader()))
}

func TestReassemblePaddedHeadersSplitInsidePadding(t *testing.T) {
	// padLen=3, header block=6 bytes, 3 pad bytes: length = 1 + 6 + 3 = 10
	payload := []byte{3, 1, 2, 3, 4, 5, 6, 0, 0, 0}
	frame := buildFrame(uint32(len(payload)), frameHeaders, flagPadded|flagEndHeaders, 1, payload)

	r := NewReassembler(frameHeaders, 1, nil)
	defer r.Free()

	total := uint32(len(frame))
	// header(9) + padLen byte(1) + all 6 data bytes + 1 of the 3 pad bytes
	split := headerLength + 1 + 6 + 1
	sb, err := r.Reassemble(total, 0, frame[:split], 0)
	require.NoError(t, err)
	assert.Empty(t, sb.Data)

	sb, err = r.Reassemble(total, uint32(split), frame[split:], PDUTail)
	require.NoError(t, err)
	assert.Empty(t, sb.Data)

	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6}, r.FrameData(), "padding bytes split across calls must never reach frame_data")
	assert.Equal(t, headerLength, len(r.FrameHeader()))
}

func TestReassembleSplitAcrossCalls(t *testing.T) {
	payload := []byte("hello world this is a headers block")
	frame := buildFrame(uint32(len(payload)), frameHeaders, flagEndHeaders, 1, payload)

	r := NewReassembler(frameHeaders, 1, nil)
	defer r.Free()

	total := uint32(len(frame))
	split := 5
	sb, err := r.Reassemble(total, 0, frame[:split], 0)
	require.NoError(t, err)
	assert.Empty(t, sb.Data)

	sb, err = r.Reassemble(total, uint32(split), frame[split:], PDUTail)
	require.NoError(t, err)
	assert.Empty(t, sb.Data)

	assert.Equal(t, headerLength, len(r.FrameHeader()))
	assert.Equal(t, payload, r.FrameData())
}

func TestReassembleDataDelegatesToCutter(t *testing.T) {
	payload := []byte("raw-http-bytes")
	frame := buildFrame(uint32(len(payload)), frameData, flagEndStream, 1, payload)

	cutter := &stubCutter{}
	r := NewReassembler(frameData, 1, cutter)
	defer r.Free()

	_, err := r.Reassemble(uint32(len(frame)), 0, frame, PDUTail)
	require.NoError(t, err)

	require.Len(t, cutter.seen, 1)
	assert.Equal(t, payload, cutter.seen[0])
}

type stubCutter struct {
	seen [][]byte
}

func (c *stubCutter) Scan(data []byte, length uint32, flushOffset, dataOffset *uint32, frameLength uint32, frameFlags uint8) (Status, error) {
	*flushOffset = length
	*dataOffset = 0
	return Flush, nil
}

func (c *stubCutter) Reassemble(chunk []byte) (StreamBuffer, error) {
	cp := append([]byte{}, chunk...)
	c.seen = append(c.seen, cp)
	return StreamBuffer{Data: cp}, nil
}
