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

// buildFrameHeader 按 rfc7540 §4.1 构造一个 9 字节帧头部 测试专用
func buildFrameHeader(length uint32, typ, flags uint8, streamID uint32) []byte {
	h := make([]byte, headerLength)
	h[0] = byte(length >> 16)
	h[1] = byte(length >> 8)
	h[2] = byte(length)
	h[3] = typ
	h[4] = flags
	streamID &= streamIDMask
	h[5] = byte(streamID >> 24)
	h[6] = byte(streamID >> 16)
	h[7] = byte(streamID >> 8)
	h[8] = byte(streamID)
	return h
}

func buildFrame(length uint32, typ, flags uint8, streamID uint32, payload []byte) []byte {
	return append(buildFrameHeader(length, typ, flags, streamID), payload...)
}

// recordingSink 记录收到的事件 id 方便断言
type recordingSink struct {
	events      []EventID
	infractions []EventID
}

func (r *recordingSink) RecordEvent(id EventID)          { r.events = append(r.events, id) }
func (r *recordingSink) AccumulateInfraction(id EventID) { r.infractions = append(r.infractions, id) }

func openStream(t *testing.T, s *Scanner, streamID uint32) {
	t.Helper()
	payload := []byte("headers-block")
	frame := buildFrame(uint32(len(payload)), frameHeaders, flagEndHeaders, streamID, payload)
	var off int
	status, err := s.Scan(frame, &off)
	require.NoError(t, err)
	require.Equal(t, Flush, status)
}

func TestScanPrefaceExactlyOnce(t *testing.T) {
	s := NewScanner(true, nil, nil)
	var off int
	status, err := s.Scan([]byte(connPreface), &off)
	require.NoError(t, err)
	assert.Equal(t, Flush, status)
	assert.Equal(t, prefaceLength, off)
}

func TestScanPrefaceSplitAcrossChunks(t *testing.T) {
	s := NewScanner(true, nil, nil)
	full := []byte(connPreface)

	var off int
	status, err := s.Scan(full[:10], &off)
	require.NoError(t, err)
	assert.Equal(t, Search, status)

	status, err = s.Scan(full[10:], &off)
	require.NoError(t, err)
	assert.Equal(t, Flush, status)
	assert.Equal(t, prefaceLength-10, off)
}

func TestScanPrefaceMismatchAborts(t *testing.T) {
	sink := &recordingSink{}
	s := NewScanner(true, sink, nil)
	bad := []byte("GET / HTTP/1.1\r\n\r\n")

	var off int
	status, err := s.Scan(bad, &off)
	require.Error(t, err)
	assert.Equal(t, Abort, status)
	assert.Contains(t, sink.events, PrefaceMatchFailure)

	// 中止之后再次调用必须继续返回 Abort 而不是悄悄恢复
	status, err = s.Scan(bad, &off)
	assert.Equal(t, Abort, status)
	assert.Error(t, err)
}

func TestScanHeadersPlusContinuation(t *testing.T) {
	s := NewScanner(false, nil, nil)

	headersPayload := []byte("partial-header-block")
	continuationPayload := []byte("rest-of-header-block")

	frame := buildFrame(uint32(len(headersPayload)), frameHeaders, 0, 1, headersPayload)
	frame = append(frame, buildFrame(uint32(len(continuationPayload)), frameContinuation, flagEndHeaders, 1, continuationPayload)...)

	var off int
	status, err := s.Scan(frame, &off)
	require.NoError(t, err)
	require.Equal(t, Flush, status)
	assert.Equal(t, len(frame), off)
	assert.Equal(t, 2, s.NumFrameHeaders())
	assert.Equal(t, uint32(len(frame)), s.TotalBytesInSplit())
}

func TestScanUnexpectedContinuationAborts(t *testing.T) {
	sink := &recordingSink{}
	s := NewScanner(false, sink, nil)

	frame := buildFrame(4, frameContinuation, flagEndHeaders, 1, []byte("oops"))
	var off int
	status, err := s.Scan(frame, &off)
	require.Error(t, err)
	assert.Equal(t, Abort, status)
	assert.Contains(t, sink.events, UnexpectedContinuation)
}

func TestScanDataWithoutOpenStreamIsFrameSequenceViolation(t *testing.T) {
	sink := &recordingSink{}
	s := NewScanner(false, sink, nil)

	frame := buildFrame(6, frameData, 0, 1, []byte("abcdef"))
	var off int
	status, err := s.Scan(frame, &off)
	require.Error(t, err)
	assert.Equal(t, Abort, status)
	assert.Contains(t, sink.events, FrameSequence)
}

func TestScanPaddedDataFlushesWholeFrame(t *testing.T) {
	s := NewScanner(false, nil, nil)
	openStream(t, s, 1)

	payload := []byte{5, 1, 2, 3, 4, 5, 6, 0, 0, 0, 0, 0} // padLen=5, data=6 bytes, 5 pad bytes
	frame := buildFrame(uint32(len(payload)), frameData, flagPadded|flagEndStream, 1, payload)

	var off int
	status, err := s.Scan(frame, &off)
	require.NoError(t, err)
	assert.Equal(t, Flush, status)
	assert.Equal(t, len(frame), off)
	assert.Equal(t, uint8(frameData), s.FrameType())
}

func TestScanResetsCountersOnlyAtNextHeader(t *testing.T) {
	s := NewScanner(false, nil, nil)
	openStream(t, s, 3)

	frame := buildFrame(3, frameData, flagEndStream, 3, []byte("abc"))
	var off int
	status, err := s.Scan(frame, &off)
	require.NoError(t, err)
	require.Equal(t, Flush, status)
	assert.Equal(t, 1, s.NumFrameHeaders(), "counters must stay readable right after Flush")

	openStream(t, s, 5)
	assert.Equal(t, 1, s.NumFrameHeaders(), "counters only clear once the next header starts decoding")
}
