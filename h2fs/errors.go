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

import "github.com/pkg/errors"

func newError(format string, args ...any) error {
	return errors.Errorf("h2fs: "+format, args...)
}

// EventID 枚举 H2FS 可能上报的协议违规类型
type EventID string

const (
	// FrameSequence 帧出现在了不应出现的时序中(如未预期的 DATA)
	FrameSequence EventID = "FRAME_SEQUENCE"

	// MissingContinuation 期望 CONTINUATION 帧续接 Header 却等来了其它类型
	MissingContinuation EventID = "MISSING_CONTINUATION"

	// UnexpectedContinuation 在没有未完成的 HEADERS 时出现了 CONTINUATION
	UnexpectedContinuation EventID = "UNEXPECTED_CONTINUATION"

	// PrefaceMatchFailure 连接前言与固定前言字面量不匹配
	PrefaceMatchFailure EventID = "PREFACE_MATCH_FAILURE"
)

var (
	errInvalidBytes    = newError("invalid bytes")
	errFrameTooLarge   = newError("frame exceeds MaxOctets")
	errZeroLengthData  = newError("DATA frame length is zero")
	errInvalidPadding  = newError("invalid padding")
	errFrameSequence   = newError(string(FrameSequence))
	errPrefaceMismatch = newError(string(PrefaceMatchFailure))
)

// EventSink 是调用方提供的事件汇聚接口 §6
//
// H2FS 只负责上报事件 id 由调用方决定如何记录/计数/告警
type EventSink interface {
	RecordEvent(id EventID)
	AccumulateInfraction(id EventID)
}

// NoopEventSink 是一个丢弃所有事件的 EventSink 方便测试与 CLI 单步调试
type NoopEventSink struct{}

func (NoopEventSink) RecordEvent(EventID)          {}
func (NoopEventSink) AccumulateInfraction(EventID) {}
