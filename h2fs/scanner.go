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
	"github.com/google/uuid"

	"github.com/packetd/ids-core/bytecursor"
	"github.com/packetd/ids-core/logger"
)

// Status 是 scan 调用后的判定结果
type Status int

const (
	// Search 表示还需要更多字节才能作出判断 flush_offset 无意义
	Search Status = iota

	// Flush 表示调用方应当把 chunk[:flushOffset] (加上此前缓存的字节)
	// 交付给 Reassembler 并从 chunk[flushOffset:] 处继续扫描
	Flush

	// Abort 表示检测到协议错误 调用方必须销毁该方向的状态
	Abort
)

func (s Status) String() string {
	switch s {
	case Search:
		return "Search"
	case Flush:
		return "Flush"
	case Abort:
		return "Abort"
	default:
		return "Unknown"
	}
}

// Scanner 是单方向的 HTTP/2 帧状态机
//
// 一个 TCP 连接的每个方向各持有一个独立的 Scanner 实例 Scanner 从不跨方向
// 共享可变状态 也从不在 chunk 内向前看超过一帧头部的长度
type Scanner struct {
	id uuid.UUID
	sink EventSink
	log  logger.Logger

	isClient bool // 该方向是否为 client -> server

	// preface 阶段
	preface       bool
	prefaceOctets int

	// 帧头部组装
	octetsSeen           int
	frameHeader          [headerLength]byte
	remainingFrameOctets uint32

	continuationExpected bool
	dataCutter           DataCutter

	currentStream   uint32
	numFrameHeaders int
	totalBytesInSplit uint32
	frameType       uint8
	frameFlags      uint8

	// openStreams 记录已经看到过 HEADERS(无 END_STREAM) 的流
	// 用于判断后续 DATA 帧是否处于一个合法的半开请求体中 §4.1 "DATA" 分支
	openStreams map[uint32]bool

	// pendingPDUReset 标记上一轮 Scan 已经 Flush 了一个 PDU
	// num_frame_headers / total_bytes_in_split 要等到调用方读取完毕
	// 并开始扫描下一帧头部时才真正清零 §3 "reset at PDU tail"
	pendingPDUReset bool

	aborted bool
}

// NewScanner 创建并返回一个新的单方向 Scanner
//
// isClient 标记本方向是否承载客户端发出的字节(决定是否需要匹配连接前言)
// cutter 为 DATA 帧负载裁切的外部协作者 §4.6 传 nil 则使用一个只在帧边界
// 切割的默认实现
func NewScanner(isClient bool, sink EventSink, cutter DataCutter) *Scanner {
	if sink == nil {
		sink = NoopEventSink{}
	}
	if cutter == nil {
		cutter = defaultDataCutter{}
	}
	id := uuid.New()
	return &Scanner{
		id:          id,
		sink:        sink,
		log:         logger.Std().With("component", "h2fs.scanner", "id", id.String()),
		isClient:    isClient,
		preface:     isClient,
		dataCutter:  cutter,
		openStreams: make(map[uint32]bool),
	}
}

// ID 返回该 Scanner 实例的关联 id 用于跨日志行/事件关联
func (s *Scanner) ID() uuid.UUID {
	return s.id
}

// Scan 消费 chunk 并返回判定结果 §4.1
//
// Scan 对零长度输入是幂等的 从不读取超出 chunk 长度的字节
func (s *Scanner) Scan(chunk []byte, flushOffset *int) (Status, error) {
	if s.aborted {
		return Abort, errInvalidBytes
	}
	if len(chunk) == 0 {
		return Search, nil
	}

	c := bytecursor.New(chunk)

	for {
		if s.preface {
			status, err := s.scanPreface(&c)
			if status != Search {
				if status == Flush {
					*flushOffset = c.Pos()
				}
				return s.finish(status, err)
			}
			// preface 尚未完成 且本 chunk 已耗尽
			if c.Done() {
				return Search, nil
			}
			continue
		}

		if s.octetsSeen < headerLength {
			if !s.fillHeader(&c) {
				return Search, nil // 本 chunk 耗尽 仍不足 9 字节
			}
			if err := s.decodeHeader(); err != nil {
				return s.finish(Abort, err)
			}
			continue
		}

		status, consumedFlush, err := s.dispatch(&c)
		if err != nil {
			return s.finish(Abort, err)
		}
		switch status {
		case Flush:
			s.pendingPDUReset = true
			*flushOffset = consumedFlush
			return Flush, nil
		case Search:
			if c.Done() {
				return Search, nil
			}
			// 单个 chunk 内可能还有下一帧 继续循环
		}
	}
}

// finish 统一处理 Abort 时的事件上报与状态冻结
func (s *Scanner) finish(status Status, err error) (Status, error) {
	if status == Abort {
		s.aborted = true
		s.log.Warnf("direction aborted: %v", err)
	}
	return status, err
}

// scanPreface 在 chunk 边界上匹配 24 字节连接前言 §4.1.1
func (s *Scanner) scanPreface(c *bytecursor.Cursor) (Status, error) {
	for !c.Done() {
		b, _ := c.ReadByte()
		if b != connPreface[s.prefaceOctets] {
			s.sink.RecordEvent(PrefaceMatchFailure)
			s.sink.AccumulateInfraction(PrefaceMatchFailure)
			return Abort, errPrefaceMismatch
		}
		s.prefaceOctets++
		if s.prefaceOctets == prefaceLength {
			s.preface = false
			return Flush, nil
		}
	}
	return Search, nil
}

// fillHeader 把 chunk 中的字节追加进 frameHeader 直到凑满 9 字节
// 返回 true 表示头部已集齐 可以继续 decodeHeader
func (s *Scanner) fillHeader(c *bytecursor.Cursor) bool {
	for s.octetsSeen < headerLength {
		b, ok := c.ReadByte()
		if !ok {
			return false
		}
		s.frameHeader[s.octetsSeen] = b
		s.octetsSeen++
	}
	return true
}

// decodeHeader 解析已经集齐的 9 字节头部 §6 "Wire constants"
func (s *Scanner) decodeHeader() error {
	if s.pendingPDUReset {
		s.numFrameHeaders = 0
		s.totalBytesInSplit = 0
		s.pendingPDUReset = false
	}

	h := s.frameHeader[:]
	length := uint32(h[0])<<16 | uint32(h[1])<<8 | uint32(h[2])
	typ := h[3]
	flags := h[4]
	streamID := (uint32(h[5])<<24 | uint32(h[6])<<16 | uint32(h[7])<<8 | uint32(h[8])) & streamIDMask

	s.frameType = typ
	s.frameFlags = flags
	s.currentStream = streamID
	s.remainingFrameOctets = length
	s.numFrameHeaders++
	s.totalBytesInSplit += headerLength

	switch typ {
	case frameData:
		if s.continuationExpected {
			s.sink.RecordEvent(MissingContinuation)
			s.sink.AccumulateInfraction(MissingContinuation)
			return newError("%s: DATA while CONTINUATION expected", MissingContinuation)
		}
		if length == 0 {
			return errZeroLengthData
		}
		if length > MaxOctets {
			return errFrameTooLarge
		}
		if !s.openStreams[streamID] {
			s.sink.RecordEvent(FrameSequence)
			s.sink.AccumulateInfraction(FrameSequence)
			return errFrameSequence
		}

	case frameContinuation:
		if !s.continuationExpected {
			s.sink.RecordEvent(UnexpectedContinuation)
			s.sink.AccumulateInfraction(UnexpectedContinuation)
			return newError("%s: unexpected CONTINUATION", UnexpectedContinuation)
		}
		if headerLength+length > MaxOctets {
			return errFrameTooLarge
		}

	default:
		if s.continuationExpected {
			s.sink.RecordEvent(MissingContinuation)
			s.sink.AccumulateInfraction(MissingContinuation)
			return newError("%s: non-CONTINUATION frame while CONTINUATION expected", MissingContinuation)
		}
		if headerLength+length > MaxOctets {
			return errFrameTooLarge
		}
	}

	s.totalBytesInSplit += length
	return nil
}

// dispatch 处理已解出头部的帧负载 返回 (状态, flushOffset, error)
func (s *Scanner) dispatch(c *bytecursor.Cursor) (Status, int, error) {
	switch s.frameType {
	case frameData:
		return s.dispatchData(c)
	case frameHeaders:
		return s.dispatchHeaders(c)
	case frameContinuation:
		return s.dispatchContinuation(c)
	default:
		return s.dispatchOpaque(c)
	}
}

// dispatchData 处理 DATA 帧 负载的实际切割委托给外部 DataCutter §4.1.3
func (s *Scanner) dispatchData(c *bytecursor.Cursor) (Status, int, error) {
	avail := c.Remaining()
	take := avail
	if uint32(take) > s.remainingFrameOctets {
		take = int(s.remainingFrameOctets)
	}
	payload := c.Advance(take)

	var flushOffset, dataOffset uint32
	_, err := s.dataCutter.Scan(payload, uint32(len(payload)), &flushOffset, &dataOffset, s.remainingFrameOctets, s.frameFlags)
	if err != nil {
		return Abort, 0, err
	}

	s.remainingFrameOctets -= uint32(take)
	if s.remainingFrameOctets > 0 {
		return Search, 0, nil
	}

	// 帧内负载已全部过目 判断流是否结束
	if s.frameFlags&flagEndStream != 0 {
		delete(s.openStreams, s.currentStream)
	}
	flushAt := c.Pos()
	s.resetFrameHeaderAssembly()
	return Flush, flushAt, nil
}

// dispatchHeaders 处理 HEADERS 帧 §4.1.3 "HEADERS"
func (s *Scanner) dispatchHeaders(c *bytecursor.Cursor) (Status, int, error) {
	status, err := s.consumeFullFramePayload(c)
	if err != nil {
		return Abort, 0, err
	}
	if status == Search {
		return Search, 0, nil
	}

	if s.frameFlags&flagEndHeaders == 0 {
		s.continuationExpected = true
		s.octetsSeen = 0
		return Search, 0, nil
	}

	s.openStreams[s.currentStream] = s.frameFlags&flagEndStream == 0
	if !s.openStreams[s.currentStream] {
		delete(s.openStreams, s.currentStream)
	}
	flushAt := c.Pos()
	s.resetFrameHeaderAssembly()
	return Flush, flushAt, nil
}

// dispatchContinuation 处理 CONTINUATION 帧 §4.1.3 "CONTINUATION"
func (s *Scanner) dispatchContinuation(c *bytecursor.Cursor) (Status, int, error) {
	status, err := s.consumeFullFramePayload(c)
	if err != nil {
		return Abort, 0, err
	}
	if status == Search {
		return Search, 0, nil
	}

	if s.frameFlags&flagEndHeaders == 0 {
		s.octetsSeen = 0
		return Search, 0, nil
	}

	s.continuationExpected = false
	s.openStreams[s.currentStream] = s.frameFlags&flagEndStream == 0
	if !s.openStreams[s.currentStream] {
		delete(s.openStreams, s.currentStream)
	}
	flushAt := c.Pos()
	s.resetFrameHeaderAssembly()
	return Flush, flushAt, nil
}

// dispatchOpaque 处理 PRIORITY/SETTINGS/RST_STREAM/PING/GOAWAY/WINDOW_UPDATE
// 以及目前尚未实现的 PUSH_PROMISE §9 Open Questions
func (s *Scanner) dispatchOpaque(c *bytecursor.Cursor) (Status, int, error) {
	if s.frameType == framePushPromise {
		s.sink.RecordEvent(UnexpectedContinuation)
		s.sink.AccumulateInfraction(UnexpectedContinuation)
		return Abort, 0, newError("PUSH_PROMISE not supported (see design notes)")
	}

	status, err := s.consumeFullFramePayload(c)
	if err != nil {
		return Abort, 0, err
	}
	if status == Search {
		return Search, 0, nil
	}

	if s.frameType == frameRSTStream {
		delete(s.openStreams, s.currentStream)
	}

	flushAt := c.Pos()
	s.resetFrameHeaderAssembly()
	return Flush, flushAt, nil
}

// consumeFullFramePayload 在一个连续的 flush 窗口内消费完整帧负载
//
// 非 DATA 帧要求整帧负载落在同一次 flush 内 跨越多个 chunk 时持续返回
// Search 直到 remainingFrameOctets 归零
func (s *Scanner) consumeFullFramePayload(c *bytecursor.Cursor) (Status, error) {
	avail := uint32(c.Remaining())
	if avail >= s.remainingFrameOctets {
		c.Advance(int(s.remainingFrameOctets))
		s.remainingFrameOctets = 0
		return Flush, nil
	}
	c.Advance(int(avail))
	s.remainingFrameOctets -= avail
	return Search, nil
}

// resetFrameHeaderAssembly 在一次 flush 完成之后重置帧头部组装状态
// num_frame_headers / total_bytes_in_split 留给调用方通过访问器读取
// 直到下一帧头部开始解码时才清零 §3
func (s *Scanner) resetFrameHeaderAssembly() {
	s.octetsSeen = 0
	s.remainingFrameOctets = 0
}

// NumFrameHeaders 返回自上次 flush 以来累积的帧头部数量 供 Reassembler 使用
func (s *Scanner) NumFrameHeaders() int {
	return s.numFrameHeaders
}

// TotalBytesInSplit 返回承诺交付给 Reassembler 的字节总数
func (s *Scanner) TotalBytesInSplit() uint32 {
	return s.totalBytesInSplit
}

// FrameType 返回本轮扫描窗口对应的帧类型 供 Reassembler 判断 DATA/非 DATA 模式
func (s *Scanner) FrameType() uint8 {
	return s.frameType
}
