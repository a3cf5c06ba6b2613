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
	"bytes"

	"github.com/packetd/ids-core/bytecursor"
	"github.com/packetd/ids-core/internal/bufpool"
)

// PDUTail 标记本次 reassemble 调用承载着 PDU 的最后一段 §4.2
const PDUTail uint8 = 0x1

// StreamBuffer 是 reassemble 单次调用的返回值 §6
//
// 一个非 nil 但零长度的 StreamBuffer 是哨兵值 意味着 "需要检测 但本次无
// 新增 pkt_data" —— PDU_TAIL 时总是返回这种哨兵 真正的累计结果通过
// Reassembler.FrameHeader()/FrameData() 访问器读取
type StreamBuffer struct {
	Data []byte
}

// Reassembler 把 Scanner 选择 flush 的字节重组为 frame_header / frame_data
// 两个独立缓冲区 同时剔除填充 §4.2
type Reassembler struct {
	frameType       uint8
	numFrameHeaders int
	cutter          DataCutter

	headerBuf *bytes.Buffer
	dataBuf   *bytes.Buffer

	consumed uint32 // 累计已经看到的 total 字节数 用于校验调用方传入的 offset

	// 帧头部/负载的 round-robin 游走状态 跨越多次 reassemble 调用保持
	hdrPartial    [headerLength]byte
	hdrPartialLen int
	payloadLeft   uint32
	payloadFlags  uint8

	padPending bool // 还未读到 Pad Length 字节
	padLen     uint32
	padLeft    uint32 // 还需要丢弃的填充字节数
}

// NewReassembler 创建并返回一个新的 Reassembler
//
// frameType 与 numFrameHeaders 取自触发本次 flush 的 Scanner 访问器
// §6 "Per-direction state accessor"
func NewReassembler(frameType uint8, numFrameHeaders int, cutter DataCutter) *Reassembler {
	if cutter == nil {
		cutter = defaultDataCutter{}
	}
	return &Reassembler{
		frameType:       frameType,
		numFrameHeaders: numFrameHeaders,
		cutter:          cutter,
		headerBuf:       bufpool.Acquire(),
		dataBuf:         bufpool.Acquire(),
	}
}

// Free 释放 Reassembler 持有的缓冲区 §3 "Lifecycle"
func (r *Reassembler) Free() {
	bufpool.Release(r.headerBuf)
	bufpool.Release(r.dataBuf)
}

// FrameHeader 返回累计写入的帧头部缓冲区 大小应为 9 × num_frame_headers
func (r *Reassembler) FrameHeader() []byte {
	return r.headerBuf.Bytes()
}

// FrameData 返回累计写入的负载缓冲区 填充字节已被剔除
func (r *Reassembler) FrameData() []byte {
	return r.dataBuf.Bytes()
}

// Reassemble 消费 flush 出来的一段连续字节 §4.2
//
// offset == 0 代表本 PDU 的第一次调用 offset+len(chunk) 不得超过 total
// flags 在最后一次调用时应带上 PDUTail
func (r *Reassembler) Reassemble(total, offset uint32, chunk []byte, flags uint8) (StreamBuffer, error) {
	if offset != r.consumed {
		return StreamBuffer{}, newError("reassemble: out-of-order offset %d, expected %d", offset, r.consumed)
	}
	if offset+uint32(len(chunk)) > total {
		return StreamBuffer{}, newError("reassemble: chunk exceeds total (%d+%d > %d)", offset, len(chunk), total)
	}
	r.consumed += uint32(len(chunk))

	c := bytecursor.New(chunk)
	var out StreamBuffer

	for !c.Done() {
		if r.payloadLeft == 0 && !r.padPending {
			if !r.fillHeader(&c) {
				break // 头部在多次调用之间被切割 等待下一次调用
			}
			continue
		}

		if r.padPending {
			b, ok := c.ReadByte()
			if !ok {
				break
			}
			r.padLen = uint32(b)
			r.padLeft = r.padLen
			r.padPending = false
			if r.payloadLeft == 0 {
				return StreamBuffer{}, errInvalidPadding
			}
			r.payloadLeft--
			if r.padLeft > r.payloadLeft {
				return StreamBuffer{}, errInvalidPadding
			}
			continue
		}

		take := c.Remaining()
		if uint32(take) > r.payloadLeft {
			take = int(r.payloadLeft)
		}

		// 填充字节总是出现在负载尾部 data_left 是在本次消费之前 payload_left
		// 中尚未属于填充的部分 本次 take 的前 data_left 个字节是数据 其余
		// (若有)是填充 两者不会在同一个字节位置交替出现
		dataLeft := r.payloadLeft - r.padLeft
		dataTaken := uint32(take)
		if dataTaken > dataLeft {
			dataTaken = dataLeft
		}
		padTaken := uint32(take) - dataTaken

		payload := c.Advance(take)
		r.payloadLeft -= uint32(take)
		r.padLeft -= padTaken

		body := payload[:dataTaken]

		if len(body) > 0 {
			if r.frameType == frameData {
				sb, err := r.cutter.Reassemble(body)
				if err != nil {
					return StreamBuffer{}, err
				}
				r.dataBuf.Write(sb.Data)
				out = sb
			} else {
				r.dataBuf.Write(body)
			}
		}
	}

	if flags&PDUTail != 0 {
		r.payloadLeft = 0
		r.hdrPartialLen = 0
		r.padPending = false
		r.padLen = 0
		r.padLeft = 0
		return StreamBuffer{Data: []byte{}}, nil
	}
	return out, nil
}

// fillHeader 在 round-robin 游走中读取下一个 9 字节帧头部 并据此设定
// payloadLeft/padPending 返回 false 表示头部尚未集齐 需要等待下一次调用
func (r *Reassembler) fillHeader(c *bytecursor.Cursor) bool {
	for r.hdrPartialLen < headerLength {
		b, ok := c.ReadByte()
		if !ok {
			return false
		}
		r.hdrPartial[r.hdrPartialLen] = b
		r.hdrPartialLen++
	}

	r.headerBuf.Write(r.hdrPartial[:])

	h := r.hdrPartial[:]
	length := uint32(h[0])<<16 | uint32(h[1])<<8 | uint32(h[2])
	flags := h[4]

	r.hdrPartialLen = 0
	r.payloadLeft = length
	r.payloadFlags = flags
	r.padPending = flags&flagPadded != 0
	r.padLen = 0
	r.padLeft = 0
	return true
}
