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

// Package h2fs 实现 HTTP/2 Frame Splitter & Reassembler (H2FS)
//
// H2FS 消费一条方向明确的原始 TCP 字节流 在不要求调用方一次性交付完整帧的
// 前提下 判断何时应当把一个完整的逻辑单元(连接前言 一个 DATA 帧片段
// HEADERS+CONTINUATION 串 或其它控制帧)下发给检测链路 并把下发的字节
// 重组为独立的 "header" 与 "data" 缓冲区 过程中剔除填充字节
package h2fs

// connPreface 是 HTTP/2 客户端建连时发送的 24 字节明文前言
const connPreface = "PRI * HTTP/2.0\r\n\r\nSM\r\n\r\n"

const prefaceLength = len(connPreface)

// HTTP/2 帧类型 rfc7540 §6
const (
	frameData         uint8 = 0x0
	frameHeaders      uint8 = 0x1
	framePriority     uint8 = 0x2
	frameRSTStream    uint8 = 0x3
	frameSettings     uint8 = 0x4
	framePushPromise  uint8 = 0x5
	framePing         uint8 = 0x6
	frameGoAway       uint8 = 0x7
	frameWindowUpdate uint8 = 0x8
	frameContinuation uint8 = 0x9
)

// HTTP/2 帧标志位 rfc7540 §6
const (
	flagEndStream  uint8 = 0x1
	flagEndHeaders uint8 = 0x4
	flagPadded     uint8 = 0x8
	flagPriority   uint8 = 0x20
)

const (
	// headerLength 每个 HTTP/2 帧头部的固定长度
	headerLength = 9

	// streamIDMask 用于剔除 31 位 Stream Identifier 前面的保留位
	streamIDMask = 0x7fffffff
)

// MaxOctets 是非 DATA 帧允许的软上限 实现定义值 参见 spec §6
//
// rfc7540 允许帧长度达到 2^24-1 字节 但检测链路不会缓存那么大的控制帧
// 63 KiB 足够容纳绝大多数真实环境中的 HEADERS/CONTINUATION 串
const MaxOctets = 63 * 1024
