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

// Package bufpool 提供 *bytes.Buffer 的复用池
//
// H2FS Reassembler 的 frame_header / frame_data 缓冲是短生命周期 高频创建的
// 场景 复用可以显著降低 GC 压力 PDFTok 的 JS 输出写入调用方提供的 io.Writer
// 不经过此池
//
// 底层基于 valyala/bytebufferpool 按 Size Class 分桶 避免大小差异悬殊的
// buffer 相互污染彼此的容量估计
package bufpool

import (
	"bytes"

	"github.com/valyala/bytebufferpool"
)

var pool bytebufferpool.Pool

// Acquire 从池中取出一个已重置的 *bytes.Buffer
func Acquire() *bytes.Buffer {
	bb := pool.Get()
	return bytes.NewBuffer(bb.B[:0])
}

// Release 归还 buffer 调用方不应在归还后继续持有或读取该 buffer
func Release(buf *bytes.Buffer) {
	if buf == nil {
		return
	}
	bb := &bytebufferpool.ByteBuffer{B: buf.Bytes()[:0]}
	pool.Put(bb)
}
