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

// Package bytecursor 提供一个只读、零拷贝的字节视图
//
// H2FS 和 PDFTok 均需要在任意分片的字节流上做增量解析 Cursor 把 "当前读到哪了"
// 这件事收敛到一个值类型里 所有返回的切片都引用调用方传入的底层数组 从不拷贝
// 也从不越界 panic —— 字节不够时返回 ok=false 交由上层决定是 `Search`(等更多数据)
// 还是终止
package bytecursor

type Cursor struct {
	b []byte
	r int
}

// New 创建并返回 Cursor 实例 b 的生命周期由调用方负责
func New(b []byte) Cursor {
	return Cursor{b: b}
}

// Len 返回底层切片总长度
func (c Cursor) Len() int {
	return len(c.b)
}

// Pos 返回当前读取偏移量
func (c Cursor) Pos() int {
	return c.r
}

// Remaining 返回尚未读取的字节数
func (c Cursor) Remaining() int {
	return len(c.b) - c.r
}

// Done 返回是否已读到末尾
func (c Cursor) Done() bool {
	return c.r >= len(c.b)
}

// Peek 查看接下来 n 个字节 不移动读取偏移量 n 超出剩余字节数时返回 ok=false
func (c Cursor) Peek(n int) ([]byte, bool) {
	if n < 0 || c.r+n > len(c.b) {
		return nil, false
	}
	return c.b[c.r : c.r+n], true
}

// Advance 消费接下来 n 个字节并返回其切片 n 超出剩余字节数时返回 nil 且不移动偏移量
func (c *Cursor) Advance(n int) []byte {
	b, ok := c.Peek(n)
	if !ok {
		return nil
	}
	c.r += n
	return b
}

// ReadByte 读取单个字节
func (c *Cursor) ReadByte() (byte, bool) {
	b := c.Advance(1)
	if b == nil {
		return 0, false
	}
	return b[0], true
}

// ReadUint24BE 读取 24 位大端无符号整数 常用于 HTTP/2 帧长度字段
func (c *Cursor) ReadUint24BE() (uint32, bool) {
	b := c.Advance(3)
	if b == nil {
		return 0, false
	}
	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2]), true
}

// ReadUint32BE 读取 32 位大端无符号整数
func (c *Cursor) ReadUint32BE() (uint32, bool) {
	b := c.Advance(4)
	if b == nil {
		return 0, false
	}
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]), true
}

// Rest 返回从当前偏移量到末尾的剩余切片 不移动偏移量
func (c Cursor) Rest() []byte {
	return c.b[c.r:]
}

// Skip 不读取内容 直接将偏移量前移 n 字节 n 超出剩余字节数时截断至末尾
func (c *Cursor) Skip(n int) {
	c.r += n
	if c.r > len(c.b) {
		c.r = len(c.b)
	}
}
