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

// DataCutter 是 DATA 帧负载切割的外部协作者 §4.1.3 / §6
//
// H2FS 本身只负责识别帧边界 真正决定 DATA payload 如何被进一步切分
// (例如进一步解析其中封装的 HTTP/1.x 消息)交由调用方实现 核心只要求
// 该实现是确定性的 且每个完成的帧恰好返回一个缓冲区
type DataCutter interface {
	// Scan 观察本轮 DATA 帧片段 决定是否需要在 flushOffset/dataOffset
	// 处提前切割 frameLength/frameFlags 是当前 DATA 帧的总长度与标志位
	Scan(data []byte, length uint32, flushOffset, dataOffset *uint32, frameLength uint32, frameFlags uint8) (Status, error)

	// Reassemble 消费一个已确定边界的 DATA 负载分片 返回组装完成的缓冲区
	Reassemble(chunk []byte) (StreamBuffer, error)
}

// defaultDataCutter 是一个足够让 Scanner/Reassembler 独立可测的最小实现
//
// 它把整个 DATA 帧负载(已剔除填充)当作一个不透明的 HTTP body 分片
// 在帧边界上切割 不做任何更深层的协议解析 生产环境的调用方应提供自己的实现
type defaultDataCutter struct{}

func (defaultDataCutter) Scan(data []byte, length uint32, flushOffset, dataOffset *uint32, frameLength uint32, frameFlags uint8) (Status, error) {
	*flushOffset = length
	*dataOffset = 0
	return Flush, nil
}

func (defaultDataCutter) Reassemble(chunk []byte) (StreamBuffer, error) {
	return StreamBuffer{Data: chunk}, nil
}
