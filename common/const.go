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

package common

const (
	// App 应用程序名称
	App = "ids-core"

	// Version 应用程序版本
	Version = "v0.0.1"

	// ReadWriteBlockSize CLI 模拟任意分片时使用的默认分片大小
	//
	// 真实环境中 TCP Segments 的分片边界完全不可控 这里只是给 CLI/测试
	// 提供一个折中的默认值 核心解析逻辑从不假设分片边界落在帧或对象的边界上
	ReadWriteBlockSize = 4096
)
