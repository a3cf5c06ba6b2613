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

// Package eventsink 提供 h2fs.EventSink 的若干现成实现
package eventsink

import (
	"sync"

	"github.com/golang/snappy"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/packetd/ids-core/common"
	"github.com/packetd/ids-core/h2fs"
	"github.com/packetd/ids-core/logger"
)

var (
	recordedEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: common.App,
			Name:      "h2fs_events_total",
			Help:      "H2FS protocol events recorded, labelled by event id",
		},
		[]string{"event"},
	)

	infractions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: common.App,
			Name:      "h2fs_infractions_total",
			Help:      "H2FS abort-causing infractions accumulated, labelled by event id",
		},
		[]string{"event"},
	)
)

// PrometheusEventSink 把每一次 RecordEvent/AccumulateInfraction
// 记录为一个按 event id 打标的 promauto 计数器 §4.7
type PrometheusEventSink struct{}

func (PrometheusEventSink) RecordEvent(id h2fs.EventID) {
	recordedEvents.WithLabelValues(string(id)).Inc()
}

func (PrometheusEventSink) AccumulateInfraction(id h2fs.EventID) {
	infractions.WithLabelValues(string(id)).Inc()
}

// snapshot 是一条被 snappy 压缩保存的取证记录
type snapshot struct {
	event     h2fs.EventID
	compacted []byte // snappy.Encode 之后的数据 按需 snappy.Decode 还原
}

// LoggingEventSink 把事件写入日志 并维护一个固定容量的取证环形缓冲 §4.7
//
// 环形缓冲中保存的是最近 N 次 Snapshot 调用时调用方传入的原始帧字节
// 经 snappy 压缩后驻留 避免长时间保留大量未压缩的可疑流量
// AccumulateInfraction 本身只写日志 不向环形缓冲写入任何内容
type LoggingEventSink struct {
	log logger.Logger

	mu      sync.Mutex
	ring    []snapshot
	ringCap int
	next    int
}

// NewLoggingEventSink 创建一个 LoggingEventSink ringSize 为取证环形缓冲容量
func NewLoggingEventSink(ringSize int) *LoggingEventSink {
	if ringSize <= 0 {
		ringSize = 32
	}
	return &LoggingEventSink{
		log:     logger.Std().With("component", "h2fs.eventsink"),
		ringCap: ringSize,
	}
}

func (s *LoggingEventSink) RecordEvent(id h2fs.EventID) {
	s.log.Warnf("h2fs event recorded: %s", id)
}

func (s *LoggingEventSink) AccumulateInfraction(id h2fs.EventID) {
	s.log.Errorf("h2fs infraction accumulated: %s", id)
}

// Snapshot 把 frame 的原始字节压缩后追加进取证环形缓冲 供调用方在检测到
// 需要中止的方向时主动调用(核心本身不持有原始帧字节 §3 Non-goals)
func (s *LoggingEventSink) Snapshot(id h2fs.EventID, frame []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := snapshot{event: id, compacted: snappy.Encode(nil, frame)}
	if len(s.ring) < s.ringCap {
		s.ring = append(s.ring, entry)
	} else {
		s.ring[s.next] = entry
		s.next = (s.next + 1) % s.ringCap
	}
}

// Replay 按插入顺序还原取证环形缓冲中当前保存的所有帧字节
func (s *LoggingEventSink) Replay() ([]h2fs.EventID, [][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.ring)
	ids := make([]h2fs.EventID, 0, n)
	frames := make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		// s.next 指向最旧的一条(环未写满时为 0)
		entry := s.ring[(s.next+i)%n]
		raw, err := snappy.Decode(nil, entry.compacted)
		if err != nil {
			return nil, nil, err
		}
		ids = append(ids, entry.event)
		frames = append(frames, raw)
	}
	return ids, frames, nil
}

// MultiEventSink 把一次调用分发给任意数量的下游 sink §4.7
type MultiEventSink struct {
	sinks []h2fs.EventSink
}

// NewMultiEventSink 组合多个 EventSink 为一个
func NewMultiEventSink(sinks ...h2fs.EventSink) *MultiEventSink {
	return &MultiEventSink{sinks: sinks}
}

func (m *MultiEventSink) RecordEvent(id h2fs.EventID) {
	for _, s := range m.sinks {
		s.RecordEvent(id)
	}
}

func (m *MultiEventSink) AccumulateInfraction(id h2fs.EventID) {
	for _, s := range m.sinks {
		s.AccumulateInfraction(id)
	}
}
