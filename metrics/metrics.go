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

// Package metrics declares the process-wide Prometheus collectors for
// scan verdicts, aborts, reassembled bytes, and PDF/JS extraction,
// mirroring the shape of the teacher's controller/metrics.go.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/packetd/ids-core/common"
)

var (
	Uptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: common.App,
			Name:      "uptime",
			Help:      "Uptime in seconds",
		},
	)

	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: common.App,
			Name:      "build_info",
			Help:      "Build information",
		},
		[]string{"version", "git_hash", "build_time"},
	)

	// ScanVerdicts counts every terminal Status a Scanner.Scan call returns.
	ScanVerdicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: common.App,
			Name:      "h2fs_scan_verdicts_total",
			Help:      "H2FS scan verdicts total",
		},
		[]string{"verdict"},
	)

	// ReassembledBytes counts frame_header and frame_data bytes separately.
	ReassembledBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: common.App,
			Name:      "h2fs_reassembled_bytes_total",
			Help:      "H2FS reassembled bytes total by buffer kind",
		},
		[]string{"buffer"},
	)

	// PDFObjects counts indirect objects opened by the PDF lexer.
	PDFObjects = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: common.App,
			Name:      "pdftok_objects_total",
			Help:      "PDFTok indirect objects opened total",
		},
	)

	// PDFJSBytes counts decoded UTF-8 JavaScript bytes written to the sink.
	PDFJSBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: common.App,
			Name:      "pdftok_js_bytes_total",
			Help:      "PDFTok decoded JavaScript bytes total",
		},
	)

	// PDFErrors counts lexer errors by Reason.
	PDFErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: common.App,
			Name:      "pdftok_errors_total",
			Help:      "PDFTok lexer errors total by reason",
		},
		[]string{"reason"},
	)
)

// RecordBuildInfo stamps the build_info gauge with the running binary's
// version metadata; value is always 1, labels carry the information.
func RecordBuildInfo() {
	info := common.GetBuildInfo()
	BuildInfo.WithLabelValues(info.Version, info.GitHash, info.Time).Set(1)
}

// RefreshUptime sets the uptime gauge from common.Started(). Intended to be
// called on each /metrics scrape by debugserver.
func RefreshUptime() {
	Uptime.Set(float64(time.Now().Unix() - common.Started()))
}
