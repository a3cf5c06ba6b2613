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

// Package debugserver wires the ambient /metrics and /-/logger routes onto
// the generic server.Server, for operating the H2FS/PDFTok parser pair as
// a long-lived process. It carries no scanning workload of its own.
package debugserver

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/packetd/ids-core/confengine"
	"github.com/packetd/ids-core/logger"
	"github.com/packetd/ids-core/metrics"
	"github.com/packetd/ids-core/server"
)

// New builds a debug Server from conf and registers the admin/metrics
// routes. Returns (nil, nil) when the server section is disabled, matching
// server.New's own convention.
func New(conf *confengine.Config) (*server.Server, error) {
	svr, err := server.New(conf)
	if err != nil || svr == nil {
		return svr, err
	}

	svr.RegisterGetRoute("/metrics", routeMetrics)
	svr.RegisterPostRoute("/-/logger", routeLogger)
	return svr, nil
}

func routeMetrics(w http.ResponseWriter, r *http.Request) {
	metrics.RecordBuildInfo()
	metrics.RefreshUptime()
	promhttp.Handler().ServeHTTP(w, r)
}

func routeLogger(w http.ResponseWriter, r *http.Request) {
	level := r.FormValue("level")
	logger.SetLoggerLevel(level)
	_, _ = w.Write([]byte(`{"status": "success"}`))
}
