// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package httpclient provides the process-wide pooled HTTP transport used
// by the OpenAI LLM provider (Shared) and the vector-service embedder
// (New). The prefab gateway talks MCP over a subprocess and does not use
// it. Retry/backoff policy lives one layer up in
// internal/llmclient.RetryManager; this package owns only connection
// pooling, matching the "resource acquisition" split in spec §5.
package httpclient

import (
	"net/http"
	"sync"
	"time"
)

const (
	defaultMaxIdleConns        = 100
	defaultMaxIdleConnsPerHost = 30
	defaultIdleConnTimeout     = 90 * time.Second
	defaultTimeout             = 120 * time.Second
)

var (
	sharedOnce   sync.Once
	sharedClient *http.Client
)

// Shared returns the process-wide pooled client (spec §5 "Resource
// acquisition"): 100 total idle connections, 30 per host, a 90s idle
// timeout, and a 120s total request timeout. Callers needing a shorter
// timeout should derive a context deadline rather than build a second
// client, so the connection pool stays unified.
func Shared() *http.Client {
	sharedOnce.Do(func() {
		sharedClient = &http.Client{
			Timeout: defaultTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        defaultMaxIdleConns,
				MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
				IdleConnTimeout:     defaultIdleConnTimeout,
			},
		}
	})
	return sharedClient
}

// New builds a client sharing the pooled transport but with its own
// timeout, for call sites needing a different deadline (e.g. the OpenAI
// embedder's 30s vs. the LLM client's 120s).
func New(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: Shared().Transport,
	}
}
