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

package llmclient

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter wraps tiktoken-go, caching one encoding per model the same
// way the teacher's pkg/utils.TokenCounter does.
type TokenCounter struct {
	encoding *tiktoken.Tiktoken
	model    string
}

var (
	encodingCache   = make(map[string]*tiktoken.Tiktoken)
	encodingCacheMu sync.RWMutex
)

// NewTokenCounter returns a counter for model, falling back to cl100k_base
// when the model has no known encoding.
func NewTokenCounter(model string) (*TokenCounter, error) {
	encodingCacheMu.RLock()
	cached, ok := encodingCache[model]
	encodingCacheMu.RUnlock()
	if ok {
		return &TokenCounter{encoding: cached, model: model}, nil
	}

	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, fmt.Errorf("get encoding: %w", err)
		}
	}

	encodingCacheMu.Lock()
	encodingCache[model] = enc
	encodingCacheMu.Unlock()
	return &TokenCounter{encoding: enc, model: model}, nil
}

// Count returns the token count of text.
func (c *TokenCounter) Count(text string) int {
	return len(c.encoding.Encode(text, nil, nil))
}

// Stats is the client's rolling request/response statistics, updated
// after every chat_completion / chat_completion_stream call.
type Stats struct {
	mu sync.Mutex

	requests    int
	successes   int
	failures    int
	promptToks  int
	completionToks int
	latencies   []time.Duration
}

// NewStats creates an empty stats tracker.
func NewStats() *Stats {
	return &Stats{}
}

// RecordSuccess logs a completed request: token usage and latency.
func (s *Stats) RecordSuccess(promptTokens, completionTokens int, latency time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests++
	s.successes++
	s.promptToks += promptTokens
	s.completionToks += completionTokens
	s.latencies = append(s.latencies, latency)
}

// RecordFailure logs a failed request (no token usage, still timed).
func (s *Stats) RecordFailure(latency time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests++
	s.failures++
	s.latencies = append(s.latencies, latency)
}

// Snapshot is a point-in-time read of Stats.
type Snapshot struct {
	Requests         int
	Successes        int
	Failures         int
	PromptTokens     int
	CompletionTokens int
	P50              time.Duration
	P95              time.Duration
	P99              time.Duration
}

// Snapshot computes latency percentiles over all recorded latencies.
func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	sorted := append([]time.Duration(nil), s.latencies...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	return Snapshot{
		Requests:         s.requests,
		Successes:        s.successes,
		Failures:         s.failures,
		PromptTokens:     s.promptToks,
		CompletionTokens: s.completionToks,
		P50:              percentile(sorted, 0.50),
		P95:              percentile(sorted, 0.95),
		P99:              percentile(sorted, 0.99),
	}
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(p * float64(len(sorted)-1))
	return sorted[idx]
}
