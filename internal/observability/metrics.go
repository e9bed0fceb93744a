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

package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors the orchestrator and dispatcher
// update per ReAct cycle and per tool call — a narrowed version of the
// teacher's pkg/observability.Metrics scoped to this module's components
// (cycles, tool calls and LLM requests; no RAG/session/HTTP-router metrics
// since those collaborators are out of spec scope).
type Metrics struct {
	registry *prometheus.Registry

	CycleCount    *prometheus.CounterVec
	CycleDuration *prometheus.HistogramVec

	ToolCalls        *prometheus.CounterVec
	ToolCallDuration *prometheus.HistogramVec
	ToolErrors       *prometheus.CounterVec

	LLMRequests *prometheus.CounterVec
	LLMRetries  *prometheus.CounterVec
	LLMTokens   *prometheus.CounterVec
}

// NewMetrics builds and registers every collector against a fresh
// registry, so multiple Metrics instances (e.g. one per test) never
// collide on the global default registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		CycleCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "planner_react_cycles_total",
			Help: "Total ReAct cycles run, labeled by outcome.",
		}, []string{"outcome"}),
		CycleDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "planner_react_cycle_duration_seconds",
			Help:    "Duration of one ReAct cycle (one LLM call plus its tool round).",
			Buckets: prometheus.DefBuckets,
		}, []string{"outcome"}),
		ToolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "planner_tool_calls_total",
			Help: "Total tool invocations, labeled by tool name and success.",
		}, []string{"tool", "success"}),
		ToolCallDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "planner_tool_call_duration_seconds",
			Help:    "Duration of one tool handler invocation.",
			Buckets: prometheus.DefBuckets,
		}, []string{"tool"}),
		ToolErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "planner_tool_errors_total",
			Help: "Total tool invocation failures, labeled by tool name.",
		}, []string{"tool"}),
		LLMRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "planner_llm_requests_total",
			Help: "Total LLM client requests, labeled by outcome.",
		}, []string{"outcome"}),
		LLMRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "planner_llm_retries_total",
			Help: "Total LLM client retries, labeled by error classification.",
		}, []string{"class"}),
		LLMTokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "planner_llm_tokens_total",
			Help: "Total tokens accounted for by the LLM client, labeled by direction.",
		}, []string{"direction"}),
	}

	registry.MustRegister(
		m.CycleCount, m.CycleDuration,
		m.ToolCalls, m.ToolCallDuration, m.ToolErrors,
		m.LLMRequests, m.LLMRetries, m.LLMTokens,
	)
	return m
}

// ObserveCycle records one completed ReAct cycle.
func (m *Metrics) ObserveCycle(outcome string, d time.Duration) {
	m.CycleCount.WithLabelValues(outcome).Inc()
	m.CycleDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// ObserveToolCall records one completed tool dispatch.
func (m *Metrics) ObserveToolCall(tool string, success bool, d time.Duration) {
	m.ToolCalls.WithLabelValues(tool, boolLabel(success)).Inc()
	m.ToolCallDuration.WithLabelValues(tool).Observe(d.Seconds())
	if !success {
		m.ToolErrors.WithLabelValues(tool).Inc()
	}
}

// Handler exposes the registry's collectors at /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
