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

// Package observability instruments the ReAct cycle and tool dispatch with
// OpenTelemetry spans and Prometheus counters, grounded on the teacher's
// pkg/observability (Manager/Tracer/Metrics split). Unlike the teacher,
// which exports traces over OTLP/gRPC, this module's go.mod carries the
// stdout trace exporter, so InitTracer writes spans to an io.Writer (stdout
// by default) — suitable for local runs and tests; a production deployment
// swaps the exporter behind the same TracerProvider seam.
package observability

import (
	"context"
	"fmt"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// TracerConfig selects whether/how spans are exported.
type TracerConfig struct {
	Enabled      bool
	ServiceName  string
	SamplingRate float64
	Writer       io.Writer // when nil, the exporter's default (os.Stdout) is used; callers pass io.Discard in tests
}

// InitTracer installs a global TracerProvider per cfg. When cfg.Enabled is
// false it installs a no-op provider so every Tracer() call downstream
// stays free, matching the teacher's InitGlobalTracer short-circuit.
func InitTracer(ctx context.Context, cfg TracerConfig) (trace.TracerProvider, error) {
	if !cfg.Enabled {
		tp := noop.NewTracerProvider()
		otel.SetTracerProvider(tp)
		return tp, nil
	}

	opts := []stdouttrace.Option{stdouttrace.WithPrettyPrint()}
	if cfg.Writer != nil {
		opts = append(opts, stdouttrace.WithWriter(cfg.Writer))
	}
	exporter, err := stdouttrace.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("observability: stdout exporter: %w", err)
	}

	name := cfg.ServiceName
	if name == "" {
		name = "planner"
	}
	res, err := resource.New(ctx, resource.WithAttributes(
		attribute.String("service.name", name),
	))
	if err != nil {
		return nil, fmt.Errorf("observability: resource: %w", err)
	}

	rate := cfg.SamplingRate
	if rate <= 0 {
		rate = 1
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(rate)),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	return tp, nil
}

// Tracer returns the named tracer off the currently installed global
// provider, exactly like the teacher's GetTracer.
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}
