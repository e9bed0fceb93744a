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

// Package orchestrator is the ReAct cycle: one recursive LLM-call/tool-call
// round trip per depth level, bounded by max_recursion_depth (spec §4.1).
// It is the only package that owns the shape of a turn; everything else
// (tool handlers, the LLM client, the event bus) is a collaborator it
// drives.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kadirpekel/planner/internal/llmclient"
	"github.com/kadirpekel/planner/internal/message"
	"github.com/kadirpekel/planner/internal/observability"
	"github.com/kadirpekel/planner/internal/promptstore"
	"github.com/kadirpekel/planner/internal/streaming"
	"github.com/kadirpekel/planner/internal/toolkit"
)

const defaultMaxRecursionDepth = 5

const maxDepthMessage = "max-depth reached"

// Orchestrator wires the LLM client, tool registry/dispatcher, and prompt
// store into the ReAct cycle. One Orchestrator is shared across turns and
// sessions; all per-turn state lives in the toolkit.Shared it builds per
// call to Run.
type Orchestrator struct {
	LLM               *llmclient.Client
	Tools             *toolkit.Registry
	Dispatcher        *toolkit.Dispatcher
	Prompts           promptstore.Store
	DefaultLanguage   string
	MaxRecursionDepth int

	// Tracer and Metrics are optional observability collaborators (spec
	// §1's Non-goals exclude generated-document semantics, not the core's
	// own instrumentation). Left nil, Run behaves exactly as before — every
	// call below is a nil-checked no-op.
	Tracer  trace.Tracer
	Metrics *observability.Metrics
}

// New builds an Orchestrator with the default recursion depth; override
// MaxRecursionDepth on the returned value for tests that need a tighter
// bound.
func New(llm *llmclient.Client, tools *toolkit.Registry, prompts promptstore.Store, defaultLanguage string) *Orchestrator {
	return &Orchestrator{
		LLM:               llm,
		Tools:             tools,
		Dispatcher:        toolkit.NewDispatcher(tools),
		Prompts:           prompts,
		DefaultLanguage:   defaultLanguage,
		MaxRecursionDepth: defaultMaxRecursionDepth,
	}
}

// Run executes one full turn: build shared state, run the ReAct cycle to
// completion or depth limit, and translate the outcome back into a
// caller-facing Result (spec §4.1/§4.8).
func (o *Orchestrator) Run(ctx context.Context, userInput string, msgCtx message.Context, session *streaming.Session, callbacks Callbacks) (message.Result, error) {
	start := time.Now()

	language := msgCtx.SessionMetadata["language"]
	lang, _ := language.(string)
	if lang == "" {
		lang = o.DefaultLanguage
	}

	shared, err := createSharedDict(userInput, msgCtx, lang, session)
	if err != nil {
		return message.Result{Success: false, Error: err.Error(), ExecutionTime: time.Since(start).Seconds()}, err
	}

	messages := append([]message.Message(nil), shared.DialogueHistory...)

	fatal := o.cycle(ctx, shared, messages, 0, callbacks)
	if fatal != nil {
		shared.RecordError("orchestrator.cycle", fatal.Error(), nowUnix())
	}
	return createAgentResult(shared, fatal, time.Since(start)), nil
}

// cycle is one LLM-call/tool-call round (spec §4.1 step 3). It recurses
// only from TOOLS_DONE back to LLM_PENDING, gated by depth. Tracing/metrics
// wrap runCycle rather than living inside it, so the ReAct control flow
// itself stays readable.
func (o *Orchestrator) cycle(ctx context.Context, shared *toolkit.Shared, messages []message.Message, depth int, callbacks Callbacks) error {
	start := time.Now()
	ctx, span := o.startSpan(ctx, depth)
	defer span.End()

	err := o.runCycle(ctx, shared, messages, depth, callbacks)

	outcome := "ok"
	if err != nil {
		outcome = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	if o.Metrics != nil {
		o.Metrics.ObserveCycle(outcome, time.Since(start))
	}
	return err
}

// startSpan opens a span for one cycle when a tracer is configured; it
// returns a context and a span that are both safe to use unconditionally
// (trace.Tracer(nil) is never installed — o.Tracer is either a real tracer
// or left nil, in which case no span is started and End/RecordError/
// SetStatus on the returned no-op span are harmless).
func (o *Orchestrator) startSpan(ctx context.Context, depth int) (context.Context, trace.Span) {
	if o.Tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	ctx, span := o.Tracer.Start(ctx, "react.cycle", trace.WithAttributes(
		attribute.Int("react.depth", depth),
	))
	return ctx, span
}

// runCycle is the actual ReAct round: one LLM call, possible tool
// dispatch, possible recursion.
func (o *Orchestrator) runCycle(ctx context.Context, shared *toolkit.Shared, messages []message.Message, depth int, callbacks Callbacks) error {
	shared.ReactCycleCount = depth

	if depth >= o.effectiveMaxDepth() {
		shared.AppendNewMessage(message.Message{
			Role:      message.RoleAssistant,
			Content:   maxDepthMessage,
			Timestamp: nowUnix(),
		})
		return nil
	}

	req := llmclient.Request{
		SystemPrompt: o.buildSystemPrompt(shared),
		Messages:     messages,
		Tools:        toolDefinitions(o.Tools),
	}

	if callbacks.Wants(streaming.KindAssistantMessageStart) {
		o.emit(shared, streaming.KindAssistantMessageStart, nil)
	}

	stream, err := o.LLM.ChatCompletionStream(ctx, req, llmclient.StreamOptions{FilterToolTags: true})
	if err != nil {
		o.emit(shared, streaming.KindError, map[string]any{"source": "llm_client", "error": err.Error()})
		return fmt.Errorf("llm stream: %w", err)
	}

	var content strings.Builder
	var toolCalls []message.ToolCall
	var streamErr error

	for chunk := range stream {
		switch chunk.Type {
		case llmclient.ChunkText:
			content.WriteString(chunk.Text)
			if callbacks.Wants(streaming.KindAssistantMessageChunk) {
				o.emit(shared, streaming.KindAssistantMessageChunk, map[string]any{"content": chunk.Text})
			}
		case llmclient.ChunkToolCall:
			if chunk.ToolCall != nil && chunk.ToolCall.ID != "" {
				toolCalls = append(toolCalls, *chunk.ToolCall)
			}
		case llmclient.ChunkError:
			streamErr = chunk.Err
			o.emit(shared, streaming.KindError, map[string]any{"source": "llm_stream", "error": errString(chunk.Err)})
		case llmclient.ChunkDone:
			// stats already recorded by the client.
		}
	}

	assistantMsg := message.Message{
		Role:      message.RoleAssistant,
		Content:   content.String(),
		Timestamp: nowUnix(),
		ToolCalls: toolCalls,
	}
	shared.AppendNewMessage(assistantMsg)

	if streamErr != nil {
		return fmt.Errorf("llm stream: %w", streamErr)
	}

	if len(toolCalls) == 0 {
		if callbacks.Wants(streaming.KindAssistantMessageEnd) {
			o.emit(shared, streaming.KindAssistantMessageEnd, map[string]any{
				"content":    assistantMsg.Content,
				"tool_calls": []any{},
			})
		}
		return nil
	}

	messages = append(messages, assistantMsg)

	// A tool call whose arguments fail to parse as JSON becomes a failed
	// Result for that call only (spec §4.3); it never aborts the turn, so
	// argFailures is reported through the same start/end event pairing and
	// tool message shape as a dispatched call, just without ever reaching
	// the dispatcher.
	calls, argFailures := buildCalls(toolCalls)
	for id := range argFailures {
		name := toolCallName(toolCalls, id)
		if callbacks.Wants(streaming.KindToolCallStart) {
			o.emit(shared, streaming.KindToolCallStart, map[string]any{"call_id": id, "name": name})
		}
		if o.Metrics != nil {
			o.Metrics.ObserveToolCall(name, false, 0)
		}
		if callbacks.Wants(streaming.KindToolCallEnd) {
			o.emit(shared, streaming.KindToolCallEnd, map[string]any{"call_id": id, "name": name, "success": false})
		}
	}

	dispatched := o.Dispatcher.Run(ctx, calls, shared, toolkit.DispatchOptions{
		OnStart: func(call toolkit.Call) {
			if callbacks.Wants(streaming.KindToolCallStart) {
				o.emit(shared, streaming.KindToolCallStart, map[string]any{"call_id": call.ID, "name": call.Name})
			}
		},
		OnEnd: func(d toolkit.Dispatched) {
			if o.Metrics != nil {
				o.Metrics.ObserveToolCall(d.Name, d.Result.Success, d.Duration)
			}
			if callbacks.Wants(streaming.KindToolCallEnd) {
				o.emit(shared, streaming.KindToolCallEnd, map[string]any{
					"call_id": d.CallID,
					"name":    d.Name,
					"success": d.Result.Success,
				})
			}
		},
	})

	dispatchedByID := make(map[string]toolkit.Result, len(dispatched))
	for _, d := range dispatched {
		dispatchedByID[d.CallID] = d.Result
	}

	for _, tc := range toolCalls {
		result, ok := dispatchedByID[tc.ID]
		if !ok {
			result, ok = argFailures[tc.ID]
			if !ok {
				continue
			}
		}

		payload, err := json.Marshal(result)
		if err != nil {
			payload = []byte(fmt.Sprintf(`{"success":false,"error":%q}`, err.Error()))
		}
		toolMsg := message.Message{
			Role:       message.RoleTool,
			Content:    string(payload),
			Timestamp:  nowUnix(),
			ToolCallID: tc.ID,
		}
		messages = append(messages, toolMsg)
		shared.AppendNewMessage(toolMsg)
	}

	if callbacks.Wants(streaming.KindAssistantMessageEnd) {
		o.emit(shared, streaming.KindAssistantMessageEnd, map[string]any{
			"content":    assistantMsg.Content,
			"tool_calls": toolCalls,
		})
	}

	return o.cycle(ctx, shared, messages, depth+1, callbacks)
}

func (o *Orchestrator) effectiveMaxDepth() int {
	if o.MaxRecursionDepth <= 0 {
		return defaultMaxRecursionDepth
	}
	return o.MaxRecursionDepth
}

// buildSystemPrompt fetches the language-appropriate prompt and augments
// it at send time with the list of documents generated so far, both those
// seeded from the caller's context and those generated this turn
// (spec §4.1 step 2).
func (o *Orchestrator) buildSystemPrompt(shared *toolkit.Shared) string {
	base := ""
	if o.Prompts != nil {
		base = o.Prompts.SystemPrompt(shared.Language)
	}
	if len(shared.GeneratedDocuments) == 0 {
		return base
	}

	var b strings.Builder
	b.WriteString(base)
	b.WriteString("\n\nAvailable documents:\n")
	for _, d := range shared.GeneratedDocuments {
		fmt.Fprintf(&b, "- %s (%s)\n", d.Filename, d.Type)
	}
	return b.String()
}

func (o *Orchestrator) emit(shared *toolkit.Shared, kind streaming.Kind, payload map[string]any) {
	if shared.StreamingSession == nil {
		return
	}
	shared.StreamingSession.Emit(streaming.New(kind, shared.SessionID, nowUnix(), payload))
}

// toolDefinitions serializes the registry into the provider-agnostic
// shape llmclient.Request expects.
func toolDefinitions(reg *toolkit.Registry) []llmclient.ToolDefinition {
	specs := reg.ToolsArray()
	defs := make([]llmclient.ToolDefinition, 0, len(specs))
	for _, s := range specs {
		defs = append(defs, llmclient.ToolDefinition{
			Name:        s.Function.Name,
			Description: s.Function.Description,
			Parameters:  s.Function.Parameters,
		})
	}
	return defs
}

// buildCalls parses each tool call's JSON-encoded arguments into the
// dispatcher's map shape, preserving original order (spec §5 guarantee v).
// A call whose arguments don't parse as JSON is not dispatched; it is
// returned in failures instead, keyed by call ID, so one malformed call
// can't abort the rest of the turn (spec §4.3).
func buildCalls(toolCalls []message.ToolCall) (calls []toolkit.Call, failures map[string]toolkit.Result) {
	calls = make([]toolkit.Call, 0, len(toolCalls))
	failures = make(map[string]toolkit.Result)
	for _, tc := range toolCalls {
		args := map[string]any{}
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				failures[tc.ID] = toolkit.Result{
					Success: false,
					Error:   fmt.Sprintf("decode arguments for %s: %v", tc.Function.Name, err),
				}
				continue
			}
		}
		calls = append(calls, toolkit.Call{ID: tc.ID, Name: tc.Function.Name, Args: args})
	}
	return calls, failures
}

// toolCallName looks up the function name for a tool call ID, for
// reporting a call that never reached the dispatcher.
func toolCallName(toolCalls []message.ToolCall, id string) string {
	for _, tc := range toolCalls {
		if tc.ID == id {
			return tc.Function.Name
		}
	}
	return ""
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
