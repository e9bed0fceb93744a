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

// Package tagfilter implements a character-level state machine that strips
// inline <tool_call>{...}</tool_call> spans from streamed model text and
// synthesizes ToolCall deltas in their place.
//
// Some LLM deployments do not emit native tool-call deltas; they emit plain
// text with the tool call inlined. Regex cannot safely do this because tag
// boundaries can straddle chunk boundaries — the teacher's streaming
// aggregators (pkg/model/*) face the same class of problem for SSE frames,
// always solved with an explicit byte/character state machine rather than a
// pattern match over each chunk in isolation.
package tagfilter

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
)

const (
	startTag = "<tool_call>"
	endTag   = "</tool_call>"
)

type state int

const (
	stateNormal state = iota
	stateCollectingStartTag
	stateInToolCall
	stateCollectingEndTag
)

// ToolCall is the synthesized call extracted from an inline tag.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string // JSON-encoded, re-marshaled from the parsed arguments object
}

// rawToolCall is the shape expected inside <tool_call>...</tool_call>.
type rawToolCall struct {
	Name      string `json:"name"`
	Arguments any    `json:"arguments"`
}

// Filter is a single-stream, single-goroutine state machine. It is not
// safe for concurrent use by multiple goroutines on the same instance,
// matching the single chunk-at-a-time contract of the streaming client.
type Filter struct {
	st      state
	buf     strings.Builder // the <...> prefix being collected
	body    strings.Builder // the tool-call body between the tags
	newUUID func() string
}

// New creates a filter whose synthesized call IDs come from uuid.NewString.
func New() *Filter {
	return &Filter{st: stateNormal, newUUID: func() string { return uuid.NewString() }}
}

// ProcessChunk consumes one chunk of streamed text and returns the
// user-visible text extracted from it, plus any tool calls synthesized
// while processing it (in arrival order within the chunk).
func (f *Filter) ProcessChunk(chunk string) (text string, calls []ToolCall) {
	var out strings.Builder
	for _, r := range chunk {
		switch f.st {
		case stateNormal:
			if r == '<' {
				f.buf.Reset()
				f.buf.WriteRune(r)
				f.st = stateCollectingStartTag
			} else {
				out.WriteRune(r)
			}

		case stateCollectingStartTag:
			f.buf.WriteRune(r)
			candidate := f.buf.String()
			if candidate == startTag {
				f.body.Reset()
				f.st = stateInToolCall
			} else if strings.HasPrefix(startTag, candidate) {
				// still a valid prefix, keep collecting
			} else {
				out.WriteString(candidate)
				f.st = stateNormal
			}

		case stateInToolCall:
			if r == '<' {
				f.buf.Reset()
				f.buf.WriteRune(r)
				f.st = stateCollectingEndTag
			} else {
				f.body.WriteRune(r)
			}

		case stateCollectingEndTag:
			f.buf.WriteRune(r)
			candidate := f.buf.String()
			if candidate == endTag {
				if tc, ok := f.parseBody(); ok {
					calls = append(calls, tc)
				}
				f.body.Reset()
				f.st = stateNormal
			} else if strings.HasPrefix(endTag, candidate) {
				// still a valid prefix, keep collecting
			} else {
				// false alarm: everything collected since '<' belongs to the body
				f.body.WriteString(candidate)
				f.st = stateInToolCall
			}
		}
	}
	return out.String(), calls
}

// Finalize flushes any trailing partial start-tag buffer as literal text.
// A partial/malformed tool call still open at EOF is discarded silently.
func (f *Filter) Finalize() string {
	var out string
	if f.st == stateCollectingStartTag {
		out = f.buf.String()
	}
	f.st = stateNormal
	f.buf.Reset()
	f.body.Reset()
	return out
}

func (f *Filter) parseBody() (ToolCall, bool) {
	var raw rawToolCall
	if err := json.Unmarshal([]byte(f.body.String()), &raw); err != nil {
		return ToolCall{}, false
	}
	if raw.Name == "" {
		return ToolCall{}, false
	}
	argsJSON, err := json.Marshal(raw.Arguments)
	if err != nil {
		return ToolCall{}, false
	}
	return ToolCall{
		ID:        "call_" + strings.ReplaceAll(f.newUUID(), "-", "")[:8],
		Name:      raw.Name,
		Arguments: string(argsJSON),
	}, true
}
