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

package tagfilter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilter_NoTags_PassesThrough(t *testing.T) {
	f := New()
	text, calls := f.ProcessChunk("hello world, nothing special here")
	assert.Equal(t, "hello world, nothing special here", text)
	assert.Empty(t, calls)
	assert.Empty(t, f.Finalize())
}

func TestFilter_SingleChunk_ExtractsCall(t *testing.T) {
	f := New()
	input := `Let me check <tool_call>{"name":"search_prefabs","arguments":{"query":"pdf"}}</tool_call> the catalogue.`
	text, calls := f.ProcessChunk(input)
	assert.Equal(t, "Let me check  the catalogue.", text)
	require.Len(t, calls, 1)
	assert.Equal(t, "search_prefabs", calls[0].Name)
	assert.JSONEq(t, `{"query":"pdf"}`, calls[0].Arguments)
	assert.True(t, strings.HasPrefix(calls[0].ID, "call_"))
	assert.Empty(t, f.Finalize())
}

func TestFilter_SplitAcrossChunks(t *testing.T) {
	f := New()
	whole := `before <tool_call>{"name":"x","arguments":{}}</tool_call> after`
	var text strings.Builder
	var calls []ToolCall
	// split at every byte boundary to exercise every possible chunk seam
	for i := 0; i < len(whole); i++ {
		chunkText, chunkCalls := f.ProcessChunk(whole[i : i+1])
		text.WriteString(chunkText)
		calls = append(calls, chunkCalls...)
	}
	text.WriteString(f.Finalize())
	assert.Equal(t, "before  after", text.String())
	require.Len(t, calls, 1)
	assert.Equal(t, "x", calls[0].Name)
}

func TestFilter_MultipleCalls(t *testing.T) {
	f := New()
	input := `<tool_call>{"name":"a","arguments":{}}</tool_call>mid<tool_call>{"name":"b","arguments":{}}</tool_call>`
	text, calls := f.ProcessChunk(input)
	assert.Equal(t, "mid", text)
	require.Len(t, calls, 2)
	assert.Equal(t, "a", calls[0].Name)
	assert.Equal(t, "b", calls[1].Name)
}

func TestFilter_PartialStartTagAtEOF_FlushedLiteral(t *testing.T) {
	f := New()
	text, calls := f.ProcessChunk("hi <tool_c")
	assert.Equal(t, "hi ", text)
	assert.Empty(t, calls)
	assert.Equal(t, "<tool_c", f.Finalize())
}

func TestFilter_MalformedSpanDroppedAtEOF(t *testing.T) {
	f := New()
	text, calls := f.ProcessChunk(`<tool_call>{"name":"x"`)
	assert.Empty(t, text)
	assert.Empty(t, calls)
	assert.Empty(t, f.Finalize()) // discarded, not flushed
}

func TestFilter_InvalidJSONBody_NoCallSynthesized(t *testing.T) {
	f := New()
	text, calls := f.ProcessChunk(`<tool_call>not json</tool_call>rest`)
	assert.Equal(t, "rest", text)
	assert.Empty(t, calls)
}

func TestFilter_FalseStartOnAngleBracket(t *testing.T) {
	f := New()
	// "<tool_call" followed by something that's not the rest of the tag
	text, calls := f.ProcessChunk("a < b <tool_calX> c")
	assert.Equal(t, "a < b <tool_calX> c", text)
	assert.Empty(t, calls)
}

func TestFilter_FalseEndTag_ReturnsToBody(t *testing.T) {
	f := New()
	// Inside a tool call, "<x>" is not the end tag, so it's absorbed into
	// the body rather than terminating the call.
	input := `<tool_call>{"name":"n","arguments":{"a":"<b>ok"}}</tool_call>`
	text, calls := f.ProcessChunk(input)
	assert.Empty(t, text)
	require.Len(t, calls, 1)
	assert.JSONEq(t, `{"a":"<b>ok"}`, calls[0].Arguments)
}

func TestFilter_RoundTripProperty(t *testing.T) {
	cases := []string{
		"no tags at all",
		`<tool_call>{"name":"a","arguments":{}}</tool_call>`,
		`pre <tool_call>{"name":"a","arguments":{"x":1}}</tool_call> post <tool_call>{"name":"b","arguments":{}}</tool_call> end`,
		"trailing angle <",
	}
	for _, whole := range cases {
		f := New()
		var text strings.Builder
		var calls []ToolCall
		// split into 3-byte chunks to exercise boundary crossing
		for i := 0; i < len(whole); i += 3 {
			end := min(i+3, len(whole))
			chunkText, chunkCalls := f.ProcessChunk(whole[i:end])
			text.WriteString(chunkText)
			calls = append(calls, chunkCalls...)
		}
		text.WriteString(f.Finalize())

		expected := whole
		for strings.Contains(expected, startTag) {
			s := strings.Index(expected, startTag)
			e := strings.Index(expected[s:], endTag)
			if e < 0 {
				break
			}
			expected = expected[:s] + expected[s+e+len(endTag):]
		}
		assert.Equal(t, expected, text.String(), "case %q", whole)
	}
}
