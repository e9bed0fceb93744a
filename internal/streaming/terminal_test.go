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

package streaming

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTerminalHandler_PrintsChunksInline(t *testing.T) {
	var buf bytes.Buffer
	h := NewTerminalHandler(&buf, "")
	require.NoError(t, h.HandleEvent(New(KindAssistantMessageChunk, "s1", 0, map[string]any{"content": "hello"})))
	require.NoError(t, h.HandleEvent(New(KindAssistantMessageChunk, "s1", 0, map[string]any{"content": " world"})))
	assert.Equal(t, "hello world", buf.String())
}

func TestTerminalHandler_ToolLifecycleIcons(t *testing.T) {
	var buf bytes.Buffer
	h := NewTerminalHandler(&buf, "")
	require.NoError(t, h.HandleEvent(New(KindToolCallStart, "s1", 0, map[string]any{"name": "search_prefabs"})))
	require.NoError(t, h.HandleEvent(New(KindToolCallEnd, "s1", 0, map[string]any{"name": "search_prefabs", "success": true})))
	out := buf.String()
	assert.Contains(t, out, "▶ search_prefabs")
	assert.Contains(t, out, "✔ search_prefabs (ok)")
}

func TestTerminalHandler_SpinnerOnLongRunningHint(t *testing.T) {
	var buf bytes.Buffer
	h := NewTerminalHandler(&buf, "")
	require.NoError(t, h.HandleEvent(New(KindToolCallStart, "s1", 0, map[string]any{
		"name": "design", "long_running_hint": true,
	})))
	assert.Contains(t, buf.String(), "working")
	assert.True(t, h.spinnerActive)
	require.NoError(t, h.HandleEvent(New(KindToolCallEnd, "s1", 0, map[string]any{"name": "design", "success": true})))
	assert.False(t, h.spinnerActive)
}

func TestTerminalHandler_SavesGeneratedDocumentWithTimestamp(t *testing.T) {
	dir := t.TempDir()
	h := NewTerminalHandler(&bytes.Buffer{}, dir)
	require.NoError(t, h.HandleEvent(New(KindDesignDocumentGenerated, "s1", 0, map[string]any{
		"filename": "design.md",
		"content":  "# Design\n",
	})))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, filepath.Ext(entries[0].Name()) == ".md")
	assert.Contains(t, entries[0].Name(), "design_")

	content, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	assert.Equal(t, "# Design\n", string(content))
}

func TestTerminalHandler_NoOutputDir_SkipsSaveWithoutError(t *testing.T) {
	h := NewTerminalHandler(&bytes.Buffer{}, "")
	err := h.HandleEvent(New(KindDesignDocumentGenerated, "s1", 0, map[string]any{
		"filename": "design.md", "content": "x",
	}))
	assert.NoError(t, err)
}
