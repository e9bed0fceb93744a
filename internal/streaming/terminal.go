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
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// toolIcons mirrors the teacher's terminal rendering convention of an icon
// per lifecycle stage (pkg/cli render helpers), kept minimal here.
var toolIcons = map[Kind]string{
	KindToolCallStart: "▶",
	KindToolCallEnd:   "✔",
	KindError:         "✖",
}

// TerminalHandler renders events to a human-readable console and saves
// generated documents to a timestamped file in OutputDir.
type TerminalHandler struct {
	Out       io.Writer
	OutputDir string

	spinnerActive bool
}

// NewTerminalHandler creates a handler writing to out and saving documents
// under outputDir (created lazily on first save).
func NewTerminalHandler(out io.Writer, outputDir string) *TerminalHandler {
	if out == nil {
		out = os.Stdout
	}
	return &TerminalHandler{Out: out, OutputDir: outputDir}
}

func (t *TerminalHandler) HandleEvent(e Event) error {
	switch e.Kind {
	case KindAssistantMessageChunk:
		if content, ok := e.Payload["content"].(string); ok {
			fmt.Fprint(t.Out, content)
		}
	case KindToolCallStart:
		name, _ := e.Payload["name"].(string)
		fmt.Fprintf(t.Out, "\n%s %s...\n", toolIcons[e.Kind], name)
		if isLongRunning(e.Payload) {
			t.spinnerActive = true
			fmt.Fprint(t.Out, "  ⏳ working")
		}
	case KindToolCallProgress:
		if t.spinnerActive {
			fmt.Fprint(t.Out, ".")
		}
	case KindToolCallEnd:
		if t.spinnerActive {
			fmt.Fprintln(t.Out)
			t.spinnerActive = false
		}
		name, _ := e.Payload["name"].(string)
		success, _ := e.Payload["success"].(bool)
		status := "ok"
		if !success {
			status = "failed"
		}
		fmt.Fprintf(t.Out, "%s %s (%s)\n", toolIcons[e.Kind], name, status)
	case KindDesignDocumentGenerated:
		if err := t.saveDocument(e.Payload); err != nil {
			slog.Warn("failed to save generated document", "error", err)
		}
	case KindError:
		msg, _ := e.Payload["error"].(string)
		fmt.Fprintf(t.Out, "\n%s error: %s\n", toolIcons[e.Kind], msg)
	case KindProcessingStatus:
		node, _ := e.Payload["node"].(string)
		phase, _ := e.Payload["phase"].(string)
		fmt.Fprintf(t.Out, "[%s %s]\n", node, phase)
	}
	return nil
}

func (t *TerminalHandler) HandleError(err error) {
	slog.Error("terminal handler delivery error", "error", err)
}

func isLongRunning(payload map[string]any) bool {
	hint, _ := payload["long_running_hint"].(bool)
	return hint
}

// saveDocument writes the design_document_generated payload to a
// collision-safe filename under OutputDir, inserting _YYYYMMDD_HHMMSS
// before the extension as spec §6 requires.
func (t *TerminalHandler) saveDocument(payload map[string]any) error {
	if t.OutputDir == "" {
		return nil
	}
	filename, _ := payload["filename"].(string)
	content, _ := payload["content"].(string)
	if filename == "" {
		return nil
	}
	if err := os.MkdirAll(t.OutputDir, 0o755); err != nil {
		return err
	}
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)
	stamped := fmt.Sprintf("%s_%s%s", base, time.Now().Format("20060102_150405"), ext)
	path := filepath.Join(t.OutputDir, stamped)
	return os.WriteFile(path, []byte(content), 0o644)
}
