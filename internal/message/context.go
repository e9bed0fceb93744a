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

package message

import "fmt"

// Context is the read-only request side the caller hands to the
// orchestrator for one turn. The core never mutates it and never persists
// it beyond the turn.
type Context struct {
	SessionID             string
	DialogueHistory       []Message
	ToolExecutionResults  map[string]any
	SessionMetadata       map[string]any
	LastUpdated           float64
}

// Validate checks the minimal shape invariants the bridge (§4.8) requires
// before building shared state: a non-empty session id and a dialogue
// history whose every message passes Message.Validate.
func (c Context) Validate() error {
	if c.SessionID == "" {
		return fmt.Errorf("context: session_id must not be empty")
	}
	for i, m := range c.DialogueHistory {
		if err := m.Validate(); err != nil {
			return fmt.Errorf("context: dialogue_history[%d]: %w", i, err)
		}
	}
	return nil
}

// Result is the response side the orchestrator produces for one turn.
type Result struct {
	Success                     bool
	Error                       string
	NewMessages                 []Message
	ToolExecutionResultsUpdates map[string]any
	Metadata                    map[string]any
	ExecutionTime               float64
}

// Well-known keys shared between Context.ToolExecutionResults, the shared
// working map, and Result.ToolExecutionResultsUpdates.
const (
	KeyRecommendedPrefabs    = "recommended_prefabs"
	KeyResearchFindings      = "research_findings"
	KeyShortPlanning         = "short_planning"
	KeyGeneratedDocuments    = "designs.generated_documents"
	KeyPendingDocumentEdits  = "pending_document_edits"
)

// GeneratedDocument is one entry of designs.generated_documents. A document
// is identified by Filename within a session; re-emission keeps the most
// recent Timestamp while history is preserved as an append-only list.
type GeneratedDocument struct {
	Type      string  `json:"type"`
	Filename  string  `json:"filename"`
	Content   string  `json:"content"`
	Timestamp float64 `json:"timestamp"`
}

// EditProposal is a set of search/replace/reason tuples over an existing
// document, pending user confirmation.
type EditProposal struct {
	ProposalID       string     `json:"proposal_id"`
	DocumentType     string     `json:"document_type"`
	DocumentFilename string     `json:"document_filename"`
	Edits            []DocEdit  `json:"edits"`
	Summary          string     `json:"summary"`
	PreviewContent   string     `json:"preview_content,omitempty"`
}

// DocEdit is a single search/replace/reason tuple of an EditProposal.
type DocEdit struct {
	Search  string `json:"search"`
	Replace string `json:"replace"`
	Reason  string `json:"reason"`
}
