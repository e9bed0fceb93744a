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

package toolkit

import (
	"sync"

	"github.com/kadirpekel/planner/internal/message"
	"github.com/kadirpekel/planner/internal/streaming"
)

// ErrorEntry is one append-only record in shared.errors.
type ErrorEntry struct {
	Source    string  `json:"source"`
	Error     string  `json:"error"`
	Timestamp float64 `json:"timestamp"`
}

// Shared is the mutable working map owned by the orchestrator for the
// duration of one turn (spec §4.7). Tool handlers read freely but must
// only write to the top-level key the result-extraction table assigns
// them. The dispatcher folds prefab, research and planning results in
// after every handler in a batch has returned; the design,
// database_design and edit_document handlers instead append their
// documents and edit proposals directly while they run.
type Shared struct {
	mu sync.Mutex

	SessionID string
	Language  string

	StreamingSession *streaming.Session

	DialogueHistory []message.Message
	NewMessages     []message.Message
	Errors          []ErrorEntry

	RecommendedPrefabs    []any
	ResearchFindings      any
	ShortPlanning         string
	GeneratedDocuments    []message.GeneratedDocument
	PendingDocumentEdits  map[string]message.EditProposal

	ReactCycleCount int

	// ToolInputs holds per-tool scratch state that tool handlers store
	// through SetToolInput (the design tool passes its node inputs and
	// output this way); the dispatcher neither reads nor writes it.
	ToolInputs map[string]any
}

// NewShared builds an empty working map for one turn.
func NewShared(sessionID, language string, session *streaming.Session) *Shared {
	return &Shared{
		SessionID:            sessionID,
		Language:             language,
		StreamingSession:     session,
		PendingDocumentEdits: make(map[string]message.EditProposal),
		ToolInputs:           make(map[string]any),
	}
}

// AppendNewMessage appends m to new_messages only; the orchestrator
// appends to its own working message list separately in cycle steps
// (e), (g).
func (s *Shared) AppendNewMessage(m message.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.NewMessages = append(s.NewMessages, m)
}

// RecordError appends to the errors bag; it never replaces existing
// entries, matching the append-only contract in spec §4.1.
func (s *Shared) RecordError(source, errMsg string, timestamp float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Errors = append(s.Errors, ErrorEntry{Source: source, Error: errMsg, Timestamp: timestamp})
}

// SetRecommendedPrefabs folds a prefab_recommend/search_prefabs result.
func (s *Shared) SetRecommendedPrefabs(v []any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.RecommendedPrefabs = v
}

// SetResearchFindings folds a research result.
func (s *Shared) SetResearchFindings(v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ResearchFindings = v
}

// SetShortPlanning folds a short_planning result.
func (s *Shared) SetShortPlanning(v string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ShortPlanning = v
}

// AppendGeneratedDocument folds a design/database_design result.
func (s *Shared) AppendGeneratedDocument(d message.GeneratedDocument) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.GeneratedDocuments = append(s.GeneratedDocuments, d)
}

// LatestDocument returns the most recently generated document with the
// given filename, used by view_document.
func (s *Shared) LatestDocument(filename string) (message.GeneratedDocument, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.GeneratedDocuments) - 1; i >= 0; i-- {
		if s.GeneratedDocuments[i].Filename == filename {
			return s.GeneratedDocuments[i], true
		}
	}
	return message.GeneratedDocument{}, false
}

// DocumentsByType returns generated documents matching typ, most recent
// first, used by export_document and edit_document.
func (s *Shared) DocumentsByType(typ string) []message.GeneratedDocument {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []message.GeneratedDocument
	for i := len(s.GeneratedDocuments) - 1; i >= 0; i-- {
		if s.GeneratedDocuments[i].Type == typ {
			out = append(out, s.GeneratedDocuments[i])
		}
	}
	return out
}

// SetPendingEdit folds an edit_document result.
func (s *Shared) SetPendingEdit(proposalID string, p message.EditProposal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.PendingDocumentEdits[proposalID] = p
}

// SetToolInput stores per-tool scratch state under key. Concurrent tool
// handlers may use distinct keys safely; ToolInputs is a plain map, so
// direct access from more than one goroutine (as the dispatcher's parallel
// execution entails) must go through this lock rather than indexing the
// map field directly.
func (s *Shared) SetToolInput(key string, v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ToolInputs[key] = v
}

// ToolInput reads back a value stored by SetToolInput.
func (s *Shared) ToolInput(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.ToolInputs[key]
	return v, ok
}
