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

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/kadirpekel/planner/internal/llmclient"
	"github.com/kadirpekel/planner/internal/message"
	"github.com/kadirpekel/planner/internal/streaming"
	"github.com/kadirpekel/planner/internal/toolkit"
)

type editDocumentArgs struct {
	DocumentType     string `json:"document_type" jsonschema:"required,description=The document type to edit (e.g. design, database_design)"`
	EditInstructions string `json:"edit_instructions" jsonschema:"required,description=What to change and why"`
}

// editProposalLLM is the shape the LLM is asked to respond with: a list of
// search/replace/reason edits plus a human summary, matching
// message.EditProposal's Edits/Summary fields.
type editProposalLLM struct {
	Edits   []message.DocEdit `json:"edits"`
	Summary string            `json:"summary"`
}

func registerEditDocument(reg *toolkit.Registry, deps Deps) error {
	properties, required, err := toolkit.SchemaFor[editDocumentArgs]()
	if err != nil {
		return err
	}

	reg.Register(toolkit.Entry{
		Name:        "edit_document",
		Description: "Propose search/replace edits to the latest document of a given type, for the caller to confirm.",
		Schema:      properties,
		Required:    required,
		Handler: func(ctx context.Context, rawArgs map[string]any, shared *toolkit.Shared) (toolkit.Result, error) {
			args, err := decodeArgs[editDocumentArgs](rawArgs)
			if err != nil {
				return toolkit.Result{Success: false, Error: err.Error()}, nil
			}
			if deps.LLM == nil {
				return toolkit.Result{Success: false, Error: "edit_document disabled: no LLM client configured"}, nil
			}

			docs := shared.DocumentsByType(args.DocumentType)
			if len(docs) == 0 {
				return toolkit.Result{Success: false, Error: fmt.Sprintf("no generated document of type %q to edit", args.DocumentType)}, nil
			}
			latest := docs[0]

			proposal, err := proposeEdit(ctx, deps.LLM, latest, args.EditInstructions)
			if err != nil {
				return toolkit.Result{Success: false, Error: fmt.Sprintf("edit_document LLM call failed: %v", err)}, nil
			}

			shared.SetPendingEdit(proposal.ProposalID, proposal)

			if shared.StreamingSession != nil {
				shared.StreamingSession.Emit(streaming.New(streaming.KindDocumentEditProposal, shared.SessionID, nowUnix(), map[string]any{
					"proposal_id":       proposal.ProposalID,
					"document_type":     proposal.DocumentType,
					"document_filename": proposal.DocumentFilename,
					"edits":             proposal.Edits,
					"summary":           proposal.Summary,
					"preview_content":   proposal.PreviewContent,
				}))
			}

			return toolkit.Result{Success: true, Output: map[string]any{
				"proposal_id":       proposal.ProposalID,
				"document_type":     proposal.DocumentType,
				"document_filename": proposal.DocumentFilename,
				"edits":             proposal.Edits,
				"summary":           proposal.Summary,
				"preview_content":   proposal.PreviewContent,
			}}, nil
		},
	})
	return nil
}

func proposeEdit(ctx context.Context, llm *llmclient.Client, doc message.GeneratedDocument, instructions string) (message.EditProposal, error) {
	var prompt strings.Builder
	prompt.WriteString("Propose search/replace edits to the document below to satisfy the instructions.\n")
	prompt.WriteString(`Respond with JSON only: {"edits":[{"search":"...","replace":"...","reason":"..."}],"summary":"..."}` + "\n\n")
	fmt.Fprintf(&prompt, "Instructions:\n%s\n\n", instructions)
	fmt.Fprintf(&prompt, "Document (%s):\n%s\n", doc.Filename, doc.Content)

	resp, err := llm.ChatCompletion(ctx, llmclient.Request{
		SystemPrompt: "You are a document-editing assistant. Respond with JSON only, no commentary.",
		Messages:     []message.Message{{Role: message.RoleUser, Content: prompt.String()}},
	})
	if err != nil {
		return message.EditProposal{}, err
	}

	var parsed editProposalLLM
	if err := json.Unmarshal([]byte(resp.Content), &parsed); err != nil {
		return message.EditProposal{}, fmt.Errorf("decode edit proposal: %w", err)
	}

	for _, e := range parsed.Edits {
		if e.Search == "" {
			continue
		}
		if !strings.Contains(doc.Content, e.Search) {
			return message.EditProposal{}, fmt.Errorf("edit proposal rejected: search %q not found in %s", e.Search, doc.Filename)
		}
	}

	preview := doc.Content
	for _, e := range parsed.Edits {
		if e.Search == "" {
			continue
		}
		preview = strings.Replace(preview, e.Search, e.Replace, 1)
	}

	return message.EditProposal{
		ProposalID:       uuid.NewString(),
		DocumentType:     doc.Type,
		DocumentFilename: doc.Filename,
		Edits:            parsed.Edits,
		Summary:          parsed.Summary,
		PreviewContent:   preview,
	}, nil
}
