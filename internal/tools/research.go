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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/kadirpekel/planner/internal/toolkit"
)

type researchArgs struct {
	Keywords      []string `json:"keywords" jsonschema:"required,description=Search keywords to research independently"`
	FocusAreas    []string `json:"focus_areas" jsonschema:"description=Aspects to emphasize in the summary (e.g. pricing, scalability)"`
	ProjectContext string  `json:"project_context" jsonschema:"description=Short description of the project the research supports"`
}

// researchFindings is the structured shape research folds into
// shared.research_findings: one summary per keyword plus an overall one.
type researchFindings struct {
	Findings map[string]string `json:"findings"`
	Summary  string            `json:"summary"`
}

func registerResearch(reg *toolkit.Registry, deps Deps) error {
	properties, required, err := toolkit.SchemaFor[researchArgs]()
	if err != nil {
		return err
	}

	reg.Register(toolkit.Entry{
		Name:        "research",
		Description: "Fetch and summarize technical research for a set of keywords, scoped by optional focus areas.",
		Schema:      properties,
		Required:    required,
		Handler: func(ctx context.Context, rawArgs map[string]any, shared *toolkit.Shared) (toolkit.Result, error) {
			args, err := decodeArgs[researchArgs](rawArgs)
			if err != nil {
				return toolkit.Result{Success: false, Error: err.Error()}, nil
			}

			if deps.ResearchAPIKey == "" {
				return toolkit.Result{Success: false, Error: "research tool disabled: no research API key configured"}, nil
			}
			if deps.HTTP == nil || deps.ResearchAPIURL == "" {
				return toolkit.Result{Success: false, Error: "research tool disabled: no research endpoint configured"}, nil
			}

			findings, err := fetchResearch(ctx, deps, args)
			if err != nil {
				return toolkit.Result{Success: false, Error: fmt.Sprintf("research request failed: %v", err)}, nil
			}

			shared.SetResearchFindings(findings)
			return toolkit.Result{Success: true, Output: findings}, nil
		},
	})
	return nil
}

func fetchResearch(ctx context.Context, deps Deps, args researchArgs) (researchFindings, error) {
	body, err := json.Marshal(map[string]any{
		"keywords":        args.Keywords,
		"focus_areas":     args.FocusAreas,
		"project_context": args.ProjectContext,
	})
	if err != nil {
		return researchFindings{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, deps.ResearchAPIURL, bytes.NewReader(body))
	if err != nil {
		return researchFindings{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+deps.ResearchAPIKey)

	resp, err := deps.HTTP.Do(req)
	if err != nil {
		return researchFindings{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return researchFindings{}, fmt.Errorf("research API returned status %d", resp.StatusCode)
	}

	var findings researchFindings
	if err := json.NewDecoder(resp.Body).Decode(&findings); err != nil {
		return researchFindings{}, fmt.Errorf("decode research response: %w", err)
	}
	return findings, nil
}
