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
	"fmt"
	"strings"
	"time"

	"github.com/kadirpekel/planner/internal/flow"
	"github.com/kadirpekel/planner/internal/llmclient"
	"github.com/kadirpekel/planner/internal/message"
	"github.com/kadirpekel/planner/internal/toolkit"
)

type designArgs struct {
	UserRequirements string `json:"user_requirements" jsonschema:"required,description=The product idea or requirements to design for"`
	Plan             string `json:"plan" jsonschema:"description=A prior short_planning output to build from"`
	Prefabs          []any  `json:"prefabs" jsonschema:"description=Recommended prefabs to incorporate into the design"`
	Research         any    `json:"research" jsonschema:"description=Research findings to incorporate into the design"`
}

// designPrep/designExec carry the design-generation node's working data.
type designPrep struct {
	args designArgs
	llm  *llmclient.Client
}

type designExec struct {
	content string
}

type designNode struct{}

func (designNode) Name() string { return "design" }

func (designNode) PrepStep(ctx context.Context, shared *toolkit.Shared) (designPrep, error) {
	v, _ := shared.ToolInput("design_prep")
	prep, _ := v.(designPrep)
	return prep, nil
}

func (designNode) ExecStep(ctx context.Context, prep designPrep) (designExec, error) {
	if prep.llm == nil {
		return designExec{}, fmt.Errorf("design disabled: no LLM client configured")
	}

	var prompt strings.Builder
	prompt.WriteString("Produce a system design document (design.md) as Markdown for this product.\n\n")
	fmt.Fprintf(&prompt, "Requirements:\n%s\n\n", prep.args.UserRequirements)
	if prep.args.Plan != "" {
		fmt.Fprintf(&prompt, "Build from this plan:\n%s\n\n", prep.args.Plan)
	}
	if len(prep.args.Prefabs) > 0 {
		fmt.Fprintf(&prompt, "Incorporate these prefabs:\n%v\n\n", prep.args.Prefabs)
	}
	if prep.args.Research != nil {
		fmt.Fprintf(&prompt, "Incorporate this research:\n%v\n\n", prep.args.Research)
	}

	resp, err := prep.llm.ChatCompletion(context.Background(), llmclient.Request{
		SystemPrompt: "You are a system design assistant. Respond with a Markdown design document only.",
		Messages:     []message.Message{{Role: message.RoleUser, Content: prompt.String()}},
	})
	if err != nil {
		return designExec{}, fmt.Errorf("design LLM call failed: %w", err)
	}
	return designExec{content: resp.Content}, nil
}

func (designNode) PostStep(ctx context.Context, shared *toolkit.Shared, prep designPrep, exec designExec) (flow.Action, error) {
	shared.AppendGeneratedDocument(message.GeneratedDocument{
		Type:      "design",
		Filename:  "design.md",
		Content:   exec.content,
		Timestamp: nowUnix(),
	})
	shared.SetToolInput("design_content", exec.content)
	return "prefabs_info", nil
}

// prefabsInfoNode builds the companion prefabs_info.md from the function
// detail already present on each recommended prefab's catalogue entry, per
// spec §4.3 ("also appends a companion prefabs_info.md built from prefab
// function detail lookups").
type prefabsInfoNode struct{}

func (prefabsInfoNode) Name() string { return "prefabs_info" }

func (prefabsInfoNode) PrepStep(ctx context.Context, shared *toolkit.Shared) ([]any, error) {
	return shared.RecommendedPrefabs, nil
}

func (prefabsInfoNode) ExecStep(ctx context.Context, prefabs []any) (string, error) {
	var b strings.Builder
	b.WriteString("# Prefab Functions\n\n")
	if len(prefabs) == 0 {
		b.WriteString("No prefabs were recommended for this design.\n")
		return b.String(), nil
	}
	for _, p := range prefabs {
		m, ok := p.(map[string]any)
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "## %v\n\n", m["id"])
		if desc, ok := m["description"].(string); ok && desc != "" {
			fmt.Fprintf(&b, "%s\n\n", desc)
		}
		if fns, ok := m["functions"].([]string); ok {
			for _, fn := range fns {
				fmt.Fprintf(&b, "- `%s`\n", fn)
			}
			b.WriteString("\n")
		}
	}
	return b.String(), nil
}

func (prefabsInfoNode) PostStep(ctx context.Context, shared *toolkit.Shared, prep []any, exec string) (flow.Action, error) {
	shared.AppendGeneratedDocument(message.GeneratedDocument{
		Type:      "prefabs_info",
		Filename:  "prefabs_info.md",
		Content:   exec,
		Timestamp: nowUnix(),
	})
	return flow.Done, nil
}

func registerDesign(reg *toolkit.Registry, deps Deps) error {
	properties, required, err := toolkit.SchemaFor[designArgs]()
	if err != nil {
		return err
	}

	reg.Register(toolkit.Entry{
		Name:        "design",
		Description: "Generate a system design document (design.md), followed by a companion prefabs_info.md.",
		Schema:      properties,
		Required:    required,
		Handler: func(ctx context.Context, rawArgs map[string]any, shared *toolkit.Shared) (toolkit.Result, error) {
			args, err := decodeArgs[designArgs](rawArgs)
			if err != nil {
				return toolkit.Result{Success: false, Error: err.Error()}, nil
			}

			shared.SetToolInput("design_prep", designPrep{args: args, llm: deps.LLM})

			f := flow.New(flow.Wrap[designPrep, designExec](designNode{}))
			f.Next(flow.Wrap[designPrep, designExec](designNode{}), "prefabs_info", flow.Wrap[[]any, string](prefabsInfoNode{}))

			if err := f.Run(ctx, shared); err != nil {
				return toolkit.Result{Success: false, Error: err.Error()}, nil
			}

			v, _ := shared.ToolInput("design_content")
			content, _ := v.(string)
			return toolkit.Result{Success: true, Output: map[string]any{
				"filename":           "design.md",
				"content":            content,
				"generation_success": content != "",
			}}, nil
		},
	})
	return nil
}

func nowUnix() float64 { return float64(time.Now().UnixNano()) / 1e9 }
