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
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/invopop/jsonschema"
)

// Registry is a static, name-keyed table of tool entries plus their
// LLM-facing function-calling serialization.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Entry)}
}

// Register adds or replaces an entry by name.
func (r *Registry) Register(e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[e.Name] = e
}

// Get returns the entry for name.
func (r *Registry) Get(name string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	return e, ok
}

// Names returns all registered tool names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for n := range r.entries {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// FunctionSpec is one entry of the LLM's native `tools` array, `type:
// function` per spec §6.
type FunctionSpec struct {
	Type     string           `json:"type"`
	Function FunctionSpecBody `json:"function"`
}

// FunctionSpecBody is the `function` object inside a FunctionSpec.
type FunctionSpecBody struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// ToolsArray serializes the registry into the LLM request's native tools
// array, in sorted-name order for deterministic prompts.
func (r *Registry) ToolsArray() []FunctionSpec {
	names := r.Names()
	specs := make([]FunctionSpec, 0, len(names))
	for _, name := range names {
		e, _ := r.Get(name)
		specs = append(specs, FunctionSpec{
			Type: "function",
			Function: FunctionSpecBody{
				Name:        e.Name,
				Description: e.Description,
				Parameters: map[string]any{
					"type":       "object",
					"properties": e.Schema,
					"required":   e.Required,
				},
			},
		})
	}
	return specs
}

// SchemaFor reflects a Go argument struct into the {properties, required}
// shape the registry expects, using jsonschema struct tags the same way
// the teacher's functiontool package does.
func SchemaFor[T any]() (map[string]any, []string, error) {
	reflector := &jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		DoNotReference:             true,
	}
	schema := reflector.Reflect(new(T))

	data, err := json.Marshal(schema)
	if err != nil {
		return nil, nil, fmt.Errorf("reflect schema: %w", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, fmt.Errorf("decode schema: %w", err)
	}

	properties, _ := raw["properties"].(map[string]any)
	var required []string
	if rs, ok := raw["required"].([]any); ok {
		for _, r := range rs {
			if s, ok := r.(string); ok {
				required = append(required, s)
			}
		}
	}
	return properties, required, nil
}
