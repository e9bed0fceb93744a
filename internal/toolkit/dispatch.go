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
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// Call is one tool invocation requested by the model for a single
// assistant turn, correlated by ID for event emission and ordered
// tool-message assembly (spec §4.1 step g, §5 ordering guarantee v).
type Call struct {
	ID   string
	Name string
	Args map[string]any
}

// ValidateArgs checks the call's arguments against the entry's required
// fields before dispatch. A missing field never invokes the handler; it
// becomes a failed Result carrying the message the spec's §4.3 mandates.
func ValidateArgs(e Entry, args map[string]any) (Result, bool) {
	for _, field := range e.Required {
		if _, ok := args[field]; !ok {
			return Result{
				Success: false,
				Error:   fmt.Sprintf("Missing required parameter: %s", field),
			}, false
		}
	}
	return Result{}, true
}

// Dispatcher runs a batch of tool calls concurrently against a registry,
// folding prefab, research and planning results back into Shared once
// every handler in the batch has returned (spec §4.3 "Parallel execution"
// / "Result extraction"). Generated documents and edit proposals are
// written by their handlers directly, as described on extractResult.
type Dispatcher struct {
	registry *Registry
}

// NewDispatcher builds a dispatcher bound to registry.
func NewDispatcher(registry *Registry) *Dispatcher {
	return &Dispatcher{registry: registry}
}

// onStart/onEnd let the orchestrator emit tool_call_start/tool_call_end
// streaming events without the dispatcher importing the streaming package
// directly; callbacks run on the goroutine executing that call.
type DispatchOptions struct {
	OnStart func(call Call)
	OnEnd   func(d Dispatched)
}

// Run executes calls concurrently, returning one Dispatched per call in
// the same order calls were given — the order the caller then uses to
// append `tool` messages, regardless of completion order (§5 guarantee
// v). Result extraction into Shared happens only after every call in the
// batch has returned, so no handler observes a sibling's extracted result
// within the same batch; a document or edit proposal that a design,
// database_design or edit_document handler appends itself is visible to
// its siblings as soon as it is written.
func (d *Dispatcher) Run(ctx context.Context, calls []Call, shared *Shared, opts DispatchOptions) []Dispatched {
	results := make([]Dispatched, len(calls))

	g, gctx := errgroup.WithContext(ctx)
	for i, call := range calls {
		i, call := i, call
		g.Go(func() error {
			results[i] = d.runOne(gctx, call, shared, opts)
			return nil
		})
	}
	_ = g.Wait()

	for _, dr := range results {
		if dr.Result.Success {
			extractResult(shared, dr.Name, dr.Result)
		}
	}
	return results
}

func (d *Dispatcher) runOne(ctx context.Context, call Call, shared *Shared, opts DispatchOptions) Dispatched {
	if opts.OnStart != nil {
		opts.OnStart(call)
	}
	start := time.Now()

	entry, ok := d.registry.Get(call.Name)
	if !ok {
		res := Result{Success: false, Error: fmt.Sprintf("unknown tool: %s", call.Name)}
		dr := Dispatched{CallID: call.ID, Name: call.Name, Result: res, Duration: time.Since(start)}
		if opts.OnEnd != nil {
			opts.OnEnd(dr)
		}
		return dr
	}

	if res, ok := ValidateArgs(entry, call.Args); !ok {
		dr := Dispatched{CallID: call.ID, Name: call.Name, Result: res, Duration: time.Since(start)}
		if opts.OnEnd != nil {
			opts.OnEnd(dr)
		}
		return dr
	}

	res, err := entry.Handler(ctx, call.Args, shared)
	dr := Dispatched{CallID: call.ID, Name: call.Name, Result: res, Err: err, Duration: time.Since(start)}
	if err != nil {
		dr.Result = Result{Success: false, Error: err.Error()}
	}
	if opts.OnEnd != nil {
		opts.OnEnd(dr)
	}
	return dr
}

// extractResult folds one successful result into Shared by tool name per
// the table in spec §4.3.
func extractResult(shared *Shared, toolName string, res Result) {
	switch toolName {
	case "prefab_recommend", "search_prefabs":
		if list, ok := res.Output.([]any); ok {
			shared.SetRecommendedPrefabs(list)
		}
	case "research":
		shared.SetResearchFindings(res.Output)
	case "short_planning":
		if s, ok := res.Output.(string); ok {
			shared.SetShortPlanning(s)
		}
	case "design", "database_design":
		// handlers append their own GeneratedDocument entries directly via
		// shared.AppendGeneratedDocument because design also produces the
		// companion prefabs_info.md as a second document in one call.
	case "edit_document":
		// handlers call shared.SetPendingEdit directly for the same reason:
		// the proposal id is generated inside the handler.
	}
}
