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

// Package flow implements the subflow runtime: a prep/exec/post node
// lifecycle and a flow composer that chains nodes by action label. This
// generalizes the duck-typed BaseAgentNode pattern (spec §9 DESIGN NOTES)
// into a two-type-parameter interface, matching the teacher's preference
// for explicit interfaces over runtime type assertions seen throughout
// pkg/agent.
package flow

import (
	"context"
	"log/slog"

	"github.com/kadirpekel/planner/internal/toolkit"
)

// Action labels the edge a node's post phase selects.
type Action string

// Done is the conventional terminal action: when a flow reaches a node
// whose post returns Done (or any action with no registered successor),
// Run stops.
const Done Action = "done"

// Node is one step of a subflow. Prep is the phase's input, Exec its
// output; both are node-specific.
type Node[Prep, Exec any] interface {
	// Name identifies the node in logs and processing_status events.
	Name() string
	// PrepStep builds this node's input from the shared working state.
	PrepStep(ctx context.Context, shared *toolkit.Shared) (Prep, error)
	// ExecStep does the node's actual work.
	ExecStep(ctx context.Context, prep Prep) (Exec, error)
	// PostStep writes results back into shared and selects the next action.
	PostStep(ctx context.Context, shared *toolkit.Shared, prep Prep, exec Exec) (Action, error)
}

// Runnable erases a Node's type parameters so a Flow can hold
// heterogeneous nodes in one graph.
type Runnable interface {
	Name() string
	Run(ctx context.Context, shared *toolkit.Shared) (Action, error)
}

// Wrap adapts a typed Node into a Runnable, running its three phases in
// order and applying the uniform error handling spec §4.6 requires: any
// phase error is recorded into shared.Errors, a processing_status event is
// emitted at each phase boundary, and the node short-circuits to Done.
func Wrap[Prep, Exec any](n Node[Prep, Exec]) Runnable {
	return &wrapped[Prep, Exec]{node: n}
}

type wrapped[Prep, Exec any] struct {
	node Node[Prep, Exec]
}

func (w *wrapped[Prep, Exec]) Name() string { return w.node.Name() }

func (w *wrapped[Prep, Exec]) Run(ctx context.Context, shared *toolkit.Shared) (Action, error) {
	name := w.node.Name()
	emitStatus(shared, name, "prep")
	prep, err := w.node.PrepStep(ctx, shared)
	if err != nil {
		return w.fail(shared, name, "prep", err)
	}

	emitStatus(shared, name, "exec")
	exec, err := w.node.ExecStep(ctx, prep)
	if err != nil {
		return w.fail(shared, name, "exec", err)
	}

	emitStatus(shared, name, "post")
	action, err := w.node.PostStep(ctx, shared, prep, exec)
	if err != nil {
		return w.fail(shared, name, "post", err)
	}
	return action, nil
}

func (w *wrapped[Prep, Exec]) fail(shared *toolkit.Shared, name, phase string, err error) (Action, error) {
	shared.RecordError(name, err.Error(), nowUnix())
	slog.Error("node phase failed", "node", name, "phase", phase, "error", err)
	emitError(shared, name, phase, err)
	return Done, err
}
