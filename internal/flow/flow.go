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

package flow

import (
	"context"
	"fmt"

	"github.com/kadirpekel/planner/internal/toolkit"
)

// Flow is a directed graph of Runnable nodes connected by Action labels.
type Flow struct {
	start      Runnable
	successors map[string]map[Action]Runnable
}

// New builds a flow whose traversal begins at start.
func New(start Runnable) *Flow {
	return &Flow{start: start, successors: make(map[string]map[Action]Runnable)}
}

// Next registers that, when from returns action from PostStep, to runs
// next.
func (f *Flow) Next(from Runnable, action Action, to Runnable) *Flow {
	if f.successors[from.Name()] == nil {
		f.successors[from.Name()] = make(map[Action]Runnable)
	}
	f.successors[from.Name()][action] = to
	return f
}

// Run walks the graph from the start node until a node returns Done or no
// successor is registered for its action, matching spec §4.6.
func (f *Flow) Run(ctx context.Context, shared *toolkit.Shared) error {
	node := f.start
	for node != nil {
		action, err := node.Run(ctx, shared)
		if err != nil {
			return fmt.Errorf("flow: node %q: %w", node.Name(), err)
		}
		if action == Done {
			return nil
		}
		next, ok := f.successors[node.Name()][action]
		if !ok {
			return nil
		}
		node = next
	}
	return nil
}
