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
	"errors"
	"testing"

	"github.com/kadirpekel/planner/internal/toolkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNode struct {
	name     string
	action   Action
	failWith error
	calls    *[]string
}

func (n *recordingNode) Name() string { return n.name }

func (n *recordingNode) PrepStep(ctx context.Context, shared *toolkit.Shared) (string, error) {
	*n.calls = append(*n.calls, n.name+":prep")
	return n.name, nil
}

func (n *recordingNode) ExecStep(ctx context.Context, prep string) (string, error) {
	*n.calls = append(*n.calls, n.name+":exec")
	if n.failWith != nil {
		return "", n.failWith
	}
	return prep + "-done", nil
}

func (n *recordingNode) PostStep(ctx context.Context, shared *toolkit.Shared, prep, exec string) (Action, error) {
	*n.calls = append(*n.calls, n.name+":post")
	return n.action, nil
}

func TestFlow_ChainsNodesByAction(t *testing.T) {
	var calls []string
	first := &recordingNode{name: "first", action: "next", calls: &calls}
	second := &recordingNode{name: "second", action: Done, calls: &calls}

	f := New(Wrap[string, string](first))
	f.Next(Wrap[string, string](first), "next", Wrap[string, string](second))

	shared := toolkit.NewShared("sess-1", "en", nil)
	err := f.Run(context.Background(), shared)
	require.NoError(t, err)

	assert.Equal(t, []string{"first:prep", "first:exec", "first:post", "second:prep", "second:exec", "second:post"}, calls)
}

func TestFlow_StopsAtUnregisteredAction(t *testing.T) {
	var calls []string
	only := &recordingNode{name: "only", action: "dangling", calls: &calls}

	f := New(Wrap[string, string](only))
	shared := toolkit.NewShared("sess-1", "en", nil)
	err := f.Run(context.Background(), shared)
	require.NoError(t, err)
	assert.Equal(t, []string{"only:prep", "only:exec", "only:post"}, calls)
}

func TestFlow_ExecErrorRecordsSharedErrorAndStops(t *testing.T) {
	var calls []string
	failing := &recordingNode{name: "failing", action: Done, failWith: errors.New("boom"), calls: &calls}

	f := New(Wrap[string, string](failing))
	shared := toolkit.NewShared("sess-1", "en", nil)
	err := f.Run(context.Background(), shared)
	require.Error(t, err)
	require.Len(t, shared.Errors, 1)
	assert.Equal(t, "failing", shared.Errors[0].Source)
	assert.Contains(t, shared.Errors[0].Error, "boom")
}
