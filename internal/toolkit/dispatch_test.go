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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoEntry(name string) Entry {
	return Entry{
		Name:     name,
		Required: []string{"query"},
		Handler: func(ctx context.Context, args map[string]any, shared *Shared) (Result, error) {
			return Result{Success: true, Output: []any{args["query"]}}, nil
		},
	}
}

func TestValidateArgs_MissingRequiredField(t *testing.T) {
	e := echoEntry("x")
	res, ok := ValidateArgs(e, map[string]any{})
	assert.False(t, ok)
	assert.False(t, res.Success)
	assert.Equal(t, "Missing required parameter: query", res.Error)
}

func TestValidateArgs_Present(t *testing.T) {
	e := echoEntry("x")
	_, ok := ValidateArgs(e, map[string]any{"query": "pdf"})
	assert.True(t, ok)
}

func TestDispatcher_PreservesCallOrderRegardlessOfCompletion(t *testing.T) {
	reg := NewRegistry()
	reg.Register(Entry{
		Name: "slow",
		Handler: func(ctx context.Context, args map[string]any, shared *Shared) (Result, error) {
			time.Sleep(20 * time.Millisecond)
			return Result{Success: true, Output: []any{"slow"}}, nil
		},
	})
	reg.Register(Entry{
		Name: "fast",
		Handler: func(ctx context.Context, args map[string]any, shared *Shared) (Result, error) {
			return Result{Success: true, Output: []any{"fast"}}, nil
		},
	})

	d := NewDispatcher(reg)
	shared := NewShared("s1", "en", nil)
	calls := []Call{{ID: "1", Name: "slow"}, {ID: "2", Name: "fast"}}
	results := d.Run(context.Background(), calls, shared, DispatchOptions{})

	require.Len(t, results, 2)
	assert.Equal(t, "slow", results[0].Name)
	assert.Equal(t, "fast", results[1].Name)
}

func TestDispatcher_UnknownTool(t *testing.T) {
	reg := NewRegistry()
	d := NewDispatcher(reg)
	shared := NewShared("s1", "en", nil)
	results := d.Run(context.Background(), []Call{{ID: "1", Name: "nope"}}, shared, DispatchOptions{})
	require.Len(t, results, 1)
	assert.False(t, results[0].Result.Success)
	assert.Contains(t, results[0].Result.Error, "unknown tool")
}

func TestDispatcher_ValidationFailureSkipsHandler(t *testing.T) {
	reg := NewRegistry()
	called := false
	reg.Register(Entry{
		Name:     "needs_query",
		Required: []string{"query"},
		Handler: func(ctx context.Context, args map[string]any, shared *Shared) (Result, error) {
			called = true
			return Result{Success: true}, nil
		},
	})
	d := NewDispatcher(reg)
	shared := NewShared("s1", "en", nil)
	results := d.Run(context.Background(), []Call{{ID: "1", Name: "needs_query", Args: map[string]any{}}}, shared, DispatchOptions{})
	assert.False(t, called)
	assert.False(t, results[0].Result.Success)
}

func TestDispatcher_FoldsResultExtractionAfterBatch(t *testing.T) {
	reg := NewRegistry()
	reg.Register(echoEntry("search_prefabs"))
	d := NewDispatcher(reg)
	shared := NewShared("s1", "en", nil)
	d.Run(context.Background(), []Call{{ID: "1", Name: "search_prefabs", Args: map[string]any{"query": "pdf"}}}, shared, DispatchOptions{})
	assert.Equal(t, []any{"pdf"}, shared.RecommendedPrefabs)
}

func TestDispatcher_OnStartOnEndCallbacks(t *testing.T) {
	reg := NewRegistry()
	reg.Register(echoEntry("x"))
	d := NewDispatcher(reg)
	shared := NewShared("s1", "en", nil)

	var started, ended []string
	opts := DispatchOptions{
		OnStart: func(c Call) { started = append(started, c.Name) },
		OnEnd:   func(dr Dispatched) { ended = append(ended, dr.Name) },
	}
	d.Run(context.Background(), []Call{{ID: "1", Name: "x", Args: map[string]any{"query": "a"}}}, shared, opts)
	assert.Equal(t, []string{"x"}, started)
	assert.Equal(t, []string{"x"}, ended)
}

type schemaArgs struct {
	Query string `json:"query" jsonschema:"required,description=search query"`
	Limit int    `json:"limit,omitempty" jsonschema:"description=max results,default=10"`
}

func TestSchemaFor_RequiredFromTags(t *testing.T) {
	props, required, err := SchemaFor[schemaArgs]()
	require.NoError(t, err)
	assert.Contains(t, props, "query")
	assert.Contains(t, props, "limit")
	assert.Equal(t, []string{"query"}, required)
}

func TestRegistry_ToolsArraySortedByName(t *testing.T) {
	reg := NewRegistry()
	reg.Register(Entry{Name: "b", Description: "b tool"})
	reg.Register(Entry{Name: "a", Description: "a tool"})
	specs := reg.ToolsArray()
	require.Len(t, specs, 2)
	assert.Equal(t, "a", specs[0].Function.Name)
	assert.Equal(t, "b", specs[1].Function.Name)
	assert.Equal(t, "function", specs[0].Type)
}
