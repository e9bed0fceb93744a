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

// Package vectorservice backs the prefab_recommend tool: a text query is
// embedded and matched against an indexed prefab catalogue by similarity.
// Grounded on the teacher's pkg/vector (Provider interface, ChromemProvider),
// generalized to hold the embedding step inside the service itself rather
// than requiring pre-computed vectors from an external embedder package,
// since this module has no separate embedding pipeline of its own.
package vectorservice

import (
	"context"
	"errors"
)

// ErrUnavailable is returned by Index and Query when the backend has no
// embedding function or embedder configured. The prefab_recommend tool
// answers this and any other query failure with a suggestion to use
// search_prefabs instead, per spec §4.3.
var ErrUnavailable = errors.New("vectorservice: unavailable")

// Result is one similarity match.
type Result struct {
	ID       string
	Score    float32
	Content  string
	Metadata map[string]any
}

// Service is the narrow interface the prefab_recommend tool depends on.
type Service interface {
	// Available reports whether the backend has an embedding function or
	// embedder configured; it does not probe the connection.
	Available() bool
	// Index upserts one document into the catalogue collection.
	Index(ctx context.Context, id, content string, metadata map[string]any) error
	// Query returns the topK most similar documents to text.
	Query(ctx context.Context, text string, topK int) ([]Result, error)
}
