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

package llmclient

import "context"

// Provider is the minimal transport a Client drives: one model, one
// endpoint family. Client owns retry, stats, and tag filtering; Provider
// owns request/response marshaling for a specific wire format.
type Provider interface {
	// Complete performs a single non-streaming call.
	Complete(ctx context.Context, req Request) (Response, error)
	// Stream performs a streaming call, sending raw (pre-filter) chunks on
	// the returned channel until the upstream closes or ctx is canceled.
	Stream(ctx context.Context, req Request) (<-chan Chunk, error)
}
