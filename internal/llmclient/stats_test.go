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

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStats_TracksSuccessAndFailureCounts(t *testing.T) {
	s := NewStats()
	s.RecordSuccess(10, 5, 100*time.Millisecond)
	s.RecordFailure(50 * time.Millisecond)

	snap := s.Snapshot()
	assert.Equal(t, 2, snap.Requests)
	assert.Equal(t, 1, snap.Successes)
	assert.Equal(t, 1, snap.Failures)
	assert.Equal(t, 10, snap.PromptTokens)
	assert.Equal(t, 5, snap.CompletionTokens)
}

func TestStats_PercentilesOverLatencies(t *testing.T) {
	s := NewStats()
	for i := 1; i <= 100; i++ {
		s.RecordSuccess(1, 1, time.Duration(i)*time.Millisecond)
	}
	snap := s.Snapshot()
	assert.InDelta(t, 50, snap.P50.Milliseconds(), 2)
	assert.InDelta(t, 95, snap.P95.Milliseconds(), 2)
	assert.InDelta(t, 99, snap.P99.Milliseconds(), 2)
}

func TestStats_EmptySnapshotHasZeroPercentiles(t *testing.T) {
	s := NewStats()
	snap := s.Snapshot()
	assert.Equal(t, time.Duration(0), snap.P50)
}

func TestTokenCounter_CountsNonEmptyText(t *testing.T) {
	tc, err := NewTokenCounter("gpt-4")
	require.NoError(t, err)
	assert.Greater(t, tc.Count("hello world, this is a test sentence"), 0)
}

func TestTokenCounter_UnknownModelFallsBackToCl100kBase(t *testing.T) {
	tc, err := NewTokenCounter("some-unrecognized-model-xyz")
	require.NoError(t, err)
	assert.Greater(t, tc.Count("hello"), 0)
}
