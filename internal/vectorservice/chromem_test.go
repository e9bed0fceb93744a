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

package vectorservice

import (
	"context"
	"math"
	"testing"

	"github.com/philippgille/chromem-go"
	"github.com/stretchr/testify/require"
)

// hashEmbed is a deterministic, dependency-free stand-in for a real
// embedding model: same text always yields the same vector, and distinct
// texts yield distinct vectors, which is all the similarity search needs
// to be exercised in a test.
func hashEmbed(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, 8)
	for i, r := range text {
		vec[i%8] += float32(r)
	}
	var norm float32
	for _, v := range vec {
		norm += v * v
	}
	norm = float32(math.Sqrt(float64(norm)))
	if norm == 0 {
		norm = 1
	}
	for i := range vec {
		vec[i] /= norm
	}
	return vec, nil
}

func newTestService(t *testing.T) *ChromemService {
	t.Helper()
	db := chromem.NewDB()
	col, err := db.GetOrCreateCollection(collectionName, nil, hashEmbed)
	require.NoError(t, err)
	return &ChromemService{db: db, collection: col, embedFunc: hashEmbed}
}

func TestChromemService_UnavailableWithoutEmbeddingFunc(t *testing.T) {
	svc := &ChromemService{db: chromem.NewDB()}
	require.False(t, svc.Available())

	_, err := svc.Query(context.Background(), "anything", 5)
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestChromemService_IndexAndQueryReturnsMostSimilar(t *testing.T) {
	svc := newTestService(t)
	require.True(t, svc.Available())

	ctx := context.Background()
	require.NoError(t, svc.Index(ctx, "pdf-exporter", "export documents to pdf", map[string]any{"author": "acme"}))
	require.NoError(t, svc.Index(ctx, "email-sender", "send transactional email", map[string]any{"author": "acme"}))

	results, err := svc.Query(ctx, "export documents to pdf", 2)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	require.Equal(t, "pdf-exporter", results[0].ID)
}

func TestChromemService_QueryClampsTopKToCollectionSize(t *testing.T) {
	svc := newTestService(t)
	require.NoError(t, svc.Index(context.Background(), "only-one", "a single document", nil))

	results, err := svc.Query(context.Background(), "a single document", 50)
	require.NoError(t, err)
	require.Len(t, results, 1)
}
