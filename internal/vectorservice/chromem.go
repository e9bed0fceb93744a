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
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/philippgille/chromem-go"
)

const collectionName = "prefabs"

// ChromemConfig configures the embedded chromem-go backend.
type ChromemConfig struct {
	// PersistPath, if set, persists the collection to disk as gob (+gzip).
	PersistPath string
	Compress    bool
	// OpenAIAPIKey, if set, backs the embedding function with OpenAI's
	// text-embedding-3-small model via chromem-go's built-in constructor.
	// Left empty, the service reports Available()==false so
	// prefab_recommend degrades to search_prefabs.
	OpenAIAPIKey string
}

// ChromemService implements Service with an embedded, single-process
// chromem-go database, matching the teacher's ChromemProvider
// (pkg/vector/chromem.go) but folding embedding into the service itself.
type ChromemService struct {
	mu         sync.RWMutex
	db         *chromem.DB
	collection *chromem.Collection
	embedFunc  chromem.EmbeddingFunc
	persistPath string
	compress    bool
}

// NewChromemService builds the service. When cfg.OpenAIAPIKey is empty, the
// returned service has no embedding function and Available() is false.
func NewChromemService(cfg ChromemConfig) (*ChromemService, error) {
	var db *chromem.DB
	if cfg.PersistPath != "" {
		if err := os.MkdirAll(cfg.PersistPath, 0o755); err != nil {
			return nil, fmt.Errorf("create persist dir: %w", err)
		}
		dbPath := cfg.PersistPath + "/vectors.gob"
		if cfg.Compress {
			dbPath += ".gz"
		}
		if _, err := os.Stat(dbPath); err == nil {
			loaded, loadErr := chromem.NewPersistentDB(dbPath, cfg.Compress)
			if loadErr != nil {
				slog.Warn("failed to load vector database, starting empty", "path", dbPath, "error", loadErr)
				db = chromem.NewDB()
			} else {
				db = loaded
			}
		} else {
			db = chromem.NewDB()
		}
	} else {
		db = chromem.NewDB()
	}

	var embedFunc chromem.EmbeddingFunc
	if cfg.OpenAIAPIKey != "" {
		embedFunc = chromem.NewEmbeddingFuncOpenAI(cfg.OpenAIAPIKey, chromem.EmbeddingModelOpenAI3Small)
	}

	svc := &ChromemService{db: db, embedFunc: embedFunc, persistPath: cfg.PersistPath, compress: cfg.Compress}

	if embedFunc != nil {
		col, err := db.GetOrCreateCollection(collectionName, nil, embedFunc)
		if err != nil {
			return nil, fmt.Errorf("get/create collection: %w", err)
		}
		svc.collection = col
	}

	return svc, nil
}

// Available reports whether an embedding function is configured.
func (s *ChromemService) Available() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collection != nil
}

// Index upserts one document with metadata["content"] populated from content.
func (s *ChromemService) Index(ctx context.Context, id, content string, metadata map[string]any) error {
	s.mu.RLock()
	col := s.collection
	s.mu.RUnlock()
	if col == nil {
		return ErrUnavailable
	}

	strMeta := make(map[string]string, len(metadata))
	for k, v := range metadata {
		strMeta[k] = fmt.Sprint(v)
	}

	doc := chromem.Document{ID: id, Content: content, Metadata: strMeta}
	if err := col.AddDocuments(ctx, []chromem.Document{doc}, 1); err != nil {
		return fmt.Errorf("index document: %w", err)
	}
	return s.persist()
}

// Query returns the topK most similar documents to text.
func (s *ChromemService) Query(ctx context.Context, text string, topK int) ([]Result, error) {
	s.mu.RLock()
	col := s.collection
	s.mu.RUnlock()
	if col == nil {
		return nil, ErrUnavailable
	}
	if topK <= 0 {
		topK = 5
	}
	if n := col.Count(); n < topK {
		topK = n
	}
	if topK == 0 {
		return nil, nil
	}

	matches, err := col.Query(ctx, text, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}

	out := make([]Result, 0, len(matches))
	for _, m := range matches {
		meta := make(map[string]any, len(m.Metadata))
		for k, v := range m.Metadata {
			meta[k] = v
		}
		out = append(out, Result{ID: m.ID, Score: m.Similarity, Content: m.Content, Metadata: meta})
	}
	return out, nil
}

func (s *ChromemService) persist() error {
	if s.persistPath == "" {
		return nil
	}
	dbPath := s.persistPath + "/vectors.gob"
	if s.compress {
		dbPath += ".gz"
	}
	//nolint:staticcheck // chromem-go's Export API predates a non-deprecated replacement
	return s.db.Export(dbPath, s.compress, "")
}

var _ Service = (*ChromemService)(nil)
