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

package tools

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/fsnotify/fsnotify"
)

// CatalogWatcher hot-reloads a Catalog from its backing JSON file whenever
// the file changes on disk, mirroring the teacher's file-watch pattern in
// pkg/config/koanf_loader.go (Loader.watch) but applied to the prefab
// catalogue instead of the agent config.
type CatalogWatcher struct {
	path    string
	catalog *Catalog
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// WatchCatalog loads path once synchronously into catalog and then starts a
// background fsnotify watch that reloads on every write/create event. The
// returned CatalogWatcher must be closed to stop the goroutine.
func WatchCatalog(path string, catalog *Catalog) (*CatalogWatcher, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog watch: read %s: %w", path, err)
	}
	if err := catalog.ReloadFromJSON(raw); err != nil {
		return nil, fmt.Errorf("catalog watch: parse %s: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("catalog watch: new watcher: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("catalog watch: watch %s: %w", path, err)
	}

	cw := &CatalogWatcher{path: path, catalog: catalog, watcher: watcher, done: make(chan struct{})}
	go cw.loop()
	return cw, nil
}

func (cw *CatalogWatcher) loop() {
	for {
		select {
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			raw, err := os.ReadFile(cw.path)
			if err != nil {
				slog.Warn("catalog watch: reload read failed", "path", cw.path, "error", err)
				continue
			}
			if err := cw.catalog.ReloadFromJSON(raw); err != nil {
				slog.Warn("catalog watch: reload parse failed", "path", cw.path, "error", err)
				continue
			}
			slog.Info("catalog reloaded", "path", cw.path)
		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("catalog watch: fsnotify error", "error", err)
		case <-cw.done:
			return
		}
	}
}

// Close stops the watch goroutine and releases the fsnotify watcher.
func (cw *CatalogWatcher) Close() error {
	close(cw.done)
	return cw.watcher.Close()
}
