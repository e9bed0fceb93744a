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
	"context"
	"fmt"

	"github.com/kadirpekel/planner/internal/toolkit"
)

type viewDocumentArgs struct {
	Filename string `json:"filename" jsonschema:"required,description=The generated document filename to view (e.g. design.md)"`
}

func registerViewDocument(reg *toolkit.Registry, deps Deps) error {
	properties, required, err := toolkit.SchemaFor[viewDocumentArgs]()
	if err != nil {
		return err
	}

	reg.Register(toolkit.Entry{
		Name:        "view_document",
		Description: "Return the latest generated content for a document filename.",
		Schema:      properties,
		Required:    required,
		Handler: func(ctx context.Context, rawArgs map[string]any, shared *toolkit.Shared) (toolkit.Result, error) {
			args, err := decodeArgs[viewDocumentArgs](rawArgs)
			if err != nil {
				return toolkit.Result{Success: false, Error: err.Error()}, nil
			}

			doc, ok := shared.LatestDocument(args.Filename)
			if !ok {
				return toolkit.Result{Success: false, Error: fmt.Sprintf("no generated document named %q", args.Filename)}, nil
			}

			return toolkit.Result{Success: true, Output: map[string]any{
				"filename":  doc.Filename,
				"type":      doc.Type,
				"content":   doc.Content,
				"timestamp": doc.Timestamp,
			}}, nil
		},
	})
	return nil
}
