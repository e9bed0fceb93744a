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
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/yuin/goldmark"

	"github.com/kadirpekel/planner/internal/message"
	"github.com/kadirpekel/planner/internal/toolkit"
)

type exportDocumentArgs struct {
	DocumentType  string   `json:"document_type" jsonschema:"required,description=design, database_design, or all"`
	ExportFormats []string `json:"export_formats" jsonschema:"required,description=One or more of: md, html, txt, pdf, docx"`
	OutputDir     string   `json:"output_dir" jsonschema:"required,description=Directory to write exported files into"`
}

// canonicalExportFormat accepts "markdown" as a caller-friendly alias of the
// spec's canonical "md" token; every other format passes through unchanged.
func canonicalExportFormat(format string) string {
	if format == "markdown" {
		return "md"
	}
	return format
}

var unimplementedExportFormats = map[string]bool{
	"pdf":  true,
	"docx": true,
}

func registerExportDocument(reg *toolkit.Registry, deps Deps) error {
	properties, required, err := toolkit.SchemaFor[exportDocumentArgs]()
	if err != nil {
		return err
	}

	reg.Register(toolkit.Entry{
		Name:        "export_document",
		Description: "Write generated documents to disk in one or more formats (md, html, txt; pdf/docx are declared but not implemented).",
		Schema:      properties,
		Required:    required,
		Handler: func(ctx context.Context, rawArgs map[string]any, shared *toolkit.Shared) (toolkit.Result, error) {
			args, err := decodeArgs[exportDocumentArgs](rawArgs)
			if err != nil {
				return toolkit.Result{Success: false, Error: err.Error()}, nil
			}

			docs, err := documentsToExport(shared, args.DocumentType)
			if err != nil {
				return toolkit.Result{Success: false, Error: err.Error()}, nil
			}
			if len(docs) == 0 {
				return toolkit.Result{Success: false, Error: fmt.Sprintf("no generated documents of type %q to export", args.DocumentType)}, nil
			}

			if err := os.MkdirAll(args.OutputDir, 0o755); err != nil {
				return toolkit.Result{Success: false, Error: fmt.Sprintf("create output dir: %v", err)}, nil
			}

			exportedAt := time.Now()

			var saved []string
			var skipped []string
			for _, doc := range docs {
				for _, format := range args.ExportFormats {
					format = canonicalExportFormat(strings.ToLower(format))
					if unimplementedExportFormats[format] {
						skipped = append(skipped, fmt.Sprintf("%s (%s not implemented)", doc.Filename, format))
						continue
					}
					path, content, err := renderExport(doc, format, exportedAt)
					if err != nil {
						return toolkit.Result{Success: false, Error: err.Error()}, nil
					}
					fullPath := filepath.Join(args.OutputDir, path)
					if err := os.WriteFile(fullPath, []byte(content), 0o644); err != nil {
						return toolkit.Result{Success: false, Error: fmt.Sprintf("write %s: %v", fullPath, err)}, nil
					}
					saved = append(saved, fullPath)
				}
			}

			return toolkit.Result{Success: true, Output: map[string]any{
				"saved_files":   saved,
				"skipped_files": skipped,
			}}, nil
		},
	})
	return nil
}

func documentsToExport(shared *toolkit.Shared, documentType string) ([]message.GeneratedDocument, error) {
	switch documentType {
	case "all":
		var all []message.GeneratedDocument
		seen := make(map[string]bool)
		for _, typ := range []string{"design", "database_design", "prefabs_info"} {
			for _, d := range shared.DocumentsByType(typ) {
				if seen[d.Filename] {
					continue
				}
				seen[d.Filename] = true
				all = append(all, d)
			}
		}
		return all, nil
	case "design", "database_design", "prefabs_info":
		return shared.DocumentsByType(documentType), nil
	default:
		return nil, fmt.Errorf("unknown document_type %q", documentType)
	}
}

// renderExport names and renders one (document, format) export, per spec
// §6's output layout: <basename>_<fmt>_<YYYYMMDD_HHMMSS>.<ext>. The
// extension matches the format token itself (md/html/txt), same as every
// other well-known format in this tool.
func renderExport(doc message.GeneratedDocument, format string, at time.Time) (path, content string, err error) {
	base := strings.TrimSuffix(doc.Filename, filepath.Ext(doc.Filename))
	name := fmt.Sprintf("%s_%s_%s.%s", base, format, at.Format("20060102_150405"), format)

	switch format {
	case "md":
		return name, doc.Content, nil
	case "txt":
		return name, stripMarkdown(doc.Content), nil
	case "html":
		html, err := renderSelfContainedHTML(doc)
		if err != nil {
			return "", "", fmt.Errorf("render %s to html: %w", doc.Filename, err)
		}
		return name, html, nil
	default:
		return "", "", fmt.Errorf("unsupported export format %q", format)
	}
}

var (
	mdImageRe      = regexp.MustCompile(`!\[([^\]]*)\]\(([^)]*)\)`)
	mdLinkRe       = regexp.MustCompile(`\[([^\]]*)\]\(([^)]*)\)`)
	mdCodeFenceRe  = regexp.MustCompile("(?m)^```[a-zA-Z0-9_-]*\\s*$")
	mdInlineCodeRe = regexp.MustCompile("`([^`]*)`")
	mdHeaderRe     = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	mdBlockquoteRe = regexp.MustCompile(`(?m)^>\s?`)
	mdListRe       = regexp.MustCompile(`(?m)^(\s*)[-*+]\s+`)
	mdEmphasisRe   = regexp.MustCompile(`(\*\*\*|\*\*|\*|___|__|_)`)
)

// stripMarkdown renders a plain-text approximation of src by dropping
// Markdown syntax, as spec §6's txt format requires. No third-party
// markdown-to-text renderer appears anywhere in the example pack, so this
// is a small, narrowly-scoped regex pass rather than a dependency.
func stripMarkdown(src string) string {
	s := mdImageRe.ReplaceAllString(src, "$1")
	s = mdLinkRe.ReplaceAllString(s, "$1")
	s = mdCodeFenceRe.ReplaceAllString(s, "")
	s = mdInlineCodeRe.ReplaceAllString(s, "$1")
	s = mdHeaderRe.ReplaceAllString(s, "")
	s = mdBlockquoteRe.ReplaceAllString(s, "")
	s = mdListRe.ReplaceAllString(s, "$1")
	s = mdEmphasisRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

var mermaidFenceRe = regexp.MustCompile(`(?s)<pre><code class="language-mermaid">(.*?)</code></pre>`)

// renderSelfContainedHTML converts Markdown to a standalone HTML document
// with a minimal stylesheet and the Mermaid.js CDN script wired to render
// any ```mermaid fenced block, per spec §6.
func renderSelfContainedHTML(doc message.GeneratedDocument) (string, error) {
	var body bytes.Buffer
	if err := goldmark.Convert([]byte(doc.Content), &body); err != nil {
		return "", err
	}

	rendered := mermaidFenceRe.ReplaceAllString(body.String(), `<pre class="mermaid">$1</pre>`)

	var out strings.Builder
	out.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&out, "<title>%s</title>\n", doc.Filename)
	out.WriteString(`<style>
body { font-family: -apple-system, BlinkMacSystemFont, sans-serif; max-width: 52rem; margin: 2rem auto; padding: 0 1rem; line-height: 1.6; color: #1a1a1a; }
pre, code { background: #f4f4f4; border-radius: 4px; }
pre { padding: 0.75rem 1rem; overflow-x: auto; }
code { padding: 0.15rem 0.3rem; }
pre.mermaid { background: none; padding: 0; }
table { border-collapse: collapse; }
th, td { border: 1px solid #ddd; padding: 0.4rem 0.7rem; }
</style>
`)
	out.WriteString("<script src=\"https://cdn.jsdelivr.net/npm/mermaid/dist/mermaid.min.js\"></script>\n")
	out.WriteString("<script>mermaid.initialize({ startOnLoad: true });</script>\n")
	out.WriteString("</head>\n<body>\n")
	out.WriteString(rendered)
	out.WriteString("\n</body>\n</html>\n")
	return out.String(), nil
}
