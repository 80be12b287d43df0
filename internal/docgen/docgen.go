// Package docgen writes the pretend documents the pipeline dispatches. The
// artifacts keep their declared office extensions but the content is plain
// text; this repository simulates a generation backend, it is not one.
package docgen

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"warden/internal/gate"
	"warden/internal/logging"
)

// Generator writes artifacts under a single output directory.
type Generator struct {
	outDir string
}

// New creates a generator rooted at outDir.
func New(outDir string) *Generator {
	return &Generator{outDir: outDir}
}

// Generate writes the artifact for a dispatched request and returns its path.
// Filenames may not escape the output directory.
func (g *Generator) Generate(req *gate.Request) (string, error) {
	name := req.Artifact.Filename
	if name == "" {
		name = fmt.Sprintf("%s.%s", sanitize(req.ID), req.Artifact.Kind)
	}
	if name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("artifact filename %q escapes the output directory", name)
	}

	if err := os.MkdirAll(g.outDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(g.outDir, name)
	if err := os.WriteFile(path, []byte(g.render(req)), 0644); err != nil {
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}

	logging.Get(logging.CategoryDocgen).Debugw("artifact written",
		"task", req.ID, "kind", req.Artifact.Kind, "path", path)
	return path, nil
}

// render produces the text body. Each kind gets a different pretend shape so
// output files are distinguishable at a glance.
func (g *Generator) render(req *gate.Request) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "==== WARDEN GENERATED %s (simulated) ====\n", strings.ToUpper(string(req.Artifact.Kind)))
	fmt.Fprintf(&sb, "title: %s\n", req.Title)
	fmt.Fprintf(&sb, "task: %s\n", req.ID)
	fmt.Fprintf(&sb, "requester: %s\n", req.Requester)
	fmt.Fprintf(&sb, "generated: %s\n", time.Now().Format(time.RFC3339))
	sb.WriteString("\n")

	switch req.Artifact.Kind {
	case gate.ArtifactSpreadsheet:
		sb.WriteString("sheet,cell,value\n")
		sb.WriteString("Summary,A1," + quoteCSV(req.Title) + "\n")
		sb.WriteString("Summary,A2," + quoteCSV(req.Prompt) + "\n")
		for i, d := range req.Include {
			fmt.Fprintf(&sb, "Directives,A%d,%s\n", i+1, quoteCSV(d))
		}
	case gate.ArtifactPresentation:
		fmt.Fprintf(&sb, "--- slide 1 ---\n%s\n\n", req.Title)
		fmt.Fprintf(&sb, "--- slide 2 ---\n%s\n", req.Prompt)
		for i, d := range req.Include {
			fmt.Fprintf(&sb, "\n--- slide %d ---\n%s\n", i+3, d)
		}
	default: // docx, txt
		fmt.Fprintf(&sb, "%s\n\n", req.Prompt)
		if len(req.Include) > 0 {
			sb.WriteString("Covered:\n")
			for _, d := range req.Include {
				fmt.Fprintf(&sb, "  - %s\n", d)
			}
		}
		if len(req.Exclude) > 0 {
			sb.WriteString("Omitted on request:\n")
			for _, d := range req.Exclude {
				fmt.Fprintf(&sb, "  - %s\n", d)
			}
		}
	}

	return sb.String()
}

func quoteCSV(s string) string {
	if strings.ContainsAny(s, ",\"\n") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, s)
}
