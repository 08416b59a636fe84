package ingest

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// CommandRunner executes an external command and returns its stdout.
// It exists so extraction that shells out can be faked in tests.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Extractor turns a source file into raw text based on its extension.
// Plain-text formats are read directly; PDFs go through the pdftotext
// command, which must be on PATH.
type Extractor struct {
	runner CommandRunner
}

// NewExtractor creates an extractor using the real command runner.
func NewExtractor() *Extractor {
	return &Extractor{runner: execRunner{}}
}

// NewExtractorWithRunner creates an extractor with a custom runner.
func NewExtractorWithRunner(r CommandRunner) *Extractor {
	return &Extractor{runner: r}
}

// Supported reports whether the extractor can handle the given path.
func (e *Extractor) Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md", ".pdf":
		return true
	}
	return false
}

// Extract returns the raw text of the file at path.
func (e *Extractor) Extract(ctx context.Context, path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", path, err)
		}
		return string(data), nil
	case ".pdf":
		out, err := e.runner.Run(ctx, "pdftotext", path, "-")
		if err != nil {
			return "", fmt.Errorf("pdftotext %s: %w", path, err)
		}
		return string(out), nil
	}
	return "", fmt.Errorf("unsupported file type: %s", path)
}
