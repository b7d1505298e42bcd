// Package dataset reads and writes the publications document shared by the
// collector and the renderer.
package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/henrybloomingdale/scapis-dashboard/internal/pubs"
)

// DefaultPath is where fetch writes and render reads by default.
const DefaultPath = "data/publications.json"

// Document is the on-disk JSON contract: {"publications": [...]}.
type Document struct {
	Publications []pubs.DashboardRecord `json:"publications"`
}

// Write stores doc at path, creating parent directories. The file is
// replaced atomically, so a failed write leaves any previous file intact.
// Non-ASCII text is written as UTF-8, not escaped.
func Write(path string, doc Document) error {
	if doc.Publications == nil {
		doc.Publications = []pubs.DashboardRecord{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding publications: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tmp.Name(), err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}

// Load reads the document at path. A missing file or malformed JSON is an
// error; a document without a publications key loads as empty.
func Load(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("reading publications: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	if doc.Publications == nil {
		doc.Publications = []pubs.DashboardRecord{}
	}
	return doc, nil
}
