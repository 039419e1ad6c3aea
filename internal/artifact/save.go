package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ManifestName is the file the frontend polls to find the current artifact.
const ManifestName = "manifest.json"

// Manifest points the frontend at the latest artifact for a batch.
type Manifest struct {
	Latest   string `json:"latest"`
	Checksum string `json:"checksum"`
}

// Filename returns the artifact file name for a batch checksum.
func Filename(batchChecksum string) string {
	return fmt.Sprintf("embeddings_%s.json", batchChecksum)
}

// Save writes the document as two-space indented JSON. The write goes to a
// temp file in the same directory and is renamed into place, so readers
// never observe a partial artifact.
func Save(doc *Document, path string) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding artifact: %w", err)
	}
	return writeAtomic(path, data)
}

// Load reads a document from disk. Any read or decode failure is an error;
// callers treat it as a cache miss and recompute.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading artifact: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing artifact %s: %w", path, err)
	}
	return &doc, nil
}

// WriteManifest atomically refreshes manifest.json in the output directory.
func WriteManifest(dir string, m Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	return writeAtomic(filepath.Join(dir, ManifestName), data)
}

// ReadManifest reads manifest.json from the output directory.
func ReadManifest(dir string) (Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if err != nil {
		return Manifest{}, fmt.Errorf("reading manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("parsing manifest: %w", err)
	}
	return m, nil
}

// writeAtomic writes data to path via a temp file and rename.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("writing temp file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}

	return nil
}
