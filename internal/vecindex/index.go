// Package vecindex persists the combined article vectors of a build so the
// search commands can rank articles without re-embedding the corpus.
package vecindex

import (
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Errors returned by vector index operations.
var (
	ErrIndexNotFound      = errors.New("vector index not found")
	ErrArticleNotIndexed  = errors.New("article not in vector index")
	ErrUnsupportedVersion = errors.New("unsupported index version")
)

const (
	// IndexFileName is the name of the vector index file.
	IndexFileName = "vectors.gob"

	// CurrentIndexVersion is the format version for compatibility checking.
	// Increment this when making breaking changes to the index format.
	CurrentIndexVersion = 1
)

// IndexPath returns the path to the vector index file.
func IndexPath(root string) string {
	return filepath.Join(root, ".umapcv", IndexFileName)
}

// Entry is one indexed article: its id, display title, and combined vector.
type Entry struct {
	ID     int
	Title  string
	Vector []float64
}

// Index holds the combined vector of every article in a build, plus enough
// provenance to detect when it no longer matches the latest artifact.
type Index struct {
	// Version is the format version, checked against CurrentIndexVersion
	// when loading.
	Version int

	ModelName    string
	Dimensions   int
	Checksum     string // batch checksum of the build that wrote the index
	CreatedAt    time.Time
	ArticleCount int

	Entries []Entry
}

// NewIndex creates an empty index for one build.
func NewIndex(modelName string, dimensions int, checksum string) *Index {
	return &Index{
		Version:    CurrentIndexVersion,
		ModelName:  modelName,
		Dimensions: dimensions,
		Checksum:   checksum,
		CreatedAt:  time.Now(),
	}
}

// Add appends an article's combined vector to the index.
func (idx *Index) Add(id int, title string, vector []float64) error {
	if len(vector) != idx.Dimensions {
		return fmt.Errorf("vector dimension mismatch: got %d, want %d", len(vector), idx.Dimensions)
	}
	idx.Entries = append(idx.Entries, Entry{ID: id, Title: title, Vector: vector})
	idx.ArticleCount = len(idx.Entries)
	return nil
}

// Save persists the index to disk using GOB encoding. The write goes to a
// temp file and is renamed into place.
func (idx *Index) Save(root string) error {
	indexPath := IndexPath(root)

	if err := os.MkdirAll(filepath.Dir(indexPath), 0755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	tempPath := indexPath + ".tmp"
	f, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	enc := gob.NewEncoder(f)
	if err := enc.Encode(idx); err != nil {
		f.Close()
		os.Remove(tempPath)
		return fmt.Errorf("encoding index: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("closing file: %w", err)
	}

	if err := os.Rename(tempPath, indexPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}

	return nil
}

// Load reads the vector index from disk.
// Returns ErrUnsupportedVersion if the index was created with an
// incompatible format.
func Load(root string) (*Index, error) {
	indexPath := IndexPath(root)

	f, err := os.Open(indexPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrIndexNotFound
		}
		return nil, fmt.Errorf("opening index file: %w", err)
	}
	defer f.Close()

	var idx Index
	dec := gob.NewDecoder(f)
	if err := dec.Decode(&idx); err != nil {
		return nil, fmt.Errorf("decoding index: %w", err)
	}

	if idx.Version != CurrentIndexVersion {
		return nil, fmt.Errorf("%w: got %d, want %d (rebuild with 'umapcv build')",
			ErrUnsupportedVersion, idx.Version, CurrentIndexVersion)
	}

	return &idx, nil
}

// Exists checks if the vector index file exists.
func Exists(root string) bool {
	_, err := os.Stat(IndexPath(root))
	return err == nil
}
