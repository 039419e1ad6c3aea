// Package cachedb persists embeddings and pairwise scores across runs in a
// SQLite file under the repository cache directory.
package cachedb

import (
	"crypto/sha256"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite cache connection.
type DB struct {
	db *sql.DB
}

// Open opens or creates the cache database at the given path.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating cache schema: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// createSchema creates the cache schema if it doesn't exist.
func createSchema(db *sql.DB) error {
	schema := `
		-- Embedding vectors keyed by model and exact input text
		CREATE TABLE IF NOT EXISTS embeddings (
			key TEXT PRIMARY KEY,
			model TEXT NOT NULL,
			dims INTEGER NOT NULL,
			vector TEXT NOT NULL,
			created_at INTEGER NOT NULL
		);

		-- Pairwise similarity scores keyed by pair checksum and scoring model
		CREATE TABLE IF NOT EXISTS pair_scores (
			key TEXT NOT NULL,
			model TEXT NOT NULL,
			score REAL NOT NULL,
			created_at INTEGER NOT NULL,
			PRIMARY KEY (key, model)
		);
	`

	_, err := db.Exec(schema)
	return err
}

// embeddingKey folds model and text into one fixed-width key, so the text
// itself is never used as a primary key.
func embeddingKey(model, text string) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(model+"\x00"+text)))
}

// GetEmbedding returns a cached vector for the model and text. Any read or
// decode problem reads as a miss, so a damaged cache only costs
// recomputation.
func (d *DB) GetEmbedding(model, text string) ([]float64, bool) {
	var (
		raw  string
		dims int
	)
	err := d.db.QueryRow(
		"SELECT vector, dims FROM embeddings WHERE key = ?",
		embeddingKey(model, text),
	).Scan(&raw, &dims)
	if err != nil {
		return nil, false
	}

	var vec []float64
	if err := json.Unmarshal([]byte(raw), &vec); err != nil {
		return nil, false
	}
	if dims == 0 || len(vec) != dims {
		return nil, false
	}
	return vec, true
}

// PutEmbedding stores a vector for later runs.
func (d *DB) PutEmbedding(model, text string, vec []float64) error {
	raw, err := json.Marshal(vec)
	if err != nil {
		return fmt.Errorf("marshaling vector: %w", err)
	}

	_, err = d.db.Exec(`
		INSERT OR REPLACE INTO embeddings (key, model, dims, vector, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, embeddingKey(model, text), model, len(vec), string(raw), time.Now().Unix())
	return err
}

// GetScore returns a cached pairwise score by its pair checksum.
func (d *DB) GetScore(key, model string) (float64, bool) {
	var score float64
	err := d.db.QueryRow(
		"SELECT score FROM pair_scores WHERE key = ? AND model = ?",
		key, model,
	).Scan(&score)
	if err != nil {
		return 0, false
	}
	return score, true
}

// PutScore stores a pairwise score.
func (d *DB) PutScore(key, model string, score float64) error {
	_, err := d.db.Exec(`
		INSERT OR REPLACE INTO pair_scores (key, model, score, created_at)
		VALUES (?, ?, ?, ?)
	`, key, model, score, time.Now().Unix())
	return err
}

// Stats reports how many rows the cache holds.
type Stats struct {
	Embeddings int `json:"embeddings"`
	PairScores int `json:"pair_scores"`
}

// Stats counts the cached embeddings and scores.
func (d *DB) Stats() (Stats, error) {
	var s Stats
	if err := d.db.QueryRow("SELECT COUNT(*) FROM embeddings").Scan(&s.Embeddings); err != nil {
		return Stats{}, fmt.Errorf("counting embeddings: %w", err)
	}
	if err := d.db.QueryRow("SELECT COUNT(*) FROM pair_scores").Scan(&s.PairScores); err != nil {
		return Stats{}, fmt.Errorf("counting pair scores: %w", err)
	}
	return s, nil
}
