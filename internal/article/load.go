package article

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// MaxLineCapacity is the maximum size of a single JSONL line (1MB).
const MaxLineCapacity = 1024 * 1024

// Load reads articles from path. Files ending in .jsonl hold one JSON object
// per line; anything else is parsed as a JSON array of objects. File order is
// preserved and ids must be unique.
func Load(path string) ([]Article, error) {
	var (
		articles []Article
		err      error
	)
	if strings.EqualFold(filepath.Ext(path), ".jsonl") {
		articles, err = loadLines(path)
	} else {
		articles, err = loadArray(path)
	}
	if err != nil {
		return nil, err
	}

	seen := make(map[int]struct{}, len(articles))
	for _, a := range articles {
		if _, dup := seen[a.ID]; dup {
			return nil, fmt.Errorf("duplicate article id %d in %s", a.ID, path)
		}
		seen[a.ID] = struct{}{}
	}

	return articles, nil
}

func loadArray(path string) ([]Article, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read articles file: %w", err)
	}

	var articles []Article
	if err := json.Unmarshal(data, &articles); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return articles, nil
}

func loadLines(path string) ([]Article, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open articles file: %w", err)
	}
	defer file.Close()

	var articles []Article
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxLineCapacity)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var a Article
		if err := json.Unmarshal([]byte(line), &a); err != nil {
			return nil, fmt.Errorf("failed to parse line %d of %s: %w", lineNum, path, err)
		}
		articles = append(articles, a)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read articles file: %w", err)
	}

	return articles, nil
}
