// Package artifact defines the persisted output document consumed by the
// visualization frontend.
package artifact

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/daylanKifky/umap-cv/internal/article"
)

// Document is one complete pipeline run: the articles with their layout
// coordinates, the per-method link lists, and enough provenance to decide
// whether a later run can reuse it.
type Document struct {
	Model            string      `json:"model"`
	EmbeddingDim     int         `json:"embedding_dim"`
	ReductionMethods []string    `json:"reduction_method"`
	Dimensions       []int       `json:"dimensions"`
	Checksum         string      `json:"checksum"`
	Fields           FieldValues `json:"fields,omitempty"`
	Articles         []Article   `json:"articles"`

	// Links groups link records by reduction method. Only methods with a
	// 3D layout carry links.
	Links map[string][]Link `json:"links,omitempty"`
}

// FieldValues maps field name to value text to that value's own layout
// coordinates, so the frontend can place category labels in space.
type FieldValues map[string]map[string]ValueLayouts

// ValueLayouts maps a layout key such as "pca_3d" to coordinates.
type ValueLayouts map[string][]float64

// Link connects two articles with connector geometry and their pairwise
// similarity scores, raw and batch-normalized.
type Link struct {
	SourceID        int                `json:"source_id"`
	TargetID        int                `json:"target_id"`
	ArcVertices     [][]float64        `json:"arc_vertices"`
	Tangent         []float64          `json:"tangent"`
	SimilaritiesRaw map[string]float64 `json:"similarities_raw"`
	Similarities    map[string]float64 `json:"similarities"`
}

// Article is one item as persisted: the input metadata plus one coordinate
// slice per (method, dimension) combination. It serializes flat, with the
// metadata fields and layout keys folded into the same object.
type Article struct {
	ID        int
	Checksum  string
	Thumbnail string
	Image     string
	HTMLPath  string
	Fields    map[string]article.Value
	Layouts   map[string][]float64
}

// FromArticle converts an input article and its content checksum into the
// persisted form, carrying every metadata field through untouched.
func FromArticle(a article.Article, sum string) Article {
	fields := make(map[string]article.Value, len(a.Fields))
	for name, value := range a.Fields {
		fields[name] = value
	}
	return Article{
		ID:        a.ID,
		Checksum:  sum,
		Thumbnail: a.Thumbnail,
		Image:     a.Image,
		HTMLPath:  a.HTMLPath,
		Fields:    fields,
		Layouts:   make(map[string][]float64),
	}
}

// LayoutKey returns the coordinate key for one (method, dimension) pair,
// e.g. "pca_3d".
func LayoutKey(method string, dim int) string {
	return fmt.Sprintf("%s_%dd", method, dim)
}

// layoutKeyPattern recognizes coordinate keys when reading a document back.
// Field values are strings, so a numeric array under a matching name can
// only be a layout.
var layoutKeyPattern = regexp.MustCompile(`_[0-9]+d$`)

// MarshalJSON flattens the article into a single object: reserved keys,
// metadata fields, and layout keys side by side.
func (a Article) MarshalJSON() ([]byte, error) {
	obj := make(map[string]any, len(a.Fields)+len(a.Layouts)+5)
	obj[article.KeyID] = a.ID
	obj[article.KeyChecksum] = a.Checksum
	obj[article.KeyThumbnail] = a.Thumbnail
	obj[article.KeyImage] = a.Image
	obj[article.KeyHTMLPath] = a.HTMLPath

	for name, value := range a.Fields {
		obj[name] = value
	}
	for key, coords := range a.Layouts {
		obj[key] = coords
	}

	return json.Marshal(obj)
}

// UnmarshalJSON is the inverse of MarshalJSON: reserved keys are split out,
// numeric arrays under layout-shaped names become layouts, and everything
// else is a metadata field.
func (a *Article) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	idRaw, ok := raw[article.KeyID]
	if !ok {
		return fmt.Errorf("article is missing required %q key", article.KeyID)
	}
	if err := json.Unmarshal(idRaw, &a.ID); err != nil {
		return fmt.Errorf("article %q must be an integer: %w", article.KeyID, err)
	}

	for key, dst := range map[string]*string{
		article.KeyChecksum:  &a.Checksum,
		article.KeyThumbnail: &a.Thumbnail,
		article.KeyImage:     &a.Image,
		article.KeyHTMLPath:  &a.HTMLPath,
	} {
		if rawVal, ok := raw[key]; ok {
			if err := json.Unmarshal(rawVal, dst); err != nil {
				return fmt.Errorf("article %d key %q: %w", a.ID, key, err)
			}
		}
	}

	a.Fields = make(map[string]article.Value)
	a.Layouts = make(map[string][]float64)
	for key, rawVal := range raw {
		switch key {
		case article.KeyID, article.KeyChecksum, article.KeyThumbnail, article.KeyImage, article.KeyHTMLPath:
			continue
		}

		if layoutKeyPattern.MatchString(key) {
			var coords []float64
			if err := json.Unmarshal(rawVal, &coords); err == nil {
				a.Layouts[key] = coords
				continue
			}
		}

		var v article.Value
		if err := json.Unmarshal(rawVal, &v); err != nil {
			return fmt.Errorf("article %d field %q: %w", a.ID, key, err)
		}
		a.Fields[key] = v
	}

	return nil
}
