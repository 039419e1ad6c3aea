// Package article defines the content items that flow through the pipeline.
package article

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Reserved input keys that are carried as presentation metadata rather than
// scored fields.
const (
	KeyID        = "id"
	KeyThumbnail = "thumbnail"
	KeyImage     = "image"
	KeyHTMLPath  = "html_filepath"
	KeyChecksum  = "checksum"
)

// Article is one content item: a stable integer id, free-form metadata
// fields, and opaque presentation references passed through to the output.
type Article struct {
	ID        int
	Thumbnail string
	Image     string
	HTMLPath  string
	Fields    map[string]Value
}

// Field returns the value for a field name. Missing fields read as the
// empty scalar value, matching the checksum and embedding contracts.
func (a Article) Field(name string) Value {
	return a.Fields[name]
}

// Title returns the flattened title field, used for index display.
func (a Article) Title() string {
	return a.Field("title").Flat()
}

// UnmarshalJSON decodes an input object: "id" is required, the reserved
// presentation keys are extracted, and every remaining key becomes a field.
func (a *Article) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	idRaw, ok := raw[KeyID]
	if !ok {
		return fmt.Errorf("article is missing required %q key", KeyID)
	}
	if err := json.Unmarshal(idRaw, &a.ID); err != nil {
		return fmt.Errorf("article %q must be an integer: %w", KeyID, err)
	}

	a.Thumbnail = decodeOpaqueString(raw[KeyThumbnail])
	a.Image = decodeOpaqueString(raw[KeyImage])
	a.HTMLPath = decodeOpaqueString(raw[KeyHTMLPath])

	a.Fields = make(map[string]Value)
	for key, val := range raw {
		switch key {
		case KeyID, KeyThumbnail, KeyImage, KeyHTMLPath, KeyChecksum:
			continue
		}
		var v Value
		if err := json.Unmarshal(val, &v); err != nil {
			return fmt.Errorf("article %d field %q: %w", a.ID, key, err)
		}
		a.Fields[key] = v
	}

	return nil
}

// decodeOpaqueString reads a presentation reference. Upstream emitters use
// false (or null) for "no image", which reads as the empty string here.
func decodeOpaqueString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}

// Value is a single field value: a scalar string or an ordered list of
// strings. The zero Value is the empty scalar. Invariant: List is set only
// when IsList is true.
type Value struct {
	Scalar string
	List   []string
	IsList bool
}

// String returns a scalar value.
func String(s string) Value {
	return Value{Scalar: s}
}

// Strings returns a list value.
func Strings(items ...string) Value {
	return Value{List: items, IsList: true}
}

// Empty reports whether the value carries no content.
func (v Value) Empty() bool {
	if v.IsList {
		return len(v.List) == 0
	}
	return v.Scalar == ""
}

// Flat returns the value as one string, joining list elements with spaces.
// Used for embedding and pairwise scoring inputs.
func (v Value) Flat() string {
	if v.IsList {
		return strings.Join(v.List, " ")
	}
	return v.Scalar
}

// Elements returns the individual non-empty values: the list elements, or
// the scalar as a one-element slice. Used for field value maps.
func (v Value) Elements() []string {
	if v.IsList {
		out := make([]string, 0, len(v.List))
		for _, s := range v.List {
			if s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	if v.Scalar == "" {
		return nil
	}
	return []string{v.Scalar}
}

// MarshalJSON emits a JSON string for scalars and a JSON array for lists.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.IsList {
		if v.List == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.List)
	}
	return json.Marshal(v.Scalar)
}

// UnmarshalJSON accepts strings and arrays of strings. Scalars of other JSON
// types (numbers, booleans) are kept as their literal text so upstream
// emitters that write {"difficulty": 3} still round-trip; null reads as the
// empty scalar.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = Value{}
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = Value{Scalar: s}
		return nil
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		list := make([]string, 0, len(items))
		for _, item := range items {
			var elem Value
			if err := elem.UnmarshalJSON(item); err != nil {
				return err
			}
			if elem.IsList {
				return fmt.Errorf("nested lists are not supported")
			}
			list = append(list, elem.Scalar)
		}
		*v = Value{List: list, IsList: true}
		return nil
	case '{':
		return fmt.Errorf("object values are not supported")
	default:
		*v = Value{Scalar: string(data)}
		return nil
	}
}
