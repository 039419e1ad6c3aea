package article

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestValueUnmarshal(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Value
	}{
		{"scalar string", `"hello"`, String("hello")},
		{"empty string", `""`, String("")},
		{"null", `null`, Value{}},
		{"number", `3`, String("3")},
		{"float", `3.5`, String("3.5")},
		{"bool", `true`, String("true")},
		{"list", `["a","b"]`, Strings("a", "b")},
		{"empty list", `[]`, Strings()},
		{"mixed list", `["a",2,false]`, Strings("a", "2", "false")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Value
			if err := json.Unmarshal([]byte(tt.input), &got); err != nil {
				t.Fatalf("Unmarshal(%s): %v", tt.input, err)
			}
			if got.IsList != tt.want.IsList {
				t.Errorf("IsList = %v, want %v", got.IsList, tt.want.IsList)
			}
			if got.Scalar != tt.want.Scalar {
				t.Errorf("Scalar = %q, want %q", got.Scalar, tt.want.Scalar)
			}
			if len(got.List) != len(tt.want.List) {
				t.Fatalf("List = %v, want %v", got.List, tt.want.List)
			}
			for i := range got.List {
				if got.List[i] != tt.want.List[i] {
					t.Errorf("List[%d] = %q, want %q", i, got.List[i], tt.want.List[i])
				}
			}
		})
	}
}

func TestValueUnmarshal_Rejected(t *testing.T) {
	for _, input := range []string{`{"a":1}`, `[["nested"]]`} {
		var v Value
		if err := json.Unmarshal([]byte(input), &v); err == nil {
			t.Errorf("expected error for %s", input)
		}
	}
}

func TestValueMarshal(t *testing.T) {
	tests := []struct {
		value Value
		want  string
	}{
		{String("hello"), `"hello"`},
		{Value{}, `""`},
		{Strings("a", "b"), `["a","b"]`},
		{Strings(), `[]`},
	}

	for _, tt := range tests {
		got, err := json.Marshal(tt.value)
		if err != nil {
			t.Fatalf("Marshal(%+v): %v", tt.value, err)
		}
		if string(got) != tt.want {
			t.Errorf("Marshal(%+v) = %s, want %s", tt.value, got, tt.want)
		}
	}
}

func TestValueFlat(t *testing.T) {
	if got := String("solo").Flat(); got != "solo" {
		t.Errorf("Flat = %q, want %q", got, "solo")
	}
	if got := Strings("go", "rust", "zig").Flat(); got != "go rust zig" {
		t.Errorf("Flat = %q, want %q", got, "go rust zig")
	}
	if got := (Value{}).Flat(); got != "" {
		t.Errorf("Flat = %q, want empty", got)
	}
}

func TestValueEmpty(t *testing.T) {
	if !(Value{}).Empty() {
		t.Error("zero value should be empty")
	}
	if !Strings().Empty() {
		t.Error("empty list should be empty")
	}
	if String("x").Empty() {
		t.Error("scalar should not be empty")
	}
	if Strings("x").Empty() {
		t.Error("non-empty list should not be empty")
	}
}

func TestValueElements(t *testing.T) {
	got := Strings("a", "", "b").Elements()
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("Elements = %v, want [a b]", got)
	}
	got = String("solo").Elements()
	if len(got) != 1 || got[0] != "solo" {
		t.Errorf("Elements = %v, want [solo]", got)
	}
	if got := (Value{}).Elements(); got != nil {
		t.Errorf("Elements = %v, want nil", got)
	}
}

func TestArticleUnmarshal(t *testing.T) {
	input := `{
		"id": 7,
		"title": "Vector fields",
		"tags": ["math", "geometry"],
		"thumbnail": "thumb.png",
		"image": false,
		"html_filepath": "articles/7.html",
		"year": 2024
	}`

	var a Article
	if err := json.Unmarshal([]byte(input), &a); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if a.ID != 7 {
		t.Errorf("ID = %d, want 7", a.ID)
	}
	if a.Thumbnail != "thumb.png" {
		t.Errorf("Thumbnail = %q, want %q", a.Thumbnail, "thumb.png")
	}
	if a.Image != "" {
		t.Errorf("Image = %q, want empty for false", a.Image)
	}
	if a.HTMLPath != "articles/7.html" {
		t.Errorf("HTMLPath = %q", a.HTMLPath)
	}
	if a.Title() != "Vector fields" {
		t.Errorf("Title = %q", a.Title())
	}
	if got := a.Field("tags").Flat(); got != "math geometry" {
		t.Errorf("tags = %q, want %q", got, "math geometry")
	}
	if got := a.Field("year").Flat(); got != "2024" {
		t.Errorf("year = %q, want %q", got, "2024")
	}
	if _, ok := a.Fields["id"]; ok {
		t.Error("reserved key id should not appear in Fields")
	}
	if _, ok := a.Fields["thumbnail"]; ok {
		t.Error("reserved key thumbnail should not appear in Fields")
	}
}

func TestArticleUnmarshal_MissingID(t *testing.T) {
	var a Article
	err := json.Unmarshal([]byte(`{"title":"no id"}`), &a)
	if err == nil {
		t.Fatal("expected error for missing id")
	}
	if !strings.Contains(err.Error(), "id") {
		t.Errorf("error should mention id: %v", err)
	}
}

func TestArticleField_Missing(t *testing.T) {
	var a Article
	if !a.Field("absent").Empty() {
		t.Error("missing field should read as empty value")
	}
}

func TestLoad_JSONArray(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "articles.json")

	content := `[
		{"id": 3, "title": "third"},
		{"id": 1, "title": "first"},
		{"id": 2, "title": "second"}
	]`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	articles, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(articles) != 3 {
		t.Fatalf("expected 3 articles, got %d", len(articles))
	}

	// File order is preserved, not id order.
	wantIDs := []int{3, 1, 2}
	for i, want := range wantIDs {
		if articles[i].ID != want {
			t.Errorf("articles[%d].ID = %d, want %d", i, articles[i].ID, want)
		}
	}
}

func TestLoad_JSONL(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "articles.jsonl")

	content := `{"id": 1, "title": "first"}

{"id": 2, "title": "second"}
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	articles, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(articles) != 2 {
		t.Fatalf("expected 2 articles (skipping empty lines), got %d", len(articles))
	}
	if articles[1].Title() != "second" {
		t.Errorf("articles[1].Title = %q", articles[1].Title())
	}
}

func TestLoad_JSONLInvalidLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "articles.jsonl")

	content := `{"id": 1}
not json
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for invalid line")
	}
	if !strings.Contains(err.Error(), "line 2") {
		t.Errorf("error should mention line number: %v", err)
	}
}

func TestLoad_DuplicateID(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "articles.json")

	content := `[{"id": 1, "title": "a"}, {"id": 1, "title": "b"}]`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for duplicate id")
	}
	if !strings.Contains(err.Error(), "duplicate") {
		t.Errorf("error should mention duplicate: %v", err)
	}
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}
