package jsonschema

import (
	"errors"
	"fmt"
	"math"
	"regexp"
)

const (
	// MaxSamples bounds the display sample forwarded to prompts and the
	// per-column statistics window.
	MaxSamples = 50
	// maxSchemaElements caps how many array elements feed schema inference,
	// independent of the display sample.
	maxSchemaElements = 1000
	// maxDepth bounds recursion on nested documents.
	maxDepth = 10
	// maxMergedExamples caps examples kept after merging element schemas.
	maxMergedExamples = 10
	// arrayExampleHead is how many leading elements an array example keeps.
	arrayExampleHead = 3
)

var ErrUnsupportedRoot = errors.New("jsonschema: document root must be an object or array")

// Schema describes a JSON value structurally.
type Schema struct {
	Type       string                  `json:"type"`
	Properties map[string]*FieldSchema `json:"properties,omitempty"`
	Items      *FieldSchema            `json:"items,omitempty"`

	// propOrder preserves key discovery order for column extraction.
	propOrder []string
}

// FieldSchema describes one field or array element.
type FieldSchema struct {
	Type     string  `json:"type"`
	Format   string  `json:"format,omitempty"`
	Examples []any   `json:"examples"`
	Nullable bool    `json:"nullable"`
	Nested   *Schema `json:"nested,omitempty"`
}

// Result is the output of structural analysis.
type Result struct {
	Schema          *Schema `json:"schema"`
	Samples         []any   `json:"samples"`
	TotalRecords    int     `json:"totalRecords"`
	FileSize        int     `json:"fileSize"`
	Structure       string  `json:"structure"`
	EstimatedFields int     `json:"estimatedFields"`
}

// Analyze parses a JSON document and infers its schema plus a bounded,
// spatially even sample. The root must be an object or an array.
func Analyze(content []byte) (*Result, error) {
	data, err := Decode(content)
	if err != nil {
		return nil, fmt.Errorf("jsonschema: parse: %w", err)
	}
	switch v := data.(type) {
	case []any:
		return analyzeArray(v, len(content)), nil
	case *Obj:
		return analyzeObject(v, len(content)), nil
	default:
		return nil, ErrUnsupportedRoot
	}
}

func analyzeArray(data []any, fileSize int) *Result {
	schema := inferArraySchema(data, 0)
	return &Result{
		Schema:          schema,
		Samples:         SampleArray(data),
		TotalRecords:    len(data),
		FileSize:        fileSize,
		Structure:       "array",
		EstimatedFields: countFields(schema),
	}
}

func analyzeObject(data *Obj, fileSize int) *Result {
	schema := inferObjectSchema(data, 0)
	return &Result{
		Schema:          schema,
		Samples:         []any{data},
		TotalRecords:    1,
		FileSize:        fileSize,
		Structure:       "object",
		EstimatedFields: countFields(schema),
	}
}

// SampleArray picks a spatially even sample of at most MaxSamples elements.
// For large arrays it strides through the whole array instead of taking a
// prefix, then forces the first and last element into the sample so edge
// records are never missed.
func SampleArray(data []any) []any {
	if len(data) <= MaxSamples {
		return append([]any(nil), data...)
	}

	step := len(data) / MaxSamples
	samples := make([]any, MaxSamples)
	indices := make([]int, MaxSamples)
	for i := 0; i < MaxSamples; i++ {
		idx := i * step
		if idx > len(data)-1 {
			idx = len(data) - 1
		}
		samples[i] = data[idx]
		indices[i] = idx
	}

	// Slot 0 already holds data[0]; pin the last element into the final slot
	// unless the stride landed on it.
	last := len(data) - 1
	if indices[MaxSamples-1] != last {
		samples[MaxSamples-1] = data[last]
	}
	return samples
}

func inferArraySchema(data []any, depth int) *Schema {
	if len(data) == 0 {
		return &Schema{
			Type:  "array",
			Items: &FieldSchema{Type: "unknown", Examples: []any{}, Nullable: true},
		}
	}
	n := len(data)
	if n > maxSchemaElements {
		n = maxSchemaElements
	}
	itemSchemas := make([]*FieldSchema, 0, n)
	for _, item := range data[:n] {
		itemSchemas = append(itemSchemas, inferValueSchema(item, depth))
	}
	return &Schema{Type: "array", Items: MergeSchemas(itemSchemas)}
}

func inferObjectSchema(data *Obj, depth int) *Schema {
	if depth > maxDepth {
		return &Schema{Type: "object", Properties: map[string]*FieldSchema{}}
	}
	props := make(map[string]*FieldSchema, data.Len())
	order := make([]string, 0, data.Len())
	for _, key := range data.Keys() {
		v, _ := data.Get(key)
		props[key] = inferValueSchema(v, depth+1)
		order = append(order, key)
	}
	return &Schema{Type: "object", Properties: props, propOrder: order}
}

func inferValueSchema(value any, depth int) *FieldSchema {
	if value == nil {
		return &FieldSchema{Type: "null", Examples: []any{nil}, Nullable: true}
	}

	switch v := value.(type) {
	case string:
		return &FieldSchema{
			Type:     "string",
			Format:   InferStringFormat(v),
			Examples: []any{v},
		}
	case float64:
		t := "number"
		if v == math.Trunc(v) && !math.IsInf(v, 0) {
			t = "integer"
		}
		return &FieldSchema{Type: t, Examples: []any{v}}
	case bool:
		return &FieldSchema{Type: "boolean", Examples: []any{v}}
	case []any:
		head := v
		if len(head) > arrayExampleHead {
			head = head[:arrayExampleHead]
		}
		fs := &FieldSchema{Type: "array", Examples: []any{head}}
		if len(v) > 0 && depth < maxDepth {
			fs.Nested = inferArraySchema(v, depth+1)
		}
		return fs
	case *Obj:
		fs := &FieldSchema{Type: "object", Examples: []any{v}}
		if depth < maxDepth {
			fs.Nested = inferObjectSchema(v, depth)
		}
		return fs
	default:
		return &FieldSchema{Type: "unknown", Examples: []any{v}}
	}
}

var (
	reDateTime = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}`)
	reDate     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	reEmail    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	reURL      = regexp.MustCompile(`^https?://`)
	reUUID     = regexp.MustCompile(`(?i)^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)
)

// InferStringFormat guesses a string format label, or returns "" when no
// known pattern matches.
func InferStringFormat(s string) string {
	switch {
	case reDateTime.MatchString(s):
		return "date-time"
	case reDate.MatchString(s):
		return "date"
	case reEmail.MatchString(s):
		return "email"
	case reURL.MatchString(s):
		return "url"
	case reUUID.MatchString(s):
		return "uuid"
	default:
		return ""
	}
}

// MergeSchemas folds per-element schemas into one. The merged type is the
// most frequent observed type with ties broken by first-seen order, nullable
// is sticky, examples are concatenated up to a cap, and the first declared
// format wins.
func MergeSchemas(schemas []*FieldSchema) *FieldSchema {
	if len(schemas) == 0 {
		return &FieldSchema{Type: "unknown", Examples: []any{}, Nullable: true}
	}
	if len(schemas) == 1 {
		return schemas[0]
	}

	counts := map[string]int{}
	var seen []string
	for _, s := range schemas {
		if _, ok := counts[s.Type]; !ok {
			seen = append(seen, s.Type)
		}
		counts[s.Type]++
	}
	best := seen[0]
	for _, t := range seen[1:] {
		if counts[t] > counts[best] {
			best = t
		}
	}

	merged := &FieldSchema{Type: best, Examples: []any{}}
	for _, s := range schemas {
		if s.Nullable {
			merged.Nullable = true
		}
		if merged.Format == "" && s.Format != "" {
			merged.Format = s.Format
		}
		for _, ex := range s.Examples {
			if len(merged.Examples) >= maxMergedExamples {
				break
			}
			merged.Examples = append(merged.Examples, ex)
		}
	}
	merged.Nested = mergeNested(best, schemas)
	return merged
}

// mergeNested combines nested schemas of the winning type so an array of
// objects still exposes its element properties after the merge.
func mergeNested(winner string, schemas []*FieldSchema) *Schema {
	if winner == "object" {
		props := map[string][]*FieldSchema{}
		var order []string
		for _, s := range schemas {
			if s.Type != "object" || s.Nested == nil {
				continue
			}
			for _, key := range s.Nested.propOrder {
				if _, ok := props[key]; !ok {
					order = append(order, key)
				}
				props[key] = append(props[key], s.Nested.Properties[key])
			}
		}
		if len(order) == 0 {
			return nil
		}
		out := &Schema{Type: "object", Properties: make(map[string]*FieldSchema, len(order)), propOrder: order}
		for _, key := range order {
			out.Properties[key] = MergeSchemas(props[key])
		}
		return out
	}
	for _, s := range schemas {
		if s.Type == winner && s.Nested != nil {
			return s.Nested
		}
	}
	return nil
}

// Columns returns field names for downstream mapping: the property names of
// an object root, or of the element objects of an array root.
func (s *Schema) Columns() []string {
	if s == nil {
		return nil
	}
	if s.Type == "object" && s.Properties != nil {
		return append([]string(nil), s.propOrder...)
	}
	if s.Type == "array" && s.Items != nil && s.Items.Nested != nil && s.Items.Nested.Properties != nil {
		return append([]string(nil), s.Items.Nested.propOrder...)
	}
	return nil
}

// Field resolves a column's schema from an object root or an array-of-objects
// root, mirroring Columns.
func (s *Schema) Field(name string) *FieldSchema {
	if s == nil {
		return nil
	}
	if s.Type == "object" && s.Properties != nil {
		return s.Properties[name]
	}
	if s.Type == "array" && s.Items != nil && s.Items.Nested != nil && s.Items.Nested.Properties != nil {
		return s.Items.Nested.Properties[name]
	}
	return nil
}

func countFields(s *Schema) int {
	if s == nil {
		return 0
	}
	count := len(s.Properties)
	for _, p := range s.Properties {
		if p.Nested != nil {
			count += countFields(p.Nested)
		}
	}
	if s.Items != nil && s.Items.Nested != nil {
		count += countFields(s.Items.Nested)
	}
	return count
}
