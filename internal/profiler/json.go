package profiler

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"pipewright/internal/jsonschema"
)

// JSONProfile is the structural-analysis variant for JSON documents. Column
// statistics are computed over the analyzer's sample, not the full document,
// so the confidence level reflects whether the whole file fit in one pass.
type JSONProfile struct {
	Analysis *jsonschema.Result

	Columns              []string
	InferredTypes        map[string]string
	MissingStats         map[string]int
	TimeFields           []string
	PrimaryKeyCandidates []string
	QualityStats         map[string]QualityStat
	DuplicatesShare      float64
}

// ProfileJSON analyzes a JSON document whose root is an object or an array
// and projects the inferred schema into column statistics.
func ProfileJSON(content []byte) (*JSONProfile, error) {
	analysis, err := jsonschema.Analyze(content)
	if err != nil {
		return nil, err
	}

	p := &JSONProfile{
		Analysis:        analysis,
		Columns:         analysis.Schema.Columns(),
		InferredTypes:   map[string]string{},
		MissingStats:    map[string]int{},
		QualityStats:    map[string]QualityStat{},
		DuplicatesShare: recordDuplicatesShare(analysis.Samples),
	}

	for _, col := range p.Columns {
		field := analysis.Schema.Field(col)
		inferred := columnTypeFromSchema(field)
		p.InferredTypes[col] = inferred
		if isTemporalField(col, field) {
			p.TimeFields = append(p.TimeFields, col)
		}
		p.profileColumn(col, inferred, analysis.Samples)
	}
	return p, nil
}

// columnTypeFromSchema maps schema types and string formats onto the
// profiler's type vocabulary.
func columnTypeFromSchema(field *jsonschema.FieldSchema) string {
	if field == nil {
		return "string"
	}
	switch field.Type {
	case "integer":
		return "integer"
	case "number":
		return "float"
	case "boolean":
		return "boolean"
	case "string":
		switch field.Format {
		case "date-time":
			return "timestamp"
		case "date":
			return "date"
		}
	}
	return "string"
}

func isTemporalField(name string, field *jsonschema.FieldSchema) bool {
	if field != nil && (field.Format == "date-time" || field.Format == "date") {
		return true
	}
	return IsTimeFieldName(name)
}

// profileColumn computes presence, uniqueness and missing counts for one
// column over the sampled records.
func (p *JSONProfile) profileColumn(col, inferred string, samples []any) {
	total := 0
	present := 0
	distinct := map[string]struct{}{}
	var numericRange *Range

	for _, sample := range samples {
		rec, ok := sample.(*jsonschema.Obj)
		if !ok {
			continue
		}
		total++
		v, ok := rec.Get(col)
		if !ok || v == nil {
			continue
		}
		present++
		key := canonicalDigest(v)
		distinct[key] = struct{}{}
		if f, isNum := v.(float64); isNum {
			numericRange = extendRange(numericRange, f)
		}
	}
	if total == 0 {
		return
	}

	presence := float64(present) / float64(total)
	uniqueness := float64(len(distinct)) / float64(max(present, 1))
	if IsPrimaryKeyCandidate(presence, uniqueness) {
		p.PrimaryKeyCandidates = append(p.PrimaryKeyCandidates, col)
	}

	stat := QualityStat{NotNull: presence, Unique: uniqueness}
	if inferred == "integer" || inferred == "float" {
		stat.Range = numericRange
	}
	p.QualityStats[col] = stat
	p.MissingStats[col] = total - present
}

func extendRange(r *Range, f float64) *Range {
	if r == nil {
		return &Range{Min: f, Max: f}
	}
	if f < r.Min {
		r.Min = f
	}
	if f > r.Max {
		r.Max = f
	}
	return r
}

// recordDuplicatesShare hashes each sampled record into a canonical
// sorted-key form so key order never splits otherwise identical records.
func recordDuplicatesShare(samples []any) float64 {
	if len(samples) == 0 {
		return 0
	}
	seen := make(map[string]struct{}, len(samples))
	duplicates := 0
	for _, s := range samples {
		key := canonicalDigest(s)
		if _, ok := seen[key]; ok {
			duplicates++
			continue
		}
		seen[key] = struct{}{}
	}
	return float64(duplicates) / float64(len(samples))
}

// canonicalDigest renders a decoded JSON value with object keys sorted, so
// equality is structural rather than positional.
func canonicalDigest(v any) string {
	var b strings.Builder
	writeCanonical(&b, v)
	return b.String()
}

func writeCanonical(b *strings.Builder, v any) {
	switch t := v.(type) {
	case *jsonschema.Obj:
		keys := append([]string(nil), t.Keys()...)
		sort.Strings(keys)
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			kb, _ := json.Marshal(k)
			b.Write(kb)
			b.WriteByte(':')
			val, _ := t.Get(k)
			writeCanonical(b, val)
		}
		b.WriteByte('}')
	case []any:
		b.WriteByte('[')
		for i, el := range t {
			if i > 0 {
				b.WriteByte(',')
			}
			writeCanonical(b, el)
		}
		b.WriteByte(']')
	default:
		raw, err := json.Marshal(t)
		if err != nil {
			fmt.Fprintf(b, "%v", t)
			return
		}
		b.Write(raw)
	}
}

// Normalize projects the variant into the shared FileProfile shape.
func (p *JSONProfile) Normalize(encoding string, info SampleInfo) *FileProfile {
	format := FormatJSON
	if p.Analysis.Structure == "object" {
		format = FormatJSONObject
	}

	confidence := 0.85
	if info.IsFullFile {
		confidence = 0.95
	}

	sampled := p.Analysis.TotalRecords > len(p.Analysis.Samples)
	info.ActualSamples = len(p.Analysis.Samples)
	info.TotalRecords = p.Analysis.TotalRecords
	if sampled {
		info.SamplingStrategy = "smart-sampling"
	} else {
		info.SamplingStrategy = "full-data"
	}

	return &FileProfile{
		Format:               format,
		Columns:              p.Columns,
		InferredTypes:        p.InferredTypes,
		SampleRowsCount:      p.Analysis.TotalRecords,
		MissingStats:         p.MissingStats,
		DuplicatesShare:      p.DuplicatesShare,
		TimeFields:           p.TimeFields,
		PrimaryKeyCandidates: p.PrimaryKeyCandidates,
		QualityStats:         p.QualityStats,
		Encoding:             encoding,
		SampleInfo:           info,
		SamplingWarning:      sampled,
		SchemaConfidence:     confidence,
		JSONAnalysis: &JSONAnalysis{
			Structure:       p.Analysis.Structure,
			EstimatedFields: p.Analysis.EstimatedFields,
			FileSize:        p.Analysis.FileSize,
			Schema:          p.Analysis.Schema,
		},
		SampleRows: p.Analysis.Samples,
	}
}
