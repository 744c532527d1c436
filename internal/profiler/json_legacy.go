package profiler

import (
	"errors"
	"math"
	"regexp"
	"strings"

	"pipewright/internal/jsonschema"
)

const jsonMaxObjects = 1000

// ErrInvalidJSON is returned when a JSON document cannot be parsed even
// after the recovery passes.
var ErrInvalidJSON = errors.New("profiler: invalid JSON format")

var (
	// First complete object inside a truncated array.
	reArrayRecovery = regexp.MustCompile(`(?s)\[\s*(\{[^}]*\})`)
	reTrailingComma = regexp.MustCompile(`,\s*([}\]])`)
)

// LegacyJSONProfile is the line-oriented fallback used when structural
// analysis fails. It handles NDJSON, plain arrays and single objects, and
// makes two best-effort recovery passes over malformed documents.
type LegacyJSONProfile struct {
	NDJSON bool
	Items  []any

	Columns              []string
	InferredTypes        map[string]string
	MissingStats         map[string]int
	TimeFields           []string
	PrimaryKeyCandidates []string
	QualityStats         map[string]QualityStat
	DuplicatesShare      float64
}

// ProfileJSONLegacy parses a JSON document into records and profiles them.
// Multi-line text that does not open with a bracket is treated as NDJSON,
// skipping lines that fail to parse. Object caps apply only to partial
// uploads: a fully read file is profiled whole.
func ProfileJSONLegacy(text string, isFullFile bool) (*LegacyJSONProfile, error) {
	items, ndjson, err := decodeRecords(text, isFullFile)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrEmptyFile
	}

	p := &LegacyJSONProfile{
		NDJSON:          ndjson,
		Items:           items,
		InferredTypes:   map[string]string{},
		MissingStats:    map[string]int{},
		QualityStats:    map[string]QualityStat{},
		DuplicatesShare: recordDuplicatesShare(items),
	}
	p.profileItems()
	return p, nil
}

func decodeRecords(text string, isFullFile bool) (items []any, ndjson bool, err error) {
	trimmed := strings.TrimSpace(text)
	if strings.Contains(trimmed, "\n") && !strings.HasPrefix(trimmed, "[") {
		return decodeNDJSON(text, isFullFile), true, nil
	}

	if data, derr := jsonschema.Decode([]byte(text)); derr == nil {
		return capItems(asItems(data), isFullFile), false, nil
	}

	// Truncated array: salvage the first complete object.
	if m := reArrayRecovery.FindStringSubmatch(text); m != nil {
		data, derr := jsonschema.Decode([]byte("[" + m[1] + "]"))
		if derr != nil {
			return nil, false, ErrInvalidJSON
		}
		return asItems(data), false, nil
	}

	// Loosen trailing commas and single quotes, then retry once.
	fixed := reTrailingComma.ReplaceAllString(text, "$1")
	fixed = strings.ReplaceAll(fixed, "'", `"`)
	data, derr := jsonschema.Decode([]byte(fixed))
	if derr != nil {
		return nil, false, ErrInvalidJSON
	}
	return capItems(asItems(data), isFullFile), false, nil
}

func decodeNDJSON(text string, isFullFile bool) []any {
	lines := make([]string, 0)
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	if !isFullFile && len(lines) > jsonMaxObjects {
		lines = lines[:jsonMaxObjects]
	}
	items := make([]any, 0, len(lines))
	for _, line := range lines {
		if v, err := jsonschema.Decode([]byte(line)); err == nil {
			items = append(items, v)
		}
	}
	return items
}

func asItems(data any) []any {
	if arr, ok := data.([]any); ok {
		return arr
	}
	return []any{data}
}

func capItems(items []any, isFullFile bool) []any {
	if !isFullFile && len(items) > jsonMaxObjects {
		return items[:jsonMaxObjects]
	}
	return items
}

func (p *LegacyJSONProfile) profileItems() {
	keyFrequency := map[string]int{}
	for _, item := range p.Items {
		obj, ok := item.(*jsonschema.Obj)
		if !ok {
			continue
		}
		for _, key := range obj.Keys() {
			if _, seen := keyFrequency[key]; !seen {
				p.Columns = append(p.Columns, key)
			}
			keyFrequency[key]++
		}
	}

	for _, col := range p.Columns {
		values := make([]any, 0, len(p.Items))
		for _, item := range p.Items {
			obj, ok := item.(*jsonschema.Obj)
			if !ok {
				continue
			}
			if v, ok := obj.Get(col); ok && v != nil {
				values = append(values, v)
			}
		}
		sample := values
		if len(sample) > columnTypeSampleCap {
			sample = sample[:columnTypeSampleCap]
		}

		inferred := inferValueType(col, sample)
		p.InferredTypes[col] = inferred
		if inferred == "timestamp" || inferred == "date" {
			p.TimeFields = append(p.TimeFields, col)
		}

		distinct := map[string]struct{}{}
		for _, v := range values {
			distinct[canonicalDigest(v)] = struct{}{}
		}
		uniqueness := float64(len(distinct)) / float64(max(len(values), 1))
		presence := float64(keyFrequency[col]) / float64(len(p.Items))
		if IsPrimaryKeyCandidate(presence, uniqueness) {
			p.PrimaryKeyCandidates = append(p.PrimaryKeyCandidates, col)
		}

		stat := QualityStat{NotNull: presence, Unique: uniqueness}
		if inferred == "integer" || inferred == "float" {
			var r *Range
			for _, v := range sample {
				if f, ok := v.(float64); ok {
					r = extendRange(r, f)
				}
			}
			stat.Range = r
		}
		p.QualityStats[col] = stat
		p.MissingStats[col] = len(p.Items) - len(values)
	}
}

// inferValueType mirrors inferColumnType but operates on decoded JSON values
// instead of delimited-text cells.
func inferValueType(name string, sample []any) string {
	if len(sample) > 0 {
		switch {
		case allValues(sample, isJSONInteger):
			return "integer"
		case allValues(sample, isJSONNumber):
			return "float"
		case allValues(sample, isJSONBoolean):
			return "boolean"
		case anyValue(sample, isJSONTimestamp):
			return "timestamp"
		case anyValue(sample, isJSONDate):
			return "date"
		}
	}
	if IsTimeFieldName(name) {
		return "timestamp"
	}
	return "string"
}

func isJSONInteger(v any) bool {
	f, ok := v.(float64)
	return ok && f == math.Trunc(f) && !math.IsInf(f, 0)
}

func isJSONNumber(v any) bool {
	_, ok := v.(float64)
	return ok
}

func isJSONBoolean(v any) bool {
	_, ok := v.(bool)
	return ok
}

func isJSONTimestamp(v any) bool {
	s, ok := v.(string)
	return ok && isTimestampLiteral(s)
}

func isJSONDate(v any) bool {
	s, ok := v.(string)
	return ok && isDateLiteral(s)
}

func allValues(vals []any, fn func(any) bool) bool {
	for _, v := range vals {
		if !fn(v) {
			return false
		}
	}
	return true
}

func anyValue(vals []any, fn func(any) bool) bool {
	for _, v := range vals {
		if fn(v) {
			return true
		}
	}
	return false
}

// Normalize projects the variant into the shared FileProfile shape.
func (p *LegacyJSONProfile) Normalize(encoding string, info SampleInfo) *FileProfile {
	format := FormatJSON
	if p.NDJSON {
		format = FormatNDJSON
	}

	confidence := 0.6
	switch {
	case info.IsFullFile:
		confidence = 0.95
	case info.Percent >= 50:
		confidence = 0.8
	}

	samples := p.Items
	if len(samples) > jsonschema.MaxSamples {
		samples = samples[:jsonschema.MaxSamples]
	}

	return &FileProfile{
		Format:               format,
		Columns:              p.Columns,
		InferredTypes:        p.InferredTypes,
		SampleRowsCount:      len(p.Items),
		MissingStats:         p.MissingStats,
		DuplicatesShare:      p.DuplicatesShare,
		TimeFields:           p.TimeFields,
		PrimaryKeyCandidates: p.PrimaryKeyCandidates,
		QualityStats:         p.QualityStats,
		Encoding:             encoding,
		SampleInfo:           info,
		SamplingWarning:      !info.IsFullFile && info.Percent < 100,
		SchemaConfidence:     confidence,
		SampleRows:           samples,
	}
}
