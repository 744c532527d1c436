package profiler

import "pipewright/internal/jsonschema"

// Format labels carried on a FileProfile.
const (
	FormatCSV        = "csv"
	FormatJSON       = "json"
	FormatNDJSON     = "ndjson"
	FormatJSONObject = "json-object"
	FormatXML        = "xml"
)

// SampleInfo describes how much of the original file was profiled.
type SampleInfo struct {
	OriginalSize int64   `json:"originalSize"`
	SampledBytes int64   `json:"sampledBytes"`
	Percent      float64 `json:"percent"`
	IsFullFile   bool    `json:"isFullFile"`

	// JSON structural analysis extras.
	ActualSamples    int    `json:"actualSamples,omitempty"`
	TotalRecords     int    `json:"totalRecords,omitempty"`
	SamplingStrategy string `json:"samplingStrategy,omitempty"`
}

// NewSampleInfo computes the percent share from sizes.
func NewSampleInfo(originalSize, sampledBytes int64, isFullFile bool) SampleInfo {
	percent := 100.0
	if originalSize > 0 {
		percent = float64(sampledBytes) / float64(originalSize) * 100
	}
	return SampleInfo{
		OriginalSize: originalSize,
		SampledBytes: sampledBytes,
		Percent:      percent,
		IsFullFile:   isFullFile,
	}
}

// Range is the numeric min/max observed in a column sample.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// QualityStat summarizes per-column quality over the sample.
type QualityStat struct {
	NotNull float64 `json:"notNull"`
	Unique  float64 `json:"unique"`
	Range   *Range  `json:"range"`
}

// JSONAnalysis carries the structural analyzer's output on a JSON profile.
type JSONAnalysis struct {
	Structure       string             `json:"structure"`
	EstimatedFields int                `json:"estimatedFields"`
	FileSize        int                `json:"fileSize"`
	Schema          *jsonschema.Schema `json:"schema"`
}

// FileProfile is the normalized statistical description of one uploaded
// file, shared by every profiler variant. Instances are immutable once built
// and never merged across requests.
type FileProfile struct {
	Format               string                 `json:"format"`
	Columns              []string               `json:"columns"`
	InferredTypes        map[string]string      `json:"inferredTypes"`
	SampleRowsCount      int                    `json:"sampleRowsCount"`
	MissingStats         map[string]int         `json:"missingStats"`
	DuplicatesShare      float64                `json:"duplicatesShare"`
	TimeFields           []string               `json:"timeFields"`
	PrimaryKeyCandidates []string               `json:"primaryKeyCandidates"`
	QualityStats         map[string]QualityStat `json:"qualityStats,omitempty"`
	Encoding             string                 `json:"encoding"`
	Delimiter            string                 `json:"delimiter,omitempty"`
	HeaderPresent        bool                   `json:"headerPresent,omitempty"`
	SampleInfo           SampleInfo             `json:"sampleInfo"`
	SamplingWarning      bool                   `json:"samplingWarning"`
	SchemaConfidence     float64                `json:"schemaConfidence"`
	JSONAnalysis         *JSONAnalysis          `json:"jsonAnalysis,omitempty"`

	// SampleRows holds up to a handful of decoded records for prompt
	// construction; never part of the persisted profile shape.
	SampleRows []any `json:"sampleData,omitempty"`
}

// Variant is one format-specific profiling result that can project itself
// into the normalized FileProfile shape.
type Variant interface {
	Normalize(encoding string, info SampleInfo) *FileProfile
}
