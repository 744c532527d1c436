package profiler

import (
	"errors"
	"strconv"
	"strings"

	"pipewright/internal/sniff"
)

const (
	csvMaxLines         = 1000
	columnTypeSampleCap = 500
)

var ErrEmptyFile = errors.New("profiler: file contains no data")

// CSVProfile is the delimited-text profiling variant.
type CSVProfile struct {
	Delimiter            string
	Columns              []string
	InferredTypes        map[string]string
	MissingStats         map[string]int
	TimeFields           []string
	PrimaryKeyCandidates []string
	QualityStats         map[string]QualityStat
	DataRows             int
	DuplicatesShare      float64
}

// ProfileCSV builds column statistics from decoded delimited text. The first
// line is always treated as the header. At most csvMaxLines lines are read;
// per-column type inference sees at most columnTypeSampleCap non-empty
// values.
func ProfileCSV(text string) (*CSVProfile, error) {
	lines := strings.Split(text, "\n")
	if len(lines) > csvMaxLines {
		lines = lines[:csvMaxLines]
	}
	if len(lines) == 0 || strings.TrimSpace(lines[0]) == "" {
		return nil, ErrEmptyFile
	}

	delimiter := sniff.DetectDelimiter(lines)

	rawHeaders := strings.Split(lines[0], delimiter)
	headers := make([]string, len(rawHeaders))
	for i, h := range rawHeaders {
		headers[i] = stripQuotes(h)
	}

	dataLines := make([]string, 0, len(lines)-1)
	for _, line := range lines[1:] {
		if strings.TrimSpace(line) != "" {
			dataLines = append(dataLines, line)
		}
	}

	p := &CSVProfile{
		Delimiter:       delimiter,
		Columns:         headers,
		InferredTypes:   make(map[string]string, len(headers)),
		MissingStats:    make(map[string]int, len(headers)),
		QualityStats:    make(map[string]QualityStat, len(headers)),
		DataRows:        len(dataLines),
		DuplicatesShare: rowDuplicatesShare(dataLines),
	}

	for idx, header := range headers {
		values := make([]string, len(dataLines))
		for i, line := range dataLines {
			cols := strings.Split(line, delimiter)
			if idx < len(cols) {
				values[i] = stripQuotes(cols[idx])
			}
		}
		p.profileColumn(header, values)
	}
	return p, nil
}

// rowDuplicatesShare counts repeats of raw trimmed data lines, not parsed
// cells: two rows are duplicates only when their full text matches.
func rowDuplicatesShare(dataLines []string) float64 {
	if len(dataLines) == 0 {
		return 0
	}
	seen := make(map[string]struct{}, len(dataLines))
	duplicates := 0
	for _, line := range dataLines {
		key := strings.TrimSpace(line)
		if _, ok := seen[key]; ok {
			duplicates++
			continue
		}
		seen[key] = struct{}{}
	}
	return float64(duplicates) / float64(len(dataLines))
}

func (p *CSVProfile) profileColumn(header string, values []string) {
	nonEmpty := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			nonEmpty = append(nonEmpty, v)
		}
	}
	sample := nonEmpty
	if len(sample) > columnTypeSampleCap {
		sample = sample[:columnTypeSampleCap]
	}

	inferred := inferColumnType(header, sample)
	p.InferredTypes[header] = inferred
	if inferred == "timestamp" || inferred == "date" {
		p.TimeFields = append(p.TimeFields, header)
	}

	distinct := make(map[string]struct{}, len(nonEmpty))
	for _, v := range nonEmpty {
		distinct[v] = struct{}{}
	}
	uniqueness := float64(len(distinct)) / float64(max(len(nonEmpty), 1))
	presence := float64(len(nonEmpty)) / float64(max(len(values), 1))
	if IsPrimaryKeyCandidate(presence, uniqueness) {
		p.PrimaryKeyCandidates = append(p.PrimaryKeyCandidates, header)
	}

	stat := QualityStat{NotNull: presence, Unique: uniqueness}
	if inferred == "integer" || inferred == "float" {
		stat.Range = numericRangeOf(sample)
	}
	p.QualityStats[header] = stat
	p.MissingStats[header] = len(values) - len(nonEmpty)
}

func numericRangeOf(sample []string) *Range {
	var r *Range
	for _, v := range sample {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			continue
		}
		if r == nil {
			r = &Range{Min: f, Max: f}
			continue
		}
		if f < r.Min {
			r.Min = f
		}
		if f > r.Max {
			r.Max = f
		}
	}
	return r
}

// Normalize projects the variant into the shared FileProfile shape.
func (p *CSVProfile) Normalize(encoding string, info SampleInfo) *FileProfile {
	confidence := 0.6
	if info.Percent >= 50 {
		confidence = 0.8
	}
	return &FileProfile{
		Format:               FormatCSV,
		Columns:              p.Columns,
		InferredTypes:        p.InferredTypes,
		SampleRowsCount:      p.DataRows,
		MissingStats:         p.MissingStats,
		DuplicatesShare:      p.DuplicatesShare,
		TimeFields:           p.TimeFields,
		PrimaryKeyCandidates: p.PrimaryKeyCandidates,
		QualityStats:         p.QualityStats,
		Encoding:             encoding,
		Delimiter:            p.Delimiter,
		HeaderPresent:        true,
		SampleInfo:           info,
		SamplingWarning:      info.Percent < 100,
		SchemaConfidence:     confidence,
	}
}
