package profiler

import (
	"errors"
	"fmt"
	"strings"

	"pipewright/internal/jsonschema"
	"pipewright/internal/sniff"
)

// MIME types accepted for profiling.
const (
	MimeCSV     = "text/csv"
	MimeJSON    = "application/json"
	MimeXMLText = "text/xml"
	MimeXMLApp  = "application/xml"
)

var ErrUnsupportedType = errors.New("profiler: unsupported file type")

// Profile decodes raw file bytes and dispatches to the profiler variant for
// the declared MIME type. JSON goes through structural analysis first and
// drops down to the legacy line profiler when analysis fails; only a failure
// of both surfaces as an error.
func Profile(content []byte, mimeType string, info SampleInfo) (*FileProfile, error) {
	text, encoding := sniff.DecodeText(content)

	switch mimeType {
	case MimeCSV:
		p, err := ProfileCSV(text)
		if err != nil {
			return nil, err
		}
		return p.Normalize(encoding, info), nil

	case MimeJSON:
		if p, err := ProfileJSON([]byte(text)); err == nil {
			return p.Normalize(encoding, info), nil
		}
		p, err := ProfileJSONLegacy(text, info.IsFullFile)
		if err != nil {
			return nil, err
		}
		return p.Normalize(encoding, info), nil

	case MimeXMLText, MimeXMLApp:
		return ProfileXML(text).Normalize(encoding, info), nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, mimeType)
	}
}

// ExtractSampleData decodes up to maxRows records for prompt construction.
// CSV rows come back as header-keyed objects; JSON records are decoded
// directly. Failures return an empty slice, never an error, since sample
// rows only enrich the prompt.
func ExtractSampleData(text, mimeType string, maxRows int) []any {
	switch mimeType {
	case MimeCSV:
		return csvSampleRows(text, maxRows)
	case MimeJSON:
		return jsonSampleRows(text, maxRows)
	default:
		return []any{}
	}
}

func csvSampleRows(text string, maxRows int) []any {
	lines := strings.Split(text, "\n")
	if len(lines) > maxRows+1 {
		lines = lines[:maxRows+1]
	}
	if len(lines) < 2 {
		return []any{}
	}

	delimiter := sniff.DetectHeaderDelimiter(lines[0])
	headers := strings.Split(lines[0], delimiter)
	for i, h := range headers {
		headers[i] = stripQuotes(h)
	}

	rows := make([]any, 0, maxRows)
	for _, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if len(rows) == maxRows {
			break
		}
		cols := strings.Split(line, delimiter)
		row := jsonschema.NewObj()
		for i, header := range headers {
			v := ""
			if i < len(cols) {
				v = stripQuotes(cols[i])
			}
			row.Set(header, v)
		}
		rows = append(rows, row)
	}
	return rows
}

func jsonSampleRows(text string, maxRows int) []any {
	trimmed := strings.TrimSpace(text)
	if strings.Contains(trimmed, "\n") && !strings.HasPrefix(trimmed, "[") {
		items := make([]any, 0, maxRows)
		for _, line := range strings.Split(text, "\n") {
			if strings.TrimSpace(line) == "" {
				continue
			}
			if len(items) == maxRows {
				break
			}
			if v, err := jsonschema.Decode([]byte(line)); err == nil {
				items = append(items, v)
			}
		}
		return items
	}

	data, err := jsonschema.Decode([]byte(text))
	if err != nil {
		return []any{}
	}
	items := asItems(data)
	if len(items) > maxRows {
		items = items[:maxRows]
	}
	return items
}
