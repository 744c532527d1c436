package profiler

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

const peopleCSV = "id,name,joined\n1,alice,2024-01-02\n2,bob,2024-01-03\n3,carol,2024-01-04"

func TestProfileCSV_Columns(t *testing.T) {
	p, err := ProfileCSV(peopleCSV)
	if err != nil {
		t.Fatalf("ProfileCSV: %v", err)
	}
	if p.Delimiter != "," {
		t.Fatalf("delimiter = %q, want comma", p.Delimiter)
	}
	want := []string{"id", "name", "joined"}
	if len(p.Columns) != len(want) {
		t.Fatalf("columns = %v, want %v", p.Columns, want)
	}
	for i, col := range want {
		if p.Columns[i] != col {
			t.Fatalf("columns = %v, want %v", p.Columns, want)
		}
	}
	if p.InferredTypes["id"] != "integer" {
		t.Fatalf("id type = %q, want integer", p.InferredTypes["id"])
	}
	if p.InferredTypes["joined"] != "date" {
		t.Fatalf("joined type = %q, want date", p.InferredTypes["joined"])
	}
	if len(p.TimeFields) != 1 || p.TimeFields[0] != "joined" {
		t.Fatalf("timeFields = %v, want [joined]", p.TimeFields)
	}
	if len(p.PrimaryKeyCandidates) != 1 || p.PrimaryKeyCandidates[0] != "id" {
		t.Fatalf("primaryKeyCandidates = %v, want [id]", p.PrimaryKeyCandidates)
	}
	if p.DuplicatesShare != 0 {
		t.Fatalf("duplicatesShare = %v, want 0", p.DuplicatesShare)
	}
}

func TestProfileCSV_DuplicateRows(t *testing.T) {
	text := "id,name\n1,a\n1,a\n2,b"
	p, err := ProfileCSV(text)
	if err != nil {
		t.Fatalf("ProfileCSV: %v", err)
	}
	if want := 1.0 / 3.0; p.DuplicatesShare != want {
		t.Fatalf("duplicatesShare = %v, want %v", p.DuplicatesShare, want)
	}
}

func TestProfileCSV_MissingStats(t *testing.T) {
	text := "id,score\n1,10\n2,\n3,30"
	p, err := ProfileCSV(text)
	if err != nil {
		t.Fatalf("ProfileCSV: %v", err)
	}
	if p.MissingStats["score"] != 1 {
		t.Fatalf("missing[score] = %d, want 1", p.MissingStats["score"])
	}
	stat := p.QualityStats["score"]
	if stat.Range == nil || stat.Range.Min != 10 || stat.Range.Max != 30 {
		t.Fatalf("score range = %+v, want [10,30]", stat.Range)
	}
}

func TestProfileCSV_EmptyInput(t *testing.T) {
	if _, err := ProfileCSV(""); !errors.Is(err, ErrEmptyFile) {
		t.Fatalf("err = %v, want ErrEmptyFile", err)
	}
}

func TestProfileJSON_ArrayOfObjects(t *testing.T) {
	doc := `[
		{"id": 1, "name": "a", "ts": "2024-01-02T10:00:00Z"},
		{"id": 2, "name": "b", "ts": "2024-01-03T11:00:00Z"},
		{"id": 3, "name": "c", "ts": "2024-01-04T12:00:00Z"}
	]`
	p, err := ProfileJSON([]byte(doc))
	if err != nil {
		t.Fatalf("ProfileJSON: %v", err)
	}
	if got := strings.Join(p.Columns, ","); got != "id,name,ts" {
		t.Fatalf("columns = %q, want id,name,ts", got)
	}
	if p.InferredTypes["id"] != "integer" {
		t.Fatalf("id type = %q, want integer", p.InferredTypes["id"])
	}
	if p.InferredTypes["ts"] != "timestamp" {
		t.Fatalf("ts type = %q, want timestamp", p.InferredTypes["ts"])
	}
	if len(p.PrimaryKeyCandidates) == 0 || p.PrimaryKeyCandidates[0] != "id" {
		t.Fatalf("primaryKeyCandidates = %v, want id first", p.PrimaryKeyCandidates)
	}

	fp := p.Normalize("utf-8", NewSampleInfo(int64(len(doc)), int64(len(doc)), true))
	if fp.Format != FormatJSON {
		t.Fatalf("format = %q, want %q", fp.Format, FormatJSON)
	}
	if fp.SchemaConfidence != 0.95 {
		t.Fatalf("confidence = %v, want 0.95", fp.SchemaConfidence)
	}
	if fp.SampleRowsCount != 3 {
		t.Fatalf("sampleRowsCount = %d, want 3", fp.SampleRowsCount)
	}
	if fp.SampleInfo.SamplingStrategy != "full-data" {
		t.Fatalf("samplingStrategy = %q, want full-data", fp.SampleInfo.SamplingStrategy)
	}
	if fp.SamplingWarning {
		t.Fatal("fully sampled array must not warn")
	}
}

func TestProfileJSON_ObjectRoot(t *testing.T) {
	doc := `{"host": "db1", "port": 5432}`
	p, err := ProfileJSON([]byte(doc))
	if err != nil {
		t.Fatalf("ProfileJSON: %v", err)
	}
	fp := p.Normalize("utf-8", NewSampleInfo(int64(len(doc)), int64(len(doc)), true))
	if fp.Format != FormatJSONObject {
		t.Fatalf("format = %q, want %q", fp.Format, FormatJSONObject)
	}
	if fp.JSONAnalysis == nil || fp.JSONAnalysis.Structure != "object" {
		t.Fatalf("jsonAnalysis = %+v, want object structure", fp.JSONAnalysis)
	}
}

func TestProfileJSONLegacy_NDJSON(t *testing.T) {
	text := `{"id": 1, "v": 1.5}` + "\n" + `{"id": 2, "v": 2.5}` + "\n" + `not json` + "\n" + `{"id": 3, "v": 3.5}`
	p, err := ProfileJSONLegacy(text, true)
	if err != nil {
		t.Fatalf("ProfileJSONLegacy: %v", err)
	}
	if !p.NDJSON {
		t.Fatal("multi-line non-array input must be treated as NDJSON")
	}
	if len(p.Items) != 3 {
		t.Fatalf("items = %d, want 3 (bad line skipped)", len(p.Items))
	}
	if p.InferredTypes["v"] != "float" {
		t.Fatalf("v type = %q, want float", p.InferredTypes["v"])
	}
}

func TestProfileJSONLegacy_TruncatedArrayRecovery(t *testing.T) {
	text := `[{"id": 1, "name": "a"}, {"id": 2, "na`
	p, err := ProfileJSONLegacy(text, true)
	if err != nil {
		t.Fatalf("ProfileJSONLegacy: %v", err)
	}
	if len(p.Items) != 1 {
		t.Fatalf("items = %d, want the one recovered object", len(p.Items))
	}
	if p.InferredTypes["id"] != "integer" {
		t.Fatalf("id type = %q, want integer", p.InferredTypes["id"])
	}
}

func TestProfileJSONLegacy_LoosenedSyntax(t *testing.T) {
	p, err := ProfileJSONLegacy(`{'id': 1, 'name': 'a',}`, true)
	if err != nil {
		t.Fatalf("ProfileJSONLegacy: %v", err)
	}
	if len(p.Items) != 1 {
		t.Fatalf("items = %d, want 1", len(p.Items))
	}
}

func TestProfileJSONLegacy_Unrecoverable(t *testing.T) {
	if _, err := ProfileJSONLegacy("{{{", true); !errors.Is(err, ErrInvalidJSON) {
		t.Fatalf("err = %v, want ErrInvalidJSON", err)
	}
}

func TestProfileJSONLegacy_DuplicatesIgnoreKeyOrder(t *testing.T) {
	text := `{"a": 1, "b": 2}` + "\n" + `{"b": 2, "a": 1}`
	p, err := ProfileJSONLegacy(text, true)
	if err != nil {
		t.Fatalf("ProfileJSONLegacy: %v", err)
	}
	if p.DuplicatesShare != 0.5 {
		t.Fatalf("duplicatesShare = %v, want 0.5", p.DuplicatesShare)
	}
}

func TestProfileXML_MostFrequentTagWins(t *testing.T) {
	text := `<rss><item id="1" name="a"/><item id="2" name="b"/><item id="3"/></rss>`
	p := ProfileXML(text)
	if p.Root != "item" {
		t.Fatalf("root = %q, want item", p.Root)
	}
	if got := strings.Join(p.Columns, ","); got != "item,id,name" {
		t.Fatalf("columns = %q, want item,id,name", got)
	}
	fp := p.Normalize("utf-8", NewSampleInfo(100, 100, true))
	if fp.Format != FormatXML {
		t.Fatalf("format = %q, want xml", fp.Format)
	}
	if fp.SchemaConfidence != 0.7 {
		t.Fatalf("confidence = %v, want 0.7", fp.SchemaConfidence)
	}
}

func TestProfile_UnsupportedType(t *testing.T) {
	_, err := Profile([]byte("x"), "application/pdf", NewSampleInfo(1, 1, true))
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("err = %v, want ErrUnsupportedType", err)
	}
}

func TestProfile_JSONFallsBackToLegacy(t *testing.T) {
	// Trailing comma breaks structural analysis; the legacy pass repairs it.
	content := []byte(`{"a": 1,}`)
	fp, err := Profile(content, MimeJSON, NewSampleInfo(int64(len(content)), int64(len(content)), true))
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if fp.Format != FormatJSON {
		t.Fatalf("format = %q, want json", fp.Format)
	}
	if fp.JSONAnalysis != nil {
		t.Fatal("legacy fallback must not carry structural analysis")
	}
}

func TestProfile_Idempotent(t *testing.T) {
	info := NewSampleInfo(int64(len(peopleCSV)), int64(len(peopleCSV)), true)
	first, err := Profile([]byte(peopleCSV), MimeCSV, info)
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	second, err := Profile([]byte(peopleCSV), MimeCSV, info)
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if !bytes.Equal(a, b) {
		t.Fatalf("profiles differ:\n%s\n%s", a, b)
	}
}

func TestExtractSampleData_CSV(t *testing.T) {
	rows := ExtractSampleData(peopleCSV, MimeCSV, 2)
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	raw, err := json.Marshal(rows[0])
	if err != nil {
		t.Fatalf("marshal row: %v", err)
	}
	if want := `{"id":"1","name":"alice","joined":"2024-01-02"}`; string(raw) != want {
		t.Fatalf("row = %s, want %s", raw, want)
	}
}

func TestExtractSampleData_JSONArray(t *testing.T) {
	rows := ExtractSampleData(`[{"a":1},{"a":2},{"a":3}]`, MimeJSON, 2)
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
}

func TestExtractSampleData_BadInput(t *testing.T) {
	if rows := ExtractSampleData("{{{", MimeJSON, 5); len(rows) != 0 {
		t.Fatalf("rows = %d, want 0", len(rows))
	}
}
