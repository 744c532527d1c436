package genspec

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"pipewright/internal/llm"
	"pipewright/internal/pipelinespec"
	"pipewright/internal/profiler"
)

func testRequest() Request {
	return Request{
		Profile: &profiler.FileProfile{
			Format:          profiler.FormatCSV,
			Columns:         []string{"id", "amount", "created_at"},
			InferredTypes:   map[string]string{"id": "integer", "amount": "float", "created_at": "timestamp"},
			SampleRowsCount: 120,
			MissingStats:    map[string]int{"id": 0, "amount": 3, "created_at": 0},
			TimeFields:      []string{"created_at"},
			Encoding:        "utf-8",
			Delimiter:       ",",
			HeaderPresent:   true,
			SampleInfo: profiler.SampleInfo{
				OriginalSize: 4096,
				SampledBytes: 4096,
				Percent:      100,
				IsFullFile:   true,
			},
			SchemaConfidence: 0.8,
		},
		FileName: "payments.csv",
		Meta:     ProjectMeta{Name: "payments", Description: "payment stream ingest"},
	}
}

// validModelResponse wraps a structurally valid proposed spec in the four
// required top-level keys.
func validModelResponse(t *testing.T) string {
	t.Helper()
	spec := fallbackSpec(testRequest())
	raw, err := json.Marshal(spec)
	if err != nil {
		t.Fatalf("marshal spec: %v", err)
	}
	return fmt.Sprintf(`{"deepProfile": {"format": "csv"}, "recommendation": {"targetStorage": "PostgreSQL"}, "reportMarkdown": "# Отчет", "proposedSpec": %s}`, raw)
}

func invalidModelResponse() string {
	// ClickHouse target without orderBy trips a business rule.
	return `{
		"deepProfile": {"format": "csv"},
		"recommendation": {"targetStorage": "ClickHouse"},
		"reportMarkdown": "# Отчет",
		"proposedSpec": {
			"version": "1.0",
			"project": {"name": "p", "description": "d"},
			"sources": [{"name": "s", "kind": "file", "entity": "f.csv",
				"schema": {"fields": [{"name": "id", "type": "integer", "nullable": false}]}}],
			"targets": [{"name": "bad_target", "kind": "clickhouse", "entity": "t",
				"ddl": {"table": "t", "partitions": {}, "indexes": [], "orderBy": []},
				"loadPolicy": {"mode": "append"}}],
			"schedule": {"frequency": "daily", "cron": "0 2 * * *", "retries": {"count": 2, "delaySec": 300}}
		}
	}`
}

func TestGenerate_AcceptsValidFirstAttempt(t *testing.T) {
	fake := llm.NewFakeClient(llm.FakeTurn{Text: validModelResponse(t)})
	g := New(fake, nil)

	resp := g.Generate(context.Background(), testRequest())
	if len(fake.Calls) != 1 {
		t.Fatalf("calls = %d, want 1", len(fake.Calls))
	}
	if resp.ReportMarkdown != "# Отчет" {
		t.Fatalf("report = %q", resp.ReportMarkdown)
	}
	if !pipelinespec.Validate(mustDecode(t, resp.PipelineSpec)).IsValid {
		t.Fatal("accepted spec must validate")
	}
	if len(resp.Artifacts) != 8 {
		t.Fatalf("artifacts = %d, want 8", len(resp.Artifacts))
	}
}

func TestGenerate_RetryThenFallbackTermination(t *testing.T) {
	fake := llm.NewFakeClient(llm.FakeTurn{Text: invalidModelResponse()})
	g := New(fake, nil)

	resp := g.Generate(context.Background(), testRequest())
	if len(fake.Calls) != MaxRetries+1 {
		t.Fatalf("calls = %d, want %d", len(fake.Calls), MaxRetries+1)
	}

	result := pipelinespec.Validate(mustDecode(t, resp.PipelineSpec))
	if !result.IsValid {
		t.Fatalf("fallback spec must validate, errors: %v", result.Errors)
	}
	if !strings.Contains(resp.ReportMarkdown, "резервном режиме") {
		t.Fatal("fallback report must carry the system notice")
	}
}

func TestGenerate_RetryPromptCarriesPriorErrors(t *testing.T) {
	fake := llm.NewFakeClient(
		llm.FakeTurn{Text: invalidModelResponse()},
		llm.FakeTurn{Text: validModelResponse(t)},
	)
	g := New(fake, nil)

	resp := g.Generate(context.Background(), testRequest())
	if len(fake.Calls) != 2 {
		t.Fatalf("calls = %d, want 2", len(fake.Calls))
	}

	retryPrompt := fake.Calls[1].User
	if !strings.Contains(retryPrompt, "ERRORS (must fix):") {
		t.Fatal("retry prompt must include the validation error block")
	}
	if !strings.Contains(retryPrompt, "bad_target") {
		t.Fatal("retry prompt must name the offending target")
	}
	if !strings.Contains(retryPrompt, "Original request:") {
		t.Fatal("retry prompt must append the original request")
	}
	if !pipelinespec.Validate(mustDecode(t, resp.PipelineSpec)).IsValid {
		t.Fatal("second attempt's spec must be accepted")
	}
}

func TestGenerate_CallFailureFallsBack(t *testing.T) {
	fake := llm.NewFakeClient(llm.FakeTurn{Err: context.DeadlineExceeded})
	g := New(fake, nil)

	resp := g.Generate(context.Background(), testRequest())
	if len(fake.Calls) != MaxRetries+1 {
		t.Fatalf("calls = %d, want %d", len(fake.Calls), MaxRetries+1)
	}
	if !pipelinespec.Validate(mustDecode(t, resp.PipelineSpec)).IsValid {
		t.Fatal("fallback spec must validate")
	}
}

func TestGenerate_WarningsAppendedToReport(t *testing.T) {
	response := strings.Replace(validModelResponse(t), `"kind":"postgres"`, `"kind":"hdfs"`, 1)
	response = strings.Replace(response, `"entity":"target_table"`, `"entity":"warehouse.orders"`, 1)
	fake := llm.NewFakeClient(llm.FakeTurn{Text: response})
	g := New(fake, nil)

	resp := g.Generate(context.Background(), testRequest())
	if len(fake.Calls) != 1 {
		t.Fatalf("calls = %d, want 1 (warnings must not trigger retries)", len(fake.Calls))
	}
	if !strings.Contains(resp.ReportMarkdown, "Предупреждения") {
		t.Fatalf("report must append validation warnings, got %q", resp.ReportMarkdown)
	}
}

func TestFallbackSpec_AlwaysValidates(t *testing.T) {
	req := testRequest()
	raw, err := json.Marshal(fallbackSpec(req))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	result := pipelinespec.Validate(mustDecode(t, raw))
	if !result.IsValid {
		t.Fatalf("fallback must satisfy the validator, errors: %v", result.Errors)
	}

	// Even a degenerate profile with no columns synthesizes a valid spec.
	req.Profile = &profiler.FileProfile{Format: profiler.FormatXML}
	raw, err = json.Marshal(fallbackSpec(req))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	result = pipelinespec.Validate(mustDecode(t, raw))
	if !result.IsValid {
		t.Fatalf("empty-profile fallback must validate, errors: %v", result.Errors)
	}
}

func TestFallbackSpec_MapsTimestampToDatetime(t *testing.T) {
	spec := fallbackSpec(testRequest())
	var created *pipelinespec.Field
	for i, f := range spec.Sources[0].Schema.Fields {
		if f.Name == "created_at" {
			created = &spec.Sources[0].Schema.Fields[i]
		}
	}
	if created == nil {
		t.Fatal("created_at field missing from fallback schema")
	}
	if created.Type != "datetime" {
		t.Fatalf("type = %q, want datetime", created.Type)
	}
	if spec.Sources[0].Schema.TimeField == nil || *spec.Sources[0].Schema.TimeField != "created_at" {
		t.Fatal("fallback must carry the first time-field candidate")
	}
}

func TestAnalyzeFile_TimeoutDegradesToBasicAnalysis(t *testing.T) {
	fake := llm.NewFakeClient(llm.FakeTurn{Err: context.DeadlineExceeded})
	g := New(fake, nil)

	analysis, err := g.AnalyzeFile(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("timeout must degrade, not fail: %v", err)
	}
	if !strings.Contains(analysis.ReportMarkdown, "Базовый анализ") {
		t.Fatal("degraded analysis must use the basic report")
	}
	if !pipelinespec.Validate(mustDecode(t, analysis.ProposedSpec)).IsValid {
		t.Fatal("degraded proposed spec must validate")
	}
}

func TestAnalyzeFile_PopulatesRowCount(t *testing.T) {
	response := strings.Replace(validModelResponse(t),
		`"deepProfile": {"format": "csv"}`,
		`"deepProfile": {"format": "csv", "quality": {"rowCountSampled": 0}}`, 1)
	fake := llm.NewFakeClient(llm.FakeTurn{Text: response})
	g := New(fake, nil)

	analysis, err := g.AnalyzeFile(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("AnalyzeFile: %v", err)
	}
	var profile map[string]any
	if err := json.Unmarshal(analysis.DeepProfile, &profile); err != nil {
		t.Fatalf("unmarshal deepProfile: %v", err)
	}
	quality := profile["quality"].(map[string]any)
	if got := quality["rowCountSampled"].(float64); got != 120 {
		t.Fatalf("rowCountSampled = %v, want 120", got)
	}
}

func TestParseModelResponse_ProseWrappedJSON(t *testing.T) {
	text := "Here is the result:\n" + `{"deepProfile": {"a": 1}, "recommendation": {"b": 2}, "reportMarkdown": "r", "proposedSpec": {"c": 3}}` + "\nHope this helps!"
	out, err := parseModelResponse(text)
	if err != nil {
		t.Fatalf("parseModelResponse: %v", err)
	}
	if out.ReportMarkdown != "r" {
		t.Fatalf("report = %q", out.ReportMarkdown)
	}
}

func TestParseModelResponse_ControlCharacters(t *testing.T) {
	text := "{\"deepProfile\": {\"a\": \"x\x01y\"}, \"recommendation\": {}, \"reportMarkdown\": \"r\", \"proposedSpec\": {}}"
	if _, err := parseModelResponse(text); err != nil {
		t.Fatalf("sanitization pass must recover control characters: %v", err)
	}
}

func TestParseModelResponse_MissingKeys(t *testing.T) {
	_, err := parseModelResponse(`{"deepProfile": {}, "recommendation": {}}`)
	if err != ErrMissingKeys {
		t.Fatalf("err = %v, want ErrMissingKeys", err)
	}
}

func TestParseModelResponse_NoJSON(t *testing.T) {
	if _, err := parseModelResponse("no json here"); err != ErrNoJSON {
		t.Fatalf("err = %v, want ErrNoJSON", err)
	}
}

func TestBuildUserPrompt_IncludesProfileEssentials(t *testing.T) {
	prompt := buildUserPrompt(testRequest())
	for _, want := range []string{
		"name: payments",
		"payments.csv",
		`"created_at"`,
		"timeFieldCandidates",
		"duplicatesShare",
	} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q", want)
		}
	}
}

func mustDecode(t *testing.T, raw json.RawMessage) any {
	t.Helper()
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}
