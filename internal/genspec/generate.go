package genspec

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"pipewright/internal/llm"
	"pipewright/internal/pipelinespec"
	"pipewright/internal/profiler"
)

// MaxRetries bounds validation-failure retries: at most MaxRetries+1 model
// calls per request, keeping latency and upstream cost bounded against an
// unreliable model.
const MaxRetries = 1

// ProjectMeta is the free-form project header carried into prompts.
type ProjectMeta struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Request is one generation request: a profiled file plus project metadata.
type Request struct {
	Profile  *profiler.FileProfile
	FileName string
	Meta     ProjectMeta
}

// Response is the final generation product. PipelineSpec is emitted raw so
// the model's field ordering survives into packaged artifacts.
type Response struct {
	PipelineSpec   json.RawMessage `json:"pipelineSpec"`
	ReportMarkdown string          `json:"reportMarkdown"`
	Artifacts      []Artifact      `json:"artifacts"`
}

// Analysis is the deep-analysis product of a profile request.
type Analysis struct {
	DeepProfile    json.RawMessage `json:"deepProfile"`
	Recommendation json.RawMessage `json:"recommendation"`
	ReportMarkdown string          `json:"reportMarkdown"`
	ProposedSpec   json.RawMessage `json:"proposedSpec"`
}

// Generator drives prompt construction, model calls, response validation
// and the retry/fallback state machine. It is stateless across requests.
type Generator struct {
	client llm.Client
	log    *log.Logger
}

func New(client llm.Client, logger *log.Logger) *Generator {
	if logger == nil {
		logger = log.Default()
	}
	return &Generator{client: client, log: logger}
}

// attempt is the immutable state of one pass through the retry loop.
type attempt struct {
	index       int
	priorErrors []string
}

// Generate runs the bounded attempt loop. Each attempt calls the model,
// parses its JSON and validates the proposed spec; validation errors feed
// the next attempt's prompt. Exhausted attempts resolve to the deterministic
// fallback, never to an error: the caller always gets a valid spec.
func (g *Generator) Generate(ctx context.Context, req Request) *Response {
	a := attempt{}
	for {
		out, err := g.callModel(ctx, req, a.priorErrors)
		if err != nil {
			g.log.Printf("genspec: attempt %d/%d failed: %v", a.index+1, MaxRetries+1, err)
			if a.index < MaxRetries {
				a = attempt{index: a.index + 1, priorErrors: a.priorErrors}
				continue
			}
			return g.fallback(req, []string{fmt.Sprintf("LLM call failed: %v", err)})
		}

		validation := pipelinespec.Validate(decodeRaw(out.ProposedSpec))
		if validation.IsValid {
			report := out.ReportMarkdown
			if len(validation.Warnings) > 0 {
				report += "\n\n## ⚠️ Предупреждения\n\n" + bulletList(validation.Warnings)
			}
			return &Response{
				PipelineSpec:   out.ProposedSpec,
				ReportMarkdown: report,
				Artifacts:      defaultArtifacts(primaryTargetKind(out.ProposedSpec)),
			}
		}

		g.log.Printf("genspec: attempt %d/%d produced invalid spec: %v", a.index+1, MaxRetries+1, validation.Errors)
		if a.index < MaxRetries {
			a = attempt{index: a.index + 1, priorErrors: validation.Errors}
			continue
		}
		return g.fallback(req, validation.Errors)
	}
}

// AnalyzeFile runs the single-shot deep analysis used by the profile
// endpoint. A timeout degrades to the basic analysis built from the profile
// alone; other failures propagate so the caller can surface them.
func (g *Generator) AnalyzeFile(ctx context.Context, req Request) (*Analysis, error) {
	out, err := g.callModel(ctx, req, nil)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			g.log.Printf("genspec: analysis timed out, building basic analysis: %v", err)
			return g.basicAnalysis(req, "Analysis timed out"), nil
		}
		return nil, err
	}
	return &Analysis{
		DeepProfile:    populateRowCount(out.DeepProfile, req.Profile.SampleRowsCount),
		Recommendation: out.Recommendation,
		ReportMarkdown: out.ReportMarkdown,
		ProposedSpec:   out.ProposedSpec,
	}, nil
}

func (g *Generator) callModel(ctx context.Context, req Request, priorErrors []string) (*modelOutput, error) {
	prompt := llm.Prompt{
		System:    systemPrompt,
		Developer: developerPrompt,
		User:      retryUserPrompt(req, priorErrors),
	}
	text, err := g.client.GenerateText(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return parseModelResponse(text)
}

func (g *Generator) fallback(req Request, errs []string) *Response {
	g.log.Printf("genspec: synthesizing fallback spec after %v", errs)
	spec := fallbackSpec(req)
	raw, err := json.Marshal(spec)
	if err != nil {
		raw = json.RawMessage("{}")
	}
	return &Response{
		PipelineSpec:   raw,
		ReportMarkdown: fallbackReport(req, errs),
		Artifacts:      defaultArtifacts(pipelinespec.KindPostgres),
	}
}

// basicAnalysis mirrors the fallback path for the deep-analysis flow: the
// profile's own statistics stand in for the model's deep profile.
func (g *Generator) basicAnalysis(req Request, reason string) *Analysis {
	profile := req.Profile

	fields := make([]map[string]any, 0, len(profile.Columns))
	for _, col := range profile.Columns {
		fields = append(fields, map[string]any{
			"name":     col,
			"type":     typeOrDefault(profile.InferredTypes, col),
			"nullable": true,
			"example":  "",
		})
	}
	var timeField any
	if len(profile.TimeFields) > 0 {
		timeField = profile.TimeFields[0]
	}

	deepProfile := map[string]any{
		"format":        profile.Format,
		"encoding":      profile.Encoding,
		"delimiter":     profile.Delimiter,
		"headerPresent": profile.HeaderPresent,
		"schema": map[string]any{
			"fields":                fields,
			"primaryKeyCandidates":  profile.PrimaryKeyCandidates,
			"businessKeyCandidates": []any{},
			"timeField":             timeField,
			"timezone":              "UTC",
		},
		"quality": map[string]any{
			"rowCountSampled":     profile.SampleRowsCount,
			"missingShareByField": profile.MissingStats,
			"duplicatesShare":     profile.DuplicatesShare,
			"mixedTypeFields":     []any{},
			"outlierFields":       []any{},
			"piiFlags":            []any{},
		},
		"sampling": map[string]any{
			"sampleBytes":       profile.SampleInfo.SampledBytes,
			"originalSizeBytes": profile.SampleInfo.OriginalSize,
			"schemaConfidence":  profile.SchemaConfidence,
			"notes":             []string{reason, "Используется базовый профиль без LLM анализа"},
		},
	}
	recommendation := map[string]any{
		"targetStorage": "PostgreSQL",
		"rationale": []string{
			"Базовая рекомендация: PostgreSQL подходит для большинства операционных задач",
			"Для точных рекомендаций требуется полный анализ данных",
		},
		"loadPolicy": map[string]any{"mode": "append", "dedupKeys": []any{}},
		"schedule":   map[string]any{"frequency": "daily", "cron": "0 2 * * *"},
	}
	spec, err := json.Marshal(fallbackSpec(req))
	if err != nil {
		spec = json.RawMessage("{}")
	}
	return &Analysis{
		DeepProfile:    mustRaw(deepProfile),
		Recommendation: mustRaw(recommendation),
		ReportMarkdown: basicReport(req, reason),
		ProposedSpec:   spec,
	}
}

func basicReport(req Request, reason string) string {
	profile := req.Profile
	return fmt.Sprintf(`# Базовый анализ файла: %s

## ⚠️ Ограничение анализа

%s. Представлен базовый профиль данных без детального LLM анализа.

## Обнаруженная структура

- **Формат**: %s
- **Полей**: %d
- **Строк**: %d
- **Кодировка**: %s

## Рекомендации

Для получения детальных рекомендаций по хранению и обработке данных:
1. Попробуйте повторить анализ
2. Убедитесь в стабильности сетевого подключения
3. Рассмотрите уменьшение размера выборки данных

*Базовый отчет сгенерирован автоматически*`,
		req.Meta.Name, reason, profile.Format, len(profile.Columns), profile.SampleRowsCount, profile.Encoding)
}

// populateRowCount backfills deepProfile.quality.rowCountSampled with the
// profiler's count when the model left it zero.
func populateRowCount(raw json.RawMessage, rowCount int) json.RawMessage {
	var profile map[string]any
	if err := json.Unmarshal(raw, &profile); err != nil {
		return raw
	}
	quality, ok := profile["quality"].(map[string]any)
	if !ok {
		return raw
	}
	if n, _ := quality["rowCountSampled"].(float64); n == 0 {
		quality["rowCountSampled"] = rowCount
		if fixed, err := json.Marshal(profile); err == nil {
			return fixed
		}
	}
	return raw
}

func primaryTargetKind(rawSpec json.RawMessage) string {
	var spec struct {
		Targets []struct {
			Kind string `json:"kind"`
		} `json:"targets"`
	}
	if err := json.Unmarshal(rawSpec, &spec); err == nil && len(spec.Targets) > 0 {
		return spec.Targets[0].Kind
	}
	return pipelinespec.KindPostgres
}

func decodeRaw(raw json.RawMessage) any {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return v
}

func bulletList(items []string) string {
	out := make([]byte, 0, 64)
	for i, item := range items {
		if i > 0 {
			out = append(out, '\n')
		}
		out = append(out, "- "...)
		out = append(out, item...)
	}
	return string(out)
}

func mustRaw(v any) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("{}")
	}
	return raw
}
