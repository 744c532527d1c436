package genspec

import (
	"encoding/json"
	"fmt"
	"strings"

	"pipewright/internal/jsonschema"
	"pipewright/internal/pipelinespec"
)

const (
	// maxPromptRows bounds the sample rows carried into one request.
	maxPromptRows = 300
	// previewRows is the slice of sample rows inlined into the user prompt.
	previewRows = 50
	// exampleValues is how many per-column example values the prompt shows.
	exampleValues = 3
)

const systemPrompt = `You are AI Data Engineer — CSV Analyst.
Your job: from a small file sample and profiler stats, infer structure, quality, risks, and produce actionable storage & ETL recommendations.
Hard constraints
• Analyze only the provided file metadata, header, sample stats, and up to N preview rows. No external lookups, no assumptions beyond the data.
• Do not invent secrets/endpoints; all access details are placeholders set later by the app.
• The assistant does not connect to databases; it recommends target storage and proposes DDL/ETL logic and schedule.
• Respect our defaults: ClickHouse for time-series/analytics, PostgreSQL for operational/upsert workloads, HDFS for raw/archival. Prefer date partitioning when a time field exists; require ORDER BY for ClickHouse targets.
• Acknowledge sampling: include warnings when confidence is low or distributions look truncated.
Quality
• Be precise, concise, and unambiguous.
• If a critical input is missing, output exactly one clarification line starting with CLARIFY: and still return best-effort results.`

const developerPrompt = `Return valid JSON with exact keys below. Do not include extra keys or comments.
{
  "deepProfile": {
    "format": "csv|json|ndjson|json-object|xml",
    "encoding": "utf-8|...|unknown",
    "delimiter": ",|;|\t|pipe|unknown",
    "headerPresent": true,
    "schema": {
      "fields": [
        { "name": "string", "type": "int|float|bool|string|date|timestamp", "nullable": true, "example": "string" }
      ],
      "primaryKeyCandidates": [["colA"], ["colA","colB"]],
      "businessKeyCandidates": [["..."]],
      "timeField": "string|null",
      "timezone": "UTC|local|null"
    },
    "quality": {
      "rowCountSampled": 0,
      "missingShareByField": { "field": 0.0 },
      "duplicatesShare": 0.0,
      "mixedTypeFields": ["field"],
      "outlierFields": ["field"],
      "piiFlags": ["email","phone","name","address"]
    },
    "temporal": {
      "granularity": "second|minute|hour|day|null",
      "regularity": "regular|bursty|gapped|null",
      "monotonicIncrease": true
    },
    "categorical": {
      "highCardinality": ["field"],
      "lowCardinality": [{ "field": "status", "top": ["ok","err"] }]
    },
    "sampling": {
      "sampleBytes": 0,
      "originalSizeBytes": 0,
      "schemaConfidence": 0.0,
      "notes": ["sampled prefix only", "stats may be biased"]
    }
  },
  "recommendation": {
    "targetStorage": "PostgreSQL|ClickHouse|HDFS",
    "rationale": [
      "short bullet explaining why this storage fits the data"
    ],
    "ddlStrategy": {
      "partitions": { "type": "by_date|by_hash|null", "field": "string|null", "granularity": "day|month|null" },
      "orderBy": ["field1","field2"],
      "indexes": [{ "fields": ["field1","field2"], "type": "btree|hash|null" }]
    },
    "loadPolicy": {
      "mode": "append|merge|upsert",
      "dedupKeys": ["key1","key2"],
      "watermark": { "field": "string|null", "delay": "PT0S|PT1H|P1D" }
    },
    "schedule": { "frequency": "hourly|daily|weekly", "cron": "string", "slaNote": "string|null" },
    "suggestedTransforms": [
      { "operator": "TypeCast", "params": { "field": "value", "toType": "float" } },
      { "operator": "DateTrunc", "params": { "field": "event_time", "granularity": "hour" } },
      { "operator": "Deduplicate", "params": { "keys": ["user_id","event_time"] } },
      { "operator": "Filter", "params": { "expression": "status IN ('ok','pending')" } }
    ]
  },
  "reportMarkdown": "Short Russian report (<=1200 words): цель данных (оперативные/аналитические/сырые), ключевые поля/время, качество и риски (включая предупреждение о сэмпле), обоснование выбора целевой системы (PG/CH/HDFS), DDL-стратегия (партиции/индексы/ORDER BY), логика загрузки (append/merge/upsert + dedup/watermark), расписание, рекомендации по трансформациям и по маскированию PII, альтернативы и trade-offs.",
  "proposedSpec": {
    "version": "1.0",
    "project": { "name": "{{project.name}}", "description": "{{project.description}}" },
    "sources": [
      {
        "name": "input",
        "kind": "file",
        "entity": "{{file.name}}",
        "format": "csv|json|xml",
        "schema": {
          "fields": [],
          "primaryKey": [],
          "timeField": "string|null",
          "encoding": "utf-8|...|null",
          "timezone": "UTC|...|null"
        }
      }
    ],
    "transforms": [
      { "id": "f1", "operator": "filter", "params": { "expression": "…" } },
      { "id": "t1", "operator": "transform", "params": { "field": "…", "toType": "…" } },
      { "id": "d1", "operator": "clean", "params": { "keys": ["…"] } }
    ],
    "targets": [
      {
        "name": "target_main",
        "kind": "postgres|clickhouse|hdfs",
        "entity": "table|path",
        "ddl": {
          "table": "schema.table",
          "partitions": { "type": "by_date|by_hash|null", "field": "string|null", "granularity": "day|month|null" },
          "indexes": [{ "fields": ["…"], "type": "btree|hash|null" }],
          "orderBy": ["…"]
        },
        "loadPolicy": {
          "mode": "append|merge|upsert",
          "dedupKeys": ["…"],
          "watermark": { "field": "string|null", "delay": "PT0S" }
        }
      }
    ],
    "mappings": [{ "from": "input.field", "to": "target.field", "transformId": "t1" }],
    "schedule": { "frequency": "hourly|daily|weekly", "cron": "…", "slaNote": "…", "retries": { "count": 2, "delaySec": 300 } },
    "nonFunctional": {
      "retention": { "policy": null },
      "dataQualityChecks": [{ "check": "not_null", "field": "…" }, { "check": "unique", "field": "…" }],
      "pii": { "masking": ["email","phone"], "notes": "маскируйте PII в целевой системе" }
    }
  }
}
Rules
• If targetStorage="ClickHouse" then ddlStrategy.orderBy must be non-empty.
• If loadPolicy.mode is merge or upsert, dedupKeys must be non-empty.
• If partitions.type="by_date", a valid partition field must be present.
• Keep reportMarkdown in Russian.
• Do not exceed 1200 words in reportMarkdown.`

// columnBrief is the per-column summary inlined into the user prompt.
type columnBrief struct {
	Name          string `json:"name"`
	TypeGuess     string `json:"typeGuess"`
	NullableGuess bool   `json:"nullableGuess"`
	Examples      []any  `json:"examples"`
}

// buildUserPrompt renders the compressed profile and project metadata as the
// request payload. Sample rows are truncated; columns, types and time-field
// candidates always go in full.
func buildUserPrompt(req Request) string {
	profile := req.Profile
	rows := profile.SampleRows
	if len(rows) > maxPromptRows {
		rows = rows[:maxPromptRows]
	}

	briefs := make([]columnBrief, 0, len(profile.Columns))
	for _, col := range profile.Columns {
		briefs = append(briefs, columnBrief{
			Name:          col,
			TypeGuess:     typeOrDefault(profile.InferredTypes, col),
			NullableGuess: true,
			Examples:      columnExamples(rows, col, exampleValues),
		})
	}

	preview := rows
	if len(preview) > previewRows {
		preview = preview[:previewRows]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "PROJECT:\n- name: %s\n- description: %s\n\n", req.Meta.Name, req.Meta.Description)
	fmt.Fprintf(&b, "FILE PROFILE (%s):\n", strings.ToUpper(profile.Format))
	fmt.Fprintf(&b, "- name: %s\n", req.FileName)
	fmt.Fprintf(&b, "- sizeBytes: %d\n", profile.SampleInfo.OriginalSize)
	fmt.Fprintf(&b, "- sampledBytes: %d\n", profile.SampleInfo.SampledBytes)
	fmt.Fprintf(&b, "- encoding: %s\n", profile.Encoding)
	if profile.Delimiter != "" {
		fmt.Fprintf(&b, "- delimiter: %s\n", profile.Delimiter)
	}
	fmt.Fprintf(&b, "- headerPresent: %t\n", profile.HeaderPresent)
	fmt.Fprintf(&b, "- columns: %s\n", mustJSON(briefs))
	fmt.Fprintf(&b, "- inferredTypes: %s\n", mustJSON(profile.InferredTypes))
	fmt.Fprintf(&b, "- timeFieldCandidates: %s\n", mustJSON(orEmpty(profile.TimeFields)))
	fmt.Fprintf(&b, "- missingStats: %s\n", mustJSON(profile.MissingStats))
	fmt.Fprintf(&b, "- duplicatesShare: %v\n", profile.DuplicatesShare)
	fmt.Fprintf(&b, "- schemaConfidence: %v\n", profile.SchemaConfidence)
	fmt.Fprintf(&b, "- sampleRowsPreview: %s\n", mustJSON(preview))

	b.WriteString(`
CONTEXT:
- Only a sample of the file was analyzed; sampling bias is possible.
- Follow platform defaults: ClickHouse for analytics/time-series; PostgreSQL for operational/upsert; HDFS for raw.
- No secrets or live connections — only recommendations and a proposed spec.

TASK:
1) Build a comprehensive "deepProfile" of this file sample.
2) Recommend the best target storage and ETL approach with clear rationale.
3) Propose a concise set of transforms and a safe schedule.
4) Return a short Russian report with risks/alternatives.
5) Produce a minimal consistent "proposedSpec" (PipelineSpec v1) suitable for templating artifacts.

OUTPUT:
Return JSON exactly per the Developer Prompt schema above.
If a critical ambiguity exists, start with one line: CLARIFY: <your question here>
and still provide best-effort results.`)
	return b.String()
}

// retryUserPrompt prefixes the original request with the previous attempt's
// validation failures so the model can self-correct.
func retryUserPrompt(req Request, priorErrors []string) string {
	base := buildUserPrompt(req)
	if len(priorErrors) == 0 {
		return base
	}
	return pipelinespec.RenderErrorPrompt(priorErrors, nil) + "\n\nOriginal request:\n" + base
}

func columnExamples(rows []any, col string, limit int) []any {
	examples := make([]any, 0, limit)
	for _, row := range rows {
		if len(examples) == limit {
			break
		}
		obj, ok := row.(*jsonschema.Obj)
		if !ok {
			continue
		}
		if v, ok := obj.Get(col); ok && v != nil && v != "" {
			examples = append(examples, v)
		}
	}
	return examples
}

func typeOrDefault(types map[string]string, col string) string {
	if t, ok := types[col]; ok {
		return t
	}
	return "string"
}

func orEmpty(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return ss
}

func mustJSON(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(raw)
}
