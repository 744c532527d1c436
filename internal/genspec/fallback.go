package genspec

import (
	"fmt"
	"strings"

	"pipewright/internal/pipelinespec"
)

// Artifact is one templated file the packaging layer will materialize.
type Artifact struct {
	Path    string `json:"path"`
	Summary string `json:"summary"`
}

// fallbackFieldType maps profiler type names onto the spec field-type
// vocabulary. Everything else passes through unchanged.
func fallbackFieldType(inferred string) string {
	if inferred == "timestamp" {
		return "datetime"
	}
	return inferred
}

// fallbackSpec synthesizes a minimal valid PipelineSpec from the profile
// alone: PostgreSQL target, append load, no partitioning. It is constructed
// to satisfy every business rule trivially and must always validate.
func fallbackSpec(req Request) pipelinespec.Spec {
	profile := req.Profile

	fields := make([]pipelinespec.Field, 0, len(profile.Columns))
	for _, col := range profile.Columns {
		fields = append(fields, pipelinespec.Field{
			Name:     col,
			Type:     fallbackFieldType(typeOrDefault(profile.InferredTypes, col)),
			Nullable: true,
		})
	}
	if len(fields) == 0 {
		fields = append(fields, pipelinespec.Field{Name: "data", Type: "string", Nullable: true})
	}

	var timeField *string
	if len(profile.TimeFields) > 0 {
		timeField = ptr(profile.TimeFields[0])
	}

	entity := req.FileName
	if entity == "" {
		entity = "data." + profile.Format
	}

	return pipelinespec.Spec{
		Version: pipelinespec.Version,
		Project: pipelinespec.Project{Name: req.Meta.Name, Description: req.Meta.Description},
		Sources: []pipelinespec.Source{{
			Name:   "source_data",
			Kind:   pipelinespec.KindFile,
			Entity: entity,
			Format: ptr(profile.Format),
			Schema: pipelinespec.SourceSchema{
				Fields:     fields,
				PrimaryKey: []string{},
				TimeField:  timeField,
				Encoding:   ptr("utf8"),
				Timezone:   ptr("UTC"),
			},
		}},
		Transforms: []pipelinespec.Transform{},
		Targets: []pipelinespec.Target{{
			Name:   "target_data",
			Kind:   pipelinespec.KindPostgres,
			Entity: "target_table",
			DDL: pipelinespec.DDL{
				Table: ptr("target_table"),
				Partitions: pipelinespec.Partitions{
					Field:       timeField,
					Granularity: ptr("day"),
				},
				Indexes: []pipelinespec.Index{},
				OrderBy: []string{},
			},
			LoadPolicy: pipelinespec.LoadPolicy{
				Mode:      pipelinespec.ModeAppend,
				DedupKeys: []string{},
				Watermark: pipelinespec.Watermark{Delay: "PT0S"},
			},
		}},
		Mappings: []pipelinespec.Mapping{},
		Schedule: pipelinespec.Schedule{
			Frequency: "daily",
			Cron:      "0 2 * * *",
			Retries:   pipelinespec.Retries{Count: 2, DelaySec: 300},
		},
		NonFunctional: pipelinespec.NonFunctional{
			DataQualityChecks: []pipelinespec.QualityCheck{},
			PII:               pipelinespec.PIIPolicy{Masking: []string{}},
		},
	}
}

// fallbackReport is the Russian-language report explaining that the model
// was unavailable, with the sampling caveat when only part of the file was
// profiled.
func fallbackReport(req Request, errs []string) string {
	profile := req.Profile

	var b strings.Builder
	fmt.Fprintf(&b, "# Отчет по проекту: %s\n\n", req.Meta.Name)
	fmt.Fprintf(&b, "## Обзор\n%s\n", req.Meta.Description)

	if profile.SamplingWarning {
		fmt.Fprintf(&b, `
## ⚠️ Ограничения анализа данных

Данный анализ основан на выборке из %.1f%% файла (%s из %s).

**Рекомендации:**
- Выполните валидацию на полном датасете перед продакшеном
- Проверьте редкие значения и крайние случаи
- Настройте мониторинг схемы данных в продакшене
`,
			profile.SampleInfo.Percent,
			formatBytes(profile.SampleInfo.SampledBytes),
			formatBytes(profile.SampleInfo.OriginalSize))
	}

	b.WriteString(`
## Рекомендуемая архитектура
- **Хранилище:** PostgreSQL
- **Режим загрузки:** append
- **Расписание:** daily

## Обоснование выбора
Базовая рекомендация: PostgreSQL подходит для большинства операционных задач. Для точных рекомендаций требуется полный анализ данных.

## Следующие шаги
1. Настроить окружение согласно README.md
2. Выполнить DDL скрипты
3. Развернуть Airflow DAG
4. Запустить пайплайн
`)
	if profile.SamplingWarning {
		b.WriteString("5. Провести валидацию на полном датасете\n")
	}

	b.WriteString("\n## ⚠️ Системное уведомление\n\n")
	b.WriteString("Данная спецификация была сгенерирована в резервном режиме из-за ошибок валидации. ")
	b.WriteString("Рекомендуется проверить конфигурацию вручную.\n\nОшибки:\n")
	for _, e := range errs {
		fmt.Fprintf(&b, "- %s\n", e)
	}
	b.WriteString("\n*Отчет сгенерирован автоматически*")
	return b.String()
}

// defaultArtifacts is the fixed artifact manifest the packaging layer turns
// into a downloadable archive. Storage selects the DDL dialect path.
func defaultArtifacts(storage string) []Artifact {
	kind := strings.ToLower(storage)
	if kind == "" {
		kind = pipelinespec.KindPostgres
	}
	return []Artifact{
		{Path: fmt.Sprintf("/ddl/create_tables_%s.sql", kind), Summary: fmt.Sprintf("DDL для %s", storage)},
		{Path: "/etl/dag_pipeline.py", Summary: "Airflow DAG для ETL процесса"},
		{Path: "/config/pipeline.yaml", Summary: "Конфигурация пайплайна"},
		{Path: "/config/.env.sample", Summary: "Шаблон переменных окружения"},
		{Path: "/scripts/run.sh", Summary: "Скрипт запуска"},
		{Path: "/docs/README.md", Summary: "Инструкция по установке и запуску"},
		{Path: "/docs/schedule.md", Summary: "Настройки расписания и мониторинга"},
		{Path: "/docs/design_report.md", Summary: "Техническое обоснование архитектуры"},
	}
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d Bytes", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %s", float64(n)/float64(div), []string{"KB", "MB", "GB"}[exp])
}

func ptr[T any](v T) *T { return &v }
