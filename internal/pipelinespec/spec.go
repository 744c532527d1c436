// Package pipelinespec defines the PipelineSpec v1 contract object and its
// validator. Field names and enum spellings are load-bearing: downstream
// templating selects DDL dialects and load logic by exact string match.
package pipelinespec

// Version is the only spec revision currently produced or accepted.
const Version = "1.0"

// Storage kinds.
const (
	KindPostgres   = "postgres"
	KindClickHouse = "clickhouse"
	KindHDFS       = "hdfs"
	KindFile       = "file"
	KindAPI        = "api"
)

// Load policy modes.
const (
	ModeAppend  = "append"
	ModeUpsert  = "upsert"
	ModeMerge   = "merge"
	ModeReplace = "replace"
)

// Partitioning strategies.
const (
	PartitionByDate = "by_date"
	PartitionByHash = "by_hash"
	PartitionNone   = "none"
)

// Spec is a PipelineSpec v1 document.
type Spec struct {
	Version       string        `json:"version"`
	Project       Project       `json:"project"`
	Sources       []Source      `json:"sources"`
	Transforms    []Transform   `json:"transforms"`
	Targets       []Target      `json:"targets"`
	Mappings      []Mapping     `json:"mappings"`
	Schedule      Schedule      `json:"schedule"`
	NonFunctional NonFunctional `json:"nonFunctional"`
}

type Project struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type Source struct {
	Name   string       `json:"name"`
	Kind   string       `json:"kind"`
	Entity string       `json:"entity"`
	Format *string      `json:"format"`
	Schema SourceSchema `json:"schema"`
	Notes  *string      `json:"notes"`
}

type SourceSchema struct {
	Fields     []Field  `json:"fields"`
	PrimaryKey []string `json:"primaryKey"`
	TimeField  *string  `json:"timeField"`
	Encoding   *string  `json:"encoding"`
	Timezone   *string  `json:"timezone"`
}

type Field struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
}

type Transform struct {
	ID       string         `json:"id"`
	Operator string         `json:"operator"`
	Params   map[string]any `json:"params"`
}

type Target struct {
	Name       string     `json:"name"`
	Kind       string     `json:"kind"`
	Entity     string     `json:"entity"`
	DDL        DDL        `json:"ddl"`
	LoadPolicy LoadPolicy `json:"loadPolicy"`
}

type DDL struct {
	Table      *string    `json:"table"`
	Partitions Partitions `json:"partitions"`
	Indexes    []Index    `json:"indexes"`
	OrderBy    []string   `json:"orderBy"`
}

type Partitions struct {
	Type        *string `json:"type"`
	Field       *string `json:"field"`
	Granularity *string `json:"granularity"`
}

type Index struct {
	Fields []string `json:"fields"`
	Type   *string  `json:"type"`
}

type LoadPolicy struct {
	Mode      string    `json:"mode"`
	DedupKeys []string  `json:"dedupKeys"`
	Watermark Watermark `json:"watermark"`
}

type Watermark struct {
	Field *string `json:"field"`
	Delay string  `json:"delay"`
}

type Mapping struct {
	From        string  `json:"from"`
	To          string  `json:"to"`
	TransformID *string `json:"transformId,omitempty"`
}

type Schedule struct {
	Frequency string  `json:"frequency"`
	Cron      string  `json:"cron"`
	SLANote   *string `json:"slaNote"`
	Retries   Retries `json:"retries"`
}

type Retries struct {
	Count    int `json:"count"`
	DelaySec int `json:"delaySec"`
}

type NonFunctional struct {
	Retention         Retention      `json:"retention"`
	DataQualityChecks []QualityCheck `json:"dataQualityChecks"`
	PII               PIIPolicy      `json:"pii"`
}

type Retention struct {
	Policy *string `json:"policy"`
}

type QualityCheck struct {
	Check string `json:"check"`
	Field string `json:"field"`
	Min   any    `json:"min,omitempty"`
	Max   any    `json:"max,omitempty"`
}

type PIIPolicy struct {
	Masking []string `json:"masking"`
	Notes   *string  `json:"notes"`
}
