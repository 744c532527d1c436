package pipelinespec

// node is one rule of the declarative structural schema. The interpreter in
// validate.go walks a value against a node tree and accumulates errors, so
// the spec shape lives here as data rather than as hand-written field checks.
type node struct {
	// Type is a single expected type name or a list of acceptable ones
	// ("null" permits an explicit null value).
	Type       any
	Required   []string
	Properties map[string]*node
	Items      *node
	Enum       []any
	MinItems   int
	MinLength  int
	Minimum    float64
}

func obj(required []string, properties map[string]*node) *node {
	return &node{Type: "object", Required: required, Properties: properties}
}

func arr(items *node) *node { return &node{Type: "array", Items: items} }

func str() *node { return &node{Type: "string"} }

func nullable(types ...string) *node {
	vals := make([]any, len(types))
	for i, t := range types {
		vals[i] = t
	}
	return &node{Type: append(vals, "null")}
}

func enum(values ...any) *node { return &node{Enum: values} }

// specSchema is the structural contract for PipelineSpec v1.
var specSchema = obj(
	[]string{"version", "project", "sources", "targets", "schedule"},
	map[string]*node{
		"version": str(),
		"project": obj(
			[]string{"name", "description"},
			map[string]*node{
				"name":        {Type: "string", MinLength: 1},
				"description": {Type: "string", MinLength: 1},
			},
		),
		"sources": &node{
			Type:     "array",
			MinItems: 1,
			Items: obj(
				[]string{"name", "kind", "entity", "schema"},
				map[string]*node{
					"name":   str(),
					"kind":   enum(KindPostgres, KindClickHouse, KindHDFS, KindFile, KindAPI),
					"entity": str(),
					"format": nullable("string"),
					"schema": obj(
						[]string{"fields"},
						map[string]*node{
							"fields": &node{
								Type:     "array",
								MinItems: 1,
								Items: obj(
									[]string{"name", "type", "nullable"},
									map[string]*node{
										"name":     str(),
										"type":     enum("string", "integer", "float", "boolean", "datetime", "date", "json"),
										"nullable": {Type: "boolean"},
									},
								),
							},
							"primaryKey": arr(str()),
							"timeField":  nullable("string"),
						},
					),
				},
			),
		},
		"transforms": arr(obj(
			[]string{"id", "operator"},
			map[string]*node{
				"id":       str(),
				"operator": enum("filter", "aggregate", "join", "transform", "clean"),
				"params":   {Type: "object"},
			},
		)),
		"targets": &node{
			Type:     "array",
			MinItems: 1,
			Items: obj(
				[]string{"name", "kind", "entity", "ddl", "loadPolicy"},
				map[string]*node{
					"name":   str(),
					"kind":   enum(KindPostgres, KindClickHouse, KindHDFS),
					"entity": str(),
					"ddl": obj(
						[]string{"table", "partitions", "indexes", "orderBy"},
						map[string]*node{
							"table": str(),
							"partitions": obj(nil, map[string]*node{
								"type":        enum(PartitionByDate, PartitionByHash, PartitionNone, nil),
								"field":       nullable("string"),
								"granularity": enum("day", "month", "year", nil),
							}),
							"indexes": arr(obj(
								[]string{"fields"},
								map[string]*node{
									"fields": arr(str()),
									"type":   enum("btree", "hash", "gin", "gist", nil),
								},
							)),
							"orderBy": arr(str()),
						},
					),
					"loadPolicy": obj(
						[]string{"mode"},
						map[string]*node{
							"mode":      enum(ModeAppend, ModeUpsert, ModeMerge, ModeReplace),
							"dedupKeys": arr(str()),
							"watermark": obj(nil, map[string]*node{
								"field": nullable("string"),
								"delay": str(),
							}),
						},
					),
				},
			),
		},
		"schedule": obj(
			[]string{"frequency", "cron", "retries"},
			map[string]*node{
				"frequency": enum("hourly", "daily", "weekly"),
				"cron":      str(),
				"slaNote":   nullable("string"),
				"retries": obj(
					[]string{"count", "delaySec"},
					map[string]*node{
						"count":    {Type: "integer", Minimum: 0},
						"delaySec": {Type: "integer", Minimum: 0},
					},
				),
			},
		),
		"mappings": arr(obj(
			[]string{"from", "to"},
			map[string]*node{
				"from":        str(),
				"to":          str(),
				"transformId": nullable("string"),
			},
		)),
		"nonFunctional": obj(nil, map[string]*node{
			"retention": obj(nil, map[string]*node{
				"policy": nullable("string"),
			}),
			"dataQualityChecks": arr(obj(
				[]string{"check", "field"},
				map[string]*node{
					"check": enum("not_null", "unique", "range", "format"),
					"field": str(),
					"min":   nullable("number", "string"),
					"max":   nullable("number", "string"),
				},
			)),
			"pii": obj(nil, map[string]*node{
				"masking": arr(str()),
				"notes":   nullable("string"),
			}),
		}),
	},
)
