package pipelinespec

import (
	"fmt"
	"math"
	"strings"
)

// ValidationResult reports structural and business-rule checks on a
// candidate spec. Errors block acceptance; warnings are advisory and get
// appended to the generated report.
type ValidationResult struct {
	IsValid  bool     `json:"isValid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// Validate checks a decoded JSON document against the PipelineSpec v1
// structural schema and its business rules. It accepts arbitrary malformed
// input and never panics; both phases run and their errors accumulate.
func Validate(spec any) ValidationResult {
	errs := validateNode(spec, specSchema, "")
	berrs, warns := businessRules(spec)
	errs = append(errs, berrs...)

	if errs == nil {
		errs = []string{}
	}
	if warns == nil {
		warns = []string{}
	}
	return ValidationResult{IsValid: len(errs) == 0, Errors: errs, Warnings: warns}
}

func validateNode(value any, n *node, path string) []string {
	var errs []string

	switch t := n.Type.(type) {
	case []any:
		if !typeListMatches(value, t) {
			errs = append(errs, fmt.Sprintf("Field %s: expected one of %s, got %s",
				path, joinTypeList(t), jsTypeOf(value)))
		}
	case string:
		switch t {
		case "object":
			m, ok := value.(map[string]any)
			if !ok {
				if path == "" {
					return []string{fmt.Sprintf("Expected object, got %s", jsTypeOf(value))}
				}
				return append(errs, fmt.Sprintf("Field %s: expected object, got %s", path, jsTypeOf(value)))
			}
			for _, field := range n.Required {
				if _, ok := m[field]; !ok {
					if path == "" {
						errs = append(errs, fmt.Sprintf("Missing required field: %s", field))
					} else {
						errs = append(errs, fmt.Sprintf("Field %s: missing required field: %s", path, field))
					}
				}
			}
			for key, propSchema := range n.Properties {
				if v, ok := m[key]; ok {
					errs = append(errs, validateNode(v, propSchema, joinPath(path, key))...)
				}
			}
			return errs

		case "array":
			arr, ok := value.([]any)
			if !ok {
				return append(errs, fmt.Sprintf("Field %s: expected array, got %s", path, jsTypeOf(value)))
			}
			if n.MinItems > 0 && len(arr) < n.MinItems {
				errs = append(errs, fmt.Sprintf("Field %s: array must have at least %d items", path, n.MinItems))
			}
			if n.Items != nil {
				for i, item := range arr {
					errs = append(errs, validateNode(item, n.Items, fmt.Sprintf("%s[%d]", path, i))...)
				}
			}
			return errs

		default:
			if !primitiveMatches(value, t) {
				errs = append(errs, fmt.Sprintf("Field %s: expected %s, got %s", path, t, jsTypeOf(value)))
			}
		}
	}

	if n.Enum != nil && !enumContains(n.Enum, value) {
		errs = append(errs, fmt.Sprintf("Field %s: value %q not in allowed values: %s",
			path, fmt.Sprint(value), joinEnum(n.Enum)))
	}
	if n.MinLength > 0 {
		if s, ok := value.(string); ok && len(s) < n.MinLength {
			errs = append(errs, fmt.Sprintf("Field %s: string must be at least %d characters", path, n.MinLength))
		}
	}
	if n.Minimum > 0 {
		if f, ok := value.(float64); ok && f < n.Minimum {
			errs = append(errs, fmt.Sprintf("Field %s: number must be at least %v", path, n.Minimum))
		}
	}
	return errs
}

func primitiveMatches(value any, typeName string) bool {
	switch typeName {
	case "string":
		_, ok := value.(string)
		return ok
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "number":
		_, ok := value.(float64)
		return ok
	case "integer":
		f, ok := value.(float64)
		return ok && f == math.Trunc(f)
	case "null":
		return value == nil
	default:
		return true
	}
}

func typeListMatches(value any, types []any) bool {
	for _, t := range types {
		name, ok := t.(string)
		if !ok {
			continue
		}
		if name == "null" && value == nil {
			return true
		}
		if value != nil && primitiveMatches(value, name) {
			return true
		}
	}
	return false
}

func enumContains(enum []any, value any) bool {
	for _, candidate := range enum {
		if candidate == nil && value == nil {
			return true
		}
		if candidate == value {
			return true
		}
	}
	return false
}

func jsTypeOf(value any) string {
	switch value.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", value)
	}
}

func joinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func joinTypeList(types []any) string {
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = fmt.Sprint(t)
	}
	return strings.Join(parts, ", ")
}

func joinEnum(enum []any) string {
	parts := make([]string, len(enum))
	for i, v := range enum {
		if v == nil {
			parts[i] = "null"
		} else {
			parts[i] = fmt.Sprint(v)
		}
	}
	return strings.Join(parts, ", ")
}

// businessRules enforces the cross-field invariants. A spec whose targets or
// sources are not arrays fails fast: there is nothing meaningful to check.
func businessRules(spec any) (errs, warns []string) {
	m, ok := spec.(map[string]any)
	if !ok {
		return nil, nil
	}

	targets, ok := m["targets"].([]any)
	if !ok {
		return []string{fmt.Sprintf("Field targets: expected array, got %s", jsTypeOf(m["targets"]))}, nil
	}
	sources, ok := m["sources"].([]any)
	if !ok {
		return []string{fmt.Sprintf("Field sources: expected array, got %s", jsTypeOf(m["sources"]))}, nil
	}

	for _, raw := range targets {
		target, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		name := stringAt(target, "name")
		kind := stringAt(target, "kind")
		mode := stringAt(target, "loadPolicy", "mode")

		if kind == KindClickHouse && len(listAt(target, "ddl", "orderBy")) == 0 {
			errs = append(errs, fmt.Sprintf("ClickHouse target %q must have at least one orderBy field", name))
		}
		if (mode == ModeMerge || mode == ModeUpsert) && len(listAt(target, "loadPolicy", "dedupKeys")) == 0 {
			errs = append(errs, fmt.Sprintf("Target %q with %s mode must have dedupKeys", name, mode))
		}
		if kind == KindHDFS && strings.Contains(stringAt(target, "entity"), ".") {
			warns = append(warns, fmt.Sprintf("HDFS target %q entity should be a path, not a table name", name))
		}
		if stringAt(target, "ddl", "partitions", "type") == PartitionByDate &&
			stringAt(target, "ddl", "partitions", "field") == "" {
			errs = append(errs, fmt.Sprintf("Target %q with by_date partitioning must specify partition field", name))
		}
	}

	for _, raw := range sources {
		source, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		timeField := stringAt(source, "schema", "timeField")
		if timeField == "" {
			continue
		}
		found := false
		for _, rawField := range listAt(source, "schema", "fields") {
			if field, ok := rawField.(map[string]any); ok && stringAt(field, "name") == timeField {
				found = true
				break
			}
		}
		if !found {
			errs = append(errs, fmt.Sprintf("Source %q timeField %q not found in schema fields",
				stringAt(source, "name"), timeField))
		}
	}
	return errs, warns
}

// stringAt walks nested maps and returns the string leaf, or "" when any
// step is missing or of the wrong shape.
func stringAt(m map[string]any, keys ...string) string {
	v := walk(m, keys)
	s, _ := v.(string)
	return s
}

func listAt(m map[string]any, keys ...string) []any {
	v := walk(m, keys)
	l, _ := v.([]any)
	return l
}

func walk(m map[string]any, keys []string) any {
	var v any = m
	for _, key := range keys {
		current, ok := v.(map[string]any)
		if !ok {
			return nil
		}
		v = current[key]
	}
	return v
}

// RenderErrorPrompt formats validation failures as model feedback for the
// retry prompt.
func RenderErrorPrompt(errs, warns []string) string {
	var b strings.Builder
	b.WriteString("The generated pipeline specification has validation errors. Please fix the following issues:\n\n")

	if len(errs) > 0 {
		b.WriteString("ERRORS (must fix):\n")
		for i, e := range errs {
			fmt.Fprintf(&b, "%d. %s\n", i+1, e)
		}
		b.WriteString("\n")
	}
	if len(warns) > 0 {
		b.WriteString("WARNINGS (recommended to fix):\n")
		for i, w := range warns {
			fmt.Fprintf(&b, "%d. %s\n", i+1, w)
		}
		b.WriteString("\n")
	}

	b.WriteString("Please regenerate the pipeline specification addressing these issues. Ensure all required fields are present and business rules are followed.")
	return b.String()
}
