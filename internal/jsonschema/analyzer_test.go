package jsonschema

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAnalyze_ObjectRoot(t *testing.T) {
	res, err := Analyze([]byte(`{"id": 1, "name": "x", "ok": true}`))
	require.NoError(t, err)
	require.Equal(t, "object", res.Structure)
	require.Equal(t, 1, res.TotalRecords)
	require.Equal(t, []string{"id", "name", "ok"}, res.Schema.Columns())
	require.Equal(t, "integer", res.Schema.Field("id").Type)
	require.Equal(t, "string", res.Schema.Field("name").Type)
	require.Equal(t, "boolean", res.Schema.Field("ok").Type)
}

func TestAnalyze_ArrayOfObjects(t *testing.T) {
	res, err := Analyze([]byte(`[{"id":1,"v":1.5},{"id":2,"v":2.5}]`))
	require.NoError(t, err)
	require.Equal(t, "array", res.Structure)
	require.Equal(t, 2, res.TotalRecords)
	require.Equal(t, []string{"id", "v"}, res.Schema.Columns())
	require.Equal(t, "integer", res.Schema.Field("id").Type)
	require.Equal(t, "number", res.Schema.Field("v").Type)
}

func TestAnalyze_ScalarRootRejected(t *testing.T) {
	_, err := Analyze([]byte(`42`))
	require.ErrorIs(t, err, ErrUnsupportedRoot)
}

func TestAnalyze_MalformedRejected(t *testing.T) {
	_, err := Analyze([]byte(`{"a": 1,`))
	require.Error(t, err)
}

func TestSampleArray_Bounds(t *testing.T) {
	data := make([]any, 10000)
	for i := range data {
		data[i] = float64(i)
	}
	samples := SampleArray(data)
	require.Len(t, samples, MaxSamples)
	require.Equal(t, float64(0), samples[0])
	require.Equal(t, float64(9999), samples[MaxSamples-1])

	// Stride of 200 means no two sampled indices are adjacent.
	prev := -10
	for _, s := range samples[:MaxSamples-1] {
		idx := int(s.(float64))
		require.Greater(t, idx-prev, 1)
		prev = idx
	}
}

func TestSampleArray_SmallKeptWhole(t *testing.T) {
	data := []any{1.0, 2.0, 3.0}
	require.Equal(t, data, SampleArray(data))
}

func TestMergeSchemas_MajorityType(t *testing.T) {
	merged := MergeSchemas([]*FieldSchema{
		{Type: "integer", Examples: []any{1.0}},
		{Type: "integer", Examples: []any{2.0}},
		{Type: "string", Examples: []any{"x"}},
	})
	require.Equal(t, "integer", merged.Type)
}

func TestMergeSchemas_TieFirstSeen(t *testing.T) {
	merged := MergeSchemas([]*FieldSchema{
		{Type: "string", Examples: []any{"x"}},
		{Type: "integer", Examples: []any{1.0}},
	})
	require.Equal(t, "string", merged.Type)
}

func TestMergeSchemas_NullableAndExamplesCap(t *testing.T) {
	in := make([]*FieldSchema, 0, 12)
	for i := 0; i < 12; i++ {
		in = append(in, &FieldSchema{Type: "integer", Examples: []any{float64(i)}})
	}
	in = append(in, &FieldSchema{Type: "null", Examples: []any{nil}, Nullable: true})
	merged := MergeSchemas(in)
	require.True(t, merged.Nullable)
	require.Len(t, merged.Examples, 10)
}

func TestMergeSchemas_FormatInherited(t *testing.T) {
	merged := MergeSchemas([]*FieldSchema{
		{Type: "string", Examples: []any{"a"}},
		{Type: "string", Format: "date", Examples: []any{"2024-01-02"}},
	})
	require.Equal(t, "date", merged.Format)
}

func TestInferStringFormat(t *testing.T) {
	cases := map[string]string{
		"2024-05-01T10:00:00Z": "date-time",
		"2024-05-01":           "date",
		"a@b.io":               "email",
		"https://example.com":  "url",
		"0f8fad5b-d9cb-469f-a165-70867728950e": "uuid",
		"plain": "",
	}
	for in, want := range cases {
		if got := InferStringFormat(in); got != want {
			t.Fatalf("InferStringFormat(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestAnalyze_DepthCap(t *testing.T) {
	// 20 nested levels must not recurse unbounded; schema is truncated.
	doc := strings.Repeat(`{"n":`, 20) + `1` + strings.Repeat(`}`, 20)
	res, err := Analyze([]byte(doc))
	require.NoError(t, err)
	require.Equal(t, "object", res.Schema.Type)
}

func TestAnalyze_ArrayExamplesTruncated(t *testing.T) {
	res, err := Analyze([]byte(`{"tags": [1, 2, 3, 4, 5]}`))
	require.NoError(t, err)
	fs := res.Schema.Field("tags")
	require.Equal(t, "array", fs.Type)
	head, ok := fs.Examples[0].([]any)
	require.True(t, ok)
	require.Len(t, head, 3)
}

func TestDecode_PreservesKeyOrder(t *testing.T) {
	// Keys chosen so lexical order differs from document order.
	v, err := Decode([]byte(`{"zeta": 1, "alpha": 2, "mid": 3}`))
	require.NoError(t, err)
	obj := v.(*Obj)
	require.Equal(t, []string{"zeta", "alpha", "mid"}, obj.Keys())

	out, err := json.Marshal(obj)
	require.NoError(t, err)
	require.Equal(t, `{"zeta":1,"alpha":2,"mid":3}`, string(out))
}

func TestAnalyze_Idempotent(t *testing.T) {
	var rows []string
	for i := 0; i < 200; i++ {
		rows = append(rows, fmt.Sprintf(`{"id":%d,"ts":"2024-01-01T00:00:0%d"}`, i, i%10))
	}
	doc := []byte("[" + strings.Join(rows, ",") + "]")

	a, err := Analyze(doc)
	require.NoError(t, err)
	b, err := Analyze(doc)
	require.NoError(t, err)

	ja, _ := json.Marshal(a)
	jb, _ := json.Marshal(b)
	require.Equal(t, string(ja), string(jb))
}
