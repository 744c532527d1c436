package profiler

import "regexp"

const xmlMaxRecords = 500

var (
	reXMLOpenTag = regexp.MustCompile(`<(\w+)([^>]*)>`)
	reXMLAttr    = regexp.MustCompile(`(\w+)=`)
)

// XMLProfile is a shallow regex-based tag scan. It counts opening tags,
// treats the most frequent tag name as the record element and its attribute
// names as columns. There is no real XML parsing and no nesting awareness;
// wrapper tags can win the frequency vote on malformed documents, which is
// accepted as a best-effort approximation.
type XMLProfile struct {
	Root     string
	Columns  []string
	TagCount int
	Types    map[string]string
	Quality  map[string]QualityStat
	Missing  map[string]int
}

// ProfileXML scans up to xmlMaxRecords opening tags and derives a nominal
// column set from the winning tag's attributes.
func ProfileXML(text string) *XMLProfile {
	matches := reXMLOpenTag.FindAllStringSubmatch(text, xmlMaxRecords)

	tagCounts := map[string]int{}
	var tagOrder []string
	tagAttrs := map[string][]string{}
	attrSeen := map[string]map[string]struct{}{}

	for _, m := range matches {
		name, rawAttrs := m[1], m[2]
		if _, ok := tagCounts[name]; !ok {
			tagOrder = append(tagOrder, name)
			attrSeen[name] = map[string]struct{}{}
		}
		tagCounts[name]++
		for _, am := range reXMLAttr.FindAllStringSubmatch(rawAttrs, -1) {
			if _, ok := attrSeen[name][am[1]]; !ok {
				attrSeen[name][am[1]] = struct{}{}
				tagAttrs[name] = append(tagAttrs[name], am[1])
			}
		}
	}

	root := "root"
	bestCount := 0
	for _, name := range tagOrder {
		if tagCounts[name] > bestCount {
			root = name
			bestCount = tagCounts[name]
		}
	}

	columns := append([]string{root}, tagAttrs[root]...)
	p := &XMLProfile{
		Root:     root,
		Columns:  columns,
		TagCount: len(matches),
		Types:    make(map[string]string, len(columns)),
		Quality:  make(map[string]QualityStat, len(columns)),
		Missing:  make(map[string]int, len(columns)),
	}
	for _, col := range columns {
		p.Types[col] = "string"
		p.Quality[col] = QualityStat{NotNull: 1.0, Unique: 0.5}
		p.Missing[col] = 0
	}
	return p
}

// Normalize projects the variant into the shared FileProfile shape.
func (p *XMLProfile) Normalize(encoding string, info SampleInfo) *FileProfile {
	confidence := 0.5
	if info.Percent >= 30 {
		confidence = 0.7
	}
	return &FileProfile{
		Format:           FormatXML,
		Columns:          p.Columns,
		InferredTypes:    p.Types,
		SampleRowsCount:  p.TagCount,
		MissingStats:     p.Missing,
		TimeFields:       []string{},
		QualityStats:     p.Quality,
		Encoding:         encoding,
		SampleInfo:       info,
		SamplingWarning:  info.Percent < 100,
		SchemaConfidence: confidence,
	}
}
