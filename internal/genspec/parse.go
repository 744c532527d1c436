package genspec

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

var (
	ErrNoJSON         = errors.New("genspec: no JSON object found in model response")
	ErrMissingKeys    = errors.New("genspec: model response missing required keys")
	errUnparsable     = errors.New("genspec: model response could not be parsed as JSON")
	reStrayBackslash  = regexp.MustCompile(`\\([^"\\/bfnrtu])`)
	reControlChars    = regexp.MustCompile("[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]")
	reAllControlChars = regexp.MustCompile("[\x00-\x1F\x7F]")
)

// modelOutput is the parsed shape of one model response. The profile and
// recommendation blocks stay raw: only their presence is contractual, their
// inner shape is advisory and forwarded untouched.
type modelOutput struct {
	DeepProfile    json.RawMessage `json:"deepProfile"`
	Recommendation json.RawMessage `json:"recommendation"`
	ReportMarkdown string          `json:"reportMarkdown"`
	ProposedSpec   json.RawMessage `json:"proposedSpec"`
}

// extractJSONBlock cuts the outermost {...} span from prose-wrapped text:
// first opening brace through last closing brace.
func extractJSONBlock(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start == -1 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

// sanitizeJSON escapes stray backslashes and strips control characters not
// valid inside JSON strings. The model occasionally emits both.
func sanitizeJSON(raw string) string {
	cleaned := reStrayBackslash.ReplaceAllString(raw, `\\$1`)
	return reControlChars.ReplaceAllString(cleaned, "")
}

// parseModelResponse applies the parse ladder to raw model text: extract the
// JSON block, try strict parse, retry after sanitization, then after an
// aggressive control-character strip. Any success still requires all four
// contract keys.
func parseModelResponse(text string) (*modelOutput, error) {
	block, ok := extractJSONBlock(text)
	if !ok {
		return nil, ErrNoJSON
	}

	candidates := []string{
		block,
		sanitizeJSON(block),
		reAllControlChars.ReplaceAllString(block, ""),
	}

	var lastErr error
	for _, candidate := range candidates {
		var out modelOutput
		if err := json.Unmarshal([]byte(candidate), &out); err != nil {
			lastErr = err
			continue
		}
		if !present(out.DeepProfile) || !present(out.Recommendation) ||
			out.ReportMarkdown == "" || !present(out.ProposedSpec) {
			return nil, ErrMissingKeys
		}
		return &out, nil
	}
	return nil, errors.Join(errUnparsable, lastErr)
}

func present(raw json.RawMessage) bool {
	return len(raw) > 0 && string(raw) != "null"
}
