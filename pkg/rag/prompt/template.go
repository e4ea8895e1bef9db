package prompt

import (
	"regexp"
	"sort"
	"strings"

	"multimodal-rag-be/pkg/apperror"
)

const (
	PlaceholderEvidence = "evidence"
	PlaceholderHistory  = "history"
	PlaceholderQuestion = "question"
)

var (
	placeholderPattern = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*)\s*\}\}`)
	requiredNames      = []string{PlaceholderEvidence, PlaceholderHistory, PlaceholderQuestion}
)

// Values fills a template. Every field is inserted verbatim.
type Values struct {
	Evidence string
	History  string
	Question string
}

func (v Values) lookup(name string) string {
	switch name {
	case PlaceholderEvidence:
		return v.Evidence
	case PlaceholderHistory:
		return v.History
	case PlaceholderQuestion:
		return v.Question
	}
	return ""
}

// Template is a validated user prompt template.
type Template struct {
	raw string
}

// ParseTemplate accepts exactly the evidence, history and question placeholders,
// each at least once. Anything else between double braces is rejected.
func ParseTemplate(raw string) (*Template, error) {
	const op = "prompt.ParseTemplate"

	found := make(map[string]bool)
	var unknown []string
	for _, m := range placeholderPattern.FindAllStringSubmatch(raw, -1) {
		name := m[1]
		switch name {
		case PlaceholderEvidence, PlaceholderHistory, PlaceholderQuestion:
			found[name] = true
		default:
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, apperror.Configuration(op, "unknown placeholder(s): %s", strings.Join(unknown, ", "))
	}

	var missing []string
	for _, name := range requiredNames {
		if !found[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, apperror.Configuration(op, "missing placeholder(s): %s", strings.Join(missing, ", "))
	}

	return &Template{raw: raw}, nil
}

func (t *Template) Raw() string {
	return t.raw
}

// Static is the template text with every placeholder removed.
func (t *Template) Static() string {
	return placeholderPattern.ReplaceAllString(t.raw, "")
}

// Render substitutes in a single pass, so values that contain "{{...}}" stay literal.
func (t *Template) Render(v Values) string {
	return placeholderPattern.ReplaceAllStringFunc(t.raw, func(match string) string {
		name := placeholderPattern.FindStringSubmatch(match)[1]
		return v.lookup(name)
	})
}
