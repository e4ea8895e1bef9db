package pii

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

type Category string

const (
	CategoryEmail Category = "EMAIL"
	CategoryPhone Category = "PHONE"
)

// Span locates a detected value in the input text (byte offsets).
type Span struct {
	Category Category `json:"category"`
	Start    int      `json:"start"`
	End      int      `json:"end"`
}

type Result struct {
	Text     string
	Spans    []Span
	Degraded bool // detector unavailable, Text is the unmodified input
}

// IRedactor never fails. When it cannot detect it says so through Result.Degraded.
type IRedactor interface {
	Redact(text string) Result
}

type pattern struct {
	category Category
	re       *regexp.Regexp
}

type Redactor struct {
	patterns []pattern
}

var (
	emailPattern = regexp.MustCompile(`[\p{L}\p{N}._%+\-]+@[\p{L}\p{N}.\-]+\.\p{L}{2,}`)
	// International or local numbers with optional separators, at least seven digits.
	// The trailing \b keeps a match from stopping inside a digit run.
	phonePattern = regexp.MustCompile(`(?:\+\d{1,3}[\s.\-]?)?(?:\(\d{1,4}\)[\s.\-]?)?\d{2,4}(?:[\s.\-]?\d{2,4}){1,4}\b`)
	datePattern  = regexp.MustCompile(`^(?:\d{4}[.\-]\d{1,2}[.\-]\d{1,2}|\d{1,2}[.\-]\d{1,2}[.\-]\d{4})$`)
)

func Placeholder(c Category) string {
	return "[REDACTED_" + string(c) + "]"
}

func NewRedactor() *Redactor {
	return &Redactor{
		patterns: []pattern{
			{category: CategoryEmail, re: emailPattern},
			{category: CategoryPhone, re: phonePattern},
		},
	}
}

// NewDisabledRedactor builds a redactor with no detector, every call reports Degraded.
func NewDisabledRedactor() *Redactor {
	return &Redactor{}
}

func (r *Redactor) Redact(text string) Result {
	if r == nil || len(r.patterns) == 0 {
		return Result{Text: text, Spans: []Span{}, Degraded: true}
	}

	var spans []Span
	for _, p := range r.patterns {
		for _, loc := range p.re.FindAllStringIndex(text, -1) {
			if p.category == CategoryPhone && !plausiblePhone(text, loc[0], loc[1]) {
				continue
			}
			spans = append(spans, Span{Category: p.category, Start: loc[0], End: loc[1]})
		}
	}
	if len(spans) == 0 {
		return Result{Text: text, Spans: []Span{}}
	}

	// Leftmost match wins on overlap; at equal start the email pattern wins.
	sort.SliceStable(spans, func(i, j int) bool { return spans[i].Start < spans[j].Start })
	kept := spans[:0]
	lastEnd := -1
	for _, s := range spans {
		if s.Start < lastEnd {
			continue
		}
		kept = append(kept, s)
		lastEnd = s.End
	}

	var sb strings.Builder
	cursor := 0
	for _, s := range kept {
		sb.WriteString(text[cursor:s.Start])
		sb.WriteString(Placeholder(s.Category))
		cursor = s.End
	}
	sb.WriteString(text[cursor:])

	return Result{Text: sb.String(), Spans: append([]Span(nil), kept...)}
}

// plausiblePhone drops matches that are really dates, bare digit runs such as
// invoice numbers, or fragments of a longer word.
func plausiblePhone(text string, start, end int) bool {
	m := text[start:end]
	if countDigits(m) < 7 || datePattern.MatchString(m) {
		return false
	}
	if strings.IndexFunc(m, func(r rune) bool { return r < '0' || r > '9' }) < 0 {
		return false
	}
	if before, _ := utf8.DecodeLastRuneInString(text[:start]); start > 0 && isWordRune(before) {
		return false
	}
	if after, _ := utf8.DecodeRuneInString(text[end:]); end < len(text) && isWordRune(after) {
		return false
	}
	return true
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func countDigits(s string) int {
	n := 0
	for _, c := range s {
		if c >= '0' && c <= '9' {
			n++
		}
	}
	return n
}
