package prompt

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	contractx "github.com/tanpawarit/sentinel-orchestrator/agent/contract"
)

const (
	DefaultDocumentCap   = 10000
	DefaultMemoryWindow  = 3
	DefaultMemoryItemCap = 400
	DefaultTotalCap      = 8000
)

// Limits bounds each section of a composed prompt, in characters.
type Limits struct {
	DocumentCap   int `split_words:"true" default:"10000"`
	MemoryWindow  int `split_words:"true" default:"3"`
	MemoryItemCap int `split_words:"true" default:"400"`
	TotalCap      int `split_words:"true" default:"8000"`
}

func DefaultLimits() Limits {
	return Limits{
		DocumentCap:   DefaultDocumentCap,
		MemoryWindow:  DefaultMemoryWindow,
		MemoryItemCap: DefaultMemoryItemCap,
		TotalCap:      DefaultTotalCap,
	}
}

func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.DocumentCap <= 0 {
		l.DocumentCap = d.DocumentCap
	}
	if l.MemoryWindow < 0 {
		l.MemoryWindow = 0
	}
	if l.MemoryItemCap <= 0 {
		l.MemoryItemCap = d.MemoryItemCap
	}
	if l.TotalCap <= 0 {
		l.TotalCap = d.TotalCap
	}
	return l
}

// Input is what the front end knows when the user asks an agent.
type Input struct {
	Query    string
	Document string
	// Memory holds the agent's previous replies, oldest first.
	Memory []string
}

// Compose builds the text sent to an agent: document context, recent
// discussion, then the question.
func Compose(in Input, limits Limits) (string, error) {
	query := strings.TrimSpace(in.Query)
	if query == "" {
		return "", contractx.ErrEmptyQuery
	}
	limits = limits.withDefaults()

	doc := Truncate(strings.TrimSpace(in.Document), limits.DocumentCap)

	var memory []string
	recent := in.Memory
	if len(recent) > limits.MemoryWindow {
		recent = recent[len(recent)-limits.MemoryWindow:]
	}
	for _, m := range recent {
		m = strings.TrimSpace(m)
		if m == "" {
			continue
		}
		memory = append(memory, "- "+Truncate(m, limits.MemoryItemCap))
	}

	if doc == "" && len(memory) == 0 {
		return Truncate(query, limits.TotalCap), nil
	}

	question := "Question:\n" + query
	budget := limits.TotalCap - utf8.RuneCountInString(question)
	if budget <= 2 {
		return Truncate(question, limits.TotalCap), nil
	}

	// The question is never cut; context gives way first.
	var b strings.Builder
	if doc != "" {
		fmt.Fprintf(&b, "Context:\n%s\n\n", doc)
	}
	if len(memory) > 0 {
		fmt.Fprintf(&b, "Recent Discussion:\n%s\n\n", strings.Join(memory, "\n"))
	}
	prefix := b.String()
	if utf8.RuneCountInString(prefix) > budget {
		prefix = strings.TrimRight(Truncate(prefix, budget-2), "\n") + "\n\n"
	}

	return prefix + question, nil
}

// Truncate cuts s to at most n characters.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

var quoteReplacer = strings.NewReplacer(
	"\u201c", `"`, "\u201d", `"`, "\u201e", `"`, "\u00ab", `"`, "\u00bb", `"`,
	"\u2018", "'", "\u2019", "'", "\u201a", "'", "\u2032", "'",
)

// SanitizeArg flattens text for use as a single command-line argument:
// control characters become spaces, runs of whitespace collapse, and curly
// quotes are made straight.
func SanitizeArg(s string) string {
	s = quoteReplacer.Replace(s)
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			if !space {
				b.WriteByte(' ')
				space = true
			}
			continue
		}
		space = false
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}
