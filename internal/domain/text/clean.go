// Package text holds the prompt templates and response parsers used by the
// caption and analysis services. Everything here is pure except
// EnsureMinWords, which consults a Generator.
package text

import (
	"context"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Clean drops consecutive duplicate words, joins the remaining words with
// single spaces and collapses runs of the same character.
func Clean(s string) string {
	if s == "" {
		return s
	}
	words := strings.Fields(s)
	kept := make([]string, 0, len(words))
	for _, w := range words {
		if n := len(kept); n > 0 && kept[n-1] == w {
			continue
		}
		kept = append(kept, w)
	}
	return collapseRuns(strings.Join(kept, " "))
}

func collapseRuns(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	var prev rune
	for i, r := range s {
		if i > 0 && r == prev {
			continue
		}
		b.WriteRune(r)
		prev = r
	}
	return b.String()
}

var strictPolicy = bluemonday.StrictPolicy()

// Sanitize strips markup from model output and trims it.
func Sanitize(s string) string {
	return strings.TrimSpace(html.UnescapeString(strictPolicy.Sanitize(s)))
}

// WordCount counts whitespace separated words.
func WordCount(s string) int {
	return len(strings.Fields(s))
}

const minWordsSuffix = " with various details and elements visible in the scene"

// EnsureMinWords returns alt unchanged when it has at least min words.
// Otherwise it asks gen for a longer description; an answer that is still
// short gets a generic suffix. A generator error yields alt.
func EnsureMinWords(ctx context.Context, gen Generator, alt string, min int) string {
	if WordCount(alt) >= min {
		return alt
	}
	out, err := gen.Generate(ctx, MinWordsPrompt(alt, min))
	if err != nil {
		return alt
	}
	out = strings.TrimSpace(out)
	if WordCount(out) < min {
		out += minWordsSuffix
	}
	return out
}

var defaultHashtags = []string{"#Photography", "#Social", "#Content"}

// ExtractHashtags keeps whitespace separated tokens starting with '#'.
func ExtractHashtags(s string) []string {
	var tags []string
	for _, tok := range strings.Fields(s) {
		if strings.HasPrefix(tok, "#") {
			tags = append(tags, tok)
		}
	}
	if len(tags) == 0 {
		return append([]string(nil), defaultHashtags...)
	}
	return tags
}

// ParseList splits a comma or newline separated answer into names,
// dropping list bullets and case-insensitive duplicates.
func ParseList(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == '\n' || r == ';' })
	seen := make(map[string]bool, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(stripBullet(strings.TrimSpace(f)))
		f = strings.Trim(f, ".*\"'`")
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		key := strings.ToLower(f)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, f)
	}
	return out
}

func stripBullet(s string) string {
	for _, p := range []string{"- ", "* ", "• "} {
		if strings.HasPrefix(s, p) {
			return s[len(p):]
		}
	}
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i > 0 && i < len(s) && (s[i] == '.' || s[i] == ')') {
		return s[i+1:]
	}
	return s
}
