// Package labels computes the label changes needed to make one label set match another.
package labels

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Normalize lowercases and trims a label. Empty results are dropped by Set.
func Normalize(label string) string {
	// cases.Caser is not safe for concurrent use
	return cases.Lower(language.Und).String(strings.TrimSpace(label))
}

// Set builds a normalized label set from a list.
func Set(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		n := Normalize(v)
		if n == "" {
			continue
		}
		set[n] = struct{}{}
	}
	return set
}

// Diff returns the labels that must be added to current and removed from it
// so that it equals desired. Comparison is case-insensitive; both results are
// normalized and sorted. Labels present on both sides are untouched.
func Diff(current, desired []string) (added, removed []string) {
	have := Set(current)
	want := Set(desired)

	added = subtract(want, have)
	removed = subtract(have, want)
	return added, removed
}

// Merge returns current followed by every label in added that current does
// not already hold, ignoring case. Existing labels keep their spelling.
func Merge(current, added []string) []string {
	seen := make(map[string]struct{}, len(current)+len(added))
	out := make([]string, 0, len(current)+len(added))
	for _, list := range [][]string{current, added} {
		for _, l := range list {
			n := Normalize(l)
			if n == "" {
				continue
			}
			if _, ok := seen[n]; ok {
				continue
			}
			seen[n] = struct{}{}
			out = append(out, strings.TrimSpace(l))
		}
	}
	return out
}

func subtract(a, b map[string]struct{}) []string {
	out := make([]string, 0)
	for k := range a {
		if _, ok := b[k]; !ok {
			out = append(out, k)
		}
	}
	slices.Sort(out)
	return out
}

// Originals maps normalized labels back to their spelling in source. Labels
// not found in source are returned as given.
func Originals(source, normalized []string) []string {
	spelled := make(map[string]string, len(source))
	for _, s := range source {
		n := Normalize(s)
		if _, ok := spelled[n]; !ok {
			spelled[n] = s
		}
	}

	out := make([]string, 0, len(normalized))
	for _, n := range normalized {
		if s, ok := spelled[n]; ok {
			out = append(out, s)
			continue
		}
		out = append(out, n)
	}
	return out
}
