package feed

import (
	"regexp"
	"strings"

	"github.com/lysyi3m/critique-desk/app/catalog"
)

var (
	markerPattern = regexp.MustCompile(`\s*\[([^\[]*)\]`)

	// Strips leading [..] and (..) markers, an "SCP-XXXX-FR" style prefix,
	// quotes and punctuation, and a trailing "(draft ...)" qualifier.
	titlePattern = regexp.MustCompile(`(?i)^\s*(?:\s*[\[(][^\[]*?[\])][\s/\\\-]*)*(?:scp(?:[-\s][\dXY#█?]+(?:[-\s]fr)?)?)?[\s:\-"]*([^"]*?(?:"[^"]+"?[^"]*?)*)[\s".]*(?:\(.*(?:provisoire|temporaire|version|draft|temporary|brouillon).*\))?[\s".]*$`)
)

var typeStems = []struct {
	stems []string
	typ   catalog.Type
}{
	{[]string{"idee", "idea"}, catalog.TypeIdea},
	{[]string{"conte", "tale", "serie", "series"}, catalog.TypeStory},
	{[]string{"format"}, catalog.TypeFormatProposal},
}

// Markers returns the content of every [..] segment of title.
func Markers(title string) []string {
	matches := markerPattern.FindAllStringSubmatch(title, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m[1])
	}
	return out
}

func HasMarker(title string) bool {
	return markerPattern.MatchString(title)
}

// ClassifyType scans the markers in order; the last one naming a known
// stem wins. Within one marker the idea stem beats the tale stems, which
// beat format. Titles without a recognized marker are reports.
func ClassifyType(title string) catalog.Type {
	typ := catalog.TypeReport
	for _, marker := range Markers(title) {
		m := catalog.Basicize(marker)
		for _, ts := range typeStems {
			if containsAny(m, ts.stems) {
				typ = ts.typ
				break
			}
		}
	}
	return typ
}

func containsAny(s string, stems []string) bool {
	for _, stem := range stems {
		if strings.Contains(s, stem) {
			return true
		}
	}
	return false
}

// ExtractTitle returns the display title of a submission thread title, or
// "" when nothing is left once markers and qualifiers are removed.
func ExtractTitle(title string) string {
	m := titlePattern.FindStringSubmatch(title)
	if m == nil {
		return strings.TrimSpace(title)
	}
	return strings.TrimSpace(m[1])
}
