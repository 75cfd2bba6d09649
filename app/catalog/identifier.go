package catalog

import (
	"regexp"
	"strconv"
)

var (
	identifierPattern = regexp.MustCompile(`(?:^|/)t-(\d+)(?:[/?#]|$)`)
	threadURLPattern  = regexp.MustCompile(`https?://[^\s/]+/(?:\S*/)?t-\d+\S*`)
)

// ExtractID returns the thread number of a forum URL of the form
// .../t-<digits>/... and false when url carries none.
func ExtractID(url string) (int64, bool) {
	m := identifierPattern.FindStringSubmatch(url)
	if m == nil {
		return 0, false
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// FindThreadURL returns the first forum thread link found in free text.
func FindThreadURL(text string) (string, bool) {
	for _, candidate := range threadURLPattern.FindAllString(text, -1) {
		if _, ok := ExtractID(candidate); ok {
			return candidate, true
		}
	}
	return "", false
}
