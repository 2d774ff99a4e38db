package letters

import (
	"strconv"
	"strings"
	"unicode"
)

const (
	maxCompanyLength = 50
	maxTitleLength   = 40
)

// SanitizeFilename keeps letters, digits, spaces, underscores and hyphens, then
// replaces spaces with underscores and cuts the result to limit runes.
func SanitizeFilename(text string, limit int) string {
	var b strings.Builder
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '_' || r == '-' {
			b.WriteRune(r)
		}
	}

	sanitized := strings.ReplaceAll(strings.TrimSpace(b.String()), " ", "_")
	runes := []rune(sanitized)
	if limit > 0 && len(runes) > limit {
		runes = runes[:limit]
	}
	return string(runes)
}

// FileName returns the letter file name of an offer. index names offers without
// a usable company or title.
func FileName(company, title string, index int) string {
	c := SanitizeFilename(company, maxCompanyLength)
	if c == "" {
		c = "entreprise_" + strconv.Itoa(index)
	}
	t := SanitizeFilename(title, maxTitleLength)
	if t == "" {
		t = "poste_" + strconv.Itoa(index)
	}
	return "lettre_" + c + "_" + t + ".txt"
}
