package parser

import (
	"net/url"
	"regexp"
	"strings"
)

// platformIDPattern covers MLB123456, MLB-123456 and MLBU-123456 style catalog ids.
var platformIDPattern = regexp.MustCompile(`(?i)\b(MLB[A-Z]*-?\d{5,})\b`)

// platformIDFromURL looks for an id in the path first, then in query parameter values.
func platformIDFromURL(raw string) string {
	if raw == "" {
		return ""
	}

	u, err := url.Parse(raw)
	if err != nil {
		if m := platformIDPattern.FindString(raw); m != "" {
			return normalizePlatformID(m)
		}
		return ""
	}

	if m := platformIDPattern.FindString(u.Path); m != "" {
		return normalizePlatformID(m)
	}

	for _, values := range u.Query() {
		for _, v := range values {
			if m := platformIDPattern.FindString(v); m != "" {
				return normalizePlatformID(m)
			}
		}
	}

	return ""
}

func normalizePlatformID(id string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(id), "-", ""))
}
