package web

import (
	"errors"
	"os"
	"strings"
)

const DefaultVersion = "v0.1.0"

// ReadVersion parses a VERSION file of the form "v0.1.0 | <commit url>".
// A missing file yields DefaultVersion and no URL.
func ReadVersion(path string) (label, url string, err error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultVersion, "", nil
		}
		return DefaultVersion, "", err
	}
	return ParseVersion(string(raw))
}

func ParseVersion(raw string) (label, url string, err error) {
	label = DefaultVersion
	parts := strings.Split(strings.TrimSpace(raw), "|")
	if v := strings.TrimSpace(parts[0]); v != "" {
		label = v
	}
	if len(parts) > 1 {
		url = strings.TrimSpace(parts[1])
	}
	return label, url, nil
}
