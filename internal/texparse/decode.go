package texparse

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// decode implements the deterministic BOM -> UTF-8 -> Latin-1 fallback chain
// called for in the spec's encoding Open Question, in preference to a
// statistical charset classifier, so parsing stays reproducible across runs.
func decode(raw []byte) (string, error) {
	if bytes.HasPrefix(raw, utf8BOM) {
		raw = raw[len(utf8BOM):]
	}
	if utf8.Valid(raw) {
		return string(raw), nil
	}
	text, err := charmap.ISO8859_1.NewDecoder().String(string(raw))
	if err != nil {
		return "", err
	}
	return text, nil
}

// normalizeNewlines collapses \r\n and \r to \n.
func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return s
}
