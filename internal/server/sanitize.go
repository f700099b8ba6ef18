package server

import (
	"regexp"
	"strings"
)

// ansiRe matches CSI and two-byte ANSI escape sequences.
var ansiRe = regexp.MustCompile(`\x1b(\[[0-9;?]*[ -/]*[@-~]|[@-Z\\-_])`)

// Sanitize cleans a string for the machine-protocol channel: ANSI escape
// sequences and C0 control bytes (except tab and newline) are stripped,
// then embedded colons are rewritten to work around a client-side parsing
// defect. It is idempotent and must be applied on egress only; internal
// parsed data keeps its original form.
func Sanitize(s string) string {
	s = ansiRe.ReplaceAllString(s, "")

	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		b := s[i]
		if b < 0x20 && b != '\t' && b != '\n' {
			continue
		}
		if b == 0x7f {
			continue
		}
		sb.WriteByte(b)
	}
	s = sb.String()

	return replaceColons(s)
}

// replaceColons rewrites colons word by word. MAC-shaped words (six or
// more colon-separated tokens) become hyphenated; elsewhere "::" becomes
// "--" and a bare ":" becomes " -".
func replaceColons(s string) string {
	if !strings.Contains(s, ":") {
		return s
	}
	words := strings.Split(s, " ")
	for i, word := range words {
		if !strings.Contains(word, ":") {
			continue
		}
		if strings.Count(word, ":") >= 5 {
			words[i] = strings.ReplaceAll(word, ":", "-")
			continue
		}
		word = strings.ReplaceAll(word, "::", "--")
		words[i] = strings.ReplaceAll(word, ":", " -")
	}
	return strings.Join(words, " ")
}
