// Package text normalizes free-form user input before it is mailed or echoed.
package text

import (
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// controls matches C0/C1 control characters other than tab and newline.
var controls = runes.Predicate(func(r rune) bool {
	return unicode.IsControl(r) && r != '\n' && r != '\t'
})

var chainPool = sync.Pool{
	New: func() any {
		return transform.Chain(runes.Remove(controls), norm.NFC)
	},
}

// Clean trims s, converts CRLF to LF, drops control characters except tab
// and newline, and returns the NFC form.
func Clean(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if isPlainASCII(s) {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")

	t := chainPool.Get().(transform.Transformer)
	defer func() {
		t.Reset()
		chainPool.Put(t)
	}()

	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return strings.TrimSpace(out)
}

// SingleLine is Clean with every run of whitespace collapsed to one space.
// Use it for names and e-mail addresses.
func SingleLine(s string) string {
	return strings.Join(strings.Fields(Clean(s)), " ")
}

// isPlainASCII reports whether s is printable ASCII plus tab and LF.
func isPlainASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		b := s[i]
		if b >= 0x7f || (b < 0x20 && b != '\n' && b != '\t') {
			return false
		}
	}
	return true
}
