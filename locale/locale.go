// Package locale holds the set of locale codes the UI ships dictionaries for.
// Audio records declare their spoken language as one of these codes, or "und"
// for undetermined.
package locale

import "strings"

// Undetermined is the language code for audio without a declared language.
const Undetermined = "und"

// codes mirrors the dictionary files shipped with the web UI.
var codes = []string{
	"en",
	"ar",
	"de",
	"es",
	"fr",
	"pt",
	"ru",
	"tr",
	"zh",
}

var codeSet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(codes)+1)
	for _, c := range codes {
		set[c] = struct{}{}
	}
	set[Undetermined] = struct{}{}
	return set
}()

// Codes returns the available locale codes, without "und".
func Codes() []string {
	out := make([]string, len(codes))
	copy(out, codes)
	return out
}

// Normalize lowercases and trims a submitted language code.
func Normalize(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// IsValid reports whether code (already normalized) is a known locale or "und".
func IsValid(code string) bool {
	_, ok := codeSet[code]
	return ok
}
