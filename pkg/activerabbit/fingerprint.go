// fingerprint.go derives stable grouping keys for exceptions.

package activerabbit

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

// maxFingerprintFrames bounds how much of the stack participates in the
// fingerprint. Deep frames churn with refactors; the top of the stack is
// what identifies the failure site.
const maxFingerprintFrames = 3

var (
	quotedPattern    = regexp.MustCompile(`'[^']*'|"[^"]*"`)
	pathPattern      = regexp.MustCompile(`(?:/[\w.@-]+){2,}`)
	hexPattern       = regexp.MustCompile(`0x[0-9a-fA-F]+`)
	numberPattern    = regexp.MustCompile(`\d+`)
	frameLinePattern = regexp.MustCompile(`:\d+`)
)

// Fingerprint produces a stable identifier for an exception so that
// recurrences group together. The class, the message with volatile parts
// normalized, and up to three application frames (line numbers stripped)
// are hashed; two panics at the same site with different embedded values
// yield the same fingerprint.
func Fingerprint(class, message string, frames []Frame) string {
	parts := []string{class, cleanMessage(message)}

	count := 0
	for _, f := range frames {
		if count >= maxFingerprintFrames {
			break
		}
		if !isAppFrame(f) {
			continue
		}
		parts = append(parts, frameKey(f))
		count++
	}

	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])[:32]
}

// cleanMessage normalizes the parts of an error message that vary between
// occurrences of the same failure: quoted values, filesystem paths, hex
// addresses, and numbers.
func cleanMessage(msg string) string {
	msg = quotedPattern.ReplaceAllString(msg, "STR")
	msg = pathPattern.ReplaceAllString(msg, "PATH")
	msg = hexPattern.ReplaceAllString(msg, "HEX")
	msg = numberPattern.ReplaceAllString(msg, "N")
	return msg
}

// frameKey renders a frame without its line number or memory addresses so
// fingerprints survive unrelated edits to the same file and do not vary
// between occurrences.
func frameKey(f Frame) string {
	if f.Method != "" || f.File != "" {
		if f.Method == "" {
			return f.File
		}
		return f.File + "#" + f.Method
	}
	raw := hexPattern.ReplaceAllString(f.Raw, "")
	return frameLinePattern.ReplaceAllString(raw, "")
}
