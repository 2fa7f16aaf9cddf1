package translator

import (
	"regexp"
	"strings"
)

var (
	fenceRe       = regexp.MustCompile("(?s)```[A-Za-z0-9_+#-]*[ \t]*\r?\n(.*?)\r?\n?```")
	unsupportedRe = regexp.MustCompile(`(?m)^\s*UNSUPPORTED:\s*(.+?)\s*$`)
)

// Postprocess extracts the code from a backend reply. When the reply is the
// refusal sentinel it returns the named construct and refused=true.
func Postprocess(reply string) (code, construct string, refused bool) {
	trimmed := strings.TrimSpace(reply)
	if m := unsupportedRe.FindStringSubmatch(trimmed); m != nil && !strings.Contains(trimmed, "```") {
		return "", m[1], true
	}
	if m := fenceRe.FindStringSubmatch(trimmed); m != nil {
		return strings.TrimSpace(m[1]) + "\n", "", false
	}
	if strings.HasPrefix(trimmed, "```") {
		// unterminated fence: drop the opener and its language tag
		trimmed = strings.TrimPrefix(trimmed, "```")
		if i := strings.IndexByte(trimmed, '\n'); i >= 0 && !strings.ContainsAny(trimmed[:i], "({;= ") {
			trimmed = trimmed[i+1:]
		}
	}
	trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, "```"))
	if trimmed == "" {
		return "", "", false
	}
	return trimmed + "\n", "", false
}
